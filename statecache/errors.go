// Copyright (c) 2025 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package statecache

import "github.com/pkg/errors"

var (
	// ErrConcurrentDelta is returned by CreateDelta while another delta is open.
	ErrConcurrentDelta = errors.New("a delta is already open")
	// ErrDeltaClosed is returned when a committed or discarded delta is used.
	ErrDeltaClosed = errors.New("delta closed")
	// ErrCorruptedState is returned when serialized state is missing or unreadable.
	ErrCorruptedState = errors.New("corrupted state")
	// ErrInconsistentHeight is returned when cache and block storage heights disagree.
	ErrInconsistentHeight = errors.New("inconsistent cache height")
	// ErrHeightMismatch is returned when a delta is committed at a height other than its own.
	ErrHeightMismatch = errors.New("commit height mismatch")
	// ErrHeightUnavailable is returned for views of heights other than the committed one.
	ErrHeightUnavailable = errors.New("height unavailable")
	// ErrSubCacheNotFound is returned by the typed lookups when no sub-cache has the requested type.
	ErrSubCacheNotFound = errors.New("sub-cache not found")
)
