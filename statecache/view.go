// Copyright (c) 2025 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package statecache

import (
	"github.com/pkg/errors"
	"github.com/vechain/tally/tally"
)

// View is an immutable point-in-time handle over the committed state.
// Views may be used concurrently and never observe an open delta.
type View struct {
	height tally.Height
	subs   []SubView
}

// Height returns the committed height the view was taken at.
func (v *View) Height() tally.Height { return v.height }

// CalculateStateHash returns the state hash of the view.
func (v *View) CalculateStateHash() StateHashInfo {
	roots := make([]tally.Bytes32, 0, len(v.subs))
	for _, sub := range v.subs {
		if root, ok := sub.MerkleRoot(); ok {
			roots = append(roots, root)
		}
	}
	return newStateHashInfo(roots)
}

// Delta is the single mutable overlay over the committed state.
type Delta struct {
	cache  *Cache
	height tally.Height
	subs   []SubDelta
	closed bool

	hashInfo *StateHashInfo
}

// Height returns the height the delta was opened for.
func (d *Delta) Height() tally.Height { return d.height }

// Closed reports whether the delta was committed or discarded.
func (d *Delta) Closed() bool { return d.closed }

// Discard drops all changes and releases the cache for a new delta.
func (d *Delta) Discard() {
	if d.closed {
		return
	}
	d.closed = true
	for _, sub := range d.subs {
		if s, ok := sub.(discarder); ok {
			s.Discard()
		}
	}
	d.cache.release(d)
}

// CalculateStateHash returns the state hash including the changes so far.
// The result is kept until ClearMerkleRoots.
func (d *Delta) CalculateStateHash() StateHashInfo {
	if d.hashInfo == nil {
		roots := make([]tally.Bytes32, 0, len(d.subs))
		for _, sub := range d.subs {
			if root, ok := sub.MerkleRoot(); ok {
				roots = append(roots, root)
			}
		}
		info := newStateHashInfo(roots)
		d.hashInfo = &info
	}
	return *d.hashInfo
}

// ClearMerkleRoots drops the roots kept by CalculateStateHash.
func (d *Delta) ClearMerkleRoots() { d.hashInfo = nil }

// StateHashInfo is the state hash with the sub-cache roots it is made of.
type StateHashInfo struct {
	StateHash           tally.Bytes32
	SubCacheMerkleRoots []tally.Bytes32
}

func newStateHashInfo(roots []tally.Bytes32) StateHashInfo {
	data := make([][]byte, 0, len(roots))
	for _, root := range roots {
		data = append(data, root.Bytes())
	}
	return StateHashInfo{StateHash: tally.Sha3(data...), SubCacheMerkleRoots: roots}
}

// ViewOf returns the view of the sub-cache of type T.
func ViewOf[T SubView](v *View) (T, error) {
	for _, sub := range v.subs {
		if t, ok := sub.(T); ok {
			return t, nil
		}
	}
	var zero T
	return zero, errors.Wrapf(ErrSubCacheNotFound, "%T", zero)
}

// DeltaOf returns the delta of the sub-cache of type T.
func DeltaOf[T SubDelta](d *Delta) (T, error) {
	var zero T
	if d.closed {
		return zero, ErrDeltaClosed
	}
	for _, sub := range d.subs {
		if t, ok := sub.(T); ok {
			return t, nil
		}
	}
	return zero, errors.Wrapf(ErrSubCacheNotFound, "%T", zero)
}
