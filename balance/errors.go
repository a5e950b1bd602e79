// Copyright (c) 2025 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package balance

import "github.com/pkg/errors"

var (
	// ErrInsufficientBalance is returned when a debit, lock or unlock would drive a sub-balance negative.
	ErrInsufficientBalance = errors.New("insufficient balance")
	// ErrInvalidState is returned when the tracked asset can no longer change.
	ErrInvalidState = errors.New("invalid balance state")
	// ErrInvalidHeight is returned when a tracked mutation is given height 0.
	ErrInvalidHeight = errors.New("invalid mutation height")
	// ErrHeightBelowRegistration is returned for mutations below the account registration height.
	ErrHeightBelowRegistration = errors.New("height below account registration")
	// ErrOverflow is returned when a credit would overflow the amount.
	ErrOverflow = errors.New("balance overflow")
)
