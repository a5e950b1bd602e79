// Copyright (c) 2025 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package tally

import (
	"math"
	"strconv"
)

// Height is a block height. Height 1 is the nemesis block; height 0 is reserved
// for mutations that are not bound to any block.
type Height uint64

// Amount is an unsigned quantity of an asset.
type Amount uint64

// AssetID identifies a fungible asset.
type AssetID uint64

// Timestamp is milliseconds since the network epoch.
type Timestamp uint64

// Difficulty is the per block difficulty, also used as the hit base target.
type Difficulty uint64

// String implements the stringer interface.
func (h Height) String() string { return strconv.FormatUint(uint64(h), 10) }

// Sub returns h - n, saturating at zero.
func (h Height) Sub(n uint64) Height {
	if uint64(h) <= n {
		return 0
	}
	return h - Height(n)
}

// String implements the stringer interface.
func (a AssetID) String() string { return "0x" + strconv.FormatUint(uint64(a), 16) }

// AddAmounts returns a + b and whether the sum overflowed.
func AddAmounts(a, b Amount) (Amount, bool) {
	if uint64(a) > math.MaxUint64-uint64(b) {
		return 0, true
	}
	return a + b, false
}

// Seconds returns the number of whole seconds elapsed from prev to t, zero if t is not after prev.
func (t Timestamp) Seconds(prev Timestamp) uint64 {
	if t <= prev {
		return 0
	}
	return uint64(t-prev) / 1000
}
