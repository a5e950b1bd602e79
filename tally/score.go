// Copyright (c) 2025 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package tally

import (
	"github.com/holiman/uint256"
)

// ChainScore is the accumulated chain weight. It is persisted as two 64 bit halves,
// so any value is kept within 128 bits.
type ChainScore struct {
	v uint256.Int
}

// NewChainScore creates a score from a single 64 bit value.
func NewChainScore(lo uint64) ChainScore {
	var s ChainScore
	s.v.SetUint64(lo)
	return s
}

// NewChainScoreFromHalves creates a score from its persisted halves.
func NewChainScoreFromHalves(hi, lo uint64) ChainScore {
	var s ChainScore
	s.v = uint256.Int{lo, hi, 0, 0}
	return s
}

// Halves returns the high and low 64 bit words of the score.
func (s ChainScore) Halves() (hi, lo uint64) {
	return s.v[1], s.v[0]
}

// Add returns s + other, truncated to 128 bits.
func (s ChainScore) Add(other ChainScore) ChainScore {
	var r ChainScore
	r.v.Add(&s.v, &other.v)
	r.v[2], r.v[3] = 0, 0
	return r
}

// AddUint64 returns s + n.
func (s ChainScore) AddUint64(n uint64) ChainScore {
	return s.Add(NewChainScore(n))
}

// Cmp compares two scores, returning -1, 0 or 1.
func (s ChainScore) Cmp(other ChainScore) int {
	return s.v.Cmp(&other.v)
}

// IsZero returns if the score is zero.
func (s ChainScore) IsZero() bool {
	return s.v.IsZero()
}

// String implements the stringer interface.
func (s ChainScore) String() string {
	return s.v.Dec()
}
