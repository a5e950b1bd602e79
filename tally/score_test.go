// Copyright (c) 2025 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package tally

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestChainScoreAdd(t *testing.T) {
	s := NewChainScore(math.MaxUint64).AddUint64(2)

	hi, lo := s.Halves()
	assert.Equal(t, uint64(1), hi)
	assert.Equal(t, uint64(1), lo)
	assert.Equal(t, s, NewChainScoreFromHalves(1, 1))
	assert.Equal(t, 1, s.Cmp(NewChainScore(math.MaxUint64)))
	assert.Equal(t, "18446744073709551617", s.String())
}

func TestChainScoreTruncatesTo128Bits(t *testing.T) {
	s := NewChainScoreFromHalves(math.MaxUint64, math.MaxUint64).AddUint64(1)
	assert.True(t, s.IsZero())
}

func TestMerkleRoot(t *testing.T) {
	a, b, c := Blake2b([]byte("a")), Blake2b([]byte("b")), Blake2b([]byte("c"))

	assert.Equal(t, Bytes32{}, MerkleRoot(nil))
	assert.Equal(t, a, MerkleRoot([]Bytes32{a}))
	assert.Equal(t, Sha3(a[:], b[:]), MerkleRoot([]Bytes32{a, b}))

	ab := Sha3(a[:], b[:])
	cc := Sha3(c[:], c[:])
	leaves := []Bytes32{a, b, c}
	assert.Equal(t, Sha3(ab[:], cc[:]), MerkleRoot(leaves))
	// input is left untouched
	assert.Equal(t, []Bytes32{a, b, c}, leaves)
}

func TestHeightSub(t *testing.T) {
	assert.Equal(t, Height(0), Height(5).Sub(10))
	assert.Equal(t, Height(3), Height(5).Sub(2))
	assert.Equal(t, uint64(2), Timestamp(5000).Seconds(3000))
	assert.Equal(t, uint64(0), Timestamp(3000).Seconds(5000))
}
