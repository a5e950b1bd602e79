// Copyright (c) 2025 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package chain

import (
	"encoding/binary"

	"github.com/holiman/uint256"

	"github.com/vechain/tally/accountcache"
	"github.com/vechain/tally/block"
	"github.com/vechain/tally/statecache"
	"github.com/vechain/tally/tally"
)

// CalculateHit returns the hit of a generation hash, its first 8 bytes read little-endian.
func CalculateHit(genHash tally.Bytes32) uint64 {
	return binary.LittleEndian.Uint64(genHash[:8])
}

// CalculateTarget returns parentDifficulty * elapsedSeconds * effectiveBalance.
func CalculateTarget(parentDifficulty tally.Difficulty, elapsedSeconds uint64, effectiveBalance tally.Amount) *uint256.Int {
	target := uint256.NewInt(uint64(parentDifficulty))
	target.Mul(target, uint256.NewInt(elapsedSeconds))
	return target.Mul(target, uint256.NewInt(uint64(effectiveBalance)))
}

// CalculateScore returns the score a child block adds to the chain: its
// difficulty less the seconds elapsed since the parent. It is zero when the
// child is not after the parent.
func CalculateScore(parent, child *block.Header) uint64 {
	if child.Timestamp() <= parent.Timestamp() {
		return 0
	}
	elapsed := child.Timestamp().Seconds(parent.Timestamp())
	difficulty := uint64(child.Difficulty())
	if difficulty <= elapsed {
		return 0
	}
	return difficulty - elapsed
}

// HitContext is what a hit predicate decides on.
type HitContext struct {
	Parent         *block.Header
	Header         *block.Header
	GenerationHash tally.Bytes32
	Delta          *statecache.Delta
}

// HitPredicate decides whether a block signer was eligible to produce the block.
type HitPredicate interface {
	IsHit(HitContext) bool
}

// HitPredicateFunc adapts a function to HitPredicate.
type HitPredicateFunc func(HitContext) bool

// IsHit implements HitPredicate.
func (f HitPredicateFunc) IsHit(c HitContext) bool { return f(c) }

// BalanceHitPredicate hits when the hit of the generation hash is below the
// target derived from the signer's effective balance.
type BalanceHitPredicate struct {
	ImportanceGrouping uint64
}

// IsHit implements HitPredicate.
func (p BalanceHitPredicate) IsHit(c HitContext) bool {
	accounts, err := statecache.DeltaOf[*accountcache.Delta](c.Delta)
	if err != nil {
		return false
	}
	h, ok := accounts.FindByKey(c.Header.Signer())
	if !ok {
		return false
	}
	acc, err := accounts.Get(h)
	if err != nil {
		return false
	}
	balance := acc.Balances.EffectiveBalance(c.Header.Height(), p.ImportanceGrouping)
	target := CalculateTarget(
		c.Parent.Difficulty(),
		c.Header.Timestamp().Seconds(c.Parent.Timestamp()),
		balance,
	)
	return uint256.NewInt(CalculateHit(c.GenerationHash)).Lt(target)
}
