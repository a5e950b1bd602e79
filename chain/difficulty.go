// Copyright (c) 2025 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package chain

import (
	"math"

	"github.com/holiman/uint256"
	"github.com/pkg/errors"

	"github.com/vechain/tally/difficultycache"
	"github.com/vechain/tally/tally"
)

// ErrDifficultyHistory is returned when the history cannot yield the difficulty of a block.
var ErrDifficultyHistory = errors.New("unusable difficulty history")

// maxChangeDivisor bounds one retarget to a tenth of the last difficulty.
const maxChangeDivisor = 10

// CalculateDifficulty returns the difficulty of the block at height, given
// the ascending history of the blocks before it.
//
// The average difficulty of the history is scaled by the ratio of the time the
// history actually spans to the time it should have taken at targetSeconds per
// block. Slow blocks raise the difficulty, which raises the hit target.
func CalculateDifficulty(history []difficultycache.Info, height tally.Height, targetSeconds uint64) (tally.Difficulty, error) {
	n := len(history)
	if n == 0 {
		return 0, errors.Wrap(ErrDifficultyHistory, "empty")
	}
	first, last := history[0], history[n-1]
	if last.Height+1 != height {
		return 0, errors.Wrapf(ErrDifficultyHistory, "last at %v, block at %v", last.Height, height)
	}
	if last.Difficulty == 0 {
		return 0, errors.Wrapf(ErrDifficultyHistory, "zero difficulty at %v", last.Height)
	}
	if n == 1 || targetSeconds == 0 {
		return last.Difficulty, nil
	}

	sum := new(uint256.Int)
	for _, info := range history {
		sum.Add(sum, uint256.NewInt(uint64(info.Difficulty)))
	}
	next := sum.Div(sum, uint256.NewInt(uint64(n)))
	next.Mul(next, uint256.NewInt(uint64(last.Timestamp-first.Timestamp)))
	next.Div(next, uint256.NewInt(targetSeconds*1000*uint64(n-1)))

	d := uint64(last.Difficulty)
	lower, upper := d-d/maxChangeDivisor, d+min(d/maxChangeDivisor, math.MaxUint64-d)
	switch {
	case next.LtUint64(lower):
		return tally.Difficulty(max(lower, 1)), nil
	case !next.IsUint64() || next.Uint64() > upper:
		return tally.Difficulty(upper), nil
	}
	return tally.Difficulty(next.Uint64()), nil
}

// NextDifficulty calculates the difficulty of the block at height from the
// history held by d.
func NextDifficulty(d *difficultycache.Delta, height tally.Height, targetSeconds uint64) (tally.Difficulty, error) {
	history := make([]difficultycache.Info, 0, d.Len())
	d.Range(0, height, func(info difficultycache.Info) bool {
		history = append(history, info)
		return true
	})
	return CalculateDifficulty(history, height, targetSeconds)
}
