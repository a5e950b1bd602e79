// Copyright (c) 2025 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package balance

import (
	"fmt"

	"github.com/vechain/tally/tally"
)

// Snapshot is the tracked asset balance recorded at a height.
type Snapshot struct {
	Amount       tally.Amount
	LockedAmount tally.Amount
	Height       tally.Height
}

func (s Snapshot) String() string {
	return fmt.Sprintf("%d(%d locked)@%d", s.Amount, s.LockedAmount, s.Height)
}

func (s Snapshot) sameBalance(other Snapshot) bool {
	return s.Amount == other.Amount && s.LockedAmount == other.LockedAmount
}

// rewind drops the tail of snapshots at or above height.
func rewind(snapshots []Snapshot, height tally.Height) []Snapshot {
	i := len(snapshots)
	for i > 0 && snapshots[i-1].Height >= height {
		i--
	}
	return snapshots[:i]
}

// merge folds pending onto committed. Neither input is modified.
func merge(committed, pending []Snapshot) []Snapshot {
	if len(pending) == 0 {
		return committed
	}
	committed = rewind(committed, pending[0].Height)
	committed = committed[:len(committed):len(committed)]
	for len(committed) > 0 && len(pending) > 0 && committed[len(committed)-1].sameBalance(pending[0]) {
		pending = pending[1:]
	}
	return append(committed, pending...)
}

// pivot returns the index of the latest snapshot at or before height, or -1.
func pivot(snapshots []Snapshot, height tally.Height) int {
	lo, hi := 0, len(snapshots)
	for lo < hi {
		mid := (lo + hi) / 2
		if snapshots[mid].Height <= height {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	return lo - 1
}
