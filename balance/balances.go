// Copyright (c) 2025 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package balance implements the per account multi-asset ledger with a
// height indexed snapshot history of one tracked asset.
package balance

import (
	"maps"
	"slices"

	"github.com/pkg/errors"
	"github.com/vechain/tally/tally"
)

// Entry is one asset balance.
type Entry struct {
	Asset  tally.AssetID
	Amount tally.Amount
}

// Balances holds the available and locked amounts per asset of one account.
//
// Mutations of the tracked asset at a non-zero height record a pending snapshot.
// Pending snapshots become history on CommitSnapshots, which also rewinds any
// committed history they supersede.
type Balances struct {
	registration tally.Height
	tracked      tally.AssetID
	optimized    tally.AssetID

	available map[tally.AssetID]tally.Amount
	locked    map[tally.AssetID]tally.Amount

	committed []Snapshot
	pending   []Snapshot
}

// New creates empty balances for an account registered at the given height.
func New(registration tally.Height) *Balances {
	return &Balances{
		registration: registration,
		available:    make(map[tally.AssetID]tally.Amount),
		locked:       make(map[tally.AssetID]tally.Amount),
	}
}

// SetRegistrationHeight sets the height below which mutations are rejected.
func (b *Balances) SetRegistrationHeight(h tally.Height) { b.registration = h }

// Get returns the available amount of an asset.
func (b *Balances) Get(asset tally.AssetID) tally.Amount { return b.available[asset] }

// GetLocked returns the locked amount of an asset.
func (b *Balances) GetLocked(asset tally.AssetID) tally.Amount { return b.locked[asset] }

// Size returns the number of assets with a non-zero available amount.
func (b *Balances) Size() int { return len(b.available) }

// LockedSize returns the number of assets with a non-zero locked amount.
func (b *Balances) LockedSize() int { return len(b.locked) }

// Tracked returns the asset whose history is snapshotted.
func (b *Balances) Tracked() tally.AssetID { return b.tracked }

// Optimized returns the primary asset.
func (b *Balances) Optimized() tally.AssetID { return b.optimized }

// Optimize marks asset as primary; it is listed first by All and Locked.
func (b *Balances) Optimize(asset tally.AssetID) { b.optimized = asset }

// All returns the available amounts, primary asset first and the rest by id.
func (b *Balances) All() []Entry { return b.entries(b.available) }

// Locked returns the locked amounts, ordered like All.
func (b *Balances) Locked() []Entry { return b.entries(b.locked) }

func (b *Balances) entries(m map[tally.AssetID]tally.Amount) []Entry {
	ids := slices.SortedFunc(maps.Keys(m), func(x, y tally.AssetID) int {
		switch {
		case x == y:
			return 0
		case x == b.optimized:
			return -1
		case y == b.optimized:
			return 1
		case x < y:
			return -1
		default:
			return 1
		}
	})
	out := make([]Entry, 0, len(ids))
	for _, id := range ids {
		out = append(out, Entry{id, m[id]})
	}
	return out
}

// Track designates the asset whose history is snapshotted. Once any history,
// committed or pending, exists the tracked asset can no longer change.
func (b *Balances) Track(asset tally.AssetID) error {
	if asset == b.tracked {
		return nil
	}
	if len(b.committed) > 0 || len(b.pending) > 0 {
		return errors.Wrapf(ErrInvalidState, "track %v: history of %v exists", asset, b.tracked)
	}
	b.tracked = asset
	return nil
}

// Snapshots returns the committed history.
func (b *Balances) Snapshots() []Snapshot { return slices.Clone(b.committed) }

// PendingSnapshots returns the history recorded since the last CommitSnapshots.
func (b *Balances) PendingSnapshots() []Snapshot { return slices.Clone(b.pending) }

// History returns the committed history with pending snapshots folded in.
func (b *Balances) History() []Snapshot { return slices.Clone(merge(b.committed, b.pending)) }

// Credit adds amount at height. Height must be non-zero.
func (b *Balances) Credit(asset tally.AssetID, amount tally.Amount, height tally.Height) error {
	return b.mutate(asset, amount, height, b.credit)
}

// Debit subtracts amount at height. Height must be non-zero.
func (b *Balances) Debit(asset tally.AssetID, amount tally.Amount, height tally.Height) error {
	return b.mutate(asset, amount, height, b.debit)
}

// Lock moves amount from available to locked at height.
func (b *Balances) Lock(asset tally.AssetID, amount tally.Amount, height tally.Height) error {
	return b.mutate(asset, amount, height, func(asset tally.AssetID, amount tally.Amount) error {
		if _, overflow := tally.AddAmounts(b.locked[asset], amount); overflow {
			return ErrOverflow
		}
		if err := take(b.available, asset, amount); err != nil {
			return errors.WithMessage(err, "lock")
		}
		b.locked[asset] += amount
		return nil
	})
}

// Unlock moves amount from locked to available at height.
func (b *Balances) Unlock(asset tally.AssetID, amount tally.Amount, height tally.Height) error {
	return b.mutate(asset, amount, height, func(asset tally.AssetID, amount tally.Amount) error {
		if _, overflow := tally.AddAmounts(b.available[asset], amount); overflow {
			return ErrOverflow
		}
		if err := take(b.locked, asset, amount); err != nil {
			return errors.WithMessage(err, "unlock")
		}
		b.available[asset] += amount
		return nil
	})
}

// CreditUntracked adds amount without recording history.
func (b *Balances) CreditUntracked(asset tally.AssetID, amount tally.Amount) error {
	if amount == 0 {
		return nil
	}
	return b.credit(asset, amount)
}

// DebitUntracked subtracts amount without recording history.
func (b *Balances) DebitUntracked(asset tally.AssetID, amount tally.Amount) error {
	if amount == 0 {
		return nil
	}
	return b.debit(asset, amount)
}

func (b *Balances) credit(asset tally.AssetID, amount tally.Amount) error {
	sum, overflow := tally.AddAmounts(b.available[asset], amount)
	if overflow {
		return errors.Wrapf(ErrOverflow, "credit %d of %v", amount, asset)
	}
	b.available[asset] = sum
	return nil
}

func (b *Balances) debit(asset tally.AssetID, amount tally.Amount) error {
	return errors.WithMessage(take(b.available, asset, amount), "debit")
}

// take subtracts amount from m[asset], erasing the entry when it reaches zero.
func take(m map[tally.AssetID]tally.Amount, asset tally.AssetID, amount tally.Amount) error {
	current := m[asset]
	if amount > current {
		return errors.Wrapf(ErrInsufficientBalance, "%v: have %d, need %d", asset, current, amount)
	}
	if current == amount {
		delete(m, asset)
	} else {
		m[asset] = current - amount
	}
	return nil
}

// mutate validates the height, applies fn and records the tracked history.
// Nothing changes when fn fails.
func (b *Balances) mutate(asset tally.AssetID, amount tally.Amount, height tally.Height, fn func(tally.AssetID, tally.Amount) error) error {
	if amount == 0 {
		return nil
	}
	if height == 0 {
		return errors.Wrapf(ErrInvalidHeight, "%v", asset)
	}
	if uint64(height)+1 < uint64(b.registration) {
		return errors.Wrapf(ErrHeightBelowRegistration, "height %v, registered at %v", height, b.registration)
	}

	tracked := asset == b.tracked
	synthesize := tracked && height > 1 && len(b.committed) == 0 && len(b.pending) == 0
	if synthesize && height < b.registration {
		return errors.Wrapf(ErrHeightBelowRegistration, "height %v, registered at %v", height-1, b.registration)
	}
	previous := b.current(height - 1)

	if err := fn(asset, amount); err != nil {
		return err
	}
	if !tracked {
		return nil
	}
	if synthesize {
		b.pending = append(b.pending, previous)
	}
	b.push(b.current(height))
	return nil
}

func (b *Balances) current(height tally.Height) Snapshot {
	return Snapshot{
		Amount:       b.available[b.tracked],
		LockedAmount: b.locked[b.tracked],
		Height:       height,
	}
}

// push records s as the latest pending snapshot, replacing pending entries at or above its height.
func (b *Balances) push(s Snapshot) {
	b.pending = append(rewind(b.pending, s.Height), s)
}

// CommitSnapshots folds the pending history into the committed one.
// Committed snapshots at or above the first pending height are rewound and
// leading pending snapshots equal to the last committed balance are dropped.
func (b *Balances) CommitSnapshots() {
	if len(b.pending) == 0 {
		return
	}
	b.committed = merge(b.committed, b.pending)
	b.pending = nil
}

// CleanUpSnapshots drops committed snapshots that fall out of the rollback
// window, those at or below height - unstable.
func (b *Balances) CleanUpSnapshots(height tally.Height, unstable uint64) {
	if uint64(height) <= unstable {
		return
	}
	stable := height - tally.Height(unstable)
	i := 0
	for i < len(b.committed) && b.committed[i].Height <= stable {
		i++
	}
	if i > 0 {
		b.committed = slices.Clone(b.committed[i:])
	}
}

// EffectiveBalance returns the tracked balance as of height - numBlocksBack.
//
// The latest snapshot at or before the target height is used. A target that
// predates the history yields the earliest snapshot. Without any history the
// current tracked balance is returned.
func (b *Balances) EffectiveBalance(height tally.Height, numBlocksBack uint64) tally.Amount {
	history := merge(b.committed, b.pending)
	if len(history) == 0 {
		return b.available[b.tracked]
	}
	i := pivot(history, height.Sub(numBlocksBack))
	if i < 0 {
		i = 0
	}
	return history[i].Amount
}

// MinimumBalance returns the lowest tracked balance held from height - grouping
// onwards. It starts at the latest snapshot at or before that height (or the
// earliest one) and takes the minimum over both the committed and the pending
// history, so an uncommitted rollback never raises the result.
func (b *Balances) MinimumBalance(height tally.Height, grouping uint64) tally.Amount {
	if len(b.committed) == 0 && len(b.pending) == 0 {
		return b.available[b.tracked]
	}
	target := height.Sub(grouping)
	windowMin := func(snapshots []Snapshot) (tally.Amount, bool) {
		if len(snapshots) == 0 {
			return 0, false
		}
		i := max(pivot(snapshots, target), 0)
		m := snapshots[i].Amount
		for _, s := range snapshots[i+1:] {
			m = min(m, s.Amount)
		}
		return m, true
	}
	c, okc := windowMin(b.committed)
	p, okp := windowMin(b.pending)
	switch {
	case okc && okp:
		return min(c, p)
	case okc:
		return c
	default:
		return p
	}
}

// Clone returns a deep copy.
func (b *Balances) Clone() *Balances {
	c := *b
	c.available = cloneAmounts(b.available)
	c.locked = cloneAmounts(b.locked)
	c.committed = slices.Clone(b.committed)
	c.pending = slices.Clone(b.pending)
	return &c
}

func cloneAmounts(m map[tally.AssetID]tally.Amount) map[tally.AssetID]tally.Amount {
	c := make(map[tally.AssetID]tally.Amount, len(m))
	maps.Copy(c, m)
	return c
}
