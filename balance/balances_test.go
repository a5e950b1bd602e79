// Copyright (c) 2025 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package balance

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vechain/tally/tally"
	"github.com/vechain/tally/test/datagen"
)

const (
	xpx    = tally.AssetID(0x1234)
	other  = tally.AssetID(0x77)
	amount = tally.Amount(12345)
)

func newTracked(t *testing.T) *Balances {
	b := New(1)
	require.NoError(t, b.Track(xpx))
	return b
}

func TestEmptyBalances(t *testing.T) {
	b := New(1)
	assert.Equal(t, 0, b.Size())
	assert.Equal(t, tally.Amount(0), b.Get(xpx))
	assert.Empty(t, b.All())
	assert.Empty(t, b.Snapshots())
}

func TestCreditAndDebit(t *testing.T) {
	b := newTracked(t)

	require.NoError(t, b.Credit(xpx, 0, 1))
	assert.Equal(t, 0, b.Size(), "zero credit is a no-op")

	require.NoError(t, b.Credit(xpx, amount, 1))
	require.NoError(t, b.Credit(other, 100, 1))
	require.NoError(t, b.Debit(xpx, 345, 1))
	assert.Equal(t, tally.Amount(12000), b.Get(xpx))
	assert.Equal(t, 2, b.Size())

	require.NoError(t, b.Debit(other, 100, 1))
	assert.Equal(t, 1, b.Size(), "full debit erases the entry")

	err := b.Debit(xpx, 12001, 1)
	assert.ErrorIs(t, err, ErrInsufficientBalance)
	assert.Equal(t, tally.Amount(12000), b.Get(xpx), "failed debit leaves balance untouched")

	assert.ErrorIs(t, b.Debit(other, 1, 1), ErrInsufficientBalance)
	require.NoError(t, b.Debit(other, 0, 1), "debit zero from zero")
}

func TestCreditOverflow(t *testing.T) {
	b := New(1)
	require.NoError(t, b.CreditUntracked(xpx, tally.Amount(^uint64(0))))
	assert.ErrorIs(t, b.CreditUntracked(xpx, 1), ErrOverflow)
}

func TestLockOverflow(t *testing.T) {
	b := newTracked(t)
	full := tally.Amount(^uint64(0))
	require.NoError(t, b.Credit(xpx, full, 1))
	require.NoError(t, b.Lock(xpx, full, 1))
	require.NoError(t, b.Credit(xpx, 5, 2))
	pending := b.PendingSnapshots()

	assert.ErrorIs(t, b.Lock(xpx, 5, 2), ErrOverflow)
	assert.Equal(t, tally.Amount(5), b.Get(xpx))
	assert.Equal(t, full, b.GetLocked(xpx))
	assert.Equal(t, pending, b.PendingSnapshots(), "failed lock leaves no snapshot")
}

func TestLockAndUnlock(t *testing.T) {
	b := newTracked(t)
	require.NoError(t, b.Credit(xpx, amount, 1))
	b.CommitSnapshots()

	require.NoError(t, b.Lock(xpx, 222, 1))
	b.CommitSnapshots()
	assert.Equal(t, amount-222, b.Get(xpx))
	assert.Equal(t, tally.Amount(222), b.GetLocked(xpx))
	require.Len(t, b.Snapshots(), 1)
	assert.Equal(t, Snapshot{amount - 222, 222, 1}, b.Snapshots()[0])

	require.NoError(t, b.Unlock(xpx, 111, 1))
	b.CommitSnapshots()
	assert.Equal(t, amount-111, b.Get(xpx))
	assert.Equal(t, tally.Amount(111), b.GetLocked(xpx))
	assert.Equal(t, []Snapshot{{amount - 111, 111, 1}}, b.Snapshots())

	assert.ErrorIs(t, b.Unlock(xpx, 112, 2), ErrInsufficientBalance)
	assert.ErrorIs(t, b.Lock(xpx, amount, 2), ErrInsufficientBalance)
	assert.Equal(t, []Snapshot{{amount - 111, 111, 1}}, b.Snapshots())
}

func TestFullLockAndUnlockMoveEntries(t *testing.T) {
	b := newTracked(t)
	require.NoError(t, b.Credit(xpx, amount, 1))
	b.CommitSnapshots()

	require.NoError(t, b.Lock(xpx, amount, 2))
	b.CommitSnapshots()
	assert.Equal(t, 0, b.Size())
	assert.Equal(t, 1, b.LockedSize())
	assert.Equal(t, []Snapshot{{amount, 0, 1}, {0, amount, 2}}, b.Snapshots())

	require.NoError(t, b.Unlock(xpx, amount, 3))
	b.CommitSnapshots()
	assert.Equal(t, 1, b.Size())
	assert.Equal(t, 0, b.LockedSize())
	assert.Equal(t, Snapshot{amount, 0, 3}, b.Snapshots()[2])
}

func TestLockUnlockRoundTrip(t *testing.T) {
	b := newTracked(t)
	require.NoError(t, b.Credit(xpx, amount, 1))
	require.NoError(t, b.Lock(xpx, 4000, 1))
	before := b.Clone()

	require.NoError(t, b.Lock(xpx, 300, 2))
	require.NoError(t, b.Unlock(xpx, 300, 2))
	assert.Equal(t, before.Get(xpx), b.Get(xpx))
	assert.Equal(t, before.GetLocked(xpx), b.GetLocked(xpx))
}

func TestOptimizeOrdersEntries(t *testing.T) {
	b := New(1)
	for _, id := range []tally.AssetID{5, 1, 9, 3} {
		require.NoError(t, b.CreditUntracked(id, tally.Amount(id)*10))
	}
	assert.Equal(t, []Entry{{1, 10}, {3, 30}, {5, 50}, {9, 90}}, b.All())

	b.Optimize(9)
	assert.Equal(t, []Entry{{9, 90}, {1, 10}, {3, 30}, {5, 50}}, b.All())
	assert.Equal(t, tally.Amount(50), b.Get(5))
}

func TestUntrackedMutationsHaveNoHistory(t *testing.T) {
	b := newTracked(t)
	require.NoError(t, b.CreditUntracked(xpx, amount))
	require.NoError(t, b.DebitUntracked(xpx, amount))
	b.CommitSnapshots()
	assert.Empty(t, b.Snapshots())

	assert.ErrorIs(t, b.Credit(xpx, amount, 0), ErrInvalidHeight)
	assert.ErrorIs(t, b.Debit(xpx, amount, 0), ErrInvalidHeight)
}

func TestOtherAssetsHaveNoHistory(t *testing.T) {
	b := newTracked(t)
	require.NoError(t, b.Credit(other, amount, 3))
	b.CommitSnapshots()
	assert.Empty(t, b.Snapshots())
	assert.Equal(t, amount, b.Get(other))
}

func TestSnapshotForNemesisBlock(t *testing.T) {
	b := newTracked(t)
	require.NoError(t, b.Credit(xpx, amount, 1))
	b.CommitSnapshots()

	assert.Equal(t, []Snapshot{{amount, 0, 1}}, b.Snapshots())
}

func TestSnapshotsAfterNemesisSynthesizePreviousBalance(t *testing.T) {
	b := newTracked(t)
	require.NoError(t, b.Credit(xpx, amount, 2))
	b.CommitSnapshots()
	assert.Equal(t, []Snapshot{{0, 0, 1}, {amount, 0, 2}}, b.Snapshots())

	b = newTracked(t)
	require.NoError(t, b.CreditUntracked(xpx, amount))
	require.NoError(t, b.Credit(xpx, amount, 2))
	b.CommitSnapshots()
	assert.Equal(t, []Snapshot{{amount, 0, 1}, {2 * amount, 0, 2}}, b.Snapshots())
}

func TestUpdateOnCurrentHeightUpdatesSnapshot(t *testing.T) {
	b := newTracked(t)
	require.NoError(t, b.Credit(xpx, amount, 1))
	b.CommitSnapshots()

	require.NoError(t, b.Credit(xpx, amount, 1))
	b.CommitSnapshots()
	assert.Equal(t, []Snapshot{{2 * amount, 0, 1}}, b.Snapshots())

	require.NoError(t, b.Debit(xpx, amount, 1))
	b.CommitSnapshots()
	assert.Equal(t, []Snapshot{{amount, 0, 1}}, b.Snapshots())
}

func TestUpdateOnIncreasingHeightAddsSnapshot(t *testing.T) {
	b := newTracked(t)
	require.NoError(t, b.Credit(xpx, amount, 1))
	b.CommitSnapshots()
	require.NoError(t, b.Credit(xpx, amount, 2))
	b.CommitSnapshots()

	assert.Equal(t, []Snapshot{{amount, 0, 1}, {2 * amount, 0, 2}}, b.Snapshots())
}

func TestRollbackCollapsesHistory(t *testing.T) {
	b := newTracked(t)
	require.NoError(t, b.Credit(xpx, amount, 1))
	require.NoError(t, b.Credit(xpx, amount, 2))
	b.CommitSnapshots()
	require.Len(t, b.Snapshots(), 2)

	// rollback of block 2
	require.NoError(t, b.Debit(xpx, amount, 2))
	b.CommitSnapshots()
	assert.Equal(t, []Snapshot{{amount, 0, 1}}, b.Snapshots())
}

func TestUpdateOnPreviousHeightAfterRollback(t *testing.T) {
	b := newTracked(t)
	require.NoError(t, b.Credit(xpx, amount, 1))
	require.NoError(t, b.Credit(xpx, amount, 2))
	b.CommitSnapshots()

	require.NoError(t, b.Debit(xpx, amount, 2))
	require.NoError(t, b.Credit(xpx, amount, 1))
	b.CommitSnapshots()
	assert.Equal(t, []Snapshot{{2 * amount, 0, 1}}, b.Snapshots())
}

func TestSeveralCommitsAndRollbacks(t *testing.T) {
	b := newTracked(t)
	for range 3 {
		require.NoError(t, b.Credit(xpx, amount, 1))
		require.NoError(t, b.Credit(xpx, amount, 2))
		b.CommitSnapshots()
		require.NoError(t, b.Debit(xpx, amount, 2))
		require.NoError(t, b.Debit(xpx, amount, 1))
		b.CommitSnapshots()
	}
	require.NoError(t, b.Credit(xpx, amount, 1))
	b.CommitSnapshots()
	assert.Equal(t, []Snapshot{{amount, 0, 1}}, b.Snapshots())

	for h := tally.Height(2); h < 6; h++ {
		require.NoError(t, b.Credit(xpx, amount, h))
		b.CommitSnapshots()
	}
	for h := tally.Height(5); h > 1; h-- {
		require.NoError(t, b.Debit(xpx, amount, h))
		b.CommitSnapshots()
	}
	assert.Equal(t, []Snapshot{{amount, 0, 1}}, b.Snapshots())
}

func TestCommitSnapshotsIsIdempotent(t *testing.T) {
	b := newTracked(t)
	require.NoError(t, b.Credit(xpx, amount, 1))
	require.NoError(t, b.Credit(xpx, amount, 3))
	b.CommitSnapshots()
	first := b.Snapshots()

	b.CommitSnapshots()
	assert.Equal(t, first, b.Snapshots())
	assert.Empty(t, b.PendingSnapshots())
}

func TestFullDebitKeepsZeroSnapshot(t *testing.T) {
	b := newTracked(t)
	require.NoError(t, b.Credit(xpx, amount, 1))
	b.CommitSnapshots()
	require.NoError(t, b.Debit(xpx, amount, 2))
	b.CommitSnapshots()

	assert.Equal(t, 0, b.Size())
	assert.Equal(t, []Snapshot{{amount, 0, 1}, {0, 0, 2}}, b.Snapshots())
}

func TestMutationBelowRegistrationHeight(t *testing.T) {
	b := New(100)
	require.NoError(t, b.Track(xpx))
	require.NoError(t, b.CreditUntracked(xpx, amount))

	assert.ErrorIs(t, b.Credit(xpx, 1, 50), ErrHeightBelowRegistration)
	assert.ErrorIs(t, b.Debit(xpx, 1, 50), ErrHeightBelowRegistration)
	assert.Equal(t, amount, b.Get(xpx))
	assert.Empty(t, b.PendingSnapshots())

	require.NoError(t, b.Credit(xpx, 1, 100))
	assert.Equal(t, []Snapshot{{amount, 0, 99}, {amount + 1, 0, 100}}, b.History())
}

func TestTrack(t *testing.T) {
	b := newTracked(t)
	require.NoError(t, b.Track(other), "no history yet")
	require.NoError(t, b.Track(xpx))

	require.NoError(t, b.Credit(xpx, amount, 2))
	assert.ErrorIs(t, b.Track(other), ErrInvalidState, "pending history")
	require.NoError(t, b.Track(xpx), "same asset is fine")

	b.CommitSnapshots()
	assert.ErrorIs(t, b.Track(other), ErrInvalidState, "committed history")
	assert.Equal(t, xpx, b.Tracked())
}

func TestCleanUpSnapshots(t *testing.T) {
	b := newTracked(t)
	for h := tally.Height(1); h <= 10; h++ {
		require.NoError(t, b.Credit(xpx, 1, h))
	}
	b.CommitSnapshots()

	b.CleanUpSnapshots(8, 8)
	assert.Len(t, b.Snapshots(), 10, "inside the unstable window")

	b.CleanUpSnapshots(10, 6)
	assert.Equal(t, tally.Height(5), b.Snapshots()[0].Height)
	assert.Len(t, b.Snapshots(), 6)
}

func TestClone(t *testing.T) {
	b := newTracked(t)
	require.NoError(t, b.Credit(xpx, amount, 1))
	c := b.Clone()
	require.NoError(t, c.Credit(xpx, amount, 2))
	c.CommitSnapshots()

	assert.Equal(t, amount, b.Get(xpx))
	assert.Len(t, b.PendingSnapshots(), 1)
	assert.Empty(t, b.Snapshots())
	assert.Len(t, c.Snapshots(), 2)
}

func TestRandomLockUnlockRestoresBalance(t *testing.T) {
	for range 20 {
		b := newTracked(t)
		credited := datagen.RandAmount(1 << 40)
		height := tally.Height(datagen.RandUint64()%1000 + 1)
		require.NoError(t, b.Credit(xpx, credited, height))

		locked := datagen.RandAmount(uint64(credited))
		require.NoError(t, b.Lock(xpx, locked, height))
		assert.Equal(t, credited-locked, b.Get(xpx))
		require.NoError(t, b.Unlock(xpx, locked, height))

		assert.Equal(t, credited, b.Get(xpx))
		assert.Equal(t, 0, b.LockedSize())
	}
}
