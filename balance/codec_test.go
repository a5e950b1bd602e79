// Copyright (c) 2025 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package balance

import (
	"testing"

	"github.com/ethereum/go-ethereum/rlp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vechain/tally/tally"
)

func TestBalancesRLP(t *testing.T) {
	b := newTracked(t)
	b.Optimize(xpx)
	require.NoError(t, b.Credit(xpx, amount, 1))
	require.NoError(t, b.Credit(other, 500, 1))
	require.NoError(t, b.Lock(xpx, 45, 2))

	pendingEnc, err := rlp.EncodeToBytes(b)
	require.NoError(t, err)

	b.CommitSnapshots()
	committedEnc, err := rlp.EncodeToBytes(b)
	require.NoError(t, err)
	assert.Equal(t, committedEnc, pendingEnc, "encoding ignores commit state")

	decoded := New(7)
	require.NoError(t, rlp.DecodeBytes(committedEnc, decoded))
	assert.Equal(t, b.All(), decoded.All())
	assert.Equal(t, b.Locked(), decoded.Locked())
	assert.Equal(t, b.Snapshots(), decoded.Snapshots())
	assert.Equal(t, xpx, decoded.Tracked())
	assert.Equal(t, xpx, decoded.Optimized())
	assert.Empty(t, decoded.PendingSnapshots())
	assert.Equal(t, tally.Amount(45), decoded.GetLocked(xpx))

	// registration height is kept by the receiver
	assert.ErrorIs(t, decoded.Credit(xpx, 1, 3), ErrHeightBelowRegistration)
}

func TestBalancesRLPRejectsMalformed(t *testing.T) {
	enc, err := rlp.EncodeToBytes(&balancesRLP{Available: []Entry{{Asset: xpx}}})
	require.NoError(t, err)
	assert.Error(t, rlp.DecodeBytes(enc, New(1)))

	enc, err = rlp.EncodeToBytes(&balancesRLP{Snapshots: []Snapshot{{Amount: 1, Height: 2}, {Amount: 2, Height: 2}}})
	require.NoError(t, err)
	assert.Error(t, rlp.DecodeBytes(enc, New(1)))
}
