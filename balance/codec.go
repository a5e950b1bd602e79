// Copyright (c) 2025 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package balance

import (
	"io"

	"github.com/ethereum/go-ethereum/rlp"
	"github.com/pkg/errors"
	"github.com/vechain/tally/tally"
)

// balancesRLP is the persisted form. Pending history is folded into Snapshots,
// so balances encode identically before and after CommitSnapshots.
type balancesRLP struct {
	Tracked   tally.AssetID
	Optimized tally.AssetID
	Available []Entry
	Locked    []Entry
	Snapshots []Snapshot
}

var (
	_ rlp.Encoder = (*Balances)(nil)
	_ rlp.Decoder = (*Balances)(nil)
)

// EncodeRLP implements rlp.Encoder.
func (b *Balances) EncodeRLP(w io.Writer) error {
	return rlp.Encode(w, &balancesRLP{
		Tracked:   b.tracked,
		Optimized: b.optimized,
		Available: b.All(),
		Locked:    b.Locked(),
		Snapshots: merge(b.committed, b.pending),
	})
}

// DecodeRLP implements rlp.Decoder. The registration height is not part of
// the encoding and must be restored by the owner.
func (b *Balances) DecodeRLP(s *rlp.Stream) error {
	var obj balancesRLP
	if err := s.Decode(&obj); err != nil {
		return err
	}

	decoded := New(b.registration)
	decoded.tracked = obj.Tracked
	decoded.optimized = obj.Optimized
	for _, e := range obj.Available {
		if e.Amount == 0 {
			return errors.Errorf("zero available entry for %v", e.Asset)
		}
		decoded.available[e.Asset] = e.Amount
	}
	for _, e := range obj.Locked {
		if e.Amount == 0 {
			return errors.Errorf("zero locked entry for %v", e.Asset)
		}
		decoded.locked[e.Asset] = e.Amount
	}
	for i := 1; i < len(obj.Snapshots); i++ {
		if obj.Snapshots[i].Height <= obj.Snapshots[i-1].Height {
			return errors.New("snapshot heights not increasing")
		}
	}
	if len(obj.Snapshots) > 0 {
		decoded.committed = obj.Snapshots
	}
	*b = *decoded
	return nil
}
