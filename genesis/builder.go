// Copyright (c) 2025 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package genesis

import (
	"crypto/ecdsa"

	"github.com/pkg/errors"

	"github.com/vechain/tally/block"
	"github.com/vechain/tally/chain"
	"github.com/vechain/tally/statecache"
	"github.com/vechain/tally/tally"
)

// Builder helps to build the nemesis block.
type Builder struct {
	timestamp  tally.Timestamp
	difficulty tally.Difficulty
	signer     *ecdsa.PrivateKey
	allocs     []allocation
}

type allocation struct {
	recipient tally.Address
	transfers []block.Transfer
}

// Timestamp sets the launch time.
func (b *Builder) Timestamp(ts tally.Timestamp) *Builder {
	b.timestamp = ts
	return b
}

// Difficulty sets the initial difficulty.
func (b *Builder) Difficulty(d tally.Difficulty) *Builder {
	b.difficulty = d
	return b
}

// Signer sets the key the nemesis block is signed with.
func (b *Builder) Signer(priv *ecdsa.PrivateKey) *Builder {
	b.signer = priv
	return b
}

// Allocate grants amount of asset to recipient.
func (b *Builder) Allocate(recipient tally.Address, asset tally.AssetID, amount tally.Amount) *Builder {
	t := block.Transfer{Recipient: recipient, Asset: asset, Amount: amount}
	for i := range b.allocs {
		if b.allocs[i].recipient == recipient {
			b.allocs[i].transfers = append(b.allocs[i].transfers, t)
			return b
		}
	}
	b.allocs = append(b.allocs, allocation{recipient, []block.Transfer{t}})
	return b
}

func (b *Builder) block(stateHash, receiptsHash tally.Bytes32) *block.Block {
	signer := block.KeyOf(b.signer)
	builder := new(block.Builder).
		Height(Height).
		Timestamp(b.timestamp).
		Difficulty(b.difficulty).
		Signer(signer).
		StateHash(stateHash).
		ReceiptsHash(receiptsHash)
	for _, a := range b.allocs {
		builder.Transaction(block.NewTransaction(signer, b.timestamp, 0, a.transfers...))
	}
	return builder.Build()
}

// Build executes the allocations on a scratch cache from newCache to derive
// the state and receipts hashes, and returns the signed nemesis element.
func (b *Builder) Build(newCache func() *statecache.Cache, entities chain.EntityProcessor, feeAsset tally.AssetID) (*block.Element, error) {
	if b.signer == nil {
		return nil, errors.New("nemesis signer not set")
	}
	scratch := newCache()
	delta, err := scratch.CreateDelta(Height)
	if err != nil {
		return nil, err
	}
	defer delta.Discard()

	info, statement, err := apply(delta, entities, block.NewElement(b.block(tally.Bytes32{}, tally.Bytes32{})), feeAsset)
	if err != nil {
		return nil, err
	}
	signed, err := b.block(info.StateHash, statement.Hash()).Sign(b.signer)
	if err != nil {
		return nil, errors.Wrap(err, "sign nemesis")
	}
	return block.NewElement(signed), nil
}
