// Copyright (c) 2025 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package genesis builds and executes the nemesis block.
package genesis

import (
	"github.com/pkg/errors"

	"github.com/vechain/tally/accountcache"
	"github.com/vechain/tally/block"
	"github.com/vechain/tally/chain"
	"github.com/vechain/tally/log"
	"github.com/vechain/tally/model"
	"github.com/vechain/tally/observers"
	"github.com/vechain/tally/state"
	"github.com/vechain/tally/statecache"
	"github.com/vechain/tally/tally"
)

var logger = log.WithContext("pkg", "genesis")

// Height is the height of the nemesis block.
const Height tally.Height = 1

var (
	// ErrNotNemesis is returned when executing a block that is not at the nemesis height.
	ErrNotNemesis = errors.New("not a nemesis block")
	// ErrRejected is returned when the nemesis block does not apply cleanly.
	ErrRejected = errors.New("nemesis block rejected")
)

// Options control the checks done while executing the nemesis block.
type Options struct {
	FeeAsset           tally.AssetID
	VerifiableState    bool
	VerifiableReceipts bool
}

// Supply returns the amounts the nemesis signer hands out, per asset.
// The signer is funded with them before the nemesis transactions run.
func Supply(b *block.Block, feeAsset tally.AssetID) map[tally.AssetID]tally.Amount {
	supply := make(map[tally.AssetID]tally.Amount)
	for _, tx := range b.Transactions() {
		for _, t := range tx.Transfers() {
			supply[t.Asset] += t.Amount
		}
		if tx.Fee() > 0 {
			supply[feeAsset] += tx.Fee()
		}
	}
	return supply
}

// Execute applies the nemesis element to the cache and commits it.
//
// The element gets its generation hash, merkle roots and statement set.
func Execute(cache *statecache.Cache, entities chain.EntityProcessor, el *block.Element, opts Options) error {
	header := el.Header()
	if header.Height() != Height {
		return errors.Wrapf(ErrNotNemesis, "height %v", header.Height())
	}
	delta, err := cache.CreateDelta(Height)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			delta.Discard()
		}
	}()

	info, statement, err := apply(delta, entities, el, opts.FeeAsset)
	if err != nil {
		return err
	}
	if opts.VerifiableState && info.StateHash != header.StateHash() {
		return errors.Wrapf(ErrRejected, "state hash %v, block declares %v", info.StateHash, header.StateHash())
	}
	if opts.VerifiableReceipts && statement.Hash() != header.ReceiptsHash() {
		return errors.Wrapf(ErrRejected, "receipts hash %v, block declares %v", statement.Hash(), header.ReceiptsHash())
	}

	el.GenerationHash = block.GenerationHash(tally.Bytes32{}, header.Signer())
	el.SubCacheMerkleRoots = info.SubCacheMerkleRoots
	el.Statement = statement
	if err := cache.Commit(Height); err != nil {
		return err
	}
	committed = true
	logger.Info("nemesis executed", "id", el.ID, "signer", header.Signer().Address(), "txs", len(el.TransactionHashes))
	return nil
}

// apply funds the nemesis signer and runs the nemesis entities on delta.
func apply(delta *statecache.Delta, entities chain.EntityProcessor, el *block.Element, feeAsset tally.AssetID) (statecache.StateHashInfo, *block.Statement, error) {
	header := el.Header()
	accounts, err := statecache.DeltaOf[*accountcache.Delta](delta)
	if err != nil {
		return statecache.StateHashInfo{}, nil, err
	}
	h, err := accounts.Insert(state.NewAccountFromKey(header.Signer(), Height))
	if err != nil {
		return statecache.StateHashInfo{}, nil, err
	}
	signer, err := accounts.Get(h)
	if err != nil {
		return statecache.StateHashInfo{}, nil, err
	}
	for asset, amount := range Supply(el.Block, feeAsset) {
		if err := signer.Balances.Credit(asset, amount, Height); err != nil {
			return statecache.StateHashInfo{}, nil, errors.WithMessage(err, "fund nemesis signer")
		}
	}

	builder := new(block.StatementBuilder)
	r, err := entities.Process(Height, header.Timestamp(), model.ExtractEntities(el), observers.State{
		Delta:     delta,
		Statement: builder,
	})
	if err != nil {
		return statecache.StateHashInfo{}, nil, err
	}
	if !r.IsSuccess() {
		return statecache.StateHashInfo{}, nil, errors.Wrapf(ErrRejected, "%v", r)
	}
	info := delta.CalculateStateHash()
	delta.ClearMerkleRoots()
	return info, builder.Build(), nil
}
