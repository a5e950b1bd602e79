// Copyright (c) 2025 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package model

import (
	"github.com/vechain/tally/block"
	"github.com/vechain/tally/tally"
)

// Entity is a transaction or the block itself.
type Entity struct {
	Hash  tally.Bytes32
	Tx    *block.Transaction
	Block *block.Block
}

// IsBlock reports whether the entity is the block.
func (e Entity) IsBlock() bool { return e.Tx == nil }

// ExtractEntities returns the transactions of e in order followed by the block.
func ExtractEntities(e *block.Element) []Entity {
	txs := e.Block.Transactions()
	entities := make([]Entity, 0, len(txs)+1)
	for i, tx := range txs {
		entities = append(entities, Entity{Hash: e.TransactionHashes[i], Tx: tx})
	}
	return append(entities, Entity{Hash: e.ID, Block: e.Block})
}

// Publisher turns entities into notifications.
type Publisher struct {
	// FeeAsset is the asset fees are paid in.
	FeeAsset tally.AssetID
}

// Publish returns the notifications of an entity in application order.
func (p Publisher) Publish(e Entity) []Notification {
	if e.IsBlock() {
		header := e.Block.Header()
		var (
			total    tally.Amount
			overflow bool
		)
		for _, tx := range e.Block.Transactions() {
			if total, overflow = tally.AddAmounts(total, tx.Fee()); overflow {
				break
			}
		}
		return []Notification{
			Block{
				Signer:      header.Signer(),
				FeeAsset:    p.FeeAsset,
				TotalFee:    total,
				FeeOverflow: overflow,
				Difficulty:  header.Difficulty(),
				Timestamp:   header.Timestamp(),
			},
		}
	}

	tx := e.Tx
	out := []Notification{
		AccountKey{tx.Signer()},
		EntityHash{Hash: e.Hash, Deadline: tx.Deadline()},
	}
	for _, t := range tx.Transfers() {
		out = append(out,
			AccountAddress{t.Recipient},
			BalanceTransfer{Sender: tx.Signer(), Recipient: t.Recipient, Asset: t.Asset, Amount: t.Amount},
		)
	}
	if tx.Fee() > 0 {
		out = append(out, BalanceDebit{Sender: tx.Signer(), Asset: p.FeeAsset, Amount: tx.Fee()})
	}
	return out
}
