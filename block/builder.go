// Copyright (c) 2018 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package block

import "github.com/vechain/tally/tally"

// Builder to make it easy to build a block object.
type Builder struct {
	headerBody headerBody
	txs        Transactions
}

// Height set height.
func (b *Builder) Height(h tally.Height) *Builder {
	b.headerBody.Height = h
	return b
}

// Timestamp set timestamp.
func (b *Builder) Timestamp(ts tally.Timestamp) *Builder {
	b.headerBody.Timestamp = ts
	return b
}

// Difficulty set difficulty.
func (b *Builder) Difficulty(d tally.Difficulty) *Builder {
	b.headerBody.Difficulty = d
	return b
}

// PreviousBlockHash set parent id.
func (b *Builder) PreviousBlockHash(id tally.Bytes32) *Builder {
	b.headerBody.PreviousBlockHash = id
	return b
}

// Signer set the signer key.
func (b *Builder) Signer(key tally.Key) *Builder {
	b.headerBody.Signer = key
	return b
}

// StateHash set state hash.
func (b *Builder) StateHash(hash tally.Bytes32) *Builder {
	b.headerBody.StateHash = hash
	return b
}

// ReceiptsHash set receipts hash.
func (b *Builder) ReceiptsHash(hash tally.Bytes32) *Builder {
	b.headerBody.ReceiptsHash = hash
	return b
}

// Transaction add a transaction.
func (b *Builder) Transaction(tx *Transaction) *Builder {
	b.txs = append(b.txs, tx)
	return b
}

// Build build a block object.
func (b *Builder) Build() *Block {
	header := Header{body: b.headerBody}
	header.body.TransactionsHash = b.txs.RootHash()

	return &Block{
		header: &header,
		txs:    b.txs,
	}
}
