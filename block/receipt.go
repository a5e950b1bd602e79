// Copyright (c) 2025 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package block

import (
	"io"

	"github.com/ethereum/go-ethereum/rlp"

	"github.com/vechain/tally/tally"
)

// ReceiptType identifies what a receipt records.
type ReceiptType uint16

const (
	// ReceiptHarvestFee records fees credited to the block signer.
	ReceiptHarvestFee ReceiptType = 0x2101
	// ReceiptBalanceTransfer records a transfer applied by a transaction.
	ReceiptBalanceTransfer ReceiptType = 0x2102
	// ReceiptAccountCreated records an account first seen as a recipient.
	ReceiptAccountCreated ReceiptType = 0x2103
)

// Receipt is an effect of applying a block that is not visible in its transactions.
type Receipt struct {
	Type    ReceiptType
	Account tally.Address
	Asset   tally.AssetID
	Amount  tally.Amount
}

// Hash returns the Blake2b hash of the receipt.
func (r *Receipt) Hash() tally.Bytes32 {
	return tally.Blake2bFn(func(w io.Writer) {
		rlp.Encode(w, r)
	})
}

// Statement is the ordered set of receipts of a block.
type Statement struct {
	Receipts []Receipt
}

// Hash computes the merkle root of the receipt hashes.
func (s *Statement) Hash() tally.Bytes32 {
	if s == nil {
		return tally.Bytes32{}
	}
	hashes := make([]tally.Bytes32, 0, len(s.Receipts))
	for i := range s.Receipts {
		hashes = append(hashes, s.Receipts[i].Hash())
	}
	return tally.MerkleRoot(hashes)
}

// StatementBuilder collects receipts while a block is applied.
type StatementBuilder struct {
	receipts []Receipt
}

// Add appends a receipt.
func (b *StatementBuilder) Add(r Receipt) { b.receipts = append(b.receipts, r) }

// Len returns the number of receipts added.
func (b *StatementBuilder) Len() int { return len(b.receipts) }

// Build returns the statement and resets the builder.
func (b *StatementBuilder) Build() *Statement {
	s := &Statement{Receipts: b.receipts}
	b.receipts = nil
	return s
}
