// Copyright (c) 2025 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package block

import (
	"io"
	"sync/atomic"

	"github.com/ethereum/go-ethereum/rlp"

	"github.com/vechain/tally/tally"
)

// Transfer moves an amount of an asset from the transaction signer to the recipient.
type Transfer struct {
	Recipient tally.Address
	Asset     tally.AssetID
	Amount    tally.Amount
}

// Transaction is an immutable transfer transaction.
type Transaction struct {
	body txBody

	cache struct {
		hash atomic.Value
	}
}

type txBody struct {
	Signer    tally.Key
	Deadline  tally.Timestamp
	Fee       tally.Amount
	Transfers []Transfer
}

// NewTransaction creates a transaction.
func NewTransaction(signer tally.Key, deadline tally.Timestamp, fee tally.Amount, transfers ...Transfer) *Transaction {
	return &Transaction{body: txBody{
		Signer:    signer,
		Deadline:  deadline,
		Fee:       fee,
		Transfers: append([]Transfer(nil), transfers...),
	}}
}

// Signer returns the key of the transaction signer.
func (t *Transaction) Signer() tally.Key { return t.body.Signer }

// Deadline returns the timestamp after which the transaction is invalid.
func (t *Transaction) Deadline() tally.Timestamp { return t.body.Deadline }

// Fee returns the fee paid to the block signer.
func (t *Transaction) Fee() tally.Amount { return t.body.Fee }

// Transfers returns a copy of the transfers.
func (t *Transaction) Transfers() []Transfer {
	return append([]Transfer(nil), t.body.Transfers...)
}

// Hash returns the Blake2b hash of the transaction.
func (t *Transaction) Hash() (hash tally.Bytes32) {
	if cached := t.cache.hash.Load(); cached != nil {
		return cached.(tally.Bytes32)
	}
	defer func() { t.cache.hash.Store(hash) }()

	return tally.Blake2bFn(func(w io.Writer) {
		rlp.Encode(w, &t.body)
	})
}

// EncodeRLP implements rlp.Encoder.
func (t *Transaction) EncodeRLP(w io.Writer) error {
	return rlp.Encode(w, &t.body)
}

// DecodeRLP implements rlp.Decoder.
func (t *Transaction) DecodeRLP(s *rlp.Stream) error {
	var body txBody
	if err := s.Decode(&body); err != nil {
		return err
	}
	*t = Transaction{body: body}
	return nil
}

// Transactions a slice of transactions.
type Transactions []*Transaction

// Copy returns a shallow copy.
func (txs Transactions) Copy() Transactions {
	return append(Transactions(nil), txs...)
}

// Hashes returns the hashes of the transactions in order.
func (txs Transactions) Hashes() []tally.Bytes32 {
	hashes := make([]tally.Bytes32, 0, len(txs))
	for _, tx := range txs {
		hashes = append(hashes, tx.Hash())
	}
	return hashes
}

// RootHash computes the merkle root of the transaction hashes.
func (txs Transactions) RootHash() tally.Bytes32 {
	return tally.MerkleRoot(txs.Hashes())
}
