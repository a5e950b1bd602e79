// Copyright (c) 2018 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package block defines blocks, their transactions and the receipts produced
// by applying them.
package block

import (
	"crypto/ecdsa"
	"io"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rlp"
)

// Block is an immutable block type.
type Block struct {
	header *Header
	txs    Transactions
}

// New create a block instance.
// Note: This method is usually to recover a block by its portions, and the TransactionsHash is not verified.
// To build up a block, use a Builder.
func New(header *Header, txs Transactions) *Block {
	return &Block{
		header,
		txs.Copy(),
	}
}

// WithSignature create a new block object with signature set.
func (b *Block) WithSignature(sig []byte) *Block {
	return &Block{
		b.header.withSignature(sig),
		b.txs,
	}
}

// Sign signs the block id with priv.
func (b *Block) Sign(priv *ecdsa.PrivateKey) (*Block, error) {
	id := b.header.ID()
	sig, err := crypto.Sign(id[:], priv)
	if err != nil {
		return nil, err
	}
	return b.WithSignature(sig), nil
}

// Header returns the block header.
func (b *Block) Header() *Header {
	return b.header
}

// Transactions returns a copy of transactions.
func (b *Block) Transactions() Transactions {
	return b.txs.Copy()
}

// EncodeRLP implements rlp.Encoder.
func (b *Block) EncodeRLP(w io.Writer) error {
	return rlp.Encode(w, []any{
		b.header,
		b.txs,
	})
}

// Decoder to decode block from bytes.
// Since Block is immutable, it's not suitable to implement rlp.Decoder.
type Decoder struct {
	Result *Block
}

// DecodeRLP implements rlp.Decoder.
func (d *Decoder) DecodeRLP(s *rlp.Stream) error {
	payload := struct {
		Header Header
		Txs    Transactions
	}{}

	if err := s.Decode(&payload); err != nil {
		return err
	}
	d.Result = &Block{
		header: &payload.Header,
		txs:    payload.Txs,
	}
	return nil
}
