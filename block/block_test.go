// Copyright (c) 2018 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package block

import (
	"testing"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rlp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vechain/tally/tally"
)

func TestBlock(t *testing.T) {
	priv, err := crypto.GenerateKey()
	require.NoError(t, err)
	key := KeyOf(priv)

	tx1 := NewTransaction(key, 5000, 10, Transfer{Recipient: tally.Address{1}, Asset: 1, Amount: 100})
	tx2 := NewTransaction(key, 6000, 20)

	parent := tally.Blake2b([]byte("parent"))
	blk := new(Builder).
		Height(2).
		Timestamp(1000).
		Difficulty(90).
		PreviousBlockHash(parent).
		Signer(key).
		StateHash(tally.Bytes32{7}).
		Transaction(tx1).
		Transaction(tx2).
		Build()

	h := blk.Header()
	assert.Equal(t, tally.Height(2), h.Height())
	assert.Equal(t, tally.Timestamp(1000), h.Timestamp())
	assert.Equal(t, tally.Difficulty(90), h.Difficulty())
	assert.Equal(t, parent, h.PreviousBlockHash())
	assert.Equal(t, key, h.Signer())
	assert.Equal(t, tally.MerkleRoot([]tally.Bytes32{tx1.Hash(), tx2.Hash()}), h.TransactionsHash())
	assert.ErrorIs(t, h.Verify(), ErrInvalidSignature)

	signed, err := blk.Sign(priv)
	require.NoError(t, err)
	assert.NoError(t, signed.Header().Verify())
	assert.Equal(t, blk.Header().ID(), signed.Header().ID(), "signature is not part of the id")

	other, _ := crypto.GenerateKey()
	forged, err := blk.Sign(other)
	require.NoError(t, err)
	assert.ErrorIs(t, forged.Header().Verify(), ErrInvalidSignature)

	data, err := rlp.EncodeToBytes(signed)
	require.NoError(t, err)
	var dec Decoder
	require.NoError(t, rlp.DecodeBytes(data, &dec))
	assert.Equal(t, signed.Header().ID(), dec.Result.Header().ID())
	assert.Equal(t, signed.Header().Signature(), dec.Result.Header().Signature())
	assert.Equal(t, signed.Transactions().Hashes(), dec.Result.Transactions().Hashes())
	assert.NoError(t, dec.Result.Header().Verify())
}

func TestTransaction(t *testing.T) {
	transfer := Transfer{Recipient: tally.Address{9}, Asset: 3, Amount: 1}
	tx := NewTransaction(tally.Key{2}, 100, 5, transfer)
	assert.Equal(t, []Transfer{transfer}, tx.Transfers())

	data, err := rlp.EncodeToBytes(tx)
	require.NoError(t, err)
	var dec Transaction
	require.NoError(t, rlp.DecodeBytes(data, &dec))
	assert.Equal(t, tx.Hash(), dec.Hash())
	assert.NotEqual(t, tx.Hash(), NewTransaction(tally.Key{2}, 101, 5, transfer).Hash())
}

func TestElement(t *testing.T) {
	key := tally.Key{2, 1}
	blk := new(Builder).Height(1).Signer(key).Transaction(NewTransaction(key, 1, 1)).Build()
	e := NewElement(blk)
	assert.Equal(t, blk.Header().ID(), e.ID)
	assert.Len(t, e.TransactionHashes, 1)

	e.GenerationHash = GenerationHash(tally.Bytes32{}, key)
	assert.Equal(t, tally.Sha3(make([]byte, 32), key[:]), e.GenerationHash)

	data, err := rlp.EncodeToBytes(e)
	require.NoError(t, err)
	var dec Element
	require.NoError(t, rlp.DecodeBytes(data, &dec))
	assert.Equal(t, e.ID, dec.ID)
	assert.Equal(t, e.GenerationHash, dec.GenerationHash)
	assert.Nil(t, dec.Statement)

	e.Statement = &Statement{Receipts: []Receipt{{Type: ReceiptHarvestFee, Asset: 1, Amount: 3}}}
	e.SubCacheMerkleRoots = []tally.Bytes32{{1}}
	data, err = rlp.EncodeToBytes(e)
	require.NoError(t, err)
	require.NoError(t, rlp.DecodeBytes(data, &dec))
	assert.Equal(t, e.Statement, dec.Statement)
	assert.Equal(t, e.SubCacheMerkleRoots, dec.SubCacheMerkleRoots)
}

func TestStatementHash(t *testing.T) {
	var b StatementBuilder
	assert.Equal(t, tally.Bytes32{}, b.Build().Hash())
	assert.Equal(t, tally.Bytes32{}, (*Statement)(nil).Hash())

	r1 := Receipt{Type: ReceiptHarvestFee, Asset: 1, Amount: 10}
	r2 := Receipt{Type: ReceiptBalanceTransfer, Asset: 1, Amount: 20}
	b.Add(r1)
	b.Add(r2)
	assert.Equal(t, 2, b.Len())
	s := b.Build()
	assert.Equal(t, 0, b.Len())
	assert.Equal(t, tally.MerkleRoot([]tally.Bytes32{r1.Hash(), r2.Hash()}), s.Hash())
}
