// Copyright (c) 2025 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package block

import (
	"io"

	"github.com/ethereum/go-ethereum/rlp"

	"github.com/vechain/tally/tally"
)

// GenerationHash chains the parent generation hash with the block signer.
func GenerationHash(parent tally.Bytes32, signer tally.Key) tally.Bytes32 {
	return tally.Sha3(parent[:], signer[:])
}

// Element is a block with the data derived from it.
// The generation hash, merkle roots and statement are set while it is processed.
type Element struct {
	Block               *Block
	ID                  tally.Bytes32
	GenerationHash      tally.Bytes32
	TransactionHashes   []tally.Bytes32
	SubCacheMerkleRoots []tally.Bytes32
	Statement           *Statement
}

// NewElement derives the element of b.
func NewElement(b *Block) *Element {
	return &Element{
		Block:             b,
		ID:                b.Header().ID(),
		TransactionHashes: b.txs.Hashes(),
	}
}

// Header is a shortcut of Block.Header.
func (e *Element) Header() *Header { return e.Block.Header() }

// Height is a shortcut of the header height.
func (e *Element) Height() tally.Height { return e.Block.Header().Height() }

type elementRLP struct {
	Block               *Block
	GenerationHash      tally.Bytes32
	SubCacheMerkleRoots []tally.Bytes32
	Statement           *Statement `rlp:"nil"`
}

// EncodeRLP implements rlp.Encoder.
func (e *Element) EncodeRLP(w io.Writer) error {
	return rlp.Encode(w, &elementRLP{e.Block, e.GenerationHash, e.SubCacheMerkleRoots, e.Statement})
}

// DecodeRLP implements rlp.Decoder.
func (e *Element) DecodeRLP(s *rlp.Stream) error {
	var payload struct {
		Block               Decoder
		GenerationHash      tally.Bytes32
		SubCacheMerkleRoots []tally.Bytes32
		Statement           *Statement `rlp:"nil"`
	}
	if err := s.Decode(&payload); err != nil {
		return err
	}
	*e = *NewElement(payload.Block.Result)
	e.GenerationHash = payload.GenerationHash
	e.SubCacheMerkleRoots = payload.SubCacheMerkleRoots
	e.Statement = payload.Statement
	return nil
}
