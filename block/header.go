// Copyright (c) 2018 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package block

import (
	"crypto/ecdsa"
	"fmt"
	"io"
	"sync/atomic"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rlp"
	"github.com/pkg/errors"

	"github.com/vechain/tally/tally"
)

// ErrInvalidSignature is returned when the header signature was not made by its signer.
var ErrInvalidSignature = errors.New("invalid block signature")

// Header contains almost all information about a block, except block body.
// It's immutable.
type Header struct {
	body headerBody

	cache struct {
		id atomic.Value
	}
}

// headerBody body of header
type headerBody struct {
	Height            tally.Height
	Timestamp         tally.Timestamp
	Difficulty        tally.Difficulty
	PreviousBlockHash tally.Bytes32
	Signer            tally.Key

	TransactionsHash tally.Bytes32
	StateHash        tally.Bytes32
	ReceiptsHash     tally.Bytes32

	Signature []byte
}

// Height returns the height of this block.
func (h *Header) Height() tally.Height { return h.body.Height }

// Timestamp returns timestamp of this block in milliseconds.
func (h *Header) Timestamp() tally.Timestamp { return h.body.Timestamp }

// Difficulty returns the difficulty of this block.
func (h *Header) Difficulty() tally.Difficulty { return h.body.Difficulty }

// PreviousBlockHash returns id of parent block.
func (h *Header) PreviousBlockHash() tally.Bytes32 { return h.body.PreviousBlockHash }

// Signer returns the key of the block signer.
func (h *Header) Signer() tally.Key { return h.body.Signer }

// TransactionsHash returns merkle root of txs contained in this block.
func (h *Header) TransactionsHash() tally.Bytes32 { return h.body.TransactionsHash }

// StateHash returns the state hash just after this block being applied.
func (h *Header) StateHash() tally.Bytes32 { return h.body.StateHash }

// ReceiptsHash returns merkle root of the receipts produced by this block.
func (h *Header) ReceiptsHash() tally.Bytes32 { return h.body.ReceiptsHash }

// Signature returns signature.
func (h *Header) Signature() []byte {
	return append([]byte(nil), h.body.Signature...)
}

// ID computes hash of all header fields excluding signature.
func (h *Header) ID() (id tally.Bytes32) {
	if cached := h.cache.id.Load(); cached != nil {
		return cached.(tally.Bytes32)
	}
	defer func() { h.cache.id.Store(id) }()

	hw := tally.NewBlake2b()
	rlp.Encode(hw, []any{
		h.body.Height,
		h.body.Timestamp,
		h.body.Difficulty,
		h.body.PreviousBlockHash,
		h.body.Signer,

		h.body.TransactionsHash,
		h.body.StateHash,
		h.body.ReceiptsHash,
	})
	hw.Sum(id[:0])
	return
}

// withSignature create a new Header object with signature set.
func (h *Header) withSignature(sig []byte) *Header {
	cpy := Header{body: h.body}
	cpy.body.Signature = append([]byte(nil), sig...)
	return &cpy
}

// Verify checks the signature against the signer key.
func (h *Header) Verify() error {
	if len(h.body.Signature) != crypto.SignatureLength {
		return errors.Wrapf(ErrInvalidSignature, "length %d", len(h.body.Signature))
	}
	id := h.ID()
	pub, err := crypto.SigToPub(id[:], h.body.Signature)
	if err != nil {
		return errors.Wrap(ErrInvalidSignature, err.Error())
	}
	if tally.BytesToKey(crypto.CompressPubkey(pub)) != h.body.Signer {
		return errors.Wrap(ErrInvalidSignature, "signer mismatch")
	}
	return nil
}

// EncodeRLP implements rlp.Encoder
func (h *Header) EncodeRLP(w io.Writer) error {
	return rlp.Encode(w, &h.body)
}

// DecodeRLP implements rlp.Decoder.
func (h *Header) DecodeRLP(s *rlp.Stream) error {
	var body headerBody

	if err := s.Decode(&body); err != nil {
		return err
	}
	*h = Header{body: body}
	return nil
}

func (h *Header) String() string {
	return fmt.Sprintf(`Header(%v):
	Height:            %v
	Timestamp:         %v
	Difficulty:        %v
	PreviousBlockHash: %v
	Signer:            %v
	TransactionsHash:  %v
	StateHash:         %v
	ReceiptsHash:      %v
	Signature:         0x%x`, h.ID(), h.body.Height, h.body.Timestamp, h.body.Difficulty, h.body.PreviousBlockHash,
		h.body.Signer, h.body.TransactionsHash, h.body.StateHash, h.body.ReceiptsHash, h.body.Signature)
}

// KeyOf returns the signer key of a private key.
func KeyOf(priv *ecdsa.PrivateKey) tally.Key {
	return tally.BytesToKey(crypto.CompressPubkey(&priv.PublicKey))
}
