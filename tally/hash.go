// Copyright (c) 2025 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package tally

import (
	"hash"
	"io"
	"sync"

	"golang.org/x/crypto/blake2b"
	"golang.org/x/crypto/sha3"
)

// NewBlake2b return blake2b-256 hash.
func NewBlake2b() hash.Hash {
	hash, _ := blake2b.New256(nil)
	return hash
}

// Blake2b computes blake2b-256 checksum for given data.
func Blake2b(data ...[]byte) Bytes32 {
	if len(data) == 1 {
		// the quick version
		return blake2b.Sum256(data[0])
	}
	return Blake2bFn(func(w io.Writer) {
		for _, b := range data {
			w.Write(b)
		}
	})
}

// Blake2bFn computes blake2b-256 checksum for the provided writer.
func Blake2bFn(fn func(w io.Writer)) (h Bytes32) {
	w := blake2bStatePool.Get().(*hashState)
	fn(w)
	w.Sum(w.b32[:0])
	h = w.b32 // to avoid 1 alloc
	w.Reset()
	blake2bStatePool.Put(w)
	return
}

// Sha3 computes sha3-256 checksum for given data.
// Generation hashes, state hashes and merkle nodes use it.
func Sha3(data ...[]byte) (h Bytes32) {
	w := sha3StatePool.Get().(*hashState)
	for _, b := range data {
		w.Write(b)
	}
	w.Sum(w.b32[:0])
	h = w.b32
	w.Reset()
	sha3StatePool.Put(w)
	return
}

type hashState struct {
	hash.Hash
	b32 Bytes32
}

var (
	blake2bStatePool = sync.Pool{
		New: func() any {
			return &hashState{Hash: NewBlake2b()}
		},
	}
	sha3StatePool = sync.Pool{
		New: func() any {
			return &hashState{Hash: sha3.New256()}
		},
	}
)
