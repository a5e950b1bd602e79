// Copyright (c) 2024 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package datagen

import (
	"crypto/ecdsa"
	"crypto/rand"

	"github.com/ethereum/go-ethereum/crypto"

	"github.com/vechain/tally/block"
	"github.com/vechain/tally/tally"
)

func RandomHash() tally.Bytes32 {
	var b32 tally.Bytes32

	rand.Read(b32[:])
	return b32
}

func RandAddress() (addr tally.Address) {
	rand.Read(addr[:])
	return
}

// RandPrivateKey generates a signing key, panicking on failure.
func RandPrivateKey() *ecdsa.PrivateKey {
	priv, err := crypto.GenerateKey()
	if err != nil {
		panic(err)
	}
	return priv
}

// RandKey returns the public key of a fresh signing key.
func RandKey() tally.Key {
	return block.KeyOf(RandPrivateKey())
}
