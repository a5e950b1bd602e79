// Copyright (c) 2025 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package tally

import (
	"bytes"
	"encoding/hex"
)

const (
	// AddressLength length of address in bytes.
	AddressLength = 20
	// KeyLength length of a compressed public key in bytes.
	KeyLength = 33
)

// Address address of account.
type Address [AddressLength]byte

// String implements the stringer interface
func (a Address) String() string {
	return "0x" + hex.EncodeToString(a[:])
}

// Bytes returns byte slice form of address.
func (a Address) Bytes() []byte {
	return a[:]
}

// IsZero returns if the address has all zero bytes.
func (a Address) IsZero() bool {
	return a == Address{}
}

// Compare compares two addresses lexicographically.
func (a Address) Compare(other Address) int {
	return bytes.Compare(a[:], other[:])
}

// ParseAddress convert string presented address into Address type.
func ParseAddress(s string) (Address, error) {
	var addr Address
	if err := decodeHex(s, addr[:]); err != nil {
		return Address{}, err
	}
	return addr, nil
}

// MustParseAddress convert string presented address into Address type, panic on error.
func MustParseAddress(s string) Address {
	addr, err := ParseAddress(s)
	if err != nil {
		panic(err)
	}
	return addr
}

// BytesToAddress converts bytes slice into address.
// If b is larger than address length, b will be cropped (from the left).
func BytesToAddress(b []byte) (a Address) {
	if len(b) > len(a) {
		b = b[len(b)-len(a):]
	}
	copy(a[len(a)-len(b):], b)
	return
}

// Key is a compressed secp256k1 public key.
type Key [KeyLength]byte

// String implements the stringer interface
func (k Key) String() string {
	return "0x" + hex.EncodeToString(k[:])
}

// Bytes returns byte slice form of key.
func (k Key) Bytes() []byte {
	return k[:]
}

// IsZero returns if the key is unset.
func (k Key) IsZero() bool {
	return k == Key{}
}

// Address derives the account address owned by the key.
func (k Key) Address() Address {
	h := Blake2b(k[:])
	return BytesToAddress(h[:])
}

// ParseKey convert string presented key into Key type.
func ParseKey(s string) (Key, error) {
	var k Key
	if err := decodeHex(s, k[:]); err != nil {
		return Key{}, err
	}
	return k, nil
}

// BytesToKey converts bytes slice into key.
func BytesToKey(b []byte) (k Key) {
	if len(b) > len(k) {
		b = b[len(b)-len(k):]
	}
	copy(k[len(k)-len(b):], b)
	return
}
