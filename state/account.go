// Copyright (c) 2025 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package state defines the account state held by the account cache.
package state

import (
	"fmt"
	"io"

	"github.com/ethereum/go-ethereum/rlp"
	"github.com/pkg/errors"
	"github.com/vechain/tally/balance"
	"github.com/vechain/tally/tally"
)

// ErrKeyMismatch is returned when an account learns a key that does not match the one already known.
var ErrKeyMismatch = errors.New("public key mismatch")

// Account is the state of one account.
// The public key and its height stay zero until the key is learned.
type Account struct {
	Address         tally.Address
	AddressHeight   tally.Height
	PublicKey       tally.Key
	PublicKeyHeight tally.Height
	Balances        *balance.Balances
}

// NewAccount creates an account known by address since height.
func NewAccount(addr tally.Address, height tally.Height) *Account {
	return &Account{
		Address:       addr,
		AddressHeight: height,
		Balances:      balance.New(height),
	}
}

// NewAccountFromKey creates an account known by key since height.
func NewAccountFromKey(key tally.Key, height tally.Height) *Account {
	a := NewAccount(key.Address(), height)
	a.PublicKey = key
	a.PublicKeyHeight = height
	return a
}

// HasPublicKey returns whether the public key is known.
func (a *Account) HasPublicKey() bool { return a.PublicKeyHeight != 0 }

// SetPublicKey records the account key learned at height.
// Setting the known key again is a no-op.
func (a *Account) SetPublicKey(key tally.Key, height tally.Height) error {
	if key.Address() != a.Address {
		return errors.Wrapf(ErrKeyMismatch, "key %v does not derive %v", key, a.Address)
	}
	if a.HasPublicKey() {
		if a.PublicKey != key {
			return errors.Wrapf(ErrKeyMismatch, "account %v", a.Address)
		}
		return nil
	}
	a.PublicKey = key
	a.PublicKeyHeight = height
	return nil
}

// ClearPublicKey forgets the key, undoing SetPublicKey on rollback.
func (a *Account) ClearPublicKey() {
	a.PublicKey = tally.Key{}
	a.PublicKeyHeight = 0
}

// Clone returns a deep copy.
func (a *Account) Clone() *Account {
	c := *a
	c.Balances = a.Balances.Clone()
	return &c
}

// Hash returns the Blake2b hash of the RLP encoded account.
func (a *Account) Hash() tally.Bytes32 {
	return tally.Blake2bFn(func(w io.Writer) {
		if err := rlp.Encode(w, a); err != nil {
			panic(err)
		}
	})
}

func (a *Account) String() string {
	return fmt.Sprintf("Account(%v@%v, key@%v, %d assets)", a.Address, a.AddressHeight, a.PublicKeyHeight, a.Balances.Size())
}

type accountRLP struct {
	Address         tally.Address
	AddressHeight   tally.Height
	PublicKey       tally.Key
	PublicKeyHeight tally.Height
	Balances        *balance.Balances
}

// EncodeRLP implements rlp.Encoder.
func (a *Account) EncodeRLP(w io.Writer) error {
	return rlp.Encode(w, (*accountRLP)(a))
}

// DecodeRLP implements rlp.Decoder.
func (a *Account) DecodeRLP(s *rlp.Stream) error {
	var obj accountRLP
	if err := s.Decode(&obj); err != nil {
		return err
	}
	if obj.Balances == nil {
		return errors.New("account without balances")
	}
	obj.Balances.SetRegistrationHeight(obj.AddressHeight)
	*a = Account(obj)
	return nil
}
