// Copyright (c) 2025 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package model turns block entities into the notifications consumed by
// validators and observers.
package model

import (
	"fmt"

	"github.com/vechain/tally/tally"
)

// Kind identifies a notification type.
type Kind uint16

const (
	KindAccountKey Kind = iota + 1
	KindAccountAddress
	KindBalanceTransfer
	KindBalanceDebit
	KindEntityHash
	KindBlock
)

func (k Kind) String() string {
	switch k {
	case KindAccountKey:
		return "AccountKey"
	case KindAccountAddress:
		return "AccountAddress"
	case KindBalanceTransfer:
		return "BalanceTransfer"
	case KindBalanceDebit:
		return "BalanceDebit"
	case KindEntityHash:
		return "EntityHash"
	case KindBlock:
		return "Block"
	}
	return fmt.Sprintf("Kind(%d)", uint16(k))
}

// Notification is one state change requested by an entity.
type Notification interface {
	Kind() Kind
}

// AccountKey announces the key of an account.
type AccountKey struct {
	Key tally.Key
}

// AccountAddress announces an address that may not have an account yet.
type AccountAddress struct {
	Address tally.Address
}

// BalanceTransfer moves an amount from the sender to the recipient.
type BalanceTransfer struct {
	Sender    tally.Key
	Recipient tally.Address
	Asset     tally.AssetID
	Amount    tally.Amount
}

// BalanceDebit takes an amount, such as a fee, from the sender.
type BalanceDebit struct {
	Sender tally.Key
	Asset  tally.AssetID
	Amount tally.Amount
}

// EntityHash announces the hash of a transaction valid until deadline.
type EntityHash struct {
	Hash     tally.Bytes32
	Deadline tally.Timestamp
}

// Block announces a block with the fees it collected. FeeOverflow is set when
// the fees do not sum to an amount.
type Block struct {
	Signer      tally.Key
	FeeAsset    tally.AssetID
	TotalFee    tally.Amount
	FeeOverflow bool
	Difficulty  tally.Difficulty
	Timestamp   tally.Timestamp
}

func (AccountKey) Kind() Kind      { return KindAccountKey }
func (AccountAddress) Kind() Kind  { return KindAccountAddress }
func (BalanceTransfer) Kind() Kind { return KindBalanceTransfer }
func (BalanceDebit) Kind() Kind    { return KindBalanceDebit }
func (EntityHash) Kind() Kind      { return KindEntityHash }
func (Block) Kind() Kind           { return KindBlock }
