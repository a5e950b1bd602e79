// Copyright (c) 2025 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package observers

import (
	"github.com/vechain/tally/hashcache"
	"github.com/vechain/tally/model"
	"github.com/vechain/tally/validation"
)

// DeadlineValidator rejects entities whose deadline has passed at the block timestamp.
func DeadlineValidator() Validator {
	return NewValidator("Deadline", func(n model.Notification, ctx *Context) validation.Result {
		h, ok := n.(model.EntityHash)
		if ok && h.Deadline < ctx.Timestamp {
			return validation.PastDeadline
		}
		return validation.Success
	})
}

// UniqueHashValidator rejects entities already confirmed within the retention window.
func UniqueHashValidator() Validator {
	return NewValidator("UniqueHash", func(n model.Notification, ctx *Context) validation.Result {
		h, ok := n.(model.EntityHash)
		if ok && ctx.Hashes.Contains(hashcache.Entry{Deadline: h.Deadline, Hash: h.Hash}) {
			return validation.HashExists
		}
		return validation.Success
	})
}

// TransferValidator rejects empty transfers.
func TransferValidator() Validator {
	return NewValidator("Transfer", func(n model.Notification, _ *Context) validation.Result {
		if t, ok := n.(model.BalanceTransfer); ok && t.Amount == 0 {
			return validation.InvalidTransfer
		}
		return validation.Success
	})
}

// BalanceValidator rejects transfers and debits the sender cannot cover.
func BalanceValidator() Validator {
	return NewValidator("Balance", func(n model.Notification, ctx *Context) validation.Result {
		switch n := n.(type) {
		case model.BalanceTransfer:
			return checkBalance(ctx, n.Sender.Address(), n.Asset, n.Amount)
		case model.BalanceDebit:
			return checkBalance(ctx, n.Sender.Address(), n.Asset, n.Amount)
		}
		return validation.Success
	})
}

// OverflowValidator rejects credits a balance cannot hold, including the
// harvested fees of a block.
func OverflowValidator() Validator {
	return NewValidator("Overflow", func(n model.Notification, ctx *Context) validation.Result {
		switch n := n.(type) {
		case model.BalanceTransfer:
			if n.Sender.Address() == n.Recipient {
				return validation.Success
			}
			return checkCredit(ctx, n.Recipient, n.Asset, n.Amount)
		case model.Block:
			if n.FeeOverflow {
				return validation.AmountOverflow
			}
			return checkCredit(ctx, n.Signer.Address(), n.FeeAsset, n.TotalFee)
		}
		return validation.Success
	})
}

// SignerValidator rejects blocks signed by an unknown account.
func SignerValidator() Validator {
	return NewValidator("Signer", func(n model.Notification, ctx *Context) validation.Result {
		if b, ok := n.(model.Block); ok {
			if _, found := ctx.Accounts.FindByKey(b.Signer); !found {
				return validation.UnknownSigner
			}
		}
		return validation.Success
	})
}

// DefaultValidators returns the validators every block goes through, in order.
func DefaultValidators() ValidatorPipeline {
	return ValidatorPipeline{
		DeadlineValidator(),
		UniqueHashValidator(),
		TransferValidator(),
		BalanceValidator(),
		OverflowValidator(),
		SignerValidator(),
	}
}
