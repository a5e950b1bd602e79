// Copyright (c) 2025 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package observers

import (
	"github.com/pkg/errors"

	"github.com/vechain/tally/accountcache"
	"github.com/vechain/tally/state"
	"github.com/vechain/tally/tally"
	"github.com/vechain/tally/validation"
)

func checkBalance(ctx *Context, addr tally.Address, asset tally.AssetID, amount tally.Amount) validation.Result {
	acc, err := account(ctx, addr)
	if err != nil || acc.Balances.Get(asset) < amount {
		return validation.InsufficientBalance
	}
	return validation.Success
}

// checkCredit rejects crediting amount to addr when the balance cannot hold it.
// Unknown accounts are left to other validators.
func checkCredit(ctx *Context, addr tally.Address, asset tally.AssetID, amount tally.Amount) validation.Result {
	acc, err := account(ctx, addr)
	if err != nil {
		return validation.Success
	}
	if _, overflow := tally.AddAmounts(acc.Balances.Get(asset), amount); overflow {
		return validation.AmountOverflow
	}
	return validation.Success
}

func account(ctx *Context, addr tally.Address) (*state.Account, error) {
	h, ok := ctx.Accounts.Find(addr)
	if !ok {
		return nil, errors.Wrapf(accountcache.ErrAccountNotFound, "%v", addr)
	}
	return ctx.Accounts.Get(h)
}

// transfer moves amount between two accounts, in the direction given by the mode.
func transfer(ctx *Context, from, to tally.Address, asset tally.AssetID, amount tally.Amount) error {
	if ctx.Mode == Rollback {
		from, to = to, from
	}
	sender, err := account(ctx, from)
	if err != nil {
		return err
	}
	recipient, err := account(ctx, to)
	if err != nil {
		return err
	}
	if err := sender.Balances.Debit(asset, amount, ctx.Height); err != nil {
		return err
	}
	return recipient.Balances.Credit(asset, amount, ctx.Height)
}

// adjust credits addr on commit and debits it on rollback, or the reverse when debit is set.
func adjust(ctx *Context, addr tally.Address, asset tally.AssetID, amount tally.Amount, debit bool) error {
	acc, err := account(ctx, addr)
	if err != nil {
		return err
	}
	if debit == (ctx.Mode == Commit) {
		return acc.Balances.Debit(asset, amount, ctx.Height)
	}
	return acc.Balances.Credit(asset, amount, ctx.Height)
}
