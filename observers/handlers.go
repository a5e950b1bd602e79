// Copyright (c) 2025 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package observers

import (
	"github.com/vechain/tally/block"
	"github.com/vechain/tally/difficultycache"
	"github.com/vechain/tally/hashcache"
	"github.com/vechain/tally/log"
	"github.com/vechain/tally/model"
	"github.com/vechain/tally/state"
)

var logger = log.WithContext("pkg", "observers")

// AccountKeyObserver registers accounts by public key.
// On rollback the key learned at the height is forgotten, and an account first
// seen at the height is removed once the block is undone.
func AccountKeyObserver() Observer {
	return NewObserver("AccountKey", func(n model.Notification, ctx *Context) error {
		k, ok := n.(model.AccountKey)
		if !ok {
			return nil
		}
		h, found := ctx.Accounts.FindByKey(k.Key)
		if ctx.Mode == Rollback {
			if !found {
				return nil
			}
			acc, err := ctx.Accounts.Get(h)
			if err != nil {
				return err
			}
			if acc.PublicKeyHeight != ctx.Height {
				return nil
			}
			if acc.AddressHeight == ctx.Height {
				ctx.QueueRemove(acc.Address)
			} else {
				acc.ClearPublicKey()
			}
			return nil
		}
		if !found {
			_, err := ctx.Accounts.Insert(state.NewAccountFromKey(k.Key, ctx.Height))
			return err
		}
		acc, err := ctx.Accounts.Get(h)
		if err != nil {
			return err
		}
		return acc.SetPublicKey(k.Key, ctx.Height)
	})
}

// AccountAddressObserver registers transfer recipients by address.
func AccountAddressObserver() Observer {
	return NewObserver("AccountAddress", func(n model.Notification, ctx *Context) error {
		a, ok := n.(model.AccountAddress)
		if !ok {
			return nil
		}
		h, found := ctx.Accounts.Find(a.Address)
		if ctx.Mode == Rollback {
			if !found {
				return nil
			}
			acc, err := ctx.Accounts.Get(h)
			if err != nil {
				return err
			}
			if acc.AddressHeight == ctx.Height {
				ctx.QueueRemove(acc.Address)
			}
			return nil
		}
		if found {
			return nil
		}
		if _, err := ctx.Accounts.Insert(state.NewAccount(a.Address, ctx.Height)); err != nil {
			return err
		}
		ctx.Statement.Add(block.Receipt{Type: block.ReceiptAccountCreated, Account: a.Address})
		return nil
	})
}

// BalanceTransferObserver moves transferred amounts.
func BalanceTransferObserver() Observer {
	return NewObserver("BalanceTransfer", func(n model.Notification, ctx *Context) error {
		t, ok := n.(model.BalanceTransfer)
		if !ok {
			return nil
		}
		if err := transfer(ctx, t.Sender.Address(), t.Recipient, t.Asset, t.Amount); err != nil {
			return err
		}
		if ctx.Mode == Commit {
			ctx.Statement.Add(block.Receipt{
				Type:    block.ReceiptBalanceTransfer,
				Account: t.Recipient,
				Asset:   t.Asset,
				Amount:  t.Amount,
			})
		}
		return nil
	})
}

// BalanceDebitObserver charges transaction fees.
func BalanceDebitObserver() Observer {
	return NewObserver("BalanceDebit", func(n model.Notification, ctx *Context) error {
		d, ok := n.(model.BalanceDebit)
		if !ok {
			return nil
		}
		return adjust(ctx, d.Sender.Address(), d.Asset, d.Amount, true)
	})
}

// HarvestFeeObserver credits the fees of a block to its signer.
func HarvestFeeObserver() Observer {
	return NewObserver("HarvestFee", func(n model.Notification, ctx *Context) error {
		b, ok := n.(model.Block)
		if !ok || b.TotalFee == 0 {
			return nil
		}
		signer := b.Signer.Address()
		if err := adjust(ctx, signer, b.FeeAsset, b.TotalFee, false); err != nil {
			return err
		}
		if ctx.Mode == Commit {
			ctx.Statement.Add(block.Receipt{
				Type:    block.ReceiptHarvestFee,
				Account: signer,
				Asset:   b.FeeAsset,
				Amount:  b.TotalFee,
			})
		}
		return nil
	})
}

// DifficultyObserver records the difficulty history.
func DifficultyObserver() Observer {
	return NewObserver("Difficulty", func(n model.Notification, ctx *Context) error {
		b, ok := n.(model.Block)
		if !ok {
			return nil
		}
		if ctx.Mode == Rollback {
			return ctx.Difficulty.Remove(ctx.Height)
		}
		return ctx.Difficulty.Insert(difficultycache.Info{
			Height:     ctx.Height,
			Timestamp:  b.Timestamp,
			Difficulty: b.Difficulty,
		})
	})
}

// HashObserver records confirmed entity hashes and prunes expired ones once per block.
func HashObserver() Observer {
	return NewObserver("Hash", func(n model.Notification, ctx *Context) error {
		switch n := n.(type) {
		case model.EntityHash:
			e := hashcache.Entry{Deadline: n.Deadline, Hash: n.Hash}
			if ctx.Mode == Rollback {
				ctx.Hashes.Remove(e)
			} else {
				ctx.Hashes.Insert(e)
			}
		case model.Block:
			if ctx.Mode == Commit {
				if pruned := ctx.Hashes.Prune(ctx.Timestamp); pruned > 0 {
					logger.Debug("pruned hashes", "height", ctx.Height, "count", pruned)
				}
			}
		}
		return nil
	})
}

// DefaultObservers returns the observers every notification goes through, in commit order.
func DefaultObservers() ObserverPipeline {
	return ObserverPipeline{
		AccountKeyObserver(),
		AccountAddressObserver(),
		BalanceTransferObserver(),
		BalanceDebitObserver(),
		HarvestFeeObserver(),
		DifficultyObserver(),
		HashObserver(),
	}
}
