// Copyright (c) 2025 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package observers

import (
	"math"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vechain/tally/accountcache"
	"github.com/vechain/tally/block"
	"github.com/vechain/tally/difficultycache"
	"github.com/vechain/tally/hashcache"
	"github.com/vechain/tally/model"
	"github.com/vechain/tally/state"
	"github.com/vechain/tally/statecache"
	"github.com/vechain/tally/tally"
	"github.com/vechain/tally/validation"
)

const (
	xpx tally.AssetID = 1
	fee tally.Amount  = 10
)

var (
	sender    = tally.Key{2, 1}
	harvester = tally.Key{3, 2}
	recipient = tally.Address{0xaa}
)

type fixture struct {
	cache     *statecache.Cache
	processor *BatchEntityProcessor
}

// newFixture commits height 1 with a funded sender and a known harvester.
func newFixture(t *testing.T) *fixture {
	c := statecache.New(
		accountcache.New(accountcache.Options{TrackedAsset: xpx, OptimizedAsset: xpx, Unstable: 10}),
		difficultycache.New(100),
		hashcache.New(60),
	)
	d, err := c.CreateDelta(1)
	require.NoError(t, err)
	accounts, err := statecache.DeltaOf[*accountcache.Delta](d)
	require.NoError(t, err)

	h, err := accounts.Insert(state.NewAccountFromKey(sender, 1))
	require.NoError(t, err)
	acc, _ := accounts.Get(h)
	require.NoError(t, acc.Balances.Credit(xpx, 1000, 1))
	_, err = accounts.Insert(state.NewAccountFromKey(harvester, 1))
	require.NoError(t, err)
	require.NoError(t, c.Commit(1))

	return &fixture{
		cache:     c,
		processor: NewBatchEntityProcessor(model.Publisher{FeeAsset: xpx}, DefaultValidators(), DefaultObservers()),
	}
}

func entities(height tally.Height, timestamp tally.Timestamp, txs ...*block.Transaction) []model.Entity {
	b := new(block.Builder).Height(height).Timestamp(timestamp).Difficulty(100).Signer(harvester)
	for _, tx := range txs {
		b.Transaction(tx)
	}
	return model.ExtractEntities(block.NewElement(b.Build()))
}

func (f *fixture) process(t *testing.T, height tally.Height, es []model.Entity) (validation.Result, *statecache.Delta, *block.StatementBuilder) {
	d, err := f.cache.CreateDelta(height)
	require.NoError(t, err)
	statement := new(block.StatementBuilder)
	r, err := f.processor.Process(height, 10_000, es, State{Delta: d, Statement: statement})
	require.NoError(t, err)
	return r, d, statement
}

func balanceOf(t *testing.T, d *statecache.Delta, addr tally.Address) tally.Amount {
	accounts, err := statecache.DeltaOf[*accountcache.Delta](d)
	require.NoError(t, err)
	h, ok := accounts.Find(addr)
	require.True(t, ok, "account %v", addr)
	acc, err := accounts.Get(h)
	require.NoError(t, err)
	return acc.Balances.Get(xpx)
}

func TestProcessTransfer(t *testing.T) {
	f := newFixture(t)
	tx := block.NewTransaction(sender, 20_000, fee, block.Transfer{Recipient: recipient, Asset: xpx, Amount: 300})

	r, d, statement := f.process(t, 2, entities(2, 10_000, tx))
	require.Equal(t, validation.Success, r)

	assert.Equal(t, tally.Amount(690), balanceOf(t, d, sender.Address()))
	assert.Equal(t, tally.Amount(300), balanceOf(t, d, recipient))
	assert.Equal(t, fee, balanceOf(t, d, harvester.Address()))

	receipts := statement.Build().Receipts
	require.Len(t, receipts, 3)
	assert.Equal(t, block.ReceiptAccountCreated, receipts[0].Type)
	assert.Equal(t, block.ReceiptBalanceTransfer, receipts[1].Type)
	assert.Equal(t, block.Receipt{Type: block.ReceiptHarvestFee, Account: harvester.Address(), Asset: xpx, Amount: fee}, receipts[2])

	hashes, _ := statecache.DeltaOf[*hashcache.Delta](d)
	assert.True(t, hashes.Contains(hashcache.Entry{Deadline: 20_000, Hash: tx.Hash()}))
	difficulty, _ := statecache.DeltaOf[*difficultycache.Delta](d)
	info, ok := difficulty.Last()
	require.True(t, ok)
	assert.Equal(t, difficultycache.Info{Height: 2, Timestamp: 10_000, Difficulty: 100}, info)
	d.Discard()
}

func TestProcessRejections(t *testing.T) {
	stranger := tally.Key{9, 9}
	tests := []struct {
		name string
		txs  []*block.Transaction
		want validation.Result
	}{
		{"past deadline", []*block.Transaction{block.NewTransaction(sender, 9_999, 0)}, validation.PastDeadline},
		{"empty transfer", []*block.Transaction{
			block.NewTransaction(sender, 20_000, 0, block.Transfer{Recipient: recipient, Asset: xpx}),
		}, validation.InvalidTransfer},
		{"overdraft", []*block.Transaction{
			block.NewTransaction(sender, 20_000, 0, block.Transfer{Recipient: recipient, Asset: xpx, Amount: 1001}),
		}, validation.InsufficientBalance},
		{"fee overdraft", []*block.Transaction{
			block.NewTransaction(sender, 20_000, 1, block.Transfer{Recipient: recipient, Asset: xpx, Amount: 1000}),
		}, validation.InsufficientBalance},
		{"unfunded signer", []*block.Transaction{
			block.NewTransaction(stranger, 20_000, 1),
		}, validation.InsufficientBalance},
		{"second spend sees the first", []*block.Transaction{
			block.NewTransaction(sender, 20_000, 0, block.Transfer{Recipient: recipient, Asset: xpx, Amount: 600}),
			block.NewTransaction(sender, 20_001, 0, block.Transfer{Recipient: recipient, Asset: xpx, Amount: 600}),
		}, validation.InsufficientBalance},
		{"duplicate", []*block.Transaction{
			block.NewTransaction(sender, 20_000, 0),
			block.NewTransaction(sender, 20_000, 0),
		}, validation.HashExists},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			r, d, _ := f.process(t, 2, entities(2, 10_000, tt.txs...))
			assert.Equal(t, tt.want, r)
			d.Discard()
		})
	}
}

func TestUnknownSigner(t *testing.T) {
	f := newFixture(t)
	blk := new(block.Builder).Height(2).Timestamp(10_000).Signer(tally.Key{7}).Build()
	r, d, _ := f.process(t, 2, model.ExtractEntities(block.NewElement(blk)))
	assert.Equal(t, validation.UnknownSigner, r)
	d.Discard()
}

func TestHashSurvivesCommit(t *testing.T) {
	f := newFixture(t)
	tx := block.NewTransaction(sender, 20_000, 0)

	r, _, _ := f.process(t, 2, entities(2, 10_000, tx))
	require.Equal(t, validation.Success, r)
	require.NoError(t, f.cache.Commit(2))

	r, d, _ := f.process(t, 3, entities(3, 10_000, tx))
	assert.Equal(t, validation.HashExists, r)
	d.Discard()
}

func TestRollback(t *testing.T) {
	f := newFixture(t)
	tx := block.NewTransaction(sender, 20_000, fee, block.Transfer{Recipient: recipient, Asset: xpx, Amount: 300})
	es := entities(2, 10_000, tx)

	r, d, _ := f.process(t, 2, es)
	require.Equal(t, validation.Success, r)
	require.NoError(t, f.processor.Rollback(2, 10_000, es, State{Delta: d}))

	assert.Equal(t, tally.Amount(1000), balanceOf(t, d, sender.Address()))
	assert.Equal(t, tally.Amount(0), balanceOf(t, d, harvester.Address()))

	accounts, _ := statecache.DeltaOf[*accountcache.Delta](d)
	assert.False(t, accounts.Contains(recipient), "account created at the height is removed")
	hashes, _ := statecache.DeltaOf[*hashcache.Delta](d)
	assert.Equal(t, 0, hashes.Len())
	difficulty, _ := statecache.DeltaOf[*difficultycache.Delta](d)
	assert.Equal(t, 0, difficulty.Len())
	d.Discard()
}

func TestRollbackForgetsNewKey(t *testing.T) {
	f := newFixture(t)
	d, err := f.cache.CreateDelta(2)
	require.NoError(t, err)
	accounts, _ := statecache.DeltaOf[*accountcache.Delta](d)
	key := tally.Key{4, 4}
	_, err = accounts.Insert(state.NewAccount(key.Address(), 1))
	require.NoError(t, err)

	ctx, err := NewContext(2, 0, Commit, State{Delta: d})
	require.NoError(t, err)
	observer := AccountKeyObserver()
	require.NoError(t, observer.Notify(model.AccountKey{Key: key}, ctx))

	h, _ := accounts.FindByKey(key)
	acc, _ := accounts.Get(h)
	assert.Equal(t, tally.Height(2), acc.PublicKeyHeight)

	ctx.Mode = Rollback
	require.NoError(t, observer.Notify(model.AccountKey{Key: key}, ctx))
	require.NoError(t, ctx.CommitRemovals())
	assert.False(t, acc.HasPublicKey())
	assert.True(t, accounts.Contains(key.Address()), "account known before the height is kept")
	d.Discard()
}

func TestPipelines(t *testing.T) {
	f := newFixture(t)
	d, err := f.cache.CreateDelta(2)
	require.NoError(t, err)
	defer d.Discard()
	ctx, err := NewContext(2, 0, Commit, State{Delta: d})
	require.NoError(t, err)

	var calls []string
	validator := func(name string, r validation.Result) Validator {
		return NewValidator(name, func(model.Notification, *Context) validation.Result {
			calls = append(calls, name)
			return r
		})
	}
	validators := ValidatorPipeline{
		validator("a", validation.Success),
		validator("b", validation.HashExists),
		validator("c", validation.Success),
	}
	assert.Equal(t, validation.HashExists, validators.Validate(model.AccountKey{}, ctx))
	assert.Equal(t, []string{"a", "b"}, calls)

	calls = nil
	failure := errors.New("broken")
	observer := func(name string, err error) Observer {
		return NewObserver(name, func(model.Notification, *Context) error {
			calls = append(calls, name)
			return err
		})
	}
	observers := ObserverPipeline{observer("a", nil), observer("b", nil), observer("c", failure)}
	assert.NoError(t, ObserverPipeline{observer("a", nil), observer("b", nil)}.Notify(model.AccountKey{}, ctx))
	calls = nil

	ctx.Mode = Rollback
	assert.ErrorIs(t, observers.Notify(model.AccountKey{}, ctx), failure)
	assert.Equal(t, []string{"c"}, calls, "rollback runs in reverse and stops at the failure")

	calls = nil
	ctx.Mode = Commit
	assert.ErrorIs(t, observers.Notify(model.AccountKey{}, ctx), failure)
	assert.Equal(t, []string{"a", "b", "c"}, calls)
}

func TestObserverErrorIsReported(t *testing.T) {
	f := newFixture(t)
	failure := errors.New("invariant")
	p := NewBatchEntityProcessor(model.Publisher{FeeAsset: xpx}, nil, ObserverPipeline{
		NewObserver("fail", func(model.Notification, *Context) error { return failure }),
	})
	d, err := f.cache.CreateDelta(2)
	require.NoError(t, err)
	defer d.Discard()
	r, err := p.Process(2, 10_000, entities(2, 10_000), State{Delta: d})
	assert.Equal(t, validation.Failure, r)
	assert.ErrorIs(t, err, failure)
}

// fund commits height 2 crediting each account, creating it when unknown.
func (f *fixture) fund(t *testing.T, amounts map[tally.Address]tally.Amount) {
	d, err := f.cache.CreateDelta(2)
	require.NoError(t, err)
	accounts, err := statecache.DeltaOf[*accountcache.Delta](d)
	require.NoError(t, err)
	for addr, amount := range amounts {
		h, ok := accounts.Find(addr)
		if !ok {
			h, err = accounts.Insert(state.NewAccount(addr, 2))
			require.NoError(t, err)
		}
		acc, err := accounts.Get(h)
		require.NoError(t, err)
		require.NoError(t, acc.Balances.Credit(xpx, amount, 2))
	}
	require.NoError(t, f.cache.Commit(2))
}

func TestProcessRejectsRecipientOverflow(t *testing.T) {
	f := newFixture(t)
	f.fund(t, map[tally.Address]tally.Amount{recipient: math.MaxUint64 - 100})
	tx := block.NewTransaction(sender, 20_000, fee, block.Transfer{Recipient: recipient, Asset: xpx, Amount: 300})

	r, d, _ := f.process(t, 3, entities(3, 10_000, tx))
	assert.Equal(t, validation.AmountOverflow, r)
	d.Discard()
}

func TestProcessRejectsHarvesterOverflow(t *testing.T) {
	f := newFixture(t)
	f.fund(t, map[tally.Address]tally.Amount{harvester.Address(): math.MaxUint64 - 5})
	tx := block.NewTransaction(sender, 20_000, fee)

	r, d, _ := f.process(t, 3, entities(3, 10_000, tx))
	assert.Equal(t, validation.AmountOverflow, r)
	d.Discard()
}

func TestProcessRejectsFeeSumOverflow(t *testing.T) {
	f := newFixture(t)
	f.fund(t, map[tally.Address]tally.Amount{
		sender.Address():    1<<63 - 1000,
		harvester.Address(): 1 << 63,
	})
	tx1 := block.NewTransaction(sender, 20_000, 1<<63)
	tx2 := block.NewTransaction(harvester, 20_001, 1<<63)

	r, d, _ := f.process(t, 3, entities(3, 10_000, tx1, tx2))
	assert.Equal(t, validation.AmountOverflow, r)
	assert.Equal(t, tally.Amount(0), balanceOf(t, d, harvester.Address()), "both fees debited, none paid")
	d.Discard()
}
