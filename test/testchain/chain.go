// Copyright (c) 2024 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package testchain builds in-memory chains of valid, signed blocks.
package testchain

import (
	"context"
	"crypto/ecdsa"
	"fmt"

	"github.com/vechain/tally/accountcache"
	"github.com/vechain/tally/block"
	"github.com/vechain/tally/blockstore"
	"github.com/vechain/tally/chain"
	"github.com/vechain/tally/difficultycache"
	"github.com/vechain/tally/genesis"
	"github.com/vechain/tally/hashcache"
	"github.com/vechain/tally/kv"
	"github.com/vechain/tally/model"
	"github.com/vechain/tally/observers"
	"github.com/vechain/tally/statecache"
	"github.com/vechain/tally/tally"
	"github.com/vechain/tally/test/datagen"
	"github.com/vechain/tally/validation"
)

const (
	// FeeAsset is the asset balances are funded and fees paid in.
	FeeAsset tally.AssetID = 0x0DC67FBE1CAD29E3
	// LaunchTime is the nemesis timestamp.
	LaunchTime tally.Timestamp = 1_000_000
	// BlockInterval is the spacing of minted blocks in milliseconds.
	BlockInterval tally.Timestamp = 15_000
	// Funds is the balance of every dev account.
	Funds tally.Amount = 1_000_000
	// TargetSeconds is the block time difficulties are retargeted to.
	TargetSeconds = uint64(BlockInterval / 1000)
)

// AlwaysHit accepts every block.
var AlwaysHit = chain.HitPredicateFunc(func(chain.HitContext) bool { return true })

// DevAccount is a funded account.
type DevAccount struct {
	PrivateKey *ecdsa.PrivateKey
	Key        tally.Key
	Address    tally.Address
}

// Chain is a chain whose state lives in its own cache.
type Chain struct {
	signer   *ecdsa.PrivateKey
	accounts []DevAccount

	db        kv.Store
	store     *blockstore.Store
	cache     *statecache.Cache
	entities  *observers.BatchEntityProcessor
	processor *chain.Processor
	nemesis   *block.Element
	head      *block.Element
}

// NewCache creates a state cache with the default sub-caches.
func NewCache() *statecache.Cache {
	return statecache.New(
		accountcache.New(accountcache.Options{TrackedAsset: FeeAsset, OptimizedAsset: FeeAsset, Unstable: 360}),
		difficultycache.New(60),
		hashcache.New(3600),
	)
}

// NewEntityProcessor creates an entity processor with the default pipelines.
func NewEntityProcessor() *observers.BatchEntityProcessor {
	return observers.NewBatchEntityProcessor(model.Publisher{FeeAsset: FeeAsset}, observers.DefaultValidators(), observers.DefaultObservers())
}

// NewDefault creates a chain with three dev accounts.
func NewDefault() (*Chain, error) {
	return New(3)
}

// New creates a chain funding n dev accounts in the nemesis block.
func New(n int) (*Chain, error) {
	c := &Chain{
		signer:   datagen.RandPrivateKey(),
		db:       kv.NewMem(),
		cache:    NewCache(),
		entities: NewEntityProcessor(),
	}
	c.processor = chain.NewProcessor(AlwaysHit, c.entities, chain.Options{
		VerifiableState:    true,
		VerifiableReceipts: true,
		VerifySignatures:   true,
		BlockTargetSeconds: TargetSeconds,
	})

	builder := new(genesis.Builder).Timestamp(LaunchTime).Difficulty(100).Signer(c.signer)
	for range n {
		priv := datagen.RandPrivateKey()
		acc := DevAccount{PrivateKey: priv, Key: block.KeyOf(priv)}
		acc.Address = acc.Key.Address()
		c.accounts = append(c.accounts, acc)
		builder.Allocate(acc.Address, FeeAsset, Funds)
	}
	nemesis, err := builder.Build(NewCache, c.entities, FeeAsset)
	if err != nil {
		return nil, fmt.Errorf("unable to build nemesis: %w", err)
	}
	if err := genesis.Execute(c.cache, c.entities, nemesis, genesis.Options{FeeAsset: FeeAsset}); err != nil {
		return nil, fmt.Errorf("unable to execute nemesis: %w", err)
	}
	if c.store, err = blockstore.New(c.db, blockstore.Options{}); err != nil {
		return nil, err
	}
	if err := c.store.SaveBlocks([]*block.Element{nemesis}); err != nil {
		return nil, err
	}
	c.nemesis, c.head = nemesis, nemesis
	return c, nil
}

// Accounts returns the funded dev accounts.
func (c *Chain) Accounts() []DevAccount { return c.accounts }

// Signer returns the key blocks are signed with.
func (c *Chain) Signer() *ecdsa.PrivateKey { return c.signer }

// Nemesis returns the nemesis element.
func (c *Chain) Nemesis() *block.Element { return c.nemesis }

// Head returns the last minted element.
func (c *Chain) Head() *block.Element { return c.head }

// Store returns the block store holding every minted block.
func (c *Chain) Store() *blockstore.Store { return c.store }

// DB returns the backing store of the block store.
func (c *Chain) DB() kv.Store { return c.db }

// Cache returns the state after the head block.
func (c *Chain) Cache() *statecache.Cache { return c.cache }

// Transfer builds a transaction paying fee and sending amount of the fee asset.
func (c *Chain) Transfer(from DevAccount, to tally.Address, amount, fee tally.Amount) *block.Transaction {
	return block.NewTransaction(from.Key, c.head.Header().Timestamp()+BlockInterval*100, fee,
		block.Transfer{Recipient: to, Asset: FeeAsset, Amount: amount})
}

// NextBlock builds the signed child of the head holding txs, without applying it.
func (c *Chain) NextBlock(txs ...*block.Transaction) (*block.Element, error) {
	parent := c.head.Header()
	height := parent.Height() + 1
	delta, err := c.cache.CreateDelta(height)
	if err != nil {
		return nil, err
	}
	defer delta.Discard()

	difficulties, err := statecache.DeltaOf[*difficultycache.Delta](delta)
	if err != nil {
		return nil, err
	}
	difficulty, err := chain.NextDifficulty(difficulties, height, TargetSeconds)
	if err != nil {
		return nil, err
	}
	draft := func(stateHash, receiptsHash tally.Bytes32) *block.Builder {
		b := new(block.Builder).
			Height(height).
			Timestamp(parent.Timestamp() + BlockInterval).
			Difficulty(difficulty).
			PreviousBlockHash(c.head.ID).
			Signer(block.KeyOf(c.signer)).
			StateHash(stateHash).
			ReceiptsHash(receiptsHash)
		for _, tx := range txs {
			b.Transaction(tx)
		}
		return b
	}

	statement := new(block.StatementBuilder)
	draftElement := block.NewElement(draft(tally.Bytes32{}, tally.Bytes32{}).Build())
	r, err := c.entities.Process(height, draftElement.Header().Timestamp(), model.ExtractEntities(draftElement), observers.State{Delta: delta, Statement: statement})
	if err != nil {
		return nil, err
	}
	if r != validation.Success {
		return nil, fmt.Errorf("block %v rejected: %v", height, r)
	}
	info := delta.CalculateStateHash()
	signed, err := draft(info.StateHash, statement.Build().Hash()).Build().Sign(c.signer)
	if err != nil {
		return nil, err
	}
	return block.NewElement(signed), nil
}

// MintBlock builds the next block, applies it and saves it.
func (c *Chain) MintBlock(txs ...*block.Transaction) error {
	el, err := c.NextBlock(txs...)
	if err != nil {
		return err
	}
	return c.Apply(el)
}

// MintBlocks mints n empty blocks.
func (c *Chain) MintBlocks(n int) error {
	for range n {
		if err := c.MintBlock(); err != nil {
			return err
		}
	}
	return nil
}

// Apply processes, commits and saves elements on top of the head.
func (c *Chain) Apply(elements ...*block.Element) error {
	if len(elements) == 0 {
		return nil
	}
	height := elements[len(elements)-1].Height()
	delta, err := c.cache.CreateDelta(height)
	if err != nil {
		return err
	}
	r, err := c.processor.Process(context.Background(), c.head, elements, delta)
	if err != nil || r != validation.Success {
		delta.Discard()
		if err != nil {
			return err
		}
		return fmt.Errorf("blocks rejected: %v", r)
	}
	if err := c.cache.Commit(height); err != nil {
		delta.Discard()
		return err
	}
	if err := c.store.SaveBlocks(elements); err != nil {
		return err
	}
	c.head = elements[len(elements)-1]
	return nil
}
