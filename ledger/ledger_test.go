// Copyright (c) 2025 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package ledger

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/ethereum/go-ethereum/rlp"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vechain/tally/accountcache"
	"github.com/vechain/tally/block"
	"github.com/vechain/tally/checkpoint"
	"github.com/vechain/tally/config"
	"github.com/vechain/tally/datadir"
	"github.com/vechain/tally/kv"
	"github.com/vechain/tally/recovery"
	"github.com/vechain/tally/spool"
	"github.com/vechain/tally/statecache"
	"github.com/vechain/tally/tally"
	"github.com/vechain/tally/test/testchain"
	"github.com/vechain/tally/validation"
)

func newConfig(t *testing.T) config.Config {
	cfg := config.Default()
	cfg.Network.TrackedAssetID = testchain.FeeAsset
	cfg.Network.OptimizedAssetID = testchain.FeeAsset
	cfg.Network.FeeAssetID = testchain.FeeAsset
	cfg.Node.DataDir = t.TempDir()
	cfg.Node.MaxBlocksPerBatch = 4
	return cfg
}

func open(t *testing.T, cfg config.Config, c *testchain.Chain, inMemory bool) *Ledger {
	l, err := Open(context.Background(), cfg, Options{
		Nemesis:  func() (*block.Element, error) { return c.Nemesis(), nil },
		Hit:      testchain.AlwaysHit,
		InMemory: inMemory,
	})
	require.NoError(t, err)
	return l
}

func newChain(t *testing.T) *testchain.Chain {
	c, err := testchain.NewDefault()
	require.NoError(t, err)
	return c
}

// mint mints n blocks on c and returns them.
func mint(t *testing.T, c *testchain.Chain, n int) []*block.Element {
	from := c.Head().Height() + 1
	require.NoError(t, c.MintBlocks(n))
	elements := make([]*block.Element, 0, n)
	for h := from; h <= c.Head().Height(); h++ {
		el, err := c.Store().LoadBlockElement(h)
		require.NoError(t, err)
		elements = append(elements, el)
	}
	return elements
}

func writerIndex(t *testing.T, dir datadir.Dir, queue string) uint64 {
	q, err := spool.Open(dir.SpoolDir(queue))
	require.NoError(t, err)
	n, err := q.WriterIndex()
	require.NoError(t, err)
	return n
}

func TestOpenFresh(t *testing.T) {
	c := newChain(t)
	l := open(t, newConfig(t), c, true)
	defer l.Close()

	assert.Equal(t, tally.Height(1), l.Height())
	assert.Equal(t, tally.NewChainScore(1), l.Score())
	assert.Equal(t, c.Nemesis().ID, l.Head().ID)
	assert.True(t, statecache.HasSerializedState(l.Dir().Sub(datadir.StateDir)))
	assert.Equal(t, c.Cache().CreateView().CalculateStateHash(), l.View().CalculateStateHash())
}

func TestApplyBlocks(t *testing.T) {
	c := newChain(t)
	l := open(t, newConfig(t), c, true)
	defer l.Close()

	r, err := l.ApplyBlocks(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, validation.Neutral, r)

	accounts := c.Accounts()
	require.NoError(t, c.MintBlock(c.Transfer(accounts[0], accounts[2].Address, 40, 3)))
	elements := append([]*block.Element{c.Head()}, mint(t, c, 2)...)

	r, err = l.ApplyBlocks(context.Background(), elements)
	require.NoError(t, err)
	assert.Equal(t, validation.Success, r)
	assert.Equal(t, tally.Height(4), l.Height())
	assert.Equal(t, 1, l.Score().Cmp(tally.NewChainScore(1)))
	assert.Equal(t, uint64(4), l.Supplemental().TransactionsCount)
	assert.Equal(t, tally.Height(4), l.Blocks().ChainHeight())
	assert.Equal(t, c.Cache().CreateView().CalculateStateHash(), l.View().CalculateStateHash())

	view, err := statecache.ViewOf[*accountcache.View](l.View())
	require.NoError(t, err)
	acc, ok := view.Get(accounts[2].Address)
	require.True(t, ok)
	assert.Equal(t, testchain.Funds+40, acc.Balances.Get(testchain.FeeAsset))

	assert.Equal(t, uint64(3), writerIndex(t, l.Dir(), recovery.QueueBlockChange))
	assert.Equal(t, uint64(1), writerIndex(t, l.Dir(), recovery.QueueStateChange))
}

func TestApplyBlocksDiscardsWholeBatch(t *testing.T) {
	c := newChain(t)
	l := open(t, newConfig(t), c, true)
	defer l.Close()

	elements := mint(t, c, 2)
	head := c.Head().Header()
	overspend := block.NewTransaction(c.Accounts()[0].Key, head.Timestamp()+testchain.BlockInterval*10, 0,
		block.Transfer{Recipient: c.Accounts()[1].Address, Asset: testchain.FeeAsset, Amount: testchain.Funds + 1})
	bad, err := new(block.Builder).
		Height(head.Height() + 1).
		Timestamp(head.Timestamp() + testchain.BlockInterval).
		Difficulty(head.Difficulty()).
		PreviousBlockHash(c.Head().ID).
		Signer(block.KeyOf(c.Signer())).
		Transaction(overspend).
		Build().
		Sign(c.Signer())
	require.NoError(t, err)

	before := l.View().CalculateStateHash()
	r, err := l.ApplyBlocks(context.Background(), append(elements, block.NewElement(bad)))
	require.NoError(t, err)
	assert.Equal(t, validation.InsufficientBalance, r)
	assert.Equal(t, tally.Height(1), l.Height())
	assert.Equal(t, tally.Height(1), l.Blocks().ChainHeight())
	assert.Equal(t, before, l.View().CalculateStateHash())
	assert.Equal(t, tally.NewChainScore(1), l.Score())

	q, err := spool.Open(l.Dir().SpoolDir(recovery.QueueTransactionStatus))
	require.NoError(t, err)
	var status TransactionStatus
	_, err = q.ReadFrom("test", func(_ uint64, msg []byte) error { return rlp.DecodeBytes(msg, &status) })
	require.NoError(t, err)
	assert.Equal(t, TransactionStatus{Height: 2, ID: elements[0].ID, Result: uint32(validation.InsufficientBalance)}, status)

	r, err = l.ApplyBlocks(context.Background(), elements)
	require.NoError(t, err)
	assert.Equal(t, validation.Success, r, "the rejected batch left nothing open")
}

func TestApplyBlocksUnlinked(t *testing.T) {
	c := newChain(t)
	l := open(t, newConfig(t), c, true)
	defer l.Close()

	elements := mint(t, c, 2)
	r, err := l.ApplyBlocks(context.Background(), elements[1:])
	require.NoError(t, err)
	assert.Equal(t, validation.ChainUnlinked, r)
	assert.Equal(t, tally.Height(1), l.Height())
}

func TestReopenReplaysUnsavedBlocks(t *testing.T) {
	c := newChain(t)
	cfg := newConfig(t)
	l := open(t, cfg, c, false)

	r, err := l.ApplyBlocks(context.Background(), mint(t, c, 5))
	require.NoError(t, err)
	require.Equal(t, validation.Success, r)
	score := l.Score()
	require.NoError(t, l.Close())

	l = open(t, cfg, c, false)
	defer l.Close()
	assert.Equal(t, tally.Height(6), l.Height())
	assert.Equal(t, score, l.Score())
	assert.Equal(t, c.Cache().CreateView().CalculateStateHash(), l.View().CalculateStateHash())
}

func TestReopenPersisted(t *testing.T) {
	c := newChain(t)
	cfg := newConfig(t)
	l := open(t, cfg, c, false)

	_, err := l.ApplyBlocks(context.Background(), mint(t, c, 3))
	require.NoError(t, err)
	require.NoError(t, l.Persist())
	supplemental := l.Supplemental()
	require.NoError(t, l.Close())
	assert.ErrorIs(t, l.Persist(), ErrClosed)

	l = open(t, cfg, c, false)
	defer l.Close()
	assert.Equal(t, supplemental, l.Supplemental())
}

func TestDatabaseStorage(t *testing.T) {
	c := newChain(t)
	cfg := newConfig(t)
	cfg.Node.UseCacheDatabaseStorage = true
	l := open(t, cfg, c, false)

	_, err := l.ApplyBlocks(context.Background(), mint(t, c, 3))
	require.NoError(t, err)
	_, err = l.ApplyBlocks(context.Background(), mint(t, c, 2))
	require.NoError(t, err)
	require.NoError(t, l.Close())

	l = open(t, cfg, c, false)
	defer l.Close()
	assert.Equal(t, tally.Height(6), l.Height())
	assert.Equal(t, c.Cache().CreateView().CalculateStateHash(), l.View().CalculateStateHash())
}

func TestApplyAfterClose(t *testing.T) {
	c := newChain(t)
	l := open(t, newConfig(t), c, true)
	require.NoError(t, l.Close())
	require.NoError(t, l.Close())

	_, err := l.ApplyBlocks(context.Background(), mint(t, c, 1))
	assert.ErrorIs(t, err, ErrClosed)
}

func TestDatabaseStorageReplaysBlocksSavedBeforeCrash(t *testing.T) {
	c := newChain(t)
	cfg := newConfig(t)
	cfg.Node.UseCacheDatabaseStorage = true
	l := open(t, cfg, c, false)

	_, err := l.ApplyBlocks(context.Background(), mint(t, c, 3))
	require.NoError(t, err)
	// the process stops after the blocks are stored
	require.NoError(t, checkpoint.NewMarker(l.Dir()).Write(checkpoint.BlocksWritten))
	require.NoError(t, l.Blocks().SaveBlocks(mint(t, c, 1)))
	require.NoError(t, l.Close())

	l = open(t, cfg, c, false)
	defer l.Close()
	assert.Equal(t, tally.Height(5), l.Height())
	assert.Equal(t, c.Head().ID, l.Head().ID)
	assert.Equal(t, c.Cache().CreateView().CalculateStateHash(), l.View().CalculateStateHash())
	assert.Equal(t, tally.Height(5), l.Supplemental().CacheHeight)
}

var errInjected = errors.New("injected write failure")

// accountFailingStore fails bulk writes of the account database while fail is set.
type accountFailingStore struct {
	kv.Store
	fail bool
}

func (s *accountFailingStore) Bulk() kv.Bulk {
	return &accountFailingBulk{Bulk: s.Store.Bulk(), store: s}
}

type accountFailingBulk struct {
	kv.Bulk
	store    *accountFailingStore
	accounts bool
}

func (b *accountFailingBulk) Put(key, val []byte) error {
	if string(key) == "h" {
		b.accounts = true
	}
	return b.Bulk.Put(key, val)
}

func (b *accountFailingBulk) Write() error {
	if b.accounts && b.store.fail {
		return errInjected
	}
	return b.Bulk.Write()
}

func TestApplyBlocksDropsBlocksWhenCommitFails(t *testing.T) {
	c := newChain(t)
	cfg := newConfig(t)
	cfg.Node.UseCacheDatabaseStorage = true
	db := &accountFailingStore{Store: kv.NewMem()}
	l, err := Open(context.Background(), cfg, Options{
		Nemesis: func() (*block.Element, error) { return c.Nemesis(), nil },
		Hit:     testchain.AlwaysHit,
		DB:      db,
	})
	require.NoError(t, err)
	defer l.Close()

	_, err = l.ApplyBlocks(context.Background(), mint(t, c, 2))
	require.NoError(t, err)

	elements := mint(t, c, 2)
	db.fail = true
	r, err := l.ApplyBlocks(context.Background(), elements)
	assert.ErrorIs(t, err, errInjected)
	assert.Equal(t, validation.Failure, r)
	assert.Equal(t, tally.Height(3), l.Height())
	assert.Equal(t, tally.Height(3), l.Blocks().ChainHeight(), "stored blocks follow the state back")

	db.fail = false
	r, err = l.ApplyBlocks(context.Background(), elements)
	require.NoError(t, err)
	assert.Equal(t, validation.Success, r)
	assert.Equal(t, tally.Height(5), l.Blocks().ChainHeight())
	assert.Equal(t, c.Cache().CreateView().CalculateStateHash(), l.View().CalculateStateHash())
}

func TestOpenReadOnlyLeavesStateFiles(t *testing.T) {
	c := newChain(t)
	cfg := newConfig(t)
	l := open(t, cfg, c, false)
	_, err := l.ApplyBlocks(context.Background(), mint(t, c, 2))
	require.NoError(t, err)
	require.NoError(t, l.Close())

	stateDir := l.Dir().Sub(datadir.StateDir)
	before, err := os.ReadFile(filepath.Join(stateDir, statecache.SupplementalFile))
	require.NoError(t, err)

	l, err = Open(context.Background(), cfg, Options{
		Nemesis:  func() (*block.Element, error) { return c.Nemesis(), nil },
		Hit:      testchain.AlwaysHit,
		ReadOnly: true,
	})
	require.NoError(t, err)
	assert.Equal(t, tally.Height(3), l.Height(), "blocks are replayed in memory")
	require.NoError(t, l.Close())

	after, err := os.ReadFile(filepath.Join(stateDir, statecache.SupplementalFile))
	require.NoError(t, err)
	assert.Equal(t, before, after)
}
