// Copyright (c) 2025 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package accountcache is the account sub-cache of the state cache.
package accountcache

import (
	"io"
	"slices"
	"sync"

	"github.com/ethereum/go-ethereum/rlp"
	"github.com/google/btree"
	"github.com/pkg/errors"

	"github.com/vechain/tally/co"
	"github.com/vechain/tally/kv"
	"github.com/vechain/tally/log"
	"github.com/vechain/tally/state"
	"github.com/vechain/tally/statecache"
	"github.com/vechain/tally/tally"
)

// Name of the account sub-cache.
const Name = "accounts"

const (
	version    = 1
	treeDegree = 32
)

var (
	logger = log.WithContext("pkg", "accountcache")

	// ErrStaleHandle is returned for handles of removed accounts.
	ErrStaleHandle = errors.New("stale account handle")
	// ErrAccountExists is returned when inserting a known address.
	ErrAccountExists = errors.New("account exists")
	// ErrAccountNotFound is returned when removing an unknown address.
	ErrAccountNotFound = errors.New("account not found")
)

// Options configure the account sub-cache.
type Options struct {
	// TrackedAsset has its balance history snapshotted in every new account.
	TrackedAsset tally.AssetID
	// OptimizedAsset is listed first by every new account.
	OptimizedAsset tally.AssetID
	// Unstable is the number of recent blocks whose balance snapshots are kept.
	Unstable uint64
	// Store, when set, receives every commit so the accounts survive without state files.
	Store kv.Store
}

// Cache is the account sub-cache. Committed accounts are never mutated.
type Cache struct {
	opts Options

	mu   sync.Mutex
	base *btree.BTreeG[*state.Account]
}

var _ statecache.SubCache = (*Cache)(nil)

// New creates an empty account cache.
func New(opts Options) *Cache {
	return &Cache{opts: opts, base: newTree()}
}

func newTree() *btree.BTreeG[*state.Account] {
	return btree.NewG(treeDegree, func(a, b *state.Account) bool {
		return a.Address.Compare(b.Address) < 0
	})
}

func searchKey(addr tally.Address) *state.Account { return &state.Account{Address: addr} }

// Store returns the backing store, nil when there is none.
func (c *Cache) Store() kv.Store { return c.opts.Store }

// Name implements statecache.SubCache.
func (c *Cache) Name() string { return Name }

// Version implements statecache.SubCache.
func (c *Cache) Version() uint16 { return version }

// snapshot returns a private copy-on-write clone of the committed tree.
func (c *Cache) snapshot() *btree.BTreeG[*state.Account] {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.base.Clone()
}

// NewView implements statecache.SubCache.
func (c *Cache) NewView() statecache.SubView {
	return &View{tree: c.snapshot()}
}

// NewDelta implements statecache.SubCache.
func (c *Cache) NewDelta(height tally.Height) statecache.SubDelta {
	return &Delta{
		cache: c,
		base:  c.snapshot(),
		index: make(map[tally.Address]uint32),
	}
}

// Load implements statecache.SubCache.
func (c *Cache) Load(s *rlp.Stream) error {
	tree := newTree()
	for {
		acc := new(state.Account)
		if err := s.Decode(acc); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return errors.Wrap(err, "decode account")
		}
		if _, dup := tree.ReplaceOrInsert(acc); dup {
			return errors.Errorf("duplicate account %v", acc.Address)
		}
	}
	c.swap(tree)
	logger.Debug("accounts loaded", "count", tree.Len())
	return nil
}

func (c *Cache) swap(tree *btree.BTreeG[*state.Account]) {
	c.mu.Lock()
	c.base = tree
	c.mu.Unlock()
}

// apply builds the next committed tree from the staged changes.
func (c *Cache) apply(updated []*state.Account, removed []tally.Address) {
	c.mu.Lock()
	defer c.mu.Unlock()

	next := c.base.Clone()
	for _, addr := range removed {
		next.Delete(searchKey(addr))
	}
	for _, acc := range updated {
		next.ReplaceOrInsert(acc)
	}
	c.base = next
}

// View is a read-only handle over committed accounts.
type View struct {
	tree *btree.BTreeG[*state.Account]
}

// Get returns a copy of the account at addr.
func (v *View) Get(addr tally.Address) (*state.Account, bool) {
	acc, ok := v.tree.Get(searchKey(addr))
	if !ok {
		return nil, false
	}
	return acc.Clone(), true
}

// Contains reports whether addr is known.
func (v *View) Contains(addr tally.Address) bool { return v.tree.Has(searchKey(addr)) }

// Size returns the number of accounts.
func (v *View) Size() int { return v.tree.Len() }

// Range calls fn for every account in address order until fn returns false.
// Accounts passed to fn must not be modified.
func (v *View) Range(fn func(*state.Account) bool) {
	v.tree.Ascend(fn)
}

// MerkleRoot implements statecache.SubView.
func (v *View) MerkleRoot() (tally.Bytes32, bool) {
	accounts := make([]*state.Account, 0, v.tree.Len())
	v.tree.Ascend(func(acc *state.Account) bool {
		accounts = append(accounts, acc)
		return true
	})
	return tally.MerkleRoot(hashAccounts(accounts)), true
}

// Save implements statecache.SubView.
func (v *View) Save(w io.Writer) error {
	var err error
	v.tree.Ascend(func(acc *state.Account) bool {
		err = rlp.Encode(w, acc)
		return err == nil
	})
	return err
}

// hashAccounts hashes accounts in order. Large sets are hashed in parallel.
func hashAccounts(accounts []*state.Account) []tally.Bytes32 {
	hashes := make([]tally.Bytes32, len(accounts))
	if len(accounts) <= minPartition {
		for i, acc := range accounts {
			hashes[i] = acc.Hash()
		}
		return hashes
	}
	co.Parallel(func(enqueue co.Enqueue) {
		for start := 0; start < len(accounts); start += minPartition {
			end := min(start+minPartition, len(accounts))
			enqueue(func() {
				for i := start; i < end; i++ {
					hashes[i] = accounts[i].Hash()
				}
			})
		}
	})
	return hashes
}

// sortAddresses orders addresses the way the tree does.
func sortAddresses(addrs []tally.Address) {
	slices.SortFunc(addrs, tally.Address.Compare)
}
