// Copyright (c) 2025 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package accountcache

import (
	"encoding/binary"
	"runtime"

	"github.com/ethereum/go-ethereum/rlp"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/vechain/tally/kv"
	"github.com/vechain/tally/state"
	"github.com/vechain/tally/tally"
)

var (
	accountBucket = kv.Bucket("a")
	heightKey     = []byte("h")
)

// minPartition is the smallest number of accounts encoded by one worker.
const minPartition = 256

type encodedAccount struct {
	addr tally.Address
	data []byte
}

// encodeAccounts RLP encodes accounts, splitting large sets across workers.
func encodeAccounts(accounts []*state.Account) ([]encodedAccount, error) {
	out := make([]encodedAccount, len(accounts))
	partition := max(minPartition, (len(accounts)+runtime.NumCPU()-1)/runtime.NumCPU())

	var g errgroup.Group
	for start := 0; start < len(accounts); start += partition {
		end := min(start+partition, len(accounts))
		g.Go(func() error {
			for i := start; i < end; i++ {
				data, err := rlp.EncodeToBytes(accounts[i])
				if err != nil {
					return errors.Wrapf(err, "encode account %v", accounts[i].Address)
				}
				out[i] = encodedAccount{accounts[i].Address, data}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// writeAccounts writes updates, removals and the height record in one batch.
func writeAccounts(store kv.Store, updated []encodedAccount, removed []tally.Address, height tally.Height) error {
	bulk := store.Bulk()
	putter := accountBucket.NewPutter(bulk)
	for _, addr := range removed {
		if err := putter.Delete(addr.Bytes()); err != nil {
			return err
		}
	}
	for _, e := range updated {
		if err := putter.Put(e.addr.Bytes(), e.data); err != nil {
			return err
		}
	}
	var h [8]byte
	binary.BigEndian.PutUint64(h[:], uint64(height))
	if err := bulk.Put(heightKey, h[:]); err != nil {
		return err
	}
	return errors.Wrap(bulk.Write(), "write accounts")
}

// StoreHeight returns the height of the last commit written to the store.
func StoreHeight(store kv.Getter) (tally.Height, bool, error) {
	data, err := store.Get(heightKey)
	if err != nil {
		if store.IsNotFound(err) {
			return 0, false, nil
		}
		return 0, false, err
	}
	if len(data) != 8 {
		return 0, false, errors.New("malformed height record")
	}
	return tally.Height(binary.BigEndian.Uint64(data)), true, nil
}

// LoadFromStore replaces the committed accounts with those in the backing
// store and returns the height they were committed at.
func (c *Cache) LoadFromStore() (tally.Height, error) {
	store := c.opts.Store
	if store == nil {
		return 0, errors.New("account cache has no backing store")
	}
	height, _, err := StoreHeight(store)
	if err != nil {
		return 0, err
	}

	snapshot := store.Snapshot()
	defer snapshot.Release()

	tree := newTree()
	it := accountBucket.NewIterator(snapshot, kv.Range{})
	defer it.Release()
	for it.Next() {
		acc := new(state.Account)
		if err := rlp.DecodeBytes(it.Value(), acc); err != nil {
			return 0, errors.Wrapf(err, "decode account %x", it.Key())
		}
		tree.ReplaceOrInsert(acc)
	}
	if err := it.Error(); err != nil {
		return 0, err
	}
	c.swap(tree)
	logger.Info("accounts loaded from store", "count", tree.Len(), "height", height)
	return height, nil
}

// SyncStore rewrites the backing store from the committed accounts and marks
// it as written at height.
func (c *Cache) SyncStore(height tally.Height) error {
	store := c.opts.Store
	if store == nil {
		return errors.New("account cache has no backing store")
	}
	tree := c.snapshot()
	keep := make(map[tally.Address]struct{}, tree.Len())
	accounts := make([]*state.Account, 0, tree.Len())
	tree.Ascend(func(acc *state.Account) bool {
		keep[acc.Address] = struct{}{}
		accounts = append(accounts, acc)
		return true
	})

	var stale []tally.Address
	it := accountBucket.NewIterator(store, kv.Range{})
	for it.Next() {
		addr := tally.BytesToAddress(it.Key())
		if _, ok := keep[addr]; !ok {
			stale = append(stale, addr)
		}
	}
	it.Release()
	if err := it.Error(); err != nil {
		return err
	}

	encoded, err := encodeAccounts(accounts)
	if err != nil {
		return err
	}
	if err := writeAccounts(store, encoded, stale, height); err != nil {
		return err
	}
	logger.Info("account store resynchronized", "count", len(accounts), "stale", len(stale), "height", height)
	return nil
}
