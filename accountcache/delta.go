// Copyright (c) 2025 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package accountcache

import (
	"maps"
	"slices"

	"github.com/google/btree"
	"github.com/pkg/errors"

	"github.com/vechain/tally/state"
	"github.com/vechain/tally/statecache"
	"github.com/vechain/tally/tally"
)

// Handle refers to an account of a Delta. It stays valid until the account is removed.
type Handle struct {
	index      uint32
	generation uint32
}

type slot struct {
	account    *state.Account
	generation uint32
	removed    bool
	inBase     bool
}

// Delta is the working set of accounts touched while building a height.
// Accounts are copied out of the committed tree on first access.
type Delta struct {
	cache *Cache
	base  *btree.BTreeG[*state.Account]

	slots []slot
	index map[tally.Address]uint32

	closed bool

	staged struct {
		updated []*state.Account
		removed []tally.Address
		encoded []encodedAccount
		height  tally.Height
	}
}

var _ statecache.SubDelta = (*Delta)(nil)

func (d *Delta) lookup(addr tally.Address) (uint32, bool) {
	if i, ok := d.index[addr]; ok {
		return i, true
	}
	acc, ok := d.base.Get(searchKey(addr))
	if !ok {
		return 0, false
	}
	i := uint32(len(d.slots))
	d.slots = append(d.slots, slot{account: acc.Clone(), generation: 1, inBase: true})
	d.index[addr] = i
	return i, true
}

// Find returns the handle of the account at addr.
func (d *Delta) Find(addr tally.Address) (Handle, bool) {
	i, ok := d.lookup(addr)
	if !ok || d.slots[i].removed {
		return Handle{}, false
	}
	return Handle{i, d.slots[i].generation}, true
}

// FindByKey returns the handle of the account derived from key.
func (d *Delta) FindByKey(key tally.Key) (Handle, bool) {
	return d.Find(key.Address())
}

// Contains reports whether addr is known.
func (d *Delta) Contains(addr tally.Address) bool {
	_, ok := d.Find(addr)
	return ok
}

// Insert adds a new account, tracking and optimizing the configured assets.
func (d *Delta) Insert(acc *state.Account) (Handle, error) {
	if d.closed {
		return Handle{}, statecache.ErrDeltaClosed
	}
	if err := acc.Balances.Track(d.cache.opts.TrackedAsset); err != nil {
		return Handle{}, err
	}
	acc.Balances.Optimize(d.cache.opts.OptimizedAsset)

	i, ok := d.lookup(acc.Address)
	if ok {
		s := &d.slots[i]
		if !s.removed {
			return Handle{}, errors.Wrapf(ErrAccountExists, "%v", acc.Address)
		}
		s.account, s.removed = acc, false
		s.generation++
		return Handle{i, s.generation}, nil
	}
	i = uint32(len(d.slots))
	d.slots = append(d.slots, slot{account: acc, generation: 1})
	d.index[acc.Address] = i
	return Handle{i, 1}, nil
}

// Get returns the account referred to by h. Changes to it are part of the delta.
func (d *Delta) Get(h Handle) (*state.Account, error) {
	if d.closed {
		return nil, statecache.ErrDeltaClosed
	}
	if h.generation == 0 || int(h.index) >= len(d.slots) {
		return nil, ErrStaleHandle
	}
	s := d.slots[h.index]
	if s.removed || s.generation != h.generation {
		return nil, ErrStaleHandle
	}
	return s.account, nil
}

// Remove deletes the account at addr and invalidates its handles.
func (d *Delta) Remove(addr tally.Address) error {
	if d.closed {
		return statecache.ErrDeltaClosed
	}
	i, ok := d.lookup(addr)
	if !ok || d.slots[i].removed {
		return errors.Wrapf(ErrAccountNotFound, "%v", addr)
	}
	s := &d.slots[i]
	s.removed = true
	s.generation++
	return nil
}

// Size returns the number of accounts including the changes.
func (d *Delta) Size() int {
	n := d.base.Len()
	for _, s := range d.slots {
		switch {
		case s.inBase && s.removed:
			n--
		case !s.inBase && !s.removed:
			n++
		}
	}
	return n
}

// MerkleRoot implements statecache.SubDelta.
func (d *Delta) MerkleRoot() (tally.Bytes32, bool) {
	current := make(map[tally.Address]*state.Account, d.base.Len()+len(d.slots))
	d.base.Ascend(func(acc *state.Account) bool {
		if _, touched := d.index[acc.Address]; !touched {
			current[acc.Address] = acc
		}
		return true
	})
	for _, s := range d.slots {
		if !s.removed {
			current[s.account.Address] = s.account
		}
	}

	addrs := slices.Collect(maps.Keys(current))
	sortAddresses(addrs)
	accounts := make([]*state.Account, 0, len(addrs))
	for _, addr := range addrs {
		accounts = append(accounts, current[addr])
	}
	return tally.MerkleRoot(hashAccounts(accounts)), true
}

// Prepare implements statecache.SubDelta. Balance snapshots of touched
// accounts are committed and trimmed to the unstable window.
func (d *Delta) Prepare(height tally.Height) error {
	if d.closed {
		return statecache.ErrDeltaClosed
	}
	d.staged.updated = d.staged.updated[:0]
	d.staged.removed = d.staged.removed[:0]
	d.staged.height = height
	for _, s := range d.slots {
		if s.removed {
			if s.inBase {
				d.staged.removed = append(d.staged.removed, s.account.Address)
			}
			continue
		}
		s.account.Balances.CommitSnapshots()
		s.account.Balances.CleanUpSnapshots(height, d.cache.opts.Unstable)
		d.staged.updated = append(d.staged.updated, s.account)
	}
	if d.cache.opts.Store == nil {
		return nil
	}
	encoded, err := encodeAccounts(d.staged.updated)
	if err != nil {
		return err
	}
	d.staged.encoded = encoded
	return nil
}

// Persist implements statecache.SubDelta.
func (d *Delta) Persist() error {
	if d.cache.opts.Store == nil {
		return nil
	}
	return writeAccounts(d.cache.opts.Store, d.staged.encoded, d.staged.removed, d.staged.height)
}

// Discard closes the delta without applying it. Handles stop resolving.
func (d *Delta) Discard() { d.closed = true }

// Apply implements statecache.SubDelta.
func (d *Delta) Apply() {
	d.cache.apply(d.staged.updated, d.staged.removed)
	d.closed = true
}
