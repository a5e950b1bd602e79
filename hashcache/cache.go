// Copyright (c) 2025 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package hashcache keeps the hashes of recently confirmed transactions, so
// a transaction cannot be included twice while its deadline has not passed.
package hashcache

import (
	"bytes"
	"io"
	"sync"

	"github.com/ethereum/go-ethereum/rlp"
	"github.com/google/btree"
	"github.com/pkg/errors"

	"github.com/vechain/tally/statecache"
	"github.com/vechain/tally/tally"
)

// Name of the hash sub-cache.
const Name = "hashes"

const version = 1

// Entry is a transaction hash with its deadline.
type Entry struct {
	Deadline tally.Timestamp
	Hash     tally.Bytes32
}

func less(a, b Entry) bool {
	if a.Deadline != b.Deadline {
		return a.Deadline < b.Deadline
	}
	return bytes.Compare(a.Hash[:], b.Hash[:]) < 0
}

func newTree() *btree.BTreeG[Entry] { return btree.NewG(32, less) }

// Cache is the hash sub-cache.
type Cache struct {
	retention tally.Timestamp

	mu   sync.Mutex
	base *btree.BTreeG[Entry]
}

var _ statecache.SubCache = (*Cache)(nil)

// New creates a hash cache keeping entries for retentionSeconds past their deadline.
func New(retentionSeconds uint64) *Cache {
	return &Cache{retention: tally.Timestamp(retentionSeconds * 1000), base: newTree()}
}

func (c *Cache) Name() string    { return Name }
func (c *Cache) Version() uint16 { return version }

func (c *Cache) clone() *btree.BTreeG[Entry] {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.base.Clone()
}

func (c *Cache) NewView() statecache.SubView { return &View{reader{c.clone()}} }

func (c *Cache) NewDelta(tally.Height) statecache.SubDelta {
	return &Delta{reader: reader{c.clone()}, cache: c}
}

func (c *Cache) Load(s *rlp.Stream) error {
	tree := newTree()
	for {
		var e Entry
		if err := s.Decode(&e); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return err
		}
		tree.ReplaceOrInsert(e)
	}
	c.mu.Lock()
	c.base = tree
	c.mu.Unlock()
	return nil
}

type reader struct {
	tree *btree.BTreeG[Entry]
}

// Contains reports whether the entry is cached.
func (r reader) Contains(e Entry) bool { return r.tree.Has(e) }

// Len returns the number of entries.
func (r reader) Len() int { return r.tree.Len() }

// View is the committed hash window.
type View struct {
	reader
}

func (v *View) MerkleRoot() (tally.Bytes32, bool) { return tally.Bytes32{}, false }

// Save writes the entries in deadline order.
func (v *View) Save(w io.Writer) error {
	var err error
	v.tree.Ascend(func(e Entry) bool {
		err = rlp.Encode(w, &e)
		return err == nil
	})
	return err
}

// Delta changes the hash window on a private clone of the committed tree.
type Delta struct {
	reader
	cache *Cache
}

// Insert adds e, returning false if it is already cached.
func (d *Delta) Insert(e Entry) bool {
	_, replaced := d.tree.ReplaceOrInsert(e)
	return !replaced
}

// Remove drops e, returning whether it was cached.
func (d *Delta) Remove(e Entry) bool {
	_, removed := d.tree.Delete(e)
	return removed
}

// Prune drops the entries whose deadline is older than now minus the retention.
func (d *Delta) Prune(now tally.Timestamp) int {
	if now <= d.cache.retention {
		return 0
	}
	cutoff := now - d.cache.retention
	n := 0
	for {
		e, ok := d.tree.Min()
		if !ok || e.Deadline >= cutoff {
			return n
		}
		d.tree.DeleteMin()
		n++
	}
}

func (d *Delta) MerkleRoot() (tally.Bytes32, bool) { return tally.Bytes32{}, false }
func (d *Delta) Prepare(tally.Height) error        { return nil }
func (d *Delta) Persist() error                    { return nil }

func (d *Delta) Apply() {
	d.cache.mu.Lock()
	d.cache.base = d.tree
	d.cache.mu.Unlock()
}
