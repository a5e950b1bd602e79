// Copyright (c) 2025 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package difficultycache keeps the difficulty history of recent blocks.
package difficultycache

import (
	"io"
	"sync"

	"github.com/ethereum/go-ethereum/rlp"
	"github.com/google/btree"
	"github.com/pkg/errors"

	"github.com/vechain/tally/statecache"
	"github.com/vechain/tally/tally"
)

// Name of the difficulty sub-cache.
const Name = "difficulty"

const version = 1

// ErrNotContiguous is returned when an insert or remove would leave a gap in the history.
var ErrNotContiguous = errors.New("difficulty history not contiguous")

// Info is the difficulty of the block at a height.
type Info struct {
	Height     tally.Height
	Timestamp  tally.Timestamp
	Difficulty tally.Difficulty
}

func byHeight(a, b Info) bool { return a.Height < b.Height }

func newTree() *btree.BTreeG[Info] { return btree.NewG(16, byHeight) }

// Cache is the difficulty sub-cache holding at most MaxBlocks recent infos.
type Cache struct {
	maxBlocks uint64

	mu   sync.Mutex
	base *btree.BTreeG[Info]
}

var _ statecache.SubCache = (*Cache)(nil)

// New creates an empty difficulty cache retaining maxBlocks infos.
func New(maxBlocks uint64) *Cache {
	return &Cache{maxBlocks: maxBlocks, base: newTree()}
}

func (c *Cache) Name() string    { return Name }
func (c *Cache) Version() uint16 { return version }

func (c *Cache) clone() *btree.BTreeG[Info] {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.base.Clone()
}

func (c *Cache) NewView() statecache.SubView {
	return &View{reader{c.clone()}}
}

func (c *Cache) NewDelta(tally.Height) statecache.SubDelta {
	return &Delta{reader: reader{c.clone()}, cache: c}
}

func (c *Cache) Load(s *rlp.Stream) error {
	tree := newTree()
	var last *Info
	for {
		var info Info
		if err := s.Decode(&info); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return err
		}
		if last != nil && info.Height != last.Height+1 {
			return errors.Wrapf(ErrNotContiguous, "%v after %v", info.Height, last.Height)
		}
		tree.ReplaceOrInsert(info)
		last = &info
	}
	c.mu.Lock()
	c.base = tree
	c.mu.Unlock()
	return nil
}

type reader struct {
	tree *btree.BTreeG[Info]
}

// Get returns the info at height.
func (r reader) Get(height tally.Height) (Info, bool) {
	return r.tree.Get(Info{Height: height})
}

// Last returns the info of the highest block.
func (r reader) Last() (Info, bool) { return r.tree.Max() }

// Len returns the number of infos.
func (r reader) Len() int { return r.tree.Len() }

// Range calls fn for infos in [from, to) until fn returns false.
func (r reader) Range(from, to tally.Height, fn func(Info) bool) {
	r.tree.AscendRange(Info{Height: from}, Info{Height: to}, fn)
}

// View is the committed difficulty history.
type View struct {
	reader
}

// MerkleRoot is not supported by the difficulty cache.
func (v *View) MerkleRoot() (tally.Bytes32, bool) { return tally.Bytes32{}, false }

// Save writes the infos in height order.
func (v *View) Save(w io.Writer) error {
	var err error
	v.tree.Ascend(func(info Info) bool {
		err = rlp.Encode(w, &info)
		return err == nil
	})
	return err
}

// Delta changes the difficulty history. It works on a private clone of the
// committed tree that replaces it on Apply.
type Delta struct {
	reader
	cache *Cache
}

// Insert appends the info of the next block.
func (d *Delta) Insert(info Info) error {
	if last, ok := d.Last(); ok && info.Height != last.Height+1 {
		return errors.Wrapf(ErrNotContiguous, "insert %v after %v", info.Height, last.Height)
	}
	d.tree.ReplaceOrInsert(info)
	return nil
}

// Remove drops the info of the highest block, which must be at height.
func (d *Delta) Remove(height tally.Height) error {
	last, ok := d.Last()
	if !ok || last.Height != height {
		return errors.Wrapf(ErrNotContiguous, "remove %v", height)
	}
	d.tree.DeleteMax()
	return nil
}

func (d *Delta) MerkleRoot() (tally.Bytes32, bool) { return tally.Bytes32{}, false }

// Prepare prunes the history to the retained number of blocks.
func (d *Delta) Prepare(tally.Height) error {
	for uint64(d.tree.Len()) > d.cache.maxBlocks {
		d.tree.DeleteMin()
	}
	return nil
}

func (d *Delta) Persist() error { return nil }

func (d *Delta) Apply() {
	d.cache.mu.Lock()
	d.cache.base = d.tree
	d.cache.mu.Unlock()
}
