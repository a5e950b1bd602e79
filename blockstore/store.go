// Copyright (c) 2025 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package blockstore persists block elements by height.
package blockstore

import (
	"encoding/binary"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/ethereum/go-ethereum/rlp"
	"github.com/pkg/errors"
	"github.com/qianbin/directcache"

	"github.com/vechain/tally/block"
	"github.com/vechain/tally/cache"
	"github.com/vechain/tally/kv"
	"github.com/vechain/tally/log"
	"github.com/vechain/tally/tally"
)

var (
	logger = log.WithContext("pkg", "blockstore")

	elementBucket = kv.Bucket("e")
	idBucket      = kv.Bucket("i")
	heightKey     = []byte("chain-height")

	// ErrNotFound is returned for heights above the chain height.
	ErrNotFound = errors.New("block not found")
	// ErrNotContiguous is returned when saved blocks do not extend the chain.
	ErrNotContiguous = errors.New("blocks not contiguous")
)

// Options configure the block store caches.
type Options struct {
	// CacheSize is the number of decoded elements kept.
	CacheSize int
	// RawCacheBytes is the capacity of the encoded element cache.
	RawCacheBytes int
}

// Store keeps block elements keyed by height.
type Store struct {
	db       kv.Store
	elements *cache.LRU[tally.Height, *block.Element]
	raw      *directcache.Cache
	stats    cache.Stats

	writeLock sync.Mutex
	height    atomic.Uint64
}

// New opens a block store over db.
func New(db kv.Store, opts Options) (*Store, error) {
	elements, err := cache.NewLRU[tally.Height, *block.Element](max(opts.CacheSize, 16))
	if err != nil {
		return nil, err
	}
	s := &Store{
		db:       db,
		elements: elements,
		raw:      directcache.New(max(opts.RawCacheBytes, 1<<20)),
	}

	data, err := db.Get(heightKey)
	switch {
	case err == nil:
		if len(data) != 8 {
			return nil, errors.New("malformed chain height")
		}
		s.height.Store(binary.BigEndian.Uint64(data))
	case !db.IsNotFound(err):
		return nil, errors.Wrap(err, "read chain height")
	}
	return s, nil
}

func heightBytes(h tally.Height) []byte {
	return binary.BigEndian.AppendUint64(nil, uint64(h))
}

// CacheStats returns the element cache hits and misses.
func (s *Store) CacheStats() (hit, miss int64) {
	_, hit, miss = s.stats.Stats()
	return
}

// ChainHeight returns the height of the last saved block.
func (s *Store) ChainHeight() tally.Height { return tally.Height(s.height.Load()) }

// SaveBlocks appends elements to the chain. They must start right above the
// chain height and be contiguous. All of them are written in one batch.
func (s *Store) SaveBlocks(elements []*block.Element) error {
	if len(elements) == 0 {
		return nil
	}
	s.writeLock.Lock()
	defer s.writeLock.Unlock()

	next := s.ChainHeight() + 1
	encoded := make([][]byte, 0, len(elements))
	for i, e := range elements {
		if e.Height() != next+tally.Height(i) {
			return errors.Wrapf(ErrNotContiguous, "got %v, want %v", e.Height(), next+tally.Height(i))
		}
		data, err := rlp.EncodeToBytes(e)
		if err != nil {
			return errors.Wrapf(err, "encode block %v", e.Height())
		}
		encoded = append(encoded, data)
	}

	bulk := s.db.Bulk()
	elementPutter := elementBucket.NewPutter(bulk)
	idPutter := idBucket.NewPutter(bulk)
	for i, e := range elements {
		key := heightBytes(e.Height())
		if err := elementPutter.Put(key, encoded[i]); err != nil {
			return err
		}
		if err := idPutter.Put(key, e.ID[:]); err != nil {
			return err
		}
	}
	last := elements[len(elements)-1].Height()
	if err := bulk.Put(heightKey, heightBytes(last)); err != nil {
		return err
	}
	if err := bulk.Write(); err != nil {
		return errors.Wrap(err, "write blocks")
	}

	for i, e := range elements {
		s.raw.Set(heightBytes(e.Height()), encoded[i])
	}
	s.height.Store(uint64(last))
	logger.Debug("blocks saved", "from", next, "to", last)
	return nil
}

// LoadBlockElement returns the element at height.
func (s *Store) LoadBlockElement(height tally.Height) (*block.Element, error) {
	if height == 0 || height > s.ChainHeight() {
		return nil, errors.Wrapf(ErrNotFound, "height %v", height)
	}
	if e, ok := s.elements.Get(height); ok {
		s.stats.Hit()
		metricCacheHitMiss().AddWithLabel(1, map[string]string{"type": "element", "event": "hit"})
		return e, nil
	}
	s.stats.Miss()
	metricCacheHitMiss().AddWithLabel(1, map[string]string{"type": "element", "event": "miss"})
	if changed, hit, miss := s.stats.Stats(); changed && (hit+miss)%1000 == 0 {
		logger.Debug("element cache stats", "hit", hit, "miss", miss, "rate", float64(hit)/float64(hit+miss))
	}

	data, err := s.loadRaw(height)
	if err != nil {
		return nil, err
	}
	e := new(block.Element)
	if err := rlp.DecodeBytes(data, e); err != nil {
		return nil, errors.Wrapf(err, "decode block %v", height)
	}
	s.elements.Add(height, e)
	return e, nil
}

func (s *Store) loadRaw(height tally.Height) ([]byte, error) {
	key := heightBytes(height)
	var data []byte
	if s.raw.AdvGet(key, func(val []byte) { data = slices.Clone(val) }, false) {
		metricCacheHitMiss().AddWithLabel(1, map[string]string{"type": "raw", "event": "hit"})
		return data, nil
	}
	metricCacheHitMiss().AddWithLabel(1, map[string]string{"type": "raw", "event": "miss"})

	data, err := elementBucket.NewGetter(s.db).Get(key)
	if err != nil {
		if s.db.IsNotFound(err) {
			return nil, errors.Wrapf(ErrNotFound, "height %v", height)
		}
		return nil, err
	}
	s.raw.Set(key, data)
	return data, nil
}

// LoadHashesFrom returns up to maxCount block ids starting at height.
func (s *Store) LoadHashesFrom(height tally.Height, maxCount int) ([]tally.Bytes32, error) {
	chainHeight := s.ChainHeight()
	if height == 0 || height > chainHeight || maxCount <= 0 {
		return nil, nil
	}
	end := min(chainHeight, height+tally.Height(maxCount)-1)

	snapshot := s.db.Snapshot()
	defer snapshot.Release()

	it := idBucket.NewIterator(snapshot, kv.Range{Start: heightBytes(height), Limit: heightBytes(end + 1)})
	defer it.Release()

	ids := make([]tally.Bytes32, 0, end-height+1)
	for it.Next() {
		ids = append(ids, tally.BytesToBytes32(it.Value()))
	}
	return ids, it.Error()
}

// DropBlocksAfter removes the blocks above height.
func (s *Store) DropBlocksAfter(height tally.Height) error {
	s.writeLock.Lock()
	defer s.writeLock.Unlock()

	chainHeight := s.ChainHeight()
	if height >= chainHeight {
		return nil
	}
	bulk := s.db.Bulk()
	elementPutter := elementBucket.NewPutter(bulk)
	idPutter := idBucket.NewPutter(bulk)
	for h := height + 1; h <= chainHeight; h++ {
		key := heightBytes(h)
		if err := elementPutter.Delete(key); err != nil {
			return err
		}
		if err := idPutter.Delete(key); err != nil {
			return err
		}
	}
	if err := bulk.Put(heightKey, heightBytes(height)); err != nil {
		return err
	}
	if err := bulk.Write(); err != nil {
		return errors.Wrap(err, "drop blocks")
	}

	for h := height + 1; h <= chainHeight; h++ {
		s.elements.Remove(h)
		s.raw.Del(heightBytes(h))
	}
	s.height.Store(uint64(height))
	logger.Info("blocks dropped", "from", height+1, "to", chainHeight)
	return nil
}
