// Copyright (c) 2022 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package kv

import (
	"github.com/pkg/errors"
	"github.com/syndtr/goleveldb/leveldb"
	dberrors "github.com/syndtr/goleveldb/leveldb/errors"
	"github.com/syndtr/goleveldb/leveldb/filter"
	"github.com/syndtr/goleveldb/leveldb/opt"
	"github.com/syndtr/goleveldb/leveldb/storage"
	"github.com/syndtr/goleveldb/leveldb/util"
)

var (
	writeOpt = opt.WriteOptions{}
	syncOpt  = opt.WriteOptions{Sync: true}
	readOpt  = opt.ReadOptions{}
	scanOpt  = opt.ReadOptions{DontFillCache: true}
)

// Options for opening a leveldb store.
type Options struct {
	CacheSizeMB int
	OpenFiles   int
	// SyncWrites makes bulk writes durable before Write returns.
	SyncWrites bool
}

type levelStore struct {
	db   *leveldb.DB
	sync bool
}

// Open opens or creates a leveldb store at path. A corrupted manifest is recovered.
func Open(path string, options Options) (Store, error) {
	if options.CacheSizeMB < 16 {
		options.CacheSizeMB = 16
	}
	if options.OpenFiles < 64 {
		options.OpenFiles = 64
	}
	ldbOpts := opt.Options{
		OpenFilesCacheCapacity: options.OpenFiles,
		BlockCacheCapacity:     options.CacheSizeMB / 2 * opt.MiB,
		WriteBuffer:            options.CacheSizeMB / 4 * opt.MiB,
		Filter:                 filter.NewBloomFilter(10),
	}

	db, err := leveldb.OpenFile(path, &ldbOpts)
	if _, corrupted := err.(*dberrors.ErrCorrupted); corrupted {
		db, err = leveldb.RecoverFile(path, &ldbOpts)
	}
	if err != nil {
		return nil, errors.Wrap(err, "open leveldb")
	}
	return &levelStore{db: db, sync: options.SyncWrites}, nil
}

// NewMem creates a leveldb store in memory.
func NewMem() Store {
	db, err := leveldb.Open(storage.NewMemStorage(), nil)
	if err != nil {
		// memory storage never fails to open
		panic(err)
	}
	return &levelStore{db: db}
}

func (s *levelStore) Close() error {
	return s.db.Close()
}

func (s *levelStore) IsNotFound(err error) bool {
	return errors.Is(err, leveldb.ErrNotFound)
}

func (s *levelStore) Get(key []byte) ([]byte, error) {
	val, err := s.db.Get(key, &readOpt)
	// val will be []byte{} if error occurs, which is not expected
	if err != nil {
		return nil, err
	}
	return val, nil
}

func (s *levelStore) Has(key []byte) (bool, error) {
	return s.db.Has(key, &readOpt)
}

func (s *levelStore) Put(key, val []byte) error {
	return s.db.Put(key, val, &writeOpt)
}

func (s *levelStore) Delete(key []byte) error {
	return s.db.Delete(key, &writeOpt)
}

func (s *levelStore) Iterate(r Range) Iterator {
	return s.db.NewIterator((*util.Range)(&r), &scanOpt)
}

func (s *levelStore) Snapshot() Snapshot {
	snap, err := s.db.GetSnapshot()
	if err != nil {
		return &errSnapshot{err, s.IsNotFound}
	}
	return &struct {
		GetFunc
		HasFunc
		IsNotFoundFunc
		IterateFunc
		ReleaseFunc
	}{
		func(key []byte) ([]byte, error) {
			val, err := snap.Get(key, &readOpt)
			if err != nil {
				return nil, err
			}
			return val, nil
		},
		func(key []byte) (bool, error) { return snap.Has(key, &readOpt) },
		s.IsNotFound,
		func(r Range) Iterator { return snap.NewIterator((*util.Range)(&r), &scanOpt) },
		snap.Release,
	}
}

func (s *levelStore) Bulk() Bulk {
	return &levelBulk{s: s, batch: new(leveldb.Batch)}
}

type levelBulk struct {
	s     *levelStore
	batch *leveldb.Batch
}

func (b *levelBulk) Put(key, val []byte) error {
	b.batch.Put(key, val)
	return nil
}

func (b *levelBulk) Delete(key []byte) error {
	b.batch.Delete(key)
	return nil
}

func (b *levelBulk) Len() int { return b.batch.Len() }

func (b *levelBulk) Write() error {
	if b.batch.Len() == 0 {
		return nil
	}
	wo := &writeOpt
	if b.s.sync {
		wo = &syncOpt
	}
	if err := b.s.db.Write(b.batch, wo); err != nil {
		return err
	}
	b.batch.Reset()
	return nil
}

// errSnapshot is returned when leveldb refuses a snapshot, typically because it is closed.
type errSnapshot struct {
	err        error
	isNotFound func(error) bool
}

func (e *errSnapshot) Get([]byte) ([]byte, error)  { return nil, e.err }
func (e *errSnapshot) Has([]byte) (bool, error)    { return false, e.err }
func (e *errSnapshot) IsNotFound(err error) bool   { return e.isNotFound(err) }
func (e *errSnapshot) Iterate(Range) Iterator      { return &errIterator{e.err} }
func (e *errSnapshot) Release()                    {}

type errIterator struct{ err error }

func (e *errIterator) Next() bool    { return false }
func (e *errIterator) Key() []byte   { return nil }
func (e *errIterator) Value() []byte { return nil }
func (e *errIterator) Release()      {}
func (e *errIterator) Error() error  { return e.err }
