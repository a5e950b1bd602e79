// Copyright (c) 2021 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package kv

import (
	"sync"

	"github.com/syndtr/goleveldb/leveldb/util"
)

// Bucket provides logical bucket for kv store.
type Bucket string

// Key returns the full key of k inside the bucket.
func (b Bucket) Key(k []byte) []byte {
	return append(append(make([]byte, 0, len(b)+len(k)), b...), k...)
}

// Range maps r into the bucket. An empty limit means the end of the bucket.
func (b Bucket) Range(r Range) Range {
	out := Range{Start: b.Key(r.Start)}
	if len(r.Limit) == 0 {
		out.Limit = util.BytesPrefix([]byte(b)).Limit
	} else {
		out.Limit = b.Key(r.Limit)
	}
	return out
}

// NewGetter creates a bucket getter from the source getter.
func (b Bucket) NewGetter(src Getter) Getter {
	return &struct {
		GetFunc
		HasFunc
		IsNotFoundFunc
	}{
		func(key []byte) ([]byte, error) {
			buf := bufPool.Get().(*buf)
			defer bufPool.Put(buf)
			buf.k = append(append(buf.k[:0], b...), key...)

			return src.Get(buf.k)
		},
		func(key []byte) (bool, error) {
			buf := bufPool.Get().(*buf)
			defer bufPool.Put(buf)
			buf.k = append(append(buf.k[:0], b...), key...)

			return src.Has(buf.k)
		},
		src.IsNotFound,
	}
}

// NewPutter creates a bucket putter from the source putter.
func (b Bucket) NewPutter(src Putter) Putter {
	return &struct {
		PutFunc
		DeleteFunc
	}{
		func(key, val []byte) error {
			return src.Put(b.Key(key), val)
		},
		func(key []byte) error {
			return src.Delete(b.Key(key))
		},
	}
}

// NewIterator iterates the bucket range of src, stripping the bucket prefix from keys.
func (b Bucket) NewIterator(src interface{ Iterate(Range) Iterator }, r Range) Iterator {
	return &bucketIterator{src.Iterate(b.Range(r)), len(b)}
}

type bucketIterator struct {
	Iterator
	prefixLen int
}

// Key strips the bucket.
func (i *bucketIterator) Key() []byte { return i.Iterator.Key()[i.prefixLen:] }

type buf struct {
	k []byte
}

var bufPool = sync.Pool{
	New: func() any {
		return &buf{}
	},
}
