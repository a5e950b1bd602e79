// Copyright (c) 2025 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package spool implements file based message queues read by downstream consumers.
//
// A queue directory holds one file per message, named by its index in upper
// case hex, a writer index file and one index file per reader:
//
//	0000000000000000.dat
//	0000000000000001.dat
//	index.dat
//	index_broker_r.dat
package spool

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/google/renameio/v2"
	"github.com/pkg/errors"

	"github.com/vechain/tally/datadir"
	"github.com/vechain/tally/log"
)

var logger = log.WithContext("pkg", "spool")

const writerIndexFile = "index.dat"

// Queue is a message queue directory.
type Queue struct {
	dir string
}

// Open opens the queue in dir, creating the directory if needed.
func Open(dir string) (*Queue, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, errors.Wrap(err, "create queue")
	}
	return &Queue{dir}, nil
}

// Dir returns the queue directory.
func (q *Queue) Dir() string { return q.dir }

func (q *Queue) messagePath(index uint64) string {
	return filepath.Join(q.dir, fmt.Sprintf("%016X.dat", index))
}

func (q *Queue) writerIndex() datadir.IndexFile {
	return datadir.NewIndexFile(filepath.Join(q.dir, writerIndexFile))
}

func (q *Queue) readerIndex(reader string) datadir.IndexFile {
	return datadir.NewIndexFile(filepath.Join(q.dir, "index_"+reader+"_r.dat"))
}

// WriterIndex returns the index of the next message to be appended.
func (q *Queue) WriterIndex() (uint64, error) { return q.writerIndex().Get() }

// ReaderIndex returns the index of the next message reader consumes.
func (q *Queue) ReaderIndex(reader string) (uint64, error) { return q.readerIndex(reader).Get() }

// Append writes msg and then publishes it by advancing the writer index.
func (q *Queue) Append(msg []byte) error {
	index, err := q.writerIndex().Get()
	if err != nil {
		return err
	}
	if err := renameio.WriteFile(q.messagePath(index), msg, 0o600); err != nil {
		return errors.Wrapf(err, "write message %d", index)
	}
	return q.writerIndex().Set(index + 1)
}

// ReadFrom passes the messages reader has not consumed yet to fn, in order.
// The reader index advances after every message fn accepts.
func (q *Queue) ReadFrom(reader string, fn func(index uint64, msg []byte) error) (int, error) {
	end, err := q.writerIndex().Get()
	if err != nil {
		return 0, err
	}
	ri := q.readerIndex(reader)
	next, err := ri.Get()
	if err != nil {
		return 0, err
	}
	n := 0
	for ; next < end; next++ {
		msg, err := os.ReadFile(q.messagePath(next))
		if err != nil {
			return n, errors.Wrapf(err, "read message %d", next)
		}
		if err := fn(next, msg); err != nil {
			return n, err
		}
		if err := ri.Set(next + 1); err != nil {
			return n, err
		}
		n++
	}
	return n, nil
}

// ResetReader moves reader to the writer index, skipping every pending message.
func (q *Queue) ResetReader(reader string) error {
	end, err := q.writerIndex().Get()
	if err != nil {
		return err
	}
	return q.readerIndex(reader).Set(end)
}

// Purge removes every message and index file.
func (q *Queue) Purge() error {
	return datadir.PurgeDirectory(q.dir)
}

// DeleteConsumed removes the messages every one of readers has consumed.
func (q *Queue) DeleteConsumed(readers ...string) (int, error) {
	if len(readers) == 0 {
		return 0, nil
	}
	low := ^uint64(0)
	for _, r := range readers {
		v, err := q.readerIndex(r).Get()
		if err != nil {
			return 0, err
		}
		low = min(low, v)
	}

	entries, err := os.ReadDir(q.dir)
	if err != nil {
		return 0, err
	}
	n := 0
	for _, e := range entries {
		name := e.Name()
		if !strings.HasSuffix(name, ".dat") || len(name) != 20 {
			continue
		}
		index, err := strconv.ParseUint(strings.TrimSuffix(name, ".dat"), 16, 64)
		if err != nil || index >= low {
			continue
		}
		if err := os.Remove(filepath.Join(q.dir, name)); err != nil {
			return n, err
		}
		n++
	}
	if n > 0 {
		logger.Debug("deleted consumed messages", "queue", filepath.Base(q.dir), "count", n)
	}
	return n, nil
}
