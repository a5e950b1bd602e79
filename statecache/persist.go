// Copyright (c) 2025 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package statecache

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/ethereum/go-ethereum/rlp"
	"github.com/golang/snappy"
	"github.com/google/renameio/v2"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/vechain/tally/tally"
)

// SupplementalFile holds the supplemental data in a state directory.
const SupplementalFile = "supplemental.dat"

var fileMagic = [4]byte{'T', 'L', 'Y', 'C'}

// SupplementalData is persisted next to the sub-cache files.
type SupplementalData struct {
	Score             tally.ChainScore
	LastRecalculation tally.Height
	TransactionsCount uint64
	CacheHeight       tally.Height
}

type supplementalRLP struct {
	ScoreHigh         uint64
	ScoreLow          uint64
	LastRecalculation tally.Height
	TransactionsCount uint64
	CacheHeight       tally.Height
}

// StateFileName returns the file holding the state of the named sub-cache.
func StateFileName(name string) string { return name + ".dat" }

// HasSerializedState reports whether dir holds saved state.
func HasSerializedState(dir string) bool {
	_, err := os.Stat(filepath.Join(dir, SupplementalFile))
	return err == nil
}

// SaveToDirectory writes view and supplemental into dir, one file per
// sub-cache. The cache height recorded is the height of the view.
func (c *Cache) SaveToDirectory(dir string, view *View, supplemental SupplementalData) error {
	start := time.Now()
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return errors.Wrap(err, "create state directory")
	}

	var g errgroup.Group
	for i, sub := range c.subs {
		g.Go(func() error {
			return errors.Wrapf(saveSubView(filepath.Join(dir, StateFileName(sub.Name())), sub.Version(), view.subs[i]), "save %v", sub.Name())
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	hi, lo := supplemental.Score.Halves()
	data, err := rlp.EncodeToBytes(&supplementalRLP{
		ScoreHigh:         hi,
		ScoreLow:          lo,
		LastRecalculation: supplemental.LastRecalculation,
		TransactionsCount: supplemental.TransactionsCount,
		CacheHeight:       view.height,
	})
	if err != nil {
		return err
	}
	if err := renameio.WriteFile(filepath.Join(dir, SupplementalFile), data, 0o600); err != nil {
		return errors.Wrap(err, "save supplemental data")
	}

	metricSaveDuration().Observe(time.Since(start).Milliseconds())
	logger.Info("state saved", "dir", dir, "height", view.height, "elapsed", time.Since(start))
	return nil
}

func saveSubView(path string, version uint16, view SubView) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o600)
	if err != nil {
		return err
	}
	defer f.Close()

	var header [6]byte
	copy(header[:], fileMagic[:])
	binary.BigEndian.PutUint16(header[4:], version)
	if _, err := f.Write(header[:]); err != nil {
		return err
	}

	w := snappy.NewBufferedWriter(f)
	if err := view.Save(w); err != nil {
		return err
	}
	if err := w.Close(); err != nil {
		return err
	}
	return f.Sync()
}

// LoadFromDirectory replaces the committed state with the one saved in dir and
// commits it at the saved cache height.
func (c *Cache) LoadFromDirectory(dir string) (SupplementalData, error) {
	c.mu.Lock()
	open := c.open
	c.mu.Unlock()
	if open != nil {
		return SupplementalData{}, errors.Wrap(ErrConcurrentDelta, "load")
	}

	data, err := os.ReadFile(filepath.Join(dir, SupplementalFile))
	if err != nil {
		return SupplementalData{}, errors.Wrapf(ErrCorruptedState, "read supplemental data: %v", err)
	}
	var sup supplementalRLP
	if err := rlp.DecodeBytes(data, &sup); err != nil {
		return SupplementalData{}, errors.Wrapf(ErrCorruptedState, "decode supplemental data: %v", err)
	}

	var g errgroup.Group
	for _, sub := range c.subs {
		g.Go(func() error {
			return loadSubCache(filepath.Join(dir, StateFileName(sub.Name())), sub)
		})
	}
	if err := g.Wait(); err != nil {
		return SupplementalData{}, err
	}

	c.mu.Lock()
	c.height = sup.CacheHeight
	c.mu.Unlock()

	logger.Info("state loaded", "dir", dir, "height", sup.CacheHeight)
	return SupplementalData{
		Score:             tally.NewChainScoreFromHalves(sup.ScoreHigh, sup.ScoreLow),
		LastRecalculation: sup.LastRecalculation,
		TransactionsCount: sup.TransactionsCount,
		CacheHeight:       sup.CacheHeight,
	}, nil
}

func loadSubCache(path string, sub SubCache) error {
	f, err := os.Open(path)
	if err != nil {
		return errors.Wrapf(ErrCorruptedState, "%v: %v", sub.Name(), err)
	}
	defer f.Close()

	r := bufio.NewReader(f)
	var header [6]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return errors.Wrapf(ErrCorruptedState, "%v: read header: %v", sub.Name(), err)
	}
	if !bytes.Equal(header[:4], fileMagic[:]) {
		return errors.Wrapf(ErrCorruptedState, "%v: bad magic", sub.Name())
	}
	if v := binary.BigEndian.Uint16(header[4:]); v != sub.Version() {
		return errors.Wrapf(ErrCorruptedState, "%v: version %d, want %d", sub.Name(), v, sub.Version())
	}

	if err := sub.Load(rlp.NewStream(snappy.NewReader(r), 0)); err != nil {
		return errors.Wrapf(ErrCorruptedState, "%v: %v", sub.Name(), err)
	}
	return nil
}

// StoragePolicy selects how cache and block storage heights must relate.
type StoragePolicy int

const (
	// FileStorage state is saved at checkpoints and may trail block storage.
	FileStorage StoragePolicy = iota
	// DatabaseStorage state is written on every commit and must match block storage.
	DatabaseStorage
)

// CheckHeights validates the loaded cache height against the block storage height.
func CheckHeights(cacheHeight, storageHeight tally.Height, policy StoragePolicy) error {
	if cacheHeight > storageHeight {
		return errors.Wrapf(ErrInconsistentHeight, "cache at %v is ahead of storage at %v", cacheHeight, storageHeight)
	}
	if policy == DatabaseStorage && cacheHeight != storageHeight {
		return errors.Wrapf(ErrInconsistentHeight, "cache database at %v, storage at %v", cacheHeight, storageHeight)
	}
	return nil
}
