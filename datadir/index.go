// Copyright (c) 2025 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package datadir

import (
	"encoding/binary"
	"os"

	"github.com/google/renameio/v2"
	"github.com/pkg/errors"
)

// ErrBadIndexFile is returned for index files of the wrong size.
var ErrBadIndexFile = errors.New("bad index file")

// IndexFile is a file holding a single uint64, replaced atomically on every write.
type IndexFile struct {
	path string
}

// NewIndexFile returns the index file at path.
func NewIndexFile(path string) IndexFile { return IndexFile{path} }

// Path returns the file path.
func (f IndexFile) Path() string { return f.path }

// Exists reports whether the file exists.
func (f IndexFile) Exists() bool {
	_, err := os.Stat(f.path)
	return err == nil
}

// Get returns the value, zero when the file does not exist.
func (f IndexFile) Get() (uint64, error) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, err
	}
	if len(data) != 8 {
		return 0, errors.Wrapf(ErrBadIndexFile, "%v: %d bytes", f.path, len(data))
	}
	return binary.LittleEndian.Uint64(data), nil
}

// Set writes value.
func (f IndexFile) Set(value uint64) error {
	var data [8]byte
	binary.LittleEndian.PutUint64(data[:], value)
	return errors.Wrapf(renameio.WriteFile(f.path, data[:], 0o600), "write %v", f.path)
}

// Increment adds one to the value and returns the value before.
func (f IndexFile) Increment() (uint64, error) {
	v, err := f.Get()
	if err != nil {
		return 0, err
	}
	return v, f.Set(v + 1)
}

// Remove deletes the file. A missing file is not an error.
func (f IndexFile) Remove() error {
	if err := os.Remove(f.path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
