// Copyright (c) 2025 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package datadir lays out the files of a node data directory.
package datadir

import (
	"os"
	"path/filepath"

	"github.com/pkg/errors"
)

const (
	// StateDir holds the last saved state.
	StateDir = "state"
	// StateTempDir stages a state being saved.
	StateTempDir = "state.tmp"
	// DatabaseDir holds the block store and the account database.
	DatabaseDir = "db"
	spoolDir    = "spool"
)

// Dir is a data directory.
type Dir struct {
	root string
}

// New prepares the data directory at root.
func New(root string) (Dir, error) {
	if err := os.MkdirAll(filepath.Join(root, spoolDir), 0o700); err != nil {
		return Dir{}, errors.Wrap(err, "create data directory")
	}
	return Dir{root}, nil
}

// Root returns the path of the directory.
func (d Dir) Root() string { return d.root }

// File returns the path of a file in the root.
func (d Dir) File(name string) string { return filepath.Join(d.root, name) }

// Sub returns the path of a sub directory.
func (d Dir) Sub(name string) string { return filepath.Join(d.root, name) }

// SpoolDir returns the directory of a message queue.
func (d Dir) SpoolDir(queue string) string { return filepath.Join(d.root, spoolDir, queue) }

// PurgeDirectory removes everything inside path. A missing path is not an error.
func PurgeDirectory(path string) error {
	entries, err := os.ReadDir(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	for _, e := range entries {
		if err := os.RemoveAll(filepath.Join(path, e.Name())); err != nil {
			return err
		}
	}
	return nil
}

// MoveDirectory replaces dst with src.
func MoveDirectory(src, dst string) error {
	if err := os.RemoveAll(dst); err != nil {
		return errors.Wrapf(err, "remove %v", dst)
	}
	return errors.Wrapf(os.Rename(src, dst), "move %v", src)
}
