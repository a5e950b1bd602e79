// Copyright (c) 2025 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package checkpoint brackets state persistence with a commit step marker so
// an interrupted save is detected and repaired on the next start.
package checkpoint

import (
	"fmt"

	"github.com/pkg/errors"

	"github.com/vechain/tally/datadir"
)

// MarkerFile is the name of the commit step file in the data directory root.
const MarkerFile = "commit_step.dat"

// Step is the progress of a save.
type Step uint64

const (
	// BlocksWritten means blocks are stored but the state save has not finished.
	BlocksWritten Step = iota
	// StateWritten means the new state is complete in the staging directory.
	StateWritten
	// AllUpdated means the last save completed.
	AllUpdated
)

func (s Step) String() string {
	switch s {
	case BlocksWritten:
		return "Blocks_Written"
	case StateWritten:
		return "State_Written"
	case AllUpdated:
		return "All_Updated"
	}
	return fmt.Sprintf("Step(%d)", uint64(s))
}

// ErrInvalidStep is returned when the marker holds an unknown step.
var ErrInvalidStep = errors.New("invalid commit step")

// Marker is the commit step file.
type Marker struct {
	file datadir.IndexFile
}

// NewMarker returns the marker of dir.
func NewMarker(dir datadir.Dir) Marker {
	return Marker{datadir.NewIndexFile(dir.File(MarkerFile))}
}

// Exists reports whether a step is recorded.
func (m Marker) Exists() bool { return m.file.Exists() }

// Read returns the recorded step. Without a marker the last save is complete.
func (m Marker) Read() (Step, error) {
	if !m.file.Exists() {
		return AllUpdated, nil
	}
	v, err := m.file.Get()
	if err != nil {
		return 0, err
	}
	if s := Step(v); s <= AllUpdated {
		return s, nil
	}
	return 0, errors.Wrapf(ErrInvalidStep, "%d", v)
}

// Write records step.
func (m Marker) Write(step Step) error {
	return errors.WithMessagef(m.file.Set(uint64(step)), "write %v", step)
}

// Reset removes the marker, leaving a clean state.
func (m Marker) Reset() error { return m.file.Remove() }
