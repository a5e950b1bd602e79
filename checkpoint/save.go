// Copyright (c) 2025 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package checkpoint

import (
	"github.com/pkg/errors"

	"github.com/vechain/tally/datadir"
	"github.com/vechain/tally/log"
	"github.com/vechain/tally/statecache"
)

var logger = log.WithContext("pkg", "checkpoint")

// SaveWithCheckpointing saves view into the state directory of dir. Blocks up
// to the view height must already be stored.
//
// The state is serialized to the staging directory and moved into place, with
// the marker recording each step so a crash at any point is recoverable.
func SaveWithCheckpointing(dir datadir.Dir, cache *statecache.Cache, view *statecache.View, supplemental statecache.SupplementalData) error {
	marker := NewMarker(dir)
	tmp := dir.Sub(datadir.StateTempDir)

	if err := marker.Write(BlocksWritten); err != nil {
		return err
	}
	if err := datadir.PurgeDirectory(tmp); err != nil {
		return errors.Wrap(err, "purge staging directory")
	}
	if err := cache.SaveToDirectory(tmp, view, supplemental); err != nil {
		return errors.WithMessage(err, "save state")
	}
	if err := marker.Write(StateWritten); err != nil {
		return err
	}
	if err := datadir.MoveDirectory(tmp, dir.Sub(datadir.StateDir)); err != nil {
		return err
	}
	if err := marker.Write(AllUpdated); err != nil {
		return err
	}
	logger.Debug("checkpoint complete", "height", view.Height())
	return nil
}

// RepairState finishes or abandons an interrupted save according to step.
// A save that reached StateWritten is moved into place, any other staged
// state is purged.
func RepairState(dir datadir.Dir, step Step) error {
	tmp := dir.Sub(datadir.StateTempDir)
	if step != StateWritten {
		logger.Debug("purging staged state", "step", step)
		return datadir.PurgeDirectory(tmp)
	}
	if !statecache.HasSerializedState(tmp) {
		// the move completed before the marker was updated
		if statecache.HasSerializedState(dir.Sub(datadir.StateDir)) {
			return nil
		}
		return errors.Wrapf(statecache.ErrCorruptedState, "no staged state at %v", step)
	}
	logger.Info("moving staged state into place")
	return datadir.MoveDirectory(tmp, dir.Sub(datadir.StateDir))
}
