// Copyright (c) 2025 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package statecache

import (
	"io"

	"github.com/ethereum/go-ethereum/rlp"
	"github.com/vechain/tally/tally"
)

// SubCache is one independently typed store composed into a Cache.
type SubCache interface {
	// Name identifies the sub-cache and names its state file.
	Name() string
	// Version is written into the state file and checked on load.
	Version() uint16
	// NewView returns a read handle over the committed state.
	NewView() SubView
	// NewDelta returns a mutable overlay over the committed state.
	NewDelta(height tally.Height) SubDelta
	// Load replaces the committed state with the records read from s.
	Load(s *rlp.Stream) error
}

// SubView is an immutable handle over the committed state of a sub-cache.
type SubView interface {
	// MerkleRoot returns the state root, or false if the sub-cache has none.
	MerkleRoot() (tally.Bytes32, bool)
	// Save writes the state as a sequence of RLP records.
	Save(w io.Writer) error
}

// SubDelta holds uncommitted changes of a sub-cache.
//
// Commit runs Prepare on every delta, then Persist on every delta, then Apply
// on every delta. Prepare and Persist may fail and must leave the committed
// state untouched. Apply cannot fail.
type SubDelta interface {
	MerkleRoot() (tally.Bytes32, bool)
	Prepare(height tally.Height) error
	Persist() error
	Apply()
}

// discarder is implemented by sub-deltas that hand out references which must
// stop working once the owning delta is discarded.
type discarder interface {
	Discard()
}
