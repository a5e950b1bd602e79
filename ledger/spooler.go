// Copyright (c) 2025 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package ledger

import (
	"path/filepath"

	"github.com/ethereum/go-ethereum/rlp"
	"github.com/pkg/errors"

	"github.com/vechain/tally/block"
	"github.com/vechain/tally/datadir"
	"github.com/vechain/tally/recovery"
	"github.com/vechain/tally/spool"
	"github.com/vechain/tally/statecache"
	"github.com/vechain/tally/tally"
	"github.com/vechain/tally/validation"
)

// BlockChange is written to the block change queue for every applied block.
type BlockChange struct {
	Height         tally.Height
	ID             tally.Bytes32
	GenerationHash tally.Bytes32
}

// StateChange is written to the state change queue after every applied batch.
type StateChange struct {
	Height    tally.Height
	StateHash tally.Bytes32
}

// TransactionStatus is written when a batch is rejected.
type TransactionStatus struct {
	Height tally.Height
	ID     tally.Bytes32
	Result uint32
}

type spooler struct {
	blocks *spool.Queue
	states *spool.Queue
	status *spool.Queue
}

func openSpooler(dir datadir.Dir) (*spooler, error) {
	var s spooler
	for name, q := range map[string]**spool.Queue{
		recovery.QueueBlockChange:       &s.blocks,
		recovery.QueueStateChange:       &s.states,
		recovery.QueueTransactionStatus: &s.status,
	} {
		var err error
		if *q, err = spool.Open(dir.SpoolDir(name)); err != nil {
			return nil, err
		}
	}
	return &s, nil
}

func appendMessage(q *spool.Queue, msg any) error {
	data, err := rlp.EncodeToBytes(msg)
	if err != nil {
		return err
	}
	if err := q.Append(data); err != nil {
		return errors.Wrap(err, "spool message")
	}
	if n, err := q.WriterIndex(); err == nil {
		metricSpooled().SetWithLabel(int64(n), map[string]string{"queue": filepath.Base(q.Dir())})
	}
	return nil
}

func (s *spooler) applied(elements []*block.Element, view *statecache.View) error {
	for _, el := range elements {
		if err := appendMessage(s.blocks, &BlockChange{el.Height(), el.ID, el.GenerationHash}); err != nil {
			return err
		}
	}
	return appendMessage(s.states, &StateChange{view.Height(), view.CalculateStateHash().StateHash})
}

// rejected records a rejection. Failing to spool it is only logged.
func (s *spooler) rejected(first *block.Element, r validation.Result) {
	if err := appendMessage(s.status, &TransactionStatus{first.Height(), first.ID, uint32(r)}); err != nil {
		logger.Warn("failed to spool rejection", "height", first.Height(), "err", err)
	}
}
