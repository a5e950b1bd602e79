// Copyright (c) 2025 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package recovery

import (
	"github.com/pkg/errors"

	"github.com/vechain/tally/checkpoint"
	"github.com/vechain/tally/datadir"
	"github.com/vechain/tally/spool"
)

// Message queues written by the ledger.
const (
	QueueBlockChange          = "block_change"
	QueueTransactionStatus    = "transaction_status"
	QueueStateChange          = "state_change"
	QueueUnconfirmedTxsChange = "unconfirmed_transactions_change"
)

// Reader is the queue reader recovery drains messages as.
const Reader = "broker"

// Sink receives the messages still pending in the queues.
type Sink interface {
	Consume(queue string, index uint64, msg []byte) error
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(queue string, index uint64, msg []byte) error

// Consume implements Sink.
func (f SinkFunc) Consume(queue string, index uint64, msg []byte) error { return f(queue, index, msg) }

// RepairSpooling makes the message queues consistent with step.
//
// Block change and transaction status messages are always delivered. State
// change messages are delivered when the state they describe was written and
// dropped otherwise. Unconfirmed transaction changes never survive a restart.
func RepairSpooling(dir datadir.Dir, step checkpoint.Step, sink Sink) error {
	unconfirmed, err := spool.Open(dir.SpoolDir(QueueUnconfirmedTxsChange))
	if err != nil {
		return err
	}
	if err := unconfirmed.Purge(); err != nil {
		return errors.Wrap(err, "purge unconfirmed transactions")
	}

	for _, name := range []string{QueueBlockChange, QueueTransactionStatus} {
		if err := drain(dir, name, sink); err != nil {
			return err
		}
	}
	if step == checkpoint.BlocksWritten {
		q, err := spool.Open(dir.SpoolDir(QueueStateChange))
		if err != nil {
			return err
		}
		logger.Debug("purging state changes", "step", step)
		return errors.Wrap(q.Purge(), "purge state changes")
	}
	return drain(dir, QueueStateChange, sink)
}

func drain(dir datadir.Dir, name string, sink Sink) error {
	q, err := spool.Open(dir.SpoolDir(name))
	if err != nil {
		return err
	}
	if sink == nil {
		if err := q.ResetReader(Reader); err != nil {
			return err
		}
	} else {
		n, err := q.ReadFrom(Reader, func(index uint64, msg []byte) error {
			return sink.Consume(name, index, msg)
		})
		if err != nil {
			return errors.WithMessagef(err, "drain %v", name)
		}
		if n > 0 {
			logger.Info("delivered pending messages", "queue", name, "count", n)
		}
	}
	_, err = q.DeleteConsumed(Reader)
	return err
}
