// Copyright (c) 2025 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package observers validates notifications and applies them to the state.
package observers

import (
	"github.com/vechain/tally/accountcache"
	"github.com/vechain/tally/block"
	"github.com/vechain/tally/difficultycache"
	"github.com/vechain/tally/hashcache"
	"github.com/vechain/tally/statecache"
	"github.com/vechain/tally/tally"
)

// Mode is the direction notifications are applied in.
type Mode int

const (
	// Commit applies notifications.
	Commit Mode = iota
	// Rollback undoes notifications, which are then seen in reverse order.
	Rollback
)

func (m Mode) String() string {
	if m == Rollback {
		return "rollback"
	}
	return "commit"
}

// State is the mutable state entities are applied to.
type State struct {
	Delta     *statecache.Delta
	Statement *block.StatementBuilder
}

// Context is passed to every validator and observer.
type Context struct {
	Height    tally.Height
	Timestamp tally.Timestamp
	Mode      Mode

	Accounts   *accountcache.Delta
	Difficulty *difficultycache.Delta
	Hashes     *hashcache.Delta
	Statement  *block.StatementBuilder

	removals []tally.Address
}

// NewContext resolves the sub-cache deltas of state.
func NewContext(height tally.Height, timestamp tally.Timestamp, mode Mode, state State) (*Context, error) {
	accounts, err := statecache.DeltaOf[*accountcache.Delta](state.Delta)
	if err != nil {
		return nil, err
	}
	difficulty, err := statecache.DeltaOf[*difficultycache.Delta](state.Delta)
	if err != nil {
		return nil, err
	}
	hashes, err := statecache.DeltaOf[*hashcache.Delta](state.Delta)
	if err != nil {
		return nil, err
	}
	statement := state.Statement
	if statement == nil {
		statement = new(block.StatementBuilder)
	}
	return &Context{
		Height:     height,
		Timestamp:  timestamp,
		Mode:       mode,
		Accounts:   accounts,
		Difficulty: difficulty,
		Hashes:     hashes,
		Statement:  statement,
	}, nil
}

// QueueRemove schedules an account removal for the end of a rollback, when no
// notification can refer to it anymore.
func (c *Context) QueueRemove(addr tally.Address) {
	c.removals = append(c.removals, addr)
}

// CommitRemovals removes the queued accounts.
func (c *Context) CommitRemovals() error {
	for _, addr := range c.removals {
		if !c.Accounts.Contains(addr) {
			continue
		}
		if err := c.Accounts.Remove(addr); err != nil {
			return err
		}
	}
	c.removals = nil
	return nil
}
