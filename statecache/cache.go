// Copyright (c) 2025 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package statecache composes sub-caches into one state with immutable views,
// a single mutable delta and atomic commits.
package statecache

import (
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/vechain/tally/log"
	"github.com/vechain/tally/tally"
)

var logger = log.WithContext("pkg", "statecache")

// Cache is the committed state made of a fixed set of sub-caches.
type Cache struct {
	subs []SubCache

	mu     sync.Mutex
	height tally.Height
	open   *Delta
}

// New creates a cache from sub-caches. Their order is the order of the state
// hash and of commit application.
func New(subs ...SubCache) *Cache {
	names := make(map[string]bool, len(subs))
	for _, sub := range subs {
		if names[sub.Name()] {
			panic("statecache: duplicate sub-cache " + sub.Name())
		}
		names[sub.Name()] = true
	}
	return &Cache{subs: subs}
}

// Height returns the committed height.
func (c *Cache) Height() tally.Height {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.height
}

// CreateView returns an immutable view of the committed state.
func (c *Cache) CreateView() *View {
	c.mu.Lock()
	defer c.mu.Unlock()

	v := &View{height: c.height, subs: make([]SubView, 0, len(c.subs))}
	for _, sub := range c.subs {
		v.subs = append(v.subs, sub.NewView())
	}
	return v
}

// CreateViewAt returns a view of the committed state if it is at height.
// Sub-caches keep no per-height history, so any other height is unavailable.
func (c *Cache) CreateViewAt(height tally.Height) (*View, error) {
	v := c.CreateView()
	if v.height != height {
		return nil, errors.Wrapf(ErrHeightUnavailable, "want %v, committed %v", height, v.height)
	}
	return v, nil
}

// CreateDelta opens the delta used to build the given height.
func (c *Cache) CreateDelta(height tally.Height) (*Delta, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.open != nil {
		return nil, errors.Wrapf(ErrConcurrentDelta, "open at %v", c.open.height)
	}
	d := &Delta{cache: c, height: height, subs: make([]SubDelta, 0, len(c.subs))}
	for _, sub := range c.subs {
		d.subs = append(d.subs, sub.NewDelta(height))
	}
	c.open = d
	return d, nil
}

func (c *Cache) release(d *Delta) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.open == d {
		c.open = nil
	}
}

// Commit folds the open delta into the committed state at height.
//
// Every sub-cache prepares and persists its changes before any of them is
// applied, so a failure leaves the committed state as it was and the delta
// open for the caller to discard.
func (c *Cache) Commit(height tally.Height) error {
	c.mu.Lock()
	d := c.open
	c.mu.Unlock()
	if d == nil {
		return errors.Wrap(ErrDeltaClosed, "commit")
	}
	if height != d.height {
		return errors.Wrapf(ErrHeightMismatch, "delta at %v, commit at %v", d.height, height)
	}

	start := time.Now()
	for i, sub := range d.subs {
		if err := sub.Prepare(height); err != nil {
			return errors.Wrapf(err, "prepare %v", c.subs[i].Name())
		}
	}
	for i, sub := range d.subs {
		if err := sub.Persist(); err != nil {
			return errors.Wrapf(err, "persist %v", c.subs[i].Name())
		}
	}

	c.mu.Lock()
	for _, sub := range d.subs {
		sub.Apply()
	}
	c.height = height
	c.open = nil
	d.closed = true
	c.mu.Unlock()

	elapsed := time.Since(start)
	metricCommitCount().Add(1)
	metricCommitDuration().Observe(elapsed.Milliseconds())
	logger.Debug("committed", "height", height, "elapsed", elapsed)
	return nil
}

// subCache returns the sub-cache named name.
func (c *Cache) subCache(name string) (SubCache, bool) {
	for _, sub := range c.subs {
		if sub.Name() == name {
			return sub, true
		}
	}
	return nil, false
}
