// Copyright (c) 2025 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package observers

import (
	"github.com/pkg/errors"

	"github.com/vechain/tally/model"
	"github.com/vechain/tally/tally"
	"github.com/vechain/tally/validation"
)

// BatchEntityProcessor applies the entities of a block to the state.
// It holds no state of its own and may be invoked for any number of blocks.
type BatchEntityProcessor struct {
	publisher  model.Publisher
	validators ValidatorPipeline
	observers  ObserverPipeline
}

// NewBatchEntityProcessor creates a processor.
func NewBatchEntityProcessor(publisher model.Publisher, validators ValidatorPipeline, observers ObserverPipeline) *BatchEntityProcessor {
	return &BatchEntityProcessor{publisher, validators, observers}
}

// Process validates and applies entities in order. Each notification is
// validated against the state left by the ones before it.
//
// A non-success result leaves the state partially changed; the caller must
// discard it. A non-nil error means an observer broke an invariant.
func (p *BatchEntityProcessor) Process(height tally.Height, timestamp tally.Timestamp, entities []model.Entity, st State) (validation.Result, error) {
	ctx, err := NewContext(height, timestamp, Commit, st)
	if err != nil {
		return validation.Failure, err
	}
	for _, e := range entities {
		for _, n := range p.publisher.Publish(e) {
			if r := p.validators.Validate(n, ctx); !r.IsSuccess() {
				return r, nil
			}
			if err := p.observers.Notify(n, ctx); err != nil {
				return validation.Failure, errors.Wrapf(err, "height %v entity %v", height, e.Hash.AbbrevString())
			}
		}
	}
	return validation.Success, nil
}

// Rollback undoes entities previously applied at height, in reverse order.
func (p *BatchEntityProcessor) Rollback(height tally.Height, timestamp tally.Timestamp, entities []model.Entity, st State) error {
	ctx, err := NewContext(height, timestamp, Rollback, st)
	if err != nil {
		return err
	}
	for i := len(entities) - 1; i >= 0; i-- {
		notifications := p.publisher.Publish(entities[i])
		for j := len(notifications) - 1; j >= 0; j-- {
			if err := p.observers.Notify(notifications[j], ctx); err != nil {
				return errors.Wrapf(err, "rollback height %v", height)
			}
		}
	}
	return ctx.CommitRemovals()
}
