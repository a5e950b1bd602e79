// Copyright (c) 2025 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package chain validates and applies batches of blocks on top of a parent.
package chain

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/vechain/tally/block"
	"github.com/vechain/tally/difficultycache"
	"github.com/vechain/tally/log"
	"github.com/vechain/tally/model"
	"github.com/vechain/tally/observers"
	"github.com/vechain/tally/statecache"
	"github.com/vechain/tally/tally"
	"github.com/vechain/tally/validation"
)

var logger = log.WithContext("pkg", "chain")

// EntityProcessor applies the entities of one block to the state.
// A non-nil error is an invariant violation rather than an invalid block.
type EntityProcessor interface {
	Process(height tally.Height, timestamp tally.Timestamp, entities []model.Entity, state observers.State) (validation.Result, error)
}

// Options configure the optional checks of a Processor.
type Options struct {
	// VerifiableState checks the state hash of every block.
	VerifiableState bool
	// VerifiableReceipts checks the receipts hash of every block.
	VerifiableReceipts bool
	// VerifySignatures checks the signer of every block against its signature.
	VerifySignatures bool
	// BlockTargetSeconds, when set, checks every block difficulty against the
	// one calculated from the difficulty history.
	BlockTargetSeconds uint64
}

// Processor validates contiguous blocks and applies them to a delta.
type Processor struct {
	hit      HitPredicate
	entities EntityProcessor
	opts     Options
}

// NewProcessor creates a processor.
func NewProcessor(hit HitPredicate, entities EntityProcessor, opts Options) *Processor {
	return &Processor{hit: hit, entities: entities, opts: opts}
}

// Process validates elements on top of parent and applies them to delta.
//
// The elements get their generation hash set, and when verified, their
// sub-cache merkle roots and statement. On any result other than Success, or
// on error, the delta holds partial changes and must be discarded.
func (p *Processor) Process(ctx context.Context, parent *block.Element, elements []*block.Element, delta *statecache.Delta) (validation.Result, error) {
	if len(elements) == 0 {
		return validation.Neutral, nil
	}
	if r := checkLinks(parent, elements); !r.IsSuccess() {
		p.reject(elements[0], Idle, r)
		return r, nil
	}

	start := time.Now()
	prev := parent
	for _, el := range elements {
		if err := ctx.Err(); err != nil {
			return validation.Failure, err
		}
		stage, r, err := p.processBlock(prev, el, delta)
		if err != nil {
			return validation.Failure, errors.WithMessagef(err, "block %v", el.Height())
		}
		if !r.IsSuccess() {
			p.reject(el, stage, r)
			return r, nil
		}
		metricProcessedBlocks().AddWithLabel(1, map[string]string{"result": r.String()})
		prev = el
	}

	metricBatchSize().Observe(int64(len(elements)))
	metricProcessDuration().Observe(time.Since(start).Milliseconds())
	logger.Debug("processed blocks",
		"from", elements[0].Height(),
		"to", prev.Height(),
		"stage", Committed,
		"elapsed", time.Since(start))
	return validation.Success, nil
}

func (p *Processor) reject(el *block.Element, stage Stage, r validation.Result) {
	metricProcessedBlocks().AddWithLabel(1, map[string]string{"result": r.String()})
	metricRejectedBlocks().AddWithLabel(1, map[string]string{"stage": stage.String()})
	logger.Debug("block rejected",
		"height", el.Height(),
		"id", el.ID.AbbrevString(),
		"stage", stage,
		"result", r,
		"next", Rejected)
}

// checkLinks checks that every element follows the one before it.
func checkLinks(parent *block.Element, elements []*block.Element) validation.Result {
	prev := parent.Header()
	prevID := parent.ID
	for _, el := range elements {
		header := el.Header()
		switch {
		case header.Height() != prev.Height()+1:
			return validation.ChainUnlinked
		case header.PreviousBlockHash() != prevID:
			return validation.ChainUnlinked
		case header.Timestamp() <= prev.Timestamp():
			return validation.InvalidTimestamp
		}
		prev, prevID = header, el.ID
	}
	return validation.Success
}

// processBlock runs the stages of one block, returning the last stage reached.
func (p *Processor) processBlock(parent, el *block.Element, delta *statecache.Delta) (Stage, validation.Result, error) {
	header := el.Header()

	if p.opts.VerifySignatures {
		if err := header.Verify(); err != nil {
			return HitChecking, validation.InvalidSignature, nil
		}
	}
	if p.opts.BlockTargetSeconds > 0 {
		difficulties, err := statecache.DeltaOf[*difficultycache.Delta](delta)
		if err != nil {
			return HitChecking, validation.Failure, err
		}
		expected, err := NextDifficulty(difficulties, header.Height(), p.opts.BlockTargetSeconds)
		if err != nil {
			return HitChecking, validation.Failure, err
		}
		if header.Difficulty() != expected {
			return HitChecking, validation.InvalidDifficulty, nil
		}
	}
	el.GenerationHash = block.GenerationHash(parent.GenerationHash, header.Signer())
	if !p.hit.IsHit(HitContext{
		Parent:         parent.Header(),
		Header:         header,
		GenerationHash: el.GenerationHash,
		Delta:          delta,
	}) {
		return HitChecking, validation.BlockNotHit, nil
	}

	statement := new(block.StatementBuilder)
	r, err := p.entities.Process(header.Height(), header.Timestamp(), model.ExtractEntities(el), observers.State{
		Delta:     delta,
		Statement: statement,
	})
	if err != nil || !r.IsSuccess() {
		return Applying, r, err
	}

	defer delta.ClearMerkleRoots()
	if p.opts.VerifiableState {
		info := delta.CalculateStateHash()
		if info.StateHash != header.StateHash() {
			return HashVerifying, validation.InconsistentStateHash, nil
		}
		el.SubCacheMerkleRoots = info.SubCacheMerkleRoots
	}
	if p.opts.VerifiableReceipts {
		stmt := statement.Build()
		if stmt.Hash() != header.ReceiptsHash() {
			return HashVerifying, validation.InconsistentReceiptsHash, nil
		}
		el.Statement = stmt
	}
	return Committed, validation.Success, nil
}
