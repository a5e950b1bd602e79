// Copyright (c) 2025 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package recovery brings the state back in line with block storage on start.
package recovery

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/vechain/tally/accountcache"
	"github.com/vechain/tally/block"
	"github.com/vechain/tally/blockstore"
	"github.com/vechain/tally/chain"
	"github.com/vechain/tally/checkpoint"
	"github.com/vechain/tally/datadir"
	"github.com/vechain/tally/genesis"
	"github.com/vechain/tally/log"
	"github.com/vechain/tally/statecache"
	"github.com/vechain/tally/tally"
	"github.com/vechain/tally/validation"
)

var logger = log.WithContext("pkg", "recovery")

// ErrReplayRejected is returned when a stored block fails to replay.
var ErrReplayRejected = errors.New("stored block rejected during replay")

// Orchestrator runs the recovery steps against the node components.
type Orchestrator struct {
	Dir       datadir.Dir
	Cache     *statecache.Cache
	Store     *blockstore.Store
	Processor *chain.Processor
	Entities  chain.EntityProcessor

	// Accounts is the database backed account cache, required with DatabaseStorage.
	Accounts *accountcache.Cache
	Policy   statecache.StoragePolicy

	// Nemesis returns the nemesis element used when block storage is empty.
	Nemesis func() (*block.Element, error)
	Genesis genesis.Options

	// Sink receives pending queue messages. Without one they are skipped.
	Sink Sink
	// BatchSize bounds the number of blocks replayed per delta.
	BatchSize int
	// Progress, when set, is told about replay progress.
	Progress func(done, total uint64)
}

// Result is the recovered state.
type Result struct {
	Step         checkpoint.Step
	Supplemental statecache.SupplementalData
	Replayed     int
}

// Recover repairs the data directory and loads the state up to the storage height.
func (o *Orchestrator) Recover(ctx context.Context) (Result, error) {
	start := time.Now()
	marker := checkpoint.NewMarker(o.Dir)
	step, err := marker.Read()
	if err != nil {
		return Result{}, err
	}
	res := Result{Step: step}

	logger.Info("repairing spooling", "step", step)
	if err := RepairSpooling(o.Dir, step, o.Sink); err != nil {
		return Result{}, err
	}

	logger.Info("loading state")
	sup, err := o.loadState()
	if err != nil {
		return Result{}, err
	}
	res.Supplemental = sup

	// A crash between saving blocks and saving the state leaves the state
	// behind block storage in either policy. Replay closes the gap.
	storageHeight := o.Store.ChainHeight()
	if err := statecache.CheckHeights(sup.CacheHeight, storageHeight, statecache.FileStorage); err != nil {
		return Result{}, err
	}
	if sup.CacheHeight < storageHeight {
		replayed, err := o.replay(ctx, &res.Supplemental, storageHeight)
		if err != nil {
			return Result{}, err
		}
		res.Replayed = replayed
	}
	if err := statecache.CheckHeights(o.Cache.Height(), storageHeight, o.Policy); err != nil {
		return Result{}, err
	}
	logger.Info("loaded chain", "height", o.Cache.Height(), "score", res.Supplemental.Score)

	logger.Info("repairing state", "step", step)
	if err := checkpoint.RepairState(o.Dir, step); err != nil {
		return Result{}, err
	}
	if err := marker.Reset(); err != nil {
		return Result{}, err
	}
	logger.Info("recovery complete", "elapsed", time.Since(start))
	return res, nil
}

// loadState loads the saved state, or executes the nemesis block when there is none.
func (o *Orchestrator) loadState() (statecache.SupplementalData, error) {
	stateDir := o.Dir.Sub(datadir.StateDir)
	if !statecache.HasSerializedState(stateDir) {
		return o.executeNemesis()
	}
	sup, err := o.Cache.LoadFromDirectory(stateDir)
	if err != nil {
		return statecache.SupplementalData{}, err
	}
	if o.Policy != statecache.DatabaseStorage {
		return sup, nil
	}
	if o.Accounts == nil || o.Accounts.Store() == nil {
		return statecache.SupplementalData{}, errors.New("database storage without account database")
	}
	height, found, err := accountcache.StoreHeight(o.Accounts.Store())
	if err != nil {
		return statecache.SupplementalData{}, errors.WithMessage(err, "load accounts")
	}
	if found && height == sup.CacheHeight {
		if _, err := o.Accounts.LoadFromStore(); err != nil {
			return statecache.SupplementalData{}, errors.WithMessage(err, "load accounts")
		}
		return sup, nil
	}
	// the state files are authoritative, the store may be ahead of them
	logger.Warn("account database out of sync", "database", height, "state", sup.CacheHeight)
	if err := o.Accounts.SyncStore(sup.CacheHeight); err != nil {
		return statecache.SupplementalData{}, errors.WithMessage(err, "sync accounts")
	}
	return sup, nil
}

func (o *Orchestrator) executeNemesis() (statecache.SupplementalData, error) {
	var (
		el  *block.Element
		err error
	)
	if o.Store.ChainHeight() >= genesis.Height {
		el, err = o.Store.LoadBlockElement(genesis.Height)
	} else {
		if o.Nemesis == nil {
			return statecache.SupplementalData{}, errors.New("no state and no nemesis block")
		}
		el, err = o.Nemesis()
	}
	if err != nil {
		return statecache.SupplementalData{}, errors.WithMessage(err, "load nemesis")
	}
	logger.Info("executing nemesis block", "id", el.ID)
	if err := genesis.Execute(o.Cache, o.Entities, el, o.Genesis); err != nil {
		return statecache.SupplementalData{}, err
	}
	if o.Store.ChainHeight() == 0 {
		if err := o.Store.SaveBlocks([]*block.Element{el}); err != nil {
			return statecache.SupplementalData{}, err
		}
	}
	return statecache.SupplementalData{
		Score:             tally.NewChainScore(1),
		TransactionsCount: uint64(len(el.TransactionHashes)),
		CacheHeight:       genesis.Height,
	}, nil
}

// replay applies the stored blocks above the cache height.
func (o *Orchestrator) replay(ctx context.Context, sup *statecache.SupplementalData, to tally.Height) (int, error) {
	from := o.Cache.Height() + 1
	total := uint64(to - from + 1)
	logger.Info("replaying blocks", "from", from, "to", to)

	parent, err := o.Store.LoadBlockElement(from - 1)
	if err != nil {
		return 0, err
	}
	batchSize := max(o.BatchSize, 1)
	replayed := 0
	for next := from; next <= to; {
		end := min(to, next+tally.Height(batchSize)-1)
		elements := make([]*block.Element, 0, end-next+1)
		for h := next; h <= end; h++ {
			el, err := o.Store.LoadBlockElement(h)
			if err != nil {
				return replayed, err
			}
			elements = append(elements, el)
		}

		if err := o.applyBatch(ctx, parent, elements, sup); err != nil {
			return replayed, err
		}
		replayed += len(elements)
		metricReplayedBlocks().Set(int64(replayed))
		if o.Progress != nil {
			o.Progress(uint64(replayed), total)
		}
		parent = elements[len(elements)-1]
		next = end + 1
	}
	return replayed, nil
}

func (o *Orchestrator) applyBatch(ctx context.Context, parent *block.Element, elements []*block.Element, sup *statecache.SupplementalData) error {
	height := elements[len(elements)-1].Height()
	delta, err := o.Cache.CreateDelta(height)
	if err != nil {
		return err
	}
	r, err := o.Processor.Process(ctx, parent, elements, delta)
	if err != nil || r != validation.Success {
		delta.Discard()
		if err != nil {
			return err
		}
		return errors.Wrapf(ErrReplayRejected, "batch %v-%v: %v", elements[0].Height(), height, r)
	}
	if err := o.Cache.Commit(height); err != nil {
		delta.Discard()
		return err
	}

	prev := parent.Header()
	for _, el := range elements {
		sup.Score = sup.Score.AddUint64(chain.CalculateScore(prev, el.Header()))
		sup.TransactionsCount += uint64(len(el.TransactionHashes))
		prev = el.Header()
	}
	sup.CacheHeight = height
	return nil
}
