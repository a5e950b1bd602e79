// Copyright (c) 2025 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package ledger owns the state of a node: block storage, the state cache and
// the processors that move it forward.
package ledger

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/vechain/tally/accountcache"
	"github.com/vechain/tally/block"
	"github.com/vechain/tally/blockstore"
	"github.com/vechain/tally/chain"
	"github.com/vechain/tally/checkpoint"
	"github.com/vechain/tally/config"
	"github.com/vechain/tally/datadir"
	"github.com/vechain/tally/difficultycache"
	"github.com/vechain/tally/genesis"
	"github.com/vechain/tally/hashcache"
	"github.com/vechain/tally/kv"
	"github.com/vechain/tally/log"
	"github.com/vechain/tally/model"
	"github.com/vechain/tally/observers"
	"github.com/vechain/tally/recovery"
	"github.com/vechain/tally/statecache"
	"github.com/vechain/tally/tally"
	"github.com/vechain/tally/validation"
)

var logger = log.WithContext("pkg", "ledger")

// ErrClosed is returned by operations on a closed ledger.
var ErrClosed = errors.New("ledger closed")

// Options are the parts of a ledger that do not come from the configuration.
type Options struct {
	// Nemesis supplies the nemesis block when block storage is empty.
	Nemesis func() (*block.Element, error)
	// Hit overrides the default balance based hit predicate.
	Hit chain.HitPredicate
	// Sink receives queue messages left pending by the previous run.
	Sink recovery.Sink
	// Progress reports block replay during recovery.
	Progress func(done, total uint64)
	// InMemory keeps blocks and accounts in memory instead of leveldb.
	InMemory bool
	// DB, when set, is used instead of opening a database. The ledger closes it.
	DB kv.Store
	// ReadOnly skips saving the recovered state, leaving the state files as found.
	ReadOnly bool
}

// Ledger is the state of one node. Every instance is independent.
type Ledger struct {
	cfg       config.Config
	dir       datadir.Dir
	db        kv.Store
	store     *blockstore.Store
	cache     *statecache.Cache
	processor *chain.Processor
	policy    statecache.StoragePolicy
	spool     *spooler

	mu           sync.Mutex
	closed       bool
	head         *block.Element
	supplemental statecache.SupplementalData
}

// Open creates the components described by cfg and recovers the state from
// the data directory.
func Open(ctx context.Context, cfg config.Config, opts Options) (_ *Ledger, err error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	dir, err := datadir.New(cfg.Node.DataDir)
	if err != nil {
		return nil, err
	}

	db := opts.DB
	switch {
	case db != nil:
	case opts.InMemory:
		db = kv.NewMem()
	default:
		db, err = kv.Open(dir.Sub(datadir.DatabaseDir), kv.Options{
			CacheSizeMB: cfg.Node.DBCacheSizeMB,
			OpenFiles:   cfg.Node.DBOpenFiles,
			SyncWrites:  true,
		})
		if err != nil {
			return nil, err
		}
	}
	defer func() {
		if err != nil {
			db.Close()
		}
	}()

	store, err := blockstore.New(db, blockstore.Options{CacheSize: cfg.Node.BlockCacheSize})
	if err != nil {
		return nil, err
	}

	network := cfg.Network
	policy := statecache.FileStorage
	accountOpts := accountcache.Options{
		TrackedAsset:   network.TrackedAssetID,
		OptimizedAsset: network.OptimizedAssetID,
		Unstable:       network.MaxRollbackBlocks,
	}
	if cfg.Node.UseCacheDatabaseStorage {
		policy = statecache.DatabaseStorage
		accountOpts.Store = db
	}
	accounts := accountcache.New(accountOpts)
	cache := statecache.New(
		accounts,
		difficultycache.New(network.MaxDifficultyBlocks),
		hashcache.New(network.HashRetentionSeconds),
	)

	entities := observers.NewBatchEntityProcessor(
		model.Publisher{FeeAsset: network.FeeAssetID},
		observers.DefaultValidators(),
		observers.DefaultObservers(),
	)
	hit := opts.Hit
	if hit == nil {
		hit = chain.BalanceHitPredicate{ImportanceGrouping: network.ImportanceGrouping}
	}
	processor := chain.NewProcessor(hit, entities, chain.Options{
		VerifiableState:    cfg.Node.VerifiableState,
		VerifiableReceipts: cfg.Node.VerifiableReceipts,
		VerifySignatures:   cfg.Node.VerifySignatures,
		BlockTargetSeconds: network.BlockTargetSeconds,
	})

	orchestrator := &recovery.Orchestrator{
		Dir:       dir,
		Cache:     cache,
		Store:     store,
		Processor: processor,
		Entities:  entities,
		Accounts:  accounts,
		Policy:    policy,
		Nemesis:   opts.Nemesis,
		Genesis: genesis.Options{
			FeeAsset:           network.FeeAssetID,
			VerifiableState:    cfg.Node.VerifiableState,
			VerifiableReceipts: cfg.Node.VerifiableReceipts,
		},
		Sink:      opts.Sink,
		BatchSize: int(cfg.Node.MaxBlocksPerBatch),
		Progress:  opts.Progress,
	}
	res, err := orchestrator.Recover(ctx)
	if err != nil {
		return nil, errors.WithMessage(err, "recover")
	}

	head, err := store.LoadBlockElement(cache.Height())
	if err != nil {
		return nil, errors.WithMessage(err, "load head")
	}
	sp, err := openSpooler(dir)
	if err != nil {
		return nil, err
	}

	l := &Ledger{
		cfg:          cfg,
		dir:          dir,
		db:           db,
		store:        store,
		cache:        cache,
		processor:    processor,
		policy:       policy,
		spool:        sp,
		head:         head,
		supplemental: res.Supplemental,
	}
	if opts.ReadOnly {
		logger.Debug("read only, recovered state not saved", "replayed", res.Replayed)
	} else if res.Replayed > 0 || !statecache.HasSerializedState(dir.Sub(datadir.StateDir)) {
		if err = l.Persist(); err != nil {
			return nil, err
		}
	}
	metricHeight().Set(int64(head.Height()))
	logger.Info("ledger opened", "height", head.Height(), "id", head.ID.AbbrevString(), "score", l.supplemental.Score)
	return l, nil
}

// ApplyBlocks validates elements on top of the head and applies them as one
// batch. Unless the result is Success, nothing is changed.
func (l *Ledger) ApplyBlocks(ctx context.Context, elements []*block.Element) (validation.Result, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return validation.Failure, ErrClosed
	}
	if len(elements) == 0 {
		return validation.Neutral, nil
	}

	start := time.Now()
	height := elements[len(elements)-1].Height()
	delta, err := l.cache.CreateDelta(height)
	if err != nil {
		return validation.Failure, err
	}
	r, err := l.processor.Process(ctx, l.head, elements, delta)
	if err != nil || !r.IsSuccess() {
		delta.Discard()
		if err == nil {
			l.spool.rejected(elements[0], r)
			metricBatches().AddWithLabel(1, map[string]string{"result": r.String()})
			metricApply().ObserveWithLabels(time.Since(start).Milliseconds(), map[string]string{"result": r.String()})
		}
		return r, err
	}

	if l.policy == statecache.DatabaseStorage {
		// recovery replays the stored blocks the account database missed
		if err := checkpoint.NewMarker(l.dir).Write(checkpoint.BlocksWritten); err != nil {
			delta.Discard()
			return validation.Failure, err
		}
	}
	if err := l.store.SaveBlocks(elements); err != nil {
		delta.Discard()
		return validation.Failure, err
	}
	if err := l.cache.Commit(height); err != nil {
		delta.Discard()
		if dropErr := l.store.DropBlocksAfter(l.head.Height()); dropErr != nil {
			logger.Error("failed to drop uncommitted blocks", "height", l.head.Height(), "err", dropErr)
		}
		return validation.Failure, err
	}

	prev := l.head.Header()
	for _, el := range elements {
		l.supplemental.Score = l.supplemental.Score.AddUint64(chain.CalculateScore(prev, el.Header()))
		l.supplemental.TransactionsCount += uint64(len(el.TransactionHashes))
		prev = el.Header()
	}
	l.supplemental.CacheHeight = height
	l.head = elements[len(elements)-1]

	if err := l.spool.applied(elements, l.cache.CreateView()); err != nil {
		return validation.Failure, err
	}
	if l.policy == statecache.DatabaseStorage {
		if err := l.persist(); err != nil {
			return validation.Failure, err
		}
	}

	metricHeight().Set(int64(height))
	metricBatches().AddWithLabel(1, map[string]string{"result": r.String()})
	metricApply().ObserveWithLabels(time.Since(start).Milliseconds(), map[string]string{"result": r.String()})
	logger.Debug("applied blocks", "count", len(elements), "height", height, "elapsed", time.Since(start))
	return validation.Success, nil
}

// Persist saves the committed state to the data directory.
func (l *Ledger) Persist() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return ErrClosed
	}
	return l.persist()
}

func (l *Ledger) persist() error {
	return checkpoint.SaveWithCheckpointing(l.dir, l.cache, l.cache.CreateView(), l.supplemental)
}

// View returns a read-only view of the committed state.
func (l *Ledger) View() *statecache.View { return l.cache.CreateView() }

// Height returns the height of the committed state.
func (l *Ledger) Height() tally.Height { return l.cache.Height() }

// Head returns the element of the last applied block.
func (l *Ledger) Head() *block.Element {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.head
}

// Score returns the chain score of the committed state.
func (l *Ledger) Score() tally.ChainScore {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.supplemental.Score
}

// Supplemental returns the data saved next to the state.
func (l *Ledger) Supplemental() statecache.SupplementalData {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.supplemental
}

// Blocks returns the block storage.
func (l *Ledger) Blocks() *blockstore.Store { return l.store }

// Dir returns the data directory.
func (l *Ledger) Dir() datadir.Dir { return l.dir }

// Close releases the database. The state is not saved.
func (l *Ledger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return nil
	}
	l.closed = true
	return l.db.Close()
}
