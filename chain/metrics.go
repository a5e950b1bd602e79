// Copyright (c) 2025 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package chain

import "github.com/vechain/tally/metrics"

var (
	metricProcessedBlocks = metrics.LazyLoadCounterVec("chain_processed_blocks_count", []string{"result"})
	metricRejectedBlocks  = metrics.LazyLoadCounterVec("chain_rejected_blocks_count", []string{"stage"})
	metricBatchSize       = metrics.LazyLoadHistogram("chain_batch_size", metrics.BucketBatch)
	metricProcessDuration = metrics.LazyLoadHistogram("chain_process_duration_ms", metrics.BucketMillis)
)
