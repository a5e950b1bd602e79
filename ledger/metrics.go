// Copyright (c) 2025 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package ledger

import "github.com/vechain/tally/metrics"

var (
	metricHeight  = metrics.LazyLoadGauge("ledger_height")
	metricBatches = metrics.LazyLoadCounterVec("ledger_batches_count", []string{"result"})
	metricApply   = metrics.LazyLoadHistogramVec("ledger_apply_duration_ms", []string{"result"}, metrics.BucketMillis)
	metricSpooled = metrics.LazyLoadGaugeVec("ledger_spooled_messages", []string{"queue"})
)
