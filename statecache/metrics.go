// Copyright (c) 2025 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package statecache

import "github.com/vechain/tally/metrics"

var (
	metricCommitCount    = metrics.LazyLoadCounter("statecache_commits_count")
	metricCommitDuration = metrics.LazyLoadHistogram("statecache_commit_duration_ms", metrics.BucketMillis)
	metricSaveDuration   = metrics.LazyLoadHistogram("statecache_save_duration_ms", metrics.BucketMillis)
)
