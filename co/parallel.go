// Copyright (c) 2018 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package co

import (
	"runtime"
)

// Enqueue function to enqueue parallel works.
type Enqueue func(work func())

// Parallel runs the works enqueued by cb on one worker per CPU and
// returns once all of them are done.
func Parallel(cb func(Enqueue)) {
	var goes Goes
	workers := runtime.NumCPU()
	ch := make(chan func(), workers*2)
	for range workers {
		goes.Go(func() {
			for work := range ch {
				work()
			}
		})
	}
	cb(func(work func()) { ch <- work })
	close(ch)
	goes.Wait()
}
