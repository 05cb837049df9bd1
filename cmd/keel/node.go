// Copyright (c) 2025 The Keel developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package main

import (
	"sync"
	"time"

	"github.com/keel-fi/keel/health"
	"github.com/keel-fi/keel/keel"
	"github.com/keel-fi/keel/metrics"
	"github.com/keel-fi/keel/xenv"
)

var metricBlockNumber = metrics.LazyLoadGauge("block_number_gauge")

// blockClock derives the current block context from wall clock time. Block
// boundaries are fixed by the launch time, so every node observing the same
// genesis agrees on the numbering.
type blockClock struct {
	launchTime uint64

	mu      sync.Mutex
	current xenv.BlockContext
}

func newBlockClock(launchTime uint64) *blockClock {
	c := &blockClock{launchTime: launchTime}
	c.current = c.fromWallClock()
	return c
}

func (c *blockClock) fromWallClock() xenv.BlockContext {
	now := uint64(time.Now().Unix())
	if now < c.launchTime {
		return xenv.BlockContext{Number: 0, Time: c.launchTime}
	}
	number := uint32((now - c.launchTime) / keel.BlockInterval)
	return xenv.BlockContext{
		Number: number,
		Time:   c.launchTime + uint64(number)*keel.BlockInterval,
	}
}

// context returns a snapshot safe to hand out across goroutines.
func (c *blockClock) context() *xenv.BlockContext {
	c.mu.Lock()
	defer c.mu.Unlock()
	snapshot := c.current
	return &snapshot
}

// run advances the clock until done is closed, reporting each new block to
// the health tracker.
func (c *blockClock) run(done <-chan struct{}, h *health.Health) {
	ticker := time.NewTicker(time.Duration(keel.BlockInterval) * time.Second)
	defer ticker.Stop()

	h.NewBestBlock(c.context().Number)

	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			next := c.fromWallClock()

			c.mu.Lock()
			advanced := next.Number > c.current.Number
			if advanced {
				c.current = next
			}
			c.mu.Unlock()

			if advanced {
				h.NewBestBlock(next.Number)
				metricBlockNumber().Set(int64(next.Number))
				logger.Debug("new block", "number", next.Number, "time", next.Time)
			}
		}
	}
}
