// Copyright (c) 2025 The Keel developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package health tracks block production liveness for the health endpoint.
package health

import (
	"sync"
	"time"

	"github.com/keel-fi/keel/keel"
)

// BlockIngestion reports the best block and when it was sealed.
type BlockIngestion struct {
	BestBlock          uint32     `json:"bestBlock"`
	BestBlockTimestamp *time.Time `json:"bestBlockTimestamp"`
}

// Status is the health endpoint response.
type Status struct {
	Healthy        bool            `json:"healthy"`
	BlockIngestion *BlockIngestion `json:"blockIngestion"`
}

// Health tracks the node's block clock.
type Health struct {
	lock          sync.RWMutex
	bestBlock     uint32
	bestBlockSeen time.Time
}

// NewBestBlock records a freshly sealed block.
func (h *Health) NewBestBlock(number uint32) {
	h.lock.Lock()
	defer h.lock.Unlock()

	h.bestBlock = number
	h.bestBlockSeen = time.Now()
}

// Status reports healthy while blocks keep arriving within twice the block
// interval.
func (h *Health) Status() *Status {
	h.lock.RLock()
	defer h.lock.RUnlock()

	seen := h.bestBlockSeen
	healthy := !seen.IsZero() &&
		time.Since(seen) < 2*time.Duration(keel.BlockInterval)*time.Second

	return &Status{
		Healthy: healthy,
		BlockIngestion: &BlockIngestion{
			BestBlock:          h.bestBlock,
			BestBlockTimestamp: &seen,
		},
	}
}
