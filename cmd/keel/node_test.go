// Copyright (c) 2025 The Keel developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package main

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/keel-fi/keel/keel"
)

func TestBlockClockBeforeLaunch(t *testing.T) {
	launch := uint64(time.Now().Unix()) + 3600
	clock := newBlockClock(launch)

	blockCtx := clock.context()
	assert.Equal(t, uint32(0), blockCtx.Number)
	assert.Equal(t, launch, blockCtx.Time)
}

func TestBlockClockAfterLaunch(t *testing.T) {
	launch := uint64(time.Now().Unix()) - 10*keel.BlockInterval - 5
	clock := newBlockClock(launch)

	blockCtx := clock.context()
	assert.GreaterOrEqual(t, blockCtx.Number, uint32(10))
	assert.Equal(t, launch+uint64(blockCtx.Number)*keel.BlockInterval, blockCtx.Time)
}

func TestBlockClockSnapshotIsolation(t *testing.T) {
	clock := newBlockClock(uint64(time.Now().Unix()))

	a := clock.context()
	b := clock.context()
	a.Number = 999
	assert.NotEqual(t, a.Number, b.Number, "snapshots do not share memory")
}
