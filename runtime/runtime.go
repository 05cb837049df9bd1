// Copyright (c) 2025 The Keel developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package runtime executes contract operations atomically. Every call runs
// against a state checkpoint; any error reverts all state changes and drops
// the events the call buffered. A per-address latch blocks reentrant calls
// into the same contract within one execution.
package runtime

import (
	"github.com/keel-fi/keel/builtin/reverts"
	"github.com/keel-fi/keel/keel"
	"github.com/keel-fi/keel/log"
	"github.com/keel-fi/keel/metrics"
	"github.com/keel-fi/keel/state"
	"github.com/keel-fi/keel/xenv"
)

var (
	logger = log.WithContext("pkg", "runtime")

	metricCalls = metrics.LazyLoadCounterVec("contract_call_count", []string{"outcome"})
)

// ErrReentrancy a call tried to reenter a contract already executing.
var ErrReentrancy = reverts.New("runtime: reentrant call")

// Runtime drives atomic execution of contract operations over one state.
type Runtime struct {
	state    *state.State
	blockCtx *xenv.BlockContext
	entered  map[keel.Address]bool
}

// New creates a runtime for the given state and block context.
func New(st *state.State, blockCtx *xenv.BlockContext) *Runtime {
	return &Runtime{
		state:    st,
		blockCtx: blockCtx,
		entered:  make(map[keel.Address]bool),
	}
}

// State returns the underlying state.
func (rt *Runtime) State() *state.State { return rt.state }

// BlockContext returns the block context calls execute under.
func (rt *Runtime) BlockContext() *xenv.BlockContext { return rt.blockCtx }

// Call runs fn as caller against contract addr. On error the state reverts
// to the checkpoint taken at entry and buffered events are discarded; on
// success the events fn logged are returned.
func (rt *Runtime) Call(addr, caller keel.Address, fn func(env *xenv.Environment) error) ([]*xenv.Event, error) {
	if rt.entered[addr] {
		return nil, ErrReentrancy
	}
	rt.entered[addr] = true
	defer delete(rt.entered, addr)

	env := xenv.New(rt.state, rt.blockCtx, caller)
	checkpoint := rt.state.NewCheckpoint()

	if err := fn(env); err != nil {
		rt.state.RevertTo(checkpoint)
		logger.Debug("call reverted", "contract", addr, "caller", caller, "error", err)
		metricCalls().AddWithLabel(1, map[string]string{"outcome": "reverted"})
		return nil, err
	}
	metricCalls().AddWithLabel(1, map[string]string{"outcome": "ok"})
	return env.Events(), nil
}
