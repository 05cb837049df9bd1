// Copyright (c) 2025 The Keel developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package xenv

import (
	"encoding/json"

	"github.com/pkg/errors"

	"github.com/keel-fi/keel/keel"
	"github.com/keel-fi/keel/state"
)

// BlockContext block context.
type BlockContext struct {
	Number uint32
	Time   uint64
}

// Event is a named event emitted by a contract operation.
// The payload is marshaled lazily when persisted or served.
type Event struct {
	Address keel.Address
	Name    string
	Payload any
}

// MarshalPayload encodes the event payload as JSON.
func (e *Event) MarshalPayload() ([]byte, error) {
	data, err := json.Marshal(e.Payload)
	if err != nil {
		return nil, errors.WithMessage(err, "encode event payload")
	}
	return data, nil
}

// Environment an env to execute a contract operation.
// Events are buffered here and survive only if the enclosing operation
// succeeds; the runtime discards them on revert.
type Environment struct {
	state    *state.State
	blockCtx *BlockContext
	caller   keel.Address
	events   []*Event
}

// New create a new env.
func New(state *state.State, blockCtx *BlockContext, caller keel.Address) *Environment {
	return &Environment{
		state:    state,
		blockCtx: blockCtx,
		caller:   caller,
	}
}

func (env *Environment) State() *state.State         { return env.state }
func (env *Environment) BlockContext() *BlockContext { return env.blockCtx }
func (env *Environment) Caller() keel.Address        { return env.caller }

// Log records a named event against the given contract address.
func (env *Environment) Log(address keel.Address, name string, payload any) {
	env.events = append(env.events, &Event{
		Address: address,
		Name:    name,
		Payload: payload,
	})
}

// Events returns the buffered events.
func (env *Environment) Events() []*Event {
	return env.events
}

// DiscardEventsFrom drops buffered events from index n onwards.
func (env *Environment) DiscardEventsFrom(n int) {
	if n < len(env.events) {
		env.events = env.events[:n]
	}
}

// EventCount returns the number of buffered events.
func (env *Environment) EventCount() int {
	return len(env.events)
}
