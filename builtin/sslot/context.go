// Copyright (c) 2025 The Keel developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package sslot

import (
	"github.com/keel-fi/keel/keel"
	"github.com/keel-fi/keel/state"
)

// Context binds typed storage slots to a contract address within a state.
type Context struct {
	address keel.Address
	state   *state.State
}

func NewContext(address keel.Address, state *state.State) *Context {
	return &Context{
		address: address,
		state:   state,
	}
}

func (c *Context) State() *state.State {
	return c.state
}

func (c *Context) Address() keel.Address {
	return c.address
}
