// Copyright (c) 2025 The Keel developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package params

import (
	"math/big"

	"github.com/keel-fi/keel/keel"
	"github.com/keel-fi/keel/state"
)

// Params binder of the governance `Params` contract.
type Params struct {
	addr  keel.Address
	state *state.State
}

func New(addr keel.Address, state *state.State) *Params {
	return &Params{addr, state}
}

// Get native way to get param.
func (p *Params) Get(key keel.Bytes32) (*big.Int, error) {
	v, err := p.state.GetStorage(p.addr, key)
	if err != nil {
		return nil, err
	}
	return new(big.Int).SetBytes(v.Bytes()), nil
}

// Set native way to set param.
func (p *Params) Set(key keel.Bytes32, value *big.Int) {
	p.state.SetStorage(p.addr, key, keel.BytesToBytes32(value.Bytes()))
}

// GetAddress reads a param slot as an account address.
func (p *Params) GetAddress(key keel.Bytes32) (keel.Address, error) {
	v, err := p.state.GetStorage(p.addr, key)
	if err != nil {
		return keel.Address{}, err
	}
	return keel.BytesToAddress(v.Bytes()), nil
}

// SetAddress stores an account address into a param slot.
func (p *Params) SetAddress(key keel.Bytes32, value keel.Address) {
	p.state.SetStorage(p.addr, key, keel.BytesToBytes32(value.Bytes()))
}
