// Copyright (c) 2025 The Keel developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package builtin binds the native contracts at their well-known addresses.
package builtin

import (
	"github.com/keel-fi/keel/builtin/params"
	"github.com/keel-fi/keel/builtin/postoken"
	"github.com/keel-fi/keel/builtin/salepool"
	"github.com/keel-fi/keel/builtin/staking"
	"github.com/keel-fi/keel/builtin/token"
	"github.com/keel-fi/keel/keel"
	"github.com/keel-fi/keel/state"
	"github.com/keel-fi/keel/xenv"
)

// Builtin contracts binding. Addresses are the contract names left-padded
// into the address space.
var (
	Params     = &paramsContract{keel.BytesToAddress([]byte("Params"))}
	StakeToken = &tokenContract{keel.BytesToAddress([]byte("StakeToken"))}
	Positions  = &positionsContract{keel.BytesToAddress([]byte("Positions"))}
	Staking    = &stakingContract{keel.BytesToAddress([]byte("Staking"))}
	SalePools  = &salePoolsContract{keel.BytesToAddress([]byte("SalePools"))}
)

type (
	paramsContract    struct{ Address keel.Address }
	tokenContract     struct{ Address keel.Address }
	positionsContract struct{ Address keel.Address }
	stakingContract   struct{ Address keel.Address }
	salePoolsContract struct{ Address keel.Address }
)

func (p *paramsContract) WithState(st *state.State) *params.Params {
	return params.New(p.Address, st)
}

func (t *tokenContract) WithState(st *state.State) *token.Token {
	return token.New(t.Address, st)
}

func (p *positionsContract) WithState(st *state.State) *postoken.PosToken {
	return postoken.New(p.Address, st)
}

// Native binds the staking contract to an execution env, wiring its token,
// position and governance collaborators.
func (s *stakingContract) Native(env *xenv.Environment) *staking.Staking {
	return staking.New(
		s.Address,
		env,
		StakeToken.WithState(env.State()),
		Positions.WithState(env.State()),
		Params.WithState(env.State()),
	)
}

// Native binds the sale pool factory to an execution env. The stream creator
// and membership prover are host-side collaborators chosen by the runtime.
func (s *salePoolsContract) Native(env *xenv.Environment, streams salepool.StreamCreator, prover salepool.MembershipProver) *salepool.Factory {
	return salepool.NewFactory(s.Address, env, Params.WithState(env.State()), streams, prover)
}

// TokenAt binds a fungible token ledger at an arbitrary address. Sale pools
// reference share and asset tokens this way.
func TokenAt(addr keel.Address, st *state.State) *token.Token {
	return token.New(addr, st)
}
