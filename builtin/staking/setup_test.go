// Copyright (c) 2025 The Keel developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package staking

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/keel-fi/keel/builtin/params"
	"github.com/keel-fi/keel/builtin/postoken"
	"github.com/keel-fi/keel/builtin/token"
	"github.com/keel-fi/keel/keel"
	"github.com/keel-fi/keel/lvldb"
	"github.com/keel-fi/keel/state"
	"github.com/keel-fi/keel/xenv"
)

var (
	stakingAddr = keel.BytesToAddress([]byte("Staking"))
	tokenAddr   = keel.BytesToAddress([]byte("StakeToken"))
	posAddr     = keel.BytesToAddress([]byte("Positions"))
	paramsAddr  = keel.BytesToAddress([]byte("Params"))

	admin = keel.BytesToAddress([]byte("admin"))
	alice = keel.BytesToAddress([]byte("alice"))
	bob   = keel.BytesToAddress([]byte("bob"))
)

// testSetup wires a staking contract over an in-memory state with funded,
// pre-approved accounts and a movable block clock.
type testSetup struct {
	t        *testing.T
	st       *state.State
	blockCtx *xenv.BlockContext
	token    *token.Token
	posToken *postoken.PosToken
	registry *params.Params
}

func newTestSetup(t *testing.T) *testSetup {
	store, err := lvldb.NewMem()
	require.NoError(t, err)
	st := state.New(store)

	s := &testSetup{
		t:        t,
		st:       st,
		blockCtx: &xenv.BlockContext{Number: 1, Time: 100_000},
		token:    token.New(tokenAddr, st),
		posToken: postoken.New(posAddr, st),
		registry: params.New(paramsAddr, st),
	}
	s.registry.SetAddress(keel.KeyStakingAdmin, admin)

	for _, acc := range []keel.Address{alice, bob} {
		require.NoError(t, s.token.Mint(acc, big.NewInt(1_000_000)))
		require.NoError(t, s.token.Approve(acc, stakingAddr, token.UnlimitedAllowance()))
	}
	return s
}

// as binds the staking contract with the given caller. All bindings share
// the setup's state and block clock.
func (s *testSetup) as(caller keel.Address) *Staking {
	env := xenv.New(s.st, s.blockCtx, caller)
	return New(stakingAddr, env, s.token, s.posToken, s.registry)
}

// advance moves the chain forward n blocks.
func (s *testSetup) advance(n uint32) {
	s.blockCtx.Number += n
	s.blockCtx.Time += uint64(n) * keel.BlockInterval
}

// fundRewards credits the staking contract with reward liquidity and
// schedules it as admin.
func (s *testSetup) fundRewards(amount int64, days uint32) {
	require.NoError(s.t, s.token.Mint(stakingAddr, big.NewInt(amount)))
	require.NoError(s.t, s.as(admin).SetRewards(big.NewInt(amount), days))
}

// monthsToBlocks converts whole lock months into block counts.
func monthsToBlocks(months uint32) uint32 {
	return uint32(uint64(months) * keel.SecondsPerMonth / keel.BlockInterval)
}
