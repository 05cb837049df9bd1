// Copyright (c) 2025 The Keel developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package runtime

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/keel-fi/keel/builtin"
	"github.com/keel-fi/keel/builtin/reverts"
	"github.com/keel-fi/keel/keel"
	"github.com/keel-fi/keel/lvldb"
	"github.com/keel-fi/keel/state"
	"github.com/keel-fi/keel/xenv"
)

func newTestRuntime(t *testing.T) *Runtime {
	store, err := lvldb.NewMem()
	require.NoError(t, err)
	return New(state.New(store), &xenv.BlockContext{Number: 1, Time: 1000})
}

func TestCallCommitsOnSuccess(t *testing.T) {
	rt := newTestRuntime(t)
	alice := keel.BytesToAddress([]byte("alice"))

	events, err := rt.Call(builtin.StakeToken.Address, alice, func(env *xenv.Environment) error {
		tok := builtin.StakeToken.WithState(env.State())
		if err := tok.Mint(alice, big.NewInt(100)); err != nil {
			return err
		}
		env.Log(builtin.StakeToken.Address, "Minted", nil)
		return nil
	})
	require.NoError(t, err)
	assert.Len(t, events, 1)

	bal, err := builtin.StakeToken.WithState(rt.State()).BalanceOf(alice)
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(100), bal)
}

func TestCallRevertsOnError(t *testing.T) {
	rt := newTestRuntime(t)
	alice := keel.BytesToAddress([]byte("alice"))
	boom := reverts.New("boom")

	_, err := rt.Call(builtin.StakeToken.Address, alice, func(env *xenv.Environment) error {
		tok := builtin.StakeToken.WithState(env.State())
		if err := tok.Mint(alice, big.NewInt(100)); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	bal, err := builtin.StakeToken.WithState(rt.State()).BalanceOf(alice)
	require.NoError(t, err)
	assert.Equal(t, new(big.Int), bal, "mint must not survive the revert")
}

func TestCallBlocksReentrancy(t *testing.T) {
	rt := newTestRuntime(t)
	alice := keel.BytesToAddress([]byte("alice"))

	_, err := rt.Call(builtin.Staking.Address, alice, func(env *xenv.Environment) error {
		_, nested := rt.Call(builtin.Staking.Address, alice, func(env *xenv.Environment) error {
			return nil
		})
		return nested
	})
	assert.ErrorIs(t, err, ErrReentrancy)
}
