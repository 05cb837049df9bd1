// Copyright (c) 2025 The Keel developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package main

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/keel-fi/keel/builtin"
	"github.com/keel-fi/keel/genesis"
	"github.com/keel-fi/keel/lvldb"
	"github.com/keel-fi/keel/state"
)

func TestSeedGenesis(t *testing.T) {
	store, err := lvldb.NewMem()
	require.NoError(t, err)
	defer store.Close()

	gene := genesis.NewDevnet()

	st := state.New(store)
	require.NoError(t, seedGenesis(st, store, gene))

	ledger := builtin.StakeToken.WithState(state.New(store))
	bal, err := ledger.BalanceOf(genesis.DevAccounts()[0])
	require.NoError(t, err)
	assert.Equal(t, 1, bal.Sign(), "genesis state persisted")

	// second start over the same database is a no-op
	require.NoError(t, seedGenesis(state.New(store), store, gene))
	after, err := builtin.StakeToken.WithState(state.New(store)).BalanceOf(genesis.DevAccounts()[0])
	require.NoError(t, err)
	assert.Equal(t, 0, bal.Cmp(after), "balances not minted twice")
	assert.True(t, after.Cmp(big.NewInt(0)) > 0)
}

func TestSeedGenesisRejectsForeignDatabase(t *testing.T) {
	store, err := lvldb.NewMem()
	require.NoError(t, err)
	defer store.Close()

	require.NoError(t, seedGenesis(state.New(store), store, genesis.NewDevnet()))
	require.NoError(t, store.Put(genesisKey, []byte("othernet")))

	err = seedGenesis(state.New(store), store, genesis.NewDevnet())
	assert.Error(t, err)
}
