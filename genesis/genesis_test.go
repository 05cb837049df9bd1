// Copyright (c) 2025 The Keel developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package genesis

import (
	"math/big"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/keel-fi/keel/builtin"
	"github.com/keel-fi/keel/keel"
	"github.com/keel-fi/keel/lvldb"
	"github.com/keel-fi/keel/state"
)

const customConfig = `
launchTime: 1735689600
params:
  stakingAdmin: "0x0000000000000000000000000000000000006164"
  platformFeeRecipient: "0x0000000000000000000000000000000000006665"
  maxPlatformFee: "250000000000000000"
  maxSwapFee: "100000000000000000"
tokens:
  - address: "0x000000000000000000005374616b65546f6b656e"
    decimals: 18
    allocations:
      - address: "0x0000000000000000000000000000000000006164"
        amount: "1000000"
rewards:
  amount: "7776000"
  days: 90
`

func newState(t *testing.T) *state.State {
	store, err := lvldb.NewMem()
	require.NoError(t, err)
	return state.New(store)
}

func TestLoadConfig(t *testing.T) {
	cfg, err := LoadConfig(strings.NewReader(customConfig))
	require.NoError(t, err)
	assert.Equal(t, uint64(1735689600), cfg.LaunchTime)
	require.Len(t, cfg.Tokens, 1)
	assert.Equal(t, uint8(18), cfg.Tokens[0].Decimals)

	_, err = LoadConfig(strings.NewReader("launchTime: 1\nbogus: 2\n"))
	assert.Error(t, err, "unknown fields rejected")

	_, err = LoadConfig(strings.NewReader(strings.Replace(customConfig, `"7776000"`, `"x7776000"`, 1)))
	assert.Error(t, err, "malformed amounts rejected")
}

func TestCustomNetBuild(t *testing.T) {
	cfg, err := LoadConfig(strings.NewReader(customConfig))
	require.NoError(t, err)
	gene, err := NewCustomNet(cfg)
	require.NoError(t, err)

	st := newState(t)
	require.NoError(t, gene.Build(st))

	registry := builtin.Params.WithState(st)
	admin, err := registry.GetAddress(keel.KeyStakingAdmin)
	require.NoError(t, err)
	assert.Equal(t, keel.MustParseAddress("0x0000000000000000000000000000000000006164"), admin)
	maxFee, err := registry.Get(keel.KeyMaxPlatformFee)
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(25e16), maxFee)

	ledger := builtin.StakeToken.WithState(st)
	bal, err := ledger.BalanceOf(admin)
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(1_000_000), bal)

	// the reward fund sits with the staking contract, fully scheduled
	bal, err = ledger.BalanceOf(builtin.Staking.Address)
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(7_776_000), bal)
}

func TestDevnetBuild(t *testing.T) {
	st := newState(t)
	require.NoError(t, NewDevnet().Build(st))

	accounts := DevAccounts()
	require.Len(t, accounts, 10)

	ledger := builtin.StakeToken.WithState(st)
	for _, acc := range accounts {
		bal, err := ledger.BalanceOf(acc)
		require.NoError(t, err)
		assert.Equal(t, 1, bal.Sign(), "dev account funded")
	}

	decimals, err := ledger.Decimals()
	require.NoError(t, err)
	assert.Equal(t, uint8(18), decimals)
}
