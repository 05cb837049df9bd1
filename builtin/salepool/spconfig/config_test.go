// Copyright (c) 2025 The Keel developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package spconfig

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/keel-fi/keel/builtin/salepool/tiers"
	"github.com/keel-fi/keel/keel"
	"github.com/keel-fi/keel/lvldb"
	"github.com/keel-fi/keel/state"
)

var (
	maxPlatformFee = big.NewInt(25e16) // 25%
	maxSwapFee     = big.NewInt(1e17)  // 10%
)

func validFixed() Config {
	return Config{
		Version:       Version,
		Kind:          KindFixed,
		Owner:         keel.BytesToAddress([]byte("owner")),
		ShareToken:    keel.BytesToAddress([]byte("share")),
		AssetToken:    keel.BytesToAddress([]byte("asset")),
		ShareDecimals: 18,
		AssetDecimals: 6,
		SharesForSale: big.NewInt(1000),
		PricePerShare: keel.WAD,
		PlatformFee:   big.NewInt(1e16),
		SwapFee:       big.NewInt(1e15),
		SaleStart:     1000,
		SaleEnd:       2000,
	}
}

func TestValidateFixed(t *testing.T) {
	cfg := validFixed()
	assert.NoError(t, cfg.Validate(maxPlatformFee, maxSwapFee))
}

func TestValidateRejections(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"unknown kind", func(c *Config) { c.Kind = 0 }},
		{"zero owner", func(c *Config) { c.Owner = keel.Address{} }},
		{"zero share token", func(c *Config) { c.ShareToken = keel.Address{} }},
		{"same tokens", func(c *Config) { c.AssetToken = c.ShareToken }},
		{"decimals out of range", func(c *Config) { c.AssetDecimals = 19 }},
		{"platform fee above cap", func(c *Config) { c.PlatformFee = big.NewInt(26e16) }},
		{"swap fee above cap", func(c *Config) { c.SwapFee = big.NewInt(2e17) }},
		{"nil platform fee", func(c *Config) { c.PlatformFee = nil }},
		{"sale end before start", func(c *Config) { c.SaleEnd = c.SaleStart }},
		{"no shares", func(c *Config) { c.SharesForSale = big.NewInt(0) }},
		{"no price", func(c *Config) { c.PricePerShare = nil }},
		{"reserve above supply", func(c *Config) { c.MinimumRaise = big.NewInt(1001) }},
		{"vest end before cliff", func(c *Config) {
			c.VestCliff = 5000
			c.VestEnd = 4000
		}},
		{"cliff inside redemption delay", func(c *Config) {
			c.RedemptionDelay = 500
			c.VestCliff = 2400
			c.VestEnd = 9000
		}},
		{"tiers on overflow", func(c *Config) {
			c.Kind = KindOverflow
			c.Tiers = []tiers.Tier{{AmountForSale: big.NewInt(1000), PricePerShare: keel.WAD}}
		}},
		{"tier amounts off supply", func(c *Config) {
			c.Tiers = []tiers.Tier{{AmountForSale: big.NewInt(999), PricePerShare: keel.WAD}}
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validFixed()
			tt.mutate(&cfg)
			assert.Error(t, cfg.Validate(maxPlatformFee, maxSwapFee))
		})
	}
}

func TestValidateOverflow(t *testing.T) {
	cfg := validFixed()
	cfg.Kind = KindOverflow
	cfg.PricePerShare = nil
	cfg.HardCap = big.NewInt(5000)
	// overflow reserve counts assets, not shares, so it may exceed supply
	cfg.MinimumRaise = big.NewInt(2000)
	assert.NoError(t, cfg.Validate(maxPlatformFee, maxSwapFee))
}

func TestVestingPredicate(t *testing.T) {
	cfg := validFixed()
	assert.False(t, cfg.Vesting())

	cfg.VestCliff = 3000
	cfg.VestEnd = 9000
	require.NoError(t, cfg.Validate(maxPlatformFee, maxSwapFee))
	assert.True(t, cfg.Vesting())
}

func TestSaveLoadRoundTrip(t *testing.T) {
	store, err := lvldb.NewMem()
	require.NoError(t, err)
	st := state.New(store)
	pool := keel.BytesToAddress([]byte("pool"))

	_, ok, err := Load(st, pool)
	require.NoError(t, err)
	assert.False(t, ok, "no pool lives here yet")

	// fully populated: the codec decodes empty big ints as zero, not nil
	cfg := validFixed()
	cfg.MinimumRaise = big.NewInt(500)
	cfg.HardCap = big.NewInt(0)
	cfg.MaxPerUser = big.NewInt(50)
	cfg.PricePerShare = big.NewInt(0)
	cfg.Tiers = []tiers.Tier{
		{
			AmountForSale:  big.NewInt(400),
			PricePerShare:  keel.WAD,
			MaximumPerUser: big.NewInt(0),
			MinimumPerUser: big.NewInt(0),
		},
		{
			AmountForSale:  big.NewInt(600),
			PricePerShare:  new(big.Int).Mul(keel.WAD, big.NewInt(2)),
			MaximumPerUser: big.NewInt(100),
			MinimumPerUser: big.NewInt(10),
		},
	}
	require.NoError(t, Save(st, pool, &cfg))

	got, ok, err := Load(st, pool)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, &cfg, got)
	assert.True(t, got.Tiered())
}
