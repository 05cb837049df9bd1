// Copyright (c) 2025 The Keel developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package genesis seeds a fresh state: token ledgers, balances, governance
// params and optionally the first reward schedule.
package genesis

import (
	"math/big"

	"github.com/pkg/errors"

	"github.com/keel-fi/keel/builtin"
	"github.com/keel-fi/keel/keel"
	"github.com/keel-fi/keel/log"
	"github.com/keel-fi/keel/state"
	"github.com/keel-fi/keel/xenv"
)

var logger = log.WithContext("pkg", "genesis")

// Genesis applies a validated config to an empty state.
type Genesis struct {
	cfg  *Config
	name string
}

// NewCustomNet creates a genesis from a custom config.
func NewCustomNet(cfg *Config) (*Genesis, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &Genesis{cfg, "customnet"}, nil
}

// Name returns the network name.
func (g *Genesis) Name() string {
	return g.name
}

// LaunchTime returns the genesis block timestamp.
func (g *Genesis) LaunchTime() uint64 {
	return g.cfg.LaunchTime
}

// Build seeds the state. The state must be empty.
func (g *Genesis) Build(st *state.State) error {
	registry := builtin.Params.WithState(st)
	registry.SetAddress(keel.KeyStakingAdmin, keel.MustParseAddress(g.cfg.Params.StakingAdmin))
	registry.SetAddress(keel.KeyPlatformFeeRecipient, keel.MustParseAddress(g.cfg.Params.PlatformFeeRecipient))
	registry.Set(keel.KeyMaxPlatformFee, g.cfg.Params.maxPlatformFee)
	registry.Set(keel.KeyMaxSwapFee, g.cfg.Params.maxSwapFee)

	for _, tok := range g.cfg.Tokens {
		ledger := builtin.TokenAt(keel.MustParseAddress(tok.Address), st)
		ledger.SetDecimals(tok.Decimals)
		for _, alloc := range tok.Allocations {
			if err := ledger.Mint(keel.MustParseAddress(alloc.Address), alloc.amount); err != nil {
				return errors.WithMessage(err, "mint allocation")
			}
		}
	}

	if rewards := g.cfg.Rewards; rewards != nil {
		stakeToken := builtin.StakeToken.WithState(st)
		if err := stakeToken.Mint(builtin.Staking.Address, rewards.amount); err != nil {
			return errors.WithMessage(err, "fund rewards")
		}
		env := xenv.New(
			st,
			&xenv.BlockContext{Number: 0, Time: g.cfg.LaunchTime},
			keel.MustParseAddress(g.cfg.Params.StakingAdmin),
		)
		if err := builtin.Staking.Native(env).SetRewards(rewards.amount, rewards.Days); err != nil {
			return errors.WithMessage(err, "schedule rewards")
		}
	}

	logger.Info("genesis built",
		"network", g.name,
		"launchTime", g.cfg.LaunchTime,
		"tokens", len(g.cfg.Tokens),
	)
	return nil
}

// mustBig parses a decimal big int, for built-in presets.
func mustBig(s string) *big.Int {
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		panic("invalid big int: " + s)
	}
	return v
}
