// Copyright (c) 2025 The Keel developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package genesis

import (
	"io"
	"math/big"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/keel-fi/keel/keel"
)

// Config is the yaml genesis description. Addresses are hex strings, amounts
// decimal strings in native token precision.
type Config struct {
	LaunchTime uint64        `yaml:"launchTime"`
	Params     ParamsConfig  `yaml:"params"`
	Tokens     []TokenConfig `yaml:"tokens"`
	Rewards    *RewardConfig `yaml:"rewards,omitempty"`
}

// ParamsConfig seeds the governance params contract.
type ParamsConfig struct {
	StakingAdmin         string `yaml:"stakingAdmin"`
	PlatformFeeRecipient string `yaml:"platformFeeRecipient"`
	MaxPlatformFee       string `yaml:"maxPlatformFee"`
	MaxSwapFee           string `yaml:"maxSwapFee"`

	maxPlatformFee *big.Int
	maxSwapFee     *big.Int
}

// TokenConfig seeds one fungible token ledger.
type TokenConfig struct {
	Address     string             `yaml:"address"`
	Decimals    uint8              `yaml:"decimals"`
	Allocations []AllocationConfig `yaml:"allocations"`
}

// AllocationConfig mints an initial balance.
type AllocationConfig struct {
	Address string `yaml:"address"`
	Amount  string `yaml:"amount"`

	amount *big.Int
}

// RewardConfig schedules the first staking reward window at genesis. The
// amount is minted to the staking contract.
type RewardConfig struct {
	Amount string `yaml:"amount"`
	Days   uint32 `yaml:"days"`

	amount *big.Int
}

// LoadConfig parses a yaml genesis config in strict mode.
func LoadConfig(r io.Reader) (*Config, error) {
	decoder := yaml.NewDecoder(r)
	decoder.KnownFields(true)

	var cfg Config
	if err := decoder.Decode(&cfg); err != nil {
		return nil, errors.WithMessage(err, "decode genesis config")
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (cfg *Config) validate() error {
	if cfg.LaunchTime == 0 {
		return errors.New("genesis: launch time required")
	}
	if _, err := keel.ParseAddress(cfg.Params.StakingAdmin); err != nil {
		return errors.WithMessage(err, "genesis: staking admin")
	}
	if _, err := keel.ParseAddress(cfg.Params.PlatformFeeRecipient); err != nil {
		return errors.WithMessage(err, "genesis: platform fee recipient")
	}

	var err error
	if cfg.Params.maxPlatformFee, err = parseAmount(cfg.Params.MaxPlatformFee); err != nil {
		return errors.WithMessage(err, "genesis: max platform fee")
	}
	if cfg.Params.maxSwapFee, err = parseAmount(cfg.Params.MaxSwapFee); err != nil {
		return errors.WithMessage(err, "genesis: max swap fee")
	}
	if cfg.Params.maxPlatformFee.Cmp(keel.WAD) > 0 || cfg.Params.maxSwapFee.Cmp(keel.WAD) > 0 {
		return errors.New("genesis: fee cap above 100%")
	}

	for i := range cfg.Tokens {
		tok := &cfg.Tokens[i]
		if _, err := keel.ParseAddress(tok.Address); err != nil {
			return errors.WithMessage(err, "genesis: token address")
		}
		if tok.Decimals > 18 {
			return errors.New("genesis: token decimals out of range")
		}
		for j := range tok.Allocations {
			alloc := &tok.Allocations[j]
			if _, err := keel.ParseAddress(alloc.Address); err != nil {
				return errors.WithMessage(err, "genesis: allocation address")
			}
			if alloc.amount, err = parseAmount(alloc.Amount); err != nil {
				return errors.WithMessage(err, "genesis: allocation amount")
			}
		}
	}

	if cfg.Rewards != nil {
		if cfg.Rewards.amount, err = parseAmount(cfg.Rewards.Amount); err != nil {
			return errors.WithMessage(err, "genesis: reward amount")
		}
		if cfg.Rewards.Days == 0 {
			return errors.New("genesis: reward days must be positive")
		}
	}
	return nil
}

func parseAmount(s string) (*big.Int, error) {
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return nil, errors.Errorf("invalid decimal amount %q", s)
	}
	if v.Sign() < 0 {
		return nil, errors.New("amount must not be negative")
	}
	return v, nil
}
