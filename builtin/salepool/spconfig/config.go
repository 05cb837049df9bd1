// Copyright (c) 2025 The Keel developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package spconfig holds the immutable, versioned configuration of a sale
// pool. The factory validates and normalizes a config once at creation; the
// pool reads it back verbatim for every operation. Configs are stored as an
// RLP struct by value, one version field ahead of any future layout change.
package spconfig

import (
	"math/big"

	"github.com/keel-fi/keel/builtin/reverts"
	"github.com/keel-fi/keel/builtin/salepool/tiers"
	"github.com/keel-fi/keel/builtin/sslot"
	"github.com/keel-fi/keel/keel"
	"github.com/keel-fi/keel/state"
)

// Version is the current config layout version.
const Version = 1

var slotConfig = keel.BytesToBytes32([]byte("sale-pool-config"))

// Kind discriminates the pool pricing model.
type Kind uint8

const (
	// KindFixed sells shares at a fixed price, optionally tiered.
	KindFixed Kind = iota + 1
	// KindOverflow collects assets and distributes shares pro-rata at close.
	KindOverflow
)

var (
	errBadKind          = reverts.New("salepool: unknown pool kind")
	errZeroOwner        = reverts.New("salepool: zero owner address")
	errZeroToken        = reverts.New("salepool: zero token address")
	errSameToken        = reverts.New("salepool: share and asset token identical")
	errBadDecimals      = reverts.New("salepool: token decimals out of range")
	errFeeTooHigh       = reverts.New("salepool: fee exceeds maximum")
	errBadSaleWindow    = reverts.New("salepool: sale end not after sale start")
	errBadVestingWindow = reverts.New("salepool: invalid vesting window ordering")
	errNoShares         = reverts.New("salepool: shares for sale must be positive")
	errBadPrice         = reverts.New("salepool: price per share must be positive")
	errBadReserve       = reverts.New("salepool: minimum raise exceeds shares for sale")
	errTiersOnOverflow  = reverts.New("salepool: overflow pools cannot be tiered")
)

// Config is the immutable parameter set of one sale pool. Amount and price
// fields are 18-decimal normalized; the factory performs the normalization
// from native token precision.
type Config struct {
	Version uint32
	Kind    Kind
	Owner   keel.Address

	ShareToken    keel.Address
	AssetToken    keel.Address
	ShareDecimals uint8
	AssetDecimals uint8

	// SharesForSale is the full amount escrowed at creation.
	SharesForSale *big.Int
	// PricePerShare applies to non-tiered fixed pools only.
	PricePerShare *big.Int
	// MinimumRaise is the raise reserve: shares sold for fixed pools, assets
	// raised for overflow pools. Below it, close takes the refund path.
	MinimumRaise *big.Int
	// HardCap bounds assets raised by overflow pools; zero means uncapped.
	HardCap *big.Int
	// MaxPerUser caps one buyer's cumulative purchase (shares for fixed,
	// assets for overflow); zero means uncapped.
	MaxPerUser *big.Int

	// PlatformFee and SwapFee are WAD fractions (1e18 = 100%).
	PlatformFee *big.Int
	SwapFee     *big.Int

	SaleStart       uint64
	SaleEnd         uint64
	RedemptionDelay uint64

	// VestCliff/VestEnd define the vesting window for redeemed shares;
	// both zero disables vesting.
	VestCliff uint64
	VestEnd   uint64

	// WhitelistRoot gates buyers by Merkle membership proof; zero is open.
	WhitelistRoot keel.Bytes32
	// AntiSnipeSigner, when set, makes every purchase carry a fresh
	// signature from this account.
	AntiSnipeSigner keel.Address

	Tiers []tiers.Tier
}

// Tiered returns whether the pool prices through tiers.
func (c *Config) Tiered() bool {
	return len(c.Tiers) > 0
}

// Vesting returns whether redeemed shares vest through a stream.
func (c *Config) Vesting() bool {
	return c.VestEnd != 0
}

// Validate checks creation rules. maxPlatformFee and maxSwapFee come from
// governance params.
func (c *Config) Validate(maxPlatformFee, maxSwapFee *big.Int) error {
	if c.Kind != KindFixed && c.Kind != KindOverflow {
		return errBadKind
	}
	if c.Owner.IsZero() {
		return errZeroOwner
	}
	if c.ShareToken.IsZero() || c.AssetToken.IsZero() {
		return errZeroToken
	}
	if c.ShareToken == c.AssetToken {
		return errSameToken
	}
	if c.ShareDecimals > 18 || c.AssetDecimals > 18 {
		return errBadDecimals
	}
	if c.PlatformFee == nil || c.PlatformFee.Cmp(maxPlatformFee) > 0 {
		return errFeeTooHigh
	}
	if c.SwapFee == nil || c.SwapFee.Cmp(maxSwapFee) > 0 {
		return errFeeTooHigh
	}
	if c.SaleEnd <= c.SaleStart {
		return errBadSaleWindow
	}
	if c.VestCliff != 0 || c.VestEnd != 0 {
		if c.VestEnd < c.VestCliff || c.VestCliff < c.SaleEnd+c.RedemptionDelay {
			return errBadVestingWindow
		}
	}
	if c.SharesForSale == nil || c.SharesForSale.Sign() <= 0 {
		return errNoShares
	}

	switch c.Kind {
	case KindFixed:
		if c.Tiered() {
			if err := tiers.Validate(c.Tiers, c.SharesForSale); err != nil {
				return err
			}
		} else if c.PricePerShare == nil || c.PricePerShare.Sign() <= 0 {
			return errBadPrice
		}
		if c.MinimumRaise != nil && c.MinimumRaise.Cmp(c.SharesForSale) > 0 {
			return errBadReserve
		}
	case KindOverflow:
		if c.Tiered() {
			return errTiersOnOverflow
		}
	}
	return nil
}

// Save stores the config under the pool's address.
func Save(st *state.State, pool keel.Address, cfg *Config) error {
	return configSlot(st, pool).Set(cfg)
}

// Load reads the config stored under the pool's address. ok is false when no
// pool lives at that address.
func Load(st *state.State, pool keel.Address) (*Config, bool, error) {
	return configSlot(st, pool).Get()
}

func configSlot(st *state.State, pool keel.Address) *sslot.Value[*Config] {
	return sslot.NewValue[*Config](sslot.NewContext(pool, st), slotConfig)
}
