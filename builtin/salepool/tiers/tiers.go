// Copyright (c) 2025 The Keel developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package tiers implements the tier allocation engine of tiered sale pools.
// A purchase walks price brackets from the current tier forward and returns a
// pending fill list; nothing is written until the whole walk succeeds. The
// current-tier pointer only ever moves forward.
package tiers

import (
	"math/big"

	"github.com/keel-fi/keel/builtin/reverts"
	"github.com/keel-fi/keel/builtin/sslot"
	"github.com/keel-fi/keel/keel"
)

var (
	slotCurrentTier = keel.BytesToBytes32([]byte("current-tier"))
	slotSold        = keel.BytesToBytes32([]byte("sold-in-tier"))
	slotPurchased   = keel.BytesToBytes32([]byte("purchased-in-tier"))
)

var (
	// ErrSlippageExceeded a crossed tier's price is above the caller's bound.
	ErrSlippageExceeded = reverts.New("tiers: price exceeds slippage bound")
	// ErrBelowTierMinimum the fill landing in a tier is below that tier's
	// per-user minimum.
	ErrBelowTierMinimum = reverts.New("tiers: amount below tier minimum")
	// ErrInsufficientSupply demand remains after the last tier.
	ErrInsufficientSupply = reverts.New("tiers: insufficient supply")

	errEmptyTiers = reverts.New("tiers: no tiers")
	errTierAmount = reverts.New("tiers: tier amount must be positive")
	errTierPrice  = reverts.New("tiers: tier prices must be positive and ascending")
	errTierBounds = reverts.New("tiers: tier minimum exceeds maximum")
	errTierSum    = reverts.New("tiers: tier amounts do not sum to shares for sale")
)

// Tier is one price bracket. All amounts are 18-decimal normalized.
type Tier struct {
	AmountForSale  *big.Int
	PricePerShare  *big.Int
	MaximumPerUser *big.Int
	MinimumPerUser *big.Int
}

// Validate checks a tier list against factory creation rules: at least one
// tier, positive amounts, strictly ascending positive prices, per-user
// minimum not above maximum, and amounts summing to sharesForSale.
func Validate(list []Tier, sharesForSale *big.Int) error {
	if len(list) == 0 {
		return errEmptyTiers
	}
	sum := new(big.Int)
	prevPrice := new(big.Int)
	for _, t := range list {
		if t.AmountForSale == nil || t.AmountForSale.Sign() <= 0 {
			return errTierAmount
		}
		if t.PricePerShare == nil || t.PricePerShare.Cmp(prevPrice) <= 0 {
			return errTierPrice
		}
		if t.MinimumPerUser != nil && t.MaximumPerUser != nil &&
			t.MaximumPerUser.Sign() > 0 && t.MinimumPerUser.Cmp(t.MaximumPerUser) > 0 {
			return errTierBounds
		}
		sum.Add(sum, t.AmountForSale)
		prevPrice = t.PricePerShare
	}
	if sum.Cmp(sharesForSale) != 0 {
		return errTierSum
	}
	return nil
}

// Fill is one tier's slice of a purchase.
type Fill struct {
	TierIndex uint32
	SharesOut *big.Int
	AssetsIn  *big.Int
}

// Ledger holds the mutable tier state of one pool: the current-tier pointer,
// per-tier sold amounts and per-user per-tier purchases.
type Ledger struct {
	currentTier *sslot.Uint64
	sold        *sslot.Mapping[sslot.U32Key, *big.Int]
	purchased   *sslot.Mapping[sslot.CompositeKey, *big.Int]
}

func NewLedger(sctx *sslot.Context) *Ledger {
	return &Ledger{
		currentTier: sslot.NewUint64(sctx, slotCurrentTier),
		sold:        sslot.NewMapping[sslot.U32Key, *big.Int](sctx, slotSold),
		purchased:   sslot.NewMapping[sslot.CompositeKey, *big.Int](sctx, slotPurchased),
	}
}

// CurrentTier returns the active tier index.
func (l *Ledger) CurrentTier() (uint32, error) {
	i, err := l.currentTier.Get()
	return uint32(i), err
}

// Sold returns the cumulative amount sold in a tier.
func (l *Ledger) Sold(tier uint32) (*big.Int, error) {
	v, err := l.sold.Get(sslot.U32Key(tier))
	if err != nil {
		return nil, err
	}
	if v == nil {
		return new(big.Int), nil
	}
	return v, nil
}

// Purchased returns what the buyer already bought in a tier.
func (l *Ledger) Purchased(buyer keel.Address, tier uint32) (*big.Int, error) {
	v, err := l.purchased.Get(l.purchaseKey(buyer, tier))
	if err != nil {
		return nil, err
	}
	if v == nil {
		return new(big.Int), nil
	}
	return v, nil
}

func (l *Ledger) purchaseKey(buyer keel.Address, tier uint32) sslot.CompositeKey {
	return sslot.CompositeKey{buyer.Bytes(), sslot.U32Key(tier).Bytes()}
}

// Allocate walks tiers from the current tier and splits the requested share
// quantity into per-tier fills. maxPricePerShare of zero disables the
// slippage bound. The ledger is not modified; commit the returned fills with
// Commit once the surrounding purchase has fully succeeded.
func (l *Ledger) Allocate(list []Tier, buyer keel.Address, shares, maxPricePerShare *big.Int) ([]Fill, error) {
	current, err := l.CurrentTier()
	if err != nil {
		return nil, err
	}

	remaining := new(big.Int).Set(shares)
	var fills []Fill

	for i := current; i < uint32(len(list)) && remaining.Sign() > 0; i++ {
		tier := &list[i]
		if maxPricePerShare != nil && maxPricePerShare.Sign() > 0 &&
			tier.PricePerShare.Cmp(maxPricePerShare) > 0 {
			return nil, ErrSlippageExceeded
		}

		sold, err := l.Sold(i)
		if err != nil {
			return nil, err
		}
		supply := new(big.Int).Sub(tier.AmountForSale, sold)

		allowance := new(big.Int).Set(supply)
		if tier.MaximumPerUser != nil && tier.MaximumPerUser.Sign() > 0 {
			bought, err := l.Purchased(buyer, i)
			if err != nil {
				return nil, err
			}
			allowance.Sub(tier.MaximumPerUser, bought)
			if allowance.Cmp(supply) > 0 {
				allowance.Set(supply)
			}
		}

		fill := new(big.Int).Set(remaining)
		if fill.Cmp(allowance) > 0 {
			fill.Set(allowance)
		}
		// an exhausted tier limit pushes the remainder into the next tier
		if fill.Sign() <= 0 {
			continue
		}
		if tier.MinimumPerUser != nil && fill.Cmp(tier.MinimumPerUser) < 0 {
			return nil, ErrBelowTierMinimum
		}

		assets := new(big.Int).Mul(fill, tier.PricePerShare)
		// round charged assets up so truncation never favors the buyer
		assets.Add(assets, new(big.Int).Sub(keel.WAD, big.NewInt(1)))
		assets.Div(assets, keel.WAD)

		fills = append(fills, Fill{TierIndex: i, SharesOut: fill, AssetsIn: assets})
		remaining.Sub(remaining, fill)
	}

	if remaining.Sign() > 0 {
		return nil, ErrInsufficientSupply
	}
	return fills, nil
}

// Commit applies a fill list produced by Allocate and advances the
// current-tier pointer past every tier that sold out. Returns the indices of
// tiers rolled over, in order.
func (l *Ledger) Commit(list []Tier, buyer keel.Address, fills []Fill) ([]uint32, error) {
	var rolled []uint32
	for _, f := range fills {
		sold, err := l.Sold(f.TierIndex)
		if err != nil {
			return nil, err
		}
		sold = new(big.Int).Add(sold, f.SharesOut)
		if err := l.sold.Set(sslot.U32Key(f.TierIndex), sold); err != nil {
			return nil, err
		}
		bought, err := l.Purchased(buyer, f.TierIndex)
		if err != nil {
			return nil, err
		}
		if err := l.purchased.Set(l.purchaseKey(buyer, f.TierIndex), new(big.Int).Add(bought, f.SharesOut)); err != nil {
			return nil, err
		}
		// one-way ratchet: a filled tier never reopens
		if sold.Cmp(list[f.TierIndex].AmountForSale) >= 0 {
			l.currentTier.Set(uint64(f.TierIndex) + 1)
			rolled = append(rolled, f.TierIndex)
		}
	}
	return rolled, nil
}
