// Copyright (c) 2025 The Keel developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package salepool

import (
	"math/big"

	"github.com/keel-fi/keel/keel"
)

// Event names emitted by the sale pool contracts.
const (
	EventPoolCreated     = "PoolCreated"
	EventSharesPurchased = "SharesPurchased"
	EventTierRollover    = "TierRollover"
	EventSaleCapReached  = "SaleCapReached"
	EventSaleClosed      = "SaleClosed"
	EventRaiseGoalNotMet = "RaiseGoalNotMet"
	EventRedeemed        = "Redeemed"
	EventRefunded        = "Refunded"
	EventStreamStarted   = "StreamStarted"
	EventSaleCanceled    = "SaleCanceled"
	EventSalePaused      = "SalePaused"
	EventSaleResumed     = "SaleResumed"
)

type PoolCreatedEvent struct {
	Pool       keel.Address `json:"pool"`
	Owner      keel.Address `json:"owner"`
	Kind       uint8        `json:"kind"`
	ShareToken keel.Address `json:"shareToken"`
	AssetToken keel.Address `json:"assetToken"`
	Shares     *big.Int     `json:"shares"`
}

type SharesPurchasedEvent struct {
	Buyer     keel.Address `json:"buyer"`
	SharesOut *big.Int     `json:"sharesOut"`
	AssetsIn  *big.Int     `json:"assetsIn"`
	SwapFee   *big.Int     `json:"swapFee"`
}

type TierRolloverEvent struct {
	TierIndex uint32 `json:"tierIndex"`
	NextTier  uint32 `json:"nextTier"`
}

type SaleCapReachedEvent struct {
	TotalSharesSold   *big.Int `json:"totalSharesSold"`
	TotalAssetsRaised *big.Int `json:"totalAssetsRaised"`
}

type SaleClosedEvent struct {
	TotalSharesSold   *big.Int `json:"totalSharesSold"`
	TotalAssetsRaised *big.Int `json:"totalAssetsRaised"`
	PlatformFee       *big.Int `json:"platformFee"`
	SwapFees          *big.Int `json:"swapFees"`
	ReserveMet        bool     `json:"reserveMet"`
}

type RaiseGoalNotMetEvent struct {
	TotalSharesSold   *big.Int `json:"totalSharesSold"`
	TotalAssetsRaised *big.Int `json:"totalAssetsRaised"`
	MinimumRaise      *big.Int `json:"minimumRaise"`
}

type RedeemedEvent struct {
	Buyer  keel.Address `json:"buyer"`
	Shares *big.Int     `json:"shares"`
}

type RefundedEvent struct {
	Buyer  keel.Address `json:"buyer"`
	Assets *big.Int     `json:"assets"`
}

type StreamStartedEvent struct {
	Buyer    keel.Address `json:"buyer"`
	Shares   *big.Int     `json:"shares"`
	StreamID uint64       `json:"streamId"`
}

type SaleCanceledEvent struct {
	Owner          keel.Address `json:"owner"`
	SharesReturned *big.Int     `json:"sharesReturned"`
}
