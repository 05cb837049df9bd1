// Copyright (c) 2025 The Keel developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package salepool implements the token sale pool factory and the pool
// lifecycle state machine. A pool escrows the shares offered for sale at
// creation, collects asset tokens from buyers, and settles at close either by
// distributing fees and proceeds (raise reserve met) or by switching to the
// refund path (reserve not met).
package salepool

import (
	"encoding/binary"
	"math/big"

	"github.com/ethereum/go-ethereum/crypto"

	"github.com/keel-fi/keel/builtin/params"
	"github.com/keel-fi/keel/builtin/reverts"
	"github.com/keel-fi/keel/builtin/salepool/spconfig"
	"github.com/keel-fi/keel/builtin/salepool/tiers"
	"github.com/keel-fi/keel/builtin/sslot"
	"github.com/keel-fi/keel/builtin/token"
	"github.com/keel-fi/keel/fixd"
	"github.com/keel-fi/keel/keel"
	"github.com/keel-fi/keel/log"
	"github.com/keel-fi/keel/xenv"
)

var logger = log.WithContext("pkg", "salepool")

var (
	slotStatus      = keel.BytesToBytes32([]byte("status"))
	slotSharesSold  = keel.BytesToBytes32([]byte("total-shares-sold"))
	slotAssetsIn    = keel.BytesToBytes32([]byte("total-assets-raised"))
	slotSwapFees    = keel.BytesToBytes32([]byte("swap-fees-accrued"))
	slotClosedAt    = keel.BytesToBytes32([]byte("closed-at"))
	slotReserveMet  = keel.BytesToBytes32([]byte("reserve-met"))
	slotPurchased   = keel.BytesToBytes32([]byte("purchased-shares"))
	slotBuyerAssets = keel.BytesToBytes32([]byte("buyer-assets-in"))
	slotBuyNonces   = keel.BytesToBytes32([]byte("buy-nonces"))
	slotStreamIDs   = keel.BytesToBytes32([]byte("stream-ids"))
)

var (
	errUnknownPool        = reverts.New("salepool: no pool at address")
	errSaleNotActive      = reverts.New("salepool: sale not active")
	errOutsideSaleWindow  = reverts.New("salepool: outside sale window")
	errZeroAmount         = reverts.New("salepool: zero amount")
	errZeroAddress        = reverts.New("salepool: zero buyer address")
	errBelowMinimumSwap   = reverts.New("salepool: amount below mandatory minimum swap")
	errNotWhitelisted     = reverts.New("salepool: whitelist proof invalid")
	errSnipeExpired       = reverts.New("salepool: anti-snipe signature deadline passed")
	errSnipeSignature     = reverts.New("salepool: invalid anti-snipe signature")
	errUserCapExceeded    = reverts.New("salepool: per-user cap exceeded")
	errSharesSoldOut      = reverts.New("salepool: not enough shares left")
	errHardCapExceeded    = reverts.New("salepool: hard cap exceeded")
	errCannotClose        = reverts.New("salepool: neither sale end passed nor cap reached")
	errSaleCanceled       = reverts.New("salepool: sale canceled")
	errSaleNotClosed      = reverts.New("salepool: sale not closed")
	errRedeemTooEarly     = reverts.New("salepool: redemption delay not elapsed")
	errNothingToRedeem    = reverts.New("salepool: nothing to redeem")
	errNotOwner           = reverts.New("salepool: caller is not pool owner")
	errCancelWindowPassed = reverts.New("salepool: sale already started")
	errPoolTerminal       = reverts.New("salepool: pool is closed or canceled")
)

// Status of the pool lifecycle.
type Status uint8

const (
	StatusActive Status = iota + 1
	StatusPaused
	StatusClosed
	StatusCanceled
)

func (s Status) String() string {
	switch s {
	case StatusActive:
		return "active"
	case StatusPaused:
		return "paused"
	case StatusClosed:
		return "closed"
	case StatusCanceled:
		return "canceled"
	default:
		return "unknown"
	}
}

// StreamCreator starts vesting streams for redeemed shares. The pool grants
// it unlimited share-token allowance at close when vesting is configured.
type StreamCreator interface {
	Address() keel.Address
	Create(token, recipient keel.Address, amount *big.Int, cliff, end uint64) (uint64, error)
}

// BuyOrder carries one purchase request. Amount is in native precision:
// shares requested for fixed pools, assets deposited for overflow pools.
type BuyOrder struct {
	Amount *big.Int
	// MaxPricePerShare bounds slippage across tier rollovers, in native
	// asset precision per whole share. Zero or nil disables the bound.
	MaxPricePerShare *big.Int
	// Proof is the whitelist Merkle path, required when the pool has a
	// whitelist root.
	Proof [][]byte
	// Signature and Deadline satisfy the anti-snipe gate when configured.
	Signature []byte
	Deadline  uint64
}

// Pool binds the sale pool state machine at a pool address.
type Pool struct {
	addr     keel.Address
	env      *xenv.Environment
	cfg      *spconfig.Config
	registry *params.Params
	streams  StreamCreator
	prover   MembershipProver

	shareToken *token.Token
	assetToken *token.Token

	status            *sslot.Uint64
	totalSharesSold   *sslot.Uint256
	totalAssetsRaised *sslot.Uint256
	swapFees          *sslot.Uint256
	closedAt          *sslot.Uint64
	reserveMet        *sslot.Uint64
	purchased         *sslot.Mapping[keel.Address, *big.Int]
	buyerAssets       *sslot.Mapping[keel.Address, *big.Int]
	nonces            *sslot.Mapping[keel.Address, uint64]
	streamIDs         *sslot.Mapping[keel.Address, uint64]
	tierLedger        *tiers.Ledger
}

// Bind loads the pool living at addr. Fails when no pool was created there.
func Bind(addr keel.Address, env *xenv.Environment, registry *params.Params, streams StreamCreator, prover MembershipProver) (*Pool, error) {
	cfg, ok, err := spconfig.Load(env.State(), addr)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, errUnknownPool
	}
	return bind(addr, env, registry, streams, prover, cfg), nil
}

func bind(addr keel.Address, env *xenv.Environment, registry *params.Params, streams StreamCreator, prover MembershipProver, cfg *spconfig.Config) *Pool {
	sctx := sslot.NewContext(addr, env.State())
	return &Pool{
		addr:     addr,
		env:      env,
		cfg:      cfg,
		registry: registry,
		streams:  streams,
		prover:   prover,

		shareToken: token.New(cfg.ShareToken, env.State()),
		assetToken: token.New(cfg.AssetToken, env.State()),

		status:            sslot.NewUint64(sctx, slotStatus),
		totalSharesSold:   sslot.NewUint256(sctx, slotSharesSold),
		totalAssetsRaised: sslot.NewUint256(sctx, slotAssetsIn),
		swapFees:          sslot.NewUint256(sctx, slotSwapFees),
		closedAt:          sslot.NewUint64(sctx, slotClosedAt),
		reserveMet:        sslot.NewUint64(sctx, slotReserveMet),
		purchased:         sslot.NewMapping[keel.Address, *big.Int](sctx, slotPurchased),
		buyerAssets:       sslot.NewMapping[keel.Address, *big.Int](sctx, slotBuyerAssets),
		nonces:            sslot.NewMapping[keel.Address, uint64](sctx, slotBuyNonces),
		streamIDs:         sslot.NewMapping[keel.Address, uint64](sctx, slotStreamIDs),
		tierLedger:        tiers.NewLedger(sctx),
	}
}

// Address returns the pool's contract address.
func (p *Pool) Address() keel.Address { return p.addr }

// Config returns the pool's immutable configuration.
func (p *Pool) Config() *spconfig.Config { return p.cfg }

// Status returns the pool's lifecycle state.
func (p *Pool) Status() (Status, error) {
	v, err := p.status.Get()
	return Status(v), err
}

// Totals returns shares sold, assets raised and escrowed swap fees, all
// 18-decimal normalized.
func (p *Pool) Totals() (sharesSold, assetsRaised, swapFees *big.Int, err error) {
	if sharesSold, err = p.totalSharesSold.Get(); err != nil {
		return
	}
	if assetsRaised, err = p.totalAssetsRaised.Get(); err != nil {
		return
	}
	swapFees, err = p.swapFees.Get()
	return
}

// BuyerRecord returns a buyer's tracked purchase: shares bought and assets
// paid in (net of swap fees), 18-decimal normalized.
func (p *Pool) BuyerRecord(buyer keel.Address) (shares, assets *big.Int, err error) {
	if shares, err = p.mappingAmount(p.purchased, buyer); err != nil {
		return
	}
	assets, err = p.mappingAmount(p.buyerAssets, buyer)
	return
}

// BuyNonce returns the buyer's next anti-snipe nonce.
func (p *Pool) BuyNonce(buyer keel.Address) (uint64, error) {
	return p.nonces.Get(buyer)
}

// StreamID returns the vesting stream recorded for a buyer at redemption, or
// zero when none was created.
func (p *Pool) StreamID(buyer keel.Address) (uint64, error) {
	return p.streamIDs.Get(buyer)
}

// CurrentTier returns the active tier index of a tiered pool.
func (p *Pool) CurrentTier() (uint32, error) {
	return p.tierLedger.CurrentTier()
}

// TierSold returns the cumulative shares sold in a tier.
func (p *Pool) TierSold(tier uint32) (*big.Int, error) {
	return p.tierLedger.Sold(tier)
}

func (p *Pool) mappingAmount(m *sslot.Mapping[keel.Address, *big.Int], key keel.Address) (*big.Int, error) {
	v, err := m.Get(key)
	if err != nil {
		return nil, err
	}
	if v == nil {
		return new(big.Int), nil
	}
	return v, nil
}

// SnipeDigest computes the digest the anti-snipe signer signs to authorize
// one purchase by buyer at the given nonce.
func SnipeDigest(pool, buyer keel.Address, nonce, deadline uint64) keel.Bytes32 {
	var nb, db [8]byte
	binary.BigEndian.PutUint64(nb[:], nonce)
	binary.BigEndian.PutUint64(db[:], deadline)
	return keel.Keccak256(
		[]byte("keel-sale"),
		pool.Bytes(),
		buyer.Bytes(),
		nb[:],
		db[:],
	)
}

// Buy purchases shares (fixed pools) or deposits assets (overflow pools).
// When the purchase fills the pool's cap the sale closes within the same
// call.
func (p *Pool) Buy(order *BuyOrder) error {
	buyer := p.env.Caller()
	now := p.env.BlockContext().Time

	st, err := p.Status()
	if err != nil {
		return err
	}
	if st != StatusActive {
		return errSaleNotActive
	}
	if now < p.cfg.SaleStart || now >= p.cfg.SaleEnd {
		return errOutsideSaleWindow
	}

	if p.cfg.WhitelistRoot != (keel.Bytes32{}) {
		if !p.prover.Verify(p.cfg.WhitelistRoot, buyer, order.Proof) {
			return errNotWhitelisted
		}
	}
	if !p.cfg.AntiSnipeSigner.IsZero() {
		if err := p.checkSnipeSignature(buyer, order, now); err != nil {
			return err
		}
	}
	if buyer.IsZero() {
		return errZeroAddress
	}
	if order.Amount == nil || order.Amount.Sign() <= 0 {
		return errZeroAmount
	}

	var (
		shares  *big.Int // 18-dec shares out, zero for overflow pools
		charged *big.Int // 18-dec assets charged, exact in native precision
		fills   []tiers.Fill
	)
	switch p.cfg.Kind {
	case spconfig.KindFixed:
		shares = fixd.Normalize(order.Amount, p.cfg.ShareDecimals)
		if charged, fills, err = p.priceFixed(buyer, shares, order.MaxPricePerShare); err != nil {
			return err
		}
	case spconfig.KindOverflow:
		charged = fixd.Normalize(order.Amount, p.cfg.AssetDecimals)
		shares = new(big.Int)
	}

	fee := new(big.Int).Mul(charged, p.cfg.SwapFee)
	fee.Div(fee, keel.WAD)
	net := new(big.Int).Sub(charged, fee)

	chargeNative := fixd.DenormalizeUp(charged, p.cfg.AssetDecimals)
	if minIn := fixd.MandatoryMinimumSwapIn(p.cfg.ShareDecimals, p.cfg.AssetDecimals); minIn.Sign() > 0 {
		if chargeNative.Cmp(minIn) < 0 {
			return errBelowMinimumSwap
		}
	}

	if err := p.checkCaps(buyer, shares, net); err != nil {
		return err
	}

	if err := p.assetToken.TransferFrom(p.addr, buyer, p.addr, chargeNative); err != nil {
		return err
	}

	if err := p.recordPurchase(buyer, shares, net, fee); err != nil {
		return err
	}
	if fills != nil {
		rolled, err := p.tierLedger.Commit(p.cfg.Tiers, buyer, fills)
		if err != nil {
			return err
		}
		for _, tier := range rolled {
			p.env.Log(p.addr, EventTierRollover, &TierRolloverEvent{TierIndex: tier, NextTier: tier + 1})
		}
	}
	if !p.cfg.AntiSnipeSigner.IsZero() {
		nonce, err := p.nonces.Get(buyer)
		if err != nil {
			return err
		}
		if err := p.nonces.Set(buyer, nonce+1); err != nil {
			return err
		}
	}

	p.env.Log(p.addr, EventSharesPurchased, &SharesPurchasedEvent{
		Buyer:     buyer,
		SharesOut: shares,
		AssetsIn:  charged,
		SwapFee:   fee,
	})
	logger.Debug("shares purchased", "pool", p.addr, "buyer", buyer, "assetsIn", charged)

	return p.autoClose()
}

func (p *Pool) checkSnipeSignature(buyer keel.Address, order *BuyOrder, now uint64) error {
	if order.Deadline < now {
		return errSnipeExpired
	}
	nonce, err := p.nonces.Get(buyer)
	if err != nil {
		return err
	}
	digest := SnipeDigest(p.addr, buyer, nonce, order.Deadline)
	pub, err := crypto.SigToPub(digest.Bytes(), order.Signature)
	if err != nil {
		return errSnipeSignature
	}
	if keel.Address(crypto.PubkeyToAddress(*pub)) != p.cfg.AntiSnipeSigner {
		return errSnipeSignature
	}
	return nil
}

// priceFixed computes the 18-decimal asset charge for a fixed-price
// purchase, walking tiers when the pool is tiered.
func (p *Pool) priceFixed(buyer keel.Address, shares, maxPriceNative *big.Int) (*big.Int, []tiers.Fill, error) {
	sold, err := p.totalSharesSold.Get()
	if err != nil {
		return nil, nil, err
	}
	if new(big.Int).Add(sold, shares).Cmp(p.cfg.SharesForSale) > 0 {
		return nil, nil, errSharesSoldOut
	}

	if p.cfg.Tiered() {
		var maxPrice *big.Int
		if maxPriceNative != nil && maxPriceNative.Sign() > 0 {
			maxPrice = fixd.Normalize(maxPriceNative, p.cfg.AssetDecimals)
		}
		fills, err := p.tierLedger.Allocate(p.cfg.Tiers, buyer, shares, maxPrice)
		if err != nil {
			return nil, nil, err
		}
		charged := new(big.Int)
		for _, f := range fills {
			charged.Add(charged, f.AssetsIn)
		}
		return charged, fills, nil
	}

	// single price: charge = shares * price / WAD, rounded against the buyer
	charged := new(big.Int).Mul(shares, p.cfg.PricePerShare)
	charged.Add(charged, new(big.Int).Sub(keel.WAD, big.NewInt(1)))
	charged.Div(charged, keel.WAD)
	return charged, nil, nil
}

func (p *Pool) checkCaps(buyer keel.Address, shares, netAssets *big.Int) error {
	if p.cfg.MaxPerUser != nil && p.cfg.MaxPerUser.Sign() > 0 {
		var cum *big.Int
		var add *big.Int
		if p.cfg.Kind == spconfig.KindFixed {
			bought, err := p.mappingAmount(p.purchased, buyer)
			if err != nil {
				return err
			}
			cum, add = bought, shares
		} else {
			paid, err := p.mappingAmount(p.buyerAssets, buyer)
			if err != nil {
				return err
			}
			cum, add = paid, netAssets
		}
		if new(big.Int).Add(cum, add).Cmp(p.cfg.MaxPerUser) > 0 {
			return errUserCapExceeded
		}
	}

	if p.cfg.Kind == spconfig.KindOverflow && p.cfg.HardCap != nil && p.cfg.HardCap.Sign() > 0 {
		raised, err := p.totalAssetsRaised.Get()
		if err != nil {
			return err
		}
		if new(big.Int).Add(raised, netAssets).Cmp(p.cfg.HardCap) > 0 {
			return errHardCapExceeded
		}
	}
	return nil
}

func (p *Pool) recordPurchase(buyer keel.Address, shares, net, fee *big.Int) error {
	if shares.Sign() > 0 {
		bought, err := p.mappingAmount(p.purchased, buyer)
		if err != nil {
			return err
		}
		if err := p.purchased.Set(buyer, new(big.Int).Add(bought, shares)); err != nil {
			return err
		}
		if err := p.totalSharesSold.Add(shares); err != nil {
			return err
		}
	}
	paid, err := p.mappingAmount(p.buyerAssets, buyer)
	if err != nil {
		return err
	}
	if err := p.buyerAssets.Set(buyer, new(big.Int).Add(paid, net)); err != nil {
		return err
	}
	if err := p.totalAssetsRaised.Add(net); err != nil {
		return err
	}
	return p.swapFees.Add(fee)
}

// capReached reports whether the pool's hard cap is met: all shares sold for
// fixed pools, the asset hard cap for overflow pools.
func (p *Pool) capReached() (bool, error) {
	switch p.cfg.Kind {
	case spconfig.KindFixed:
		sold, err := p.totalSharesSold.Get()
		if err != nil {
			return false, err
		}
		return sold.Cmp(p.cfg.SharesForSale) >= 0, nil
	case spconfig.KindOverflow:
		if p.cfg.HardCap == nil || p.cfg.HardCap.Sign() == 0 {
			return false, nil
		}
		raised, err := p.totalAssetsRaised.Get()
		if err != nil {
			return false, err
		}
		return raised.Cmp(p.cfg.HardCap) >= 0, nil
	}
	return false, nil
}

func (p *Pool) autoClose() error {
	reached, err := p.capReached()
	if err != nil {
		return err
	}
	if !reached {
		return nil
	}
	sold, raised, _, err := p.Totals()
	if err != nil {
		return err
	}
	p.env.Log(p.addr, EventSaleCapReached, &SaleCapReachedEvent{
		TotalSharesSold:   sold,
		TotalAssetsRaised: raised,
	})
	return p.close()
}

// Close settles the sale. Anyone may call it once the sale end time passed
// or the cap is reached.
func (p *Pool) Close() error {
	st, err := p.Status()
	if err != nil {
		return err
	}
	if st != StatusActive && st != StatusPaused {
		return errPoolTerminal
	}
	reached, err := p.capReached()
	if err != nil {
		return err
	}
	if p.env.BlockContext().Time < p.cfg.SaleEnd && !reached {
		return errCannotClose
	}
	return p.close()
}

func (p *Pool) close() error {
	now := p.env.BlockContext().Time
	end := min(now, p.cfg.SaleEnd)
	p.closedAt.Set(end)
	p.status.Set(uint64(StatusClosed))

	sold, raised, fees, err := p.Totals()
	if err != nil {
		return err
	}
	met := p.isReserveMet(sold, raised)
	if met {
		p.reserveMet.Set(1)
	}

	feeRecipient, err := p.registry.GetAddress(keel.KeyPlatformFeeRecipient)
	if err != nil {
		return err
	}

	if !met {
		// refund path: escrowed swap fees still go to the fee recipient,
		// the raised assets stay in the pool backing per-user refunds, and
		// the full share escrow returns to the owner.
		if err := p.payAssets(feeRecipient, fees); err != nil {
			return err
		}
		if err := p.payShares(p.cfg.Owner, p.cfg.SharesForSale); err != nil {
			return err
		}
		p.env.Log(p.addr, EventRaiseGoalNotMet, &RaiseGoalNotMetEvent{
			TotalSharesSold:   sold,
			TotalAssetsRaised: raised,
			MinimumRaise:      p.cfg.MinimumRaise,
		})
		p.env.Log(p.addr, EventSaleClosed, &SaleClosedEvent{
			TotalSharesSold:   sold,
			TotalAssetsRaised: raised,
			PlatformFee:       new(big.Int),
			SwapFees:          fees,
			ReserveMet:        false,
		})
		logger.Info("sale closed, raise goal not met", "pool", p.addr, "raised", raised)
		return nil
	}

	platformFee := new(big.Int).Mul(raised, p.cfg.PlatformFee)
	platformFee.Div(platformFee, keel.WAD)
	ownerProceeds := new(big.Int).Sub(raised, platformFee)

	if err := p.payAssets(feeRecipient, new(big.Int).Add(platformFee, fees)); err != nil {
		return err
	}
	if err := p.payAssets(p.cfg.Owner, ownerProceeds); err != nil {
		return err
	}

	// overflow pools distribute the whole escrow pro-rata at redemption, so
	// only fixed pools can have leftover shares.
	if p.cfg.Kind == spconfig.KindFixed {
		leftover := new(big.Int).Sub(p.cfg.SharesForSale, sold)
		if err := p.payShares(p.cfg.Owner, leftover); err != nil {
			return err
		}
	}

	if p.cfg.Vesting() {
		if err := p.shareToken.Approve(p.addr, p.streams.Address(), token.UnlimitedAllowance()); err != nil {
			return err
		}
	}

	p.env.Log(p.addr, EventSaleClosed, &SaleClosedEvent{
		TotalSharesSold:   sold,
		TotalAssetsRaised: raised,
		PlatformFee:       platformFee,
		SwapFees:          fees,
		ReserveMet:        true,
	})
	logger.Info("sale closed", "pool", p.addr, "raised", raised, "platformFee", platformFee)
	return nil
}

func (p *Pool) isReserveMet(sold, raised *big.Int) bool {
	if p.cfg.MinimumRaise == nil || p.cfg.MinimumRaise.Sign() == 0 {
		return true
	}
	if p.cfg.Kind == spconfig.KindOverflow {
		return raised.Cmp(p.cfg.MinimumRaise) >= 0
	}
	return sold.Cmp(p.cfg.MinimumRaise) >= 0
}

// payAssets transfers an 18-decimal asset amount out of the pool, rounded
// down to native precision.
func (p *Pool) payAssets(to keel.Address, amount *big.Int) error {
	native := fixd.DenormalizeDown(amount, p.cfg.AssetDecimals)
	if native.Sign() == 0 {
		return nil
	}
	return p.assetToken.Transfer(p.addr, to, native)
}

// payShares transfers an 18-decimal share amount out of the pool, rounded
// down to native precision.
func (p *Pool) payShares(to keel.Address, amount *big.Int) error {
	native := fixd.DenormalizeDown(amount, p.cfg.ShareDecimals)
	if native.Sign() == 0 {
		return nil
	}
	return p.shareToken.Transfer(p.addr, to, native)
}

// Redeem pays out the caller's entitlement after close: a refund of assets
// paid in when the raise reserve was missed, shares (direct or via vesting
// stream) otherwise. Safe to call repeatedly; later calls find zeroed
// records.
func (p *Pool) Redeem() error {
	buyer := p.env.Caller()
	now := p.env.BlockContext().Time

	st, err := p.Status()
	if err != nil {
		return err
	}
	if st == StatusCanceled {
		return errSaleCanceled
	}
	if st != StatusClosed {
		return errSaleNotClosed
	}
	end, err := p.closedAt.Get()
	if err != nil {
		return err
	}
	if now < end+p.cfg.RedemptionDelay {
		return errRedeemTooEarly
	}

	met, err := p.reserveMet.Get()
	if err != nil {
		return err
	}
	if met == 0 {
		return p.refund(buyer)
	}

	shares, assets, err := p.BuyerRecord(buyer)
	if err != nil {
		return err
	}
	owed := shares
	if p.cfg.Kind == spconfig.KindOverflow {
		raised, err := p.totalAssetsRaised.Get()
		if err != nil {
			return err
		}
		if raised.Sign() == 0 {
			return errNothingToRedeem
		}
		owed = new(big.Int).Mul(p.cfg.SharesForSale, assets)
		owed.Div(owed, raised)
	}
	if owed.Sign() == 0 {
		return errNothingToRedeem
	}

	if err := p.clearBuyer(buyer); err != nil {
		return err
	}

	native := fixd.DenormalizeDown(owed, p.cfg.ShareDecimals)
	if p.cfg.Vesting() && now < p.cfg.VestEnd {
		id, err := p.streams.Create(p.cfg.ShareToken, buyer, native, p.cfg.VestCliff, p.cfg.VestEnd)
		if err != nil {
			return err
		}
		if err := p.streamIDs.Set(buyer, id); err != nil {
			return err
		}
		p.env.Log(p.addr, EventStreamStarted, &StreamStartedEvent{Buyer: buyer, Shares: owed, StreamID: id})
		return nil
	}

	if err := p.shareToken.Transfer(p.addr, buyer, native); err != nil {
		return err
	}
	p.env.Log(p.addr, EventRedeemed, &RedeemedEvent{Buyer: buyer, Shares: owed})
	return nil
}

func (p *Pool) refund(buyer keel.Address) error {
	assets, err := p.mappingAmount(p.buyerAssets, buyer)
	if err != nil {
		return err
	}
	if assets.Sign() == 0 {
		return errNothingToRedeem
	}
	if err := p.clearBuyer(buyer); err != nil {
		return err
	}
	if err := p.payAssets(buyer, assets); err != nil {
		return err
	}
	p.env.Log(p.addr, EventRefunded, &RefundedEvent{Buyer: buyer, Assets: assets})
	return nil
}

func (p *Pool) clearBuyer(buyer keel.Address) error {
	if err := p.purchased.Delete(buyer); err != nil {
		return err
	}
	return p.buyerAssets.Delete(buyer)
}

// CancelSale aborts the sale before it starts and returns the share escrow
// to the owner.
func (p *Pool) CancelSale() error {
	if p.env.Caller() != p.cfg.Owner {
		return errNotOwner
	}
	st, err := p.Status()
	if err != nil {
		return err
	}
	if st != StatusActive && st != StatusPaused {
		return errPoolTerminal
	}
	if p.env.BlockContext().Time >= p.cfg.SaleStart {
		return errCancelWindowPassed
	}

	p.status.Set(uint64(StatusCanceled))
	if err := p.payShares(p.cfg.Owner, p.cfg.SharesForSale); err != nil {
		return err
	}
	p.env.Log(p.addr, EventSaleCanceled, &SaleCanceledEvent{
		Owner:          p.cfg.Owner,
		SharesReturned: p.cfg.SharesForSale,
	})
	logger.Info("sale canceled", "pool", p.addr)
	return nil
}

// TogglePause flips the pool between active and paused.
func (p *Pool) TogglePause() error {
	if p.env.Caller() != p.cfg.Owner {
		return errNotOwner
	}
	st, err := p.Status()
	if err != nil {
		return err
	}
	switch st {
	case StatusActive:
		p.status.Set(uint64(StatusPaused))
		p.env.Log(p.addr, EventSalePaused, nil)
	case StatusPaused:
		p.status.Set(uint64(StatusActive))
		p.env.Log(p.addr, EventSaleResumed, nil)
	default:
		return errPoolTerminal
	}
	return nil
}
