// Copyright (c) 2025 The Keel developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package salepool

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/keel-fi/keel/builtin/salepool/spconfig"
	"github.com/keel-fi/keel/builtin/salepool/tiers"
	"github.com/keel-fi/keel/builtin/token"
	"github.com/keel-fi/keel/keel"
)

func order(amount *big.Int) *BuyOrder {
	return &BuyOrder{Amount: amount}
}

func TestFactoryCreate(t *testing.T) {
	s := newTestSetup(t)

	f, env := s.factoryAs(owner)
	addr, err := f.Create(baseConfig())
	require.NoError(t, err)
	assert.False(t, addr.IsZero())

	count, err := f.PoolCount()
	require.NoError(t, err)
	assert.Equal(t, uint64(1), count)
	at, err := f.PoolAt(1)
	require.NoError(t, err)
	assert.Equal(t, addr, at)

	pool, err := f.Get(addr)
	require.NoError(t, err)
	st, err := pool.Status()
	require.NoError(t, err)
	assert.Equal(t, StatusActive, st)

	// config was normalized to 18 decimals, with decimals read from the ledgers
	cfg := pool.Config()
	assert.Equal(t, uint8(testDecimals), cfg.ShareDecimals)
	assert.Equal(t, wad(1000), cfg.SharesForSale)
	assert.Equal(t, wad(2), cfg.PricePerShare)

	// the full offer is escrowed with the pool
	assert.Equal(t, units(1000), s.shareBal(addr))
	assert.Equal(t, units(999_000), s.shareBal(owner))

	require.NotEmpty(t, env.Events())
	assert.Equal(t, EventPoolCreated, env.Events()[0].Name)
}

func TestFactoryCreateRejectsImpostor(t *testing.T) {
	s := newTestSetup(t)

	f, _ := s.factoryAs(alice)
	_, err := f.Create(baseConfig())
	assert.ErrorIs(t, err, errNotCreator)
}

func TestBindUnknownPool(t *testing.T) {
	s := newTestSetup(t)

	f, _ := s.factoryAs(owner)
	_, err := f.Get(keel.BytesToAddress([]byte("nowhere")))
	assert.ErrorIs(t, err, errUnknownPool)
}

func TestBuyFixedPrice(t *testing.T) {
	s := newTestSetup(t)
	addr := s.createPool(baseConfig())
	s.warpTo(2000)

	pool, env := s.poolAs(alice, addr)
	require.NoError(t, pool.Buy(order(units(100))))

	// 100 shares at 2 assets each, 1% swap fee carved out of the charge
	assert.Equal(t, units(999_800), s.assetBal(alice))
	assert.Equal(t, units(200), s.assetBal(addr))

	sold, raised, fees, err := pool.Totals()
	require.NoError(t, err)
	assert.Equal(t, wad(100), sold)
	assert.Equal(t, wad(198), raised)
	assert.Equal(t, wad(2), fees)

	shares, assets, err := pool.BuyerRecord(alice)
	require.NoError(t, err)
	assert.Equal(t, wad(100), shares)
	assert.Equal(t, wad(198), assets, "buyer is credited net of swap fee")

	require.Len(t, env.Events(), 1)
	assert.Equal(t, EventSharesPurchased, env.Events()[0].Name)
}

func TestBuyGates(t *testing.T) {
	s := newTestSetup(t)
	addr := s.createPool(baseConfig())

	pool, _ := s.poolAs(alice, addr)
	assert.ErrorIs(t, pool.Buy(order(units(10))), errOutsideSaleWindow, "before sale start")

	s.warpTo(2000)
	assert.ErrorIs(t, pool.Buy(order(big.NewInt(0))), errZeroAmount)
	assert.ErrorIs(t, pool.Buy(order(nil)), errZeroAmount)
	assert.ErrorIs(t, pool.Buy(order(units(1001))), errSharesSoldOut)

	s.warpTo(10_000)
	assert.ErrorIs(t, pool.Buy(order(units(10))), errOutsideSaleWindow, "at sale end")
}

func TestBuyPerUserCap(t *testing.T) {
	s := newTestSetup(t)
	cfg := baseConfig()
	cfg.MaxPerUser = units(100)
	addr := s.createPool(cfg)
	s.warpTo(2000)

	pool, _ := s.poolAs(alice, addr)
	require.NoError(t, pool.Buy(order(units(60))))
	assert.ErrorIs(t, pool.Buy(order(units(50))), errUserCapExceeded)
	require.NoError(t, pool.Buy(order(units(40))))
}

func TestBuySellOutAutoCloses(t *testing.T) {
	s := newTestSetup(t)
	addr := s.createPool(baseConfig())
	s.warpTo(2000)

	pool, env := s.poolAs(alice, addr)
	require.NoError(t, pool.Buy(order(units(1000))))

	st, err := pool.Status()
	require.NoError(t, err)
	assert.Equal(t, StatusClosed, st)

	var names []string
	for _, ev := range env.Events() {
		names = append(names, ev.Name)
	}
	assert.Equal(t, []string{EventSharesPurchased, EventSaleCapReached, EventSaleClosed}, names)

	bp, _ := s.poolAs(bob, addr)
	assert.ErrorIs(t, bp.Buy(order(units(1))), errSaleNotActive)
}

func TestCloseRules(t *testing.T) {
	s := newTestSetup(t)
	addr := s.createPool(baseConfig())
	s.warpTo(2000)

	pool, _ := s.poolAs(bob, addr)
	assert.ErrorIs(t, pool.Close(), errCannotClose, "no cap, sale still running")

	s.warpTo(10_000)
	require.NoError(t, pool.Close(), "anyone may close after sale end")
	assert.ErrorIs(t, pool.Close(), errPoolTerminal)
}

func TestCloseRoutesProceeds(t *testing.T) {
	s := newTestSetup(t)
	addr := s.createPool(baseConfig())
	s.warpTo(2000)

	pool, _ := s.poolAs(alice, addr)
	require.NoError(t, pool.Buy(order(units(100))))

	s.warpTo(10_000)
	closer, _ := s.poolAs(bob, addr)
	require.NoError(t, closer.Close())

	// raised 198 net: 10% platform fee (19.8) + 2 swap fees to the bank,
	// the rest to the owner, plus the 900 unsold shares
	assert.Equal(t, big.NewInt(21_800_000), s.assetBal(feeBank))
	assert.Equal(t, big.NewInt(178_200_000), s.assetBal(owner))
	assert.Equal(t, units(999_900), s.shareBal(owner))

	// only the sold shares stay escrowed for redemption
	assert.Equal(t, units(100), s.shareBal(addr))
	assert.Equal(t, units(0), s.assetBal(addr))
}

func TestRedeemFixedShares(t *testing.T) {
	s := newTestSetup(t)
	addr := s.createPool(baseConfig())
	s.warpTo(2000)

	pool, _ := s.poolAs(alice, addr)
	assert.ErrorIs(t, pool.Redeem(), errSaleNotClosed)
	require.NoError(t, pool.Buy(order(units(100))))

	s.warpTo(10_000)
	closer, _ := s.poolAs(bob, addr)
	require.NoError(t, closer.Close())

	assert.ErrorIs(t, pool.Redeem(), errRedeemTooEarly)

	s.warpTo(10_500)
	require.NoError(t, pool.Redeem())
	assert.Equal(t, units(100), s.shareBal(alice))
	assert.ErrorIs(t, pool.Redeem(), errNothingToRedeem)

	other, _ := s.poolAs(bob, addr)
	assert.ErrorIs(t, other.Redeem(), errNothingToRedeem)
}

func TestCloseRefundPath(t *testing.T) {
	s := newTestSetup(t)
	cfg := baseConfig()
	cfg.MinimumRaise = units(1000) // requires a full sell-out
	addr := s.createPool(cfg)
	s.warpTo(2000)

	pool, _ := s.poolAs(alice, addr)
	require.NoError(t, pool.Buy(order(units(500))))

	s.warpTo(10_000)
	closer, env := s.poolAs(bob, addr)
	require.NoError(t, closer.Close())

	var names []string
	for _, ev := range env.Events() {
		names = append(names, ev.Name)
	}
	assert.Equal(t, []string{EventRaiseGoalNotMet, EventSaleClosed}, names)

	// the owner takes the whole share escrow back, the bank only the swap
	// fees; raised assets stay behind to back refunds
	assert.Equal(t, units(1_000_000), s.shareBal(owner))
	assert.Equal(t, units(10), s.assetBal(feeBank))
	assert.Equal(t, units(0), s.assetBal(owner))
	assert.Equal(t, units(990), s.assetBal(addr))

	s.warpTo(10_500)
	require.NoError(t, pool.Redeem())
	assert.Equal(t, units(999_990), s.assetBal(alice), "refunded net of swap fee")
	assert.Equal(t, units(0), s.assetBal(addr))
	assert.ErrorIs(t, pool.Redeem(), errNothingToRedeem)
}

func TestOverflowProRata(t *testing.T) {
	s := newTestSetup(t)
	cfg := baseConfig()
	cfg.Kind = spconfig.KindOverflow
	cfg.PricePerShare = nil
	cfg.SwapFee = big.NewInt(0)
	addr := s.createPool(cfg)
	s.warpTo(2000)

	ap, _ := s.poolAs(alice, addr)
	bp, _ := s.poolAs(bob, addr)
	require.NoError(t, ap.Buy(order(units(300))))
	require.NoError(t, bp.Buy(order(units(100))))

	sold, raised, _, err := ap.Totals()
	require.NoError(t, err)
	assert.Zero(t, sold.Sign(), "overflow pools sell nothing until close")
	assert.Equal(t, wad(400), raised)

	s.warpTo(10_000)
	require.NoError(t, ap.Close())

	// 10% platform fee on the 400 raised
	assert.Equal(t, units(40), s.assetBal(feeBank))
	assert.Equal(t, units(360), s.assetBal(owner))

	s.warpTo(10_500)
	require.NoError(t, ap.Redeem())
	require.NoError(t, bp.Redeem())
	assert.Equal(t, units(750), s.shareBal(alice), "3/4 of the offer")
	assert.Equal(t, units(250), s.shareBal(bob), "1/4 of the offer")
	assert.Equal(t, units(0), s.shareBal(addr))
}

func TestOverflowHardCap(t *testing.T) {
	s := newTestSetup(t)
	cfg := baseConfig()
	cfg.Kind = spconfig.KindOverflow
	cfg.PricePerShare = nil
	cfg.SwapFee = big.NewInt(0)
	cfg.HardCap = units(400)
	addr := s.createPool(cfg)
	s.warpTo(2000)

	ap, _ := s.poolAs(alice, addr)
	assert.ErrorIs(t, ap.Buy(order(units(401))), errHardCapExceeded)
	require.NoError(t, ap.Buy(order(units(400))))

	st, err := ap.Status()
	require.NoError(t, err)
	assert.Equal(t, StatusClosed, st, "hitting the cap closes the sale")
}

func TestRedeemVestsThroughStream(t *testing.T) {
	s := newTestSetup(t)
	cfg := baseConfig()
	cfg.VestCliff = 11_000
	cfg.VestEnd = 50_000
	addr := s.createPool(cfg)
	s.warpTo(2000)

	pool, _ := s.poolAs(alice, addr)
	require.NoError(t, pool.Buy(order(units(100))))

	s.warpTo(10_000)
	closer, _ := s.poolAs(bob, addr)
	require.NoError(t, closer.Close())

	// close grants the stream creator allowance over the escrow
	allowance, err := s.share.Allowance(addr, streamsAddr)
	require.NoError(t, err)
	assert.Equal(t, token.UnlimitedAllowance(), allowance)

	s.warpTo(10_500)
	require.NoError(t, pool.Redeem())

	require.Len(t, s.streams.created, 1)
	call := s.streams.created[0]
	assert.Equal(t, shareAddr, call.token)
	assert.Equal(t, alice, call.recipient)
	assert.Equal(t, units(100), call.amount)
	assert.Equal(t, uint64(11_000), call.cliff)
	assert.Equal(t, uint64(50_000), call.end)

	id, err := pool.StreamID(alice)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), id)

	// shares leave through the stream, not directly
	assert.Equal(t, units(0), s.shareBal(alice))
}

func TestWhitelistGate(t *testing.T) {
	s := newTestSetup(t)
	tree := NewMerkleTree([]keel.Address{alice, bob})
	cfg := baseConfig()
	cfg.WhitelistRoot = tree.Root()
	addr := s.createPool(cfg)
	s.warpTo(2000)

	cp, _ := s.poolAs(charlie, addr)
	assert.ErrorIs(t, cp.Buy(order(units(10))), errNotWhitelisted)

	proof, ok := tree.Proof(alice)
	require.True(t, ok)
	_, found := tree.Proof(charlie)
	assert.False(t, found)

	ap, _ := s.poolAs(alice, addr)
	assert.ErrorIs(t, ap.Buy(order(units(10))), errNotWhitelisted, "no proof")
	require.NoError(t, ap.Buy(&BuyOrder{Amount: units(10), Proof: proof}))

	bad := &BuyOrder{Amount: units(10), Proof: [][]byte{make([]byte, 32)}}
	assert.ErrorIs(t, ap.Buy(bad), errNotWhitelisted)
}

func TestAntiSnipeGate(t *testing.T) {
	s := newTestSetup(t)
	key, err := crypto.GenerateKey()
	require.NoError(t, err)

	cfg := baseConfig()
	cfg.AntiSnipeSigner = keel.Address(crypto.PubkeyToAddress(key.PublicKey))
	addr := s.createPool(cfg)
	s.warpTo(2000)

	pool, _ := s.poolAs(alice, addr)
	// the deadline is checked before the signature; a bare order has neither
	assert.ErrorIs(t, pool.Buy(order(units(10))), errSnipeExpired, "unsigned order")

	unsigned := &BuyOrder{Amount: units(10), Deadline: 3000}
	assert.ErrorIs(t, pool.Buy(unsigned), errSnipeSignature)

	sign := func(nonce, deadline uint64) []byte {
		digest := SnipeDigest(addr, alice, nonce, deadline)
		sig, err := crypto.Sign(digest.Bytes(), key)
		require.NoError(t, err)
		return sig
	}

	stale := &BuyOrder{Amount: units(10), Signature: sign(0, 1999), Deadline: 1999}
	assert.ErrorIs(t, pool.Buy(stale), errSnipeExpired)

	good := &BuyOrder{Amount: units(10), Signature: sign(0, 3000), Deadline: 3000}
	require.NoError(t, pool.Buy(good))

	nonce, err := pool.BuyNonce(alice)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), nonce)

	// the consumed nonce makes the same signature worthless
	assert.ErrorIs(t, pool.Buy(good), errSnipeSignature)

	next := &BuyOrder{Amount: units(10), Signature: sign(1, 3000), Deadline: 3000}
	require.NoError(t, pool.Buy(next))
}

func TestTieredBuy(t *testing.T) {
	s := newTestSetup(t)
	cfg := baseConfig()
	cfg.PricePerShare = nil
	cfg.Tiers = []tiers.Tier{
		{AmountForSale: units(400), PricePerShare: units(1)},
		{AmountForSale: units(600), PricePerShare: units(2)},
	}
	addr := s.createPool(cfg)
	s.warpTo(2000)

	pool, env := s.poolAs(alice, addr)
	require.NoError(t, pool.Buy(order(units(500))))

	// 400 at price 1, 100 at price 2: 600 assets charged, 1% fee
	assert.Equal(t, units(600), s.assetBal(addr))
	_, raised, fees, err := pool.Totals()
	require.NoError(t, err)
	assert.Equal(t, wad(594), raised)
	assert.Equal(t, wad(6), fees)

	current, err := pool.CurrentTier()
	require.NoError(t, err)
	assert.Equal(t, uint32(1), current)

	var names []string
	for _, ev := range env.Events() {
		names = append(names, ev.Name)
	}
	assert.Equal(t, []string{EventTierRollover, EventSharesPurchased}, names)

	capped := &BuyOrder{Amount: units(100), MaxPricePerShare: units(1)}
	assert.Error(t, pool.Buy(capped), "tier 1 is above the price bound")
}

func TestCancelSale(t *testing.T) {
	s := newTestSetup(t)
	addr := s.createPool(baseConfig())

	stranger, _ := s.poolAs(alice, addr)
	assert.ErrorIs(t, stranger.CancelSale(), errNotOwner)

	pool, _ := s.poolAs(owner, addr)
	require.NoError(t, pool.CancelSale())

	st, err := pool.Status()
	require.NoError(t, err)
	assert.Equal(t, StatusCanceled, st)
	assert.Equal(t, units(1_000_000), s.shareBal(owner), "escrow returned")

	s.warpTo(2000)
	buyer, _ := s.poolAs(alice, addr)
	assert.ErrorIs(t, buyer.Buy(order(units(10))), errSaleNotActive)
	assert.ErrorIs(t, buyer.Redeem(), errSaleCanceled)
	assert.ErrorIs(t, pool.CancelSale(), errPoolTerminal)
}

func TestCancelAfterStartRejected(t *testing.T) {
	s := newTestSetup(t)
	addr := s.createPool(baseConfig())
	s.warpTo(2000)

	pool, _ := s.poolAs(owner, addr)
	assert.ErrorIs(t, pool.CancelSale(), errCancelWindowPassed)
}

func TestTogglePause(t *testing.T) {
	s := newTestSetup(t)
	addr := s.createPool(baseConfig())
	s.warpTo(2000)

	stranger, _ := s.poolAs(alice, addr)
	assert.ErrorIs(t, stranger.TogglePause(), errNotOwner)

	pool, _ := s.poolAs(owner, addr)
	require.NoError(t, pool.TogglePause())

	buyer, _ := s.poolAs(alice, addr)
	assert.ErrorIs(t, buyer.Buy(order(units(10))), errSaleNotActive)

	require.NoError(t, pool.TogglePause())
	require.NoError(t, buyer.Buy(order(units(10))))

	// a paused pool can still be settled once the sale window passed
	require.NoError(t, pool.TogglePause())
	s.warpTo(10_000)
	require.NoError(t, pool.Close())
	assert.ErrorIs(t, pool.TogglePause(), errPoolTerminal)
}
