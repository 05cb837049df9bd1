// Copyright (c) 2025 The Keel developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package salepool

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/keel-fi/keel/builtin/params"
	"github.com/keel-fi/keel/builtin/salepool/spconfig"
	"github.com/keel-fi/keel/builtin/token"
	"github.com/keel-fi/keel/keel"
	"github.com/keel-fi/keel/lvldb"
	"github.com/keel-fi/keel/state"
	"github.com/keel-fi/keel/xenv"
)

var (
	factoryAddr = keel.BytesToAddress([]byte("SalePools"))
	paramsAddr  = keel.BytesToAddress([]byte("Params"))
	shareAddr   = keel.BytesToAddress([]byte("ShareToken"))
	assetAddr   = keel.BytesToAddress([]byte("AssetToken"))
	streamsAddr = keel.BytesToAddress([]byte("Streams"))

	owner   = keel.BytesToAddress([]byte("owner"))
	alice   = keel.BytesToAddress([]byte("alice"))
	bob     = keel.BytesToAddress([]byte("bob"))
	charlie = keel.BytesToAddress([]byte("charlie"))
	feeBank = keel.BytesToAddress([]byte("feeBank"))
)

const testDecimals = 6

// units converts whole tokens into native 6-decimal units.
func units(n int64) *big.Int {
	return new(big.Int).Mul(big.NewInt(n), big.NewInt(1_000_000))
}

// wad converts whole tokens into the internal 18-decimal representation.
func wad(n int64) *big.Int {
	return new(big.Int).Mul(big.NewInt(n), keel.WAD)
}

type streamCall struct {
	token     keel.Address
	recipient keel.Address
	amount    *big.Int
	cliff     uint64
	end       uint64
}

// fakeStreams records vesting stream creations without moving tokens.
type fakeStreams struct {
	next    uint64
	created []streamCall
}

func (f *fakeStreams) Address() keel.Address { return streamsAddr }

func (f *fakeStreams) Create(token, recipient keel.Address, amount *big.Int, cliff, end uint64) (uint64, error) {
	f.next++
	f.created = append(f.created, streamCall{token, recipient, amount, cliff, end})
	return f.next, nil
}

// testSetup wires a sale pool factory over an in-memory state with funded,
// pre-approved accounts and a movable block clock.
type testSetup struct {
	t        *testing.T
	st       *state.State
	blockCtx *xenv.BlockContext
	share    *token.Token
	asset    *token.Token
	registry *params.Params
	streams  *fakeStreams
}

func newTestSetup(t *testing.T) *testSetup {
	store, err := lvldb.NewMem()
	require.NoError(t, err)
	st := state.New(store)

	s := &testSetup{
		t:        t,
		st:       st,
		blockCtx: &xenv.BlockContext{Number: 1, Time: 1000},
		share:    token.New(shareAddr, st),
		asset:    token.New(assetAddr, st),
		registry: params.New(paramsAddr, st),
		streams:  &fakeStreams{},
	}
	s.registry.SetAddress(keel.KeyPlatformFeeRecipient, feeBank)
	s.registry.Set(keel.KeyMaxPlatformFee, big.NewInt(25e16))
	s.registry.Set(keel.KeyMaxSwapFee, big.NewInt(1e17))

	s.share.SetDecimals(testDecimals)
	s.asset.SetDecimals(testDecimals)

	require.NoError(t, s.share.Mint(owner, units(1_000_000)))
	require.NoError(t, s.share.Approve(owner, factoryAddr, token.UnlimitedAllowance()))
	for _, acc := range []keel.Address{alice, bob, charlie} {
		require.NoError(t, s.asset.Mint(acc, units(1_000_000)))
	}
	return s
}

// factoryAs binds the factory with the given caller. The returned environment
// collects the call's events.
func (s *testSetup) factoryAs(caller keel.Address) (*Factory, *xenv.Environment) {
	env := xenv.New(s.st, s.blockCtx, caller)
	return NewFactory(factoryAddr, env, s.registry, s.streams, MerkleProver{}), env
}

// poolAs binds an existing pool with the given caller.
func (s *testSetup) poolAs(caller, addr keel.Address) (*Pool, *xenv.Environment) {
	env := xenv.New(s.st, s.blockCtx, caller)
	pool, err := Bind(addr, env, s.registry, s.streams, MerkleProver{})
	require.NoError(s.t, err)
	return pool, env
}

// createPool creates a pool as its owner and grants every buyer account
// unlimited asset allowance to it.
func (s *testSetup) createPool(cfg spconfig.Config) keel.Address {
	f, _ := s.factoryAs(cfg.Owner)
	addr, err := f.Create(cfg)
	require.NoError(s.t, err)
	for _, acc := range []keel.Address{alice, bob, charlie} {
		require.NoError(s.t, s.asset.Approve(acc, addr, token.UnlimitedAllowance()))
	}
	return addr
}

// baseConfig returns a fixed-price sale: 1000 shares at 2 assets each, 10%
// platform fee, 1% swap fee, open from 2000 to 10000. Amounts are native.
func baseConfig() spconfig.Config {
	return spconfig.Config{
		Kind:            spconfig.KindFixed,
		Owner:           owner,
		ShareToken:      shareAddr,
		AssetToken:      assetAddr,
		SharesForSale:   units(1000),
		PricePerShare:   units(2),
		PlatformFee:     big.NewInt(1e17),
		SwapFee:         big.NewInt(1e16),
		SaleStart:       2000,
		SaleEnd:         10_000,
		RedemptionDelay: 500,
	}
}

// warpTo moves the block clock to the given timestamp.
func (s *testSetup) warpTo(time uint64) {
	require.GreaterOrEqual(s.t, time, s.blockCtx.Time)
	s.blockCtx.Number += uint32((time - s.blockCtx.Time) / keel.BlockInterval)
	s.blockCtx.Time = time
}

// balance helpers in native units

func (s *testSetup) shareBal(acc keel.Address) *big.Int {
	bal, err := s.share.BalanceOf(acc)
	require.NoError(s.t, err)
	return bal
}

func (s *testSetup) assetBal(acc keel.Address) *big.Int {
	bal, err := s.asset.BalanceOf(acc)
	require.NoError(s.t, err)
	return bal
}
