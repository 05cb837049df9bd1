// Copyright (c) 2025 The Keel developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package salepool

import (
	"math/big"

	"github.com/keel-fi/keel/builtin/params"
	"github.com/keel-fi/keel/builtin/reverts"
	"github.com/keel-fi/keel/builtin/salepool/spconfig"
	"github.com/keel-fi/keel/builtin/sslot"
	"github.com/keel-fi/keel/builtin/token"
	"github.com/keel-fi/keel/fixd"
	"github.com/keel-fi/keel/keel"
	"github.com/keel-fi/keel/xenv"
)

var (
	slotPoolCount = keel.BytesToBytes32([]byte("pool-count"))
	slotPoolIndex = keel.BytesToBytes32([]byte("pool-index"))
)

var errNotCreator = reverts.New("salepool: caller is not the declared pool owner")

// Factory validates creation parameters, normalizes amounts to the internal
// 18-decimal precision, escrows the shares for sale and instantiates pools
// at derived addresses.
type Factory struct {
	addr     keel.Address
	env      *xenv.Environment
	registry *params.Params
	streams  StreamCreator
	prover   MembershipProver

	count *sslot.Uint64
	pools *sslot.Mapping[sslot.U64Key, keel.Address]
}

// NewFactory binds the factory contract at addr.
func NewFactory(addr keel.Address, env *xenv.Environment, registry *params.Params, streams StreamCreator, prover MembershipProver) *Factory {
	sctx := sslot.NewContext(addr, env.State())
	return &Factory{
		addr:     addr,
		env:      env,
		registry: registry,
		streams:  streams,
		prover:   prover,
		count:    sslot.NewUint64(sctx, slotPoolCount),
		pools:    sslot.NewMapping[sslot.U64Key, keel.Address](sctx, slotPoolIndex),
	}
}

// PoolCount returns the number of pools created so far.
func (f *Factory) PoolCount() (uint64, error) {
	return f.count.Get()
}

// PoolAt returns the address of the n-th created pool (1-based).
func (f *Factory) PoolAt(n uint64) (keel.Address, error) {
	return f.pools.Get(sslot.U64Key(n))
}

// Get binds the pool at addr.
func (f *Factory) Get(addr keel.Address) (*Pool, error) {
	return Bind(addr, f.env, f.registry, f.streams, f.prover)
}

// Create validates cfg, normalizes its amounts from native token precision,
// derives the pool address, escrows the shares for sale from the owner and
// activates the pool. cfg amount and price fields are expected in native
// precision; decimals are read from the token ledgers, not trusted from the
// caller.
func (f *Factory) Create(cfg spconfig.Config) (keel.Address, error) {
	if f.env.Caller() != cfg.Owner {
		return keel.Address{}, errNotCreator
	}

	shareToken := token.New(cfg.ShareToken, f.env.State())
	assetToken := token.New(cfg.AssetToken, f.env.State())
	var err error
	if cfg.ShareDecimals, err = shareToken.Decimals(); err != nil {
		return keel.Address{}, err
	}
	if cfg.AssetDecimals, err = assetToken.Decimals(); err != nil {
		return keel.Address{}, err
	}

	cfg.Version = spconfig.Version
	f.normalize(&cfg)

	maxPlatformFee, err := f.registry.Get(keel.KeyMaxPlatformFee)
	if err != nil {
		return keel.Address{}, err
	}
	maxSwapFee, err := f.registry.Get(keel.KeyMaxSwapFee)
	if err != nil {
		return keel.Address{}, err
	}
	if err := cfg.Validate(maxPlatformFee, maxSwapFee); err != nil {
		return keel.Address{}, err
	}

	seq, err := f.count.Next()
	if err != nil {
		return keel.Address{}, err
	}
	poolAddr := keel.CreateContractAddress(f.addr, seq)

	if err := spconfig.Save(f.env.State(), poolAddr, &cfg); err != nil {
		return keel.Address{}, err
	}
	if err := f.pools.Set(sslot.U64Key(seq), poolAddr); err != nil {
		return keel.Address{}, err
	}

	// escrow the full share offer with the pool
	escrow := fixd.DenormalizeUp(cfg.SharesForSale, cfg.ShareDecimals)
	if err := shareToken.TransferFrom(f.addr, cfg.Owner, poolAddr, escrow); err != nil {
		return keel.Address{}, err
	}

	pool := bind(poolAddr, f.env, f.registry, f.streams, f.prover, &cfg)
	pool.status.Set(uint64(StatusActive))

	f.env.Log(f.addr, EventPoolCreated, &PoolCreatedEvent{
		Pool:       poolAddr,
		Owner:      cfg.Owner,
		Kind:       uint8(cfg.Kind),
		ShareToken: cfg.ShareToken,
		AssetToken: cfg.AssetToken,
		Shares:     cfg.SharesForSale,
	})
	logger.Info("pool created", "pool", poolAddr, "owner", cfg.Owner, "kind", cfg.Kind)
	return poolAddr, nil
}

// normalize scales amount and price fields to 18-decimal precision. Share
// quantities scale by the share token's decimals, asset quantities and
// prices by the asset token's.
func (f *Factory) normalize(cfg *spconfig.Config) {
	shareDec, assetDec := cfg.ShareDecimals, cfg.AssetDecimals

	normShare := func(v *big.Int) *big.Int {
		if v == nil {
			return new(big.Int)
		}
		return fixd.Normalize(v, shareDec)
	}
	normAsset := func(v *big.Int) *big.Int {
		if v == nil {
			return new(big.Int)
		}
		return fixd.Normalize(v, assetDec)
	}

	cfg.SharesForSale = normShare(cfg.SharesForSale)
	cfg.PricePerShare = normAsset(cfg.PricePerShare)
	cfg.HardCap = normAsset(cfg.HardCap)
	if cfg.Kind == spconfig.KindOverflow {
		cfg.MinimumRaise = normAsset(cfg.MinimumRaise)
		cfg.MaxPerUser = normAsset(cfg.MaxPerUser)
	} else {
		cfg.MinimumRaise = normShare(cfg.MinimumRaise)
		cfg.MaxPerUser = normShare(cfg.MaxPerUser)
	}
	for i := range cfg.Tiers {
		tier := &cfg.Tiers[i]
		tier.AmountForSale = normShare(tier.AmountForSale)
		tier.MaximumPerUser = normShare(tier.MaximumPerUser)
		tier.MinimumPerUser = normShare(tier.MinimumPerUser)
		tier.PricePerShare = normAsset(tier.PricePerShare)
	}
}
