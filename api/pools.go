// Copyright (c) 2025 The Keel developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package api

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/pkg/errors"

	"github.com/keel-fi/keel/api/utils"
	"github.com/keel-fi/keel/builtin"
	"github.com/keel-fi/keel/builtin/salepool"
	"github.com/keel-fi/keel/builtin/salepool/spconfig"
	"github.com/keel-fi/keel/cache"
	"github.com/keel-fi/keel/keel"
	"github.com/keel-fi/keel/xenv"
)

const poolConfigCacheSize = 512

type poolsEndpoint struct {
	backend *Backend
	// pool configs are immutable once created, so they cache forever
	configs *cache.LRU
}

func newPools(backend *Backend) *poolsEndpoint {
	configs, err := cache.NewLRU(poolConfigCacheSize)
	if err != nil {
		panic(err)
	}
	return &poolsEndpoint{backend, configs}
}

// view binds the pool factory read-only, with no caller. Stream creation
// never happens on the read path.
func (e *poolsEndpoint) view() *salepool.Factory {
	env := xenv.New(e.backend.State(), e.backend.BlockContext(), keel.Address{})
	return builtin.SalePools.Native(env, nil, salepool.MerkleProver{})
}

func (e *poolsEndpoint) config(addr keel.Address) (*spconfig.Config, error) {
	cfg, err := e.configs.GetOrLoad(addr, func(any) (any, error) {
		pool, err := e.view().Get(addr)
		if err != nil {
			return nil, err
		}
		return pool.Config(), nil
	})
	if err != nil {
		return nil, err
	}
	return cfg.(*spconfig.Config), nil
}

// TierInfo is one tier of a tiered pool, with its cumulative sales.
type TierInfo struct {
	AmountForSale  string `json:"amountForSale"`
	PricePerShare  string `json:"pricePerShare"`
	MaximumPerUser string `json:"maximumPerUser,omitempty"`
	MinimumPerUser string `json:"minimumPerUser,omitempty"`
	Sold           string `json:"sold"`
}

// PoolInfo is the full state of one sale pool. Amounts are 18-decimal
// normalized.
type PoolInfo struct {
	Address         keel.Address `json:"address"`
	Owner           keel.Address `json:"owner"`
	Kind            string       `json:"kind"`
	Status          string       `json:"status"`
	ShareToken      keel.Address `json:"shareToken"`
	AssetToken      keel.Address `json:"assetToken"`
	SharesForSale   string       `json:"sharesForSale"`
	PricePerShare   string       `json:"pricePerShare"`
	MinimumRaise    string       `json:"minimumRaise"`
	HardCap         string       `json:"hardCap"`
	MaxPerUser      string       `json:"maxPerUser"`
	PlatformFee     string       `json:"platformFee"`
	SwapFee         string       `json:"swapFee"`
	SaleStart       uint64       `json:"saleStart"`
	SaleEnd         uint64       `json:"saleEnd"`
	RedemptionDelay uint64       `json:"redemptionDelay"`
	VestCliff       uint64       `json:"vestCliff"`
	VestEnd         uint64       `json:"vestEnd"`
	WhitelistRoot   keel.Bytes32 `json:"whitelistRoot"`
	SharesSold      string       `json:"sharesSold"`
	AssetsRaised    string       `json:"assetsRaised"`
	SwapFees        string       `json:"swapFees"`
	CurrentTier     uint32       `json:"currentTier,omitempty"`
	Tiers           []*TierInfo  `json:"tiers,omitempty"`
}

// BuyerInfo is one buyer's record in a pool.
type BuyerInfo struct {
	Shares   string `json:"shares"`
	Assets   string `json:"assets"`
	StreamID uint64 `json:"streamId,omitempty"`
}

func kindName(kind spconfig.Kind) string {
	switch kind {
	case spconfig.KindFixed:
		return "fixed"
	case spconfig.KindOverflow:
		return "overflow"
	default:
		return "unknown"
	}
}

func (e *poolsEndpoint) handleGetPools(w http.ResponseWriter, _ *http.Request) error {
	factory := e.view()
	count, err := factory.PoolCount()
	if err != nil {
		return err
	}
	addrs := make([]keel.Address, 0, count)
	for n := uint64(1); n <= count; n++ {
		addr, err := factory.PoolAt(n)
		if err != nil {
			return err
		}
		addrs = append(addrs, addr)
	}
	return utils.WriteJSON(w, addrs)
}

func (e *poolsEndpoint) poolVar(r *http.Request) (*salepool.Pool, error) {
	addr, err := keel.ParseAddress(mux.Vars(r)["address"])
	if err != nil {
		return nil, utils.BadRequest(errors.WithMessage(err, "address"))
	}
	pool, err := e.view().Get(*addr)
	if err != nil {
		return nil, utils.NotFound(err)
	}
	return pool, nil
}

func (e *poolsEndpoint) handleGetPool(w http.ResponseWriter, r *http.Request) error {
	pool, err := e.poolVar(r)
	if err != nil {
		return err
	}
	cfg, err := e.config(pool.Address())
	if err != nil {
		return err
	}

	status, err := pool.Status()
	if err != nil {
		return err
	}
	sold, raised, fees, err := pool.Totals()
	if err != nil {
		return err
	}

	info := &PoolInfo{
		Address:         pool.Address(),
		Owner:           cfg.Owner,
		Kind:            kindName(cfg.Kind),
		Status:          status.String(),
		ShareToken:      cfg.ShareToken,
		AssetToken:      cfg.AssetToken,
		SharesForSale:   cfg.SharesForSale.String(),
		PricePerShare:   cfg.PricePerShare.String(),
		MinimumRaise:    cfg.MinimumRaise.String(),
		HardCap:         cfg.HardCap.String(),
		MaxPerUser:      cfg.MaxPerUser.String(),
		PlatformFee:     cfg.PlatformFee.String(),
		SwapFee:         cfg.SwapFee.String(),
		SaleStart:       cfg.SaleStart,
		SaleEnd:         cfg.SaleEnd,
		RedemptionDelay: cfg.RedemptionDelay,
		VestCliff:       cfg.VestCliff,
		VestEnd:         cfg.VestEnd,
		WhitelistRoot:   cfg.WhitelistRoot,
		SharesSold:      sold.String(),
		AssetsRaised:    raised.String(),
		SwapFees:        fees.String(),
	}

	if cfg.Tiered() {
		if info.CurrentTier, err = pool.CurrentTier(); err != nil {
			return err
		}
		// re-bind to read per-tier sales through the pool's ledger
		for i, tier := range cfg.Tiers {
			soldInTier, err := pool.TierSold(uint32(i))
			if err != nil {
				return err
			}
			ti := &TierInfo{
				AmountForSale: tier.AmountForSale.String(),
				PricePerShare: tier.PricePerShare.String(),
				Sold:          soldInTier.String(),
			}
			if tier.MaximumPerUser != nil && tier.MaximumPerUser.Sign() > 0 {
				ti.MaximumPerUser = tier.MaximumPerUser.String()
			}
			if tier.MinimumPerUser != nil && tier.MinimumPerUser.Sign() > 0 {
				ti.MinimumPerUser = tier.MinimumPerUser.String()
			}
			info.Tiers = append(info.Tiers, ti)
		}
	}
	return utils.WriteJSON(w, info)
}

func (e *poolsEndpoint) handleGetBuyer(w http.ResponseWriter, r *http.Request) error {
	pool, err := e.poolVar(r)
	if err != nil {
		return err
	}
	buyer, err := keel.ParseAddress(mux.Vars(r)["buyer"])
	if err != nil {
		return utils.BadRequest(errors.WithMessage(err, "buyer"))
	}

	shares, assets, err := pool.BuyerRecord(*buyer)
	if err != nil {
		return err
	}
	streamID, err := pool.StreamID(*buyer)
	if err != nil {
		return err
	}
	return utils.WriteJSON(w, &BuyerInfo{
		Shares:   shares.String(),
		Assets:   assets.String(),
		StreamID: streamID,
	})
}

func (e *poolsEndpoint) mount(root *mux.Router, pathPrefix string) {
	sub := root.PathPrefix(pathPrefix).Subrouter()
	sub.Path("").
		Methods(http.MethodGet).
		HandlerFunc(utils.WrapHandlerFunc(e.handleGetPools)).
		Name("GET /pools")
	sub.Path("/{address}").
		Methods(http.MethodGet).
		HandlerFunc(utils.WrapHandlerFunc(e.handleGetPool)).
		Name("GET /pools/{address}")
	sub.Path("/{address}/buyers/{buyer}").
		Methods(http.MethodGet).
		HandlerFunc(utils.WrapHandlerFunc(e.handleGetBuyer)).
		Name("GET /pools/{address}/buyers/{buyer}")
}
