// Copyright (c) 2025 The Keel developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package globalstats

import (
	"math/big"

	"github.com/keel-fi/keel/builtin/sslot"
	"github.com/keel-fi/keel/builtin/staking/position"
	"github.com/keel-fi/keel/keel"
)

var (
	slotTotalPool          = keel.BytesToBytes32([]byte("total-pool"))
	slotTotalPoolWithPower = keel.BytesToBytes32([]byte("total-pool-with-power"))
)

// Service manages contract-wide staking totals: the sum of all staked
// principal and the multiplier-weighted sum.
type Service struct {
	totalPool          *sslot.Uint256
	totalPoolWithPower *sslot.Uint256
}

func New(sctx *sslot.Context) *Service {
	return &Service{
		totalPool:          sslot.NewUint256(sctx, slotTotalPool),
		totalPoolWithPower: sslot.NewUint256(sctx, slotTotalPoolWithPower),
	}
}

// Get returns the total staked principal and the weighted total.
func (s *Service) Get() (*big.Int, *big.Int, error) {
	pool, err := s.totalPool.Get()
	if err != nil {
		return nil, nil, err
	}
	power, err := s.totalPoolWithPower.Get()
	return pool, power, err
}

// TotalPoolWithPower returns the multiplier-weighted total.
func (s *Service) TotalPoolWithPower() (*big.Int, error) {
	return s.totalPoolWithPower.Get()
}

// AddStake increases totals when principal is locked.
func (s *Service) AddStake(amount *big.Int, multiplier uint8) error {
	if err := s.totalPool.Add(amount); err != nil {
		return err
	}
	return s.totalPoolWithPower.Add(position.CalculateWeight(amount, multiplier))
}

// SubStake decreases totals when principal leaves the pool.
func (s *Service) SubStake(amount *big.Int, multiplier uint8) error {
	if err := s.totalPool.Sub(amount); err != nil {
		return err
	}
	return s.totalPoolWithPower.Sub(position.CalculateWeight(amount, multiplier))
}
