// Copyright (c) 2025 The Keel developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package accrual maintains the global block-indexed reward-per-power-unit
// accumulator. Rewards are never iterated per block; each position settles
// lazily against the accumulator delta since its last snapshot.
package accrual

import (
	"math"
	"math/big"

	"github.com/keel-fi/keel/builtin/reverts"
	"github.com/keel-fi/keel/builtin/sslot"
	"github.com/keel-fi/keel/keel"
)

var (
	slotRewardPerBlock       = keel.BytesToBytes32([]byte("reward-per-block"))
	slotFirstBlockWithReward = keel.BytesToBytes32([]byte("first-block-with-reward"))
	slotLastBlockWithReward  = keel.BytesToBytes32([]byte("last-block-with-reward"))
	slotLastUpdateBlock      = keel.BytesToBytes32([]byte("last-update-block"))
	slotRewardPerTokenStored = keel.BytesToBytes32([]byte("reward-per-token-stored"))
	slotRewardTokensLocked   = keel.BytesToBytes32([]byte("reward-tokens-locked"))
)

var (
	// ErrInsufficientLiquidity new reward schedule would promise more than the
	// contract's non-principal balance can pay.
	ErrInsufficientLiquidity = reverts.New("staking: insufficient liquidity for reward schedule")

	// ErrInvalidDuration new reward schedule would contain no blocks, or its
	// last block would not fit a block number.
	ErrInvalidDuration = reverts.New("staking: invalid reward schedule duration")
)

// Schedule is a snapshot of the reward schedule and accumulator state.
type Schedule struct {
	RewardPerBlock       *big.Int
	FirstBlockWithReward uint32
	LastBlockWithReward  uint32
	LastUpdateBlock      uint32
	RewardPerTokenStored *big.Int
	RewardTokensLocked   *big.Int
}

// Service manages the reward schedule and the global accumulator.
type Service struct {
	rewardPerBlock       *sslot.Uint256
	firstBlockWithReward *sslot.Uint64
	lastBlockWithReward  *sslot.Uint64
	lastUpdateBlock      *sslot.Uint64
	rewardPerTokenStored *sslot.Uint256
	rewardTokensLocked   *sslot.Uint256
}

func New(sctx *sslot.Context) *Service {
	return &Service{
		rewardPerBlock:       sslot.NewUint256(sctx, slotRewardPerBlock),
		firstBlockWithReward: sslot.NewUint64(sctx, slotFirstBlockWithReward),
		lastBlockWithReward:  sslot.NewUint64(sctx, slotLastBlockWithReward),
		lastUpdateBlock:      sslot.NewUint64(sctx, slotLastUpdateBlock),
		rewardPerTokenStored: sslot.NewUint256(sctx, slotRewardPerTokenStored),
		rewardTokensLocked:   sslot.NewUint256(sctx, slotRewardTokensLocked),
	}
}

// GetSchedule reads the full schedule state.
func (s *Service) GetSchedule() (*Schedule, error) {
	rpb, err := s.rewardPerBlock.Get()
	if err != nil {
		return nil, err
	}
	first, err := s.firstBlockWithReward.Get()
	if err != nil {
		return nil, err
	}
	last, err := s.lastBlockWithReward.Get()
	if err != nil {
		return nil, err
	}
	lastUpdate, err := s.lastUpdateBlock.Get()
	if err != nil {
		return nil, err
	}
	stored, err := s.rewardPerTokenStored.Get()
	if err != nil {
		return nil, err
	}
	locked, err := s.rewardTokensLocked.Get()
	if err != nil {
		return nil, err
	}
	return &Schedule{
		RewardPerBlock:       rpb,
		FirstBlockWithReward: uint32(first),
		LastBlockWithReward:  uint32(last),
		LastUpdateBlock:      uint32(lastUpdate),
		RewardPerTokenStored: stored,
		RewardTokensLocked:   locked,
	}, nil
}

// BlocksWithRewardsPassed counts blocks inside the active reward window not
// yet folded into the accumulator. Saturates at zero.
func (s *Service) BlocksWithRewardsPassed(currentBlock uint32) (uint64, error) {
	sched, err := s.GetSchedule()
	if err != nil {
		return 0, err
	}
	return sched.blocksPassed(currentBlock), nil
}

func (sched *Schedule) blocksPassed(currentBlock uint32) uint64 {
	to := min(currentBlock, sched.LastBlockWithReward)
	from := max(sched.LastUpdateBlock, sched.FirstBlockWithReward)
	if to <= from {
		return 0
	}
	return uint64(to - from)
}

// RewardPerToken returns the accumulator value as of currentBlock given the
// current total pool power. With zero power no accrual can occur and the
// stored value is returned unchanged.
func (s *Service) RewardPerToken(currentBlock uint32, totalPower *big.Int) (*big.Int, error) {
	sched, err := s.GetSchedule()
	if err != nil {
		return nil, err
	}
	return sched.rewardPerToken(currentBlock, totalPower), nil
}

func (sched *Schedule) rewardPerToken(currentBlock uint32, totalPower *big.Int) *big.Int {
	if totalPower.Sign() == 0 {
		return sched.RewardPerTokenStored
	}
	blocks := sched.blocksPassed(currentBlock)
	if blocks == 0 {
		return sched.RewardPerTokenStored
	}
	accrued := new(big.Int).SetUint64(blocks)
	accrued.Mul(accrued, sched.RewardPerBlock)
	accrued.Mul(accrued, keel.WAD)
	accrued.Div(accrued, totalPower)
	return accrued.Add(accrued, sched.RewardPerTokenStored)
}

// SettleGlobal folds accrual up to currentBlock into the stored accumulator
// and stamps the update block. Returns the settled accumulator value.
func (s *Service) SettleGlobal(currentBlock uint32, totalPower *big.Int) (*big.Int, error) {
	rpt, err := s.RewardPerToken(currentBlock, totalPower)
	if err != nil {
		return nil, err
	}
	s.rewardPerTokenStored.Set(rpt)
	s.lastUpdateBlock.Set(uint64(currentBlock))
	return rpt, nil
}

// Locked returns the sum of undistributed reward obligations.
func (s *Service) Locked() (*big.Int, error) {
	return s.rewardTokensLocked.Get()
}

// SubLocked releases reward obligation as rewards get paid or restaked.
func (s *Service) SubLocked(amount *big.Int) error {
	return s.rewardTokensLocked.Sub(amount)
}

// blocksLeft counts blocks of the previous schedule still ahead of
// currentBlock, inclusive of the final block.
func (sched *Schedule) blocksLeft(currentBlock uint32) uint64 {
	if currentBlock >= sched.LastBlockWithReward {
		return 0
	}
	return uint64(sched.LastBlockWithReward-currentBlock) + 1
}

// SetSchedule replaces the reward schedule. Tokens the previous schedule
// would still have paid out roll forward into the new one. The integer
// division truncates: over the schedule at most blocksAmount-1 units are
// never distributed, which is intended.
//
// available must be the contract's token balance minus staked principal; the
// call fails when the resulting obligation cannot be covered by it.
func (s *Service) SetSchedule(amount *big.Int, days uint32, currentBlock uint32, available *big.Int) (*Schedule, error) {
	sched, err := s.GetSchedule()
	if err != nil {
		return nil, err
	}

	left := sched.blocksLeft(currentBlock)
	futureTokens := new(big.Int).SetUint64(left)
	futureTokens.Mul(futureTokens, sched.RewardPerBlock)

	blocksAmount := left + uint64(days)*uint64(keel.BlocksPerDay)
	if blocksAmount == 0 || blocksAmount-1 > uint64(math.MaxUint32)-uint64(currentBlock) {
		return nil, ErrInvalidDuration
	}
	newRewardPerBlock := new(big.Int).Add(amount, futureTokens)
	newRewardPerBlock.Div(newRewardPerBlock, new(big.Int).SetUint64(blocksAmount))

	locked := new(big.Int).Sub(sched.RewardTokensLocked, futureTokens)
	locked.Add(locked, amount)
	if locked.Cmp(available) > 0 {
		return nil, ErrInsufficientLiquidity
	}

	first := currentBlock
	last := currentBlock + uint32(blocksAmount) - 1

	s.rewardPerBlock.Set(newRewardPerBlock)
	s.firstBlockWithReward.Set(uint64(first))
	s.lastBlockWithReward.Set(uint64(last))
	s.rewardTokensLocked.Set(locked)

	return &Schedule{
		RewardPerBlock:       newRewardPerBlock,
		FirstBlockWithReward: first,
		LastBlockWithReward:  last,
		LastUpdateBlock:      sched.LastUpdateBlock,
		RewardPerTokenStored: sched.RewardPerTokenStored,
		RewardTokensLocked:   locked,
	}, nil
}
