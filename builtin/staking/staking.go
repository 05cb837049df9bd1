// Copyright (c) 2025 The Keel developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package staking

import (
	"math/big"

	"github.com/keel-fi/keel/builtin/params"
	"github.com/keel-fi/keel/builtin/postoken"
	"github.com/keel-fi/keel/builtin/reverts"
	"github.com/keel-fi/keel/builtin/sslot"
	"github.com/keel-fi/keel/builtin/staking/accrual"
	"github.com/keel-fi/keel/builtin/staking/globalstats"
	"github.com/keel-fi/keel/builtin/staking/position"
	"github.com/keel-fi/keel/builtin/token"
	"github.com/keel-fi/keel/keel"
	"github.com/keel-fi/keel/log"
	"github.com/keel-fi/keel/xenv"
)

var logger = log.WithContext("pkg", "staking")

var (
	errZeroAmount      = reverts.New("staking: zero amount")
	errInvalidLock     = reverts.New("staking: invalid lock period")
	errUnknownPosition = reverts.New("staking: unknown position")
	errNotOwner        = reverts.New("staking: caller is not position owner")
	errNotAdmin        = reverts.New("staking: caller is not admin")
	errLockNotExpired  = reverts.New("staking: lock not yet expired")
	errLockExpired     = reverts.New("staking: lock expired, use withdraw")
	errBatchSize       = reverts.Newf("staking: batch size out of range [1,%d]", keel.MaxRewardClaimBatch)
	errAmountExceeds   = reverts.New("staking: amount exceeds staked principal")
	errNothingToRestake = reverts.New("staking: no rewards to restake")
	errInvalidTarget   = reverts.New("staking: invalid target selector")
)

// Staking implements the time-locked staking pool with continuous reward
// accrual. Every state-mutating operation settles the global accumulator (and
// the touched position) before changing any balance.
type Staking struct {
	addr     keel.Address
	env      *xenv.Environment
	token    *token.Token
	posToken *postoken.PosToken
	params   *params.Params

	accrualService *accrual.Service
	positionRepo   *position.Repository
	statsService   *globalstats.Service
}

// New create a staking contract instance bound to the execution env.
func New(addr keel.Address, env *xenv.Environment, stakeToken *token.Token, posToken *postoken.PosToken, params *params.Params) *Staking {
	sctx := sslot.NewContext(addr, env.State())
	return &Staking{
		addr:     addr,
		env:      env,
		token:    stakeToken,
		posToken: posToken,
		params:   params,

		accrualService: accrual.New(sctx),
		positionRepo:   position.NewRepository(sctx),
		statsService:   globalstats.New(sctx),
	}
}

// Address returns the staking contract address.
func (s *Staking) Address() keel.Address {
	return s.addr
}

//
// Getters - no state change
//

// GetPosition returns the position for an id; empty position for unknown ids.
func (s *Staking) GetPosition(id uint64) (*position.Position, error) {
	return s.positionRepo.Get(id)
}

// Totals returns totalPool and totalPoolWithPower.
func (s *Staking) Totals() (*big.Int, *big.Int, error) {
	return s.statsService.Get()
}

// RewardPerToken returns the accumulator value as of the current block.
func (s *Staking) RewardPerToken() (*big.Int, error) {
	power, err := s.statsService.TotalPoolWithPower()
	if err != nil {
		return nil, err
	}
	return s.accrualService.RewardPerToken(s.env.BlockContext().Number, power)
}

// Schedule returns the current reward schedule state.
func (s *Staking) Schedule() (*accrual.Schedule, error) {
	return s.accrualService.GetSchedule()
}

// Earned returns the rewards the position has accrued but not harvested.
// Calling it twice with no intervening state change returns the same value.
func (s *Staking) Earned(id uint64) (*big.Int, error) {
	pos, err := s.positionRepo.Get(id)
	if err != nil {
		return nil, err
	}
	if pos.IsEmpty() {
		return nil, errUnknownPosition
	}
	rpt, err := s.RewardPerToken()
	if err != nil {
		return nil, err
	}
	return earned(pos, rpt), nil
}

func earned(pos *position.Position, rewardPerToken *big.Int) *big.Int {
	delta := new(big.Int).Sub(rewardPerToken, pos.RewardPerTokenPaid)
	delta.Mul(delta, pos.Weight())
	delta.Div(delta, keel.WAD)
	return delta.Add(delta, pos.AccumulatedRewards)
}

//
// Setters - state change
//

// Stake locks amount of the staking token, either opening a new position or
// adding to an existing one per the explicit target selector. Returns the
// touched position id.
func (s *Staking) Stake(amount *big.Int, target Target) (uint64, error) {
	staker := s.env.Caller()
	logger.Debug("staking", "staker", staker, "amount", amount, "targetKind", uint8(target.Kind))

	if amount == nil || amount.Sign() == 0 {
		return 0, errZeroAmount
	}
	id, err := s.stake(staker, amount, target, true)
	if err != nil {
		logger.Info("stake failed", "staker", staker, "error", err)
		return 0, err
	}
	logger.Info("staked", "staker", staker, "positionId", id)
	return id, nil
}

// stake routes funds into a position. When external is true the principal is
// pulled from the staker's token balance; otherwise it is already held by the
// contract (restaked rewards).
func (s *Staking) stake(staker keel.Address, amount *big.Int, target Target, external bool) (uint64, error) {
	switch target.Kind {
	case TargetNewLock:
		multiplier, ok := position.Multiplier(target.LockMonths)
		if !ok {
			return 0, errInvalidLock
		}
		rpt, err := s.settle(nil)
		if err != nil {
			return 0, err
		}
		if external {
			if err := s.token.TransferFrom(s.addr, staker, s.addr, amount); err != nil {
				return 0, err
			}
		}
		id, err := s.positionRepo.NextID()
		if err != nil {
			return 0, err
		}
		pos := &position.Position{
			Staker:             staker,
			StakedAmount:       amount,
			StartTime:          s.env.BlockContext().Time,
			LockMonths:         target.LockMonths,
			AccumulatedRewards: new(big.Int),
			RewardPerTokenPaid: rpt,
		}
		if err := s.positionRepo.Set(id, pos); err != nil {
			return 0, err
		}
		if err := s.statsService.AddStake(amount, multiplier); err != nil {
			return 0, err
		}
		if err := s.posToken.Mint(staker, id); err != nil {
			return 0, err
		}
		s.env.Log(s.addr, EventStaked, &StakedEvent{User: staker, PositionID: id, Amount: amount, LockMonths: target.LockMonths})
		s.env.Log(s.addr, EventNFTMinted, &NFTMintedEvent{Owner: staker, PositionID: id})
		return id, nil

	case TargetExisting:
		pos, err := s.ownedPosition(staker, target.PositionID)
		if err != nil {
			return 0, err
		}
		if _, err := s.settlePosition(target.PositionID, pos); err != nil {
			return 0, err
		}
		if external {
			if err := s.token.TransferFrom(s.addr, staker, s.addr, amount); err != nil {
				return 0, err
			}
		}
		pos.StakedAmount = new(big.Int).Add(pos.StakedAmount, amount)
		if err := s.positionRepo.Set(target.PositionID, pos); err != nil {
			return 0, err
		}
		// the original multiplier applies; the lock clock is not reset
		if err := s.statsService.AddStake(amount, pos.Multiplier()); err != nil {
			return 0, err
		}
		s.env.Log(s.addr, EventAddedToStake, &AddedToStakeEvent{User: staker, PositionID: target.PositionID, Amount: amount})
		return target.PositionID, nil

	default:
		return 0, errInvalidTarget
	}
}

// Withdraw closes an expired position, paying principal plus all accrued
// reward in a single transfer and burning the position token.
func (s *Staking) Withdraw(id uint64) (*big.Int, *big.Int, error) {
	staker := s.env.Caller()
	pos, err := s.ownedPosition(staker, id)
	if err != nil {
		return nil, nil, err
	}
	if pos.Locked(s.env.BlockContext().Time) {
		return nil, nil, errLockNotExpired
	}
	principal, reward, err := s.closePosition(staker, id, pos)
	if err != nil {
		logger.Info("withdraw failed", "positionId", id, "error", err)
		return nil, nil, err
	}
	logger.Info("withdrew position", "positionId", id, "principal", principal, "reward", reward)
	return principal, reward, nil
}

// closePosition settles, removes and pays out a position in full.
func (s *Staking) closePosition(staker keel.Address, id uint64, pos *position.Position) (*big.Int, *big.Int, error) {
	if _, err := s.settlePosition(id, pos); err != nil {
		return nil, nil, err
	}
	principal := pos.StakedAmount
	reward := pos.AccumulatedRewards

	if err := s.statsService.SubStake(principal, pos.Multiplier()); err != nil {
		return nil, nil, err
	}
	if reward.Sign() > 0 {
		if err := s.accrualService.SubLocked(reward); err != nil {
			return nil, nil, err
		}
	}
	if err := s.positionRepo.Delete(id); err != nil {
		return nil, nil, err
	}
	if err := s.posToken.Burn(id); err != nil {
		return nil, nil, err
	}
	payout := new(big.Int).Add(principal, reward)
	if err := s.token.Transfer(s.addr, staker, payout); err != nil {
		return nil, nil, err
	}
	if reward.Sign() > 0 {
		s.env.Log(s.addr, EventRewardPaid, &RewardPaidEvent{User: staker, PositionID: id, Reward: reward})
	}
	s.env.Log(s.addr, EventWithdrawn, &WithdrawnEvent{User: staker, PositionID: id, Amount: principal, Reward: reward})
	s.env.Log(s.addr, EventNFTBurned, &NFTBurnedEvent{Owner: staker, PositionID: id})
	return principal, reward, nil
}

// Claim is the partial early exit: while the lock is still active, principal
// can be reduced without harvesting reward into the payout. Claiming the full
// remaining principal is equivalent to a full withdrawal.
func (s *Staking) Claim(id uint64, amount *big.Int) error {
	staker := s.env.Caller()
	pos, err := s.ownedPosition(staker, id)
	if err != nil {
		return err
	}
	if !pos.Locked(s.env.BlockContext().Time) {
		return errLockExpired
	}
	if amount == nil || amount.Sign() == 0 {
		return errZeroAmount
	}
	switch amount.Cmp(pos.StakedAmount) {
	case 1:
		return errAmountExceeds
	case 0:
		_, _, err := s.closePosition(staker, id, pos)
		return err
	}

	if _, err := s.settlePosition(id, pos); err != nil {
		return err
	}
	pos.StakedAmount = new(big.Int).Sub(pos.StakedAmount, amount)
	if err := s.positionRepo.Set(id, pos); err != nil {
		return err
	}
	if err := s.statsService.SubStake(amount, pos.Multiplier()); err != nil {
		return err
	}
	if err := s.token.Transfer(s.addr, staker, amount); err != nil {
		return err
	}
	s.env.Log(s.addr, EventWithdrawn, &WithdrawnEvent{User: staker, PositionID: id, Amount: amount, Reward: new(big.Int)})
	return nil
}

// ClaimRewards harvests accumulated rewards for up to MaxRewardClaimBatch
// positions and transfers the sum to the caller.
func (s *Staking) ClaimRewards(ids []uint64) (*big.Int, error) {
	staker := s.env.Caller()
	total, rewards, err := s.harvest(staker, ids)
	if err != nil {
		return nil, err
	}
	if total.Sign() > 0 {
		if err := s.token.Transfer(s.addr, staker, total); err != nil {
			return nil, err
		}
	}
	s.env.Log(s.addr, EventRewardsPaid, &RewardsPaidEvent{User: staker, PositionIDs: ids, Rewards: rewards})
	return total, nil
}

// RestakeRewards harvests rewards and routes them back into a position per
// the explicit target selector, without the tokens leaving the contract.
func (s *Staking) RestakeRewards(ids []uint64, target Target) (uint64, error) {
	staker := s.env.Caller()
	total, rewards, err := s.harvest(staker, ids)
	if err != nil {
		return 0, err
	}
	if total.Sign() == 0 {
		return 0, errNothingToRestake
	}
	s.env.Log(s.addr, EventRewardsPaid, &RewardsPaidEvent{User: staker, PositionIDs: ids, Rewards: rewards})
	return s.stake(staker, total, target, false)
}

// harvest settles each position and zeroes its accumulated rewards,
// releasing the matching locked-reward obligation.
func (s *Staking) harvest(staker keel.Address, ids []uint64) (*big.Int, []*big.Int, error) {
	if len(ids) == 0 || len(ids) > keel.MaxRewardClaimBatch {
		return nil, nil, errBatchSize
	}
	total := new(big.Int)
	rewards := make([]*big.Int, 0, len(ids))
	for _, id := range ids {
		pos, err := s.ownedPosition(staker, id)
		if err != nil {
			return nil, nil, err
		}
		if _, err := s.settlePosition(id, pos); err != nil {
			return nil, nil, err
		}
		reward := pos.AccumulatedRewards
		pos.AccumulatedRewards = new(big.Int)
		if err := s.positionRepo.Set(id, pos); err != nil {
			return nil, nil, err
		}
		if reward.Sign() > 0 {
			if err := s.accrualService.SubLocked(reward); err != nil {
				return nil, nil, err
			}
			total.Add(total, reward)
		}
		rewards = append(rewards, reward)
	}
	return total, rewards, nil
}

// SetRewards replaces the reward schedule. Admin only. The schedule must be
// coverable by the contract's non-principal token balance.
func (s *Staking) SetRewards(amount *big.Int, days uint32) error {
	caller := s.env.Caller()
	admin, err := s.params.GetAddress(keel.KeyStakingAdmin)
	if err != nil {
		return err
	}
	if caller != admin {
		return errNotAdmin
	}

	oldSched, err := s.accrualService.GetSchedule()
	if err != nil {
		return err
	}
	// global-only settlement before touching the schedule
	if _, err := s.settle(nil); err != nil {
		return err
	}

	balance, err := s.token.BalanceOf(s.addr)
	if err != nil {
		return err
	}
	totalPool, _, err := s.statsService.Get()
	if err != nil {
		return err
	}
	available := new(big.Int).Sub(balance, totalPool)

	block := s.env.BlockContext().Number
	newSched, err := s.accrualService.SetSchedule(amount, days, block, available)
	if err != nil {
		logger.Info("set rewards failed", "error", err)
		return err
	}

	logger.Info("rewards set",
		"oldRate", oldSched.RewardPerBlock,
		"newRate", newSched.RewardPerBlock,
		"firstBlock", newSched.FirstBlockWithReward,
		"lastBlock", newSched.LastBlockWithReward,
	)
	s.env.Log(s.addr, EventRewardsSet, &RewardsSetEvent{
		OldRate:    oldSched.RewardPerBlock,
		NewRate:    newSched.RewardPerBlock,
		FirstBlock: newSched.FirstBlockWithReward,
		LastBlock:  newSched.LastBlockWithReward,
	})
	return nil
}

//
// internals
//

// settle folds global accrual up to the current block, and snapshots the
// given position when non-nil.
func (s *Staking) settle(pos *position.Position) (*big.Int, error) {
	power, err := s.statsService.TotalPoolWithPower()
	if err != nil {
		return nil, err
	}
	rpt, err := s.accrualService.SettleGlobal(s.env.BlockContext().Number, power)
	if err != nil {
		return nil, err
	}
	if pos != nil {
		pos.AccumulatedRewards = earned(pos, rpt)
		pos.RewardPerTokenPaid = rpt
	}
	return rpt, nil
}

// settlePosition settles globally and persists the position snapshot.
func (s *Staking) settlePosition(id uint64, pos *position.Position) (*big.Int, error) {
	rpt, err := s.settle(pos)
	if err != nil {
		return nil, err
	}
	return rpt, s.positionRepo.Set(id, pos)
}

func (s *Staking) ownedPosition(staker keel.Address, id uint64) (*position.Position, error) {
	pos, err := s.positionRepo.Get(id)
	if err != nil {
		return nil, err
	}
	if pos.IsEmpty() {
		return nil, errUnknownPosition
	}
	if pos.Staker != staker {
		return nil, errNotOwner
	}
	return pos, nil
}
