// Copyright (c) 2025 The Keel developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package position

import (
	"math/big"

	"github.com/keel-fi/keel/keel"
)

// lock-period months to reward multiplier
var multipliers = map[uint32]uint8{
	3:  1,
	6:  2,
	12: 3,
	24: 4,
	36: 5,
}

// Multiplier returns the reward multiplier for a lock period.
// The second return value reports whether the period is a valid choice.
func Multiplier(lockMonths uint32) (uint8, bool) {
	m, ok := multipliers[lockMonths]
	return m, ok
}

// Position is one staking lock, represented by a unique non-transferable
// token id.
type Position struct {
	Staker             keel.Address
	StakedAmount       *big.Int
	StartTime          uint64
	LockMonths         uint32
	AccumulatedRewards *big.Int
	RewardPerTokenPaid *big.Int
}

// IsEmpty returns whether the position holds no data.
func (p *Position) IsEmpty() bool {
	return p == nil || p.Staker.IsZero()
}

// EndTime returns the timestamp the lock expires. Fixed at creation; adding
// funds to the position does not move it.
func (p *Position) EndTime() uint64 {
	return p.StartTime + uint64(p.LockMonths)*keel.SecondsPerMonth
}

// Locked reports whether the lock is still active at the given time.
func (p *Position) Locked(blockTime uint64) bool {
	return blockTime < p.EndTime()
}

// Multiplier returns the position's reward multiplier.
func (p *Position) Multiplier() uint8 {
	m := multipliers[p.LockMonths]
	return m
}

// Weight returns stakedAmount scaled by the lock multiplier.
func (p *Position) Weight() *big.Int {
	return CalculateWeight(p.StakedAmount, p.Multiplier())
}

// CalculateWeight scales a stake amount by a lock multiplier.
func CalculateWeight(amount *big.Int, multiplier uint8) *big.Int {
	return new(big.Int).Mul(amount, big.NewInt(int64(multiplier)))
}
