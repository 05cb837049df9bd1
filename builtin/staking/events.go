// Copyright (c) 2025 The Keel developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package staking

import (
	"math/big"

	"github.com/keel-fi/keel/keel"
)

// Event names emitted by the staking contract.
const (
	EventStaked       = "Staked"
	EventAddedToStake = "AddedToStake"
	EventWithdrawn    = "Withdrawn"
	EventRewardPaid   = "RewardPaid"
	EventRewardsPaid  = "RewardsPaid"
	EventRewardsSet   = "RewardsSet"
	EventNFTMinted    = "NFTMinted"
	EventNFTBurned    = "NFTBurned"
)

type StakedEvent struct {
	User       keel.Address `json:"user"`
	PositionID uint64       `json:"positionId"`
	Amount     *big.Int     `json:"amount"`
	LockMonths uint32       `json:"lockMonths"`
}

type AddedToStakeEvent struct {
	User       keel.Address `json:"user"`
	PositionID uint64       `json:"positionId"`
	Amount     *big.Int     `json:"amount"`
}

type WithdrawnEvent struct {
	User       keel.Address `json:"user"`
	PositionID uint64       `json:"positionId"`
	Amount     *big.Int     `json:"amount"`
	Reward     *big.Int     `json:"reward"`
}

type RewardPaidEvent struct {
	User       keel.Address `json:"user"`
	PositionID uint64       `json:"positionId"`
	Reward     *big.Int     `json:"reward"`
}

type RewardsPaidEvent struct {
	User        keel.Address `json:"user"`
	PositionIDs []uint64     `json:"positionIds"`
	Rewards     []*big.Int   `json:"rewards"`
}

type RewardsSetEvent struct {
	OldRate    *big.Int `json:"oldRate"`
	NewRate    *big.Int `json:"newRate"`
	FirstBlock uint32   `json:"firstBlock"`
	LastBlock  uint32   `json:"lastBlock"`
}

type NFTMintedEvent struct {
	Owner      keel.Address `json:"owner"`
	PositionID uint64       `json:"positionId"`
}

type NFTBurnedEvent struct {
	Owner      keel.Address `json:"owner"`
	PositionID uint64       `json:"positionId"`
}
