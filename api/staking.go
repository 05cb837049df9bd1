// Copyright (c) 2025 The Keel developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package api

import (
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/pkg/errors"

	"github.com/keel-fi/keel/api/utils"
	"github.com/keel-fi/keel/builtin"
	"github.com/keel-fi/keel/builtin/staking"
	"github.com/keel-fi/keel/keel"
	"github.com/keel-fi/keel/xenv"
)

type stakingEndpoint struct {
	backend *Backend
}

func newStaking(backend *Backend) *stakingEndpoint {
	return &stakingEndpoint{backend}
}

// view binds the staking contract read-only, with no caller.
func (e *stakingEndpoint) view() *staking.Staking {
	env := xenv.New(e.backend.State(), e.backend.BlockContext(), keel.Address{})
	return builtin.Staking.Native(env)
}

// Totals is the staking totals response.
type Totals struct {
	TotalPool          string `json:"totalPool"`
	TotalPoolWithPower string `json:"totalPoolWithPower"`
	RewardPerToken     string `json:"rewardPerToken"`
}

// ScheduleInfo is the reward schedule response.
type ScheduleInfo struct {
	RewardPerBlock       string `json:"rewardPerBlock"`
	FirstBlockWithReward uint32 `json:"firstBlockWithReward"`
	LastBlockWithReward  uint32 `json:"lastBlockWithReward"`
	LastUpdateBlock      uint32 `json:"lastUpdateBlock"`
	RewardPerTokenStored string `json:"rewardPerTokenStored"`
	RewardTokensLocked   string `json:"rewardTokensLocked"`
}

// PositionInfo is one staking position with its live reward accrual.
type PositionInfo struct {
	ID           uint64       `json:"id"`
	Staker       keel.Address `json:"staker"`
	StakedAmount string       `json:"stakedAmount"`
	StartTime    uint64       `json:"startTime"`
	EndTime      uint64       `json:"endTime"`
	LockMonths   uint32       `json:"lockMonths"`
	Multiplier   uint8        `json:"multiplier"`
	Weight       string       `json:"weight"`
	Earned       string       `json:"earned"`
}

func (e *stakingEndpoint) handleGetTotals(w http.ResponseWriter, _ *http.Request) error {
	stk := e.view()
	pool, power, err := stk.Totals()
	if err != nil {
		return err
	}
	rpt, err := stk.RewardPerToken()
	if err != nil {
		return err
	}
	return utils.WriteJSON(w, &Totals{
		TotalPool:          pool.String(),
		TotalPoolWithPower: power.String(),
		RewardPerToken:     rpt.String(),
	})
}

func (e *stakingEndpoint) handleGetSchedule(w http.ResponseWriter, _ *http.Request) error {
	sched, err := e.view().Schedule()
	if err != nil {
		return err
	}
	return utils.WriteJSON(w, &ScheduleInfo{
		RewardPerBlock:       sched.RewardPerBlock.String(),
		FirstBlockWithReward: sched.FirstBlockWithReward,
		LastBlockWithReward:  sched.LastBlockWithReward,
		LastUpdateBlock:      sched.LastUpdateBlock,
		RewardPerTokenStored: sched.RewardPerTokenStored.String(),
		RewardTokensLocked:   sched.RewardTokensLocked.String(),
	})
}

func (e *stakingEndpoint) positionInfo(stk *staking.Staking, id uint64) (*PositionInfo, error) {
	pos, err := stk.GetPosition(id)
	if err != nil {
		return nil, err
	}
	if pos.IsEmpty() {
		return nil, utils.NotFound(errors.New("no such position"))
	}
	earned, err := stk.Earned(id)
	if err != nil {
		return nil, err
	}
	return &PositionInfo{
		ID:           id,
		Staker:       pos.Staker,
		StakedAmount: pos.StakedAmount.String(),
		StartTime:    pos.StartTime,
		EndTime:      pos.EndTime(),
		LockMonths:   pos.LockMonths,
		Multiplier:   pos.Multiplier(),
		Weight:       pos.Weight().String(),
		Earned:       earned.String(),
	}, nil
}

func (e *stakingEndpoint) handleGetPosition(w http.ResponseWriter, r *http.Request) error {
	id, err := strconv.ParseUint(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		return utils.BadRequest(errors.WithMessage(err, "id"))
	}
	info, err := e.positionInfo(e.view(), id)
	if err != nil {
		return err
	}
	return utils.WriteJSON(w, info)
}

func (e *stakingEndpoint) handleGetAccountPositions(w http.ResponseWriter, r *http.Request) error {
	addr, err := keel.ParseAddress(mux.Vars(r)["address"])
	if err != nil {
		return utils.BadRequest(errors.WithMessage(err, "address"))
	}

	posToken := builtin.Positions.WithState(e.backend.State())
	balance, err := posToken.BalanceOf(*addr)
	if err != nil {
		return err
	}

	stk := e.view()
	infos := make([]*PositionInfo, 0, balance)
	for i := uint64(0); i < balance; i++ {
		id, err := posToken.TokenOfOwnerByIndex(*addr, i)
		if err != nil {
			return err
		}
		info, err := e.positionInfo(stk, id)
		if err != nil {
			return err
		}
		infos = append(infos, info)
	}
	return utils.WriteJSON(w, infos)
}

func (e *stakingEndpoint) mount(root *mux.Router, pathPrefix string) {
	sub := root.PathPrefix(pathPrefix).Subrouter()
	sub.Path("/totals").
		Methods(http.MethodGet).
		HandlerFunc(utils.WrapHandlerFunc(e.handleGetTotals)).
		Name("GET /staking/totals")
	sub.Path("/schedule").
		Methods(http.MethodGet).
		HandlerFunc(utils.WrapHandlerFunc(e.handleGetSchedule)).
		Name("GET /staking/schedule")
	sub.Path("/positions/{id}").
		Methods(http.MethodGet).
		HandlerFunc(utils.WrapHandlerFunc(e.handleGetPosition)).
		Name("GET /staking/positions/{id}")
	sub.Path("/accounts/{address}/positions").
		Methods(http.MethodGet).
		HandlerFunc(utils.WrapHandlerFunc(e.handleGetAccountPositions)).
		Name("GET /staking/accounts/{address}/positions")
}
