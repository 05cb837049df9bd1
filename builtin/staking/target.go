// Copyright (c) 2025 The Keel developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package staking

// TargetKind selects where staked funds go.
type TargetKind uint8

const (
	// TargetNewLock opens a fresh position with its own lock.
	TargetNewLock TargetKind = iota + 1
	// TargetExisting adds funds to a position the caller already owns,
	// under its original lock and multiplier.
	TargetExisting
)

// Target is an explicit position selector for stake and restake calls.
// There is no magic zero id: the kind always states the intent.
type Target struct {
	Kind       TargetKind
	LockMonths uint32
	PositionID uint64
}

// NewLock selects a fresh position with the given lock period.
func NewLock(lockMonths uint32) Target {
	return Target{Kind: TargetNewLock, LockMonths: lockMonths}
}

// Existing selects an already-owned position.
func Existing(positionID uint64) Target {
	return Target{Kind: TargetExisting, PositionID: positionID}
}
