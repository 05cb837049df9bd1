// Copyright (c) 2025 The Keel developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package keel

import (
	"math/big"
)

// Constants of the chain.
const (
	BlockInterval uint64 = 10 // time interval between two consecutive blocks, in seconds.
	BlocksPerDay  uint32 = 8640

	// SecondsPerMonth is the fixed month length used by staking locks.
	SecondsPerMonth uint64 = 30 * 24 * 3600

	// MaxRewardClaimBatch bounds the number of positions a single claim or
	// restake call may touch.
	MaxRewardClaimBatch = 50
)

// Keys of governance params.
var (
	KeyStakingAdmin         = BytesToBytes32([]byte("staking-admin"))
	KeyPlatformFeeRecipient = BytesToBytes32([]byte("platform-fee-recipient"))
	KeyMaxPlatformFee       = BytesToBytes32([]byte("max-platform-fee"))
	KeyMaxSwapFee           = BytesToBytes32([]byte("max-swap-fee"))
)

var (
	// WAD is the 18-decimal fixed point unit. A ratio of 1 WAD equals 100%.
	WAD = big.NewInt(1e18)

	// InitialMaxPlatformFee caps platform fees at 25%.
	InitialMaxPlatformFee = big.NewInt(25e16)
	// InitialMaxSwapFee caps swap fees at 10%.
	InitialMaxSwapFee = big.NewInt(1e17)
)
