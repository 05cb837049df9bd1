// Copyright (c) 2025 The Keel developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package genesis

import (
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/keel-fi/keel/builtin"
	"github.com/keel-fi/keel/keel"
)

// DevAccounts returns the well-known development accounts, derived from fixed
// key material. Never fund them on a real network.
func DevAccounts() []keel.Address {
	accs := make([]keel.Address, 0, 10)
	for i := byte(0); i < 10; i++ {
		key := crypto.Keccak256(append([]byte("keel-dev"), i))
		priv, err := crypto.ToECDSA(key)
		if err != nil {
			panic(err)
		}
		accs = append(accs, keel.Address(crypto.PubkeyToAddress(priv.PublicKey)))
	}
	return accs
}

// NewDevnet creates the development genesis: every dev account funded with
// one million stake tokens, the first one acting as staking admin and fee
// recipient, and a 90-day reward schedule running from launch.
func NewDevnet() *Genesis {
	accounts := DevAccounts()

	token := TokenConfig{
		Address:  builtin.StakeToken.Address.String(),
		Decimals: 18,
	}
	for _, acc := range accounts {
		token.Allocations = append(token.Allocations, AllocationConfig{
			Address: acc.String(),
			Amount:  "1000000000000000000000000",
			amount:  mustBig("1000000000000000000000000"),
		})
	}

	cfg := &Config{
		LaunchTime: 1735689600, // 2025-01-01 00:00:00 UTC
		Params: ParamsConfig{
			StakingAdmin:         accounts[0].String(),
			PlatformFeeRecipient: accounts[0].String(),
			MaxPlatformFee:       "250000000000000000",
			MaxSwapFee:           "100000000000000000",
			maxPlatformFee:       mustBig("250000000000000000"),
			maxSwapFee:           mustBig("100000000000000000"),
		},
		Tokens: []TokenConfig{token},
		Rewards: &RewardConfig{
			Amount: "7776000000000000000000000",
			Days:   90,
			amount: mustBig("7776000000000000000000000"),
		},
	}
	return &Genesis{cfg, "devnet"}
}
