// Copyright (c) 2025 The Keel developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package fixd converts token amounts between a token's native decimal
// precision and the 18-decimal accounting precision used internally. All
// conversions are integer-only; callers pick the rounding direction when
// scaling back down.
package fixd

import "math/big"

// InternalDecimals is the accounting precision everything normalizes to.
const InternalDecimals = 18

var ten = big.NewInt(10)

// pow10 returns 10^n.
func pow10(n uint8) *big.Int {
	return new(big.Int).Exp(ten, big.NewInt(int64(n)), nil)
}

// scaleFactor returns 10^(18-decimals), the multiplier between native and
// internal precision. Tokens with 18 or more decimals scale by 1.
func scaleFactor(decimals uint8) *big.Int {
	if decimals >= InternalDecimals {
		return big.NewInt(1)
	}
	return pow10(InternalDecimals - decimals)
}

// Normalize scales a native-precision value up to 18-decimal precision.
// No-op for tokens with 18 or more decimals.
func Normalize(value *big.Int, decimals uint8) *big.Int {
	return new(big.Int).Mul(value, scaleFactor(decimals))
}

// DenormalizeDown scales an 18-decimal value back to native precision,
// rounding toward zero. Use for amounts paid out, so rounding never favors
// the recipient.
func DenormalizeDown(value *big.Int, decimals uint8) *big.Int {
	return new(big.Int).Div(value, scaleFactor(decimals))
}

// DenormalizeUp scales an 18-decimal value back to native precision, rounding
// away from zero. Use for amounts charged, so rounding never favors the payer.
func DenormalizeUp(value *big.Int, decimals uint8) *big.Int {
	factor := scaleFactor(decimals)
	q, r := new(big.Int).QuoRem(value, factor, new(big.Int))
	if r.Sign() != 0 {
		q.Add(q, big.NewInt(1))
	}
	return q
}

// MandatoryMinimumSwapIn returns the smallest transactable unit when
// converting between mismatched precisions: 10^(shareDecimals-assetDecimals+2)
// when shares carry more precision than assets, zero otherwise. Amounts below
// it would let rounding dust leak value.
func MandatoryMinimumSwapIn(shareDecimals, assetDecimals uint8) *big.Int {
	if shareDecimals <= assetDecimals {
		return new(big.Int)
	}
	return pow10(shareDecimals - assetDecimals + 2)
}
