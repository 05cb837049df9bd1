// Copyright (c) 2025 The Keel developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package token

import (
	"math/big"

	"github.com/keel-fi/keel/builtin/reverts"
	"github.com/keel-fi/keel/builtin/sslot"
	"github.com/keel-fi/keel/keel"
	"github.com/keel-fi/keel/state"
)

var (
	slotTotalSupply = keel.BytesToBytes32([]byte("total-supply"))
	slotBalances    = keel.BytesToBytes32([]byte("balances"))
	slotAllowances  = keel.BytesToBytes32([]byte("allowances"))
	slotNonces      = keel.BytesToBytes32([]byte("permit-nonces"))
	slotDecimals    = keel.BytesToBytes32([]byte("decimals"))
)

var (
	errZeroAddress           = reverts.New("token: zero address")
	errInsufficientBalance   = reverts.New("token: insufficient balance")
	errInsufficientAllowance = reverts.New("token: insufficient allowance")
)

// Token implements a fungible ledger bound to a contract address.
// Multiple independent tokens coexist in one state, each under its own
// address.
type Token struct {
	addr        keel.Address
	totalSupply *sslot.Uint256
	decimals    *sslot.Uint64
	balances    *sslot.Mapping[keel.Address, *big.Int]
	allowances  *sslot.Mapping[sslot.CompositeKey, *big.Int]
	nonces      *sslot.Mapping[keel.Address, uint64]
}

// New create a token instance bound to addr.
func New(addr keel.Address, st *state.State) *Token {
	sctx := sslot.NewContext(addr, st)
	return &Token{
		addr:        addr,
		totalSupply: sslot.NewUint256(sctx, slotTotalSupply),
		decimals:    sslot.NewUint64(sctx, slotDecimals),
		balances:    sslot.NewMapping[keel.Address, *big.Int](sctx, slotBalances),
		allowances:  sslot.NewMapping[sslot.CompositeKey, *big.Int](sctx, slotAllowances),
		nonces:      sslot.NewMapping[keel.Address, uint64](sctx, slotNonces),
	}
}

// Address returns the ledger's contract address.
func (t *Token) Address() keel.Address {
	return t.addr
}

// TotalSupply returns total minted supply.
func (t *Token) TotalSupply() (*big.Int, error) {
	return t.totalSupply.Get()
}

// Decimals returns the token's native decimal precision.
func (t *Token) Decimals() (uint8, error) {
	d, err := t.decimals.Get()
	return uint8(d), err
}

// SetDecimals fixes the token's native decimal precision. Genesis-time only.
func (t *Token) SetDecimals(d uint8) {
	t.decimals.Set(uint64(d))
}

// BalanceOf returns the balance of an account.
func (t *Token) BalanceOf(owner keel.Address) (*big.Int, error) {
	bal, err := t.balances.Get(owner)
	if err != nil {
		return nil, err
	}
	if bal == nil {
		return new(big.Int), nil
	}
	return bal, nil
}

// Mint credits an account, growing total supply. Genesis and reward funding
// path only; authorization sits with the caller.
func (t *Token) Mint(to keel.Address, amount *big.Int) error {
	if to.IsZero() {
		return errZeroAddress
	}
	bal, err := t.BalanceOf(to)
	if err != nil {
		return err
	}
	if err := t.balances.Set(to, new(big.Int).Add(bal, amount)); err != nil {
		return err
	}
	return t.totalSupply.Add(amount)
}

// Transfer moves amount from one account to another.
func (t *Token) Transfer(from, to keel.Address, amount *big.Int) error {
	if to.IsZero() {
		return errZeroAddress
	}
	fromBal, err := t.BalanceOf(from)
	if err != nil {
		return err
	}
	if fromBal.Cmp(amount) < 0 {
		return errInsufficientBalance
	}
	if err := t.balances.Set(from, new(big.Int).Sub(fromBal, amount)); err != nil {
		return err
	}
	toBal, err := t.BalanceOf(to)
	if err != nil {
		return err
	}
	return t.balances.Set(to, new(big.Int).Add(toBal, amount))
}

func (t *Token) allowanceKey(owner, spender keel.Address) sslot.CompositeKey {
	return sslot.CompositeKey{owner.Bytes(), spender.Bytes()}
}

// Approve sets spender's allowance over owner's balance.
func (t *Token) Approve(owner, spender keel.Address, amount *big.Int) error {
	if spender.IsZero() {
		return errZeroAddress
	}
	return t.allowances.Set(t.allowanceKey(owner, spender), amount)
}

// Allowance returns spender's remaining allowance over owner's balance.
func (t *Token) Allowance(owner, spender keel.Address) (*big.Int, error) {
	a, err := t.allowances.Get(t.allowanceKey(owner, spender))
	if err != nil {
		return nil, err
	}
	if a == nil {
		return new(big.Int), nil
	}
	return a, nil
}

// TransferFrom moves amount from `from` to `to`, spending `spender`'s
// allowance. An allowance of 2^256-1 is treated as unlimited and not
// decremented.
func (t *Token) TransferFrom(spender, from, to keel.Address, amount *big.Int) error {
	allowance, err := t.Allowance(from, spender)
	if err != nil {
		return err
	}
	if allowance.Cmp(amount) < 0 {
		return errInsufficientAllowance
	}
	if allowance.Cmp(unlimitedAllowance) < 0 {
		if err := t.allowances.Set(t.allowanceKey(from, spender), new(big.Int).Sub(allowance, amount)); err != nil {
			return err
		}
	}
	return t.Transfer(from, to, amount)
}

var unlimitedAllowance = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 256), big.NewInt(1))

// UnlimitedAllowance is the sentinel allowance value that is never
// decremented by TransferFrom.
func UnlimitedAllowance() *big.Int {
	return new(big.Int).Set(unlimitedAllowance)
}
