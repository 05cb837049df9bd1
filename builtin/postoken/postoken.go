// Copyright (c) 2025 The Keel developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package postoken implements the non-fungible position token ledger.
// One unit exists per staking position id. Tokens are bound to their original
// staker: transfers between accounts are disallowed by policy.
package postoken

import (
	"github.com/keel-fi/keel/builtin/reverts"
	"github.com/keel-fi/keel/builtin/sslot"
	"github.com/keel-fi/keel/keel"
	"github.com/keel-fi/keel/state"
)

var (
	slotOwners      = keel.BytesToBytes32([]byte("owners"))
	slotBalances    = keel.BytesToBytes32([]byte("balances"))
	slotOwnedTokens = keel.BytesToBytes32([]byte("owned-tokens"))
	slotOwnedIndex  = keel.BytesToBytes32([]byte("owned-index"))
)

var (
	// ErrTransferNotAllowed position tokens are non-transferable.
	ErrTransferNotAllowed = reverts.New("postoken: transfer not allowed")

	errUnknownToken    = reverts.New("postoken: unknown token")
	errZeroAddress     = reverts.New("postoken: zero address")
	errIndexOutOfRange = reverts.New("postoken: owner index out of range")
)

// PosToken binder of the position token ledger contract.
type PosToken struct {
	addr keel.Address

	owners      *sslot.Mapping[sslot.U64Key, keel.Address]
	balances    *sslot.Mapping[keel.Address, uint64]
	ownedTokens *sslot.Mapping[sslot.CompositeKey, uint64]
	ownedIndex  *sslot.Mapping[sslot.U64Key, uint64]
}

// New create a position token ledger instance.
func New(addr keel.Address, st *state.State) *PosToken {
	sctx := sslot.NewContext(addr, st)
	return &PosToken{
		addr:        addr,
		owners:      sslot.NewMapping[sslot.U64Key, keel.Address](sctx, slotOwners),
		balances:    sslot.NewMapping[keel.Address, uint64](sctx, slotBalances),
		ownedTokens: sslot.NewMapping[sslot.CompositeKey, uint64](sctx, slotOwnedTokens),
		ownedIndex:  sslot.NewMapping[sslot.U64Key, uint64](sctx, slotOwnedIndex),
	}
}

func ownedKey(owner keel.Address, index uint64) sslot.CompositeKey {
	return sslot.CompositeKey{owner.Bytes(), sslot.U64Key(index).Bytes()}
}

// OwnerOf returns the owner of the given token id.
func (p *PosToken) OwnerOf(id uint64) (keel.Address, error) {
	owner, err := p.owners.Get(sslot.U64Key(id))
	if err != nil {
		return keel.Address{}, err
	}
	if owner.IsZero() {
		return keel.Address{}, errUnknownToken
	}
	return owner, nil
}

// BalanceOf returns the number of position tokens held by owner.
func (p *PosToken) BalanceOf(owner keel.Address) (uint64, error) {
	return p.balances.Get(owner)
}

// TokenOfOwnerByIndex returns the token id at the given index of owner's
// holdings.
func (p *PosToken) TokenOfOwnerByIndex(owner keel.Address, index uint64) (uint64, error) {
	balance, err := p.balances.Get(owner)
	if err != nil {
		return 0, err
	}
	if index >= balance {
		return 0, errIndexOutOfRange
	}
	return p.ownedTokens.Get(ownedKey(owner, index))
}

// Mint creates the token id owned by `to`.
func (p *PosToken) Mint(to keel.Address, id uint64) error {
	if to.IsZero() {
		return errZeroAddress
	}
	balance, err := p.balances.Get(to)
	if err != nil {
		return err
	}
	if err := p.owners.Set(sslot.U64Key(id), to); err != nil {
		return err
	}
	if err := p.ownedTokens.Set(ownedKey(to, balance), id); err != nil {
		return err
	}
	if err := p.ownedIndex.Set(sslot.U64Key(id), balance); err != nil {
		return err
	}
	return p.balances.Set(to, balance+1)
}

// Burn destroys the token id, removing it from its owner's enumeration via
// swap-remove.
func (p *PosToken) Burn(id uint64) error {
	owner, err := p.OwnerOf(id)
	if err != nil {
		return err
	}
	balance, err := p.balances.Get(owner)
	if err != nil {
		return err
	}
	index, err := p.ownedIndex.Get(sslot.U64Key(id))
	if err != nil {
		return err
	}

	lastIndex := balance - 1
	if index != lastIndex {
		lastID, err := p.ownedTokens.Get(ownedKey(owner, lastIndex))
		if err != nil {
			return err
		}
		if err := p.ownedTokens.Set(ownedKey(owner, index), lastID); err != nil {
			return err
		}
		if err := p.ownedIndex.Set(sslot.U64Key(lastID), index); err != nil {
			return err
		}
	}

	if err := p.ownedTokens.Delete(ownedKey(owner, lastIndex)); err != nil {
		return err
	}
	if err := p.ownedIndex.Delete(sslot.U64Key(id)); err != nil {
		return err
	}
	if err := p.owners.Delete(sslot.U64Key(id)); err != nil {
		return err
	}
	return p.balances.Set(owner, lastIndex)
}

// Transfer always fails: positions are bound to their original staker.
func (p *PosToken) Transfer(_, _ keel.Address, _ uint64) error {
	return ErrTransferNotAllowed
}
