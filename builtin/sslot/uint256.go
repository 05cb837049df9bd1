// Copyright (c) 2025 The Keel developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package sslot

import (
	"math/big"

	"github.com/pkg/errors"

	"github.com/keel-fi/keel/keel"
)

// Uint256 is a wrapper for storage and retrieval of an uint256, similar to
// storing an uint256 in a smart contract. Values never go negative; Sub fails
// on underflow to surface accounting bugs instead of wrapping.
type Uint256 struct {
	context *Context
	pos     keel.Bytes32
}

func NewUint256(context *Context, slot keel.Bytes32) *Uint256 {
	return &Uint256{context: context, pos: slot}
}

func (u *Uint256) Get() (*big.Int, error) {
	storage, err := u.context.state.GetStorage(u.context.address, u.pos)
	if err != nil {
		return nil, err
	}
	return new(big.Int).SetBytes(storage.Bytes()), nil
}

func (u *Uint256) Set(value *big.Int) {
	storage := keel.BytesToBytes32(value.Bytes())
	u.context.state.SetStorage(u.context.address, u.pos, storage)
}

func (u *Uint256) Add(value *big.Int) error {
	storage, err := u.Get()
	if err != nil {
		return err
	}
	storage.Add(storage, value)
	u.Set(storage)
	return nil
}

func (u *Uint256) Sub(value *big.Int) error {
	storage, err := u.Get()
	if err != nil {
		return err
	}
	if storage.Cmp(value) < 0 {
		return errors.New("uint256 slot underflow")
	}
	storage.Sub(storage, value)
	u.Set(storage)
	return nil
}
