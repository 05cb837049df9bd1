// Copyright (c) 2025 The Keel developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package sslot

import (
	"github.com/keel-fi/keel/keel"
)

// Address is a wrapper for storage and retrieval of an account address.
type Address struct {
	context *Context
	pos     keel.Bytes32
}

func NewAddress(context *Context, slot keel.Bytes32) *Address {
	return &Address{context: context, pos: slot}
}

func (a *Address) Get() (keel.Address, error) {
	storage, err := a.context.state.GetStorage(a.context.address, a.pos)
	if err != nil {
		return keel.Address{}, err
	}
	return keel.BytesToAddress(storage.Bytes()), nil
}

func (a *Address) Set(value keel.Address) {
	a.context.state.SetStorage(a.context.address, a.pos, keel.BytesToBytes32(value.Bytes()))
}
