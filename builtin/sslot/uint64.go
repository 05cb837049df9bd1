// Copyright (c) 2025 The Keel developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package sslot

import (
	"encoding/binary"

	"github.com/keel-fi/keel/keel"
)

// Uint64 is a wrapper for storage and retrieval of an uint64 value.
type Uint64 struct {
	context *Context
	pos     keel.Bytes32
}

func NewUint64(context *Context, slot keel.Bytes32) *Uint64 {
	return &Uint64{context: context, pos: slot}
}

func (u *Uint64) Get() (uint64, error) {
	storage, err := u.context.state.GetStorage(u.context.address, u.pos)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint64(storage[24:]), nil
}

func (u *Uint64) Set(value uint64) {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], value)
	u.context.state.SetStorage(u.context.address, u.pos, keel.BytesToBytes32(b[:]))
}

// Next increments the stored value and returns the incremented result.
// The first call returns 1.
func (u *Uint64) Next() (uint64, error) {
	v, err := u.Get()
	if err != nil {
		return 0, err
	}
	v++
	u.Set(v)
	return v, nil
}
