// Copyright (c) 2025 The Keel developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package sslot

import (
	"reflect"

	"github.com/ethereum/go-ethereum/rlp"

	"github.com/keel-fi/keel/keel"
)

// Value is a single RLP-encoded storage slot holding a struct or other
// composite value.
type Value[T any] struct {
	context *Context
	pos     keel.Bytes32
}

func NewValue[T any](context *Context, pos keel.Bytes32) *Value[T] {
	return &Value[T]{context: context, pos: pos}
}

// Get decodes the stored value. The second return reports whether the slot
// holds anything.
func (v *Value[T]) Get() (value T, ok bool, err error) {
	err = v.context.state.DecodeStorage(v.context.address, v.pos, func(raw []byte) error {
		if len(raw) == 0 {
			return nil
		}
		if reflect.ValueOf(value).Kind() == reflect.Ptr {
			value = reflect.New(reflect.TypeOf(value).Elem()).Interface().(T)
		}
		ok = true
		return rlp.DecodeBytes(raw, &value)
	})
	return
}

// Set encodes and stores the value.
func (v *Value[T]) Set(value T) error {
	return v.context.state.EncodeStorage(v.context.address, v.pos, func() ([]byte, error) {
		return rlp.EncodeToBytes(value)
	})
}

// Clear empties the slot.
func (v *Value[T]) Clear() error {
	return v.context.state.EncodeStorage(v.context.address, v.pos, func() ([]byte, error) {
		return nil, nil
	})
}
