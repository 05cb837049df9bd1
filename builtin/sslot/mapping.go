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

// Key of a mapping entry.
type Key interface {
	Bytes() []byte
}

// Mapping is a key/value storage abstraction for contracts, similar to the
// mapping in Solidity. Entry positions are derived by hashing the key with the
// mapping's base position.
type Mapping[K Key, V any] struct {
	context *Context
	basePos keel.Bytes32
}

func NewMapping[K Key, V any](context *Context, pos keel.Bytes32) *Mapping[K, V] {
	return &Mapping[K, V]{context: context, basePos: pos}
}

func (m *Mapping[K, V]) position(key K) keel.Bytes32 {
	return keel.Blake2b(key.Bytes(), m.basePos.Bytes())
}

func (m *Mapping[K, V]) Get(key K) (value V, err error) {
	err = m.context.state.DecodeStorage(m.context.address, m.position(key), func(raw []byte) error {
		if reflect.ValueOf(value).Kind() == reflect.Ptr {
			value = reflect.New(reflect.TypeOf(value).Elem()).Interface().(V)
		}
		if len(raw) == 0 {
			return nil
		}
		return rlp.DecodeBytes(raw, &value)
	})
	return
}

func (m *Mapping[K, V]) Set(key K, value V) error {
	return m.context.state.EncodeStorage(m.context.address, m.position(key), func() ([]byte, error) {
		return rlp.EncodeToBytes(value)
	})
}

// Delete clears the entry for the given key.
func (m *Mapping[K, V]) Delete(key K) error {
	return m.context.state.EncodeStorage(m.context.address, m.position(key), func() ([]byte, error) {
		return nil, nil
	})
}

// Has returns whether an entry exists for the given key.
func (m *Mapping[K, V]) Has(key K) (bool, error) {
	exists := false
	err := m.context.state.DecodeStorage(m.context.address, m.position(key), func(raw []byte) error {
		exists = len(raw) > 0
		return nil
	})
	return exists, err
}
