// Copyright (c) 2025 The Keel developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package state

import (
	"github.com/keel-fi/keel/keel"
)

// StorageEncoder encodes a storage value into raw bytes.
// Returning empty bytes means the value equals its zero state and the slot is
// cleared.
type StorageEncoder interface {
	Encode() ([]byte, error)
}

// StorageDecoder restores a storage value from raw bytes.
// Empty raw bytes must decode into the zero state.
type StorageDecoder interface {
	Decode([]byte) error
}

// GetStructuredStorage decodes the storage value at (addr, key) into val.
func (s *State) GetStructuredStorage(addr keel.Address, key keel.Bytes32, val StorageDecoder) error {
	return s.DecodeStorage(addr, key, val.Decode)
}

// SetStructuredStorage encodes val into the storage slot at (addr, key).
func (s *State) SetStructuredStorage(addr keel.Address, key keel.Bytes32, val StorageEncoder) error {
	return s.EncodeStorage(addr, key, val.Encode)
}
