// Copyright (c) 2025 The Keel developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package sslot

import (
	"encoding/binary"
)

// U64Key adapts an uint64 into a mapping key.
type U64Key uint64

func (k U64Key) Bytes() []byte {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], uint64(k))
	return b[:]
}

// U32Key adapts an uint32 into a mapping key.
type U32Key uint32

func (k U32Key) Bytes() []byte {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], uint32(k))
	return b[:]
}

// CompositeKey joins multiple key parts into one mapping key.
type CompositeKey [][]byte

func (k CompositeKey) Bytes() []byte {
	var out []byte
	for _, part := range k {
		out = append(out, part...)
	}
	return out
}
