// Copyright (c) 2025 The Keel developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package state

import (
	"fmt"

	"github.com/ethereum/go-ethereum/rlp"

	"github.com/keel-fi/keel/keel"
	"github.com/keel-fi/keel/kv"
	"github.com/keel-fi/keel/stackedmap"
)

// storageBucket prefixes committed storage entries in the kv store.
const storageBucket = kv.Bucket("s")

// Error is the error caused by state access failure.
type Error struct {
	cause error
}

func (e *Error) Error() string {
	return fmt.Sprintf("state: %v", e.cause)
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error { return e.cause }

type storageKey struct {
	addr keel.Address
	key  keel.Bytes32
}

func (k storageKey) bytes() []byte {
	return append(k.addr.Bytes(), k.key.Bytes()...)
}

// State manages the world state.
// All mutations are journaled and become durable only on Commit; RevertTo
// drops every change made since the matching NewCheckpoint.
type State struct {
	store kv.GetPutter
	sm    *stackedmap.StackedMap[storageKey, rlp.RawValue]
}

// New create state object backed by the given kv store.
func New(store kv.GetPutter) *State {
	st := &State{store: store}
	getter := storageBucket.NewGetter(store)
	st.sm = stackedmap.New(func(key storageKey) (rlp.RawValue, bool, error) {
		raw, err := getter.Get(key.bytes())
		if err != nil {
			if getter.IsNotFound(err) {
				return nil, true, nil
			}
			return nil, false, &Error{err}
		}
		return raw, true, nil
	})
	// base level that Commit flushes
	st.sm.Push()
	return st
}

// NewCheckpoint makes a checkpoint of current state.
// It returns revision of the checkpoint.
func (s *State) NewCheckpoint() int {
	return s.sm.Push()
}

// RevertTo reverts to the checkpoint specified by revision.
func (s *State) RevertTo(revision int) {
	s.sm.PopTo(revision)
}

// GetRawStorage returns the raw storage value for the given address and key.
func (s *State) GetRawStorage(addr keel.Address, key keel.Bytes32) (rlp.RawValue, error) {
	raw, _, err := s.sm.Get(storageKey{addr, key})
	return raw, err
}

// SetRawStorage sets the raw storage value for the given address and key.
// Empty raw value means deletion.
func (s *State) SetRawStorage(addr keel.Address, key keel.Bytes32, raw rlp.RawValue) {
	s.sm.Put(storageKey{addr, key}, raw)
}

// GetStorage returns storage value for the given address and key.
func (s *State) GetStorage(addr keel.Address, key keel.Bytes32) (keel.Bytes32, error) {
	raw, err := s.GetRawStorage(addr, key)
	if err != nil {
		return keel.Bytes32{}, err
	}
	if len(raw) == 0 {
		return keel.Bytes32{}, nil
	}
	_, content, _, err := rlp.Split(raw)
	if err != nil {
		return keel.Bytes32{}, &Error{err}
	}
	return keel.BytesToBytes32(content), nil
}

// SetStorage sets storage value for the given address and key.
// Zero value is stored as deletion.
func (s *State) SetStorage(addr keel.Address, key, value keel.Bytes32) {
	if value.IsZero() {
		s.SetRawStorage(addr, key, nil)
		return
	}
	v, _ := rlp.EncodeToBytes(trimLeadingZeros(value.Bytes()))
	s.SetRawStorage(addr, key, v)
}

// DecodeStorage get and decode storage value.
func (s *State) DecodeStorage(addr keel.Address, key keel.Bytes32, dec func([]byte) error) error {
	raw, err := s.GetRawStorage(addr, key)
	if err != nil {
		return err
	}
	if err := dec(raw); err != nil {
		return &Error{err}
	}
	return nil
}

// EncodeStorage encode and set storage value.
func (s *State) EncodeStorage(addr keel.Address, key keel.Bytes32, enc func() ([]byte, error)) error {
	raw, err := enc()
	if err != nil {
		return &Error{err}
	}
	s.SetRawStorage(addr, key, raw)
	return nil
}

// Commit flushes journaled changes into the backing kv store.
// The checkpoint stack is collapsed to the base level afterwards.
func (s *State) Commit() error {
	// dedupe: later puts win
	pending := make(map[storageKey]rlp.RawValue)
	s.sm.Journal(func(key storageKey, value rlp.RawValue) bool {
		pending[key] = value
		return true
	})

	batch := storageBucket.NewPutter(s.store).NewBatch()
	for key, value := range pending {
		if len(value) == 0 {
			if err := batch.Delete(key.bytes()); err != nil {
				return &Error{err}
			}
			continue
		}
		if err := batch.Put(key.bytes(), value); err != nil {
			return &Error{err}
		}
	}
	if err := batch.Write(); err != nil {
		return &Error{err}
	}
	s.sm.PopTo(0)
	s.sm.Push()
	return nil
}

func trimLeadingZeros(b []byte) []byte {
	i := 0
	for i < len(b) && b[i] == 0 {
		i++
	}
	return b[i:]
}
