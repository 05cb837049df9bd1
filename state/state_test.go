// Copyright (c) 2025 The Keel developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package state_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/keel-fi/keel/keel"
	"github.com/keel-fi/keel/lvldb"
	"github.com/keel-fi/keel/state"
)

func newTestState(t *testing.T) (*state.State, *lvldb.LevelDB) {
	db, err := lvldb.NewMem()
	require.NoError(t, err)
	return state.New(db), db
}

func TestStorageRoundTrip(t *testing.T) {
	st, db := newTestState(t)
	defer db.Close()

	addr := keel.BytesToAddress([]byte("contract"))
	key := keel.BytesToBytes32([]byte("key"))
	value := keel.BytesToBytes32([]byte("value"))

	got, err := st.GetStorage(addr, key)
	assert.NoError(t, err)
	assert.True(t, got.IsZero())

	st.SetStorage(addr, key, value)
	got, err = st.GetStorage(addr, key)
	assert.NoError(t, err)
	assert.Equal(t, value, got)

	// zero value clears the slot
	st.SetStorage(addr, key, keel.Bytes32{})
	raw, err := st.GetRawStorage(addr, key)
	assert.NoError(t, err)
	assert.Empty(t, raw)
}

func TestCheckpointRevert(t *testing.T) {
	st, db := newTestState(t)
	defer db.Close()

	addr := keel.BytesToAddress([]byte("contract"))
	key := keel.BytesToBytes32([]byte("key"))
	v1 := keel.BytesToBytes32([]byte("v1"))
	v2 := keel.BytesToBytes32([]byte("v2"))

	st.SetStorage(addr, key, v1)

	rev := st.NewCheckpoint()
	st.SetStorage(addr, key, v2)

	got, err := st.GetStorage(addr, key)
	assert.NoError(t, err)
	assert.Equal(t, v2, got)

	st.RevertTo(rev)
	got, err = st.GetStorage(addr, key)
	assert.NoError(t, err)
	assert.Equal(t, v1, got)
}

func TestRevertAfterRepeatedWrites(t *testing.T) {
	st, db := newTestState(t)
	defer db.Close()

	addr := keel.BytesToAddress([]byte("contract"))
	key := keel.BytesToBytes32([]byte("key"))
	v0 := keel.BytesToBytes32([]byte("v0"))

	st.SetStorage(addr, key, v0)

	// a reverted operation may have written the same slot more than once
	rev := st.NewCheckpoint()
	st.SetStorage(addr, key, keel.BytesToBytes32([]byte("v1")))
	st.SetStorage(addr, key, keel.BytesToBytes32([]byte("v2")))
	st.RevertTo(rev)

	got, err := st.GetStorage(addr, key)
	assert.NoError(t, err)
	assert.Equal(t, v0, got)
}

func TestCommitPersists(t *testing.T) {
	db, err := lvldb.NewMem()
	require.NoError(t, err)
	defer db.Close()

	addr := keel.BytesToAddress([]byte("contract"))
	key := keel.BytesToBytes32([]byte("key"))
	value := keel.BytesToBytes32([]byte("value"))

	st := state.New(db)
	st.SetStorage(addr, key, value)
	require.NoError(t, st.Commit())

	// a fresh state over the same store sees the committed value
	st2 := state.New(db)
	got, err := st2.GetStorage(addr, key)
	assert.NoError(t, err)
	assert.Equal(t, value, got)
}

func TestRevertedChangesAreNotCommitted(t *testing.T) {
	db, err := lvldb.NewMem()
	require.NoError(t, err)
	defer db.Close()

	addr := keel.BytesToAddress([]byte("contract"))
	key := keel.BytesToBytes32([]byte("key"))

	st := state.New(db)
	rev := st.NewCheckpoint()
	st.SetStorage(addr, key, keel.BytesToBytes32([]byte("doomed")))
	st.RevertTo(rev)
	require.NoError(t, st.Commit())

	st2 := state.New(db)
	got, err := st2.GetStorage(addr, key)
	assert.NoError(t, err)
	assert.True(t, got.IsZero())
}
