// Copyright (c) 2025 The Keel developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package cache

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetOrLoad(t *testing.T) {
	c, err := NewLRU(4)
	require.NoError(t, err)

	loads := 0
	loader := func(key any) (any, error) {
		loads++
		return key.(int) * 10, nil
	}

	v, err := c.GetOrLoad(1, loader)
	require.NoError(t, err)
	assert.Equal(t, 10, v)

	v, err = c.GetOrLoad(1, loader)
	require.NoError(t, err)
	assert.Equal(t, 10, v)
	assert.Equal(t, 1, loads, "second get is served from cache")

	_, err = c.GetOrLoad(2, func(any) (any, error) {
		return nil, errors.New("load failed")
	})
	assert.Error(t, err)
	_, ok := c.Get(2)
	assert.False(t, ok, "failed loads are not cached")
}

func TestEviction(t *testing.T) {
	c, err := NewLRU(2)
	require.NoError(t, err)

	c.Add(1, "a")
	c.Add(2, "b")
	c.Add(3, "c")

	_, ok := c.Get(1)
	assert.False(t, ok, "oldest entry evicted")
	_, ok = c.Get(3)
	assert.True(t, ok)
}
