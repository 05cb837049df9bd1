// Copyright (c) 2025 The Keel developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package stackedmap_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/keel-fi/keel/stackedmap"
)

func M(a ...any) []any {
	return a
}

func TestStackedMap(t *testing.T) {
	assert := assert.New(t)
	src := make(map[string]string)
	src["foo"] = "bar"

	sm := stackedmap.New(func(key string) (string, bool, error) {
		v, r := src[key]
		return v, r, nil
	})

	tests := []struct {
		f         func()
		depth     int
		putKey    string
		putValue  string
		getKey    string
		getReturn []any
	}{
		{func() {}, 0, "", "", "foo", []any{"bar", true, nil}},
		{func() { sm.Push() }, 1, "foo", "baz", "foo", []any{"baz", true, nil}},
		{func() {}, 1, "foo", "baz1", "foo", []any{"baz1", true, nil}},
		{func() { sm.Push() }, 2, "foo", "qux", "foo", []any{"qux", true, nil}},
		{func() { sm.Pop() }, 1, "", "", "foo", []any{"baz1", true, nil}},
		{func() { sm.Pop() }, 0, "", "", "foo", []any{"bar", true, nil}},

		{func() { sm.Push(); sm.Push() }, 2, "", "", "", nil},
		{func() { sm.PopTo(0) }, 0, "", "", "", nil},
	}

	for _, test := range tests {
		test.f()
		assert.Equal(sm.Depth(), test.depth)
		if test.putKey != "" {
			sm.Put(test.putKey, test.putValue)
		}
		if test.getKey != "" {
			assert.Equal(M(sm.Get(test.getKey)), test.getReturn)
		}
	}
}

func TestRepeatedPutThenPop(t *testing.T) {
	assert := assert.New(t)
	src := map[string]string{"foo": "bar"}
	sm := stackedmap.New(func(key string) (string, bool, error) {
		v, r := src[key]
		return v, r, nil
	})

	sm.Push()
	sm.Put("foo", "a")
	sm.Put("foo", "b")
	sm.Pop()

	// both writes belong to the popped level; the key must fall back to src
	assert.Equal(M(sm.Get("foo")), []any{"bar", true, nil})

	sm.Push()
	sm.Put("foo", "a")
	depth := sm.Push()
	sm.Put("foo", "b")
	sm.Put("foo", "c")
	sm.PopTo(depth)
	assert.Equal(M(sm.Get("foo")), []any{"a", true, nil})
}

func TestStackedMapPuts(t *testing.T) {
	assert := assert.New(t)
	sm := stackedmap.New(func(_ string) (string, bool, error) {
		return "", false, nil
	})

	kvs := []struct {
		k, v string
	}{
		{"a", "b"},
		{"a", "b"},
		{"a1", "b1"},
		{"a2", "b2"},
		{"a3", "b3"},
		{"a4", "b4"},
	}

	for _, kv := range kvs {
		sm.Push()
		sm.Put(kv.k, kv.v)
	}
	i := 0
	sm.Journal(func(k, v string) bool {
		assert.Equal(k, kvs[i].k)
		assert.Equal(v, kvs[i].v)
		i++
		return true
	})
	assert.Equal(len(kvs), i)

	i = 0
	sm.Journal(func(_, _ string) bool {
		i++
		return false
	})

	assert.Equal(1, i, "Journal traverse should abort")
}
