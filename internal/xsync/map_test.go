// MIT License
//
// Copyright (c) 2022-2026 GoAkt Team
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in all
// copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
// SOFTWARE.

package xsync

import (
	"sort"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMap(t *testing.T) {
	t.Run("With Set and Get", func(t *testing.T) {
		m := NewMap[string, int]()
		m.Set("a", 1)
		v, ok := m.Get("a")
		require.True(t, ok)
		assert.Equal(t, 1, v)
		_, ok = m.Get("b")
		assert.False(t, ok)
	})
	t.Run("With SetIfAbsent", func(t *testing.T) {
		m := NewMap[string, int]()
		assert.True(t, m.SetIfAbsent("a", 1))
		assert.False(t, m.SetIfAbsent("a", 2))
		v, _ := m.Get("a")
		assert.Equal(t, 1, v)
	})
	t.Run("With Delete and LoadAndDelete", func(t *testing.T) {
		m := NewMap[string, int]()
		m.Set("a", 1)
		m.Set("b", 2)
		m.Delete("a")
		v, ok := m.LoadAndDelete("b")
		require.True(t, ok)
		assert.Equal(t, 2, v)
		_, ok = m.LoadAndDelete("b")
		assert.False(t, ok)
		assert.Zero(t, m.Len())
	})
	t.Run("With Keys, Values and Reset", func(t *testing.T) {
		m := NewMap[string, int]()
		m.Set("a", 1)
		m.Set("b", 2)
		keys := m.Keys()
		sort.Strings(keys)
		assert.Equal(t, []string{"a", "b"}, keys)
		values := m.Values()
		sort.Ints(values)
		assert.Equal(t, []int{1, 2}, values)
		m.Reset()
		assert.Zero(t, m.Len())
	})
	t.Run("With concurrent SetIfAbsent", func(t *testing.T) {
		m := NewMap[string, int]()
		var wg sync.WaitGroup
		wins := make(chan int, 10)
		for i := 0; i < 10; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				if m.SetIfAbsent("key", i) {
					wins <- i
				}
			}(i)
		}
		wg.Wait()
		close(wins)
		assert.Len(t, wins, 1)
	})
}
