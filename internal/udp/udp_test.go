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

package udp

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJoinHostPort(t *testing.T) {
	assert.Equal(t, "127.0.0.1:5000", JoinHostPort("127.0.0.1", 5000))
	assert.Equal(t, "[::1]:5000", JoinHostPort("::1", 5000))
}

func TestAdvertisedIP(t *testing.T) {
	t.Run("With explicit address", func(t *testing.T) {
		ip, err := AdvertisedIP("127.0.0.1")
		require.NoError(t, err)
		assert.Equal(t, "127.0.0.1", ip)
	})
	t.Run("With invalid address", func(t *testing.T) {
		_, err := AdvertisedIP("not-an-ip")
		assert.Error(t, err)
	})
}

func TestResolveBindAddress(t *testing.T) {
	t.Run("With IP literal", func(t *testing.T) {
		ip, err := ResolveBindAddress("127.0.0.1")
		require.NoError(t, err)
		assert.Equal(t, "127.0.0.1", ip)

		ip, err = ResolveBindAddress("0.0.0.0")
		require.NoError(t, err)
		assert.Equal(t, "0.0.0.0", ip)
	})
	t.Run("With unknown interface", func(t *testing.T) {
		_, err := ResolveBindAddress("no-such-iface0")
		assert.Error(t, err)

		_, err = ResolveBindAddress("eth.*")
		assert.Error(t, err)
	})
	t.Run("With empty value", func(t *testing.T) {
		_, err := ResolveBindAddress("")
		assert.Error(t, err)
	})
}
