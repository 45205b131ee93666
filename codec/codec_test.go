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

package codec

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tochemey/taskbus/errors"
	"github.com/tochemey/taskbus/message"
)

func TestCodec(t *testing.T) {
	compressions := []Compression{NoCompression, ZstdCompression, BrotliCompression, GzipCompression}
	for _, compression := range compressions {
		t.Run("With "+compression.String()+" round trip", func(t *testing.T) {
			codec, err := New(compression)
			require.NoError(t, err)
			require.Equal(t, compression, codec.Compression())

			expected := message.New("E", message.OneWay("hello"))
			frame, err := codec.Encode(expected)
			require.NoError(t, err)
			require.EqualValues(t, compression, frame[0])

			actual, err := codec.Decode(frame)
			require.NoError(t, err)
			assert.Equal(t, expected, actual)
		})
	}
	t.Run("With request payload", func(t *testing.T) {
		codec, err := New(NoCompression)
		require.NoError(t, err)

		expected := message.New("pong", message.Request("ping", "ping"))
		frame, err := codec.Encode(expected)
		require.NoError(t, err)

		actual, err := codec.Decode(frame)
		require.NoError(t, err)
		assert.Equal(t, expected, actual)
		assert.True(t, actual.Payload.ExpectsReply())
	})
	t.Run("With integers decoded as int64", func(t *testing.T) {
		codec, err := New(NoCompression)
		require.NoError(t, err)

		frame, err := codec.Encode(message.New("E", message.OneWay(42)))
		require.NoError(t, err)
		actual, err := codec.Decode(frame)
		require.NoError(t, err)
		assert.Equal(t, int64(42), actual.Payload.Data)
	})
	t.Run("With frame from a peer using another compression", func(t *testing.T) {
		sender, err := New(ZstdCompression)
		require.NoError(t, err)
		receiver, err := New(NoCompression)
		require.NoError(t, err)

		expected := message.New("E", message.Reply("pong"))
		frame, err := sender.Encode(expected)
		require.NoError(t, err)
		actual, err := receiver.Decode(frame)
		require.NoError(t, err)
		assert.Equal(t, expected, actual)
	})
	t.Run("With malformed frames", func(t *testing.T) {
		codec, err := New(NoCompression)
		require.NoError(t, err)

		_, err = codec.Decode(nil)
		assert.ErrorIs(t, err, errors.ErrInvalidFrame)

		_, err = codec.Decode([]byte{0x09, 0x01})
		assert.ErrorIs(t, err, errors.ErrInvalidFrame)

		_, err = codec.Decode([]byte{byte(NoCompression), 0xff, 0x00})
		assert.ErrorIs(t, err, errors.ErrInvalidFrame)

		_, err = codec.Decode([]byte{byte(GzipCompression), 0x01, 0x02})
		assert.ErrorIs(t, err, errors.ErrInvalidFrame)
	})
	t.Run("With missing destination", func(t *testing.T) {
		codec, err := New(NoCompression)
		require.NoError(t, err)
		frame, err := codec.Encode(message.New("", message.OneWay("x")))
		require.NoError(t, err)
		_, err = codec.Decode(frame)
		assert.ErrorIs(t, err, errors.ErrInvalidFrame)
	})
	t.Run("With oversized envelope", func(t *testing.T) {
		codec, err := New(NoCompression)
		require.NoError(t, err)
		_, err = codec.Encode(message.New("E", message.OneWay(strings.Repeat("x", MaxFrameSize))))
		assert.ErrorIs(t, err, errors.ErrDatagramTooLarge)
	})
	t.Run("With unknown compression", func(t *testing.T) {
		_, err := New(Compression(42))
		assert.Error(t, err)
	})
}

func TestParseCompression(t *testing.T) {
	for _, name := range []string{"none", "zstd", "brotli", "gzip"} {
		compression, err := ParseCompression(name)
		require.NoError(t, err)
		assert.Equal(t, name, compression.String())
	}
	compression, err := ParseCompression("")
	require.NoError(t, err)
	assert.Equal(t, NoCompression, compression)

	_, err = ParseCompression("lz4")
	assert.Error(t, err)
}
