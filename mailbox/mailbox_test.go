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

package mailbox

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tochemey/taskbus/errors"
	"github.com/tochemey/taskbus/message"
)

func TestMailbox(t *testing.T) {
	ctx := context.Background()

	t.Run("With FIFO order", func(t *testing.T) {
		mailbox := New()
		for i := 0; i < 50; i++ {
			require.NoError(t, mailbox.Enqueue(message.New("E", message.OneWay(i))))
		}
		require.EqualValues(t, 50, mailbox.Len())
		for i := 0; i < 50; i++ {
			envelope, ok := mailbox.Dequeue()
			require.True(t, ok)
			require.Equal(t, i, envelope.Payload.Data)
		}
		assert.True(t, mailbox.IsEmpty())
	})
	t.Run("With empty mailbox", func(t *testing.T) {
		mailbox := New()
		_, ok := mailbox.Dequeue()
		assert.False(t, ok)

		start := time.Now()
		_, ok = mailbox.DequeueTimeout(ctx, 50*time.Millisecond)
		assert.False(t, ok)
		assert.GreaterOrEqual(t, time.Since(start), 50*time.Millisecond)
	})
	t.Run("With waiter woken by enqueue", func(t *testing.T) {
		mailbox := New()
		go func() {
			time.Sleep(20 * time.Millisecond)
			_ = mailbox.Enqueue(message.New("E", message.OneWay("late")))
		}()
		envelope, ok := mailbox.DequeueTimeout(ctx, time.Second)
		require.True(t, ok)
		assert.Equal(t, "late", envelope.Payload.Data)
	})
	t.Run("With several waiters", func(t *testing.T) {
		mailbox := New()
		var wg sync.WaitGroup
		results := make(chan *message.Envelope, 2)
		for i := 0; i < 2; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if envelope, ok := mailbox.DequeueTimeout(ctx, time.Second); ok {
					results <- envelope
				}
			}()
		}
		time.Sleep(20 * time.Millisecond)
		require.NoError(t, mailbox.Enqueue(message.New("E", message.OneWay(1))))
		require.NoError(t, mailbox.Enqueue(message.New("E", message.OneWay(2))))
		wg.Wait()
		close(results)
		assert.Len(t, results, 2)
	})
	t.Run("With context canceled", func(t *testing.T) {
		mailbox := New()
		cancelCtx, cancel := context.WithCancel(ctx)
		cancel()
		_, ok := mailbox.DequeueTimeout(cancelCtx, time.Second)
		assert.False(t, ok)
	})
	t.Run("With selective dequeue", func(t *testing.T) {
		mailbox := New()
		require.NoError(t, mailbox.Enqueue(message.New("A", message.OneWay("first"))))
		require.NoError(t, mailbox.Enqueue(message.New("A", message.Reply("pong"))))
		require.NoError(t, mailbox.Enqueue(message.New("A", message.OneWay("second"))))

		isReply := func(e *message.Envelope) bool { return e.Payload.Kind == message.KindReply }
		envelope, ok := mailbox.DequeueMatch(ctx, 10*time.Millisecond, isReply)
		require.True(t, ok)
		assert.Equal(t, "pong", envelope.Payload.Data)

		_, ok = mailbox.DequeueMatch(ctx, 10*time.Millisecond, isReply)
		assert.False(t, ok)

		envelope, _ = mailbox.Dequeue()
		assert.Equal(t, "first", envelope.Payload.Data)
		envelope, _ = mailbox.Dequeue()
		assert.Equal(t, "second", envelope.Payload.Data)
	})
	t.Run("With dispose", func(t *testing.T) {
		mailbox := New()
		require.NoError(t, mailbox.Enqueue(message.New("E", message.OneWay("left"))))

		done := make(chan struct{})
		go func() {
			defer close(done)
			other := New()
			_ = other.Dispose()
			_, ok := other.DequeueTimeout(ctx, time.Minute)
			assert.False(t, ok)
		}()
		select {
		case <-done:
		case <-time.After(time.Second):
			t.Fatal("disposed mailbox kept the waiter blocked")
		}

		remaining := mailbox.Dispose()
		require.Len(t, remaining, 1)
		assert.True(t, mailbox.IsDisposed())
		assert.Nil(t, mailbox.Dispose())
		assert.ErrorIs(t, mailbox.Enqueue(message.New("E", message.OneWay("x"))), errors.ErrMailboxDisposed)
	})
	t.Run("With concurrent producers keeping per-producer order", func(t *testing.T) {
		mailbox := New()
		var wg sync.WaitGroup
		for p := 0; p < 4; p++ {
			wg.Add(1)
			go func(p int) {
				defer wg.Done()
				for i := 0; i < 100; i++ {
					_ = mailbox.Enqueue(message.New("E", message.OneWay(fmt.Sprintf("%d:%03d", p, i))))
				}
			}(p)
		}
		wg.Wait()

		last := make(map[byte]string)
		for !mailbox.IsEmpty() {
			envelope, _ := mailbox.Dequeue()
			value := envelope.Payload.Data.(string)
			assert.Greater(t, value, last[value[0]])
			last[value[0]] = value
		}
	})
}
