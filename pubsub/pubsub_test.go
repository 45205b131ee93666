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

package pubsub

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tochemey/taskbus/log"
	"github.com/tochemey/taskbus/message"
)

type delivery struct {
	to      string
	payload message.Payload
}

type recordingSender struct {
	mu         sync.Mutex
	deliveries []delivery
}

func (s *recordingSender) SendMessage(_ context.Context, to string, payload message.Payload) {
	s.mu.Lock()
	s.deliveries = append(s.deliveries, delivery{to: to, payload: payload})
	s.mu.Unlock()
}

func (s *recordingSender) received(task string) []any {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []any
	for _, d := range s.deliveries {
		if d.to == task {
			out = append(out, d.payload.Data)
		}
	}
	return out
}

func TestTopics(t *testing.T) {
	ctx := context.Background()
	t.Run("With fan-out to every subscriber", func(t *testing.T) {
		sender := new(recordingSender)
		topics := New(sender, log.DiscardLogger)
		topics.Subscribe("X", "T")
		topics.Subscribe("Y", "T")

		topics.Publish(ctx, "T", "m")

		assert.Equal(t, []any{"m"}, sender.received("X"))
		assert.Equal(t, []any{"m"}, sender.received("Y"))
		assert.Empty(t, sender.received("Z"))
		for _, d := range sender.deliveries {
			assert.Equal(t, message.KindOneWay, d.payload.Kind)
		}
	})
	t.Run("With unsubscribe", func(t *testing.T) {
		sender := new(recordingSender)
		topics := New(sender, log.DiscardLogger)
		topics.Subscribe("X", "T")
		topics.Subscribe("Y", "T")
		topics.Subscribe("X", "T")
		assert.Equal(t, []string{"X", "Y", "X"}, topics.Subscribers("T"))

		topics.Unsubscribe("X", "T")
		topics.Unsubscribe("X", "T")
		topics.Unsubscribe("X", "unknown")
		assert.Equal(t, []string{"Y"}, topics.Subscribers("T"))

		topics.Publish(ctx, "T", "m")
		assert.Empty(t, sender.received("X"))
		assert.Equal(t, []any{"m"}, sender.received("Y"))
	})
	t.Run("With unknown or empty topic", func(t *testing.T) {
		sender := new(recordingSender)
		topics := New(sender, nil)
		topics.Publish(ctx, "nobody", "m")
		topics.Subscribe("X", "T")
		topics.Unsubscribe("X", "T")
		topics.Publish(ctx, "T", "m")
		assert.Empty(t, sender.deliveries)
		assert.Empty(t, topics.Subscribers("nobody"))
	})
	t.Run("With copies returned", func(t *testing.T) {
		topics := New(new(recordingSender), log.DiscardLogger)
		topics.Subscribe("X", "b")
		topics.Subscribe("Y", "a")

		subscribers := topics.Subscribers("b")
		require.Len(t, subscribers, 1)
		subscribers[0] = "tampered"
		assert.Equal(t, []string{"X"}, topics.Subscribers("b"))
		assert.Equal(t, []string{"a", "b"}, topics.Topics())
	})
}
