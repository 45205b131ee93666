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

package actor

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/tochemey/taskbus/log"
	"github.com/tochemey/taskbus/message"
	"github.com/tochemey/taskbus/registry"
)

const pollTimeout = 500 * time.Millisecond

// recorder is a dispatcher keeping every payload it receives
type recorder struct {
	mu       sync.Mutex
	payloads []message.Payload
	received chan message.Payload
}

func newRecorder() *recorder {
	return &recorder{received: make(chan message.Payload, 256)}
}

func (r *recorder) Dispatch(_ context.Context, payload message.Payload) {
	r.mu.Lock()
	r.payloads = append(r.payloads, payload)
	r.mu.Unlock()
	r.received <- payload
}

func (r *recorder) next(t *testing.T) message.Payload {
	t.Helper()
	select {
	case payload := <-r.received:
		return payload
	case <-time.After(2 * time.Second):
		t.Fatal("no payload dispatched")
		return message.Payload{}
	}
}

func (r *recorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.payloads)
}

// ponger replies "pong" to every request
func ponger(system ActorSystem) registry.Dispatcher {
	return registry.DispatcherFunc(func(ctx context.Context, payload message.Payload) {
		if payload.Kind == message.KindRequest {
			system.SendResponse(ctx, payload.Sender, "pong")
		}
	})
}

func newStartedSystem(t *testing.T, name string, opts ...Option) ActorSystem {
	t.Helper()
	base := []Option{
		WithLogger(log.DiscardLogger),
		WithPollTimeout(pollTimeout),
		WithReceiveTimeout(100 * time.Millisecond),
		WithForwarderInterval(10 * time.Millisecond),
	}
	system, err := NewActorSystem(name, append(base, opts...)...)
	require.NoError(t, err)
	require.NoError(t, system.Start(context.Background()))
	return system
}

func mailboxLen(t *testing.T, system ActorSystem, task string) int64 {
	t.Helper()
	registration, ok := system.Registry().Lookup(task)
	require.True(t, ok)
	return registration.Mailbox.Len()
}
