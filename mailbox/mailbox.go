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

// Package mailbox implements the per-task FIFO buffer.
//
// A mailbox accepts envelopes from any number of producers and is drained by
// its worker, or by a polling caller when the task is not a worker. Producers
// never block. Consumers either pop without waiting or wait for a bounded
// duration, woken as soon as an envelope arrives.
package mailbox

import (
	"context"
	"sync"
	"time"

	"go.uber.org/atomic"

	"github.com/tochemey/taskbus/errors"
	"github.com/tochemey/taskbus/internal/queue"
	"github.com/tochemey/taskbus/message"
)

// Mailbox is an unbounded FIFO of envelopes
type Mailbox struct {
	queue    *queue.Queue[*message.Envelope]
	disposed *atomic.Bool

	// arrival is closed and replaced on every enqueue so that every waiter wakes up
	mu      sync.Mutex
	arrival chan struct{}
}

// New creates an instance of Mailbox
func New() *Mailbox {
	return &Mailbox{
		queue:    queue.New[*message.Envelope](),
		disposed: atomic.NewBool(false),
		arrival:  make(chan struct{}),
	}
}

// Enqueue appends the envelope at the back of the mailbox
func (m *Mailbox) Enqueue(envelope *message.Envelope) error {
	if m.disposed.Load() || !m.queue.Push(envelope) {
		return errors.ErrMailboxDisposed
	}
	m.notify()
	return nil
}

// Dequeue pops the oldest envelope without waiting
func (m *Mailbox) Dequeue() (*message.Envelope, bool) {
	return m.queue.Pop()
}

// DequeueTimeout pops the oldest envelope, waiting at most timeout for one to arrive.
// It returns false when the wait expires, the context is done or the mailbox is disposed.
func (m *Mailbox) DequeueTimeout(ctx context.Context, timeout time.Duration) (*message.Envelope, bool) {
	return m.wait(ctx, timeout, m.queue.Pop)
}

// DequeueMatch pops the oldest envelope accepted by match, waiting at most timeout.
// Envelopes rejected by match keep their position.
func (m *Mailbox) DequeueMatch(ctx context.Context, timeout time.Duration, match func(*message.Envelope) bool) (*message.Envelope, bool) {
	return m.wait(ctx, timeout, func() (*message.Envelope, bool) {
		return m.queue.PopFunc(match)
	})
}

// Len returns the number of queued envelopes
func (m *Mailbox) Len() int64 {
	return int64(m.queue.Len())
}

// IsEmpty reports whether the mailbox holds no envelope
func (m *Mailbox) IsEmpty() bool {
	return m.queue.IsEmpty()
}

// Dispose closes the mailbox, wakes every waiter and returns the envelopes left behind.
// Calling Dispose more than once is safe.
func (m *Mailbox) Dispose() []*message.Envelope {
	if !m.disposed.CompareAndSwap(false, true) {
		return nil
	}
	remaining := m.queue.CloseRemaining()
	m.notify()
	return remaining
}

// IsDisposed reports whether Dispose was called
func (m *Mailbox) IsDisposed() bool {
	return m.disposed.Load()
}

func (m *Mailbox) wait(ctx context.Context, timeout time.Duration, pop func() (*message.Envelope, bool)) (*message.Envelope, bool) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	for {
		// capture the arrival signal before popping so no enqueue is missed
		m.mu.Lock()
		arrival := m.arrival
		m.mu.Unlock()

		if envelope, ok := pop(); ok {
			return envelope, true
		}

		if m.disposed.Load() {
			return nil, false
		}

		select {
		case <-arrival:
		case <-timer.C:
			return nil, false
		case <-ctx.Done():
			return nil, false
		}
	}
}

func (m *Mailbox) notify() {
	m.mu.Lock()
	close(m.arrival)
	m.arrival = make(chan struct{})
	m.mu.Unlock()
}
