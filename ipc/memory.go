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

package ipc

import (
	"go.uber.org/atomic"

	"github.com/tochemey/taskbus/errors"
	"github.com/tochemey/taskbus/internal/queue"
	"github.com/tochemey/taskbus/message"
)

// MemoryChannel is a Channel shared by goroutines of the same OS process
type MemoryChannel struct {
	queue  *queue.Queue[*message.Envelope]
	notify chan struct{}
	closed *atomic.Bool
}

var _ Channel = (*MemoryChannel)(nil)

// NewMemoryChannel creates an unbounded in-memory channel
func NewMemoryChannel() *MemoryChannel {
	return &MemoryChannel{
		queue:  queue.New[*message.Envelope](),
		notify: make(chan struct{}, 1),
		closed: atomic.NewBool(false),
	}
}

// NewMemoryPair creates a link between two processes and returns the end
// held by each of them. The In of one is the Out of the other.
func NewMemoryPair() (parent Pair, child Pair) {
	down := NewMemoryChannel()
	up := NewMemoryChannel()
	return Pair{In: up, Out: down}, Pair{In: down, Out: up}
}

// Push appends the envelope and signals the reader
func (c *MemoryChannel) Push(envelope *message.Envelope) error {
	if c.closed.Load() || !c.queue.Push(envelope) {
		return errors.ErrChannelClosed
	}
	select {
	case c.notify <- struct{}{}:
	default:
	}
	return nil
}

// Pop removes the oldest envelope without waiting
func (c *MemoryChannel) Pop() (*message.Envelope, bool) {
	return c.queue.Pop()
}

// Notify receives a value after pushes
func (c *MemoryChannel) Notify() <-chan struct{} {
	return c.notify
}

// Len returns the number of queued envelopes
func (c *MemoryChannel) Len() int {
	return c.queue.Len()
}

// Close discards the queued envelopes
func (c *MemoryChannel) Close() error {
	if c.closed.CompareAndSwap(false, true) {
		c.queue.Close()
	}
	return nil
}
