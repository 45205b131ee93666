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

// Package forwarder moves envelopes arriving on inter-process channels into
// the mailboxes of the local tasks.
package forwarder

import (
	"context"
	"sync"
	"time"

	"go.uber.org/atomic"

	"github.com/tochemey/taskbus/internal/metric"
	"github.com/tochemey/taskbus/internal/ticker"
	"github.com/tochemey/taskbus/ipc"
	"github.com/tochemey/taskbus/log"
	"github.com/tochemey/taskbus/message"
)

// DefaultInterval is the fallback period at which the channels are drained
// when no readiness signal shows up.
const DefaultInterval = 50 * time.Millisecond

// Deliverer hands an envelope to the local runtime
type Deliverer interface {
	Deliver(envelope *message.Envelope) error
}

// Forwarder drains the inbound end of every registered channel.
// It wakes up on the readiness signal of any channel and at least once per interval.
type Forwarder struct {
	deliverer Deliverer
	logger    log.Logger
	telemetry *metric.Telemetry
	interval  time.Duration

	mu       sync.Mutex
	channels []ipc.Channel

	wake    chan struct{}
	stopCh  chan struct{}
	workers sync.WaitGroup

	started *atomic.Bool
	stopped *atomic.Bool
}

// New creates a Forwarder delivering to the given deliverer
func New(deliverer Deliverer, opts ...Option) *Forwarder {
	forwarder := &Forwarder{
		deliverer: deliverer,
		logger:    log.DefaultLogger,
		interval:  DefaultInterval,
		wake:      make(chan struct{}, 1),
		stopCh:    make(chan struct{}),
		started:   atomic.NewBool(false),
		stopped:   atomic.NewBool(false),
	}

	for _, opt := range opts {
		opt.Apply(forwarder)
	}

	if forwarder.telemetry == nil {
		forwarder.telemetry = metric.New()
	}
	return forwarder
}

// AddChannel registers an inbound channel. Channels can be added while the forwarder runs.
func (f *Forwarder) AddChannel(channel ipc.Channel) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.channels = append(f.channels, channel)
	if f.started.Load() && !f.stopped.Load() {
		f.relay(channel)
	}
}

// AddPair registers the inbound end of the pair
func (f *Forwarder) AddPair(pair ipc.Pair) {
	f.AddChannel(pair.In)
}

// Start launches the forwarding loop
func (f *Forwarder) Start() {
	if f.stopped.Load() || !f.started.CompareAndSwap(false, true) {
		return
	}

	f.mu.Lock()
	for _, channel := range f.channels {
		f.relay(channel)
	}
	f.mu.Unlock()

	f.workers.Add(1)
	go f.loop()
}

// Stop ends the forwarding loop after a last drain
func (f *Forwarder) Stop() {
	if !f.stopped.CompareAndSwap(false, true) {
		return
	}
	close(f.stopCh)
	f.workers.Wait()
}

// Drain delivers every envelope currently pending on the channels and
// returns how many were read
func (f *Forwarder) Drain() int {
	f.mu.Lock()
	channels := make([]ipc.Channel, len(f.channels))
	copy(channels, f.channels)
	f.mu.Unlock()

	ctx := context.Background()
	count := 0
	for _, channel := range channels {
		for {
			envelope, ok := channel.Pop()
			if !ok {
				break
			}
			count++
			if err := f.deliverer.Deliver(envelope); err != nil {
				f.logger.Warnf("dropping %s: %v", envelope, err)
				f.telemetry.MessageDropped(ctx, metric.DropUnknownDestination)
			}
		}
	}
	return count
}

func (f *Forwarder) loop() {
	defer f.workers.Done()

	fallback := ticker.New(f.interval)
	fallback.Start()
	defer fallback.Stop()

	for {
		select {
		case <-f.stopCh:
			f.Drain()
			return
		case <-f.wake:
			f.Drain()
		case <-fallback.Ticks:
			f.Drain()
		}
	}
}

// relay folds the readiness signal of the channel into the shared wake signal.
// It must be called with f.mu held.
func (f *Forwarder) relay(channel ipc.Channel) {
	f.workers.Add(1)
	go func() {
		defer f.workers.Done()
		notify := channel.Notify()
		for {
			select {
			case <-f.stopCh:
				return
			case _, ok := <-notify:
				if !ok {
					return
				}
				select {
				case f.wake <- struct{}{}:
				default:
				}
			}
		}
	}()
}
