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
	"fmt"
	"sync"
	"time"

	"github.com/flowchartsman/retry"
	"github.com/nats-io/nats.go"
	"go.uber.org/atomic"

	"github.com/tochemey/taskbus/codec"
	"github.com/tochemey/taskbus/errors"
	"github.com/tochemey/taskbus/internal/queue"
	"github.com/tochemey/taskbus/log"
	"github.com/tochemey/taskbus/message"
)

const (
	subjectPrefix     = "taskbus"
	maxConnectRetries = 5
	reconnectWait     = 2 * time.Second
)

// Subject returns the NATS subject carrying envelopes from one process to another
func Subject(from, to string) string {
	return fmt.Sprintf("%s.%s.%s", subjectPrefix, from, to)
}

// ConnectNATS connects to the NATS server at url, retrying with an exponential backoff.
// The connection reconnects forever once established.
func ConnectNATS(url, name string) (*nats.Conn, error) {
	opts := nats.GetDefaultOptions()
	opts.Url = url
	opts.Name = name
	opts.ReconnectWait = reconnectWait
	opts.MaxReconnect = -1

	var conn *nats.Conn
	retrier := retry.NewRetrier(maxConnectRetries, 100*time.Millisecond, reconnectWait)
	err := retrier.Run(func() error {
		var err error
		conn, err = opts.Connect()
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to nats server %s: %w", url, err)
	}
	return conn, nil
}

// NATSChannel is a Channel carried by a NATS subject, linking processes
// that do not share memory. It publishes on Push and, once subscribed,
// buffers what it receives for Pop.
type NATSChannel struct {
	conn    *nats.Conn
	subject string
	codec   *codec.Codec
	logger  log.Logger

	queue  *queue.Queue[*message.Envelope]
	notify chan struct{}
	closed *atomic.Bool

	mu           sync.Mutex
	subscription *nats.Subscription
}

var _ Channel = (*NATSChannel)(nil)

// NewNATSChannel creates a channel bound to the given subject.
// The channel only publishes until Subscribe is called.
func NewNATSChannel(conn *nats.Conn, subject string, frameCodec *codec.Codec, logger log.Logger) *NATSChannel {
	if logger == nil {
		logger = log.DefaultLogger
	}
	return &NATSChannel{
		conn:    conn,
		subject: subject,
		codec:   frameCodec,
		logger:  logger,
		queue:   queue.New[*message.Envelope](),
		notify:  make(chan struct{}, 1),
		closed:  atomic.NewBool(false),
	}
}

// NewNATSPair creates the end of the link between local and peer held by local
func NewNATSPair(conn *nats.Conn, frameCodec *codec.Codec, local, peer string, logger log.Logger) (Pair, error) {
	in := NewNATSChannel(conn, Subject(peer, local), frameCodec, logger)
	if err := in.Subscribe(); err != nil {
		return Pair{}, err
	}
	out := NewNATSChannel(conn, Subject(local, peer), frameCodec, logger)
	return Pair{In: in, Out: out}, nil
}

// Subject returns the subject the channel is bound to
func (c *NATSChannel) Subject() string {
	return c.subject
}

// Subscribe starts buffering the envelopes published on the subject.
// A NATS subscription delivers messages of one publisher in order.
func (c *NATSChannel) Subscribe() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed.Load() {
		return errors.ErrChannelClosed
	}

	if c.subscription != nil {
		return nil
	}

	subscription, err := c.conn.Subscribe(c.subject, c.handle)
	if err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", c.subject, err)
	}

	// make sure the server has registered the interest before anyone publishes
	if err := c.conn.Flush(); err != nil {
		_ = subscription.Unsubscribe()
		return err
	}

	c.subscription = subscription
	return nil
}

// Push publishes the envelope on the subject
func (c *NATSChannel) Push(envelope *message.Envelope) error {
	if c.closed.Load() {
		return errors.ErrChannelClosed
	}

	frame, err := c.codec.Encode(envelope)
	if err != nil {
		return err
	}
	return c.conn.Publish(c.subject, frame)
}

// Pop removes the oldest received envelope without waiting
func (c *NATSChannel) Pop() (*message.Envelope, bool) {
	return c.queue.Pop()
}

// Notify receives a value after envelopes arrive
func (c *NATSChannel) Notify() <-chan struct{} {
	return c.notify
}

// Close unsubscribes and discards the buffered envelopes.
// The NATS connection is left open.
func (c *NATSChannel) Close() error {
	if !c.closed.CompareAndSwap(false, true) {
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.queue.Close()
	if c.subscription != nil {
		err := c.subscription.Unsubscribe()
		c.subscription = nil
		if err != nil && c.conn.IsConnected() {
			return err
		}
	}
	return nil
}

func (c *NATSChannel) handle(msg *nats.Msg) {
	envelope, err := c.codec.Decode(msg.Data)
	if err != nil {
		c.logger.Warnf("dropping malformed frame on %s: %v", c.subject, err)
		return
	}

	if !c.queue.Push(envelope) {
		return
	}

	select {
	case c.notify <- struct{}{}:
	default:
	}
}
