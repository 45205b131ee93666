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

// Package ipc provides the unidirectional FIFO channels linking two local processes.
//
// Each link between two processes is a Pair: the process pops from In and
// pushes onto Out, while its peer holds the mirrored pair. Channels signal
// readiness through Notify so a forwarder can wait instead of spinning.
package ipc

import (
	"github.com/tochemey/taskbus/message"
)

// Channel is one direction of a cross-process link
type Channel interface {
	// Push appends the envelope at the back of the channel
	Push(envelope *message.Envelope) error
	// Pop removes the oldest envelope without waiting
	Pop() (*message.Envelope, bool)
	// Notify receives a value when envelopes may be available.
	// Signals coalesce, so a reader drains with Pop until it reports false.
	Notify() <-chan struct{}
	// Close releases the channel. Further pushes fail.
	Close() error
}

// Pair holds both directions of a link as seen from one process
type Pair struct {
	// In carries envelopes addressed to this process
	In Channel
	// Out carries envelopes addressed to the peer process
	Out Channel
}

// Close closes both directions
func (p Pair) Close() error {
	var err error
	if p.In != nil {
		err = p.In.Close()
	}
	if p.Out != nil {
		if outErr := p.Out.Close(); err == nil {
			err = outErr
		}
	}
	return err
}
