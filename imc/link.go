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

package imc

import (
	"net"

	"github.com/tochemey/taskbus/errors"
	"github.com/tochemey/taskbus/internal/queue"
	"github.com/tochemey/taskbus/message"
)

// Link is the outbound queue towards one remote device
type Link struct {
	device      string
	inboundPort int
	remote      *net.UDPAddr
	conn        *net.UDPConn
	queue       *queue.Queue[*message.Envelope]
	ready       chan<- struct{}
}

// Push queues the envelope for the device and wakes the server loop
func (l *Link) Push(envelope *message.Envelope) error {
	if !l.queue.Push(envelope) {
		return errors.ErrTransportStopped
	}
	select {
	case l.ready <- struct{}{}:
	default:
	}
	return nil
}

// Device returns the name of the remote device
func (l *Link) Device() string {
	return l.device
}

// RemoteAddr returns the address datagrams are written to
func (l *Link) RemoteAddr() *net.UDPAddr {
	return l.remote
}

// InboundPort returns the local port receiving from the device
func (l *Link) InboundPort() int {
	return l.inboundPort
}
