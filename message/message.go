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

// Package message defines the envelope moved between mailboxes, cross-process
// channels and UDP sockets.
package message

import "fmt"

// Kind tags the shape of a Payload
type Kind int

const (
	// KindOneWay is a fire-and-forget message
	KindOneWay Kind = iota
	// KindRequest expects the receiver to answer the sender
	KindRequest
	// KindReply answers a KindRequest
	KindReply
	// KindInit is delivered once to a worker before its receive loop starts
	KindInit
)

// String returns the name of the kind
func (k Kind) String() string {
	switch k {
	case KindOneWay:
		return "one-way"
	case KindRequest:
		return "request"
	case KindReply:
		return "reply"
	case KindInit:
		return "init"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Payload is the tagged union carried by an Envelope.
// Data is opaque to the runtime. Sender is set for KindRequest only.
type Payload struct {
	Kind   Kind   `cbor:"1,keyasint"`
	Sender string `cbor:"2,keyasint,omitempty"`
	Data   any    `cbor:"3,keyasint,omitempty"`
}

// OneWay creates a fire-and-forget payload
func OneWay(data any) Payload {
	return Payload{Kind: KindOneWay, Data: data}
}

// Request creates a payload whose receiver is expected to answer sender
func Request(sender string, data any) Payload {
	return Payload{Kind: KindRequest, Sender: sender, Data: data}
}

// Reply creates the answer to a request
func Reply(data any) Payload {
	return Payload{Kind: KindReply, Data: data}
}

// Init creates the control payload delivered once when a worker starts
func Init() Payload {
	return Payload{Kind: KindInit}
}

// ExpectsReply reports whether the receiver should answer the sender
func (p Payload) ExpectsReply() bool {
	return p.Kind == KindRequest && p.Sender != ""
}

// Envelope addresses a payload to a task
type Envelope struct {
	To      string  `cbor:"1,keyasint"`
	Payload Payload `cbor:"2,keyasint"`
}

// New creates an Envelope
func New(to string, payload Payload) *Envelope {
	return &Envelope{To: to, Payload: payload}
}

// String describes the envelope without its data
func (e *Envelope) String() string {
	if e == nil {
		return "<nil>"
	}
	if e.Payload.Sender != "" {
		return fmt.Sprintf("%s(to=%s, from=%s)", e.Payload.Kind, e.To, e.Payload.Sender)
	}
	return fmt.Sprintf("%s(to=%s)", e.Payload.Kind, e.To)
}
