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

// Package registry maps task names to their registration.
//
// A Registry is an explicit value owned by one runtime instance. Several
// instances can live in the same process, which is how the tests emulate
// distinct processes and devices.
package registry

import (
	"context"
	"sort"

	"github.com/tochemey/taskbus/errors"
	"github.com/tochemey/taskbus/internal/xsync"
	"github.com/tochemey/taskbus/mailbox"
	"github.com/tochemey/taskbus/message"
)

// Dispatcher handles the payloads delivered to a task.
// The payload kind tells a one-way message from a request expecting a reply.
type Dispatcher interface {
	Dispatch(ctx context.Context, payload message.Payload)
}

// DispatcherFunc adapts an ordinary function to a Dispatcher
type DispatcherFunc func(ctx context.Context, payload message.Payload)

// Dispatch calls f(ctx, payload)
func (f DispatcherFunc) Dispatch(ctx context.Context, payload message.Payload) {
	f(ctx, payload)
}

// Worker is the handle of the goroutine driving a task
type Worker interface {
	// ID returns the unique identifier of the worker
	ID() string
	// Name returns the task name the worker serves
	Name() string
}

// Registration binds a task name to its worker, dispatcher and mailbox.
// Worker is nil for callers that poll their mailbox instead of running a worker.
type Registration struct {
	Name       string
	Worker     Worker
	Dispatcher Dispatcher
	Mailbox    *mailbox.Mailbox
}

// IsActor reports whether a worker drives the task
func (r *Registration) IsActor() bool {
	return r.Worker != nil
}

// Registry defines the task registry
type Registry interface {
	// Store adds the registration. It fails when the name is already taken.
	Store(registration *Registration) error
	// Lookup returns the registration of the given task
	Lookup(name string) (*Registration, bool)
	// Remove deletes the registration and returns it
	Remove(name string) (*Registration, bool)
	// Entries returns a point-in-time copy of every registration ordered by name
	Entries() []*Registration
	// Deliver enqueues the envelope into the mailbox of its destination
	Deliver(envelope *message.Envelope) error
	// Len returns the number of registrations
	Len() int
}

type registry struct {
	entries *xsync.Map[string, *Registration]
}

var _ Registry = (*registry)(nil)

// New creates an empty Registry
func New() Registry {
	return &registry{
		entries: xsync.NewMap[string, *Registration](),
	}
}

func (r *registry) Store(registration *Registration) error {
	if registration == nil || registration.Name == "" {
		return errors.ErrTaskNameRequired
	}

	if registration.Mailbox == nil {
		registration.Mailbox = mailbox.New()
	}

	if !r.entries.SetIfAbsent(registration.Name, registration) {
		return errors.NewErrTaskExists(registration.Name)
	}
	return nil
}

func (r *registry) Lookup(name string) (*Registration, bool) {
	return r.entries.Get(name)
}

func (r *registry) Remove(name string) (*Registration, bool) {
	return r.entries.LoadAndDelete(name)
}

func (r *registry) Entries() []*Registration {
	entries := r.entries.Values()
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Name < entries[j].Name
	})
	return entries
}

func (r *registry) Deliver(envelope *message.Envelope) error {
	registration, ok := r.entries.Get(envelope.To)
	if !ok {
		return errors.NewErrTaskNotFound(envelope.To)
	}
	return registration.Mailbox.Enqueue(envelope)
}

func (r *registry) Len() int {
	return r.entries.Len()
}
