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

package errors

import (
	"errors"
	"fmt"
)

var (
	// ErrTaskNameRequired is returned when a task is registered or spawned without a name.
	ErrTaskNameRequired = errors.New("task name is required")

	// ErrTaskExists is returned when a task name is already registered.
	ErrTaskExists = errors.New("task already exists")

	// ErrTaskNotFound is returned when a task name has no registration.
	ErrTaskNotFound = errors.New("task not found")

	// ErrDispatcherRequired is returned when a task is spawned without a dispatcher.
	ErrDispatcherRequired = errors.New("dispatcher is required")

	// ErrRouteNotFound is returned when no route descriptor names the task.
	ErrRouteNotFound = errors.New("route not found")

	// ErrTransportNotBound is returned when a route exists but no transport handle reaches its owner.
	ErrTransportNotBound = errors.New("transport handle is not bound")

	// ErrInvalidDescriptor is returned when a route descriptor is malformed.
	ErrInvalidDescriptor = errors.New("invalid route descriptor")

	// ErrMailboxDisposed is returned when writing to a disposed mailbox.
	ErrMailboxDisposed = errors.New("mailbox is disposed")

	// ErrChannelClosed is returned when pushing onto a closed cross-process channel.
	ErrChannelClosed = errors.New("channel is closed")

	// ErrStoreClosed is returned when accessing a closed route store.
	ErrStoreClosed = errors.New("route store is closed")

	// ErrInvalidFrame is returned when a wire frame cannot be decoded.
	ErrInvalidFrame = errors.New("invalid frame")

	// ErrDatagramTooLarge is returned when an encoded envelope exceeds the UDP payload limit.
	ErrDatagramTooLarge = errors.New("datagram too large")

	// ErrActorSystemNotStarted is returned when the actor system is used before Start.
	ErrActorSystemNotStarted = errors.New("actor system has not started yet")

	// ErrActorSystemAlreadyStarted is returned when Start is called twice.
	ErrActorSystemAlreadyStarted = errors.New("actor system has already started")

	// ErrBindFailure is returned when an inbound socket cannot be bound.
	ErrBindFailure = errors.New("failed to bind socket")

	// ErrTransportStopped is returned when enqueuing onto a stopped transport.
	ErrTransportStopped = errors.New("transport is stopped")
)

// NewErrTaskExists formats an ErrTaskExists for the given task name.
func NewErrTaskExists(name string) error {
	return fmt.Errorf("task=(%s) %w", name, ErrTaskExists)
}

// NewErrTaskNotFound formats an ErrTaskNotFound for the given task name.
func NewErrTaskNotFound(name string) error {
	return fmt.Errorf("task=(%s) %w", name, ErrTaskNotFound)
}

// NewErrRouteNotFound formats an ErrRouteNotFound for the given task name.
func NewErrRouteNotFound(name string) error {
	return fmt.Errorf("task=(%s) %w", name, ErrRouteNotFound)
}

// NewErrBindFailure joins the socket error with ErrBindFailure.
func NewErrBindFailure(port int, err error) error {
	return errors.Join(fmt.Errorf("port=(%d) %w", port, ErrBindFailure), err)
}

// NewErrInvalidFrame joins the decoding error with ErrInvalidFrame.
func NewErrInvalidFrame(err error) error {
	return errors.Join(ErrInvalidFrame, err)
}

// PanicError wraps the value recovered from a panicking dispatcher
type PanicError struct {
	err error
}

// enforce compilation error
var _ error = (*PanicError)(nil)

// NewPanicError creates an instance of PanicError
func NewPanicError(err error) *PanicError {
	return &PanicError{err}
}

// Error implements the standard error interface
func (e *PanicError) Error() string {
	return fmt.Sprintf("panic: %v", e.err)
}

func (e *PanicError) Unwrap() error {
	return e.err
}
