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
	"errors"
	"fmt"
	"runtime"
	"time"

	"github.com/google/uuid"
	"go.uber.org/atomic"

	gerrors "github.com/tochemey/taskbus/errors"
	"github.com/tochemey/taskbus/internal/metric"
	"github.com/tochemey/taskbus/log"
	"github.com/tochemey/taskbus/mailbox"
	"github.com/tochemey/taskbus/message"
	"github.com/tochemey/taskbus/registry"
)

// State is the lifecycle state of a worker
type State int32

const (
	Spawned State = iota
	Running
	Terminating
	Terminated
)

func (s State) String() string {
	switch s {
	case Spawned:
		return "spawned"
	case Running:
		return "running"
	case Terminating:
		return "terminating"
	case Terminated:
		return "terminated"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

// PID is the worker driving one actor.
// It dispatches the INIT message first, then every envelope of its mailbox in order.
type PID struct {
	id         string
	name       string
	dispatcher registry.Dispatcher
	mailbox    *mailbox.Mailbox

	receiveTimeout time.Duration
	logger         log.Logger
	telemetry      *metric.Telemetry

	state   *atomic.Int32
	running chan struct{}
	done    chan struct{}
	cancel  context.CancelFunc
}

var _ registry.Worker = (*PID)(nil)

func newPID(name string, dispatcher registry.Dispatcher, mbox *mailbox.Mailbox, receiveTimeout time.Duration, logger log.Logger, telemetry *metric.Telemetry) *PID {
	return &PID{
		id:             uuid.NewString(),
		name:           name,
		dispatcher:     dispatcher,
		mailbox:        mbox,
		receiveTimeout: receiveTimeout,
		logger:         logger,
		telemetry:      telemetry,
		state:          atomic.NewInt32(int32(Spawned)),
		running:        make(chan struct{}),
		done:           make(chan struct{}),
	}
}

// ID returns the unique identifier of the worker
func (pid *PID) ID() string {
	return pid.id
}

// Name returns the task name
func (pid *PID) Name() string {
	return pid.name
}

// State returns the current lifecycle state
func (pid *PID) State() State {
	return State(pid.state.Load())
}

// IsRunning reports whether the worker is processing its mailbox
func (pid *PID) IsRunning() bool {
	return pid.State() == Running
}

// start launches the worker and returns once it is running
func (pid *PID) start(ctx context.Context) {
	ctx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	pid.cancel = cancel
	go pid.receiveLoop(ctx)
	<-pid.running
}

func (pid *PID) receiveLoop(ctx context.Context) {
	defer close(pid.done)
	defer pid.state.Store(int32(Terminated))

	if !pid.state.CompareAndSwap(int32(Spawned), int32(Running)) {
		close(pid.running)
		return
	}
	close(pid.running)

	pid.dispatch(ctx, message.Init())

	for pid.State() == Running {
		envelope, ok := pid.mailbox.DequeueTimeout(ctx, pid.receiveTimeout)
		if !ok {
			continue
		}
		pid.dispatch(ctx, envelope.Payload)
	}
}

func (pid *PID) dispatch(ctx context.Context, payload message.Payload) {
	defer pid.recovery(payload)
	pid.dispatcher.Dispatch(ctx, payload)
	pid.telemetry.MessageDelivered(ctx)
}

// recovery logs a panicking dispatcher and lets the worker carry on
func (pid *PID) recovery(payload message.Payload) {
	if r := recover(); r != nil {
		pc, fn, line, _ := runtime.Caller(3)
		var cause error
		if err, ok := r.(error); ok {
			var pe *gerrors.PanicError
			if errors.As(err, &pe) {
				pid.logger.Errorf("task=(%s) failed to handle %s message: %v", pid.name, payload.Kind, pe)
				return
			}
			cause = fmt.Errorf("%w at %s[%s:%d]", err, runtime.FuncForPC(pc).Name(), fn, line)
		} else {
			cause = fmt.Errorf("%#v at %s[%s:%d]", r, runtime.FuncForPC(pc).Name(), fn, line)
		}
		pid.logger.Errorf("task=(%s) failed to handle %s message: %v", pid.name, payload.Kind, gerrors.NewPanicError(cause))
	}
}

// shutdown flips the worker to Terminating and waits for it to exit.
// The bounded mailbox wait caps how long that takes.
func (pid *PID) shutdown(ctx context.Context) error {
	if !pid.state.CompareAndSwap(int32(Running), int32(Terminating)) {
		if pid.State() == Spawned {
			pid.state.Store(int32(Terminated))
			return nil
		}
	}

	if pid.cancel != nil {
		pid.cancel()
	}

	select {
	case <-pid.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
