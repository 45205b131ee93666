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

// Package actor runs tasks as mailbox-driven workers and routes messages
// between them, wherever they run.
//
// An ActorSystem owns the task registry of one OS process. A message to a
// task registered in that registry lands in its mailbox. Any other task is
// resolved through the router: a LOCAL route reaches a sibling process
// through its ipc pair, a REMOTE route reaches another machine through the
// inter-machine transport. Every message is fire-and-forget: unknown
// destinations are logged and dropped, never reported to the sender.
package actor

import (
	"context"
	"errors"
	"runtime"
	"sync"
	"time"

	"go.opentelemetry.io/otel/metric"
	"go.uber.org/atomic"
	"golang.org/x/sync/errgroup"

	"github.com/tochemey/taskbus/codec"
	"github.com/tochemey/taskbus/config"
	gerrors "github.com/tochemey/taskbus/errors"
	"github.com/tochemey/taskbus/forwarder"
	"github.com/tochemey/taskbus/imc"
	"github.com/tochemey/taskbus/internal/chain"
	imetric "github.com/tochemey/taskbus/internal/metric"
	"github.com/tochemey/taskbus/ipc"
	"github.com/tochemey/taskbus/log"
	"github.com/tochemey/taskbus/mailbox"
	"github.com/tochemey/taskbus/message"
	"github.com/tochemey/taskbus/pubsub"
	"github.com/tochemey/taskbus/registry"
	"github.com/tochemey/taskbus/routing"
)

const (
	pathLocal   = "local"
	pathProcess = "process"
	pathDevice  = "device"
)

// ActorSystem defines the process-facing API
type ActorSystem interface {
	// Name returns the process name
	Name() string
	// Start adds the initial routes, binds the transports and starts the background loops.
	// A failed Start releases what it acquired and the system cannot be started again.
	Start(ctx context.Context) error
	// Stop terminates every worker, stops the background loops and closes the route store.
	// It returns nil once the system is stopped or failed to start.
	Stop(ctx context.Context) error
	// SpawnActor registers the task and starts its worker. The worker dispatches
	// the INIT message before anything else. It returns once the worker runs.
	SpawnActor(ctx context.Context, name string, dispatcher registry.Dispatcher) (*PID, error)
	// RegisterNonActor registers a task served by polling instead of a worker.
	// The dispatcher is optional and only used by Dispatch.
	RegisterNonActor(name string, dispatcher registry.Dispatcher) error
	// Unregister removes the task, terminating its worker if any
	Unregister(ctx context.Context, name string) error
	// SendMessage delivers the payload to the named task. It never blocks on the
	// destination and drops the message, with a log, when it cannot be routed.
	SendMessage(ctx context.Context, to string, payload message.Payload)
	// PollMessage takes the oldest message of the task that is not a reply,
	// waiting a bounded time for one
	PollMessage(ctx context.Context, name string) (message.Payload, bool)
	// SendResponse sends a reply carrying data to the requester
	SendResponse(ctx context.Context, requester string, data any)
	// PollResponse takes the oldest reply addressed to the task, waiting a bounded time for one
	PollResponse(ctx context.Context, name string) (message.Payload, bool)
	// Dispatch polls one message of a non-actor task and hands it to its dispatcher
	// on the calling goroutine. It reports whether a message was dispatched.
	Dispatch(ctx context.Context, name string) bool
	// Terminate stops the worker of the task and removes its registration.
	// Terminating an unknown or terminated task is a no-op.
	Terminate(ctx context.Context, name string) error
	// TerminateAll terminates every worker
	TerminateAll(ctx context.Context) error
	// AddRoute appends a route descriptor. A REMOTE route added while running
	// binds its inbound socket right away.
	AddRoute(ctx context.Context, descriptor routing.Descriptor) error
	// RouteFor returns the route owning the task and the handle reaching it
	RouteFor(ctx context.Context, task string) (routing.Descriptor, routing.Handle, bool)
	// ConnectProcess links the system to a sibling process
	ConnectProcess(process string, pair ipc.Pair)
	// Subscribe adds the task to the subscribers of the topic
	Subscribe(task, topic string)
	// Unsubscribe removes the task from the subscribers of the topic
	Unsubscribe(task, topic string)
	// Publish sends data as a one-way message to every subscriber of the topic
	Publish(ctx context.Context, topic string, data any)
	// ListSubscribers returns a copy of the subscribers of the topic
	ListSubscribers(topic string) []string
	// Registry returns the task registry
	Registry() registry.Registry
	// Router returns the router
	Router() *routing.Router
	// Logger returns the logger
	Logger() log.Logger
}

type actorSystem struct {
	name   string
	logger log.Logger

	receiveTimeout    time.Duration
	pollTimeout       time.Duration
	forwarderInterval time.Duration
	snapshotTTL       time.Duration

	routeStore    routing.Store
	initialRoutes []routing.Descriptor
	processLinks  map[string]ipc.Pair

	remotingEnabled  bool
	bindAddress      string
	remotingInterval time.Duration
	codec            *codec.Codec

	meterProvider metric.MeterProvider
	telemetry     *imetric.Telemetry

	registry  registry.Registry
	router    *routing.Router
	forwarder *forwarder.Forwarder
	topics    pubsub.Topics

	remotingMu sync.Mutex
	remoting   *imc.Server

	started      *atomic.Bool
	shuttingDown *atomic.Bool
}

var (
	_ ActorSystem         = (*actorSystem)(nil)
	_ pubsub.Sender       = (*actorSystem)(nil)
	_ forwarder.Deliverer = (*actorSystem)(nil)
	_ imc.Deliverer       = (*actorSystem)(nil)
)

// NewActorSystem creates the runtime of the named process
func NewActorSystem(name string, opts ...Option) (ActorSystem, error) {
	if name == "" {
		return nil, gerrors.ErrTaskNameRequired
	}

	system := &actorSystem{
		name:              name,
		logger:            log.DefaultLogger,
		receiveTimeout:    config.DefaultReceiveTimeout,
		pollTimeout:       config.DefaultPollTimeout,
		forwarderInterval: config.DefaultForwarderInterval,
		snapshotTTL:       routing.DefaultSnapshotTTL,
		processLinks:      make(map[string]ipc.Pair),
		bindAddress:       config.DefaultBindAddress,
		remotingInterval:  config.DefaultRemotingInterval,
		registry:          registry.New(),
		started:           atomic.NewBool(false),
		shuttingDown:      atomic.NewBool(false),
	}

	for _, opt := range opts {
		opt.Apply(system)
	}

	if err := config.New(name,
		config.WithReceiveTimeout(system.receiveTimeout),
		config.WithPollTimeout(system.pollTimeout),
		config.WithForwarderInterval(system.forwarderInterval),
		config.WithSnapshotTTL(system.snapshotTTL),
	).Validate(); err != nil {
		return nil, err
	}

	system.telemetry = imetric.New(imetric.WithMeterProvider(system.meterProvider))

	routerOpts := []routing.Option{
		routing.WithSnapshotTTL(system.snapshotTTL),
		routing.WithLogger(system.logger),
	}
	if system.routeStore != nil {
		routerOpts = append(routerOpts, routing.WithStore(system.routeStore))
	}
	system.router = routing.NewRouter(routerOpts...)

	system.forwarder = forwarder.New(system,
		forwarder.WithInterval(system.forwarderInterval),
		forwarder.WithLogger(system.logger),
		forwarder.WithTelemetry(system.telemetry))

	for process, pair := range system.processLinks {
		system.ConnectProcess(process, pair)
	}

	system.topics = pubsub.New(system, system.logger)
	return system, nil
}

// NewActorSystemFromConfig creates the runtime described by the settings.
// Options given here apply after the settings.
func NewActorSystemFromConfig(cfg *config.Config, opts ...Option) (ActorSystem, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	store, err := cfg.RouteStore()
	if err != nil {
		return nil, err
	}

	frameCodec, err := cfg.Codec()
	if err != nil {
		return nil, errors.Join(err, store.Close())
	}

	base := []Option{
		WithConfig(cfg),
		WithLogger(cfg.Logger()),
		WithRouteStore(store),
		WithCodec(frameCodec),
	}

	system, err := NewActorSystem(cfg.Name, append(base, opts...)...)
	if err != nil {
		return nil, errors.Join(err, store.Close())
	}
	return system, nil
}

func (x *actorSystem) Name() string {
	return x.name
}

func (x *actorSystem) Registry() registry.Registry {
	return x.registry
}

func (x *actorSystem) Router() *routing.Router {
	return x.router
}

func (x *actorSystem) Logger() log.Logger {
	return x.logger
}

func (x *actorSystem) Start(ctx context.Context) error {
	if x.shuttingDown.Load() {
		return gerrors.ErrActorSystemNotStarted
	}

	if x.started.Load() {
		return gerrors.ErrActorSystemAlreadyStarted
	}

	x.logger.Infof("Starting Actor System (%s) on %s/%s..", x.name, runtime.GOOS, runtime.GOARCH)

	if err := chain.
		New(chain.WithFailFast(), chain.WithContext(ctx)).
		AddContextRunner(x.addInitialRoutes).
		AddRunnerIf(x.remotingEnabled, func() error { return x.startRemoting(ctx) }).
		Run(); err != nil {
		// a system that failed to start is not restartable, its resources go now
		x.shuttingDown.Store(true)
		if cerr := chain.
			New(chain.WithRunAll(), chain.WithContext(ctx)).
			AddContextRunner(x.stopRemoting).
			AddRunner(x.router.Close).
			Run(); cerr != nil {
			x.logger.Warnf("Actor System (%s) failed to release its resources: %v", x.name, cerr)
		}
		x.logger.Errorf("Actor System (%s) failed to start: %v", x.name, err)
		return err
	}

	x.forwarder.Start()
	x.started.Store(true)
	x.logger.Infof("Actor System (%s) successfully started..:)", x.name)
	return nil
}

func (x *actorSystem) Stop(ctx context.Context) error {
	if !x.started.Load() {
		if x.shuttingDown.Load() {
			return nil
		}
		return gerrors.ErrActorSystemNotStarted
	}

	if !x.shuttingDown.CompareAndSwap(false, true) {
		return nil
	}

	x.logger.Infof("Stopping Actor System (%s)...", x.name)

	err := chain.
		New(chain.WithRunAll(), chain.WithContext(ctx)).
		AddContextRunner(x.TerminateAll).
		AddRunner(func() error {
			x.forwarder.Stop()
			return nil
		}).
		AddContextRunner(func(ctx context.Context) error {
			return x.stopRemoting(ctx)
		}).
		AddRunner(x.router.Close).
		Run()

	x.started.Store(false)
	if err != nil {
		x.logger.Errorf("Actor System (%s) stopped with errors: %v", x.name, err)
		return err
	}

	x.logger.Infof("Actor System (%s) successfully stopped", x.name)
	return x.logger.Flush()
}

func (x *actorSystem) SpawnActor(ctx context.Context, name string, dispatcher registry.Dispatcher) (*PID, error) {
	if !x.started.Load() {
		return nil, gerrors.ErrActorSystemNotStarted
	}

	if name == "" {
		return nil, gerrors.ErrTaskNameRequired
	}

	if dispatcher == nil {
		return nil, gerrors.ErrDispatcherRequired
	}

	mbox := mailbox.New()
	pid := newPID(name, dispatcher, mbox, x.receiveTimeout, x.logger, x.telemetry)
	if err := x.registry.Store(&registry.Registration{
		Name:       name,
		Worker:     pid,
		Dispatcher: dispatcher,
		Mailbox:    mbox,
	}); err != nil {
		return nil, err
	}

	pid.start(ctx)

	x.logger.Debugf("task=(%s) spawned with worker %s", name, pid.ID())
	return pid, nil
}

func (x *actorSystem) RegisterNonActor(name string, dispatcher registry.Dispatcher) error {
	return x.registry.Store(&registry.Registration{
		Name:       name,
		Dispatcher: dispatcher,
	})
}

func (x *actorSystem) Unregister(ctx context.Context, name string) error {
	registration, ok := x.registry.Lookup(name)
	if !ok {
		return gerrors.NewErrTaskNotFound(name)
	}
	return x.terminate(ctx, registration)
}

func (x *actorSystem) SendMessage(ctx context.Context, to string, payload message.Payload) {
	envelope := message.New(to, payload)

	if registration, ok := x.registry.Lookup(to); ok {
		if err := registration.Mailbox.Enqueue(envelope); err != nil {
			x.drop(ctx, envelope, imetric.DropUnknownDestination, err)
			return
		}
		x.telemetry.MessageSent(ctx, pathLocal)
		return
	}

	descriptor, handle, ok := x.router.RouteFor(ctx, to)
	if !ok || (descriptor.Scope == routing.Local && descriptor.Name == x.name) {
		x.drop(ctx, envelope, imetric.DropUnknownDestination, gerrors.NewErrTaskNotFound(to))
		return
	}

	if handle == nil {
		x.drop(ctx, envelope, imetric.DropHandleAbsent, gerrors.ErrTransportNotBound)
		return
	}

	if err := handle.Push(envelope); err != nil {
		x.drop(ctx, envelope, imetric.DropTransportFailure, err)
		return
	}

	path := pathProcess
	if descriptor.Scope == routing.Remote {
		path = pathDevice
	}
	x.telemetry.MessageSent(ctx, path)
}

func (x *actorSystem) PollMessage(ctx context.Context, name string) (message.Payload, bool) {
	return x.poll(ctx, name, func(envelope *message.Envelope) bool {
		return envelope.Payload.Kind != message.KindReply
	})
}

func (x *actorSystem) SendResponse(ctx context.Context, requester string, data any) {
	x.SendMessage(ctx, requester, message.Reply(data))
}

func (x *actorSystem) PollResponse(ctx context.Context, name string) (message.Payload, bool) {
	return x.poll(ctx, name, func(envelope *message.Envelope) bool {
		return envelope.Payload.Kind == message.KindReply
	})
}

func (x *actorSystem) Dispatch(ctx context.Context, name string) bool {
	registration, ok := x.registry.Lookup(name)
	if !ok {
		x.logger.Warnf("task=(%s) is not registered", name)
		return false
	}

	if registration.IsActor() || registration.Dispatcher == nil {
		x.logger.Warnf("task=(%s) has no dispatcher to call", name)
		return false
	}

	payload, ok := x.PollMessage(ctx, name)
	if !ok {
		return false
	}

	registration.Dispatcher.Dispatch(ctx, payload)
	x.telemetry.MessageDelivered(ctx)
	return true
}

func (x *actorSystem) Terminate(ctx context.Context, name string) error {
	registration, ok := x.registry.Lookup(name)
	if !ok || !registration.IsActor() {
		return nil
	}
	return x.terminate(ctx, registration)
}

func (x *actorSystem) TerminateAll(ctx context.Context) error {
	eg, ctx := errgroup.WithContext(ctx)
	for _, registration := range x.registry.Entries() {
		if !registration.IsActor() {
			continue
		}
		registration := registration
		eg.Go(func() error {
			return x.terminate(ctx, registration)
		})
	}
	return eg.Wait()
}

func (x *actorSystem) AddRoute(ctx context.Context, descriptor routing.Descriptor) error {
	if err := x.router.AddRoute(ctx, descriptor); err != nil {
		return err
	}

	if descriptor.Scope != routing.Remote || !x.started.Load() {
		return nil
	}

	x.remotingMu.Lock()
	server := x.remoting
	x.remotingMu.Unlock()
	if server == nil {
		return nil
	}
	return x.link(server, descriptor)
}

func (x *actorSystem) RouteFor(ctx context.Context, task string) (routing.Descriptor, routing.Handle, bool) {
	return x.router.RouteFor(ctx, task)
}

func (x *actorSystem) ConnectProcess(process string, pair ipc.Pair) {
	x.router.Bind(process, pair.Out)
	x.forwarder.AddPair(pair)
}

func (x *actorSystem) Subscribe(task, topic string) {
	x.topics.Subscribe(task, topic)
}

func (x *actorSystem) Unsubscribe(task, topic string) {
	x.topics.Unsubscribe(task, topic)
}

func (x *actorSystem) Publish(ctx context.Context, topic string, data any) {
	x.topics.Publish(ctx, topic, data)
}

func (x *actorSystem) ListSubscribers(topic string) []string {
	return x.topics.Subscribers(topic)
}

// Deliver enqueues an envelope that crossed a process or machine boundary.
// A task of a sibling process on this machine is reached through its pair,
// anything else that is not registered here is rejected.
func (x *actorSystem) Deliver(envelope *message.Envelope) error {
	err := x.registry.Deliver(envelope)
	if err == nil || !errors.Is(err, gerrors.ErrTaskNotFound) {
		return err
	}

	descriptor, handle, ok := x.router.RouteFor(context.Background(), envelope.To)
	if !ok || descriptor.Scope != routing.Local || descriptor.Name == x.name || handle == nil {
		return err
	}
	return handle.Push(envelope)
}

func (x *actorSystem) poll(ctx context.Context, name string, match func(*message.Envelope) bool) (message.Payload, bool) {
	registration, ok := x.registry.Lookup(name)
	if !ok {
		x.logger.Warnf("task=(%s) is not registered", name)
		return message.Payload{}, false
	}

	envelope, ok := registration.Mailbox.DequeueMatch(ctx, x.pollTimeout, match)
	if !ok {
		return message.Payload{}, false
	}
	return envelope.Payload, true
}

func (x *actorSystem) terminate(ctx context.Context, registration *registry.Registration) error {
	if _, ok := x.registry.Remove(registration.Name); !ok {
		return nil
	}

	if pid, ok := registration.Worker.(*PID); ok {
		if err := pid.shutdown(ctx); err != nil {
			return err
		}
	}

	if pending := registration.Mailbox.Dispose(); len(pending) > 0 {
		x.logger.Warnf("task=(%s) terminated with %d unprocessed messages", registration.Name, len(pending))
		for range pending {
			x.telemetry.MessageDropped(ctx, imetric.DropUnknownDestination)
		}
	}

	x.logger.Debugf("task=(%s) terminated", registration.Name)
	return nil
}

func (x *actorSystem) drop(ctx context.Context, envelope *message.Envelope, reason string, err error) {
	x.logger.Warnf("dropping %s: %v", envelope, err)
	x.telemetry.MessageDropped(ctx, reason)
}

func (x *actorSystem) addInitialRoutes(ctx context.Context) error {
	for _, descriptor := range x.initialRoutes {
		if err := x.router.AddRoute(ctx, descriptor); err != nil {
			return err
		}
	}
	x.initialRoutes = nil
	return nil
}

func (x *actorSystem) startRemoting(ctx context.Context) error {
	remotes := x.router.Routes(ctx, routing.Remote)
	opts := []imc.Option{
		imc.WithBindAddress(x.bindAddress),
		imc.WithInterval(x.remotingInterval),
		imc.WithLogger(x.logger),
		imc.WithTelemetry(x.telemetry),
	}
	if x.codec != nil {
		opts = append(opts, imc.WithCodec(x.codec))
	}

	server, err := imc.NewServer(x, remotes, opts...)
	if err != nil {
		return err
	}

	for _, descriptor := range remotes {
		if err := x.link(server, descriptor); err != nil {
			return errors.Join(err, server.Stop(ctx))
		}
	}

	if err := server.Start(ctx); err != nil {
		return errors.Join(err, server.Stop(ctx))
	}

	if advertised, err := server.AdvertisedAddress(); err == nil {
		x.logger.Infof("Actor System (%s) reachable from remote devices at %s", x.name, advertised)
	}

	x.remotingMu.Lock()
	x.remoting = server
	x.remotingMu.Unlock()
	return nil
}

func (x *actorSystem) link(server *imc.Server, descriptor routing.Descriptor) error {
	link, err := server.AddLink(descriptor)
	if err != nil {
		return err
	}
	x.router.Bind(descriptor.Name, link)
	return nil
}

func (x *actorSystem) stopRemoting(ctx context.Context) error {
	x.remotingMu.Lock()
	server := x.remoting
	x.remoting = nil
	x.remotingMu.Unlock()

	if server == nil {
		return nil
	}
	return server.Stop(ctx)
}
