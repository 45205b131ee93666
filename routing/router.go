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

package routing

import (
	"context"
	"sync"
	"time"

	mapset "github.com/deckarep/golang-set/v2"

	"github.com/tochemey/taskbus/internal/xsync"
	"github.com/tochemey/taskbus/log"
	"github.com/tochemey/taskbus/message"
)

// DefaultSnapshotTTL is how long a route snapshot is trusted before it is reloaded from the store
const DefaultSnapshotTTL = time.Second

// Handle carries envelopes to the process or device owning a route
type Handle interface {
	Push(envelope *message.Envelope) error
}

// Option configures the Router
type Option interface {
	Apply(router *Router)
}

var _ Option = OptionFunc(nil)

// OptionFunc implements the Option interface.
type OptionFunc func(router *Router)

// Apply applies the Router's option
func (f OptionFunc) Apply(router *Router) {
	f(router)
}

// WithStore sets the store holding the route tables
func WithStore(store Store) Option {
	return OptionFunc(func(router *Router) {
		router.store = store
	})
}

// WithSnapshotTTL sets how long a snapshot is served before the store is read again.
// A zero TTL reads the store on every lookup.
func WithSnapshotTTL(ttl time.Duration) Option {
	return OptionFunc(func(router *Router) {
		router.ttl = ttl
	})
}

// WithLogger sets the logger
func WithLogger(logger log.Logger) Option {
	return OptionFunc(func(router *Router) {
		router.logger = logger
	})
}

type snapshot struct {
	local     []Descriptor
	remote    []Descriptor
	expiresAt time.Time
}

// Router answers which process or device owns a task and which handle reaches it.
//
// Lookups read a deep-copied snapshot of the store. The snapshot is reloaded
// once its TTL expires, right after AddRoute, or after Invalidate, which lets
// a process pick up routes appended by another one without scanning the store
// on every send.
type Router struct {
	store   Store
	ttl     time.Duration
	logger  log.Logger
	handles *xsync.Map[string, Handle]

	mu       sync.Mutex
	snapshot *snapshot
}

// NewRouter creates a Router. It reads an in-memory store unless WithStore is given.
func NewRouter(opts ...Option) *Router {
	router := &Router{
		store:   NewMemoryStore(),
		ttl:     DefaultSnapshotTTL,
		logger:  log.DefaultLogger,
		handles: xsync.NewMap[string, Handle](),
	}

	for _, opt := range opts {
		opt.Apply(router)
	}
	return router
}

// AddRoute validates the descriptor and appends it to its table.
// A task already named in the same table is reported since the first match keeps winning.
func (r *Router) AddRoute(ctx context.Context, descriptor Descriptor) error {
	if err := descriptor.Validate(); err != nil {
		return err
	}

	local, remote := r.tables(ctx)
	existing := local
	if descriptor.Scope == Remote {
		existing = remote
	}

	known := mapset.NewThreadUnsafeSet[string]()
	for _, route := range existing {
		known.Append(route.Tasks...)
	}

	incoming := mapset.NewThreadUnsafeSet(descriptor.Tasks...)
	if incoming.Cardinality() != len(descriptor.Tasks) {
		r.logger.Warnf("route %s lists the same task more than once", descriptor.Name)
	}

	if shadowed := known.Intersect(incoming); shadowed.Cardinality() > 0 {
		r.logger.Warnf("%s route %s repeats tasks %v already routed, the earlier route wins",
			descriptor.Scope, descriptor.Name, shadowed.ToSlice())
	}

	if err := r.store.Append(ctx, descriptor); err != nil {
		return err
	}

	r.Invalidate()
	return nil
}

// RouteFor returns the descriptor owning the task and the handle bound to it.
// LOCAL descriptors are searched first and the first match wins. The handle
// is nil when the route exists but no transport was bound for it.
func (r *Router) RouteFor(ctx context.Context, task string) (Descriptor, Handle, bool) {
	descriptor, ok := r.lookup(ctx, task)
	if !ok {
		return Descriptor{}, nil, false
	}
	handle, _ := r.handles.Get(descriptor.Name)
	return descriptor, handle, true
}

// IsRemote reports whether the task is owned by a remote device and by no local process
func (r *Router) IsRemote(ctx context.Context, task string) bool {
	descriptor, ok := r.lookup(ctx, task)
	return ok && descriptor.Scope == Remote
}

// AddressFor returns the address and listening port of the device owning the task
func (r *Router) AddressFor(ctx context.Context, task string) (string, int, bool) {
	descriptor, ok := r.lookup(ctx, task)
	if !ok || descriptor.Scope != Remote {
		return "", 0, false
	}
	return descriptor.Address, descriptor.OutboundPort, true
}

// Routes returns a copy of the given table
func (r *Router) Routes(ctx context.Context, scope Scope) []Descriptor {
	local, remote := r.tables(ctx)
	if scope == Remote {
		return cloneAll(remote)
	}
	return cloneAll(local)
}

// Bind associates the handle reaching the named process or device
func (r *Router) Bind(name string, handle Handle) {
	r.handles.Set(name, handle)
}

// Unbind removes the handle of the named process or device
func (r *Router) Unbind(name string) {
	r.handles.Delete(name)
}

// Invalidate discards the snapshot so that the next lookup reads the store
func (r *Router) Invalidate() {
	r.mu.Lock()
	r.snapshot = nil
	r.mu.Unlock()
}

// Close closes the store
func (r *Router) Close() error {
	r.handles.Reset()
	return r.store.Close()
}

func (r *Router) lookup(ctx context.Context, task string) (Descriptor, bool) {
	local, remote := r.tables(ctx)
	for _, descriptor := range local {
		if descriptor.Hosts(task) {
			return descriptor.Clone(), true
		}
	}
	for _, descriptor := range remote {
		if descriptor.Hosts(task) {
			return descriptor.Clone(), true
		}
	}
	return Descriptor{}, false
}

// tables returns the current snapshot, reloading it when expired.
// A failed reload keeps serving the previous snapshot.
func (r *Router) tables(ctx context.Context) ([]Descriptor, []Descriptor) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	if r.snapshot != nil && now.Before(r.snapshot.expiresAt) {
		return r.snapshot.local, r.snapshot.remote
	}

	local, remote, err := r.store.Load(ctx)
	if err != nil {
		r.logger.Errorf("failed to load route tables: %v", err)
		if r.snapshot != nil {
			return r.snapshot.local, r.snapshot.remote
		}
		return nil, nil
	}

	r.snapshot = &snapshot{
		local:     local,
		remote:    remote,
		expiresAt: now.Add(r.ttl),
	}
	return local, remote
}
