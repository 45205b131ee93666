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
	"time"

	"go.opentelemetry.io/otel/metric"

	"github.com/tochemey/taskbus/codec"
	"github.com/tochemey/taskbus/config"
	"github.com/tochemey/taskbus/ipc"
	"github.com/tochemey/taskbus/log"
	"github.com/tochemey/taskbus/routing"
)

// Option is the interface that applies a configuration option.
type Option interface {
	// Apply sets the Option value of a config.
	Apply(sys *actorSystem)
}

var _ Option = OptionFunc(nil)

// OptionFunc implements the Option interface.
type OptionFunc func(*actorSystem)

// Apply applies the option
func (f OptionFunc) Apply(sys *actorSystem) {
	f(sys)
}

// WithLogger sets the actor system logger
func WithLogger(logger log.Logger) Option {
	return OptionFunc(func(sys *actorSystem) {
		sys.logger = logger
	})
}

// WithReceiveTimeout sets how long a worker waits on its empty mailbox before
// checking whether it should terminate
func WithReceiveTimeout(timeout time.Duration) Option {
	return OptionFunc(func(sys *actorSystem) {
		sys.receiveTimeout = timeout
	})
}

// WithPollTimeout sets how long PollMessage, PollResponse and Dispatch wait
func WithPollTimeout(timeout time.Duration) Option {
	return OptionFunc(func(sys *actorSystem) {
		sys.pollTimeout = timeout
	})
}

// WithForwarderInterval sets the fallback period of the cross-process forwarder
func WithForwarderInterval(interval time.Duration) Option {
	return OptionFunc(func(sys *actorSystem) {
		sys.forwarderInterval = interval
	})
}

// WithRouteStore sets the store backing the route tables
func WithRouteStore(store routing.Store) Option {
	return OptionFunc(func(sys *actorSystem) {
		sys.routeStore = store
	})
}

// WithSnapshotTTL sets how long route lookups reuse a snapshot of the tables
func WithSnapshotTTL(ttl time.Duration) Option {
	return OptionFunc(func(sys *actorSystem) {
		sys.snapshotTTL = ttl
	})
}

// WithRoutes sets the initial topology. The routes are added on Start.
func WithRoutes(descriptors ...routing.Descriptor) Option {
	return OptionFunc(func(sys *actorSystem) {
		sys.initialRoutes = append(sys.initialRoutes, descriptors...)
	})
}

// WithProcessLink connects the system to a sibling process through the pair
func WithProcessLink(process string, pair ipc.Pair) Option {
	return OptionFunc(func(sys *actorSystem) {
		sys.processLinks[process] = pair
	})
}

// WithRemoting enables the inter-machine transport. Inbound sockets bind
// on bindAddress, one per distinct inbound port of the REMOTE routes.
func WithRemoting(bindAddress string) Option {
	return OptionFunc(func(sys *actorSystem) {
		sys.remotingEnabled = true
		sys.bindAddress = bindAddress
	})
}

// WithRemotingInterval sets the fallback flush period of the inter-machine transport
func WithRemotingInterval(interval time.Duration) Option {
	return OptionFunc(func(sys *actorSystem) {
		sys.remotingInterval = interval
	})
}

// WithCodec sets the codec framing the inter-machine datagrams
func WithCodec(frameCodec *codec.Codec) Option {
	return OptionFunc(func(sys *actorSystem) {
		sys.codec = frameCodec
	})
}

// WithMeterProvider sets the OpenTelemetry meter provider
func WithMeterProvider(provider metric.MeterProvider) Option {
	return OptionFunc(func(sys *actorSystem) {
		sys.meterProvider = provider
	})
}

// WithConfig applies the runtime settings.
// The logger, route store and codec it describes are built by NewActorSystemFromConfig.
func WithConfig(cfg *config.Config) Option {
	return OptionFunc(func(sys *actorSystem) {
		sys.receiveTimeout = cfg.ReceiveTimeout
		sys.pollTimeout = cfg.PollTimeout
		sys.forwarderInterval = cfg.ForwarderInterval
		sys.snapshotTTL = cfg.Routes.SnapshotTTL
		if cfg.Remoting.Enabled {
			sys.remotingEnabled = true
			sys.bindAddress = cfg.Remoting.BindAddress
			sys.remotingInterval = cfg.Remoting.Interval
		}
	})
}
