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

package config

import "time"

// Option is the interface that applies a configuration option.
type Option interface {
	// Apply sets the Option value of a config.
	Apply(cfg *Config)
}

var _ Option = OptionFunc(nil)

// OptionFunc implements the Option interface.
type OptionFunc func(cfg *Config)

// Apply applies the option
func (f OptionFunc) Apply(cfg *Config) {
	f(cfg)
}

// WithReceiveTimeout sets how long a worker waits on an empty mailbox
func WithReceiveTimeout(timeout time.Duration) Option {
	return OptionFunc(func(cfg *Config) {
		cfg.ReceiveTimeout = timeout
	})
}

// WithPollTimeout sets how long a non-actor poll waits
func WithPollTimeout(timeout time.Duration) Option {
	return OptionFunc(func(cfg *Config) {
		cfg.PollTimeout = timeout
	})
}

// WithForwarderInterval sets the fallback period of the forwarder
func WithForwarderInterval(interval time.Duration) Option {
	return OptionFunc(func(cfg *Config) {
		cfg.ForwarderInterval = interval
	})
}

// WithRemoting enables the inter-machine transport bound on the given address
func WithRemoting(bindAddress string, compression string) Option {
	return OptionFunc(func(cfg *Config) {
		cfg.Remoting.Enabled = true
		cfg.Remoting.BindAddress = bindAddress
		cfg.Remoting.Compression = compression
	})
}

// WithSnapshotTTL sets how long route lookups reuse a snapshot of the tables
func WithSnapshotTTL(ttl time.Duration) Option {
	return OptionFunc(func(cfg *Config) {
		cfg.Routes.SnapshotTTL = ttl
	})
}

// WithRouteStore sets the bbolt file holding the route tables
func WithRouteStore(path string) Option {
	return OptionFunc(func(cfg *Config) {
		cfg.Routes.StorePath = path
	})
}

// WithReadOnlyRoutes opens the route store without write access
func WithReadOnlyRoutes() Option {
	return OptionFunc(func(cfg *Config) {
		cfg.Routes.ReadOnly = true
	})
}

// WithLogLevel sets the log level
func WithLogLevel(level string) Option {
	return OptionFunc(func(cfg *Config) {
		cfg.Logging.Level = level
	})
}

// WithLogFile writes the logs to a rotated file
func WithLogFile(path string) Option {
	return OptionFunc(func(cfg *Config) {
		cfg.Logging.File = path
	})
}
