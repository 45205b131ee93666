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

// Package config holds the runtime settings of a process.
//
// Settings come from defaults, functional options, or a YAML file with
// TASKBUS_ environment overrides. The topology itself is not configured
// here: route descriptors are handed to the router by the bootstrap code.
package config

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/tochemey/taskbus/codec"
	"github.com/tochemey/taskbus/internal/validation"
	"github.com/tochemey/taskbus/log"
	"github.com/tochemey/taskbus/routing"
)

const (
	DefaultReceiveTimeout    = time.Second
	DefaultPollTimeout       = 100 * time.Millisecond
	DefaultForwarderInterval = 50 * time.Millisecond
	DefaultRemotingInterval  = 50 * time.Millisecond
	DefaultBindAddress       = "0.0.0.0"
)

// Config represents the runtime settings of one process
type Config struct {
	// Name is the process name, as listed in the LOCAL route table
	Name string `mapstructure:"name"`
	// ReceiveTimeout bounds how long a worker waits on an empty mailbox before
	// checking whether it was asked to terminate
	ReceiveTimeout time.Duration `mapstructure:"receive_timeout"`
	// PollTimeout bounds how long a non-actor poll waits for a message
	PollTimeout time.Duration `mapstructure:"poll_timeout"`
	// ForwarderInterval is the fallback period of the cross-process forwarder
	ForwarderInterval time.Duration `mapstructure:"forwarder_interval"`

	Remoting Remoting `mapstructure:"remoting"`
	Routes   Routes   `mapstructure:"routes"`
	Logging  Logging  `mapstructure:"logging"`
}

// Remoting configures the inter-machine transport
type Remoting struct {
	Enabled     bool          `mapstructure:"enabled"`
	BindAddress string        `mapstructure:"bind_address"`
	Interval    time.Duration `mapstructure:"interval"`
	// Compression is one of none, zstd, brotli or gzip
	Compression string `mapstructure:"compression"`
}

// Routes configures the route tables
type Routes struct {
	SnapshotTTL time.Duration `mapstructure:"snapshot_ttl"`
	// StorePath is the bbolt file shared by the processes of the machine.
	// The tables stay in memory when it is empty.
	StorePath string `mapstructure:"store_path"`
	// ReadOnly opens the store with a shared lock. Processes that never add
	// routes set it so that only the bring-up process writes.
	ReadOnly bool `mapstructure:"read_only"`
}

// Logging configures the logger
type Logging struct {
	Level      string `mapstructure:"level"`
	File       string `mapstructure:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
	Compress   bool   `mapstructure:"compress"`
}

// New creates a Config with the defaults and applies the options
func New(name string, opts ...Option) *Config {
	cfg := &Config{
		Name:              name,
		ReceiveTimeout:    DefaultReceiveTimeout,
		PollTimeout:       DefaultPollTimeout,
		ForwarderInterval: DefaultForwarderInterval,
		Remoting: Remoting{
			BindAddress: DefaultBindAddress,
			Interval:    DefaultRemotingInterval,
			Compression: codec.NoCompression.String(),
		},
		Routes: Routes{
			SnapshotTTL: routing.DefaultSnapshotTTL,
		},
		Logging: Logging{
			Level:      log.InfoLevel.String(),
			MaxSizeMB:  50,
			MaxBackups: 3,
			MaxAgeDays: 28,
		},
	}

	for _, opt := range opts {
		opt.Apply(cfg)
	}
	return cfg
}

// Validate checks every setting and reports all the problems found
func (c *Config) Validate() error {
	chain := validation.New(validation.AllErrors()).
		AddValidator(validation.NewEmptyStringValidator("name", c.Name)).
		AddValidator(validation.NewPositiveDurationValidator("receive_timeout", c.ReceiveTimeout)).
		AddValidator(validation.NewPositiveDurationValidator("poll_timeout", c.PollTimeout)).
		AddValidator(validation.NewPositiveDurationValidator("forwarder_interval", c.ForwarderInterval)).
		AddValidator(validation.NewPositiveDurationValidator("routes.snapshot_ttl", c.Routes.SnapshotTTL)).
		AddAssertion(log.ParseLevel(c.Logging.Level) != log.InvalidLevel,
			fmt.Sprintf("the [logging.level] is invalid, got %q", c.Logging.Level))

	if c.Remoting.Enabled {
		_, err := codec.ParseCompression(c.Remoting.Compression)
		chain.
			AddValidator(validation.NewEmptyStringValidator("remoting.bind_address", c.Remoting.BindAddress)).
			AddValidator(validation.NewBindAddressValidator("remoting.bind_address", c.Remoting.BindAddress)).
			AddValidator(validation.NewPositiveDurationValidator("remoting.interval", c.Remoting.Interval)).
			AddAssertion(err == nil, fmt.Sprintf("the [remoting.compression] is invalid, got %q", c.Remoting.Compression))
	}

	return chain.Validate()
}

// Logger builds the logger described by the logging settings.
// Without a file it writes to stdout, otherwise to a size-rotated file.
func (c *Config) Logger() log.Logger {
	var writer io.Writer = os.Stdout
	if c.Logging.File != "" {
		opts := []log.RotationOption{
			log.WithMaxSize(c.Logging.MaxSizeMB),
			log.WithMaxBackups(c.Logging.MaxBackups),
			log.WithMaxAge(c.Logging.MaxAgeDays),
		}
		if c.Logging.Compress {
			opts = append(opts, log.WithCompression())
		}
		writer = log.NewRotatingWriter(c.Logging.File, opts...)
	}
	return log.NewZap(log.ParseLevel(c.Logging.Level), writer)
}

// Codec builds the frame codec of the inter-machine transport
func (c *Config) Codec() (*codec.Codec, error) {
	compression, err := codec.ParseCompression(c.Remoting.Compression)
	if err != nil {
		return nil, err
	}
	return codec.New(compression)
}

// RouteStore opens the store backing the route tables
func (c *Config) RouteStore() (routing.Store, error) {
	if c.Routes.StorePath == "" {
		return routing.NewMemoryStore(), nil
	}
	var opts []routing.BoltOption
	if c.Routes.ReadOnly {
		opts = append(opts, routing.WithReadOnly())
	}
	return routing.NewBoltStore(c.Routes.StorePath, opts...)
}
