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

package chain

import (
	"context"

	"go.uber.org/multierr"
)

// Chain runs a sequence of fallible steps in insertion order
type Chain struct {
	returnFirst bool
	errs        []error
	ctx         context.Context
}

// Option configures a chain at creation time.
type Option func(*Chain)

// New creates a new error chain.
func New(opts ...Option) *Chain {
	chain := &Chain{
		errs: make([]error, 0),
		ctx:  context.Background(),
	}

	for _, opt := range opts {
		opt(chain)
	}

	return chain
}

// AddRunner runs fn unless the chain is fail-fast and already failed
func (c *Chain) AddRunner(fn func() error) *Chain {
	return c.AddContextRunner(func(context.Context) error { return fn() })
}

// AddRunners adds the runners in the given order
func (c *Chain) AddRunners(fns ...func() error) *Chain {
	for _, fn := range fns {
		c.AddRunner(fn)
	}
	return c
}

// AddContextRunner runs fn with the chain context unless the chain is fail-fast and already failed
func (c *Chain) AddContextRunner(fn func(ctx context.Context) error) *Chain {
	if c.returnFirst && len(c.errs) > 0 {
		return c
	}
	if err := fn(c.ctx); err != nil {
		c.errs = append(c.errs, err)
	}
	return c
}

// AddRunnerIf adds the runner only when condition holds
func (c *Chain) AddRunnerIf(condition bool, fn func() error) *Chain {
	if condition {
		c.AddRunner(fn)
	}
	return c
}

// Run returns the first error in fail-fast mode, otherwise every error combined
func (c *Chain) Run() error {
	if c.returnFirst {
		if len(c.errs) == 0 {
			return nil
		}
		return c.errs[0]
	}
	return multierr.Combine(c.errs...)
}

// WithFailFast stops the chain at the first error.
func WithFailFast() Option {
	return func(c *Chain) { c.returnFirst = true }
}

// WithRunAll runs every step and returns all errors.
func WithRunAll() Option {
	return func(c *Chain) { c.returnFirst = false }
}

// WithContext sets the chain context to use
func WithContext(ctx context.Context) Option {
	return func(c *Chain) { c.ctx = ctx }
}
