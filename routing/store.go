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
	"slices"
	"sync"

	"go.uber.org/atomic"

	"github.com/tochemey/taskbus/errors"
)

// Store holds the route tables. Implementations hand out deep copies
// in insertion order so that callers never iterate shared state.
type Store interface {
	// Append adds the descriptor at the end of its scope table
	Append(ctx context.Context, descriptor Descriptor) error
	// Load returns a snapshot of both tables
	Load(ctx context.Context) (local []Descriptor, remote []Descriptor, err error)
	// Close releases the store
	Close() error
}

// MemoryStore keeps the route tables in memory
type MemoryStore struct {
	mu     sync.RWMutex
	local  []Descriptor
	remote []Descriptor
	closed *atomic.Bool
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates an empty MemoryStore
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{closed: atomic.NewBool(false)}
}

// Append adds the descriptor at the end of its scope table
func (s *MemoryStore) Append(ctx context.Context, descriptor Descriptor) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.closed.Load() {
		return errors.ErrStoreClosed
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if descriptor.Scope == Remote {
		s.remote = append(s.remote, descriptor.Clone())
		return nil
	}
	s.local = append(s.local, descriptor.Clone())
	return nil
}

// Load returns deep copies of both tables
func (s *MemoryStore) Load(ctx context.Context) ([]Descriptor, []Descriptor, error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}
	if s.closed.Load() {
		return nil, nil, errors.ErrStoreClosed
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneAll(s.local), cloneAll(s.remote), nil
}

// Close marks the store closed
func (s *MemoryStore) Close() error {
	s.closed.Store(true)
	return nil
}

func cloneAll(descriptors []Descriptor) []Descriptor {
	out := slices.Clone(descriptors)
	for i := range out {
		out[i] = out[i].Clone()
	}
	return out
}
