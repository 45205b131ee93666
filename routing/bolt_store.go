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
	"encoding/binary"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/flowchartsman/retry"
	"github.com/fxamacker/cbor/v2"
	bbolt "go.etcd.io/bbolt"
	"go.uber.org/atomic"

	gerrors "github.com/tochemey/taskbus/errors"
)

const (
	boltFileMode os.FileMode = 0o600

	// DefaultOpenTimeout bounds each wait for the file lock
	DefaultOpenTimeout = 500 * time.Millisecond

	openAttempts = 5
)

var (
	localBucket  = []byte("local")
	remoteBucket = []byte("remote")
)

// BoltStore persists the route tables in a bbolt file shared by the processes of a machine.
//
// bbolt locks the whole file while it is open, so the store opens it for the
// length of a single Append or Load and closes it right after. Writers take
// the exclusive lock, readers the shared one. A busy file is retried with a
// backoff before giving up.
type BoltStore struct {
	path     string
	readOnly bool
	timeout  time.Duration

	// bbolt locks are per open file, so two opens of this process would wait on each other
	mu     sync.Mutex
	closed *atomic.Bool
}

var _ Store = (*BoltStore)(nil)

// BoltOption configures the BoltStore
type BoltOption func(*BoltStore)

// WithReadOnly opens the file with a shared lock. Append then fails.
func WithReadOnly() BoltOption {
	return func(store *BoltStore) {
		store.readOnly = true
	}
}

// WithOpenTimeout sets how long each attempt waits for the file lock
func WithOpenTimeout(timeout time.Duration) BoltOption {
	return func(store *BoltStore) {
		if timeout > 0 {
			store.timeout = timeout
		}
	}
}

// NewBoltStore creates the store of the route tables at path.
// A writable store creates the file and its buckets. A read-only store
// accepts a file that does not exist yet and reads empty tables until it does.
func NewBoltStore(path string, opts ...BoltOption) (*BoltStore, error) {
	store := &BoltStore{
		path:    path,
		timeout: DefaultOpenTimeout,
		closed:  atomic.NewBool(false),
	}

	for _, opt := range opts {
		opt(store)
	}

	if store.readOnly {
		return store, nil
	}

	err := store.withDB(context.Background(), false, func(db *bbolt.DB) error {
		return db.Update(func(tx *bbolt.Tx) error {
			if _, err := tx.CreateBucketIfNotExists(localBucket); err != nil {
				return err
			}
			_, err := tx.CreateBucketIfNotExists(remoteBucket)
			return err
		})
	})
	if err != nil {
		return nil, fmt.Errorf("routing: initializing boltdb buckets: %w", err)
	}
	return store, nil
}

// Path returns the location of the bbolt file
func (s *BoltStore) Path() string {
	return s.path
}

// Append adds the descriptor at the end of its scope table.
// Keys come from the bucket sequence so iteration follows insertion order.
func (s *BoltStore) Append(ctx context.Context, descriptor Descriptor) error {
	if err := s.ensureOpen(ctx); err != nil {
		return err
	}

	if s.readOnly {
		return fmt.Errorf("routing: %s is opened read-only", s.path)
	}

	value, err := cbor.Marshal(descriptor)
	if err != nil {
		return err
	}

	return s.withDB(ctx, false, func(db *bbolt.DB) error {
		return db.Update(func(tx *bbolt.Tx) error {
			bucket, err := tx.CreateBucketIfNotExists(bucketFor(descriptor.Scope))
			if err != nil {
				return err
			}
			sequence, err := bucket.NextSequence()
			if err != nil {
				return err
			}
			key := make([]byte, 8)
			binary.BigEndian.PutUint64(key, sequence)
			return bucket.Put(key, value)
		})
	})
}

// Load decodes both tables in insertion order
func (s *BoltStore) Load(ctx context.Context) ([]Descriptor, []Descriptor, error) {
	if err := s.ensureOpen(ctx); err != nil {
		return nil, nil, err
	}

	if _, err := os.Stat(s.path); os.IsNotExist(err) {
		return nil, nil, nil
	}

	var local, remote []Descriptor
	err := s.withDB(ctx, true, func(db *bbolt.DB) error {
		return db.View(func(tx *bbolt.Tx) error {
			var err error
			if local, err = readBucket(tx, localBucket); err != nil {
				return err
			}
			remote, err = readBucket(tx, remoteBucket)
			return err
		})
	})
	if err != nil {
		return nil, nil, err
	}
	return local, remote, nil
}

// Close marks the store closed. The file itself is kept.
func (s *BoltStore) Close() error {
	s.closed.Store(true)
	return nil
}

// withDB opens the file, runs fn and closes the file again.
// Only a busy lock is retried.
func (s *BoltStore) withDB(ctx context.Context, readOnly bool, fn func(db *bbolt.DB) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	options := &bbolt.Options{
		Timeout:    s.timeout,
		NoGrowSync: true,
		ReadOnly:   readOnly,
	}

	var db *bbolt.DB
	retrier := retry.NewRetrier(openAttempts, 20*time.Millisecond, s.timeout)
	if err := retrier.RunContext(ctx, func(context.Context) error {
		var err error
		db, err = bbolt.Open(s.path, boltFileMode, options)
		if err != nil && !errors.Is(err, bbolt.ErrTimeout) {
			return retry.Stop(err)
		}
		return err
	}); err != nil {
		return fmt.Errorf("routing: opening boltdb: %w", err)
	}

	if err := fn(db); err != nil {
		_ = db.Close()
		return err
	}
	return db.Close()
}

func (s *BoltStore) ensureOpen(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.closed.Load() {
		return gerrors.ErrStoreClosed
	}
	return nil
}

func readBucket(tx *bbolt.Tx, name []byte) ([]Descriptor, error) {
	bucket := tx.Bucket(name)
	if bucket == nil {
		return nil, nil
	}

	var descriptors []Descriptor
	err := bucket.ForEach(func(_, value []byte) error {
		var descriptor Descriptor
		if err := cbor.Unmarshal(value, &descriptor); err != nil {
			return fmt.Errorf("routing: decoding descriptor: %w", err)
		}
		descriptors = append(descriptors, descriptor)
		return nil
	})
	return descriptors, err
}

func bucketFor(scope Scope) []byte {
	if scope == Remote {
		return remoteBucket
	}
	return localBucket
}
