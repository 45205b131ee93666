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

package queue

import "sync"

// minQueueLen is the smallest capacity that queue may have.
// Must be power of 2 for bitwise modulus: x % n == x & (n - 1).
const minQueueLen = 16

// Queue is an unbounded, goroutine-safe FIFO backed by a ring buffer
// reference: https://github.com/eapache/queue
type Queue[T any] struct {
	mu     sync.RWMutex
	nodes  []*T
	head   int
	tail   int
	count  int
	closed bool
}

// New creates an instance of Queue
func New[T any]() *Queue[T] {
	return &Queue[T]{
		nodes: make([]*T, minQueueLen),
	}
}

// Push adds an item to the back of the queue.
// It returns false when the queue is closed, in which case the item is dropped.
func (q *Queue[T]) Push(item T) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return false
	}
	if q.count == len(q.nodes) {
		q.resize(q.count << 1)
	}
	q.nodes[q.tail] = &item
	q.tail = (q.tail + 1) & (len(q.nodes) - 1)
	q.count++
	return true
}

// Pop removes the item at the front of the queue.
// It returns false when the queue is empty or closed.
func (q *Queue[T]) Pop() (T, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.count == 0 {
		var zero T
		return zero, false
	}
	item := q.nodes[q.head]
	q.nodes[q.head] = nil
	q.head = (q.head + 1) & (len(q.nodes) - 1)
	q.count--
	q.shrink()
	return *item, true
}

// PopFunc removes the oldest item matching the predicate and keeps the
// relative order of the remaining items.
func (q *Queue[T]) PopFunc(match func(T) bool) (T, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	mask := len(q.nodes) - 1
	for i := 0; i < q.count; i++ {
		index := (q.head + i) & mask
		item := q.nodes[index]
		if !match(*item) {
			continue
		}

		// close the gap by shifting the older items one slot forward
		for j := i; j > 0; j-- {
			q.nodes[(q.head+j)&mask] = q.nodes[(q.head+j-1)&mask]
		}
		q.nodes[q.head] = nil
		q.head = (q.head + 1) & mask
		q.count--
		q.shrink()
		return *item, true
	}
	var zero T
	return zero, false
}

// Close the queue and discard all entries in the queue
func (q *Queue[T]) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.closed = true
	q.count = 0
	q.nodes = nil
}

// CloseRemaining closes the queue and returns the entries that were still queued.
func (q *Queue[T]) CloseRemaining() []T {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return []T{}
	}
	remaining := make([]T, 0, q.count)
	for q.count > 0 {
		item := q.nodes[q.head]
		q.head = (q.head + 1) & (len(q.nodes) - 1)
		q.count--
		remaining = append(remaining, *item)
	}
	q.closed = true
	q.nodes = nil
	return remaining
}

// IsClosed returns true if the queue has been closed
func (q *Queue[T]) IsClosed() bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.closed
}

// Len return the current length of the queue.
func (q *Queue[T]) Len() int {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.count
}

// IsEmpty returns true when the queue is empty
func (q *Queue[T]) IsEmpty() bool {
	return q.Len() == 0
}

// shrink halves the buffer when it is a quarter full
func (q *Queue[T]) shrink() {
	if len(q.nodes) > minQueueLen && (q.count<<2) == len(q.nodes) {
		q.resize(q.count << 1)
	}
}

func (q *Queue[T]) resize(size int) {
	if size < minQueueLen {
		size = minQueueLen
	}
	nodes := make([]*T, size)
	if q.count > 0 {
		if q.tail > q.head {
			copy(nodes, q.nodes[q.head:q.tail])
		} else {
			n := copy(nodes, q.nodes[q.head:])
			copy(nodes[n:], q.nodes[:q.tail])
		}
	}
	q.tail = q.count & (size - 1)
	q.head = 0
	q.nodes = nodes
}
