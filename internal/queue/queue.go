// Package queue provides the FIFO buffers used to hand work across a tick
// boundary: entities created mid-tick and commands received between ticks.
package queue

import (
	"sync"
)

// Queue is a generic thread-safe FIFO.
type Queue[T any] struct {
	mu    sync.Mutex
	items []T
}

// New creates a new empty queue.
func New[T any]() *Queue[T] {
	return &Queue[T]{
		items: make([]T, 0),
	}
}

// Push appends items to the queue.
func (q *Queue[T]) Push(items ...T) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.items = append(q.items, items...)
}

// Len returns the number of items in the queue.
func (q *Queue[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Drain returns all items in insertion order and leaves the queue empty.
// Items pushed after Drain returns wait for the next call.
func (q *Queue[T]) Drain() []T {
	q.mu.Lock()
	defer q.mu.Unlock()
	result := q.items
	q.items = make([]T, 0, cap(q.items))
	return result
}

// DrainFunc drains the queue and calls fn for each item outside the lock,
// so fn may push onto the same queue. It returns the number of items handled.
func (q *Queue[T]) DrainFunc(fn func(T)) int {
	items := q.Drain()
	for _, item := range items {
		fn(item)
	}
	return len(items)
}
