package channel

import "sync"

// Latest is a single-slot channel where a new value replaces one the
// receiver has not taken yet. Slow receivers see the newest value and
// skip the rest.
type Latest[T any] struct {
	mu     sync.Mutex
	ch     chan T
	closed bool
}

// NewLatest creates an empty single-slot channel.
func NewLatest[T any]() *Latest[T] {
	return &Latest[T]{ch: make(chan T, 1)}
}

// Send stores v, discarding any value still waiting. It returns false once
// the channel is closed.
func (l *Latest[T]) Send(v T) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return false
	}
	select {
	case <-l.ch:
	default:
	}
	l.ch <- v
	return true
}

// Receive returns the receive-only channel
func (l *Latest[T]) Receive() <-chan T {
	return l.ch
}

// Len is 1 while a value is waiting, else 0.
func (l *Latest[T]) Len() int {
	return len(l.ch)
}

// Close closes the channel. A waiting value can still be received.
func (l *Latest[T]) Close() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.closed {
		l.closed = true
		close(l.ch)
	}
}

var (
	_ Channel[int] = (*Buffered[int])(nil)
	_ Channel[int] = (*Latest[int])(nil)
)
