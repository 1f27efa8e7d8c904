// Package cache keeps the latest published frame and simple counters so
// readers off the simulation goroutine (status, stream, terminal) never
// touch the simulation itself.
package cache

import (
	"sync"

	"github.com/warroom/extension/pkg/core"
)

// FrameCache holds the most recent frame published by the runner.
// Latency in these calls matters: the runner stores a frame every tick.
type FrameCache struct {
	m      sync.RWMutex
	frame  core.Frame
	stored bool
	count  SafeCounter
}

func NewFrameCache() *FrameCache {
	return &FrameCache{}
}

// Publish implements the runner's frame sink.
func (c *FrameCache) Publish(f core.Frame) {
	c.m.Lock()
	c.frame = f
	c.stored = true
	c.m.Unlock()
	c.count.Inc()
}

// Latest returns the last stored frame. The frame's slices are shared with
// every other reader and must not be modified.
func (c *FrameCache) Latest() (core.Frame, bool) {
	c.m.RLock()
	defer c.m.RUnlock()
	return c.frame, c.stored
}

// Published returns the number of frames stored since creation.
func (c *FrameCache) Published() int {
	return c.count.Value()
}

// SafeCounter is a thread-safe counter
type SafeCounter struct {
	mu sync.Mutex
	v  int
}

func (c *SafeCounter) Value() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.v
}

func (c *SafeCounter) Inc() {
	c.Add(1)
}

func (c *SafeCounter) Add(n int) {
	c.mu.Lock()
	c.v += n
	c.mu.Unlock()
}
