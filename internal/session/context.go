// Package session holds the identity of one war room run: its id, start
// time, player origin and the latest tick and alert level it has seen.
package session

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/warroom/extension/pkg/core"
)

// Origin labels describe how the player origin was resolved.
const (
	OriginLocated = "LOCATED"
	OriginProxy   = "PROXY"
	OriginDefault = "DEFAULT"
	OriginManual  = "MANUAL"
)

// Origin is the player's launch position.
type Origin struct {
	core.LonLat
	Label string `json:"label"`
	City  string `json:"city,omitempty"`
}

// Context holds the current session state
type Context struct {
	mu      sync.RWMutex
	id      uuid.UUID
	started time.Time
	origin  Origin
	tick    uint64
	level   core.AlertLevel
}

// NewContext creates a session with a fresh random id, starting now.
func NewContext(origin Origin) *Context {
	return &Context{
		id:      uuid.New(),
		started: time.Now().UTC(),
		origin:  origin,
		level:   core.FadeOut,
	}
}

// ID returns the session id.
func (c *Context) ID() string {
	return c.id.String()
}

// Started returns the session start time.
func (c *Context) Started() time.Time {
	return c.started
}

// Origin returns the current player origin
func (c *Context) Origin() Origin {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.origin
}

// SetOrigin replaces the player origin
func (c *Context) SetOrigin(o Origin) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.origin = o
}

// Observe stores the latest tick and alert level.
func (c *Context) Observe(tick uint64, level core.AlertLevel) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tick = tick
	c.level = level
}

// Progress returns the last observed tick and alert level.
func (c *Context) Progress() (uint64, core.AlertLevel) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.tick, c.level
}

// LogAttrs returns the attributes added to every log record. Its signature
// matches logging.ContextProvider.
func (c *Context) LogAttrs(context.Context) []slog.Attr {
	tick, level := c.Progress()
	return []slog.Attr{
		slog.String("session", c.ID()),
		slog.Uint64("tick", tick),
		slog.Int("alert", int(level)),
	}
}
