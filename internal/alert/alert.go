// Package alert schedules the alert countdown and the opening bombardment.
// Both are driven by simulation ticks, so a headless run replays the same
// schedule as a real-time one.
package alert

import (
	"time"

	"github.com/warroom/extension/pkg/core"
)

// TicksFor converts a wall-clock interval to a tick count at tickRate
// ticks per second. The result is at least 1.
func TicksFor(d time.Duration, tickRate int) uint64 {
	n := uint64(d.Seconds()*float64(tickRate) + 0.5)
	if n == 0 {
		return 1
	}
	return n
}

// Countdown lowers the alert level one step every interval, from a start
// level down to core.MaxAlert, then stops.
type Countdown struct {
	level core.AlertLevel
	every uint64
	wait  uint64
	done  bool
	emit  func(core.AlertLevel)
}

// NewCountdown creates a countdown that calls emit with the start level on
// the first tick and with each lower level every `every` ticks after that.
// Invalid start levels are clamped to the 1..5 range.
func NewCountdown(start core.AlertLevel, every uint64, emit func(core.AlertLevel)) *Countdown {
	if start > core.FadeOut {
		start = core.FadeOut
	}
	if start < core.MaxAlert {
		start = core.MaxAlert
	}
	if every == 0 {
		every = 1
	}
	return &Countdown{level: start, every: every, emit: emit}
}

// OnTick advances the countdown by one tick.
func (c *Countdown) OnTick(uint64) {
	if c.done {
		return
	}
	if c.wait > 0 {
		c.wait--
		if c.wait > 0 {
			return
		}
		c.level--
	}

	c.emit(c.level)
	if c.level <= core.MaxAlert {
		c.done = true
		return
	}
	c.wait = c.every
}

// Done reports whether the countdown has reached core.MaxAlert.
func (c *Countdown) Done() bool {
	return c.done
}

// Bombard fires a fixed number of shots, spaced a number of ticks apart,
// once armed. Arming again has no effect.
type Bombard struct {
	count int
	every uint64
	fire  func(shot int)

	armed bool
	fired int
	wait  uint64
}

// NewBombard creates an unarmed bombardment of count shots.
func NewBombard(count int, every uint64, fire func(shot int)) *Bombard {
	if every == 0 {
		every = 1
	}
	return &Bombard{count: count, every: every, fire: fire}
}

// Arm starts the bombardment on the next tick. It returns false if the
// bombardment had already been armed.
func (b *Bombard) Arm() bool {
	if b.armed {
		return false
	}
	b.armed = true
	return true
}

// Armed reports whether Arm has been called.
func (b *Bombard) Armed() bool {
	return b.armed
}

// Fired returns the number of shots fired so far.
func (b *Bombard) Fired() int {
	return b.fired
}

// OnTick fires the next shot when it is due.
func (b *Bombard) OnTick(uint64) {
	if !b.armed || b.fired >= b.count {
		return
	}
	if b.wait > 0 {
		b.wait--
		if b.wait > 0 {
			return
		}
	}
	b.fire(b.fired)
	b.fired++
	b.wait = b.every
}
