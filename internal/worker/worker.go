// Package worker drives the simulation clock. Each tick runs the tick hooks,
// applies queued commands, steps the simulation and publishes the frame.
package worker

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/warroom/extension/internal/dispatcher"
	"github.com/warroom/extension/internal/session"
	"github.com/warroom/extension/internal/sim"
	"github.com/warroom/extension/pkg/core"
)

// DefaultTickRate is used when Dependencies.TickRate is not positive.
const DefaultTickRate = 60

// TickHook runs on the simulation goroutine before queued commands are
// applied. tick is the number of the step about to run.
type TickHook interface {
	OnTick(tick uint64)
}

// Sink receives every published frame. Publish must not block.
type Sink interface {
	Publish(f core.Frame)
}

// Dependencies holds all dependencies for the runner
type Dependencies struct {
	Sim        *sim.Simulation
	Dispatcher *dispatcher.Dispatcher
	Session    *session.Context
	Logger     *slog.Logger
	TickRate   int
}

// Runner owns the simulation goroutine.
type Runner struct {
	deps  Dependencies
	hooks []TickHook
	sinks []Sink

	lastStep atomic.Int64
	victory  bool
}

// NewRunner creates a runner. Hooks and sinks are added before Run.
func NewRunner(deps Dependencies) *Runner {
	if deps.TickRate <= 0 {
		deps.TickRate = DefaultTickRate
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	return &Runner{deps: deps}
}

// AddHook registers a tick hook. Hooks run in registration order.
func (r *Runner) AddHook(h TickHook) {
	r.hooks = append(r.hooks, h)
}

// AddSink registers a frame sink. Sinks receive frames in registration order.
func (r *Runner) AddSink(s Sink) {
	r.sinks = append(r.sinks, s)
}

// Interval returns the wall-clock duration of one tick.
func (r *Runner) Interval() time.Duration {
	return time.Second / time.Duration(r.deps.TickRate)
}

// LastStepDuration returns how long the previous tick took.
func (r *Runner) LastStepDuration() time.Duration {
	return time.Duration(r.lastStep.Load())
}

// Step runs one tick and returns the published frame.
func (r *Runner) Step() core.Frame {
	start := time.Now()
	next := r.deps.Sim.Tick() + 1

	for _, h := range r.hooks {
		h.OnTick(next)
	}
	if r.deps.Dispatcher != nil {
		r.deps.Dispatcher.Drain()
	}

	r.deps.Sim.Step()
	f := r.deps.Sim.Frame()

	if r.deps.Session != nil {
		r.deps.Session.Observe(f.Tick, f.AlertLevel)
	}
	for _, s := range r.sinks {
		s.Publish(f)
	}

	if f.Winner != "" && !r.victory {
		r.victory = true
		r.deps.Logger.Info("Victory declared", "winner", f.Winner, "tick", f.Tick)
	}

	r.lastStep.Store(int64(time.Since(start)))
	return f
}

// Run steps the simulation at the configured tick rate until ctx is done.
// Ticks missed while a step runs long are dropped, not replayed.
func (r *Runner) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.Interval())
	defer ticker.Stop()

	r.deps.Logger.Info("Simulation started", "tickRate", r.deps.TickRate)
	for {
		select {
		case <-ctx.Done():
			r.deps.Logger.Info("Simulation stopped", "tick", r.deps.Sim.Tick())
			return nil
		case <-ticker.C:
			r.Step()
		}
	}
}

// RunTicks runs up to n ticks without waiting between them and returns the
// last frame. With stopOnVictory it returns as soon as a winner is declared.
func (r *Runner) RunTicks(n int, stopOnVictory bool) core.Frame {
	f := r.deps.Sim.Frame()
	for range n {
		f = r.Step()
		if stopOnVictory && f.Winner != "" {
			break
		}
	}
	return f
}
