// Package handlers implements the war room commands. Commands that touch
// the simulation are registered as deferred and run between ticks.
package handlers

import (
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/warroom/extension/internal/alert"
	"github.com/warroom/extension/internal/dispatcher"
	"github.com/warroom/extension/internal/geo"
	"github.com/warroom/extension/internal/monitor"
	"github.com/warroom/extension/internal/session"
	"github.com/warroom/extension/internal/sim"
	"github.com/warroom/extension/internal/util"
	"github.com/warroom/extension/pkg/core"
)

// Command names.
const (
	CmdAlertSet    = ":ALERT:SET:"
	CmdBombard     = ":BOMBARD:"
	CmdOriginSet   = ":ORIGIN:SET:"
	CmdViewportSet = ":VIEWPORT:SET:"
	CmdStatus      = ":STATUS:"
)

var (
	// ErrBadArguments is returned when a command's arguments cannot be parsed.
	ErrBadArguments = errors.New("bad arguments")
	// ErrNoTargets is returned by :BOMBARD: without a target when the world
	// has no target points.
	ErrNoTargets = errors.New("no targets available")
)

// Dependencies holds all dependencies needed by handlers
type Dependencies struct {
	Sim     *sim.Simulation
	Session *session.Context
	Monitor *monitor.Service
	Bombard *alert.Bombard
	Logger  *slog.Logger
}

// Service provides handler methods for the war room commands
type Service struct {
	deps Dependencies
}

// NewService creates a new handler service
func NewService(deps Dependencies) *Service {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	return &Service{deps: deps}
}

// RegisterHandlers registers all commands with the dispatcher.
func (s *Service) RegisterHandlers(d *dispatcher.Dispatcher) {
	// Simulation mutations - deferred to the tick boundary
	d.Register(CmdAlertSet, s.handleAlertSet, dispatcher.Deferred(), dispatcher.Logged())
	d.Register(CmdBombard, s.handleBombard, dispatcher.Deferred(), dispatcher.Logged())
	d.Register(CmdViewportSet, s.handleViewportSet, dispatcher.Deferred(), dispatcher.Logged())

	// Session state is safe to change from any goroutine
	d.Register(CmdOriginSet, s.handleOriginSet, dispatcher.Logged())
	d.Register(CmdStatus, s.handleStatus)
}

// :ALERT:SET: <level>
func (s *Service) handleAlertSet(e dispatcher.Event) (any, error) {
	if len(e.Args) < 1 {
		return nil, fmt.Errorf("%w: %s expects a level", ErrBadArguments, e.Command)
	}
	n, err := strconv.Atoi(strings.TrimSpace(e.Args[0]))
	level := core.AlertLevel(n)
	if err != nil || !level.Valid() {
		return nil, fmt.Errorf("%w: alert level %q outside 1..5", ErrBadArguments, e.Args[0])
	}

	changed := s.deps.Sim.SetAlertLevel(level)
	if changed {
		s.deps.Session.Observe(s.deps.Sim.Tick(), level)
	}

	if level == core.MaxAlert && s.deps.Bombard != nil && s.deps.Bombard.Arm() {
		s.deps.Logger.Info("Bombardment armed", "origin", s.deps.Session.Origin().Label)
	}

	return level.Label(), nil
}

// :BOMBARD: [lon lat]
// Without a target a random global target point is used.
func (s *Service) handleBombard(e dispatcher.Event) (any, error) {
	var target core.LonLat
	switch len(e.Args) {
	case 0:
		t, ok := s.deps.Sim.RandomTarget()
		if !ok {
			return nil, ErrNoTargets
		}
		target = t
	default:
		t, err := parseLonLat(e.Args)
		if err != nil {
			return nil, err
		}
		target = t
	}

	origin := s.deps.Session.Origin()
	rogue := s.deps.Sim.Factions().Aggressor()
	s.deps.Sim.Launch(rogue, origin.LonLat, target)

	return target, nil
}

// :ORIGIN:SET: <lon> <lat> | <lon,lat>
func (s *Service) handleOriginSet(e dispatcher.Event) (any, error) {
	ll, err := parseLonLat(e.Args)
	if err != nil {
		return nil, err
	}
	s.deps.Session.SetOrigin(session.Origin{LonLat: ll, Label: session.OriginManual})
	return ll, nil
}

// :VIEWPORT:SET: <width> <height>
func (s *Service) handleViewportSet(e dispatcher.Event) (any, error) {
	if len(e.Args) < 2 {
		return nil, fmt.Errorf("%w: %s expects width and height", ErrBadArguments, e.Command)
	}
	dims, err := util.ParseFloats(e.Args[:2])
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadArguments, err)
	}
	if dims[0] <= 0 || dims[1] <= 0 {
		return nil, fmt.Errorf("%w: viewport must be positive", ErrBadArguments)
	}
	s.deps.Sim.SetViewport(dims[0], dims[1])
	return nil, nil
}

// :STATUS:
func (s *Service) handleStatus(dispatcher.Event) (any, error) {
	if s.deps.Monitor == nil {
		return nil, errors.New("status monitor not configured")
	}
	return s.deps.Monitor.StatusJSON()
}

// parseLonLat accepts "lon lat" as two arguments or "lon,lat" as one.
func parseLonLat(args []string) (core.LonLat, error) {
	var joined string
	switch len(args) {
	case 0:
		return core.LonLat{}, fmt.Errorf("%w: expected lon and lat", ErrBadArguments)
	case 1:
		joined = args[0]
	default:
		joined = args[0] + "," + args[1]
	}
	ll, err := geo.LonLatFromString(joined)
	if err != nil {
		return core.LonLat{}, fmt.Errorf("%w: %w", ErrBadArguments, err)
	}
	return ll, nil
}
