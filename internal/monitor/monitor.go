// Package monitor summarises the running session for the :STATUS: command
// and keeps a status file up to date while the war room runs.
package monitor

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/warroom/extension/internal/cache"
	"github.com/warroom/extension/internal/session"
	"github.com/warroom/extension/pkg/core"
)

// Dependencies holds all dependencies for the monitor service
type Dependencies struct {
	Frames  *cache.FrameCache
	Session *session.Context
	Logger  *slog.Logger

	// Pending reports commands waiting for the next tick. Optional.
	Pending func() int

	// StepTime reports how long the last simulation step took. Optional.
	StepTime func() time.Duration

	// StatusFile is rewritten every Interval while running. Empty disables it.
	StatusFile string
	Interval   time.Duration
}

// Status is the JSON document returned by :STATUS:.
type Status struct {
	Time            time.Time              `json:"time"`
	Session         string                 `json:"session"`
	Started         time.Time              `json:"started"`
	Running         string                 `json:"running"`
	Origin          session.Origin         `json:"origin"`
	Tick            uint64                 `json:"tick"`
	AlertLevel      core.AlertLevel        `json:"alertLevel"`
	AlertLabel      string                 `json:"alertLabel"`
	Units           map[core.FactionID]int `json:"units"`
	Missiles        int                    `json:"missiles"`
	Effects         int                    `json:"effects"`
	Winner          core.FactionID         `json:"winner,omitempty"`
	Frames          int                    `json:"frames"`
	PendingCommands int                    `json:"pendingCommands"`
	LastStepMicros  int64                  `json:"lastStepMicros"`
}

// Service manages status monitoring
type Service struct {
	deps      Dependencies
	isRunning bool
	mu        sync.RWMutex
	stopChan  chan struct{}
	done      chan struct{}
}

// NewService creates a new monitor service
func NewService(deps Dependencies) *Service {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Interval <= 0 {
		deps.Interval = time.Second
	}
	return &Service{
		deps:     deps,
		stopChan: make(chan struct{}),
	}
}

// IsRunning returns whether the status monitor is running
func (s *Service) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// Status builds a status from the latest published frame.
func (s *Service) Status() Status {
	st := Status{
		Time:  time.Now().UTC(),
		Units: map[core.FactionID]int{},
	}

	if s.deps.Session != nil {
		st.Session = s.deps.Session.ID()
		st.Started = s.deps.Session.Started()
		st.Running = humanize.Time(st.Started)
		st.Origin = s.deps.Session.Origin()
		st.Tick, st.AlertLevel = s.deps.Session.Progress()
	}

	if s.deps.Frames != nil {
		if f, ok := s.deps.Frames.Latest(); ok {
			st.Tick = f.Tick
			st.AlertLevel = f.AlertLevel
			st.Units = f.LiveUnitsByFaction()
			st.Missiles = len(f.Missiles)
			st.Effects = len(f.Effects)
			st.Winner = f.Winner
		}
		st.Frames = s.deps.Frames.Published()
	}

	if s.deps.Pending != nil {
		st.PendingCommands = s.deps.Pending()
	}
	if s.deps.StepTime != nil {
		st.LastStepMicros = s.deps.StepTime().Microseconds()
	}
	st.AlertLabel = st.AlertLevel.Label()

	return st
}

// StatusJSON returns Status marshalled with indentation.
func (s *Service) StatusJSON() (string, error) {
	b, err := json.MarshalIndent(s.Status(), "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal status: %w", err)
	}
	return string(b), nil
}

// Start starts the status monitor goroutine
func (s *Service) Start() error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return nil
	}
	if s.deps.StatusFile == "" {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = true
	s.stopChan = make(chan struct{})
	s.done = make(chan struct{})
	stop, done := s.stopChan, s.done
	s.mu.Unlock()

	go func() {
		defer close(done)
		defer func() {
			s.mu.Lock()
			s.isRunning = false
			s.mu.Unlock()
		}()

		logger := s.deps.Logger
		logger.Debug("Starting status monitor goroutine", "file", s.deps.StatusFile)

		ticker := time.NewTicker(s.deps.Interval)
		defer ticker.Stop()

		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				if err := s.writeStatusFile(); err != nil {
					logger.Error("Error writing status file", "error", err)
				}
			}
		}
	}()

	return nil
}

func (s *Service) writeStatusFile() error {
	status, err := s.StatusJSON()
	if err != nil {
		return err
	}
	return os.WriteFile(s.deps.StatusFile, []byte(status+"\n"), 0o644)
}

// Stop stops the status monitor and waits for a final write to finish.
func (s *Service) Stop() {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return
	}
	close(s.stopChan)
	done := s.done
	s.mu.Unlock()
	<-done
}
