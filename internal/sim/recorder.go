package sim

import (
	"log/slog"

	"github.com/warroom/extension/pkg/core"
)

// Recorder receives the side effects of the simulation as they happen.
// Calls are made from the tick goroutine and must not block.
type Recorder interface {
	RecordLaunch(e core.LaunchEvent)
	RecordImpact(e core.ImpactEvent)
	RecordMobilization(e core.MobilizationEvent)
	RecordDestroyed(e core.DestroyedEvent)
	RecordAlert(e core.AlertEvent)
	RecordVictory(e core.VictoryEvent)
}

// NopRecorder discards every event.
type NopRecorder struct{}

func (NopRecorder) RecordLaunch(core.LaunchEvent)             {}
func (NopRecorder) RecordImpact(core.ImpactEvent)             {}
func (NopRecorder) RecordMobilization(core.MobilizationEvent) {}
func (NopRecorder) RecordDestroyed(core.DestroyedEvent)       {}
func (NopRecorder) RecordAlert(core.AlertEvent)               {}
func (NopRecorder) RecordVictory(core.VictoryEvent)           {}

// MultiRecorder fans events out to every recorder in order.
type MultiRecorder []Recorder

func (m MultiRecorder) RecordLaunch(e core.LaunchEvent) {
	for _, r := range m {
		r.RecordLaunch(e)
	}
}

func (m MultiRecorder) RecordImpact(e core.ImpactEvent) {
	for _, r := range m {
		r.RecordImpact(e)
	}
}

func (m MultiRecorder) RecordMobilization(e core.MobilizationEvent) {
	for _, r := range m {
		r.RecordMobilization(e)
	}
}

func (m MultiRecorder) RecordDestroyed(e core.DestroyedEvent) {
	for _, r := range m {
		r.RecordDestroyed(e)
	}
}

func (m MultiRecorder) RecordAlert(e core.AlertEvent) {
	for _, r := range m {
		r.RecordAlert(e)
	}
}

func (m MultiRecorder) RecordVictory(e core.VictoryEvent) {
	for _, r := range m {
		r.RecordVictory(e)
	}
}

// LogRecorder writes events to a structured logger. Destructions are logged
// at debug level since they are frequent.
type LogRecorder struct {
	Logger *slog.Logger
}

func (r LogRecorder) RecordLaunch(e core.LaunchEvent) {
	r.Logger.Debug("Missile launched",
		"tick", e.Tick,
		"faction", e.Faction,
		"launcher", e.Launcher,
		"from", e.From,
		"to", e.To)
}

func (r LogRecorder) RecordImpact(e core.ImpactEvent) {
	r.Logger.Info("Impact",
		"tick", e.Tick,
		"aggressor", e.Aggressor,
		"owner", e.Owner,
		"lon", e.Location.Lon,
		"lat", e.Location.Lat,
		"casualties", e.Casualties,
		"escalated", e.Escalated)
}

func (r LogRecorder) RecordMobilization(e core.MobilizationEvent) {
	r.Logger.Info("Faction mobilized",
		"tick", e.Tick,
		"faction", e.Faction,
		"spawned", e.Spawned,
		"requested", e.Requested)
}

func (r LogRecorder) RecordDestroyed(e core.DestroyedEvent) {
	r.Logger.Debug("Unit destroyed",
		"tick", e.Tick,
		"unit", e.UnitID,
		"archetype", e.Archetype,
		"faction", e.Faction)
}

func (r LogRecorder) RecordAlert(e core.AlertEvent) {
	r.Logger.Info("Alert level changed",
		"tick", e.Tick,
		"from", e.Previous,
		"to", e.Level,
		"label", e.Level.Label())
}

func (r LogRecorder) RecordVictory(e core.VictoryEvent) {
	r.Logger.Info("Uncontested dominance secured",
		"tick", e.Tick,
		"winner", e.Winner,
		"alerted", e.Alerted)
}
