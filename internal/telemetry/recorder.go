package telemetry

import (
	"context"
	"fmt"
	"time"

	influxdb2_write "github.com/influxdata/influxdb-client-go/v2/api/write"
	"github.com/rs/zerolog"
	"github.com/warroom/extension/internal/sim"
	"github.com/warroom/extension/pkg/core"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// PointWriter receives InfluxDB points. *Manager satisfies it.
type PointWriter interface {
	WritePoint(bucket string, point *influxdb2_write.Point) error
}

// Recorder counts simulation events on OTel counters and writes one point
// per event. It implements sim.Recorder and runs on the simulation goroutine.
type Recorder struct {
	writer PointWriter
	logger zerolog.Logger
	now    func() time.Time

	launches      metric.Int64Counter
	impacts       metric.Int64Counter
	casualties    metric.Int64Counter
	mobilizations metric.Int64Counter
	destroyed     metric.Int64Counter
}

var _ sim.Recorder = (*Recorder)(nil)

// NewRecorder registers the counters on m. writer may be nil, in which case
// only the counters are updated.
func NewRecorder(m metric.Meter, writer PointWriter, logger zerolog.Logger) (*Recorder, error) {
	r := &Recorder{
		writer: writer,
		logger: logger.With().Str("component", "telemetry").Logger(),
		now:    time.Now,
	}

	var err error
	if r.launches, err = m.Int64Counter("warroom.missiles.launched",
		metric.WithDescription("Missiles launched")); err != nil {
		return nil, fmt.Errorf("creating launch counter: %w", err)
	}
	if r.impacts, err = m.Int64Counter("warroom.impacts",
		metric.WithDescription("Missile and bomb impacts")); err != nil {
		return nil, fmt.Errorf("creating impact counter: %w", err)
	}
	if r.casualties, err = m.Int64Counter("warroom.impacts.casualties",
		metric.WithDescription("Units killed by impact splash")); err != nil {
		return nil, fmt.Errorf("creating casualty counter: %w", err)
	}
	if r.mobilizations, err = m.Int64Counter("warroom.factions.mobilized",
		metric.WithDescription("Faction mobilizations")); err != nil {
		return nil, fmt.Errorf("creating mobilization counter: %w", err)
	}
	if r.destroyed, err = m.Int64Counter("warroom.units.destroyed",
		metric.WithDescription("Units destroyed")); err != nil {
		return nil, fmt.Errorf("creating destroyed counter: %w", err)
	}
	return r, nil
}

func factionAttr(id core.FactionID) metric.MeasurementOption {
	return metric.WithAttributes(attribute.String("faction", string(id)))
}

func (r *Recorder) write(measurement string, tags map[string]string, fields map[string]any) {
	if r.writer == nil {
		return
	}
	point := influxdb2_write.NewPoint(measurement, tags, fields, r.now())
	if err := r.writer.WritePoint(BucketEvents, point); err != nil {
		r.logger.Error().Err(err).Str("measurement", measurement).Msg("Failed to write point")
	}
}

func (r *Recorder) RecordLaunch(e core.LaunchEvent) {
	r.launches.Add(context.Background(), 1, factionAttr(e.Faction))
	r.write("launch",
		map[string]string{"faction": string(e.Faction)},
		map[string]any{
			"tick":     int64(e.Tick),
			"from_lon": e.From.Lon,
			"from_lat": e.From.Lat,
			"to_lon":   e.To.Lon,
			"to_lat":   e.To.Lat,
		})
}

func (r *Recorder) RecordImpact(e core.ImpactEvent) {
	r.impacts.Add(context.Background(), 1, factionAttr(e.Aggressor))
	if e.Casualties > 0 {
		r.casualties.Add(context.Background(), int64(e.Casualties), factionAttr(e.Aggressor))
	}
	owner := string(e.Owner)
	if owner == "" {
		owner = "none"
	}
	r.write("impact",
		map[string]string{"aggressor": string(e.Aggressor), "owner": owner},
		map[string]any{
			"tick":       int64(e.Tick),
			"lon":        e.Location.Lon,
			"lat":        e.Location.Lat,
			"casualties": e.Casualties,
			"escalated":  e.Escalated,
		})
}

func (r *Recorder) RecordMobilization(e core.MobilizationEvent) {
	r.mobilizations.Add(context.Background(), 1, factionAttr(e.Faction))
	fields := map[string]any{"tick": int64(e.Tick)}
	for kind, n := range e.Spawned {
		fields[string(kind)] = n
	}
	r.write("mobilization", map[string]string{"faction": string(e.Faction)}, fields)
}

func (r *Recorder) RecordDestroyed(e core.DestroyedEvent) {
	r.destroyed.Add(context.Background(), 1, metric.WithAttributes(
		attribute.String("faction", string(e.Faction)),
		attribute.String("archetype", string(e.Archetype)),
	))
	r.write("destroyed",
		map[string]string{"faction": string(e.Faction), "archetype": string(e.Archetype)},
		map[string]any{"tick": int64(e.Tick), "unit": int64(e.UnitID)})
}

func (r *Recorder) RecordAlert(e core.AlertEvent) {
	r.write("alert", nil, map[string]any{
		"tick":     int64(e.Tick),
		"level":    int(e.Level),
		"previous": int(e.Previous),
	})
}

func (r *Recorder) RecordVictory(e core.VictoryEvent) {
	r.write("victory",
		map[string]string{"winner": string(e.Winner)},
		map[string]any{"tick": int64(e.Tick), "alerted": e.Alerted})
}
