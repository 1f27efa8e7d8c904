package telemetry

import (
	"time"

	influxdb2_write "github.com/influxdata/influxdb-client-go/v2/api/write"
	"github.com/rs/zerolog"
	"github.com/warroom/extension/pkg/core"
)

// Sampler writes a force_strength point per faction every N published frames.
type Sampler struct {
	writer   PointWriter
	logger   zerolog.Logger
	every    int
	factions []core.FactionID
	seen     int
	now      func() time.Time
}

// NewSampler creates a sampler for the given factions. every <= 0 samples
// every frame.
func NewSampler(writer PointWriter, every int, factions []core.FactionID, logger zerolog.Logger) *Sampler {
	if every <= 0 {
		every = 1
	}
	return &Sampler{
		writer:   writer,
		logger:   logger.With().Str("component", "sampler").Logger(),
		every:    every,
		factions: factions,
		now:      time.Now,
	}
}

// Publish implements the runner's frame sink.
func (s *Sampler) Publish(f core.Frame) {
	s.seen++
	if s.seen%s.every != 0 {
		return
	}

	counts := f.LiveUnitsByFaction()
	ts := s.now()
	for _, id := range s.factions {
		point := influxdb2_write.NewPoint("force_strength",
			map[string]string{"faction": string(id)},
			map[string]any{
				"units":       counts[id],
				"tick":        int64(f.Tick),
				"alert_level": int(f.AlertLevel),
			},
			ts)
		if err := s.writer.WritePoint(BucketForces, point); err != nil {
			s.logger.Error().Err(err).Str("faction", string(id)).Msg("Failed to write force sample")
		}
	}
}
