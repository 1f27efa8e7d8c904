// Package stream sends frames and simulation events to a web frontend over
// WebSocket and relays commands the frontend sends back.
package stream

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/warroom/extension/internal/geo"
	"github.com/warroom/extension/internal/sim"
	"github.com/warroom/extension/pkg/core"
	"github.com/warroom/extension/pkg/streaming"
)

// Config holds WebSocket backend configuration.
type Config struct {
	URL    string
	Secret string

	// FrameEveryN sends one frame envelope per N published frames.
	FrameEveryN int
}

// Backend streams a war room session over WebSocket. It implements
// sim.Recorder for events and the runner's frame sink for frames.
type Backend struct {
	conn   *connection
	cfg    Config
	frames atomic.Uint64
}

var _ sim.Recorder = (*Backend)(nil)

// New creates a new WebSocket stream backend.
func New(cfg Config, logger *slog.Logger) *Backend {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.FrameEveryN <= 0 {
		cfg.FrameEveryN = 1
	}
	return &Backend{
		conn: newConnection(logger.With("component", "stream")),
		cfg:  cfg,
	}
}

// OnCommand registers fn to receive commands pushed by the server. It runs
// on the read goroutine and must not block.
func (b *Backend) OnCommand(fn func(command string, args []string)) {
	b.conn.mu.Lock()
	defer b.conn.mu.Unlock()
	b.conn.onCommand = func(p streaming.CommandPayload) {
		fn(p.Command, p.Args)
	}
}

// Init connects to the WebSocket server.
func (b *Backend) Init() error {
	return b.conn.dial(b.cfg.URL, b.cfg.Secret)
}

// Close disconnects from the WebSocket server.
func (b *Backend) Close() error {
	return b.conn.close()
}

// marshalEnvelope builds a JSON-encoded Envelope from a message type and payload.
func marshalEnvelope(msgType string, payload any) ([]byte, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal %s payload: %w", msgType, err)
	}
	env := streaming.Envelope{Type: msgType, Payload: raw}
	data, err := json.Marshal(env)
	if err != nil {
		return nil, fmt.Errorf("marshal %s envelope: %w", msgType, err)
	}
	return data, nil
}

// sendEnvelope marshals the payload into an Envelope and pushes it
// to the write loop (fire-and-forget).
func (b *Backend) sendEnvelope(msgType string, payload any) {
	data, err := marshalEnvelope(msgType, payload)
	if err != nil {
		b.conn.logger.Error("Failed to encode stream message", "type", msgType, "error", err)
		return
	}
	b.conn.send(data)
}

// StartSession announces the run and waits for the server ack. The message
// is replayed after every reconnect.
func (b *Backend) StartSession(p streaming.StartSessionPayload) error {
	data, err := marshalEnvelope(streaming.TypeStartSession, p)
	if err != nil {
		return err
	}

	b.conn.mu.Lock()
	b.conn.cachedStartMsg = data
	b.conn.mu.Unlock()

	return b.conn.sendAndWait(data, streaming.TypeStartSession, ackTimeout)
}

// EndSession sends end_session and waits for server ack.
func (b *Backend) EndSession() error {
	data, err := marshalEnvelope(streaming.TypeEndSession, nil)
	if err != nil {
		return err
	}
	err = b.conn.sendAndWait(data, streaming.TypeEndSession, ackTimeout)

	b.conn.mu.Lock()
	b.conn.cachedStartMsg = nil
	b.conn.mu.Unlock()

	return err
}

// Publish sends every FrameEveryN-th frame.
func (b *Backend) Publish(f core.Frame) {
	n := b.frames.Add(1)
	if n%uint64(b.cfg.FrameEveryN) != 0 {
		return
	}
	b.sendEnvelope(streaming.TypeFrame, f)
}

func mercator(ll core.LonLat) streaming.MercatorPoint {
	p, err := geo.Coords3857From4326(ll.Lon, ll.Lat)
	if err != nil {
		return streaming.MercatorPoint{}
	}
	xy, ok := p.XY()
	if !ok {
		return streaming.MercatorPoint{}
	}
	return streaming.MercatorPoint{X: xy.X, Y: xy.Y}
}

func (b *Backend) RecordLaunch(e core.LaunchEvent) {
	b.sendEnvelope(streaming.TypeLaunch, streaming.LaunchPayload{
		Tick:     e.Tick,
		Faction:  e.Faction,
		Launcher: e.Launcher,
		From:     e.From,
		To:       e.To,
	})
}

func (b *Backend) RecordImpact(e core.ImpactEvent) {
	b.sendEnvelope(streaming.TypeImpact, streaming.ImpactPayload{
		Tick:       e.Tick,
		Aggressor:  e.Aggressor,
		Owner:      e.Owner,
		Location:   e.Location,
		Mercator:   mercator(e.Location),
		Casualties: e.Casualties,
		Escalated:  e.Escalated,
	})
}

func (b *Backend) RecordMobilization(e core.MobilizationEvent) {
	b.sendEnvelope(streaming.TypeMobilization, streaming.MobilizationPayload{
		Tick:    e.Tick,
		Faction: e.Faction,
		Spawned: e.Spawned,
	})
}

func (b *Backend) RecordDestroyed(e core.DestroyedEvent) {
	b.sendEnvelope(streaming.TypeDestroyed, streaming.DestroyedPayload{
		Tick:      e.Tick,
		UnitID:    e.UnitID,
		Archetype: e.Archetype,
		Faction:   e.Faction,
		Position:  e.Position,
	})
}

func (b *Backend) RecordAlert(e core.AlertEvent) {
	b.sendEnvelope(streaming.TypeAlert, streaming.AlertPayload{
		Tick:  e.Tick,
		Level: e.Level,
		Label: e.Level.Label(),
	})
}

func (b *Backend) RecordVictory(e core.VictoryEvent) {
	b.sendEnvelope(streaming.TypeVictory, streaming.VictoryPayload{
		Tick:   e.Tick,
		Winner: e.Winner,
	})
}
