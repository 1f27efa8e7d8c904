package streaming

import (
	"encoding/json"
	"time"

	"github.com/warroom/extension/pkg/core"
)

// Message type constants matching the streaming protocol.
const (
	TypeStartSession = "start_session"
	TypeEndSession   = "end_session"
	TypeFrame        = "frame"
	TypeLaunch       = "launch"
	TypeImpact       = "impact"
	TypeMobilization = "mobilization"
	TypeDestroyed    = "destroyed"
	TypeAlert        = "alert"
	TypeVictory      = "victory"

	// TypeCommand is the only message the server sends besides acks.
	TypeCommand = "command"
)

// Envelope wraps all messages sent over the WebSocket.
type Envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// AckMessage is the server's acknowledgement response.
type AckMessage struct {
	Type string `json:"type"` // always "ack"
	For  string `json:"for"`  // the message type being acknowledged
}

// StartSessionPayload announces a new simulation run.
type StartSessionPayload struct {
	SessionID string      `json:"sessionId"`
	StartTime time.Time   `json:"startTime"`
	Origin    core.LonLat `json:"origin"`
	Width     float64     `json:"width"`
	Height    float64     `json:"height"`
}

// MercatorPoint is a Web Mercator (EPSG:3857) coordinate for map frontends.
type MercatorPoint struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// ImpactPayload carries an impact with both geographic and Web Mercator positions.
type ImpactPayload struct {
	Tick       uint64         `json:"tick"`
	Aggressor  core.FactionID `json:"aggressor"`
	Owner      core.FactionID `json:"owner,omitempty"`
	Location   core.LonLat    `json:"location"`
	Mercator   MercatorPoint  `json:"mercator"`
	Casualties int            `json:"casualties"`
	Escalated  bool           `json:"escalated"`
}

// LaunchPayload carries a missile launch.
type LaunchPayload struct {
	Tick     uint64         `json:"tick"`
	Faction  core.FactionID `json:"faction"`
	Launcher uint64         `json:"launcher,omitempty"`
	From     core.LonLat    `json:"from"`
	To       core.LonLat    `json:"to"`
}

// MobilizationPayload carries the force spawned by a faction on first alert.
type MobilizationPayload struct {
	Tick    uint64                 `json:"tick"`
	Faction core.FactionID         `json:"faction"`
	Spawned map[core.Archetype]int `json:"spawned"`
}

// DestroyedPayload carries a unit death.
type DestroyedPayload struct {
	Tick      uint64          `json:"tick"`
	UnitID    uint64          `json:"unitId"`
	Archetype core.Archetype  `json:"archetype"`
	Faction   core.FactionID  `json:"faction"`
	Position  core.Position2D `json:"position"`
}

// AlertPayload carries an alert level transition.
type AlertPayload struct {
	Tick  uint64          `json:"tick"`
	Level core.AlertLevel `json:"level"`
	Label string          `json:"label"`
}

// VictoryPayload carries the terminal victory declaration.
type VictoryPayload struct {
	Tick   uint64         `json:"tick"`
	Winner core.FactionID `json:"winner"`
}

// CommandPayload is a war room command pushed by the server, such as
// ":BOMBARD:" or ":ALERT:SET:" with its arguments.
type CommandPayload struct {
	Command string   `json:"command"`
	Args    []string `json:"args"`
}
