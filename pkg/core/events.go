// pkg/core/events.go
package core

// LaunchEvent is recorded when a missile leaves its launcher.
type LaunchEvent struct {
	Tick     uint64
	Faction  FactionID
	Launcher uint64 // unit ID, zero for external bombardment
	From     LonLat
	To       LonLat
}

// ImpactEvent is recorded when a missile or bomb resolves at a point.
type ImpactEvent struct {
	Tick       uint64
	Aggressor  FactionID
	Position   Position2D
	Location   LonLat
	Owner      FactionID // empty when no owner could be identified
	Casualties int
	Escalated  bool
}

// MobilizationEvent is recorded when a faction is first struck and spawns its force.
type MobilizationEvent struct {
	Tick      uint64
	Faction   FactionID
	Requested map[Archetype]int
	Spawned   map[Archetype]int
}

// DestroyedEvent is recorded once per unit death.
type DestroyedEvent struct {
	Tick      uint64
	UnitID    uint64
	Archetype Archetype
	Faction   FactionID
	Position  Position2D
}

// AlertEvent is recorded when the global alert level changes.
type AlertEvent struct {
	Tick     uint64
	Previous AlertLevel
	Level    AlertLevel
}

// VictoryEvent is recorded once when a single faction remains.
type VictoryEvent struct {
	Tick    uint64
	Winner  FactionID
	Alerted int
}
