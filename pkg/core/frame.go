// pkg/core/frame.go
package core

// UnitView is the render-facing state of a unit.
type UnitView struct {
	ID             uint64     `json:"id"`
	Archetype      Archetype  `json:"archetype"`
	Faction        FactionID  `json:"faction"`
	Color          string     `json:"color"`
	Position       Position2D `json:"position"`
	HealthFraction float64    `json:"health"`
	State          string     `json:"state"`
}

// MissileView is the render-facing state of a missile in flight.
type MissileView struct {
	Faction  FactionID  `json:"faction"`
	Color    string     `json:"color"`
	Start    Position2D `json:"start"`
	End      Position2D `json:"end"`
	Position Position2D `json:"position"`
	Progress float64    `json:"progress"`
}

// EffectView is the render-facing state of an explosion marker.
type EffectView struct {
	Faction  FactionID  `json:"faction"`
	Color    string     `json:"color"`
	Position Position2D `json:"position"`
	Radius   float64    `json:"radius"`
	Alpha    float64    `json:"alpha"`
}

// BeamView is a beam shot fired during the tick, drawn from shooter to target.
type BeamView struct {
	Faction FactionID  `json:"faction"`
	Color   string     `json:"color"`
	From    Position2D `json:"from"`
	To      Position2D `json:"to"`
}

// Frame is a snapshot of the simulation after one tick.
type Frame struct {
	Tick       uint64        `json:"tick"`
	AlertLevel AlertLevel    `json:"alertLevel"`
	Width      float64       `json:"width"`
	Height     float64       `json:"height"`
	Units      []UnitView    `json:"units"`
	Missiles   []MissileView `json:"missiles"`
	Effects    []EffectView  `json:"effects"`
	Beams      []BeamView    `json:"beams"`

	// Winner is empty until victory has been declared.
	Winner FactionID `json:"winner,omitempty"`
}

// LiveUnitsByFaction counts units per faction.
func (f Frame) LiveUnitsByFaction() map[FactionID]int {
	counts := make(map[FactionID]int)
	for _, u := range f.Units {
		counts[u.Faction]++
	}
	return counts
}
