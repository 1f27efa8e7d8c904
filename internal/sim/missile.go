package sim

import (
	"github.com/warroom/extension/internal/faction"
	"github.com/warroom/extension/pkg/core"
)

// Missile flies a lofted quadratic Bézier arc from Start to End.
type Missile struct {
	Faction  *faction.Faction
	Launcher uint64
	Start    core.Position2D
	End      core.Position2D
	Progress float64
	Speed    float64
	Apex     float64
	Dead     bool
}

func newMissile(f *faction.Faction, start, end core.Position2D, speed float64) *Missile {
	return &Missile{
		Faction: f,
		Start:   start,
		End:     end,
		Speed:   speed,
		Apex:    start.DistanceTo(end) * missileApex,
	}
}

// advance moves the missile along its arc and reports whether it arrived on
// this call. It reports true at most once.
func (m *Missile) advance() bool {
	if m.Dead {
		return false
	}
	m.Progress += m.Speed
	if m.Progress >= 1 {
		m.Progress = 1
		m.Dead = true
		return true
	}
	return false
}

// Position is the current point on the arc. The control point sits above the
// chord midpoint by Apex (toward negative Y).
func (m *Missile) Position() core.Position2D {
	t := m.Progress
	cx := (m.Start.X + m.End.X) / 2
	cy := (m.Start.Y+m.End.Y)/2 - m.Apex
	a := (1 - t) * (1 - t)
	b := 2 * (1 - t) * t
	c := t * t
	return core.Position2D{
		X: a*m.Start.X + b*cx + c*m.End.X,
		Y: a*m.Start.Y + b*cy + c*m.End.Y,
	}
}

func (m *Missile) view() core.MissileView {
	return core.MissileView{
		Faction:  m.Faction.ID,
		Color:    m.Faction.Color,
		Start:    m.Start,
		End:      m.End,
		Position: m.Position(),
		Progress: m.Progress,
	}
}
