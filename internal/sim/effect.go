package sim

import (
	"github.com/warroom/extension/internal/faction"
	"github.com/warroom/extension/pkg/core"
)

// Effect marks a death or impact. It has no gameplay state.
type Effect struct {
	Faction   *faction.Faction
	Pos       core.Position2D
	Radius    float64
	MaxRadius float64
	Alpha     float64
	Dead      bool
}

func newEffect(f *faction.Faction, p core.Position2D, maxRadius float64) *Effect {
	return &Effect{
		Faction:   f,
		Pos:       p,
		Radius:    1,
		MaxRadius: maxRadius,
		Alpha:     1,
	}
}

func (e *Effect) advance() {
	if e.Dead {
		return
	}
	e.Radius += effectGrowth
	e.Alpha -= effectFade
	if e.Alpha <= 0 {
		e.Dead = true
	}
}

func (e *Effect) view() core.EffectView {
	return core.EffectView{
		Faction:  e.Faction.ID,
		Color:    e.Faction.Color,
		Position: e.Pos,
		Radius:   e.Radius,
		Alpha:    max(e.Alpha, 0),
	}
}
