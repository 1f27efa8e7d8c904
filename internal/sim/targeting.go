package sim

import (
	"math"

	"github.com/warroom/extension/pkg/core"
)

// findTarget revalidates the retained combat target and, when it is gone,
// scans for the nearest eligible enemy. Ties go to the first unit in scan
// order. Fighters never drop a chase over distance.
func (s *Simulation) findTarget(u *Unit) *Unit {
	t := s.unit(u.combatTarget)
	if t != nil && u.Archetype != core.Fighter && u.Pos.DistanceTo(t.Pos) > u.Range*retainRangeFactor {
		t = nil
	}
	if t != nil {
		return t
	}
	u.combatTarget = 0

	scan := u.Range
	if u.stats.Air {
		scan = airScanRange
	}
	best := math.Inf(1)
	for _, c := range s.units {
		if c.Dead || c.Faction == u.Faction || !u.stats.CanTarget(c.Archetype) {
			continue
		}
		d := u.Pos.DistanceTo(c.Pos)
		if d <= scan && d < best {
			best = d
			t = c
		}
	}
	if t != nil {
		u.combatTarget = t.ID
	}
	return t
}

// findStrikeTarget gives a bomber without a movement target a point to fly
// to: a live silo of a random enemy faction, else one of its territory points.
func (s *Simulation) findStrikeTarget(u *Unit) {
	if u.moveTarget != nil {
		return
	}
	enemies := s.factions.Enemies(u.Faction)
	if len(enemies) == 0 {
		return
	}
	ef := pick(s.rng, enemies)

	var p core.Position2D
	if silos := s.liveUnits(ef, core.Silo); len(silos) > 0 {
		p = pick(s.rng, silos).Pos
	} else {
		p = s.proj.ProjectLonLat(pick(s.rng, ef.Territory()))
	}
	u.moveTarget = &p
}
