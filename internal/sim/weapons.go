package sim

import (
	"github.com/warroom/extension/pkg/core"
)

// fireBeam hits the combat target for the unit's damage when it is in range.
// Beams never miss and cost no ammunition. Each shot is kept for the frame
// of the tick it was fired in.
func (s *Simulation) fireBeam(u *Unit) {
	if u.Cooldown > 0 {
		return
	}
	t := s.findTarget(u)
	if t == nil || u.Pos.DistanceTo(t.Pos) > u.Range {
		return
	}
	s.beams = append(s.beams, core.BeamView{
		Faction: u.Faction.ID,
		Color:   u.Faction.Color,
		From:    u.Pos,
		To:      t.Pos,
	})
	s.damage(t, u.Damage)
	u.Cooldown = beamCooldown
}

// dropBomb damages every enemy of the bomber near p, then resolves the impact.
func (s *Simulation) dropBomb(u *Unit, p core.Position2D) {
	s.addEffect(p, u.Faction)
	for _, v := range s.units {
		if v.Faction != u.Faction && v.Pos.DistanceTo(p) < bombSplashRadius {
			s.damage(v, u.Damage)
		}
	}
	s.resolveImpact(p, u.Faction)
}

// launchMissile fires at a random enemy faction: one of its live silos or
// carriers when it has any, else a random point of its territory.
func (s *Simulation) launchMissile(u *Unit) {
	enemies := s.factions.Enemies(u.Faction)
	if len(enemies) == 0 {
		return
	}
	ef := pick(s.rng, enemies)

	var to core.LonLat
	if assets := s.liveUnits(ef, core.Silo, core.Carrier); len(assets) > 0 {
		to = s.proj.Unproject(pick(s.rng, assets).Pos)
	} else {
		to = pick(s.rng, ef.Territory())
	}
	s.launch(u.Faction, s.proj.Unproject(u.Pos), to, u.ID)
	u.Ammo--
	u.Cooldown = launchCooldown
}

// launchAircraft spawns one aircraft from a carrier's hangar at maximum alert.
func (s *Simulation) launchAircraft(u *Unit) {
	if s.level != core.MaxAlert || u.Hangar <= 0 || u.Cooldown > 0 {
		return
	}
	kind := core.Bomber
	if s.rng.Float64() > fighterThreshold {
		kind = core.Fighter
	}
	s.Spawn(kind, u.Faction, s.proj.Unproject(u.Pos))
	u.Hangar--
	u.Cooldown = hangarCooldown
}
