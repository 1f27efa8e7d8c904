package sim

import (
	"github.com/warroom/extension/pkg/core"
)

// behavior is the per-archetype update policy. Nil steps are skipped.
type behavior struct {
	spawn  func(s *Simulation, u *Unit)
	move   func(s *Simulation, u *Unit)
	combat func(s *Simulation, u *Unit)
}

var behaviors = map[core.Archetype]behavior{
	core.Carrier: {
		spawn:  (*Simulation).launchAircraft,
		move:   (*Simulation).patrol,
		combat: (*Simulation).fireBeam,
	},
	core.Sub: {
		move:   (*Simulation).moveSub,
		combat: (*Simulation).subCombat,
	},
	core.Bomber: {
		move:   (*Simulation).moveBomber,
		combat: (*Simulation).bomberCombat,
	},
	core.Fighter: {
		move:   (*Simulation).moveFighter,
		combat: (*Simulation).fireBeam,
	},
	core.Silo: {
		combat: (*Simulation).siloCombat,
	},
}

// updateUnit runs one tick for u: cooldown, hangar, movement, then combat.
// Combat is gated on the maximum alert level and the unit's faction being
// alerted.
func (s *Simulation) updateUnit(u *Unit) {
	if u.Dead {
		return
	}
	u.Cooldown--

	b := behaviors[u.Archetype]
	if b.spawn != nil {
		b.spawn(s, u)
	}
	if b.move != nil {
		b.move(s, u)
	}
	if b.combat != nil && s.level == core.MaxAlert && u.Faction.Alerted() {
		b.combat(s, u)
	}
	u.state = s.deriveState(u)
}

func (s *Simulation) moveFighter(u *Unit) {
	if t := s.findTarget(u); t != nil {
		s.moveTo(u, t.Pos)
		return
	}
	s.patrol(u)
}

func (s *Simulation) moveBomber(u *Unit) {
	if t := s.findTarget(u); t != nil {
		s.moveTo(u, t.Pos)
		return
	}
	s.findStrikeTarget(u)
	if u.moveTarget != nil {
		s.moveTo(u, *u.moveTarget)
	}
}

// moveSub patrols while ordnance remains and hunts once it runs out.
func (s *Simulation) moveSub(u *Unit) {
	if u.Ammo > 0 {
		s.patrol(u)
		return
	}
	if t := s.findTarget(u); t != nil {
		s.moveTo(u, t.Pos)
		return
	}
	s.patrol(u)
}

func (s *Simulation) siloCombat(u *Unit) {
	if u.Ammo > 0 && u.Cooldown <= 0 {
		s.launchMissile(u)
	}
}

func (s *Simulation) subCombat(u *Unit) {
	if u.Ammo > 0 && u.Cooldown <= 0 {
		s.launchMissile(u)
	}
	if u.Ammo <= 0 {
		s.fireBeam(u)
	}
}

func (s *Simulation) bomberCombat(u *Unit) {
	if u.Cooldown > 0 {
		return
	}
	if u.moveTarget != nil && u.Pos.DistanceTo(*u.moveTarget) < bombProximity {
		s.dropBomb(u, *u.moveTarget)
		u.Cooldown = bombCooldown
		return
	}
	if t := s.unit(u.combatTarget); t != nil && u.Pos.DistanceTo(t.Pos) < bombProximity {
		s.dropBomb(u, t.Pos)
		u.Cooldown = bombCooldown
	}
}

func (s *Simulation) deriveState(u *Unit) UnitState {
	if u.Dead {
		return u.state
	}
	if t := s.unit(u.combatTarget); t != nil {
		reach := u.Range
		if u.Archetype == core.Bomber {
			reach = bombProximity
		}
		if u.Pos.DistanceTo(t.Pos) <= reach {
			return StateAttacking
		}
		return StatePursuing
	}
	switch {
	case u.Archetype == core.Carrier && u.Hangar > 0 && u.Hangar < u.stats.Hangar && u.Cooldown > 0:
		return StateRearming
	case u.Archetype == core.Bomber && u.moveTarget != nil:
		if u.Pos.DistanceTo(*u.moveTarget) < bombProximity {
			return StateAttacking
		}
		return StatePursuing
	case u.moveTarget != nil:
		return StatePatrol
	}
	return StateIdle
}
