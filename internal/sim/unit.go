package sim

import (
	"github.com/warroom/extension/internal/faction"
	"github.com/warroom/extension/pkg/core"
)

// UnitState is the behaviour a unit showed on its last update.
type UnitState string

const (
	StateIdle      UnitState = "IDLE"
	StatePatrol    UnitState = "PATROL"
	StatePursuing  UnitState = "PURSUING"
	StateAttacking UnitState = "ATTACKING"
	StateRearming  UnitState = "REARMING"
)

// Unit is a combat agent. It is owned by the Simulation that created it.
type Unit struct {
	ID        uint64
	Archetype core.Archetype
	Faction   *faction.Faction

	// Pos is frozen in plane space; Origin is the coordinate it spawned at.
	Pos    core.Position2D
	Origin core.LonLat

	HP       float64
	MaxHP    float64
	Damage   float64
	Range    float64
	Speed    float64
	Ammo     int
	Hangar   int
	Cooldown float64
	Dead     bool

	stats Stats

	// moveTarget is a plane point the unit walks toward (patrol point, city).
	moveTarget *core.Position2D

	// combatTarget is the ID of the engaged unit, zero when none. It is
	// resolved through the simulation index on every use.
	combatTarget uint64

	state UnitState
}

func newUnit(id uint64, kind core.Archetype, f *faction.Faction, pos core.Position2D, origin core.LonLat, cooldown float64) *Unit {
	st := archetypeStats[kind]
	return &Unit{
		ID:        id,
		Archetype: kind,
		Faction:   f,
		Pos:       pos,
		Origin:    origin,
		HP:        st.HP,
		MaxHP:     st.HP,
		Damage:    st.Damage,
		Range:     st.Range,
		Speed:     st.Speed,
		Ammo:      st.Ammo,
		Hangar:    st.Hangar,
		Cooldown:  cooldown,
		stats:     st,
		state:     StateIdle,
	}
}

// TakeDamage lowers health and reports whether this call killed the unit.
// Dead units ignore damage.
func (u *Unit) TakeDamage(amount float64) bool {
	if u.Dead || amount <= 0 {
		return false
	}
	u.HP -= amount
	if u.HP <= 0 {
		u.Dead = true
		return true
	}
	return false
}

// HealthFraction is HP/MaxHP clamped to [0,1].
func (u *Unit) HealthFraction() float64 {
	if u.MaxHP <= 0 || u.HP <= 0 {
		return 0
	}
	return min(u.HP/u.MaxHP, 1)
}

// State returns the behaviour derived on the last update.
func (u *Unit) State() UnitState {
	return u.state
}

// MoveTarget returns the current movement target, if any.
func (u *Unit) MoveTarget() (core.Position2D, bool) {
	if u.moveTarget == nil {
		return core.Position2D{}, false
	}
	return *u.moveTarget, true
}

// CombatTarget returns the ID of the engaged unit, zero when none.
func (u *Unit) CombatTarget() uint64 {
	return u.combatTarget
}

// IsAir reports whether the unit flies.
func (u *Unit) IsAir() bool {
	return u.stats.Air
}

func (u *Unit) view() core.UnitView {
	return core.UnitView{
		ID:             u.ID,
		Archetype:      u.Archetype,
		Faction:        u.Faction.ID,
		Color:          u.Faction.Color,
		Position:       u.Pos,
		HealthFraction: u.HealthFraction(),
		State:          string(u.state),
	}
}
