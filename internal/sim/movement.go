package sim

import (
	"math"

	"github.com/warroom/extension/pkg/core"
)

// moveTo steps u toward dest at its speed. Within moveDeadZone it holds
// still. A naval unit whose next step would reach land stays put and drops
// its movement target.
func (s *Simulation) moveTo(u *Unit, dest core.Position2D) {
	dx := dest.X - u.Pos.X
	dy := dest.Y - u.Pos.Y
	d := math.Hypot(dx, dy)
	if d <= moveDeadZone {
		return
	}
	next := core.Position2D{
		X: u.Pos.X + dx/d*u.Speed,
		Y: u.Pos.Y + dy/d*u.Speed,
	}
	if u.Archetype.Naval() && s.onLand(next) {
		u.moveTarget = nil
		return
	}
	u.Pos = next
}

// patrol occasionally picks a random point near u and walks to it. Naval
// units discard points on land and try again on a later tick.
func (s *Simulation) patrol(u *Unit) {
	if u.moveTarget == nil && s.rng.Float64() > patrolThreshold {
		p := core.Position2D{
			X: u.Pos.X + (s.rng.Float64()-0.5)*patrolBox,
			Y: u.Pos.Y + (s.rng.Float64()-0.5)*patrolBox,
		}
		if !u.Archetype.Naval() || !s.onLand(p) {
			u.moveTarget = &p
		}
	}
	if u.moveTarget == nil {
		return
	}
	s.moveTo(u, *u.moveTarget)
	if u.moveTarget != nil && u.Pos.DistanceTo(*u.moveTarget) < patrolArrival {
		u.moveTarget = nil
	}
}

func (s *Simulation) onLand(p core.Position2D) bool {
	ll := s.proj.Unproject(p)
	return s.land.IsOnLand(ll.Lon, ll.Lat)
}
