package sim

import (
	"github.com/warroom/extension/internal/faction"
	"github.com/warroom/extension/pkg/core"
)

// resolveImpact destroys every live non-aggressor unit near p, then alerts
// and mobilizes the owner of the point if it was not alerted yet and is not
// the aggressor.
func (s *Simulation) resolveImpact(p core.Position2D, aggressor *faction.Faction) core.ImpactEvent {
	ll := s.proj.Unproject(p)
	ev := core.ImpactEvent{
		Tick:      s.tick,
		Aggressor: aggressor.ID,
		Position:  p,
		Location:  ll,
	}
	for _, u := range s.units {
		if u.Faction != aggressor && !u.Dead && u.Pos.DistanceTo(p) < impactSplashRadius {
			if s.damage(u, impactDamage) {
				ev.Casualties++
			}
		}
	}

	victim := s.factions.Owner(ll.Lon, ll.Lat)
	if victim == nil {
		s.rec.RecordImpact(ev)
		return ev
	}
	ev.Owner = victim.ID
	ev.Escalated = victim != aggressor && victim.Alert()
	s.rec.RecordImpact(ev)
	if ev.Escalated {
		s.Mobilize(victim)
	}
	return ev
}
