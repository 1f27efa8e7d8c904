package sim

import (
	"github.com/warroom/extension/internal/faction"
	"github.com/warroom/extension/pkg/core"
)

// minAlertedForVictory guards against a win before any war took place.
const minAlertedForVictory = 2

// checkVictory declares a winner when exactly one non-rogue faction has live
// units and at least two factions were ever alerted. Only evaluated at
// maximum alert. Once declared the result never changes.
func (s *Simulation) checkVictory() {
	if s.winner != nil || s.level != core.MaxAlert {
		return
	}
	var last *faction.Faction
	active := 0
	seen := make(map[*faction.Faction]bool)
	for _, u := range s.units {
		if u.Dead || u.Faction.ID == core.Rogue || seen[u.Faction] {
			continue
		}
		seen[u.Faction] = true
		last = u.Faction
		active++
	}
	if active != 1 {
		return
	}
	alerted := s.factions.AlertedCount()
	if alerted < minAlertedForVictory {
		return
	}
	s.winner = last
	s.rec.RecordVictory(core.VictoryEvent{
		Tick:    s.tick,
		Winner:  last.ID,
		Alerted: alerted,
	})
}
