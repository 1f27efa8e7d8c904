package sim

import (
	"github.com/warroom/extension/internal/faction"
	"github.com/warroom/extension/pkg/core"
)

// Mobilize spawns a faction's starting force inside its spawn region.
// Carriers and subs need water, silos need land. A unit with no valid point
// after spawnAttempts draws is dropped. It returns the count spawned per
// archetype.
func (s *Simulation) Mobilize(f *faction.Faction) map[core.Archetype]int {
	if f.Spawn == nil {
		return nil
	}
	requested := make(map[core.Archetype]int, len(mobilizationOrder))
	spawned := make(map[core.Archetype]int, len(mobilizationOrder))
	for _, kind := range mobilizationOrder {
		limit := archetypeStats[kind].Limit
		requested[kind] = limit
		for range limit {
			at, ok := s.spawnPoint(f.Spawn, kind)
			if !ok {
				continue
			}
			s.Spawn(kind, f, at)
			spawned[kind]++
		}
	}
	s.rec.RecordMobilization(core.MobilizationEvent{
		Tick:      s.tick,
		Faction:   f.ID,
		Requested: requested,
		Spawned:   spawned,
	})
	return spawned
}

func (s *Simulation) spawnPoint(r *faction.SpawnRegion, kind core.Archetype) (core.LonLat, bool) {
	for range spawnAttempts {
		at := core.LonLat{
			Lon: r.Lon[0] + s.rng.Float64()*(r.Lon[1]-r.Lon[0]),
			Lat: r.Lat[0] + s.rng.Float64()*(r.Lat[1]-r.Lat[0]),
		}
		onLand := s.land.IsOnLand(at.Lon, at.Lat)
		switch {
		case kind.Naval():
			if !onLand {
				return at, true
			}
		case kind == core.Silo:
			if onLand {
				return at, true
			}
		default:
			return at, true
		}
	}
	return core.LonLat{}, false
}
