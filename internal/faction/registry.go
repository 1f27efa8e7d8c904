package faction

import (
	"github.com/warroom/extension/pkg/core"
)

// TerritoryTolerance is the half-width in degrees of the box used to match
// an impact point against registered territory.
const TerritoryTolerance = 5.0

// VertexSource yields world geometry vertices in load order.
type VertexSource interface {
	EachVertex(fn func(lon, lat float64))
}

// Registry owns the seven factions in their fixed order.
type Registry struct {
	factions []*Faction
	byID     map[core.FactionID]*Faction
	targets  []core.LonLat
}

// NewRegistry creates the factions with their default identities. Only the
// rogue faction starts alerted.
func NewRegistry() *Registry {
	r := &Registry{
		factions: []*Faction{
			{ID: core.NorthAmerica, Name: "NORTH AMERICA", Color: "#00f3ff",
				Spawn: &SpawnRegion{Lon: [2]float64{-130, -70}, Lat: [2]float64{25, 50}}},
			{ID: core.SouthAmerica, Name: "SOUTH AMERICA", Color: "#00ff00",
				Spawn: &SpawnRegion{Lon: [2]float64{-80, -40}, Lat: [2]float64{-50, 10}}},
			{ID: core.Europe, Name: "EUROPE", Color: "#0000ff",
				Spawn: &SpawnRegion{Lon: [2]float64{-10, 30}, Lat: [2]float64{35, 60}}},
			{ID: core.Africa, Name: "AFRICA", Color: "#ffff00",
				Spawn: &SpawnRegion{Lon: [2]float64{-20, 50}, Lat: [2]float64{-35, 30}}},
			{ID: core.Russia, Name: "RUSSIA", Color: "#ff0000",
				Spawn: &SpawnRegion{Lon: [2]float64{40, 180}, Lat: [2]float64{50, 70}}},
			{ID: core.Asia, Name: "ASIA", Color: "#ff9900",
				Spawn: &SpawnRegion{Lon: [2]float64{60, 150}, Lat: [2]float64{10, 45}}},
			{ID: core.Rogue, Name: "UNKNOWN", Color: "#ffffff", alerted: true},
		},
		byID: make(map[core.FactionID]*Faction),
	}
	for _, f := range r.factions {
		r.byID[f.ID] = f
	}
	return r
}

// Get returns the faction with the given id, or nil.
func (r *Registry) Get(id core.FactionID) *Faction {
	return r.byID[id]
}

// Aggressor returns the rogue faction.
func (r *Registry) Aggressor() *Faction {
	return r.byID[core.Rogue]
}

// All returns every faction in registry order.
func (r *Registry) All() []*Faction {
	return r.factions
}

// Classify maps a coordinate to a region with the static quadrant rules.
// It returns the empty id when no rule matches.
func Classify(lon, lat float64) core.FactionID {
	switch {
	case lat > 15 && lon < -30:
		return core.NorthAmerica
	case lat <= 15 && lon < -30:
		return core.SouthAmerica
	case lat > 30 && lon > -30 && lon < 40:
		return core.Europe
	case lat <= 30 && lon > -30 && lon < 60:
		return core.Africa
	case lat > 45 && lon > 40:
		return core.Russia
	case lon > 60:
		return core.Asia
	}
	return ""
}

// AssignTerritory distributes every vertex of the world geometry to its
// classified faction and to the global target list. It is meant to run once
// before the first tick.
func (r *Registry) AssignTerritory(src VertexSource) {
	src.EachVertex(func(lon, lat float64) {
		p := core.LonLat{Lon: lon, Lat: lat}
		if f := r.byID[Classify(lon, lat)]; f != nil {
			f.territory = append(f.territory, p)
		}
		r.targets = append(r.targets, p)
	})
}

// Targets returns every registered vertex in load order.
func (r *Registry) Targets() []core.LonLat {
	return r.targets
}

// Owner identifies the faction owning a coordinate: first by registered
// territory within TerritoryTolerance, in registry order, then by Classify.
// The rogue faction never owns anything.
func (r *Registry) Owner(lon, lat float64) *Faction {
	for _, f := range r.factions {
		if f.ID == core.Rogue {
			continue
		}
		if f.Claims(lon, lat, TerritoryTolerance) {
			return f
		}
	}
	return r.byID[Classify(lon, lat)]
}

// Enemies returns the factions other than of and the rogue faction that
// have registered territory, in registry order.
func (r *Registry) Enemies(of *Faction) []*Faction {
	var out []*Faction
	for _, f := range r.factions {
		if f == of || f.ID == core.Rogue || !f.HasTerritory() {
			continue
		}
		out = append(out, f)
	}
	return out
}

// AlertedCount counts alerted factions, excluding the rogue faction.
func (r *Registry) AlertedCount() int {
	n := 0
	for _, f := range r.factions {
		if f.ID != core.Rogue && f.alerted {
			n++
		}
	}
	return n
}
