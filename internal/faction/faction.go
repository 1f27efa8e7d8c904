// Package faction holds the belligerents of the simulation: their identity,
// alert state and the territory points derived from world geometry.
package faction

import (
	"math"

	"github.com/warroom/extension/pkg/core"
)

// SpawnRegion is a lon/lat bounding box in which mobilized units appear.
type SpawnRegion struct {
	Lon [2]float64
	Lat [2]float64
}

// Faction is a singleton belligerent. Factions are referenced by pointer and
// never copied.
type Faction struct {
	ID    core.FactionID
	Name  string
	Color string

	// Spawn is nil for factions that never mobilize.
	Spawn *SpawnRegion

	alerted   bool
	territory []core.LonLat
}

// Alerted reports whether the faction has been struck.
func (f *Faction) Alerted() bool {
	return f.alerted
}

// Alert sets the alert flag. It returns true only on the call that flipped
// it; the flag never resets.
func (f *Faction) Alert() bool {
	if f.alerted {
		return false
	}
	f.alerted = true
	return true
}

// Territory returns the registered territory points in load order.
// The returned slice must not be modified.
func (f *Faction) Territory() []core.LonLat {
	return f.territory
}

// HasTerritory reports whether any territory point was registered.
func (f *Faction) HasTerritory() bool {
	return len(f.territory) > 0
}

// Claims reports whether a territory point lies within tolerance degrees of
// lon/lat on both axes.
func (f *Faction) Claims(lon, lat, tolerance float64) bool {
	for _, t := range f.territory {
		if math.Abs(t.Lon-lon) < tolerance && math.Abs(t.Lat-lat) < tolerance {
			return true
		}
	}
	return false
}
