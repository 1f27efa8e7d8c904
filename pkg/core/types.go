// pkg/core/types.go
package core

import "math"

// Position2D is a point on the simulation plane.
type Position2D struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// DistanceTo returns the Euclidean plane distance between two points.
func (p Position2D) DistanceTo(o Position2D) float64 {
	return math.Hypot(p.X-o.X, p.Y-o.Y)
}

// LonLat is a geographic coordinate in degrees (EPSG:4326).
type LonLat struct {
	Lon float64 `json:"lon"`
	Lat float64 `json:"lat"`
}

// Archetype identifies a unit kind.
type Archetype string

const (
	Carrier Archetype = "CARRIER"
	Sub     Archetype = "SUB"
	Bomber  Archetype = "BOMBER"
	Fighter Archetype = "FIGHTER"
	Silo    Archetype = "SILO"

	// City is never a unit. It appears in target lists of units that may
	// strike territory points.
	City Archetype = "CITY"
)

// Archetypes lists the unit kinds in mobilization order followed by aircraft.
var Archetypes = []Archetype{Carrier, Sub, Silo, Bomber, Fighter}

// Naval reports whether units of this kind are restricted to water.
func (a Archetype) Naval() bool {
	return a == Carrier || a == Sub
}

// Icon is the glyph renderers use for the archetype.
func (a Archetype) Icon() string {
	switch a {
	case Bomber:
		return "✈"
	case Sub:
		return "(S)"
	case Carrier:
		return "⛴"
	case Fighter:
		return ">"
	case Silo:
		return "▲"
	default:
		return "?"
	}
}

// FactionID identifies a belligerent.
type FactionID string

const (
	NorthAmerica FactionID = "NA"
	SouthAmerica FactionID = "SA"
	Europe       FactionID = "EU"
	Africa       FactionID = "AF"
	Russia       FactionID = "RU"
	Asia         FactionID = "AS"
	Rogue        FactionID = "ROGUE"
)

// AlertLevel is the global escalation level. Lower is more severe.
type AlertLevel int

const (
	FadeOut      AlertLevel = 5
	DoubleTake   AlertLevel = 4
	RoundHouse   AlertLevel = 3
	FastPace     AlertLevel = 2
	CockedPistol AlertLevel = 1

	// MaxAlert is the level at which combat is enabled.
	MaxAlert = CockedPistol
)

var alertLabels = map[AlertLevel]struct{ text, color string }{
	FadeOut:      {"FADE OUT", "#00ff00"},
	DoubleTake:   {"DOUBLE TAKE", "#00ff00"},
	RoundHouse:   {"ROUND HOUSE", "#ffff00"},
	FastPace:     {"FAST PACE", "#ff9900"},
	CockedPistol: {"COCKED PISTOL", "#ff0000"},
}

// Valid reports whether the level is within 1..5.
func (l AlertLevel) Valid() bool {
	_, ok := alertLabels[l]
	return ok
}

// Label returns the code phrase for the level.
func (l AlertLevel) Label() string {
	if v, ok := alertLabels[l]; ok {
		return v.text
	}
	return "UNKNOWN"
}

// Color returns the display color for the level as a hex string.
func (l AlertLevel) Color() string {
	if v, ok := alertLabels[l]; ok {
		return v.color
	}
	return "#ffffff"
}
