package sim

import (
	"slices"

	"github.com/warroom/extension/pkg/core"
)

// Stats are the fixed base values of an archetype.
type Stats struct {
	HP      float64
	Range   float64
	Damage  float64
	Speed   float64
	Limit   int // units spawned on mobilization
	Targets []core.Archetype
	Ammo    int
	Hangar  int
	Air     bool
}

// CanTarget reports whether a unit of this archetype may engage kind.
func (s Stats) CanTarget(kind core.Archetype) bool {
	return slices.Contains(s.Targets, kind)
}

var archetypeStats = map[core.Archetype]Stats{
	core.Carrier: {
		HP: 1000, Range: 150, Damage: 2, Speed: 0.02, Limit: 2, Hangar: 10,
		Targets: []core.Archetype{core.Fighter, core.Bomber, core.Sub},
	},
	core.Sub: {
		HP: 300, Range: 200, Damage: 50, Speed: 0.05, Limit: 4, Ammo: 5,
		Targets: []core.Archetype{core.Carrier, core.Sub},
	},
	core.Bomber: {
		HP: 100, Range: 20, Damage: 200, Speed: 0.4, Air: true,
		Targets: []core.Archetype{core.City, core.Sub, core.Silo},
	},
	core.Fighter: {
		HP: 50, Range: 50, Damage: 10, Speed: 0.8, Air: true,
		Targets: []core.Archetype{core.Bomber, core.Fighter, core.Carrier},
	},
	core.Silo: {
		HP: 500, Range: 9999, Damage: 0, Speed: 0, Limit: 5, Ammo: 10,
		Targets: []core.Archetype{core.City, core.Silo},
	},
}

// StatsFor returns the base values of an archetype.
func StatsFor(kind core.Archetype) (Stats, bool) {
	s, ok := archetypeStats[kind]
	return s, ok
}

// mobilizationOrder is the order in which a faction's starting force spawns.
var mobilizationOrder = []core.Archetype{core.Carrier, core.Sub, core.Silo}

// Tuning. Distances are plane units, durations are ticks.
const (
	initialCooldownMin  = 50.0
	initialCooldownSpan = 100.0

	beamCooldown   = 30
	bombCooldown   = 100
	hangarCooldown = 200
	launchCooldown = 400

	bombProximity      = 5.0
	bombSplashRadius   = 10.0
	impactSplashRadius = 10.0
	impactDamage       = 1000.0

	patrolThreshold = 0.99 // a new patrol point is picked when a draw exceeds this
	patrolBox       = 100.0
	patrolArrival   = 2.0
	moveDeadZone    = 1.0

	retainRangeFactor = 2.0
	airScanRange      = 1000.0

	missileSpeedMin  = 0.002
	missileSpeedSpan = 0.005
	missileApex      = 0.5

	effectGrowth        = 0.5
	effectFade          = 0.02
	effectMaxRadiusMin  = 10.0
	effectMaxRadiusSpan = 20.0

	spawnAttempts    = 50
	fighterThreshold = 0.4 // carriers launch a fighter when a draw exceeds this
)
