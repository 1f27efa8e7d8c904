package faction

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warroom/extension/pkg/core"
)

type vertices [][2]float64

func (v vertices) EachVertex(fn func(lon, lat float64)) {
	for _, p := range v {
		fn(p[0], p[1])
	}
}

func TestNewRegistry_Order(t *testing.T) {
	r := NewRegistry()

	var ids []core.FactionID
	for _, f := range r.All() {
		ids = append(ids, f.ID)
	}
	assert.Equal(t, []core.FactionID{
		core.NorthAmerica, core.SouthAmerica, core.Europe, core.Africa,
		core.Russia, core.Asia, core.Rogue,
	}, ids)
}

func TestNewRegistry_RogueStartsAlerted(t *testing.T) {
	r := NewRegistry()

	rogue := r.Aggressor()
	require.NotNil(t, rogue)
	assert.True(t, rogue.Alerted())
	assert.Nil(t, rogue.Spawn)
	assert.Equal(t, 0, r.AlertedCount())

	for _, f := range r.All() {
		if f.ID != core.Rogue {
			assert.False(t, f.Alerted(), f.ID)
			assert.NotNil(t, f.Spawn, f.ID)
		}
	}
}

func TestFaction_AlertIsMonotonic(t *testing.T) {
	f := NewRegistry().Get(core.Europe)

	assert.True(t, f.Alert(), "first alert flips the flag")
	assert.False(t, f.Alert(), "second alert is a no-op")
	assert.True(t, f.Alerted())
}

func TestClassify(t *testing.T) {
	tests := []struct {
		lon, lat float64
		want     core.FactionID
	}{
		{-100, 40, core.NorthAmerica},
		{-60, -20, core.SouthAmerica},
		{-60, 15, core.SouthAmerica},
		{10, 50, core.Europe},
		{20, 0, core.Africa},
		{50, 10, core.Africa},
		{90, 60, core.Russia},
		{100, 30, core.Asia},
		{120, -25, core.Asia},
		{-30, 50, ""},
		{50, 40, ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Classify(tt.lon, tt.lat), "(%v,%v)", tt.lon, tt.lat)
	}
}

func TestAssignTerritory(t *testing.T) {
	r := NewRegistry()
	r.AssignTerritory(vertices{{-100, 40}, {-90, 45}, {20, 0}, {-30, 50}})

	assert.Len(t, r.Targets(), 4, "unclassified vertices still count as global targets")
	assert.Equal(t, []core.LonLat{{Lon: -100, Lat: 40}, {Lon: -90, Lat: 45}},
		r.Get(core.NorthAmerica).Territory())
	assert.True(t, r.Get(core.Africa).HasTerritory())
	assert.False(t, r.Get(core.Europe).HasTerritory())
	assert.False(t, r.Aggressor().HasTerritory())
}

func TestOwner_TerritoryBeforeQuadrant(t *testing.T) {
	r := NewRegistry()
	// An Africa vertex just south of the Europe quadrant line.
	r.AssignTerritory(vertices{{10, 29}})

	// (10, 32) classifies as Europe but lies within 5 degrees of the Africa point.
	assert.Equal(t, core.Africa, r.Owner(10, 32).ID)
	// Farther north only the quadrant rule applies.
	assert.Equal(t, core.Europe, r.Owner(10, 40).ID)
}

func TestOwner_Tolerance(t *testing.T) {
	r := NewRegistry()
	r.AssignTerritory(vertices{{100, 30}})

	assert.Equal(t, core.Asia, r.Owner(104.9, 25.1).ID)
	// Exactly 5 degrees away on one axis is outside; falls back to Classify.
	assert.Equal(t, core.Asia, r.Owner(105, 30).ID)
	assert.Nil(t, r.Owner(50, 40), "open ocean between quadrants has no owner")
}

func TestFaction_Claims(t *testing.T) {
	r := NewRegistry()
	r.AssignTerritory(vertices{{100, 30}})
	asia := r.Get(core.Asia)

	assert.True(t, asia.Claims(97.5, 32.5, 5), "points west and north of the vertex")
	assert.True(t, asia.Claims(102.5, 27.5, 5), "points east and south of the vertex")
	assert.False(t, asia.Claims(94, 30, 5))
	assert.False(t, asia.Claims(100, 35, 5), "tolerance is exclusive")
	assert.False(t, r.Get(core.Europe).Claims(100, 30, 5))
}

func TestEnemies(t *testing.T) {
	r := NewRegistry()
	r.AssignTerritory(vertices{{-100, 40}, {20, 0}, {100, 30}})

	na := r.Get(core.NorthAmerica)
	var ids []core.FactionID
	for _, f := range r.Enemies(na) {
		ids = append(ids, f.ID)
	}
	assert.Equal(t, []core.FactionID{core.Africa, core.Asia}, ids,
		"factions without territory and the rogue faction are never enemies")

	ids = ids[:0]
	for _, f := range r.Enemies(r.Aggressor()) {
		ids = append(ids, f.ID)
	}
	assert.Equal(t, []core.FactionID{core.NorthAmerica, core.Africa, core.Asia}, ids)
}

func TestAlertedCount(t *testing.T) {
	r := NewRegistry()
	r.Get(core.Russia).Alert()
	r.Get(core.Asia).Alert()
	r.Get(core.Asia).Alert()

	assert.Equal(t, 2, r.AlertedCount())
}
