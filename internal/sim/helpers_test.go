package sim

import (
	"testing"

	"github.com/warroom/extension/internal/faction"
	"github.com/warroom/extension/internal/geo"
	"github.com/warroom/extension/pkg/core"
)

// scriptedRandom replays fixed draws, then returns fallback forever.
type scriptedRandom struct {
	floats   []float64
	ints     []int
	fallback float64
}

func (r *scriptedRandom) Float64() float64 {
	if len(r.floats) == 0 {
		return r.fallback
	}
	v := r.floats[0]
	r.floats = r.floats[1:]
	return v
}

func (r *scriptedRandom) Intn(n int) int {
	if len(r.ints) == 0 {
		return 0
	}
	v := r.ints[0]
	r.ints = r.ints[1:]
	return v % n
}

// terrainFunc adapts a function to Terrain.
type terrainFunc func(lon, lat float64) bool

func (f terrainFunc) IsOnLand(lon, lat float64) bool { return f(lon, lat) }

var (
	allWater = terrainFunc(func(float64, float64) bool { return false })
	allLand  = terrainFunc(func(float64, float64) bool { return true })
)

type vertexList [][2]float64

func (v vertexList) EachVertex(fn func(lon, lat float64)) {
	for _, p := range v {
		fn(p[0], p[1])
	}
}

// captureRecorder keeps every event for assertions.
type captureRecorder struct {
	launches      []core.LaunchEvent
	impacts       []core.ImpactEvent
	mobilizations []core.MobilizationEvent
	destroyed     []core.DestroyedEvent
	alerts        []core.AlertEvent
	victories     []core.VictoryEvent
}

func (c *captureRecorder) RecordLaunch(e core.LaunchEvent)   { c.launches = append(c.launches, e) }
func (c *captureRecorder) RecordImpact(e core.ImpactEvent)   { c.impacts = append(c.impacts, e) }
func (c *captureRecorder) RecordAlert(e core.AlertEvent)     { c.alerts = append(c.alerts, e) }
func (c *captureRecorder) RecordVictory(e core.VictoryEvent) { c.victories = append(c.victories, e) }
func (c *captureRecorder) RecordDestroyed(e core.DestroyedEvent) {
	c.destroyed = append(c.destroyed, e)
}
func (c *captureRecorder) RecordMobilization(e core.MobilizationEvent) {
	c.mobilizations = append(c.mobilizations, e)
}

type fixture struct {
	sim      *Simulation
	rec      *captureRecorder
	rng      *scriptedRandom
	factions *faction.Registry
}

// newFixture builds a simulation on a 400x200 viewport, where the
// projection is exactly (lon+200, 100-lat): one degree is one plane unit.
// Draws default to 0.5, so units never pick patrol points and start with a
// cooldown of 100.
func newFixture(t *testing.T, land Terrain, territory vertexList) *fixture {
	t.Helper()
	reg := faction.NewRegistry()
	reg.AssignTerritory(territory)
	rec := &captureRecorder{}
	rng := &scriptedRandom{fallback: 0.5}
	s := New(Config{
		Projector: geo.NewProjector(400, 200),
		Land:      land,
		Factions:  reg,
		Random:    rng,
		Recorder:  rec,
	})
	return &fixture{sim: s, rec: rec, rng: rng, factions: reg}
}

func (f *fixture) faction(id core.FactionID) *faction.Faction {
	return f.factions.Get(id)
}

func (f *fixture) spawn(kind core.Archetype, id core.FactionID, lon, lat float64) *Unit {
	return f.sim.Spawn(kind, f.factions.Get(id), core.LonLat{Lon: lon, Lat: lat})
}

// war puts the simulation at maximum alert with the given factions alerted.
func (f *fixture) war(ids ...core.FactionID) {
	for _, id := range ids {
		f.factions.Get(id).Alert()
	}
	f.sim.SetAlertLevel(core.MaxAlert)
}

func (f *fixture) steps(n int) {
	for range n {
		f.sim.Step()
	}
}
