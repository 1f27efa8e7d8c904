package sim

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warroom/extension/internal/faction"
	"github.com/warroom/extension/internal/geo"
	"github.com/warroom/extension/pkg/core"
)

func TestNew_Defaults(t *testing.T) {
	s := New(Config{
		Projector: geo.NewProjector(400, 200),
		Land:      allWater,
		Factions:  faction.NewRegistry(),
	})

	assert.Equal(t, core.FadeOut, s.AlertLevel())
	assert.Zero(t, s.Tick())
	assert.NotNil(t, s.rng)
	assert.IsType(t, NopRecorder{}, s.rec)

	s.Step()
	assert.Equal(t, uint64(1), s.Tick())
}

func TestSetAlertLevel(t *testing.T) {
	f := newFixture(t, allWater, nil)

	assert.False(t, f.sim.SetAlertLevel(0))
	assert.False(t, f.sim.SetAlertLevel(6))
	assert.False(t, f.sim.SetAlertLevel(core.FadeOut), "unchanged")
	assert.True(t, f.sim.SetAlertLevel(core.RoundHouse))
	assert.Equal(t, core.RoundHouse, f.sim.AlertLevel())

	require.Len(t, f.rec.alerts, 1)
	assert.Equal(t, core.FadeOut, f.rec.alerts[0].Previous)
	assert.Equal(t, core.RoundHouse, f.rec.alerts[0].Level)
}

func TestStep_SweepsDeadAndDropsWeakReferences(t *testing.T) {
	f := newFixture(t, allWater, nil)
	sub := f.spawn(core.Sub, core.NorthAmerica, 0, 0)
	sub.Ammo = 0
	target := f.spawn(core.Carrier, core.Europe, 5, 0)
	require.Equal(t, target, f.sim.findTarget(sub))

	f.sim.damage(target, 5000)
	_, ok := f.sim.Unit(target.ID)
	assert.False(t, ok, "dead units do not resolve before the sweep")
	assert.Len(t, f.sim.Units(), 2, "dead units stay until the end of the tick")

	f.sim.Step()

	assert.Len(t, f.sim.Units(), 1)
	assert.NotContains(t, f.sim.index, target.ID)
	assert.Zero(t, sub.CombatTarget())
}

func TestVictory_DeclaredOnceAndNeverRetracted(t *testing.T) {
	f := newFixture(t, allWater, nil)
	f.war(core.NorthAmerica, core.Europe)
	na := f.spawn(core.Sub, core.NorthAmerica, -40, 10)
	eu := f.spawn(core.Sub, core.Europe, 100, -40)

	f.sim.Step()
	_, ok := f.sim.Victory()
	assert.False(t, ok)

	f.sim.damage(eu, 1000)
	f.sim.Step()

	winner, ok := f.sim.Victory()
	require.True(t, ok)
	assert.Equal(t, core.NorthAmerica, winner)
	assert.Equal(t, core.NorthAmerica, f.sim.Frame().Winner)

	f.sim.damage(na, 1000)
	f.spawn(core.Sub, core.Europe, 100, -40)
	f.steps(10)

	winner, ok = f.sim.Victory()
	assert.True(t, ok)
	assert.Equal(t, core.NorthAmerica, winner)
	require.Len(t, f.rec.victories, 1)
	assert.Equal(t, 2, f.rec.victories[0].Alerted)
	assert.Equal(t, uint64(2), f.rec.victories[0].Tick)
}

func TestVictory_NeedsTwoAlertedFactions(t *testing.T) {
	f := newFixture(t, allWater, nil)
	f.war(core.NorthAmerica)
	f.spawn(core.Sub, core.NorthAmerica, -40, 10)

	f.steps(5)

	_, ok := f.sim.Victory()
	assert.False(t, ok)
}

func TestVictory_OnlyAtMaxAlert(t *testing.T) {
	f := newFixture(t, allWater, nil)
	f.factions.Get(core.NorthAmerica).Alert()
	f.factions.Get(core.Europe).Alert()
	f.spawn(core.Sub, core.NorthAmerica, -40, 10)
	f.sim.SetAlertLevel(core.FastPace)

	f.steps(5)
	_, ok := f.sim.Victory()
	assert.False(t, ok)

	f.sim.SetAlertLevel(core.MaxAlert)
	f.sim.Step()
	_, ok = f.sim.Victory()
	assert.True(t, ok)
}

func TestVictory_IgnoresRogueUnits(t *testing.T) {
	f := newFixture(t, allWater, nil)
	f.war(core.NorthAmerica, core.Europe)
	f.spawn(core.Sub, core.Rogue, 0, 0)
	f.spawn(core.Sub, core.NorthAmerica, -40, 10)

	f.sim.Step()

	winner, ok := f.sim.Victory()
	require.True(t, ok)
	assert.Equal(t, core.NorthAmerica, winner)
}

func TestFrame(t *testing.T) {
	f := newFixture(t, allWater, nil)
	u := f.spawn(core.Carrier, core.Asia, 100, 0)
	u.TakeDamage(250)
	f.sim.Launch(f.factions.Aggressor(), core.LonLat{Lon: 0, Lat: 0}, core.LonLat{Lon: 10, Lat: 0})
	f.sim.addEffect(core.Position2D{X: 1, Y: 2}, f.faction(core.Asia))

	f.sim.Step()
	frame := f.sim.Frame()

	assert.Equal(t, uint64(1), frame.Tick)
	assert.Equal(t, core.FadeOut, frame.AlertLevel)
	assert.Equal(t, 400.0, frame.Width)
	assert.Equal(t, 200.0, frame.Height)
	assert.Empty(t, frame.Winner)

	require.Len(t, frame.Units, 1)
	assert.Equal(t, core.UnitView{
		ID:             u.ID,
		Archetype:      core.Carrier,
		Faction:        core.Asia,
		Color:          "#ff9900",
		Position:       core.Position2D{X: 300, Y: 100},
		HealthFraction: 0.75,
		State:          string(StateIdle),
	}, frame.Units[0])

	require.Len(t, frame.Missiles, 1)
	assert.Equal(t, core.Rogue, frame.Missiles[0].Faction)
	assert.Greater(t, frame.Missiles[0].Progress, 0.0)

	require.Len(t, frame.Effects, 1)
	assert.Equal(t, 1.5, frame.Effects[0].Radius)
}

func TestSetViewport_FreezesPositions(t *testing.T) {
	f := newFixture(t, allWater, nil)
	u := f.spawn(core.Silo, core.Asia, 100, 0)
	before := u.Pos

	f.sim.SetViewport(800, 400)
	f.sim.Step()

	assert.Equal(t, before, u.Pos)
	frame := f.sim.Frame()
	assert.Equal(t, 800.0, frame.Width)
	later := f.spawn(core.Silo, core.Asia, 100, 0)
	assert.NotEqual(t, before, later.Pos)
}

func TestLogRecorder(t *testing.T) {
	var buf bytes.Buffer
	rec := LogRecorder{Logger: slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))}
	multi := MultiRecorder{rec, NopRecorder{}}

	multi.RecordImpact(core.ImpactEvent{Tick: 3, Aggressor: core.Rogue, Owner: core.Europe, Escalated: true})
	multi.RecordVictory(core.VictoryEvent{Tick: 9, Winner: core.Asia, Alerted: 3})
	multi.RecordAlert(core.AlertEvent{Tick: 1, Previous: core.FastPace, Level: core.CockedPistol})

	out := buf.String()
	assert.Contains(t, out, "msg=Impact")
	assert.Contains(t, out, "owner=EU")
	assert.Contains(t, out, "escalated=true")
	assert.Contains(t, out, "winner=AS")
	assert.Contains(t, out, `label="COCKED PISTOL"`)
}

// TestSimulation_Invariants runs a full war on the embedded world and checks
// the properties that must hold on every tick.
func TestSimulation_Invariants(t *testing.T) {
	if testing.Short() {
		t.Skip("long simulation run")
	}
	land := geo.DefaultLand()
	reg := faction.NewRegistry()
	reg.AssignTerritory(land)
	proj := geo.NewProjector(1920, 1080)
	rec := &captureRecorder{}
	s := New(Config{
		Projector: proj,
		Land:      land,
		Factions:  reg,
		Random:    NewRandom(42),
		Recorder:  rec,
	})
	s.Launch(reg.Aggressor(), core.LonLat{Lon: -74, Lat: 40.7}, core.LonLat{Lon: -100, Lat: 40})
	s.SetAlertLevel(core.MaxAlert)
	for _, f := range reg.All() {
		if f.Alert() {
			s.Mobilize(f)
		}
	}
	require.NotEmpty(t, s.Units())

	hp := make(map[uint64]float64)
	alerted := make(map[core.FactionID]bool)
	var winner core.FactionID
	for range 3000 {
		s.Step()
		for _, u := range s.Units() {
			require.False(t, u.Dead, "dead units are swept at the end of the tick")
			require.LessOrEqual(t, u.HP, u.MaxHP)
			if prev, ok := hp[u.ID]; ok {
				require.LessOrEqual(t, u.HP, prev, "health never increases")
			}
			hp[u.ID] = u.HP
			if u.Archetype.Naval() {
				ll := proj.Unproject(u.Pos)
				require.False(t, land.IsOnLand(ll.Lon, ll.Lat), "naval unit %d on land at %+v", u.ID, ll)
			}
		}
		for _, f := range reg.All() {
			if alerted[f.ID] {
				require.True(t, f.Alerted(), "alert flags never reset")
			}
			alerted[f.ID] = f.Alerted()
		}
		if w, ok := s.Victory(); ok {
			if winner == "" {
				winner = w
			}
			require.Equal(t, winner, w, "victory is never retracted")
		}
	}
	assert.LessOrEqual(t, len(rec.victories), 1)
	assert.NotEmpty(t, rec.launches)
}

func TestRandomTarget(t *testing.T) {
	f := newFixture(t, allWater, nil)
	_, ok := f.sim.RandomTarget()
	assert.False(t, ok, "no targets without world geometry")

	f = newFixture(t, allWater, vertexList{{10, 50}, {120, 30}})
	f.rng.ints = []int{1}
	got, ok := f.sim.RandomTarget()
	require.True(t, ok)
	assert.Equal(t, core.LonLat{Lon: 120, Lat: 30}, got)
}
