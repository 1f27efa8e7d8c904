package sim

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warroom/extension/pkg/core"
)

func TestFindTarget_NearestWithStableTieBreak(t *testing.T) {
	f := newFixture(t, allWater, nil)
	sub := f.spawn(core.Sub, core.NorthAmerica, 0, 0)
	sub.Ammo = 0
	f.spawn(core.Carrier, core.Europe, 30, 0)
	first := f.spawn(core.Carrier, core.Europe, 10, 0)
	f.spawn(core.Carrier, core.Europe, -10, 0)
	f.spawn(core.Silo, core.Europe, 1, 0) // closer, but not a sub target
	f.spawn(core.Carrier, core.NorthAmerica, 2, 0)

	got := f.sim.findTarget(sub)

	require.NotNil(t, got)
	assert.Equal(t, first.ID, got.ID)
	assert.Equal(t, first.ID, sub.CombatTarget())
}

func TestFindTarget_ScanRange(t *testing.T) {
	f := newFixture(t, allWater, nil)
	carrier := f.spawn(core.Carrier, core.NorthAmerica, -180, 0)
	fighter := f.spawn(core.Fighter, core.NorthAmerica, -180, 0)
	f.spawn(core.Sub, core.Europe, 0, 0)
	f.spawn(core.Carrier, core.Europe, 0, 0)

	assert.Nil(t, f.sim.findTarget(carrier), "surface units only scan their weapon range")
	assert.NotNil(t, f.sim.findTarget(fighter), "aircraft scan the whole theatre")
}

func TestFindTarget_RetainAndDrop(t *testing.T) {
	f := newFixture(t, allWater, nil)
	sub := f.spawn(core.Sub, core.NorthAmerica, 0, 0)
	near := f.spawn(core.Carrier, core.Europe, 10, 0)
	other := f.spawn(core.Carrier, core.Europe, 20, 0)

	require.Equal(t, near, f.sim.findTarget(sub))

	// Still within twice the range: retained even though no longer in scan range.
	near.Pos.X = sub.Pos.X + 350
	assert.Equal(t, near, f.sim.findTarget(sub))

	// Beyond twice the range: dropped and replaced.
	near.Pos.X = sub.Pos.X + 401
	assert.Equal(t, other, f.sim.findTarget(sub))

	// Dead targets are dropped.
	other.Dead = true
	assert.Nil(t, f.sim.findTarget(sub))
	assert.Zero(t, sub.CombatTarget())
}

func TestFindTarget_FighterNeverGivesUpChase(t *testing.T) {
	f := newFixture(t, allWater, nil)
	fighter := f.spawn(core.Fighter, core.NorthAmerica, 0, 0)
	bomber := f.spawn(core.Bomber, core.Europe, 10, 0)

	require.Equal(t, bomber, f.sim.findTarget(fighter))

	bomber.Pos.X = fighter.Pos.X + 5000
	assert.Equal(t, bomber, f.sim.findTarget(fighter))
}

func TestFireBeam(t *testing.T) {
	f := newFixture(t, allWater, nil)
	f.war(core.NorthAmerica)
	fighter := f.spawn(core.Fighter, core.NorthAmerica, 0, 0)
	bomber := f.spawn(core.Bomber, core.Europe, 10, 0)
	fighter.Cooldown = 1

	f.sim.Step()

	assert.Equal(t, 90.0, bomber.HP)
	assert.Equal(t, float64(beamCooldown), fighter.Cooldown)
	assert.Equal(t, StateAttacking, fighter.State())
}

func TestFireBeam_InFrameForOneTick(t *testing.T) {
	f := newFixture(t, allWater, nil)
	f.war(core.NorthAmerica)
	fighter := f.spawn(core.Fighter, core.NorthAmerica, 0, 0)
	f.spawn(core.Bomber, core.Europe, 10, 0)
	fighter.Cooldown = 1

	f.sim.Step()

	beams := f.sim.Frame().Beams
	require.Len(t, beams, 1)
	assert.Equal(t, core.NorthAmerica, beams[0].Faction)
	assert.Equal(t, fighter.Faction.Color, beams[0].Color)
	assert.Equal(t, fighter.Pos, beams[0].From)

	f.sim.Step()
	assert.Empty(t, f.sim.Frame().Beams, "the fighter is cooling down")
}

func TestFireBeam_OutOfRange(t *testing.T) {
	f := newFixture(t, allWater, nil)
	f.war(core.NorthAmerica)
	fighter := f.spawn(core.Fighter, core.NorthAmerica, 0, 0)
	bomber := f.spawn(core.Bomber, core.Europe, 100, 0)
	fighter.Cooldown = 1

	f.sim.Step()

	assert.Equal(t, 100.0, bomber.HP)
	assert.Equal(t, 0.0, fighter.Cooldown, "cooldown only resets on a shot")
	assert.Empty(t, f.sim.Frame().Beams)
}

func TestCombat_RequiresMaxAlertAndAlertedFaction(t *testing.T) {
	f := newFixture(t, allWater, nil)
	fighter := f.spawn(core.Fighter, core.NorthAmerica, 0, 0)
	bomber := f.spawn(core.Bomber, core.Europe, 10, 0)
	fighter.Cooldown = 0

	f.factions.Get(core.NorthAmerica).Alert()
	f.sim.SetAlertLevel(core.FastPace)
	f.sim.Step()
	assert.Equal(t, 100.0, bomber.HP, "not at maximum alert")

	f.sim.SetAlertLevel(core.MaxAlert)
	fighter.Faction = f.faction(core.SouthAmerica)
	f.sim.Step()
	assert.Equal(t, 100.0, bomber.HP, "faction not alerted")

	fighter.Faction = f.faction(core.NorthAmerica)
	f.sim.Step()
	assert.Equal(t, 90.0, bomber.HP)
}

func TestBomber_StrikesCombatTarget(t *testing.T) {
	f := newFixture(t, allWater, nil)
	f.war(core.NorthAmerica)
	bomber := f.spawn(core.Bomber, core.NorthAmerica, 0, 0)
	silo := f.spawn(core.Silo, core.Europe, 2, 0)
	bystander := f.spawn(core.Sub, core.Europe, 8, 0)
	bomber.Cooldown = 1

	f.sim.Step()

	assert.True(t, silo.Dead)
	assert.True(t, bystander.Dead, "within the impact splash")
	assert.Equal(t, float64(bombCooldown), bomber.Cooldown)
	assert.False(t, bomber.Dead, "the aggressor is spared")

	require.Len(t, f.rec.impacts, 1)
	impact := f.rec.impacts[0]
	assert.Equal(t, core.NorthAmerica, impact.Aggressor)
	assert.Equal(t, core.Africa, impact.Owner, "(2,0) falls in the Africa quadrant")
	assert.True(t, impact.Escalated)
	assert.True(t, f.faction(core.Africa).Alerted())

	// Africa's force was spawned during the tick and joined at its end.
	counts := f.sim.Frame().LiveUnitsByFaction()
	assert.Equal(t, 6, counts[core.Africa], "two carriers and four subs on an all-water map")
	assert.Len(t, f.rec.destroyed, 2)
}

func TestBomber_FliesToTerritoryWhenNoSilo(t *testing.T) {
	f := newFixture(t, allWater, vertexList{{100, 30}})
	bomber := f.spawn(core.Bomber, core.NorthAmerica, 0, 0)

	f.sim.Step()

	target, ok := bomber.MoveTarget()
	require.True(t, ok)
	assert.Equal(t, core.Position2D{X: 300, Y: 70}, target)
	assert.Equal(t, StatePursuing, bomber.State())
}

func TestBomber_PrefersEnemySilo(t *testing.T) {
	f := newFixture(t, allWater, vertexList{{100, 30}})
	bomber := f.spawn(core.Bomber, core.NorthAmerica, 0, 0)
	silo := f.spawn(core.Silo, core.Asia, 120, 40)
	// Keep the silo out of the bomber's combat scan.
	silo.Pos = core.Position2D{X: 1400, Y: 60}

	f.sim.Step()

	target, ok := bomber.MoveTarget()
	require.True(t, ok)
	assert.Equal(t, silo.Pos, target)
}

func TestBomber_NoEnemyTerritoryNoTarget(t *testing.T) {
	f := newFixture(t, allWater, vertexList{{-100, 40}})
	bomber := f.spawn(core.Bomber, core.NorthAmerica, 0, 0)

	f.sim.Step()

	_, ok := bomber.MoveTarget()
	assert.False(t, ok)
	assert.Equal(t, StateIdle, bomber.State())
}

func TestSilo_LaunchesAtTerritory(t *testing.T) {
	f := newFixture(t, allWater, vertexList{{100, 30}})
	f.war(core.NorthAmerica)
	silo := f.spawn(core.Silo, core.NorthAmerica, -100, 40)
	silo.Cooldown = 1

	f.sim.Step()

	assert.Equal(t, 9, silo.Ammo)
	assert.Equal(t, float64(launchCooldown), silo.Cooldown)
	require.Len(t, f.rec.launches, 1)
	launch := f.rec.launches[0]
	assert.Equal(t, silo.ID, launch.Launcher)
	assert.Equal(t, core.LonLat{Lon: 100, Lat: 30}, launch.To)
	assert.InDelta(t, -100, launch.From.Lon, 1e-9)
	assert.InDelta(t, 40, launch.From.Lat, 1e-9)

	require.Len(t, f.sim.Missiles(), 1)
	assert.Zero(t, f.sim.Missiles()[0].Progress, "launched missiles fly from the next tick")
	f.sim.Step()
	assert.InDelta(t, 0.0045, f.sim.Missiles()[0].Progress, 1e-12)
}

func TestSilo_PrefersEnemyAssets(t *testing.T) {
	f := newFixture(t, allWater, vertexList{{100, 30}})
	f.war(core.NorthAmerica)
	silo := f.spawn(core.Silo, core.NorthAmerica, -100, 40)
	carrier := f.spawn(core.Carrier, core.Asia, 110, 10)
	silo.Cooldown = 1

	f.sim.Step()

	require.Len(t, f.rec.launches, 1)
	assert.InDelta(t, 110, f.rec.launches[0].To.Lon, 1e-6)
	assert.InDelta(t, 10, f.rec.launches[0].To.Lat, 1e-6)
	assert.False(t, carrier.Dead)
}

func TestSilo_WithoutAmmoNeverLaunches(t *testing.T) {
	f := newFixture(t, allWater, vertexList{{100, 30}})
	f.war(core.NorthAmerica)
	silo := f.spawn(core.Silo, core.NorthAmerica, -100, 40)
	silo.Ammo = 0

	for range 1000 {
		silo.Cooldown = 0
		f.sim.Step()
	}

	assert.Empty(t, f.rec.launches)
	assert.Empty(t, f.sim.Missiles())
}

func TestSub_LaunchesThenHunts(t *testing.T) {
	f := newFixture(t, allWater, vertexList{{100, 30}})
	f.war(core.NorthAmerica)
	sub := f.spawn(core.Sub, core.NorthAmerica, -40, 10)
	sub.Ammo = 1
	sub.Cooldown = 1

	f.sim.Step()
	assert.Equal(t, 0, sub.Ammo)
	assert.Len(t, f.rec.launches, 1)

	enemy := f.spawn(core.Sub, core.Asia, -35, 10)
	sub.Cooldown = 1
	f.sim.Step()

	assert.Equal(t, 250.0, enemy.HP, "out of missiles, the sub uses torpedoes")
	assert.Equal(t, float64(beamCooldown), sub.Cooldown)
}

func TestEnemyWithoutTerritoryIsNeverTargeted(t *testing.T) {
	f := newFixture(t, allWater, vertexList{{-100, 40}, {100, 30}})
	f.war(core.NorthAmerica, core.Asia)
	f.sim.rng = NewRandom(7)
	silo := f.spawn(core.Silo, core.NorthAmerica, -100, 40)
	euSilo := f.spawn(core.Silo, core.Europe, 10, 50) // Europe holds no territory
	bomber := f.spawn(core.Bomber, core.Asia, 100, 30)

	for range 50 {
		silo.Ammo = 10
		silo.Cooldown = 0
		f.sim.Step()
	}
	require.Len(t, f.rec.launches, 50)
	for _, l := range f.rec.launches {
		assert.Equal(t, core.LonLat{Lon: 100, Lat: 30}, l.To)
	}

	for range 50 {
		bomber.moveTarget = nil
		f.sim.findStrikeTarget(bomber)
		target, ok := bomber.MoveTarget()
		require.True(t, ok)
		assert.Equal(t, silo.Pos, target)
		assert.NotEqual(t, euSilo.Pos, target)
	}
}

func TestCarrier_LaunchesAircraft(t *testing.T) {
	f := newFixture(t, allWater, nil)
	f.war()
	carrier := f.spawn(core.Carrier, core.NorthAmerica, -40, 10)
	carrier.Cooldown = 1

	f.sim.Step()

	require.Len(t, f.sim.Units(), 2)
	aircraft := f.sim.Units()[1]
	assert.Equal(t, core.Fighter, aircraft.Archetype, "draw 0.5 exceeds 0.4")
	assert.Equal(t, carrier.Faction, aircraft.Faction)
	assert.InDelta(t, carrier.Pos.X, aircraft.Pos.X, 1e-9)
	assert.Equal(t, 100.0, aircraft.Cooldown, "not updated in the tick it was born")
	assert.Equal(t, 9, carrier.Hangar)
	assert.Equal(t, float64(hangarCooldown), carrier.Cooldown)

	f.sim.Step()
	assert.Equal(t, 99.0, aircraft.Cooldown)
}

func TestCarrier_BomberOnLowDraw(t *testing.T) {
	f := newFixture(t, allWater, nil)
	f.war()
	carrier := f.spawn(core.Carrier, core.NorthAmerica, -40, 10)
	carrier.Cooldown = 1
	f.rng.floats = []float64{0.4}

	f.sim.Step()

	require.Len(t, f.sim.Units(), 2)
	assert.Equal(t, core.Bomber, f.sim.Units()[1].Archetype)
}

func TestCarrier_EmptyHangarNeverSpawns(t *testing.T) {
	f := newFixture(t, allWater, nil)
	f.war(core.NorthAmerica)
	carrier := f.spawn(core.Carrier, core.NorthAmerica, -40, 10)
	carrier.Hangar = 0

	for range 500 {
		carrier.Cooldown = 0
		f.sim.Step()
	}

	assert.Len(t, f.sim.Units(), 1)
}

func TestCarrier_OnlyAtMaxAlert(t *testing.T) {
	f := newFixture(t, allWater, nil)
	carrier := f.spawn(core.Carrier, core.NorthAmerica, -40, 10)
	f.sim.SetAlertLevel(core.FastPace)

	for range 300 {
		carrier.Cooldown = 0
		f.sim.Step()
	}

	assert.Len(t, f.sim.Units(), 1)
	assert.Equal(t, 10, carrier.Hangar)
}
