// Package sim is the war room engine: units, missiles, effects, impact
// resolution, mobilization and the victory tracker, advanced one tick at a
// time from a single goroutine.
package sim

import (
	"time"

	"github.com/warroom/extension/internal/faction"
	"github.com/warroom/extension/internal/geo"
	"github.com/warroom/extension/internal/queue"
	"github.com/warroom/extension/pkg/core"
)

// Terrain answers land/water queries in geographic coordinates.
type Terrain interface {
	IsOnLand(lon, lat float64) bool
}

// Config holds the collaborators of a Simulation. Projector, Land and
// Factions are required.
type Config struct {
	Projector *geo.Projector
	Land      Terrain
	Factions  *faction.Registry

	// Random defaults to a time-seeded source.
	Random Random
	// Recorder defaults to NopRecorder.
	Recorder Recorder
	// AlertLevel defaults to core.FadeOut.
	AlertLevel core.AlertLevel
}

// Simulation owns every live entity. It is not safe for concurrent use;
// callers serialize Step and the mutating methods.
type Simulation struct {
	proj     *geo.Projector
	land     Terrain
	factions *faction.Registry
	rng      Random
	rec      Recorder

	tick   uint64
	level  core.AlertLevel
	nextID uint64
	winner *faction.Faction

	units    []*Unit
	missiles []*Missile
	effects  []*Effect
	index    map[uint64]*Unit

	// beams fired during the current tick; reset at the start of Step.
	beams []core.BeamView

	// Entities created during a tick wait here until the tick boundary.
	stepping        bool
	pendingUnits    *queue.Queue[*Unit]
	pendingMissiles *queue.Queue[*Missile]
	pendingEffects  *queue.Queue[*Effect]
}

// New creates an empty simulation.
func New(cfg Config) *Simulation {
	if cfg.Random == nil {
		cfg.Random = NewRandom(time.Now().UnixNano())
	}
	if cfg.Recorder == nil {
		cfg.Recorder = NopRecorder{}
	}
	if !cfg.AlertLevel.Valid() {
		cfg.AlertLevel = core.FadeOut
	}
	return &Simulation{
		proj:            cfg.Projector,
		land:            cfg.Land,
		factions:        cfg.Factions,
		rng:             cfg.Random,
		rec:             cfg.Recorder,
		level:           cfg.AlertLevel,
		index:           make(map[uint64]*Unit),
		pendingUnits:    queue.New[*Unit](),
		pendingMissiles: queue.New[*Missile](),
		pendingEffects:  queue.New[*Effect](),
	}
}

// Step advances the simulation by one tick: units, then missiles, then
// effects; dead entities are swept, entities created during the tick join
// the live collections, and victory is evaluated.
func (s *Simulation) Step() {
	s.tick++
	s.beams = s.beams[:0]
	s.stepping = true
	for _, u := range s.units {
		s.updateUnit(u)
	}
	for _, m := range s.missiles {
		if m.advance() {
			s.addEffect(m.End, m.Faction)
			s.resolveImpact(m.End, m.Faction)
		}
	}
	for _, e := range s.effects {
		e.advance()
	}
	s.stepping = false

	s.sweep()
	s.merge()
	s.checkVictory()
}

func (s *Simulation) sweep() {
	live := s.units[:0]
	for _, u := range s.units {
		if u.Dead {
			delete(s.index, u.ID)
			continue
		}
		live = append(live, u)
	}
	clear(s.units[len(live):])
	s.units = live

	missiles := s.missiles[:0]
	for _, m := range s.missiles {
		if !m.Dead {
			missiles = append(missiles, m)
		}
	}
	clear(s.missiles[len(missiles):])
	s.missiles = missiles

	effects := s.effects[:0]
	for _, e := range s.effects {
		if !e.Dead {
			effects = append(effects, e)
		}
	}
	clear(s.effects[len(effects):])
	s.effects = effects
}

func (s *Simulation) merge() {
	for _, u := range s.pendingUnits.Drain() {
		if u.Dead {
			delete(s.index, u.ID)
			continue
		}
		s.units = append(s.units, u)
	}
	s.missiles = append(s.missiles, s.pendingMissiles.Drain()...)
	s.effects = append(s.effects, s.pendingEffects.Drain()...)
}

// Spawn creates a unit at a geographic point. Units created during a tick
// are updated from the next tick on.
func (s *Simulation) Spawn(kind core.Archetype, f *faction.Faction, at core.LonLat) *Unit {
	s.nextID++
	cooldown := s.rng.Float64()*initialCooldownSpan + initialCooldownMin
	u := newUnit(s.nextID, kind, f, s.proj.ProjectLonLat(at), at, cooldown)
	s.index[u.ID] = u
	if s.stepping {
		s.pendingUnits.Push(u)
	} else {
		s.units = append(s.units, u)
	}
	return u
}

// Launch fires a missile between two geographic points on behalf of f.
// It is the entry point for bombardment from outside the simulation.
func (s *Simulation) Launch(f *faction.Faction, from, to core.LonLat) *Missile {
	return s.launch(f, from, to, 0)
}

func (s *Simulation) launch(f *faction.Faction, from, to core.LonLat, launcher uint64) *Missile {
	speed := s.rng.Float64()*missileSpeedSpan + missileSpeedMin
	m := newMissile(f, s.proj.ProjectLonLat(from), s.proj.ProjectLonLat(to), speed)
	m.Launcher = launcher
	if s.stepping {
		s.pendingMissiles.Push(m)
	} else {
		s.missiles = append(s.missiles, m)
	}
	s.rec.RecordLaunch(core.LaunchEvent{
		Tick:     s.tick,
		Faction:  f.ID,
		Launcher: launcher,
		From:     from,
		To:       to,
	})
	return m
}

func (s *Simulation) addEffect(p core.Position2D, f *faction.Faction) {
	e := newEffect(f, p, s.rng.Float64()*effectMaxRadiusSpan+effectMaxRadiusMin)
	if s.stepping {
		s.pendingEffects.Push(e)
	} else {
		s.effects = append(s.effects, e)
	}
}

// damage applies damage and records the death when it kills. It reports
// whether u died from this hit.
func (s *Simulation) damage(u *Unit, amount float64) bool {
	if !u.TakeDamage(amount) {
		return false
	}
	s.addEffect(u.Pos, u.Faction)
	s.rec.RecordDestroyed(core.DestroyedEvent{
		Tick:      s.tick,
		UnitID:    u.ID,
		Archetype: u.Archetype,
		Faction:   u.Faction.ID,
		Position:  u.Pos,
	})
	return true
}

// ResolveImpact applies impact resolution at a plane point as if a weapon
// of aggressor had landed there.
func (s *Simulation) ResolveImpact(p core.Position2D, aggressor *faction.Faction) core.ImpactEvent {
	return s.resolveImpact(p, aggressor)
}

// unit resolves a weak unit reference. It returns nil for unknown or dead units.
func (s *Simulation) unit(id uint64) *Unit {
	if id == 0 {
		return nil
	}
	u, ok := s.index[id]
	if !ok || u.Dead {
		return nil
	}
	return u
}

// liveUnits returns the live units of f whose archetype is one of kinds, in
// scan order.
func (s *Simulation) liveUnits(f *faction.Faction, kinds ...core.Archetype) []*Unit {
	var out []*Unit
	for _, u := range s.units {
		if u.Dead || u.Faction != f {
			continue
		}
		for _, k := range kinds {
			if u.Archetype == k {
				out = append(out, u)
				break
			}
		}
	}
	return out
}

// SetAlertLevel changes the global alert level. Invalid levels are ignored.
// It reports whether the level changed.
func (s *Simulation) SetAlertLevel(level core.AlertLevel) bool {
	if !level.Valid() || level == s.level {
		return false
	}
	prev := s.level
	s.level = level
	s.rec.RecordAlert(core.AlertEvent{Tick: s.tick, Previous: prev, Level: level})
	return true
}

// RandomTarget returns a uniformly chosen global target point, drawn from
// the simulation's random source.
func (s *Simulation) RandomTarget() (core.LonLat, bool) {
	targets := s.factions.Targets()
	if len(targets) == 0 {
		return core.LonLat{}, false
	}
	return pick(s.rng, targets), true
}

// SetViewport resizes the projection. Existing entities keep their plane
// positions.
func (s *Simulation) SetViewport(width, height float64) {
	s.proj.SetViewport(width, height)
}

// AlertLevel returns the current alert level.
func (s *Simulation) AlertLevel() core.AlertLevel { return s.level }

// Tick returns the number of completed steps.
func (s *Simulation) Tick() uint64 { return s.tick }

// Factions returns the faction registry.
func (s *Simulation) Factions() *faction.Registry { return s.factions }

// Projector returns the coordinate projector.
func (s *Simulation) Projector() *geo.Projector { return s.proj }

// Units returns the live unit collection in update order. The slice is owned
// by the simulation.
func (s *Simulation) Units() []*Unit { return s.units }

// Missiles returns the missiles in flight.
func (s *Simulation) Missiles() []*Missile { return s.missiles }

// Effects returns the active effects.
func (s *Simulation) Effects() []*Effect { return s.effects }

// Unit returns a live unit by ID.
func (s *Simulation) Unit(id uint64) (*Unit, bool) {
	u := s.unit(id)
	return u, u != nil
}

// Victory returns the declared winner, if any.
func (s *Simulation) Victory() (core.FactionID, bool) {
	if s.winner == nil {
		return "", false
	}
	return s.winner.ID, true
}

// Frame snapshots the render-facing state.
func (s *Simulation) Frame() core.Frame {
	w, h := s.proj.Viewport()
	f := core.Frame{
		Tick:       s.tick,
		AlertLevel: s.level,
		Width:      w,
		Height:     h,
		Units:      make([]core.UnitView, 0, len(s.units)),
		Missiles:   make([]core.MissileView, 0, len(s.missiles)),
		Effects:    make([]core.EffectView, 0, len(s.effects)),
		Beams:      make([]core.BeamView, len(s.beams)),
	}
	copy(f.Beams, s.beams)
	for _, u := range s.units {
		if !u.Dead {
			f.Units = append(f.Units, u.view())
		}
	}
	for _, m := range s.missiles {
		f.Missiles = append(f.Missiles, m.view())
	}
	for _, e := range s.effects {
		f.Effects = append(f.Effects, e.view())
	}
	if s.winner != nil {
		f.Winner = s.winner.ID
	}
	return f
}
