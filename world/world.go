// Package world owns the World record, the System abstraction, and the
// Scheduler that drives one tick. It depends only on mathx and state; the
// concrete systems (rigidsys, mdsys) depend on it, not the other way
// around, so there is no import cycle.
package world

import (
	"github.com/minerva-sim/minerva/mathx"
	"github.com/minerva-sim/minerva/state"
)

// DefaultGravity is (0, -9.81, 0), Earth gravity pointing along -Y.
var DefaultGravity = mathx.New(0, -9.81, 0)

// System is the uniform capability every registered module exposes: a
// name for diagnostics and a single step operation. This is a capability
// interface, not a base class — the scheduler holds a list of these behind
// the interface and never introspects which concrete type backs one.
type System interface {
	Name() string
	Step(w *World, dt float64)
}

// schedulerEntry pairs a system with its configured substep count.
type schedulerEntry struct {
	system   System
	substeps int
}

// Scheduler drives one world tick by calling each registered system's Step
// substeps times in a row, on equal-duration sub-intervals of dt, before
// moving on to the next system. Order is registration order; there is no
// reordering, deduplication, or parallelism between systems.
type Scheduler struct {
	entries []schedulerEntry
}

// Register appends system to the ordered list, to be stepped substeps
// times per tick. substeps must be >= 1; values below that are clamped up
// to 1, since a system that never steps would silently break the
// orchestrator's "systems execute to completion" guarantee.
func (s *Scheduler) Register(system System, substeps int) {
	if substeps < 1 {
		substeps = 1
	}
	s.entries = append(s.entries, schedulerEntry{system: system, substeps: substeps})
}

// Systems returns the registered systems in registration order, for
// introspection by callers (e.g. the CLI's "inspect" subcommand).
func (s *Scheduler) Systems() []System {
	out := make([]System, len(s.entries))
	for i, e := range s.entries {
		out[i] = e.system
	}
	return out
}

// Tick advances w by dt: for every registered system in order, it computes
// h = dt / substeps and calls Step(w, h) exactly substeps times before
// moving to the next system.
func (s *Scheduler) Tick(w *World, dt float64) {
	for _, e := range s.entries {
		h := dt / float64(e.substeps)
		for i := 0; i < e.substeps; i++ {
			e.system.Step(w, h)
		}
	}
}

// World is the single mutable record every system reads and writes during
// a tick: the clock, gravity, the rigid-body array, and the particle set.
// Systems may not retain references to a World across ticks — the
// scheduler hands out the same borrow to each system in turn, for the
// duration of one Tick call only.
type World struct {
	Time      float64
	Gravity   mathx.Vec3
	Bodies    []*state.RigidBody
	Particles *state.ParticleSet
	Scheduler Scheduler
}

// New returns a World with default gravity and an empty particle set.
func New() *World {
	return &World{
		Gravity:   DefaultGravity,
		Particles: state.NewParticleSet(0),
	}
}

// AddBody appends a rigid body to the world.
func (w *World) AddBody(b *state.RigidBody) {
	w.Bodies = append(w.Bodies, b)
}

// AddParticle appends a particle to the world's particle set and returns
// its index.
func (w *World) AddParticle(p state.Particle) int {
	return w.Particles.Add(p)
}

// Register registers a system with the world's scheduler.
func (w *World) Register(system System, substeps int) {
	w.Scheduler.Register(system, substeps)
}

// Step advances the world by exactly dt: the scheduler runs every
// registered system to completion, then the clock advances by dt
// regardless of how many internal substeps any system used.
func (w *World) Step(dt float64) {
	w.Scheduler.Tick(w, dt)
	w.Time += dt
}
