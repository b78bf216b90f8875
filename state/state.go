// Package state holds the plain data containers the engine advances each
// tick: rigid bodies, particles, and the ordered particle set. None of the
// types here carry behavior beyond simple accessors — the systems in
// rigidsys and mdsys own the physics.
package state

import "github.com/minerva-sim/minerva/mathx"

// DefaultMass and DefaultRadius are the RigidBody zero-value replacements
// used by NewRigidBody.
const (
	DefaultMass   = 1.0
	DefaultRadius = 0.5
)

// RigidBody is a sphere: position, velocity, mass, radius, and a kinematic
// flag. A kinematic body (or one with non-positive mass) is immovable —
// gravity and impulses never touch it, and only its owner mutates its
// position/velocity directly between ticks.
type RigidBody struct {
	Position  mathx.Vec3
	Velocity  mathx.Vec3
	Mass      float64
	Radius    float64
	Kinematic bool
}

// NewRigidBody builds a dynamic sphere at the given position with the
// default mass and radius.
func NewRigidBody(position mathx.Vec3) *RigidBody {
	return &RigidBody{
		Position: position,
		Mass:     DefaultMass,
		Radius:   DefaultRadius,
	}
}

// Immovable reports whether the solver must treat this body as infinite
// mass: kinematic bodies and bodies with non-positive mass both qualify.
func (b *RigidBody) Immovable() bool {
	return b.Kinematic || b.Mass <= 0
}

// InverseMass returns 0 for immovable bodies, 1/Mass otherwise.
func (b *RigidBody) InverseMass() float64 {
	if b.Immovable() {
		return 0
	}
	return 1 / b.Mass
}

// Particle is a point mass with no radius; its interaction range is
// defined entirely by the MD system's cutoff.
type Particle struct {
	Position mathx.Vec3
	Velocity mathx.Vec3
	Mass     float64
}

// ParticleSet is a dense, insertion-ordered collection of particles,
// indexable in [0, N). The core never deletes particles; indices are
// stable within a tick and may only grow between ticks.
type ParticleSet struct {
	Particles []Particle
}

// NewParticleSet returns an empty set with capacity reserved for n
// particles.
func NewParticleSet(n int) *ParticleSet {
	return &ParticleSet{Particles: make([]Particle, 0, n)}
}

// Len returns the number of particles currently in the set.
func (s *ParticleSet) Len() int { return len(s.Particles) }

// Add appends a particle and returns its index.
func (s *ParticleSet) Add(p Particle) int {
	s.Particles = append(s.Particles, p)
	return len(s.Particles) - 1
}

// Positions copies the current positions into dst, growing it if
// necessary, and returns the (possibly reallocated) slice. This is the
// snapshot consumed by the neighbor list and by LJ force evaluation.
func (s *ParticleSet) Positions(dst []mathx.Vec3) []mathx.Vec3 {
	if cap(dst) < len(s.Particles) {
		dst = make([]mathx.Vec3, len(s.Particles))
	}
	dst = dst[:len(s.Particles)]
	for i, p := range s.Particles {
		dst[i] = p.Position
	}
	return dst
}
