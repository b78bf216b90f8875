// Package rigidsys implements the Rigid-Body System: semi-implicit Euler
// integration, ground clamping, a uniform-grid broad phase, and an
// iterative Gauss-Seidel-style position/velocity contact correction loop
// with Baumgarte stabilization. Grounded on the reference solver's
// rigid_body_system.cpp, generalized from a ground-only collider to a full
// sphere-sphere + sphere-ground pipeline, and on the broad-phase/constraint
// split used by the reference engine's spatial grid and contact constraint
// code.
package rigidsys

import (
	"errors"
	"fmt"
	"math"

	"github.com/go-logr/logr"
	"github.com/minerva-sim/minerva/grid"
	"github.com/minerva-sim/minerva/mathx"
	"github.com/minerva-sim/minerva/state"
	"github.com/minerva-sim/minerva/world"
)

// Heuristic constants baked into the solver. These are not first-principles
// derivations — they are tuned values that shape the specific dynamic
// behavior of the solver and must be kept as literals.
const (
	groundHorizontalDamp = 0.98
	pairVelocityDamp     = 0.999
	pushDownThreshold    = 0.2
	groundedEpsilon      = 1e-6
	minSeparation        = 1e-8
)

// Sentinel construction errors, wrapped with context via fmt.Errorf("%w").
var (
	ErrInvalidSubsteps       = errors.New("rigidsys: substeps must be >= 1")
	ErrInvalidPairIterations = errors.New("rigidsys: pair_iterations must be >= 1")
	ErrInvalidBaumgarte      = errors.New("rigidsys: baumgarte must be in (0, 1]")
)

// Config holds the tunables for System.
type Config struct {
	Restitution     float64 // default 0.5
	GroundY         float64 // default 0
	Substeps        int     // default 4
	PairIterations  int     // default 32
	PenetrationSlop float64 // default 1e-5
	ContactOffset   float64 // default 1e-3
	Baumgarte       float64 // default 0.8
	Logger          logr.Logger
}

// DefaultConfig returns the Config with every documented default.
func DefaultConfig() Config {
	return Config{
		Restitution:     0.5,
		GroundY:         0,
		Substeps:        4,
		PairIterations:  32,
		PenetrationSlop: 1e-5,
		ContactOffset:   1e-3,
		Baumgarte:       0.8,
		Logger:          logr.Discard(),
	}
}

// Diagnostics exposes read-only solver stats for test harnesses.
type Diagnostics struct {
	LastMaxPenetration float64
	LastIterationsUsed int
}

// System is the Rigid-Body System. It owns no physics state beyond
// config, diagnostics, and a reusable broad-phase grid (rebuilt fresh
// every pair-resolution iteration, but never reallocated).
type System struct {
	cfg  Config
	grid *grid.Grid
	diag Diagnostics
}

// New validates cfg and returns a ready System. Non-positive substeps or
// pair_iterations, or a baumgarte factor outside (0, 1], are contract
// violations caught at construction rather than left to misbehave at
// runtime.
func New(cfg Config) (*System, error) {
	if cfg.Substeps < 1 {
		return nil, fmt.Errorf("rigidsys.New: substeps=%d: %w", cfg.Substeps, ErrInvalidSubsteps)
	}
	if cfg.PairIterations < 1 {
		return nil, fmt.Errorf("rigidsys.New: pair_iterations=%d: %w", cfg.PairIterations, ErrInvalidPairIterations)
	}
	if cfg.Baumgarte <= 0 || cfg.Baumgarte > 1 {
		return nil, fmt.Errorf("rigidsys.New: baumgarte=%v: %w", cfg.Baumgarte, ErrInvalidBaumgarte)
	}
	if cfg.Logger.GetSink() == nil {
		cfg.Logger = logr.Discard()
	}
	return &System{cfg: cfg, grid: grid.New(1.0)}, nil
}

// Name identifies the system for scheduler diagnostics.
func (s *System) Name() string { return "RigidBodySystem" }

// Diagnostics returns the most recent substep's solver stats.
func (s *System) Diagnostics() Diagnostics { return s.diag }

// Step implements world.System: it performs cfg.Substeps internal
// substeps of duration h = dt/Substeps, each running the full algorithm
// (integrate, ground clamp, iterative pair resolution, final ground
// clamp).
func (s *System) Step(w *world.World, dt float64) {
	h := dt / float64(s.cfg.Substeps)
	for i := 0; i < s.cfg.Substeps; i++ {
		s.substep(w.Bodies, w.Gravity, h)
	}
}

func (s *System) substep(bodies []*state.RigidBody, gravity mathx.Vec3, h float64) {
	s.integrateAndGroundClamp(bodies, gravity, h)

	maxRadius := 0.0
	for _, b := range bodies {
		if b.Radius > maxRadius {
			maxRadius = b.Radius
		}
	}
	cellSize := math.Max(2*maxRadius, 1e-6)

	maxPen := 0.0
	iterationsUsed := 0
	for iter := 0; iter < s.cfg.PairIterations; iter++ {
		iterationsUsed = iter + 1
		s.grid.Reset(cellSize)
		for i, b := range bodies {
			key := s.grid.KeyFor(b.Position.X(), b.Position.Y(), b.Position.Z())
			s.grid.Insert(key, i)
		}

		maxPen = s.resolvePairs(bodies, cellSize)
		if maxPen < s.cfg.PenetrationSlop {
			break
		}
	}
	s.diag.LastMaxPenetration = maxPen
	s.diag.LastIterationsUsed = iterationsUsed
	s.cfg.Logger.V(1).Info("rigid-body substep", "maxPenetration", maxPen, "iterations", iterationsUsed)

	s.groundClamp(bodies)
}

// integrateAndGroundClamp applies gravity and semi-implicit Euler
// integration, then clamps against the ground plane, for every
// non-kinematic, positive-mass body.
func (s *System) integrateAndGroundClamp(bodies []*state.RigidBody, gravity mathx.Vec3, h float64) {
	for _, b := range bodies {
		if b.Immovable() {
			continue
		}
		b.Velocity = b.Velocity.Add(gravity.Scale(h))
		b.Position = b.Position.Add(b.Velocity.Scale(h))
		s.clampOneGround(b)
	}
}

// groundClamp re-applies the ground clamp to every body, used as the
// final pass in step 4 to absorb downward nudges introduced by pair
// corrections.
func (s *System) groundClamp(bodies []*state.RigidBody) {
	for _, b := range bodies {
		if b.Immovable() {
			continue
		}
		s.clampOneGround(b)
	}
}

func (s *System) clampOneGround(b *state.RigidBody) {
	target := s.cfg.GroundY + b.Radius + s.cfg.ContactOffset
	if b.Position.Y() < target {
		b.Position = mathx.New(b.Position.X(), target, b.Position.Z())
		if b.Velocity.Y() < 0 {
			vn := b.Velocity.Y()
			b.Velocity = mathx.New(
				b.Velocity.X()*groundHorizontalDamp,
				-s.cfg.Restitution*vn,
				b.Velocity.Z()*groundHorizontalDamp,
			)
		}
	}
}

// isGrounded reports whether body b's bottom sits within contactOffset +
// groundedEpsilon of the ground plane.
func (s *System) isGrounded(b *state.RigidBody) bool {
	return b.Position.Y()-b.Radius <= s.cfg.GroundY+s.cfg.ContactOffset+groundedEpsilon
}

// isStatic classifies a body as "static" for this iteration's contact
// resolution: kinematic, non-positive mass, or grounded with a push-down
// correction direction.
func (s *System) isStatic(b *state.RigidBody, pushDown bool) bool {
	if b.Immovable() {
		return true
	}
	return pushDown && s.isGrounded(b)
}

// resolvePairs runs one Gauss-Seidel iteration of positional correction +
// normal impulse over every candidate pair found via the broad-phase
// grid's 27-cell stencil, and returns the largest penetration observed.
func (s *System) resolvePairs(bodies []*state.RigidBody, cellSize float64) float64 {
	maxPen := 0.0

	for i, a := range bodies {
		key := s.grid.KeyFor(a.Position.X(), a.Position.Y(), a.Position.Z())
		s.grid.ForEachInStencil(key, func(j int) {
			if j <= i {
				return
			}
			b := bodies[j]

			d := b.Position.Sub(a.Position)
			target := a.Radius + b.Radius + s.cfg.ContactOffset
			distRaw := d.Norm()
			if distRaw >= target {
				return
			}

			dist := math.Max(distRaw, minSeparation)
			var n mathx.Vec3
			if distRaw == 0 {
				n = mathx.UnitX
			} else {
				n = d.Div(dist)
			}
			pen := math.Max(target-dist, 0)
			if pen > maxPen {
				maxPen = pen
			}

			aStatic := s.isStatic(a, n.Y() > pushDownThreshold)
			bStatic := s.isStatic(b, n.Y() < -pushDownThreshold)

			invMassA := 0.0
			if !aStatic {
				invMassA = a.InverseMass()
			}
			invMassB := 0.0
			if !bStatic {
				invMassB = b.InverseMass()
			}
			invSum := invMassA + invMassB
			if invSum == 0 {
				return
			}

			// Positional correction.
			correction := n.Scale(s.cfg.Baumgarte * pen / invSum)
			if invMassA != 0 {
				a.Position = a.Position.Sub(correction.Scale(invMassA))
			}
			if invMassB != 0 {
				b.Position = b.Position.Add(correction.Scale(invMassB))
			}

			// Normal impulse.
			vRel := b.Velocity.Sub(a.Velocity)
			vn := vRel.Dot(n)
			if vn < 0 {
				j := -(1 + s.cfg.Restitution) * vn / invSum
				impulse := n.Scale(j)
				if invMassA != 0 {
					a.Velocity = a.Velocity.Sub(impulse.Scale(invMassA))
				}
				if invMassB != 0 {
					b.Velocity = b.Velocity.Add(impulse.Scale(invMassB))
				}
			}

			a.Velocity = a.Velocity.Scale(pairVelocityDamp)
			b.Velocity = b.Velocity.Scale(pairVelocityDamp)
		})
	}

	return maxPen
}
