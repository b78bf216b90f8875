// Package mdsys implements the Molecular-Dynamics System: a velocity-Verlet
// integrator over Lennard-Jones 12-6 pair forces, driven by a neighbor
// list with lazy, displacement-triggered rebuilds, and an optional
// Berendsen thermostat. Grounded on the reference engine's
// modules/md/md_system.cpp, with neighbor-list maintenance and domain
// auto-expansion layered on top of the original's always-O(N^2) force
// loop.
package mdsys

import (
	"errors"
	"fmt"
	"math"

	"github.com/go-logr/logr"
	"github.com/minerva-sim/minerva/mathx"
	"github.com/minerva-sim/minerva/neighbor"
	"github.com/minerva-sim/minerva/parallel"
	"github.com/minerva-sim/minerva/state"
	"github.com/minerva-sim/minerva/world"
)

// Sentinel construction errors.
var (
	ErrInvalidSigma      = errors.New("mdsys: sigma must be > 0")
	ErrInvalidRcutSigma  = errors.New("mdsys: rcut_sigma must be > 0")
	ErrInvalidTauThermo  = errors.New("mdsys: tau_thermo must be > 0")
	ErrInvalidNlistSkin  = errors.New("mdsys: nlist_skin must be >= 0")
	ErrInvalidNlistCheck = errors.New("mdsys: nlist_check_interval must be >= 1")
)

// Config holds the molecular-dynamics system's tunables.
type Config struct {
	Epsilon   float64
	Sigma     float64
	RcutSigma float64 // default 2.5

	NVT       bool
	Temp      float64
	TauThermo float64 // default 1.0

	UseNeighborList    bool
	NlistSkin          float64 // default 0.3
	NlistCheckInterval int     // default 10

	// Parallel gates an optional worker-pool force reduction. It defaults
	// to false, which is the deterministic single-threaded path needed for
	// bit-equivalent reproducibility across runs.
	Parallel bool
	Workers  int

	Logger logr.Logger
}

// DefaultConfig returns Config with every documented default.
func DefaultConfig() Config {
	return Config{
		Epsilon:            1,
		Sigma:              1,
		RcutSigma:          2.5,
		TauThermo:          1.0,
		UseNeighborList:    true,
		NlistSkin:          0.3,
		NlistCheckInterval: 10,
		Logger:             logr.Discard(),
	}
}

// System is the Molecular-Dynamics System.
type System struct {
	cfg Config

	nlist       *neighbor.List
	stepCounter int
	firstStep   bool

	forces    []mathx.Vec3
	positions []mathx.Vec3
}

// New validates cfg and returns a ready System.
func New(cfg Config) (*System, error) {
	if cfg.Sigma <= 0 {
		return nil, fmt.Errorf("mdsys.New: sigma=%v: %w", cfg.Sigma, ErrInvalidSigma)
	}
	if cfg.RcutSigma <= 0 {
		return nil, fmt.Errorf("mdsys.New: rcut_sigma=%v: %w", cfg.RcutSigma, ErrInvalidRcutSigma)
	}
	if cfg.NVT && cfg.TauThermo <= 0 {
		return nil, fmt.Errorf("mdsys.New: tau_thermo=%v: %w", cfg.TauThermo, ErrInvalidTauThermo)
	}
	if cfg.NlistSkin < 0 {
		return nil, fmt.Errorf("mdsys.New: nlist_skin=%v: %w", cfg.NlistSkin, ErrInvalidNlistSkin)
	}
	if cfg.NlistCheckInterval < 1 {
		return nil, fmt.Errorf("mdsys.New: nlist_check_interval=%d: %w", cfg.NlistCheckInterval, ErrInvalidNlistCheck)
	}
	if cfg.Logger.GetSink() == nil {
		cfg.Logger = logr.Discard()
	}
	return &System{cfg: cfg, firstStep: true}, nil
}

// Name identifies the system for scheduler diagnostics.
func (s *System) Name() string { return "MDSystem" }

// Step implements world.System. The scheduler hands it h = dt/substeps
// already divided; the MD system does not subdivide further internally
// beyond the velocity-Verlet half-kick/drift/half-kick structure itself.
func (s *System) Step(w *world.World, h float64) {
	ps := w.Particles
	n := ps.Len()
	if n == 0 {
		return
	}

	s.positions = ps.Positions(s.positions)
	s.maintainNeighborList(n)

	if cap(s.forces) < n {
		s.forces = make([]mathx.Vec3, n)
	}
	s.forces = s.forces[:n]

	s.computeForces(ps)

	// Half kick + drift.
	for i := range ps.Particles {
		p := &ps.Particles[i]
		p.Velocity = p.Velocity.Add(s.forces[i].Scale(0.5 * h / p.Mass))
		p.Position = p.Position.Add(p.Velocity.Scale(h))
	}

	// Force at t+h; neighbor list not rebuilt within a substep.
	s.computeForces(ps)

	// Half kick.
	for i := range ps.Particles {
		p := &ps.Particles[i]
		p.Velocity = p.Velocity.Add(s.forces[i].Scale(0.5 * h / p.Mass))
	}

	if s.cfg.NVT {
		s.applyThermostat(ps, h)
	}
}

func (s *System) maintainNeighborList(n int) {
	if !s.cfg.UseNeighborList {
		return
	}

	if s.firstStep {
		s.firstStep = false
		if s.nlist == nil || len(s.nlist.Pairs()) == 0 {
			s.rebuildNeighborList(n)
		}
	}

	s.stepCounter++
	if s.stepCounter < s.cfg.NlistCheckInterval {
		return
	}
	s.stepCounter = 0

	if s.nlist == nil || s.nlist.NeedsRebuild(s.positions) {
		s.rebuildNeighborList(n)
	}
}

// rebuildNeighborList computes the axis-aligned bounding box of the
// current positions, expands it by margin = 2*(cutoff+skin) on every
// face, constructs a fresh List with those bounds, and builds it. Domain
// sizing is owned here rather than by the neighbor list itself, since only
// the MD system knows the current extent of the particle cloud.
func (s *System) rebuildNeighborList(n int) {
	cutoff := s.cfg.RcutSigma * s.cfg.Sigma

	lo, hi := boundingBox(s.positions)
	margin := 2 * (cutoff + s.cfg.NlistSkin)
	marginVec := mathx.New(margin, margin, margin)
	lo = lo.Sub(marginVec)
	hi = hi.Add(marginVec)

	l, err := neighbor.New(neighbor.Config{
		Cutoff:         cutoff,
		Skin:           s.cfg.NlistSkin,
		CellSizeFactor: 1,
		DomainMin:      lo,
		DomainMax:      hi,
		EnableStats:    true,
		Logger:         s.cfg.Logger,
	})
	if err != nil {
		// A degenerate domain (e.g. a single particle with zero margin)
		// cannot happen here since margin is always strictly positive,
		// but guard defensively rather than propagate a constructor
		// error out of a Step call, which never fails.
		s.cfg.Logger.Error(err, "mdsys: failed to rebuild neighbor list, keeping previous list")
		return
	}
	l.Build(s.positions)
	s.nlist = l
}

func boundingBox(positions []mathx.Vec3) (lo, hi mathx.Vec3) {
	if len(positions) == 0 {
		return mathx.Zero, mathx.Zero
	}
	lo, hi = positions[0], positions[0]
	for _, p := range positions[1:] {
		lo = mathx.New(math.Min(lo.X(), p.X()), math.Min(lo.Y(), p.Y()), math.Min(lo.Z(), p.Z()))
		hi = mathx.New(math.Max(hi.X(), p.X()), math.Max(hi.Y(), p.Y()), math.Max(hi.Z(), p.Z()))
	}
	return lo, hi
}

func (s *System) computeForces(ps *state.ParticleSet) {
	n := len(ps.Particles)
	for i := range s.forces {
		s.forces[i] = mathx.Zero
	}

	rc := s.cfg.RcutSigma * s.cfg.Sigma
	rc2 := rc * rc
	sig2 := s.cfg.Sigma * s.cfg.Sigma
	sig6 := sig2 * sig2 * sig2

	if s.cfg.UseNeighborList && s.nlist != nil && len(s.nlist.Pairs()) > 0 {
		if s.cfg.Parallel && s.cfg.Workers > 1 {
			s.computePairForcesParallel(ps, rc2, sig6)
		} else {
			for _, pr := range s.nlist.Pairs() {
				s.accumulatePairForce(ps, pr.I, pr.J, rc2, sig6)
			}
		}
		return
	}

	// Fallback: all-pairs O(N^2) sweep with identical math.
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			s.accumulatePairForce(ps, i, j, rc2, sig6)
		}
	}
}

// computePairForcesParallel partitions the neighbor pair list across
// worker goroutines with thread-local accumulators, combined into the
// shared force array in a fixed worker order, so the result repeats from
// run to run for a given worker count. A particle whose pairs fall in more
// than one chunk has its force summed in a different order than on the
// sequential path, so the two paths can differ in the last bits.
func (s *System) computePairForcesParallel(ps *state.ParticleSet, rc2, sig6 float64) {
	pairs := s.nlist.Pairs()
	n := len(s.forces)
	workers := s.cfg.Workers

	type chunk struct {
		local []mathx.Vec3
	}
	chunks := make([]chunk, workers)

	parallel.Range(workers, len(pairs), func(start, end int) {
		// Figure out which worker slot this chunk belongs to by matching
		// the same split parallel.Range uses: start/chunkSize.
		chunkSize := (len(pairs) + workers - 1) / workers
		idx := start / chunkSize
		if idx >= workers {
			idx = workers - 1
		}
		local := make([]mathx.Vec3, n)
		for k := start; k < end; k++ {
			pr := pairs[k]
			accumulateInto(local, ps, pr.I, pr.J, rc2, sig6, s.cfg.Epsilon, s.cfg.Sigma)
		}
		chunks[idx] = chunk{local: local}
	})

	for _, c := range chunks {
		if c.local == nil {
			continue
		}
		for i := range s.forces {
			s.forces[i] = s.forces[i].Add(c.local[i])
		}
	}
}

func (s *System) accumulatePairForce(ps *state.ParticleSet, i, j int, rc2, sig6 float64) {
	accumulateInto(s.forces, ps, i, j, rc2, sig6, s.cfg.Epsilon, s.cfg.Sigma)
}

// accumulateInto adds the Lennard-Jones 12-6 force between particles i and
// j into dst.
func accumulateInto(dst []mathx.Vec3, ps *state.ParticleSet, i, j int, rc2, sig6, epsilon, sigma float64) {
	r := ps.Particles[j].Position.Sub(ps.Particles[i].Position)
	r2 := r.Norm2()
	if r2 > rc2 || r2 == 0 {
		return
	}

	invR2 := 1 / r2
	invR6 := invR2 * invR2 * invR2
	sig12 := sig6 * sig6

	magOverR := 24 * epsilon * invR2 * (2*sig12*invR6*invR6 - sig6*invR6)
	f := r.Scale(magOverR)

	dst[i] = dst[i].Sub(f)
	dst[j] = dst[j].Add(f)
}

// applyThermostat rescales every velocity toward the target temperature
// using Berendsen coupling. It is silently a no-op when N < 2 or the
// instantaneous temperature is zero, since the division that defines T
// (and the scaling based on it) is undefined in those cases.
func (s *System) applyThermostat(ps *state.ParticleSet, h float64) {
	n := len(ps.Particles)
	if n < 2 {
		return
	}

	ke := 0.0
	for _, p := range ps.Particles {
		ke += 0.5 * p.Mass * p.Velocity.Norm2()
	}
	tInst := (2.0 / 3.0) * ke / float64(n)
	if tInst == 0 {
		return
	}

	lambda := math.Sqrt(1 + (h/s.cfg.TauThermo)*(s.cfg.Temp/tInst-1))
	for i := range ps.Particles {
		ps.Particles[i].Velocity = ps.Particles[i].Velocity.Scale(lambda)
	}
}
