// Package overlap implements the scene overlap pre-pass: an iterative
// position-only solver that pushes initially interpenetrating spheres
// apart before a simulation's first tick. Grounded on the reference
// engine's simcore/utils/overlap_checker.hpp.
package overlap

import (
	"math"

	"github.com/go-logr/logr"
	"github.com/minerva-sim/minerva/state"
)

const (
	buffer    = 1e-3
	tolerance = 1e-6
)

// CountOverlaps reports the number of rigid-body pairs currently
// interpenetrating by more than tolerance, and the largest such overlap.
func CountOverlaps(bodies []*state.RigidBody) (count int, maxOverlap float64) {
	for i := 0; i < len(bodies); i++ {
		for j := i + 1; j < len(bodies); j++ {
			a, b := bodies[i], bodies[j]
			dist := b.Position.Sub(a.Position).Norm()
			ov := a.Radius + b.Radius - dist
			if ov > tolerance {
				count++
				if ov > maxOverlap {
					maxOverlap = ov
				}
			}
		}
	}
	return count, maxOverlap
}

// ResolveOverlaps iteratively pushes overlapping spheres apart along their
// separating axis until no pair overlaps by more than tolerance or
// maxIterations is reached. Kinematic and non-positive-mass bodies are
// treated as immovable: an overlap against one is resolved by moving the
// other body the full overlap distance rather than splitting it. It
// returns the number of iterations actually performed.
func ResolveOverlaps(bodies []*state.RigidBody, maxIterations int, logger logr.Logger) int {
	logger.V(1).Info("resolving initial overlaps", "bodies", len(bodies))

	iter := 0
	for ; iter < maxIterations; iter++ {
		maxOverlap := 0.0

		for i := 0; i < len(bodies); i++ {
			for j := i + 1; j < len(bodies); j++ {
				a, b := bodies[i], bodies[j]

				d := b.Position.Sub(a.Position)
				dist := math.Sqrt(math.Max(d.Norm2(), 1e-16))
				minDist := a.Radius + b.Radius + buffer
				ov := minDist - dist

				if ov <= tolerance {
					continue
				}
				if ov > maxOverlap {
					maxOverlap = ov
				}

				n := d.Scale(1 / dist)
				aFixed, bFixed := a.Immovable(), b.Immovable()

				switch {
				case !aFixed && !bFixed:
					correction := n.Scale(ov * 0.5)
					a.Position = a.Position.Sub(correction)
					b.Position = b.Position.Add(correction)
				case !aFixed:
					a.Position = a.Position.Sub(n.Scale(ov))
				case !bFixed:
					b.Position = b.Position.Add(n.Scale(ov))
				}
			}
		}

		if maxOverlap <= tolerance {
			logger.V(1).Info("overlaps resolved", "iterations", iter+1)
			return iter + 1
		}
	}

	logger.V(1).Info("overlap resolution did not fully converge", "max_iterations", maxIterations)
	return maxIterations
}
