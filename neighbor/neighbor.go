// Package neighbor implements the cell-list + Verlet-skin neighbor list
// used by the molecular-dynamics system. It is a direct generalization of
// the reference engine's NeighborList (simcore/spatial/neighbor_list.cpp)
// to a 3-D grid sized from cutoff+skin, with half-shell cell enumeration so
// each pair of distinct cells is only ever visited once.
package neighbor

import (
	"errors"
	"fmt"
	"math"

	"github.com/go-logr/logr"
	"github.com/minerva-sim/minerva/mathx"
)

// Sentinel construction errors.
var (
	ErrInvalidCutoff         = errors.New("neighbor: cutoff must be > 0")
	ErrInvalidSkin           = errors.New("neighbor: skin must be >= 0")
	ErrInvalidCellSizeFactor = errors.New("neighbor: cell_size_factor must be > 0")
	ErrInvalidDomain         = errors.New("neighbor: domain_max must be strictly greater than domain_min componentwise")
)

// Pair is an ordered particle index pair with I < J.
type Pair struct {
	I, J int
}

// Config holds the neighbor list's tunables.
type Config struct {
	Cutoff         float64
	Skin           float64
	CellSizeFactor float64 // default 1
	DomainMin      mathx.Vec3
	DomainMax      mathx.Vec3
	EnableStats    bool
	Logger         logr.Logger
}

// Stats mirrors the reference engine's NeighborListStats.
type Stats struct {
	TotalBuilds     int
	TotalChecks     int
	MaxDisplacement float64
	NumPairs        int
}

// List is the cell-list based neighbor structure. Its internal grid and
// pair buffer are exclusive to one List and are reused across builds to
// avoid per-tick allocation churn.
type List struct {
	cfg Config

	nx, ny, nz int
	cellSize   mathx.Vec3

	cells [][]int
	pairs []Pair

	refPositions []mathx.Vec3
	valid        bool

	stats Stats
}

// New validates cfg, sizes the grid, and returns a ready (but unbuilt)
// List. cutoff must be positive, skin non-negative, cell_size_factor
// positive, and domain_max strictly greater than domain_min on every axis.
func New(cfg Config) (*List, error) {
	if cfg.Cutoff <= 0 {
		return nil, fmt.Errorf("neighbor.New: cutoff=%v: %w", cfg.Cutoff, ErrInvalidCutoff)
	}
	if cfg.Skin < 0 {
		return nil, fmt.Errorf("neighbor.New: skin=%v: %w", cfg.Skin, ErrInvalidSkin)
	}
	if cfg.CellSizeFactor <= 0 {
		return nil, fmt.Errorf("neighbor.New: cell_size_factor=%v: %w", cfg.CellSizeFactor, ErrInvalidCellSizeFactor)
	}
	if cfg.DomainMax.X() <= cfg.DomainMin.X() || cfg.DomainMax.Y() <= cfg.DomainMin.Y() || cfg.DomainMax.Z() <= cfg.DomainMin.Z() {
		return nil, fmt.Errorf("neighbor.New: domain_min=%v domain_max=%v: %w", cfg.DomainMin, cfg.DomainMax, ErrInvalidDomain)
	}
	if cfg.Logger.GetSink() == nil {
		cfg.Logger = logr.Discard()
	}

	l := &List{cfg: cfg}
	l.setupGrid()
	return l, nil
}

func (l *List) setupGrid() {
	minCell := (l.cfg.Cutoff + l.cfg.Skin) * l.cfg.CellSizeFactor

	ext := l.cfg.DomainMax.Sub(l.cfg.DomainMin)
	l.nx = maxInt(1, int(ext.X()/minCell))
	l.ny = maxInt(1, int(ext.Y()/minCell))
	l.nz = maxInt(1, int(ext.Z()/minCell))

	l.cellSize = mathx.New(ext.X()/float64(l.nx), ext.Y()/float64(l.ny), ext.Z()/float64(l.nz))

	total := l.nx * l.ny * l.nz
	l.cells = make([][]int, total)
	l.valid = false

	l.cfg.Logger.V(1).Info("neighbor list grid sized",
		"nx", l.nx, "ny", l.ny, "nz", l.nz, "cells", total)
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

// Dims returns the grid's per-axis cell counts.
func (l *List) Dims() (nx, ny, nz int) { return l.nx, l.ny, l.nz }

// CellSize returns the actual per-axis cell edge length.
func (l *List) CellSize() mathx.Vec3 { return l.cellSize }

// Pairs returns the most recently built pair list.
func (l *List) Pairs() []Pair { return l.pairs }

// Stats returns the current statistics snapshot.
func (l *List) Stats() Stats { return l.stats }

// Invalidate forces the next NeedsRebuild check (and caller-driven rebuild)
// regardless of displacement.
func (l *List) Invalidate() { l.valid = false }

func (l *List) cellCoords(pos mathx.Vec3) (ix, iy, iz int) {
	rel := pos.Sub(l.cfg.DomainMin)
	ix = clamp(int(math.Floor(rel.X()/l.cellSize.X())), 0, l.nx-1)
	iy = clamp(int(math.Floor(rel.Y()/l.cellSize.Y())), 0, l.ny-1)
	iz = clamp(int(math.Floor(rel.Z()/l.cellSize.Z())), 0, l.nz-1)
	return
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func (l *List) cellIndex(ix, iy, iz int) int {
	return ix + l.nx*(iy+l.ny*iz)
}

// Build assigns every position to a cell and produces the ordered pair
// list of every (i, j), i < j, whose separation is within cutoff+skin at
// this snapshot, using the half-shell cell enumeration.
func (l *List) Build(positions []mathx.Vec3) {
	for i := range l.cells {
		l.cells[i] = l.cells[i][:0]
	}
	l.pairs = l.pairs[:0]

	for i, p := range positions {
		ix, iy, iz := l.cellCoords(p)
		idx := l.cellIndex(ix, iy, iz)
		l.cells[idx] = append(l.cells[idx], i)
	}

	rList2 := (l.cfg.Cutoff + l.cfg.Skin) * (l.cfg.Cutoff + l.cfg.Skin)

	for iz := 0; iz < l.nz; iz++ {
		for iy := 0; iy < l.ny; iy++ {
			for ix := 0; ix < l.nx; ix++ {
				cellIdx := l.cellIndex(ix, iy, iz)
				cellParticles := l.cells[cellIdx]

				// Intra-cell pairs, i < j.
				for a := 0; a < len(cellParticles); a++ {
					for b := a + 1; b < len(cellParticles); b++ {
						l.maybeAddPair(positions, cellParticles[a], cellParticles[b], rList2)
					}
				}

				// Half-shell of 13 neighbor offsets, visiting each unordered
				// pair of distinct cells exactly once.
				for dz := 0; dz <= 1; dz++ {
					for dy := -1; dy <= 1; dy++ {
						for dx := -1; dx <= 1; dx++ {
							if dz == 0 && dy == 0 && dx == 0 {
								continue
							}
							if dz == 0 && (dy < 0 || (dy == 0 && dx < 0)) {
								continue
							}

							nxc, nyc, nzc := ix+dx, iy+dy, iz+dz
							if nxc < 0 || nxc >= l.nx || nyc < 0 || nyc >= l.ny || nzc < 0 || nzc >= l.nz {
								continue
							}

							neighborIdx := l.cellIndex(nxc, nyc, nzc)
							for _, i := range cellParticles {
								for _, j := range l.cells[neighborIdx] {
									lo, hi := i, j
									if lo > hi {
										lo, hi = hi, lo
									}
									l.maybeAddPair(positions, lo, hi, rList2)
								}
							}
						}
					}
				}
			}
		}
	}

	if cap(l.refPositions) < len(positions) {
		l.refPositions = make([]mathx.Vec3, len(positions))
	}
	l.refPositions = l.refPositions[:len(positions)]
	copy(l.refPositions, positions)
	l.valid = true

	if l.cfg.EnableStats {
		l.stats.TotalBuilds++
		l.stats.NumPairs = len(l.pairs)
	}
	l.cfg.Logger.V(1).Info("neighbor list rebuilt", "pairs", len(l.pairs), "particles", len(positions))
}

func (l *List) maybeAddPair(positions []mathx.Vec3, i, j int, rList2 float64) {
	r2 := positions[j].Sub(positions[i]).Norm2()
	if r2 < rList2 {
		l.pairs = append(l.pairs, Pair{I: i, J: j})
	}
}

// NeedsRebuild reports whether the list must be rebuilt before its pairs
// can be trusted: an invalid list, a changed particle count, or any
// particle displaced more than skin/2 since the last build.
func (l *List) NeedsRebuild(positions []mathx.Vec3) bool {
	if !l.valid {
		return true
	}
	if len(l.refPositions) != len(positions) {
		return true
	}

	maxDispSq := 0.0
	for i, p := range positions {
		d := p.Sub(l.refPositions[i]).Norm2()
		if d > maxDispSq {
			maxDispSq = d
		}
	}

	threshold := (l.cfg.Skin * 0.5) * (l.cfg.Skin * 0.5)

	if l.cfg.EnableStats {
		l.stats.TotalChecks++
		l.stats.MaxDisplacement = math.Sqrt(maxDispSq)
	}

	return maxDispSq > threshold
}
