// Package grid implements the uniform hash grid used as the rigid-body
// broad phase. It is rebuilt fresh at the start of every pair-resolution
// iteration, so it favors cheap clear-and-reinsert over incremental
// maintenance.
package grid

import "math"

// CellKey identifies a grid cell by its integer coordinates. Cell
// boundaries use floor() on real-valued positions, so negative coordinates
// round toward -infinity.
type CellKey struct {
	X, Y, Z int
}

// Grid buckets body indices into cells of uniform size c. It is reused
// across iterations: Reset clears every bucket without releasing their
// backing arrays.
type Grid struct {
	cellSize float64
	buckets  map[CellKey][]int
}

// New returns a grid with the given cell size. cellSize must be positive;
// callers are expected to have already clamped it to something like
// max(2*maxBodyRadius, epsilon).
func New(cellSize float64) *Grid {
	return &Grid{
		cellSize: cellSize,
		buckets:  make(map[CellKey][]int),
	}
}

// Reset empties every bucket, keeping their underlying storage for reuse.
func (g *Grid) Reset(cellSize float64) {
	g.cellSize = cellSize
	for k, v := range g.buckets {
		g.buckets[k] = v[:0]
	}
}

// KeyFor returns the cell key containing the point (x, y, z).
func (g *Grid) KeyFor(x, y, z float64) CellKey {
	return CellKey{
		X: int(math.Floor(x / g.cellSize)),
		Y: int(math.Floor(y / g.cellSize)),
		Z: int(math.Floor(z / g.cellSize)),
	}
}

// Insert adds a body index into the bucket for its cell key.
func (g *Grid) Insert(key CellKey, bodyIndex int) {
	g.buckets[key] = append(g.buckets[key], bodyIndex)
}

// stencil is the full 27-cell neighborhood {-1,0,+1}^3 around a cell,
// including the cell itself.
var stencil = func() [27][3]int {
	var s [27][3]int
	n := 0
	for dz := -1; dz <= 1; dz++ {
		for dy := -1; dy <= 1; dy++ {
			for dx := -1; dx <= 1; dx++ {
				s[n] = [3]int{dx, dy, dz}
				n++
			}
		}
	}
	return s
}()

// ForEachInStencil invokes fn once per body index found in any of the 27
// cells around key (including key itself). The 27 stencil keys are always
// distinct, so a body index inserted once is reported at most once; callers
// that need j > i filtering do that themselves.
func (g *Grid) ForEachInStencil(key CellKey, fn func(bodyIndex int)) {
	for _, d := range stencil {
		nk := CellKey{X: key.X + d[0], Y: key.Y + d[1], Z: key.Z + d[2]}
		for _, idx := range g.buckets[nk] {
			fn(idx)
		}
	}
}
