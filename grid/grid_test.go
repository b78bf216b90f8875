package grid

import "testing"

func TestKeyForFloorsNegative(t *testing.T) {
	g := New(1.0)
	k := g.KeyFor(-0.1, -1.0, -1.5)
	want := CellKey{X: -1, Y: -1, Z: -2}
	if k != want {
		t.Errorf("KeyFor(-0.1,-1.0,-1.5) = %+v, want %+v", k, want)
	}
}

func TestInsertAndStencil(t *testing.T) {
	g := New(1.0)
	k0 := g.KeyFor(0.1, 0.1, 0.1)
	k1 := g.KeyFor(1.1, 0.1, 0.1) // adjacent cell
	k2 := g.KeyFor(10, 10, 10)    // far away

	g.Insert(k0, 0)
	g.Insert(k1, 1)
	g.Insert(k2, 2)

	found := map[int]bool{}
	g.ForEachInStencil(k0, func(idx int) { found[idx] = true })

	if !found[0] || !found[1] {
		t.Errorf("stencil around origin cell missed neighbors: %v", found)
	}
	if found[2] {
		t.Errorf("stencil around origin cell unexpectedly found far body: %v", found)
	}
}

func TestResetClearsBuckets(t *testing.T) {
	g := New(1.0)
	k := g.KeyFor(0, 0, 0)
	g.Insert(k, 5)

	g.Reset(2.0)

	found := false
	g.ForEachInStencil(g.KeyFor(0, 0, 0), func(idx int) { found = true })
	if found {
		t.Errorf("Reset did not clear previous contents")
	}
}
