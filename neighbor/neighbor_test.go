package neighbor

import (
	"errors"
	"math/rand"
	"sort"
	"testing"

	"github.com/minerva-sim/minerva/mathx"
)

func baseConfig() Config {
	return Config{
		Cutoff:         2.5,
		Skin:           0.3,
		CellSizeFactor: 1,
		DomainMin:      mathx.New(-10, -10, -10),
		DomainMax:      mathx.New(10, 10, 10),
	}
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	cases := []struct {
		name string
		mod  func(c *Config)
		want error
	}{
		{"zero cutoff", func(c *Config) { c.Cutoff = 0 }, ErrInvalidCutoff},
		{"negative skin", func(c *Config) { c.Skin = -1 }, ErrInvalidSkin},
		{"zero cell factor", func(c *Config) { c.CellSizeFactor = 0 }, ErrInvalidCellSizeFactor},
		{"inverted domain", func(c *Config) { c.DomainMax = mathx.New(-20, -20, -20) }, ErrInvalidDomain},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			cfg := baseConfig()
			c.mod(&cfg)
			_, err := New(cfg)
			if !errors.Is(err, c.want) {
				t.Fatalf("New() error = %v, want wrapping %v", err, c.want)
			}
		})
	}
}

func randomPositions(n int, seed int64) []mathx.Vec3 {
	r := rand.New(rand.NewSource(seed))
	out := make([]mathx.Vec3, n)
	for i := range out {
		out[i] = mathx.New(r.Float64()*16-8, r.Float64()*16-8, r.Float64()*16-8)
	}
	return out
}

func allPairsWithinCutoff(positions []mathx.Vec3, cutoff float64) map[Pair]bool {
	set := make(map[Pair]bool)
	c2 := cutoff * cutoff
	for i := 0; i < len(positions); i++ {
		for j := i + 1; j < len(positions); j++ {
			if positions[j].Sub(positions[i]).Norm2() <= c2 {
				set[Pair{I: i, J: j}] = true
			}
		}
	}
	return set
}

func TestBuildPairsAreOrderedAndWithinRange(t *testing.T) {
	cfg := baseConfig()
	l, err := New(cfg)
	if err != nil {
		t.Fatal(err)
	}
	positions := randomPositions(200, 1)
	l.Build(positions)

	limit2 := (cfg.Cutoff + cfg.Skin) * (cfg.Cutoff + cfg.Skin)
	seen := make(map[Pair]bool)
	for _, p := range l.Pairs() {
		if p.I >= p.J {
			t.Fatalf("pair (%d,%d) violates i<j", p.I, p.J)
		}
		if seen[p] {
			t.Fatalf("duplicate pair (%d,%d)", p.I, p.J)
		}
		seen[p] = true

		d2 := positions[p.J].Sub(positions[p.I]).Norm2()
		if d2 > limit2 {
			t.Fatalf("pair (%d,%d) separation^2=%v exceeds (cutoff+skin)^2=%v", p.I, p.J, d2, limit2)
		}
	}
}

func TestNeighborListCompletenessAgainstAllPairs(t *testing.T) {
	cfg := baseConfig()
	l, err := New(cfg)
	if err != nil {
		t.Fatal(err)
	}
	positions := randomPositions(150, 2)
	l.Build(positions)

	listPairs := make(map[Pair]bool)
	for _, p := range l.Pairs() {
		listPairs[p] = true
	}

	ref := allPairsWithinCutoff(positions, cfg.Cutoff)
	for p := range ref {
		if !listPairs[p] {
			t.Fatalf("neighbor list missing pair (%d,%d) within cutoff", p.I, p.J)
		}
	}
}

func TestBuildIsIdempotentAsMultiset(t *testing.T) {
	cfg := baseConfig()
	l, err := New(cfg)
	if err != nil {
		t.Fatal(err)
	}
	positions := randomPositions(80, 3)

	l.Build(positions)
	first := append([]Pair(nil), l.Pairs()...)

	l.Build(positions)
	second := append([]Pair(nil), l.Pairs()...)

	sortPairs(first)
	sortPairs(second)

	if len(first) != len(second) {
		t.Fatalf("pair counts differ: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i] != second[i] {
			t.Fatalf("pair %d differs: %v vs %v", i, first[i], second[i])
		}
	}
}

func sortPairs(p []Pair) {
	sort.Slice(p, func(i, j int) bool {
		if p[i].I != p[j].I {
			return p[i].I < p[j].I
		}
		return p[i].J < p[j].J
	})
}

func TestNeedsRebuildTriggers(t *testing.T) {
	cfg := baseConfig()
	l, err := New(cfg)
	if err != nil {
		t.Fatal(err)
	}

	positions := []mathx.Vec3{mathx.New(0, 0, 0), mathx.New(1, 0, 0)}
	if !l.NeedsRebuild(positions) {
		t.Fatalf("expected rebuild needed before first build")
	}
	l.Build(positions)
	if l.NeedsRebuild(positions) {
		t.Fatalf("expected no rebuild needed immediately after build")
	}

	// Small displacement within skin/2 should not trigger rebuild.
	small := []mathx.Vec3{mathx.New(0.01, 0, 0), mathx.New(1, 0, 0)}
	if l.NeedsRebuild(small) {
		t.Fatalf("small displacement incorrectly triggered rebuild")
	}

	// Large displacement beyond skin/2 should trigger rebuild.
	large := []mathx.Vec3{mathx.New(1.0, 0, 0), mathx.New(1, 0, 0)}
	if !l.NeedsRebuild(large) {
		t.Fatalf("large displacement failed to trigger rebuild")
	}

	// Changed particle count always triggers rebuild.
	l.Build(positions)
	grown := append(append([]mathx.Vec3(nil), positions...), mathx.New(5, 5, 5))
	if !l.NeedsRebuild(grown) {
		t.Fatalf("changed particle count failed to trigger rebuild")
	}
}

func TestTwoCoincidentParticlesProduceNoSelfPair(t *testing.T) {
	cfg := baseConfig()
	l, err := New(cfg)
	if err != nil {
		t.Fatal(err)
	}
	positions := []mathx.Vec3{mathx.New(0, 0, 0), mathx.New(0, 0, 0)}
	l.Build(positions)

	if len(l.Pairs()) != 1 {
		t.Fatalf("expected exactly one pair for two coincident particles, got %d", len(l.Pairs()))
	}
	if l.Pairs()[0] != (Pair{I: 0, J: 1}) {
		t.Fatalf("pair = %+v, want {0,1}", l.Pairs()[0])
	}
}

func TestDimsAndCellSize(t *testing.T) {
	cfg := baseConfig()
	l, err := New(cfg)
	if err != nil {
		t.Fatal(err)
	}
	nx, ny, nz := l.Dims()
	if nx < 1 || ny < 1 || nz < 1 {
		t.Fatalf("Dims() = (%d,%d,%d), want all >= 1", nx, ny, nz)
	}
	cs := l.CellSize()
	minCell := (cfg.Cutoff + cfg.Skin) * cfg.CellSizeFactor
	if cs.X() < minCell-1e-9 {
		t.Errorf("cell size x=%v smaller than minimum %v", cs.X(), minCell)
	}
}
