package parallel

import (
	"sort"
	"sync"
	"testing"
)

func TestRangeCoversEveryIndexExactlyOnce(t *testing.T) {
	const n = 37
	var mu sync.Mutex
	seen := make([]int, 0, n)

	Range(4, n, func(start, end int) {
		for i := start; i < end; i++ {
			mu.Lock()
			seen = append(seen, i)
			mu.Unlock()
		}
	})

	if len(seen) != n {
		t.Fatalf("covered %d indices, want %d", len(seen), n)
	}
	sort.Ints(seen)
	for i, v := range seen {
		if v != i {
			t.Fatalf("seen[%d] = %d, want %d", i, v, i)
		}
	}
}

func TestRangeSingleWorkerIsSequential(t *testing.T) {
	var calls int
	Range(1, 10, func(start, end int) {
		calls++
		if start != 0 || end != 10 {
			t.Errorf("chunk = [%d, %d), want [0, 10)", start, end)
		}
	})
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}

func TestRangeEmpty(t *testing.T) {
	called := false
	Range(4, 0, func(start, end int) { called = true })
	if called {
		t.Errorf("fn invoked for empty range")
	}
}
