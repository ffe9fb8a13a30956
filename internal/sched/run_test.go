package sched

import (
	"errors"
	"math"
	"sort"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestRunVisitsEveryUnitOnce(t *testing.T) {
	for _, policy := range Policies() {
		for _, workers := range []int{1, 2, 3, 8} {
			for _, chunk := range []int{1, 2, 5, 64, math.MaxInt, math.MaxInt/2 + 1, 6148914691236517206} {
				for _, n := range []int{0, 1, 8, 17, 100} {
					opts := Options{Workers: workers, Policy: policy, Chunk: chunk}
					hits := make([]atomic.Int32, n)

					stats, err := Run(n, opts, func(_, lo, hi int) {
						for i := lo; i < hi; i++ {
							hits[i].Add(1)
						}
					})
					if err != nil {
						t.Fatalf("%+v n=%d: %v", opts, n, err)
					}

					for i := range hits {
						if got := hits[i].Load(); got != 1 {
							t.Fatalf("%+v n=%d: unit %d visited %d times", opts, n, i, got)
						}
					}

					if stats.Total() != n {
						t.Errorf("%+v n=%d: stats total = %d", opts, n, stats.Total())
					}
				}
			}
		}
	}
}

func TestRunStaticFollowsPlan(t *testing.T) {
	const n = 23

	opts := Options{Workers: 3, Policy: Static, Chunk: 2}
	owner := make([]int, n)

	_, err := Run(n, opts, func(w, lo, hi int) {
		for i := lo; i < hi; i++ {
			owner[i] = w
		}
	})
	if err != nil {
		t.Fatal(err)
	}

	for w, ranges := range StaticPlan(n, opts.Workers, opts.Chunk) {
		for _, r := range ranges {
			for i := r.Lo; i < r.Hi; i++ {
				if owner[i] != w {
					t.Errorf("unit %d ran on worker %d; plan says %d", i, owner[i], w)
				}
			}
		}
	}
}

func TestStaticPlanRoundRobin(t *testing.T) {
	got := StaticPlan(10, 2, 3)
	want := [][]Range{
		{{Lo: 0, Hi: 3}, {Lo: 6, Hi: 9}},
		{{Lo: 3, Hi: 6}, {Lo: 9, Hi: 10}},
	}

	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("StaticPlan mismatch (-want +got):\n%s", diff)
	}

	if StaticPlan(10, 0, 1) != nil {
		t.Error("StaticPlan with zero workers should be nil")
	}
}

func TestStaticPlanHugeChunk(t *testing.T) {
	for _, chunk := range []int{math.MaxInt, math.MaxInt/2 + 1, 6148914691236517206} {
		got := StaticPlan(8, 4, chunk)
		want := [][]Range{{{Lo: 0, Hi: 8}}, nil, nil, nil}

		if diff := cmp.Diff(want, got); diff != "" {
			t.Errorf("chunk=%d: StaticPlan mismatch (-want +got):\n%s", chunk, diff)
		}
	}
}

func TestClaimHugeWorkerCount(t *testing.T) {
	const n = 10

	single := []Range{{Lo: 0, Hi: 1}}

	var each []Range
	for i := range n {
		each = append(each, Range{Lo: i, Hi: i + 1})
	}

	tests := []struct {
		policy Policy
		want   []Range
	}{
		{Static, single},
		{Dynamic, each},
		{Guided, each},
	}

	for _, tt := range tests {
		t.Run(string(tt.policy), func(t *testing.T) {
			c := newClaimer(n, Options{Workers: math.MaxInt, Policy: tt.policy, Chunk: 1})

			var got []Range
			for round := 0; ; round++ {
				lo, hi, ok := c.claim(0, round)
				if !ok {
					break
				}
				got = append(got, Range{Lo: lo, Hi: hi})
			}

			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("claims mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestRunGuidedChunksShrink(t *testing.T) {
	const (
		n     = 1000
		chunk = 4
	)

	var (
		mu     sync.Mutex
		grants []Range
	)

	_, err := Run(n, Options{Workers: 4, Policy: Guided, Chunk: chunk}, func(_, lo, hi int) {
		mu.Lock()
		grants = append(grants, Range{Lo: lo, Hi: hi})
		mu.Unlock()
	})
	if err != nil {
		t.Fatal(err)
	}

	sort.Slice(grants, func(i, j int) bool { return grants[i].Lo < grants[j].Lo })

	if first := grants[0].Hi - grants[0].Lo; first != n/4 {
		t.Errorf("first guided chunk = %d; want %d", first, n/4)
	}

	for i := 1; i < len(grants); i++ {
		prev := grants[i-1].Hi - grants[i-1].Lo
		cur := grants[i].Hi - grants[i].Lo

		if cur > prev {
			t.Errorf("guided chunk %d grew: %d -> %d", i, prev, cur)
		}

		if i < len(grants)-1 && cur < chunk {
			t.Errorf("guided chunk %d below floor: %d", i, cur)
		}
	}
}

func TestRunDynamicChunkSize(t *testing.T) {
	var sizes sync.Map

	stats, err := Run(50, Options{Workers: 4, Policy: Dynamic, Chunk: 8}, func(_, lo, hi int) {
		sizes.Store(lo, hi-lo)
	})
	if err != nil {
		t.Fatal(err)
	}

	sizes.Range(func(k, v any) bool {
		lo, size := k.(int), v.(int)
		if lo%8 != 0 || (size != 8 && lo != 48) {
			t.Errorf("unexpected dynamic chunk at %d size %d", lo, size)
		}

		return true
	})

	chunks := 0
	for _, c := range stats.Chunks {
		chunks += c
	}

	if chunks != 7 {
		t.Errorf("claimed %d chunks; want 7", chunks)
	}
}

func TestRunRejectsInvalidOptions(t *testing.T) {
	bad := []Options{
		{Workers: 0, Policy: Static, Chunk: 1},
		{Workers: 2, Policy: Static, Chunk: 0},
		{Workers: 2, Policy: Static, Chunk: -3},
		{Workers: 2, Policy: "auto", Chunk: 1},
	}

	for _, opts := range bad {
		called := false

		_, err := Run(10, opts, func(_, _, _ int) { called = true })
		if !errors.Is(err, ErrInvalidOptions) {
			t.Errorf("Run(%+v) error = %v; want ErrInvalidOptions", opts, err)
		}

		if called {
			t.Errorf("Run(%+v) invoked body despite invalid options", opts)
		}
	}
}

func TestRunRecoversWorkerPanic(t *testing.T) {
	for _, workers := range []int{1, 4} {
		_, err := Run(40, Options{Workers: workers, Policy: Dynamic, Chunk: 1}, func(_, lo, _ int) {
			if lo == 13 {
				panic("boom")
			}
		})
		if !errors.Is(err, ErrWorkerPanic) {
			t.Errorf("workers=%d: error = %v; want ErrWorkerPanic", workers, err)
		}
	}
}

func TestStatsImbalance(t *testing.T) {
	s := Stats{Units: []int{10, 10, 10, 10}}
	if got := s.Imbalance(); got != 1 {
		t.Errorf("even split imbalance = %v; want 1", got)
	}

	s = Stats{Units: []int{20, 0}}
	if got := s.Imbalance(); got != 2 {
		t.Errorf("skewed imbalance = %v; want 2", got)
	}

	if got := (Stats{Units: []int{0, 0}}).Imbalance(); got != 0 {
		t.Errorf("empty imbalance = %v; want 0", got)
	}
}
