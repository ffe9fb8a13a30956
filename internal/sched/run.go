package sched

import (
	"errors"
	"fmt"
	"sync/atomic"

	"golang.org/x/sync/errgroup"
)

var (
	ErrInvalidOptions = errors.New("sched: invalid options")
	ErrWorkerPanic    = errors.New("sched: worker panicked")
)

// Options selects how units are shared among workers.
type Options struct {
	Workers int
	Policy  Policy
	Chunk   int
}

func (o Options) validate() error {
	if o.Workers < 1 {
		return fmt.Errorf("%w: workers must be >= 1, got %d", ErrInvalidOptions, o.Workers)
	}

	if o.Chunk < 1 {
		return fmt.Errorf("%w: chunk must be >= 1, got %d", ErrInvalidOptions, o.Chunk)
	}

	if !o.Policy.Valid() {
		return fmt.Errorf("%w: %w %q", ErrInvalidOptions, ErrUnknownPolicy, string(o.Policy))
	}

	return nil
}

// Body processes units [lo, hi) on behalf of worker.
type Body func(worker, lo, hi int)

// Stats describes how the units of one Run were spread over the workers.
type Stats struct {
	Units  []int // units processed per worker
	Chunks []int // chunks claimed per worker
}

// Total returns the number of units processed by all workers.
func (s Stats) Total() int {
	total := 0
	for _, u := range s.Units {
		total += u
	}

	return total
}

// Imbalance returns max/mean units per worker; 1 is a perfect split.
// It returns 0 when no unit was processed.
func (s Stats) Imbalance() float64 {
	total := s.Total()
	if total == 0 || len(s.Units) == 0 {
		return 0
	}

	mx := 0
	for _, u := range s.Units {
		mx = max(mx, u)
	}

	mean := float64(total) / float64(len(s.Units))

	return float64(mx) / mean
}

// Run distributes the units [0, n) among opts.Workers goroutines and blocks
// until every unit has been processed. Each unit is passed to body exactly
// once. A panic in body is recovered and returned as ErrWorkerPanic once all
// workers have stopped.
func Run(n int, opts Options, body Body) (Stats, error) {
	if err := opts.validate(); err != nil {
		return Stats{}, err
	}

	stats := Stats{
		Units:  make([]int, opts.Workers),
		Chunks: make([]int, opts.Workers),
	}
	if n <= 0 {
		return stats, nil
	}

	c := newClaimer(n, opts)

	worker := func(w int) (err error) {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("%w: worker %d: %v", ErrWorkerPanic, w, r)
			}
		}()

		for round := 0; ; round++ {
			lo, hi, ok := c.claim(w, round)
			if !ok {
				return nil
			}

			body(w, lo, hi)

			// Each worker only touches its own slot; Wait publishes them.
			stats.Units[w] += hi - lo
			stats.Chunks[w]++
		}
	}

	workers := min(opts.Workers, n)
	if workers == 1 {
		return stats, worker(0)
	}

	var g errgroup.Group
	for w := range workers {
		g.Go(func() error { return worker(w) })
	}

	if err := g.Wait(); err != nil {
		return stats, err
	}

	return stats, nil
}

// Range is a half-open unit interval.
type Range struct {
	Lo, Hi int
}

// StaticPlan returns, per worker, the chunks that the static policy assigns
// to it for n units. The plan is fixed before execution and is exactly what
// Run follows for Static.
func StaticPlan(n, workers, chunk int) [][]Range {
	if workers < 1 || chunk < 1 {
		return nil
	}

	plan := make([][]Range, workers)
	if n <= 0 {
		return plan
	}

	c := newStaticClaimer(n, chunk, workers)

	for w := range workers {
		for round := 0; ; round++ {
			lo, hi, ok := c.claim(w, round)
			if !ok {
				break
			}

			plan[w] = append(plan[w], Range{Lo: lo, Hi: hi})
		}
	}

	return plan
}

// claimer hands out the next chunk for a worker. round counts the chunks
// the worker has claimed so far.
type claimer interface {
	claim(worker, round int) (lo, hi int, ok bool)
}

func newClaimer(n int, opts Options) claimer {
	// A chunk larger than n behaves like n and keeps the arithmetic in range.
	chunk := min(opts.Chunk, n)

	switch opts.Policy {
	case Dynamic:
		return &dynamicClaimer{n: int64(n), chunk: int64(chunk), chunks: int64(chunkCount(n, chunk))}
	case Guided:
		return &guidedClaimer{n: int64(n), chunk: int64(chunk), workers: int64(opts.Workers)}
	default:
		return newStaticClaimer(n, chunk, opts.Workers)
	}
}

// chunkCount returns ceil(n/chunk) for n, chunk >= 1.
func chunkCount(n, chunk int) int {
	return (n-1)/chunk + 1
}

// staticClaimer gives chunk k to worker k mod workers.
type staticClaimer struct {
	n, chunk, chunks, workers int
}

func newStaticClaimer(n, chunk, workers int) staticClaimer {
	chunk = min(chunk, n)
	return staticClaimer{n: n, chunk: chunk, chunks: chunkCount(n, chunk), workers: workers}
}

func (c staticClaimer) claim(worker, round int) (int, int, bool) {
	// Bound round before multiplying so k stays below chunks.
	if worker >= c.chunks || round > (c.chunks-1-worker)/c.workers {
		return 0, 0, false
	}

	lo := (worker + round*c.workers) * c.chunk

	return lo, min(lo+c.chunk, c.n), true
}

// dynamicClaimer hands out fixed-size chunks from a shared counter.
type dynamicClaimer struct {
	n, chunk, chunks int64
	next             atomic.Int64
}

func (c *dynamicClaimer) claim(_, _ int) (int, int, bool) {
	k := c.next.Add(1) - 1
	if k >= c.chunks {
		return 0, 0, false
	}

	lo := k * c.chunk

	return int(lo), int(min(lo+c.chunk, c.n)), true
}

// guidedClaimer grants ceil(remaining/workers) units per claim, never less
// than chunk and never more than what is left.
type guidedClaimer struct {
	n, chunk, workers int64
	cursor            atomic.Int64
}

func (c *guidedClaimer) claim(_, _ int) (int, int, bool) {
	for {
		lo := c.cursor.Load()

		remaining := c.n - lo
		if remaining <= 0 {
			return 0, 0, false
		}

		size := max((remaining-1)/c.workers+1, c.chunk)
		size = min(size, remaining)

		if c.cursor.CompareAndSwap(lo, lo+size) {
			return int(lo), int(lo + size), true
		}
	}
}
