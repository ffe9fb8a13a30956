package bench

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/pprof"
	"strconv"
	"time"

	"github.com/example/go-convbench/internal/conv"
	"github.com/example/go-convbench/internal/kernel"
	"github.com/example/go-convbench/internal/raster"
	"github.com/example/go-convbench/internal/sched"
)

// Options controls how many times each case runs.
type Options struct {
	Runs   int
	Warmup int
	Logger *slog.Logger
}

func (o Options) validate() error {
	if o.Runs < 1 {
		return fmt.Errorf("runs must be at least 1, got %d", o.Runs)
	}
	if o.Warmup < 0 {
		return fmt.Errorf("warmup must be >= 0, got %d", o.Warmup)
	}
	return nil
}

type baseline struct {
	out   *raster.Image
	runs  []RunResult
	stats Stats
}

// Runner times cases on one input image. Sequential baselines are measured
// once per kernel and reused for speedup and equivalence checks.
type Runner struct {
	src       *raster.Image
	opts      Options
	baselines map[*kernel.Kernel]*baseline
}

func NewRunner(src *raster.Image, opts Options) (*Runner, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}
	if err := src.Validate(); err != nil {
		return nil, fmt.Errorf("bench input: %w", err)
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	return &Runner{
		src:       src,
		opts:      opts,
		baselines: make(map[*kernel.Kernel]*baseline),
	}, nil
}

// Baseline returns the sequential output and timings for k, measuring them
// on first use.
func (r *Runner) Baseline(ctx context.Context, k *kernel.Kernel) (*raster.Image, Stats, error) {
	b, err := r.baseline(ctx, k)
	if err != nil {
		return nil, Stats{}, err
	}
	return b.out, b.stats, nil
}

func (r *Runner) baseline(ctx context.Context, k *kernel.Kernel) (*baseline, error) {
	if b, ok := r.baselines[k]; ok {
		return b, nil
	}

	out, err := raster.New(r.src.Width, r.src.Height, r.src.Channels)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", conv.ErrAllocation, err)
	}

	runs, err := r.time(ctx, "sequential", k, func() error {
		return conv.SequentialInto(out, r.src, k)
	}, nil)
	if err != nil {
		return nil, err
	}

	b := &baseline{out: out, runs: runs, stats: ComputeStats(durationsOf(runs))}
	r.baselines[k] = b

	return b, nil
}

// Measure times c and checks every parallel run against the sequential
// output for the same kernel.
func (r *Runner) Measure(ctx context.Context, c Case) (Result, error) {
	if c.Kernel == nil {
		return Result{}, fmt.Errorf("%s: %w", c.Label(), kernel.ErrInvalidKernelSize)
	}

	base, err := r.baseline(ctx, c.Kernel)
	if err != nil {
		return Result{}, err
	}

	res := Result{
		Label:      c.Label(),
		KernelSize: c.Kernel.Size,
	}

	if c.Sequential {
		res.Threads = 1
		res.Schedule = "sequential"
		res.Runs = base.runs
		res.Stats = base.stats
		res.Speedup = 1
		res.Efficiency = 1
		res.Imbalance = 1
		res.Match = true
		return res, nil
	}

	if err := c.Exec.Validate(); err != nil {
		return Result{}, err
	}

	res.Threads = c.Exec.Threads
	res.Schedule = c.Exec.Policy.String()
	res.Chunk = c.Exec.Chunk
	res.Tile = c.Exec.Tile
	res.LoopOrder = int(c.Exec.Order)
	res.Match = true

	out, err := raster.New(r.src.Width, r.src.Height, r.src.Channels)
	if err != nil {
		return Result{}, fmt.Errorf("%w: %w", conv.ErrAllocation, err)
	}

	var last sched.Stats
	check := func() {
		if !res.Match {
			return
		}
		d, differ, err := raster.FirstDiff(base.out, out)
		switch {
		case err != nil:
			res.Match, res.Mismatch = false, err.Error()
		case differ:
			res.Match, res.Mismatch = false, d.String()
		}
	}

	res.Runs, err = r.time(ctx, res.Label, c.Kernel, func() error {
		var err error
		last, err = conv.ParallelInto(out, r.src, c.Kernel, c.Exec)
		return err
	}, check)
	if err != nil {
		return Result{}, err
	}

	res.Stats = ComputeStats(durationsOf(res.Runs))
	res.Speedup = Speedup(base.stats.Mean, res.Stats.Mean)
	res.Efficiency = Efficiency(res.Speedup, c.Exec.Threads)
	res.Imbalance = last.Imbalance()

	return res, nil
}

// time runs fn Warmup+Runs times under pprof labels and returns the timed
// runs. after, when set, is called after every timed run outside the timer.
func (r *Runner) time(ctx context.Context, label string, k *kernel.Kernel, fn func() error, after func()) ([]RunResult, error) {
	var (
		runs   []RunResult
		runErr error
	)

	labels := pprof.Labels("strategy", label, "kernel", strconv.Itoa(k.Size))
	pprof.Do(ctx, labels, func(ctx context.Context) {
		for i := range r.opts.Warmup {
			if err := ctx.Err(); err != nil {
				runErr = err
				return
			}
			if err := fn(); err != nil {
				runErr = fmt.Errorf("%s: warmup run %d: %w", label, i+1, err)
				return
			}
		}

		runs = make([]RunResult, 0, r.opts.Runs)
		for i := range r.opts.Runs {
			if err := ctx.Err(); err != nil {
				runErr = err
				return
			}

			start := time.Now()
			err := fn()
			dur := time.Since(start)
			if err != nil {
				runErr = fmt.Errorf("%s: run %d: %w", label, i+1, err)
				return
			}

			r.opts.Logger.Debug("bench run",
				"strategy", label,
				"kernel", k.Size,
				"run", i+1,
				"ms", ms(dur),
			)

			if after != nil {
				after()
			}

			runs = append(runs, RunResult{Index: i, Cold: i == 0, Duration: dur})
		}
	})

	if runErr != nil {
		if errors.Is(runErr, context.Canceled) || errors.Is(runErr, context.DeadlineExceeded) {
			return nil, fmt.Errorf("%s: %w", label, runErr)
		}
		return nil, runErr
	}

	return runs, nil
}
