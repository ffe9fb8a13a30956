// Package verify checks that every parallel strategy reproduces the
// sequential baseline byte for byte.
package verify

import (
	"fmt"
	"io"

	"github.com/example/go-convbench/internal/conv"
	"github.com/example/go-convbench/internal/kernel"
	"github.com/example/go-convbench/internal/raster"
	"github.com/example/go-convbench/internal/sched"
)

// PassMark and FailMark are the prefix symbols printed for each check result.
const (
	PassMark = "✓"
	FailMark = "✗"
)

// ParallelFunc computes a convolution under an execution config.
type ParallelFunc func(src *raster.Image, k *kernel.Kernel, cfg conv.ExecConfig) (*raster.Image, sched.Stats, error)

// Config holds the grid to check and injectable dependencies.
type Config struct {
	Image   *raster.Image
	Kernels []*kernel.Kernel

	Policies []sched.Policy
	Orders   []sched.LoopOrder
	Tiles    []int
	Chunks   []int
	Threads  []int

	// Parallel defaults to conv.Parallel.
	Parallel ParallelFunc
	// Quiet suppresses passing lines; failures and summaries are always printed.
	Quiet bool
}

// DefaultGrid returns a Config covering every policy and loop order with
// chunk, tile and thread counts chosen to hit uneven splits.
func DefaultGrid() Config {
	return Config{
		Policies: sched.Policies(),
		Orders:   sched.LoopOrders(),
		Tiles:    []int{0, 1, 7, 64},
		Chunks:   []int{1, 3, 64},
		Threads:  []int{1, 2, 3, 8},
	}
}

// Result collects the outcome of all checks.
type Result struct {
	checks   int
	failures []string
}

// Failed returns true if any check failed.
func (r *Result) Failed() bool { return len(r.failures) > 0 }

// Failures returns the list of failure messages.
func (r *Result) Failures() []string { return append([]string(nil), r.failures...) }

// Checks returns the number of configurations compared.
func (r *Result) Checks() int { return r.checks }

// AddFailure appends an external failure message to the result.
func (r *Result) AddFailure(msg string) { r.failures = append(r.failures, msg) }

func (r *Result) fail(msg string) { r.failures = append(r.failures, msg) }

// Run compares every configuration of the grid against the sequential
// baseline and writes one line per check to w.
func Run(cfg Config, w io.Writer) Result {
	var res Result

	parallel := cfg.Parallel
	if parallel == nil {
		parallel = conv.Parallel
	}

	for _, k := range cfg.Kernels {
		name := fmt.Sprintf("%dx%d", k.Size, k.Size)

		want, err := conv.Sequential(cfg.Image, k)
		if err != nil {
			res.fail(fmt.Sprintf("kernel %s: sequential baseline: %v", name, err))
			fmt.Fprintf(w, "%s kernel %s: sequential baseline failed (%v)\n", FailMark, name, err)
			continue
		}

		failedBefore := len(res.failures)
		checked := 0

		for _, policy := range cfg.Policies {
			for _, order := range cfg.Orders {
				for _, tile := range cfg.Tiles {
					for _, chunk := range cfg.Chunks {
						for _, threads := range cfg.Threads {
							ec := conv.ExecConfig{Threads: threads, Policy: policy, Chunk: chunk, Tile: tile, Order: order}
							checked++

							if msg := check(parallel, cfg.Image, k, ec, want); msg != "" {
								res.fail(fmt.Sprintf("kernel %s %s: %s", name, ec.Label(), msg))
								fmt.Fprintf(w, "%s kernel %s %s: %s\n", FailMark, name, ec.Label(), msg)
							} else if !cfg.Quiet {
								fmt.Fprintf(w, "%s kernel %s %s\n", PassMark, name, ec.Label())
							}
						}
					}
				}
			}
		}

		res.checks += checked

		if bad := len(res.failures) - failedBefore; bad > 0 {
			fmt.Fprintf(w, "%s kernel %s: %d of %d configurations differ from sequential\n", FailMark, name, bad, checked)
		} else {
			fmt.Fprintf(w, "%s kernel %s: %d configurations match sequential\n", PassMark, name, checked)
		}
	}

	return res
}

// check returns an empty string when the parallel output equals want.
func check(parallel ParallelFunc, src *raster.Image, k *kernel.Kernel, ec conv.ExecConfig, want *raster.Image) string {
	got, _, err := parallel(src, k, ec)
	if err != nil {
		return err.Error()
	}

	d, differ, err := raster.FirstDiff(want, got)
	if err != nil {
		return err.Error()
	}
	if differ {
		return "mismatch at " + d.String()
	}

	return ""
}
