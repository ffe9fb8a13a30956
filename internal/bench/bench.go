// Package bench measures convolution strategies against the sequential
// baseline and formats the results for the convbench bench command.
package bench

import (
	"fmt"
	"time"
)

// ---------------------------------------------------------------------------
// Run result and stats
// ---------------------------------------------------------------------------

// RunResult holds the timing of a single convolution run.
type RunResult struct {
	Index    int
	Cold     bool // true for the first timed run
	Duration time.Duration
}

// Stats holds aggregate timing statistics across all runs.
type Stats struct {
	Min  time.Duration
	Max  time.Duration
	Mean time.Duration
}

// ComputeStats calculates min, max and mean over a slice of durations.
// An empty slice yields zero Stats.
func ComputeStats(durations []time.Duration) Stats {
	if len(durations) == 0 {
		return Stats{}
	}
	mn, mx := durations[0], durations[0]
	var sum time.Duration
	for _, d := range durations {
		if d < mn {
			mn = d
		}
		if d > mx {
			mx = d
		}
		sum += d
	}
	return Stats{
		Min:  mn,
		Max:  mx,
		Mean: sum / time.Duration(len(durations)),
	}
}

func durationsOf(runs []RunResult) []time.Duration {
	out := make([]time.Duration, len(runs))
	for i, r := range runs {
		out[i] = r.Duration
	}
	return out
}

// ---------------------------------------------------------------------------
// Speedup helpers
// ---------------------------------------------------------------------------

// Speedup returns baseline / elapsed.
// Returns 0 if elapsed is zero to avoid division by zero.
func Speedup(baseline, elapsed time.Duration) float64 {
	if elapsed <= 0 {
		return 0
	}
	return float64(baseline) / float64(elapsed)
}

// Efficiency returns speedup / threads.
func Efficiency(speedup float64, threads int) float64 {
	if threads < 1 {
		return 0
	}
	return speedup / float64(threads)
}

// ---------------------------------------------------------------------------
// Time threshold gate
// ---------------------------------------------------------------------------

// CheckTimeThreshold returns an error if mean > threshold.
// A threshold of 0 disables the gate.
func CheckTimeThreshold(label string, mean, threshold time.Duration) error {
	if threshold <= 0 {
		return nil
	}
	if mean > threshold {
		return fmt.Errorf("%s: mean time %v exceeds threshold %v", label, mean, threshold)
	}
	return nil
}
