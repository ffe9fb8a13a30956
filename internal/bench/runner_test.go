package bench_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/example/go-convbench/internal/bench"
	"github.com/example/go-convbench/internal/conv"
	"github.com/example/go-convbench/internal/kernel"
	"github.com/example/go-convbench/internal/raster"
	"github.com/example/go-convbench/internal/sched"
	"github.com/example/go-convbench/internal/testutil"
)

func newRunner(t *testing.T, src *raster.Image) *bench.Runner {
	t.Helper()

	r, err := bench.NewRunner(src, bench.Options{Runs: 2, Warmup: 1})
	if err != nil {
		t.Fatalf("NewRunner: %v", err)
	}

	return r
}

func TestRunner_MeasureMatchesBaseline(t *testing.T) {
	src := testutil.RandomImage(t, 40, 30, 3, 11)
	r := newRunner(t, src)
	ctx := context.Background()

	k, err := kernel.NewGaussian(5, 0)
	if err != nil {
		t.Fatal(err)
	}

	want, err := conv.Sequential(src, k)
	if err != nil {
		t.Fatalf("Sequential: %v", err)
	}

	got, _, err := r.Baseline(ctx, k)
	if err != nil {
		t.Fatalf("Baseline: %v", err)
	}
	testutil.AssertSameImage(t, want, got)

	for _, policy := range sched.Policies() {
		c := bench.Case{Kernel: k, Exec: conv.ExecConfig{Threads: 3, Policy: policy, Chunk: 2, Tile: 8}}

		res, err := r.Measure(ctx, c)
		if err != nil {
			t.Fatalf("Measure(%s): %v", c.Label(), err)
		}

		if !res.Match {
			t.Errorf("%s: mismatch %s", c.Label(), res.Mismatch)
		}

		if len(res.Runs) != 2 || !res.Runs[0].Cold || res.Runs[1].Cold {
			t.Errorf("%s: runs = %+v", c.Label(), res.Runs)
		}

		if res.Threads != 3 || res.Schedule != string(policy) || res.Chunk != 2 || res.Tile != 8 || res.KernelSize != 5 {
			t.Errorf("%s: result = %+v", c.Label(), res)
		}

		if res.Imbalance < 1 {
			t.Errorf("%s: imbalance = %v, want >= 1", c.Label(), res.Imbalance)
		}
	}
}

func TestRunner_SequentialCase(t *testing.T) {
	src := testutil.RandomImage(t, 16, 16, 1, 2)
	r := newRunner(t, src)

	k, err := kernel.NewBox(3)
	if err != nil {
		t.Fatal(err)
	}

	res, err := r.Measure(context.Background(), bench.Case{Kernel: k, Sequential: true})
	if err != nil {
		t.Fatalf("Measure: %v", err)
	}

	if res.Label != "sequential" || res.Speedup != 1 || !res.Match || len(res.Runs) != 2 {
		t.Errorf("result = %+v", res)
	}
}

func TestRunner_RejectsInvalidCases(t *testing.T) {
	src := testutil.RandomImage(t, 8, 8, 1, 3)
	r := newRunner(t, src)
	ctx := context.Background()

	if _, err := r.Measure(ctx, bench.Case{Exec: conv.DefaultExecConfig()}); !errors.Is(err, kernel.ErrInvalidKernelSize) {
		t.Errorf("nil kernel: err = %v", err)
	}

	k, err := kernel.NewBox(3)
	if err != nil {
		t.Fatal(err)
	}

	bad := conv.DefaultExecConfig()
	bad.Threads = 0
	if _, err := r.Measure(ctx, bench.Case{Kernel: k, Exec: bad}); !errors.Is(err, conv.ErrInvalidConfig) {
		t.Errorf("zero threads: err = %v", err)
	}
}

func TestRunner_CanceledContext(t *testing.T) {
	src := testutil.RandomImage(t, 8, 8, 1, 3)
	r := newRunner(t, src)

	k, err := kernel.NewBox(3)
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := r.Measure(ctx, bench.Case{Kernel: k, Exec: conv.DefaultExecConfig()}); !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}

func TestNewRunner_InvalidOptions(t *testing.T) {
	src := testutil.RandomImage(t, 4, 4, 1, 1)

	if _, err := bench.NewRunner(src, bench.Options{Runs: 0}); err == nil {
		t.Error("runs=0 should fail")
	}

	if _, err := bench.NewRunner(src, bench.Options{Runs: 1, Warmup: -1}); err == nil {
		t.Error("warmup=-1 should fail")
	}

	if _, err := bench.NewRunner(nil, bench.Options{Runs: 1}); !errors.Is(err, raster.ErrInvalidImage) {
		t.Errorf("nil image: err = %v", err)
	}
}

func TestStartCPUProfile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cpu.pprof")

	stop, err := bench.StartCPUProfile(path)
	if err != nil {
		t.Fatalf("StartCPUProfile: %v", err)
	}

	src := testutil.RandomImage(t, 32, 32, 3, 4)
	r := newRunner(t, src)
	k, err := kernel.NewGaussian(3, 0)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := r.Measure(context.Background(), bench.Case{Kernel: k, Exec: conv.DefaultExecConfig()}); err != nil {
		t.Fatalf("Measure: %v", err)
	}

	if err := stop(); err != nil {
		t.Fatalf("stop: %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("profile not written: %v", err)
	}

	if info.Size() == 0 {
		t.Error("profile is empty")
	}
}

func TestStartCPUProfile_BadPath(t *testing.T) {
	if _, err := bench.StartCPUProfile(filepath.Join(t.TempDir(), "missing", "cpu.pprof")); err == nil {
		t.Error("want error for unwritable profile path")
	}
}
