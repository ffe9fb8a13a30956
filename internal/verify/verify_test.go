package verify_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/example/go-convbench/internal/conv"
	"github.com/example/go-convbench/internal/kernel"
	"github.com/example/go-convbench/internal/raster"
	"github.com/example/go-convbench/internal/sched"
	"github.com/example/go-convbench/internal/testutil"
	"github.com/example/go-convbench/internal/verify"
)

func kernels(t *testing.T) []*kernel.Kernel {
	t.Helper()

	g, err := kernel.NewGaussian(3, 0)
	if err != nil {
		t.Fatal(err)
	}

	b, err := kernel.NewBox(5)
	if err != nil {
		t.Fatal(err)
	}

	return []*kernel.Kernel{g, b}
}

func hasFailureContaining(failures []string, sub string) bool {
	for _, f := range failures {
		if strings.Contains(f, sub) {
			return true
		}
	}
	return false
}

// ---------------------------------------------------------------------------
// all-pass scenario
// ---------------------------------------------------------------------------

func TestRun_DefaultGridPasses(t *testing.T) {
	cfg := verify.DefaultGrid()
	cfg.Image = testutil.RandomImage(t, 19, 13, 3, 7)
	cfg.Kernels = kernels(t)

	var out strings.Builder
	result := verify.Run(cfg, &out)

	if result.Failed() {
		t.Fatalf("expected all checks to pass; failures: %v", result.Failures())
	}

	perKernel := 3 * 2 * 4 * 3 * 4
	if result.Checks() != 2*perKernel {
		t.Errorf("Checks() = %d; want %d", result.Checks(), 2*perKernel)
	}

	text := out.String()
	if strings.Contains(text, verify.FailMark) {
		t.Errorf("output should not contain %s:\n%s", verify.FailMark, text)
	}

	for _, want := range []string{"✓ kernel 3x3 static/c1/t1/row-major", "kernel 5x5: 288 configurations match sequential"} {
		if !strings.Contains(text, want) {
			t.Errorf("output missing %q", want)
		}
	}
}

func TestRun_QuietPrintsSummaryOnly(t *testing.T) {
	cfg := verify.DefaultGrid()
	cfg.Image = testutil.RandomImage(t, 8, 8, 1, 1)
	cfg.Kernels = kernels(t)[:1]
	cfg.Quiet = true

	var out strings.Builder
	verify.Run(cfg, &out)

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	if len(lines) != 1 {
		t.Errorf("quiet output should be one summary line, got:\n%s", out.String())
	}
}

// ---------------------------------------------------------------------------
// injected faults
// ---------------------------------------------------------------------------

func TestRun_MismatchFails(t *testing.T) {
	cfg := verify.DefaultGrid()
	cfg.Image = testutil.RandomImage(t, 9, 9, 1, 3)
	cfg.Kernels = kernels(t)[:1]
	cfg.Parallel = func(src *raster.Image, k *kernel.Kernel, ec conv.ExecConfig) (*raster.Image, sched.Stats, error) {
		out, stats, err := conv.Parallel(src, k, ec)
		if err == nil && ec.Policy == sched.Guided {
			out.Pix[0] ^= 0xff
		}
		return out, stats, err
	}

	var out strings.Builder
	result := verify.Run(cfg, &out)

	if !result.Failed() {
		t.Fatal("expected failure for corrupted guided output")
	}

	if len(result.Failures()) != 2*4*3*4 {
		t.Errorf("got %d failures; want one per guided configuration", len(result.Failures()))
	}

	if hasFailureContaining(result.Failures(), "static/") || hasFailureContaining(result.Failures(), "dynamic/") {
		t.Errorf("failures should name guided configurations only: %v", result.Failures())
	}

	if !strings.Contains(out.String(), "mismatch at (row 0, col 0, ch 0)") {
		t.Errorf("output should locate the mismatch:\n%s", out.String())
	}
}

func TestRun_ParallelErrorFails(t *testing.T) {
	cfg := verify.DefaultGrid()
	cfg.Image = testutil.RandomImage(t, 4, 4, 1, 3)
	cfg.Kernels = kernels(t)[:1]
	cfg.Threads = []int{2}
	cfg.Parallel = func(*raster.Image, *kernel.Kernel, conv.ExecConfig) (*raster.Image, sched.Stats, error) {
		return nil, sched.Stats{}, errors.New("worker exploded")
	}

	var out strings.Builder
	result := verify.Run(cfg, &out)

	if !hasFailureContaining(result.Failures(), "worker exploded") {
		t.Errorf("expected failure mentioning the error, got: %v", result.Failures())
	}
}

func TestRun_InvalidImageFails(t *testing.T) {
	cfg := verify.DefaultGrid()
	cfg.Image = &raster.Image{Width: 2, Height: 2, Channels: 1}
	cfg.Kernels = kernels(t)

	var out strings.Builder
	result := verify.Run(cfg, &out)

	if len(result.Failures()) != 2 || !hasFailureContaining(result.Failures(), "sequential baseline") {
		t.Errorf("expected one baseline failure per kernel, got: %v", result.Failures())
	}

	if result.Checks() != 0 {
		t.Errorf("Checks() = %d; want 0", result.Checks())
	}
}

func TestResult_AddFailure(t *testing.T) {
	var r verify.Result
	r.AddFailure("external")

	if !r.Failed() || r.Failures()[0] != "external" {
		t.Errorf("AddFailure not recorded: %v", r.Failures())
	}
}
