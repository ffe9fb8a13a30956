// Package testutil provides shared fixtures and assertions for tests.
//
// Skip helpers call t.Skip with a clear reason when a prerequisite is
// absent, so the slower tests remain runnable in partial environments
// without failing noisily.
//
// Typical usage:
//
//	func TestLargeImage(t *testing.T) {
//	    testutil.RequireLong(t)
//	    src := testutil.RandomImage(t, 1024, 768, 3, 1)
//	    ...
//	}
package testutil

import (
	"os"
	"testing"

	"github.com/example/go-convbench/internal/raster"
)

// RequireLong skips the test when -short is set.
func RequireLong(tb testing.TB) {
	tb.Helper()

	if testing.Short() {
		tb.Skip("skipping long-running test in -short mode")
	}
}

// RequireImageFile skips the test if path does not name a readable image
// file. The path may also be given through CONVBENCH_TEST_IMAGE.
func RequireImageFile(tb testing.TB, path string) string {
	tb.Helper()

	if p := os.Getenv("CONVBENCH_TEST_IMAGE"); p != "" {
		path = p
	}

	// #nosec G703 -- Test fixtures intentionally accept env-provided local paths.
	if _, err := os.Stat(path); err != nil {
		tb.Skipf("test image not available at %q: %v", path, err)
	}

	return path
}

// RandomImage returns a deterministic noise image for seed.
func RandomImage(tb testing.TB, width, height, channels int, seed uint64) *raster.Image {
	tb.Helper()

	img, err := raster.Noise(width, height, channels, seed)
	if err != nil {
		tb.Fatalf("noise image %dx%dx%d: %v", width, height, channels, err)
	}

	return img
}

// AssertSameImage fails the test at the first sample where got differs from
// want.
func AssertSameImage(tb testing.TB, want, got *raster.Image) {
	tb.Helper()

	d, differ, err := raster.FirstDiff(want, got)
	if err != nil {
		tb.Fatalf("compare images: %v", err)
	}

	if differ {
		tb.Fatalf("images differ at %s", d)
	}
}
