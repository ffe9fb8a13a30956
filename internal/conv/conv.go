// Package conv implements 2-D spatial convolution of raster images.
//
// Sequential is the numeric reference. Parallel computes the same samples,
// split among workers according to an ExecConfig, and is byte-identical to
// Sequential for every valid configuration: each output sample is written by
// exactly one worker and its taps are always accumulated in the same order.
package conv

import (
	"errors"
	"fmt"

	"github.com/example/go-convbench/internal/kernel"
	"github.com/example/go-convbench/internal/raster"
	"github.com/example/go-convbench/internal/sched"
)

var (
	ErrInvalidConfig = errors.New("invalid execution config")
	ErrAllocation    = errors.New("allocation failure")
	ErrShapeMismatch = errors.New("image shape mismatch")
)

// Sequential convolves src with k on the calling goroutine. Taps falling
// outside the image contribute nothing (zero padding).
func Sequential(src *raster.Image, k *kernel.Kernel) (*raster.Image, error) {
	dst, err := prepare(src, k)
	if err != nil {
		return nil, err
	}

	convolveRect(dst, src, k, sched.Rect{X0: 0, Y0: 0, X1: src.Width, Y1: src.Height})

	return dst, nil
}

// SequentialInto is Sequential with a caller-provided output image of the
// same shape as src.
func SequentialInto(dst, src *raster.Image, k *kernel.Kernel) error {
	if err := checkOutput(dst, src, k); err != nil {
		return err
	}

	convolveRect(dst, src, k, sched.Rect{X0: 0, Y0: 0, X1: src.Width, Y1: src.Height})

	return nil
}

// Parallel convolves src with k using cfg.Threads workers. The returned
// stats describe how the units were shared. On error no image is returned.
func Parallel(src *raster.Image, k *kernel.Kernel, cfg ExecConfig) (*raster.Image, sched.Stats, error) {
	if err := cfg.Validate(); err != nil {
		return nil, sched.Stats{}, err
	}

	dst, err := prepare(src, k)
	if err != nil {
		return nil, sched.Stats{}, err
	}

	stats, err := parallelRegion(dst, src, k, cfg)
	if err != nil {
		return nil, stats, err
	}

	return dst, stats, nil
}

// ParallelInto is Parallel with a caller-provided output image, which must
// have the shape of src. Used by the benchmark harness to keep allocation
// out of timed runs. dst contents are undefined after an error.
func ParallelInto(dst, src *raster.Image, k *kernel.Kernel, cfg ExecConfig) (sched.Stats, error) {
	if err := cfg.Validate(); err != nil {
		return sched.Stats{}, err
	}

	if err := checkOutput(dst, src, k); err != nil {
		return sched.Stats{}, err
	}

	return parallelRegion(dst, src, k, cfg)
}

func parallelRegion(dst, src *raster.Image, k *kernel.Kernel, cfg ExecConfig) (sched.Stats, error) {
	space := cfg.Space(src.Width, src.Height)

	stats, err := sched.Run(space.Len(), cfg.schedOptions(), func(_, lo, hi int) {
		for u := lo; u < hi; u++ {
			convolveRect(dst, src, k, space.Unit(u))
		}
	})
	if err != nil {
		return stats, fmt.Errorf("conv: parallel region: %w", err)
	}

	return stats, nil
}

func checkInputs(src *raster.Image, k *kernel.Kernel) error {
	if err := src.Validate(); err != nil {
		if errors.Is(err, raster.ErrTooLarge) {
			return fmt.Errorf("%w: %w", ErrAllocation, err)
		}

		return fmt.Errorf("conv: input: %w", err)
	}

	if k == nil || k.Size < 1 || k.Size%2 == 0 || len(k.Weights) != k.Size*k.Size {
		return fmt.Errorf("conv: %w", kernel.ErrInvalidKernelSize)
	}

	return nil
}

func checkOutput(dst, src *raster.Image, k *kernel.Kernel) error {
	if err := checkInputs(src, k); err != nil {
		return err
	}

	if err := dst.Validate(); err != nil || !dst.SameShape(src) {
		return fmt.Errorf("%w: output %v, input %s", ErrShapeMismatch, dst, src)
	}

	if &dst.Pix[0] == &src.Pix[0] {
		return fmt.Errorf("%w: output aliases input", ErrShapeMismatch)
	}

	return nil
}

// prepare validates the inputs and allocates the output before any
// sample is computed.
func prepare(src *raster.Image, k *kernel.Kernel) (*raster.Image, error) {
	if err := checkInputs(src, k); err != nil {
		return nil, err
	}

	dst, err := raster.New(src.Width, src.Height, src.Channels)
	if err != nil {
		return nil, fmt.Errorf("%w: output buffer: %w", ErrAllocation, err)
	}

	return dst, nil
}

// convolveRect computes every output sample inside r.
func convolveRect(dst, src *raster.Image, k *kernel.Kernel, r sched.Rect) {
	width, height, channels := src.Width, src.Height, src.Channels
	size, half := k.Size, k.Size/2
	in, out := src.Pix, dst.Pix

	for y := r.Y0; y < r.Y1; y++ {
		for x := r.X0; x < r.X1; x++ {
			base := (y*width + x) * channels

			for c := range channels {
				var sum float32

				for ky := range size {
					iy := y + ky - half
					if iy < 0 || iy >= height {
						continue
					}

					taps := k.Weights[ky*size : (ky+1)*size]
					for kx, w := range taps {
						ix := x + kx - half
						if ix < 0 || ix >= width {
							continue
						}

						// The conversion forbids fusing the multiply into the add,
						// keeping every build on the same rounding.
						sum += float32(float32(in[(iy*width+ix)*channels+c]) * w)
					}
				}

				out[base+c] = quantize(sum)
			}
		}
	}
}

// quantize clamps to [0, 255] and rounds half up.
func quantize(sum float32) uint8 {
	switch {
	case !(sum > 0):
		return 0
	case sum >= 255:
		return 255
	default:
		return uint8(sum + 0.5)
	}
}
