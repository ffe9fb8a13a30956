// Package kernel builds square convolution weight grids.
package kernel

import (
	"errors"
	"fmt"
	"io"
	"math"
	"slices"
	"strings"
)

var ErrInvalidKernelSize = errors.New("invalid kernel size")

// SupportedSizes lists the side lengths accepted on the command line.
var SupportedSizes = []int{3, 5, 7, 9, 11, 15, 21, 31}

// Filter names a weight generator.
type Filter string

const (
	Gaussian Filter = "gaussian"
	Box      Filter = "box"
)

// ParseFilter converts a case-insensitive filter name.
func ParseFilter(raw string) (Filter, error) {
	f := Filter(strings.ToLower(strings.TrimSpace(raw)))
	switch f {
	case Gaussian, Box:
		return f, nil
	default:
		return "", fmt.Errorf("unknown filter %q (expected %s|%s)", raw, Gaussian, Box)
	}
}

// Kernel is a Size x Size grid of weights stored row-major in one slice.
type Kernel struct {
	Size    int
	Weights []float32
}

// Half returns the offset of the center tap.
func (k *Kernel) Half() int { return k.Size / 2 }

// At returns the weight at row ky, column kx.
func (k *Kernel) At(ky, kx int) float32 { return k.Weights[ky*k.Size+kx] }

// Sum returns the sum of all weights.
func (k *Kernel) Sum() float64 {
	var s float64
	for _, w := range k.Weights {
		s += float64(w)
	}

	return s
}

func checkSize(size int) error {
	if size < 1 || size%2 == 0 {
		return fmt.Errorf("%w: %d (must be a positive odd number)", ErrInvalidKernelSize, size)
	}

	return nil
}

// CheckSupported reports whether size is one of SupportedSizes.
func CheckSupported(size int) error {
	if !slices.Contains(SupportedSizes, size) {
		return fmt.Errorf("%w: %d (supported: %v)", ErrInvalidKernelSize, size, SupportedSizes)
	}

	return nil
}

// New wraps caller-provided weights. len(weights) must be size*size.
func New(size int, weights []float32) (*Kernel, error) {
	if err := checkSize(size); err != nil {
		return nil, err
	}

	if len(weights) != size*size {
		return nil, fmt.Errorf("%w: %d weights for a %dx%d kernel", ErrInvalidKernelSize, len(weights), size, size)
	}

	return &Kernel{Size: size, Weights: slices.Clone(weights)}, nil
}

// NewGaussian returns a normalized Gaussian kernel. sigma <= 0 selects
// size/6.
func NewGaussian(size int, sigma float64) (*Kernel, error) {
	if err := checkSize(size); err != nil {
		return nil, err
	}

	if sigma <= 0 {
		sigma = float64(size) / 6
	}

	k := &Kernel{Size: size, Weights: make([]float32, size*size)}
	center := size / 2
	denom := 2 * sigma * sigma

	var sum float64
	for i := range size {
		for j := range size {
			x, y := i-center, j-center
			v := math.Exp(-float64(x*x+y*y) / denom)
			k.Weights[i*size+j] = float32(v)
			sum += v
		}
	}

	for i, w := range k.Weights {
		k.Weights[i] = float32(float64(w) / sum)
	}

	return k, nil
}

// NewBox returns a kernel with every weight 1/(size*size).
func NewBox(size int) (*Kernel, error) {
	if err := checkSize(size); err != nil {
		return nil, err
	}

	k := &Kernel{Size: size, Weights: make([]float32, size*size)}

	w := float32(1) / float32(size*size)
	for i := range k.Weights {
		k.Weights[i] = w
	}

	return k, nil
}

// NewIdentity returns a kernel that is 1 at the center and 0 elsewhere.
func NewIdentity(size int) (*Kernel, error) {
	if err := checkSize(size); err != nil {
		return nil, err
	}

	k := &Kernel{Size: size, Weights: make([]float32, size*size)}
	k.Weights[(size/2)*size+size/2] = 1

	return k, nil
}

// Build returns the kernel for filter f.
func Build(f Filter, size int, sigma float64) (*Kernel, error) {
	switch f {
	case Gaussian:
		return NewGaussian(size, sigma)
	case Box:
		return NewBox(size)
	default:
		return nil, fmt.Errorf("unknown filter %q", string(f))
	}
}

// Format writes the grid as rows of %8.5f cells.
func (k *Kernel) Format(w io.Writer) {
	sb := &strings.Builder{}

	fmt.Fprintf(sb, "Kernel (%dx%d):\n", k.Size, k.Size)

	for i := range k.Size {
		for j := range k.Size {
			fmt.Fprintf(sb, "%8.5f ", k.At(i, j))
		}

		sb.WriteString("\n")
	}

	fmt.Fprint(w, sb.String())
}
