package bench

import (
	"errors"
	"fmt"
	"strings"

	"github.com/example/go-convbench/internal/conv"
	"github.com/example/go-convbench/internal/kernel"
	"github.com/example/go-convbench/internal/sched"
)

// Axis names the parameter a sweep varies.
type Axis string

const (
	AxisNone     Axis = ""
	AxisThreads  Axis = "threads"
	AxisSchedule Axis = "schedule"
	AxisChunk    Axis = "chunk"
	AxisTile     Axis = "tile"
	AxisOrder    Axis = "order"
	AxisKernel   Axis = "kernel"
)

var ErrUnknownAxis = errors.New("unknown sweep axis")

// Default sweep values.
var (
	SweepThreads = []int{1, 2, 4, 8, 16}
	SweepChunks  = []int{1, 4, 16, 64}
	SweepTiles   = []int{0, 16, 32, 64, 128}
)

// Axes returns every sweepable axis.
func Axes() []Axis {
	return []Axis{AxisThreads, AxisSchedule, AxisChunk, AxisTile, AxisOrder, AxisKernel}
}

// ParseAxis accepts an axis name; the empty string means no sweep.
func ParseAxis(raw string) (Axis, error) {
	a := Axis(strings.ToLower(strings.TrimSpace(raw)))
	if a == AxisNone {
		return AxisNone, nil
	}
	for _, known := range Axes() {
		if a == known {
			return a, nil
		}
	}
	return AxisNone, fmt.Errorf("%w %q (want threads|schedule|chunk|tile|order|kernel)", ErrUnknownAxis, raw)
}

// Case is one configuration to measure.
type Case struct {
	Kernel     *kernel.Kernel
	Exec       conv.ExecConfig
	Sequential bool
}

// Label names c in reports and profiles.
func (c Case) Label() string {
	if c.Sequential {
		return "sequential"
	}
	return c.Exec.Label()
}

// KernelFunc builds the kernel of a given size for kernel sweeps.
type KernelFunc func(size int) (*kernel.Kernel, error)

// Sweep expands base into one Case per value of axis. AxisNone yields base
// alone. Only the swept parameter differs between the returned cases.
func Sweep(axis Axis, base Case, build KernelFunc) ([]Case, error) {
	var cases []Case
	with := func(mod func(c *Case)) {
		c := base
		mod(&c)
		cases = append(cases, c)
	}

	switch axis {
	case AxisNone:
		cases = append(cases, base)
	case AxisThreads:
		for _, n := range SweepThreads {
			with(func(c *Case) { c.Exec.Threads = n })
		}
	case AxisSchedule:
		for _, p := range sched.Policies() {
			with(func(c *Case) { c.Exec.Policy = p })
		}
	case AxisChunk:
		for _, n := range SweepChunks {
			with(func(c *Case) { c.Exec.Chunk = n })
		}
	case AxisTile:
		for _, n := range SweepTiles {
			with(func(c *Case) { c.Exec.Tile = n })
		}
	case AxisOrder:
		for _, o := range sched.LoopOrders() {
			with(func(c *Case) {
				c.Exec.Order = o
				c.Exec.Tile = 0
			})
		}
	case AxisKernel:
		if build == nil {
			return nil, errors.New("kernel sweep needs a kernel builder")
		}
		for _, size := range kernel.SupportedSizes {
			k, err := build(size)
			if err != nil {
				return nil, fmt.Errorf("build %dx%d kernel: %w", size, size, err)
			}
			with(func(c *Case) { c.Kernel = k })
		}
	default:
		return nil, fmt.Errorf("%w %q", ErrUnknownAxis, string(axis))
	}

	for _, c := range cases {
		if c.Sequential {
			continue
		}
		if err := c.Exec.Validate(); err != nil {
			return nil, err
		}
	}

	return cases, nil
}
