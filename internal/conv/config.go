package conv

import (
	"fmt"
	"io"
	"strings"

	"github.com/example/go-convbench/internal/sched"
)

// ExecConfig selects how the parallel engine divides an image among
// workers. Every valid ExecConfig produces the same output; only the
// wall-clock behavior differs. It is a plain value and is never modified by
// the engine.
type ExecConfig struct {
	Threads int
	Policy  sched.Policy
	Chunk   int
	Tile    int // 0 disables tiling
	Order   sched.LoopOrder
}

// DefaultExecConfig mirrors the command-line defaults.
func DefaultExecConfig() ExecConfig {
	return ExecConfig{
		Threads: 4,
		Policy:  sched.Static,
		Chunk:   1,
		Tile:    0,
		Order:   sched.RowMajor,
	}
}

// NewExecConfig builds and validates an ExecConfig from raw operator input.
// Unknown policies and loop orders are rejected, never defaulted.
func NewExecConfig(threads int, policy string, chunk, tile, loopOrder int) (ExecConfig, error) {
	p, err := sched.ParsePolicy(policy)
	if err != nil {
		return ExecConfig{}, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}

	order, err := sched.ParseLoopOrder(loopOrder)
	if err != nil {
		return ExecConfig{}, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}

	c := ExecConfig{
		Threads: threads,
		Policy:  p,
		Chunk:   chunk,
		Tile:    tile,
		Order:   order,
	}
	if err := c.Validate(); err != nil {
		return ExecConfig{}, err
	}

	return c, nil
}

// Validate reports the first out-of-range field as ErrInvalidConfig.
func (c ExecConfig) Validate() error {
	switch {
	case c.Threads < 1:
		return fmt.Errorf("%w: thread count must be >= 1, got %d", ErrInvalidConfig, c.Threads)
	case c.Chunk < 1:
		return fmt.Errorf("%w: chunk size must be >= 1, got %d", ErrInvalidConfig, c.Chunk)
	case c.Tile < 0:
		return fmt.Errorf("%w: tile size must be >= 0, got %d", ErrInvalidConfig, c.Tile)
	case !c.Policy.Valid():
		return fmt.Errorf("%w: %w %q", ErrInvalidConfig, sched.ErrUnknownPolicy, string(c.Policy))
	case !c.Order.Valid():
		return fmt.Errorf("%w: %w %d", ErrInvalidConfig, sched.ErrUnknownLoopOrder, int(c.Order))
	}

	return nil
}

// Space returns the iteration space c uses for a width x height image.
func (c ExecConfig) Space(width, height int) sched.Space {
	return sched.NewSpace(width, height, c.Tile, c.Order)
}

func (c ExecConfig) schedOptions() sched.Options {
	return sched.Options{Workers: c.Threads, Policy: c.Policy, Chunk: c.Chunk}
}

// Label is a compact one-line description used in reports and logs.
func (c ExecConfig) Label() string {
	layout := c.Order.String()
	if c.Tile > 0 {
		layout = fmt.Sprintf("tile%d", c.Tile)
	}

	return fmt.Sprintf("%s/c%d/t%d/%s", c.Policy, c.Chunk, c.Threads, layout)
}

// Format writes the configuration block printed before a parallel run.
func (c ExecConfig) Format(w io.Writer) {
	sb := &strings.Builder{}

	tiling := ""
	if c.Tile == 0 {
		tiling = " (no tiling)"
	}

	order := "Y-first"
	if c.Order == sched.ColumnMajor {
		order = "X-first"
	}

	fmt.Fprintln(sb, "Configuration:")
	fmt.Fprintf(sb, "  Threads: %d\n", c.Threads)
	fmt.Fprintf(sb, "  Schedule: %s\n", c.Policy)
	fmt.Fprintf(sb, "  Chunk size: %d\n", c.Chunk)
	fmt.Fprintf(sb, "  Tile size: %d%s\n", c.Tile, tiling)
	fmt.Fprintf(sb, "  Loop order: %s\n", order)

	fmt.Fprint(w, sb.String())
}
