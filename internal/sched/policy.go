// Package sched divides an ordered sequence of work units among a fixed set
// of workers. It implements the static, dynamic and guided loop-scheduling
// policies and the iteration spaces (rows, columns, tiles) that the
// convolution engine distributes.
package sched

import (
	"errors"
	"fmt"
	"strings"
)

// Policy names a loop-scheduling policy.
type Policy string

const (
	// Static splits the units into chunks assigned round-robin before any
	// work starts.
	Static Policy = "static"
	// Dynamic hands out fixed-size chunks from a shared counter on demand.
	Dynamic Policy = "dynamic"
	// Guided hands out chunks that shrink with the remaining work, never
	// below the configured chunk size.
	Guided Policy = "guided"
)

var (
	ErrUnknownPolicy    = errors.New("unknown scheduling policy")
	ErrUnknownLoopOrder = errors.New("unknown loop order")
)

// Policies returns every supported policy in display order.
func Policies() []Policy {
	return []Policy{Static, Dynamic, Guided}
}

// ParsePolicy converts a case-insensitive policy name. Unknown names are
// rejected rather than mapped to a default.
func ParsePolicy(raw string) (Policy, error) {
	p := Policy(strings.ToLower(strings.TrimSpace(raw)))
	if !p.Valid() {
		return "", fmt.Errorf("%w %q (expected %s|%s|%s)", ErrUnknownPolicy, raw, Static, Dynamic, Guided)
	}

	return p, nil
}

// Valid reports whether p is one of the supported policies.
func (p Policy) Valid() bool {
	switch p {
	case Static, Dynamic, Guided:
		return true
	default:
		return false
	}
}

func (p Policy) String() string { return string(p) }

// LoopOrder selects the outer dimension of an untiled iteration space.
type LoopOrder int

const (
	// RowMajor iterates rows in the outer loop (Y-first).
	RowMajor LoopOrder = 0
	// ColumnMajor iterates columns in the outer loop (X-first).
	ColumnMajor LoopOrder = 1
)

// LoopOrders returns both loop orders.
func LoopOrders() []LoopOrder {
	return []LoopOrder{RowMajor, ColumnMajor}
}

// ParseLoopOrder validates the numeric loop order used on the command line
// (0 = row-major, 1 = column-major).
func ParseLoopOrder(v int) (LoopOrder, error) {
	o := LoopOrder(v)
	if !o.Valid() {
		return 0, fmt.Errorf("%w %d (expected 0=row-major|1=column-major)", ErrUnknownLoopOrder, v)
	}

	return o, nil
}

// Valid reports whether o is RowMajor or ColumnMajor.
func (o LoopOrder) Valid() bool {
	return o == RowMajor || o == ColumnMajor
}

func (o LoopOrder) String() string {
	switch o {
	case RowMajor:
		return "row-major"
	case ColumnMajor:
		return "column-major"
	default:
		return fmt.Sprintf("LoopOrder(%d)", int(o))
	}
}
