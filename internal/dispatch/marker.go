// Package dispatch parses the private CLI marker that hands iteration
// count, baseline/full flag, and bench id from a parent invocation to the
// child process it re-enters as HarnessChild.
package dispatch

import (
	"fmt"
	"strconv"
)

// MarkerFlag is the private flag name. It is never registered with the
// public flag parser (internal/options) — hidden from --help the same way
// the source marks it #[arg(hide = true)].
const MarkerFlag = "--cachegrind-instrument"

// Marker is the parsed form of "--cachegrind-instrument ITERS (+|-) ID".
type Marker struct {
	Iterations uint64
	IsBaseline bool
	ID         string
}

// Parse walks a positional argument list the way CachegrindOptions::parse_args
// does: the first element is the executable name and is skipped, the second
// must equal MarkerFlag or this call reports "not present" (nil, nil) rather
// than an error — args not aimed at child mode are a normal, expected shape.
// Once the marker is detected, the remaining three arguments are mandatory
// and any malformed positional argument is a fatal configuration error.
func Parse(argv []string) (*Marker, error) {
	if len(argv) < 2 || argv[1] != MarkerFlag {
		return nil, nil
	}
	rest := argv[2:]
	if len(rest) < 3 {
		return nil, fmt.Errorf("dispatch: %s requires ITERS (+|-) ID, got %d args", MarkerFlag, len(rest))
	}

	iterations, err := strconv.ParseUint(rest[0], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("dispatch: invalid iteration count %q: %w", rest[0], err)
	}

	var isBaseline bool
	switch rest[1] {
	case "+":
		isBaseline = true
	case "-":
		isBaseline = false
	default:
		return nil, fmt.Errorf("dispatch: expected '+' or '-', got %q", rest[1])
	}

	return &Marker{Iterations: iterations, IsBaseline: isBaseline, ID: rest[2]}, nil
}

// PushArgs appends the marker's wire form to an argv slice being built for
// a simulator invocation, mirroring CachegrindOptions::push_args.
func (m Marker) PushArgs(argv []string) []string {
	flag := "-"
	if m.IsBaseline {
		flag = "+"
	}
	return append(argv, MarkerFlag, strconv.FormatUint(m.Iterations, 10), flag, m.ID)
}
