// Package cachegrind parses the simulator's textual output format into the
// typed stats model, and classifies parse failures the way the rest of the
// module's error handling expects: I/O causes separate from content causes.
package cachegrind

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/cgbench/yab/internal/funckey"
	"github.com/cgbench/yab/internal/measure"
	"github.com/cgbench/yab/internal/stats"
)

// Sentinel content-parse errors. Each names a specific way the cachegrind
// summary grammar can be violated; ErrMissingEvent is parameterized via
// MissingEventError below since the event key varies.
var (
	ErrEventsRedeclared     = errors.New("cachegrind: events redeclared")
	ErrNoEvents             = errors.New("cachegrind: no events line")
	ErrSummaryRedeclared    = errors.New("cachegrind: summary redeclared")
	ErrNoSummary            = errors.New("cachegrind: no summary line")
	ErrEventSummaryMismatch = errors.New("cachegrind: event/summary column count mismatch")
)

// MissingEventError reports that a required column was absent from the
// events line.
type MissingEventError struct {
	Key string
}

func (e *MissingEventError) Error() string {
	return fmt.Sprintf("cachegrind: missing summary for event %q", e.Key)
}

// ParseError wraps any parse failure (I/O or content) with the file path
// that was being read, matching the source's "report I/O vs. content,
// both with the file path" rule.
type ParseError struct {
	Path string
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("cachegrind: reading %s: %v", e.Path, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// Parse reads a simulator output text stream and builds a RunRecord.
func Parse(r io.Reader, path string) (measure.RunRecord, error) {
	rec, err := parse(r)
	if err != nil {
		return measure.RunRecord{}, &ParseError{Path: path, Err: err}
	}
	return rec, nil
}

func parse(r io.Reader) (measure.RunRecord, error) {
	scanner := bufio.NewScanner(r)

	var eventsLine, summaryLine *string
	var curFile string
	var curFunc string
	breakdown := map[funckey.Key]map[string]uint64{}
	order := []funckey.Key{}

	addRow := func(tokens []string) error {
		if curFunc == "" {
			// A data row with no preceding fn= is not part of the
			// function breakdown grammar; ignore it the way the source
			// only accumulates rows under an active fn=.
			return nil
		}
		key := funckey.New(curFunc, curFile)
		values, ok := breakdown[key]
		if !ok {
			values = map[string]uint64{}
			breakdown[key] = values
			order = append(order, key)
		}
		// tokens[0] is the discarded source-line offset.
		cols := tokens[1:]
		for i, name := range eventNames(*eventsLine) {
			if i >= len(cols) {
				break
			}
			n, err := strconv.ParseUint(cols[i], 10, 64)
			if err != nil {
				return fmt.Errorf("data row value %q is not a u64", cols[i])
			}
			values[name] += n
		}
		return nil
	}

scanLines:
	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case strings.HasPrefix(line, "events:"):
			if eventsLine != nil {
				return measure.RunRecord{}, ErrEventsRedeclared
			}
			rest := strings.TrimPrefix(line, "events:")
			eventsLine = &rest
		case strings.HasPrefix(line, "summary:"):
			if summaryLine != nil {
				return measure.RunRecord{}, ErrSummaryRedeclared
			}
			rest := strings.TrimPrefix(line, "summary:")
			summaryLine = &rest
			// Parsing stops after the first summary line.
			break scanLines
		case strings.HasPrefix(line, "fl="):
			filename := strings.TrimPrefix(line, "fl=")
			if filename == "???" {
				curFile = ""
			} else {
				curFile = filename
			}
		case strings.HasPrefix(line, "fn="):
			curFunc = strings.TrimPrefix(line, "fn=")
		default:
			fields := strings.Fields(line)
			if len(fields) == 0 || eventsLine == nil {
				continue
			}
			if len(fields) != len(eventNames(*eventsLine))+1 {
				continue
			}
			if err := addRow(fields); err != nil {
				return measure.RunRecord{}, err
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return measure.RunRecord{}, err
	}
	if eventsLine == nil {
		return measure.RunRecord{}, ErrNoEvents
	}
	if summaryLine == nil {
		return measure.RunRecord{}, ErrNoSummary
	}

	names := eventNames(*eventsLine)
	summaryTokens := strings.Fields(*summaryLine)
	if len(names) != len(summaryTokens) {
		return measure.RunRecord{}, ErrEventSummaryMismatch
	}
	summaryByEvent := make(map[string]uint64, len(names))
	for i, name := range names {
		n, err := strconv.ParseUint(summaryTokens[i], 10, 64)
		if err != nil {
			return measure.RunRecord{}, fmt.Errorf("summary value %q is not a u64", summaryTokens[i])
		}
		summaryByEvent[name] = n
	}

	summary, err := statsFromEventMap(summaryByEvent)
	if err != nil {
		return measure.RunRecord{}, err
	}

	rec := measure.RunRecord{Summary: summary}
	if len(order) > 0 {
		rec.Breakdown = make(map[funckey.Key]stats.Stats, len(order))
		for _, key := range order {
			s, err := statsFromEventMap(breakdown[key])
			if err != nil {
				return measure.RunRecord{}, err
			}
			rec.Breakdown[key] = s
		}
	}
	return rec, nil
}

// eventNames splits an events: line into its ordered column names.
func eventNames(eventsLine string) []string {
	return strings.Fields(eventsLine)
}

// statsFromEventMap builds a Stats value from a name->value map covering
// some subset of the nine well-known columns: Simple if only Ir is
// present, Full if all nine are, an error otherwise.
func statsFromEventMap(m map[string]uint64) (stats.Stats, error) {
	if len(m) == 1 {
		if v, ok := m["Ir"]; ok {
			return stats.Simple(v), nil
		}
	}

	get := func(key string) (uint64, error) {
		v, ok := m[key]
		if !ok {
			return 0, &MissingEventError{Key: key}
		}
		return v, nil
	}

	full := stats.Full{}
	var err error
	if full.Instructions.Total, err = get("Ir"); err != nil {
		return stats.Stats{}, err
	}
	if full.Instructions.L1Misses, err = get("I1mr"); err != nil {
		return stats.Stats{}, err
	}
	if full.Instructions.L3Misses, err = get("ILmr"); err != nil {
		return stats.Stats{}, err
	}
	if full.DataReads.Total, err = get("Dr"); err != nil {
		return stats.Stats{}, err
	}
	if full.DataReads.L1Misses, err = get("D1mr"); err != nil {
		return stats.Stats{}, err
	}
	if full.DataReads.L3Misses, err = get("DLmr"); err != nil {
		return stats.Stats{}, err
	}
	if full.DataWrites.Total, err = get("Dw"); err != nil {
		return stats.Stats{}, err
	}
	if full.DataWrites.L1Misses, err = get("D1mw"); err != nil {
		return stats.Stats{}, err
	}
	if full.DataWrites.L3Misses, err = get("DLmw"); err != nil {
		return stats.Stats{}, err
	}
	return stats.FromFull(full), nil
}

