// Package regression implements RegressionChecker: a reporter that flags
// benchmarks whose instruction count grew beyond a configured threshold
// relative to a named baseline, and fails the run at shutdown if any did.
package regression

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/cgbench/yab/internal/benchid"
	"github.com/cgbench/yab/internal/measure"
	"github.com/cgbench/yab/internal/report"
	"github.com/cgbench/yab/internal/stats"
)

// Regressed records one benchmark whose instruction count grew past the
// threshold.
type Regressed struct {
	ID       string
	Previous uint64
	Current  uint64
	Ratio    float64
}

// Checker is the Reporter that compares every published benchmark's
// current instruction count against `previous` (supplied only when the
// comparison source is a named baseline) and accumulates offenders past
// threshold.
type Checker struct {
	threshold float64

	mu          sync.Mutex
	regressions []Regressed
}

// NewChecker constructs a Checker gating on the given relative-increase
// threshold (e.g. 0.05 for 5%).
func NewChecker(threshold float64) *Checker {
	return &Checker{threshold: threshold}
}

// Error is a no-op; the checker only reacts to published outputs.
func (c *Checker) Error(error) {}

// NewTest returns a TestReporter that ignores test outcomes.
func (c *Checker) NewTest(benchid.ID) report.TestReporter { return noopTestReporter{} }

// ListItem is a no-op; regression gating never applies to --list.
func (c *Checker) ListItem(benchid.ID) {}

// NewBenchmark returns a BenchmarkReporter that takes no action of its
// own; Checker's detection happens in Check, called directly by the
// driver before it decides whether a bench's result is OK or a Warning.
func (c *Checker) NewBenchmark(id benchid.ID) report.BenchmarkReporter {
	return &benchmarkChecker{id: id.String(), checker: c}
}

// Check compares output's current instruction count against its previous
// one (when present) and records id as regressed if the relative increase
// exceeds threshold. It returns the recorded entry and true when this
// bench regressed, so the driver can call Warning instead of OK for it
// without Checker needing to know which Reporter method gets called.
func (c *Checker) Check(id benchid.ID, output measure.Output) (Regressed, bool) {
	if output.Previous == nil {
		return Regressed{}, false
	}
	previous := output.Previous.Summary.TotalInstructions()
	current := output.Current.Summary.TotalInstructions()
	if previous == 0 || current <= previous {
		return Regressed{}, false
	}

	ratio := float64(current-previous) / float64(previous)
	if ratio <= c.threshold {
		return Regressed{}, false
	}

	r := Regressed{ID: id.String(), Previous: previous, Current: current, Ratio: ratio}
	c.mu.Lock()
	c.regressions = append(c.regressions, r)
	c.mu.Unlock()
	return r, true
}

// OK returns a formatted error listing every regression found, or nil if
// none were. The caller (the top-level run) is responsible for treating a
// non-nil error as fatal; Checker itself never calls os.Exit so it stays
// unit-testable.
func (c *Checker) OK() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.regressions) == 0 {
		return nil
	}
	sorted := make([]Regressed, len(c.regressions))
	copy(sorted, c.regressions)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ID < sorted[j].ID })

	var b strings.Builder
	b.WriteString("regression: the following benchmarks exceeded their threshold:\n")
	for _, r := range sorted {
		fmt.Fprintf(&b, "  %s: %d -> %d (+%.2f%%)\n", r.ID, r.Previous, r.Current, r.Ratio*100)
	}
	return fmt.Errorf("%s", b.String())
}

type noopTestReporter struct{}

func (noopTestReporter) OK()      {}
func (noopTestReporter) Fail(any) {}

// benchmarkChecker satisfies report.BenchmarkReporter for Seq fan-out but
// takes no action: the driver calls Checker.Check directly before it
// picks which single BenchmarkReporter method to invoke, so by the time
// any of these run the regression (if any) is already recorded.
type benchmarkChecker struct {
	id      string
	checker *Checker
}

func (b *benchmarkChecker) StartExecution()                     {}
func (b *benchmarkChecker) BaselineComputed(stats.Stats, uint64) {}
func (b *benchmarkChecker) OK(measure.Output)                    {}
func (b *benchmarkChecker) Warning(error)                        {}
func (b *benchmarkChecker) Error(error)                          {}
func (b *benchmarkChecker) NoData()                              {}
