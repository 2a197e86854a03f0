// Package report defines the sink interfaces every benchmark outcome is
// fanned out to, plus a Seq aggregator that dispatches one call to every
// configured sink.
package report

import (
	"go.uber.org/multierr"

	"github.com/cgbench/yab/internal/benchid"
	"github.com/cgbench/yab/internal/measure"
	"github.com/cgbench/yab/internal/stats"
)

// Reporter is the top-level sink a run is configured with. NewTest and
// NewBenchmark open a per-item sub-reporter; OK is called once at clean
// shutdown, after every bench has reported.
type Reporter interface {
	Error(err error)
	NewTest(id benchid.ID) TestReporter
	NewBenchmark(id benchid.ID) BenchmarkReporter
	// ListItem prints one registered canonical id during --list mode. It's
	// the one call site in the lifecycle that never pairs with NewTest or
	// NewBenchmark, since --list never runs a benchmark body.
	ListItem(id benchid.ID)
	OK() error
}

// TestReporter receives the outcome of one Test-mode run.
type TestReporter interface {
	OK()
	Fail(panicValue any)
}

// BenchmarkReporter receives the full lifecycle of one Measure-mode run,
// in order: StartExecution, an optional BaselineComputed, then exactly one
// of OK/Warning/Error/NoData.
type BenchmarkReporter interface {
	StartExecution()
	BaselineComputed(s stats.Stats, iterations uint64)
	OK(output measure.Output)
	Warning(err error)
	Error(err error)
	NoData()
}

// Seq fans every call out to each configured sink, in order, matching the
// source's SeqReporter. Per-sink teardown errors from OK are joined with
// multierr rather than stopping at the first failing sink.
type Seq struct {
	Sinks []Reporter
}

// NewSeq builds a Seq over sinks, dropping any nil interface entries. A
// typed nil pointer wrapped in the Reporter interface is not nil and is
// kept.
func NewSeq(sinks ...Reporter) *Seq {
	out := make([]Reporter, 0, len(sinks))
	for _, s := range sinks {
		if s != nil {
			out = append(out, s)
		}
	}
	return &Seq{Sinks: out}
}

// Error forwards err to every sink.
func (s *Seq) Error(err error) {
	for _, sink := range s.Sinks {
		sink.Error(err)
	}
}

// NewTest opens a seqTestReporter fanning out to every sink's own
// per-test reporter.
func (s *Seq) NewTest(id benchid.ID) TestReporter {
	sub := make([]TestReporter, len(s.Sinks))
	for i, sink := range s.Sinks {
		sub[i] = sink.NewTest(id)
	}
	return seqTestReporter{sub: sub}
}

// NewBenchmark opens a seqBenchmarkReporter fanning out to every sink's
// own per-benchmark reporter.
func (s *Seq) NewBenchmark(id benchid.ID) BenchmarkReporter {
	sub := make([]BenchmarkReporter, len(s.Sinks))
	for i, sink := range s.Sinks {
		sub[i] = sink.NewBenchmark(id)
	}
	return seqBenchmarkReporter{sub: sub}
}

// ListItem forwards id to every sink.
func (s *Seq) ListItem(id benchid.ID) {
	for _, sink := range s.Sinks {
		sink.ListItem(id)
	}
}

// OK calls OK on every sink and joins their errors with multierr.
func (s *Seq) OK() error {
	var err error
	for _, sink := range s.Sinks {
		err = multierr.Append(err, sink.OK())
	}
	return err
}

type seqTestReporter struct {
	sub []TestReporter
}

func (s seqTestReporter) OK() {
	for _, sub := range s.sub {
		sub.OK()
	}
}

func (s seqTestReporter) Fail(panicValue any) {
	for _, sub := range s.sub {
		sub.Fail(panicValue)
	}
}

type seqBenchmarkReporter struct {
	sub []BenchmarkReporter
}

func (s seqBenchmarkReporter) StartExecution() {
	for _, sub := range s.sub {
		sub.StartExecution()
	}
}

func (s seqBenchmarkReporter) BaselineComputed(st stats.Stats, iterations uint64) {
	for _, sub := range s.sub {
		sub.BaselineComputed(st, iterations)
	}
}

func (s seqBenchmarkReporter) OK(output measure.Output) {
	for _, sub := range s.sub {
		sub.OK(output)
	}
}

func (s seqBenchmarkReporter) Warning(err error) {
	for _, sub := range s.sub {
		sub.Warning(err)
	}
}

func (s seqBenchmarkReporter) Error(err error) {
	for _, sub := range s.sub {
		sub.Error(err)
	}
}

func (s seqBenchmarkReporter) NoData() {
	for _, sub := range s.sub {
		sub.NoData()
	}
}
