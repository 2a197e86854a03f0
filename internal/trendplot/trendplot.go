// Package trendplot implements the optional historical-trend reporter
// activated by --trend-plot PATH: it appends one estimated-cycles entry
// per completed benchmark run to a small JSON-lines history file, and at
// shutdown renders an SVG line chart per benchmark id from that history,
// in the same style as an altitude-vs-time line plot, adapted to an
// estimated-cycles-vs-run-index line plot.
package trendplot

import (
	"bufio"
	"bytes"
	"fmt"
	"image/color"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/goccy/go-json"
	"github.com/spf13/afero"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/cgbench/yab/internal/benchid"
	"github.com/cgbench/yab/internal/measure"
	"github.com/cgbench/yab/internal/report"
	"github.com/cgbench/yab/internal/stats"
)

// maxHistory bounds how many of the most recent runs feed a rendered
// chart; older entries stay on disk but are never plotted.
const maxHistory = 50

// Entry is one completed run's trend point. Timestamp is supplied by the
// caller (the now func given to New) at write time; the plotting code never computes
// the current time itself, so it stays free of a hidden wall-clock
// dependency and is exactly reproducible in tests.
type Entry struct {
	Timestamp       int64  `json:"timestamp"`
	EstimatedCycles uint64 `json:"estimated_cycles"`
}

// Reporter is the Reporter sink wired in when --trend-plot PATH is given.
// Every BenchmarkReporter.OK appends one Entry to that id's history file
// under historyDir; Reporter.OK (shutdown) renders an SVG chart per id
// that reported this run, under plotDir.
type Reporter struct {
	fs         afero.Fs
	historyDir string
	plotDir    string
	now        func() int64

	mu  sync.Mutex
	ids map[string]bool
}

// New constructs a Reporter. historyDir holds the per-id .jsonl history
// files (callers pass "<cachegrind-out-dir>/_trend"); plotDir is the
// --trend-plot PATH value, a directory that receives one <id>.svg per
// benchmark. now supplies the timestamp recorded for each entry.
func New(fs afero.Fs, historyDir, plotDir string, now func() int64) *Reporter {
	return &Reporter{fs: fs, historyDir: historyDir, plotDir: plotDir, now: now, ids: make(map[string]bool)}
}

// Error is a no-op; trend history only tracks completed benchmark runs.
func (r *Reporter) Error(error) {}

// NewTest returns a TestReporter that ignores test outcomes.
func (r *Reporter) NewTest(benchid.ID) report.TestReporter { return noopTestReporter{} }

// ListItem is a no-op; --list never runs a benchmark.
func (r *Reporter) ListItem(benchid.ID) {}

// NewBenchmark returns a BenchmarkReporter that appends id's outcome to
// its history file.
func (r *Reporter) NewBenchmark(id benchid.ID) report.BenchmarkReporter {
	return &benchReporter{id: id.String(), r: r}
}

// OK renders an SVG trend chart for every benchmark id that reported
// during this run, from its on-disk history.
func (r *Reporter) OK() error {
	r.mu.Lock()
	ids := make([]string, 0, len(r.ids))
	for id := range r.ids {
		ids = append(ids, id)
	}
	r.mu.Unlock()
	sort.Strings(ids)

	for _, id := range ids {
		history, err := r.loadHistory(id)
		if err != nil {
			return fmt.Errorf("trendplot: loading history for %s: %w", id, err)
		}
		if err := r.render(id, history); err != nil {
			return fmt.Errorf("trendplot: rendering %s: %w", id, err)
		}
	}
	return nil
}

func (r *Reporter) markSeen(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ids[id] = true
}

func (r *Reporter) historyPath(id string) string {
	return filepath.Join(r.historyDir, id+".jsonl")
}

func (r *Reporter) plotPath(id string) string {
	return filepath.Join(r.plotDir, id+".svg")
}

func (r *Reporter) appendHistory(id string, entry Entry) error {
	path := r.historyPath(id)
	if dir := filepath.Dir(path); dir != "." {
		if err := r.fs.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("trendplot: creating history dir for %s: %w", id, err)
		}
	}
	line, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("trendplot: encoding entry for %s: %w", id, err)
	}

	f, err := r.fs.OpenFile(path, afero.O_APPEND|afero.O_CREATE|afero.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("trendplot: opening history file for %s: %w", id, err)
	}
	defer f.Close()
	if _, err := f.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("trendplot: appending history for %s: %w", id, err)
	}
	return nil
}

func (r *Reporter) loadHistory(id string) ([]Entry, error) {
	path := r.historyPath(id)
	exists, err := afero.Exists(r.fs, path)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, nil
	}

	f, err := r.fs.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var entries []Entry
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var entry Entry
		if err := json.Unmarshal([]byte(line), &entry); err != nil {
			return nil, fmt.Errorf("trendplot: decoding history line: %w", err)
		}
		entries = append(entries, entry)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return entries, nil
}

// render writes id's trend chart from the most recent maxHistory entries
// of history. A history with fewer than two points is skipped: a single
// point has no trend to show.
func (r *Reporter) render(id string, history []Entry) error {
	if len(history) > maxHistory {
		history = history[len(history)-maxHistory:]
	}
	if len(history) < 2 {
		return nil
	}

	pts := make(plotter.XYs, len(history))
	for i, e := range history {
		pts[i].X = float64(i + 1)
		pts[i].Y = float64(e.EstimatedCycles)
	}

	p := plot.New()
	p.Title.Text = id + ": estimated cycles by run"
	p.X.Label.Text = "run"
	p.Y.Label.Text = "estimated cycles"

	line, err := plotter.NewLine(pts)
	if err != nil {
		return fmt.Errorf("creating line plotter: %w", err)
	}
	line.Color = color.RGBA{B: 255, A: 255}
	p.Add(line)

	path := r.plotPath(id)
	if dir := filepath.Dir(path); dir != "." {
		if err := r.fs.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating plot dir: %w", err)
		}
	}

	var buf bytes.Buffer
	writer, err := p.WriterTo(6*vg.Inch, 4*vg.Inch, "svg")
	if err != nil {
		return fmt.Errorf("preparing plot writer: %w", err)
	}
	if _, err := writer.WriteTo(&buf); err != nil {
		return fmt.Errorf("rendering plot: %w", err)
	}
	if err := afero.WriteFile(r.fs, path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("writing plot to %s: %w", path, err)
	}
	return nil
}

type noopTestReporter struct{}

func (noopTestReporter) OK()      {}
func (noopTestReporter) Fail(any) {}

type benchReporter struct {
	id string
	r  *Reporter
}

func (b *benchReporter) StartExecution()                     {}
func (b *benchReporter) BaselineComputed(stats.Stats, uint64) {}
func (b *benchReporter) Warning(error)                        {}

func (b *benchReporter) OK(output measure.Output) {
	entry := Entry{Timestamp: b.r.now(), EstimatedCycles: estimatedCycles(output.Current.Summary)}
	_ = b.r.appendHistory(b.id, entry)
	b.r.markSeen(b.id)
}

func (b *benchReporter) Error(error) {}
func (b *benchReporter) NoData()     {}

// estimatedCycles derives the cost estimate to plot: AccessSummary's
// weighted cycle count for a Full run, or the raw instruction count for a
// Simple one (no cache breakdown to weight).
func estimatedCycles(s stats.Stats) uint64 {
	if full, ok := s.AsFull(); ok {
		return stats.NewAccessSummary(full).EstimatedCycles()
	}
	return s.TotalInstructions()
}
