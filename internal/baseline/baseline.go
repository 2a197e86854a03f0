// Package baseline implements the named-baseline store: an in-memory map
// of per-benchmark RunRecords that either accumulates results to save at
// shutdown (BaselineSaver) or is loaded once up front to supply `previous`
// for regression checks and `--baseline NAME` comparisons.
package baseline

import (
	"fmt"
	"sort"
	"sync"

	"github.com/goccy/go-json"
	"github.com/spf13/afero"

	"github.com/cgbench/yab/internal/benchid"
	"github.com/cgbench/yab/internal/funckey"
	"github.com/cgbench/yab/internal/measure"
	"github.com/cgbench/yab/internal/report"
	"github.com/cgbench/yab/internal/stats"
)

// noiseThresholdDivisor mirrors the source's `total / 1000` (0.1%) cutoff
// for per-function breakdown entries kept in a saved baseline.
const noiseThresholdDivisor = 1000

// Store is a mutex-protected map of canonical benchmark id to RunRecord.
// Every write (from a BaselineSaver's per-bench reporters) and every read
// (Get, Ids, Save) takes the same plain Mutex; Load builds a fresh Store
// before concurrent measurement starts.
type Store struct {
	mu   sync.Mutex
	data map[string]measure.RunRecord
}

// NewStore constructs an empty Store.
func NewStore() *Store {
	return &Store{data: make(map[string]measure.RunRecord)}
}

// Set records id's RunRecord, overwriting any previous entry.
func (s *Store) Set(id string, record measure.RunRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[id] = record
}

// Get returns the RunRecord stored for id, if any.
func (s *Store) Get(id string) (measure.RunRecord, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	record, ok := s.data[id]
	return record, ok
}

// Save writes the store as pretty JSON to path, creating parent
// directories as needed.
func (s *Store) Save(fs afero.Fs, path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if dir := parentDir(path); dir != "" {
		if err := fs.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("baseline: creating parent dir for %s: %w", path, err)
		}
	}

	data, err := json.MarshalIndent(s.data, "", "  ")
	if err != nil {
		return fmt.Errorf("baseline: encoding %s: %w", path, err)
	}
	if err := afero.WriteFile(fs, path, data, 0o644); err != nil {
		return fmt.Errorf("baseline: writing %s: %w", path, err)
	}
	return nil
}

// Load reads a previously saved baseline file from path into a fresh
// Store.
func Load(fs afero.Fs, path string) (*Store, error) {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, fmt.Errorf("baseline: reading %s: %w", path, err)
	}
	store := NewStore()
	if err := json.Unmarshal(data, &store.data); err != nil {
		return nil, fmt.Errorf("baseline: decoding %s: %w", path, err)
	}
	return store, nil
}

func parentDir(path string) string {
	for i := len(path) - 1; i >= 0; i-- {
		if path[i] == '/' {
			return path[:i]
		}
	}
	return ""
}

// Ids returns every id currently stored, sorted for deterministic
// iteration.
func (s *Store) Ids() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]string, 0, len(s.data))
	for id := range s.data {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Saver is the Reporter that accumulates published benchmark outputs into
// a Store and writes it out at shutdown. breakdown selects whether
// per-function entries are pruned to noise-filtered (on) or cleared
// entirely (off), mirroring BenchmarkBaselineReporter::ok.
type Saver struct {
	store     *Store
	fs        afero.Fs
	path      string
	breakdown bool
}

// NewSaver constructs a Saver writing to path through fs when OK is
// called.
func NewSaver(fs afero.Fs, path string, breakdown bool) *Saver {
	return &Saver{store: NewStore(), fs: fs, path: path, breakdown: breakdown}
}

// Error is a no-op; BaselineSaver doesn't react to run-wide errors.
func (s *Saver) Error(error) {}

// NewTest returns a TestReporter that ignores test outcomes; baselines
// only track Measure-mode results.
func (s *Saver) NewTest(benchid.ID) report.TestReporter { return noopTestReporter{} }

// ListItem is a no-op; --list never runs a benchmark, so there's nothing
// for a baseline saver to record.
func (s *Saver) ListItem(benchid.ID) {}

// NewBenchmark returns a BenchmarkReporter that records id's published
// output into the store.
func (s *Saver) NewBenchmark(id benchid.ID) report.BenchmarkReporter {
	return &benchmarkSaver{id: id.String(), store: s.store, breakdown: s.breakdown}
}

// OK persists the accumulated store to disk.
func (s *Saver) OK() error {
	return s.store.Save(s.fs, s.path)
}

type noopTestReporter struct{}

func (noopTestReporter) OK()      {}
func (noopTestReporter) Fail(any) {}

type benchmarkSaver struct {
	id        string
	store     *Store
	breakdown bool
}

func (b *benchmarkSaver) StartExecution()                     {}
func (b *benchmarkSaver) BaselineComputed(stats.Stats, uint64) {}
func (b *benchmarkSaver) Warning(error)                        {}
func (b *benchmarkSaver) Error(error)                          {}
func (b *benchmarkSaver) NoData()                              {}

func (b *benchmarkSaver) OK(output measure.Output) {
	record := output.Current
	if b.breakdown {
		record.Breakdown = pruneNoise(record.Breakdown, record.Summary.TotalInstructions())
	} else {
		record.Breakdown = nil
	}
	b.store.Set(b.id, record)
}

// pruneNoise drops breakdown entries below 0.1% of total, matching
// BenchmarkBaselineReporter::ok's `threshold = total / 1000` cutoff.
func pruneNoise(breakdown map[funckey.Key]stats.Stats, total uint64) map[funckey.Key]stats.Stats {
	if len(breakdown) == 0 {
		return breakdown
	}
	threshold := total / noiseThresholdDivisor
	out := make(map[funckey.Key]stats.Stats, len(breakdown))
	for key, s := range breakdown {
		if s.TotalInstructions() >= threshold {
			out[key] = s
		}
	}
	return out
}
