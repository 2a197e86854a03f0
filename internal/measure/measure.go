// Package measure implements RunRecord and Output, the per-benchmark
// result types published by the measurement protocol and consumed by
// reporters and the baseline store.
package measure

import (
	"github.com/goccy/go-json"

	"github.com/cgbench/yab/internal/funckey"
	"github.com/cgbench/yab/internal/stats"
)

// RunRecord is one benchmark run's summary plus its optional per-function
// breakdown.
type RunRecord struct {
	Summary   stats.Stats
	Breakdown map[funckey.Key]stats.Stats
}

// wireRunRecord is the on-disk shape: funckey.Key isn't a JSON-native map
// key, so breakdown entries are keyed by their canonical "name@filename"
// string form instead.
type wireRunRecord struct {
	Summary   stats.Stats            `json:"summary"`
	Breakdown map[string]stats.Stats `json:"breakdown,omitempty"`
}

// MarshalJSON implements json.Marshaler.
func (r RunRecord) MarshalJSON() ([]byte, error) {
	wire := wireRunRecord{Summary: r.Summary}
	if len(r.Breakdown) > 0 {
		wire.Breakdown = make(map[string]stats.Stats, len(r.Breakdown))
		for key, s := range r.Breakdown {
			wire.Breakdown[key.String()] = s
		}
	}
	return json.Marshal(wire)
}

// UnmarshalJSON implements json.Unmarshaler.
func (r *RunRecord) UnmarshalJSON(data []byte) error {
	var wire wireRunRecord
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	r.Summary = wire.Summary
	if len(wire.Breakdown) == 0 {
		r.Breakdown = nil
		return nil
	}
	r.Breakdown = make(map[funckey.Key]stats.Stats, len(wire.Breakdown))
	for k, s := range wire.Breakdown {
		r.Breakdown[funckey.Parse(k)] = s
	}
	return nil
}

// New constructs a RunRecord with an empty breakdown.
func New(summary stats.Stats) RunRecord {
	return RunRecord{Summary: summary}
}

// Sub subtracts other from r: summaries subtract via saturating Stats.Sub,
// and breakdown entries subtract pointwise. A function present only on the
// left is kept as-is (subtracting an implicit zero); entries that collapse
// to zero in every field are pruned, matching the source's "subtract two
// RunRecords" rule.
func (r RunRecord) Sub(other RunRecord) RunRecord {
	out := RunRecord{
		Summary:   r.Summary.Sub(other.Summary),
		Breakdown: make(map[funckey.Key]stats.Stats, len(r.Breakdown)),
	}
	for key, left := range r.Breakdown {
		right, ok := other.Breakdown[key]
		var diff stats.Stats
		if ok {
			diff = left.Sub(right)
		} else {
			diff = left
		}
		if diff.IsZero() {
			continue
		}
		out.Breakdown[key] = diff
	}
	return out
}

// Output is BenchmarkOutput: the current run plus, when available, the
// previous one to compare against.
type Output struct {
	Current  RunRecord
	Previous *RunRecord
}
