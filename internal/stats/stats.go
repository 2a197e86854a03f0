// Package stats implements the arithmetical model of benchmark counters:
// saturating per-event CounterPoints, the Simple/Full Stats union, and the
// derived AccessSummary used to estimate cycles.
package stats

import "encoding/json"

// CounterPoint holds total/L1-miss/L3-miss counts for one event class
// (instructions, data reads, or data writes). The invariant
// L3Misses <= L1Misses <= Total holds for parsed simulator output and is
// preserved by Add and Scale; Sub saturates each field independently and
// does not re-establish it.
type CounterPoint struct {
	Total    uint64 `json:"total"`
	L1Misses uint64 `json:"l1_misses"`
	L3Misses uint64 `json:"l3_misses"`
}

// Add returns the exact sum of p and o.
func (p CounterPoint) Add(o CounterPoint) CounterPoint {
	return CounterPoint{
		Total:    p.Total + o.Total,
		L1Misses: p.L1Misses + o.L1Misses,
		L3Misses: p.L3Misses + o.L3Misses,
	}
}

// Sub returns p minus o, saturating each field at zero instead of
// underflowing.
func (p CounterPoint) Sub(o CounterPoint) CounterPoint {
	return CounterPoint{
		Total:    satSub(p.Total, o.Total),
		L1Misses: satSub(p.L1Misses, o.L1Misses),
		L3Misses: satSub(p.L3Misses, o.L3Misses),
	}
}

// Scale multiplies every field by n.
func (p CounterPoint) Scale(n uint64) CounterPoint {
	return CounterPoint{
		Total:    p.Total * n,
		L1Misses: p.L1Misses * n,
		L3Misses: p.L3Misses * n,
	}
}

// IsZero reports whether every field is zero.
func (p CounterPoint) IsZero() bool {
	return p.Total == 0 && p.L1Misses == 0 && p.L3Misses == 0
}

func satSub(a, b uint64) uint64 {
	if b >= a {
		return 0
	}
	return a - b
}

// Full is the three-CounterPoint breakdown cachegrind reports when cache
// simulation is enabled.
type Full struct {
	Instructions CounterPoint `json:"instructions"`
	DataReads    CounterPoint `json:"data_reads"`
	DataWrites   CounterPoint `json:"data_writes"`
}

// Add returns the exact sum of f and o.
func (f Full) Add(o Full) Full {
	return Full{
		Instructions: f.Instructions.Add(o.Instructions),
		DataReads:    f.DataReads.Add(o.DataReads),
		DataWrites:   f.DataWrites.Add(o.DataWrites),
	}
}

// Sub returns f minus o, saturating.
func (f Full) Sub(o Full) Full {
	return Full{
		Instructions: f.Instructions.Sub(o.Instructions),
		DataReads:    f.DataReads.Sub(o.DataReads),
		DataWrites:   f.DataWrites.Sub(o.DataWrites),
	}
}

// Scale multiplies every field by n.
func (f Full) Scale(n uint64) Full {
	return Full{
		Instructions: f.Instructions.Scale(n),
		DataReads:    f.DataReads.Scale(n),
		DataWrites:   f.DataWrites.Scale(n),
	}
}

// TotalInstructions returns the total instruction count.
func (f Full) TotalInstructions() uint64 {
	return f.Instructions.Total
}

// IsZero reports whether every field of every CounterPoint is zero.
func (f Full) IsZero() bool {
	return f.Instructions.IsZero() && f.DataReads.IsZero() && f.DataWrites.IsZero()
}

// Kind discriminates the Stats union.
type Kind int

const (
	// KindSimple carries only an instruction count, produced when the
	// simulator ran with cache simulation disabled.
	KindSimple Kind = iota
	// KindFull carries the three-CounterPoint breakdown.
	KindFull
)

// Stats is the Simple{instructions} | Full(FullStats) union. The zero
// value is Simple{0}.
type Stats struct {
	kind         Kind
	instructions uint64
	full         Full
}

// Simple constructs a Stats holding only an instruction count.
func Simple(instructions uint64) Stats {
	return Stats{kind: KindSimple, instructions: instructions}
}

// FromFull constructs a Stats holding the full cache breakdown.
func FromFull(f Full) Stats {
	return Stats{kind: KindFull, full: f}
}

// IsSimple reports whether s is the Simple variant.
func (s Stats) IsSimple() bool { return s.kind == KindSimple }

// IsFull reports whether s is the Full variant.
func (s Stats) IsFull() bool { return s.kind == KindFull }

// AsFull returns the Full payload and true if s is the Full variant.
func (s Stats) AsFull() (Full, bool) {
	if s.kind != KindFull {
		return Full{}, false
	}
	return s.full, true
}

// TotalInstructions returns the instruction count regardless of variant.
func (s Stats) TotalInstructions() uint64 {
	if s.kind == KindFull {
		return s.full.TotalInstructions()
	}
	return s.instructions
}

// IsZero reports whether s represents a zero-valued run.
func (s Stats) IsZero() bool {
	if s.kind == KindFull {
		return s.full.IsZero()
	}
	return s.instructions == 0
}

// Add sums s and o. Mixing a Simple and a Full operand downgrades the
// result to Simple via total instruction counts.
func (s Stats) Add(o Stats) Stats {
	if s.kind == KindFull && o.kind == KindFull {
		return FromFull(s.full.Add(o.full))
	}
	return Simple(s.TotalInstructions() + o.TotalInstructions())
}

// Sub saturating-subtracts o from s. Mixing variants downgrades to Simple.
func (s Stats) Sub(o Stats) Stats {
	if s.kind == KindFull && o.kind == KindFull {
		return FromFull(s.full.Sub(o.full))
	}
	return Simple(satSub(s.TotalInstructions(), o.TotalInstructions()))
}

// Scale multiplies s by n, preserving the variant.
func (s Stats) Scale(n uint64) Stats {
	if s.kind == KindFull {
		return FromFull(s.full.Scale(n))
	}
	return Simple(s.instructions * n)
}

// wireStats is the JSON-on-disk shape for Stats: a tagged union so that
// baseline files stay human-diffable.
type wireStats struct {
	Kind         string `json:"kind"`
	Instructions uint64 `json:"instructions,omitempty"`
	Full         *Full  `json:"full,omitempty"`
}

// MarshalJSON implements json.Marshaler.
func (s Stats) MarshalJSON() ([]byte, error) {
	if s.kind == KindFull {
		full := s.full
		return json.Marshal(wireStats{Kind: "full", Full: &full})
	}
	return json.Marshal(wireStats{Kind: "simple", Instructions: s.instructions})
}

// UnmarshalJSON implements json.Unmarshaler.
func (s *Stats) UnmarshalJSON(data []byte) error {
	var wire wireStats
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	switch wire.Kind {
	case "full":
		if wire.Full == nil {
			*s = FromFull(Full{})
			return nil
		}
		*s = FromFull(*wire.Full)
	default:
		*s = Simple(wire.Instructions)
	}
	return nil
}

// AccessSummary is the derived view of a Full run used for cost estimation.
type AccessSummary struct {
	Instructions uint64
	L1Hits       uint64
	L3Hits       uint64
	RAMAccesses  uint64
}

// NewAccessSummary derives an AccessSummary from a Full counter set:
// ram_accesses sums L3 misses, l3_hits is the excess of L1-miss counts
// over RAM accesses, and l1_hits is whatever's left of the total access
// count.
func NewAccessSummary(f Full) AccessSummary {
	ramAccesses := f.Instructions.L3Misses + f.DataReads.L3Misses + f.DataWrites.L3Misses
	atLeastL3 := f.Instructions.L1Misses + f.DataReads.L1Misses + f.DataWrites.L1Misses
	l3Hits := satSub(atLeastL3, ramAccesses)
	totalAccesses := f.Instructions.Total + f.DataReads.Total + f.DataWrites.Total
	l1Hits := satSub(totalAccesses, atLeastL3)
	return AccessSummary{
		Instructions: f.Instructions.Total,
		L1Hits:       l1Hits,
		L3Hits:       l3Hits,
		RAMAccesses:  ramAccesses,
	}
}

// EstimatedCycles applies Itamar Turner-Trauring's commonly cited weighting
// (see https://pythonspeed.com/articles/consistent-benchmarking-in-ci/).
func (a AccessSummary) EstimatedCycles() uint64 {
	return a.L1Hits + 5*a.L3Hits + 35*a.RAMAccesses
}
