// Package protocol implements MeasurementProtocol: the per-benchmark
// calibrate/baseline/full/subtract/publish sequence, driven by an explicit
// Go function while a looplab/fsm instance records and validates the state
// sequence alongside it.
package protocol

import (
	"context"
	"fmt"

	"github.com/looplab/fsm"
	"github.com/spf13/afero"

	"github.com/cgbench/yab/internal/applog"
	"github.com/cgbench/yab/internal/baseline"
	"github.com/cgbench/yab/internal/benchid"
	"github.com/cgbench/yab/internal/cachegrind"
	"github.com/cgbench/yab/internal/measure"
	"github.com/cgbench/yab/internal/report"
	"github.com/cgbench/yab/internal/simrunner"
)

// States, named after the protocol's steps.
const (
	StateReady     = "ready"
	StateBackup    = "backup"
	StateCalibrate = "calibrate"
	StateBaseline  = "baseline"
	StateFull      = "full"
	StateSubtract  = "subtract"
	StatePublish   = "publish"
	StateDone      = "done"
	StateFailed    = "failed"
)

func newStateMachine() *fsm.FSM {
	return fsm.NewFSM(
		StateReady,
		fsm.Events{
			{Name: "backup", Src: []string{StateReady}, Dst: StateBackup},
			{Name: "calibrate", Src: []string{StateBackup}, Dst: StateCalibrate},
			{Name: "baseline", Src: []string{StateCalibrate}, Dst: StateBaseline},
			{Name: "full", Src: []string{StateBaseline}, Dst: StateFull},
			{Name: "subtract", Src: []string{StateFull}, Dst: StateSubtract},
			{Name: "publish", Src: []string{StateSubtract}, Dst: StatePublish},
			{Name: "done", Src: []string{StatePublish}, Dst: StateDone},
			{Name: "fail", Src: []string{
				StateReady, StateBackup, StateCalibrate, StateBaseline,
				StateFull, StateSubtract, StatePublish,
			}, Dst: StateFailed},
		},
		fsm.Callbacks{},
	)
}

// Runner drives one benchmark's MeasurementProtocol to completion.
type Runner struct {
	sim  *simrunner.Runner
	fs   afero.Fs
	exec string

	outDir             string
	warmUpInstructions uint64
	maxIterations      uint64

	// namedBaseline, when non-nil, supplies Previous directly instead of
	// the on-disk backup/.old pair.
	namedBaseline *baseline.Store
}

// Config bundles Runner's construction parameters.
type Config struct {
	Sim                *simrunner.Runner
	Fs                 afero.Fs
	ThisExecutable     string
	OutDir             string
	WarmUpInstructions uint64
	MaxIterations      uint64
	NamedBaseline      *baseline.Store
}

// New constructs a Runner from cfg.
func New(cfg Config) *Runner {
	return &Runner{
		sim:                cfg.Sim,
		fs:                 cfg.Fs,
		exec:               cfg.ThisExecutable,
		outDir:             cfg.OutDir,
		warmUpInstructions: cfg.WarmUpInstructions,
		maxIterations:      cfg.MaxIterations,
		namedBaseline:      cfg.NamedBaseline,
	}
}

type paths struct {
	baselineFinal string
	fullFinal     string
	baselineTemp  string
	fullTemp      string
}

func (r *Runner) pathsFor(id benchid.ID) paths {
	baselineFinal, fullFinal := Paths(r.outDir, id)
	return paths{
		baselineFinal: baselineFinal,
		fullFinal:     fullFinal,
		baselineTemp:  baselineFinal + "~",
		fullTemp:      fullFinal + "~",
	}
}

// Paths returns the on-disk baseline and full result file paths for id
// under outDir. It's exported so callers that read published results
// without running the protocol (print mode) agree with Run on where to
// look.
func Paths(outDir string, id benchid.ID) (baselinePath, fullPath string) {
	base := outDir + "/" + id.String()
	return base + ".baseline.cachegrind", base + ".cachegrind"
}

// Run executes the full protocol for id, calling reporter.StartExecution
// and reporter.BaselineComputed at the matching steps. It returns the
// final measure.Output on success; the caller is responsible for calling
// reporter.OK(output) or reporter.Error(err) with the result, since only
// the caller knows whether a given failure is a warning (e.g. a missing
// previous file) or fatal. A hard failure at any step transitions the
// state machine to "failed" and is returned as an error.
func (r *Runner) Run(ctx context.Context, id benchid.ID, reporter report.BenchmarkReporter) (measure.Output, error) {
	sm := newStateMachine()
	p := r.pathsFor(id)
	reporter.StartExecution()

	fail := func(err error) (measure.Output, error) {
		_ = sm.Event(ctx, "fail")
		return measure.Output{}, err
	}

	if err := sm.Event(ctx, "backup"); err != nil {
		return fail(err)
	}
	previous, err := r.backup(id, p)
	if err != nil {
		return fail(err)
	}

	if dir := parentOf(p.baselineFinal); dir != "" {
		if err := r.fs.MkdirAll(dir, 0o755); err != nil {
			return fail(fmt.Errorf("protocol: creating output dir: %w", err))
		}
	}

	if err := sm.Event(ctx, "calibrate"); err != nil {
		return fail(err)
	}
	calibRecord, err := r.sim.Run(ctx, simrunner.RunSpec{
		ID: id, Iterations: 2, IsBaseline: true,
		OutPath: p.baselineTemp, ThisExecutable: r.exec,
	})
	if err != nil {
		return fail(fmt.Errorf("protocol: calibration run: %w", err))
	}
	estimated := estimateIterations(r.warmUpInstructions, calibRecord.Summary.TotalInstructions(), r.maxIterations)
	applog.Get().Debug("calibrated", "id", id.String(),
		"calibration_instructions", calibRecord.Summary.TotalInstructions(), "estimated_iterations", estimated)
	reporter.BaselineComputed(calibRecord.Summary, estimated)

	if err := sm.Event(ctx, "baseline"); err != nil {
		return fail(err)
	}
	baselineRecord := calibRecord
	if estimated > 1 {
		baselineRecord, err = r.sim.Run(ctx, simrunner.RunSpec{
			ID: id, Iterations: estimated + 1, IsBaseline: true,
			OutPath: p.baselineTemp, ThisExecutable: r.exec,
		})
		if err != nil {
			return fail(fmt.Errorf("protocol: baseline run: %w", err))
		}
	}

	if err := sm.Event(ctx, "full"); err != nil {
		return fail(err)
	}
	fullRecord, err := r.sim.Run(ctx, simrunner.RunSpec{
		ID: id, Iterations: estimated + 1, IsBaseline: false,
		OutPath: p.fullTemp, ThisExecutable: r.exec,
	})
	if err != nil {
		return fail(fmt.Errorf("protocol: full run: %w", err))
	}

	if err := sm.Event(ctx, "subtract"); err != nil {
		return fail(err)
	}
	current := fullRecord.Sub(baselineRecord)

	if err := sm.Event(ctx, "publish"); err != nil {
		return fail(err)
	}
	// Both runs wrote to a "~"-suffixed temp path; publish renames each into
	// place in turn. A kill between the two renames leaves exactly one
	// mismatched pair on disk (new baseline, stale or absent full), which
	// backup's loadAndMoveAside detects and backs up cleanly on the next run
	// rather than reading a half-written final file.
	if err := r.fs.Rename(p.baselineTemp, p.baselineFinal); err != nil {
		return fail(fmt.Errorf("protocol: publishing baseline result: %w", err))
	}
	if err := r.fs.Rename(p.fullTemp, p.fullFinal); err != nil {
		return fail(fmt.Errorf("protocol: publishing full result: %w", err))
	}
	applog.Get().Debug("published result", "id", id.String(), "baseline", p.baselineFinal, "full", p.fullFinal)
	if err := sm.Event(ctx, "done"); err != nil {
		return fail(err)
	}

	return measure.Output{Current: current, Previous: previous}, nil
}

// estimateIterations computes the calibrated iteration count: warm-up
// target divided by the calibration run's total instructions, clamped to
// [1, maxIterations]. A zero calibration total (a bench with no
// instructions counted) is treated as a divisor of 1, so the result is
// warmUp clamped to [1, maxIterations].
func estimateIterations(warmUp, calibrationTotal, maxIterations uint64) uint64 {
	if calibrationTotal == 0 {
		return clamp(warmUp, 1, maxIterations)
	}
	return clamp(warmUp/calibrationTotal, 1, maxIterations)
}

func clamp(v, lo, hi uint64) uint64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// backup loads the prior run's baseline+full files (if both exist) as
// `previous`, then moves each aside to `<path>.old` so an interrupted run
// never corrupts the comparison for the next one. A named baseline bypasses
// this entirely and supplies previous from the configured Store instead.
func (r *Runner) backup(id benchid.ID, p paths) (*measure.RunRecord, error) {
	if r.namedBaseline != nil {
		record, ok := r.namedBaseline.Get(id.String())
		if !ok {
			return nil, nil
		}
		return &record, nil
	}

	baselineRecord, hasBaseline, err := r.loadAndMoveAside(p.baselineFinal)
	if err != nil {
		return nil, err
	}
	if !hasBaseline {
		return nil, nil
	}
	fullRecord, hasFull, err := r.loadAndMoveAside(p.fullFinal)
	if err != nil {
		return nil, err
	}
	if !hasFull {
		applog.Get().Warn("backup found a mismatched result pair, skipping previous comparison",
			"baseline", p.baselineFinal, "full", p.fullFinal)
		return nil, nil
	}

	previous := fullRecord.Sub(baselineRecord)
	return &previous, nil
}

func (r *Runner) loadAndMoveAside(path string) (measure.RunRecord, bool, error) {
	record, ok, err := readRecord(r.fs, path)
	if err != nil || !ok {
		return record, ok, err
	}
	if err := r.fs.Rename(path, path+".old"); err != nil {
		return measure.RunRecord{}, false, fmt.Errorf("protocol: backing up %s: %w", path, err)
	}
	return record, true, nil
}

// readRecord opens and parses path if present. A missing file reports
// ok=false with no error; a present-but-unparseable file also reports
// ok=false with no error, treated like BenchReporter's load_summary: a
// warning-worthy absence, not a hard failure.
func readRecord(fs afero.Fs, path string) (measure.RunRecord, bool, error) {
	exists, err := afero.Exists(fs, path)
	if err != nil {
		return measure.RunRecord{}, false, fmt.Errorf("protocol: checking %s: %w", path, err)
	}
	if !exists {
		return measure.RunRecord{}, false, nil
	}

	f, err := fs.Open(path)
	if err != nil {
		return measure.RunRecord{}, false, fmt.Errorf("protocol: opening %s: %w", path, err)
	}
	defer f.Close()

	record, err := cachegrind.Parse(f, path)
	if err != nil {
		return measure.RunRecord{}, false, nil
	}
	return record, true, nil
}

// LoadPublished reads a previously published baseline+full result pair for
// id from outDir without spawning anything or renaming files, for print
// mode. ok is false when either file is absent or unparseable — the
// caller reports that as BenchmarkReporter.NoData, a warning rather than
// a fatal error. Previous, when both ".old" backups are present and
// parseable, is their own baseline/full difference.
func LoadPublished(fs afero.Fs, outDir string, id benchid.ID) (measure.Output, bool, error) {
	baselinePath, fullPath := Paths(outDir, id)

	baselineRecord, hasBaseline, err := readRecord(fs, baselinePath)
	if err != nil {
		return measure.Output{}, false, err
	}
	if !hasBaseline {
		return measure.Output{}, false, nil
	}
	fullRecord, hasFull, err := readRecord(fs, fullPath)
	if err != nil {
		return measure.Output{}, false, err
	}
	if !hasFull {
		return measure.Output{}, false, nil
	}
	current := fullRecord.Sub(baselineRecord)

	var previous *measure.RunRecord
	if oldBaseline, hasOldBaseline, err := readRecord(fs, baselinePath+".old"); err == nil && hasOldBaseline {
		if oldFull, hasOldFull, err := readRecord(fs, fullPath+".old"); err == nil && hasOldFull {
			p := oldFull.Sub(oldBaseline)
			previous = &p
		}
	}

	return measure.Output{Current: current, Previous: previous}, true, nil
}

func parentOf(path string) string {
	for i := len(path) - 1; i >= 0; i-- {
		if path[i] == '/' {
			return path[:i]
		}
	}
	return ""
}
