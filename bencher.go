// Package yab is the public entry point for the reproducible,
// count-based micro-benchmarking harness: construct a Bencher at the top
// of a benches binary's main, register every benchmark against it, then
// call Run to dispatch test/list/measure/print mode and get the process's
// exit code.
package yab

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/spf13/afero"

	"github.com/cgbench/yab/internal/applog"
	"github.com/cgbench/yab/internal/baseline"
	"github.com/cgbench/yab/internal/benchid"
	"github.com/cgbench/yab/internal/capture"
	"github.com/cgbench/yab/internal/dispatch"
	"github.com/cgbench/yab/internal/harnesschild"
	"github.com/cgbench/yab/internal/options"
	"github.com/cgbench/yab/internal/protocol"
	"github.com/cgbench/yab/internal/registry"
	"github.com/cgbench/yab/internal/regression"
	"github.com/cgbench/yab/internal/report"
	"github.com/cgbench/yab/internal/report/console"
	"github.com/cgbench/yab/internal/scheduler"
	"github.com/cgbench/yab/internal/simrunner"
	"github.com/cgbench/yab/internal/trendplot"
)

// Instrumentation is the capture token a bench_with_setup-style closure
// receives. Most closures only need Measure; Start/End are exposed for
// benches that want to exclude their own setup from the measured region.
type Instrumentation = capture.Token

// Func is a benchmark body registered without its own setup phase: the
// measured region is the whole call.
type Func func() any

// SetupFunc is a benchmark body that receives its Instrumentation token
// directly, for benches that need to run setup work before starting the
// measured region.
type SetupFunc func(Instrumentation) any

// benchTarget is the BencherInner duality from the source: a Bencher
// behaves completely differently depending on whether this process was
// re-invoked as the cachegrind-instrumented child or is running normally.
type benchTarget interface {
	register(id benchid.ID, fn SetupFunc)
	run() int
}

// Bencher is the library's public handle. The zero value is not usable;
// construct one with New.
type Bencher struct {
	target benchTarget
	err    error
}

// New constructs a Bencher from the real process environment: os.Args,
// environment variables, the real filesystem, and a real cachegrind
// subprocess runner. Call it once per benches binary.
func New() *Bencher {
	b, err := newBencher(os.Args, osLookupEnv, afero.NewOsFs(), simrunner.ExecRunner{}, harnesschild.OSExit, os.Stdout, wallClock)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return &Bencher{err: err}
	}
	return b
}

func osLookupEnv(key string) (string, bool) { return os.LookupEnv(key) }

func wallClock() int64 { return time.Now().Unix() }

// newBencher is New's testable core: every OS interaction is an injected
// dependency so mode selection, flag parsing, and wiring can be exercised
// without a real process fork or filesystem.
func newBencher(argv []string, env func(string) (string, bool), fs afero.Fs, runner simrunner.CommandRunner, exit harnesschild.Exit, out io.Writer, now func() int64) (*Bencher, error) {
	marker, err := dispatch.Parse(argv)
	if err != nil {
		return nil, fmt.Errorf("yab: %w", err)
	}
	if marker != nil {
		return &Bencher{target: &childTarget{marker: *marker, exit: exit}}, nil
	}

	opts, err := options.Parse(argv[1:], env)
	if err != nil {
		return nil, err
	}
	applog.Init(applog.Options{Verbose: opts.Verbose, Quiet: opts.Quiet})

	filter, err := opts.BuildFilter()
	if err != nil {
		return nil, fmt.Errorf("yab: %w", err)
	}

	binary := execBinaryName(argv)
	sinks := []report.Reporter{console.New(out, colorMode(opts.Color))}

	var namedBaseline *baseline.Store
	var checker *regression.Checker
	if opts.Baseline != "" {
		path := options.BaselinePath(opts.Baseline, opts.CachegrindOutDir, binary)
		namedBaseline, err = baseline.Load(fs, path)
		if err != nil {
			return nil, fmt.Errorf("yab: loading --baseline %q: %w", opts.Baseline, err)
		}
		checker = regression.NewChecker(opts.Threshold)
		sinks = append(sinks, checker)
	}
	if opts.SaveBaseline != "" {
		path := options.BaselinePath(opts.SaveBaseline, opts.CachegrindOutDir, binary)
		sinks = append(sinks, baseline.NewSaver(fs, path, opts.Breakdown))
	}
	if opts.TrendPlot != "" {
		historyDir := filepath.Join(opts.CachegrindOutDir, "_trend")
		sinks = append(sinks, trendplot.New(fs, historyDir, opts.TrendPlot, now))
	}
	reporter := report.NewSeq(sinks...)

	sim, err := simrunner.New(opts.CachegrindWrapper, runner, fs)
	if err != nil {
		return nil, fmt.Errorf("yab: %w", err)
	}
	if opts.Mode == options.ModeBench {
		if err := sim.Probe(context.Background()); err != nil {
			return nil, err
		}
	}

	proto := protocol.New(protocol.Config{
		Sim:                sim,
		Fs:                 fs,
		ThisExecutable:     argv[0],
		OutDir:             opts.CachegrindOutDir,
		WarmUpInstructions: opts.WarmUpInstructions,
		MaxIterations:      opts.MaxIterations,
		NamedBaseline:      namedBaseline,
	})

	return &Bencher{target: &mainTarget{
		opts:     opts,
		filter:   filter,
		reporter: reporter,
		sched:    scheduler.New(opts.Jobs),
		protocol: proto,
		checker:  checker,
		fs:       fs,
		binary:   binary,
	}}, nil
}

func colorMode(c options.Color) console.ColorMode {
	switch c {
	case options.ColorAlways:
		return console.ColorAlways
	case options.ColorNever:
		return console.ColorNever
	default:
		return console.ColorAuto
	}
}

func execBinaryName(argv []string) string {
	if len(argv) == 0 {
		return "bench"
	}
	name := argv[0]
	for i := len(name) - 1; i >= 0; i-- {
		if name[i] == '/' {
			return name[i+1:]
		}
	}
	return name
}

// Bench registers a benchmark whose measured region is its entire body.
// id is the bare benchmark name; use slash-separated names (e.g.
// "fib/20") directly if the caller wants a parameterized id.
func (b *Bencher) Bench(name string, fn Func) *Bencher {
	return b.registerAt(name, func(tok Instrumentation) any {
		var out any
		tok.Measure(func() { out = fn() })
		return out
	})
}

// BenchWithSetup registers a benchmark that receives its Instrumentation
// token directly, so setup work can run before the measured region starts.
func (b *Bencher) BenchWithSetup(name string, fn SetupFunc) *Bencher {
	return b.registerAt(name, fn)
}

// registerAt records the immediate external caller's file/line as id's
// diagnostic location. Both Bench and BenchWithSetup call it directly
// (never through each other) so a single skip count is correct for both.
func (b *Bencher) registerAt(name string, fn SetupFunc) *Bencher {
	if b.err != nil {
		return b
	}
	_, file, line, _ := runtime.Caller(2)
	id := benchid.NewAt(name, file, line)
	b.target.register(id, fn)
	return b
}

// Run waits for every scheduled measurement, persists any configured
// baseline, checks for regressions, and returns the process exit code: 0
// on success, 1 if any test failed, any bench errored, or a regression
// exceeded its threshold.
func (b *Bencher) Run() int {
	if b.err != nil {
		return 1
	}
	return b.target.run()
}

// registerFunc adapts a SetupFunc to registry.Func, wrapping every
// iteration's token in the one-element slice shape HarnessChild expects.
func registerFunc(fn SetupFunc) registry.Func {
	return func(tokens []capture.Token) any {
		var tok capture.Token
		if len(tokens) > 0 {
			tok = tokens[0]
		}
		return fn(tok)
	}
}
