// Package options parses the public command-line surface (pflag) and its
// mirrored environment variables (viper), in the same viper-backed,
// Validate()-checked style as a config singleton, adapted from a YAML
// file source to a flag+env source matching the shape BenchOptions
// (crates/yab/src/options.rs) actually takes.
package options

import (
	"fmt"
	"runtime"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/cgbench/yab/internal/registry"
)

// Mode selects what the process does once Options is parsed, mirroring
// BenchOptions::mode in the Rust source.
type Mode int

const (
	// ModeTest runs every matching benchmark body once as a pass/fail
	// check. It's the default when neither --bench, --list nor --print
	// is given.
	ModeTest Mode = iota
	// ModeBench drives the full measurement protocol.
	ModeBench
	// ModeList prints registered canonical ids without running anything.
	ModeList
	// ModePrint loads and prints previously captured results without
	// spawning a simulator.
	ModePrint
)

func (m Mode) String() string {
	switch m {
	case ModeBench:
		return "bench"
	case ModeList:
		return "list"
	case ModePrint:
		return "print"
	default:
		return "test"
	}
}

// Color selects when the console reporter emits ANSI color.
type Color int

const (
	ColorAuto Color = iota
	ColorAlways
	ColorNever
)

func parseColor(s string) (Color, error) {
	switch strings.ToLower(s) {
	case "", "auto":
		return ColorAuto, nil
	case "always":
		return ColorAlways, nil
	case "never":
		return ColorNever, nil
	default:
		return ColorAuto, fmt.Errorf("options: invalid --color value %q (want auto, always, or never)", s)
	}
}

// defaultCachegrindWrapper mirrors DEFAULT_CACHEGRIND_WRAPPER.
var defaultCachegrindWrapper = []string{
	"setarch", "-R", "valgrind", "--tool=cachegrind", "--cache-sim=yes",
	"--I1=32768,8,64", "--D1=32768,8,64", "--LL=8388608,16,64",
}

// Options is the parsed public command-line/environment surface.
type Options struct {
	Mode Mode

	CachegrindWrapper  []string
	WarmUpInstructions uint64
	MaxIterations      uint64
	CachegrindOutDir   string
	Jobs               int

	Exact  bool
	Filter string

	PrintBaseline string // named baseline given to --print, "" for the default on-disk pair
	SaveBaseline  string
	Baseline      string
	Threshold     float64

	Color     Color
	Verbose   bool
	Quiet     bool
	Breakdown bool

	TrendPlot string
}

// Validate reports the two configuration errors BenchOptions::validate
// checks before any benchmark runs.
func (o *Options) Validate() error {
	if o.WarmUpInstructions == 0 {
		return fmt.Errorf("options: --warm-up must be positive")
	}
	if o.MaxIterations == 0 {
		return fmt.Errorf("options: --max-iterations must be positive")
	}
	return nil
}

// BuildFilter constructs the registry.Filter described by Exact/Filter.
func (o *Options) BuildFilter() (registry.Filter, error) {
	return registry.New(o.Filter, o.Exact)
}

// Parse builds the flag set, parses argv (excluding the program name at
// argv[0]), binds the mirrored environment variables, and returns the
// resolved Options. It never calls os.Exit or reads os.Args directly so it
// stays testable.
func Parse(argv []string, env func(string) (string, bool)) (*Options, error) {
	fs := pflag.NewFlagSet("yab", pflag.ContinueOnError)
	fs.SetOutput(new(strings.Builder)) // usage text is the caller's concern, not pflag's

	bench := fs.Bool("bench", false, "run benchmarks instead of tests")
	list := fs.Bool("list", false, "list registered benchmark ids")
	print := fs.String("print", "", "print previously captured results, optionally from a named baseline")
	fs.Lookup("print").NoOptDefVal = " "

	wrapperVal := newWrapperValue(defaultCachegrindWrapper)
	fs.Var(wrapperVal, "cachegrind-wrapper", "cachegrind invocation (colon-separated)")
	warmUp := fs.Uint64("warm-up", 1_000_000, "target instructions for calibration")
	maxIterations := fs.Uint64("max-iterations", 1_000, "maximum iterations for a single benchmark")
	// cachegrind-out-dir, jobs, and color are read back through viper (after
	// CACHEGRIND_OUT_DIR/CACHEGRIND_JOBS/COLOR env binding), not through
	// their pflag pointers directly, so their values reflect the env
	// fallback when the flag itself wasn't given.
	fs.String("cachegrind-out-dir", "target/yab", "directory for cachegrind result files")
	fs.IntP("jobs", "j", runtime.NumCPU(), "maximum number of benchmarks to run in parallel")

	exact := fs.Bool("exact", false, "match benchmark names exactly")

	saveBaseline := fs.String("save-baseline", "", "save results under this named baseline")
	baseline := fs.String("baseline", "", "compare against this named baseline")
	threshold := fs.Float64("threshold", 0.05, "regression ratio that fails the run (requires --baseline)")

	fs.String("color", "auto", "auto, always, or never")
	verbose := fs.BoolP("verbose", "v", false, "enable debug logging")
	quiet := fs.BoolP("quiet", "q", false, "only log errors")
	breakdown := fs.Bool("breakdown", false, "retain per-function breakdown in saved baselines")
	trendPlot := fs.String("trend-plot", "", "write a historical-trend SVG to this path on shutdown")

	if err := fs.Parse(argv); err != nil {
		return nil, fmt.Errorf("options: %w", err)
	}

	v := viper.New()
	bindEnv(v, fs, "cachegrind-wrapper", "CACHEGRIND_WRAPPER", env)
	bindEnv(v, fs, "cachegrind-out-dir", "CACHEGRIND_OUT_DIR", env)
	bindEnv(v, fs, "jobs", "CACHEGRIND_JOBS", env)
	bindEnv(v, fs, "color", "COLOR", env)

	opts := &Options{
		CachegrindWrapper:  resolveWrapper(v, fs, wrapperVal),
		WarmUpInstructions: *warmUp,
		MaxIterations:      *maxIterations,
		CachegrindOutDir:   v.GetString("cachegrind-out-dir"),
		Jobs:               v.GetInt("jobs"),
		Exact:              *exact,
		SaveBaseline:       *saveBaseline,
		Baseline:           *baseline,
		Threshold:          *threshold,
		Verbose:            *verbose,
		Quiet:              *quiet,
		Breakdown:          *breakdown,
		TrendPlot:          *trendPlot,
	}
	if fs.NArg() > 0 {
		opts.Filter = fs.Arg(0)
	}

	clr, err := parseColor(v.GetString("color"))
	if err != nil {
		return nil, err
	}
	opts.Color = clr

	switch {
	case *list:
		opts.Mode = ModeList
	case fs.Changed("print"):
		opts.Mode = ModePrint
		opts.PrintBaseline = strings.TrimSpace(*print)
	case *bench:
		opts.Mode = ModeBench
	default:
		opts.Mode = ModeTest
	}

	return opts, opts.Validate()
}

// bindEnv mirrors viper.BindEnv, but takes the environment lookup function
// as a parameter so tests don't need to mutate process-wide state.
func bindEnv(v *viper.Viper, fs *pflag.FlagSet, key, envVar string, env func(string) (string, bool)) {
	if f := fs.Lookup(key); f != nil {
		_ = v.BindPFlag(key, f)
	}
	if env == nil {
		return
	}
	if val, ok := env(envVar); ok && !fs.Changed(key) {
		v.Set(key, val)
	}
}

// resolveWrapper returns the parsed --cachegrind-wrapper value, falling
// back to the CACHEGRIND_WRAPPER environment binding when the flag wasn't
// given on the command line.
func resolveWrapper(v *viper.Viper, fs *pflag.FlagSet, parsed *wrapperValue) []string {
	if fs.Changed("cachegrind-wrapper") {
		return parsed.parts
	}
	if s := v.GetString("cachegrind-wrapper"); s != "" {
		return strings.Split(s, ":")
	}
	return defaultCachegrindWrapper
}

// wrapperValue implements pflag.Value for a colon-separated command list,
// in place of the Rust source's repeated-flag Vec<String>.
type wrapperValue struct {
	parts []string
}

func newWrapperValue(defaults []string) *wrapperValue {
	return &wrapperValue{parts: defaults}
}

func (w *wrapperValue) String() string {
	if w == nil {
		return ""
	}
	return strings.Join(w.parts, ":")
}

func (w *wrapperValue) Set(s string) error {
	parts := strings.Split(s, ":")
	if len(parts) == 0 || parts[0] == "" {
		return fmt.Errorf("options: --cachegrind-wrapper must name at least one command")
	}
	w.parts = parts
	return nil
}

func (w *wrapperValue) Type() string { return "wrapper" }

// BaselinePath resolves a named baseline (from --save-baseline/--baseline,
// or --print's optional value) to its on-disk path, honoring the "pub:"
// prefix that selects a repo-tracked path under benches/<benchBinary>/
// instead of the private <outDir>/_baselines/ directory.
func BaselinePath(name, outDir, benchBinary string) string {
	if rest, ok := strings.CutPrefix(name, "pub:"); ok {
		return fmt.Sprintf("benches/%s/%s.baseline.json", benchBinary, rest)
	}
	return fmt.Sprintf("%s/_baselines/%s.baseline.json", outDir, name)
}
