// Package simrunner builds and spawns the simulator child process: it
// constructs the wrapper command line, conveys the iteration count,
// baseline flag, and bench id through the private CLI marker, captures
// exit status and stdout/stderr, and parses the resulting output file.
package simrunner

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/afero"

	"github.com/cgbench/yab/internal/benchid"
	"github.com/cgbench/yab/internal/cachegrind"
	"github.com/cgbench/yab/internal/dispatch"
	"github.com/cgbench/yab/internal/measure"
)

// ErrSimulatorMissing is returned by Probe when the version check fails,
// meaning valgrind is not usable.
var ErrSimulatorMissing = errors.New("simrunner: simulator not found or not runnable")

// SpawnError reports a non-zero exit from the simulated child, carrying
// captured output bounded to a fixed size per stream so a runaway child
// cannot exhaust memory before the failure is reported.
type SpawnError struct {
	Stdout   []byte
	Stderr   []byte
	ExitCode int
}

func (e *SpawnError) Error() string {
	return fmt.Sprintf("simrunner: child exited with status %d", e.ExitCode)
}

// maxCapturedOutput bounds how much of a child's stdout/stderr is retained
// for diagnostics.
const maxCapturedOutput = 64 * 1024

// CommandRunner abstracts process execution so SimulatorRunner can be unit
// tested without spawning a real valgrind. Run must capture stdout and
// stderr separately and report the process's exit
// status through err (a non-nil err on non-zero exit, in the same spirit
// as exec.Cmd.Run).
type CommandRunner interface {
	Run(ctx context.Context, name string, args []string) (stdout, stderr []byte, err error)
}

// RunSpec describes one simulator invocation.
type RunSpec struct {
	// ID is the benchmark being measured.
	ID benchid.ID
	// Iterations is the iteration count passed through the private marker.
	Iterations uint64
	// IsBaseline selects '+' (baseline) vs '-' (full) in the marker.
	IsBaseline bool
	// OutPath is where the simulator is told to write its result file.
	OutPath string
	// ThisExecutable is the path to re-invoke as the child (the harness's
	// own binary, re-entering HarnessChild mode).
	ThisExecutable string
}

// Runner builds simulator commands from a configured wrapper template and
// runs them through an injected CommandRunner, parsing results through an
// injected afero.Fs.
type Runner struct {
	wrapper []string
	runner  CommandRunner
	fs      afero.Fs
}

// New constructs a Runner. wrapper is the configured command-and-args list
// (e.g. ["setarch", "-R", "valgrind", "--tool=cachegrind", "--cache-sim=yes",
// "--I1=32768,8,64", "--D1=32768,8,64", "--LL=8388608,16,64"]); it must have
// at least one element.
func New(wrapper []string, runner CommandRunner, fs afero.Fs) (*Runner, error) {
	if len(wrapper) == 0 {
		return nil, errors.New("simrunner: empty cachegrind wrapper")
	}
	return &Runner{wrapper: wrapper, runner: runner, fs: fs}, nil
}

// Probe checks that valgrind is installed and runnable by invoking
// "valgrind --tool=cachegrind --version". The configured wrapper is not
// used for this check.
func (r *Runner) Probe(ctx context.Context) error {
	_, stderr, err := r.runner.Run(ctx, "valgrind", []string{"--tool=cachegrind", "--version"})
	if err != nil {
		return fmt.Errorf("%w: %s", ErrSimulatorMissing, stderr)
	}
	return nil
}

// Run spawns the simulator for one measurement, waits for it, and on
// success parses the resulting output file into a RunRecord.
func (r *Runner) Run(ctx context.Context, spec RunSpec) (measure.RunRecord, error) {
	args := make([]string, 0, len(r.wrapper)-1+6)
	args = append(args, r.wrapper[1:]...)
	args = append(args, "--cachegrind-out-file="+spec.OutPath)
	args = append(args, spec.ThisExecutable)
	args = dispatch.Marker{Iterations: spec.Iterations, IsBaseline: spec.IsBaseline, ID: spec.ID.String()}.PushArgs(args)

	stdout, stderr, err := r.runner.Run(ctx, r.wrapper[0], args)
	if err != nil {
		exitCode := -1
		var exitErr interface{ ExitCode() int }
		if errors.As(err, &exitErr) {
			exitCode = exitErr.ExitCode()
		}
		return measure.RunRecord{}, &SpawnError{
			Stdout:   boundOutput(stdout),
			Stderr:   boundOutput(stderr),
			ExitCode: exitCode,
		}
	}

	f, err := r.fs.Open(spec.OutPath)
	if err != nil {
		return measure.RunRecord{}, fmt.Errorf("simrunner: opening result file %s: %w", spec.OutPath, err)
	}
	defer f.Close()

	return cachegrind.Parse(f, spec.OutPath)
}

func boundOutput(data []byte) []byte {
	w := newBoundedWriter(maxCapturedOutput)
	_, _ = w.Write(data)
	return w.Bytes()
}
