// Package applog wires up the process-wide logf.Logger singleton used for
// diagnostic output (calibration details, backup/publish warnings,
// recovered scheduler job panics). --verbose selects debug level, -q selects error
// level, and the unflagged default is info.
package applog

import (
	"io"
	"os"
	"sync"

	"github.com/zerodha/logf"
)

var (
	global logf.Logger
	once   sync.Once
)

// Options configures the singleton's first initialization. Only the
// first call to Init (or the first implicit Get) takes effect; later
// calls return the already-constructed logger.
type Options struct {
	Verbose bool
	Quiet   bool
	Writer  io.Writer
	Color   bool
}

// Init constructs the singleton logf.Logger from opts and returns it.
func Init(opts Options) *logf.Logger {
	once.Do(func() {
		writer := opts.Writer
		if writer == nil {
			writer = os.Stderr
		}
		global = logf.New(logf.Opts{
			EnableCaller:    opts.Verbose,
			EnableColor:     opts.Color,
			TimestampFormat: "15:04:05",
			Level:           level(opts),
			Writer:          writer,
		})
	})
	return &global
}

// Get returns the singleton, initializing it with default options (info
// level, stderr) if Init hasn't been called yet.
func Get() *logf.Logger {
	return Init(Options{})
}

func level(opts Options) logf.Level {
	switch {
	case opts.Quiet:
		return logf.ErrorLevel
	case opts.Verbose:
		return logf.DebugLevel
	default:
		return logf.InfoLevel
	}
}

// Reset tears down the singleton so tests can re-initialize it with
// different options.
func Reset() {
	once = sync.Once{}
	global = logf.Logger{}
}
