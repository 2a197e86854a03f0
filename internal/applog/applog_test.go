package applog_test

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/zerodha/logf"

	"github.com/cgbench/yab/internal/applog"
)

func TestGetReturnsSingleton(t *testing.T) {
	applog.Reset()
	l1 := applog.Get()
	l2 := applog.Get()
	assert.Same(t, l1, l2)
}

func TestInitDefaultsToInfoLevel(t *testing.T) {
	applog.Reset()
	l := applog.Init(applog.Options{})
	assert.Equal(t, logf.InfoLevel, l.Level)
}

func TestInitVerboseSelectsDebugLevel(t *testing.T) {
	applog.Reset()
	l := applog.Init(applog.Options{Verbose: true})
	assert.Equal(t, logf.DebugLevel, l.Level)
}

func TestInitQuietSelectsErrorLevel(t *testing.T) {
	applog.Reset()
	l := applog.Init(applog.Options{Quiet: true})
	assert.Equal(t, logf.ErrorLevel, l.Level)
}

func TestInitOnlyAppliesFirstCallsOptions(t *testing.T) {
	applog.Reset()
	applog.Init(applog.Options{Verbose: true})
	l := applog.Init(applog.Options{Quiet: true})
	assert.Equal(t, logf.DebugLevel, l.Level)
}

func TestInitWritesToProvidedWriter(t *testing.T) {
	applog.Reset()
	var buf bytes.Buffer
	l := applog.Init(applog.Options{Writer: &buf})
	l.Info("hello", "key", "value")
	assert.Contains(t, buf.String(), "hello")
	assert.Contains(t, buf.String(), "key=value")
}
