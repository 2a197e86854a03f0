// Package console implements the default Reporter sink: a colorized,
// tabular stdout report in the same style as
// printDetailedBenchmarkResult/printTable (cmd/benchmark/main.go), adapted
// from pass/fail rocket-benchmark rows to instruction/cache-count rows.
package console

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
	"github.com/olekukonko/tablewriter"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/cgbench/yab/internal/benchid"
	"github.com/cgbench/yab/internal/measure"
	"github.com/cgbench/yab/internal/report"
	"github.com/cgbench/yab/internal/stats"
)

// ColorMode selects when ANSI color is emitted.
type ColorMode int

const (
	// ColorAuto enables color only when Out is a terminal.
	ColorAuto ColorMode = iota
	ColorAlways
	ColorNever
)

// Console is the default Reporter: results print to Out as they complete,
// with a final summary table at shutdown.
type Console struct {
	out     io.Writer
	color   bool
	printer *message.Printer

	// mu guards out and rows: reporter calls are serialized per-benchmark
	// but may arrive concurrently across benchmarks when jobs > 1.
	mu   sync.Mutex
	rows []summaryRow
}

type summaryRow struct {
	id       string
	status   string
	total    uint64
	previous *uint64
}

// New constructs a Console writing to out, resolving mode against out's
// terminal-ness via go-isatty when mode is ColorAuto.
func New(out io.Writer, mode ColorMode) *Console {
	return &Console{
		out:     out,
		color:   resolveColor(mode, out),
		printer: message.NewPrinter(language.English),
	}
}

func resolveColor(mode ColorMode, out io.Writer) bool {
	switch mode {
	case ColorAlways:
		return true
	case ColorNever:
		return false
	default:
		f, ok := out.(*os.File)
		return ok && isatty.IsTerminal(f.Fd())
	}
}

// Error prints a standalone run-wide error.
func (c *Console) Error(err error) {
	c.colorPrintf(color.FgRed, "error: %v\n", err)
}

// ListItem prints one registered canonical id, for --list mode.
func (c *Console) ListItem(id benchid.ID) {
	c.plainPrintf("%s\n", id.String())
}

// NewTest returns a TestReporter printing id's pass/fail outcome.
func (c *Console) NewTest(id benchid.ID) report.TestReporter {
	return &testReporter{console: c, id: id.String()}
}

// NewBenchmark returns a BenchmarkReporter printing id's measurement
// progress and outcome.
func (c *Console) NewBenchmark(id benchid.ID) report.BenchmarkReporter {
	return &benchmarkReporter{console: c, id: id.String()}
}

// OK prints the final summary table.
func (c *Console) OK() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.rows) == 0 {
		return nil
	}
	table := tablewriter.NewWriter(c.out)
	table.Header([]string{"Benchmark", "Status", "Instructions", "Previous", "Delta"})
	for _, row := range c.rows {
		prevStr, deltaStr := "-", "-"
		if row.previous != nil {
			prevStr = c.printer.Sprintf("%d", *row.previous)
			deltaStr = formatDelta(*row.previous, row.total)
		}
		_ = table.Append([]string{
			row.id, row.status, c.printer.Sprintf("%d", row.total), prevStr, deltaStr,
		})
	}
	_ = table.Render()
	return nil
}

func formatDelta(previous, current uint64) string {
	if current >= previous {
		return fmt.Sprintf("+%d", current-previous)
	}
	return fmt.Sprintf("-%d", previous-current)
}

func (c *Console) colorPrintf(attr color.Attribute, format string, args ...any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.color {
		fmt.Fprint(c.out, color.New(attr).Sprintf(format, args...))
		return
	}
	fmt.Fprintf(c.out, format, args...)
}

func (c *Console) plainPrintf(format string, args ...any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintf(c.out, format, args...)
}

func (c *Console) addRow(row summaryRow) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.rows = append(c.rows, row)
}

type testReporter struct {
	console *Console
	id      string
}

func (t *testReporter) OK() {
	t.console.colorPrintf(color.FgGreen, "PASS %s\n", t.id)
}

func (t *testReporter) Fail(panicValue any) {
	t.console.colorPrintf(color.FgRed, "FAIL %s: %v\n", t.id, panicValue)
}

type benchmarkReporter struct {
	console *Console
	id      string
}

func (b *benchmarkReporter) StartExecution() {
	b.console.plainPrintf("bench %s ...\n", b.id)
}

func (b *benchmarkReporter) BaselineComputed(s stats.Stats, iterations uint64) {
	b.console.plainPrintf("  calibrated %s: %s instructions -> %d iterations\n",
		b.id, b.console.printer.Sprintf("%d", s.TotalInstructions()), iterations)
}

func (b *benchmarkReporter) OK(output measure.Output) {
	total := output.Current.Summary.TotalInstructions()
	var previous *uint64
	if output.Previous != nil {
		p := output.Previous.Summary.TotalInstructions()
		previous = &p
	}
	b.console.addRow(summaryRow{id: b.id, status: "ok", total: total, previous: previous})
	b.console.colorPrintf(color.FgGreen, "  ok %s: %s instructions\n", b.id, b.console.printer.Sprintf("%d", total))
}

func (b *benchmarkReporter) Warning(err error) {
	b.console.colorPrintf(color.FgYellow, "  warning %s: %v\n", b.id, err)
}

func (b *benchmarkReporter) Error(err error) {
	b.console.addRow(summaryRow{id: b.id, status: "error"})
	b.console.colorPrintf(color.FgRed, "  error %s: %v\n", b.id, err)
}

func (b *benchmarkReporter) NoData() {
	b.console.addRow(summaryRow{id: b.id, status: "no data"})
	b.console.plainPrintf("  no data %s\n", b.id)
}
