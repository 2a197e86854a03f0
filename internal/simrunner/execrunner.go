package simrunner

import (
	"bytes"
	"context"
	"os/exec"
)

// ExecRunner is the production CommandRunner, backed by os/exec. There is
// no third-party process-execution library in the corpus to reach for
// here; os/exec is the only tool for spawning a child process either way.
type ExecRunner struct{}

// Run implements CommandRunner.
func (ExecRunner) Run(ctx context.Context, name string, args []string) (stdout, stderr []byte, err error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var outBuf, errBuf bytes.Buffer
	cmd.Stdout = &outBuf
	cmd.Stderr = &errBuf
	err = cmd.Run()
	return outBuf.Bytes(), errBuf.Bytes(), err
}
