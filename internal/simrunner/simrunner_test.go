package simrunner_test

import (
	"context"
	"errors"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/cgbench/yab/internal/benchid"
	"github.com/cgbench/yab/internal/simrunner"
	"github.com/cgbench/yab/internal/simrunner/mocksimrunner"
)

var defaultWrapper = []string{
	"setarch", "-R", "valgrind", "--tool=cachegrind", "--cache-sim=yes",
	"--I1=32768,8,64", "--D1=32768,8,64", "--LL=8388608,16,64",
}

func TestRunBuildsArgsAndParsesOutput(t *testing.T) {
	ctrl := gomock.NewController(t)
	mockRunner := mocksimrunner.NewMockCommandRunner(ctrl)
	fs := afero.NewMemMapFs()

	const outPath = "/out/fib.cachegrind"
	require.NoError(t, afero.WriteFile(fs, outPath, []byte("events: Ir\nsummary: 1234\n"), 0o644))

	id := benchid.New("fib", benchid.WithArgs("15"))
	mockRunner.EXPECT().
		Run(gomock.Any(), "setarch", gomock.Any()).
		DoAndReturn(func(_ context.Context, _ string, args []string) ([]byte, []byte, error) {
			assert.Contains(t, args, "--cachegrind-out-file="+outPath)
			assert.Contains(t, args, "--cachegrind-instrument")
			assert.Contains(t, args, "201")
			assert.Contains(t, args, "+")
			assert.Contains(t, args, "fib/15")
			return nil, nil, nil
		})

	runner, err := simrunner.New(defaultWrapper, mockRunner, fs)
	require.NoError(t, err)

	rec, err := runner.Run(context.Background(), simrunner.RunSpec{
		ID:             id,
		Iterations:     201,
		IsBaseline:     true,
		OutPath:        outPath,
		ThisExecutable: "/bin/fibbench",
	})
	require.NoError(t, err)
	assert.Equal(t, uint64(1234), rec.Summary.TotalInstructions())
}

func TestRunSurfacesNonZeroExitWithCapturedOutput(t *testing.T) {
	ctrl := gomock.NewController(t)
	mockRunner := mocksimrunner.NewMockCommandRunner(ctrl)
	fs := afero.NewMemMapFs()

	mockRunner.EXPECT().
		Run(gomock.Any(), gomock.Any(), gomock.Any()).
		Return([]byte("partial stdout"), []byte("boom"), errors.New("exit status 1"))

	runner, err := simrunner.New(defaultWrapper, mockRunner, fs)
	require.NoError(t, err)

	_, err = runner.Run(context.Background(), simrunner.RunSpec{
		ID:         benchid.New("fib"),
		Iterations: 2,
		IsBaseline: true,
		OutPath:    "/out/fib.cachegrind",
	})
	require.Error(t, err)
	var spawnErr *simrunner.SpawnError
	require.True(t, errors.As(err, &spawnErr))
	assert.Equal(t, []byte("boom"), spawnErr.Stderr)
}

func TestProbeMapsFailureToErrSimulatorMissing(t *testing.T) {
	ctrl := gomock.NewController(t)
	mockRunner := mocksimrunner.NewMockCommandRunner(ctrl)
	fs := afero.NewMemMapFs()

	mockRunner.EXPECT().
		Run(gomock.Any(), "valgrind", []string{"--tool=cachegrind", "--version"}).
		Return(nil, []byte("command not found"), errors.New("exec: not found"))

	runner, err := simrunner.New(defaultWrapper, mockRunner, fs)
	require.NoError(t, err)

	err = runner.Probe(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, simrunner.ErrSimulatorMissing)
}

func TestNewRejectsEmptyWrapper(t *testing.T) {
	_, err := simrunner.New(nil, nil, afero.NewMemMapFs())
	assert.Error(t, err)
}
