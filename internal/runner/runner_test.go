package runner_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/corvid3/hewg/internal/runner"
)

func TestRunCapturesOutputAndExitCode(t *testing.T) {
	res, err := runner.Run(context.Background(), []string{"sh", "-c", "echo hello; exit 0"})
	require.NoError(t, err)
	assert.Equal(t, 0, res.ExitCode)
	assert.Contains(t, string(res.Output), "hello")
}

func TestRunReturnsNonzeroExitWithoutError(t *testing.T) {
	res, err := runner.Run(context.Background(), []string{"sh", "-c", "exit 7"})
	require.NoError(t, err)
	assert.Equal(t, 7, res.ExitCode)
}

func TestRunSpawnFailureIsHardError(t *testing.T) {
	_, err := runner.Run(context.Background(), []string{"hewg-does-not-exist-anywhere"})
	require.Error(t, err)
	var spawnErr *runner.SpawnError
	assert.ErrorAs(t, err, &spawnErr)
}

func TestRunAbnormalTerminationIsHardError(t *testing.T) {
	_, err := runner.Run(context.Background(), []string{"sh", "-c", "kill -TERM $$"})
	require.Error(t, err)
	var abnormal *runner.AbnormalTerminationError
	assert.ErrorAs(t, err, &abnormal)
}
