package job

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/ligandscope/internal/engine"
	"github.com/turtacn/ligandscope/pkg/errors"
)

func newTestJob(t *testing.T) *AnalysisJob {
	t.Helper()
	j, err := NewAnalysisJob("structures/abc.pdb", "deadbeef", engine.AnalysisParams{}, true, 3)
	require.NoError(t, err)
	return j
}

func TestNewAnalysisJob_Defaults(t *testing.T) {
	j := newTestJob(t)

	assert.NotEqual(t, "", j.ID.String())
	assert.Equal(t, StatusPending, j.Status)
	assert.Equal(t, 0, j.Attempts)
	assert.Equal(t, 3, j.MaxAttempts)
	assert.Nil(t, j.StartedAt)
	assert.Nil(t, j.FinishedAt)
	assert.False(t, j.SubmittedAt.IsZero())

	// zero params are filled with engine defaults before validation
	assert.Equal(t, engine.DefaultParams(), j.Params)
}

func TestNewAnalysisJob_Validation(t *testing.T) {
	_, err := NewAnalysisJob("", "deadbeef", engine.AnalysisParams{}, false, 1)
	assert.Error(t, err)

	_, err = NewAnalysisJob("structures/abc.pdb", "", engine.AnalysisParams{}, false, 1)
	assert.Error(t, err)

	bad := engine.AnalysisParams{HBondMaxDist: -1}
	_, err = NewAnalysisJob("structures/abc.pdb", "deadbeef", bad, false, 1)
	assert.True(t, errors.IsCode(err, errors.ErrCodeInvalidCutoff))
}

func TestNewAnalysisJob_MaxAttemptsFloor(t *testing.T) {
	j, err := NewAnalysisJob("structures/abc.pdb", "deadbeef", engine.AnalysisParams{}, false, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, j.MaxAttempts)
}

func TestAnalysisJob_Lifecycle_Success(t *testing.T) {
	j := newTestJob(t)

	require.NoError(t, j.Start())
	assert.Equal(t, StatusRunning, j.Status)
	assert.Equal(t, 1, j.Attempts)
	require.NotNil(t, j.StartedAt)

	result := &engine.AnalysisResult{Success: true}
	require.NoError(t, j.Complete(result))
	assert.Equal(t, StatusCompleted, j.Status)
	assert.Equal(t, result, j.Result)
	require.NotNil(t, j.FinishedAt)
	assert.True(t, j.Status.IsTerminal())
}

func TestAnalysisJob_Lifecycle_FailureAndRetry(t *testing.T) {
	j := newTestJob(t)

	require.NoError(t, j.Start())
	require.NoError(t, j.Fail("ENGINE_003", "stage panicked"))
	assert.Equal(t, StatusFailed, j.Status)
	assert.Equal(t, "ENGINE_003", j.ErrorCode)
	assert.True(t, j.CanRetry())

	require.NoError(t, j.Retry())
	assert.Equal(t, StatusPending, j.Status)
	assert.Nil(t, j.StartedAt)
	assert.Nil(t, j.FinishedAt)
	assert.Equal(t, 1, j.Attempts)

	// burn the remaining attempts
	for i := 0; i < 2; i++ {
		require.NoError(t, j.Start())
		require.NoError(t, j.Fail("ENGINE_003", "stage panicked"))
		if j.CanRetry() {
			require.NoError(t, j.Retry())
		}
	}
	assert.Equal(t, 3, j.Attempts)
	assert.False(t, j.CanRetry())
	assert.True(t, errors.IsCode(j.Retry(), errors.ErrCodeJobInvalidState))
}

func TestAnalysisJob_SetProgress(t *testing.T) {
	j := newTestJob(t)

	// ignored while pending
	j.SetProgress(50)
	assert.Zero(t, j.Progress)

	require.NoError(t, j.Start())
	j.SetProgress(40)
	assert.Equal(t, 40, j.Progress)

	// regressions and out-of-range values never move it backwards
	j.SetProgress(10)
	assert.Equal(t, 40, j.Progress)
	j.SetProgress(-5)
	assert.Equal(t, 40, j.Progress)
	j.SetProgress(250)
	assert.Equal(t, 100, j.Progress)

	require.NoError(t, j.Fail("ENGINE_003", "stage panicked"))
	require.NoError(t, j.Retry())
	assert.Zero(t, j.Progress)
}

func TestAnalysisJob_Complete_PinsProgress(t *testing.T) {
	j := newTestJob(t)
	require.NoError(t, j.Start())
	j.SetProgress(60)
	require.NoError(t, j.Complete(&engine.AnalysisResult{Success: true}))
	assert.Equal(t, 100, j.Progress)
}

func TestAnalysisJob_InvalidTransitions(t *testing.T) {
	j := newTestJob(t)

	// pending cannot complete or fail directly
	assert.True(t, errors.IsCode(j.Complete(&engine.AnalysisResult{}), errors.ErrCodeJobInvalidState))
	assert.True(t, errors.IsCode(j.Fail("X", "y"), errors.ErrCodeJobInvalidState))

	require.NoError(t, j.Start())
	// running cannot start again
	assert.True(t, errors.IsCode(j.Start(), errors.ErrCodeJobInvalidState))

	require.NoError(t, j.Complete(&engine.AnalysisResult{Success: true}))
	// completed is terminal
	assert.True(t, errors.IsCode(j.Start(), errors.ErrCodeJobInvalidState))
	assert.True(t, errors.IsCode(j.Fail("X", "y"), errors.ErrCodeJobInvalidState))
	assert.False(t, j.CanRetry())
}

func TestAnalysisJob_Complete_NilResult(t *testing.T) {
	j := newTestJob(t)
	require.NoError(t, j.Start())
	assert.Error(t, j.Complete(nil))
	assert.Equal(t, StatusRunning, j.Status)
}
