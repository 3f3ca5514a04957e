package testutil_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/turtacn/ligandscope/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/ligandscope/internal/testutil"
)

func TestMockLogger(t *testing.T) {
	logger := testutil.NewMockLogger()

	logger.Info("test info", logging.String("key", "value"))

	entries := logger.Entries()
	assert.Len(t, entries, 1)
	assert.Equal(t, "info", entries[0].Level)
	assert.Equal(t, "test info", entries[0].Message)

	logger.Clear()
	assert.Len(t, logger.Entries(), 0)

	logger.Error("test error")
	assert.True(t, logger.HasEntry("error", "test error"))
	assert.False(t, logger.HasEntry("info", "test info"))
	assert.True(t, logger.HasEntryContaining("error", "error"))
}

func TestMockLogger_ChildLoggersShareRecorder(t *testing.T) {
	logger := testutil.NewMockLogger()

	logger.Named("worker").With(logging.Int("attempt", 1)).Warn("lease lost")

	assert.True(t, logger.HasEntry("warn", "lease lost"))
}
