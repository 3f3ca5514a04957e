package kafka

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/turtacn/ligandscope/pkg/errors"
)

func TestNewEventEnvelope(t *testing.T) {
	payload := AnalysisRequestedPayload{
		JobID:        "5a0e3a1c-0000-0000-0000-000000000001",
		StructureKey: "structures/1abc.pdb",
		StructureSHA: "deadbeef",
		SubmittedAt:  time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
	}

	env, err := NewEventEnvelope("analysis.requested", "apiserver", payload)
	require.NoError(t, err)

	assert.NotEmpty(t, env.EventID)
	assert.Equal(t, "analysis.requested", env.EventType)
	assert.Equal(t, "apiserver", env.Source)
	assert.Equal(t, envelopeSchemaVersion, env.SchemaVersion)
	assert.WithinDuration(t, time.Now().UTC(), env.Timestamp, 5*time.Second)

	var decoded AnalysisRequestedPayload
	require.NoError(t, env.DecodePayload(&decoded))
	assert.Equal(t, payload, decoded)
}

func TestNewEventEnvelope_UnmarshalablePayload(t *testing.T) {
	_, err := NewEventEnvelope("analysis.requested", "apiserver", func() {})
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeSerialization))
}

func TestEnvelope_WireRoundTrip(t *testing.T) {
	payload := AnalysisCompletedPayload{
		JobID:        "5a0e3a1c-0000-0000-0000-000000000002",
		StructureSHA: "cafebabe",
		BindingSites: 2,
		Interactions: 17,
		ElapsedMS:    412,
		FinishedAt:   time.Date(2025, 6, 1, 12, 5, 0, 0, time.UTC),
	}
	env, err := NewEventEnvelope("analysis.completed", "worker", payload)
	require.NoError(t, err)

	data, err := env.Encode()
	require.NoError(t, err)

	got, err := DecodeEnvelope(data)
	require.NoError(t, err)
	assert.Equal(t, env.EventID, got.EventID)
	assert.Equal(t, env.EventType, got.EventType)

	var decoded AnalysisCompletedPayload
	require.NoError(t, got.DecodePayload(&decoded))
	assert.Equal(t, payload, decoded)
}

func TestDecodeEnvelope_Invalid(t *testing.T) {
	_, err := DecodeEnvelope([]byte("{not json"))
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeSerialization))
}

func TestDecodePayload_TypeMismatch(t *testing.T) {
	env, err := NewEventEnvelope("analysis.failed", "worker", AnalysisFailedPayload{
		JobID:     "5a0e3a1c-0000-0000-0000-000000000003",
		ErrorCode: "ENGINE_001",
	})
	require.NoError(t, err)

	var wrong []int
	err = env.DecodePayload(&wrong)
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeSerialization))
}

func TestTopicNames(t *testing.T) {
	assert.Equal(t, "ligandscope.analysis.requested", TopicAnalysisRequested)
	assert.Equal(t, "ligandscope.analysis.completed", TopicAnalysisCompleted)
	assert.Equal(t, "ligandscope.analysis.failed", TopicAnalysisFailed)
	assert.Equal(t, "ligandscope.analysis.dlq", TopicDeadLetter)
}
