package kafka

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/turtacn/ligandscope/pkg/errors"
)

// Topic names for the analysis pipeline.
const (
	TopicAnalysisRequested = "ligandscope.analysis.requested"
	TopicAnalysisCompleted = "ligandscope.analysis.completed"
	TopicAnalysisFailed    = "ligandscope.analysis.failed"
	TopicDeadLetter        = "ligandscope.analysis.dlq"
)

const envelopeSchemaVersion = "1.0"

// EventEnvelope wraps every event published to the analysis topics.
type EventEnvelope struct {
	EventID       string          `json:"eventId"`
	EventType     string          `json:"eventType"`
	Source        string          `json:"source"`
	Timestamp     time.Time       `json:"timestamp"`
	SchemaVersion string          `json:"schemaVersion"`
	TraceID       string          `json:"traceId,omitempty"`
	Payload       json.RawMessage `json:"payload"`
}

// NewEventEnvelope builds an envelope around the given payload.
func NewEventEnvelope(eventType, source string, payload any) (*EventEnvelope, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeSerialization, "failed to marshal event payload")
	}
	return &EventEnvelope{
		EventID:       uuid.NewString(),
		EventType:     eventType,
		Source:        source,
		Timestamp:     time.Now().UTC(),
		SchemaVersion: envelopeSchemaVersion,
		Payload:       data,
	}, nil
}

// DecodePayload unmarshals the envelope payload into dest.
func (e *EventEnvelope) DecodePayload(dest any) error {
	if err := json.Unmarshal(e.Payload, dest); err != nil {
		return errors.Wrap(err, errors.ErrCodeSerialization, "failed to decode event payload")
	}
	return nil
}

// Encode serializes the envelope for the wire.
func (e *EventEnvelope) Encode() ([]byte, error) {
	data, err := json.Marshal(e)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeSerialization, "failed to marshal event envelope")
	}
	return data, nil
}

// DecodeEnvelope parses an envelope from the wire.
func DecodeEnvelope(data []byte) (*EventEnvelope, error) {
	var e EventEnvelope
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeSerialization, "failed to unmarshal event envelope")
	}
	return &e, nil
}

// AnalysisRequestedPayload announces a newly submitted analysis job.
type AnalysisRequestedPayload struct {
	JobID        string    `json:"jobId"`
	StructureKey string    `json:"structureKey"`
	StructureSHA string    `json:"structureSha"`
	SubmittedAt  time.Time `json:"submittedAt"`
}

// AnalysisCompletedPayload announces a finished job and summarizes its
// result.
type AnalysisCompletedPayload struct {
	JobID        string    `json:"jobId"`
	StructureSHA string    `json:"structureSha"`
	BindingSites int       `json:"bindingSites"`
	Interactions int       `json:"interactions"`
	ElapsedMS    int64     `json:"elapsedMs"`
	FinishedAt   time.Time `json:"finishedAt"`
}

// AnalysisFailedPayload announces a job that exhausted its retry budget.
type AnalysisFailedPayload struct {
	JobID        string    `json:"jobId"`
	StructureSHA string    `json:"structureSha"`
	ErrorCode    string    `json:"errorCode"`
	ErrorMessage string    `json:"errorMessage"`
	Attempts     int       `json:"attempts"`
	FinishedAt   time.Time `json:"finishedAt"`
}
