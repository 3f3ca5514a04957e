// Package job provides the domain model for asynchronous analysis jobs.  A
// job tracks one structure submission from enqueue through worker execution
// to a stored result, with a strict status state machine.
package job

import (
	"time"

	"github.com/google/uuid"

	"github.com/turtacn/ligandscope/internal/engine"
	"github.com/turtacn/ligandscope/pkg/errors"
)

// Status is the lifecycle state of an analysis job.
type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// validTransitions encodes the allowed status moves.  failed -> pending
// is the retry path.
var validTransitions = map[Status][]Status{
	StatusPending:   {StatusRunning},
	StatusRunning:   {StatusCompleted, StatusFailed},
	StatusFailed:    {StatusPending},
	StatusCompleted: {},
}

// ParseStatus validates a status string coming from an API surface.
func ParseStatus(s string) (Status, error) {
	switch Status(s) {
	case StatusPending, StatusRunning, StatusCompleted, StatusFailed:
		return Status(s), nil
	default:
		return "", errors.Newf(errors.ErrCodeValidation, "unknown job status %q", s)
	}
}

// ParseID validates a job identifier coming from an API surface.
func ParseID(s string) (uuid.UUID, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, errors.Newf(errors.ErrCodeValidation, "invalid job id %q", s)
	}
	return id, nil
}

// IsTerminal reports whether no further transitions are expected.  A failed
// job is terminal only once its retry budget is exhausted, which the
// aggregate tracks separately via Attempts.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

func (s Status) canTransitionTo(next Status) bool {
	for _, allowed := range validTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// AnalysisJob is the aggregate root for one queued structure analysis.  The
// structure text itself lives in object storage under StructureKey; the row
// carries only the parameters, bookkeeping, and (on completion) the result.
type AnalysisJob struct {
	ID     uuid.UUID `json:"id"`
	Status Status    `json:"status"`

	// StructureKey is the object-storage key of the submitted structure.
	StructureKey string `json:"structureKey"`
	// StructureSHA is the hex SHA-256 of the structure text, used as the
	// result cache key so identical submissions share a cached result.
	StructureSHA string `json:"structureSha"`

	Params      engine.AnalysisParams `json:"params"`
	WaterBridge bool                  `json:"waterBridge"`

	Result *engine.AnalysisResult `json:"result,omitempty"`

	ErrorCode    string `json:"errorCode,omitempty"`
	ErrorMessage string `json:"errorMessage,omitempty"`

	// Progress is the last reported pipeline percentage, 0..100.  Only
	// meaningful while the job is running; Complete pins it to 100.
	Progress int `json:"progress"`

	Attempts    int `json:"attempts"`
	MaxAttempts int `json:"maxAttempts"`

	SubmittedAt time.Time  `json:"submittedAt"`
	StartedAt   *time.Time `json:"startedAt,omitempty"`
	FinishedAt  *time.Time `json:"finishedAt,omitempty"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

// NewAnalysisJob creates a pending job for the given structure.
func NewAnalysisJob(structureKey, structureSHA string, params engine.AnalysisParams, waterBridge bool, maxAttempts int) (*AnalysisJob, error) {
	if structureKey == "" {
		return nil, errors.InvalidParam("structure key cannot be empty")
	}
	if structureSHA == "" {
		return nil, errors.InvalidParam("structure digest cannot be empty")
	}
	params.ApplyDefaults()
	if err := params.Validate(); err != nil {
		return nil, err
	}
	if maxAttempts <= 0 {
		maxAttempts = 1
	}

	now := time.Now().UTC()
	return &AnalysisJob{
		ID:           uuid.New(),
		Status:       StatusPending,
		StructureKey: structureKey,
		StructureSHA: structureSHA,
		Params:       params,
		WaterBridge:  waterBridge,
		MaxAttempts:  maxAttempts,
		SubmittedAt:  now,
		UpdatedAt:    now,
	}, nil
}

// Start marks the job as picked up by a worker.
func (j *AnalysisJob) Start() error {
	if err := j.transition(StatusRunning); err != nil {
		return err
	}
	now := time.Now().UTC()
	j.StartedAt = &now
	j.Attempts++
	return nil
}

// SetProgress records the latest pipeline percentage.  Regressions are
// ignored so late out-of-order updates never walk the number backwards.
func (j *AnalysisJob) SetProgress(percent int) {
	if j.Status != StatusRunning {
		return
	}
	if percent < 0 {
		percent = 0
	}
	if percent > 100 {
		percent = 100
	}
	if percent > j.Progress {
		j.Progress = percent
	}
}

// Complete stores the successful result and finishes the job.
func (j *AnalysisJob) Complete(result *engine.AnalysisResult) error {
	if result == nil {
		return errors.InvalidParam("result cannot be nil")
	}
	if err := j.transition(StatusCompleted); err != nil {
		return err
	}
	now := time.Now().UTC()
	j.Result = result
	j.Progress = 100
	j.ErrorCode = ""
	j.ErrorMessage = ""
	j.FinishedAt = &now
	return nil
}

// Fail records the failure reason and finishes this attempt.
func (j *AnalysisJob) Fail(code, message string) error {
	if err := j.transition(StatusFailed); err != nil {
		return err
	}
	now := time.Now().UTC()
	j.ErrorCode = code
	j.ErrorMessage = message
	j.FinishedAt = &now
	return nil
}

// CanRetry reports whether a failed job still has attempts left.
func (j *AnalysisJob) CanRetry() bool {
	return j.Status == StatusFailed && j.Attempts < j.MaxAttempts
}

// Retry moves a failed job back to pending for another attempt.
func (j *AnalysisJob) Retry() error {
	if !j.CanRetry() {
		return errors.Newf(errors.ErrCodeJobInvalidState,
			"job %s cannot be retried (status=%s attempts=%d/%d)",
			j.ID, j.Status, j.Attempts, j.MaxAttempts)
	}
	if err := j.transition(StatusPending); err != nil {
		return err
	}
	j.StartedAt = nil
	j.FinishedAt = nil
	j.Progress = 0
	return nil
}

func (j *AnalysisJob) transition(next Status) error {
	if !j.Status.canTransitionTo(next) {
		return errors.Newf(errors.ErrCodeJobInvalidState,
			"invalid job transition %s -> %s", j.Status, next)
	}
	j.Status = next
	j.UpdatedAt = time.Now().UTC()
	return nil
}
