package job

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Repository is the persistence contract for AnalysisJob aggregates.
type Repository interface {
	// Create persists a new job.  Returns errors.ErrCodeConflict if the ID
	// already exists.
	Create(ctx context.Context, j *AnalysisJob) error

	// FindByID retrieves a job.  Returns errors.ErrCodeJobNotFound if no
	// job with the given ID exists.
	FindByID(ctx context.Context, id uuid.UUID) (*AnalysisJob, error)

	// Update persists the full mutable state of a job (status, result,
	// error fields, attempt counters, timestamps).
	Update(ctx context.Context, j *AnalysisJob) error

	// UpdateProgress persists only the progress percentage of a running
	// job.  Cheaper than Update and safe to call from hot progress paths.
	UpdateProgress(ctx context.Context, id uuid.UUID, percent int) error

	// ClaimNextPending atomically picks the oldest pending job, marks it
	// running, and returns it.  Returns errors.ErrCodeJobNotFound when the
	// queue is empty.  Concurrent workers never claim the same job.
	ClaimNextPending(ctx context.Context) (*AnalysisJob, error)

	// List returns jobs filtered by status (empty status means all),
	// newest first.
	List(ctx context.Context, status Status, limit, offset int) ([]*AnalysisJob, error)

	// CountByStatus returns job counts keyed by status.
	CountByStatus(ctx context.Context) (map[Status]int64, error)

	// DeleteFinishedBefore removes completed and failed jobs that finished
	// before the given time, returning the number deleted.
	DeleteFinishedBefore(ctx context.Context, cutoff time.Time) (int64, error)
}
