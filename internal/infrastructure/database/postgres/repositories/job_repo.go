package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/turtacn/ligandscope/internal/domain/job"
	"github.com/turtacn/ligandscope/internal/engine"
	"github.com/turtacn/ligandscope/internal/infrastructure/database/postgres"
	"github.com/turtacn/ligandscope/internal/infrastructure/monitoring/logging"
	appErrors "github.com/turtacn/ligandscope/pkg/errors"
)

// jobColumns is the canonical column list shared by every SELECT so scanJob
// stays in sync with one place.
const jobColumns = `
	id, status, structure_key, structure_sha, params, water_bridge,
	result, error_code, error_message, progress, attempts, max_attempts,
	submitted_at, started_at, finished_at, updated_at`

// AnalysisJobRepository is the PostgreSQL implementation of job.Repository.
type AnalysisJobRepository struct {
	db     queryExecutor
	logger logging.Logger
}

var _ job.Repository = (*AnalysisJobRepository)(nil)

// NewAnalysisJobRepository constructs a repository over the shared connection.
func NewAnalysisJobRepository(conn *postgres.Connection, log logging.Logger) *AnalysisJobRepository {
	if log == nil {
		log = logging.NewNopLogger()
	}
	return &AnalysisJobRepository{db: conn.DB(), logger: log}
}

// Create persists a new job row.
func (r *AnalysisJobRepository) Create(ctx context.Context, j *job.AnalysisJob) error {
	paramsJSON, err := json.Marshal(j.Params)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrCodeSerialization, "failed to marshal job params")
	}
	resultJSON, err := marshalResult(j.Result)
	if err != nil {
		return err
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO analysis_jobs (`+jobColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16)`,
		j.ID, j.Status, j.StructureKey, j.StructureSHA, paramsJSON, j.WaterBridge,
		resultJSON, j.ErrorCode, j.ErrorMessage, j.Progress, j.Attempts, j.MaxAttempts,
		j.SubmittedAt, j.StartedAt, j.FinishedAt, j.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return appErrors.Newf(appErrors.ErrCodeConflict, "job %s already exists", j.ID)
		}
		r.logger.Error("failed to insert analysis job",
			logging.String("job_id", j.ID.String()), logging.Err(err))
		return appErrors.Wrap(err, appErrors.ErrCodeDatabaseError, "failed to insert job")
	}
	return nil
}

// FindByID retrieves a job by ID.
func (r *AnalysisJobRepository) FindByID(ctx context.Context, id uuid.UUID) (*job.AnalysisJob, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+jobColumns+` FROM analysis_jobs WHERE id = $1`, id)

	j, err := scanJob(row)
	if err == sql.ErrNoRows {
		return nil, appErrors.Newf(appErrors.ErrCodeJobNotFound, "job %s not found", id)
	}
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrCodeDatabaseError, "failed to query job")
	}
	return j, nil
}

// Update persists the mutable state of an existing job.
func (r *AnalysisJobRepository) Update(ctx context.Context, j *job.AnalysisJob) error {
	resultJSON, err := marshalResult(j.Result)
	if err != nil {
		return err
	}

	res, err := r.db.ExecContext(ctx, `
		UPDATE analysis_jobs SET
			status = $2, result = $3, error_code = $4, error_message = $5,
			progress = $6, attempts = $7, started_at = $8, finished_at = $9,
			updated_at = $10
		WHERE id = $1`,
		j.ID, j.Status, resultJSON, j.ErrorCode, j.ErrorMessage,
		j.Progress, j.Attempts, j.StartedAt, j.FinishedAt, j.UpdatedAt,
	)
	if err != nil {
		r.logger.Error("failed to update analysis job",
			logging.String("job_id", j.ID.String()), logging.Err(err))
		return appErrors.Wrap(err, appErrors.ErrCodeDatabaseError, "failed to update job")
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrCodeDatabaseError, "failed to read update result")
	}
	if affected == 0 {
		return appErrors.Newf(appErrors.ErrCodeJobNotFound, "job %s not found", j.ID)
	}
	return nil
}

// UpdateProgress persists only the progress column of a running job.  A
// missing or non-running row is not an error: the job may have finished
// between the engine callback and this write.
func (r *AnalysisJobRepository) UpdateProgress(ctx context.Context, id uuid.UUID, percent int) error {
	if percent < 0 {
		percent = 0
	}
	if percent > 100 {
		percent = 100
	}
	_, err := r.db.ExecContext(ctx, `
		UPDATE analysis_jobs SET progress = $2, updated_at = $3
		WHERE id = $1 AND status = $4 AND progress < $2`,
		id, percent, time.Now().UTC(), job.StatusRunning,
	)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrCodeDatabaseError, "failed to update job progress")
	}
	return nil
}

// ClaimNextPending picks the oldest pending job and marks it running in one
// transaction.  FOR UPDATE SKIP LOCKED keeps concurrent workers from fighting
// over the same row.
func (r *AnalysisJobRepository) ClaimNextPending(ctx context.Context) (*job.AnalysisJob, error) {
	db, ok := r.db.(*sql.DB)
	if !ok {
		return nil, appErrors.New(appErrors.ErrCodeInternal, "claim requires a transactional database handle")
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrCodeDatabaseError, "failed to begin claim transaction")
	}
	defer tx.Rollback()

	row := tx.QueryRowContext(ctx, `
		SELECT `+jobColumns+`
		FROM analysis_jobs
		WHERE status = $1
		ORDER BY submitted_at
		LIMIT 1
		FOR UPDATE SKIP LOCKED`, job.StatusPending)

	j, err := scanJob(row)
	if err == sql.ErrNoRows {
		return nil, appErrors.New(appErrors.ErrCodeJobNotFound, "no pending jobs")
	}
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrCodeDatabaseError, "failed to query pending job")
	}

	now := time.Now().UTC()
	_, err = tx.ExecContext(ctx, `
		UPDATE analysis_jobs SET
			status = $2, started_at = $3, attempts = attempts + 1,
			progress = 0, updated_at = $3
		WHERE id = $1`,
		j.ID, job.StatusRunning, now,
	)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrCodeDatabaseError, "failed to mark job running")
	}
	if err := tx.Commit(); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrCodeDatabaseError, "failed to commit claim")
	}

	j.Status = job.StatusRunning
	j.StartedAt = &now
	j.Attempts++
	j.Progress = 0
	j.UpdatedAt = now
	return j, nil
}

// List returns jobs filtered by status, newest first.  An empty status
// returns all jobs.
func (r *AnalysisJobRepository) List(ctx context.Context, status job.Status, limit, offset int) ([]*job.AnalysisJob, error) {
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT `+jobColumns+`
		FROM analysis_jobs
		WHERE ($1 = '' OR status = $1)
		ORDER BY submitted_at DESC
		LIMIT $2 OFFSET $3`,
		string(status), limit, offset,
	)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrCodeDatabaseError, "failed to list jobs")
	}
	defer rows.Close()

	var jobs []*job.AnalysisJob
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrCodeDatabaseError, "failed to scan job row")
		}
		jobs = append(jobs, j)
	}
	if err := rows.Err(); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrCodeDatabaseError, "failed to iterate job rows")
	}
	return jobs, nil
}

// CountByStatus returns job counts keyed by status.
func (r *AnalysisJobRepository) CountByStatus(ctx context.Context) (map[job.Status]int64, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT status, COUNT(*) FROM analysis_jobs GROUP BY status`)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrCodeDatabaseError, "failed to count jobs")
	}
	defer rows.Close()

	counts := make(map[job.Status]int64)
	for rows.Next() {
		var status job.Status
		var n int64
		if err := rows.Scan(&status, &n); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrCodeDatabaseError, "failed to scan count row")
		}
		counts[status] = n
	}
	if err := rows.Err(); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrCodeDatabaseError, "failed to iterate count rows")
	}
	return counts, nil
}

// DeleteFinishedBefore removes terminal jobs that finished before cutoff.
func (r *AnalysisJobRepository) DeleteFinishedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
		DELETE FROM analysis_jobs
		WHERE status IN ($1, $2) AND finished_at < $3`,
		job.StatusCompleted, job.StatusFailed, cutoff,
	)
	if err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrCodeDatabaseError, "failed to delete finished jobs")
	}
	deleted, err := res.RowsAffected()
	if err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrCodeDatabaseError, "failed to read delete result")
	}
	if deleted > 0 {
		r.logger.Info("pruned finished jobs", logging.Int64("deleted", deleted))
	}
	return deleted, nil
}

func marshalResult(result *engine.AnalysisResult) ([]byte, error) {
	if result == nil {
		return nil, nil
	}
	data, err := json.Marshal(result)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrCodeSerialization, "failed to marshal job result")
	}
	return data, nil
}

// scanJob maps one row onto the aggregate.  Nullable columns go through
// sql.Null types; JSONB columns are unmarshalled from raw bytes.
func scanJob(s scanner) (*job.AnalysisJob, error) {
	var (
		j          job.AnalysisJob
		paramsJSON []byte
		resultJSON []byte
		startedAt  sql.NullTime
		finishedAt sql.NullTime
	)

	err := s.Scan(
		&j.ID, &j.Status, &j.StructureKey, &j.StructureSHA, &paramsJSON, &j.WaterBridge,
		&resultJSON, &j.ErrorCode, &j.ErrorMessage, &j.Progress, &j.Attempts, &j.MaxAttempts,
		&j.SubmittedAt, &startedAt, &finishedAt, &j.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(paramsJSON, &j.Params); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrCodeSerialization, "failed to unmarshal job params")
	}
	if len(resultJSON) > 0 {
		var result engine.AnalysisResult
		if err := json.Unmarshal(resultJSON, &result); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrCodeSerialization, "failed to unmarshal job result")
		}
		j.Result = &result
	}
	if startedAt.Valid {
		t := startedAt.Time
		j.StartedAt = &t
	}
	if finishedAt.Valid {
		t := finishedAt.Time
		j.FinishedAt = &t
	}
	return &j, nil
}
