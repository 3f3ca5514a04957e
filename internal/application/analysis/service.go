// Package analysis is the application-level service for molecular
// interaction analysis.  The CLI, the HTTP API and the background worker all
// run analyses through the same Service so that cutoff defaulting, caching
// and metrics behave identically on every entry path.
package analysis

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/turtacn/ligandscope/internal/config"
	"github.com/turtacn/ligandscope/internal/domain/job"
	"github.com/turtacn/ligandscope/internal/engine"
	rediscache "github.com/turtacn/ligandscope/internal/infrastructure/database/redis"
	"github.com/turtacn/ligandscope/internal/infrastructure/messaging/kafka"
	"github.com/turtacn/ligandscope/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/ligandscope/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/ligandscope/internal/infrastructure/storage/minio"
	"github.com/turtacn/ligandscope/pkg/errors"
)

// Publisher is the slice of the queue producer the service needs.
type Publisher interface {
	Publish(ctx context.Context, msg *kafka.Message) error
}

// Service runs analyses synchronously and manages asynchronous analysis
// jobs.
type Service interface {
	Analyze(ctx context.Context, structureText string, params engine.AnalysisParams, progress engine.ProgressFunc) (*engine.AnalysisResult, error)
	AnalyzeJob(ctx context.Context, j *job.AnalysisJob, structureText string, progress engine.ProgressFunc) (*engine.AnalysisResult, error)
	Submit(ctx context.Context, input *SubmitInput) (*Job, error)
	GetJob(ctx context.Context, id string) (*Job, error)
	GetResult(ctx context.Context, id string) (*engine.AnalysisResult, error)
	ListJobs(ctx context.Context, input *ListInput) (*ListResult, error)
}

// SubmitInput describes one asynchronous analysis submission.  Exactly one
// of StructureText and StructureKey must be set: inline text is stored to
// object storage first, a key refers to an already-uploaded structure.
type SubmitInput struct {
	StructureText string
	StructureKey  string
	Params        engine.AnalysisParams
	WaterBridge   *bool
	Source        string // "http" | "cli", for metrics
}

// ListInput selects a page of jobs.
type ListInput struct {
	Status   string
	Page     int
	PageSize int
}

// Job is the application-level job DTO.
type Job struct {
	ID           string                `json:"id"`
	Status       string                `json:"status"`
	StructureKey string                `json:"structureKey"`
	StructureSHA string                `json:"structureSha"`
	Params       engine.AnalysisParams `json:"params"`
	WaterBridge  bool                  `json:"waterBridge"`
	ErrorCode    string                `json:"errorCode,omitempty"`
	ErrorMessage string                `json:"errorMessage,omitempty"`
	Progress     int                   `json:"progress"`
	Attempts     int                   `json:"attempts"`
	MaxAttempts  int                   `json:"maxAttempts"`
	SubmittedAt  time.Time             `json:"submittedAt"`
	StartedAt    *time.Time            `json:"startedAt,omitempty"`
	FinishedAt   *time.Time            `json:"finishedAt,omitempty"`
}

// ListResult is one page of jobs.
type ListResult struct {
	Jobs       []*Job `json:"jobs"`
	Page       int    `json:"page"`
	PageSize   int    `json:"pageSize"`
	TotalCount int64  `json:"totalCount,omitempty"`
}

type service struct {
	repo      job.Repository
	cache     rediscache.Cache
	store     minio.StructureStore
	publisher Publisher
	metrics   *prometheus.AppMetrics
	logger    logging.Logger

	engineCfg config.EngineConfig
	workerCfg config.WorkerConfig
}

// Deps bundles the service's collaborators.  Cache, store, publisher and
// metrics may be nil; the service then skips the corresponding concern.
type Deps struct {
	Repo      job.Repository
	Cache     rediscache.Cache
	Store     minio.StructureStore
	Publisher Publisher
	Metrics   *prometheus.AppMetrics
	Logger    logging.Logger
	EngineCfg config.EngineConfig
	WorkerCfg config.WorkerConfig
}

// NewService builds the analysis application service.
func NewService(deps Deps) Service {
	if deps.Logger == nil {
		deps.Logger = logging.NewNopLogger()
	}
	return &service{
		repo:      deps.Repo,
		cache:     deps.Cache,
		store:     deps.Store,
		publisher: deps.Publisher,
		metrics:   deps.Metrics,
		logger:    deps.Logger.Named("analysis"),
		engineCfg: deps.EngineCfg,
		workerCfg: deps.WorkerCfg,
	}
}

// StructureSHA returns the hex SHA-256 of the structure text, the identity
// under which structures are stored and results are cached.
func StructureSHA(structureText string) string {
	sum := sha256.Sum256([]byte(structureText))
	return hex.EncodeToString(sum[:])
}

// resultCacheKey folds the structure identity and every analysis-relevant
// knob into one key, so a cutoff change can never serve a stale result.
func resultCacheKey(structureSHA string, params engine.AnalysisParams, waterBridge bool) string {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s|%s|%t", structureSHA, params.String(), waterBridge)))
	return "result:" + hex.EncodeToString(sum[:])
}

func (s *service) waterBridgeEnabled(override *bool) bool {
	if override != nil {
		return *override
	}
	return s.engineCfg.WaterBridgeEnabled
}

func (s *service) checkSize(structureText string) error {
	if max := s.engineCfg.MaxStructureBytes; max > 0 && int64(len(structureText)) > max {
		return errors.Newf(errors.ErrCodeStructureTooLarge,
			"structure text is %d bytes, limit is %d", len(structureText), max)
	}
	return nil
}

func (s *service) Analyze(ctx context.Context, structureText string, params engine.AnalysisParams, progress engine.ProgressFunc) (*engine.AnalysisResult, error) {
	return s.analyze(ctx, structureText, params, s.engineCfg.WaterBridgeEnabled, progress)
}

// AnalyzeJob runs the engine with the exact parameters recorded on a queued
// job, so a retried job always reruns with what was submitted.
func (s *service) AnalyzeJob(ctx context.Context, j *job.AnalysisJob, structureText string, progress engine.ProgressFunc) (*engine.AnalysisResult, error) {
	return s.analyze(ctx, structureText, j.Params, j.WaterBridge, progress)
}

func (s *service) analyze(ctx context.Context, structureText string, params engine.AnalysisParams, waterBridge bool, progress engine.ProgressFunc) (*engine.AnalysisResult, error) {
	if err := s.checkSize(structureText); err != nil {
		return nil, err
	}

	params.ApplyDefaults()
	if err := params.Validate(); err != nil {
		return nil, err
	}

	cacheKey := resultCacheKey(StructureSHA(structureText), params, waterBridge)
	if s.cache != nil {
		var cached engine.AnalysisResult
		err := s.cache.Get(ctx, cacheKey, &cached)
		switch {
		case err == nil:
			s.recordCacheAccess(true)
			s.logger.Debug("analysis served from cache")
			return &cached, nil
		case errors.Is(err, rediscache.ErrCacheMiss):
			s.recordCacheAccess(false)
		default:
			// a cache outage must not fail the analysis
			s.logger.Warn("result cache read failed", logging.Err(err))
		}
	}

	opts := []engine.Option{engine.WithWaterBridge(waterBridge)}
	if s.engineCfg.CellSize > 0 {
		opts = append(opts, engine.WithCellSize(s.engineCfg.CellSize))
	}
	analyzer, err := engine.NewAnalyzer(params, s.logger, opts...)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	result, err := analyzer.Analyze(ctx, structureText, progress)
	elapsed := time.Since(start)

	if err != nil {
		s.recordAnalysis(false, elapsed, len(structureText), nil)
		if s.metrics != nil {
			s.metrics.AnalysisStageErrors.WithLabelValues(errors.GetCode(err).String()).Inc()
		}
		return nil, err
	}

	s.recordAnalysis(true, elapsed, len(structureText), result)

	if s.cache != nil {
		if err := s.cache.Set(ctx, cacheKey, result, 0); err != nil {
			s.logger.Warn("result cache write failed", logging.Err(err))
		}
	}
	return result, nil
}

func (s *service) Submit(ctx context.Context, input *SubmitInput) (*Job, error) {
	if input == nil {
		return nil, errors.New(errors.ErrCodeValidation, "submit input required")
	}
	if (input.StructureText == "") == (input.StructureKey == "") {
		return nil, errors.New(errors.ErrCodeValidation,
			"exactly one of structure text and structure key must be given")
	}

	var structureKey, structureSHA string
	switch {
	case input.StructureText != "":
		if err := s.checkSize(input.StructureText); err != nil {
			return nil, err
		}
		structureSHA = StructureSHA(input.StructureText)
		structureKey = minio.StructureKey(structureSHA)

		exists, err := s.store.Exists(ctx, structureKey)
		if err != nil {
			return nil, err
		}
		if !exists {
			if _, err := s.store.Put(ctx, structureKey, []byte(input.StructureText), nil); err != nil {
				return nil, err
			}
		}
	default:
		data, err := s.store.Get(ctx, input.StructureKey)
		if err != nil {
			return nil, err
		}
		if err := s.checkSize(string(data)); err != nil {
			return nil, err
		}
		structureKey = input.StructureKey
		structureSHA = StructureSHA(string(data))
	}

	j, err := job.NewAnalysisJob(structureKey, structureSHA, input.Params,
		s.waterBridgeEnabled(input.WaterBridge), s.workerCfg.MaxRetries)
	if err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, j); err != nil {
		return nil, err
	}

	if err := s.publishRequested(ctx, j); err != nil {
		// the job row is already persisted; the worker's pending sweep
		// will pick it up even if this event never arrives
		s.logger.Error("failed to publish job event",
			logging.String("job_id", j.ID.String()),
			logging.Err(err))
	}

	if s.metrics != nil {
		source := input.Source
		if source == "" {
			source = "http"
		}
		s.metrics.JobsSubmittedTotal.WithLabelValues(source).Inc()
	}

	s.logger.Info("analysis job submitted",
		logging.String("job_id", j.ID.String()),
		logging.String("structure_key", structureKey))
	return jobToDTO(j), nil
}

func (s *service) publishRequested(ctx context.Context, j *job.AnalysisJob) error {
	env, err := kafka.NewEventEnvelope("analysis.requested", "apiserver", kafka.AnalysisRequestedPayload{
		JobID:        j.ID.String(),
		StructureKey: j.StructureKey,
		StructureSHA: j.StructureSHA,
		SubmittedAt:  j.SubmittedAt,
	})
	if err != nil {
		return err
	}
	data, err := env.Encode()
	if err != nil {
		return err
	}
	if err := s.publisher.Publish(ctx, &kafka.Message{
		Topic: kafka.TopicAnalysisRequested,
		Key:   []byte(j.ID.String()),
		Value: data,
	}); err != nil {
		return errors.Wrap(err, errors.ErrCodeJobEnqueue, "failed to enqueue analysis job")
	}
	return nil
}

func (s *service) GetJob(ctx context.Context, id string) (*Job, error) {
	j, err := s.findJob(ctx, id)
	if err != nil {
		return nil, err
	}
	return jobToDTO(j), nil
}

func (s *service) GetResult(ctx context.Context, id string) (*engine.AnalysisResult, error) {
	j, err := s.findJob(ctx, id)
	if err != nil {
		return nil, err
	}
	switch j.Status {
	case job.StatusCompleted:
		return j.Result, nil
	case job.StatusFailed:
		return nil, errors.New(errors.ErrorCode(j.ErrorCode), j.ErrorMessage)
	default:
		return nil, errors.Newf(errors.ErrCodeJobInvalidState,
			"job %s is still %s", id, j.Status)
	}
}

func (s *service) ListJobs(ctx context.Context, input *ListInput) (*ListResult, error) {
	if input == nil {
		input = &ListInput{}
	}
	if input.Page <= 0 {
		input.Page = 1
	}
	if input.PageSize <= 0 {
		input.PageSize = 20
	}
	if input.PageSize > 100 {
		input.PageSize = 100
	}
	if input.Status != "" {
		if _, err := job.ParseStatus(input.Status); err != nil {
			return nil, err
		}
	}

	offset := (input.Page - 1) * input.PageSize
	jobs, err := s.repo.List(ctx, job.Status(input.Status), input.PageSize, offset)
	if err != nil {
		return nil, err
	}

	dtos := make([]*Job, len(jobs))
	for i, j := range jobs {
		dtos[i] = jobToDTO(j)
	}
	return &ListResult{
		Jobs:     dtos,
		Page:     input.Page,
		PageSize: input.PageSize,
	}, nil
}

func (s *service) findJob(ctx context.Context, id string) (*job.AnalysisJob, error) {
	jobID, err := job.ParseID(id)
	if err != nil {
		return nil, err
	}
	return s.repo.FindByID(ctx, jobID)
}

func (s *service) recordCacheAccess(hit bool) {
	if s.metrics != nil {
		prometheus.RecordCacheAccess(s.metrics, "result", hit)
	}
}

func (s *service) recordAnalysis(success bool, elapsed time.Duration, structureBytes int, result *engine.AnalysisResult) {
	if s.metrics == nil {
		return
	}
	sites := 0
	var byFamily map[string]int
	if result != nil {
		sites = result.Summary.BindingSites
		byFamily = map[string]int{
			string(engine.FamilyHydrophobic):  result.Summary.HydrophobicContacts,
			string(engine.FamilyHydrogenBond): result.Summary.HydrogenBonds,
			string(engine.FamilyWaterBridge):  result.Summary.WaterBridges,
		}
	}
	prometheus.RecordAnalysis(s.metrics, success, elapsed, structureBytes, sites, byFamily)
}

func jobToDTO(j *job.AnalysisJob) *Job {
	if j == nil {
		return nil
	}
	return &Job{
		ID:           j.ID.String(),
		Status:       string(j.Status),
		StructureKey: j.StructureKey,
		StructureSHA: j.StructureSHA,
		Params:       j.Params,
		WaterBridge:  j.WaterBridge,
		ErrorCode:    j.ErrorCode,
		ErrorMessage: j.ErrorMessage,
		Progress:     j.Progress,
		Attempts:     j.Attempts,
		MaxAttempts:  j.MaxAttempts,
		SubmittedAt:  j.SubmittedAt,
		StartedAt:    j.StartedAt,
		FinishedAt:   j.FinishedAt,
	}
}
