package analysis

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

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

const defaultSweepInterval = 10 * time.Second

// Worker executes queued analysis jobs.  Jobs normally arrive through the
// queue event handler; a periodic sweep over the pending table catches jobs
// whose events were lost.
type Worker struct {
	service   Service
	repo      job.Repository
	store     minio.StructureStore
	leases    rediscache.LeaseFactory
	publisher Publisher
	metrics   *prometheus.AppMetrics
	logger    logging.Logger
	cfg       config.WorkerConfig

	sweepInterval time.Duration
	sem           chan struct{}

	running atomic.Bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// WorkerDeps bundles the worker's collaborators.  Leases, publisher and
// metrics may be nil.
type WorkerDeps struct {
	Service   Service
	Repo      job.Repository
	Store     minio.StructureStore
	Leases    rediscache.LeaseFactory
	Publisher Publisher
	Metrics   *prometheus.AppMetrics
	Logger    logging.Logger
	WorkerCfg config.WorkerConfig
}

// NewWorker builds a Worker.
func NewWorker(deps WorkerDeps) *Worker {
	if deps.Logger == nil {
		deps.Logger = logging.NewNopLogger()
	}
	concurrency := deps.WorkerCfg.Concurrency
	if concurrency <= 0 {
		concurrency = 4
	}
	return &Worker{
		service:       deps.Service,
		repo:          deps.Repo,
		store:         deps.Store,
		leases:        deps.Leases,
		publisher:     deps.Publisher,
		metrics:       deps.Metrics,
		logger:        deps.Logger.Named("worker"),
		cfg:           deps.WorkerCfg,
		sweepInterval: defaultSweepInterval,
		sem:           make(chan struct{}, concurrency),
	}
}

// Start launches the pending sweep.  Queue events are delivered separately
// through HandleAnalysisRequested.
func (w *Worker) Start(ctx context.Context) error {
	if w.running.Swap(true) {
		return errors.New(errors.ErrCodeConflict, "worker already running")
	}
	ctx, cancel := context.WithCancel(ctx)
	w.cancel = cancel

	w.wg.Add(1)
	go w.sweepLoop(ctx)

	w.logger.Info("worker started",
		logging.Int("concurrency", cap(w.sem)),
		logging.Duration("sweep_interval", w.sweepInterval))
	return nil
}

// Close stops the sweep and waits for in-flight jobs.
func (w *Worker) Close() error {
	if !w.running.CompareAndSwap(true, false) {
		return nil
	}
	if w.cancel != nil {
		w.cancel()
	}
	w.wg.Wait()
	w.logger.Info("worker stopped")
	return nil
}

// HandleAnalysisRequested is the queue handler for submitted jobs.  It is
// wired as the consumer's MessageHandler for the requested topic.
func (w *Worker) HandleAnalysisRequested(ctx context.Context, msg *kafka.InboundMessage) error {
	env, err := kafka.DecodeEnvelope(msg.Value)
	if err != nil {
		return err
	}
	var payload kafka.AnalysisRequestedPayload
	if err := env.DecodePayload(&payload); err != nil {
		return err
	}
	jobID, err := job.ParseID(payload.JobID)
	if err != nil {
		return err
	}

	w.sem <- struct{}{}
	defer func() { <-w.sem }()
	return w.processPending(ctx, jobID)
}

// sweepLoop periodically claims pending jobs straight from the store, so a
// lost queue event only delays a job instead of stranding it.
func (w *Worker) sweepLoop(ctx context.Context) {
	defer w.wg.Done()

	ticker := time.NewTicker(w.sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.drainPending(ctx)
		}
	}
}

func (w *Worker) drainPending(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}
		j, err := w.repo.ClaimNextPending(ctx)
		if err != nil {
			if !errors.IsCode(err, errors.ErrCodeJobNotFound) {
				w.logger.Error("pending sweep claim failed", logging.Err(err))
			}
			return
		}

		w.sem <- struct{}{}
		w.wg.Add(1)
		go func(claimed *job.AnalysisJob) {
			defer w.wg.Done()
			defer func() { <-w.sem }()
			w.execute(ctx, claimed)
		}(j)
	}
}

// processPending moves a pending job to running under a lease and executes
// it.  Jobs already claimed elsewhere are skipped silently.
func (w *Worker) processPending(ctx context.Context, jobID uuid.UUID) error {
	if w.leases != nil {
		lease := w.leases.JobLease(jobID.String(), rediscache.WithKeepalive(true))
		ok, err := lease.TryAcquire(ctx)
		if err != nil {
			return err
		}
		if !ok {
			w.logger.Debug("job leased by another worker",
				logging.String("job_id", jobID.String()))
			return nil
		}
		defer func() {
			if err := lease.Release(context.WithoutCancel(ctx)); err != nil {
				w.logger.Warn("lease release failed", logging.Err(err))
			}
		}()
	}

	j, err := w.repo.FindByID(ctx, jobID)
	if err != nil {
		return err
	}
	if j.Status != job.StatusPending {
		// the sweep or a previous delivery got here first
		return nil
	}
	if err := j.Start(); err != nil {
		return err
	}
	if err := w.repo.Update(ctx, j); err != nil {
		return err
	}

	w.execute(ctx, j)
	return nil
}

// execute runs one job that is already in the running state and persists the
// outcome.  Engine failures are terminal for the attempt, not for the
// handler: the retry budget lives on the job row, so execute never returns
// an error to the queue layer.
func (w *Worker) execute(ctx context.Context, j *job.AnalysisJob) {
	if w.metrics != nil {
		w.metrics.ActiveWorkers.WithLabelValues().Inc()
		defer w.metrics.ActiveWorkers.WithLabelValues().Dec()
	}

	runCtx := ctx
	if w.cfg.AnalysisBudget > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, w.cfg.AnalysisBudget)
		defer cancel()
	}

	result, err := w.runAnalysis(runCtx, j)
	if err != nil {
		w.handleFailure(ctx, j, err)
		return
	}

	if err := j.Complete(result); err != nil {
		w.logger.Error("job completion transition failed",
			logging.String("job_id", j.ID.String()),
			logging.Err(err))
		return
	}
	if err := w.repo.Update(ctx, j); err != nil {
		w.logger.Error("failed to persist completed job",
			logging.String("job_id", j.ID.String()),
			logging.Err(err))
		return
	}

	w.recordProcessed("completed")
	w.publishCompleted(ctx, j)
	w.logger.Info("job completed",
		logging.String("job_id", j.ID.String()),
		logging.Int("binding_sites", result.Summary.BindingSites),
		logging.Int64("elapsed_ms", result.Summary.ElapsedMS))
}

func (w *Worker) runAnalysis(ctx context.Context, j *job.AnalysisJob) (*engine.AnalysisResult, error) {
	data, err := w.store.Get(ctx, j.StructureKey)
	if err != nil {
		return nil, err
	}
	return w.service.AnalyzeJob(ctx, j, string(data), w.progressRecorder(ctx, j))
}

// progressRecorder persists engine progress onto the job row so pollers see
// the running percentage.  Writes are throttled to stage boundaries and
// 10-point advances; a failed write only costs freshness.
func (w *Worker) progressRecorder(ctx context.Context, j *job.AnalysisJob) engine.ProgressFunc {
	lastPersisted := j.Progress
	return func(u engine.ProgressUpdate) {
		j.SetProgress(u.Percent)
		if j.Progress < 100 && j.Progress-lastPersisted < 10 {
			return
		}
		if err := w.repo.UpdateProgress(ctx, j.ID, j.Progress); err != nil {
			w.logger.Debug("progress persist failed",
				logging.String("job_id", j.ID.String()),
				logging.Err(err))
			return
		}
		lastPersisted = j.Progress
	}
}

func (w *Worker) handleFailure(ctx context.Context, j *job.AnalysisJob, cause error) {
	code := errors.GetCode(cause)
	if err := j.Fail(code.String(), cause.Error()); err != nil {
		w.logger.Error("job failure transition failed",
			logging.String("job_id", j.ID.String()),
			logging.Err(err))
		return
	}

	if j.CanRetry() {
		if err := j.Retry(); err == nil {
			if err := w.repo.Update(ctx, j); err != nil {
				w.logger.Error("failed to persist retried job", logging.Err(err))
				return
			}
			if w.metrics != nil {
				w.metrics.JobRetriesTotal.WithLabelValues(code.String()).Inc()
			}
			w.logger.Warn("job failed, scheduled for retry",
				logging.String("job_id", j.ID.String()),
				logging.Int("attempts", j.Attempts),
				logging.Err(cause))
			return
		}
	}

	if err := w.repo.Update(ctx, j); err != nil {
		w.logger.Error("failed to persist failed job", logging.Err(err))
		return
	}
	w.recordProcessed("failed")
	w.publishFailed(ctx, j)
	w.logger.Error("job failed permanently",
		logging.String("job_id", j.ID.String()),
		logging.Int("attempts", j.Attempts),
		logging.Err(cause))
}

func (w *Worker) recordProcessed(status string) {
	if w.metrics != nil {
		w.metrics.JobsProcessedTotal.WithLabelValues(status).Inc()
	}
}

func (w *Worker) publishCompleted(ctx context.Context, j *job.AnalysisJob) {
	if w.publisher == nil || j.Result == nil {
		return
	}
	interactions := j.Result.Summary.HydrophobicContacts +
		j.Result.Summary.HydrogenBonds +
		j.Result.Summary.WaterBridges
	w.publishEvent(ctx, kafka.TopicAnalysisCompleted, "analysis.completed", j.ID.String(),
		kafka.AnalysisCompletedPayload{
			JobID:        j.ID.String(),
			StructureSHA: j.StructureSHA,
			BindingSites: j.Result.Summary.BindingSites,
			Interactions: interactions,
			ElapsedMS:    j.Result.Summary.ElapsedMS,
			FinishedAt:   timeOrNow(j.FinishedAt),
		})
}

func (w *Worker) publishFailed(ctx context.Context, j *job.AnalysisJob) {
	if w.publisher == nil {
		return
	}
	w.publishEvent(ctx, kafka.TopicAnalysisFailed, "analysis.failed", j.ID.String(),
		kafka.AnalysisFailedPayload{
			JobID:        j.ID.String(),
			StructureSHA: j.StructureSHA,
			ErrorCode:    j.ErrorCode,
			ErrorMessage: j.ErrorMessage,
			Attempts:     j.Attempts,
			FinishedAt:   timeOrNow(j.FinishedAt),
		})
}

func (w *Worker) publishEvent(ctx context.Context, topic, eventType, key string, payload any) {
	env, err := kafka.NewEventEnvelope(eventType, "worker", payload)
	if err != nil {
		w.logger.Error("failed to build event", logging.Err(err))
		return
	}
	data, err := env.Encode()
	if err != nil {
		w.logger.Error("failed to encode event", logging.Err(err))
		return
	}
	if err := w.publisher.Publish(ctx, &kafka.Message{
		Topic: topic,
		Key:   []byte(key),
		Value: data,
	}); err != nil {
		w.logger.Error("failed to publish event",
			logging.String("topic", topic),
			logging.Err(err))
	}
}

func timeOrNow(t *time.Time) time.Time {
	if t != nil {
		return *t
	}
	return time.Now().UTC()
}
