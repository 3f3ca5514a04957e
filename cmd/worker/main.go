// Analysis worker entry point for ligandscope.  It consumes analysis
// requests from Kafka and also sweeps the job table for pending work that
// never arrived through the queue.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/turtacn/ligandscope/internal/application/analysis"
	"github.com/turtacn/ligandscope/internal/config"
	"github.com/turtacn/ligandscope/internal/infrastructure/database/postgres"
	"github.com/turtacn/ligandscope/internal/infrastructure/database/postgres/repositories"
	"github.com/turtacn/ligandscope/internal/infrastructure/database/redis"
	"github.com/turtacn/ligandscope/internal/infrastructure/messaging/kafka"
	"github.com/turtacn/ligandscope/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/ligandscope/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/ligandscope/internal/infrastructure/storage/minio"
)

// version is injected at build time via -ldflags.
var version = "dev"

const closeTimeout = 30 * time.Second

func main() {
	configPath := flag.String("config", "", "path to configuration file")
	flag.Parse()

	if err := run(*configPath); err != nil {
		fmt.Fprintf(os.Stderr, "worker: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, err := logging.NewLogger(logging.LogConfig{
		Level:       cfg.Log.Level,
		Format:      cfg.Log.Format,
		OutputPaths: outputPaths(cfg.Log.Output),
	})
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	logger = logger.Named("worker")
	logger.Info("starting",
		logging.String("version", version),
		logging.Int("concurrency", cfg.Worker.Concurrency))

	collector, err := prometheus.NewMetricsCollector(prometheus.CollectorConfig{
		Namespace:            "ligandscope",
		Subsystem:            "worker",
		EnableProcessMetrics: true,
		EnableGoMetrics:      true,
	}, logger)
	if err != nil {
		return fmt.Errorf("init metrics: %w", err)
	}
	metrics := prometheus.NewAppMetrics(collector)

	conn, err := postgres.NewConnection(cfg.Database, logger)
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	defer conn.Close()
	repo := repositories.NewAnalysisJobRepository(conn, logger)

	redisClient, err := redis.NewClient(cfg.Redis, logger)
	if err != nil {
		return fmt.Errorf("connect redis: %w", err)
	}
	defer redisClient.Close()
	cache := redis.NewCache(redisClient, logger)
	leases := redis.NewLeaseFactory(redisClient, logger)

	minioClient, err := minio.NewClient(cfg.MinIO, logger)
	if err != nil {
		return fmt.Errorf("connect minio: %w", err)
	}
	defer minioClient.Close()
	store := minio.NewStructureStore(minioClient, logger)

	producer, err := kafka.NewProducerFromConfig(cfg.Kafka, logger)
	if err != nil {
		return fmt.Errorf("init kafka producer: %w", err)
	}
	defer producer.Close()

	service := analysis.NewService(analysis.Deps{
		Repo:      repo,
		Cache:     cache,
		Store:     store,
		Publisher: producer,
		Metrics:   metrics,
		Logger:    logger,
		EngineCfg: cfg.Engine,
		WorkerCfg: cfg.Worker,
	})

	worker := analysis.NewWorker(analysis.WorkerDeps{
		Service:   service,
		Repo:      repo,
		Store:     store,
		Leases:    leases,
		Publisher: producer,
		Metrics:   metrics,
		Logger:    logger,
		WorkerCfg: cfg.Worker,
	})

	consumer, err := kafka.NewConsumerFromConfig(cfg.Kafka, []string{kafka.TopicAnalysisRequested}, logger)
	if err != nil {
		return fmt.Errorf("init kafka consumer: %w", err)
	}
	consumer.Subscribe(kafka.TopicAnalysisRequested, worker.HandleAnalysisRequested)

	ctx := context.Background()
	if err := worker.Start(ctx); err != nil {
		return fmt.Errorf("start worker: %w", err)
	}
	if err := consumer.Start(ctx); err != nil {
		_ = worker.Close()
		return fmt.Errorf("start consumer: %w", err)
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	logger.Info("shutdown signal received", logging.String("signal", sig.String()))

	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := consumer.Close(); err != nil {
			logger.Error("consumer close", logging.Err(err))
		}
		if err := worker.Close(); err != nil {
			logger.Error("worker close", logging.Err(err))
		}
	}()

	select {
	case <-done:
		logger.Info("stopped")
	case <-time.After(closeTimeout):
		logger.Warn("shutdown timed out", logging.Duration("timeout", closeTimeout))
	}
	return nil
}

func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.Load(path)
	}
	return config.LoadFromEnv()
}

func outputPaths(output string) []string {
	if output == "" {
		return nil
	}
	return []string{output}
}
