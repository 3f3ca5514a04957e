// API server entry point for ligandscope.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/turtacn/ligandscope/internal/application/analysis"
	"github.com/turtacn/ligandscope/internal/config"
	"github.com/turtacn/ligandscope/internal/infrastructure/database/postgres"
	"github.com/turtacn/ligandscope/internal/infrastructure/database/postgres/repositories"
	"github.com/turtacn/ligandscope/internal/infrastructure/database/redis"
	"github.com/turtacn/ligandscope/internal/infrastructure/messaging/kafka"
	"github.com/turtacn/ligandscope/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/ligandscope/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/ligandscope/internal/infrastructure/storage/minio"
	httpserver "github.com/turtacn/ligandscope/internal/interfaces/http"
	"github.com/turtacn/ligandscope/internal/interfaces/http/handlers"
	"github.com/turtacn/ligandscope/internal/interfaces/http/middleware"
)

// version is injected at build time via -ldflags.
var version = "dev"

func main() {
	configPath := flag.String("config", "", "path to configuration file")
	skipMigrations := flag.Bool("skip-migrations", false, "do not run database migrations on startup")
	flag.Parse()

	if err := run(*configPath, *skipMigrations); err != nil {
		fmt.Fprintf(os.Stderr, "apiserver: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath string, skipMigrations bool) error {
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
	logger = logger.Named("apiserver")
	logger.Info("starting", logging.String("version", version))

	collector, err := prometheus.NewMetricsCollector(prometheus.CollectorConfig{
		Namespace:            "ligandscope",
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

	if !skipMigrations {
		if err := postgres.RunMigrations(postgres.BuildDSN(cfg.Database)); err != nil {
			return fmt.Errorf("run migrations: %w", err)
		}
		logger.Info("migrations applied")
	}
	repo := repositories.NewAnalysisJobRepository(conn, logger)

	redisClient, err := redis.NewClient(cfg.Redis, logger)
	if err != nil {
		return fmt.Errorf("connect redis: %w", err)
	}
	defer redisClient.Close()
	cache := redis.NewCache(redisClient, logger)

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

	analysisHandler := handlers.NewAnalysisHandler(service, logger)
	healthHandler := handlers.NewHealthHandler(version,
		&postgresHealthAdapter{conn: conn},
		&redisHealthAdapter{client: redisClient},
		&minioHealthAdapter{client: minioClient},
	)

	router := httpserver.NewRouter(httpserver.RouterConfig{
		AnalysisHandler:  analysisHandler,
		HealthHandler:    healthHandler,
		Mode:             cfg.Server.Mode,
		MaxBodySize:      cfg.Server.MaxBodySize,
		Logging:          middleware.DefaultLoggingConfig(),
		Logger:           logger,
		AppMetrics:       metrics,
		MetricsCollector: collector,
	})

	srv := httpserver.NewServer(cfg.Server, router, logger)

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http server listening", logging.Int("port", cfg.Server.Port))
		errCh <- srv.Start()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		logger.Info("shutdown signal received", logging.String("signal", sig.String()))
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Stop(ctx); err != nil {
		logger.Error("http server shutdown", logging.Err(err))
	}
	logger.Info("stopped")
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
