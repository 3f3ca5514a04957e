// Package http wires the gin route tree and the HTTP server for the
// analysis API.
package http

import (
	"github.com/gin-gonic/gin"

	"github.com/turtacn/ligandscope/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/ligandscope/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/ligandscope/internal/interfaces/http/handlers"
	"github.com/turtacn/ligandscope/internal/interfaces/http/middleware"
)

// RouterConfig aggregates the handler and middleware dependencies of the
// route tree.
type RouterConfig struct {
	AnalysisHandler *handlers.AnalysisHandler
	HealthHandler   *handlers.HealthHandler

	// Mode is the gin mode: debug, release or test.
	Mode string

	// MaxBodySize caps request bodies in bytes; zero means no limit.
	MaxBodySize int64

	CORS    *middleware.CORSConfig
	Logging middleware.LoggingConfig

	Logger           logging.Logger
	AppMetrics       *prometheus.AppMetrics
	MetricsCollector prometheus.MetricsCollector
}

// NewRouter builds the complete route tree: global middleware, the public
// probes and metrics endpoint, and the versioned API group.
func NewRouter(cfg RouterConfig) *gin.Engine {
	if cfg.Mode != "" {
		gin.SetMode(cfg.Mode)
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.NewNopLogger()
	}

	r := gin.New()

	r.Use(middleware.RequestID())
	r.Use(middleware.Recovery(cfg.Logger))
	if cfg.MaxBodySize > 0 {
		r.Use(middleware.BodyLimit(cfg.MaxBodySize))
	}
	r.Use(middleware.RequestLogging(cfg.Logger, cfg.Logging))
	if cfg.CORS != nil {
		r.Use(middleware.CORS(*cfg.CORS))
	}
	if cfg.AppMetrics != nil {
		r.Use(middleware.Metrics(cfg.AppMetrics))
	}

	if cfg.HealthHandler != nil {
		cfg.HealthHandler.RegisterRoutes(r)
	}
	if cfg.MetricsCollector != nil {
		r.GET("/metrics", gin.WrapH(cfg.MetricsCollector.Handler()))
	}

	api := r.Group("/api/v1")
	if cfg.AnalysisHandler != nil {
		cfg.AnalysisHandler.RegisterRoutes(api)
	}

	return r
}
