package http

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/ligandscope/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/ligandscope/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/ligandscope/internal/interfaces/http/handlers"
	"github.com/turtacn/ligandscope/internal/interfaces/http/middleware"
)

func newTestRouterConfig(t *testing.T) RouterConfig {
	t.Helper()
	collector, err := prometheus.NewMetricsCollector(prometheus.CollectorConfig{
		Namespace: "ligandscope",
	}, logging.NewNopLogger())
	require.NoError(t, err)

	return RouterConfig{
		HealthHandler:    handlers.NewHealthHandler("test"),
		Mode:             gin.TestMode,
		Logging:          middleware.DefaultLoggingConfig(),
		Logger:           logging.NewNopLogger(),
		AppMetrics:       prometheus.NewAppMetrics(collector),
		MetricsCollector: collector,
	}
}

func TestRouter_HealthAndMetricsEndpoints(t *testing.T) {
	r := NewRouter(newTestRouterConfig(t))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRouter_RequestIDOnEveryResponse(t *testing.T) {
	r := NewRouter(newTestRouterConfig(t))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.NotEmpty(t, w.Header().Get(middleware.HeaderRequestID))
}

func TestRouter_UnknownRoute(t *testing.T) {
	r := NewRouter(newTestRouterConfig(t))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/nope", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRouter_NilHandlersAreSkipped(t *testing.T) {
	r := NewRouter(RouterConfig{Mode: gin.TestMode})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}
