package prometheus

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/ligandscope/internal/infrastructure/monitoring/logging"
)

func newTestCollector(t *testing.T) MetricsCollector {
	t.Helper()
	cfg := CollectorConfig{
		Namespace: "ligandscope",
		Subsystem: "test",
	}
	c, err := NewMetricsCollector(cfg, logging.NewNopLogger())
	require.NoError(t, err)
	return c
}

func scrapeMetrics(t *testing.T, collector MetricsCollector) string {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	w := httptest.NewRecorder()
	collector.Handler().ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	return w.Body.String()
}

func TestNewMetricsCollector_EmptyNamespace(t *testing.T) {
	_, err := NewMetricsCollector(CollectorConfig{}, logging.NewNopLogger())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "namespace")
}

func TestCollector_CounterRoundTrip(t *testing.T) {
	c := newTestCollector(t)
	vec := c.RegisterCounter("events_total", "test events", "kind")
	vec.WithLabelValues("a").Inc()
	vec.WithLabelValues("a").Add(2)
	vec.WithLabelValues("b").Inc()

	out := scrapeMetrics(t, c)
	assert.Contains(t, out, `ligandscope_test_events_total{kind="a"} 3`)
	assert.Contains(t, out, `ligandscope_test_events_total{kind="b"} 1`)
}

func TestCollector_GaugeRoundTrip(t *testing.T) {
	c := newTestCollector(t)
	g := c.RegisterGauge("depth", "test depth").WithLabelValues()
	g.Set(5)
	g.Inc()
	g.Dec()
	g.Add(2)
	g.Sub(1)

	out := scrapeMetrics(t, c)
	assert.Contains(t, out, "ligandscope_test_depth 6")
}

func TestCollector_HistogramRoundTrip(t *testing.T) {
	c := newTestCollector(t)
	h := c.RegisterHistogram("latency_seconds", "test latency", []float64{0.1, 1, 10}, "op")
	h.WithLabelValues("run").Observe(0.5)
	h.WithLabelValues("run").Observe(5)

	out := scrapeMetrics(t, c)
	assert.Contains(t, out, `ligandscope_test_latency_seconds_count{op="run"} 2`)
	assert.Contains(t, out, `ligandscope_test_latency_seconds_bucket{op="run",le="1"} 1`)
}

func TestCollector_DuplicateRegistrationReturnsSameMetric(t *testing.T) {
	c := newTestCollector(t)
	first := c.RegisterCounter("dups_total", "dup test")
	second := c.RegisterCounter("dups_total", "dup test")

	first.WithLabelValues().Inc()
	second.WithLabelValues().Inc()

	out := scrapeMetrics(t, c)
	assert.Contains(t, out, "ligandscope_test_dups_total 2")
}

func TestCollector_ConflictingRegistrationYieldsNoop(t *testing.T) {
	c := newTestCollector(t)
	c.RegisterCounter("mixed", "as counter")
	// Same name, different type: the gauge registration fails and the
	// caller gets a working no-op instead of a panic.
	g := c.RegisterGauge("mixed", "as gauge")
	assert.NotPanics(t, func() { g.WithLabelValues().Set(1) })
}

func TestTimer_ObserveDuration(t *testing.T) {
	c := newTestCollector(t)
	h := c.RegisterHistogram("timed_seconds", "timer test", []float64{0.001, 1}).WithLabelValues()

	timer := NewTimer(h)
	time.Sleep(2 * time.Millisecond)
	timer.ObserveDuration()

	out := scrapeMetrics(t, c)
	assert.Contains(t, out, "ligandscope_test_timed_seconds_count 1")
}

func TestTimer_NilHistogram(t *testing.T) {
	timer := NewTimer(nil)
	assert.NotPanics(t, timer.ObserveDuration)
}
