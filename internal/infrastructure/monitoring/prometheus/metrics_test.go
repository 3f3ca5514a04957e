package prometheus

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func newTestAppMetrics(t *testing.T) (*AppMetrics, MetricsCollector) {
	t.Helper()
	c := newTestCollector(t)
	return NewAppMetrics(c), c
}

func TestNewAppMetrics_AllMetricsRegistered(t *testing.T) {
	m, c := newTestAppMetrics(t)
	assert.NotNil(t, m.HTTPRequestsTotal)
	assert.NotNil(t, m.AnalysesTotal)
	assert.NotNil(t, m.InteractionsTotal)
	assert.NotNil(t, m.ActiveWorkers)

	// Counters surface only after first use; exercise a few and scrape.
	m.AnalysesTotal.WithLabelValues("success").Inc()
	m.InteractionsTotal.WithLabelValues("hydrogen-bond").Add(3)
	m.ActiveWorkers.WithLabelValues().Set(2)

	out := scrapeMetrics(t, c)
	assert.Contains(t, out, `ligandscope_test_analyses_total{status="success"} 1`)
	assert.Contains(t, out, `ligandscope_test_interactions_total{family="hydrogen-bond"} 3`)
	assert.Contains(t, out, "ligandscope_test_active_workers 2")
}

func TestRecordHTTPRequest(t *testing.T) {
	m, c := newTestAppMetrics(t)
	RecordHTTPRequest(m, "POST", "/api/v1/analyses", 201, 50*time.Millisecond)

	out := scrapeMetrics(t, c)
	assert.Contains(t, out, `ligandscope_test_http_requests_total{method="POST",path="/api/v1/analyses",status_code="201"} 1`)
	assert.Contains(t, out, `ligandscope_test_http_request_duration_seconds_count{method="POST",path="/api/v1/analyses"} 1`)
}

func TestRecordAnalysis_Success(t *testing.T) {
	m, c := newTestAppMetrics(t)
	RecordAnalysis(m, true, 120*time.Millisecond, 4096, 2, map[string]int{
		"hydrophobic":   3,
		"hydrogen-bond": 1,
	})

	out := scrapeMetrics(t, c)
	assert.Contains(t, out, `ligandscope_test_analyses_total{status="success"} 1`)
	assert.Contains(t, out, "ligandscope_test_binding_sites_per_analysis_count 1")
	assert.Contains(t, out, `ligandscope_test_interactions_total{family="hydrophobic"} 3`)
	assert.Contains(t, out, `ligandscope_test_interactions_total{family="hydrogen-bond"} 1`)
}

func TestRecordAnalysis_FailureSkipsResultMetrics(t *testing.T) {
	m, c := newTestAppMetrics(t)
	RecordAnalysis(m, false, 10*time.Millisecond, 512, 0, nil)

	out := scrapeMetrics(t, c)
	assert.Contains(t, out, `ligandscope_test_analyses_total{status="failure"} 1`)
	assert.Contains(t, out, "ligandscope_test_structure_bytes_count 1")
	assert.NotContains(t, out, "ligandscope_test_binding_sites_per_analysis_count 1")
}

func TestRecordDBQuery(t *testing.T) {
	m, c := newTestAppMetrics(t)
	RecordDBQuery(m, "insert_job", 2*time.Millisecond, nil)
	RecordDBQuery(m, "insert_job", 2*time.Millisecond, errors.New("boom"))

	out := scrapeMetrics(t, c)
	assert.Contains(t, out, `ligandscope_test_db_query_duration_seconds_count{operation="insert_job"} 2`)
	assert.Contains(t, out, `ligandscope_test_errors_total{component="postgres",error_type="query_error"} 1`)
}

func TestRecordCacheAccess(t *testing.T) {
	m, c := newTestAppMetrics(t)
	RecordCacheAccess(m, "results", true)
	RecordCacheAccess(m, "results", true)
	RecordCacheAccess(m, "results", false)

	out := scrapeMetrics(t, c)
	assert.Contains(t, out, `ligandscope_test_cache_hits_total{cache="results"} 2`)
	assert.Contains(t, out, `ligandscope_test_cache_misses_total{cache="results"} 1`)
}
