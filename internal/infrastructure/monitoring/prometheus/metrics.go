package prometheus

import (
	"strconv"
	"time"
)

// AppMetrics holds every application metric of the service, grouped by
// layer.  All fields are registered once at startup through NewAppMetrics
// and are safe for concurrent use.
type AppMetrics struct {
	// HTTP layer
	HTTPRequestsTotal   CounterVec
	HTTPRequestDuration HistogramVec
	HTTPActiveRequests  GaugeVec

	// Analysis engine
	AnalysesTotal       CounterVec
	AnalysisDuration    HistogramVec
	StructureBytes      HistogramVec
	BindingSitesPerRun  HistogramVec
	InteractionsTotal   CounterVec
	AnalysisStageErrors CounterVec

	// Job queue
	JobsSubmittedTotal CounterVec
	JobsProcessedTotal CounterVec
	JobRetriesTotal    CounterVec
	ActiveWorkers      GaugeVec

	// Infrastructure
	DBQueryDuration  HistogramVec
	CacheHitsTotal   CounterVec
	CacheMissesTotal CounterVec

	// System health
	HealthCheckStatus GaugeVec
	ErrorsTotal       CounterVec
}

// Default bucket sets.
var (
	DefaultHTTPDurationBuckets     = []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10}
	DefaultAnalysisDurationBuckets = []float64{.01, .05, .1, .5, 1, 5, 10, 30, 60, 300}
	DefaultStructureSizeBuckets    = []float64{1e3, 1e4, 1e5, 1e6, 1e7, 1e8}
	DefaultSiteCountBuckets        = []float64{0, 1, 2, 3, 5, 10, 20, 50}
	DefaultDBDurationBuckets       = []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 5}
)

// NewAppMetrics registers all application metrics and returns the populated
// struct.
func NewAppMetrics(collector MetricsCollector) *AppMetrics {
	m := &AppMetrics{}

	// HTTP
	m.HTTPRequestsTotal = collector.RegisterCounter("http_requests_total", "Total HTTP requests", "method", "path", "status_code")
	m.HTTPRequestDuration = collector.RegisterHistogram("http_request_duration_seconds", "HTTP request duration", DefaultHTTPDurationBuckets, "method", "path")
	m.HTTPActiveRequests = collector.RegisterGauge("http_active_requests", "Active HTTP requests", "method", "path")

	// Analysis engine
	m.AnalysesTotal = collector.RegisterCounter("analyses_total", "Analyses run", "status")
	m.AnalysisDuration = collector.RegisterHistogram("analysis_duration_seconds", "Full analysis pipeline duration", DefaultAnalysisDurationBuckets, "status")
	m.StructureBytes = collector.RegisterHistogram("structure_bytes", "Input structure size", DefaultStructureSizeBuckets)
	m.BindingSitesPerRun = collector.RegisterHistogram("binding_sites_per_analysis", "Binding sites found per analysis", DefaultSiteCountBuckets)
	m.InteractionsTotal = collector.RegisterCounter("interactions_total", "Classified interactions", "family")
	m.AnalysisStageErrors = collector.RegisterCounter("analysis_stage_errors_total", "Analysis failures by error code", "code")

	// Job queue
	m.JobsSubmittedTotal = collector.RegisterCounter("jobs_submitted_total", "Analysis jobs submitted", "source")
	m.JobsProcessedTotal = collector.RegisterCounter("jobs_processed_total", "Analysis jobs processed", "status")
	m.JobRetriesTotal = collector.RegisterCounter("job_retries_total", "Analysis job retries", "reason")
	m.ActiveWorkers = collector.RegisterGauge("active_workers", "Workers currently processing jobs")

	// Infrastructure
	m.DBQueryDuration = collector.RegisterHistogram("db_query_duration_seconds", "Database query duration", DefaultDBDurationBuckets, "operation")
	m.CacheHitsTotal = collector.RegisterCounter("cache_hits_total", "Cache hits", "cache")
	m.CacheMissesTotal = collector.RegisterCounter("cache_misses_total", "Cache misses", "cache")

	// System health
	m.HealthCheckStatus = collector.RegisterGauge("health_check_status", "Health check status (1=up, 0=down)", "component")
	m.ErrorsTotal = collector.RegisterCounter("errors_total", "Total errors", "component", "error_type")

	return m
}

// Recording helpers.

func RecordHTTPRequest(metrics *AppMetrics, method, path string, statusCode int, duration time.Duration) {
	status := strconv.Itoa(statusCode)
	metrics.HTTPRequestsTotal.WithLabelValues(method, path, status).Inc()
	metrics.HTTPRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// RecordAnalysis observes one completed analysis invocation: its outcome,
// duration, input size, and per-family interaction counts.
func RecordAnalysis(metrics *AppMetrics, success bool, duration time.Duration, structureBytes int, sites int, byFamily map[string]int) {
	status := "success"
	if !success {
		status = "failure"
	}
	metrics.AnalysesTotal.WithLabelValues(status).Inc()
	metrics.AnalysisDuration.WithLabelValues(status).Observe(duration.Seconds())
	metrics.StructureBytes.WithLabelValues().Observe(float64(structureBytes))
	if success {
		metrics.BindingSitesPerRun.WithLabelValues().Observe(float64(sites))
		for family, n := range byFamily {
			metrics.InteractionsTotal.WithLabelValues(family).Add(float64(n))
		}
	}
}

func RecordDBQuery(metrics *AppMetrics, operation string, duration time.Duration, err error) {
	metrics.DBQueryDuration.WithLabelValues(operation).Observe(duration.Seconds())
	if err != nil {
		metrics.ErrorsTotal.WithLabelValues("postgres", "query_error").Inc()
	}
}

func RecordCacheAccess(metrics *AppMetrics, cache string, hit bool) {
	if hit {
		metrics.CacheHitsTotal.WithLabelValues(cache).Inc()
	} else {
		metrics.CacheMissesTotal.WithLabelValues(cache).Inc()
	}
}
