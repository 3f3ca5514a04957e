package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/turtacn/ligandscope/internal/infrastructure/monitoring/prometheus"
)

// Metrics records per-request counters, latency histograms and the active
// request gauge.  The route template (/api/v1/analyses/:id) is used as the
// path label so IDs cannot explode the cardinality.
func Metrics(metrics *prometheus.AppMetrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		path := c.FullPath()
		if path == "" {
			// unmatched routes fold into one label
			path = "unmatched"
		}
		method := c.Request.Method

		metrics.HTTPActiveRequests.WithLabelValues(method, path).Inc()
		start := time.Now()

		c.Next()

		metrics.HTTPActiveRequests.WithLabelValues(method, path).Dec()
		prometheus.RecordHTTPRequest(metrics, method, path, c.Writer.Status(), time.Since(start))
	}
}
