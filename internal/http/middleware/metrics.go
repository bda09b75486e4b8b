package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

// unmatchedPath is the route label of requests no route matched. Raw URLs
// are never labels: scanners would blow up cardinality and one-click paths
// carry tokens.
const unmatchedPath = "unmatched"

var (
	httpReqs = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "claims",
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "HTTP requests by method, route and status.",
	}, []string{"method", "path", "status"})

	httpLat = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "claims",
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "HTTP request latency by method and route.",
		Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
	}, []string{"method", "path"})

	httpInflight = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "claims",
		Subsystem: "http",
		Name:      "requests_inflight",
		Help:      "Requests currently being served.",
	})

	// Attachment downloads dominate the upper buckets.
	httpRespSize = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "claims",
		Subsystem: "http",
		Name:      "response_size_bytes",
		Help:      "HTTP response body size by method and route.",
		Buckets:   prometheus.ExponentialBuckets(256, 4, 9),
	}, []string{"method", "path"})
)

func init() {
	prometheus.MustRegister(httpReqs, httpLat, httpInflight, httpRespSize)
}

// Metrics records request count, latency, in-flight gauge and body size per
// registered route. Pair it with a promhttp handler on /metrics.
func Metrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		httpInflight.Inc()
		start := time.Now()
		defer func() {
			httpInflight.Dec()

			path := c.FullPath()
			if path == "" {
				path = unmatchedPath
			}
			method := c.Request.Method
			httpReqs.WithLabelValues(method, path, strconv.Itoa(c.Writer.Status())).Inc()
			httpLat.WithLabelValues(method, path).Observe(time.Since(start).Seconds())
			if n := c.Writer.Size(); n >= 0 {
				httpRespSize.WithLabelValues(method, path).Observe(float64(n))
			}
		}()
		c.Next()
	}
}
