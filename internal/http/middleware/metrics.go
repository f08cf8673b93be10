// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// Prometheus instrumentation for the control API. The path label is the
// registered route (c.FullPath()) so ids never explode cardinality; unmatched
// requests are folded into a single "unmatched" path.
package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

const unmatchedPath = "unmatched"

var (
	httpReqs = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recur_http_requests_total",
			Help: "HTTP requests served by the control API.",
		},
		[]string{"method", "path", "status"},
	)

	httpLat = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "recur_http_request_duration_seconds",
			Help:    "Control API request duration in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	httpInflight = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "recur_http_requests_inflight",
		Help: "Control API requests currently being served.",
	})

	httpRespSize = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "recur_http_response_size_bytes",
			Help:    "Control API response sizes in bytes.",
			Buckets: prometheus.ExponentialBuckets(128, 4, 8), // 128B..2MiB
		},
		[]string{"method", "path"},
	)

	// mutations splits gateway writes into applied (remote reached) and
	// queued (deferred to the offline queue).
	mutations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recur_http_mutations_total",
			Help: "Entity mutations received, by entity, type and outcome.",
		},
		[]string{"entity", "type", "outcome"},
	)
)

func init() {
	prometheus.MustRegister(httpReqs, httpLat, httpInflight, httpRespSize, mutations)
}

// ObserveMutation counts one gateway write. outcome is "applied" or "queued".
func ObserveMutation(entity, typ, outcome string) {
	mutations.WithLabelValues(entity, typ, outcome).Inc()
}

// Metrics records request count, latency, in-flight gauge and response size.
func Metrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		httpInflight.Inc()
		defer httpInflight.Dec()

		c.Next()

		path := c.FullPath()
		if path == "" {
			path = unmatchedPath
		}
		method := c.Request.Method
		httpReqs.WithLabelValues(method, path, strconv.Itoa(c.Writer.Status())).Inc()
		httpLat.WithLabelValues(method, path).Observe(time.Since(start).Seconds())
		if size := c.Writer.Size(); size >= 0 {
			httpRespSize.WithLabelValues(method, path).Observe(float64(size))
		}
	}
}
