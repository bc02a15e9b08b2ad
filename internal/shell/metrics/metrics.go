// Package metrics exposes Prometheus collectors for the HTTP surface,
// the Polygon upstream, the cache layer, and the pattern scanner.
package metrics

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Registry holds the application-specific Prometheus collectors.
	Registry = prometheus.NewRegistry()

	httpInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "chartwatch",
			Subsystem: "http",
			Name:      "inflight_requests",
			Help:      "Current number of in-flight HTTP requests.",
		},
	)

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "chartwatch",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled.",
		},
		[]string{"method", "path", "status"},
	)

	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "chartwatch",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10), // 5ms to ~5s
		},
		[]string{"method", "path"},
	)

	upstreamRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "chartwatch",
			Subsystem: "polygon",
			Name:      "requests_total",
			Help:      "Total number of requests sent to the Polygon API.",
		},
		[]string{"endpoint", "status"},
	)

	upstreamDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "chartwatch",
			Subsystem: "polygon",
			Name:      "request_duration_seconds",
			Help:      "Duration of Polygon API requests.",
			Buckets:   prometheus.ExponentialBuckets(0.01, 2, 10), // 10ms to ~10s
		},
		[]string{"endpoint"},
	)

	cacheOperations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "chartwatch",
			Subsystem: "cache",
			Name:      "operations_total",
			Help:      "Total number of cache operations by result.",
		},
		[]string{"operation", "result"},
	)

	scanRuns = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "chartwatch",
			Subsystem: "scanner",
			Name:      "runs_total",
			Help:      "Total number of scan cycles by final status.",
		},
		[]string{"status"},
	)

	scanDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "chartwatch",
			Subsystem: "scanner",
			Name:      "run_duration_seconds",
			Help:      "Duration of scan cycles.",
			Buckets:   prometheus.ExponentialBuckets(0.1, 2, 10), // 100ms to ~100s
		},
	)

	scanDetections = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "chartwatch",
			Subsystem: "scanner",
			Name:      "detections_total",
			Help:      "Total number of pattern detections by detector.",
		},
		[]string{"detector"},
	)
)

func init() {
	Registry.MustRegister(
		httpInFlight,
		httpRequests,
		httpDuration,
		upstreamRequests,
		upstreamDuration,
		cacheOperations,
		scanRuns,
		scanDuration,
		scanDetections,
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
		prometheus.NewGoCollector(),
	)
}

// Handler returns an HTTP handler exposing the registered Prometheus metrics.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

// InstrumentHandler wraps the provided handler with HTTP metrics collection.
func InstrumentHandler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()

		httpInFlight.Inc()
		defer httpInFlight.Dec()

		next.ServeHTTP(rec, r)

		duration := time.Since(start)
		path := canonicalPath(r.URL.Path)
		method := strings.ToUpper(r.Method)

		httpRequests.WithLabelValues(method, path, strconv.Itoa(rec.status)).Inc()
		httpDuration.WithLabelValues(method, path).Observe(duration.Seconds())
	})
}

// RecordUpstreamRequest records one Polygon API request.
func RecordUpstreamRequest(endpoint string, status int, duration time.Duration) {
	if duration <= 0 {
		duration = time.Millisecond
	}
	upstreamRequests.WithLabelValues(endpoint, strconv.Itoa(status)).Inc()
	upstreamDuration.WithLabelValues(endpoint).Observe(duration.Seconds())
}

// RecordCacheOperation records a cache get or set by result (hit, miss, error, ok).
func RecordCacheOperation(operation, result string) {
	cacheOperations.WithLabelValues(operation, result).Inc()
}

// RecordScanRun records a completed scan cycle.
func RecordScanRun(status string, duration time.Duration) {
	if duration <= 0 {
		duration = time.Millisecond
	}
	scanRuns.WithLabelValues(status).Inc()
	scanDuration.Observe(duration.Seconds())
}

// RecordDetections adds detections found for a detector.
func RecordDetections(detector string, count int) {
	if count <= 0 {
		return
	}
	scanDetections.WithLabelValues(detector).Add(float64(count))
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Write(b []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	return r.ResponseWriter.Write(b)
}

// canonicalPath collapses path parameters so metric label cardinality
// stays bounded.
func canonicalPath(raw string) string {
	if raw == "" || raw == "/" {
		return "/"
	}
	trimmed := strings.Trim(raw, "/")
	if trimmed == "" {
		return "/"
	}
	parts := strings.Split(trimmed, "/")
	if parts[0] != "api" {
		return "/" + parts[0]
	}
	if len(parts) < 3 {
		return "/" + strings.Join(parts, "/")
	}
	resource := parts[2]
	switch resource {
	case "watchlists", "scans":
		if len(parts) == 3 {
			return "/api/v1/" + resource
		}
		return "/api/v1/" + resource + "/:id"
	case "symbols":
		return "/api/v1/symbols/:symbol/detections"
	default:
		return "/" + strings.Join(parts, "/")
	}
}
