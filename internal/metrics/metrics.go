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
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gosky_http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"path", "method", "code"},
	)

	httpDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "gosky_http_duration_seconds",
			Help:    "HTTP request duration in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"path", "method"},
	)

	generateTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gosky_generate_total",
			Help: "Total number of sky synthesis calls.",
		},
		[]string{"model"},
	)

	generateSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "gosky_generate_seconds",
			Help:    "Sky synthesis duration in seconds.",
			Buckets: []float64{.005, .01, .05, .1, .5, 1, 5, 10, 30},
		},
		[]string{"model"},
	)

	rotationCacheHits = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "gosky_rotation_cache_hits_total",
			Help: "Observer rotations served from the (time, horizon) cache.",
		},
	)

	rotationCacheMisses = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "gosky_rotation_cache_misses_total",
			Help: "Observer rotations recomputed on a (time, horizon) change.",
		},
	)
)

func init() {
	prometheus.MustRegister(httpRequestsTotal)
	prometheus.MustRegister(httpDurationSeconds)
	prometheus.MustRegister(generateTotal)
	prometheus.MustRegister(generateSeconds)
	prometheus.MustRegister(rotationCacheHits)
	prometheus.MustRegister(rotationCacheMisses)
}

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveGenerate records one synthesis call for a model.
func ObserveGenerate(model string, d time.Duration) {
	generateTotal.WithLabelValues(model).Inc()
	generateSeconds.WithLabelValues(model).Observe(d.Seconds())
}

// IncRotationCacheHit counts a reused observer rotation.
func IncRotationCacheHit() {
	rotationCacheHits.Inc()
}

// IncRotationCacheMiss counts a recomputed observer rotation.
func IncRotationCacheMiss() {
	rotationCacheMisses.Inc()
}

// knownRoutes are the exact paths the server registers.
var knownRoutes = map[string]bool{
	"/healthz":         true,
	"/readyz":          true,
	"/metrics":         true,
	"/":                true,
	"/api/v1/models":   true,
	"/api/v1/sky":      true,
	"/api/v1/observed": true,
}

// normalizeRoute collapses unknown paths to a single label so scanner
// and bot traffic cannot blow up metric cardinality.
func normalizeRoute(path string) string {
	if knownRoutes[path] {
		return path
	}
	if strings.HasPrefix(path, "/api/v1/models/") {
		return "/api/v1/models/{name}"
	}
	return "other"
}

// responseWriter wraps http.ResponseWriter to capture the status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Middleware records request count and duration for each request.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(rw, r)

		duration := time.Since(start).Seconds()
		code := strconv.Itoa(rw.statusCode)
		route := normalizeRoute(r.URL.Path)

		httpRequestsTotal.WithLabelValues(route, r.Method, code).Inc()
		httpDurationSeconds.WithLabelValues(route, r.Method).Observe(duration)
	})
}
