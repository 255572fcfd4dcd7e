// Package metrics provides Prometheus instrumentation for the tracker.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// TransactionsTotal counts transactions recorded, partitioned by side.
	TransactionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tracker_transactions_total",
		Help: "Total number of transactions recorded",
	}, []string{"side"})

	// RecomputeDuration tracks full position-replay duration.
	RecomputeDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "tracker_recompute_duration_seconds",
		Help:    "Position engine replay duration in seconds",
		Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5},
	})

	// OpenPositions tracks the number of open positions after the last
	// recompute.
	OpenPositions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "tracker_open_positions",
		Help: "Number of currently open positions",
	})

	// MultiplierFallbacks counts symbols resolved with the default
	// multiplier because their family was unknown.
	MultiplierFallbacks = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tracker_multiplier_fallbacks_total",
		Help: "Symbols resolved with the fallback unit multiplier",
	})

	// ImportRejections counts structurally invalid import documents.
	ImportRejections = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tracker_import_rejections_total",
		Help: "Imports rejected for structural errors",
	})

	// WebSocketClients tracks connected WebSocket clients.
	WebSocketClients = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "tracker_websocket_clients",
		Help: "Number of connected WebSocket clients",
	})

	// HTTPRequestsTotal counts HTTP requests by method, path, and status.
	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tracker_http_requests_total",
		Help: "Total HTTP requests",
	}, []string{"method", "path", "status"})

	// HTTPRequestDuration tracks request duration by method and path.
	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "tracker_http_request_duration_seconds",
		Help:    "HTTP request duration in seconds",
		Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0},
	}, []string{"method", "path"})
)

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Middleware returns an HTTP middleware that records request metrics.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapped := &statusWriter{ResponseWriter: w, status: 200}
		next.ServeHTTP(wrapped, r)
		duration := time.Since(start).Seconds()

		// Use the raw path for the label; the API surface is small and
		// fixed, so cardinality stays bounded.
		path := r.URL.Path
		HTTPRequestsTotal.WithLabelValues(r.Method, path, strconv.Itoa(wrapped.status)).Inc()
		HTTPRequestDuration.WithLabelValues(r.Method, path).Observe(duration)
	})
}

// statusWriter wraps http.ResponseWriter to capture the status code.
type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}
