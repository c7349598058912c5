// Package metrics provides Prometheus instrumentation for the trade journal.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// ImportedRows counts import rows by outcome: trade, dividend, skipped, error.
	ImportedRows = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tj_import_rows_total",
		Help: "Rows processed by the importer, by outcome",
	}, []string{"outcome"})

	// Recalculations counts position recomputations.
	Recalculations = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tj_position_recalculations_total",
		Help: "Number of position recalculations",
	})

	// RecalculationDuration tracks how long a position recomputation takes.
	RecalculationDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "tj_position_recalculation_seconds",
		Help:    "Position recalculation duration in seconds",
		Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
	})

	// SpreadsDetected counts spread groups by type.
	SpreadsDetected = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tj_spreads_detected_total",
		Help: "Option spread groups detected, by spread type",
	}, []string{"type"})

	// QuoteRequests counts quote lookups by result: hit, miss, error.
	QuoteRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tj_quote_requests_total",
		Help: "Quote lookups by cache result",
	}, []string{"result"})

	// HTTPRequestsTotal counts HTTP requests by method, route, and status.
	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tj_http_requests_total",
		Help: "Total HTTP requests",
	}, []string{"method", "route", "status"})

	// HTTPRequestDuration tracks request duration by method and route.
	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "tj_http_request_duration_seconds",
		Help:    "HTTP request duration in seconds",
		Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0},
	}, []string{"method", "route"})
)

// ObserveSince records the time elapsed since start into h.
func ObserveSince(h prometheus.Observer, start time.Time) {
	h.Observe(time.Since(start).Seconds())
}

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Middleware records request metrics. The route pattern is used as label to keep
// cardinality low.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapped := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(wrapped, r)

		route := r.URL.Path
		if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
			route = rc.RoutePattern()
		}
		HTTPRequestsTotal.WithLabelValues(r.Method, route, strconv.Itoa(wrapped.status)).Inc()
		HTTPRequestDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
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
