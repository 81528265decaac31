package metrics

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
)

// Admin API metrics. Registered by Register together with the domain metrics.
var (
	AdminRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "admin",
			Name:      "request_duration_seconds",
			Help:      "Admin API request duration in seconds",
			Buckets:   []float64{0.005, 0.025, 0.1, 0.5, 1, 5, 15, 60, 300},
		},
		[]string{"method", "route", "status"},
	)

	AdminRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "admin",
			Name:      "requests_total",
			Help:      "Total number of admin API requests",
		},
		[]string{"method", "route", "status"},
	)
)

const actionParam = "{action}"

// Middleware records admin request duration and count by route pattern.
// Prometheus scrapes are not counted.
func Middleware() func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path == "/metrics" {
				next.ServeHTTP(w, r)
				return
			}
			start := time.Now()

			ww := &statusWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(ww, r)

			route := routeLabel(r, ww.status)
			status := strconv.Itoa(ww.status)
			AdminRequestDuration.WithLabelValues(r.Method, route, status).Observe(time.Since(start).Seconds())
			AdminRequestsTotal.WithLabelValues(r.Method, route, status).Inc()
		})
	}
}

// routeLabel returns the chi route pattern with the collection action spelled
// out. Unmatched routes and unknown actions (404) collapse to bounded values.
func routeLabel(r *http.Request, status int) string {
	rctx := chi.RouteContext(r.Context())
	if rctx == nil {
		return "unknown"
	}
	return expandAction(rctx.RoutePattern(), rctx.URLParam("action"), status)
}

func expandAction(pattern, action string, status int) string {
	if pattern == "" {
		return "unknown"
	}
	if action == "" || status == http.StatusNotFound || !strings.Contains(pattern, actionParam) {
		return pattern
	}
	return strings.Replace(pattern, actionParam, action, 1)
}

type statusWriter struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
}

func (w *statusWriter) WriteHeader(status int) {
	if !w.wroteHeader {
		w.status = status
		w.wroteHeader = true
	}
	w.ResponseWriter.WriteHeader(status)
}

func (w *statusWriter) Write(b []byte) (int, error) {
	w.wroteHeader = true
	return w.ResponseWriter.Write(b) //nolint:wrapcheck // delegating to underlying ResponseWriter
}
