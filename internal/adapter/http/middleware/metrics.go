package middleware

import (
	"net/http"
	"time"

	"github.com/Temutjin2k/ladies-drive/pkg/metrics"
)

// Metrics middleware records HTTP metrics. It must wrap the mux directly so
// that the route pattern, not the raw path, labels the series.
func (m *Middleware) Metrics(serviceName string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// Skip metrics endpoint to avoid recursion
			if r.URL.Path == "/metrics" {
				next.ServeHTTP(w, r)
				return
			}

			start := time.Now()
			metrics.HttpRequestsInFlight.WithLabelValues(serviceName).Inc()
			defer metrics.HttpRequestsInFlight.WithLabelValues(serviceName).Dec()

			rec := record(w)
			next.ServeHTTP(rec, r)

			route := r.Pattern
			if route == "" {
				route = "unmatched"
			}
			metrics.RecordHTTPMetrics(serviceName, r.Method, route, rec.code(), time.Since(start))
		})
	}
}
