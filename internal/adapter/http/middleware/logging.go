package middleware

import (
	"net/http"
	"time"
)

// Logging writes one record per request. Server errors are logged at WARN so
// they show up without debug logging; everything else stays at DEBUG.
func (a *Middleware) Logging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := record(w)

		next.ServeHTTP(rec, r)

		args := []any{
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.code(),
			"bytes", rec.bytes,
			"remote_addr", r.RemoteAddr,
			"duration", time.Since(start).String(),
		}
		if rec.code() >= http.StatusInternalServerError {
			a.log.Warn(r.Context(), "request failed", args...)
			return
		}
		a.log.Debug(r.Context(), "request completed", args...)
	})
}
