package middleware

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/bryanwahyu/civic-lens/internal/metrics"
)

// MetricsMiddleware records request count, latency and in-flight gauge per route pattern.
func MetricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		metrics.IncInFlight()
		defer metrics.DecInFlight()

		wrapped := wrapWriter(w)
		next.ServeHTTP(wrapped, r)

		metrics.ObserveHTTP(r.Method, routePattern(r), wrapped.statusCode, time.Since(start))
	})
}

// routePattern keeps label cardinality bounded: unmatched paths collapse to "other".
func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if p := rctx.RoutePattern(); p != "" {
			return p
		}
	}
	return "other"
}
