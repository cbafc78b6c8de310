package middleware

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"homeflix/internal/metrics"
)

// unmetered paths would only measure the measurer.
var unmetered = map[string]bool{
	"/metrics": true,
	"/health":  true,
	"/healthz": true,
	"/livez":   true,
	"/readyz":  true,
}

// normalizePath collapses movie ids to a placeholder so every catalog entry
// does not mint its own metric series.
func normalizePath(path string) string {
	segments := strings.Split(path, "/")
	for i, seg := range segments {
		if seg == "" {
			continue
		}
		if _, err := strconv.ParseInt(seg, 10, 64); err == nil {
			segments[i] = "{id}"
		}
	}
	return strings.Join(segments, "/")
}

// RequestMetrics records Prometheus request counters and latencies.
func RequestMetrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if unmetered[r.URL.Path] {
			next.ServeHTTP(w, r)
			return
		}

		metrics.HTTPRequestsInFlight.Inc()
		defer metrics.HTTPRequestsInFlight.Dec()

		start := time.Now()
		rec := record(w)
		next.ServeHTTP(rec, r)

		path := normalizePath(r.URL.Path)
		metrics.HTTPRequestsTotal.WithLabelValues(r.Method, path, strconv.Itoa(rec.status)).Inc()
		metrics.HTTPRequestDuration.WithLabelValues(r.Method, path).Observe(time.Since(start).Seconds())
	})
}
