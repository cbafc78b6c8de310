package middleware

import (
	"net/http"
	"strings"
	"time"

	"homeflix/internal/logging"
)

// statusRecorder captures the status code and body size for the access log
// and the request metrics.
type statusRecorder struct {
	http.ResponseWriter
	status      int
	bytes       int64
	wroteHeader bool
}

func record(w http.ResponseWriter) *statusRecorder {
	return &statusRecorder{ResponseWriter: w, status: http.StatusOK}
}

func (r *statusRecorder) WriteHeader(code int) {
	if r.wroteHeader {
		return
	}
	r.status = code
	r.wroteHeader = true
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Write(b []byte) (int, error) {
	r.wroteHeader = true
	n, err := r.ResponseWriter.Write(b)
	r.bytes += int64(n)
	return n, err
}

// Flush keeps the streaming path's per-chunk flushing working through the
// wrapper.
func (r *statusRecorder) Flush() {
	if f, ok := r.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// probePaths are the health endpoints that load balancers hit every few
// seconds; logging them is opt-in.
var probePaths = map[string]bool{
	"/health":  true,
	"/healthz": true,
	"/livez":   true,
	"/readyz":  true,
}

// sanitizeField strips control characters from request-derived values so a
// crafted header or path cannot forge log lines or inject terminal escapes.
func sanitizeField(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r == '\n' || r == '\r':
			return ' '
		case r < 0x20 && r != '\t':
			return -1
		default:
			return r
		}
	}, s)
}

// clientIP resolves the originating address, trusting the usual
// reverse-proxy headers first.
func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}
	host := r.RemoteAddr
	if i := strings.LastIndex(host, ":"); i != -1 {
		host = host[:i]
	}
	return host
}

// AccessLog returns middleware that logs one line per request. Health probe
// requests are suppressed unless logProbes is set.
func AccessLog(logProbes bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !logProbes && probePaths[r.URL.Path] {
				next.ServeHTTP(w, r)
				return
			}

			start := time.Now()
			rec := record(w)
			next.ServeHTTP(rec, r)

			query := sanitizeField(r.URL.RawQuery)
			if query == "" {
				query = "-"
			}
			agent := sanitizeField(r.Header.Get("User-Agent"))
			if agent == "" {
				agent = "-"
			}

			logging.Info("%s %s %s %s %d %d %dms %q",
				clientIP(r),
				sanitizeField(r.Method),
				sanitizeField(r.URL.Path),
				query,
				rec.status,
				rec.bytes,
				time.Since(start).Milliseconds(),
				agent,
			)
		})
	}
}
