package middleware

import (
	"compress/gzip"
	"io"
	"net/http"
	"strings"
	"sync"
)

// gzipMinSize is the smallest body worth compressing; below it the gzip
// framing costs more than it saves.
const gzipMinSize = 1024

// compressibleTypes lists the content types this server produces that
// shrink under gzip. Video, JPEG thumbnails and poster art are already
// compressed and pass through untouched.
var compressibleTypes = map[string]bool{
	"application/json":     true,
	"text/plain":           true,
	"text/vtt":             true,
	"text/x-ssa":           true,
	"application/x-subrip": true,
}

var gzipPool = sync.Pool{
	New: func() interface{} {
		w, _ := gzip.NewWriterLevel(io.Discard, gzip.DefaultCompression)
		return w
	},
}

// gzipResponse defers the compress-or-not decision until enough body has
// been written to clear gzipMinSize, or until the response ends.
type gzipResponse struct {
	http.ResponseWriter
	gz      *gzip.Writer
	pending []byte
	status  int
	decided bool
}

func (g *gzipResponse) WriteHeader(code int) {
	if !g.decided {
		g.status = code
	}
}

func (g *gzipResponse) Write(b []byte) (int, error) {
	if g.decided {
		if g.gz != nil {
			return g.gz.Write(b)
		}
		return g.ResponseWriter.Write(b)
	}

	g.pending = append(g.pending, b...)
	if len(g.pending) > gzipMinSize {
		if err := g.decide(); err != nil {
			return 0, err
		}
	}
	return len(b), nil
}

// decide commits the response: gzip when the buffered body is large enough
// and the content type compresses, identity otherwise.
func (g *gzipResponse) decide() error {
	g.decided = true

	mediaType, _, _ := strings.Cut(g.Header().Get("Content-Type"), ";")
	mediaType = strings.ToLower(strings.TrimSpace(mediaType))

	if len(g.pending) >= gzipMinSize && compressibleTypes[mediaType] {
		g.Header().Del("Content-Length")
		g.Header().Set("Content-Encoding", "gzip")
		g.Header().Add("Vary", "Accept-Encoding")

		g.gz = gzipPool.Get().(*gzip.Writer)
		g.gz.Reset(g.ResponseWriter)
	}

	g.ResponseWriter.WriteHeader(g.status)
	var err error
	if g.gz != nil {
		_, err = g.gz.Write(g.pending)
	} else if len(g.pending) > 0 {
		_, err = g.ResponseWriter.Write(g.pending)
	}
	g.pending = nil
	return err
}

func (g *gzipResponse) Flush() {
	if !g.decided {
		if err := g.decide(); err != nil {
			return
		}
	}
	if g.gz != nil {
		g.gz.Flush()
	}
	if f, ok := g.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// finish flushes any undecided buffer and returns the gzip writer to the
// pool.
func (g *gzipResponse) finish() {
	if !g.decided {
		if err := g.decide(); err != nil {
			return
		}
	}
	if g.gz != nil {
		g.gz.Close()
		gzipPool.Put(g.gz)
		g.gz = nil
	}
}

// Compression gzips responses for clients that accept it. The media
// streaming path never qualifies, so its exact Content-Length framing is
// untouched.
func Compression(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.Contains(r.Header.Get("Accept-Encoding"), "gzip") {
			next.ServeHTTP(w, r)
			return
		}

		gw := &gzipResponse{ResponseWriter: w, status: http.StatusOK}
		defer gw.finish()
		next.ServeHTTP(gw, r)
	})
}
