package middleware

import (
	"bytes"
	"compress/gzip"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
)

func gzipRequest(t *testing.T, handler http.Handler, target string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest("GET", target, nil)
	req.Header.Set("Accept-Encoding", "gzip")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func jsonHandler(body []byte) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write(body)
	})
}

func TestCompressionLargeJSON(t *testing.T) {
	body := bytes.Repeat([]byte(`{"title":"aaaaaaaa"},`), 200)
	rec := gzipRequest(t, Compression(jsonHandler(body)), "/api/movies")

	if got := rec.Header().Get("Content-Encoding"); got != "gzip" {
		t.Fatalf("Content-Encoding = %q, want gzip", got)
	}
	if got := rec.Header().Get("Vary"); got != "Accept-Encoding" {
		t.Errorf("Vary = %q, want Accept-Encoding", got)
	}
	if rec.Header().Get("Content-Length") != "" {
		t.Error("Content-Length must be dropped from compressed responses")
	}

	zr, err := gzip.NewReader(rec.Body)
	if err != nil {
		t.Fatalf("gzip.NewReader: %v", err)
	}
	got, err := io.ReadAll(zr)
	if err != nil {
		t.Fatalf("decompress: %v", err)
	}
	if !bytes.Equal(got, body) {
		t.Errorf("decompressed body mismatch: got %d bytes, want %d", len(got), len(body))
	}
}

func TestCompressionSmallBodyStaysIdentity(t *testing.T) {
	body := []byte(`{"error":"movie not found"}`)
	rec := gzipRequest(t, Compression(jsonHandler(body)), "/api/movies/999")

	if rec.Header().Get("Content-Encoding") != "" {
		t.Error("small body should not be compressed")
	}
	if !bytes.Equal(rec.Body.Bytes(), body) {
		t.Errorf("body = %q, want passthrough", rec.Body.String())
	}
}

// Streaming responses must keep their exact byte framing.
func TestCompressionSkipsVideo(t *testing.T) {
	body := bytes.Repeat([]byte{0x42}, 4096)
	handler := Compression(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "video/mp4")
		w.Header().Set("Content-Length", strconv.Itoa(len(body)))
		w.Write(body)
	}))

	rec := gzipRequest(t, handler, "/api/stream/1")
	if rec.Header().Get("Content-Encoding") != "" {
		t.Error("video must never be compressed")
	}
	if got := rec.Header().Get("Content-Length"); got != "4096" {
		t.Errorf("Content-Length = %q, want 4096", got)
	}
	if !bytes.Equal(rec.Body.Bytes(), body) {
		t.Errorf("body mismatch: got %d bytes", rec.Body.Len())
	}
}

func TestCompressionWithoutAcceptEncoding(t *testing.T) {
	body := bytes.Repeat([]byte("a"), 4096)
	req := httptest.NewRequest("GET", "/api/movies", nil)
	rec := httptest.NewRecorder()
	Compression(jsonHandler(body)).ServeHTTP(rec, req)

	if rec.Header().Get("Content-Encoding") != "" {
		t.Error("client without gzip support got a compressed response")
	}
	if !bytes.Equal(rec.Body.Bytes(), body) {
		t.Error("body should pass through unchanged")
	}
}

func TestCompressionPreservesStatus(t *testing.T) {
	handler := Compression(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"error":"movie not found"}`))
	}))

	rec := gzipRequest(t, handler, "/api/movies/999")
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

// Flushing mid-response forces the compress decision so chunked writers
// keep working.
func TestCompressionFlush(t *testing.T) {
	handler := Compression(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "video/mp4")
		w.Write([]byte("chunk1"))
		w.(http.Flusher).Flush()
		w.Write([]byte("chunk2"))
	}))

	rec := gzipRequest(t, handler, "/api/stream/1")
	if !rec.Flushed {
		t.Error("flush did not reach the underlying writer")
	}
	if rec.Body.String() != "chunk1chunk2" {
		t.Errorf("body = %q, want both chunks", rec.Body.String())
	}
}

func TestCompressibleTypesCoverServerOutput(t *testing.T) {
	for _, mediaType := range []string{"application/json", "text/vtt", "application/x-subrip"} {
		if !compressibleTypes[mediaType] {
			t.Errorf("%s should be compressible", mediaType)
		}
	}
	for _, mediaType := range []string{"video/mp4", "image/jpeg", "video/x-matroska"} {
		if compressibleTypes[mediaType] {
			t.Errorf("%s must not be compressible", mediaType)
		}
	}
}

func TestCompressionContentTypeWithCharset(t *testing.T) {
	body := bytes.Repeat([]byte("a"), 2048)
	handler := Compression(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.Write(body)
	}))

	rec := gzipRequest(t, handler, "/api/movies")
	if got := rec.Header().Get("Content-Encoding"); got != "gzip" {
		t.Errorf("Content-Encoding = %q, charset parameter must not defeat compression", got)
	}
	if !strings.Contains(rec.Header().Get("Content-Type"), "application/json") {
		t.Errorf("Content-Type = %q changed unexpectedly", rec.Header().Get("Content-Type"))
	}
}
