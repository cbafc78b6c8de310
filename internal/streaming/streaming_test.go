package streaming

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig()

	if config.WriteTimeout != 30*time.Second {
		t.Errorf("WriteTimeout = %v, want 30s", config.WriteTimeout)
	}
	if config.IdleTimeout != 60*time.Second {
		t.Errorf("IdleTimeout = %v, want 60s", config.IdleTimeout)
	}
	if config.ChunkSize != 256*1024 {
		t.Errorf("ChunkSize = %d, want 256KB", config.ChunkSize)
	}
}

func TestCopyWholeReader(t *testing.T) {
	data := bytes.Repeat([]byte("abcdefgh"), 64*1024) // 512KB, spans chunks
	w := httptest.NewRecorder()

	n, err := Copy(context.Background(), w, bytes.NewReader(data), DefaultConfig())
	if err != nil {
		t.Fatalf("Copy failed: %v", err)
	}
	if n != int64(len(data)) {
		t.Errorf("copied %d bytes, want %d", n, len(data))
	}
	if !bytes.Equal(w.Body.Bytes(), data) {
		t.Error("body does not match source data")
	}
	if !w.Flushed {
		t.Error("expected the recorder to be flushed")
	}
}

func TestCopyEmptyReader(t *testing.T) {
	w := httptest.NewRecorder()
	n, err := Copy(context.Background(), w, strings.NewReader(""), DefaultConfig())
	if err != nil || n != 0 {
		t.Errorf("Copy(empty) = (%d, %v), want (0, nil)", n, err)
	}
}

func TestCopyBoundedSpan(t *testing.T) {
	// Range streaming layers a LimitReader over the file.
	data := []byte("0123456789")
	w := httptest.NewRecorder()

	n, err := Copy(context.Background(), w, io.LimitReader(bytes.NewReader(data), 4), DefaultConfig())
	if err != nil {
		t.Fatalf("Copy failed: %v", err)
	}
	if n != 4 || w.Body.String() != "0123" {
		t.Errorf("copied %d bytes %q, want 4 bytes %q", n, w.Body.String(), "0123")
	}
}

func TestCopyCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	w := httptest.NewRecorder()
	_, err := Copy(ctx, w, strings.NewReader("data"), DefaultConfig())
	if !errors.Is(err, ErrClientGone) {
		t.Errorf("expected ErrClientGone, got %v", err)
	}
}

type errReader struct{ err error }

func (r errReader) Read([]byte) (int, error) { return 0, r.err }

func TestCopyReadError(t *testing.T) {
	readErr := errors.New("disk gone")
	w := httptest.NewRecorder()

	_, err := Copy(context.Background(), w, errReader{err: readErr}, DefaultConfig())
	if !errors.Is(err, readErr) {
		t.Errorf("expected read error to surface, got %v", err)
	}
}

func TestIsClientError(t *testing.T) {
	tests := []struct {
		err  error
		want bool
	}{
		{ErrClientGone, true},
		{ErrWriteTimeout, true},
		{ErrStreamCanceled, true},
		{errors.New("disk gone"), false},
		{nil, false},
	}
	for _, tt := range tests {
		if got := IsClientError(tt.err); got != tt.want {
			t.Errorf("IsClientError(%v) = %v, want %v", tt.err, got, tt.want)
		}
	}
}

func TestCopyZeroChunkSizeUsesDefault(t *testing.T) {
	w := httptest.NewRecorder()
	config := Config{WriteTimeout: time.Second, IdleTimeout: time.Second}

	n, err := Copy(context.Background(), w, strings.NewReader("hello"), config)
	if err != nil || n != 5 {
		t.Errorf("Copy = (%d, %v), want (5, nil)", n, err)
	}
}
