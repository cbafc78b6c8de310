// Package streaming copies video data to HTTP clients in flushed chunks
// with timeout protection, so a stalled player cannot pin a handler
// goroutine forever.
package streaming

import (
	"context"
	"errors"
	"io"
	"net/http"
	"sync"
	"time"

	"homeflix/internal/logging"
	"homeflix/internal/metrics"
)

var (
	// ErrWriteTimeout indicates a single write exceeded the configured
	// timeout, typically a client draining data too slowly.
	ErrWriteTimeout = errors.New("write timeout exceeded")

	// ErrClientGone indicates the client disconnected mid-stream. Detected
	// via request context cancellation; not a server-side failure.
	ErrClientGone = errors.New("client disconnected")

	// ErrStreamCanceled indicates the stream was shut down programmatically.
	ErrStreamCanceled = errors.New("stream canceled")
)

// Config tunes the chunked writer.
type Config struct {
	// WriteTimeout bounds a single chunk write.
	WriteTimeout time.Duration
	// IdleTimeout bounds the gap between successful writes.
	IdleTimeout time.Duration
	// ChunkSize is the flush granularity.
	ChunkSize int
}

// DefaultConfig returns the tuning used for video streaming.
func DefaultConfig() Config {
	return Config{
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
		ChunkSize:    256 * 1024,
	}
}

// writer wraps an http.ResponseWriter with per-write timeouts and per-chunk
// flushing.
type writer struct {
	w       http.ResponseWriter
	ctx     context.Context
	cancel  context.CancelFunc
	config  Config
	flusher http.Flusher

	mu        sync.Mutex
	lastWrite time.Time
	written   int64
	closed    bool
}

func newWriter(ctx context.Context, w http.ResponseWriter, config Config) *writer {
	streamCtx, cancel := context.WithCancel(ctx)
	sw := &writer{
		w:         w,
		ctx:       streamCtx,
		cancel:    cancel,
		config:    config,
		lastWrite: time.Now(),
	}
	if flusher, ok := w.(http.Flusher); ok {
		sw.flusher = flusher
	}
	go sw.idleChecker()
	return sw
}

// Copy streams r to w in flushed chunks until EOF, a timeout, or client
// disconnect. It never buffers more than one chunk and returns the number
// of bytes that reached the client. Content-framing headers are the
// caller's responsibility; range responses need their exact Content-Length.
func Copy(ctx context.Context, w http.ResponseWriter, r io.Reader, config Config) (int64, error) {
	sw := newWriter(ctx, w, config)
	defer sw.close()

	if config.ChunkSize <= 0 {
		config.ChunkSize = DefaultConfig().ChunkSize
	}
	buf := make([]byte, config.ChunkSize)

	var total int64
	for {
		if err := sw.checkContext(); err != nil {
			return total, err
		}

		n, readErr := r.Read(buf)
		if n > 0 {
			written, writeErr := sw.writeWithTimeout(buf[:n])
			total += int64(written)
			metrics.StreamBytesSent.Add(float64(written))
			if writeErr != nil {
				return total, writeErr
			}
			if sw.flusher != nil {
				sw.flusher.Flush()
			}
		}
		if readErr == io.EOF {
			logging.Debug("Stream completed: %d bytes", total)
			return total, nil
		}
		if readErr != nil {
			return total, readErr
		}
	}
}

func (sw *writer) checkContext() error {
	select {
	case <-sw.ctx.Done():
		return sw.contextError()
	default:
		return nil
	}
}

// writeWithTimeout performs one write in a goroutine so a stalled client
// cannot block past WriteTimeout.
func (sw *writer) writeWithTimeout(p []byte) (int, error) {
	type writeResult struct {
		n   int
		err error
	}
	resultCh := make(chan writeResult, 1)

	go func() {
		n, err := sw.w.Write(p)
		resultCh <- writeResult{n, err}
	}()

	select {
	case result := <-resultCh:
		if result.err == nil {
			sw.mu.Lock()
			sw.lastWrite = time.Now()
			sw.written += int64(result.n)
			sw.mu.Unlock()
		}
		return result.n, result.err

	case <-time.After(sw.config.WriteTimeout):
		sw.cancel()
		return 0, ErrWriteTimeout

	case <-sw.ctx.Done():
		return 0, sw.contextError()
	}
}

// idleChecker cancels the stream when no write has succeeded within
// IdleTimeout.
func (sw *writer) idleChecker() {
	if sw.config.IdleTimeout <= 0 {
		return
	}

	ticker := time.NewTicker(sw.config.IdleTimeout / 4)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			sw.mu.Lock()
			idle := time.Since(sw.lastWrite)
			closed := sw.closed
			sw.mu.Unlock()

			if closed {
				return
			}
			if idle > sw.config.IdleTimeout {
				logging.Warn("Stream idle timeout exceeded: %v", idle)
				sw.cancel()
				return
			}

		case <-sw.ctx.Done():
			return
		}
	}
}

func (sw *writer) contextError() error {
	if errors.Is(sw.ctx.Err(), context.Canceled) {
		return ErrClientGone
	}
	return ErrStreamCanceled
}

func (sw *writer) close() {
	sw.mu.Lock()
	defer sw.mu.Unlock()
	if sw.closed {
		return
	}
	sw.closed = true
	sw.cancel()
}

// IsClientError reports whether err is the client's fault (disconnect or
// slow drain) rather than a server failure. Handlers log these at debug
// level and do not surface them.
func IsClientError(err error) bool {
	return errors.Is(err, ErrClientGone) || errors.Is(err, ErrWriteTimeout) || errors.Is(err, ErrStreamCanceled)
}
