package handlers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"homeflix/internal/catalog"
	"homeflix/internal/filesystem"
	"homeflix/internal/logging"
	"homeflix/internal/mediatypes"
	"homeflix/internal/metrics"
	"homeflix/internal/streaming"

	"github.com/gorilla/mux"
)

// errMalformedRange covers both unparseable and unsatisfiable ranges; the
// response is a 416 either way.
var errMalformedRange = errors.New("malformed or unsatisfiable range")

// parseRange parses a "bytes=start-end" header against the current file
// size. end is optional and defaults to EOF; an end past EOF is clamped.
// Multi-range and suffix-range requests are not supported.
func parseRange(header string, size int64) (start, end int64, err error) {
	spec, ok := strings.CutPrefix(header, "bytes=")
	if !ok || strings.Contains(spec, ",") {
		return 0, 0, errMalformedRange
	}

	startStr, endStr, ok := strings.Cut(spec, "-")
	if !ok || startStr == "" {
		return 0, 0, errMalformedRange
	}

	start, err = strconv.ParseInt(startStr, 10, 64)
	if err != nil || start < 0 || start >= size {
		return 0, 0, errMalformedRange
	}

	end = size - 1
	if endStr != "" {
		end, err = strconv.ParseInt(endStr, 10, 64)
		if err != nil || end < start {
			return 0, 0, errMalformedRange
		}
		if end >= size {
			end = size - 1
		}
	}
	return start, end, nil
}

// lookupStreamable resolves a movie and stats its media file, writing the
// appropriate 404 on failure. The two not-found cases carry distinct
// messages: a missing row and a missing file mean different repairs.
func (h *Handlers) lookupStreamable(w http.ResponseWriter, r *http.Request) (*catalog.Movie, os.FileInfo, bool) {
	id, err := movieID(r)
	if err != nil {
		writeJSONError(w, "invalid movie id", http.StatusBadRequest)
		return nil, nil, false
	}

	movie, err := h.store.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			writeJSONError(w, "movie not found", http.StatusNotFound)
			return nil, nil, false
		}
		logging.Error("Failed to get movie %d: %v", id, err)
		writeJSONError(w, "failed to get movie", http.StatusInternalServerError)
		return nil, nil, false
	}

	info, err := filesystem.StatWithRetry(movie.SourcePath, h.retryConfig)
	if err != nil {
		if os.IsNotExist(err) {
			writeJSONError(w, "video file not found", http.StatusNotFound)
			return nil, nil, false
		}
		logging.Error("Failed to stat %s: %v", movie.SourcePath, err)
		writeJSONError(w, "failed to access video file", http.StatusInternalServerError)
		return nil, nil, false
	}
	return movie, info, true
}

// StreamMovie serves the media file with byte-range support. The size
// always comes from a fresh stat, never the stored fileSize, so a file
// replaced on disk streams correctly.
func (h *Handlers) StreamMovie(w http.ResponseWriter, r *http.Request) {
	movie, info, ok := h.lookupStreamable(w, r)
	if !ok {
		return
	}

	metrics.StreamsInProgress.Inc()
	defer metrics.StreamsInProgress.Dec()

	size := info.Size()
	mime := mediatypes.GetMimeType(filepath.Ext(movie.SourcePath))

	h.touchWatchProgress(r, movie.ID)

	rangeHeader := r.Header.Get("Range")
	if rangeHeader == "" {
		h.streamFull(w, r, movie, size, mime)
		return
	}

	start, end, err := parseRange(rangeHeader, size)
	if err != nil {
		metrics.StreamRequestsTotal.WithLabelValues("range", "unsatisfiable").Inc()
		w.Header().Set("Content-Range", fmt.Sprintf("bytes */%d", size))
		writeJSONError(w, "range not satisfiable", http.StatusRequestedRangeNotSatisfiable)
		return
	}
	h.streamRange(w, r, movie, size, mime, start, end)
}

func (h *Handlers) streamFull(w http.ResponseWriter, r *http.Request, movie *catalog.Movie, size int64, mime string) {
	file, err := filesystem.OpenWithRetry(movie.SourcePath, h.retryConfig)
	if err != nil {
		metrics.StreamRequestsTotal.WithLabelValues("full", "error").Inc()
		logging.Error("Failed to open %s: %v", movie.SourcePath, err)
		writeJSONError(w, "failed to open video file", http.StatusInternalServerError)
		return
	}
	defer closeFile(file, movie.SourcePath)

	w.Header().Set("Content-Type", mime)
	w.Header().Set("Content-Length", strconv.FormatInt(size, 10))
	w.Header().Set("Accept-Ranges", "bytes")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)

	n, err := streaming.Copy(r.Context(), w, file, h.streamConfig)
	recordStreamOutcome("full", movie.ID, n, err)
}

func (h *Handlers) streamRange(w http.ResponseWriter, r *http.Request, movie *catalog.Movie, size int64, mime string, start, end int64) {
	file, err := filesystem.OpenWithRetry(movie.SourcePath, h.retryConfig)
	if err != nil {
		metrics.StreamRequestsTotal.WithLabelValues("range", "error").Inc()
		logging.Error("Failed to open %s: %v", movie.SourcePath, err)
		writeJSONError(w, "failed to open video file", http.StatusInternalServerError)
		return
	}
	defer closeFile(file, movie.SourcePath)

	if _, err := file.Seek(start, io.SeekStart); err != nil {
		metrics.StreamRequestsTotal.WithLabelValues("range", "error").Inc()
		logging.Error("Failed to seek %s to %d: %v", movie.SourcePath, start, err)
		writeJSONError(w, "failed to read video file", http.StatusInternalServerError)
		return
	}

	span := end - start + 1
	w.Header().Set("Content-Type", mime)
	w.Header().Set("Content-Length", strconv.FormatInt(span, 10))
	w.Header().Set("Content-Range", fmt.Sprintf("bytes %d-%d/%d", start, end, size))
	w.Header().Set("Accept-Ranges", "bytes")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusPartialContent)

	n, err := streaming.Copy(r.Context(), w, io.LimitReader(file, span), h.streamConfig)
	recordStreamOutcome("range", movie.ID, n, err)
}

func recordStreamOutcome(kind string, movieID int64, bytesSent int64, err error) {
	switch {
	case err == nil:
		metrics.StreamRequestsTotal.WithLabelValues(kind, "success").Inc()
	case streaming.IsClientError(err):
		metrics.StreamRequestsTotal.WithLabelValues(kind, "client_gone").Inc()
		logging.Debug("Stream of movie %d ended by client after %d bytes: %v", movieID, bytesSent, err)
	default:
		metrics.StreamRequestsTotal.WithLabelValues(kind, "error").Inc()
		logging.Error("Stream of movie %d failed after %d bytes: %v", movieID, bytesSent, err)
	}
}

func closeFile(f *os.File, path string) {
	if err := f.Close(); err != nil {
		logging.Warn("failed to close %s: %v", path, err)
	}
}

// touchWatchProgress records viewing asynchronously. It must never delay or
// fail the stream.
func (h *Handlers) touchWatchProgress(r *http.Request, movieID int64) {
	if h.viewers == nil {
		return
	}
	viewerID, ok := h.viewers.ResolveViewer(r)
	if !ok {
		return
	}

	var watchTime float64
	if t := r.URL.Query().Get("t"); t != "" {
		watchTime, _ = strconv.ParseFloat(t, 64)
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := h.store.TouchWatchProgress(ctx, viewerID, movieID, watchTime); err != nil {
			logging.Warn("Failed to record watch progress for viewer %s movie %d: %v", viewerID, movieID, err)
		}
	}()
}

// StreamInfo describes a stream target for players that want metadata
// before requesting bytes.
type StreamInfo struct {
	ID              int64   `json:"id"`
	Title           string  `json:"title"`
	MimeType        string  `json:"mimeType"`
	FileSize        int64   `json:"fileSize"`
	DurationSeconds float64 `json:"durationSeconds"`
	Format          string  `json:"format"`
	HasThumbnail    bool    `json:"hasThumbnail"`
	Subtitles       []string `json:"subtitles"`
}

// GetStreamInfo returns playback metadata for one movie.
func (h *Handlers) GetStreamInfo(w http.ResponseWriter, r *http.Request) {
	movie, info, ok := h.lookupStreamable(w, r)
	if !ok {
		return
	}

	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, StreamInfo{
		ID:              movie.ID,
		Title:           movie.Title,
		MimeType:        mediatypes.GetMimeType(filepath.Ext(movie.SourcePath)),
		FileSize:        info.Size(),
		DurationSeconds: movie.DurationSeconds,
		Format:          movie.Format,
		HasThumbnail:    movie.HasThumbnail,
		Subtitles:       h.findSubtitles(movie.SourcePath),
	})
}

// GetThumbnail serves the stored artwork for a movie.
func (h *Handlers) GetThumbnail(w http.ResponseWriter, r *http.Request) {
	id, err := movieID(r)
	if err != nil {
		writeJSONError(w, "invalid movie id", http.StatusBadRequest)
		return
	}

	movie, err := h.store.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			writeJSONError(w, "movie not found", http.StatusNotFound)
			return
		}
		writeJSONError(w, "failed to get movie", http.StatusInternalServerError)
		return
	}
	if movie.ThumbnailPath == "" {
		writeJSONError(w, "no thumbnail for this movie", http.StatusNotFound)
		return
	}

	data, err := os.ReadFile(movie.ThumbnailPath)
	if err != nil {
		logging.Warn("Thumbnail file missing for movie %d: %v", id, err)
		writeJSONError(w, "thumbnail file not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "image/jpeg")
	w.Header().Set("Cache-Control", "public, max-age=86400")
	if _, err := w.Write(data); err != nil {
		logging.Debug("Failed to write thumbnail for movie %d: %v", id, err)
	}
}

// findSubtitles discovers sidecar subtitle files sharing the media file's
// basename.
func (h *Handlers) findSubtitles(sourcePath string) []string {
	base := strings.TrimSuffix(sourcePath, filepath.Ext(sourcePath))

	subs := []string{}
	for ext := range mediatypes.SubtitleExtensions {
		if _, err := os.Stat(base + ext); err == nil {
			subs = append(subs, ext)
		}
	}
	return subs
}

// ListSubtitles returns the sidecar subtitle extensions available for a
// movie.
func (h *Handlers) ListSubtitles(w http.ResponseWriter, r *http.Request) {
	id, err := movieID(r)
	if err != nil {
		writeJSONError(w, "invalid movie id", http.StatusBadRequest)
		return
	}

	movie, err := h.store.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			writeJSONError(w, "movie not found", http.StatusNotFound)
			return
		}
		writeJSONError(w, "failed to get movie", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, map[string]interface{}{"subtitles": h.findSubtitles(movie.SourcePath)})
}

// GetSubtitle serves one sidecar subtitle file by extension.
func (h *Handlers) GetSubtitle(w http.ResponseWriter, r *http.Request) {
	id, err := movieID(r)
	if err != nil {
		writeJSONError(w, "invalid movie id", http.StatusBadRequest)
		return
	}

	ext := "." + strings.ToLower(strings.TrimPrefix(mux.Vars(r)["ext"], "."))
	if !mediatypes.SubtitleExtensions[ext] {
		writeJSONError(w, "unsupported subtitle format", http.StatusBadRequest)
		return
	}

	movie, err := h.store.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			writeJSONError(w, "movie not found", http.StatusNotFound)
			return
		}
		writeJSONError(w, "failed to get movie", http.StatusInternalServerError)
		return
	}

	subPath := strings.TrimSuffix(movie.SourcePath, filepath.Ext(movie.SourcePath)) + ext
	data, err := os.ReadFile(subPath)
	if err != nil {
		writeJSONError(w, "subtitle not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", mediatypes.MimeTypes[ext])
	if _, err := w.Write(data); err != nil {
		logging.Debug("Failed to write subtitle for movie %d: %v", id, err)
	}
}
