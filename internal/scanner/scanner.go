// Package scanner ingests media files from a library directory into the
// catalog. A scan is a single-level pass: validate the directory, filter
// candidate files, check browser compatibility, then probe, enrich and
// thumbnail each new file before inserting it.
package scanner

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"homeflix/internal/catalog"
	"homeflix/internal/logging"
	"homeflix/internal/mediatypes"
	"homeflix/internal/metrics"
	"homeflix/internal/omdb"
	"homeflix/internal/probe"

	"github.com/google/uuid"
)

// Directory validation failures map to distinct API responses, so each
// gets its own sentinel.
var (
	ErrDirNotFound    = errors.New("directory not found")
	ErrNotDirectory   = errors.New("path is not a directory")
	ErrDirNotReadable = errors.New("directory is not readable")
)

// Store is the catalog surface the scanner writes to.
type Store interface {
	Insert(ctx context.Context, m *catalog.Movie) error
	FindByTitleOrPath(ctx context.Context, title, sourcePath string) (*catalog.Movie, error)
	UpdateEnrichment(ctx context.Context, id int64, e *catalog.Enrichment) error
	ListStale(ctx context.Context, cutoff time.Time, limit int) ([]*catalog.Movie, error)
}

// Prober extracts container metadata from a media file.
type Prober interface {
	Extract(ctx context.Context, path string) probe.Info
}

// Enricher looks up provider metadata and poster art.
type Enricher interface {
	Enabled() bool
	Lookup(ctx context.Context, rawTitle string) (*omdb.Result, error)
	DownloadPoster(ctx context.Context, url string) ([]byte, error)
}

// Thumbnailer produces catalog artwork.
type Thumbnailer interface {
	Generate(ctx context.Context, videoPath string, durationSeconds float64, outPath string) error
	FromImage(data []byte, outPath string) error
}

// Converter transcodes an incompatible file into a playable one.
type Converter interface {
	Convert(ctx context.Context, src, dst string, durationSeconds float64, onProgress func(float64)) error
}

// Scanner runs catalog ingestion. All collaborators are injected; the
// scanner itself holds no global state.
type Scanner struct {
	store    Store
	probe    Prober
	enrich   Enricher
	thumbs   Thumbnailer
	convert  Converter
	thumbDir string

	// Scans, conversions and refreshes are serialized. File ingestion is
	// deliberately sequential: it fans out to subprocesses and a
	// rate-limited metadata API.
	mu sync.Mutex

	// Provider throttle state.
	lookupMu   sync.Mutex
	lastLookup time.Time

	// Overridable in tests.
	enrichDelay      time.Duration
	thumbnailTimeout time.Duration
}

// New creates a Scanner. thumbDir is where generated artwork lands and must
// already exist.
func New(store Store, prober Prober, enricher Enricher, thumbs Thumbnailer, converter Converter, thumbDir string) *Scanner {
	return &Scanner{
		store:            store,
		probe:            prober,
		enrich:           enricher,
		thumbs:           thumbs,
		convert:          converter,
		thumbDir:         thumbDir,
		enrichDelay:      200 * time.Millisecond,
		thumbnailTimeout: 30 * time.Second,
	}
}

// Options controls how a scan treats incompatible files.
type Options struct {
	// SkipIncompatible ingests compatible files and leaves incompatible
	// ones behind instead of pausing the whole scan.
	SkipIncompatible bool
	// SkipFormatCheck ingests everything without classification.
	SkipFormatCheck bool
}

// IncompatibleFile describes one file that needs conversion before it can
// be cataloged.
type IncompatibleFile struct {
	Name           string  `json:"name"`
	SizeMB         float64 `json:"sizeMb"`
	Reason         string  `json:"reason"`
	Recommendation string  `json:"recommendation"`
}

// FileReport is the per-file outcome log of a scan.
type FileReport struct {
	Name    string `json:"name"`
	Title   string `json:"title,omitempty"`
	Outcome string `json:"outcome"` // "added", "skipped", "skipped_incompatible", "error"
}

// ScanResult summarizes a scan. A non-empty NeedsConversion means the scan
// paused before inserting anything.
type ScanResult struct {
	TotalFiles          int                `json:"totalFiles"`
	Processed           int                `json:"processed"`
	Added               int                `json:"added"`
	Skipped             int                `json:"skipped"`
	SkippedIncompatible int                `json:"skippedIncompatible"`
	Errors              int                `json:"errors"`
	NeedsConversion     []IncompatibleFile `json:"needsConversion,omitempty"`
	Files               []FileReport       `json:"files,omitempty"`
}

// candidate is a directory entry that passed the ingestion filter.
type candidate struct {
	name string
	path string
	size int64
}

// Scan ingests the media files found directly in dir. Incompatible files
// pause the scan (no inserts) unless opts says otherwise.
func (s *Scanner) Scan(ctx context.Context, dir string, opts Options) (*ScanResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	metrics.ScanIsRunning.Set(1)
	defer metrics.ScanIsRunning.Set(0)

	start := time.Now()
	defer func() { metrics.ScanDuration.Observe(time.Since(start).Seconds()) }()

	candidates, err := s.listCandidates(dir)
	if err != nil {
		metrics.ScanRunsTotal.WithLabelValues("error").Inc()
		return nil, err
	}

	result := &ScanResult{TotalFiles: len(candidates)}
	logging.Info("Scanning %s: %d candidate files", dir, len(candidates))

	compatible := candidates
	if !opts.SkipFormatCheck {
		var incompatible []IncompatibleFile
		compatible, incompatible = splitByCompatibility(candidates)

		if len(incompatible) > 0 && !opts.SkipIncompatible {
			// Pause: report what needs converting and insert nothing.
			result.NeedsConversion = incompatible
			metrics.ScanRunsTotal.WithLabelValues("needs_conversion").Inc()
			logging.Info("Scan paused: %d files need conversion", len(incompatible))
			return result, nil
		}

		for _, f := range incompatible {
			result.SkippedIncompatible++
			result.Files = append(result.Files, FileReport{Name: f.Name, Outcome: "skipped_incompatible"})
			metrics.ScanFilesProcessed.WithLabelValues("skipped_incompatible").Inc()
		}
	}

	for _, c := range compatible {
		if ctx.Err() != nil {
			metrics.ScanRunsTotal.WithLabelValues("error").Inc()
			return result, ctx.Err()
		}
		result.Processed++
		s.ingestCandidate(ctx, c, result)
	}

	metrics.ScanRunsTotal.WithLabelValues("completed").Inc()
	logging.Info("Scan of %s finished in %v: %d added, %d skipped, %d errors",
		dir, time.Since(start).Round(time.Millisecond), result.Added, result.Skipped, result.Errors)
	return result, nil
}

// ingestCandidate runs one file through ingestion and folds the outcome
// into the result. Errors are isolated: they are counted and logged but
// never abort the scan.
func (s *Scanner) ingestCandidate(ctx context.Context, c candidate, result *ScanResult) {
	title, outcome, err := s.ingestFile(ctx, c)
	if err != nil {
		logging.Error("Failed to ingest %s: %v", c.path, err)
		result.Errors++
		result.Files = append(result.Files, FileReport{Name: c.name, Outcome: "error"})
		metrics.ScanFilesProcessed.WithLabelValues("error").Inc()
		return
	}

	switch outcome {
	case "added":
		result.Added++
	case "skipped":
		result.Skipped++
	}
	result.Files = append(result.Files, FileReport{Name: c.name, Title: title, Outcome: outcome})
	metrics.ScanFilesProcessed.WithLabelValues(outcome).Inc()
}

// listCandidates validates dir and returns its ingestible files: regular,
// video extension, above the size floor. The listing is single-level.
func (s *Scanner) listCandidates(dir string) ([]candidate, error) {
	info, err := os.Stat(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrDirNotFound, dir)
		}
		return nil, fmt.Errorf("%w: %s: %v", ErrDirNotReadable, dir, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s", ErrNotDirectory, dir)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrDirNotReadable, dir, err)
	}

	var candidates []candidate
	for _, entry := range entries {
		if entry.IsDir() || !entry.Type().IsRegular() {
			continue
		}
		if !mediatypes.IsVideoFile(entry.Name()) {
			continue
		}
		entryInfo, err := entry.Info()
		if err != nil {
			continue
		}
		if entryInfo.Size() <= mediatypes.MinVideoSize {
			logging.Debug("Skipping %s: below size threshold (%d bytes)", entry.Name(), entryInfo.Size())
			continue
		}
		candidates = append(candidates, candidate{
			name: entry.Name(),
			path: filepath.Join(dir, entry.Name()),
			size: entryInfo.Size(),
		})
	}
	return candidates, nil
}

// splitByCompatibility classifies candidates into directly ingestible files
// and files that need conversion first.
func splitByCompatibility(candidates []candidate) ([]candidate, []IncompatibleFile) {
	var compatible []candidate
	var incompatible []IncompatibleFile

	for _, c := range candidates {
		verdict := mediatypes.Classify(c.path)
		if verdict.Compatible {
			compatible = append(compatible, c)
			continue
		}
		incompatible = append(incompatible, IncompatibleFile{
			Name:           c.name,
			SizeMB:         float64(c.size) / (1024 * 1024),
			Reason:         verdict.Reason,
			Recommendation: "convert to H.264 MP4 before cataloging",
		})
	}
	return compatible, incompatible
}

// thumbnailFilename builds a collision-proof artwork filename.
func (s *Scanner) thumbnailFilename() string {
	return filepath.Join(s.thumbDir, fmt.Sprintf("%d_%s.jpg", time.Now().UnixNano(), uuid.NewString()))
}

// throttleLookup enforces the inter-call delay toward the metadata provider.
func (s *Scanner) throttleLookup() {
	s.lookupMu.Lock()
	defer s.lookupMu.Unlock()

	if since := time.Since(s.lastLookup); since < s.enrichDelay {
		time.Sleep(s.enrichDelay - since)
	}
	s.lastLookup = time.Now()
}
