package scanner

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode"

	"homeflix/internal/catalog"
	"homeflix/internal/logging"
	"homeflix/internal/omdb"
	"homeflix/internal/thumbnail"
)

// ingestFile catalogs one new media file. Returns the display title and the
// outcome ("added" or "skipped"). Enrichment and thumbnails are additive:
// their failures degrade the entry, never fail the ingestion.
func (s *Scanner) ingestFile(ctx context.Context, c candidate) (string, string, error) {
	title := deriveTitle(c.name)

	_, err := s.store.FindByTitleOrPath(ctx, title, c.path)
	switch {
	case err == nil:
		logging.Debug("Skipping %s: already cataloged", c.name)
		return title, "skipped", nil
	case !errors.Is(err, catalog.ErrNotFound):
		return title, "", err
	}

	info := s.probe.Extract(ctx, c.path)

	movie := &catalog.Movie{
		Title:           title,
		SourcePath:      c.path,
		FileSize:        info.FileSize,
		Format:          info.Format,
		DurationSeconds: info.DurationSeconds,
	}

	result := s.lookupMetadata(ctx, title)
	if result != nil {
		applyEnrichment(movie, &result.Enrichment)
		now := time.Now()
		movie.EnrichedAt = &now

		if result.PosterURL != "" {
			movie.ThumbnailPath = s.posterThumbnail(ctx, result.PosterURL)
		}
	}

	if movie.ThumbnailPath == "" {
		movie.ThumbnailPath = s.frameThumbnail(ctx, c.path, info.DurationSeconds)
	}
	movie.HasThumbnail = movie.ThumbnailPath != ""

	if err := s.store.Insert(ctx, movie); err != nil {
		if errors.Is(err, catalog.ErrDuplicate) {
			// Lost a race with another ingestion of the same path.
			s.removeThumbnail(movie.ThumbnailPath)
			return title, "skipped", nil
		}
		s.removeThumbnail(movie.ThumbnailPath)
		return title, "", err
	}

	logging.Info("Cataloged %s as %q (id %d)", c.name, movie.Title, movie.ID)
	return movie.Title, "added", nil
}

// lookupMetadata queries the provider with throttling. Any failure is a
// miss; ingestion proceeds unenriched.
func (s *Scanner) lookupMetadata(ctx context.Context, title string) *omdb.Result {
	if !s.enrich.Enabled() {
		return nil
	}

	s.throttleLookup()

	result, err := s.enrich.Lookup(ctx, title)
	if err != nil {
		logging.Warn("Metadata lookup for %q failed: %v", title, err)
		return nil
	}
	return result
}

// posterThumbnail downloads provider poster art and normalizes it into the
// artwork directory. Returns "" on any failure.
func (s *Scanner) posterThumbnail(ctx context.Context, posterURL string) string {
	data, err := s.enrich.DownloadPoster(ctx, posterURL)
	if err != nil {
		logging.Warn("Poster download failed: %v", err)
		return ""
	}

	outPath := s.thumbnailFilename()
	if err := s.thumbs.FromImage(data, outPath); err != nil {
		logging.Warn("Poster normalization failed: %v", err)
		return ""
	}
	return outPath
}

// frameThumbnail extracts a frame from the video under the per-call timeout.
// Returns "" on any failure.
func (s *Scanner) frameThumbnail(ctx context.Context, videoPath string, durationSeconds float64) string {
	ctx, cancel := context.WithTimeout(ctx, s.thumbnailTimeout)
	defer cancel()

	outPath := s.thumbnailFilename()
	if err := s.thumbs.Generate(ctx, videoPath, durationSeconds, outPath); err != nil {
		if !errors.Is(err, thumbnail.ErrNoThumbnail) {
			logging.Warn("Thumbnail generation for %s failed: %v", videoPath, err)
		}
		return ""
	}
	return outPath
}

// removeThumbnail cleans up artwork for an entry that never made it into
// the catalog.
func (s *Scanner) removeThumbnail(path string) {
	if path == "" {
		return
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		logging.Warn("failed to remove orphaned thumbnail %s: %v", path, err)
	}
}

// applyEnrichment merges provider fields into a new entry. The provider's
// canonical title wins over the filename-derived one.
func applyEnrichment(m *catalog.Movie, e *catalog.Enrichment) {
	if e.Title != "" {
		m.Title = e.Title
	}
	m.Description = e.Description
	m.Genre = e.Genre
	m.ReleaseYear = e.ReleaseYear
	m.Director = e.Director
	m.Actors = e.Actors
	m.Runtime = e.Runtime
	m.Rated = e.Rated
	m.Country = e.Country
	m.Language = e.Language
	m.Awards = e.Awards
	m.IMDbID = e.IMDbID
	m.IMDbRating = e.IMDbRating
}

// deriveTitle turns a filename into a display title: strip the extension
// and release-name noise, then title-case the words.
func deriveTitle(filename string) string {
	stem := strings.TrimSuffix(filename, filepath.Ext(filename))
	cleaned, _ := omdb.CleanTitle(stem)
	if cleaned == "" {
		cleaned = stem
	}
	return titleCase(cleaned)
}

// titleCase uppercases the first letter of each word, leaving the rest of
// each word untouched so acronyms survive.
func titleCase(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		r := []rune(w)
		r[0] = unicode.ToUpper(r[0])
		words[i] = string(r)
	}
	return strings.Join(words, " ")
}
