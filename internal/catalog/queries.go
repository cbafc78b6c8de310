package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"time"

	sqlite3 "github.com/mattn/go-sqlite3"

	"homeflix/internal/logging"
)

const movieColumns = `id, title, source_path, file_size, format, duration_seconds,
	description, genre, release_year, director, actors, runtime, rated,
	country, language, awards, imdb_id, imdb_rating, thumbnail_path,
	enriched_at, created_at`

// scanMovie scans one movies row. The row source must select movieColumns
// in order.
func scanMovie(row interface{ Scan(...interface{}) error }) (*Movie, error) {
	var m Movie
	var enrichedAt sql.NullInt64
	var createdAt int64

	err := row.Scan(
		&m.ID, &m.Title, &m.SourcePath, &m.FileSize, &m.Format, &m.DurationSeconds,
		&m.Description, &m.Genre, &m.ReleaseYear, &m.Director, &m.Actors, &m.Runtime, &m.Rated,
		&m.Country, &m.Language, &m.Awards, &m.IMDbID, &m.IMDbRating, &m.ThumbnailPath,
		&enrichedAt, &createdAt,
	)
	if err != nil {
		return nil, err
	}

	if enrichedAt.Valid {
		t := time.Unix(enrichedAt.Int64, 0)
		m.EnrichedAt = &t
	}
	m.CreatedAt = time.Unix(createdAt, 0)
	m.HasThumbnail = m.ThumbnailPath != ""
	return &m, nil
}

// isUniqueViolation reports whether err is a sqlite UNIQUE constraint failure.
func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
			sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	return false
}

// Insert adds a new catalog entry and returns it with its assigned ID.
// A source_path collision (another scan got there first) returns
// ErrDuplicate.
func (s *Store) Insert(ctx context.Context, m *Movie) error {
	start := time.Now()
	var err error
	defer func() { recordQuery("insert_movie", start, err) }()

	s.mu.Lock()
	defer s.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var enrichedAt interface{}
	if m.EnrichedAt != nil {
		enrichedAt = m.EnrichedAt.Unix()
	}

	var result sql.Result
	result, err = s.db.ExecContext(ctx, `
		INSERT INTO movies (title, source_path, file_size, format, duration_seconds,
			description, genre, release_year, director, actors, runtime, rated,
			country, language, awards, imdb_id, imdb_rating, thumbnail_path, enriched_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		m.Title, m.SourcePath, m.FileSize, m.Format, m.DurationSeconds,
		m.Description, m.Genre, m.ReleaseYear, m.Director, m.Actors, m.Runtime, m.Rated,
		m.Country, m.Language, m.Awards, m.IMDbID, m.IMDbRating, m.ThumbnailPath, enrichedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			err = nil // recorded as success; duplicates are an expected race outcome
			return ErrDuplicate
		}
		return fmt.Errorf("failed to insert movie: %w", err)
	}

	id, idErr := result.LastInsertId()
	if idErr != nil {
		return fmt.Errorf("failed to read inserted id: %w", idErr)
	}
	m.ID = id
	m.CreatedAt = time.Now()
	m.HasThumbnail = m.ThumbnailPath != ""
	return nil
}

// GetByID retrieves a single catalog entry.
func (s *Store) GetByID(ctx context.Context, id int64) (*Movie, error) {
	start := time.Now()
	var err error
	defer func() { recordQuery("get_movie", start, err) }()

	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	m, err := scanMovie(s.db.QueryRowContext(ctx,
		"SELECT "+movieColumns+" FROM movies WHERE id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		err = nil
		return nil, ErrNotFound
	}
	return m, err
}

// FindByTitleOrPath returns an existing entry that matches either the display
// title (advisory dedup) or the source path (identity), or ErrNotFound.
func (s *Store) FindByTitleOrPath(ctx context.Context, title, sourcePath string) (*Movie, error) {
	start := time.Now()
	var err error
	defer func() { recordQuery("find_by_title_or_path", start, err) }()

	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	m, err := scanMovie(s.db.QueryRowContext(ctx,
		"SELECT "+movieColumns+" FROM movies WHERE title = ? COLLATE NOCASE OR source_path = ? LIMIT 1",
		title, sourcePath))
	if errors.Is(err, sql.ErrNoRows) {
		err = nil
		return nil, ErrNotFound
	}
	return m, err
}

// List returns all catalog entries ordered by most recently added.
func (s *Store) List(ctx context.Context) ([]*Movie, error) {
	start := time.Now()
	var err error
	defer func() { recordQuery("list_movies", start, err) }()

	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	rows, err := s.db.QueryContext(ctx,
		"SELECT "+movieColumns+" FROM movies ORDER BY created_at DESC, id DESC")
	if err != nil {
		return nil, fmt.Errorf("failed to list movies: %w", err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			logging.Debug("rows close: %v", closeErr)
		}
	}()

	movies := make([]*Movie, 0)
	for rows.Next() {
		m, scanErr := scanMovie(rows)
		if scanErr != nil {
			err = scanErr
			return nil, fmt.Errorf("failed to scan movie: %w", scanErr)
		}
		movies = append(movies, m)
	}
	err = rows.Err()
	return movies, err
}

// ListStale returns up to limit entries whose provider metadata is older than
// cutoff, including entries never enriched at all. Oldest first so repeated
// refresh runs make progress through a large catalog.
func (s *Store) ListStale(ctx context.Context, cutoff time.Time, limit int) ([]*Movie, error) {
	start := time.Now()
	var err error
	defer func() { recordQuery("list_stale", start, err) }()

	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	rows, err := s.db.QueryContext(ctx,
		"SELECT "+movieColumns+` FROM movies
		WHERE enriched_at IS NULL OR enriched_at < ?
		ORDER BY enriched_at ASC NULLS FIRST, id ASC
		LIMIT ?`,
		cutoff.Unix(), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list stale movies: %w", err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			logging.Debug("rows close: %v", closeErr)
		}
	}()

	movies := make([]*Movie, 0)
	for rows.Next() {
		m, scanErr := scanMovie(rows)
		if scanErr != nil {
			err = scanErr
			return nil, fmt.Errorf("failed to scan movie: %w", scanErr)
		}
		movies = append(movies, m)
	}
	err = rows.Err()
	return movies, err
}

// UpdateEnrichment applies provider metadata to an entry and stamps
// enriched_at. Empty provider fields overwrite nothing; the stamp is written
// even for an all-empty enrichment so misses are not re-queried every run.
func (s *Store) UpdateEnrichment(ctx context.Context, id int64, e *Enrichment) error {
	start := time.Now()
	var err error
	defer func() { recordQuery("update_enrichment", start, err) }()

	s.mu.Lock()
	defer s.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var result sql.Result
	result, err = s.db.ExecContext(ctx, `
		UPDATE movies SET
			title = CASE WHEN ? != '' THEN ? ELSE title END,
			description = CASE WHEN ? != '' THEN ? ELSE description END,
			genre = CASE WHEN ? != '' THEN ? ELSE genre END,
			release_year = CASE WHEN ? != 0 THEN ? ELSE release_year END,
			director = CASE WHEN ? != '' THEN ? ELSE director END,
			actors = CASE WHEN ? != '' THEN ? ELSE actors END,
			runtime = CASE WHEN ? != '' THEN ? ELSE runtime END,
			rated = CASE WHEN ? != '' THEN ? ELSE rated END,
			country = CASE WHEN ? != '' THEN ? ELSE country END,
			language = CASE WHEN ? != '' THEN ? ELSE language END,
			awards = CASE WHEN ? != '' THEN ? ELSE awards END,
			imdb_id = CASE WHEN ? != '' THEN ? ELSE imdb_id END,
			imdb_rating = COALESCE(?, imdb_rating),
			thumbnail_path = CASE WHEN ? != '' THEN ? ELSE thumbnail_path END,
			enriched_at = strftime('%s', 'now')
		WHERE id = ?`,
		e.Title, e.Title,
		e.Description, e.Description,
		e.Genre, e.Genre,
		e.ReleaseYear, e.ReleaseYear,
		e.Director, e.Director,
		e.Actors, e.Actors,
		e.Runtime, e.Runtime,
		e.Rated, e.Rated,
		e.Country, e.Country,
		e.Language, e.Language,
		e.Awards, e.Awards,
		e.IMDbID, e.IMDbID,
		e.IMDbRating,
		e.ThumbnailPath, e.ThumbnailPath,
		id,
	)
	if err != nil {
		return fmt.Errorf("failed to update enrichment: %w", err)
	}

	rows, rowsErr := result.RowsAffected()
	if rowsErr == nil && rows == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes a catalog entry and its generated thumbnail file.
// The source media file is never touched.
func (s *Store) Delete(ctx context.Context, id int64) error {
	start := time.Now()
	var err error
	defer func() { recordQuery("delete_movie", start, err) }()

	m, err := s.GetByID(ctx, id)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	if _, err = s.db.ExecContext(ctx, "DELETE FROM movies WHERE id = ?", id); err != nil {
		return fmt.Errorf("failed to delete movie: %w", err)
	}

	if m.ThumbnailPath != "" {
		if rmErr := os.Remove(m.ThumbnailPath); rmErr != nil && !os.IsNotExist(rmErr) {
			logging.Warn("failed to remove thumbnail %s: %v", m.ThumbnailPath, rmErr)
		}
	}
	return nil
}

// Count returns the number of catalog entries.
func (s *Store) Count(ctx context.Context) (int, error) {
	start := time.Now()
	var err error
	defer func() { recordQuery("count_movies", start, err) }()

	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var count int
	err = s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM movies").Scan(&count)
	return count, err
}

// TouchWatchProgress upserts a viewer's playback position for a movie.
// Watch time only moves forward; an older position never overwrites a
// newer one.
func (s *Store) TouchWatchProgress(ctx context.Context, viewerID string, movieID int64, watchTime float64) error {
	start := time.Now()
	var err error
	defer func() { recordQuery("touch_watch_progress", start, err) }()

	s.mu.Lock()
	defer s.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO watch_history (viewer_id, movie_id, watch_time, last_watched)
		VALUES (?, ?, ?, strftime('%s', 'now'))
		ON CONFLICT(viewer_id, movie_id) DO UPDATE SET
			watch_time = MAX(watch_history.watch_time, excluded.watch_time),
			last_watched = strftime('%s', 'now')`,
		viewerID, movieID, watchTime,
	)
	if err != nil {
		return fmt.Errorf("failed to record watch progress: %w", err)
	}
	return nil
}

// GetWatchProgress returns a viewer's playback position, or ErrNotFound if
// the viewer has never watched this movie.
func (s *Store) GetWatchProgress(ctx context.Context, viewerID string, movieID int64) (*WatchProgress, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var wp WatchProgress
	var lastWatched int64
	err := s.db.QueryRowContext(ctx, `
		SELECT viewer_id, movie_id, watch_time, last_watched
		FROM watch_history WHERE viewer_id = ? AND movie_id = ?`,
		viewerID, movieID,
	).Scan(&wp.ViewerID, &wp.MovieID, &wp.WatchTime, &lastWatched)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	wp.LastWatched = time.Unix(lastWatched, 0)
	return &wp, nil
}
