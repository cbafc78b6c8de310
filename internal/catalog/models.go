package catalog

import (
	"errors"
	"time"
)

// ErrNotFound is returned when a catalog entry does not exist.
var ErrNotFound = errors.New("movie not found")

// ErrDuplicate is returned when an insert collides with an existing
// source path. Callers treat this as "already cataloged", not a failure.
var ErrDuplicate = errors.New("movie already exists for this source path")

// Movie is a catalog entry. SourcePath is the identity of the underlying
// media file and carries a UNIQUE constraint; Title is advisory display
// metadata that may legitimately collide.
type Movie struct {
	ID              int64      `json:"id"`
	Title           string     `json:"title"`
	SourcePath      string     `json:"-"`
	FileSize        int64      `json:"fileSize"`
	Format          string     `json:"format"`
	DurationSeconds float64    `json:"durationSeconds"`
	Description     string     `json:"description,omitempty"`
	Genre           string     `json:"genre,omitempty"`
	ReleaseYear     int        `json:"releaseYear,omitempty"`
	Director        string     `json:"director,omitempty"`
	Actors          string     `json:"actors,omitempty"`
	Runtime         string     `json:"runtime,omitempty"`
	Rated           string     `json:"rated,omitempty"`
	Country         string     `json:"country,omitempty"`
	Language        string     `json:"language,omitempty"`
	Awards          string     `json:"awards,omitempty"`
	IMDbID          string     `json:"imdbId,omitempty"`
	IMDbRating      *float64   `json:"imdbRating,omitempty"`
	ThumbnailPath   string     `json:"-"`
	HasThumbnail    bool       `json:"hasThumbnail"`
	EnrichedAt      *time.Time `json:"enrichedAt,omitempty"`
	CreatedAt       time.Time  `json:"createdAt"`
}

// Enrichment carries the provider-derived fields applied to an existing
// entry. Zero values mean "provider had nothing"; UpdateEnrichment writes
// them as-is and stamps enriched_at regardless, so a miss still counts as
// a completed check.
type Enrichment struct {
	Title       string
	Description string
	Genre       string
	ReleaseYear int
	Director    string
	Actors      string
	Runtime     string
	Rated       string
	Country     string
	Language    string
	Awards      string
	IMDbID      string
	IMDbRating  *float64
	// ThumbnailPath replaces the stored thumbnail when non-empty
	// (a freshly downloaded poster).
	ThumbnailPath string
}

// WatchProgress records how far a viewer has gotten into a movie.
type WatchProgress struct {
	ViewerID    string    `json:"viewerId"`
	MovieID     int64     `json:"movieId"`
	WatchTime   float64   `json:"watchTime"`
	LastWatched time.Time `json:"lastWatched"`
}

// Stats summarizes the catalog for metrics and the health surface.
type Stats struct {
	TotalMovies   int `json:"totalMovies"`
	TotalEnriched int `json:"totalEnriched"`
}
