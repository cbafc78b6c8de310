package scanner

import (
	"context"
	"time"

	"homeflix/internal/catalog"
	"homeflix/internal/logging"
)

// Refresh batch bounds. Entries are re-checked after staleAfter; each run
// handles at most refreshLimit rows so a large catalog drains over several
// runs without hammering the provider.
const (
	staleAfter   = 30 * 24 * time.Hour
	refreshLimit = 50
)

// RefreshResult summarizes a metadata refresh run.
type RefreshResult struct {
	Checked int `json:"checked"`
	Updated int `json:"updated"`
	Errors  int `json:"errors"`
}

// RefreshMetadata re-queries the provider for entries that were never
// enriched or whose enrichment is older than the staleness window. A
// provider miss still stamps the entry as checked so it rotates to the
// back of the stale queue.
func (s *Scanner) RefreshMetadata(ctx context.Context) (*RefreshResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.enrich.Enabled() {
		logging.Info("Metadata refresh skipped: no provider configured")
		return &RefreshResult{}, nil
	}

	cutoff := time.Now().Add(-staleAfter)
	stale, err := s.store.ListStale(ctx, cutoff, refreshLimit)
	if err != nil {
		return nil, err
	}

	result := &RefreshResult{}
	logging.Info("Refreshing metadata for %d stale entries", len(stale))

	for _, m := range stale {
		if ctx.Err() != nil {
			return result, ctx.Err()
		}
		result.Checked++

		if err := s.refreshOne(ctx, m); err != nil {
			logging.Warn("Metadata refresh for %q (id %d) failed: %v", m.Title, m.ID, err)
			result.Errors++
			continue
		}
		result.Updated++
	}

	logging.Info("Metadata refresh finished: %d checked, %d updated, %d errors",
		result.Checked, result.Updated, result.Errors)
	return result, nil
}

// refreshOne re-enriches a single entry. A transport error leaves the row
// unstamped so the next run retries it; a clean miss stamps it.
func (s *Scanner) refreshOne(ctx context.Context, m *catalog.Movie) error {
	s.throttleLookup()

	lookup, err := s.enrich.Lookup(ctx, m.Title)
	if err != nil {
		return err
	}

	e := &catalog.Enrichment{}
	if lookup != nil {
		*e = lookup.Enrichment

		if lookup.PosterURL != "" && !m.HasThumbnail {
			if path := s.posterThumbnail(ctx, lookup.PosterURL); path != "" {
				e.ThumbnailPath = path
			}
		}
	}

	return s.store.UpdateEnrichment(ctx, m.ID, e)
}
