// Package omdb looks up movie metadata from the OMDb API.
//
// The client is optional: with no API key configured every lookup is a
// no-op and the catalog simply stays unenriched. Provider misses are not
// errors either, so a library full of home videos never fails a scan.
package omdb

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"homeflix/internal/catalog"
	"homeflix/internal/logging"
	"homeflix/internal/metrics"
)

const defaultBaseURL = "https://www.omdbapi.com/"

// maxPosterBytes bounds poster downloads so a misbehaving URL cannot
// exhaust memory.
const maxPosterBytes = 10 << 20

// Client talks to the OMDb API.
type Client struct {
	apiKey  string
	baseURL string

	// Lookups are cheap JSON; posters are full images and get more time.
	httpc   *http.Client
	posterc *http.Client
}

// New creates a Client. baseURL is overridable for tests; empty means the
// public OMDb endpoint. An empty apiKey yields a disabled client.
func New(apiKey, baseURL string) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &Client{
		apiKey:  strings.TrimSpace(apiKey),
		baseURL: baseURL,
		httpc:   &http.Client{Timeout: 10 * time.Second},
		posterc: &http.Client{Timeout: 30 * time.Second},
	}
}

// Enabled reports whether the client has an API key to work with.
func (c *Client) Enabled() bool {
	return c != nil && c.apiKey != ""
}

// response mirrors the OMDb JSON payload. Every field is a string;
// "N/A" stands in for absent values.
type response struct {
	Title      string `json:"Title"`
	Year       string `json:"Year"`
	Rated      string `json:"Rated"`
	Runtime    string `json:"Runtime"`
	Genre      string `json:"Genre"`
	Director   string `json:"Director"`
	Actors     string `json:"Actors"`
	Plot       string `json:"Plot"`
	Language   string `json:"Language"`
	Country    string `json:"Country"`
	Awards     string `json:"Awards"`
	Poster     string `json:"Poster"`
	IMDbRating string `json:"imdbRating"`
	IMDbID     string `json:"imdbID"`
	Response   string `json:"Response"`
	Error      string `json:"Error"`
}

// Result is a successful provider lookup: the enrichment fields plus the
// poster URL for a separate download.
type Result struct {
	Enrichment catalog.Enrichment
	PosterURL  string
}

// Lookup searches OMDb for the movie named by rawTitle (typically a
// filename stem). A provider miss returns (nil, nil); only transport and
// decode failures are errors.
func (c *Client) Lookup(ctx context.Context, rawTitle string) (*Result, error) {
	if !c.Enabled() {
		return nil, nil
	}

	title, year := CleanTitle(rawTitle)
	if title == "" {
		metrics.EnrichmentLookupsTotal.WithLabelValues("miss").Inc()
		return nil, nil
	}

	params := url.Values{}
	params.Set("apikey", c.apiKey)
	params.Set("t", title)
	params.Set("type", "movie")
	params.Set("plot", "full")
	if year != "" {
		params.Set("y", year)
	}

	start := time.Now()
	var body response
	err := c.getJSON(ctx, c.baseURL+"?"+params.Encode(), &body)
	metrics.EnrichmentLookupDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.EnrichmentLookupsTotal.WithLabelValues("error").Inc()
		return nil, err
	}

	if body.Response != "True" {
		metrics.EnrichmentLookupsTotal.WithLabelValues("miss").Inc()
		logging.Debug("OMDb miss for %q (cleaned from %q): %s", title, rawTitle, body.Error)
		return nil, nil
	}

	metrics.EnrichmentLookupsTotal.WithLabelValues("hit").Inc()
	return &Result{
		Enrichment: catalog.Enrichment{
			Title:       na(body.Title),
			Description: na(body.Plot),
			Genre:       na(body.Genre),
			ReleaseYear: parseYear(body.Year),
			Director:    na(body.Director),
			Actors:      na(body.Actors),
			Runtime:     na(body.Runtime),
			Rated:       na(body.Rated),
			Country:     na(body.Country),
			Language:    na(body.Language),
			Awards:      na(body.Awards),
			IMDbID:      na(body.IMDbID),
			IMDbRating:  parseRating(body.IMDbRating),
		},
		PosterURL: na(body.Poster),
	}, nil
}

// DownloadPoster fetches poster art. Poster failures are isolated from the
// lookup succeeding, so a dead image host still leaves the text metadata
// applied.
func (c *Client) DownloadPoster(ctx context.Context, posterURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, posterURL, nil)
	if err != nil {
		metrics.PosterDownloadsTotal.WithLabelValues("error").Inc()
		return nil, err
	}

	resp, err := c.posterc.Do(req)
	if err != nil {
		metrics.PosterDownloadsTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("poster download failed: %w", err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			logging.Debug("failed to close poster response body: %v", err)
		}
	}()

	if resp.StatusCode != http.StatusOK {
		metrics.PosterDownloadsTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("poster download failed: %s", resp.Status)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxPosterBytes))
	if err != nil {
		metrics.PosterDownloadsTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("poster download failed: %w", err)
	}

	metrics.PosterDownloadsTotal.WithLabelValues("success").Inc()
	return data, nil
}

func (c *Client) getJSON(ctx context.Context, endpoint string, v any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return fmt.Errorf("omdb request failed: %w", err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			logging.Debug("failed to close omdb response body: %v", err)
		}
	}()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("omdb request failed: %s", resp.Status)
	}

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("failed to decode omdb response: %w", err)
	}
	return nil
}

// na maps OMDb's "N/A" placeholder to the empty string.
func na(s string) string {
	if s == "N/A" {
		return ""
	}
	return s
}

// parseYear handles both plain years and ranges like "2019-2021".
func parseYear(s string) int {
	s = na(s)
	if len(s) >= 4 {
		if y, err := strconv.Atoi(s[:4]); err == nil {
			return y
		}
	}
	return 0
}

func parseRating(s string) *float64 {
	s = na(s)
	if s == "" {
		return nil
	}
	r, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	return &r
}
