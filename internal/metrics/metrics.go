package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// HTTP metrics
var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "homeflix_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "homeflix_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	HTTPRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "homeflix_http_requests_in_flight",
			Help: "Number of HTTP requests currently being processed",
		},
	)
)

// Database metrics
var (
	DBQueryTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "homeflix_db_queries_total",
			Help: "Total number of database queries",
		},
		[]string{"operation", "status"},
	)

	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "homeflix_db_query_duration_seconds",
			Help:    "Database query duration in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"operation"},
	)

	DBConnectionsOpen = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "homeflix_db_connections_open",
			Help: "Number of open database connections",
		},
	)

	DBSizeBytes = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "homeflix_db_size_bytes",
			Help: "Size of SQLite database files in bytes",
		},
		[]string{"file"}, // "main", "wal", "shm"
	)
)

// Scanner metrics
var (
	ScanRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "homeflix_scan_runs_total",
			Help: "Total number of catalog scan runs",
		},
		[]string{"status"}, // "completed", "needs_conversion", "error"
	)

	ScanDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "homeflix_scan_duration_seconds",
			Help:    "Catalog scan duration in seconds",
			Buckets: []float64{0.1, 0.5, 1, 5, 15, 30, 60, 300, 900},
		},
	)

	ScanFilesProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "homeflix_scan_files_total",
			Help: "Total number of files handled by scans by outcome",
		},
		[]string{"outcome"}, // "added", "skipped", "skipped_incompatible", "error"
	)

	ScanIsRunning = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "homeflix_scan_running",
			Help: "Whether a catalog scan is currently running (1 = running, 0 = idle)",
		},
	)

	WatcherEventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "homeflix_watcher_events_total",
			Help: "Total number of filesystem watcher events",
		},
		[]string{"event_type"},
	)

	WatcherErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "homeflix_watcher_errors_total",
			Help: "Total number of filesystem watcher errors",
		},
	)
)

// Thumbnail metrics
var (
	ThumbnailGenerationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "homeflix_thumbnail_generations_total",
			Help: "Total number of thumbnail generations",
		},
		[]string{"source", "status"}, // source: "frame" or "poster"
	)

	ThumbnailGenerationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "homeflix_thumbnail_generation_duration_seconds",
			Help:    "Thumbnail generation duration in seconds",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"source"},
	)

	ThumbnailStrategyAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "homeflix_thumbnail_strategy_attempts_total",
			Help: "Total number of frame extraction attempts by strategy",
		},
		[]string{"strategy", "status"},
	)
)

// Catalog metrics
var (
	CatalogMoviesTotal = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "homeflix_catalog_movies_total",
			Help: "Total number of movies in the catalog",
		},
	)

	CatalogEnrichedTotal = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "homeflix_catalog_enriched_total",
			Help: "Number of catalog entries with provider metadata",
		},
	)
)

// Conversion metrics
var (
	ConversionJobsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "homeflix_conversion_jobs_total",
			Help: "Total number of conversion jobs",
		},
		[]string{"status"},
	)

	ConversionJobDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "homeflix_conversion_job_duration_seconds",
			Help:    "Conversion job duration in seconds",
			Buckets: []float64{1, 5, 10, 30, 60, 120, 300, 600, 1800},
		},
	)

	ConversionJobsInProgress = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "homeflix_conversion_jobs_in_progress",
			Help: "Number of conversion jobs currently in progress",
		},
	)
)

// Enrichment metrics
var (
	EnrichmentLookupsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "homeflix_enrichment_lookups_total",
			Help: "Total number of metadata provider lookups",
		},
		[]string{"status"}, // "hit", "miss", "error"
	)

	EnrichmentLookupDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "homeflix_enrichment_lookup_duration_seconds",
			Help:    "Metadata provider lookup duration in seconds",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
	)

	PosterDownloadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "homeflix_poster_downloads_total",
			Help: "Total number of poster downloads",
		},
		[]string{"status"},
	)
)

// Streaming metrics
var (
	StreamRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "homeflix_stream_requests_total",
			Help: "Total number of stream requests",
		},
		[]string{"type", "status"}, // type: "full" or "range"
	)

	StreamBytesSent = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "homeflix_stream_bytes_sent_total",
			Help: "Total number of media bytes sent to clients",
		},
	)

	StreamsInProgress = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "homeflix_streams_in_progress",
			Help: "Number of streams currently being served",
		},
	)
)

// Filesystem retry metrics (NFS resilience)
var (
	FilesystemRetryAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "homeflix_fs_retry_attempts_total",
			Help: "Total number of filesystem operation retries",
		},
		[]string{"operation", "volume"},
	)

	FilesystemRetrySuccess = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "homeflix_fs_retry_success_total",
			Help: "Total number of filesystem operations that succeeded after retry",
		},
		[]string{"operation", "volume"},
	)

	FilesystemRetryFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "homeflix_fs_retry_failures_total",
			Help: "Total number of filesystem operations that failed after all retries",
		},
		[]string{"operation", "volume"},
	)

	FilesystemStaleErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "homeflix_fs_stale_errors_total",
			Help: "Total number of NFS stale file handle errors",
		},
		[]string{"operation", "volume"},
	)

	FilesystemRetryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "homeflix_fs_retry_duration_seconds",
			Help:    "Filesystem operation duration including retries in seconds",
			Buckets: []float64{0.0001, 0.001, 0.01, 0.05, 0.1, 0.5, 1, 2.5},
		},
		[]string{"operation", "volume"},
	)
)

// Application info metric
var (
	AppInfo = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "homeflix_app_info",
			Help: "Application information",
		},
		[]string{"version", "commit", "go_version"},
	)
)

// SetAppInfo sets the application info metric
func SetAppInfo(version, commit, goVersion string) {
	AppInfo.WithLabelValues(version, commit, goVersion).Set(1)
}
