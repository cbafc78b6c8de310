package metrics

// InitializeMetrics pre-populates all expected label combinations so that
// every metric is exported from the first Prometheus scrape.
// Call this once at startup after metric registration.
func InitializeMetrics() {
	// --- Database files ---
	for _, file := range []string{"main", "wal", "shm"} {
		DBSizeBytes.WithLabelValues(file)
	}

	// --- DB query operations ---
	for _, op := range []string{"initialize_schema", "insert_movie", "get_movie",
		"find_by_title_or_path", "list_movies", "list_stale", "update_enrichment",
		"delete_movie", "count_movies", "touch_watch_progress"} {
		DBQueryTotal.WithLabelValues(op, "success")
		DBQueryTotal.WithLabelValues(op, "error")
		DBQueryDuration.WithLabelValues(op)
	}

	// --- Scan outcomes ---
	for _, status := range []string{"completed", "needs_conversion", "error"} {
		ScanRunsTotal.WithLabelValues(status)
	}
	for _, outcome := range []string{"added", "skipped", "skipped_incompatible", "error"} {
		ScanFilesProcessed.WithLabelValues(outcome)
	}

	// --- Thumbnail sources and strategies ---
	for _, source := range []string{"frame", "poster"} {
		ThumbnailGenerationsTotal.WithLabelValues(source, "success")
		ThumbnailGenerationsTotal.WithLabelValues(source, "error")
		ThumbnailGenerationDuration.WithLabelValues(source)
	}
	for _, strategy := range []string{"percent_10", "percent_5", "fixed_5s", "fixed_1s_scaled"} {
		ThumbnailStrategyAttempts.WithLabelValues(strategy, "success")
		ThumbnailStrategyAttempts.WithLabelValues(strategy, "error")
	}

	// --- Conversion outcomes ---
	for _, status := range []string{"success", "error", "canceled"} {
		ConversionJobsTotal.WithLabelValues(status)
	}

	// --- Enrichment outcomes ---
	for _, status := range []string{"hit", "miss", "error"} {
		EnrichmentLookupsTotal.WithLabelValues(status)
	}
	for _, status := range []string{"success", "error"} {
		PosterDownloadsTotal.WithLabelValues(status)
	}

	// --- Filesystem retry metrics (per retry-operation x volume) ---
	for _, op := range []string{"stat", "open"} {
		for _, vol := range []string{"movies", "data", "database", "unknown"} {
			FilesystemRetryAttempts.WithLabelValues(op, vol)
			FilesystemRetrySuccess.WithLabelValues(op, vol)
			FilesystemRetryFailures.WithLabelValues(op, vol)
			FilesystemStaleErrors.WithLabelValues(op, vol)
			FilesystemRetryDuration.WithLabelValues(op, vol)
		}
	}

	// --- Stream request types ---
	for _, t := range []string{"full", "range"} {
		for _, status := range []string{"success", "error", "client_gone"} {
			StreamRequestsTotal.WithLabelValues(t, status)
		}
	}
	StreamRequestsTotal.WithLabelValues("range", "unsatisfiable")
}
