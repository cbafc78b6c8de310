// Package metrics provides Prometheus instrumentation for the homeflix server.
//
// This package defines and exposes various metrics that can be scraped by Prometheus
// to monitor the health, performance, and behavior of the application. All metrics
// are prefixed with "homeflix_" to avoid naming collisions with other applications.
//
// # Metric Categories
//
// The metrics are organized into the following categories:
//
// ## HTTP Metrics
//
// Track HTTP request performance and error rates:
//   - HTTPRequestsTotal: Counter of total requests by method, path, and status
//   - HTTPRequestDuration: Histogram of request duration by method and path
//   - HTTPRequestsInFlight: Gauge of currently processing requests
//
// ## Database Metrics
//
// Monitor database query performance and storage:
//   - DBQueryTotal: Counter of queries by operation and status
//   - DBQueryDuration: Histogram of query duration by operation
//   - DBConnectionsOpen: Gauge of open database connections
//   - DBSizeBytes: Gauge of database file sizes (main, WAL, SHM)
//
// ## Scanner Metrics
//
// Track catalog scan runs and per-file outcomes:
//   - ScanRunsTotal, ScanDuration, ScanFilesProcessed, ScanIsRunning
//   - WatcherEventsTotal, WatcherErrors for the optional directory watch
//
// ## Thumbnail, Conversion, Enrichment and Streaming Metrics
//
// Each pipeline stage records attempts, outcomes and durations:
//   - ThumbnailGenerationsTotal, ThumbnailStrategyAttempts
//   - ConversionJobsTotal, ConversionJobDuration, ConversionJobsInProgress
//   - EnrichmentLookupsTotal, PosterDownloadsTotal
//   - StreamRequestsTotal, StreamBytesSent, StreamsInProgress
//
// # Recording Metrics
//
// To record metrics from other packages, import this package and use the
// exported metric variables:
//
//	import "homeflix/internal/metrics"
//
//	// Increment a counter
//	metrics.StreamRequestsTotal.WithLabelValues("range", "success").Inc()
//
//	// Observe a histogram value
//	metrics.HTTPRequestDuration.WithLabelValues("GET", "/api/movies").Observe(0.123)
//
//	// Set a gauge value
//	metrics.DBConnectionsOpen.Set(5)
//
// # Collector
//
// The package provides a [Collector] type that periodically gathers
// statistics from a [StatsProvider] and updates the corresponding gauges:
//
//	collector := metrics.NewCollector(statsProvider, 1*time.Minute)
//	collector.Start()
//	defer collector.Stop()
//
// # Prometheus Queries
//
// Example PromQL queries for common use cases:
//
// Request rate by endpoint:
//
//	sum(rate(homeflix_http_requests_total[5m])) by (path)
//
// P95 response time:
//
//	histogram_quantile(0.95, sum(rate(homeflix_http_request_duration_seconds_bucket[5m])) by (le))
//
// Streaming throughput:
//
//	rate(homeflix_stream_bytes_sent_total[5m])
//
// Enrichment hit rate:
//
//	rate(homeflix_enrichment_lookups_total{status="hit"}[1h]) /
//	rate(homeflix_enrichment_lookups_total[1h])
//
// Database query latency by operation:
//
//	histogram_quantile(0.95, sum(rate(homeflix_db_query_duration_seconds_bucket[5m])) by (le, operation))
package metrics
