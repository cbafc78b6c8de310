package metrics

import (
	"sync"
	"testing"
)

func TestHTTPMetricsExist(t *testing.T) {
	tests := []struct {
		name   string
		metric interface{}
	}{
		{"HTTPRequestsTotal", HTTPRequestsTotal},
		{"HTTPRequestDuration", HTTPRequestDuration},
		{"HTTPRequestsInFlight", HTTPRequestsInFlight},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.metric == nil {
				t.Errorf("%s metric is nil", tt.name)
			}
		})
	}
}

func TestDatabaseMetricsExist(t *testing.T) {
	tests := []struct {
		name   string
		metric interface{}
	}{
		{"DBQueryTotal", DBQueryTotal},
		{"DBQueryDuration", DBQueryDuration},
		{"DBConnectionsOpen", DBConnectionsOpen},
		{"DBSizeBytes", DBSizeBytes},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.metric == nil {
				t.Errorf("%s metric is nil", tt.name)
			}
		})
	}
}

func TestPipelineMetricsExist(t *testing.T) {
	tests := []struct {
		name   string
		metric interface{}
	}{
		{"ScanRunsTotal", ScanRunsTotal},
		{"ScanDuration", ScanDuration},
		{"ScanFilesProcessed", ScanFilesProcessed},
		{"ScanIsRunning", ScanIsRunning},
		{"WatcherEventsTotal", WatcherEventsTotal},
		{"WatcherErrors", WatcherErrors},
		{"ThumbnailGenerationsTotal", ThumbnailGenerationsTotal},
		{"ThumbnailGenerationDuration", ThumbnailGenerationDuration},
		{"ThumbnailStrategyAttempts", ThumbnailStrategyAttempts},
		{"ConversionJobsTotal", ConversionJobsTotal},
		{"ConversionJobDuration", ConversionJobDuration},
		{"ConversionJobsInProgress", ConversionJobsInProgress},
		{"EnrichmentLookupsTotal", EnrichmentLookupsTotal},
		{"EnrichmentLookupDuration", EnrichmentLookupDuration},
		{"PosterDownloadsTotal", PosterDownloadsTotal},
		{"StreamRequestsTotal", StreamRequestsTotal},
		{"StreamBytesSent", StreamBytesSent},
		{"StreamsInProgress", StreamsInProgress},
		{"CatalogMoviesTotal", CatalogMoviesTotal},
		{"CatalogEnrichedTotal", CatalogEnrichedTotal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.metric == nil {
				t.Errorf("%s metric is nil", tt.name)
			}
		})
	}
}

func TestMetricsAreRegistered(t *testing.T) {
	// Test that metrics can be used without panic.
	// This verifies they're properly registered with Prometheus.

	t.Run("HTTP metrics", func(t *testing.T) {
		defer func() {
			if r := recover(); r != nil {
				t.Errorf("using HTTP metrics panicked: %v", r)
			}
		}()

		HTTPRequestsTotal.WithLabelValues("GET", "/", "200").Add(1)
		HTTPRequestDuration.WithLabelValues("GET", "/").Observe(0.1)
		HTTPRequestsInFlight.Inc()
		HTTPRequestsInFlight.Dec()
	})

	t.Run("Database metrics", func(t *testing.T) {
		defer func() {
			if r := recover(); r != nil {
				t.Errorf("using DB metrics panicked: %v", r)
			}
		}()

		DBQueryTotal.WithLabelValues("get_movie", "success").Add(1)
		DBQueryDuration.WithLabelValues("get_movie").Observe(0.01)
		DBConnectionsOpen.Set(10)
		DBSizeBytes.WithLabelValues("main").Set(1024)
	})

	t.Run("Scan metrics", func(t *testing.T) {
		defer func() {
			if r := recover(); r != nil {
				t.Errorf("using scan metrics panicked: %v", r)
			}
		}()

		ScanRunsTotal.WithLabelValues("completed").Inc()
		ScanFilesProcessed.WithLabelValues("added").Add(5)
		ScanDuration.Observe(12.5)
		ScanIsRunning.Set(1)
		ScanIsRunning.Set(0)
	})

	t.Run("Stream metrics", func(t *testing.T) {
		defer func() {
			if r := recover(); r != nil {
				t.Errorf("using stream metrics panicked: %v", r)
			}
		}()

		StreamRequestsTotal.WithLabelValues("range", "success").Inc()
		StreamBytesSent.Add(1 << 20)
		StreamsInProgress.Inc()
		StreamsInProgress.Dec()
	})
}

func TestInitializeMetrics(t *testing.T) {
	defer func() {
		if r := recover(); r != nil {
			t.Errorf("InitializeMetrics panicked: %v", r)
		}
	}()
	InitializeMetrics()
}

func TestSetAppInfo(t *testing.T) {
	defer func() {
		if r := recover(); r != nil {
			t.Errorf("SetAppInfo panicked: %v", r)
		}
	}()
	SetAppInfo("1.0.0", "abc123", "go1.25")
}

func TestMetricsConcurrentAccess(t *testing.T) {
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				HTTPRequestsTotal.WithLabelValues("GET", "/api/movies", "200").Inc()
				StreamBytesSent.Add(1)
				ScanFilesProcessed.WithLabelValues("skipped").Inc()
			}
		}()
	}
	wg.Wait()
}

func BenchmarkHTTPMetricsIncrement(b *testing.B) {
	for i := 0; i < b.N; i++ {
		HTTPRequestsTotal.WithLabelValues("GET", "/", "200").Inc()
	}
}

func BenchmarkStreamBytesSent(b *testing.B) {
	for i := 0; i < b.N; i++ {
		StreamBytesSent.Add(64 * 1024)
	}
}
