package metrics

import (
	"testing"
	"time"
)

type mockStatsProvider struct {
	stats Stats
}

func (m *mockStatsProvider) GetStats() Stats {
	return m.stats
}

func TestNewCollector(t *testing.T) {
	provider := &mockStatsProvider{
		stats: Stats{
			TotalMovies:   100,
			TotalEnriched: 80,
		},
	}

	collector := NewCollector(provider, 5*time.Second)

	if collector == nil {
		t.Fatal("NewCollector returned nil")
	}

	if collector.statsProvider != provider {
		t.Error("statsProvider not set correctly")
	}

	if collector.interval != 5*time.Second {
		t.Errorf("interval = %v, want %v", collector.interval, 5*time.Second)
	}

	if collector.stopChan == nil {
		t.Error("stopChan not initialized")
	}
}

func TestNewCollectorWithNilProvider(t *testing.T) {
	collector := NewCollector(nil, 5*time.Second)

	if collector == nil {
		t.Fatal("NewCollector returned nil")
	}

	// collect with a nil provider must be a no-op, not a panic
	collector.collect()
}

func TestCollectorStartStop(_ *testing.T) {
	provider := &mockStatsProvider{
		stats: Stats{TotalMovies: 50},
	}

	collector := NewCollector(provider, 50*time.Millisecond)
	collector.Start()
	time.Sleep(120 * time.Millisecond)
	collector.Stop()
}

func TestCollectorUpdatesGauges(t *testing.T) {
	provider := &mockStatsProvider{
		stats: Stats{
			TotalMovies:   42,
			TotalEnriched: 17,
		},
	}

	collector := NewCollector(provider, time.Hour)
	collector.collect()

	// Read back through the testable parts of the prometheus client:
	// gauge values are not directly readable without a registry scrape, so
	// the assertion here is the absence of a panic plus a second collect
	// with updated stats.
	provider.stats.TotalMovies = 43
	collector.collect()

	if provider.GetStats().TotalMovies != 43 {
		t.Errorf("GetStats().TotalMovies = %d, want 43", provider.GetStats().TotalMovies)
	}
}
