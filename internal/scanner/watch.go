package scanner

import (
	"context"
	"strings"
	"time"

	"homeflix/internal/logging"
	"homeflix/internal/mediatypes"
	"homeflix/internal/metrics"

	"github.com/fsnotify/fsnotify"
)

// debounceWindow batches the burst of events a file copy produces into a
// single rescan, and gives the copy time to finish.
const debounceWindow = 5 * time.Second

// Watch monitors dir for new media files and triggers a scan when they
// appear. Watch-triggered scans skip incompatible files so unattended
// operation never pauses on a conversion prompt. Blocks until ctx is done.
func (s *Scanner) Watch(ctx context.Context, dir string) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		logging.Error("Failed to create file watcher: %v", err)
		metrics.WatcherErrors.Inc()
		return
	}
	defer func() {
		if err := watcher.Close(); err != nil {
			logging.Error("failed to close file watcher: %v", err)
		}
	}()

	if err := watcher.Add(dir); err != nil {
		logging.Error("Failed to watch %s: %v", dir, err)
		metrics.WatcherErrors.Inc()
		return
	}
	logging.Info("Watching %s for new media files", dir)

	var debounce *time.Timer
	var pending <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if !isIngestionEvent(event) {
				continue
			}
			metrics.WatcherEventsTotal.WithLabelValues(eventType(event.Op)).Inc()
			logging.Debug("Watcher event: %s %s", event.Op, event.Name)

			if debounce == nil {
				debounce = time.NewTimer(debounceWindow)
			} else {
				debounce.Reset(debounceWindow)
			}
			pending = debounce.C

		case <-pending:
			pending = nil
			if _, err := s.Scan(ctx, dir, Options{SkipIncompatible: true}); err != nil {
				logging.Error("Watch-triggered scan failed: %v", err)
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			logging.Error("Watcher error: %v", err)
			metrics.WatcherErrors.Inc()
		}
	}
}

// isIngestionEvent reports whether the event could mean a new media file.
func isIngestionEvent(event fsnotify.Event) bool {
	if event.Op&(fsnotify.Create|fsnotify.Rename) == 0 {
		return false
	}
	if strings.Contains(event.Name, "/.") {
		return false
	}
	return mediatypes.IsVideoFile(event.Name)
}

func eventType(op fsnotify.Op) string {
	switch {
	case op&fsnotify.Create != 0:
		return "create"
	case op&fsnotify.Write != 0:
		return "write"
	case op&fsnotify.Remove != 0:
		return "remove"
	case op&fsnotify.Rename != 0:
		return "rename"
	case op&fsnotify.Chmod != 0:
		return "chmod"
	default:
		return "unknown"
	}
}
