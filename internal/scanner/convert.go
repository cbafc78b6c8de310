package scanner

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"homeflix/internal/logging"
	"homeflix/internal/metrics"
)

// ConvertResult summarizes a conversion batch.
type ConvertResult struct {
	Converted int            `json:"converted"`
	Added     int            `json:"added"`
	Failed    int            `json:"failed"`
	Failures  []ConvertError `json:"failures,omitempty"`
}

// ConvertError is one failed file in a conversion batch.
type ConvertError struct {
	Name  string `json:"name"`
	Error string `json:"error"`
}

// ConvertAndAdd converts the named files in dir to MP4 and catalogs the
// results. The original file is deleted only after its replacement has been
// durably committed, and only when deleteOriginals is set. Per-file
// failures are collected; the batch always runs to completion.
func (s *Scanner) ConvertAndAdd(ctx context.Context, dir string, files []string, deleteOriginals bool) (*ConvertResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if info, err := os.Stat(dir); err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrDirNotFound, dir)
		}
		return nil, fmt.Errorf("%w: %s: %v", ErrDirNotReadable, dir, err)
	} else if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s", ErrNotDirectory, dir)
	}

	result := &ConvertResult{}
	for _, name := range files {
		if ctx.Err() != nil {
			return result, ctx.Err()
		}
		if err := s.convertOne(ctx, dir, name, deleteOriginals, result); err != nil {
			logging.Error("Conversion of %s failed: %v", name, err)
			result.Failed++
			result.Failures = append(result.Failures, ConvertError{Name: name, Error: err.Error()})
		}
	}
	return result, nil
}

// convertOne converts a single file and ingests the output.
func (s *Scanner) convertOne(ctx context.Context, dir, name string, deleteOriginal bool, result *ConvertResult) error {
	src := filepath.Join(dir, name)
	info, err := os.Stat(src)
	if err != nil {
		return fmt.Errorf("source not accessible: %w", err)
	}
	if info.IsDir() {
		return fmt.Errorf("source is a directory")
	}

	dst := strings.TrimSuffix(src, filepath.Ext(src)) + ".mp4"

	// Probed duration drives the progress percentage.
	probed := s.probe.Extract(ctx, src)

	var lastLogged float64
	err = s.convert.Convert(ctx, src, dst, probed.DurationSeconds, func(percent float64) {
		if percent-lastLogged >= 10 {
			lastLogged = percent
			logging.Info("Converting %s: %.0f%%", name, percent)
		}
	})
	if err != nil {
		return err
	}
	result.Converted++

	dstInfo, err := os.Stat(dst)
	if err != nil {
		return fmt.Errorf("converted file not accessible: %w", err)
	}

	title, outcome, err := s.ingestFile(ctx, candidate{
		name: filepath.Base(dst),
		path: dst,
		size: dstInfo.Size(),
	})
	if err != nil {
		return fmt.Errorf("converted but failed to catalog: %w", err)
	}
	if outcome == "added" {
		result.Added++
		metrics.ScanFilesProcessed.WithLabelValues("added").Inc()
	}
	logging.Info("Converted %s -> %s (%s, %s)", name, filepath.Base(dst), title, outcome)

	// The catalog row exists (or already existed); the original is now
	// redundant.
	if deleteOriginal {
		if err := os.Remove(src); err != nil {
			logging.Warn("failed to delete original %s: %v", src, err)
		} else {
			logging.Info("Deleted original %s", src)
		}
	}
	return nil
}
