// Package probe extracts technical metadata from video files via ffprobe.
//
// Probing is strictly best-effort: a file whose metadata cannot be read is
// still cataloged. Extract therefore never returns an error; failures
// produce a sentinel Info with a zero duration, the size from stat, and an
// "unknown" format.
package probe

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"os/exec"
	"strconv"
	"strings"

	"homeflix/internal/logging"
)

// Info holds the technical metadata for one video file.
type Info struct {
	// DurationSeconds is 0 when the duration could not be determined.
	DurationSeconds float64
	FileSize        int64
	Format          string
}

// Prober runs ffprobe against media files.
type Prober struct {
	ffprobePath string
}

// New creates a Prober using the given ffprobe binary (path or name on PATH).
func New(ffprobePath string) *Prober {
	if ffprobePath == "" {
		ffprobePath = "ffprobe"
	}
	return &Prober{ffprobePath: ffprobePath}
}

// ffprobeFormat mirrors the "format" object of ffprobe's JSON output.
// Numeric fields arrive as strings.
type ffprobeFormat struct {
	Format struct {
		FormatName string `json:"format_name"`
		Duration   string `json:"duration"`
		Size       string `json:"size"`
	} `json:"format"`
}

// Extract probes path and returns whatever metadata could be obtained.
// Any failure (missing binary, unreadable file, malformed output) degrades
// to the stat-based fallback rather than an error.
func (p *Prober) Extract(ctx context.Context, path string) Info {
	cmd := exec.CommandContext(ctx, p.ffprobePath,
		"-v", "quiet",
		"-print_format", "json",
		"-show_format",
		path,
	)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		logging.Warn("ffprobe failed for %s: %v (%s)", path, err, strings.TrimSpace(stderr.String()))
		return p.fallback(path)
	}

	var parsed ffprobeFormat
	if err := json.Unmarshal(stdout.Bytes(), &parsed); err != nil {
		logging.Warn("ffprobe output unparseable for %s: %v", path, err)
		return p.fallback(path)
	}

	info := Info{Format: parsed.Format.FormatName}
	if info.Format == "" {
		info.Format = "unknown"
	}

	if d, err := strconv.ParseFloat(parsed.Format.Duration, 64); err == nil && d > 0 {
		info.DurationSeconds = d
	}

	if size, err := strconv.ParseInt(parsed.Format.Size, 10, 64); err == nil && size > 0 {
		info.FileSize = size
	} else if stat, statErr := os.Stat(path); statErr == nil {
		info.FileSize = stat.Size()
	}

	logging.Debug("probed %s: duration=%.1fs size=%d format=%s",
		path, info.DurationSeconds, info.FileSize, info.Format)
	return info
}

// fallback builds the degraded Info used when probing fails.
func (p *Prober) fallback(path string) Info {
	info := Info{Format: "unknown"}
	if stat, err := os.Stat(path); err == nil {
		info.FileSize = stat.Size()
	}
	return info
}
