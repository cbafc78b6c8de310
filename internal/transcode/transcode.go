// Package transcode converts incompatible video files to browser-playable
// MP4 using ffmpeg. Conversions are file-to-file: the source is left
// untouched and the caller decides what happens to it after a successful
// conversion has been cataloged.
package transcode

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"time"

	"homeflix/internal/logging"
	"homeflix/internal/metrics"
)

// ErrDestinationExists is returned when the conversion target already exists.
// The caller must resolve the conflict; silently overwriting could destroy a
// previous conversion.
var ErrDestinationExists = errors.New("destination file already exists")

// ConversionError carries the tail of ffmpeg's stderr alongside the exec
// failure so operators can see why a file would not convert.
type ConversionError struct {
	Source string
	Stderr string
	Err    error
}

func (e *ConversionError) Error() string {
	if e.Stderr != "" {
		return fmt.Sprintf("conversion of %s failed: %v: %s", e.Source, e.Err, e.Stderr)
	}
	return fmt.Sprintf("conversion of %s failed: %v", e.Source, e.Err)
}

func (e *ConversionError) Unwrap() error { return e.Err }

// stderrTailLines bounds how much ffmpeg output is kept for error reports.
const stderrTailLines = 5

// Converter runs ffmpeg conversions and tracks the processes it spawns so
// they can be killed on shutdown.
type Converter struct {
	ffmpegPath string

	processMu sync.Mutex
	processes map[string]*exec.Cmd
}

// New creates a Converter using the given ffmpeg binary (path or name on PATH).
func New(ffmpegPath string) *Converter {
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}
	return &Converter{
		ffmpegPath: ffmpegPath,
		processes:  make(map[string]*exec.Cmd),
	}
}

// conversionArgs builds the ffmpeg argument list for converting src to dst.
// H.264 high profile with AAC stereo audio plays everywhere; faststart moves
// the moov atom so playback starts before the download finishes.
func (c *Converter) conversionArgs(src, dst string) []string {
	return []string{
		"-i", src,
		"-c:v", "libx264",
		"-preset", "medium",
		"-crf", "23",
		"-maxrate", "5000k",
		"-bufsize", "10000k",
		"-c:a", "aac",
		"-b:a", "192k",
		"-ac", "2",
		"-movflags", "+faststart",
		"-progress", "pipe:1",
		"-nostats",
		"-y",
		dst,
	}
}

// Convert transcodes src into dst. durationSeconds drives progress reporting
// and may be 0 (unknown), in which case onProgress is never called.
// onProgress may be nil; when set it receives percentages in [0, 100].
//
// On failure or cancellation any partial dst file is removed.
func (c *Converter) Convert(ctx context.Context, src, dst string, durationSeconds float64, onProgress func(percent float64)) error {
	if _, err := os.Stat(dst); err == nil {
		return fmt.Errorf("%w: %s", ErrDestinationExists, dst)
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("failed to check destination %s: %w", dst, err)
	}

	start := time.Now()
	metrics.ConversionJobsInProgress.Inc()
	defer metrics.ConversionJobsInProgress.Dec()

	cmd := exec.CommandContext(ctx, c.ffmpegPath, c.conversionArgs(src, dst)...)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("failed to create stdout pipe: %w", err)
	}

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	c.processMu.Lock()
	c.processes[src] = cmd
	c.processMu.Unlock()

	defer func() {
		c.processMu.Lock()
		delete(c.processes, src)
		c.processMu.Unlock()
	}()

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to start ffmpeg: %w", err)
	}

	logging.Info("Converting %s -> %s", src, dst)

	// ffmpeg reports progress as key=value lines on stdout.
	scanner := bufio.NewScanner(stdout)
	for scanner.Scan() {
		line := scanner.Text()
		if durationSeconds <= 0 || onProgress == nil {
			continue
		}
		if us, ok := parseOutTime(line); ok {
			percent := us / 1e6 / durationSeconds * 100
			if percent > 100 {
				percent = 100
			}
			onProgress(percent)
		}
	}

	cmdErr := cmd.Wait()

	if ctx.Err() != nil {
		c.removePartial(dst)
		metrics.ConversionJobsTotal.WithLabelValues("canceled").Inc()
		logging.Warn("Conversion of %s canceled after %v", src, time.Since(start))
		return ctx.Err()
	}

	if cmdErr != nil {
		c.removePartial(dst)
		metrics.ConversionJobsTotal.WithLabelValues("error").Inc()
		return &ConversionError{
			Source: src,
			Stderr: stderrTail(stderr.String()),
			Err:    cmdErr,
		}
	}

	metrics.ConversionJobsTotal.WithLabelValues("success").Inc()
	metrics.ConversionJobDuration.Observe(time.Since(start).Seconds())
	logging.Info("Converted %s in %v", src, time.Since(start).Round(time.Second))
	return nil
}

// removePartial deletes a half-written destination file after a failed run.
func (c *Converter) removePartial(dst string) {
	if err := os.Remove(dst); err != nil && !os.IsNotExist(err) {
		logging.Warn("failed to remove partial conversion output %s: %v", dst, err)
	}
}

// Cleanup kills all active conversion processes. Called on shutdown.
func (c *Converter) Cleanup() {
	c.processMu.Lock()
	defer c.processMu.Unlock()

	for src, cmd := range c.processes {
		if cmd.Process != nil {
			logging.Info("Killing conversion process for: %s", src)
			if err := cmd.Process.Kill(); err != nil {
				logging.Warn("failed to kill conversion process for %s: %v", src, err)
			}
		}
	}
}

// parseOutTime extracts the microsecond position from an ffmpeg progress line.
func parseOutTime(line string) (float64, bool) {
	val, found := strings.CutPrefix(line, "out_time_us=")
	if !found {
		return 0, false
	}
	us, err := strconv.ParseFloat(strings.TrimSpace(val), 64)
	if err != nil || us < 0 {
		return 0, false
	}
	return us, true
}

// stderrTail keeps only the last few lines of ffmpeg's stderr.
func stderrTail(s string) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	if len(lines) > stderrTailLines {
		lines = lines[len(lines)-stderrTailLines:]
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}
