// Package thumbnail generates catalog artwork.
//
// Artwork comes from two sources: a frame extracted from the video itself
// (via ffmpeg) or downloaded poster art. Both are normalized to the same
// JPEG output format so the serving path never has to care where an image
// came from.
package thumbnail

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"homeflix/internal/logging"
	"homeflix/internal/metrics"

	_ "image/gif"
	_ "image/png"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/webp"
)

// Output dimensions for generated thumbnails.
const (
	thumbWidth  = 320
	thumbHeight = 240
)

// jpegQuality matches the quality used for all generated artwork.
const jpegQuality = 80

// retryDelay is the pause between frame extraction strategies, giving a
// struggling decoder (or NFS mount) a moment before the next attempt.
const retryDelay = 100 * time.Millisecond

// ErrNoThumbnail is returned when every extraction strategy failed.
// Callers catalog the entry without artwork; this is never fatal.
var ErrNoThumbnail = errors.New("no thumbnail could be generated")

// Generator extracts and normalizes catalog artwork.
type Generator struct {
	ffmpegPath string
}

// New creates a Generator using the given ffmpeg binary (path or name on PATH).
func New(ffmpegPath string) *Generator {
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}
	return &Generator{ffmpegPath: ffmpegPath}
}

// strategy is one way of picking a frame out of a video.
type strategy struct {
	name string
	// seek returns the -ss offset in seconds, or false when the strategy
	// does not apply (percentage seeks need a known duration).
	seek func(duration float64) (float64, bool)
	// scaled strategies let ffmpeg downscale before handing us the frame,
	// which rescues files whose full-size frames fail to decode.
	scaled bool
}

// strategies are tried in order; the first extracted frame wins.
var strategies = []strategy{
	{name: "percent_10", seek: func(d float64) (float64, bool) { return d * 0.10, d > 0 }},
	{name: "percent_5", seek: func(d float64) (float64, bool) { return d * 0.05, d > 0 }},
	{name: "fixed_5s", seek: func(float64) (float64, bool) { return 5, true }},
	{name: "fixed_1s_scaled", seek: func(float64) (float64, bool) { return 1, true }, scaled: true},
}

// Generate extracts a representative frame from the video at videoPath and
// writes it as a JPEG to outPath. durationSeconds may be 0 (unknown), which
// skips the percentage-based seek strategies. When every strategy fails the
// returned error is ErrNoThumbnail.
func (g *Generator) Generate(ctx context.Context, videoPath string, durationSeconds float64, outPath string) error {
	start := time.Now()

	var lastErr error
	for i, s := range strategies {
		offset, ok := s.seek(durationSeconds)
		if !ok {
			continue
		}

		if i > 0 {
			select {
			case <-time.After(retryDelay):
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		img, err := g.extractFrame(ctx, videoPath, offset, s.scaled)
		if err != nil {
			metrics.ThumbnailStrategyAttempts.WithLabelValues(s.name, "error").Inc()
			logging.Debug("thumbnail strategy %s failed for %s: %v", s.name, videoPath, err)
			lastErr = err
			continue
		}
		metrics.ThumbnailStrategyAttempts.WithLabelValues(s.name, "success").Inc()

		if err := writeJPEG(img, outPath); err != nil {
			metrics.ThumbnailGenerationsTotal.WithLabelValues("frame", "error").Inc()
			return err
		}

		metrics.ThumbnailGenerationsTotal.WithLabelValues("frame", "success").Inc()
		metrics.ThumbnailGenerationDuration.WithLabelValues("frame").Observe(time.Since(start).Seconds())
		logging.Debug("thumbnail for %s via strategy %s in %v", videoPath, s.name, time.Since(start))
		return nil
	}

	metrics.ThumbnailGenerationsTotal.WithLabelValues("frame", "error").Inc()
	if lastErr != nil {
		logging.Warn("all thumbnail strategies failed for %s: %v", videoPath, lastErr)
	}
	return ErrNoThumbnail
}

// extractFrame runs one ffmpeg frame grab and decodes the resulting PNG.
func (g *Generator) extractFrame(ctx context.Context, videoPath string, offsetSeconds float64, scaled bool) (image.Image, error) {
	args := []string{
		"-ss", formatSeek(offsetSeconds),
		"-i", videoPath,
		"-vframes", "1",
	}
	if scaled {
		args = append(args, "-vf", fmt.Sprintf("scale=%d:%d", thumbWidth, thumbHeight))
	}
	args = append(args,
		"-f", "image2pipe",
		"-vcodec", "png",
		"-",
	)

	cmd := exec.CommandContext(ctx, g.ffmpegPath, args...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("ffmpeg failed: %w, stderr: %s", err, lastLine(stderr.String()))
	}

	if stdout.Len() == 0 {
		return nil, fmt.Errorf("ffmpeg produced no output for %s", videoPath)
	}

	img, _, err := image.Decode(&stdout)
	if err != nil {
		return nil, fmt.Errorf("failed to decode ffmpeg output: %w", err)
	}
	return img, nil
}

// FromImage normalizes already-downloaded artwork (poster art in jpeg, png
// or webp) to the standard JPEG thumbnail at outPath.
func (g *Generator) FromImage(data []byte, outPath string) error {
	start := time.Now()

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		metrics.ThumbnailGenerationsTotal.WithLabelValues("poster", "error").Inc()
		return fmt.Errorf("failed to decode poster image: %w", err)
	}

	if err := writeJPEG(img, outPath); err != nil {
		metrics.ThumbnailGenerationsTotal.WithLabelValues("poster", "error").Inc()
		return err
	}

	metrics.ThumbnailGenerationsTotal.WithLabelValues("poster", "success").Inc()
	metrics.ThumbnailGenerationDuration.WithLabelValues("poster").Observe(time.Since(start).Seconds())
	return nil
}

// writeJPEG fits img into the thumbnail bounds and writes it to outPath.
func writeJPEG(img image.Image, outPath string) error {
	thumb := imaging.Fit(img, thumbWidth, thumbHeight, imaging.Lanczos)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, thumb, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return fmt.Errorf("failed to encode thumbnail: %w", err)
	}

	if err := os.WriteFile(outPath, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("failed to write thumbnail: %w", err)
	}
	return nil
}

// formatSeek renders a seek offset the way ffmpeg expects it.
func formatSeek(seconds float64) string {
	return strconv.FormatFloat(seconds, 'f', 2, 64)
}

// lastLine trims ffmpeg's noisy stderr down to its final line for logs.
func lastLine(s string) string {
	s = strings.TrimSpace(s)
	if idx := strings.LastIndexByte(s, '\n'); idx != -1 {
		s = s[idx+1:]
	}
	return s
}
