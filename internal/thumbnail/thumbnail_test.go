package thumbnail

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"testing"
)

func testPNG(t *testing.T, width, height int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x % 256), G: uint8(y % 256), B: 128, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("failed to encode test png: %v", err)
	}
	return buf.Bytes()
}

// fakeFFmpeg writes a script that emits the given PNG on stdout, standing in
// for a real ffmpeg binary.
func fakeFFmpeg(t *testing.T, pngData []byte) string {
	t.Helper()
	dir := t.TempDir()

	framePath := filepath.Join(dir, "frame.png")
	if err := os.WriteFile(framePath, pngData, 0o644); err != nil {
		t.Fatalf("failed to write frame: %v", err)
	}

	scriptPath := filepath.Join(dir, "ffmpeg")
	script := "#!/bin/sh\ncat " + framePath + "\n"
	if err := os.WriteFile(scriptPath, []byte(script), 0o755); err != nil {
		t.Fatalf("failed to write script: %v", err)
	}
	return scriptPath
}

func TestNewDefaultsBinary(t *testing.T) {
	g := New("")
	if g.ffmpegPath != "ffmpeg" {
		t.Errorf("expected default binary ffmpeg, got %s", g.ffmpegPath)
	}
}

func TestGenerateSuccess(t *testing.T) {
	g := New(fakeFFmpeg(t, testPNG(t, 640, 480)))

	outPath := filepath.Join(t.TempDir(), "thumb.jpg")
	if err := g.Generate(context.Background(), "/tmp/movie.mp4", 600, outPath); err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	data, err := os.ReadFile(outPath)
	if err != nil {
		t.Fatalf("failed to read thumbnail: %v", err)
	}
	img, err := jpeg.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("output is not a valid jpeg: %v", err)
	}
	bounds := img.Bounds()
	if bounds.Dx() > thumbWidth || bounds.Dy() > thumbHeight {
		t.Errorf("thumbnail %dx%d exceeds %dx%d", bounds.Dx(), bounds.Dy(), thumbWidth, thumbHeight)
	}
}

func TestGenerateAllStrategiesFail(t *testing.T) {
	g := New(filepath.Join(t.TempDir(), "no-such-ffmpeg"))

	outPath := filepath.Join(t.TempDir(), "thumb.jpg")
	err := g.Generate(context.Background(), "/tmp/movie.mp4", 600, outPath)
	if !errors.Is(err, ErrNoThumbnail) {
		t.Errorf("expected ErrNoThumbnail, got %v", err)
	}
	if _, statErr := os.Stat(outPath); !os.IsNotExist(statErr) {
		t.Errorf("expected no output file, stat returned %v", statErr)
	}
}

func TestGenerateCanceledContext(t *testing.T) {
	g := New(filepath.Join(t.TempDir(), "no-such-ffmpeg"))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := g.Generate(ctx, "/tmp/movie.mp4", 600, filepath.Join(t.TempDir(), "thumb.jpg"))
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestStrategySeekOffsets(t *testing.T) {
	tests := []struct {
		name       string
		duration   float64
		wantOffset float64
		wantOK     bool
	}{
		{"percent_10", 600, 60, true},
		{"percent_10", 0, 0, false},
		{"percent_5", 600, 30, true},
		{"percent_5", 0, 0, false},
		{"fixed_5s", 0, 5, true},
		{"fixed_5s", 600, 5, true},
		{"fixed_1s_scaled", 0, 1, true},
	}

	byName := make(map[string]strategy)
	for _, s := range strategies {
		byName[s.name] = s
	}

	for _, tt := range tests {
		s, found := byName[tt.name]
		if !found {
			t.Fatalf("unknown strategy %s", tt.name)
		}
		offset, ok := s.seek(tt.duration)
		if ok != tt.wantOK {
			t.Errorf("%s(%v): ok = %v, want %v", tt.name, tt.duration, ok, tt.wantOK)
			continue
		}
		if ok && offset != tt.wantOffset {
			t.Errorf("%s(%v): offset = %v, want %v", tt.name, tt.duration, offset, tt.wantOffset)
		}
	}
}

func TestFromImage(t *testing.T) {
	g := New("")

	outPath := filepath.Join(t.TempDir(), "poster.jpg")
	if err := g.FromImage(testPNG(t, 800, 1200), outPath); err != nil {
		t.Fatalf("FromImage failed: %v", err)
	}

	data, err := os.ReadFile(outPath)
	if err != nil {
		t.Fatalf("failed to read poster: %v", err)
	}
	img, err := jpeg.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("output is not a valid jpeg: %v", err)
	}
	bounds := img.Bounds()
	if bounds.Dx() > thumbWidth || bounds.Dy() > thumbHeight {
		t.Errorf("poster thumbnail %dx%d exceeds %dx%d", bounds.Dx(), bounds.Dy(), thumbWidth, thumbHeight)
	}
}

func TestFromImageInvalidData(t *testing.T) {
	g := New("")
	err := g.FromImage([]byte("not an image"), filepath.Join(t.TempDir(), "poster.jpg"))
	if err == nil {
		t.Error("expected error for invalid image data")
	}
}

func TestFormatSeek(t *testing.T) {
	tests := []struct {
		seconds float64
		want    string
	}{
		{60, "60.00"},
		{5, "5.00"},
		{12.345, "12.35"},
		{0, "0.00"},
	}
	for _, tt := range tests {
		if got := formatSeek(tt.seconds); got != tt.want {
			t.Errorf("formatSeek(%v) = %q, want %q", tt.seconds, got, tt.want)
		}
	}
}

func TestLastLine(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"single line", "single line"},
		{"first\nsecond\nthird", "third"},
		{"trailing newline\n", "trailing newline"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := lastLine(tt.in); got != tt.want {
			t.Errorf("lastLine(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
