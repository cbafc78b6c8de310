package mediatypes

import (
	"testing"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name       string
		path       string
		compatible bool
		format     string
	}{
		{
			name:       "plain mp4",
			path:       "/movies/Inception.mp4",
			compatible: true,
			format:     "mp4",
		},
		{
			name:       "webm",
			path:       "clip.webm",
			compatible: true,
			format:     "webm",
		},
		{
			name:       "mkv container",
			path:       "/movies/Dune.mkv",
			compatible: false,
			format:     "mkv",
		},
		{
			name:       "avi container",
			path:       "old.avi",
			compatible: false,
			format:     "avi",
		},
		{
			name:       "wmv container",
			path:       "old.wmv",
			compatible: false,
			format:     "wmv",
		},
		{
			name:       "flv container",
			path:       "old.flv",
			compatible: false,
			format:     "flv",
		},
		{
			name:       "hevc token in mp4",
			path:       "Movie.2019.1080p.HEVC.mp4",
			compatible: false,
			format:     "mp4",
		},
		{
			name:       "x265 token",
			path:       "Movie.x265.mp4",
			compatible: false,
			format:     "mp4",
		},
		{
			name:       "h.265 token case insensitive",
			path:       "Movie.H.265.MP4",
			compatible: false,
			format:     "mp4",
		},
		{
			name:       "x264 is fine",
			path:       "Movie.1080p.x264.mp4",
			compatible: true,
			format:     "mp4",
		},
		{
			name:       "hevc token in directory ignored",
			path:       "/mnt/hevc-archive/Movie.mp4",
			compatible: true,
			format:     "mp4",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Classify(tt.path)
			if got.Compatible != tt.compatible {
				t.Errorf("Classify(%q).Compatible = %v, want %v", tt.path, got.Compatible, tt.compatible)
			}
			if got.Format != tt.format {
				t.Errorf("Classify(%q).Format = %q, want %q", tt.path, got.Format, tt.format)
			}
			if !got.Compatible && got.Reason == "" {
				t.Errorf("Classify(%q) incompatible but no reason", tt.path)
			}
		})
	}
}

func TestIsVideoFile(t *testing.T) {
	tests := []struct {
		path string
		want bool
	}{
		{"a.mp4", true},
		{"a.MKV", true},
		{"a.m2ts", true},
		{"a.vob", true},
		{"a.srt", false},
		{"a.jpg", false},
		{"noext", false},
		{"", false},
	}

	for _, tt := range tests {
		if got := IsVideoFile(tt.path); got != tt.want {
			t.Errorf("IsVideoFile(%q) = %v, want %v", tt.path, got, tt.want)
		}
	}
}

func TestGetMimeType(t *testing.T) {
	tests := []struct {
		ext  string
		want string
	}{
		{".mp4", "video/mp4"},
		{".mkv", "video/x-matroska"},
		{".avi", "video/x-msvideo"},
		{".mov", "video/quicktime"},
		{".webm", "video/webm"},
		{".srt", "application/x-subrip"},
		{".vtt", "text/vtt"},
		{".MP4", "video/mp4"},
		// unknown extensions fall back to video/mp4
		{".xyz", "video/mp4"},
		{"", "video/mp4"},
	}

	for _, tt := range tests {
		if got := GetMimeType(tt.ext); got != tt.want {
			t.Errorf("GetMimeType(%q) = %q, want %q", tt.ext, got, tt.want)
		}
	}
}

func TestMinVideoSize(t *testing.T) {
	if MinVideoSize != 1048576 {
		t.Errorf("MinVideoSize = %d, want 1 MiB", MinVideoSize)
	}
}
