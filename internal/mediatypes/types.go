package mediatypes

import (
	"path/filepath"
	"strings"
)

// MinVideoSize is the smallest file size (in bytes) considered a real video
// during catalog scans. Anything at or below this is treated as a sample,
// partial download, or junk and ignored.
const MinVideoSize = 1024 * 1024

// VideoExtensions maps file extensions to whether they are supported video formats.
var VideoExtensions = map[string]bool{
	".mp4":  true,
	".avi":  true,
	".mkv":  true,
	".mov":  true,
	".wmv":  true,
	".flv":  true,
	".webm": true,
	".m4v":  true,
	".m2ts": true,
	".ts":   true,
	".vob":  true,
}

// SubtitleExtensions maps file extensions to whether they are recognized
// subtitle sidecar formats.
var SubtitleExtensions = map[string]bool{
	".srt": true,
	".vtt": true,
	".ass": true,
	".ssa": true,
}

// problematicContainers are containers most browsers cannot play natively.
var problematicContainers = map[string]bool{
	".mkv": true,
	".avi": true,
	".wmv": true,
	".flv": true,
}

// hevcTokens are filename substrings that indicate HEVC/H.265 video, which
// has no reliable browser decode support even inside an mp4 container.
var hevcTokens = []string{"hevc", "h.265", "x265"}

// MimeTypes maps file extensions to the MIME types used for streaming.
var MimeTypes = map[string]string{
	".mp4":  "video/mp4",
	".avi":  "video/x-msvideo",
	".mkv":  "video/x-matroska",
	".mov":  "video/quicktime",
	".wmv":  "video/x-ms-wmv",
	".flv":  "video/x-flv",
	".webm": "video/webm",
	".m4v":  "video/x-m4v",
	".m2ts": "video/mp2t",
	".ts":   "video/mp2t",
	".vob":  "video/dvd",

	".srt": "application/x-subrip",
	".vtt": "text/vtt",
	".ass": "text/x-ssa",
	".ssa": "text/x-ssa",

	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".webp": "image/webp",
}

// CompatibilityVerdict is the result of classifying a video file for direct
// browser playback. Reason is a short human-readable explanation when
// Compatible is false.
type CompatibilityVerdict struct {
	Compatible bool   `json:"compatible"`
	Format     string `json:"format"`
	Reason     string `json:"reason,omitempty"`
}

// Classify judges browser playback compatibility from the file name alone.
// It never opens the file; container extension and codec hints embedded in
// the name are the only evidence used.
func Classify(path string) CompatibilityVerdict {
	base := strings.ToLower(filepath.Base(path))
	ext := filepath.Ext(base)
	format := strings.TrimPrefix(ext, ".")

	if problematicContainers[ext] {
		return CompatibilityVerdict{
			Compatible: false,
			Format:     format,
			Reason:     format + " container is not playable in browsers",
		}
	}
	for _, token := range hevcTokens {
		if strings.Contains(base, token) {
			return CompatibilityVerdict{
				Compatible: false,
				Format:     format,
				Reason:     "HEVC/H.265 video is not playable in browsers",
			}
		}
	}
	return CompatibilityVerdict{Compatible: true, Format: format}
}

// IsVideoFile returns true if the path has a supported video extension.
func IsVideoFile(path string) bool {
	return VideoExtensions[strings.ToLower(filepath.Ext(path))]
}

// GetMimeType returns the MIME type for a given file extension.
// The extension should include the leading dot (e.g., ".mp4").
// Unknown video extensions fall back to "video/mp4" so playback
// can still be attempted.
func GetMimeType(ext string) string {
	if mime, ok := MimeTypes[strings.ToLower(ext)]; ok {
		return mime
	}
	return "video/mp4"
}
