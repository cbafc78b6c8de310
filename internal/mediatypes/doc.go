// Package mediatypes provides shared media-file type definitions and
// utilities used across the homeflix server.
//
// This package exists as a dependency-free foundation that can be imported by
// other packages without creating import cycles. It contains extension sets,
// MIME tables, and the browser-compatibility classifier, all pure functions
// over file names.
//
// # Compatibility Classification
//
// Use Classify to judge whether a video file can be played directly in a
// browser. The verdict is derived from the file name only (container
// extension plus codec hints like "x265" in the name), never from the file
// contents:
//
//	verdict := mediatypes.Classify("/movies/Dune.2021.x265.mkv")
//	if !verdict.Compatible {
//	    // queue for conversion, verdict.Reason explains why
//	}
//
// # Extension Detection and MIME Types
//
// The extension maps (VideoExtensions, SubtitleExtensions) can be used
// directly for validation, and GetMimeType returns the Content-Type used when
// streaming:
//
//	if mediatypes.IsVideoFile(name) {
//	    mime := mediatypes.GetMimeType(filepath.Ext(name))
//	}
//
// Unknown video extensions intentionally map to "video/mp4" so that playback
// is attempted rather than refused.
package mediatypes
