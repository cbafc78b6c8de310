package omdb

import (
	"regexp"
	"strings"
)

// Release names bury the actual title under rip metadata. Cleaning peels
// that off so the provider sees something searchable.
var (
	qualityRe     = regexp.MustCompile(`(?i)\b(1080p|720p|480p|2160p|4K|BluRay|Blu-Ray|BRRip|BDRip|DVDRip|WEBRip|WEB-DL|HDTV|HDRip|x264|x265|h264|h265|HEVC|XviD|DivX|AAC|AC3|DTS|10bit|REMUX|PROPER|EXTENDED|UNRATED)\b`)
	yearRe        = regexp.MustCompile(`\b(19|20)\d{2}\b`)
	separatorRe   = regexp.MustCompile(`[._-]+`)
	bracketSpanRe = regexp.MustCompile(`\[[^\]]*\]|\([^)]*\)`)
	bracketCharRe = regexp.MustCompile(`[\[\](){}]`)
	spacesRe      = regexp.MustCompile(`\s+`)
)

// CleanTitle turns a release-style filename stem into a provider search
// title. A recognizable year is extracted and returned separately to
// narrow the search.
func CleanTitle(raw string) (title, year string) {
	s := separatorRe.ReplaceAllString(raw, " ")

	// The release year is the last year-shaped token; an earlier one can be
	// part of the title itself ("Blade Runner 2049"). A year at position 0
	// IS the title ("1984"), so leave it alone. Captured before span
	// removal so a "(2010)" tag still yields the hint.
	if locs := yearRe.FindAllStringIndex(s, -1); len(locs) > 0 {
		last := locs[len(locs)-1]
		if last[0] > 0 {
			year = s[last[0]:last[1]]
		}
	}

	// Bracketed and parenthesized tags are release-group or edition noise,
	// never title. The whole span goes, not just the delimiters.
	s = bracketSpanRe.ReplaceAllString(s, " ")

	// Everything from the first quality token on is rip metadata.
	if loc := qualityRe.FindStringIndex(s); loc != nil {
		s = s[:loc[0]]
	}

	// A trailing bare year outside any brackets goes too.
	if locs := yearRe.FindAllStringIndex(s, -1); len(locs) > 0 {
		last := locs[len(locs)-1]
		if last[0] > 0 {
			s = s[:last[0]]
		}
	}

	s = bracketCharRe.ReplaceAllString(s, " ")
	s = spacesRe.ReplaceAllString(s, " ")
	return strings.TrimSpace(s), year
}
