package engine

import "strings"

// DefaultShortsMaxSeconds is the duration at or below which a video counts as short-form.
const DefaultShortsMaxSeconds = 75

// ShortsFilter excludes short-form clips from acquisition results.
type ShortsFilter struct {
	Enabled    bool
	MaxSeconds int
}

func (f ShortsFilter) maxSeconds() int {
	if f.MaxSeconds <= 0 {
		return DefaultShortsMaxSeconds
	}
	return f.MaxSeconds
}

// IsShort reports whether v is short-form: known duration in (0, MaxSeconds],
// or a shorts marker in title or description.
func (f ShortsFilter) IsShort(v VideoRecord) bool {
	if isShortDuration(v.LengthSeconds, f.maxSeconds()) {
		return true
	}
	title := " " + strings.ToLower(v.Title) + " "
	desc := " " + strings.ToLower(v.Description) + " "
	return containsAny(title, shortsMarkers) || containsAny(desc, shortsMarkers)
}

// Apply drops short-form videos when the filter is enabled.
func (f ShortsFilter) Apply(videos []VideoRecord) []VideoRecord {
	if !f.Enabled {
		return videos
	}
	out := make([]VideoRecord, 0, len(videos))
	for _, v := range videos {
		if !f.IsShort(v) {
			out = append(out, v)
		}
	}
	return out
}

func isShortDuration(seconds, limit int) bool {
	return seconds > 0 && seconds <= limit
}
