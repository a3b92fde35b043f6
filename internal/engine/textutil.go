package engine

import (
	"strings"

	"github.com/anatolykoptev/go-kit/strutil"
)

// User-Agent used for calls to our own collaborators (keyword provider, discovery lists).
const UserAgentBot = "GoTakedown/1.0"

// TruncateRunes caps s at limit runes, appending suffix if truncated.
// Pass suffix="" for no suffix. Safe for UTF-8 (Cyrillic, CJK, emoji).
func TruncateRunes(s string, limit int, suffix string) string {
	return strutil.TruncateWith(s, limit, suffix)
}

// NormalizeChannel is the comparison key for channel names in whitelists.
func NormalizeChannel(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// normalizeToken lowercases and trims a short enum-like token from model output.
func normalizeToken(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// containsAny reports whether lower contains any of terms. lower must already be lowercased.
func containsAny(lower string, terms []string) bool {
	for _, t := range terms {
		if strings.Contains(lower, t) {
			return true
		}
	}
	return false
}

// countHits returns how many of terms occur in lower.
func countHits(lower string, terms []string) int {
	n := 0
	for _, t := range terms {
		if strings.Contains(lower, t) {
			n++
		}
	}
	return n
}
