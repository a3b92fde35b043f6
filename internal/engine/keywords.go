package engine

import (
	"context"
	"strings"
)

const (
	DefaultKeywordSuffix = "cheat"
	maxTopKeywords       = 5
)

// KeywordResearcher supplies a ranked keyword set for a subject.
// Implementations degrade to FallbackKeywords instead of failing.
type KeywordResearcher interface {
	Research(ctx context.Context, subject string) KeywordSet
}

// MainKeyword is the primary search phrase for a subject.
func MainKeyword(subject, suffix string) string {
	if suffix == "" {
		suffix = DefaultKeywordSuffix
	}
	return strings.TrimSpace(subject) + " " + suffix
}

// FallbackKeywords is the static keyword set used when research is unavailable.
func FallbackKeywords(subject, suffix string) KeywordSet {
	subject = strings.TrimSpace(subject)
	return KeywordSet{
		MainKeyword: MainKeyword(subject, suffix),
		TopKeywords: []RankedKeyword{
			{Keyword: subject + " hack"},
			{Keyword: subject + " aimbot"},
			{Keyword: subject + " esp"},
			{Keyword: subject + " wallhack"},
			{Keyword: "free " + subject + " cheat"},
		},
	}
}

// subjectQueries is the main keyword followed by up to five ranked keywords,
// duplicates removed case-insensitively.
func subjectQueries(ks KeywordSet) []string {
	seen := make(map[string]struct{})
	var out []string
	add := func(q string) {
		q = strings.TrimSpace(q)
		key := strings.ToLower(q)
		if q == "" {
			return
		}
		if _, dup := seen[key]; dup {
			return
		}
		seen[key] = struct{}{}
		out = append(out, q)
	}
	add(ks.MainKeyword)
	for i, k := range ks.TopKeywords {
		if i >= maxTopKeywords {
			break
		}
		add(k.Keyword)
	}
	return out
}
