// Package toolutil provides request helpers shared by the MCP tools and the HTTP API.
package toolutil

import (
	"fmt"
	"strings"

	"github.com/anatolykoptev/go_takedown/internal/engine"
)

// Categories lists the trending categories accepted by both transports.
var Categories = []string{"default", "music", "gaming", "movies"}

// NormCategory normalises a category field: empty string → "default".
// Unknown categories are rejected with engine.ErrInvalidRequest.
func NormCategory(category string) (string, error) {
	c := strings.ToLower(strings.TrimSpace(category))
	if c == "" {
		return "default", nil
	}
	for _, known := range Categories {
		if c == known {
			return c, nil
		}
	}
	return "", fmt.Errorf("%w: unknown category %q", engine.ErrInvalidRequest, category)
}

// NormWhitelist trims channel names, splits comma-separated entries and drops
// empty and duplicate (case-insensitive) names. Order is kept.
func NormWhitelist(names []string) []string {
	seen := make(map[string]struct{}, len(names))
	var out []string
	for _, entry := range names {
		for _, name := range strings.Split(entry, ",") {
			name = strings.TrimSpace(name)
			key := engine.NormalizeChannel(name)
			if key == "" {
				continue
			}
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			out = append(out, name)
		}
	}
	return out
}

// NormSearchRequest applies the shared normalisation to a search analysis request.
// A request with neither keywords nor category is left for the analyzer to reject.
func NormSearchRequest(in engine.SearchAnalysisRequest) (engine.SearchAnalysisRequest, error) {
	in.Keywords = strings.TrimSpace(in.Keywords)
	in.ChannelWhitelist = NormWhitelist(in.ChannelWhitelist)
	if in.MaxResults < 0 {
		return in, fmt.Errorf("%w: maxResults must not be negative", engine.ErrInvalidRequest)
	}
	if in.Keywords == "" && strings.TrimSpace(in.Category) != "" {
		c, err := NormCategory(in.Category)
		if err != nil {
			return in, err
		}
		in.Category = c
	}
	return in, nil
}
