package engine

import (
	"log/slog"
	"regexp"
	"sort"
	"strings"
)

var (
	yearTokenRe  = regexp.MustCompile(`\d{4}`)
	inviteLinkRe = regexp.MustCompile(`(discord|t\.me|telegram)/`)
)

// PreFilter scores videos with keyword heuristics so only likely candidates reach the classifier.
type PreFilter struct {
	// ShortsMaxSeconds is the short-form duration threshold; 0 means DefaultShortsMaxSeconds.
	ShortsMaxSeconds int
}

// Partition is the tiered pre-filter output. Every tier is sorted by descending priority,
// ties keep input order.
type Partition struct {
	HighPriority   []ScoredVideo `json:"highPriority"`
	MediumPriority []ScoredVideo `json:"mediumPriority"`
	LowPriority    []ScoredVideo `json:"lowPriority"`
	All            []ScoredVideo `json:"all"`
}

// Score computes the heuristic verdict for a single video.
func (p PreFilter) Score(v VideoRecord) PreFilterResult {
	title := strings.ToLower(v.Title)
	desc := strings.ToLower(v.Description)
	combined := title + " " + desc

	infringement := countHits(combined, infringementKeywords)
	infringement += 3 * countHits(combined, distributionIndicators)
	legitimate := countHits(combined, legitimateKeywords)

	if yearTokenRe.MatchString(title) && strings.Contains(title, "working") {
		infringement += 3
	}
	if strings.Contains(title, "download") && strings.Contains(title, "free") {
		infringement += 3
	}
	if inviteLinkRe.MatchString(desc) {
		infringement += 2
	}

	limit := p.ShortsMaxSeconds
	if limit <= 0 {
		limit = DefaultShortsMaxSeconds
	}
	if isShortDuration(v.LengthSeconds, limit) {
		infringement = max(0, infringement-2)
	}

	var probability float64
	if total := infringement + legitimate; total > 0 {
		probability = float64(infringement) / float64(total)
	}

	return PreFilterResult{
		InfringementScore:       infringement,
		LegitimateScore:         legitimate,
		InfringementProbability: probability,
		Priority:                infringement,
		ShouldAnalyze:           infringement >= 2 || legitimate == 0,
	}
}

// Partition scores every video and splits the set into priority tiers.
func (p PreFilter) Partition(videos []VideoRecord) Partition {
	all := make([]ScoredVideo, len(videos))
	for i, v := range videos {
		all[i] = ScoredVideo{VideoRecord: v, PreFilter: p.Score(v)}
	}
	sort.SliceStable(all, func(i, j int) bool {
		return all[i].PreFilter.Priority > all[j].PreFilter.Priority
	})

	var out Partition
	out.All = all
	for _, sv := range all {
		switch score := sv.PreFilter.InfringementScore; {
		case score >= 3:
			out.HighPriority = append(out.HighPriority, sv)
		case score > 0:
			out.MediumPriority = append(out.MediumPriority, sv)
		default:
			out.LowPriority = append(out.LowPriority, sv)
		}
	}

	slog.Debug("prefilter: partitioned",
		slog.Int("high", len(out.HighPriority)),
		slog.Int("medium", len(out.MediumPriority)),
		slog.Int("low", len(out.LowPriority)),
	)
	return out
}

// Videos strips pre-filter metadata from a tier.
func Videos(scored []ScoredVideo) []VideoRecord {
	out := make([]VideoRecord, len(scored))
	for i, sv := range scored {
		out[i] = sv.VideoRecord
	}
	return out
}
