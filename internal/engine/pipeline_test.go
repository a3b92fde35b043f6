package engine

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// queryAcquirer serves canned results per query.
type queryAcquirer struct {
	mu       sync.Mutex
	byQuery  map[string][]VideoRecord
	failing  map[string]bool
	queries  []string
	trending []VideoRecord
}

func (q *queryAcquirer) Search(_ context.Context, query string, _ int) ([]VideoRecord, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.queries = append(q.queries, query)
	if q.failing[query] {
		return nil, errors.New("all sources failed for " + query)
	}
	return q.byQuery[query], nil
}

func (q *queryAcquirer) Trending(context.Context, string, int) ([]VideoRecord, error) {
	return q.trending, nil
}

// recorder captures progress events in publish order.
type recorder struct {
	mu     sync.Mutex
	events []ProgressEvent
}

func (r *recorder) Publish(ev ProgressEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

func (r *recorder) steps() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []string
	for _, ev := range r.events {
		if len(out) == 0 || out[len(out)-1] != ev.Step {
			out = append(out, ev.Step)
		}
	}
	return out
}

type findingsRecorder struct {
	runID   string
	subject string
	videos  []StrikableVideo
}

func (f *findingsRecorder) PublishFindings(_ context.Context, runID, subject string, videos []StrikableVideo) error {
	f.runID, f.subject, f.videos = runID, subject, videos
	return nil
}

// promoLLM flags everything with a mid confidence; the guardrail decides the rest.
var promoLLM = CompleterFunc(func(context.Context, string, string) (string, error) {
	return `{"isLikelyInfringing": true, "confidenceScore": 50, "reasons": ["promotes cheat"], "copyrightType": "game"}`, nil
})

func newTestAnalyzer(acq VideoAcquirer, pub Publisher) *Analyzer {
	a := NewAnalyzer(AnalyzerOptions{
		Acquirer:   acq,
		Classifier: NewClassifier(promoLLM, 0, 0),
		Progress:   pub,
	})
	a.newRunID = func() string { return "run-1" }
	return a
}

func TestAnalyzeSearchScenarioFortnite(t *testing.T) {
	acq := &queryAcquirer{byQuery: map[string][]VideoRecord{
		"fortnite": {
			{ID: "promo", Title: "Free Fortnite Aimbot Download 2024", Author: "Hax", Description: "link in discord", LengthSeconds: 300},
			{ID: "guide", Title: "Fortnite Pro Settings Tutorial", Author: "Coach", LengthSeconds: 600},
		},
	}}
	rec := &recorder{}

	resp, err := newTestAnalyzer(acq, rec).AnalyzeSearch(context.Background(), SearchAnalysisRequest{Keywords: "fortnite"})
	require.NoError(t, err)

	assert.Equal(t, "run-1", resp.RunID)
	assert.Equal(t, 2, resp.Videos)
	require.Len(t, resp.Analyses, 1, "only the high-priority video is classified")
	assert.Equal(t, "promo", resp.Analyses[0].VideoID)
	assert.True(t, resp.Analyses[0].IsLikelyInfringing)
	assert.GreaterOrEqual(t, resp.Analyses[0].ConfidenceScore, 70)
	assert.Equal(t, 1, resp.Report.LikelyInfringing)
	assert.Equal(t, "100.0", resp.Report.PercentageInfringing)

	assert.Equal(t, []string{StepSearchComplete, StepFilterComplete, StepAnalyzing}, rec.steps())
	last := rec.events[len(rec.events)-1]
	assert.Equal(t, 90, last.Progress)
	for _, ev := range rec.events {
		assert.Equal(t, "run-1", ev.RunID)
	}
}

func TestAnalyzeSearchWhitelist(t *testing.T) {
	acq := &queryAcquirer{byQuery: map[string][]VideoRecord{
		"valorant": {
			{ID: "v1", Title: "Valorant aimbot free download", Author: "Official Riot Channel"},
			{ID: "v2", Title: "Valorant wallhack undetected free", Author: "CheatShop"},
		},
	}}

	resp, err := newTestAnalyzer(acq, nil).AnalyzeSearch(context.Background(), SearchAnalysisRequest{
		Keywords:         "valorant",
		ChannelWhitelist: []string{"  official RIOT channel "},
	})
	require.NoError(t, err)

	assert.Equal(t, 1, resp.Videos)
	for _, r := range resp.Analyses {
		assert.NotEqual(t, "v1", r.VideoID, "whitelisted channel must never be analyzed")
	}
}

func TestAnalyzeSearchMediumLimit(t *testing.T) {
	var videos []VideoRecord
	for i := range 30 {
		videos = append(videos, VideoRecord{ID: strings.Repeat("m", i+1), Title: "gta mod menu"})
	}
	acq := &queryAcquirer{byQuery: map[string][]VideoRecord{"gta": videos}}

	resp, err := newTestAnalyzer(acq, nil).AnalyzeSearch(context.Background(), SearchAnalysisRequest{Keywords: "gta"})
	require.NoError(t, err)
	assert.Len(t, resp.Analyses, DefaultMediumPriorityLimit)
}

func TestAnalyzeSearchTrendingAndEmpty(t *testing.T) {
	acq := &queryAcquirer{}
	resp, err := newTestAnalyzer(acq, nil).AnalyzeSearch(context.Background(), SearchAnalysisRequest{Category: "music"})
	require.NoError(t, err)
	assert.Equal(t, "No videos found", resp.Message)
	assert.Empty(t, resp.Analyses)
	assert.Equal(t, "0.0", resp.Report.PercentageInfringing)
	assert.NotNil(t, resp.Report.TypeBreakdown)
}

func TestAnalyzeSearchValidation(t *testing.T) {
	_, err := newTestAnalyzer(&queryAcquirer{}, nil).AnalyzeSearch(context.Background(), SearchAnalysisRequest{})
	assert.ErrorIs(t, err, ErrInvalidRequest)
}

type staticKeywords KeywordSet

func (s staticKeywords) Research(context.Context, string) KeywordSet { return KeywordSet(s) }

func TestAnalyzeSubject(t *testing.T) {
	acq := &queryAcquirer{
		byQuery: map[string][]VideoRecord{
			"apex cheat": {
				{ID: "a1", Title: "Apex aimbot free download undetected", Author: "Hax"},
				{ID: "a2", Title: "Apex cheater exposed and banned", Author: "Hunter"},
			},
			"apex esp": {
				{ID: "a1", Title: "Apex aimbot free download undetected", Author: "Hax"},
				{ID: "a3", Title: "Apex ESP injector link in discord", Author: "Shop"},
			},
			"apex hack": {
				{ID: "a4", Title: "apex legends ranked gameplay", Author: "Pro"},
			},
		},
		failing: map[string]bool{"apex aimbot": true},
	}
	kw := staticKeywords{
		MainKeyword: "apex cheat",
		TopKeywords: []RankedKeyword{
			{Keyword: "apex esp", MonthlySearches: 900},
			{Keyword: "apex aimbot", MonthlySearches: 500},
			{Keyword: "Apex Cheat", MonthlySearches: 100},
			{Keyword: "apex hack", MonthlySearches: 50},
		},
	}
	rec := &recorder{}
	findings := &findingsRecorder{}

	a := NewAnalyzer(AnalyzerOptions{
		Acquirer:   acq,
		Classifier: NewClassifier(promoLLM, 0, 0),
		Keywords:   kw,
		Progress:   rec,
		Findings:   findings,
	})
	a.newRunID = func() string { return "run-s" }

	resp, err := a.AnalyzeSubject(context.Background(), SubjectAnalysisRequest{
		SubjectName:      "apex",
		ChannelWhitelist: []string{"shop"},
	})
	require.NoError(t, err)

	assert.ElementsMatch(t, []string{"apex cheat", "apex esp", "apex aimbot", "apex hack"}, acq.queries,
		"duplicate keywords are searched once")
	assert.Equal(t, 3, resp.TotalVideosAnalyzed, "a1 deduped, a3 whitelisted")

	require.Len(t, resp.StrikableVideos, 1)
	sv := resp.StrikableVideos[0]
	assert.Equal(t, "a1", sv.VideoID)
	assert.Equal(t, "apex cheat", sv.Keyword, "tagged with the first query that surfaced it")
	assert.Equal(t, "https://www.youtube.com/watch?v=a1", sv.URL)
	assert.GreaterOrEqual(t, sv.ConfidenceScore, 70)
	assert.Equal(t, 1, resp.StrikableVideosCount)

	assert.Equal(t, []string{StepKeywordResearch, StepSearching, StepSearchComplete, StepFilterComplete, StepAnalyzing}, rec.steps())
	assert.Equal(t, "run-s", findings.runID)
	assert.Len(t, findings.videos, 1)
}

func TestAnalyzeSubjectAllQueriesFail(t *testing.T) {
	acq := &queryAcquirer{failing: map[string]bool{
		"dota cheat": true, "dota hack": true, "dota aimbot": true,
		"dota esp": true, "dota wallhack": true, "free dota cheat": true,
	}}
	_, err := newTestAnalyzer(acq, nil).AnalyzeSubject(context.Background(), SubjectAnalysisRequest{SubjectName: "dota"})
	require.Error(t, err)
	assert.Len(t, acq.queries, 6, "fallback keyword set yields six queries")
}

func TestAnalyzeSubjectValidation(t *testing.T) {
	_, err := newTestAnalyzer(&queryAcquirer{}, nil).AnalyzeSubject(context.Background(), SubjectAnalysisRequest{SubjectName: "  "})
	assert.ErrorIs(t, err, ErrInvalidRequest)
}

func TestExcludeChannels(t *testing.T) {
	videos := []VideoRecord{{ID: "1", Author: "Alpha"}, {ID: "2", Author: "beta "}, {ID: "3", Author: "Gamma"}}
	got := excludeChannels(videos, []string{"ALPHA", "Beta", ""})
	require.Len(t, got, 1)
	assert.Equal(t, "3", got[0].ID)

	assert.Len(t, excludeChannels(videos, nil), 3)
}
