package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

const (
	DefaultMediumPriorityLimit = 20
	subjectResultsPerQuery     = DefaultMaxResults
	strikableConfidence        = 70
)

// FindingsSink receives strikable videos once a subject analysis finishes.
type FindingsSink interface {
	PublishFindings(ctx context.Context, runID, subject string, videos []StrikableVideo) error
}

// AnalyzerOptions wires the pipeline collaborators. Only Acquirer and Classifier are required.
type AnalyzerOptions struct {
	Acquirer            VideoAcquirer
	Classifier          VideoClassifier
	Keywords            KeywordResearcher // nil = static fallback keywords
	Progress            Publisher         // nil = events discarded
	Findings            FindingsSink      // nil = findings not published
	PreFilter           PreFilter
	BatchSize           int
	BatchPause          time.Duration
	MediumPriorityLimit int
	KeywordSuffix       string
}

// Analyzer runs the acquire → whitelist → pre-filter → classify → report pipeline.
type Analyzer struct {
	acquirer    VideoAcquirer
	keywords    KeywordResearcher
	progress    Publisher
	findings    FindingsSink
	prefilter   PreFilter
	batch       *BatchRunner
	mediumLimit int
	suffix      string
	newRunID    func() string
}

// NewAnalyzer builds an Analyzer from opts.
func NewAnalyzer(opts AnalyzerOptions) *Analyzer {
	a := &Analyzer{
		acquirer:    opts.Acquirer,
		keywords:    opts.Keywords,
		progress:    opts.Progress,
		findings:    opts.Findings,
		prefilter:   opts.PreFilter,
		batch:       &BatchRunner{Classifier: opts.Classifier, BatchSize: opts.BatchSize, Pause: opts.BatchPause},
		mediumLimit: opts.MediumPriorityLimit,
		suffix:      opts.KeywordSuffix,
		newRunID:    uuid.NewString,
	}
	if a.progress == nil {
		a.progress = discardPublisher{}
	}
	if a.mediumLimit <= 0 {
		a.mediumLimit = DefaultMediumPriorityLimit
	}
	if a.suffix == "" {
		a.suffix = DefaultKeywordSuffix
	}
	return a
}

// AnalyzeSearch acquires videos for keywords (or a trending category), triages them and
// classifies the high-priority tier plus a bounded slice of the medium tier.
func (a *Analyzer) AnalyzeSearch(ctx context.Context, req SearchAnalysisRequest) (resp SearchAnalysisResponse, err error) {
	keywords := strings.TrimSpace(req.Keywords)
	category := strings.TrimSpace(req.Category)
	if keywords == "" && category == "" {
		return SearchAnalysisResponse{}, fmt.Errorf("%w: keywords or category is required", ErrInvalidRequest)
	}
	maxResults := req.MaxResults
	if maxResults <= 0 {
		maxResults = DefaultMaxResults
	}

	runID := a.newRunID()
	log := slog.With(slog.String("run", runID))
	_ = TrackOperation(ctx, "analyze:"+runID, func(ctx context.Context) error {
		resp, err = a.analyzeSearch(ctx, runID, log, keywords, category, maxResults, req.ChannelWhitelist)
		return err
	})
	return
}

func (a *Analyzer) analyzeSearch(ctx context.Context, runID string, log *slog.Logger, keywords, category string, maxResults int, whitelist []string) (SearchAnalysisResponse, error) {
	var (
		videos []VideoRecord
		err    error
	)
	if keywords != "" {
		log.Info("analyze: searching", slog.String("keywords", keywords), slog.Int("max", maxResults))
		videos, err = a.acquirer.Search(ctx, keywords, maxResults)
	} else {
		log.Info("analyze: trending", slog.String("category", category), slog.Int("max", maxResults))
		videos, err = a.acquirer.Trending(ctx, category, maxResults)
	}
	if err != nil {
		return SearchAnalysisResponse{}, err
	}

	a.publish(ProgressEvent{
		RunID:    runID,
		Step:     StepSearchComplete,
		Message:  fmt.Sprintf("Found %d videos", len(videos)),
		Progress: 10,
	})

	videos = excludeChannels(videos, whitelist)
	if len(videos) == 0 {
		return SearchAnalysisResponse{
			RunID:    runID,
			Message:  "No videos found",
			Analyses: []ClassificationResult{},
			Report:   Summarize(nil),
		}, nil
	}

	tiers := a.prefilter.Partition(videos)
	toAnalyze := Videos(tiers.HighPriority)
	toAnalyze = append(toAnalyze, Videos(tiers.MediumPriority[:min(a.mediumLimit, len(tiers.MediumPriority))])...)

	a.publish(ProgressEvent{
		RunID:       runID,
		Step:        StepFilterComplete,
		Message:     fmt.Sprintf("Pre-filtered to %d high-priority videos", len(toAnalyze)),
		Progress:    20,
		TotalVideos: len(toAnalyze),
	})

	results := a.batch.Run(ctx, toAnalyze, a.analyzingProgress(runID, 20, 70))
	report := Summarize(results)

	log.Info("analyze: complete",
		slog.Int("acquired", len(videos)),
		slog.Int("analyzed", len(results)),
		slog.Int("infringing", report.LikelyInfringing),
	)

	return SearchAnalysisResponse{
		RunID:    runID,
		Message:  fmt.Sprintf("Analyzed %d of %d videos", len(results), len(videos)),
		Videos:   len(videos),
		Analyses: results,
		Report:   report,
	}, nil
}

// AnalyzeSubject researches keywords for a subject, searches every keyword, and returns the
// high-confidence infringing videos among the high-priority tier.
func (a *Analyzer) AnalyzeSubject(ctx context.Context, req SubjectAnalysisRequest) (resp SubjectAnalysisResponse, err error) {
	subject := strings.TrimSpace(req.SubjectName)
	if subject == "" {
		return SubjectAnalysisResponse{}, fmt.Errorf("%w: subjectName is required", ErrInvalidRequest)
	}

	runID := a.newRunID()
	log := slog.With(slog.String("run", runID), slog.String("subject", subject))
	_ = TrackOperation(ctx, "subject:"+runID, func(ctx context.Context) error {
		resp, err = a.analyzeSubject(ctx, runID, log, subject, req.ChannelWhitelist)
		return err
	})
	return
}

func (a *Analyzer) analyzeSubject(ctx context.Context, runID string, log *slog.Logger, subject string, whitelist []string) (SubjectAnalysisResponse, error) {
	a.publish(ProgressEvent{
		RunID:    runID,
		Step:     StepKeywordResearch,
		Message:  "Researching keywords for " + subject,
		Progress: 5,
	})

	ks := FallbackKeywords(subject, a.suffix)
	if a.keywords != nil {
		ks = a.keywords.Research(ctx, subject)
	}
	queries := subjectQueries(ks)

	a.publish(ProgressEvent{
		RunID:    runID,
		Step:     StepSearching,
		Message:  fmt.Sprintf("Searching %d keywords", len(queries)),
		Progress: 15,
		Keywords: queries,
	})

	videos, err := a.searchAll(ctx, log, queries)
	if err != nil {
		return SubjectAnalysisResponse{}, err
	}
	videos = excludeChannels(videos, whitelist)

	a.publish(ProgressEvent{
		RunID:       runID,
		Step:        StepSearchComplete,
		Message:     fmt.Sprintf("Found %d unique videos", len(videos)),
		Progress:    30,
		TotalVideos: len(videos),
	})

	resp := SubjectAnalysisResponse{
		RunID:           runID,
		SubjectName:     subject,
		Keywords:        ks,
		StrikableVideos: []StrikableVideo{},
	}
	if len(videos) == 0 {
		resp.Message = "No videos found"
		return resp, nil
	}

	toAnalyze := Videos(a.prefilter.Partition(videos).HighPriority)

	a.publish(ProgressEvent{
		RunID:       runID,
		Step:        StepFilterComplete,
		Message:     fmt.Sprintf("Pre-filtered to %d high-priority videos", len(toAnalyze)),
		Progress:    40,
		TotalVideos: len(toAnalyze),
	})

	results := a.batch.Run(ctx, toAnalyze, a.analyzingProgress(runID, 40, 50))
	for i, r := range results {
		if r.IsLikelyInfringing && r.ConfidenceScore >= strikableConfidence {
			resp.StrikableVideos = append(resp.StrikableVideos, newStrikable(toAnalyze[i], r))
		}
	}

	resp.TotalVideosAnalyzed = len(videos)
	resp.StrikableVideosCount = len(resp.StrikableVideos)
	resp.Message = fmt.Sprintf("Found %d strikable videos out of %d", resp.StrikableVideosCount, len(videos))

	log.Info("subject: complete",
		slog.Int("queries", len(queries)),
		slog.Int("videos", len(videos)),
		slog.Int("analyzed", len(results)),
		slog.Int("strikable", resp.StrikableVideosCount),
	)

	if a.findings != nil && len(resp.StrikableVideos) > 0 {
		if err := a.findings.PublishFindings(ctx, runID, subject, resp.StrikableVideos); err != nil {
			log.Warn("subject: publishing findings failed", slog.Any("error", err))
		}
	}
	return resp, nil
}

// searchAll runs every query concurrently. A failing query is skipped; only when every
// query fails is the combined error returned. Results are deduped by ID in query order
// and tagged with the query that first surfaced them.
func (a *Analyzer) searchAll(ctx context.Context, log *slog.Logger, queries []string) ([]VideoRecord, error) {
	perQuery := make([][]VideoRecord, len(queries))
	errs := make([]error, len(queries))

	var g errgroup.Group
	for i, q := range queries {
		g.Go(func() error {
			perQuery[i], errs[i] = a.acquirer.Search(ctx, q, subjectResultsPerQuery)
			if errs[i] != nil {
				log.Warn("subject: query failed", slog.String("query", q), slog.Any("error", errs[i]))
			}
			return nil
		})
	}
	_ = g.Wait()

	failed := 0
	seen := make(map[string]struct{})
	var out []VideoRecord
	for i, videos := range perQuery {
		if errs[i] != nil {
			failed++
			continue
		}
		for _, v := range videos {
			if _, dup := seen[v.ID]; dup {
				continue
			}
			seen[v.ID] = struct{}{}
			v.SearchKeyword = queries[i]
			out = append(out, v)
		}
	}
	if len(queries) > 0 && failed == len(queries) {
		return nil, errors.Join(errs...)
	}
	return out, nil
}

func (a *Analyzer) analyzingProgress(runID string, base, span int) func(BatchProgress) {
	return func(p BatchProgress) {
		a.publish(ProgressEvent{
			RunID:        runID,
			Step:         StepAnalyzing,
			Message:      fmt.Sprintf("Analyzing video %d of %d", p.Current, p.Total),
			Progress:     base + p.Current*span/max(1, p.Total),
			Current:      p.Current,
			Total:        p.Total,
			CurrentVideo: p.CurrentVideo,
		})
	}
}

func (a *Analyzer) publish(ev ProgressEvent) {
	a.progress.Publish(ev)
}

// excludeChannels drops videos whose channel matches the whitelist, case-insensitively.
func excludeChannels(videos []VideoRecord, whitelist []string) []VideoRecord {
	if len(whitelist) == 0 {
		return videos
	}
	skip := make(map[string]struct{}, len(whitelist))
	for _, name := range whitelist {
		if n := NormalizeChannel(name); n != "" {
			skip[n] = struct{}{}
		}
	}
	out := make([]VideoRecord, 0, len(videos))
	for _, v := range videos {
		if _, ok := skip[NormalizeChannel(v.Author)]; !ok {
			out = append(out, v)
		}
	}
	return out
}

func newStrikable(v VideoRecord, r ClassificationResult) StrikableVideo {
	return StrikableVideo{
		URL:             v.URL(),
		VideoID:         v.ID,
		Title:           v.Title,
		Channel:         v.Author,
		ConfidenceScore: r.ConfidenceScore,
		Keyword:         v.SearchKeyword,
		Reasons:         r.Reasons,
		Description:     v.Description,
		ViewCount:       v.ViewCount,
		LengthSeconds:   v.LengthSeconds,
		PublishedText:   v.PublishedText,
	}
}
