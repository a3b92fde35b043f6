package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

const (
	descriptionSnippetRunes = 200
	maxReasons              = 3

	// Guardrail bounds.
	overrideConfidenceCap = 60
	promotionFloor        = 70

	reasonNoPromo      = "No explicit download/promo terms in title/desc"
	reasonLegitContext = "Appears to discuss/expose, not promote"
	reasonFailed       = "Analysis failed"
)

// VideoClassifier produces a guarded verdict for one video. Implementations never fail:
// errors are reported through ClassificationResult.Error.
type VideoClassifier interface {
	Classify(ctx context.Context, v VideoRecord) ClassificationResult
}

// Classifier asks the external model for a verdict and then runs the guardrail over it.
type Classifier struct {
	llm     Completer
	limiter *rate.Limiter // nil = unlimited
	timeout time.Duration
	now     func() time.Time
}

// NewClassifier returns a classifier. rps <= 0 disables request limiting.
func NewClassifier(llm Completer, timeout time.Duration, rps float64) *Classifier {
	c := &Classifier{llm: llm, timeout: timeout, now: time.Now}
	if rps > 0 {
		c.limiter = rate.NewLimiter(rate.Limit(rps), max(1, int(math.Ceil(rps))))
	}
	return c
}

// modelVerdict is the JSON contract expected from the model.
type modelVerdict struct {
	IsLikelyInfringing bool     `json:"isLikelyInfringing"`
	ConfidenceScore    float64  `json:"confidenceScore"`
	Reasons            []string `json:"reasons"`
	CopyrightType      string   `json:"copyrightType"`
	FairUseFactors     []string `json:"fairUseFactors"`
}

// verdict is a normalized model answer, before and after the guardrail.
type verdict struct {
	infringing     bool
	confidence     int
	reasons        []string
	copyrightType  CopyrightType
	fairUseFactors []string
}

// Classify never returns an error; failures yield a zero-confidence, error-tagged result.
func (c *Classifier) Classify(ctx context.Context, v VideoRecord) (res ClassificationResult) {
	metrics.Classifications.Add(1)
	defer func() {
		if r := recover(); r != nil {
			slog.Error("classify: panic", slog.String("video", v.ID), slog.Any("panic", r))
			res = c.failed(v, fmt.Errorf("panic: %v", r))
		}
	}()

	raw, err := c.ask(ctx, v)
	if err != nil {
		slog.Warn("classify: model request failed", slog.String("video", v.ID), slog.Any("error", err))
		return c.failed(v, err)
	}
	mv, err := parseVerdict(raw)
	if err != nil {
		slog.Warn("classify: unparseable reply", slog.String("video", v.ID), slog.Any("error", err))
		return c.failed(v, err)
	}

	guarded := applyGuardrail(v.Title+"\n"+v.Description, normalizeVerdict(mv))
	return ClassificationResult{
		VideoID:            v.ID,
		VideoTitle:         v.Title,
		ChannelName:        v.Author,
		IsLikelyInfringing: guarded.infringing,
		ConfidenceScore:    guarded.confidence,
		Reasons:            guarded.reasons,
		CopyrightType:      guarded.copyrightType,
		FairUseFactors:     guarded.fairUseFactors,
		AnalysisTimestamp:  c.now().UTC(),
	}
}

func (c *Classifier) ask(ctx context.Context, v VideoRecord) (string, error) {
	if c.llm == nil {
		return "", errors.New("no LLM configured")
	}
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return "", fmt.Errorf("rate limit wait: %w", err)
		}
	}
	return c.llm.Complete(ctx, classifySystem, BuildClassifyPrompt(v))
}

func (c *Classifier) failed(v VideoRecord, err error) ClassificationResult {
	return ClassificationResult{
		VideoID:            v.ID,
		VideoTitle:         v.Title,
		ChannelName:        v.Author,
		IsLikelyInfringing: false,
		ConfidenceScore:    0,
		Reasons:            []string{reasonFailed},
		CopyrightType:      CopyrightNone,
		FairUseFactors:     []string{},
		AnalysisTimestamp:  c.now().UTC(),
		Error:              err.Error(),
	}
}

// BuildClassifyPrompt renders the bounded prompt for one video.
func BuildClassifyPrompt(v VideoRecord) string {
	desc := TruncateRunes(v.Description, descriptionSnippetRunes, "")
	return fmt.Sprintf(classifyPrompt, v.Title, v.Author, desc)
}

func parseVerdict(raw string) (modelVerdict, error) {
	obj, err := extractJSONObject(raw)
	if err != nil {
		return modelVerdict{}, err
	}
	var mv modelVerdict
	if err := json.Unmarshal([]byte(obj), &mv); err != nil {
		return modelVerdict{}, fmt.Errorf("decode verdict: %w", err)
	}
	return mv, nil
}

func normalizeVerdict(mv modelVerdict) verdict {
	conf := int(math.Round(mv.ConfidenceScore))
	conf = min(100, max(0, conf))

	reasons := make([]string, 0, maxReasons)
	for _, r := range mv.Reasons {
		if r = strings.TrimSpace(r); r != "" && len(reasons) < maxReasons {
			reasons = append(reasons, r)
		}
	}
	fair := mv.FairUseFactors
	if fair == nil {
		fair = []string{}
	}
	return verdict{
		infringing:     mv.IsLikelyInfringing,
		confidence:     conf,
		reasons:        reasons,
		copyrightType:  ParseCopyrightType(mv.CopyrightType),
		fairUseFactors: fair,
	}
}

// applyGuardrail corrects the model verdict from the raw title+description text.
// Without a promotion term, or with a legitimate-context term, the video cannot be flagged
// and confidence is capped. With a promotion term and no legitimate context, confidence
// is floored regardless of what the model said.
func applyGuardrail(text string, in verdict) verdict {
	lower := strings.ToLower(text)
	hasPromo := containsAny(lower, promotionTerms)
	hasLegit := containsAny(lower, legitimateContextTerms)

	out := in
	if !hasPromo || hasLegit {
		metrics.GuardrailOverrides.Add(1)
		out.infringing = false
		out.confidence = min(in.confidence, overrideConfidenceCap)
		if !hasPromo {
			out.reasons = []string{reasonNoPromo}
		} else {
			out.reasons = []string{reasonLegitContext}
		}
		out.fairUseFactors = []string{}
		return out
	}

	if out.confidence < promotionFloor {
		metrics.GuardrailFloors.Add(1)
		out.confidence = promotionFloor
	}
	return out
}
