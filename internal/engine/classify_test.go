package engine

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

func stubLLM(reply string, err error) Completer {
	return CompleterFunc(func(context.Context, string, string) (string, error) {
		return reply, err
	})
}

func fixedClock(c *Classifier) *Classifier {
	c.now = func() time.Time { return time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC) }
	return c
}

func TestApplyGuardrail(t *testing.T) {
	tests := []struct {
		name           string
		text           string
		in             verdict
		wantInfringing bool
		wantConfidence int
		wantReason     string
	}{
		{
			name:           "no promotion term forces non-infringing and caps",
			text:           "Fortnite Pro Settings Tutorial",
			in:             verdict{infringing: true, confidence: 95, reasons: []string{"model says so"}},
			wantInfringing: false,
			wantConfidence: 60,
			wantReason:     reasonNoPromo,
		},
		{
			name:           "cap keeps lower model score",
			text:           "just a gameplay video",
			in:             verdict{infringing: true, confidence: 30},
			wantInfringing: false,
			wantConfidence: 30,
			wantReason:     reasonNoPromo,
		},
		{
			name:           "legitimate context overrides promotion",
			text:           "cheater exposed using aimbot, caught and banned",
			in:             verdict{infringing: true, confidence: 90},
			wantInfringing: false,
			wantConfidence: 60,
			wantReason:     reasonLegitContext,
		},
		{
			name:           "promotion floors confidence",
			text:           "undetected aimbot download",
			in:             verdict{infringing: true, confidence: 40, reasons: []string{"promo"}},
			wantInfringing: true,
			wantConfidence: 70,
			wantReason:     "promo",
		},
		{
			name:           "promotion keeps higher model score",
			text:           "free injector link",
			in:             verdict{infringing: true, confidence: 92, reasons: []string{"promo"}},
			wantInfringing: true,
			wantConfidence: 92,
			wantReason:     "promo",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := applyGuardrail(tt.text, tt.in)
			if got.infringing != tt.wantInfringing {
				t.Errorf("infringing = %v, want %v", got.infringing, tt.wantInfringing)
			}
			if got.confidence != tt.wantConfidence {
				t.Errorf("confidence = %d, want %d", got.confidence, tt.wantConfidence)
			}
			if len(got.reasons) == 0 || got.reasons[0] != tt.wantReason {
				t.Errorf("reasons = %v, want first %q", got.reasons, tt.wantReason)
			}
			if !got.infringing && len(got.fairUseFactors) != 0 {
				t.Errorf("override must clear fair use factors, got %v", got.fairUseFactors)
			}
		})
	}
}

// The guardrail invariants must hold for every model answer.
func TestGuardrailInvariants(t *testing.T) {
	texts := []string{
		"Free Fortnite Aimbot Download 2024 link in discord",
		"Fortnite Pro Settings Tutorial",
		"wallhack exposed",
		"minecraft montage",
		"valorant injector undetected",
	}
	for _, text := range texts {
		lower := strings.ToLower(text)
		hasPromo := containsAny(lower, promotionTerms)
		hasLegit := containsAny(lower, legitimateContextTerms)
		for _, modelSays := range []bool{true, false} {
			for _, conf := range []int{0, 35, 69, 70, 100} {
				got := applyGuardrail(text, verdict{infringing: modelSays, confidence: conf})
				if !hasPromo && got.infringing {
					t.Errorf("%q: flagged without promotion term", text)
				}
				if hasPromo && !hasLegit && got.confidence < 70 {
					t.Errorf("%q: confidence %d below floor", text, got.confidence)
				}
				if got.confidence < 0 || got.confidence > 100 {
					t.Errorf("%q: confidence %d out of range", text, got.confidence)
				}
			}
		}
	}
}

func TestClassifierScenarioFortnite(t *testing.T) {
	c := fixedClock(NewClassifier(stubLLM("```json\n"+`{"isLikelyInfringing": true, "confidenceScore": 55,
		"reasons": ["offers download", "discord link", "aimbot", "extra"], "copyrightType": "game", "fairUseFactors": []}`+"\n```", nil), time.Second, 0))

	promo := c.Classify(context.Background(), VideoRecord{
		ID: "promo", Title: "Free Fortnite Aimbot Download 2024", Author: "Hax", Description: "link in discord",
	})
	if !promo.IsLikelyInfringing || promo.ConfidenceScore < 70 {
		t.Errorf("promo: infringing=%v confidence=%d, want true and >= 70", promo.IsLikelyInfringing, promo.ConfidenceScore)
	}
	if len(promo.Reasons) != 3 {
		t.Errorf("reasons must be capped at 3, got %v", promo.Reasons)
	}
	if promo.CopyrightType != CopyrightGame {
		t.Errorf("copyrightType = %q", promo.CopyrightType)
	}
	if promo.VideoID != "promo" || promo.ChannelName != "Hax" || promo.Error != "" {
		t.Errorf("unexpected metadata: %+v", promo)
	}
	if promo.AnalysisTimestamp.IsZero() {
		t.Error("timestamp not set")
	}

	guide := c.Classify(context.Background(), VideoRecord{ID: "guide", Title: "Fortnite Pro Settings Tutorial"})
	if guide.IsLikelyInfringing {
		t.Error("guide: must not be flagged")
	}
	if guide.ConfidenceScore > 60 {
		t.Errorf("guide: confidence %d above cap", guide.ConfidenceScore)
	}
}

func TestClassifierFailures(t *testing.T) {
	tests := []struct {
		name string
		llm  Completer
	}{
		{"transport error", stubLLM("", errors.New("connection refused"))},
		{"no json", stubLLM("I can't do that", nil)},
		{"bad json", stubLLM(`{"confidenceScore": "high"`+"}", nil)},
		{"nil llm", nil},
		{"panicking llm", CompleterFunc(func(context.Context, string, string) (string, error) { panic("boom") })},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := fixedClock(NewClassifier(tt.llm, time.Second, 0))
			got := c.Classify(context.Background(), VideoRecord{ID: "x", Title: "free aimbot download"})
			if got.IsLikelyInfringing || got.ConfidenceScore != 0 {
				t.Errorf("failure must yield non-infringing zero confidence, got %+v", got)
			}
			if got.Error == "" {
				t.Error("failure must be tagged with an error")
			}
			if got.VideoID != "x" || got.CopyrightType != CopyrightNone {
				t.Errorf("unexpected result: %+v", got)
			}
		})
	}
}

func TestNormalizeVerdict(t *testing.T) {
	v := normalizeVerdict(modelVerdict{ConfidenceScore: 140.6, Reasons: []string{" a ", "", "b"}, CopyrightType: "TV Show"})
	if v.confidence != 100 {
		t.Errorf("confidence = %d, want clamp to 100", v.confidence)
	}
	if len(v.reasons) != 2 || v.reasons[0] != "a" {
		t.Errorf("reasons = %v", v.reasons)
	}
	if v.copyrightType != CopyrightTVShow {
		t.Errorf("copyrightType = %q", v.copyrightType)
	}
	if v.fairUseFactors == nil {
		t.Error("fairUseFactors must be non-nil")
	}

	if neg := normalizeVerdict(modelVerdict{ConfidenceScore: -5}); neg.confidence != 0 {
		t.Errorf("negative confidence = %d, want 0", neg.confidence)
	}
}

func TestBuildClassifyPromptTruncates(t *testing.T) {
	desc := strings.Repeat("é", 500)
	prompt := BuildClassifyPrompt(VideoRecord{Title: "T", Author: "C", Description: desc})
	if strings.Count(prompt, "é") != descriptionSnippetRunes {
		t.Errorf("description snippet has %d runes, want %d", strings.Count(prompt, "é"), descriptionSnippetRunes)
	}
	if !strings.Contains(prompt, `Video title: "T"`) || !strings.Contains(prompt, "Channel: C") {
		t.Error("prompt missing title or channel")
	}
}

func TestParseCopyrightType(t *testing.T) {
	tests := map[string]CopyrightType{
		"":         CopyrightNone,
		"none":     CopyrightNone,
		"Movie":    CopyrightMovie,
		"tv":       CopyrightTVShow,
		"software": CopyrightSoftware,
		"anime":    CopyrightOther,
	}
	for in, want := range tests {
		if got := ParseCopyrightType(in); got != want {
			t.Errorf("ParseCopyrightType(%q) = %q, want %q", in, got, want)
		}
	}
}
