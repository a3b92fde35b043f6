package engine

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"
)

// Metrics tracks operational counters across the engine.
var metrics struct {
	ProxyRequests      atomic.Int64
	ProxyFailovers     atomic.Int64
	ProxyExhausted     atomic.Int64
	ScraperRuns        atomic.Int64
	ScraperErrors      atomic.Int64
	SourceFallbacks    atomic.Int64
	LLMCalls           atomic.Int64
	LLMErrors          atomic.Int64
	Classifications    atomic.Int64
	GuardrailOverrides atomic.Int64
	GuardrailFloors    atomic.Int64
	KeywordRequests    atomic.Int64
	KeywordFallbacks   atomic.Int64
	ProgressEvents     atomic.Int64
	ProgressDrops      atomic.Int64
	FindingsPublished  atomic.Int64
}

// metricKeys fixes the output order of FormatMetrics.
var metricKeys = []string{
	"proxy_requests", "proxy_failovers", "proxy_exhausted",
	"scraper_runs", "scraper_errors", "source_fallbacks",
	"llm_calls", "llm_errors",
	"classifications", "guardrail_overrides", "guardrail_floors",
	"keyword_requests", "keyword_fallbacks",
	"progress_events", "progress_drops",
	"findings_published",
	"cache_hits", "cache_misses",
}

// GetMetrics returns a snapshot of all metrics including cache stats.
func GetMetrics() map[string]int64 {
	hits, misses := CacheStats()
	return map[string]int64{
		"proxy_requests":      metrics.ProxyRequests.Load(),
		"proxy_failovers":     metrics.ProxyFailovers.Load(),
		"proxy_exhausted":     metrics.ProxyExhausted.Load(),
		"scraper_runs":        metrics.ScraperRuns.Load(),
		"scraper_errors":      metrics.ScraperErrors.Load(),
		"source_fallbacks":    metrics.SourceFallbacks.Load(),
		"llm_calls":           metrics.LLMCalls.Load(),
		"llm_errors":          metrics.LLMErrors.Load(),
		"classifications":     metrics.Classifications.Load(),
		"guardrail_overrides": metrics.GuardrailOverrides.Load(),
		"guardrail_floors":    metrics.GuardrailFloors.Load(),
		"keyword_requests":    metrics.KeywordRequests.Load(),
		"keyword_fallbacks":   metrics.KeywordFallbacks.Load(),
		"progress_events":     metrics.ProgressEvents.Load(),
		"progress_drops":      metrics.ProgressDrops.Load(),
		"findings_published":  metrics.FindingsPublished.Load(),
		"cache_hits":          hits,
		"cache_misses":        misses,
	}
}

// FormatMetrics returns metrics as a simple text format for HTTP endpoint.
func FormatMetrics() string {
	m := GetMetrics()
	var sb strings.Builder
	for _, k := range metricKeys {
		fmt.Fprintf(&sb, "%s %d\n", k, m[k])
	}
	return sb.String()
}

// Incrementors for sources/ and findings/ sub-packages.
func IncrProxyRequests()          { metrics.ProxyRequests.Add(1) }
func IncrProxyFailovers()         { metrics.ProxyFailovers.Add(1) }
func IncrProxyExhausted()         { metrics.ProxyExhausted.Add(1) }
func IncrScraperRuns()            { metrics.ScraperRuns.Add(1) }
func IncrScraperErrors()          { metrics.ScraperErrors.Add(1) }
func IncrKeywordRequests()        { metrics.KeywordRequests.Add(1) }
func IncrKeywordFallbacks()       { metrics.KeywordFallbacks.Add(1) }
func IncrFindingsPublished(n int) { metrics.FindingsPublished.Add(int64(n)) }

// TrackOperation logs a warning if an operation takes longer than threshold.
func TrackOperation(ctx context.Context, name string, fn func(context.Context) error) error {
	start := time.Now()
	err := fn(ctx)
	elapsed := time.Since(start)
	if elapsed > 30*time.Second {
		slog.Warn("slow operation", slog.String("op", name), slog.Duration("elapsed", elapsed))
	}
	return err
}
