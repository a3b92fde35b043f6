package engine

import (
	"net/http"
	"strings"
	"time"
)

// SourceMode selects which retrieval sources the Acquirer may use.
type SourceMode string

const (
	SourceModeAuto    SourceMode = "auto"    // proxy first, scraper on error or empty result
	SourceModeProxy   SourceMode = "proxy"   // proxy only, scraper still rescues failures
	SourceModeScraper SourceMode = "scraper" // scraper only
)

// ParseSourceMode maps a config string onto a SourceMode. Unknown values are auto.
func ParseSourceMode(s string) SourceMode {
	switch m := SourceMode(strings.ToLower(strings.TrimSpace(s))); m {
	case SourceModeProxy, SourceModeScraper:
		return m
	default:
		return SourceModeAuto
	}
}

// Config holds all engine configuration, injected from main.
type Config struct {
	LLMAPIKey          string
	LLMAPIKeyFallbacks []string
	LLMAPIBase         string
	LLMModel           string
	LLMTemperature     float64
	LLMMaxTokens       int
	LLMTimeout         time.Duration
	LLMRPS             float64 // 0 = unlimited

	SourceMode        SourceMode
	PipedInstances    []string // empty = built-in static list
	PipedDynamic      bool
	PipedInstancesURL string
	InstanceRefresh   time.Duration
	ProxyTimeout      time.Duration
	HealthTimeout     time.Duration
	YtDlpBin          string
	YtDlpTimeout      time.Duration

	SkipShorts       bool
	ShortsMaxSeconds int

	BatchSize           int
	BatchPause          time.Duration
	MediumPriorityLimit int

	CacheTTL             time.Duration
	CacheMaxEntries      int
	CacheCleanupInterval time.Duration
	RedisURL             string

	VidIQAPIToken  string
	VidIQAPIBase   string
	KeywordTimeout time.Duration
	KeywordSuffix  string

	KafkaBrokers       []string
	KafkaFindingsTopic string

	HTTPClient *http.Client
}

var cfg Config

// Init initializes the engine with the given configuration.
func Init(c Config) {
	cfg = c
}

// HTTPClient returns the shared outbound client, or http.DefaultClient before Init.
func HTTPClient() *http.Client {
	if cfg.HTTPClient != nil {
		return cfg.HTTPClient
	}
	return http.DefaultClient
}
