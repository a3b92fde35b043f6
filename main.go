// go_takedown is a video copyright-infringement triage service.
//
// Acquires candidate videos through Piped proxies (yt-dlp as fallback), pre-filters them
// with keyword heuristics and scores the likely ones with an LLM behind a deterministic
// guardrail. Served over HTTP (with an SSE progress stream) and as MCP tools.
package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/anatolykoptev/go-kit/env"
	"github.com/anatolykoptev/go-mcpserver"
	"github.com/anatolykoptev/go_takedown/internal/analysisserver"
	"github.com/anatolykoptev/go_takedown/internal/engine"
	"github.com/anatolykoptev/go_takedown/internal/engine/sources"
	"github.com/anatolykoptev/go_takedown/internal/findings"
	"github.com/anatolykoptev/go_takedown/internal/httpapi"
	"github.com/joho/godotenv"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

var version = "dev"

func main() {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		slog.Warn("failed to load .env", slog.Any("error", err))
	}

	mcpPort := env.Str("MCP_PORT", "8893")
	httpPort := env.Str("HTTP_PORT", "3000")

	c := loadConfig()
	engine.Init(c)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	analyzer, cleanup := buildAnalyzer(ctx, c)
	defer cleanup()

	slog.Info("starting go_takedown",
		slog.String("mcp_port", mcpPort),
		slog.String("http_port", httpPort),
		slog.String("source_mode", string(c.SourceMode)),
	)

	api := httpapi.New(httpapi.Options{
		Analyzer:   analyzer.Analyzer,
		Progress:   analyzer.progress,
		SourceMode: c.SourceMode,
		LLMModel:   c.LLMModel,
	})
	go func() {
		if err := api.Listen(":" + httpPort); err != nil {
			slog.Error("http api failed", slog.Any("error", err))
		}
	}()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := api.Shutdown(shutdownCtx); err != nil {
			slog.Warn("http api shutdown", slog.Any("error", err))
		}
	}()

	server := mcp.NewServer(&mcp.Implementation{
		Name:    "go_takedown",
		Version: version,
	}, nil)

	analysisserver.RegisterTools(server, analyzer.Analyzer)
	slog.Info("tools registered", slog.Int("count", 2))

	if err := mcpserver.Run(server, mcpserver.Config{
		Name:         "go_takedown",
		Version:      version,
		Port:         mcpPort,
		WriteTimeout: 600 * time.Second,
		Metrics:      engine.FormatMetrics,
	}); err != nil {
		slog.Error("server failed", slog.Any("error", err))
	}
}

func loadConfig() engine.Config {
	mode := engine.ParseSourceMode(env.Str("SOURCE_MODE", "auto"))
	if env.Str("FORCE_PIPED", "0") == "1" {
		mode = engine.SourceModeProxy
	}
	return engine.Config{
		LLMAPIKey:          env.Str("LLM_API_KEY", ""),
		LLMAPIKeyFallbacks: env.List("LLM_API_KEY_FALLBACKS", ""),
		LLMAPIBase:         env.Str("LLM_API_BASE", "https://api.openai.com/v1"),
		LLMModel:           env.Str("LLM_MODEL", "gpt-3.5-turbo"),
		LLMTemperature:     env.Float("LLM_TEMPERATURE", 0.1),
		LLMMaxTokens:       env.Int("LLM_MAX_TOKENS", 150),
		LLMTimeout:         env.Duration("LLM_TIMEOUT", 30*time.Second),
		LLMRPS:             env.Float("LLM_RPS", 0),

		SourceMode:        mode,
		PipedInstances:    env.List("PIPED_INSTANCES", ""),
		PipedDynamic:      env.Str("PIPED_DYNAMIC", "0") == "1",
		PipedInstancesURL: env.Str("PIPED_INSTANCES_URL", sources.DefaultPipedInstancesURL),
		InstanceRefresh:   env.Duration("INSTANCE_REFRESH", engine.DefaultInstanceRefresh),
		ProxyTimeout:      env.Duration("PROXY_TIMEOUT", sources.DefaultProxyTimeout),
		HealthTimeout:     env.Duration("HEALTH_TIMEOUT", sources.DefaultHealthTimeout),
		YtDlpBin:          env.Str("YTDLP_BIN", sources.DefaultYtDlpBin),
		YtDlpTimeout:      env.Duration("YTDLP_TIMEOUT", sources.DefaultYtDlpTimeout),

		SkipShorts:       env.Str("SKIP_SHORTS", "1") != "0",
		ShortsMaxSeconds: env.Int("SHORTS_MAX_SECONDS", engine.DefaultShortsMaxSeconds),

		BatchSize:           env.Int("BATCH_SIZE", engine.DefaultBatchSize),
		BatchPause:          env.Duration("BATCH_PAUSE", engine.DefaultBatchPause),
		MediumPriorityLimit: env.Int("MEDIUM_PRIORITY_LIMIT", engine.DefaultMediumPriorityLimit),

		CacheTTL:             env.Duration("CACHE_TTL", engine.DefaultCacheTTL),
		CacheMaxEntries:      env.Int("CACHE_MAX_ENTRIES", engine.DefaultCacheMaxEntries),
		CacheCleanupInterval: env.Duration("CACHE_CLEANUP_INTERVAL", 5*time.Minute),
		RedisURL:             env.Str("REDIS_URL", ""),

		VidIQAPIToken:  env.Str("VIDIQ_API_TOKEN", ""),
		VidIQAPIBase:   env.Str("VIDIQ_API_BASE", sources.DefaultVidIQBase),
		KeywordTimeout: env.Duration("KEYWORD_TIMEOUT", sources.DefaultKeywordTimeout),
		KeywordSuffix:  env.Str("KEYWORD_SUFFIX", engine.DefaultKeywordSuffix),

		KafkaBrokers:       env.List("KAFKA_BROKERS", ""),
		KafkaFindingsTopic: env.Str("KAFKA_FINDINGS_TOPIC", "strikable_videos"),

		HTTPClient: &http.Client{
			Timeout: 15 * time.Second,
			Transport: &http.Transport{
				MaxIdleConns:        20,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     60 * time.Second,
			},
		},
	}
}

// wiredAnalyzer keeps the broadcaster next to the analyzer so both transports share it.
type wiredAnalyzer struct {
	*engine.Analyzer
	progress *engine.Broadcaster
}

func buildAnalyzer(ctx context.Context, c engine.Config) (wiredAnalyzer, func()) {
	var closers []func() error

	cache := engine.NewSearchCache(engine.CacheOptions{
		RedisURL:        c.RedisURL,
		TTL:             c.CacheTTL,
		MaxEntries:      c.CacheMaxEntries,
		CleanupInterval: c.CacheCleanupInterval,
	})
	closers = append(closers, cache.Close)

	static := c.PipedInstances
	if len(static) == 0 {
		static = sources.PipedStaticInstances
	}
	var discoverer engine.InstanceDiscoverer
	if c.PipedDynamic {
		discoverer = &sources.PipedDiscovery{
			ListURL:       c.PipedInstancesURL,
			Client:        c.HTTPClient,
			HealthTimeout: c.HealthTimeout,
		}
	}
	dir := engine.NewInstanceDirectory(static, discoverer, c.InstanceRefresh)
	go dir.Run(ctx)

	scraper := sources.NewYtDlp(c.YtDlpBin, c.YtDlpTimeout, nil)
	if err := scraper.Available(); err != nil {
		slog.Warn("yt-dlp not found, scraper fallback will fail", slog.String("bin", c.YtDlpBin), slog.Any("error", err))
	}

	acq := &engine.Acquirer{
		Proxy:   sources.NewPiped(dir, c.HTTPClient, c.ProxyTimeout),
		Scraper: scraper,
		Mode:    c.SourceMode,
		Shorts:  engine.ShortsFilter{Enabled: c.SkipShorts, MaxSeconds: c.ShortsMaxSeconds},
		Cache:   cache,
	}

	keywords := &sources.VidIQ{
		Token:   c.VidIQAPIToken,
		BaseURL: c.VidIQAPIBase,
		Suffix:  c.KeywordSuffix,
		Client:  c.HTTPClient,
		Timeout: c.KeywordTimeout,
	}
	if c.VidIQAPIToken == "" {
		slog.Info("VIDIQ_API_TOKEN not set, using fallback keywords")
	}

	progress := engine.NewBroadcaster(64)

	var sink engine.FindingsSink
	if len(c.KafkaBrokers) > 0 {
		ks := findings.NewKafkaSink(c.KafkaBrokers, c.KafkaFindingsTopic)
		closers = append(closers, ks.Close)
		sink = ks
		slog.Info("findings sink ready", slog.Any("brokers", c.KafkaBrokers), slog.String("topic", c.KafkaFindingsTopic))
	}

	a := engine.NewAnalyzer(engine.AnalyzerOptions{
		Acquirer:            acq,
		Classifier:          engine.NewClassifier(engine.NewLLM(c), c.LLMTimeout, c.LLMRPS),
		Keywords:            keywords,
		Progress:            progress,
		Findings:            sink,
		BatchSize:           c.BatchSize,
		BatchPause:          c.BatchPause,
		MediumPriorityLimit: c.MediumPriorityLimit,
		KeywordSuffix:       c.KeywordSuffix,
	})

	cleanup := func() {
		for _, closeFn := range closers {
			if err := closeFn(); err != nil {
				slog.Warn("close failed", slog.Any("error", err))
			}
		}
	}
	return wiredAnalyzer{Analyzer: a, progress: progress}, cleanup
}
