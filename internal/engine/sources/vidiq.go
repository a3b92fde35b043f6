package sources

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/anatolykoptev/go_takedown/internal/engine"
)

const (
	DefaultVidIQBase      = "https://api.vidiq.com"
	DefaultKeywordTimeout = 10 * time.Second
	maxRankedKeywords     = 5
)

// cheatTerms restricts provider keywords to cheat-related phrasing.
var cheatTerms = []string{
	"cheat", "hack", "aimbot", "esp", "wallhack", "exploit", "mod", "trainer",
	"injector", "bypass", "undetected", "free", "download", "script", "macro", "bot", "auto",
}

// VidIQ ranks cheat keywords for a subject with the vidIQ hot-search endpoint.
// Any failure degrades to engine.FallbackKeywords.
type VidIQ struct {
	Token   string
	BaseURL string
	Suffix  string
	Client  *http.Client
	Timeout time.Duration
}

type vidiqResponse struct {
	Keywords []struct {
		Keyword                string  `json:"keyword"`
		EstimatedMonthlySearch int     `json:"estimated_monthly_search"`
		Competition            float64 `json:"competition"`
		RelatedScore           float64 `json:"related_score"`
	} `json:"keywords"`
}

// Research returns the main keyword plus up to five ranked keywords. Never fails.
func (v *VidIQ) Research(ctx context.Context, subject string) engine.KeywordSet {
	fallback := engine.FallbackKeywords(subject, v.Suffix)
	if v.Token == "" {
		engine.IncrKeywordFallbacks()
		slog.Debug("vidiq: no token, using fallback keywords", slog.String("subject", subject))
		return fallback
	}

	engine.IncrKeywordRequests()
	ks, err := v.research(ctx, fallback.MainKeyword)
	if err != nil {
		engine.IncrKeywordFallbacks()
		slog.Warn("vidiq: keyword research failed, using fallback", slog.String("subject", subject), slog.Any("error", err))
		return fallback
	}
	return ks
}

func (v *VidIQ) research(ctx context.Context, mainKeyword string) (engine.KeywordSet, error) {
	timeout := v.Timeout
	if timeout <= 0 {
		timeout = DefaultKeywordTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	base := v.BaseURL
	if base == "" {
		base = DefaultVidIQBase
	}
	params := url.Values{
		"q":                 {mainKeyword},
		"min_related_score": {"0"},
		"group":             {"v5"},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, strings.TrimRight(base, "/")+"/xwords/hottersearch?"+params.Encode(), nil)
	if err != nil {
		return engine.KeywordSet{}, err
	}
	req.Header.Set("Authorization", "Bearer "+v.Token)
	req.Header.Set("User-Agent", engine.UserAgentBot)
	req.Header.Set("Accept", "application/json")

	client := v.Client
	if client == nil {
		client = engine.HTTPClient()
	}
	resp, err := engine.RetryHTTP(ctx, engine.DefaultRetryConfig, func() (*http.Response, error) {
		return client.Do(req)
	})
	if err != nil {
		return engine.KeywordSet{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return engine.KeywordSet{}, fmt.Errorf("vidiq returned status %d", resp.StatusCode)
	}

	var data vidiqResponse
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return engine.KeywordSet{}, &ParseError{Source: "vidiq", Err: err}
	}

	ranked := make([]engine.RankedKeyword, 0, len(data.Keywords))
	for _, k := range data.Keywords {
		if !containsCheatTerm(k.Keyword) {
			continue
		}
		ranked = append(ranked, engine.RankedKeyword{
			Keyword:         k.Keyword,
			MonthlySearches: k.EstimatedMonthlySearch,
			Competition:     k.Competition,
			RelatedScore:    k.RelatedScore,
		})
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].MonthlySearches > ranked[j].MonthlySearches
	})

	top := make([]engine.RankedKeyword, 0, maxRankedKeywords)
	for _, k := range ranked {
		if len(top) == maxRankedKeywords {
			break
		}
		if k.MonthlySearches > 0 {
			top = append(top, k)
		}
	}

	slog.Info("vidiq: keywords ranked",
		slog.String("main", mainKeyword),
		slog.Int("total", len(data.Keywords)),
		slog.Int("cheat_related", len(ranked)),
		slog.Int("selected", len(top)),
	)
	return engine.KeywordSet{MainKeyword: mainKeyword, TopKeywords: top}, nil
}

func containsCheatTerm(keyword string) bool {
	lower := strings.ToLower(keyword)
	for _, t := range cheatTerms {
		if strings.Contains(lower, t) {
			return true
		}
	}
	return false
}
