package engine

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"
)

type fakeSource struct {
	name   string
	calls  atomic.Int64
	videos []VideoRecord
	err    error
	lastQ  string
}

func (f *fakeSource) Name() string { return f.name }

func (f *fakeSource) Search(_ context.Context, query string, _ int) ([]VideoRecord, error) {
	f.calls.Add(1)
	f.lastQ = query
	return f.videos, f.err
}

func (f *fakeSource) Trending(_ context.Context, category string, _ int) ([]VideoRecord, error) {
	f.calls.Add(1)
	f.lastQ = category
	return f.videos, f.err
}

func failing(name string) *fakeSource {
	return &fakeSource{name: name, err: fmt.Errorf("%s: %w", name, ErrAllInstancesFailed)}
}

func returning(name string, ids ...string) *fakeSource {
	f := &fakeSource{name: name}
	for _, id := range ids {
		f.videos = append(f.videos, VideoRecord{ID: id, Title: "t " + id, LengthSeconds: 300, Source: name})
	}
	return f
}

func TestAcquirerProxyFailsScraperOnce(t *testing.T) {
	proxy := failing("piped")
	scraper := returning("yt-dlp", "s1", "s2")
	a := &Acquirer{Proxy: proxy, Scraper: scraper}

	videos, err := a.Search(context.Background(), "valorant cheat", 10)
	if err != nil {
		t.Fatalf("Search error: %v", err)
	}
	if scraper.calls.Load() != 1 {
		t.Errorf("scraper called %d times, want exactly 1", scraper.calls.Load())
	}
	if len(videos) != 2 || videos[0].Source != "yt-dlp" {
		t.Errorf("got %+v", videos)
	}
}

func TestAcquirerTotalFailure(t *testing.T) {
	proxy := failing("piped")
	scraper := &fakeSource{name: "yt-dlp", err: errors.New("exit status 1")}
	a := &Acquirer{Proxy: proxy, Scraper: scraper}

	videos, err := a.Search(context.Background(), "q", 10)
	if !errors.Is(err, ErrAllSourcesFailed) {
		t.Fatalf("expected ErrAllSourcesFailed, got %v", err)
	}
	if !errors.Is(err, ErrAllInstancesFailed) {
		t.Error("proxy cause must be preserved in the error chain")
	}
	if videos != nil {
		t.Errorf("no partial list on total failure, got %v", videos)
	}
	if scraper.calls.Load() != 1 {
		t.Errorf("scraper called %d times, want 1", scraper.calls.Load())
	}
}

func TestAcquirerModes(t *testing.T) {
	tests := []struct {
		name        string
		mode        SourceMode
		proxy       *fakeSource
		wantProxy   int64
		wantScraper int64
		wantIDs     int
	}{
		{"auto uses proxy result", SourceModeAuto, returning("piped", "p1"), 1, 0, 1},
		{"auto falls back on empty", SourceModeAuto, returning("piped"), 1, 1, 2},
		{"proxy mode keeps empty", SourceModeProxy, returning("piped"), 1, 0, 0},
		{"proxy mode rescues failure", SourceModeProxy, failing("piped"), 1, 1, 2},
		{"scraper mode skips proxy", SourceModeScraper, returning("piped", "p1"), 0, 1, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			scraper := returning("yt-dlp", "s1", "s2")
			a := &Acquirer{Proxy: tt.proxy, Scraper: scraper, Mode: tt.mode}
			videos, err := a.Search(context.Background(), "q", 10)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if tt.proxy.calls.Load() != tt.wantProxy || scraper.calls.Load() != tt.wantScraper {
				t.Errorf("proxy calls=%d scraper calls=%d, want %d/%d",
					tt.proxy.calls.Load(), scraper.calls.Load(), tt.wantProxy, tt.wantScraper)
			}
			if len(videos) != tt.wantIDs {
				t.Errorf("got %d videos, want %d", len(videos), tt.wantIDs)
			}
		})
	}
}

func TestAcquirerDedupesFiltersAndCaps(t *testing.T) {
	proxy := &fakeSource{name: "piped", videos: []VideoRecord{
		{ID: "a", LengthSeconds: 300},
		{ID: "a", LengthSeconds: 300},
		{ID: "", LengthSeconds: 300},
		{ID: "short", LengthSeconds: 20},
		{ID: "b", LengthSeconds: 300},
		{ID: "c", LengthSeconds: 300},
	}}
	a := &Acquirer{Proxy: proxy, Shorts: ShortsFilter{Enabled: true}}

	videos, err := a.Search(context.Background(), "q", 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(videos) != 2 || videos[0].ID != "a" || videos[1].ID != "b" {
		t.Errorf("got %+v, want [a b]", videos)
	}
}

func TestAcquirerCache(t *testing.T) {
	cache := NewSearchCache(CacheOptions{TTL: time.Minute, MaxEntries: 10, CleanupInterval: time.Hour})
	defer cache.Close()

	proxy := returning("piped", "p1")
	a := &Acquirer{Proxy: proxy, Cache: cache}

	for range 3 {
		if _, err := a.Search(context.Background(), "Valorant", 10); err != nil {
			t.Fatal(err)
		}
	}
	if _, err := a.Search(context.Background(), "valorant", 10); err != nil {
		t.Fatal(err)
	}
	if proxy.calls.Load() != 1 {
		t.Errorf("proxy called %d times, want 1 (cached)", proxy.calls.Load())
	}

	if _, err := a.Search(context.Background(), "valorant", 20); err != nil {
		t.Fatal(err)
	}
	if proxy.calls.Load() != 2 {
		t.Errorf("different limit must miss the cache, proxy calls = %d", proxy.calls.Load())
	}
}

func TestAcquirerValidation(t *testing.T) {
	a := &Acquirer{Proxy: returning("piped", "p1")}
	if _, err := a.Search(context.Background(), "   ", 10); !errors.Is(err, ErrInvalidRequest) {
		t.Errorf("expected ErrInvalidRequest, got %v", err)
	}
}

func TestAcquirerTrendingDefaultCategory(t *testing.T) {
	proxy := returning("piped", "p1")
	a := &Acquirer{Proxy: proxy}
	if _, err := a.Trending(context.Background(), "", 10); err != nil {
		t.Fatal(err)
	}
	if proxy.lastQ != "default" {
		t.Errorf("category = %q, want default", proxy.lastQ)
	}
}

func TestParseSourceMode(t *testing.T) {
	for in, want := range map[string]SourceMode{
		"":        SourceModeAuto,
		"auto":    SourceModeAuto,
		"PROXY":   SourceModeProxy,
		"scraper": SourceModeScraper,
		"bogus":   SourceModeAuto,
	} {
		if got := ParseSourceMode(in); got != want {
			t.Errorf("ParseSourceMode(%q) = %q, want %q", in, got, want)
		}
	}
}
