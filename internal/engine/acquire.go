package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
)

// DefaultMaxResults caps an acquisition when the caller does not say otherwise.
const DefaultMaxResults = 50

// Source is one retrieval strategy. Both methods return normalized records;
// a source that exhausts its own retries wraps ErrAllInstancesFailed.
type Source interface {
	Name() string
	Search(ctx context.Context, query string, maxResults int) ([]VideoRecord, error)
	Trending(ctx context.Context, category string, maxResults int) ([]VideoRecord, error)
}

// VideoAcquirer is what the analysis pipeline needs from acquisition.
type VideoAcquirer interface {
	Search(ctx context.Context, query string, maxResults int) ([]VideoRecord, error)
	Trending(ctx context.Context, category string, maxResults int) ([]VideoRecord, error)
}

// Acquirer chooses between the proxy and scraper sources, filters short-form clips,
// dedupes by ID and caps the result.
type Acquirer struct {
	Proxy   Source // nil = proxy path unavailable
	Scraper Source // nil = scraper path unavailable
	Mode    SourceMode
	Shorts  ShortsFilter
	Cache   *SearchCache // nil = no memoization
}

type fetchFunc func(ctx context.Context, src Source) ([]VideoRecord, error)

// Search returns up to maxResults videos for query.
func (a *Acquirer) Search(ctx context.Context, query string, maxResults int) ([]VideoRecord, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("%w: empty search query", ErrInvalidRequest)
	}
	return a.acquire(ctx, "search", query, maxResults, func(ctx context.Context, src Source) ([]VideoRecord, error) {
		return src.Search(ctx, query, maxResults)
	})
}

// Trending returns up to maxResults trending videos for category ("" = default).
func (a *Acquirer) Trending(ctx context.Context, category string, maxResults int) ([]VideoRecord, error) {
	category = strings.ToLower(strings.TrimSpace(category))
	if category == "" {
		category = "default"
	}
	return a.acquire(ctx, "trending", category, maxResults, func(ctx context.Context, src Source) ([]VideoRecord, error) {
		return src.Trending(ctx, category, maxResults)
	})
}

func (a *Acquirer) acquire(ctx context.Context, kind, query string, maxResults int, fetch fetchFunc) ([]VideoRecord, error) {
	if maxResults <= 0 {
		maxResults = DefaultMaxResults
	}
	key := SearchKey(kind, query, maxResults)
	if cached, ok := a.Cache.Get(ctx, key); ok {
		return cached, nil
	}

	raw, err := a.fetch(ctx, fetch)
	if err != nil {
		return nil, fmt.Errorf("acquire %s %q: %w", kind, query, err)
	}

	videos := a.Shorts.Apply(dedupeByID(raw))
	if len(videos) > maxResults {
		videos = videos[:maxResults]
	}

	slog.Info("acquire: done",
		slog.String("kind", kind),
		slog.String("query", query),
		slog.Int("raw", len(raw)),
		slog.Int("kept", len(videos)),
	)
	if len(videos) > 0 {
		a.Cache.Set(ctx, key, videos)
	}
	return videos, nil
}

// fetch applies the source policy. Attempts are strictly sequential.
func (a *Acquirer) fetch(ctx context.Context, fetch fetchFunc) ([]VideoRecord, error) {
	switch a.Mode {
	case SourceModeScraper:
		if a.Scraper == nil {
			return nil, fmt.Errorf("%w: scraper source not configured", ErrAllSourcesFailed)
		}
		videos, err := fetch(ctx, a.Scraper)
		if err != nil {
			return nil, errors.Join(ErrAllSourcesFailed, err)
		}
		return videos, nil

	case SourceModeProxy:
		videos, proxyErr := a.try(ctx, a.Proxy, fetch)
		if proxyErr == nil {
			return videos, nil
		}
		return a.rescue(ctx, fetch, proxyErr)

	default:
		videos, proxyErr := a.try(ctx, a.Proxy, fetch)
		if proxyErr == nil && len(videos) > 0 {
			return videos, nil
		}
		if proxyErr == nil && a.Scraper == nil {
			return videos, nil
		}
		return a.rescue(ctx, fetch, proxyErr)
	}
}

func (a *Acquirer) try(ctx context.Context, src Source, fetch fetchFunc) ([]VideoRecord, error) {
	if src == nil {
		return nil, errors.New("proxy source not configured")
	}
	return fetch(ctx, src)
}

// rescue runs the scraper after the proxy path failed or came back empty.
func (a *Acquirer) rescue(ctx context.Context, fetch fetchFunc, proxyErr error) ([]VideoRecord, error) {
	if a.Scraper == nil {
		return nil, errors.Join(ErrAllSourcesFailed, proxyErr)
	}
	metrics.SourceFallbacks.Add(1)
	if proxyErr != nil {
		slog.Warn("acquire: proxy failed, falling back to scraper", slog.Any("error", proxyErr))
	} else {
		slog.Info("acquire: proxy returned no results, falling back to scraper")
	}

	videos, err := fetch(ctx, a.Scraper)
	if err != nil {
		return nil, errors.Join(ErrAllSourcesFailed, proxyErr, err)
	}
	return videos, nil
}

// dedupeByID keeps the first record for each ID, dropping records without one.
func dedupeByID(videos []VideoRecord) []VideoRecord {
	seen := make(map[string]struct{}, len(videos))
	out := make([]VideoRecord, 0, len(videos))
	for _, v := range videos {
		if v.ID == "" {
			continue
		}
		if _, dup := seen[v.ID]; dup {
			continue
		}
		seen[v.ID] = struct{}{}
		out = append(out, v)
	}
	return out
}
