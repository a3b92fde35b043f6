package sources

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/anatolykoptev/go_takedown/internal/engine"
)

const (
	DefaultProxyTimeout = 12 * time.Second
	maxPipedBody        = 8 << 20
)

// PipedStaticInstances is the built-in upstream list used when discovery is off or fails.
var PipedStaticInstances = []string{
	"https://pipedapi.kavin.rocks",
	"https://pipedapi.tokhmi.xyz",
	"https://pipedapi.moomoo.me",
	"https://pipedapi.syncpundit.io",
	"https://api-piped.mha.fi",
	"https://piped-api.garudalinux.org",
	"https://pipedapi.adminforge.de",
	"https://pipedapi.privacy.com.de",
	"https://pipedapi.qdi.fi",
	"https://pipedapi.rivo.lol",
	"https://piped-api.linwood.dev",
	"https://pipedapi.palveluntarjoaja.eu",
	"https://api.piped.yt",
}

// Piped queries community Piped API instances with round-robin failover.
type Piped struct {
	dir     *engine.InstanceDirectory
	client  *http.Client
	timeout time.Duration
}

// NewPiped returns a Piped source over dir. A nil client uses the engine's shared client.
func NewPiped(dir *engine.InstanceDirectory, client *http.Client, timeout time.Duration) *Piped {
	if client == nil {
		client = engine.HTTPClient()
	}
	if timeout <= 0 {
		timeout = DefaultProxyTimeout
	}
	return &Piped{dir: dir, client: client, timeout: timeout}
}

func (p *Piped) Name() string { return "piped" }

// Search queries /search with the videos filter.
func (p *Piped) Search(ctx context.Context, query string, maxResults int) ([]engine.VideoRecord, error) {
	params := url.Values{"q": {query}, "filter": {"videos"}}
	return p.do(ctx, "/search", params, maxResults)
}

// Trending queries the upstream trending feed. Piped has no category filter;
// non-default categories are logged and served from the same feed.
func (p *Piped) Trending(ctx context.Context, category string, maxResults int) ([]engine.VideoRecord, error) {
	if category != "" && category != "default" {
		slog.Debug("piped: trending has no category filter", slog.String("category", category))
	}
	return p.do(ctx, "/trending", url.Values{"region": {"US"}}, maxResults)
}

// do walks the instance list starting at the preferred instance, trying each at most once.
func (p *Piped) do(ctx context.Context, path string, params url.Values, maxResults int) ([]engine.VideoRecord, error) {
	instances := p.dir.Instances(ctx)
	n := len(instances)
	if n == 0 {
		engine.IncrProxyExhausted()
		return nil, fmt.Errorf("piped: %w: no instances configured", engine.ErrAllInstancesFailed)
	}

	start := p.dir.Preferred() % n
	var errs []error
	for attempt := range n {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		idx := (start + attempt) % n
		base := instances[idx]

		engine.IncrProxyRequests()
		videos, err := p.fetch(ctx, base, path, params)
		if err == nil {
			p.dir.MarkPreferred(idx)
			slog.Debug("piped: ok", slog.String("instance", base), slog.String("path", path), slog.Int("results", len(videos)))
			if maxResults > 0 && len(videos) > maxResults {
				videos = videos[:maxResults]
			}
			return videos, nil
		}

		engine.IncrProxyFailovers()
		slog.Debug("piped: instance failed", slog.String("instance", base), slog.Any("error", err))
		errs = append(errs, fmt.Errorf("%s: %w", base, err))
	}

	engine.IncrProxyExhausted()
	slog.Warn("piped: all instances failed", slog.Int("instances", n), slog.String("path", path))
	return nil, errors.Join(engine.ErrAllInstancesFailed, errors.Join(errs...))
}

func (p *Piped) fetch(ctx context.Context, base, path string, params url.Values) ([]engine.VideoRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	u := strings.TrimRight(base, "/") + path + "?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", engine.RandomUserAgent())
	req.Header.Set("Accept", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("status %d", resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxPipedBody))
	if err != nil {
		return nil, err
	}
	return parsePipedItems(body)
}

// pipedItem is one stream entry from /search or /trending.
type pipedItem struct {
	Type             string `json:"type"`
	URL              string `json:"url"`
	ID               string `json:"id"`
	VideoID          string `json:"videoId"`
	Title            string `json:"title"`
	UploaderName     string `json:"uploaderName"`
	Author           string `json:"author"`
	Uploader         string `json:"uploader"`
	UploaderID       string `json:"uploaderId"`
	UploaderURL      string `json:"uploaderUrl"`
	Views            int64  `json:"views"`
	Duration         int    `json:"duration"`
	UploadedDate     string `json:"uploadedDate"`
	Thumbnail        string `json:"thumbnail"`
	ShortDescription string `json:"shortDescription"`
	Description      string `json:"description"`
}

// parsePipedItems accepts either a bare array or an {"items": [...]} envelope
// and keeps only video entries.
func parsePipedItems(body []byte) ([]engine.VideoRecord, error) {
	var items []pipedItem
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		if err := json.Unmarshal(trimmed, &items); err != nil {
			return nil, &ParseError{Source: "piped", Err: err}
		}
	} else {
		var env struct {
			Items []pipedItem `json:"items"`
		}
		if err := json.Unmarshal(trimmed, &env); err != nil {
			return nil, &ParseError{Source: "piped", Err: err}
		}
		items = env.Items
	}

	out := make([]engine.VideoRecord, 0, len(items))
	for _, it := range items {
		if it.Type != "" && it.Type != "stream" && it.Type != "video" {
			continue
		}
		v := it.toRecord()
		if v.ID == "" {
			continue
		}
		out = append(out, v)
	}
	return out, nil
}

func (it pipedItem) toRecord() engine.VideoRecord {
	return engine.VideoRecord{
		ID:            pipedVideoID(it),
		Title:         it.Title,
		Author:        firstNonEmpty(it.UploaderName, it.Author, it.Uploader),
		AuthorID:      firstNonEmpty(it.UploaderID, strings.TrimPrefix(it.UploaderURL, "/channel/")),
		Description:   firstNonEmpty(it.ShortDescription, it.Description),
		ViewCount:     max(0, it.Views),
		LengthSeconds: max(0, it.Duration),
		PublishedText: it.UploadedDate,
		Thumbnail:     it.Thumbnail,
		Source:        "piped",
	}
}

// pipedVideoID extracts the id from "/watch?v=ID", falling back to explicit id fields.
func pipedVideoID(it pipedItem) string {
	if it.URL != "" {
		if u, err := url.Parse(it.URL); err == nil {
			if v := u.Query().Get("v"); v != "" {
				return v
			}
		}
	}
	return firstNonEmpty(it.ID, it.VideoID)
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
