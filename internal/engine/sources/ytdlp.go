package sources

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/anatolykoptev/go_takedown/internal/engine"
)

const (
	DefaultYtDlpBin     = "yt-dlp"
	DefaultYtDlpTimeout = 300 * time.Second
)

// Runner executes the extraction tool and returns its stdout.
type Runner func(ctx context.Context, bin string, args ...string) ([]byte, error)

// YtDlp shells out to yt-dlp and parses its JSON playlist dump.
type YtDlp struct {
	bin     string
	timeout time.Duration
	run     Runner
}

// NewYtDlp returns a scraper source. A nil run executes the real binary.
func NewYtDlp(bin string, timeout time.Duration, run Runner) *YtDlp {
	if bin == "" {
		bin = DefaultYtDlpBin
	}
	if timeout <= 0 {
		timeout = DefaultYtDlpTimeout
	}
	if run == nil {
		run = execRunner
	}
	return &YtDlp{bin: bin, timeout: timeout, run: run}
}

func (y *YtDlp) Name() string { return "yt-dlp" }

// Available reports whether the binary can be found on PATH.
func (y *YtDlp) Available() error {
	_, err := exec.LookPath(y.bin)
	return err
}

// Search runs a "ytsearchN:query" extraction.
func (y *YtDlp) Search(ctx context.Context, query string, maxResults int) ([]engine.VideoRecord, error) {
	if maxResults <= 0 {
		maxResults = engine.DefaultMaxResults
	}
	ctx, cancel := context.WithTimeout(ctx, y.timeout)
	defer cancel()

	engine.IncrScraperRuns()
	start := time.Now()
	out, err := y.run(ctx, y.bin, "-J", "--quiet", "--no-warnings", "ytsearch"+strconv.Itoa(maxResults)+":"+query)
	if err != nil {
		engine.IncrScraperErrors()
		return nil, fmt.Errorf("yt-dlp search: %w", err)
	}

	videos, err := parseYtDlpPlaylist(out)
	if err != nil {
		engine.IncrScraperErrors()
		return nil, err
	}
	if len(videos) > maxResults {
		videos = videos[:maxResults]
	}
	slog.Info("yt-dlp: search done", slog.String("query", query), slog.Int("results", len(videos)), slog.Duration("elapsed", time.Since(start)))
	return videos, nil
}

// Trending approximates a trending feed by searching "<category> trending".
func (y *YtDlp) Trending(ctx context.Context, category string, maxResults int) ([]engine.VideoRecord, error) {
	q := "trending"
	if category != "" && category != "default" {
		q = category + " trending"
	}
	return y.Search(ctx, q, maxResults)
}

type ytDlpEntry struct {
	ID          string  `json:"id"`
	VideoID     string  `json:"video_id"`
	Title       string  `json:"title"`
	Uploader    string  `json:"uploader"`
	Channel     string  `json:"channel"`
	ChannelID   string  `json:"channel_id"`
	Description string  `json:"description"`
	ViewCount   int64   `json:"view_count"`
	Duration    float64 `json:"duration"`
	UploadDate  string  `json:"upload_date"`
	Thumbnail   string  `json:"thumbnail"`
	Thumbnails  []struct {
		URL string `json:"url"`
	} `json:"thumbnails"`
}

// parseYtDlpPlaylist reads the entries (or items) list of a -J dump.
func parseYtDlpPlaylist(out []byte) ([]engine.VideoRecord, error) {
	var doc struct {
		Entries []ytDlpEntry `json:"entries"`
		Items   []ytDlpEntry `json:"items"`
	}
	if err := json.Unmarshal(out, &doc); err != nil {
		return nil, &ParseError{Source: "yt-dlp", Err: err}
	}
	entries := doc.Entries
	if len(entries) == 0 {
		entries = doc.Items
	}

	videos := make([]engine.VideoRecord, 0, len(entries))
	for _, e := range entries {
		v := e.toRecord()
		if v.ID == "" {
			continue
		}
		videos = append(videos, v)
	}
	return videos, nil
}

func (e ytDlpEntry) toRecord() engine.VideoRecord {
	thumb := e.Thumbnail
	if thumb == "" && len(e.Thumbnails) > 0 {
		thumb = e.Thumbnails[0].URL
	}
	return engine.VideoRecord{
		ID:            firstNonEmpty(e.ID, e.VideoID),
		Title:         e.Title,
		Author:        firstNonEmpty(e.Uploader, e.Channel),
		AuthorID:      e.ChannelID,
		Description:   e.Description,
		ViewCount:     max(0, e.ViewCount),
		LengthSeconds: max(0, int(e.Duration)),
		PublishedText: e.UploadDate,
		Thumbnail:     thumb,
		Source:        "yt-dlp",
	}
}

func execRunner(ctx context.Context, bin string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, bin, args...)
	output, err := cmd.Output()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return nil, fmt.Errorf("%s failed: %w: %s", bin, err, strings.TrimSpace(string(exitErr.Stderr)))
		}
		return nil, fmt.Errorf("%s failed: %w", bin, err)
	}
	return output, nil
}
