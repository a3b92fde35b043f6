package sources

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

const sampleYtDlpDump = `{
	"_type": "playlist",
	"entries": [
		{"id": "v1", "title": "Fortnite Hack 2025 Working", "uploader": "Hax", "channel_id": "UC1",
		 "description": "download free", "view_count": 900, "duration": 245.0, "upload_date": "20250101",
		 "thumbnails": [{"url": "https://img/v1.jpg"}]},
		{"video_id": "v2", "title": "Fortnite Review", "channel": "Reviewer", "duration": 600},
		{"title": "no id, dropped"}
	]
}`

func TestParseYtDlpPlaylist(t *testing.T) {
	videos, err := parseYtDlpPlaylist([]byte(sampleYtDlpDump))
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	if len(videos) != 2 {
		t.Fatalf("got %d videos, want 2", len(videos))
	}

	v := videos[0]
	if v.ID != "v1" || v.Author != "Hax" || v.AuthorID != "UC1" {
		t.Errorf("unexpected first record: %+v", v)
	}
	if v.LengthSeconds != 245 || v.ViewCount != 900 || v.PublishedText != "20250101" {
		t.Errorf("length=%d views=%d published=%q", v.LengthSeconds, v.ViewCount, v.PublishedText)
	}
	if v.Thumbnail != "https://img/v1.jpg" {
		t.Errorf("thumbnail = %q", v.Thumbnail)
	}
	if videos[1].ID != "v2" || videos[1].Author != "Reviewer" {
		t.Errorf("fallback fields not used: %+v", videos[1])
	}
}

func TestParseYtDlpItemsKey(t *testing.T) {
	videos, err := parseYtDlpPlaylist([]byte(`{"items": [{"id": "i1"}]}`))
	if err != nil {
		t.Fatal(err)
	}
	if len(videos) != 1 || videos[0].ID != "i1" {
		t.Errorf("got %+v", videos)
	}
}

func TestYtDlpSearchArgs(t *testing.T) {
	var gotBin string
	var gotArgs []string
	run := func(ctx context.Context, bin string, args ...string) ([]byte, error) {
		gotBin, gotArgs = bin, args
		if _, ok := ctx.Deadline(); !ok {
			t.Error("subprocess context must carry a deadline")
		}
		return []byte(sampleYtDlpDump), nil
	}

	y := NewYtDlp("", time.Minute, run)
	videos, err := y.Search(context.Background(), "fortnite hack", 1)
	if err != nil {
		t.Fatalf("Search error: %v", err)
	}
	if gotBin != DefaultYtDlpBin {
		t.Errorf("bin = %q", gotBin)
	}
	want := "-J --quiet --no-warnings ytsearch1:fortnite hack"
	if strings.Join(gotArgs, " ") != want {
		t.Errorf("args = %q, want %q", strings.Join(gotArgs, " "), want)
	}
	if len(videos) != 1 {
		t.Errorf("results not capped: got %d", len(videos))
	}
}

func TestYtDlpTrendingQuery(t *testing.T) {
	tests := []struct {
		category string
		want     string
	}{
		{"default", "ytsearch50:trending"},
		{"", "ytsearch50:trending"},
		{"music", "ytsearch50:music trending"},
	}
	for _, tt := range tests {
		t.Run(tt.category, func(t *testing.T) {
			var last string
			y := NewYtDlp("yt-dlp", time.Minute, func(_ context.Context, _ string, args ...string) ([]byte, error) {
				last = args[len(args)-1]
				return []byte(`{"entries": []}`), nil
			})
			if _, err := y.Trending(context.Background(), tt.category, 50); err != nil {
				t.Fatal(err)
			}
			if last != tt.want {
				t.Errorf("query = %q, want %q", last, tt.want)
			}
		})
	}
}

func TestYtDlpErrors(t *testing.T) {
	t.Run("runner failure", func(t *testing.T) {
		boom := errors.New("exit status 1")
		y := NewYtDlp("yt-dlp", time.Minute, func(context.Context, string, ...string) ([]byte, error) {
			return nil, boom
		})
		if _, err := y.Search(context.Background(), "q", 5); !errors.Is(err, boom) {
			t.Errorf("expected wrapped runner error, got %v", err)
		}
	})

	t.Run("malformed output", func(t *testing.T) {
		y := NewYtDlp("yt-dlp", time.Minute, func(context.Context, string, ...string) ([]byte, error) {
			return []byte("WARNING: something"), nil
		})
		_, err := y.Search(context.Background(), "q", 5)
		var pe *ParseError
		if !errors.As(err, &pe) {
			t.Errorf("expected *ParseError, got %v", err)
		}
	})
}
