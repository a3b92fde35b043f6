package sources

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/anatolykoptev/go_takedown/internal/engine"
)

const (
	DefaultPipedInstancesURL = "https://piped-instances.kavin.rocks/"
	DefaultHealthTimeout     = 5 * time.Second
	maxDiscoveredInstances   = 8
)

var instanceURLRe = regexp.MustCompile(`https://[^\s|)"'<>]+`)

// PipedDiscovery lists Piped API instances from the public instance index
// and probes each one's /healthcheck endpoint.
type PipedDiscovery struct {
	ListURL       string
	Client        *http.Client
	HealthTimeout time.Duration
}

// Discover fetches the instance index and returns up to eight API base URLs.
func (d *PipedDiscovery) Discover(ctx context.Context) ([]string, error) {
	listURL := d.ListURL
	if listURL == "" {
		listURL = DefaultPipedInstancesURL
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, listURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", engine.UserAgentBot)

	resp, err := engine.RetryHTTP(ctx, engine.DefaultRetryConfig, func() (*http.Response, error) {
		return d.client().Do(req)
	})
	if err != nil {
		return nil, fmt.Errorf("piped discovery: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("piped discovery: status %d", resp.StatusCode)
	}
	return parseInstanceList(io.LimitReader(resp.Body, 1<<20))
}

// Probe reports whether base answers its healthcheck with 200.
func (d *PipedDiscovery) Probe(ctx context.Context, base string) bool {
	timeout := d.HealthTimeout
	if timeout <= 0 {
		timeout = DefaultHealthTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, strings.TrimRight(base, "/")+"/healthcheck", nil)
	if err != nil {
		return false
	}
	req.Header.Set("User-Agent", engine.UserAgentBot)
	resp, err := d.client().Do(req)
	if err != nil {
		slog.Debug("piped discovery: probe failed", slog.String("instance", base), slog.Any("error", err))
		return false
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

func (d *PipedDiscovery) client() *http.Client {
	if d.Client != nil {
		return d.Client
	}
	return engine.HTTPClient()
}

// parseInstanceList extracts API URLs from the instance index: lines that mention
// both "https://" and "api", first URL per line, order kept.
func parseInstanceList(r io.Reader) ([]string, error) {
	var out []string
	seen := make(map[string]struct{})
	sc := bufio.NewScanner(r)
	for sc.Scan() && len(out) < maxDiscoveredInstances {
		line := sc.Text()
		if !strings.Contains(line, "https://") || !strings.Contains(line, "api") {
			continue
		}
		u := strings.TrimRight(instanceURLRe.FindString(line), "/")
		if u == "" {
			continue
		}
		if _, dup := seen[u]; dup {
			continue
		}
		seen[u] = struct{}{}
		out = append(out, u)
	}
	if err := sc.Err(); err != nil {
		return nil, &ParseError{Source: "piped-instances", Err: err}
	}
	return out, nil
}
