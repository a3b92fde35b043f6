package engine

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"
)

// DefaultInstanceRefresh is how long a discovered instance list stays fresh.
const DefaultInstanceRefresh = 10 * time.Minute

// InstanceDiscoverer finds upstream proxy instances and checks whether they are alive.
type InstanceDiscoverer interface {
	Discover(ctx context.Context) ([]string, error)
	Probe(ctx context.Context, base string) bool
}

// InstanceDirectory holds the candidate upstream proxy endpoints.
// The list is replaced wholesale on refresh; readers always get a snapshot.
type InstanceDirectory struct {
	static     []string
	discoverer InstanceDiscoverer // nil = dynamic discovery disabled
	refresh    time.Duration
	now        func() time.Time

	mu        sync.RWMutex
	instances []string
	fetchedAt time.Time

	preferred atomic.Int64
}

// NewInstanceDirectory returns a directory seeded with static. A nil discoverer
// keeps the directory on the static list forever.
func NewInstanceDirectory(static []string, discoverer InstanceDiscoverer, refresh time.Duration) *InstanceDirectory {
	if refresh <= 0 {
		refresh = DefaultInstanceRefresh
	}
	return &InstanceDirectory{
		static:     append([]string(nil), static...),
		discoverer: discoverer,
		refresh:    refresh,
		now:        time.Now,
	}
}

// Instances returns the current instance list, refreshing it first when empty or stale.
func (d *InstanceDirectory) Instances(ctx context.Context) []string {
	d.mu.RLock()
	list, fetchedAt := d.instances, d.fetchedAt
	d.mu.RUnlock()

	if len(list) > 0 && d.now().Sub(fetchedAt) < d.refresh {
		return list
	}
	return d.Refresh(ctx)
}

// Refresh rebuilds the list. With discovery enabled, discovered instances are probed in
// parallel and only live ones are kept; any failure degrades to the static list.
func (d *InstanceDirectory) Refresh(ctx context.Context) []string {
	list := d.static
	if d.discoverer != nil {
		if live := d.discover(ctx); len(live) > 0 {
			list = live
		} else {
			slog.Warn("instances: discovery yielded nothing live, using static list", slog.Int("static", len(d.static)))
		}
	}

	d.mu.Lock()
	d.instances = list
	d.fetchedAt = d.now()
	d.mu.Unlock()
	d.preferred.Store(0)

	slog.Debug("instances: refreshed", slog.Int("count", len(list)))
	return list
}

func (d *InstanceDirectory) discover(ctx context.Context) []string {
	found, err := d.discoverer.Discover(ctx)
	if err != nil {
		slog.Warn("instances: discovery failed", slog.Any("error", err))
		return nil
	}

	alive := make([]bool, len(found))
	var g errgroup.Group
	for i, base := range found {
		g.Go(func() error {
			alive[i] = d.discoverer.Probe(ctx, base)
			return nil
		})
	}
	_ = g.Wait()

	live := make([]string, 0, len(found))
	for i, base := range found {
		if alive[i] {
			live = append(live, base)
		}
	}
	slog.Info("instances: discovery complete", slog.Int("found", len(found)), slog.Int("live", len(live)))
	return live
}

// Preferred returns the index of the instance that last answered successfully.
func (d *InstanceDirectory) Preferred() int {
	return int(d.preferred.Load())
}

// MarkPreferred records a successful instance so the next request starts there.
func (d *InstanceDirectory) MarkPreferred(idx int) {
	d.preferred.Store(int64(idx))
}

// Run refreshes the directory on a ticker until ctx is cancelled.
func (d *InstanceDirectory) Run(ctx context.Context) {
	if d.discoverer == nil {
		return
	}
	d.Refresh(ctx)
	ticker := time.NewTicker(d.refresh)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			d.Refresh(ctx)
		}
	}
}
