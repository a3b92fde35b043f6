package engine

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cache defaults.
const (
	DefaultCacheTTL        = time.Hour
	DefaultCacheMaxEntries = 100
)

// Cache metrics, atomic for concurrent access.
var (
	cacheHits   atomic.Int64
	cacheMisses atomic.Int64
)

// SearchCache memoizes acquisition results by query+limit.
// L1 is an in-process map, L2 is optional Redis that survives restarts.
type SearchCache struct {
	l1              sync.Map      // key → *cacheEntry
	rdb             *redis.Client // nil if Redis unavailable
	ttl             time.Duration
	maxEntries      int
	cleanupInterval time.Duration
	now             func() time.Time
	stop            chan struct{}
	stopOnce        sync.Once
}

type cacheEntry struct {
	data      []byte
	expiresAt time.Time
}

// CacheOptions configures NewSearchCache.
type CacheOptions struct {
	RedisURL        string // empty disables L2
	TTL             time.Duration
	MaxEntries      int
	CleanupInterval time.Duration
}

// NewSearchCache sets up the 2-tier cache and starts the L1 cleanup goroutine.
// Call Close to stop it.
func NewSearchCache(opts CacheOptions) *SearchCache {
	c := &SearchCache{
		ttl:             opts.TTL,
		maxEntries:      opts.MaxEntries,
		cleanupInterval: opts.CleanupInterval,
		now:             time.Now,
		stop:            make(chan struct{}),
	}
	if c.ttl <= 0 {
		c.ttl = DefaultCacheTTL
	}

	if opts.RedisURL != "" {
		ropts, err := redis.ParseURL(opts.RedisURL)
		if err != nil {
			slog.Warn("cache: invalid redis URL, L2 disabled", slog.Any("error", err))
		} else {
			rdb := redis.NewClient(ropts)
			ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
			defer cancel()
			if err := rdb.Ping(ctx).Err(); err != nil {
				slog.Warn("cache: redis unreachable, L2 disabled", slog.Any("error", err))
				_ = rdb.Close()
			} else {
				c.rdb = rdb
				slog.Info("cache: L2 redis connected", slog.String("addr", ropts.Addr))
			}
		}
	}

	slog.Info("cache: initialized", slog.Duration("ttl", c.ttl), slog.Bool("redis", c.rdb != nil), slog.Int("max_entries", c.maxEntries))

	go c.cleanupLoop()
	return c
}

// CacheKey builds a deterministic cache key from parts.
func CacheKey(parts ...string) string {
	joined := strings.Join(parts, "|")
	hash := sha256.Sum256([]byte(joined))
	return fmt.Sprintf("gt:%x", hash[:12]) // 24-char hex prefix
}

// SearchKey is the cache key for a search. Queries are case-insensitive.
func SearchKey(kind, query string, maxResults int) string {
	return CacheKey(kind, strings.ToLower(strings.TrimSpace(query)), strconv.Itoa(maxResults))
}

// Get tries L1, then L2. On L2 hit, populates L1.
func (c *SearchCache) Get(ctx context.Context, key string) ([]VideoRecord, bool) {
	if c == nil {
		cacheMisses.Add(1)
		return nil, false
	}

	if val, ok := c.l1.Load(key); ok {
		entry := val.(*cacheEntry)
		if c.now().Before(entry.expiresAt) {
			var out []VideoRecord
			if json.Unmarshal(entry.data, &out) == nil {
				slog.Debug("cache: L1 hit", slog.String("key", key))
				cacheHits.Add(1)
				return out, true
			}
		}
		c.l1.Delete(key) // expired or corrupt
	}

	if c.rdb != nil {
		data, err := c.rdb.Get(ctx, key).Bytes()
		if err == nil {
			var out []VideoRecord
			if json.Unmarshal(data, &out) == nil {
				slog.Debug("cache: L2 hit", slog.String("key", key))
				cacheHits.Add(1)
				c.l1.Store(key, &cacheEntry{data: data, expiresAt: c.now().Add(c.ttl)})
				return out, true
			}
		}
	}

	cacheMisses.Add(1)
	return nil, false
}

// Set stores value in both L1 and L2.
func (c *SearchCache) Set(ctx context.Context, key string, value []VideoRecord) {
	if c == nil {
		return
	}

	data, err := json.Marshal(value)
	if err != nil {
		return
	}

	c.evictIfNeeded()

	c.l1.Store(key, &cacheEntry{data: data, expiresAt: c.now().Add(c.ttl)})

	if c.rdb != nil {
		if err := c.rdb.Set(ctx, key, data, c.ttl).Err(); err != nil {
			slog.Debug("cache: L2 set failed", slog.Any("error", err))
		}
	}
}

// Clear drops every L1 entry. L2 entries expire on their own.
func (c *SearchCache) Clear() {
	c.l1.Range(func(key, _ any) bool {
		c.l1.Delete(key)
		return true
	})
}

// Close stops the cleanup goroutine and the Redis client.
func (c *SearchCache) Close() error {
	c.stopOnce.Do(func() { close(c.stop) })
	if c.rdb != nil {
		return c.rdb.Close()
	}
	return nil
}

// CacheStats returns current cache hit/miss counters.
func CacheStats() (hits, misses int64) {
	return cacheHits.Load(), cacheMisses.Load()
}

// evictIfNeeded removes entries when L1 exceeds maxEntries.
// Removes expired entries first, then oldest entries if still over limit.
func (c *SearchCache) evictIfNeeded() {
	if c.maxEntries <= 0 {
		return
	}

	count := 0
	c.l1.Range(func(_, _ any) bool {
		count++
		return true
	})
	if count < c.maxEntries {
		return
	}

	now := c.now()
	c.l1.Range(func(key, val any) bool {
		if entry, ok := val.(*cacheEntry); ok && now.After(entry.expiresAt) {
			c.l1.Delete(key)
			count--
		}
		return count >= c.maxEntries
	})
	if count < c.maxEntries {
		return
	}

	// Earlier expiry = older entry (expiry = createdAt + ttl).
	for count >= c.maxEntries {
		var oldestKey any
		oldestAt := now.Add(c.ttl + time.Hour)
		c.l1.Range(func(key, val any) bool {
			if entry, ok := val.(*cacheEntry); ok && entry.expiresAt.Before(oldestAt) {
				oldestKey = key
				oldestAt = entry.expiresAt
			}
			return true
		})
		if oldestKey == nil {
			break
		}
		c.l1.Delete(oldestKey)
		count--
	}
}

// cleanupLoop periodically removes expired L1 entries.
func (c *SearchCache) cleanupLoop() {
	interval := c.cleanupInterval
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-c.stop:
			return
		case <-ticker.C:
			now := c.now()
			c.l1.Range(func(key, val any) bool {
				if entry, ok := val.(*cacheEntry); ok && now.After(entry.expiresAt) {
					c.l1.Delete(key)
				}
				return true
			})
		}
	}
}
