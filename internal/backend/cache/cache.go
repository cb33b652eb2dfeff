package cache

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jo-hoe/healthdash/internal/metrics"
)

const DefaultTTL = 10 * time.Minute

// Cache stores the dropdown lookup lists, which only change when the database is reloaded.
type Cache interface {
	// GetStrings reports whether key was present.
	GetStrings(ctx context.Context, key string) ([]string, bool, error)
	SetStrings(ctx context.Context, key string, values []string) error
	Close() error
}

func NewCache(cacheType, address string, ttl time.Duration) (Cache, error) {
	switch cacheType {
	case "", "none":
		return NoopCache{}, nil
	case "redis":
		return NewRedisCache(address, ttl)
	default:
		return nil, fmt.Errorf("unsupported cache type: %s", cacheType)
	}
}

// Strings reads key through the cache and falls back to load on a miss.
// Cache failures are logged and never fail the request.
func Strings(ctx context.Context, c Cache, key string, load func(context.Context) ([]string, error)) ([]string, error) {
	values, ok, err := c.GetStrings(ctx, key)
	switch {
	case err != nil:
		metrics.CacheLookupsTotal.WithLabelValues(metrics.ResultError).Inc()
		slog.Warn("cache read failed", "key", key, "error", err)
	case ok:
		metrics.CacheLookupsTotal.WithLabelValues(metrics.ResultHit).Inc()
		return values, nil
	default:
		metrics.CacheLookupsTotal.WithLabelValues(metrics.ResultMiss).Inc()
	}

	values, err = load(ctx)
	if err != nil {
		return nil, err
	}
	if err := c.SetStrings(ctx, key, values); err != nil {
		slog.Warn("cache write failed", "key", key, "error", err)
	}
	return values, nil
}

// NoopCache never stores anything.
type NoopCache struct{}

func (NoopCache) GetStrings(context.Context, string) ([]string, bool, error) { return nil, false, nil }

func (NoopCache) SetStrings(context.Context, string, []string) error { return nil }

func (NoopCache) Close() error { return nil }
