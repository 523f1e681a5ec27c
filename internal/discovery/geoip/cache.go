package geoip

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"libregistry/internal/library/metrics"
)

const cacheTTL = 24 * time.Hour

// Cached layers a Redis cache over another resolver. Negative lookups are
// cached too, so repeated unresolvable addresses do not hammer the inner
// resolver.
type Cached struct {
	inner   Resolver
	client  *goredis.Client
	metrics *metrics.Metrics
}

// NewCached wraps inner with a Redis cache. metrics may be nil.
func NewCached(inner Resolver, client *goredis.Client, m *metrics.Metrics) *Cached {
	return &Cached{inner: inner, client: client, metrics: m}
}

// cacheEntry distinguishes a cached miss from an absent key.
type cacheEntry struct {
	Found    bool      `json:"found"`
	Location *Location `json:"location,omitempty"`
}

func (c *Cached) Resolve(ctx context.Context, ip string) (*Location, error) {
	key := "geoip:" + ip

	raw, err := c.client.Get(ctx, key).Result()
	if err == nil {
		var entry cacheEntry
		if json.Unmarshal([]byte(raw), &entry) == nil {
			if c.metrics != nil {
				c.metrics.GeoIPCacheHits.Inc()
			}
			return entry.Location, nil
		}
	} else if !errors.Is(err, goredis.Nil) {
		// Cache trouble falls through to the inner resolver.
		return c.inner.Resolve(ctx, ip)
	}

	if c.metrics != nil {
		c.metrics.GeoIPCacheMisses.Inc()
	}

	loc, err := c.inner.Resolve(ctx, ip)
	if err != nil {
		return nil, err
	}

	if payload, err := json.Marshal(cacheEntry{Found: loc != nil, Location: loc}); err == nil {
		c.client.Set(ctx, key, payload, cacheTTL)
	}
	return loc, nil
}
