package nominatim

import (
	"context"
	"strings"
	"time"

	"github.com/eko/gocache/lib/v4/cache"
	"github.com/eko/gocache/lib/v4/store"
	gocache_store "github.com/eko/gocache/store/go_cache/v4"
	gocache "github.com/patrickmn/go-cache"

	"github.com/couchcryptid/event-geo-hierarchy/internal/domain"
	"github.com/couchcryptid/event-geo-hierarchy/internal/observability"
)

// CachedGeocoder wraps a Geocoder with an in-memory TTL cache. Entries
// expire after ttl so renamed places are eventually picked up.
type CachedGeocoder struct {
	inner   domain.Geocoder
	cache   cache.CacheInterface[domain.RawAddress]
	ttl     time.Duration
	metrics *observability.Metrics
}

// NewCachedGeocoder creates a cache decorator around a geocoder.
func NewCachedGeocoder(inner domain.Geocoder, ttl time.Duration, metrics *observability.Metrics) *CachedGeocoder {
	client := gocache.New(ttl, 2*ttl)
	return &CachedGeocoder{
		inner:   inner,
		cache:   cache.New[domain.RawAddress](gocache_store.NewGoCache(client)),
		ttl:     ttl,
		metrics: metrics,
	}
}

func (c *CachedGeocoder) Geocode(ctx context.Context, address, language string) (domain.RawAddress, error) {
	key := cacheKey(address, language)
	if result, err := c.cache.Get(ctx, key); err == nil {
		c.metrics.GeocodeCache.WithLabelValues("hit").Inc()
		return result, nil
	}
	c.metrics.GeocodeCache.WithLabelValues("miss").Inc()

	result, err := c.inner.Geocode(ctx, address, language)
	if err != nil {
		return result, err
	}
	// Only cache non-empty results so transient "not found" responses can be retried.
	if len(result) > 0 {
		_ = c.cache.Set(ctx, key, result, store.WithExpiration(c.ttl))
	}
	return result, nil
}

func cacheKey(address, language string) string {
	return language + "|" + strings.ToLower(strings.TrimSpace(address))
}
