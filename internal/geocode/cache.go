package geocode

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"shopmap/internal/geo"
	"shopmap/internal/metrics"
)

const defaultCacheTTL = 24 * time.Hour

// cacheStore is the subset of *redis.Client used by CachedLookup.
type cacheStore interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
}

// CachedLookup memoizes successful lookups in Redis. Failures are not cached.
type CachedLookup struct {
	next  Lookup
	store cacheStore
	ttl   time.Duration
}

// NewCachedLookup wraps next with a Redis cache. A nil store disables caching.
func NewCachedLookup(next Lookup, store cacheStore, ttl time.Duration) *CachedLookup {
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	return &CachedLookup{next: next, store: store, ttl: ttl}
}

// cacheKey rounds to 5 decimals (about a metre) so repeated clicks share an entry.
func cacheKey(c geo.Coordinate) string {
	return fmt.Sprintf("revgeo:%.5f:%.5f", c.Lat, c.Lng)
}

func (l *CachedLookup) Reverse(ctx context.Context, c geo.Coordinate) (string, error) {
	key := cacheKey(c)

	if l.store != nil {
		addr, err := l.store.Get(ctx, key).Result()
		switch {
		case err == nil && addr != "":
			metrics.RecordGeocodeLookup(metrics.OutcomeCacheHit)
			return addr, nil
		case err != nil && !errors.Is(err, redis.Nil):
			log.Warn().Err(err).Str("key", key).Msg("geocode cache read failed")
		}
	}

	addr, err := l.next.Reverse(ctx, c)
	if err != nil {
		metrics.RecordGeocodeLookup(metrics.OutcomeError)
		return "", err
	}
	metrics.RecordGeocodeLookup(metrics.OutcomeSuccess)

	if l.store != nil {
		if err := l.store.Set(ctx, key, addr, l.ttl).Err(); err != nil {
			log.Warn().Err(err).Str("key", key).Msg("geocode cache write failed")
		}
	}
	return addr, nil
}
