package weather

import (
	"context"
	"fmt"
	"log"
	"math"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/user/nudge/backend/internal/metrics"
)

// CachedProvider keeps condition labels in Redis on a ~1km grid so nearby
// users and repeated sweeps share one upstream lookup.
type CachedProvider struct {
	next  Provider
	redis *redis.Client
	ttl   time.Duration
}

func NewCachedProvider(next Provider, redisClient *redis.Client, ttl time.Duration) *CachedProvider {
	return &CachedProvider{next: next, redis: redisClient, ttl: ttl}
}

func cacheKey(lat, lon float64) string {
	return fmt.Sprintf("weather:%.2f:%.2f", round2(lat), round2(lon))
}

func round2(v float64) float64 {
	r := math.Round(v*100) / 100
	if r == 0 {
		return 0 // avoid "-0.00"
	}
	return r
}

func (c *CachedProvider) CurrentCondition(ctx context.Context, lat, lon float64) (string, error) {
	key := cacheKey(lat, lon)

	if c.redis != nil {
		label, err := c.redis.Get(ctx, key).Result()
		switch {
		case err == nil:
			metrics.WeatherLookups.WithLabelValues("cache").Inc()
			return label, nil
		case err != redis.Nil:
			log.Printf("[Weather] Redis error reading %s: %v", key, err)
		}
	}

	label, err := c.next.CurrentCondition(ctx, lat, lon)
	if err != nil {
		metrics.WeatherLookups.WithLabelValues("error").Inc()
		return "", err
	}
	metrics.WeatherLookups.WithLabelValues("upstream").Inc()

	if c.redis != nil {
		if err := c.redis.Set(ctx, key, label, c.ttl).Err(); err != nil {
			log.Printf("[Weather] Redis error writing %s: %v", key, err)
		}
	}
	return label, nil
}
