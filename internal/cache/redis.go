// Redis-backed Store for deployments that already run Redis alongside the
// bot. TTL handling is delegated to the server, so expiry and purge come for
// free; capacity is managed by the Redis instance's own eviction policy.
package cache

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// Redis implements Store on top of a Redis connection. Errors from the
// server are treated as cache misses: the cache is an optimization and must
// never fail a request.
type Redis struct {
	client *redis.Client
	prefix string
}

// NewRedis creates a Redis store from a redis:// URL. The connection is
// verified eagerly so a misconfigured deployment fails at startup rather
// than degrading every request into a miss.
func NewRedis(ctx context.Context, rawURL string) (*Redis, error) {
	opts, err := redis.ParseURL(rawURL)
	if err != nil {
		return nil, err
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, err
	}
	return &Redis{client: client, prefix: "telepilot:cache:"}, nil
}

// Get implements Store.
func (r *Redis) Get(ctx context.Context, key string) ([]byte, bool) {
	val, err := r.client.Get(ctx, r.prefix+key).Bytes()
	if err == redis.Nil {
		return nil, false
	}
	if err != nil {
		log.Warn().Err(err).Str("key", key).Msg("cache get failed")
		return nil, false
	}
	return val, true
}

// Set implements Store.
func (r *Redis) Set(ctx context.Context, key string, value []byte, ttl time.Duration) {
	if ttl <= 0 {
		return
	}
	if err := r.client.Set(ctx, r.prefix+key, value, ttl).Err(); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("cache set failed")
	}
}

// Close releases the underlying connection pool.
func (r *Redis) Close() error { return r.client.Close() }
