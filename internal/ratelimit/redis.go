package ratelimit

import (
	"context"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// RedisStore enforces the same fixed-window contract as MemoryStore but
// shares counters across instances through Redis. INCR creates the counter,
// PEXPIRE stamps the window on first hit, and expiry handles both the window
// reset and the garbage collection the in-process store does by hand.
type RedisStore struct {
	rdb    redis.Cmdable
	rule   Rule
	prefix string
	log    zerolog.Logger
}

// NewRedisStore returns a store enforcing rule under the given key prefix
// (one prefix per form kind keeps the quotas independent).
func NewRedisStore(rdb redis.Cmdable, rule Rule, prefix string, log zerolog.Logger) *RedisStore {
	if prefix == "" {
		prefix = "ratelimit"
	}
	return &RedisStore{rdb: rdb, rule: rule, prefix: prefix, log: log}
}

// Allow implements Limiter. A Redis failure fails open: losing rate limiting
// for a beat is preferable to taking the contact form down with it, so the
// error is logged and the request is admitted.
func (r *RedisStore) Allow(ctx context.Context, id string) (bool, error) {
	key := r.prefix + ":" + id

	count, err := r.rdb.Incr(ctx, key).Result()
	if err != nil {
		r.log.Warn().Err(err).Str("key", key).Msg("rate limit store unavailable, failing open")
		return true, err
	}
	if count == 1 {
		if err := r.rdb.PExpire(ctx, key, r.rule.Window).Err(); err != nil {
			r.log.Warn().Err(err).Str("key", key).Msg("rate limit window not set")
		}
	}
	return count <= int64(r.rule.Limit), nil
}

// interface guards
var (
	_ Limiter = (*MemoryStore)(nil)
	_ Limiter = (*RedisStore)(nil)
)
