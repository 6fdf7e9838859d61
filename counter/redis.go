package counter

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// incrementScript runs atomically on the Redis server. It normalises the
// stored value with the same rules as parseCount, so a corrupted value
// restarts from zero, then lets INCR do exact 64-bit arithmetic.
var incrementScript = redis.NewScript(`
local raw = redis.call('GET', KEYS[1])
local digits = raw and string.match(raw, '^%s*(%d+)%s*$')
if not digits or #digits > tonumber(ARGV[1]) then
	digits = '0'
end
digits = (string.gsub(digits, '^0+', ''))
if digits == '' then
	digits = '0'
end
redis.call('SET', KEYS[1], digits)
return redis.call('INCR', KEYS[1])
`)

// RedisClient is the subset of *redis.Client used by Redis.
type RedisClient interface {
	redis.Scripter
	Get(ctx context.Context, key string) *redis.StringCmd
}

// Redis keeps the count in a single Redis key.
type Redis struct {
	rdb RedisClient
	key string
}

// RedisOption configures a Redis store.
type RedisOption func(*Redis)

// WithRedisKey overrides DefaultKey.
func WithRedisKey(key string) RedisOption {
	return func(r *Redis) {
		if key != "" {
			r.key = key
		}
	}
}

// NewRedis returns a Redis store backed by rdb.
func NewRedis(rdb RedisClient, opts ...RedisOption) *Redis {
	r := &Redis{rdb: rdb, key: DefaultKey}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// IncrementAndGet adds one to the stored count and returns the new value.
func (r *Redis) IncrementAndGet(ctx context.Context) (int64, error) {
	n, err := incrementScript.Run(ctx, r.rdb, []string{r.key}, maxCountDigits).Int64()
	if err != nil {
		return 0, fmt.Errorf("%w: redis increment %s: %w", ErrStorageUnavailable, r.key, err)
	}
	return n, nil
}

// Get returns the current count without modifying it.
func (r *Redis) Get(ctx context.Context) (int64, error) {
	raw, err := r.rdb.Get(ctx, r.key).Result()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("%w: redis get %s: %w", ErrStorageUnavailable, r.key, err)
	}
	return parseCount(raw), nil
}
