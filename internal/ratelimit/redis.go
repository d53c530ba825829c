package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// takeScript runs the fixed-window step atomically inside Redis.  Window
// expiry is the key's TTL.  Returns {count, pttl_ms, allowed}.
var takeScript = redis.NewScript(`
local cur = redis.call('GET', KEYS[1])
if not cur then
  redis.call('SET', KEYS[1], 1, 'PX', ARGV[2])
  return {1, tonumber(ARGV[2]), 1}
end
cur = tonumber(cur)
local ttl = redis.call('PTTL', KEYS[1])
if ttl < 0 then
  redis.call('PEXPIRE', KEYS[1], ARGV[2])
  ttl = tonumber(ARGV[2])
end
if cur >= tonumber(ARGV[1]) then
  return {cur, ttl, 0}
end
redis.call('INCR', KEYS[1])
return {cur + 1, ttl, 1}
`)

// RedisStore shares windows between replicas through Redis.  Expiry uses
// the server's clock, so the now argument only anchors ResetAt.
type RedisStore struct {
	rdb    redis.Scripter
	prefix string
}

// NewRedisStore returns a store that namespaces keys with prefix.
func NewRedisStore(rdb redis.Scripter, prefix string) *RedisStore {
	return &RedisStore{rdb: rdb, prefix: prefix}
}

// Take implements Store.
func (s *RedisStore) Take(ctx context.Context, key string, max int, window time.Duration, now time.Time) (Window, bool, error) {
	res, err := takeScript.Run(ctx, s.rdb, []string{s.prefix + key}, max, window.Milliseconds()).Int64Slice()
	if err != nil {
		return Window{}, false, fmt.Errorf("redis take: %w", err)
	}
	if len(res) != 3 {
		return Window{}, false, fmt.Errorf("redis take: unexpected reply %v", res)
	}
	w := Window{
		Count:   int(res[0]),
		ResetAt: now.Add(time.Duration(res[1]) * time.Millisecond),
	}
	return w, res[2] == 1, nil
}
