package core

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// Redis key prefixes shared by the ledger, the session store and authctl.
const (
	RateLimitKeyPrefix = "auth:ratelimit:"
	SessionKeyPrefix   = "session:"
)

// RateLimitKey returns the ledger key for a client IP.
func RateLimitKey(ip string) string {
	return RateLimitKeyPrefix + ip
}

// NewRedisClient returns a configured go-redis client from URL (e.g., redis://localhost:6379/0).
func NewRedisClient(redisURL string) (*redis.Client, error) {
	if redisURL == "" {
		return nil, errors.New("empty redis url")
	}
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}

	client := redis.NewClient(opts)
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, err
	}

	return client, nil
}

// pruneCountScript drops entries at or before ARGV[1] and returns {count, oldestScore}.
//
//	KEYS[1] ledger key, ARGV[1] cutoff (ms)
var pruneCountScript = redis.NewScript(`
redis.call('ZREMRANGEBYSCORE', KEYS[1], '-inf', ARGV[1])
local n = redis.call('ZCARD', KEYS[1])
if n == 0 then
  return {0, 0}
end
local oldest = redis.call('ZRANGE', KEYS[1], 0, 0, 'WITHSCORES')
return {n, tonumber(oldest[2])}
`)

// pruneAppendScript drops stale entries, appends one failure and returns the new count.
//
//	KEYS[1] ledger key, ARGV[1] cutoff (ms), ARGV[2] now (ms), ARGV[3] member, ARGV[4] ttl (ms)
var pruneAppendScript = redis.NewScript(`
redis.call('ZREMRANGEBYSCORE', KEYS[1], '-inf', ARGV[1])
redis.call('ZADD', KEYS[1], ARGV[2], ARGV[3])
redis.call('PEXPIRE', KEYS[1], ARGV[4])
return redis.call('ZCARD', KEYS[1])
`)

func runPruneCount(ctx context.Context, client redis.Scripter, key string, cutoffMs int64) (count, oldestMs int64, err error) {
	res, err := pruneCountScript.Run(ctx, client, []string{key}, cutoffMs).Result()
	if err != nil {
		return 0, 0, err
	}
	vals, ok := res.([]interface{})
	if !ok || len(vals) != 2 {
		return 0, 0, errors.New("unexpected prune response type")
	}
	count, _ = vals[0].(int64)
	oldestMs, _ = vals[1].(int64)
	return count, oldestMs, nil
}

func runPruneAppend(ctx context.Context, client redis.Scripter, key string, cutoffMs, nowMs int64, member string, ttl time.Duration) (int64, error) {
	res, err := pruneAppendScript.Run(ctx, client, []string{key}, cutoffMs, nowMs, member, ttl.Milliseconds()).Result()
	if err != nil {
		return 0, err
	}
	n, ok := res.(int64)
	if !ok {
		return 0, errors.New("unexpected append response type")
	}
	return n, nil
}
