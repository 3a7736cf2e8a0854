package core

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/samber/oops"
)

// LoginLimiter tracks failed logins per client IP over a sliding window.
// Implementations must make RecordFailure safe under concurrent callers.
type LoginLimiter interface {
	// Attempts returns the number of failures for ip still inside the window.
	Attempts(ctx context.Context, ip string) (int, error)
	// IsLimited reports whether ip is throttled and, if so, how long until the oldest failure ages out.
	IsLimited(ctx context.Context, ip string) (bool, int, error)
	RecordFailure(ctx context.Context, ip string) error
	// Clear drops the whole history for ip.
	Clear(ctx context.Context, ip string) error
}

// RateLimitPolicy bounds failures per window.
type RateLimitPolicy struct {
	MaxAttempts int
	Window      time.Duration
}

// RedisRateLimiter keeps each IP's failures in a sorted set scored by time in milliseconds.
// Pruning happens inside the same script as each read or append.
type RedisRateLimiter struct {
	client redis.Cmdable
	policy RateLimitPolicy
	now    func() time.Time
}

func NewRedisRateLimiter(client redis.Cmdable, policy RateLimitPolicy) *RedisRateLimiter {
	if policy.MaxAttempts <= 0 {
		policy.MaxAttempts = 8
	}
	if policy.Window <= 0 {
		policy.Window = 15 * time.Minute
	}
	return &RedisRateLimiter{client: client, policy: policy, now: time.Now}
}

// WithClock replaces the time source; used by tests.
func (l *RedisRateLimiter) WithClock(now func() time.Time) *RedisRateLimiter {
	l.now = now
	return l
}

func (l *RedisRateLimiter) cutoff(now time.Time) int64 {
	return now.Add(-l.policy.Window).UnixMilli()
}

func (l *RedisRateLimiter) Attempts(ctx context.Context, ip string) (int, error) {
	n, _, err := runPruneCount(ctx, l.client, RateLimitKey(ip), l.cutoff(l.now()))
	if err != nil {
		return 0, oops.Code("RATELIMIT_READ_FAILED").With("ip", ip).Wrap(err)
	}
	return int(n), nil
}

func (l *RedisRateLimiter) IsLimited(ctx context.Context, ip string) (bool, int, error) {
	now := l.now()
	n, oldest, err := runPruneCount(ctx, l.client, RateLimitKey(ip), l.cutoff(now))
	if err != nil {
		return false, 0, oops.Code("RATELIMIT_READ_FAILED").With("ip", ip).Wrap(err)
	}
	if int(n) < l.policy.MaxAttempts {
		return false, 0, nil
	}
	return true, retryAfterSeconds(l.policy.Window, now.Sub(time.UnixMilli(oldest))), nil
}

func (l *RedisRateLimiter) RecordFailure(ctx context.Context, ip string) error {
	now := l.now()
	// Same-millisecond failures need distinct members or ZADD would merge them.
	suffix, err := randomHex(4)
	if err != nil {
		return oops.Code("RATELIMIT_RECORD_FAILED").With("ip", ip).Wrap(err)
	}
	member := fmt.Sprintf("%d-%s", now.UnixNano(), suffix)
	if _, err := runPruneAppend(ctx, l.client, RateLimitKey(ip), l.cutoff(now), now.UnixMilli(), member, l.policy.Window); err != nil {
		return oops.Code("RATELIMIT_RECORD_FAILED").With("ip", ip).Wrap(err)
	}
	return nil
}

func (l *RedisRateLimiter) Clear(ctx context.Context, ip string) error {
	if err := l.client.Del(ctx, RateLimitKey(ip)).Err(); err != nil {
		return oops.Code("RATELIMIT_CLEAR_FAILED").With("ip", ip).Wrap(err)
	}
	return nil
}

// retryAfterSeconds is max(1, ceil(window - elapsed)).
func retryAfterSeconds(window, elapsed time.Duration) int {
	remaining := window - elapsed
	secs := int((remaining + time.Second - 1) / time.Second)
	if secs < 1 {
		return 1
	}
	return secs
}
