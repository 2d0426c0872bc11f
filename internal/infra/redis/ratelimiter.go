package redis

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/kursadbilgin/order-notifier/internal/ratelimit"
	goredis "github.com/redis/go-redis/v9"
)

const (
	defaultLimitPerSec int64 = 30
	windowMillis       int64 = 1000
	minRetryAfter            = 5 * time.Millisecond
)

// The window opens on the first send and rolls one second later, so the
// provider never sees more than the cap in any window regardless of how sends
// align with wall-clock second boundaries. A blocked caller gets the key's
// remaining TTL back as retry-after milliseconds; 0 means the send may go out.
var reserveScript = goredis.NewScript(`
local current = redis.call("INCR", KEYS[1])
if current == 1 then
  redis.call("PEXPIRE", KEYS[1], ARGV[2])
end
if current > tonumber(ARGV[1]) then
  local ttl = redis.call("PTTL", KEYS[1])
  if ttl < 0 then
    ttl = tonumber(ARGV[2])
  end
  return ttl
end
return 0
`)

var _ ratelimit.RateLimiter = (*SMSRateLimiter)(nil)

// SMSRateLimiter caps the SMS send rate per sender alias across all worker
// processes sharing the Redis instance.
type SMSRateLimiter struct {
	client      *goredis.Client
	limitPerSec int64
	sleep       func(ctx context.Context, d time.Duration) error
	script      *goredis.Script
}

func NewSMSRateLimiter(client *goredis.Client, limitPerSec int) (*SMSRateLimiter, error) {
	return newSMSRateLimiter(client, int64(limitPerSec), sleepWithContext)
}

func newSMSRateLimiter(
	client *goredis.Client,
	limitPerSec int64,
	sleepFn func(ctx context.Context, d time.Duration) error,
) (*SMSRateLimiter, error) {
	if client == nil {
		return nil, fmt.Errorf("redis client is required")
	}
	if limitPerSec <= 0 {
		limitPerSec = defaultLimitPerSec
	}
	if sleepFn == nil {
		sleepFn = sleepWithContext
	}

	return &SMSRateLimiter{
		client:      client,
		limitPerSec: limitPerSec,
		sleep:       sleepFn,
		script:      reserveScript,
	}, nil
}

// reserve claims a send slot for the sender. It returns zero when the slot is
// granted, otherwise how long to wait before the current window rolls over.
func (r *SMSRateLimiter) reserve(ctx context.Context, sender string) (time.Duration, error) {
	if r == nil || r.client == nil || r.script == nil {
		return 0, fmt.Errorf("rate limiter is not initialized")
	}

	alias := strings.ToLower(strings.TrimSpace(sender))
	if alias == "" {
		return 0, fmt.Errorf("sender is required")
	}

	if ctx == nil {
		ctx = context.Background()
	}

	key := "sms:throttle:" + alias
	retryAfterMillis, err := r.script.Run(ctx, r.client, []string{key}, r.limitPerSec, windowMillis).Int64()
	if err != nil {
		return 0, fmt.Errorf("failed to evaluate send budget for %q: %w", alias, err)
	}
	if retryAfterMillis <= 0 {
		return 0, nil
	}

	retryAfter := time.Duration(retryAfterMillis) * time.Millisecond
	if retryAfter < minRetryAfter {
		retryAfter = minRetryAfter
	}
	return retryAfter, nil
}

func (r *SMSRateLimiter) Allow(ctx context.Context, sender string) (bool, error) {
	retryAfter, err := r.reserve(ctx, sender)
	if err != nil {
		return false, err
	}
	return retryAfter == 0, nil
}

// Wait blocks until a send slot opens for the sender or ctx ends. The sleep
// length comes from the window's remaining TTL instead of a fixed poll step.
func (r *SMSRateLimiter) Wait(ctx context.Context, sender string) error {
	if ctx == nil {
		ctx = context.Background()
	}

	for {
		retryAfter, err := r.reserve(ctx, sender)
		if err != nil {
			return err
		}
		if retryAfter == 0 {
			return nil
		}

		if err := r.sleep(ctx, retryAfter); err != nil {
			return err
		}
	}
}

func sleepWithContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
