package ratelimit

import "context"

// RateLimiter bounds outbound SMS throughput per sender alias.
type RateLimiter interface {
	Allow(ctx context.Context, sender string) (bool, error)
	Wait(ctx context.Context, sender string) error
}
