package redis

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
)

func TestSMSRateLimiterAllow(t *testing.T) {
	t.Parallel()

	mr, rdb := newTestRedis(t)

	limiter, err := newSMSRateLimiter(rdb, 2, sleepWithContext)
	if err != nil {
		t.Fatalf("newSMSRateLimiter() error = %v", err)
	}

	for i := 0; i < 2; i++ {
		allowed, err := limiter.Allow(context.Background(), "TC4A")
		if err != nil {
			t.Fatalf("Allow() error = %v", err)
		}
		if !allowed {
			t.Fatalf("call %d should be allowed", i+1)
		}
	}

	allowed, err := limiter.Allow(context.Background(), "TC4A")
	if err != nil {
		t.Fatalf("Allow() error = %v", err)
	}
	if allowed {
		t.Fatal("third call should be rejected by rate limit")
	}

	mr.FastForward(time.Second)

	allowed, err = limiter.Allow(context.Background(), "TC4A")
	if err != nil {
		t.Fatalf("Allow() error = %v", err)
	}
	if !allowed {
		t.Fatal("rolled-over window should allow call")
	}
}

func TestSMSRateLimiterAllowPerSender(t *testing.T) {
	t.Parallel()

	_, rdb := newTestRedis(t)

	limiter, err := newSMSRateLimiter(rdb, 1, sleepWithContext)
	if err != nil {
		t.Fatalf("newSMSRateLimiter() error = %v", err)
	}

	allowed, err := limiter.Allow(context.Background(), "TC4A")
	if err != nil {
		t.Fatalf("Allow(TC4A) error = %v", err)
	}
	if !allowed {
		t.Fatal("TC4A should be allowed on first request")
	}

	allowed, err = limiter.Allow(context.Background(), "OTHER")
	if err != nil {
		t.Fatalf("Allow(OTHER) error = %v", err)
	}
	if !allowed {
		t.Fatal("a different sender should have its own window")
	}

	allowed, err = limiter.Allow(context.Background(), "TC4A")
	if err != nil {
		t.Fatalf("Allow(TC4A) error = %v", err)
	}
	if allowed {
		t.Fatal("TC4A second request should be rejected")
	}
}

func TestSMSRateLimiterWaitSleepsForWindowRemainder(t *testing.T) {
	t.Parallel()

	mr, rdb := newTestRedis(t)

	var slept []time.Duration
	limiter, err := newSMSRateLimiter(rdb, 1, nil)
	if err != nil {
		t.Fatalf("newSMSRateLimiter() error = %v", err)
	}
	limiter.sleep = func(ctx context.Context, d time.Duration) error {
		slept = append(slept, d)
		mr.FastForward(d)
		return nil
	}

	allowed, err := limiter.Allow(context.Background(), "TC4A")
	if err != nil {
		t.Fatalf("Allow() error = %v", err)
	}
	if !allowed {
		t.Fatal("expected first call to be allowed")
	}

	if err := limiter.Wait(context.Background(), "TC4A"); err != nil {
		t.Fatalf("Wait() error = %v", err)
	}
	if len(slept) == 0 {
		t.Fatal("expected Wait() to sleep at least once")
	}
	for _, d := range slept {
		if d <= 0 || d > time.Second {
			t.Fatalf("sleep duration = %v, want within (0, 1s]", d)
		}
	}
}

func TestSMSRateLimiterWaitContextDeadline(t *testing.T) {
	t.Parallel()

	_, rdb := newTestRedis(t)

	limiter, err := newSMSRateLimiter(rdb, 1, sleepWithContext)
	if err != nil {
		t.Fatalf("newSMSRateLimiter() error = %v", err)
	}

	allowed, err := limiter.Allow(context.Background(), "TC4A")
	if err != nil {
		t.Fatalf("Allow() error = %v", err)
	}
	if !allowed {
		t.Fatal("expected first call to be allowed")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 25*time.Millisecond)
	defer cancel()

	err = limiter.Wait(ctx, "TC4A")
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Wait() error = %v, want %v", err, context.DeadlineExceeded)
	}
}

func TestSMSRateLimiterRequiresSender(t *testing.T) {
	t.Parallel()

	_, rdb := newTestRedis(t)

	limiter, err := newSMSRateLimiter(rdb, 1, sleepWithContext)
	if err != nil {
		t.Fatalf("newSMSRateLimiter() error = %v", err)
	}

	if _, err := limiter.Allow(context.Background(), "   "); err == nil {
		t.Fatal("expected error for blank sender")
	}
}

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *goredis.Client) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis.Run() error = %v", err)
	}
	t.Cleanup(mr.Close)

	rdb := goredis.NewClient(&goredis.Options{
		Addr: mr.Addr(),
	})
	t.Cleanup(func() {
		_ = rdb.Close()
	})

	return mr, rdb
}
