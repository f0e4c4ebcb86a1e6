package rate

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"

	redrepo "github.com/ssmoliagin/weekendguide/internal/repo/redis"
)

func TestLimiterBlocksWithinWindow(t *testing.T) {
	mr, client := newMiniRedisClient(t)
	defer mr.Close()
	defer func() { _ = client.Close() }()

	limiter := NewLimiter(redrepo.NewRateRepo(client), "reviews", Window{Span: time.Minute, Limit: 2})
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		retryAfter, allowed, err := limiter.Allow(ctx, "u1")
		if err != nil {
			t.Fatalf("allow #%d: %v", i+1, err)
		}
		if !allowed || retryAfter != 0 {
			t.Fatalf("unexpected result on allow #%d: allowed=%v retry_after=%d", i+1, allowed, retryAfter)
		}
	}

	retryAfter, allowed, err := limiter.Allow(ctx, "u1")
	if err != nil {
		t.Fatalf("allow #3: %v", err)
	}
	if allowed {
		t.Fatalf("expected limiter block on third action in the window")
	}
	if retryAfter <= 0 || retryAfter > 60 {
		t.Fatalf("unexpected retry_after: %d", retryAfter)
	}

	currentRetry, err := limiter.RetryAfter(ctx, "u1")
	if err != nil {
		t.Fatalf("retry_after state: %v", err)
	}
	if currentRetry <= 0 {
		t.Fatalf("expected positive retry_after state, got %d", currentRetry)
	}

	mr.FastForward(61 * time.Second)

	retryAfter, allowed, err = limiter.Allow(ctx, "u1")
	if err != nil {
		t.Fatalf("allow after window: %v", err)
	}
	if !allowed || retryAfter != 0 {
		t.Fatalf("unexpected result after fast forward: allowed=%v retry_after=%d", allowed, retryAfter)
	}
}

func TestLimiterSubjectsAreIndependent(t *testing.T) {
	mr, client := newMiniRedisClient(t)
	defer mr.Close()
	defer func() { _ = client.Close() }()

	limiter := NewLimiter(redrepo.NewRateRepo(client), "reviews", Window{Span: time.Minute, Limit: 1})
	ctx := context.Background()

	if _, allowed, err := limiter.Allow(ctx, "u1"); err != nil || !allowed {
		t.Fatalf("u1 first action: allowed=%v err=%v", allowed, err)
	}
	if _, allowed, err := limiter.Allow(ctx, "u2"); err != nil || !allowed {
		t.Fatalf("u2 must not share u1's window: allowed=%v err=%v", allowed, err)
	}
}

func TestLimiterWithoutWindowsAllowsEverything(t *testing.T) {
	mr, client := newMiniRedisClient(t)
	defer mr.Close()
	defer func() { _ = client.Close() }()

	limiter := NewLimiter(redrepo.NewRateRepo(client), "reviews", Window{Span: time.Minute, Limit: 0})
	for i := 0; i < 10; i++ {
		if _, allowed, err := limiter.Allow(context.Background(), "u1"); err != nil || !allowed {
			t.Fatalf("disabled window blocked action #%d: err=%v", i+1, err)
		}
	}
}

func newMiniRedisClient(t *testing.T) (*miniredis.Miniredis, *goredis.Client) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}

	client := goredis.NewClient(&goredis.Options{
		Addr: mr.Addr(),
	})

	return mr, client
}
