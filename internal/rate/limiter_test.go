package rate

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newLimiterTest(t *testing.T, cfg Config) (*Limiter, *miniredis.Miniredis, func()) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis start: %v", err)
	}
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return New(rdb, cfg), mr, func() {
		rdb.Close()
		mr.Close()
	}
}

func TestAllowLookupEnforcesBudget(t *testing.T) {
	l, _, done := newLimiterTest(t, Config{MaxLookups: 3, Window: time.Minute})
	defer done()
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if err := l.AllowLookup(ctx, "ref-1"); err != nil {
			t.Fatalf("lookup %d: %v", i+1, err)
		}
	}
	if err := l.AllowLookup(ctx, "ref-1"); !errors.Is(err, ErrRateLimited) {
		t.Fatalf("expected ErrRateLimited, got %v", err)
	}
	if err := l.AllowLookup(ctx, "ref-2"); err != nil {
		t.Fatalf("other reference must have its own budget: %v", err)
	}
}

func TestWindowExpiryRestoresBudget(t *testing.T) {
	l, mr, done := newLimiterTest(t, Config{MaxLookups: 1, Window: time.Minute})
	defer done()
	ctx := context.Background()

	if err := l.AllowLookup(ctx, "ref-1"); err != nil {
		t.Fatalf("first lookup: %v", err)
	}
	if err := l.AllowLookup(ctx, "ref-1"); !errors.Is(err, ErrRateLimited) {
		t.Fatalf("expected ErrRateLimited, got %v", err)
	}

	mr.FastForward(2 * time.Minute)

	if err := l.AllowLookup(ctx, "ref-1"); err != nil {
		t.Fatalf("lookup after window: %v", err)
	}
}

func TestLookupsAndReset(t *testing.T) {
	l, _, done := newLimiterTest(t, Config{Prefix: "rl", MaxLookups: 5, Window: time.Minute})
	defer done()
	ctx := context.Background()

	if n, err := l.Lookups(ctx, "ref-1"); err != nil || n != 0 {
		t.Fatalf("expected 0 lookups, got %d err=%v", n, err)
	}
	_ = l.AllowLookup(ctx, "ref-1")
	_ = l.AllowLookup(ctx, "ref-1")
	if n, err := l.Lookups(ctx, "ref-1"); err != nil || n != 2 {
		t.Fatalf("expected 2 lookups, got %d err=%v", n, err)
	}
	if err := l.Reset(ctx, "ref-1"); err != nil {
		t.Fatalf("reset: %v", err)
	}
	if n, _ := l.Lookups(ctx, "ref-1"); n != 0 {
		t.Fatalf("expected 0 after reset, got %d", n)
	}
}

func TestRedisUnavailable(t *testing.T) {
	l, mr, done := newLimiterTest(t, Config{MaxLookups: 1, Window: time.Minute})
	defer done()
	mr.Close()

	if err := l.AllowLookup(context.Background(), "ref-1"); !errors.Is(err, ErrRedisUnavailable) {
		t.Fatalf("expected ErrRedisUnavailable, got %v", err)
	}
}
