//go:build integration
// +build integration

package test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	goThreeDS "github.com/MrEthical07/goThreeDS"
	"github.com/MrEthical07/goThreeDS/internal/rate"
	"github.com/MrEthical07/goThreeDS/internal/stores"
	"github.com/MrEthical07/goThreeDS/threedstest"
)

// redisMode describes which Redis backend the compatibility suite is running against.
type redisMode struct {
	name  string
	setup func(t *testing.T) (redis.UniversalClient, func())
}

// redisModes returns the set of Redis backends to test.
// miniredis is always available.
// Real Redis standalone is used when REDIS_ADDR is set (e.g. "127.0.0.1:6379").
func redisModes(t *testing.T) []redisMode {
	t.Helper()
	modes := []redisMode{
		{
			name: "miniredis",
			setup: func(t *testing.T) (redis.UniversalClient, func()) {
				t.Helper()
				mr, err := miniredis.Run()
				if err != nil {
					t.Fatalf("miniredis: %v", err)
				}
				rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
				return rdb, func() { _ = rdb.Close(); mr.Close() }
			},
		},
	}

	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		modes = append(modes, redisMode{
			name: "standalone:" + addr,
			setup: func(t *testing.T) (redis.UniversalClient, func()) {
				t.Helper()
				rdb := redis.NewClient(&redis.Options{Addr: addr})
				ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
				defer cancel()
				if err := rdb.Ping(ctx).Err(); err != nil {
					t.Skipf("cannot connect to Redis at %s: %v", addr, err)
				}
				rdb.FlushDB(context.Background())
				return rdb, func() { rdb.FlushDB(context.Background()); _ = rdb.Close() }
			},
		})
	}

	// Cluster mode: when REDIS_CLUSTER_ADDRS is set (comma-separated).
	if addrs := os.Getenv("REDIS_CLUSTER_ADDRS"); addrs != "" {
		modes = append(modes, redisMode{
			name: "cluster",
			setup: func(t *testing.T) (redis.UniversalClient, func()) {
				t.Helper()
				rdb := redis.NewClusterClient(&redis.ClusterOptions{Addrs: splitAddrs(addrs)})
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := rdb.Ping(ctx).Err(); err != nil {
					t.Skipf("cannot connect to Redis cluster: %v", err)
				}
				return rdb, func() { _ = rdb.Close() }
			},
		})
	}

	return modes
}

func splitAddrs(s string) []string {
	var addrs []string
	for _, a := range strings.Split(s, ",") {
		if a = strings.TrimSpace(a); a != "" {
			addrs = append(addrs, a)
		}
	}
	return addrs
}

// uniqueID keeps keys distinct across runs against a shared server.
func uniqueID(prefix string) string {
	return fmt.Sprintf("%s-%d", prefix, time.Now().UnixNano())
}

func TestRedisCompat_HandoffSingleUse(t *testing.T) {
	for _, mode := range redisModes(t) {
		t.Run(mode.name, func(t *testing.T) {
			rdb, cleanup := mode.setup(t)
			defer cleanup()

			store := stores.NewHandoffStore(rdb, "3dsh")
			ctx := context.Background()
			id := uniqueID("h")

			record := &stores.HandoffRecord{
				ReferenceID: "ref-1",
				CreatedAt:   time.Now().Unix(),
				Lookup:      []byte(`{"paymentMethod":{"nonce":"ref-1"}}`),
			}
			if err := store.Save(ctx, id, record, time.Minute); err != nil {
				t.Fatalf("save: %v", err)
			}

			var (
				wg   sync.WaitGroup
				mu   sync.Mutex
				wins int
			)
			for i := 0; i < 8; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					if _, err := store.Consume(ctx, id); err == nil {
						mu.Lock()
						wins++
						mu.Unlock()
					}
				}()
			}
			wg.Wait()
			if wins != 1 {
				t.Fatalf("expected exactly one consumer, got %d", wins)
			}

			if _, err := store.Consume(ctx, id); !errors.Is(err, stores.ErrHandoffNotFound) {
				t.Errorf("expected ErrHandoffNotFound after consume, got %v", err)
			}
		})
	}
}

func TestRedisCompat_LookupLimiterWindow(t *testing.T) {
	for _, mode := range redisModes(t) {
		t.Run(mode.name, func(t *testing.T) {
			rdb, cleanup := mode.setup(t)
			defer cleanup()

			limiter := rate.New(rdb, rate.Config{Prefix: "3dsrl", MaxLookups: 3, Window: time.Minute})
			ctx := context.Background()
			ref := uniqueID("ref")

			for i := 0; i < 3; i++ {
				if err := limiter.AllowLookup(ctx, ref); err != nil {
					t.Fatalf("lookup %d: %v", i+1, err)
				}
			}
			if err := limiter.AllowLookup(ctx, ref); !errors.Is(err, rate.ErrRateLimited) {
				t.Fatalf("expected ErrRateLimited, got %v", err)
			}
			if err := limiter.Reset(ctx, ref); err != nil {
				t.Fatalf("reset: %v", err)
			}
			if err := limiter.AllowLookup(ctx, ref); err != nil {
				t.Fatalf("expected lookup after reset, got %v", err)
			}
		})
	}
}

func TestRedisCompat_ServerLookupResume(t *testing.T) {
	for _, mode := range redisModes(t) {
		t.Run(mode.name, func(t *testing.T) {
			rdb, cleanup := mode.setup(t)
			defer cleanup()

			ref := uniqueID("ref")
			f := newModernFixture(t, modernConfig(t), func(b *goThreeDS.Builder) { b.WithRedis(rdb) })
			f.transport.OnLookup(ref, threedstest.Response{Body: threedstest.FrictionlessLookup(ref, true)})

			ctx := context.Background()
			handoff, err := f.session.ServerLookup(ctx, request(ref))
			if err != nil {
				t.Fatalf("server lookup: %v", err)
			}
			out, err := f.session.ResumeFromHandoff(ctx, handoff.ID, goThreeDS.VerificationRequest{ReferenceID: ref})
			if err != nil {
				t.Fatalf("resume: %v", err)
			}
			if !out.LiabilityShifted {
				t.Fatalf("expected liability shifted, got %+v", out)
			}
		})
	}
}
