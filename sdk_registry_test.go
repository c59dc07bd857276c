package goThreeDS

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

type countingLoader struct {
	calls atomic.Int32
	fail  atomic.Bool
	delay time.Duration
}

func (l *countingLoader) LoadScript(ctx context.Context, src string) error {
	l.calls.Add(1)
	if l.delay > 0 {
		time.Sleep(l.delay)
	}
	if l.fail.Load() {
		return errors.New("script blocked")
	}
	return nil
}

func TestScriptRegistryLoadsOncePerURL(t *testing.T) {
	const src = "https://sdk.example/registry-once.js"
	loader := &countingLoader{delay: 20 * time.Millisecond}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := scripts.load(context.Background(), loader, src); err != nil {
				t.Errorf("load: %v", err)
			}
		}()
	}
	wg.Wait()

	if got := loader.calls.Load(); got != 1 {
		t.Fatalf("expected one load, got %d", got)
	}
	if !scripts.loaded(src) {
		t.Fatal("expected script to be reported loaded")
	}
	if err := scripts.load(context.Background(), loader, src); err != nil || loader.calls.Load() != 1 {
		t.Fatalf("expected cached load, err=%v calls=%d", err, loader.calls.Load())
	}
}

func TestScriptRegistryForgetsFailedLoad(t *testing.T) {
	const src = "https://sdk.example/registry-retry.js"
	loader := &countingLoader{}
	loader.fail.Store(true)

	if err := scripts.load(context.Background(), loader, src); err == nil {
		t.Fatal("expected load failure")
	}
	if scripts.loaded(src) {
		t.Fatal("failed script reported loaded")
	}

	loader.fail.Store(false)
	if err := scripts.load(context.Background(), loader, src); err != nil {
		t.Fatalf("retry: %v", err)
	}
	if got := loader.calls.Load(); got != 2 {
		t.Fatalf("expected a retry after failure, got %d loads", got)
	}
}

func TestScriptRegistryWaitHonorsContext(t *testing.T) {
	const src = "https://sdk.example/registry-slow.js"
	loader := &countingLoader{delay: 200 * time.Millisecond}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if err := scripts.load(ctx, loader, src); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}

	// The load itself continues and is shared with the next caller.
	if err := scripts.load(context.Background(), loader, src); err != nil {
		t.Fatalf("second wait: %v", err)
	}
	if got := loader.calls.Load(); got != 1 {
		t.Fatalf("expected one load, got %d", got)
	}
}

func TestSessionStateActive(t *testing.T) {
	for _, s := range []SessionState{StateIdle, StateComplete, StateCancelled, StateFailed} {
		if s.Active() {
			t.Fatalf("%s should not be active", s)
		}
	}
	for _, s := range []SessionState{StateLookingUp, StateAwaitingChallenge} {
		if !s.Active() {
			t.Fatalf("%s should be active", s)
		}
	}
	if SessionState(42).String() != "unknown" {
		t.Fatal("expected unknown for out-of-range state")
	}
}
