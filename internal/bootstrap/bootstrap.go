package bootstrap

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/MrEthical07/goThreeDS/internal/future"
)

// FailureKind classifies why setup did not complete.
type FailureKind int

const (
	FailureNone FailureKind = iota
	FailureScriptLoad
	FailureTimeout
	FailureSetup
)

// Failure is the terminal setup error. Cause is the underlying error, if any.
type Failure struct {
	Kind  FailureKind
	Cause error
}

func (f *Failure) Error() string {
	switch f.Kind {
	case FailureScriptLoad:
		return "sdk script load failed: " + causeText(f.Cause)
	case FailureTimeout:
		return "sdk setup timed out"
	default:
		return "sdk setup failed: " + causeText(f.Cause)
	}
}

func (f *Failure) Unwrap() error { return f.Cause }

func causeText(err error) string {
	if err == nil {
		return "unknown"
	}
	return err.Error()
}

// Deps wires the bootstrapper to the script loader and the SDK.
type Deps struct {
	// LoadScript loads the SDK script. It may be shared across bootstrappers.
	LoadScript func(ctx context.Context) error
	// Configure configures the SDK, subscribes to its events and calls its
	// init setup. Completion is reported later through Complete.
	Configure func(ctx context.Context) error
	Timeout   time.Duration
	// MapFailure converts the terminal failure into the error returned to
	// callers. It runs exactly once.
	MapFailure func(*Failure) error
	// OnSettled runs exactly once after setup resolves or rejects, before any
	// waiter is released.
	OnSettled func(sessionID string, err error)
	After     func(time.Duration) <-chan time.Time
}

// Bootstrapper runs the SDK setup sequence at most once.
//
// The first Setup call starts the sequence on a context detached from the
// caller; every call, concurrent or later, waits on the same outcome. The
// sequence races Timeout: whichever of completion, failure or timeout comes
// first wins and the rest are ignored.
type Bootstrapper struct {
	deps      Deps
	once      sync.Once
	started   atomic.Bool
	result    *future.Future[string]
	completed chan string
}

// New returns an idle bootstrapper.
func New(deps Deps) *Bootstrapper {
	if deps.After == nil {
		deps.After = time.After
	}
	return &Bootstrapper{
		deps:      deps,
		result:    future.New[string](),
		completed: make(chan string, 1),
	}
}

// Setup starts setup on first use and waits for its outcome or ctx.
func (b *Bootstrapper) Setup(ctx context.Context) (string, error) {
	b.once.Do(func() {
		b.started.Store(true)
		go b.run(context.WithoutCancel(ctx))
	})
	return b.result.Wait(ctx)
}

// Wait waits for the setup outcome without starting setup. Waiters that
// arrive before the first Setup call observe the same outcome.
func (b *Bootstrapper) Wait(ctx context.Context) (string, error) {
	return b.result.Wait(ctx)
}

// Started reports whether Setup has been called.
func (b *Bootstrapper) Started() bool {
	return b.started.Load()
}

// Complete reports the SDK's setup-complete event. It has no effect once
// setup has settled.
func (b *Bootstrapper) Complete(sessionID string) {
	if b.result.Settled() {
		return
	}
	select {
	case b.completed <- sessionID:
	default:
	}
}

// Settled reports whether setup resolved or rejected.
func (b *Bootstrapper) Settled() bool {
	return b.result.Settled()
}

// Result returns the setup outcome without blocking.
func (b *Bootstrapper) Result() (string, error, bool) {
	return b.result.Result()
}

func (b *Bootstrapper) run(ctx context.Context) {
	timeout := b.deps.After(b.deps.Timeout)
	failed := make(chan *Failure, 1)

	go func() {
		if b.deps.LoadScript != nil {
			if err := b.deps.LoadScript(ctx); err != nil {
				failed <- &Failure{Kind: FailureScriptLoad, Cause: err}
				return
			}
		}
		if b.deps.Configure != nil {
			if err := b.deps.Configure(ctx); err != nil {
				failed <- &Failure{Kind: FailureSetup, Cause: err}
				return
			}
		}
	}()

	select {
	case sessionID := <-b.completed:
		b.settle(sessionID, nil)
	case f := <-failed:
		b.settle("", b.mapFailure(f))
	case <-timeout:
		b.settle("", b.mapFailure(&Failure{Kind: FailureTimeout}))
	}
}

func (b *Bootstrapper) mapFailure(f *Failure) error {
	if b.deps.MapFailure != nil {
		if err := b.deps.MapFailure(f); err != nil {
			return err
		}
	}
	return f
}

func (b *Bootstrapper) settle(sessionID string, err error) {
	if b.deps.OnSettled != nil {
		b.deps.OnSettled(sessionID, err)
	}
	if err != nil {
		b.result.Reject(err)
		return
	}
	b.result.Resolve(sessionID)
}

// AsFailure extracts a *Failure from err.
func AsFailure(err error) (*Failure, bool) {
	var f *Failure
	if errors.As(err, &f) {
		return f, true
	}
	return nil, false
}
