package goThreeDS

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/MrEthical07/goThreeDS/internal/flows"
	"github.com/MrEthical07/goThreeDS/internal/rate"
	"github.com/MrEthical07/goThreeDS/internal/stores"
)

// Session orchestrates verifications for one page or checkout. At most one
// verification is in flight at a time.
//
// Session methods are safe for concurrent use. Create sessions with
// [Builder.Build].
type Session struct {
	id       string
	cfg      Config
	strategy challengeStrategy
	gateway  *lookupGateway
	limiter  *rate.Limiter
	handoffs *stores.HandoffStore
	metrics  *Metrics
	events   *eventDispatcher
	logger   *slog.Logger
	now      func() time.Time

	mu       sync.Mutex
	state    SessionState
	active   *attempt
	seq      uint64
	cachedPM *PaymentMethod
	tornDown bool
}

// ID returns the session id carried by events and log records.
func (s *Session) ID() string {
	return s.id
}

// Version returns the protocol generation of the session's strategy.
func (s *Session) Version() StrategyVersion {
	return s.strategy.version()
}

// State returns the current lifecycle state.
func (s *Session) State() SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Verify runs a lookup for req and, when the issuer asks for it, the
// interactive challenge. It returns the authenticated outcome.
//
// Preconditions are checked in a fixed order before any I/O: the sticky
// setup error, the in-progress guard, the reference id, the amount and the
// strategy's hooks. A ctx that ends while waiting on the challenge fails the
// attempt with the context error.
func (s *Session) Verify(ctx context.Context, req VerificationRequest) (*VerificationOutcome, error) {
	att, err := s.begin(ctx, "Verify", req, false, nil)
	if err != nil {
		return nil, err
	}
	return s.run(ctx, att, nil)
}

// InitializeChallengeWithLookupResponse resumes a verification whose lookup
// was performed elsewhere, for example on a server. The gateway is not
// called and the OnLookupComplete hook is optional.
func (s *Session) InitializeChallengeWithLookupResponse(ctx context.Context, result *LookupResult, opts VerificationRequest) (*VerificationOutcome, error) {
	att, err := s.begin(ctx, "InitializeChallengeWithLookupResponse", opts, true, func() error {
		if result == nil || result.PaymentMethod == nil {
			return missingOption("a lookup response with a payment method")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	lookup := result.clone()
	lookup.normalize()
	return s.run(ctx, att, lookup)
}

// CancelVerify abandons the verification in flight and returns an outcome
// built from the last successful lookup. The pending verification fails
// with ErrVerifyCanceledByMerchant.
//
// With no successful lookup CancelVerify returns ErrNoVerificationPayload
// and leaves the session unchanged.
func (s *Session) CancelVerify(ctx context.Context) (*VerificationOutcome, error) {
	s.mu.Lock()
	if s.tornDown {
		s.mu.Unlock()
		return nil, calledAfterTeardown("CancelVerify")
	}
	pm := s.cachedPM
	if pm == nil {
		s.mu.Unlock()
		return nil, ErrNoVerificationPayload
	}
	att := s.active
	s.active = nil
	s.state = StateCancelled
	s.mu.Unlock()

	if att != nil && att.reject(ErrVerifyCanceledByMerchant) {
		s.strategy.abortChallenge(att)
	}

	s.metrics.Inc(MetricVerifyCanceled)
	s.emit(ctx, EventVerifyCanceled, pm.ReferenceID, nil, nil)
	s.logger.InfoContext(ctx, "3ds verification canceled", "reference_id", pm.ReferenceID)

	return formatOutcome(pm, pm.ThreeDSecureInfo), nil
}

// Teardown releases the bus channel, the mounted frame and the SDK event
// subscriptions, then closes the event dispatcher. The SDK script stays
// loaded. An attempt in flight fails with ErrVerifyCanceledByMerchant and
// the session ends in StateCancelled. Every later call that returns an
// error fails with ErrCalledAfterTeardown.
func (s *Session) Teardown(ctx context.Context) error {
	s.mu.Lock()
	if s.tornDown {
		s.mu.Unlock()
		return calledAfterTeardown("Teardown")
	}
	s.tornDown = true
	att := s.active
	s.active = nil
	if att != nil {
		s.state = StateCancelled
	}
	s.mu.Unlock()

	if att != nil {
		att.reject(ErrVerifyCanceledByMerchant.withMessage("3D Secure verification was torn down."))
	}
	s.strategy.teardown(ctx)

	s.emit(ctx, EventTeardown, "", nil, nil)
	s.events.Close()
	s.logger.DebugContext(ctx, "3ds session torn down")
	return nil
}

// MetricsSnapshot returns the session's counters and lookup latency
// histogram.
func (s *Session) MetricsSnapshot() MetricsSnapshot {
	return s.metrics.Snapshot()
}

// EventsDropped returns how many analytics events were dropped because the
// dispatcher buffer was full.
func (s *Session) EventsDropped() uint64 {
	return s.events.Dropped()
}

/*
====================================
ATTEMPT LIFECYCLE
====================================
*/

func (s *Session) begin(ctx context.Context, method string, req VerificationRequest, lookupDone bool, check func() error) (*attempt, error) {
	s.mu.Lock()
	if s.tornDown {
		s.mu.Unlock()
		return nil, calledAfterTeardown(method)
	}

	res := flows.RunPreconditions(flows.PreconditionInput{
		BlockingErr: s.strategy.blockingError(),
		Active:      s.active != nil,
		LookupDone:  lookupDone,
		ReferenceID: strings.TrimSpace(req.ReferenceID),
		AmountValid: req.Amount.Valid(),
		StrategyErr: func() error {
			if check != nil {
				if err := check(); err != nil {
					return err
				}
			}
			return s.strategy.checkRequest(&req, lookupDone)
		},
	})
	if res.Failure != flows.PreconditionOK {
		s.mu.Unlock()
		return nil, s.rejected(ctx, req, res)
	}

	s.seq++
	att := newAttempt(ctx, s.seq, req, lookupDone)
	s.active = att
	s.state = StateLookingUp
	s.mu.Unlock()

	s.metrics.Inc(MetricVerifyStarted)
	s.emit(ctx, EventVerifyStarted, att.req.ReferenceID, nil, map[string]string{"method": method})
	s.logger.DebugContext(ctx, "3ds verification started",
		"method", method,
		"attempt", att.id,
		"reference_id", att.req.ReferenceID,
	)
	return att, nil
}

func (s *Session) rejected(ctx context.Context, req VerificationRequest, res flows.PreconditionResult) error {
	var err error
	switch res.Failure {
	case flows.PreconditionBlockingSetup:
		s.metrics.Inc(MetricVerifyBlocked)
		err = res.Err
	case flows.PreconditionInProgress:
		s.metrics.Inc(MetricVerifyInProgressRejected)
		err = ErrAuthenticationInProgress
	case flows.PreconditionMissingReference:
		err = missingOption("a reference id")
	case flows.PreconditionMissingAmount:
		err = missingOption("an amount")
	default:
		err = res.Err
	}

	s.emit(ctx, EventVerifyRejected, req.ReferenceID, err, nil)
	s.logger.DebugContext(ctx, "3ds verification rejected", "error", err)
	return err
}

func (s *Session) run(ctx context.Context, att *attempt, lookup *LookupResult) (*VerificationOutcome, error) {
	if err := s.strategy.prepare(ctx, att); err != nil {
		return s.fail(ctx, att, err)
	}

	if lookup == nil {
		result, err := s.lookup(ctx, &att.req)
		if err != nil {
			return s.fail(ctx, att, err)
		}
		lookup = result
	}
	att.setLookup(lookup)
	s.cachePaymentMethod(lookup.PaymentMethod)
	if att.settled() {
		return s.finish(ctx, att)
	}

	if err := s.strategy.onLookupComplete(ctx, att); err != nil {
		return s.fail(ctx, att, err)
	}
	if att.settled() {
		return s.finish(ctx, att)
	}

	if lookup.Challenge == nil {
		att.resolve(formatOutcome(lookup.PaymentMethod, lookup.ThreeDSecureInfo))
		return s.finish(ctx, att)
	}

	s.metrics.Inc(MetricChallengeRequired)
	s.emit(ctx, EventChallengeRequired, att.req.ReferenceID, nil, nil)
	if !s.transition(att, StateAwaitingChallenge) {
		return s.finish(ctx, att)
	}
	if err := s.strategy.presentChallenge(ctx, att); err != nil {
		return s.fail(ctx, att, err)
	}
	s.emit(ctx, EventChallengePresented, att.req.ReferenceID, nil, map[string]string{"strategy": s.strategy.name()})

	select {
	case <-att.pending.Done():
	case <-ctx.Done():
		if att.reject(contextDone(ctx.Err())) {
			s.strategy.abortChallenge(att)
		}
	}
	return s.finish(ctx, att)
}

func (s *Session) lookup(ctx context.Context, req *VerificationRequest) (*LookupResult, error) {
	if s.limiter != nil {
		if err := s.limiter.AllowLookup(ctx, req.ReferenceID); err != nil {
			if errors.Is(err, rate.ErrRateLimited) {
				s.metrics.Inc(MetricLookupRateLimited)
				s.emit(ctx, EventLookupFailed, req.ReferenceID, ErrLookupRateLimited, nil)
				return nil, ErrLookupRateLimited
			}
			s.logger.WarnContext(ctx, "3ds lookup limiter unavailable, allowing lookup", "error", err)
		}
	}

	payload := s.strategy.formatLookupData(ctx, req)
	result, err := s.gateway.lookup(ctx, req.ReferenceID, payload)
	if err != nil {
		s.emit(ctx, EventLookupFailed, req.ReferenceID, err, nil)
		return nil, err
	}
	s.emit(ctx, EventLookupSucceeded, req.ReferenceID, nil, map[string]string{
		"challenge": strconv.FormatBool(result.Challenge != nil),
	})
	return result, nil
}

// fail settles att with err unless something else settled it first.
func (s *Session) fail(ctx context.Context, att *attempt, err error) (*VerificationOutcome, error) {
	if att.reject(err) {
		s.strategy.abortChallenge(att)
	}
	return s.finish(ctx, att)
}

// finish moves the session to a terminal state if att is still the active
// attempt, records the outcome and returns it.
func (s *Session) finish(ctx context.Context, att *attempt) (*VerificationOutcome, error) {
	out, err, _ := att.pending.Result()

	s.mu.Lock()
	if s.active == att {
		s.active = nil
		if err != nil {
			s.state = StateFailed
		} else {
			s.state = StateComplete
		}
	}
	s.mu.Unlock()

	lookup := att.lookupResult()
	challenged := lookup != nil && lookup.Challenge != nil

	switch {
	case err == nil:
		s.metrics.Inc(MetricVerifyCompleted)
		if challenged {
			s.metrics.Inc(MetricChallengeSucceeded)
			s.emit(ctx, EventChallengeSucceeded, att.req.ReferenceID, nil, nil)
		}
		s.emit(ctx, EventVerifyCompleted, att.req.ReferenceID, nil, map[string]string{
			"liability_shifted": strconv.FormatBool(out.LiabilityShifted),
		})
		s.logger.InfoContext(ctx, "3ds verification complete",
			"attempt", att.id,
			"challenged", challenged,
			"liability_shifted", out.LiabilityShifted,
		)
	case errors.Is(err, ErrVerifyCanceledByMerchant):
		s.logger.DebugContext(ctx, "3ds verification ended by cancel", "attempt", att.id)
	default:
		s.metrics.Inc(MetricVerifyFailed)
		if challenged {
			s.metrics.Inc(MetricChallengeFailed)
			s.emit(ctx, EventChallengeFailed, att.req.ReferenceID, err, nil)
		}
		s.emit(ctx, EventVerifyFailed, att.req.ReferenceID, err, nil)
		s.logger.WarnContext(ctx, "3ds verification failed", "attempt", att.id, "error", err)
	}
	return out, err
}

// transition moves an active attempt to state. It reports false when att is
// no longer the active attempt.
func (s *Session) transition(att *attempt, state SessionState) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active != att {
		return false
	}
	s.state = state
	return true
}

func (s *Session) cachePaymentMethod(pm *PaymentMethod) {
	if pm == nil {
		return
	}
	cp := *pm
	if pm.ThreeDSecureInfo != nil {
		info := *pm.ThreeDSecureInfo
		cp.ThreeDSecureInfo = &info
	}
	s.mu.Lock()
	s.cachedPM = &cp
	s.mu.Unlock()
}

func (s *Session) isTornDown() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tornDown
}

/*
====================================
EVENTS
====================================
*/

func (s *Session) emit(ctx context.Context, eventType, referenceID string, err error, meta map[string]string) {
	if s.events == nil {
		return
	}
	event := VerificationEvent{
		Timestamp:   s.now(),
		EventType:   eventType,
		SessionID:   s.id,
		ReferenceID: referenceID,
		Version:     int(s.strategy.version()),
		Success:     err == nil,
		Metadata:    meta,
	}
	if err != nil {
		event.Error = errorCode(err)
	}
	s.events.Emit(ctx, event)
}

func errorCode(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return err.Error()
}
