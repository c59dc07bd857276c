package goThreeDS

import (
	"context"
	"slices"
	"sync"

	"github.com/MrEthical07/goThreeDS/internal/flows"
	"github.com/MrEthical07/goThreeDS/internal/future"
)

// challengeStrategy is one challenge back end. Implementations are fixed at
// Build and never swapped.
//
// Callbacks from the bus or the SDK may call into a strategy on any
// goroutine; every implementation guards its own state.
type challengeStrategy interface {
	version() StrategyVersion
	name() string

	// blockingError is the sticky setup error. Once set it is never cleared.
	blockingError() error
	// checkRequest validates the strategy-specific verify options. hookWaived
	// is set by the entry points that resume an out-of-band lookup.
	checkRequest(req *VerificationRequest, hookWaived bool) error
	// prepare runs before the lookup and records att as the strategy's
	// latest attempt.
	prepare(ctx context.Context, att *attempt) error
	formatLookupData(ctx context.Context, req *VerificationRequest) map[string]any
	// onLookupComplete runs after every successful lookup, with or without a
	// challenge. It returns once the attempt may proceed.
	onLookupComplete(ctx context.Context, att *attempt) error
	// presentChallenge starts the interactive step. The outcome is delivered
	// by settling att.pending.
	presentChallenge(ctx context.Context, att *attempt) error
	// abortChallenge releases resources held for att's challenge. It is safe
	// to call when no challenge was presented.
	abortChallenge(att *attempt)
	teardown(ctx context.Context)
}

// attempt is one Verify or resume call. Its pending future settles once with
// the outcome; later settlements from a cancelled or superseded attempt are
// ignored.
type attempt struct {
	id         uint64
	ctx        context.Context
	req        VerificationRequest
	hookWaived bool
	pending    *future.Future[*VerificationOutcome]

	mu     sync.Mutex
	lookup *LookupResult
}

func newAttempt(ctx context.Context, id uint64, req VerificationRequest, hookWaived bool) *attempt {
	return &attempt{
		id:         id,
		ctx:        context.WithoutCancel(ctx),
		req:        req.clone(),
		hookWaived: hookWaived,
		pending:    future.New[*VerificationOutcome](),
	}
}

func (a *attempt) setLookup(result *LookupResult) {
	a.mu.Lock()
	a.lookup = result
	a.mu.Unlock()
}

// lookupResult is the lookup of this attempt, nil until it succeeds.
func (a *attempt) lookupResult() *LookupResult {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.lookup
}

// resolve settles the attempt with out. It reports whether this call won.
func (a *attempt) resolve(out *VerificationOutcome) bool {
	return a.pending.Resolve(out)
}

// reject settles the attempt with err. It reports whether this call won.
func (a *attempt) reject(err error) bool {
	return a.pending.Reject(err)
}

func (a *attempt) settled() bool {
	return a.pending.Settled()
}

// OriginVerifier reports whether a bus message from origin may be trusted.
type OriginVerifier func(origin string) bool

// AllowOrigins returns a verifier that accepts exactly the given origins.
func AllowOrigins(origins ...string) OriginVerifier {
	allowed := slices.Clone(origins)
	return func(origin string) bool {
		return origin != "" && slices.Contains(allowed, origin)
	}
}

func legacyOriginVerifier(cfg LegacyConfig) OriginVerifier {
	if len(cfg.AllowedOrigins) > 0 {
		return AllowOrigins(cfg.AllowedOrigins...)
	}
	return AllowOrigins(originOf(cfg.AssetsURL))
}

func addressFields(a *Address) *flows.AddressFields {
	if a == nil {
		return nil
	}
	return &flows.AddressFields{
		GivenName:       a.GivenName,
		Surname:         a.Surname,
		PhoneNumber:     a.PhoneNumber,
		StreetAddress:   a.StreetAddress,
		ExtendedAddress: a.ExtendedAddress,
		Line3:           a.Line3,
		Locality:        a.Locality,
		Region:          a.Region,
		PostalCode:      a.PostalCode,
		CountryCode:     a.CountryCodeAlpha2,
	}
}

// baseLookupData is the lookup payload shared by both protocol versions.
func baseLookupData(req *VerificationRequest) map[string]any {
	data := map[string]any{
		"amount": req.Amount.normalized(),
	}
	if req.ChallengeRequested {
		data["challengeRequested"] = true
	}
	if req.ExemptionRequested {
		data["exemptionRequested"] = true
	}
	if req.DataOnlyRequested {
		data["dataOnlyRequested"] = true
	}
	if req.CardAddChallengeRequested {
		data["cardAddChallengeRequested"] = true
	}
	if req.AccountType != "" {
		data["accountType"] = req.AccountType
	}
	return data
}
