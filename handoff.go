package goThreeDS

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/MrEthical07/goThreeDS/internal/stores"
)

// Handoff is a lookup performed by ServerLookup. The client resumes it with
// ResumeFromHandoff using ID; a handoff can be resumed once.
type Handoff struct {
	ID        string        `json:"id"`
	Result    *LookupResult `json:"result"`
	ExpiresAt time.Time     `json:"expiresAt"`
}

// ServerLookup performs the gateway lookup for req without starting a
// verification and stores the result in Redis for a client to resume. It
// does not change the session state.
func (s *Session) ServerLookup(ctx context.Context, req VerificationRequest) (*Handoff, error) {
	if s.isTornDown() {
		return nil, calledAfterTeardown("ServerLookup")
	}
	if s.handoffs == nil {
		return nil, invalidConfig("ServerLookup requires a Redis client")
	}
	if strings.TrimSpace(req.ReferenceID) == "" {
		return nil, missingOption("a reference id")
	}
	if !req.Amount.Valid() {
		return nil, missingOption("an amount")
	}

	r := req.clone()
	result, err := s.lookup(ctx, &r)
	if err != nil {
		return nil, err
	}

	raw, err := json.Marshal(result)
	if err != nil {
		return nil, ErrLookupGeneric.with(err)
	}

	now := s.now()
	handoff := &Handoff{
		ID:        uuid.NewString(),
		Result:    result,
		ExpiresAt: now.Add(s.cfg.Handoff.TTL),
	}
	record := &stores.HandoffRecord{
		ReferenceID: r.ReferenceID,
		CreatedAt:   now.Unix(),
		Lookup:      raw,
	}
	if err := s.handoffs.Save(ctx, handoff.ID, record, s.cfg.Handoff.TTL); err != nil {
		return nil, ErrHandoffStorage.with(err)
	}

	s.metrics.Inc(MetricHandoffStored)
	s.emit(ctx, EventHandoffStored, r.ReferenceID, nil, nil)
	s.logger.DebugContext(ctx, "3ds lookup handed off", "handoff_id", handoff.ID)
	return handoff, nil
}

// ResumeFromHandoff consumes the handoff stored by ServerLookup and continues
// it like InitializeChallengeWithLookupResponse. When opts carries a
// reference id it must be the one the handoff was created for; the handoff
// is consumed even when it does not match.
func (s *Session) ResumeFromHandoff(ctx context.Context, handoffID string, opts VerificationRequest) (*VerificationOutcome, error) {
	if s.handoffs == nil {
		if s.isTornDown() {
			return nil, calledAfterTeardown("ResumeFromHandoff")
		}
		return nil, invalidConfig("ResumeFromHandoff requires a Redis client")
	}

	att, err := s.begin(ctx, "ResumeFromHandoff", opts, true, func() error {
		if strings.TrimSpace(handoffID) == "" {
			return missingOption("a handoff id")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	lookup, err := s.consumeHandoff(ctx, handoffID, att.req.ReferenceID)
	if err != nil {
		return s.fail(ctx, att, err)
	}
	if att.req.ReferenceID == "" {
		att.req.ReferenceID = lookup.PaymentMethod.ReferenceID
	}

	s.metrics.Inc(MetricHandoffResumed)
	s.emit(ctx, EventHandoffResumed, att.req.ReferenceID, nil, nil)
	return s.run(ctx, att, lookup)
}

func (s *Session) consumeHandoff(ctx context.Context, handoffID, referenceID string) (*LookupResult, error) {
	record, err := s.handoffs.Consume(ctx, handoffID)
	if err != nil {
		if errors.Is(err, stores.ErrHandoffNotFound) {
			return nil, ErrHandoffNotFound
		}
		return nil, ErrHandoffStorage.with(err)
	}
	if referenceID != "" && record.ReferenceID != referenceID {
		return nil, ErrHandoffNotFound.withMessage("Lookup handoff was created for a different payment method reference.")
	}

	lookup, err := decodeLookupResult(record.Lookup)
	if err != nil {
		return nil, ErrHandoffNotFound.with(err)
	}
	return lookup, nil
}
