package goThreeDS

import (
	"context"
	"encoding/json"
	"io"
	"sync"
	"time"
)

// Event types emitted over a verification's lifecycle.
const (
	EventVerifyStarted      = "verify_started"
	EventVerifyRejected     = "verify_rejected"
	EventLookupSucceeded    = "lookup_succeeded"
	EventLookupFailed       = "lookup_failed"
	EventChallengeRequired  = "challenge_required"
	EventChallengePresented = "challenge_presented"
	EventChallengeSucceeded = "challenge_succeeded"
	EventChallengeFailed    = "challenge_failed"
	EventVerifyCompleted    = "verify_completed"
	EventVerifyFailed       = "verify_failed"
	EventVerifyCanceled     = "verify_canceled"
	EventSDKSetupSucceeded  = "sdk_setup_succeeded"
	EventSDKSetupFailed     = "sdk_setup_failed"
	EventEnrichmentFailed   = "enrichment_failed"
	EventHandoffStored      = "handoff_stored"
	EventHandoffResumed     = "handoff_resumed"
	EventTeardown           = "teardown"
)

// VerificationEvent is one analytics record. It never carries card data,
// signed tokens or challenge payloads.
type VerificationEvent struct {
	Timestamp   time.Time         `json:"timestamp"`
	EventType   string            `json:"event_type"`
	SessionID   string            `json:"session_id,omitempty"`
	ReferenceID string            `json:"reference_id,omitempty"`
	Version     int               `json:"version,omitempty"`
	Success     bool              `json:"success"`
	Error       string            `json:"error,omitempty"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}

// EventSink receives verification events from the dispatcher goroutine.
type EventSink interface {
	Emit(ctx context.Context, event VerificationEvent)
}

// NoOpSink discards events.
type NoOpSink struct{}

func (NoOpSink) Emit(context.Context, VerificationEvent) {}

// ChannelSink forwards events to a buffered channel.
type ChannelSink struct {
	events chan VerificationEvent
}

func NewChannelSink(buffer int) *ChannelSink {
	if buffer <= 0 {
		buffer = 1
	}
	return &ChannelSink{
		events: make(chan VerificationEvent, buffer),
	}
}

func (s *ChannelSink) Emit(ctx context.Context, event VerificationEvent) {
	select {
	case s.events <- event:
	case <-ctx.Done():
	}
}

func (s *ChannelSink) Events() <-chan VerificationEvent {
	return s.events
}

// JSONWriterSink writes one JSON object per line.
type JSONWriterSink struct {
	writer io.Writer
	mu     sync.Mutex
}

func NewJSONWriterSink(w io.Writer) *JSONWriterSink {
	return &JSONWriterSink{
		writer: w,
	}
}

func (s *JSONWriterSink) Emit(ctx context.Context, event VerificationEvent) {
	if s == nil || s.writer == nil {
		return
	}
	data, err := json.Marshal(event)
	if err != nil {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	_, _ = s.writer.Write(data)
	_, _ = s.writer.Write([]byte("\n"))
}
