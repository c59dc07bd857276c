package flows

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"time"
)

// LookupFailureKind classifies gateway failures for root-level mapping.
type LookupFailureKind int

const (
	LookupFailureNone LookupFailureKind = iota
	LookupFailureNotFound
	LookupFailureValidation
	LookupFailureGeneric
	LookupFailureDecode
)

// LookupDeps captures gateway call dependencies.
type LookupDeps struct {
	Request func(ctx context.Context, method, endpoint string, data map[string]any) (json.RawMessage, error)
	// StatusOf extracts the HTTP status carried by a classified transport error.
	StatusOf func(error) (int, bool)
	Observe  func(time.Duration)
	Now      func() time.Time
}

// LookupOutcome carries either the raw response body or failure metadata.
type LookupOutcome struct {
	Failure LookupFailureKind
	Err     error
	Status  int
	Body    json.RawMessage
}

// LookupEndpoint is the gateway path of the lookup call for referenceID.
func LookupEndpoint(referenceID string) string {
	return "payment_methods/" + url.PathEscape(referenceID) + "/three_d_secure/lookup"
}

// AuthenticateEndpoint is the gateway path exchanging a signed validation
// token for the authenticated reference.
func AuthenticateEndpoint(referenceID string) string {
	return "payment_methods/" + url.PathEscape(referenceID) + "/three_d_secure/authenticate_from_jwt"
}

// RunLookup performs the lookup call and classifies its failure. Nothing is
// retried.
func RunLookup(ctx context.Context, referenceID string, payload map[string]any, deps LookupDeps) LookupOutcome {
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	start := now()
	body, err := deps.Request(ctx, http.MethodPost, LookupEndpoint(referenceID), payload)
	if deps.Observe != nil {
		deps.Observe(now().Sub(start))
	}
	if err != nil {
		return ClassifyLookupError(err, deps.StatusOf)
	}
	return LookupOutcome{Failure: LookupFailureNone, Body: body}
}

// ClassifyLookupError maps a transport failure onto the lookup taxonomy:
// 404 is a missing or consumed reference, 422 is a remote validation failure,
// anything else is generic.
func ClassifyLookupError(err error, statusOf func(error) (int, bool)) LookupOutcome {
	status := 0
	if statusOf != nil {
		if s, ok := statusOf(err); ok {
			status = s
		}
	}
	switch status {
	case http.StatusNotFound:
		return LookupOutcome{Failure: LookupFailureNotFound, Err: err, Status: status}
	case http.StatusUnprocessableEntity:
		return LookupOutcome{Failure: LookupFailureValidation, Err: err, Status: status}
	default:
		return LookupOutcome{Failure: LookupFailureGeneric, Err: err, Status: status}
	}
}
