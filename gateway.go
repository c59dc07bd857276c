package goThreeDS

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/MrEthical07/goThreeDS/internal/flows"
)

var errMissingPaymentMethod = errors.New("lookup response has no payment method")

// lookupGateway issues the lookup and token exchange calls and maps their
// failures onto the public error taxonomy.
type lookupGateway struct {
	transport Transport
	metrics   *Metrics
	logger    *slog.Logger
}

func (g *lookupGateway) request(ctx context.Context, method, endpoint string, data map[string]any) (json.RawMessage, error) {
	return g.transport.Request(ctx, GatewayRequest{Method: method, Endpoint: endpoint, Data: data})
}

// lookup posts payload for referenceID. Every failure keeps the transport
// error as its cause.
func (g *lookupGateway) lookup(ctx context.Context, referenceID string, payload map[string]any) (*LookupResult, error) {
	out := flows.RunLookup(ctx, referenceID, payload, flows.LookupDeps{
		Request:  g.request,
		StatusOf: transportStatus,
		Observe: func(d time.Duration) {
			g.metrics.Observe(MetricLookupLatency, d)
		},
	})

	switch out.Failure {
	case flows.LookupFailureNone:
	case flows.LookupFailureNotFound:
		g.metrics.Inc(MetricLookupNotFound)
		return nil, ErrLookupReferenceNotFound.with(out.Err)
	case flows.LookupFailureValidation:
		g.metrics.Inc(MetricLookupValidationError)
		return nil, ErrLookupValidation.with(out.Err)
	default:
		g.metrics.Inc(MetricLookupError)
		g.logger.WarnContext(ctx, "3ds lookup failed", "status", out.Status, "error", out.Err)
		return nil, ErrLookupGeneric.with(out.Err)
	}

	result, err := decodeLookupResult(out.Body)
	if err != nil {
		g.metrics.Inc(MetricLookupError)
		return nil, ErrLookupGeneric.with(err)
	}
	g.metrics.Inc(MetricLookupSuccess)
	return result, nil
}

func decodeLookupResult(body json.RawMessage) (*LookupResult, error) {
	var result LookupResult
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, err
	}
	if result.PaymentMethod == nil {
		return nil, errMissingPaymentMethod
	}
	result.normalize()
	return &result, nil
}

type authenticateResponse struct {
	PaymentMethod    *PaymentMethod    `json:"paymentMethod"`
	ThreeDSecureInfo *ThreeDSecureInfo `json:"threeDSecureInfo"`
}

// authenticateFromJWT exchanges a signed validation token for the final
// payment method. When the gateway omits it, the lookup's payment method is
// used.
func (g *lookupGateway) authenticateFromJWT(ctx context.Context, lookup *LookupResult, token string) (*PaymentMethod, *ThreeDSecureInfo, error) {
	ref := lookup.PaymentMethod.ReferenceID
	body, err := g.request(ctx, http.MethodPost, flows.AuthenticateEndpoint(ref), map[string]any{
		"jwt":                token,
		"paymentMethodNonce": ref,
	})
	if err != nil {
		g.metrics.Inc(MetricJWTExchangeFailure)
		return nil, nil, ErrJWTAuthenticationFailed.with(err)
	}

	var resp authenticateResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		g.metrics.Inc(MetricJWTExchangeFailure)
		return nil, nil, ErrJWTAuthenticationFailed.with(err)
	}
	pm := resp.PaymentMethod
	if pm == nil {
		pm = lookup.PaymentMethod
	}
	return pm, resp.ThreeDSecureInfo, nil
}
