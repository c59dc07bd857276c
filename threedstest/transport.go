package threedstest

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	goThreeDS "github.com/MrEthical07/goThreeDS"
	"github.com/MrEthical07/goThreeDS/internal/flows"
)

// ErrNoResponse is returned for a request no response was scripted for.
var ErrNoResponse = errors.New("threedstest: no scripted response")

// Response is one scripted gateway answer. A non-zero Status outside 2xx is
// returned as a *goThreeDS.TransportError; Err, when set, is returned as is.
type Response struct {
	Body   any
	Status int
	Err    error
	// Hold, when set, blocks the request until it is closed or the request
	// context ends.
	Hold <-chan struct{}
}

// FakeTransport answers gateway requests from per-endpoint scripts. Each
// endpoint's responses are used in order; the last one repeats.
type FakeTransport struct {
	mu     sync.Mutex
	routes map[string][]Response
	calls  []goThreeDS.GatewayRequest
}

// NewFakeTransport returns a transport with no scripted responses.
func NewFakeTransport() *FakeTransport {
	return &FakeTransport{routes: make(map[string][]Response)}
}

// OnLookup scripts the lookup responses for referenceID.
func (t *FakeTransport) OnLookup(referenceID string, responses ...Response) *FakeTransport {
	return t.On(flows.LookupEndpoint(referenceID), responses...)
}

// OnAuthenticate scripts the token exchange responses for referenceID.
func (t *FakeTransport) OnAuthenticate(referenceID string, responses ...Response) *FakeTransport {
	return t.On(flows.AuthenticateEndpoint(referenceID), responses...)
}

// On scripts the responses of endpoint.
func (t *FakeTransport) On(endpoint string, responses ...Response) *FakeTransport {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.routes[endpoint] = append(t.routes[endpoint], responses...)
	return t
}

// Request implements goThreeDS.Transport.
func (t *FakeTransport) Request(ctx context.Context, req goThreeDS.GatewayRequest) (json.RawMessage, error) {
	t.mu.Lock()
	t.calls = append(t.calls, req)
	queue := t.routes[req.Endpoint]
	var resp Response
	ok := len(queue) > 0
	if ok {
		resp = queue[0]
		if len(queue) > 1 {
			t.routes[req.Endpoint] = queue[1:]
		}
	}
	t.mu.Unlock()

	if !ok {
		return nil, ErrNoResponse
	}
	if resp.Hold != nil {
		select {
		case <-resp.Hold:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if resp.Err != nil {
		return nil, resp.Err
	}

	body, err := json.Marshal(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.Status != 0 && (resp.Status < 200 || resp.Status > 299) {
		return nil, &goThreeDS.TransportError{HTTPStatus: resp.Status, Body: body}
	}
	return body, nil
}

// Calls returns a copy of every request received so far.
func (t *FakeTransport) Calls() []goThreeDS.GatewayRequest {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]goThreeDS.GatewayRequest(nil), t.calls...)
}

// CallCount returns how many requests were received for endpoint, or in
// total when endpoint is empty.
func (t *FakeTransport) CallCount(endpoint string) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	if endpoint == "" {
		return len(t.calls)
	}
	n := 0
	for _, c := range t.calls {
		if c.Endpoint == endpoint {
			n++
		}
	}
	return n
}

// LookupEndpoint is the gateway path of the lookup for referenceID.
func LookupEndpoint(referenceID string) string {
	return flows.LookupEndpoint(referenceID)
}

// AuthenticateEndpoint is the gateway path of the token exchange for
// referenceID.
func AuthenticateEndpoint(referenceID string) string {
	return flows.AuthenticateEndpoint(referenceID)
}

/*
====================================
RESPONSE BODIES
====================================
*/

// PaymentMethodBody is a gateway payment method for referenceID.
func PaymentMethodBody(referenceID string, shifted, possible bool) map[string]any {
	return map[string]any{
		"nonce":       referenceID,
		"type":        "CreditCard",
		"description": "ending+in+11",
		"details": map[string]any{
			"cardType": "Visa",
			"lastFour": "1111",
			"lastTwo":  "11",
		},
		"threeDSecureInfo": map[string]any{
			"liabilityShifted":       shifted,
			"liabilityShiftPossible": possible,
		},
	}
}

// FrictionlessLookup is a lookup that needs no challenge.
func FrictionlessLookup(referenceID string, shifted bool) map[string]any {
	return map[string]any{
		"paymentMethod": PaymentMethodBody(referenceID, shifted, shifted),
		"threeDSecureInfo": map[string]any{
			"liabilityShifted":       shifted,
			"liabilityShiftPossible": shifted,
		},
	}
}

// ChallengeLookup is a lookup that requires the challenge at acsURL.
func ChallengeLookup(referenceID, acsURL string) map[string]any {
	return map[string]any{
		"paymentMethod": PaymentMethodBody(referenceID, false, true),
		"lookup": map[string]any{
			"acsUrl":        acsURL,
			"pareq":         "pareq-" + referenceID,
			"md":            "md-" + referenceID,
			"termUrl":       "https://gateway.example/term",
			"transactionId": "txn-" + referenceID,
		},
		"threeDSecureInfo": map[string]any{
			"liabilityShifted":       false,
			"liabilityShiftPossible": true,
		},
	}
}

// AuthenticatedBody is the token exchange answer carrying the final
// reference.
func AuthenticatedBody(referenceID string) map[string]any {
	return map[string]any{
		"paymentMethod": PaymentMethodBody(referenceID, true, true),
		"threeDSecureInfo": map[string]any{
			"liabilityShifted":       true,
			"liabilityShiftPossible": true,
		},
	}
}
