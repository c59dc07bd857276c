package goThreeDS

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

// GatewayRequest is one call to the payment gateway. Endpoint is relative to
// the transport's base URL.
type GatewayRequest struct {
	Method   string
	Endpoint string
	Data     map[string]any
}

// Transport performs gateway calls. A failure carrying an HTTP status must be
// returned as, or wrap, a *TransportError.
type Transport interface {
	Request(ctx context.Context, req GatewayRequest) (json.RawMessage, error)
}

// TransportFunc adapts a function to Transport.
type TransportFunc func(ctx context.Context, req GatewayRequest) (json.RawMessage, error)

// Request calls f.
func (f TransportFunc) Request(ctx context.Context, req GatewayRequest) (json.RawMessage, error) {
	return f(ctx, req)
}

// TransportError is a gateway failure classified by HTTP status.
type TransportError struct {
	HTTPStatus int
	Body       json.RawMessage
	Err        error
}

func (e *TransportError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("gateway request failed (HTTP %d): %v", e.HTTPStatus, e.Err)
	}
	return fmt.Sprintf("gateway request failed (HTTP %d)", e.HTTPStatus)
}

func (e *TransportError) Unwrap() error { return e.Err }

func transportStatus(err error) (int, bool) {
	var te *TransportError
	if errors.As(err, &te) && te.HTTPStatus > 0 {
		return te.HTTPStatus, true
	}
	return 0, false
}
