package goThreeDS

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// HTTPTransport is the shipped Transport. It posts JSON to the gateway's
// client API and authenticates with a client authorization token.
type HTTPTransport struct {
	baseURL    string
	token      string
	apiVersion string
	client     *http.Client
}

// NewHTTPTransport returns a transport for cfg. client may be nil.
func NewHTTPTransport(cfg GatewayConfig, client *http.Client) *HTTPTransport {
	if client == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		client = &http.Client{Timeout: timeout}
	}
	base := cfg.DefaultBaseURL()
	if !strings.HasSuffix(base, "/") {
		base += "/"
	}
	return &HTTPTransport{
		baseURL:    base,
		token:      cfg.AuthorizationToken,
		apiVersion: cfg.APIVersion,
		client:     client,
	}
}

// Request sends req. Non-2xx responses become *TransportError carrying the
// status and body.
func (t *HTTPTransport) Request(ctx context.Context, req GatewayRequest) (json.RawMessage, error) {
	method := req.Method
	if method == "" {
		method = http.MethodPost
	}

	var body io.Reader
	if req.Data != nil {
		payload, err := json.Marshal(req.Data)
		if err != nil {
			return nil, fmt.Errorf("goThreeDS: marshal gateway request: %w", err)
		}
		body = bytes.NewReader(payload)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, t.baseURL+strings.TrimPrefix(req.Endpoint, "/"), body)
	if err != nil {
		return nil, fmt.Errorf("goThreeDS: create gateway request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	if t.token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+t.token)
	}
	if t.apiVersion != "" {
		httpReq.Header.Set("Braintree-Version", t.apiVersion)
	}

	resp, err := t.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("goThreeDS: send gateway request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &TransportError{HTTPStatus: resp.StatusCode, Err: fmt.Errorf("read response: %w", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &TransportError{
			HTTPStatus: resp.StatusCode,
			Body:       json.RawMessage(respBody),
			Err:        errors.New(http.StatusText(resp.StatusCode)),
		}
	}
	return json.RawMessage(respBody), nil
}
