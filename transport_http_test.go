package goThreeDS

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestHTTPTransportPostsJSON(t *testing.T) {
	var (
		gotPath   string
		gotAuth   string
		gotVer    string
		gotBody   map[string]any
		gotMethod string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		gotVer = r.Header.Get("Braintree-Version")
		data, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(data, &gotBody)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"paymentMethod":{"nonce":"n1"}}`))
	}))
	defer srv.Close()

	tr := NewHTTPTransport(GatewayConfig{
		BaseURL:            srv.URL + "/merchants/m1/client_api",
		AuthorizationToken: "fingerprint",
		APIVersion:         "2018-05-10",
	}, srv.Client())

	raw, err := tr.Request(context.Background(), GatewayRequest{
		Endpoint: "/v1/payment_methods/ref/three_d_secure/lookup",
		Data:     map[string]any{"amount": "10"},
	})
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if gotMethod != http.MethodPost {
		t.Fatalf("expected POST, got %s", gotMethod)
	}
	if gotPath != "/merchants/m1/client_api/v1/payment_methods/ref/three_d_secure/lookup" {
		t.Fatalf("unexpected path %q", gotPath)
	}
	if gotAuth != "Bearer fingerprint" || gotVer != "2018-05-10" {
		t.Fatalf("unexpected headers: auth=%q version=%q", gotAuth, gotVer)
	}
	if gotBody["amount"] != "10" {
		t.Fatalf("unexpected body: %v", gotBody)
	}
	if string(raw) != `{"paymentMethod":{"nonce":"n1"}}` {
		t.Fatalf("unexpected response: %s", raw)
	}
}

func TestHTTPTransportClassifiesStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"error":{"message":"invalid"}}`))
	}))
	defer srv.Close()

	tr := NewHTTPTransport(GatewayConfig{BaseURL: srv.URL}, srv.Client())
	_, err := tr.Request(context.Background(), GatewayRequest{Endpoint: "x"})

	var te *TransportError
	if !errors.As(err, &te) {
		t.Fatalf("expected *TransportError, got %v", err)
	}
	if te.HTTPStatus != http.StatusUnprocessableEntity || string(te.Body) != `{"error":{"message":"invalid"}}` {
		t.Fatalf("unexpected transport error: %+v", te)
	}
	if status, ok := transportStatus(err); !ok || status != http.StatusUnprocessableEntity {
		t.Fatalf("transportStatus = %d, %v", status, ok)
	}
}

func TestHTTPTransportHonorsContext(t *testing.T) {
	block := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-block
	}))
	defer srv.Close()
	defer close(block)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	tr := NewHTTPTransport(GatewayConfig{BaseURL: srv.URL}, srv.Client())
	_, err := tr.Request(ctx, GatewayRequest{Endpoint: "x"})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if _, ok := transportStatus(err); ok {
		t.Fatal("transport failure without a response must not carry a status")
	}
}
