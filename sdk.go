package goThreeDS

import (
	"context"
	"encoding/json"
)

// Events raised by the challenge SDK.
const (
	SDKEventSetupComplete = "payments.setupComplete"
	SDKEventValidated     = "payments.validated"
	SDKEventInlineSetup   = "ui.inline.setup"
	SDKEventRender        = "ui.render"
	SDKEventClose         = "ui.close"
)

// SDKEventBinProcess is the Trigger event that runs the SDK's bin risk lookup.
const SDKEventBinProcess = "bin.process"

// Script URLs of the challenge SDK per gateway environment.
const (
	SandboxSDKScriptURL    = "https://songbirdstag.cardinalcommerce.com/edge/v1/songbird.js"
	ProductionSDKScriptURL = "https://songbird.cardinalcommerce.com/edge/v1/songbird.js"
)

// SDKPaymentOptions configures how the SDK presents the challenge.
type SDKPaymentOptions struct {
	Framework         string `json:"framework,omitempty"`
	DisplayLoading    bool   `json:"displayLoading"`
	DisplayExitButton bool   `json:"displayExitButton"`
}

// SDKOptions is passed to ChallengeSDK.Configure.
type SDKOptions struct {
	Payment  SDKPaymentOptions `json:"payment"`
	LogLevel string            `json:"logging,omitempty"`
}

// ValidationData is the decision the SDK reports after a challenge or on an
// asynchronous error.
type ValidationData struct {
	ActionCode       string         `json:"ActionCode"`
	ErrorNumber      int            `json:"ErrorNumber"`
	ErrorDescription string         `json:"ErrorDescription,omitempty"`
	Validated        bool           `json:"Validated"`
	Payment          map[string]any `json:"Payment,omitempty"`
}

// InlineSetup is the surface the SDK hands over when the challenge is
// presented inline.
type InlineSetup struct {
	// Markup is the challenge document fragment.
	Markup string
	// Container identifies where Markup is placed.
	Container   string
	PaymentType string
	// Mode is "suppress" for a fingerprinting frame and "static" for a
	// challenge the cardholder interacts with.
	Mode string
}

// SDKEvent is the argument of an SDK event handler. Fields are set per event.
type SDKEvent struct {
	Name string
	// SessionID is the fingerprint id carried by setup-complete.
	SessionID  string
	Validation *ValidationData
	// JWT is the signed response token carried by validated.
	JWT    string
	Inline *InlineSetup
}

// SDKHandler handles one SDK event. It may be called on any goroutine.
type SDKHandler func(SDKEvent)

// ContinuePayload is the challenge data handed to ChallengeSDK.Continue.
type ContinuePayload struct {
	AcsURL  string `json:"AcsUrl"`
	Payload string `json:"Payload"`
}

// OrderDetails identifies the transaction a challenge belongs to.
type OrderDetails struct {
	TransactionID string `json:"TransactionId"`
}

// ContinueOrder is the order context handed to ChallengeSDK.Continue.
type ContinueOrder struct {
	OrderDetails OrderDetails `json:"OrderDetails"`
}

// ChallengeSDK is the external challenge SDK. The handle is shared by every
// strategy in the process; a strategy only owns its event subscriptions.
type ChallengeSDK interface {
	Configure(opts SDKOptions) error
	Setup(ctx context.Context, kind, jwt string) error
	On(event string, h SDKHandler)
	Off(event string)
	Continue(kind string, payload ContinuePayload, order ContinueOrder) error
	Trigger(ctx context.Context, event string, arg any) (json.RawMessage, error)
}

// ScriptLoader loads the SDK script from src.
type ScriptLoader interface {
	LoadScript(ctx context.Context, src string) error
}

// ScriptLoaderFunc adapts a function to ScriptLoader.
type ScriptLoaderFunc func(ctx context.Context, src string) error

// LoadScript calls f.
func (f ScriptLoaderFunc) LoadScript(ctx context.Context, src string) error {
	return f(ctx, src)
}
