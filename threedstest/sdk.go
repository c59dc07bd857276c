package threedstest

import (
	"context"
	"encoding/json"
	"sync"

	goThreeDS "github.com/MrEthical07/goThreeDS"
)

// SetupCall records one FakeSDK.Setup call.
type SetupCall struct {
	Kind string
	JWT  string
}

// ContinueCall records one FakeSDK.Continue call.
type ContinueCall struct {
	Kind    string
	Payload goThreeDS.ContinuePayload
	Order   goThreeDS.ContinueOrder
}

// FakeSDK is a scripted goThreeDS.ChallengeSDK.
//
// Fields configure behavior and must be set before the SDK is handed to a
// session. Event handlers are called without internal locks held, so they
// may call back into the SDK.
type FakeSDK struct {
	// SessionID, when non-empty, makes Setup report setup-complete with it.
	SessionID    string
	ConfigureErr error
	SetupErr     error
	ContinueErr  error
	TriggerErr   error
	// OnContinue runs after a successful Continue, typically to emit the
	// validated event that ends the challenge.
	OnContinue func(sdk *FakeSDK, call ContinueCall)

	mu        sync.Mutex
	handlers  map[string][]goThreeDS.SDKHandler
	configs   []goThreeDS.SDKOptions
	setups    []SetupCall
	continues []ContinueCall
	triggers  []string
	offs      []string
}

// NewFakeSDK returns an SDK whose setup completes with sessionID.
func NewFakeSDK(sessionID string) *FakeSDK {
	return &FakeSDK{SessionID: sessionID}
}

func (f *FakeSDK) Configure(opts goThreeDS.SDKOptions) error {
	f.mu.Lock()
	f.configs = append(f.configs, opts)
	f.mu.Unlock()
	return f.ConfigureErr
}

func (f *FakeSDK) Setup(_ context.Context, kind, jwt string) error {
	f.mu.Lock()
	f.setups = append(f.setups, SetupCall{Kind: kind, JWT: jwt})
	f.mu.Unlock()
	if f.SetupErr != nil {
		return f.SetupErr
	}
	if f.SessionID != "" {
		f.Emit(goThreeDS.SDKEventSetupComplete, goThreeDS.SDKEvent{SessionID: f.SessionID})
	}
	return nil
}

func (f *FakeSDK) On(event string, h goThreeDS.SDKHandler) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.handlers == nil {
		f.handlers = make(map[string][]goThreeDS.SDKHandler)
	}
	f.handlers[event] = append(f.handlers[event], h)
}

func (f *FakeSDK) Off(event string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.handlers, event)
	f.offs = append(f.offs, event)
}

func (f *FakeSDK) Continue(kind string, payload goThreeDS.ContinuePayload, order goThreeDS.ContinueOrder) error {
	call := ContinueCall{Kind: kind, Payload: payload, Order: order}
	f.mu.Lock()
	f.continues = append(f.continues, call)
	f.mu.Unlock()
	if f.ContinueErr != nil {
		return f.ContinueErr
	}
	if f.OnContinue != nil {
		f.OnContinue(f, call)
	}
	return nil
}

func (f *FakeSDK) Trigger(_ context.Context, event string, _ any) (json.RawMessage, error) {
	f.mu.Lock()
	f.triggers = append(f.triggers, event)
	f.mu.Unlock()
	if f.TriggerErr != nil {
		return nil, f.TriggerErr
	}
	return json.RawMessage(`{}`), nil
}

// Emit delivers ev to every handler subscribed to event and reports how
// many ran.
func (f *FakeSDK) Emit(event string, ev goThreeDS.SDKEvent) int {
	f.mu.Lock()
	handlers := append([]goThreeDS.SDKHandler(nil), f.handlers[event]...)
	f.mu.Unlock()
	ev.Name = event
	for _, h := range handlers {
		h(ev)
	}
	return len(handlers)
}

// Validated emits a validated event with actionCode and the signed token.
func (f *FakeSDK) Validated(actionCode, jwt string) int {
	return f.Emit(goThreeDS.SDKEventValidated, goThreeDS.SDKEvent{
		Validation: &goThreeDS.ValidationData{ActionCode: actionCode, Validated: actionCode != "ERROR"},
		JWT:        jwt,
	})
}

// Fail emits a validated event with the ERROR action and errorNumber.
func (f *FakeSDK) Fail(errorNumber int, description string) int {
	return f.Emit(goThreeDS.SDKEventValidated, goThreeDS.SDKEvent{
		Validation: &goThreeDS.ValidationData{
			ActionCode:       "ERROR",
			ErrorNumber:      errorNumber,
			ErrorDescription: description,
		},
	})
}

// Subscribed reports whether any handler is registered for event.
func (f *FakeSDK) Subscribed(event string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.handlers[event]) > 0
}

func (f *FakeSDK) Configs() []goThreeDS.SDKOptions {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]goThreeDS.SDKOptions(nil), f.configs...)
}

func (f *FakeSDK) Setups() []SetupCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]SetupCall(nil), f.setups...)
}

func (f *FakeSDK) Continues() []ContinueCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]ContinueCall(nil), f.continues...)
}

func (f *FakeSDK) Triggers() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.triggers...)
}

func (f *FakeSDK) Offs() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.offs...)
}
