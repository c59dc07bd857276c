package goThreeDS

import (
	"context"
	"errors"
	"sync"

	"github.com/MrEthical07/goThreeDS/internal/bootstrap"
	"github.com/MrEthical07/goThreeDS/internal/flows"
	"github.com/MrEthical07/goThreeDS/jwt"
)

const (
	sdkSetupKind    = "init"
	sdkContinueKind = "cca"
)

// challengeSurface changes where the SDK presents the challenge. It never
// changes the verification state machine.
type challengeSurface interface {
	framework() string
	subscribe(m *modernStrategy)
	// release closes whatever the surface opened for att.
	release(att *attempt)
}

type modernStrategy struct {
	host    *Session
	cfg     Config
	sdk     ChallengeSDK
	loader  ScriptLoader
	tokens  *jwt.Manager
	surface challengeSurface
	boot    *bootstrap.Bootstrapper

	mu         sync.Mutex
	sticky     error
	challenged *attempt
	subscribed []string
}

func newModernStrategy(host *Session, cfg Config, sdk ChallengeSDK, loader ScriptLoader, tokens *jwt.Manager, surface challengeSurface) *modernStrategy {
	m := &modernStrategy{
		host:    host,
		cfg:     cfg,
		sdk:     sdk,
		loader:  loader,
		tokens:  tokens,
		surface: surface,
	}
	m.boot = bootstrap.New(bootstrap.Deps{
		LoadScript: func(ctx context.Context) error {
			return scripts.load(ctx, m.loader, m.cfg.sdkScriptURL())
		},
		Configure:  m.configure,
		Timeout:    cfg.SDK.SetupTimeout,
		MapFailure: mapSetupFailure,
		OnSettled:  m.setupSettled,
	})
	return m
}

func (m *modernStrategy) version() StrategyVersion { return VersionModern }

func (m *modernStrategy) name() string {
	if m.surface != nil {
		return m.surface.framework()
	}
	return "modern"
}

func (m *modernStrategy) blockingError() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sticky
}

func (m *modernStrategy) setSticky(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.sticky == nil {
		m.sticky = err
	}
}

func (m *modernStrategy) checkRequest(req *VerificationRequest, hookWaived bool) error {
	if !hookWaived && req.OnLookupComplete == nil {
		return missingOption("an OnLookupComplete hook")
	}
	return nil
}

/*
====================================
SETUP
====================================
*/

func mapSetupFailure(f *bootstrap.Failure) error {
	switch f.Kind {
	case bootstrap.FailureScriptLoad:
		return ErrSDKScriptLoadFailed.with(f.Cause)
	case bootstrap.FailureTimeout:
		return ErrSDKSetupTimedOut
	default:
		return ErrSDKSetupFailed.with(f.Cause)
	}
}

func (m *modernStrategy) configure(ctx context.Context) error {
	opts := SDKOptions{LogLevel: m.cfg.SDK.LogLevel}
	if m.surface != nil {
		opts.Payment.Framework = m.surface.framework()
		opts.Payment.DisplayExitButton = true
	}
	if err := m.sdk.Configure(opts); err != nil {
		return err
	}

	m.on(SDKEventSetupComplete, func(ev SDKEvent) {
		m.boot.Complete(ev.SessionID)
	})
	m.on(SDKEventValidated, m.handleValidated)
	if m.surface != nil {
		m.surface.subscribe(m)
	}

	token, err := m.setupJWT()
	if err != nil {
		return err
	}
	return m.sdk.Setup(ctx, sdkSetupKind, token)
}

func (m *modernStrategy) setupJWT() (string, error) {
	if m.cfg.SDK.SetupJWT != "" {
		return m.cfg.SDK.SetupJWT, nil
	}
	if m.tokens != nil {
		return m.tokens.CreateSetup(m.host.id)
	}
	m.host.logger.Warn("3ds sdk setup without a setup token")
	return "", nil
}

func (m *modernStrategy) setupSettled(sessionID string, err error) {
	ctx := context.Background()
	switch {
	case err == nil:
		m.host.metrics.Inc(MetricSDKSetupSuccess)
		m.host.emit(ctx, EventSDKSetupSucceeded, "", nil, nil)
		m.host.logger.Debug("3ds sdk setup complete", "sdk_session_id", sessionID)
		return
	case errors.Is(err, ErrSDKScriptLoadFailed):
		m.host.metrics.Inc(MetricSDKScriptLoadFailure)
	case errors.Is(err, ErrSDKSetupTimedOut):
		m.host.metrics.Inc(MetricSDKSetupTimeout)
	default:
		m.host.metrics.Inc(MetricSDKSetupFailure)
		m.setSticky(err)
	}
	m.host.emit(ctx, EventSDKSetupFailed, "", err, nil)
	m.host.logger.Error("3ds sdk setup failed", "error", err)
}

func (m *modernStrategy) on(event string, h SDKHandler) {
	m.sdk.On(event, h)
	m.mu.Lock()
	m.subscribed = append(m.subscribed, event)
	m.mu.Unlock()
}

// prepare runs setup, or joins the setup already running. A settled attempt
// stops the wait early.
func (m *modernStrategy) prepare(ctx context.Context, att *attempt) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-att.pending.Done():
			cancel()
		case <-stop:
		}
	}()

	_, err := m.boot.Setup(ctx)
	if _, settledErr, ok := att.pending.Result(); ok && settledErr != nil {
		return settledErr
	}
	if err != nil && (errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)) {
		return contextDone(err)
	}
	return err
}

// pendingChallenge returns the attempt whose challenge was handed to the SDK
// and is still unsettled, or nil. SDK challenge events belong to it alone.
func (m *modernStrategy) pendingChallenge() *attempt {
	m.mu.Lock()
	att := m.challenged
	m.mu.Unlock()
	if att == nil || att.settled() {
		return nil
	}
	return att
}

/*
====================================
LOOKUP
====================================
*/

func (m *modernStrategy) formatLookupData(ctx context.Context, req *VerificationRequest) map[string]any {
	data := baseLookupData(req)
	data["additionalInfo"] = modernAdditionalInfo(req)
	data["clientMetadata"] = map[string]any{
		"requestedThreeDSecureVersion": "2",
		"sdkVersion":                   m.cfg.Legacy.LibraryVersion,
	}
	if req.BIN != "" {
		data["bin"] = req.BIN
	}

	if id, ok := m.fingerprint(ctx); ok {
		data["dfReferenceId"] = id
	}
	if req.BIN != "" {
		if _, err := m.sdk.Trigger(ctx, SDKEventBinProcess, req.BIN); err != nil {
			m.enrichmentFailed(ctx, "bin_process", err)
		}
	}
	return data
}

// fingerprint returns the device fingerprint id when setup has started.
// Failures are discarded.
func (m *modernStrategy) fingerprint(ctx context.Context) (string, bool) {
	if !m.boot.Started() {
		return "", false
	}
	id, err := m.boot.Wait(ctx)
	if err != nil {
		m.enrichmentFailed(ctx, "fingerprint", err)
		return "", false
	}
	return id, id != ""
}

func (m *modernStrategy) enrichmentFailed(ctx context.Context, source string, err error) {
	m.host.metrics.Inc(MetricEnrichmentFailure)
	m.host.emit(ctx, EventEnrichmentFailed, "", err, map[string]string{"source": source})
	m.host.logger.DebugContext(ctx, "3ds lookup enrichment discarded", "source", source, "error", err)
}

func modernAdditionalInfo(req *VerificationRequest) map[string]any {
	in := flows.ModernAdditionalInfo{
		Billing:           addressFields(req.BillingAddress),
		Email:             req.Email,
		MobilePhoneNumber: req.MobilePhoneNumber,
	}
	if ai := req.AdditionalInformation; ai != nil {
		in.Shipping = addressFields(ai.ShippingAddress)
		in.Fields = make(map[string]string, len(ai.Extra)+5)
		for k, v := range ai.Extra {
			in.Fields[k] = v
		}
		for k, v := range map[string]string{
			"shippingGivenName": ai.ShippingGivenName,
			"shippingSurname":   ai.ShippingSurname,
			"shippingPhone":     ai.ShippingPhone,
			"shippingMethod":    ai.ShippingMethod,
			"workPhoneNumber":   ai.WorkPhoneNumber,
		} {
			if v != "" {
				in.Fields[k] = v
			}
		}
	}
	return flows.FlattenModernAdditionalInfo(in)
}

// onLookupComplete hands the lookup to the caller's hook and waits for
// start. Without a hook the attempt proceeds at once.
func (m *modernStrategy) onLookupComplete(ctx context.Context, att *attempt) error {
	hook := att.req.OnLookupComplete
	if hook == nil {
		return nil
	}

	started := make(chan struct{})
	var once sync.Once
	hook(att.lookupResult().clone(), func() {
		once.Do(func() { close(started) })
	})

	select {
	case <-started:
		return nil
	case <-att.pending.Done():
		_, err, _ := att.pending.Result()
		return err
	case <-ctx.Done():
		return contextDone(ctx.Err())
	}
}

/*
====================================
CHALLENGE
====================================
*/

func (m *modernStrategy) presentChallenge(ctx context.Context, att *attempt) error {
	c := att.lookupResult().Challenge
	m.mu.Lock()
	m.challenged = att
	m.mu.Unlock()

	err := m.sdk.Continue(sdkContinueKind,
		ContinuePayload{AcsURL: c.AcsURL, Payload: c.PaReq},
		ContinueOrder{OrderDetails: OrderDetails{TransactionID: c.TransactionID}},
	)
	if err != nil {
		return ErrSDKGeneric.with(err)
	}
	m.host.logger.DebugContext(ctx, "3ds sdk challenge continued", "transaction_id", c.TransactionID)
	return nil
}

func (m *modernStrategy) handleValidated(ev SDKEvent) {
	data := ValidationData{}
	if ev.Validation != nil {
		data = *ev.Validation
	}
	att := m.pendingChallenge()

	if m.cfg.JWT.VerifyResponses && m.tokens != nil && ev.JWT != "" {
		claims, err := m.tokens.ParseValidation(ev.JWT)
		if err != nil {
			m.host.metrics.Inc(MetricJWTExchangeFailure)
			if att != nil {
				m.settle(att, nil, ErrJWTAuthenticationFailed.with(err))
			}
			return
		}
		data.ActionCode = claims.Payload.ActionCode
		data.ErrorNumber = claims.Payload.ErrorNumber
		data.ErrorDescription = claims.Payload.ErrorDescription
		data.Validated = claims.Payload.Validated
	}

	switch flows.ClassifyValidationAction(data.ActionCode) {
	case flows.ValidationActionExchange:
		if att == nil {
			m.host.logger.Debug("3ds validation without a pending challenge ignored", "action", data.ActionCode)
			return
		}
		pm, info, err := m.host.gateway.authenticateFromJWT(att.ctx, att.lookupResult(), ev.JWT)
		if err != nil {
			m.settle(att, nil, err)
			return
		}
		out := formatOutcome(pm, info)
		raw := data
		out.RawVerificationData = &raw
		m.settle(att, out, nil)

	case flows.ValidationActionError:
		err := sdkValidationError(data)
		if att == nil {
			m.host.logger.Warn("3ds sdk error without a pending challenge", "error", err)
			m.setSticky(err)
			return
		}
		m.settle(att, nil, err)

	default:
		m.host.logger.Warn("3ds sdk validation with unknown action ignored", "action", data.ActionCode)
	}
}

func (m *modernStrategy) settle(att *attempt, out *VerificationOutcome, err error) {
	if err != nil {
		att.reject(err)
	} else {
		att.resolve(out)
	}
	m.releaseChallenge(att)
}

func sdkValidationError(data ValidationData) error {
	var base *Error
	switch flows.ClassifySDKError(data.ErrorNumber) {
	case flows.SDKErrorSetupTimeout:
		base = ErrSDKSetupTimedOut
	case flows.SDKErrorResponseTimeout:
		base = ErrSDKResponseTimedOut
	case flows.SDKErrorBadConfig:
		base = ErrSDKBadConfig
	case flows.SDKErrorBadCredential:
		base = ErrSDKBadCredential
	case flows.SDKErrorUserCanceled:
		base = ErrSDKCanceled
	default:
		base = ErrSDKGeneric
	}
	return base.
		withDetail("errorNumber", data.ErrorNumber).
		withDetail("errorDescription", data.ErrorDescription)
}

func (m *modernStrategy) releaseChallenge(att *attempt) {
	m.mu.Lock()
	if m.challenged == att {
		m.challenged = nil
	}
	m.mu.Unlock()
	if m.surface != nil {
		m.surface.release(att)
	}
}

// abortChallenge stops tracking att. A challenge already handed to the SDK
// cannot be interrupted; its late events settle nothing.
func (m *modernStrategy) abortChallenge(att *attempt) {
	m.releaseChallenge(att)
}

// teardown removes this strategy's SDK subscriptions. The script stays
// loaded for later sessions.
func (m *modernStrategy) teardown(context.Context) {
	m.mu.Lock()
	events := m.subscribed
	m.subscribed = nil
	challenged := m.challenged
	m.mu.Unlock()

	for _, event := range events {
		m.sdk.Off(event)
	}
	if challenged != nil {
		m.releaseChallenge(challenged)
	}
}
