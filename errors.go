package goThreeDS

import (
	"errors"
	"fmt"
)

// ErrorType classifies who is expected to act on an [Error].
type ErrorType string

const (
	// ErrorTypeMerchant marks integration mistakes the merchant must fix.
	ErrorTypeMerchant ErrorType = "MERCHANT"
	// ErrorTypeCustomer marks failures caused by cardholder input or action.
	ErrorTypeCustomer ErrorType = "CUSTOMER"
	// ErrorTypeNetwork marks transport and script-loading failures.
	ErrorTypeNetwork ErrorType = "NETWORK"
	// ErrorTypeInternal marks engine faults.
	ErrorTypeInternal ErrorType = "INTERNAL"
	// ErrorTypeUnknown marks failures reported by a remote party without a usable classification.
	ErrorTypeUnknown ErrorType = "UNKNOWN"
)

// Error is the stable {type, code, message} triple returned by every public
// operation. The original failure, when there is one, is kept as Cause and is
// reachable through errors.Unwrap.
//
// errors.Is compares codes, so a wrapped error matches the exported sentinel
// with the same code regardless of message or cause.
type Error struct {
	Type    ErrorType
	Code    string
	Message string
	Details map[string]any
	Cause   error
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return e.Code + ": " + e.Message
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

// Is reports whether target is an *Error with the same code.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) || t == nil || e == nil {
		return false
	}
	return e.Code == t.Code
}

// with returns a copy of e carrying cause.
func (e *Error) with(cause error) *Error {
	out := *e
	out.Cause = cause
	return &out
}

// withMessage returns a copy of e with a replacement message.
func (e *Error) withMessage(format string, args ...any) *Error {
	out := *e
	out.Message = fmt.Sprintf(format, args...)
	return &out
}

// withDetail returns a copy of e with one extra detail entry.
func (e *Error) withDetail(key string, value any) *Error {
	out := *e
	out.Details = make(map[string]any, len(e.Details)+1)
	for k, v := range e.Details {
		out.Details[k] = v
	}
	out.Details[key] = value
	return &out
}

var (
	// ErrAuthenticationInProgress is returned when Verify is called while another verification is active.
	ErrAuthenticationInProgress = &Error{Type: ErrorTypeMerchant, Code: "THREEDS_AUTHENTICATION_IN_PROGRESS", Message: "Cannot call verify while an authentication is in progress."}
	// ErrMissingOption is returned when a required verify option is absent. The message names the option.
	ErrMissingOption = &Error{Type: ErrorTypeMerchant, Code: "THREEDS_MISSING_VERIFY_CARD_OPTION", Message: "Missing required option for verify."}
	// ErrLookupReferenceNotFound is returned when the gateway reports the reference as missing or consumed.
	ErrLookupReferenceNotFound = &Error{Type: ErrorTypeMerchant, Code: "THREEDS_LOOKUP_TOKENIZED_CARD_NOT_FOUND_ERROR", Message: "Either the payment method reference passed to verify does not exist, or it was already consumed."}
	// ErrLookupValidation is returned when the gateway rejects the lookup payload.
	ErrLookupValidation = &Error{Type: ErrorTypeCustomer, Code: "THREEDS_LOOKUP_VALIDATION_ERROR", Message: "The data passed in verify did not pass validation checks. See details for more info."}
	// ErrLookupGeneric is returned for every other lookup failure.
	ErrLookupGeneric = &Error{Type: ErrorTypeUnknown, Code: "THREEDS_LOOKUP_ERROR", Message: "Something went wrong during the 3D Secure lookup."}
	// ErrLookupRateLimited is returned when the lookup limiter rejects a reference.
	ErrLookupRateLimited = &Error{Type: ErrorTypeMerchant, Code: "THREEDS_LOOKUP_RATE_LIMITED", Message: "Too many lookups for this payment method reference."}
	// ErrSDKScriptLoadFailed is returned when the challenge SDK script cannot be loaded.
	ErrSDKScriptLoadFailed = &Error{Type: ErrorTypeNetwork, Code: "THREEDS_CARDINAL_SDK_SCRIPT_LOAD_FAILED", Message: "Cardinal's Songbird.js library could not be loaded."}
	// ErrSDKSetupTimedOut is returned when SDK setup does not complete in time.
	ErrSDKSetupTimedOut = &Error{Type: ErrorTypeUnknown, Code: "THREEDS_CARDINAL_SDK_SETUP_TIMEDOUT", Message: "Cardinal's Songbird.js took too long to setup."}
	// ErrSDKSetupFailed is returned when SDK configuration fails. It becomes the sticky blocking error.
	ErrSDKSetupFailed = &Error{Type: ErrorTypeUnknown, Code: "THREEDS_CARDINAL_SDK_SETUP_FAILED", Message: "Something went wrong setting up Cardinal's Songbird.js library."}
	// ErrSDKResponseTimedOut is returned when the SDK times out waiting on the network.
	ErrSDKResponseTimedOut = &Error{Type: ErrorTypeUnknown, Code: "THREEDS_CARDINAL_SDK_RESPONSE_TIMEDOUT", Message: "The request to Cardinal timed out."}
	// ErrSDKBadConfig is returned when the SDK reports a configuration problem.
	ErrSDKBadConfig = &Error{Type: ErrorTypeMerchant, Code: "THREEDS_CARDINAL_SDK_BAD_CONFIG", Message: "JWT or other required field missing. Please check your setup configuration."}
	// ErrSDKBadCredential is returned when the SDK rejects the setup credential.
	ErrSDKBadCredential = &Error{Type: ErrorTypeMerchant, Code: "THREEDS_CARDINAL_SDK_BAD_JWT", Message: "Cardinal JWT missing or malformed. Please check your setup configuration."}
	// ErrSDKCanceled is returned when the cardholder cancels the challenge.
	ErrSDKCanceled = &Error{Type: ErrorTypeCustomer, Code: "THREEDS_CARDINAL_SDK_CANCELED", Message: "Canceled by user."}
	// ErrSDKGeneric is returned for SDK error numbers outside the known table.
	ErrSDKGeneric = &Error{Type: ErrorTypeUnknown, Code: "THREEDS_CARDINAL_SDK_ERROR", Message: "A general error has occurred with Cardinal. See description for more information."}
	// ErrJWTAuthenticationFailed is returned when exchanging the signed validation token fails.
	ErrJWTAuthenticationFailed = &Error{Type: ErrorTypeUnknown, Code: "THREEDS_JWT_AUTHENTICATION_FAILED", Message: "Something went wrong authenticating the JWT from Cardinal."}
	// ErrVerifyCanceledByMerchant rejects a pending challenge when CancelVerify is called.
	ErrVerifyCanceledByMerchant = &Error{Type: ErrorTypeMerchant, Code: "THREEDS_VERIFY_CARD_CANCELED_BY_MERCHANT", Message: "3D Secure verification was canceled by the merchant."}
	// ErrVerifyContextDone fails a verification whose context ended before it settled.
	// The context error is kept as the cause.
	ErrVerifyContextDone = &Error{Type: ErrorTypeMerchant, Code: "THREEDS_VERIFY_CONTEXT_DONE", Message: "3D Secure verification stopped because its context ended."}
	// ErrNoVerificationPayload is returned by CancelVerify when no lookup has completed.
	ErrNoVerificationPayload = &Error{Type: ErrorTypeMerchant, Code: "THREEDS_NO_VERIFICATION_PAYLOAD", Message: "No verification payload available."}
	// ErrInlineIframeDetailsIncorrect is returned when the SDK hands over an unusable inline surface.
	ErrInlineIframeDetailsIncorrect = &Error{Type: ErrorTypeUnknown, Code: "THREEDS_INLINE_IFRAME_DETAILS_INCORRECT", Message: "Something went wrong when attempting to add the authentication iframe."}
	// ErrHandoffNotFound is returned when a server lookup handoff is missing, expired or already used.
	ErrHandoffNotFound = &Error{Type: ErrorTypeMerchant, Code: "THREEDS_HANDOFF_NOT_FOUND", Message: "Lookup handoff not found or already consumed."}
	// ErrHandoffStorage is returned when the handoff store cannot be reached.
	ErrHandoffStorage = &Error{Type: ErrorTypeNetwork, Code: "THREEDS_HANDOFF_STORAGE_ERROR", Message: "Lookup handoff storage is unavailable."}
	// ErrUnknownAuthResponse is returned when a challenge completes unsuccessfully with no liability shift fallback.
	ErrUnknownAuthResponse = &Error{Type: ErrorTypeUnknown, Code: "UNKNOWN_AUTH_RESPONSE", Message: "Unknown authentication response."}
	// ErrCalledAfterTeardown is returned by every method once Teardown has run.
	ErrCalledAfterTeardown = &Error{Type: ErrorTypeMerchant, Code: "METHOD_CALLED_AFTER_TEARDOWN", Message: "Method cannot be called after teardown."}
	// ErrInvalidConfig is returned by Build and Config.Validate.
	ErrInvalidConfig = &Error{Type: ErrorTypeMerchant, Code: "THREEDS_INVALID_CONFIG", Message: "Invalid 3D Secure configuration."}
)

func missingOption(what string) *Error {
	return ErrMissingOption.withMessage("verify options must include %s.", what)
}

func calledAfterTeardown(method string) *Error {
	return ErrCalledAfterTeardown.withMessage("%s cannot be called after teardown.", method)
}

// contextDone wraps a bare context error. Errors already in the taxonomy
// pass through.
func contextDone(err error) error {
	var e *Error
	if errors.As(err, &e) {
		return err
	}
	return ErrVerifyContextDone.with(err)
}

func invalidConfig(format string, args ...any) *Error {
	return ErrInvalidConfig.withMessage(format, args...)
}
