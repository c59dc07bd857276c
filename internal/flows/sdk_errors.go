package flows

import "strings"

// SDKErrorKind is the classification of an external SDK error number.
type SDKErrorKind int

const (
	SDKErrorGeneric SDKErrorKind = iota
	SDKErrorSetupTimeout
	SDKErrorResponseTimeout
	SDKErrorBadConfig
	SDKErrorBadCredential
	SDKErrorUserCanceled
)

// ClassifySDKError maps the SDK's numeric ERROR sub-code. The table is fixed
// by the SDK vendor.
func ClassifySDKError(number int) SDKErrorKind {
	switch number {
	case 10001, 10002:
		return SDKErrorSetupTimeout
	case 10003, 10007, 10009:
		return SDKErrorResponseTimeout
	case 10005, 10006:
		return SDKErrorBadConfig
	case 10008, 10010:
		return SDKErrorBadCredential
	case 10011:
		return SDKErrorUserCanceled
	default:
		return SDKErrorGeneric
	}
}

// ValidationActionKind is the outcome family of an SDK validation event.
type ValidationActionKind int

const (
	ValidationActionUnknown ValidationActionKind = iota
	// ValidationActionExchange means the signed response token must be
	// exchanged with the gateway for the final reference.
	ValidationActionExchange
	ValidationActionError
)

// ClassifyValidationAction maps an SDK ActionCode.
func ClassifyValidationAction(code string) ValidationActionKind {
	switch strings.ToUpper(strings.TrimSpace(code)) {
	case "SUCCESS", "NOACTION", "FAILURE":
		return ValidationActionExchange
	case "ERROR":
		return ValidationActionError
	default:
		return ValidationActionUnknown
	}
}

// CleanDescription undoes the form-encoding artifact the gateway leaves in
// payment method descriptions.
func CleanDescription(s string) string {
	return strings.ReplaceAll(s, "+", " ")
}
