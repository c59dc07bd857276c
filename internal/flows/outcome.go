package flows

// AuthDecision is what a completed legacy challenge resolves to.
type AuthDecision int

const (
	// AuthDecisionAuthenticated resolves with the payment method from the
	// authentication response.
	AuthDecisionAuthenticated AuthDecision = iota
	// AuthDecisionFallback resolves with the pre-challenge payment method and
	// the response's liability info.
	AuthDecisionFallback
	// AuthDecisionReject rejects with the remote error message.
	AuthDecisionReject
)

// DecideAuthResponse picks the resolution of a legacy authentication
// response. fallbackAllowed disables the liability-shift-possible path when
// false.
func DecideAuthResponse(success, liabilityShiftPossible, fallbackAllowed bool) AuthDecision {
	switch {
	case success:
		return AuthDecisionAuthenticated
	case liabilityShiftPossible && fallbackAllowed:
		return AuthDecisionFallback
	default:
		return AuthDecisionReject
	}
}
