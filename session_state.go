package goThreeDS

// SessionState is the lifecycle position of a Session.
type SessionState int

const (
	// StateIdle accepts Verify.
	StateIdle SessionState = iota
	// StateLookingUp covers SDK setup, the gateway lookup and the
	// lookup-complete hook.
	StateLookingUp
	// StateAwaitingChallenge waits on the bank frame or the SDK.
	StateAwaitingChallenge
	// StateComplete, StateCancelled and StateFailed are terminal for one
	// attempt and accept a new Verify like StateIdle.
	StateComplete
	StateCancelled
	StateFailed
)

func (s SessionState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateLookingUp:
		return "looking_up"
	case StateAwaitingChallenge:
		return "awaiting_challenge"
	case StateComplete:
		return "complete"
	case StateCancelled:
		return "cancelled"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Active reports whether a verification is in flight.
func (s SessionState) Active() bool {
	return s == StateLookingUp || s == StateAwaitingChallenge
}
