package flows

// PreconditionFailureKind names the first verify precondition that failed.
type PreconditionFailureKind int

const (
	PreconditionOK PreconditionFailureKind = iota
	PreconditionBlockingSetup
	PreconditionInProgress
	PreconditionMissingReference
	PreconditionMissingAmount
	PreconditionStrategy
)

// PreconditionInput is a snapshot of everything verify checks before it
// starts any asynchronous work.
type PreconditionInput struct {
	BlockingErr error
	Active      bool
	LookupDone  bool
	ReferenceID string
	AmountValid bool
	StrategyErr func() error
}

// PreconditionResult carries the failing kind and, for blocking and strategy
// failures, the error to surface as is.
type PreconditionResult struct {
	Failure PreconditionFailureKind
	Err     error
}

// RunPreconditions evaluates verify preconditions in their fixed order. The
// first failure wins and later checks are not evaluated.
func RunPreconditions(in PreconditionInput) PreconditionResult {
	if in.BlockingErr != nil {
		return PreconditionResult{Failure: PreconditionBlockingSetup, Err: in.BlockingErr}
	}
	if in.Active {
		return PreconditionResult{Failure: PreconditionInProgress}
	}
	if !in.LookupDone {
		if in.ReferenceID == "" {
			return PreconditionResult{Failure: PreconditionMissingReference}
		}
		if !in.AmountValid {
			return PreconditionResult{Failure: PreconditionMissingAmount}
		}
	}
	if in.StrategyErr != nil {
		if err := in.StrategyErr(); err != nil {
			return PreconditionResult{Failure: PreconditionStrategy, Err: err}
		}
	}
	return PreconditionResult{Failure: PreconditionOK}
}
