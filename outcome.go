package goThreeDS

import "github.com/MrEthical07/goThreeDS/internal/flows"

// formatOutcome maps a payment method and the liability info of the step
// that produced it onto the public outcome. info falls back to the payment
// method's own record when nil. The payment method's record is preserved as
// ThreeDSecureInfo for callers that read it directly.
func formatOutcome(pm *PaymentMethod, info *ThreeDSecureInfo) *VerificationOutcome {
	if pm == nil {
		return &VerificationOutcome{}
	}
	if info == nil {
		info = pm.ThreeDSecureInfo
	}

	out := &VerificationOutcome{
		ReferenceID: pm.ReferenceID,
		Type:        pm.Type,
		Details:     pm.Details,
		Description: flows.CleanDescription(pm.Description),
	}
	if pm.BinData != nil {
		bin := *pm.BinData
		out.BinData = &bin
	}
	if info != nil {
		out.LiabilityShifted = info.LiabilityShifted
		out.LiabilityShiftPossible = info.LiabilityShiftPossible
	}
	if pm.ThreeDSecureInfo != nil {
		preserved := *pm.ThreeDSecureInfo
		out.ThreeDSecureInfo = &preserved
	}
	return out
}
