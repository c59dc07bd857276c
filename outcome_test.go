package goThreeDS

import "testing"

func TestFormatOutcomeUsesStepInfo(t *testing.T) {
	pm := &PaymentMethod{
		ReferenceID: "upgraded",
		Type:        "CreditCard",
		Description: "ending+in+11",
		Details:     CardDetails{CardType: "Visa", LastTwo: "11"},
		BinData:     &BinData{Prepaid: "No"},
		ThreeDSecureInfo: &ThreeDSecureInfo{
			LiabilityShifted:       false,
			LiabilityShiftPossible: false,
			Status:                 "lookup_complete",
		},
	}
	step := &ThreeDSecureInfo{LiabilityShifted: true, LiabilityShiftPossible: true}

	out := formatOutcome(pm, step)

	if out.ReferenceID != "upgraded" || out.Description != "ending in 11" {
		t.Fatalf("unexpected outcome: %+v", out)
	}
	if !out.LiabilityShifted || !out.LiabilityShiftPossible {
		t.Fatal("expected liability from the step info")
	}
	if out.ThreeDSecureInfo == nil || out.ThreeDSecureInfo.Status != "lookup_complete" {
		t.Fatal("expected payment method record to be preserved")
	}

	pm.BinData.Prepaid = "Yes"
	pm.ThreeDSecureInfo.Status = "changed"
	if out.BinData.Prepaid != "No" || out.ThreeDSecureInfo.Status != "lookup_complete" {
		t.Fatal("outcome shares memory with the payment method")
	}
}

func TestFormatOutcomeFallsBackToPaymentMethodInfo(t *testing.T) {
	pm := &PaymentMethod{
		ReferenceID:      "ref",
		ThreeDSecureInfo: &ThreeDSecureInfo{LiabilityShifted: true, LiabilityShiftPossible: true},
	}
	out := formatOutcome(pm, nil)
	if !out.LiabilityShifted || !out.LiabilityShiftPossible {
		t.Fatalf("expected fallback to payment method info, got %+v", out)
	}

	if out := formatOutcome(nil, nil); out == nil || out.ReferenceID != "" {
		t.Fatalf("expected empty outcome for nil payment method, got %+v", out)
	}
}

func TestLookupResultNormalizeDropsEmptyChallenge(t *testing.T) {
	r, err := decodeLookupResult([]byte(`{"paymentMethod":{"nonce":"n1"},"lookup":{"acsUrl":""},"requiresUserAuthentication":true}`))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if r.Challenge != nil || r.RequiresUserAuthentication {
		t.Fatalf("expected no challenge, got %+v", r)
	}

	r, err = decodeLookupResult([]byte(`{"paymentMethod":{"nonce":"n1"},"lookup":{"acsUrl":"https://acs.example"}}`))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if r.Challenge == nil || !r.RequiresUserAuthentication {
		t.Fatalf("expected challenge, got %+v", r)
	}

	if _, err := decodeLookupResult([]byte(`{"lookup":{}}`)); err == nil {
		t.Fatal("expected missing payment method to be rejected")
	}
}

func TestVerificationRequestCloneIsDeep(t *testing.T) {
	req := VerificationRequest{
		ReferenceID:    "ref",
		BillingAddress: &Address{Locality: "Chicago"},
		AdditionalInformation: &AdditionalInformation{
			ShippingAddress: &Address{Locality: "Austin"},
			Extra:           map[string]string{"k": "v"},
		},
	}
	c := req.clone()
	c.BillingAddress.Locality = "x"
	c.AdditionalInformation.ShippingAddress.Locality = "y"
	c.AdditionalInformation.Extra["k"] = "z"

	if req.BillingAddress.Locality != "Chicago" || req.AdditionalInformation.ShippingAddress.Locality != "Austin" || req.AdditionalInformation.Extra["k"] != "v" {
		t.Fatal("clone shares memory with the request")
	}
}
