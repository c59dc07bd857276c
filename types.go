package goThreeDS

import "maps"

// Address is a postal address supplied with a verification request.
type Address struct {
	GivenName         string `json:"givenName,omitempty" yaml:"givenName"`
	Surname           string `json:"surname,omitempty" yaml:"surname"`
	PhoneNumber       string `json:"phoneNumber,omitempty" yaml:"phoneNumber"`
	StreetAddress     string `json:"streetAddress,omitempty" yaml:"streetAddress"`
	ExtendedAddress   string `json:"extendedAddress,omitempty" yaml:"extendedAddress"`
	Line3             string `json:"line3,omitempty" yaml:"line3"`
	Locality          string `json:"locality,omitempty" yaml:"locality"`
	Region            string `json:"region,omitempty" yaml:"region"`
	PostalCode        string `json:"postalCode,omitempty" yaml:"postalCode"`
	CountryCodeAlpha2 string `json:"countryCodeAlpha2,omitempty" yaml:"countryCodeAlpha2"`
}

// AdditionalInformation carries optional risk data forwarded with the lookup.
// Extra entries are copied verbatim into the lookup's additional information.
type AdditionalInformation struct {
	ShippingAddress   *Address          `json:"shippingAddress,omitempty"`
	ShippingGivenName string            `json:"shippingGivenName,omitempty"`
	ShippingSurname   string            `json:"shippingSurname,omitempty"`
	ShippingPhone     string            `json:"shippingPhone,omitempty"`
	ShippingMethod    string            `json:"shippingMethod,omitempty"`
	WorkPhoneNumber   string            `json:"workPhoneNumber,omitempty"`
	Extra             map[string]string `json:"extra,omitempty"`
}

// ChallengeFrame describes the bank frame a legacy integration must mount.
type ChallengeFrame struct {
	Name      string
	Src       string
	ChannelID string
}

// LookupCompleteFunc is invoked by the modern strategy after a successful
// lookup. The challenge, if any, does not start until start is called; the
// caller may instead call Session.CancelVerify.
type LookupCompleteFunc func(result *LookupResult, start func())

// VerificationRequest is the caller's input to Session.Verify. The engine
// never mutates it.
type VerificationRequest struct {
	ReferenceID               string
	Amount                    Amount
	BIN                       string
	Email                     string
	MobilePhoneNumber         string
	AccountType               string
	BillingAddress            *Address
	AdditionalInformation     *AdditionalInformation
	ChallengeRequested        bool
	ExemptionRequested        bool
	DataOnlyRequested         bool
	CardAddChallengeRequested bool

	// OnLookupComplete is required by the modern strategy.
	OnLookupComplete LookupCompleteFunc
	// Mount and Unmount are required by the legacy strategy.
	Mount   func(frame *ChallengeFrame)
	Unmount func()
}

func (r VerificationRequest) clone() VerificationRequest {
	out := r
	if r.BillingAddress != nil {
		addr := *r.BillingAddress
		out.BillingAddress = &addr
	}
	if r.AdditionalInformation != nil {
		info := *r.AdditionalInformation
		if info.ShippingAddress != nil {
			addr := *info.ShippingAddress
			info.ShippingAddress = &addr
		}
		info.Extra = maps.Clone(info.Extra)
		out.AdditionalInformation = &info
	}
	return out
}

// CardDetails carries brand and last digits of the card behind a reference.
type CardDetails struct {
	CardType string `json:"cardType,omitempty"`
	LastFour string `json:"lastFour,omitempty"`
	LastTwo  string `json:"lastTwo,omitempty"`
	BIN      string `json:"bin,omitempty"`
}

// BinData is the issuer risk metadata the gateway attaches to a card.
type BinData struct {
	Prepaid           string `json:"prepaid,omitempty"`
	Healthcare        string `json:"healthcare,omitempty"`
	Debit             string `json:"debit,omitempty"`
	DurbinRegulated   string `json:"durbinRegulated,omitempty"`
	Commercial        string `json:"commercial,omitempty"`
	Payroll           string `json:"payroll,omitempty"`
	IssuingBank       string `json:"issuingBank,omitempty"`
	CountryOfIssuance string `json:"countryOfIssuance,omitempty"`
	ProductID         string `json:"productId,omitempty"`
}

// ThreeDSecureInfo is the liability-shift record of a lookup or challenge.
type ThreeDSecureInfo struct {
	LiabilityShifted       bool   `json:"liabilityShifted"`
	LiabilityShiftPossible bool   `json:"liabilityShiftPossible"`
	Status                 string `json:"status,omitempty"`
	Enrolled               string `json:"enrolled,omitempty"`
	ThreeDSecureVersion    string `json:"threeDSecureVersion,omitempty"`
	ECIFlag                string `json:"eciFlag,omitempty"`
	CAVV                   string `json:"cavv,omitempty"`
	DSTransactionID        string `json:"dsTransactionId,omitempty"`
	AcsTransactionID       string `json:"acsTransactionId,omitempty"`
}

// PaymentMethod is an authenticated-reference candidate returned by the gateway.
type PaymentMethod struct {
	ReferenceID      string            `json:"nonce"`
	Type             string            `json:"type,omitempty"`
	Description      string            `json:"description,omitempty"`
	Details          CardDetails       `json:"details"`
	BinData          *BinData          `json:"binData,omitempty"`
	ThreeDSecureInfo *ThreeDSecureInfo `json:"threeDSecureInfo,omitempty"`
}

// ChallengeDescriptor is the network join data needed to run the interactive
// step. Its presence on a LookupResult is the only signal that a challenge is
// required.
type ChallengeDescriptor struct {
	AcsURL              string `json:"acsUrl"`
	PaReq               string `json:"pareq,omitempty"`
	MD                  string `json:"md,omitempty"`
	TermURL             string `json:"termUrl,omitempty"`
	TransactionID       string `json:"transactionId,omitempty"`
	ThreeDSecureVersion string `json:"threeDSecureVersion,omitempty"`
}

// LookupResult is the gateway's answer to a lookup.
type LookupResult struct {
	PaymentMethod              *PaymentMethod       `json:"paymentMethod"`
	Challenge                  *ChallengeDescriptor `json:"lookup,omitempty"`
	ThreeDSecureInfo           *ThreeDSecureInfo    `json:"threeDSecureInfo,omitempty"`
	RequiresUserAuthentication bool                 `json:"requiresUserAuthentication"`
}

// normalize drops an empty challenge descriptor so that Challenge != nil
// holds exactly when a challenge must be presented.
func (r *LookupResult) normalize() {
	if r == nil {
		return
	}
	if r.Challenge != nil && r.Challenge.AcsURL == "" {
		r.Challenge = nil
	}
	r.RequiresUserAuthentication = r.Challenge != nil
}

func (r *LookupResult) clone() *LookupResult {
	if r == nil {
		return nil
	}
	out := *r
	if r.PaymentMethod != nil {
		pm := *r.PaymentMethod
		if pm.BinData != nil {
			bin := *pm.BinData
			pm.BinData = &bin
		}
		if pm.ThreeDSecureInfo != nil {
			info := *pm.ThreeDSecureInfo
			pm.ThreeDSecureInfo = &info
		}
		out.PaymentMethod = &pm
	}
	if r.Challenge != nil {
		c := *r.Challenge
		out.Challenge = &c
	}
	if r.ThreeDSecureInfo != nil {
		info := *r.ThreeDSecureInfo
		out.ThreeDSecureInfo = &info
	}
	return &out
}

// VerificationOutcome is the public result of a verification.
type VerificationOutcome struct {
	ReferenceID            string            `json:"nonce"`
	Type                   string            `json:"type,omitempty"`
	Details                CardDetails       `json:"details"`
	Description            string            `json:"description,omitempty"`
	BinData                *BinData          `json:"binData,omitempty"`
	LiabilityShifted       bool              `json:"liabilityShifted"`
	LiabilityShiftPossible bool              `json:"liabilityShiftPossible"`
	ThreeDSecureInfo       *ThreeDSecureInfo `json:"threeDSecureInfo,omitempty"`
	RawVerificationData    *ValidationData   `json:"rawCardinalSDKVerificationData,omitempty"`
}
