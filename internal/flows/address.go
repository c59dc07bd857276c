package flows

// AddressFields is the flat view of a postal address used by the remappers.
type AddressFields struct {
	GivenName       string
	Surname         string
	PhoneNumber     string
	StreetAddress   string
	ExtendedAddress string
	Line3           string
	Locality        string
	Region          string
	PostalCode      string
	CountryCode     string
}

// LegacyBillingAddress remaps a billing address onto the field names the v1
// network expects. Empty fields are omitted.
func LegacyBillingAddress(a AddressFields) map[string]any {
	out := make(map[string]any, 6)
	putNonEmpty(out, "line1", a.StreetAddress)
	putNonEmpty(out, "line2", a.ExtendedAddress)
	putNonEmpty(out, "city", a.Locality)
	putNonEmpty(out, "state", a.Region)
	putNonEmpty(out, "postalCode", a.PostalCode)
	putNonEmpty(out, "countryCode", a.CountryCode)
	return out
}

// ModernAdditionalInfo holds the inputs that are flattened into the v2
// additional information map.
type ModernAdditionalInfo struct {
	Billing           *AddressFields
	Shipping          *AddressFields
	Email             string
	MobilePhoneNumber string
	Fields            map[string]string
}

// FlattenModernAdditionalInfo builds the v2 additional information map.
// Billing and shipping addresses become prefixed Line1..CountryCode keys; the
// billing contact becomes billingPhoneNumber, billingGivenName and
// billingSurname. Extra Fields are written first, so address-derived keys
// override them.
func FlattenModernAdditionalInfo(in ModernAdditionalInfo) map[string]any {
	out := make(map[string]any, len(in.Fields)+20)
	for k, v := range in.Fields {
		putNonEmpty(out, k, v)
	}
	putNonEmpty(out, "email", in.Email)
	putNonEmpty(out, "mobilePhoneNumber", in.MobilePhoneNumber)
	if in.Billing != nil {
		extractAddress(*in.Billing, out, "billing")
		putNonEmpty(out, "billingPhoneNumber", in.Billing.PhoneNumber)
		putNonEmpty(out, "billingGivenName", in.Billing.GivenName)
		putNonEmpty(out, "billingSurname", in.Billing.Surname)
	}
	if in.Shipping != nil {
		extractAddress(*in.Shipping, out, "shipping")
	}
	return out
}

func extractAddress(a AddressFields, out map[string]any, prefix string) {
	putNonEmpty(out, prefix+"Line1", a.StreetAddress)
	putNonEmpty(out, prefix+"Line2", a.ExtendedAddress)
	putNonEmpty(out, prefix+"Line3", a.Line3)
	putNonEmpty(out, prefix+"City", a.Locality)
	putNonEmpty(out, prefix+"State", a.Region)
	putNonEmpty(out, prefix+"PostalCode", a.PostalCode)
	putNonEmpty(out, prefix+"CountryCode", a.CountryCode)
}

func putNonEmpty(m map[string]any, key, value string) {
	if value != "" {
		m[key] = value
	}
}
