package goThreeDS

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"

	"github.com/shopspring/decimal"
)

var errAmountNotNumeric = errors.New("amount is not numeric")

// Amount is a transaction amount in its textual form. It accepts anything a
// decimal number can be parsed from: "10", "10.50", "1e2". Blank and
// non-numeric values are rejected by Verify.
//
// When decoded from JSON, numbers and numeric strings are accepted; null,
// booleans, arrays and objects are rejected.
type Amount string

// AmountFromDecimal formats d as an Amount.
func AmountFromDecimal(d decimal.Decimal) Amount {
	return Amount(d.String())
}

// Decimal parses the amount.
func (a Amount) Decimal() (decimal.Decimal, error) {
	s := strings.TrimSpace(string(a))
	if s == "" {
		return decimal.Decimal{}, errAmountNotNumeric
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Decimal{}, errAmountNotNumeric
	}
	return d, nil
}

// Valid reports whether the amount parses as a number.
func (a Amount) Valid() bool {
	_, err := a.Decimal()
	return err == nil
}

// normalized returns the canonical decimal text sent to the gateway.
func (a Amount) normalized() string {
	d, err := a.Decimal()
	if err != nil {
		return string(a)
	}
	return d.String()
}

func (a *Amount) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return errAmountNotNumeric
	}
	switch data[0] {
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*a = Amount(s)
		return nil
	case '-', '0', '1', '2', '3', '4', '5', '6', '7', '8', '9':
		var n json.Number
		if err := json.Unmarshal(data, &n); err != nil {
			return err
		}
		*a = Amount(n.String())
		return nil
	default:
		return errAmountNotNumeric
	}
}
