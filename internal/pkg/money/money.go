package money

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Scale is the number of fraction digits kept for stored amounts.
const Scale = 2

// MaxAmount is the largest magnitude a NUMERIC(14, 2) column holds.
var MaxAmount = decimal.RequireFromString("999999999999.99")

// InRange reports whether d, rounded to Scale, fits an amount column.
func InRange(d decimal.Decimal) bool {
	return Round(d).Abs().LessThanOrEqual(MaxAmount)
}

// Round rounds to two decimals, half away from zero (half-up for positive amounts).
func Round(d decimal.Decimal) decimal.Decimal {
	return d.Round(Scale)
}

// Parse converts a caller supplied amount into a decimal. It rejects empty
// strings, exponents and anything that is not a plain decimal literal.
func Parse(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, fmt.Errorf("amount is empty")
	}
	if strings.ContainsAny(s, "eE") {
		return decimal.Zero, fmt.Errorf("amount %q must be a plain decimal", s)
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("amount %q is not numeric", s)
	}
	return d, nil
}

// Input is an amount as received from a client. It accepts both JSON numbers
// and JSON strings and keeps the literal text so that parsing (and the error
// for non-numeric values) happens in the validation rules, not in the decoder.
type Input string

func (in *Input) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*in = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*in = Input(s)
		return nil
	}
	// Numbers and any other bare token are kept verbatim.
	*in = Input(data)
	return nil
}

func (in Input) String() string { return string(in) }

// FromDecimal renders a stored decimal back into an Input with two decimals.
func FromDecimal(d decimal.Decimal) Input {
	return Input(d.StringFixed(Scale))
}

// Ptr is a convenience for building optional inputs.
func Ptr(s string) *Input {
	in := Input(s)
	return &in
}
