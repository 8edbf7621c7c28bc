// Package money converts between user-facing amount strings and the
// integer cents stored on transactions.
package money

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// ParseCents reads an amount typed by a user. A comma marks the
// Brazilian layout ("1.234,56"), otherwise a dot is the decimal
// separator ("1234.56"). A currency symbol and spaces are ignored.
// Negative amounts, sub-cent precision and values that overflow int64
// cents are rejected.
func ParseCents(s string) (int64, error) {
	raw := strings.TrimSpace(s)
	raw = strings.TrimPrefix(raw, "R$")
	raw = strings.ReplaceAll(raw, " ", "")
	raw = strings.ReplaceAll(raw, "\u00a0", "")
	if raw == "" {
		return 0, fmt.Errorf("empty amount")
	}
	if strings.Contains(raw, ",") {
		raw = strings.ReplaceAll(raw, ".", "")
		raw = strings.Replace(raw, ",", ".", 1)
	}

	d, err := decimal.NewFromString(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid amount %q", s)
	}
	if d.IsNegative() {
		return 0, fmt.Errorf("amount must not be negative")
	}
	cents := d.Mul(hundred)
	if !cents.Equal(cents.Truncate(0)) {
		return 0, fmt.Errorf("amount %q has more than two decimal places", s)
	}
	if !cents.BigInt().IsInt64() {
		return 0, fmt.Errorf("amount %q is too large", s)
	}
	return cents.IntPart(), nil
}

// FormatCents renders cents as "R$ 1.234,56" for BRL and as
// "<CUR> 1,234.56" for anything else.
func FormatCents(cents int64, currency string) string {
	d := decimal.New(cents, -2)
	sign := ""
	if d.IsNegative() {
		sign = "-"
		d = d.Neg()
	}
	intPart := d.Truncate(0).String()
	frac := d.Sub(d.Truncate(0)).Mul(hundred).IntPart()

	thousands, dec := ",", "."
	symbol := currency
	if currency == "" || currency == "BRL" {
		thousands, dec, symbol = ".", ",", "R$"
	}
	return fmt.Sprintf("%s%s %s%s%02d", sign, symbol, group(intPart, thousands), dec, frac)
}

func group(digits, sep string) string {
	if len(digits) <= 3 {
		return digits
	}
	var b strings.Builder
	lead := len(digits) % 3
	if lead > 0 {
		b.WriteString(digits[:lead])
	}
	for i := lead; i < len(digits); i += 3 {
		if b.Len() > 0 {
			b.WriteString(sep)
		}
		b.WriteString(digits[i : i+3])
	}
	return b.String()
}

// Amount is a cents value that decodes from either a JSON integer
// (cents) or a masked string ("1.234,56").
type Amount int64

func (a *Amount) UnmarshalJSON(b []byte) error {
	var n int64
	if err := json.Unmarshal(b, &n); err == nil {
		if n < 0 {
			return fmt.Errorf("amount must not be negative")
		}
		*a = Amount(n)
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("amount must be integer cents or a decimal string")
	}
	cents, err := ParseCents(s)
	if err != nil {
		return err
	}
	*a = Amount(cents)
	return nil
}
