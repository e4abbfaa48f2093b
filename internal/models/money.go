package models

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// MinAmount is the smallest positive transaction amount.
var MinAmount = decimal.New(1, -2)

var hundred = decimal.NewFromInt(100)

// ValidAmount reports whether d is a positive amount with at most two decimal places.
func ValidAmount(d decimal.Decimal) bool {
	return d.GreaterThanOrEqual(MinAmount) && d.Equal(d.Truncate(2))
}

// Cents converts an amount with at most two decimal places to integer cents.
func Cents(d decimal.Decimal) int64 {
	return d.Shift(2).IntPart()
}

// FromCents converts integer cents back to an amount.
func FromCents(c int64) decimal.Decimal {
	return decimal.New(c, -2)
}

// Percent returns part / whole × 100 rounded to two places, or zero when whole is zero.
func Percent(part, whole decimal.Decimal) decimal.Decimal {
	if whole.IsZero() {
		return decimal.Zero
	}
	return part.Mul(hundred).DivRound(whole, 2)
}

// ParseAmount accepts plain ("1234.56") and Brazilian ("1.234,56", "R$ 1.234,56") notation.
// The last separator followed by one or two digits is the decimal mark.
func ParseAmount(s string) (decimal.Decimal, error) {
	raw := strings.TrimSpace(s)
	raw = strings.TrimPrefix(raw, "R$")
	raw = strings.ReplaceAll(strings.TrimSpace(raw), " ", "")
	if raw == "" {
		return decimal.Zero, fmt.Errorf("empty amount")
	}

	lastComma := strings.LastIndex(raw, ",")
	lastDot := strings.LastIndex(raw, ".")
	sep := max(lastComma, lastDot)

	normalized := raw
	if sep >= 0 && len(raw)-sep-1 <= 2 && len(raw)-sep-1 > 0 {
		intPart := strings.NewReplacer(".", "", ",", "").Replace(raw[:sep])
		normalized = intPart + "." + raw[sep+1:]
	} else {
		normalized = strings.NewReplacer(".", "", ",", "").Replace(raw)
	}

	d, err := decimal.NewFromString(normalized)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid amount %q", s)
	}
	return d, nil
}
