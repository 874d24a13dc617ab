// Package core provides the expense record model and money handling.
//
// Amounts are always integer cents. User input in major units is converted
// once, at the edge, by ParseAmount; every sum afterwards stays in cents.
package core

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// ParseAmount converts a user-entered decimal amount to cents.
//
// Both dot (12.34) and comma (12,34) separators are accepted. The value must
// be a positive finite number. Cents are obtained by multiplying by 100 and
// rounding to the nearest integer, halves away from zero; the result is never
// truncated.
//
// Examples:
//
//	ParseAmount("25")     -> 2500
//	ParseAmount("12,34")  -> 1234
//	ParseAmount("19.999") -> 2000
func ParseAmount(s string) (Money, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Money{}, ErrInvalidAmount
	}
	s = strings.ReplaceAll(s, ",", ".")
	if !isPlainDecimal(s) {
		return Money{}, ErrInvalidAmount
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) || f <= 0 {
		return Money{}, ErrInvalidAmount
	}
	// Prevent overflow when converting to int64 cents
	if f*100 > math.MaxInt64/2 {
		return Money{}, ErrInvalidAmount
	}
	return Money{Cents: int64(math.Round(f * 100))}, nil
}

// isPlainDecimal reports whether s is digits with at most one dot, so signs,
// exponents, hex floats and digit separators never reach ParseFloat.
func isPlainDecimal(s string) bool {
	intPart, fracPart, _ := strings.Cut(s, ".")
	if intPart == "" && fracPart == "" {
		return false
	}
	for _, part := range []string{intPart, fracPart} {
		for _, r := range part {
			if r < '0' || r > '9' {
				return false
			}
		}
	}
	return true
}

// Major formats the amount in major units with exactly two decimals, e.g. "25.00".
func (m Money) Major() string {
	cents := m.Cents
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	return sign + strconv.FormatInt(cents/100, 10) + "." + pad2(cents%100)
}

// String formats the amount for display, e.g. "$25.00".
func (m Money) String() string {
	if m.Cents < 0 {
		return "-$" + Money{Cents: -m.Cents}.Major()
	}
	return "$" + m.Major()
}

// Float returns the value in major units. Use only for rendering; sums must
// be done on Cents.
func (m Money) Float() float64 {
	return float64(m.Cents) / 100.0
}

// MarshalJSON encodes money as its integer cents.
func (m Money) MarshalJSON() ([]byte, error) {
	return json.Marshal(m.Cents)
}

// UnmarshalJSON decodes integer cents.
func (m *Money) UnmarshalJSON(b []byte) error {
	return json.Unmarshal(b, &m.Cents)
}

func pad2(n int64) string {
	if n < 10 {
		return "0" + strconv.FormatInt(n, 10)
	}
	return strconv.FormatInt(n, 10)
}
