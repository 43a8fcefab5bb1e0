// internal/domain/money.go
package domain

import (
	"bytes"
	"errors"
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

// Minor units per major unit for the two-decimal currencies the wallet supports.
const minorUnitExponent = -2

var (
	errAmountMissing  = errors.New("amount is required")
	errAmountNotWhole = errors.New("amount must be a whole number of minor units")
	errAmountPositive = errors.New("amount must be positive")
	errAmountRange    = errors.New("amount is out of range")
	errAmountTooLong  = errors.New("amount has too many digits")
)

// Bounds checked before any arithmetic, so exponent notation such as
// "1e5000000" is rejected without expanding it.
const (
	maxAmountChars    = 32
	maxAmountExponent = 18
)

// ParseMinorUnits parses a JSON amount (number or numeric string) as a positive
// integer count of minor units. Fractions, exponents that leave a fraction,
// non-numeric values and values outside int64 are rejected.
func ParseMinorUnits(raw []byte) (int64, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return 0, errAmountMissing
	}
	s := strings.TrimSpace(strings.Trim(string(raw), `"`))
	if len(s) > maxAmountChars {
		return 0, errAmountTooLong
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, err
	}
	if exp := d.Exponent(); exp > maxAmountExponent || exp < -maxAmountExponent {
		return 0, errAmountTooLong
	}
	if !d.IsInteger() {
		return 0, errAmountNotWhole
	}
	if !d.IsPositive() {
		return 0, errAmountPositive
	}
	if d.GreaterThan(decimal.NewFromInt(math.MaxInt64)) {
		return 0, errAmountRange
	}
	return d.IntPart(), nil
}

// FormatMinorUnits renders minor units as a fixed two-decimal major amount, e.g. 2500 -> "25.00".
func FormatMinorUnits(amount int64) string {
	return decimal.New(amount, minorUnitExponent).StringFixed(2)
}
