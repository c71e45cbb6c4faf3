package domain

import (
	"math"

	"github.com/shopspring/decimal"

	dErrors "escrowd/pkg/domain-errors"
)

// AmountDecimals is the stablecoin precision: one unit is 1e-6 of a token.
const AmountDecimals = 6

// UnitsPerToken converts whole tokens to smallest units.
const UnitsPerToken int64 = 1_000_000

// Amount is a stablecoin quantity in smallest units (micro-tokens).
type Amount int64

// ParseAmount parses a decimal token string such as "100" or "12.345678".
//
// Errors: CodeValidation when the value is not a number, has more than six
// decimal places, is not positive, or overflows.
func ParseAmount(s string) (Amount, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, dErrors.New(dErrors.CodeValidation, "amount must be a decimal number")
	}
	return AmountFromDecimal(d)
}

// AmountFromDecimal converts a token-denominated decimal to smallest units.
func AmountFromDecimal(d decimal.Decimal) (Amount, error) {
	units := d.Shift(AmountDecimals)
	if !units.Equal(units.Truncate(0)) {
		return 0, dErrors.New(dErrors.CodeValidation, "amount supports at most 6 decimal places")
	}
	if !units.IsPositive() {
		return 0, dErrors.New(dErrors.CodeValidation, "amount must be greater than zero")
	}
	if units.GreaterThan(decimal.NewFromInt(math.MaxInt64)) {
		return 0, dErrors.New(dErrors.CodeValidation, "amount is too large")
	}
	return Amount(units.IntPart()), nil
}

// Tokens builds an Amount from whole tokens.
func Tokens(n int64) Amount {
	return Amount(n * UnitsPerToken)
}

// Decimal returns the token-denominated value.
func (a Amount) Decimal() decimal.Decimal {
	return decimal.New(int64(a), -AmountDecimals)
}

// String renders the amount with all six decimals.
func (a Amount) String() string {
	return a.Decimal().StringFixed(AmountDecimals)
}

// ExceedsTokens reports whether a is strictly greater than n whole tokens.
func (a Amount) ExceedsTokens(n int64) bool {
	return int64(a) > n*UnitsPerToken
}
