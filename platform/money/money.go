// Package money holds the decimal conventions shared by every pricing path.
// Amounts are decimal.Decimal values in a single currency; percentages are
// expressed on a 0..100 scale.
package money

import (
	"github.com/shopspring/decimal"
)

// Scale is the number of fractional digits kept for money.
const Scale int32 = 2

var hundred = decimal.NewFromInt(100)

// Zero is the zero amount.
var Zero = decimal.Zero

// Round rounds an amount to cents, half away from zero.
func Round(d decimal.Decimal) decimal.Decimal {
	return d.Round(Scale)
}

// PercentOf returns pct percent of base, rounded to cents.
func PercentOf(base, pct decimal.Decimal) decimal.Decimal {
	return Round(base.Mul(pct).Div(hundred))
}

// Factor returns the multiplier 1 + pct/100 without rounding.
func Factor(pct decimal.Decimal) decimal.Decimal {
	return decimal.NewFromInt(1).Add(pct.Div(hundred))
}

// IsPercent reports whether pct lies in 0..100.
func IsPercent(pct decimal.Decimal) bool {
	return !pct.IsNegative() && pct.LessThanOrEqual(hundred)
}

// Max returns the larger amount.
func Max(a, b decimal.Decimal) decimal.Decimal {
	if a.GreaterThan(b) {
		return a
	}
	return b
}

// MustParse parses s or panics. Intended for constants and tests.
func MustParse(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}
