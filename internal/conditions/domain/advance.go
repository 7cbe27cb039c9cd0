package domain

import (
	"fmt"

	"studio_portal_backend/platform/apperr"
	"studio_portal_backend/platform/money"

	"github.com/shopspring/decimal"
)

// AdvanceKind discriminates AdvancePolicy.
type AdvanceKind int

const (
	AdvanceNone AdvanceKind = iota
	AdvancePercentage
	AdvanceFixed
)

// Column values stored in commercial_conditions.advance_type.
const (
	AdvanceTypePercentage  = "percentage"
	AdvanceTypeFixedAmount = "fixed_amount"
)

func (k AdvanceKind) String() string {
	switch k {
	case AdvancePercentage:
		return AdvanceTypePercentage
	case AdvanceFixed:
		return AdvanceTypeFixedAmount
	default:
		return "none"
	}
}

// AdvancePolicy is None, Percentage(p) or FixedAmount(a). The zero value is None.
type AdvancePolicy struct {
	kind  AdvanceKind
	value decimal.Decimal
}

// NoAdvance means the full total is due at authorization.
func NoAdvance() AdvancePolicy { return AdvancePolicy{kind: AdvanceNone} }

// PercentageAdvance takes p percent (0..100) of the total up front.
func PercentageAdvance(p decimal.Decimal) AdvancePolicy {
	return AdvancePolicy{kind: AdvancePercentage, value: p}
}

// FixedAdvance takes a fixed amount up front.
func FixedAdvance(a decimal.Decimal) AdvancePolicy {
	return AdvancePolicy{kind: AdvanceFixed, value: a}
}

// Kind returns the variant.
func (p AdvancePolicy) Kind() AdvanceKind { return p.kind }

// Percentage returns p for Percentage policies.
func (p AdvancePolicy) Percentage() (decimal.Decimal, bool) {
	return p.value, p.kind == AdvancePercentage
}

// Amount returns a for FixedAmount policies.
func (p AdvancePolicy) Amount() (decimal.Decimal, bool) {
	return p.value, p.kind == AdvanceFixed
}

// Validate checks the variant's payload range.
func (p AdvancePolicy) Validate() error {
	switch p.kind {
	case AdvanceNone:
		return nil
	case AdvancePercentage:
		if !money.IsPercent(p.value) {
			return apperr.Validation("advance percentage must be between 0 and 100")
		}
		return nil
	case AdvanceFixed:
		if p.value.IsNegative() {
			return apperr.Validation("advance amount must not be negative")
		}
		return nil
	default:
		return apperr.Validation(fmt.Sprintf("unknown advance kind %d", p.kind))
	}
}

// advanceFor returns the up-front portion of total.
func (p AdvancePolicy) advanceFor(total decimal.Decimal) (decimal.Decimal, error) {
	if err := p.Validate(); err != nil {
		return decimal.Decimal{}, err
	}
	switch p.kind {
	case AdvancePercentage:
		return money.PercentOf(total, p.value), nil
	case AdvanceFixed:
		amount := money.Round(p.value)
		if amount.GreaterThan(total) {
			return decimal.Decimal{}, apperr.Validation("advance amount exceeds total to pay").
				WithDetails(map[string]string{"advance": amount.StringFixed(2), "total": total.StringFixed(2)})
		}
		return amount, nil
	default:
		return money.Zero, nil
	}
}

// AdvancePolicyFromColumns folds the nullable storage triad into a policy.
// advance_type selects which column is read; a missing value for the
// selected column means no advance is configured.
func AdvancePolicyFromColumns(advanceType *string, percentage, amount decimal.NullDecimal) (AdvancePolicy, error) {
	if advanceType == nil {
		return NoAdvance(), nil
	}
	switch *advanceType {
	case AdvanceTypePercentage:
		if !percentage.Valid {
			return NoAdvance(), nil
		}
		return PercentageAdvance(percentage.Decimal), nil
	case AdvanceTypeFixedAmount:
		if !amount.Valid {
			return NoAdvance(), nil
		}
		return FixedAdvance(amount.Decimal), nil
	case "":
		return NoAdvance(), nil
	default:
		return AdvancePolicy{}, fmt.Errorf("unknown advance_type %q", *advanceType)
	}
}

// Columns is the inverse of AdvancePolicyFromColumns.
func (p AdvancePolicy) Columns() (advanceType *string, percentage, amount decimal.NullDecimal) {
	switch p.kind {
	case AdvancePercentage:
		t := AdvanceTypePercentage
		return &t, decimal.NewNullDecimal(p.value), decimal.NullDecimal{}
	case AdvanceFixed:
		t := AdvanceTypeFixedAmount
		return &t, decimal.NullDecimal{}, decimal.NewNullDecimal(p.value)
	default:
		return nil, decimal.NullDecimal{}, decimal.NullDecimal{}
	}
}
