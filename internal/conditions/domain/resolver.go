package domain

import (
	"fmt"

	"studio_portal_backend/platform/apperr"
	"studio_portal_backend/platform/money"

	"github.com/shopspring/decimal"
)

// Mode selects how the payable total is derived.
type Mode string

const (
	// ModeStandard applies the condition's discount percentage to the base price.
	ModeStandard Mode = "standard"
	// ModeNegotiated uses an explicit negotiated price. A price of 0 means
	// "negotiated to free", never "no negotiation".
	ModeNegotiated Mode = "negotiated"
)

// ParseMode maps the stored/wire value, defaulting empty to standard.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case "", ModeStandard:
		return ModeStandard, nil
	case ModeNegotiated:
		return ModeNegotiated, nil
	default:
		return "", apperr.Validation(fmt.Sprintf("unknown pricing mode %q", s))
	}
}

// Negotiation carries the negotiated price and what it replaced.
type Negotiation struct {
	Price decimal.Decimal
	// OriginalPrice defaults to the base price when nil.
	OriginalPrice *decimal.Decimal
}

// ResolveInput is everything a breakdown depends on.
type ResolveInput struct {
	Mode        Mode
	BasePrice   decimal.Decimal
	Condition   *Condition
	Negotiation *Negotiation
}

// Breakdown is the payment split for one quotation.
// Advance + Deferred == Total holds to the cent.
type Breakdown struct {
	Mode               Mode
	AdvanceKind        AdvanceKind
	BasePrice          decimal.Decimal
	OriginalPrice      decimal.Decimal
	DiscountPercentage decimal.Decimal
	Discount           decimal.Decimal
	Savings            decimal.Decimal
	Subtotal           decimal.Decimal
	Total              decimal.Decimal
	Advance            decimal.Decimal
	Deferred           decimal.Decimal
	// DeferredDueBeforeEvent is set whenever the condition defines an advance,
	// including a 0% advance. With no advance configured the total is due at
	// authorization and no obligation is surfaced.
	DeferredDueBeforeEvent bool
}

// PriceResolver computes a breakdown for one mode.
type PriceResolver interface {
	Resolve(in ResolveInput) (Breakdown, error)
}

// StandardResolver: discount = base * pct/100, total = base - discount.
type StandardResolver struct{}

// NegotiatedResolver: total = negotiated price, savings = original - negotiated.
type NegotiatedResolver struct{}

var (
	_ PriceResolver = StandardResolver{}
	_ PriceResolver = NegotiatedResolver{}
)

// ResolverFor returns the resolver for mode.
func ResolverFor(mode Mode) (PriceResolver, error) {
	switch mode {
	case ModeStandard:
		return StandardResolver{}, nil
	case ModeNegotiated:
		return NegotiatedResolver{}, nil
	default:
		return nil, apperr.Validation(fmt.Sprintf("unknown pricing mode %q", mode))
	}
}

// Resolve is the single entry point used by live previews and by authorization.
func Resolve(in ResolveInput) (Breakdown, error) {
	r, err := ResolverFor(in.Mode)
	if err != nil {
		return Breakdown{}, err
	}
	return r.Resolve(in)
}

// Resolve implements PriceResolver.
func (StandardResolver) Resolve(in ResolveInput) (Breakdown, error) {
	if in.BasePrice.IsNegative() {
		return Breakdown{}, apperr.Validation("base price must not be negative")
	}
	base := money.Round(in.BasePrice)
	advance, pct, err := conditionTerms(in.Condition)
	if err != nil {
		return Breakdown{}, err
	}

	discount := money.PercentOf(base, pct)
	subtotal := base.Sub(discount)

	b := Breakdown{
		Mode:               ModeStandard,
		BasePrice:          base,
		OriginalPrice:      base,
		DiscountPercentage: pct,
		Discount:           discount,
		Savings:            discount,
		Subtotal:           subtotal,
		Total:              subtotal,
	}
	return split(b, advance)
}

// Resolve implements PriceResolver. The condition's discount percentage does
// not apply; only its advance policy does.
func (NegotiatedResolver) Resolve(in ResolveInput) (Breakdown, error) {
	if in.Negotiation == nil {
		return Breakdown{}, apperr.Validation("negotiated mode requires a negotiated price")
	}
	if in.BasePrice.IsNegative() {
		return Breakdown{}, apperr.Validation("base price must not be negative")
	}
	if in.Negotiation.Price.IsNegative() {
		return Breakdown{}, apperr.Validation("negotiated price must not be negative")
	}
	base := money.Round(in.BasePrice)
	original := base
	if in.Negotiation.OriginalPrice != nil {
		if in.Negotiation.OriginalPrice.IsNegative() {
			return Breakdown{}, apperr.Validation("original price must not be negative")
		}
		original = money.Round(*in.Negotiation.OriginalPrice)
	}
	advance, _, err := conditionTerms(in.Condition)
	if err != nil {
		return Breakdown{}, err
	}

	total := money.Round(in.Negotiation.Price)
	savings := original.Sub(total)

	b := Breakdown{
		Mode:               ModeNegotiated,
		BasePrice:          base,
		OriginalPrice:      original,
		DiscountPercentage: money.Zero,
		Discount:           money.Max(savings, money.Zero),
		Savings:            savings,
		Subtotal:           total,
		Total:              total,
	}
	return split(b, advance)
}

func conditionTerms(c *Condition) (AdvancePolicy, decimal.Decimal, error) {
	if c == nil {
		return NoAdvance(), money.Zero, nil
	}
	pct := money.Zero
	if c.DiscountPercentage != nil {
		if !money.IsPercent(*c.DiscountPercentage) {
			return AdvancePolicy{}, decimal.Decimal{}, apperr.Validation("discount percentage must be between 0 and 100")
		}
		pct = *c.DiscountPercentage
	}
	return c.Advance, pct, nil
}

func split(b Breakdown, policy AdvancePolicy) (Breakdown, error) {
	advance, err := policy.advanceFor(b.Total)
	if err != nil {
		return Breakdown{}, err
	}
	b.AdvanceKind = policy.Kind()
	b.Advance = advance
	b.Deferred = b.Total.Sub(advance)
	b.DeferredDueBeforeEvent = policy.Kind() != AdvanceNone
	return b, nil
}
