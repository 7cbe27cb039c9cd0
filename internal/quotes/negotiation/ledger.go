// Package negotiation tracks courtesy items and the special bonus applied to a
// quotation before its price is frozen as negotiated.
package negotiation

import (
	"fmt"

	"studio_portal_backend/platform/apperr"
	"studio_portal_backend/platform/money"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Line is one priced quotation line.
type Line struct {
	ItemID    uuid.UUID
	Name      string
	Quantity  int
	UnitPrice decimal.Decimal
	LineTotal decimal.Decimal
}

// Scope selects what Clear resets.
type Scope int

const (
	// ScopeCourtesies unmarks every courtesy line.
	ScopeCourtesies Scope = iota
	// ScopeAll also zeroes the special bonus.
	ScopeAll
)

// ParseScope maps the wire value onto a Scope.
func ParseScope(s string) (Scope, error) {
	switch s {
	case "courtesies":
		return ScopeCourtesies, nil
	case "all":
		return ScopeAll, nil
	default:
		return 0, apperr.Validation(fmt.Sprintf("unknown clear scope %q", s))
	}
}

// Totals are the derived amounts shown while negotiating.
//
//	ProjectedSubtotal = CatalogSubtotal - CourtesyTotal - SpecialBonus >= 0
//	DiscountTotal     = CourtesyTotal + SpecialBonus
type Totals struct {
	CatalogSubtotal   decimal.Decimal
	CourtesyTotal     decimal.Decimal
	SpecialBonus      decimal.Decimal
	DiscountTotal     decimal.Decimal
	ProjectedSubtotal decimal.Decimal
}

// Ledger is not safe for concurrent use.
type Ledger struct {
	lines        []Line
	index        map[uuid.UUID]int
	courtesies   map[uuid.UUID]struct{}
	bonus        decimal.Decimal
	courtesyMode bool
	customPrice  *decimal.Decimal
}

// NewLedger builds a ledger over lines. Line totals must be non-negative and
// item ids unique.
func NewLedger(lines []Line) (*Ledger, error) {
	l := &Ledger{
		lines:      make([]Line, 0, len(lines)),
		index:      make(map[uuid.UUID]int, len(lines)),
		courtesies: make(map[uuid.UUID]struct{}),
		bonus:      money.Zero,
	}
	for _, line := range lines {
		if line.LineTotal.IsNegative() {
			return nil, apperr.Validation("line total cannot be negative")
		}
		if _, dup := l.index[line.ItemID]; dup {
			return nil, apperr.Validation("duplicate line item")
		}
		l.index[line.ItemID] = len(l.lines)
		l.lines = append(l.lines, line)
	}
	return l, nil
}

// Restore reapplies persisted adjustments. It fails without changing state
// when they are inconsistent with the lines.
func (l *Ledger) Restore(courtesyIDs []uuid.UUID, bonus decimal.Decimal, customPrice *decimal.Decimal) error {
	next := make(map[uuid.UUID]struct{}, len(courtesyIDs))
	for _, id := range courtesyIDs {
		if _, ok := l.index[id]; !ok {
			return apperr.Validation("courtesy item is not part of the quotation")
		}
		next[id] = struct{}{}
	}
	if bonus.IsNegative() {
		return apperr.Validation("special bonus cannot be negative")
	}
	if customPrice != nil && customPrice.IsNegative() {
		return apperr.Validation("negotiated price cannot be negative")
	}
	if err := l.check(next, bonus); err != nil {
		return err
	}
	l.courtesies = next
	l.bonus = money.Round(bonus)
	if customPrice != nil {
		p := money.Round(*customPrice)
		l.customPrice = &p
	} else {
		l.customPrice = nil
	}
	return nil
}

// ToggleCourtesyMode flips courtesy mode and returns the new value.
func (l *Ledger) ToggleCourtesyMode() bool {
	l.courtesyMode = !l.courtesyMode
	return l.courtesyMode
}

// CourtesyMode reports whether selecting a line marks it courtesy.
func (l *Ledger) CourtesyMode() bool {
	return l.courtesyMode
}

// Select toggles the courtesy mark on a line when courtesy mode is on.
// Outside courtesy mode the line stays a regular, paid line.
func (l *Ledger) Select(itemID uuid.UUID) error {
	if _, ok := l.index[itemID]; !ok {
		return apperr.Validation("item is not part of the quotation")
	}
	if !l.courtesyMode {
		return nil
	}
	if l.IsCourtesy(itemID) {
		return l.UnmarkCourtesy(itemID)
	}
	return l.MarkCourtesy(itemID)
}

// MarkCourtesy excludes the line's total from the subtotal. The line stays listed.
func (l *Ledger) MarkCourtesy(itemID uuid.UUID) error {
	if _, ok := l.index[itemID]; !ok {
		return apperr.Validation("item is not part of the quotation")
	}
	if l.IsCourtesy(itemID) {
		return nil
	}
	next := l.courtesySet()
	next[itemID] = struct{}{}
	if err := l.check(next, l.bonus); err != nil {
		return err
	}
	l.courtesies = next
	return nil
}

// UnmarkCourtesy returns the line's total to the subtotal.
func (l *Ledger) UnmarkCourtesy(itemID uuid.UUID) error {
	if _, ok := l.index[itemID]; !ok {
		return apperr.Validation("item is not part of the quotation")
	}
	delete(l.courtesies, itemID)
	return nil
}

// IsCourtesy reports whether the line is marked courtesy.
func (l *Ledger) IsCourtesy(itemID uuid.UUID) bool {
	_, ok := l.courtesies[itemID]
	return ok
}

// SetSpecialBonus sets the flat amount subtracted after courtesies.
func (l *Ledger) SetSpecialBonus(amount decimal.Decimal) error {
	if amount.IsNegative() {
		return apperr.Validation("special bonus cannot be negative")
	}
	amount = money.Round(amount)
	if err := l.check(l.courtesies, amount); err != nil {
		return err
	}
	l.bonus = amount
	return nil
}

// SetCustomPrice overrides the price that will be frozen as negotiated.
func (l *Ledger) SetCustomPrice(price decimal.Decimal) error {
	if price.IsNegative() {
		return apperr.Validation("negotiated price cannot be negative")
	}
	p := money.Round(price)
	l.customPrice = &p
	return nil
}

// Clear resets adjustments in scope and sets the custom price to the
// recomputed projected subtotal.
func (l *Ledger) Clear(scope Scope) {
	l.courtesies = make(map[uuid.UUID]struct{})
	if scope == ScopeAll {
		l.bonus = money.Zero
	}
	projected := l.Totals().ProjectedSubtotal
	l.customPrice = &projected
}

// CustomPrice returns the explicit negotiated price, if any.
func (l *Ledger) CustomPrice() *decimal.Decimal {
	if l.customPrice == nil {
		return nil
	}
	p := *l.customPrice
	return &p
}

// NegotiatedPrice is the custom price when set, else the projected subtotal.
func (l *Ledger) NegotiatedPrice() decimal.Decimal {
	if l.customPrice != nil {
		return *l.customPrice
	}
	return l.Totals().ProjectedSubtotal
}

// CourtesyIDs returns the courtesy lines in line order.
func (l *Ledger) CourtesyIDs() []uuid.UUID {
	out := make([]uuid.UUID, 0, len(l.courtesies))
	for _, line := range l.lines {
		if l.IsCourtesy(line.ItemID) {
			out = append(out, line.ItemID)
		}
	}
	return out
}

// Lines returns a copy of the ledger lines.
func (l *Ledger) Lines() []Line {
	out := make([]Line, len(l.lines))
	copy(out, l.lines)
	return out
}

// Totals computes the derived amounts.
func (l *Ledger) Totals() Totals {
	return l.totalsFor(l.courtesies, l.bonus)
}

func (l *Ledger) totalsFor(courtesies map[uuid.UUID]struct{}, bonus decimal.Decimal) Totals {
	subtotal := money.Zero
	courtesy := money.Zero
	for _, line := range l.lines {
		subtotal = subtotal.Add(line.LineTotal)
		if _, ok := courtesies[line.ItemID]; ok {
			courtesy = courtesy.Add(line.LineTotal)
		}
	}
	projected := subtotal.Sub(courtesy).Sub(bonus)
	if projected.IsNegative() {
		projected = money.Zero
	}
	return Totals{
		CatalogSubtotal:   money.Round(subtotal),
		CourtesyTotal:     money.Round(courtesy),
		SpecialBonus:      money.Round(bonus),
		DiscountTotal:     money.Round(courtesy.Add(bonus)),
		ProjectedSubtotal: money.Round(projected),
	}
}

func (l *Ledger) check(courtesies map[uuid.UUID]struct{}, bonus decimal.Decimal) error {
	t := l.totalsFor(courtesies, bonus)
	if t.CatalogSubtotal.Sub(t.DiscountTotal).IsNegative() {
		excess := t.DiscountTotal.Sub(t.CatalogSubtotal)
		return apperr.Validation("adjustments exceed the quotation subtotal").
			WithDetails(map[string]string{"excess": excess.StringFixed(money.Scale)})
	}
	return nil
}

func (l *Ledger) courtesySet() map[uuid.UUID]struct{} {
	next := make(map[uuid.UUID]struct{}, len(l.courtesies)+1)
	for id := range l.courtesies {
		next[id] = struct{}{}
	}
	return next
}
