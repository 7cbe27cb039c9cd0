package service

import (
	"context"
	"testing"
	"time"

	conditionsdomain "studio_portal_backend/internal/conditions/domain"
	"studio_portal_backend/internal/quotes/repository"
	"studio_portal_backend/internal/quotes/transport"
	"studio_portal_backend/platform/apperr"
	"studio_portal_backend/platform/logger"
	"studio_portal_backend/platform/money"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRepo struct {
	quotes map[uuid.UUID]repository.Quotation
	items  map[uuid.UUID][]repository.Item
	saves  int
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{quotes: map[uuid.UUID]repository.Quotation{}, items: map[uuid.UUID][]repository.Item{}}
}

func (f *fakeRepo) CreateWithItems(_ context.Context, q *repository.Quotation, items []repository.Item) error {
	q.ID = uuid.New()
	q.CreatedAt = time.Now()
	q.UpdatedAt = q.CreatedAt
	for i := range items {
		items[i].ID = uuid.New()
		items[i].QuotationID = q.ID
		items[i].Position = i
	}
	f.quotes[q.ID] = *q
	f.items[q.ID] = append([]repository.Item(nil), items...)
	return nil
}

func (f *fakeRepo) GetByID(_ context.Context, studioID, id uuid.UUID) (*repository.Quotation, error) {
	q, ok := f.quotes[id]
	if !ok || q.StudioID != studioID {
		return nil, apperr.NotFound("quotation not found")
	}
	return &q, nil
}

func (f *fakeRepo) ListByLead(_ context.Context, studioID, leadID uuid.UUID) ([]repository.Quotation, error) {
	var out []repository.Quotation
	for _, q := range f.quotes {
		if q.StudioID == studioID && q.LeadID == leadID {
			out = append(out, q)
		}
	}
	return out, nil
}

func (f *fakeRepo) GetItems(_ context.Context, _ uuid.UUID, quotationID uuid.UUID) ([]repository.Item, error) {
	return append([]repository.Item(nil), f.items[quotationID]...), nil
}

func (f *fakeRepo) SaveAdjustments(_ context.Context, _ uuid.UUID, id uuid.UUID, adj repository.Adjustments) error {
	q := f.quotes[id]
	if !q.IsEditable() {
		return apperr.Conflict("quotation is no longer a draft")
	}
	f.saves++
	q.PricingMode = adj.PricingMode
	q.NegotiatedPrice = adj.NegotiatedPrice
	q.OriginalPrice = adj.OriginalPrice
	q.SpecialBonus = adj.SpecialBonus
	f.quotes[id] = q
	marked := map[uuid.UUID]bool{}
	for _, itemID := range adj.CourtesyItemIDs {
		marked[itemID] = true
	}
	items := f.items[id]
	for i := range items {
		items[i].Courtesy = marked[items[i].CatalogItemID]
	}
	return nil
}

func (f *fakeRepo) SetCondition(_ context.Context, _ uuid.UUID, id uuid.UUID, conditionID *uuid.UUID) error {
	q := f.quotes[id]
	q.ConditionID = conditionID
	f.quotes[id] = q
	return nil
}

type fakePricer struct {
	prices map[uuid.UUID]PricedLine
}

func (f fakePricer) PriceSelection(_ context.Context, _ uuid.UUID, selection map[uuid.UUID]int) ([]PricedLine, []uuid.UUID, error) {
	var lines []PricedLine
	var unresolved []uuid.UUID
	for id, qty := range selection {
		p, ok := f.prices[id]
		if !ok {
			unresolved = append(unresolved, id)
			continue
		}
		if qty == 0 {
			continue
		}
		p.Quantity = qty
		lines = append(lines, p)
	}
	return lines, unresolved, nil
}

type fakeConditions map[uuid.UUID]conditionsdomain.Condition

func (f fakeConditions) GetByID(_ context.Context, _ uuid.UUID, id uuid.UUID) (*conditionsdomain.Condition, error) {
	c, ok := f[id]
	if !ok {
		return nil, apperr.NotFound("commercial condition not found")
	}
	return &c, nil
}

type fakeLeads struct{ known map[uuid.UUID]bool }

func (f fakeLeads) LeadExists(_ context.Context, _ uuid.UUID, leadID uuid.UUID) (bool, error) {
	return f.known[leadID], nil
}

type fixture struct {
	svc        *Service
	repo       *fakeRepo
	conditions fakeConditions
	studio     uuid.UUID
	lead       uuid.UUID
	coverage   uuid.UUID
	drone      uuid.UUID
}

func newFixture() *fixture {
	f := &fixture{
		repo:       newFakeRepo(),
		conditions: fakeConditions{},
		studio:     uuid.New(),
		lead:       uuid.New(),
		coverage:   uuid.New(),
		drone:      uuid.New(),
	}
	pricer := fakePricer{prices: map[uuid.UUID]PricedLine{
		f.coverage: {CatalogItemID: f.coverage, Name: "Coverage", UnitPrice: money.MustParse("425")},
		f.drone:    {CatalogItemID: f.drone, Name: "Drone", UnitPrice: money.MustParse("150")},
	}}
	f.svc = New(f.repo, pricer, f.conditions, fakeLeads{known: map[uuid.UUID]bool{f.lead: true}}, logger.Discard())
	return f
}

func (f *fixture) create(t *testing.T) transport.QuotationResponse {
	t.Helper()
	resp, err := f.svc.CreateFromSelection(context.Background(), f.studio, transport.CreateQuotationRequest{
		LeadID: f.lead,
		Name:   "Wedding package",
		Items: []transport.SelectionItem{
			{ItemID: f.coverage, Quantity: 2},
			{ItemID: f.drone, Quantity: 1},
		},
	})
	require.NoError(t, err)
	return resp
}

func assertMoney(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	assert.True(t, money.MustParse(want).Equal(got), "want %s, got %s", want, got)
}

func TestCreateFromSelectionFreezesPrices(t *testing.T) {
	f := newFixture()
	resp := f.create(t)

	assert.Equal(t, repository.StatusDraft, resp.Status)
	assert.Equal(t, "standard", resp.PricingMode)
	assertMoney(t, "1000", resp.BasePrice)
	assertMoney(t, "1000", resp.Totals.ProjectedSubtotal)
	assert.Len(t, resp.Items, 2)
}

func TestCreateFromSelectionRejectsUnknownLeadAndEmptySelection(t *testing.T) {
	f := newFixture()

	_, err := f.svc.CreateFromSelection(context.Background(), f.studio, transport.CreateQuotationRequest{
		LeadID: uuid.New(), Name: "x", Items: []transport.SelectionItem{{ItemID: f.drone, Quantity: 1}},
	})
	assert.True(t, apperr.Is(err, apperr.KindNotFound))

	_, err = f.svc.CreateFromSelection(context.Background(), f.studio, transport.CreateQuotationRequest{
		LeadID: f.lead, Name: "x", Items: []transport.SelectionItem{{ItemID: uuid.New(), Quantity: 1}},
	})
	assert.True(t, apperr.Is(err, apperr.KindValidation))

	_, err = f.svc.CreateFromSelection(context.Background(), f.studio, transport.CreateQuotationRequest{
		LeadID: f.lead, Name: "x", Items: []transport.SelectionItem{{ItemID: f.drone, Quantity: 1}, {ItemID: f.drone, Quantity: 2}},
	})
	assert.True(t, apperr.Is(err, apperr.KindValidation))
}

func TestApplyAdjustmentsCourtesyAndBonus(t *testing.T) {
	f := newFixture()
	created := f.create(t)

	resp, err := f.svc.ApplyAdjustments(context.Background(), f.studio, created.ID, transport.AdjustmentsRequest{
		CourtesyItemIDs: []uuid.UUID{f.drone},
		SpecialBonus:    money.MustParse("50"),
	})
	require.NoError(t, err)

	assertMoney(t, "150", resp.Totals.CourtesyTotal)
	assertMoney(t, "200", resp.Totals.DiscountTotal)
	assertMoney(t, "800", resp.Totals.ProjectedSubtotal)
	assert.Equal(t, "negotiated", resp.PricingMode)
	require.NotNil(t, resp.NegotiatedPrice)
	assertMoney(t, "800", *resp.NegotiatedPrice)
	require.NotNil(t, resp.OriginalPrice)
	assertMoney(t, "1000", *resp.OriginalPrice)

	breakdown, err := f.svc.Breakdown(context.Background(), f.studio, created.ID)
	require.NoError(t, err)
	assertMoney(t, "800", breakdown.Total)
	assertMoney(t, "200", breakdown.Savings)
}

func TestApplyAdjustmentsOverflowLeavesQuotationUntouched(t *testing.T) {
	f := newFixture()
	created := f.create(t)

	_, err := f.svc.ApplyAdjustments(context.Background(), f.studio, created.ID, transport.AdjustmentsRequest{
		CourtesyItemIDs: []uuid.UUID{f.coverage},
		SpecialBonus:    money.MustParse("150.01"),
	})
	assert.True(t, apperr.Is(err, apperr.KindValidation))
	assert.Zero(t, f.repo.saves)
	assert.Equal(t, "standard", f.repo.quotes[created.ID].PricingMode)
}

func TestApplyAdjustmentsWithoutChangesKeepsStandardPricing(t *testing.T) {
	f := newFixture()
	created := f.create(t)

	resp, err := f.svc.ApplyAdjustments(context.Background(), f.studio, created.ID, transport.AdjustmentsRequest{SpecialBonus: money.Zero})
	require.NoError(t, err)
	assert.Equal(t, "standard", resp.PricingMode)
	assert.Nil(t, resp.NegotiatedPrice)
}

func TestAdjustmentsRejectedOnceAuthorized(t *testing.T) {
	f := newFixture()
	created := f.create(t)
	q := f.repo.quotes[created.ID]
	q.Status = repository.StatusAuthorized
	f.repo.quotes[created.ID] = q

	_, err := f.svc.ApplyAdjustments(context.Background(), f.studio, created.ID, transport.AdjustmentsRequest{SpecialBonus: money.MustParse("10")})
	assert.True(t, apperr.Is(err, apperr.KindConflict))

	_, err = f.svc.ClearAdjustments(context.Background(), f.studio, created.ID, transport.ClearAdjustmentsRequest{Scope: "all"})
	assert.True(t, apperr.Is(err, apperr.KindConflict))
}

func TestClearCourtesiesFreezesProjectedSubtotal(t *testing.T) {
	f := newFixture()
	created := f.create(t)
	_, err := f.svc.ApplyAdjustments(context.Background(), f.studio, created.ID, transport.AdjustmentsRequest{
		CourtesyItemIDs: []uuid.UUID{f.drone},
		SpecialBonus:    money.MustParse("50"),
	})
	require.NoError(t, err)

	resp, err := f.svc.ClearAdjustments(context.Background(), f.studio, created.ID, transport.ClearAdjustmentsRequest{Scope: "courtesies"})
	require.NoError(t, err)
	assertMoney(t, "0", resp.Totals.CourtesyTotal)
	assertMoney(t, "50", resp.Totals.SpecialBonus)
	require.NotNil(t, resp.NegotiatedPrice)
	assertMoney(t, "950", *resp.NegotiatedPrice)
	for _, it := range resp.Items {
		assert.False(t, it.IsCourtesy)
	}

	resp, err = f.svc.ClearAdjustments(context.Background(), f.studio, created.ID, transport.ClearAdjustmentsRequest{Scope: "all"})
	require.NoError(t, err)
	assertMoney(t, "1000", *resp.NegotiatedPrice)
	assert.Equal(t, "negotiated", resp.PricingMode)
}

func TestBreakdownAppliesStandardCondition(t *testing.T) {
	f := newFixture()
	created := f.create(t)
	condID := uuid.New()
	pct := money.MustParse("10")
	f.conditions[condID] = conditionsdomain.Condition{
		ID:                 condID,
		StudioID:           f.studio,
		Name:               "Ten off",
		DiscountPercentage: &pct,
		Advance:            conditionsdomain.PercentageAdvance(money.MustParse("50")),
	}

	_, err := f.svc.SetCondition(context.Background(), f.studio, created.ID, transport.SetConditionRequest{ConditionID: &condID})
	require.NoError(t, err)

	b, err := f.svc.Breakdown(context.Background(), f.studio, created.ID)
	require.NoError(t, err)
	assertMoney(t, "100", b.Discount)
	assertMoney(t, "900", b.Total)
	assertMoney(t, "450", b.Advance)
	assertMoney(t, "450", b.Deferred)
}

func TestSetConditionRejectsForeignTemporaryCondition(t *testing.T) {
	f := newFixture()
	created := f.create(t)
	other := uuid.New()
	condID := uuid.New()
	f.conditions[condID] = conditionsdomain.Condition{ID: condID, StudioID: f.studio, Name: "one-off", Temporary: true, QuotationID: &other}

	_, err := f.svc.SetCondition(context.Background(), f.studio, created.ID, transport.SetConditionRequest{ConditionID: &condID})
	assert.True(t, apperr.Is(err, apperr.KindValidation))

	missing := uuid.New()
	_, err = f.svc.SetCondition(context.Background(), f.studio, created.ID, transport.SetConditionRequest{ConditionID: &missing})
	assert.True(t, apperr.Is(err, apperr.KindValidation))
}
