package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	conditionsdomain "studio_portal_backend/internal/conditions/domain"
	"studio_portal_backend/internal/events"
	leadsdomain "studio_portal_backend/internal/leads/domain"
	leadsrepo "studio_portal_backend/internal/leads/repository"
	"studio_portal_backend/internal/notification/outbox"
	quotesrepo "studio_portal_backend/internal/quotes/repository"
	"studio_portal_backend/platform/apperr"
	"studio_portal_backend/platform/logger"
	"studio_portal_backend/platform/money"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// worldState is the committed data set. Transactions work on a clone and
// replace it on commit.
type worldState struct {
	quotations map[uuid.UUID]quotesrepo.Quotation
	leads      map[uuid.UUID]leadsrepo.Lead
	contacts   map[uuid.UUID]string
	events     map[uuid.UUID]NewEvent
	payments   map[uuid.UUID]NewPayment
	followUps  []outbox.QuoteApprovedPayload
	contracts  []uuid.UUID
}

func (s worldState) clone() worldState {
	out := worldState{
		quotations: make(map[uuid.UUID]quotesrepo.Quotation, len(s.quotations)),
		leads:      make(map[uuid.UUID]leadsrepo.Lead, len(s.leads)),
		contacts:   make(map[uuid.UUID]string, len(s.contacts)),
		events:     make(map[uuid.UUID]NewEvent, len(s.events)),
		payments:   make(map[uuid.UUID]NewPayment, len(s.payments)),
		followUps:  append([]outbox.QuoteApprovedPayload(nil), s.followUps...),
		contracts:  append([]uuid.UUID(nil), s.contracts...),
	}
	for k, v := range s.quotations {
		out.quotations[k] = v
	}
	for k, v := range s.leads {
		v.Tags = append([]string(nil), v.Tags...)
		out.leads[k] = v
	}
	for k, v := range s.contacts {
		out.contacts[k] = v
	}
	for k, v := range s.events {
		out.events[k] = v
	}
	for k, v := range s.payments {
		out.payments[k] = v
	}
	return out
}

type fakeWorld struct {
	mu    sync.Mutex
	state worldState
	fail  map[string]error

	// beforeTx runs on the committed state just before a transaction opens.
	beforeTx func(st *worldState)
}

func newFakeWorld() *fakeWorld {
	return &fakeWorld{state: worldState{}.clone(), fail: map[string]error{}}
}

func (w *fakeWorld) Lead(_ context.Context, studioID, id uuid.UUID) (leadsrepo.Lead, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	l, ok := w.state.leads[id]
	if !ok || l.StudioID != studioID {
		return leadsrepo.Lead{}, apperr.NotFound("lead not found")
	}
	return l, nil
}

func (w *fakeWorld) GetByID(_ context.Context, studioID, id uuid.UUID) (*quotesrepo.Quotation, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	q, ok := w.state.quotations[id]
	if !ok || q.StudioID != studioID {
		return nil, apperr.NotFound("quotation not found")
	}
	return &q, nil
}

func (w *fakeWorld) WithTx(ctx context.Context, fn func(ctx context.Context, tx TxStore) error) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.beforeTx != nil {
		w.beforeTx(&w.state)
	}
	work := w.state.clone()
	if err := fn(ctx, &fakeTx{w: w, st: &work}); err != nil {
		return err
	}
	w.state = work
	return nil
}

func (w *fakeWorld) committed() worldState {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state.clone()
}

type fakeTx struct {
	w  *fakeWorld
	st *worldState
}

func (t *fakeTx) LockQuotation(_ context.Context, studioID, id uuid.UUID) (QuotationLock, error) {
	if err := t.w.fail["LockQuotation"]; err != nil {
		return QuotationLock{}, err
	}
	q, ok := t.st.quotations[id]
	if !ok || q.StudioID != studioID {
		return QuotationLock{}, apperr.NotFound("quotation not found")
	}
	return QuotationLock{
		Status:          q.Status,
		Archived:        q.Archived,
		BasePrice:       q.BasePrice,
		PricingMode:     q.PricingMode,
		NegotiatedPrice: q.NegotiatedPrice,
		OriginalPrice:   q.OriginalPrice,
	}, nil
}

func (t *fakeTx) InsertEvent(_ context.Context, ev NewEvent) (uuid.UUID, error) {
	if err := t.w.fail["InsertEvent"]; err != nil {
		return uuid.Nil, err
	}
	id := uuid.New()
	t.st.events[id] = ev
	return id, nil
}

func (t *fakeTx) PromoteContact(_ context.Context, _, contactID uuid.UUID) (bool, error) {
	if t.st.contacts[contactID] != "prospect" {
		return false, nil
	}
	t.st.contacts[contactID] = "client"
	return true, nil
}

func (t *fakeTx) MarkQuotationAuthorized(_ context.Context, p AuthorizeQuotationParams) error {
	q := t.st.quotations[p.QuotationID]
	q.Status = quotesrepo.StatusAuthorized
	q.EventID = &p.EventID
	q.ConditionID = &p.ConditionID
	q.PaymentPromiseDate = &p.PaymentPromiseDate
	q.PaymentRegistered = p.PaymentRegistered
	t.st.quotations[p.QuotationID] = q
	return nil
}

func (t *fakeTx) ArchiveSiblings(_ context.Context, studioID, leadID, keepID uuid.UUID) (int64, error) {
	var n int64
	for id, q := range t.st.quotations {
		if q.StudioID != studioID || q.LeadID != leadID || id == keepID || q.Archived || q.Status == quotesrepo.StatusCancelled {
			continue
		}
		q.Archived = true
		t.st.quotations[id] = q
		n++
	}
	return n, nil
}

func (t *fakeTx) SetLeadStage(_ context.Context, _, leadID, stageID uuid.UUID) error {
	if err := t.w.fail["SetLeadStage"]; err != nil {
		return err
	}
	l := t.st.leads[leadID]
	l.StageID = stageID
	t.st.leads[leadID] = l
	return nil
}

func (t *fakeTx) DetachLeadTag(_ context.Context, _, leadID uuid.UUID, tag string) (bool, error) {
	l := t.st.leads[leadID]
	tags := leadsdomain.NewTags(l.Tags...)
	if !tags.Has(tag) {
		return false, nil
	}
	l.Tags = tags.Without(tag).Values()
	t.st.leads[leadID] = l
	return true, nil
}

func (t *fakeTx) InsertPayment(_ context.Context, p NewPayment) (uuid.UUID, error) {
	if err := t.w.fail["InsertPayment"]; err != nil {
		return uuid.Nil, err
	}
	id := uuid.New()
	t.st.payments[id] = p
	return id, nil
}

func (t *fakeTx) EnqueueFollowUps(_ context.Context, _ uuid.UUID, p outbox.QuoteApprovedPayload) error {
	if err := t.w.fail["EnqueueFollowUps"]; err != nil {
		return err
	}
	t.st.followUps = append(t.st.followUps, p)
	return nil
}

func (t *fakeTx) EnqueueContractRequest(_ context.Context, _, _, templateID uuid.UUID) error {
	t.st.contracts = append(t.st.contracts, templateID)
	if err := t.w.fail["EnqueueContractRequest"]; err != nil {
		return err
	}
	return nil
}

func (t *fakeTx) Savepoint(_ context.Context, fn func(tx TxStore) error) error {
	snapshot := t.st.clone()
	if err := fn(t); err != nil {
		*t.st = snapshot
		return err
	}
	return nil
}

type fakePipelines struct {
	lead  *leadsdomain.Pipeline
	event *leadsdomain.Pipeline
}

func (f *fakePipelines) Pipeline(_ context.Context, _ uuid.UUID, kind leadsdomain.PipelineKind) (*leadsdomain.Pipeline, error) {
	if kind == leadsdomain.PipelineEvent {
		return f.event, nil
	}
	return f.lead, nil
}

type fakeConditions map[uuid.UUID]conditionsdomain.Condition

func (f fakeConditions) GetByID(_ context.Context, studioID, id uuid.UUID) (*conditionsdomain.Condition, error) {
	c, ok := f[id]
	if !ok || c.StudioID != studioID {
		return nil, apperr.NotFound("commercial condition not found")
	}
	return &c, nil
}

type recordingBus struct {
	mu     sync.Mutex
	events []events.Event
}

func (b *recordingBus) Publish(_ context.Context, e events.Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, e)
}

type fixture struct {
	svc        *Service
	world      *fakeWorld
	bus        *recordingBus
	studioID   uuid.UUID
	leadID     uuid.UUID
	contactID  uuid.UUID
	quoteA     uuid.UUID
	quoteB     uuid.UUID
	cancelled  uuid.UUID
	condID     uuid.UUID
	pending    leadsdomain.Stage
	approved   leadsdomain.Stage
	planning   leadsdomain.Stage
	conditions fakeConditions
}

func stage(slug string, order int) leadsdomain.Stage {
	return leadsdomain.Stage{ID: uuid.New(), Slug: slug, Name: slug, Order: order}
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		world:     newFakeWorld(),
		bus:       &recordingBus{},
		studioID:  uuid.New(),
		leadID:    uuid.New(),
		contactID: uuid.New(),
		quoteA:    uuid.New(),
		quoteB:    uuid.New(),
		cancelled: uuid.New(),
		condID:    uuid.New(),
		pending:   stage(leadsdomain.SlugPending, 1),
		approved:  stage(leadsdomain.SlugApproved, 4),
		planning:  stage("planning", 1),
	}

	leadPipeline, err := leadsdomain.NewPipeline(leadsdomain.PipelineLead, []leadsdomain.Stage{
		f.approved, stage("negotiation", 3), f.pending,
	})
	require.NoError(t, err)
	eventPipeline, err := leadsdomain.NewPipeline(leadsdomain.PipelineEvent, []leadsdomain.Stage{
		stage("delivered", 4), f.planning,
	})
	require.NoError(t, err)

	eventDate := time.Date(2026, 12, 12, 0, 0, 0, 0, time.UTC)
	eventType := "wedding"
	contactID := f.contactID
	f.world.state.leads[f.leadID] = leadsrepo.Lead{
		ID: f.leadID, StudioID: f.studioID, ContactID: &contactID, StageID: f.pending.ID,
		EventType: &eventType, EventDate: &eventDate, Tags: []string{leadsdomain.TagCancelled},
	}
	f.world.state.contacts[f.contactID] = "prospect"
	for _, id := range []uuid.UUID{f.quoteA, f.quoteB} {
		f.world.state.quotations[id] = quotesrepo.Quotation{
			ID: id, StudioID: f.studioID, LeadID: f.leadID, BasePrice: money.MustParse("1000"),
			Status: quotesrepo.StatusDraft, PricingMode: "standard",
		}
	}
	f.world.state.quotations[f.cancelled] = quotesrepo.Quotation{
		ID: f.cancelled, StudioID: f.studioID, LeadID: f.leadID, BasePrice: money.MustParse("500"),
		Status: quotesrepo.StatusCancelled, PricingMode: "standard",
	}

	discount := decimal.NewFromInt(10)
	f.conditions = fakeConditions{f.condID: {
		ID: f.condID, StudioID: f.studioID, Name: "Standard",
		DiscountPercentage: &discount, Advance: conditionsdomain.PercentageAdvance(decimal.NewFromInt(50)),
	}}

	f.svc = New(f.world, f.world, &fakePipelines{lead: leadPipeline, event: eventPipeline}, f.world, f.conditions, f.bus, logger.Discard())
	return f
}

func (f *fixture) request(quotationID uuid.UUID) Request {
	return Request{
		StudioID:    f.studioID,
		QuotationID: quotationID,
		LeadID:      f.leadID,
		ConditionID: f.condID,
		Amount:      money.MustParse("900"),
	}
}

func TestAuthorizeQuotationConvertsDraftIntoEvent(t *testing.T) {
	f := newFixture(t)
	req := f.request(f.quoteA)
	req.Payment = &PaymentData{Amount: money.MustParse("450"), Method: "transfer", PaidAt: time.Now(), Concept: "Advance"}

	res, err := f.svc.AuthorizeQuotation(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, quotesrepo.StatusAuthorized, res.QuotationStatus)
	assert.Equal(t, int64(1), res.ArchivedSiblings)
	assert.True(t, res.Breakdown.Total.Equal(money.MustParse("900")))
	assert.True(t, res.Breakdown.Advance.Equal(money.MustParse("450")))
	require.NotNil(t, res.PaymentID)
	assert.Empty(t, res.Warnings)

	st := f.world.committed()
	a := st.quotations[f.quoteA]
	assert.Equal(t, quotesrepo.StatusAuthorized, a.Status)
	require.NotNil(t, a.EventID)
	assert.Equal(t, res.EventID, *a.EventID)
	assert.Equal(t, f.condID, *a.ConditionID)
	assert.True(t, a.PaymentRegistered)
	assert.NotNil(t, a.PaymentPromiseDate)

	assert.True(t, st.quotations[f.quoteB].Archived)
	assert.False(t, st.quotations[f.cancelled].Archived)

	lead := st.leads[f.leadID]
	assert.Equal(t, f.approved.ID, lead.StageID)
	assert.Empty(t, lead.Tags)
	assert.Equal(t, "client", st.contacts[f.contactID])

	require.Len(t, st.events, 1)
	ev := st.events[res.EventID]
	assert.Equal(t, f.planning.ID, ev.StageID)
	assert.Equal(t, "wedding", *ev.EventType)
	assert.Equal(t, f.quoteA, ev.QuotationID)
	require.Len(t, st.payments, 1)
	assert.True(t, st.payments[*res.PaymentID].Amount.Equal(money.MustParse("450")))

	require.Len(t, f.bus.events, 1)
	published, ok := f.bus.events[0].(events.QuotationAuthorized)
	require.True(t, ok)
	assert.Equal(t, res.EventID, published.EventID)
	assert.True(t, published.Deferred.Equal(money.MustParse("450")))
}

func TestAuthorizeQuotationTwiceConflicts(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.AuthorizeQuotation(context.Background(), f.request(f.quoteA))
	require.NoError(t, err)

	_, err = f.svc.AuthorizeQuotation(context.Background(), f.request(f.quoteA))
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.KindConflict))
	assert.Len(t, f.world.committed().events, 1)
	assert.Len(t, f.bus.events, 1)
}

func TestAuthorizeArchivedSiblingConflicts(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.AuthorizeQuotation(context.Background(), f.request(f.quoteA))
	require.NoError(t, err)

	_, err = f.svc.AuthorizeQuotation(context.Background(), f.request(f.quoteB))
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.KindConflict))

	authorized := 0
	for _, q := range f.world.committed().quotations {
		if q.Status == quotesrepo.StatusAuthorized {
			authorized++
			continue
		}
		if q.Status != quotesrepo.StatusCancelled {
			assert.True(t, q.Archived)
		}
	}
	assert.Equal(t, 1, authorized)
}

type staleQuotes struct {
	QuotationReader
	draft quotesrepo.Quotation
}

func (s staleQuotes) GetByID(context.Context, uuid.UUID, uuid.UUID) (*quotesrepo.Quotation, error) {
	q := s.draft
	return &q, nil
}

func TestLockRecheckRejectsConcurrentAuthorization(t *testing.T) {
	f := newFixture(t)
	draft := f.world.committed().quotations[f.quoteA]

	_, err := f.svc.AuthorizeQuotation(context.Background(), f.request(f.quoteA))
	require.NoError(t, err)

	f.svc.quotes = staleQuotes{QuotationReader: f.world, draft: draft}
	_, err = f.svc.AuthorizeQuotation(context.Background(), f.request(f.quoteA))
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.KindConflict))
	assert.Len(t, f.world.committed().events, 1)
}

func TestFailedStepRollsBackEverything(t *testing.T) {
	f := newFixture(t)
	f.world.fail["InsertPayment"] = errors.New("connection reset")
	before := f.world.committed()

	req := f.request(f.quoteA)
	req.Payment = &PaymentData{Amount: money.MustParse("100"), Method: "cash", PaidAt: time.Now(), Concept: "Advance"}
	_, err := f.svc.AuthorizeQuotation(context.Background(), req)
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.KindInternal))

	var stepErr *StepError
	require.ErrorAs(t, err, &stepErr)
	assert.Equal(t, StepRegisterPayment, stepErr.Step)

	assert.Equal(t, before, f.world.committed())
	assert.Empty(t, f.bus.events)
}

func TestSerializationFailureSurfacesAsConflict(t *testing.T) {
	f := newFixture(t)
	f.world.fail["SetLeadStage"] = &pgconn.PgError{Code: "40001"}

	_, err := f.svc.AuthorizeQuotation(context.Background(), f.request(f.quoteA))
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.KindConflict))
	assert.Equal(t, quotesrepo.StatusDraft, f.world.committed().quotations[f.quoteA].Status)
}

func TestContractFailureOnlyWarns(t *testing.T) {
	f := newFixture(t)
	f.world.fail["EnqueueContractRequest"] = errors.New("outbox unavailable")
	templateID := uuid.New()
	req := f.request(f.quoteA)
	req.ContractTemplateID = &templateID

	res, err := f.svc.AuthorizeQuotation(context.Background(), req)
	require.NoError(t, err)

	assert.False(t, res.ContractRequested)
	assert.Equal(t, []string{"request_contract failed"}, res.Warnings)
	st := f.world.committed()
	assert.Empty(t, st.contracts)
	assert.Equal(t, quotesrepo.StatusAuthorized, st.quotations[f.quoteA].Status)
}

func TestContractRequestIsRecorded(t *testing.T) {
	f := newFixture(t)
	templateID := uuid.New()
	req := f.request(f.quoteA)
	req.ContractTemplateID = &templateID

	res, err := f.svc.AuthorizeQuotation(context.Background(), req)
	require.NoError(t, err)

	assert.True(t, res.ContractRequested)
	assert.Equal(t, []uuid.UUID{templateID}, f.world.committed().contracts)
}

func TestPreconditionsRejectBeforeWriting(t *testing.T) {
	cases := []struct {
		name  string
		setup func(f *fixture, req *Request)
		kind  apperr.Kind
	}{
		{
			name: "missing event date",
			setup: func(f *fixture, _ *Request) {
				l := f.world.state.leads[f.leadID]
				l.EventDate = nil
				f.world.state.leads[f.leadID] = l
			},
			kind: apperr.KindValidation,
		},
		{
			name:  "lead of another studio",
			setup: func(_ *fixture, req *Request) { req.StudioID = uuid.New() },
			kind:  apperr.KindNotFound,
		},
		{
			name: "quotation of another lead",
			setup: func(f *fixture, req *Request) {
				other := uuid.New()
				f.world.state.leads[other] = f.world.state.leads[f.leadID]
				l := f.world.state.leads[other]
				l.ID = other
				f.world.state.leads[other] = l
				req.LeadID = other
			},
			kind: apperr.KindConflict,
		},
		{
			name: "lead without contact",
			setup: func(f *fixture, _ *Request) {
				l := f.world.state.leads[f.leadID]
				l.ContactID = nil
				f.world.state.leads[f.leadID] = l
			},
			kind: apperr.KindValidation,
		},
		{
			name:  "unknown condition",
			setup: func(_ *fixture, req *Request) { req.ConditionID = uuid.New() },
			kind:  apperr.KindValidation,
		},
		{
			name:  "amount mismatch",
			setup: func(_ *fixture, req *Request) { req.Amount = money.MustParse("1000") },
			kind:  apperr.KindValidation,
		},
		{
			name: "payment above total",
			setup: func(_ *fixture, req *Request) {
				req.Payment = &PaymentData{Amount: money.MustParse("900.01"), Method: "cash", PaidAt: time.Now()}
			},
			kind: apperr.KindValidation,
		},
		{
			name: "zero payment",
			setup: func(_ *fixture, req *Request) {
				req.Payment = &PaymentData{Amount: money.Zero, Method: "cash", PaidAt: time.Now()}
			},
			kind: apperr.KindValidation,
		},
		{
			name: "cancelled quotation",
			setup: func(f *fixture, req *Request) {
				req.QuotationID = f.cancelled
				req.Amount = money.MustParse("450")
			},
			kind: apperr.KindConflict,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t)
			req := f.request(f.quoteA)
			tc.setup(f, &req)
			before := f.world.committed()

			_, err := f.svc.AuthorizeQuotation(context.Background(), req)
			require.Error(t, err)
			assert.Equal(t, tc.kind, apperr.GetKind(err))
			assert.Equal(t, before, f.world.committed())
			assert.Empty(t, f.bus.events)
		})
	}
}

func TestNegotiatedQuotationAuthorizesAtNegotiatedTotal(t *testing.T) {
	f := newFixture(t)
	q := f.world.state.quotations[f.quoteA]
	price := money.MustParse("800")
	q.PricingMode = "negotiated"
	q.NegotiatedPrice = &price
	f.world.state.quotations[f.quoteA] = q

	fixed := uuid.New()
	f.conditions[fixed] = conditionsdomain.Condition{
		ID: fixed, StudioID: f.studioID, Name: "Fixed", Advance: conditionsdomain.FixedAdvance(money.MustParse("200")),
	}
	req := f.request(f.quoteA)
	req.ConditionID = fixed
	req.Amount = money.MustParse("800")

	res, err := f.svc.AuthorizeQuotation(context.Background(), req)
	require.NoError(t, err)
	assert.True(t, res.Breakdown.Advance.Equal(money.MustParse("200")))
	assert.True(t, res.Breakdown.Deferred.Equal(money.MustParse("600")))
}

func TestPricingEditDuringAuthorizationConflicts(t *testing.T) {
	f := newFixture(t)
	negotiated := money.MustParse("500")
	f.world.beforeTx = func(st *worldState) {
		q := st.quotations[f.quoteA]
		q.PricingMode = "negotiated"
		q.NegotiatedPrice = &negotiated
		st.quotations[f.quoteA] = q
	}

	_, err := f.svc.AuthorizeQuotation(context.Background(), f.request(f.quoteA))
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.KindConflict))
	assert.Contains(t, err.Error(), "pricing changed")

	st := f.world.committed()
	assert.Equal(t, quotesrepo.StatusDraft, st.quotations[f.quoteA].Status)
	assert.Empty(t, st.events)
	assert.Empty(t, st.followUps)
	assert.Empty(t, f.bus.events)
}

func TestPricingEditKeepingTotalAuthorizes(t *testing.T) {
	f := newFixture(t)
	f.world.beforeTx = func(st *worldState) {
		q := st.quotations[f.quoteA]
		q.Name = "Renamed"
		st.quotations[f.quoteA] = q
	}

	res, err := f.svc.AuthorizeQuotation(context.Background(), f.request(f.quoteA))
	require.NoError(t, err)
	assert.True(t, res.Breakdown.Total.Equal(money.MustParse("900")))
}

func TestFollowUpsCommitWithAuthorization(t *testing.T) {
	f := newFixture(t)
	actorID := uuid.New()
	req := f.request(f.quoteA)
	req.ActorID = &actorID

	res, err := f.svc.AuthorizeQuotation(context.Background(), req)
	require.NoError(t, err)

	st := f.world.committed()
	require.Len(t, st.followUps, 1)
	got := st.followUps[0]
	assert.Equal(t, res.EventID, got.EventID)
	assert.Equal(t, f.quoteA, got.QuotationID)
	assert.Equal(t, f.leadID, got.LeadID)
	assert.True(t, got.Total.Equal(money.MustParse("900")))
	assert.True(t, got.Deferred.Equal(money.MustParse("450")))
	assert.Equal(t, int64(1), got.ArchivedSiblings)
	assert.Equal(t, &actorID, got.ActorID)
}

func TestFollowUpsRollBackWithFailedStep(t *testing.T) {
	f := newFixture(t)
	f.world.fail["InsertPayment"] = errors.New("connection reset")
	req := f.request(f.quoteA)
	req.Payment = &PaymentData{Amount: money.MustParse("100"), Method: "cash", PaidAt: time.Now(), Concept: "Advance"}

	_, err := f.svc.AuthorizeQuotation(context.Background(), req)
	require.Error(t, err)
	assert.Empty(t, f.world.committed().followUps)
}

func TestFollowUpEnqueueFailureOnlyWarns(t *testing.T) {
	f := newFixture(t)
	f.world.fail["EnqueueFollowUps"] = errors.New("outbox unavailable")

	res, err := f.svc.AuthorizeQuotation(context.Background(), f.request(f.quoteA))
	require.NoError(t, err)
	assert.Equal(t, []string{"enqueue_followups failed"}, res.Warnings)

	st := f.world.committed()
	assert.Empty(t, st.followUps)
	assert.Equal(t, quotesrepo.StatusAuthorized, st.quotations[f.quoteA].Status)
}
