// Package notification runs the follow-ups of an authorized quotation.
// Authorization commits the outbox rows; this module delivers each row when
// the scheduler reports it due.
package notification

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"studio_portal_backend/internal/events"
	apphttp "studio_portal_backend/internal/http"
	notifhandler "studio_portal_backend/internal/notification/handler"
	"studio_portal_backend/internal/notification/inapp"
	"studio_portal_backend/internal/notification/outbox"
	"studio_portal_backend/internal/notification/sse"
	"studio_portal_backend/platform/cache"
	"studio_portal_backend/platform/config"
	"studio_portal_backend/platform/logger"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	outboxRetryBaseDelay = 30 * time.Second
	outboxRetryMaxDelay  = 30 * time.Minute

	invalidOutboxPayloadPrefix = "invalid outbox payload: "
)

// AuditWriter records the authorization on the lead timeline.
type AuditWriter interface {
	RecordQuotationAuthorized(ctx context.Context, studioID uuid.UUID, p outbox.QuoteApprovedPayload) error
}

// CalendarSyncer asks the calendar integration to pick up an event.
type CalendarSyncer interface {
	RequestSync(ctx context.Context, studioID, eventID uuid.UUID) error
}

// NotificationSink accepts studio notifications.
type NotificationSink interface {
	Notify(ctx context.Context, studioID uuid.UUID, eventType string, payload any) error
}

// ContractRequester asks for a contract document to be generated.
type ContractRequester interface {
	RequestContract(ctx context.Context, studioID, eventID, templateID uuid.UUID) error
}

// OutboxStore is the subset of the outbox repository the module drives.
type OutboxStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (outbox.Record, error)
	MarkProcessing(ctx context.Context, id uuid.UUID) error
	MarkSucceeded(ctx context.Context, id uuid.UUID) error
	MarkFailed(ctx context.Context, id uuid.UUID, lastError string) error
	ScheduleRetry(ctx context.Context, id uuid.UUID, runAt time.Time, lastError string) error
}

// Module handles follow-up event subscriptions and the in-app notification
// routes.
type Module struct {
	outbox    OutboxStore
	dedup     cache.DedupStore
	cfg       config.FollowUpConfig
	log       *logger.Logger
	now       func() time.Time
	audit     AuditWriter
	calendar  CalendarSyncer
	sink      NotificationSink
	contracts ContractRequester
	sse       *sse.Service
	inAppSvc  *inapp.Service
	inAppHTTP *notifhandler.HTTPHandler
}

// New creates the module with its pgx-backed outbox and in-app store. The
// in-app service is the default notification sink.
func New(pool *pgxpool.Pool, dedup cache.DedupStore, cfg config.FollowUpConfig, log *logger.Logger) *Module {
	m := newModule(outbox.New(pool), dedup, cfg, log)

	m.sse = sse.New(log)
	m.inAppSvc = inapp.NewService(inapp.NewRepository(pool), log)
	m.inAppSvc.SetSSE(m.sse)
	m.inAppHTTP = notifhandler.NewHTTPHandler(m.inAppSvc, m.sse)
	m.sink = m.inAppSvc
	return m
}

func newModule(store OutboxStore, dedup cache.DedupStore, cfg config.FollowUpConfig, log *logger.Logger) *Module {
	if dedup == nil {
		dedup = cache.NewMemoryDedupStore()
	}
	if log == nil {
		log = logger.Discard()
	}
	return &Module{
		outbox: store,
		dedup:  dedup,
		cfg:    cfg,
		log:    log,
		now:    time.Now,
	}
}

func (m *Module) SetAuditWriter(w AuditWriter) { m.audit = w }

func (m *Module) SetCalendarSyncer(s CalendarSyncer) { m.calendar = s }

func (m *Module) SetNotificationSink(s NotificationSink) { m.sink = s }

func (m *Module) SetContractRequester(r ContractRequester) { m.contracts = r }

func (m *Module) InAppService() *inapp.Service { return m.inAppSvc }

func (m *Module) Name() string { return "notification" }

func (m *Module) SSE() *sse.Service { return m.sse }

// RegisterRoutes mounts /notifications under the studio-scoped group.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	if m.inAppHTTP == nil {
		return
	}
	m.inAppHTTP.RegisterRoutes(ctx.Protected.Group("/notifications"))
}

var _ apphttp.Module = (*Module)(nil)

// RegisterHandlers subscribes to the follow-up events on the event bus.
func (m *Module) RegisterHandlers(bus events.Bus) {
	bus.Subscribe(events.QuotationAuthorized{}.EventName(), m)
	bus.Subscribe(events.FollowUpDue{}.EventName(), m)

	m.log.Info("notification module registered event handlers")
}

// Handle routes events to the appropriate handler method.
func (m *Module) Handle(ctx context.Context, event events.Event) error {
	switch e := event.(type) {
	case events.QuotationAuthorized:
		return m.handleQuotationAuthorized(ctx, e)
	case events.FollowUpDue:
		return m.handleFollowUpDue(ctx, e)
	default:
		m.log.Warn("unhandled event type", "event", event.EventName())
		return nil
	}
}

// handleQuotationAuthorized pushes a live quote_approved event to the studio's
// open streams. The follow-up rows themselves are committed by the
// authorization transaction.
func (m *Module) handleQuotationAuthorized(_ context.Context, e events.QuotationAuthorized) error {
	if m.sse == nil {
		return nil
	}
	m.sse.Publish(e.StudioID, sse.Event{
		Type:    sse.EventQuoteApproved,
		Message: "Quotation authorized",
		Data: outbox.QuoteApprovedPayload{
			QuotationID:      e.QuotationID,
			LeadID:           e.LeadID,
			EventID:          e.EventID,
			EventDate:        e.EventDate,
			Total:            e.Total,
			Advance:          e.Advance,
			Deferred:         e.Deferred,
			ArchivedSiblings: e.ArchivedSiblings,
			ActorID:          e.ActorID,
		},
	})
	return nil
}

func (m *Module) handleFollowUpDue(ctx context.Context, e events.FollowUpDue) error {
	if m.outbox == nil {
		m.log.Debug("outbox not configured; skipping follow-up", "outboxId", e.OutboxID)
		return nil
	}

	rec, process, err := m.prepareOutboxRecord(ctx, e.OutboxID)
	if err != nil {
		m.log.Error("failed to prepare outbox record", "outboxId", e.OutboxID, "error", err)
		return err
	}
	if !process {
		return nil
	}

	deliverCtx, cancel := context.WithTimeout(ctx, m.cfg.GetFollowUpTimeout())
	defer cancel()

	deliverErr := m.deliver(deliverCtx, rec)
	switch {
	case deliverErr == nil:
		if err := m.outbox.MarkSucceeded(ctx, rec.ID); err != nil {
			m.log.Error("failed to mark outbox record succeeded", "outboxId", rec.ID, "error", err)
			return err
		}
		m.log.Info("follow-up delivered", "outboxId", rec.ID, "kind", rec.Kind, "studioId", rec.StudioID)
	case isPermanent(deliverErr):
		_ = m.outbox.MarkFailed(ctx, rec.ID, deliverErr.Error())
		m.log.FollowUpFailure(rec.Kind, rec.ID.String(), deliverErr)
	default:
		if err := m.dedup.Release(ctx, dedupKey(rec.ID)); err != nil {
			m.log.Warn("failed to release follow-up claim", "outboxId", rec.ID, "error", err)
		}
		m.handleOutboxDeliveryError(ctx, rec, deliverErr)
	}
	return nil
}

// prepareOutboxRecord loads the row, skips finished or claimed work, and
// marks it processing. The bool reports whether the caller should deliver.
func (m *Module) prepareOutboxRecord(ctx context.Context, outboxID uuid.UUID) (outbox.Record, bool, error) {
	rec, err := m.outbox.GetByID(ctx, outboxID)
	if err != nil {
		return outbox.Record{}, false, err
	}
	if rec.Status == outbox.StatusSucceeded || rec.Status == outbox.StatusFailed {
		m.log.Debug("outbox record already finished; skipping", "outboxId", rec.ID, "status", rec.Status)
		return rec, false, nil
	}

	claimed, err := m.dedup.Claim(ctx, dedupKey(rec.ID), m.cfg.GetFollowUpDedupTTL())
	if err != nil {
		// outbox status still guards against redelivery of finished rows
		m.log.Warn("follow-up dedup unavailable", "outboxId", rec.ID, "error", err)
	} else if !claimed {
		m.log.Debug("follow-up already claimed; skipping", "outboxId", rec.ID)
		return rec, false, nil
	}

	if err := m.outbox.MarkProcessing(ctx, rec.ID); err != nil {
		_ = m.dedup.Release(ctx, dedupKey(rec.ID))
		return outbox.Record{}, false, err
	}
	return rec, true, nil
}

func (m *Module) deliver(ctx context.Context, rec outbox.Record) error {
	switch rec.Kind {
	case outbox.KindAudit:
		p, err := decodeQuoteApproved(rec)
		if err != nil {
			return err
		}
		if m.audit == nil {
			return permanent("audit writer not configured")
		}
		return m.audit.RecordQuotationAuthorized(ctx, rec.StudioID, p)
	case outbox.KindCalendarSync:
		p, err := decodeQuoteApproved(rec)
		if err != nil {
			return err
		}
		if m.calendar == nil {
			return permanent("calendar syncer not configured")
		}
		return m.calendar.RequestSync(ctx, rec.StudioID, p.EventID)
	case outbox.KindNotification:
		if m.sink == nil {
			return permanent("notification sink not configured")
		}
		return m.sink.Notify(ctx, rec.StudioID, rec.Template, rec.Payload)
	case outbox.KindContractGeneration:
		var p outbox.ContractPayload
		if err := json.Unmarshal(rec.Payload, &p); err != nil {
			return permanent(invalidOutboxPayloadPrefix + err.Error())
		}
		if m.contracts == nil {
			return permanent("contract requester not configured")
		}
		return m.contracts.RequestContract(ctx, rec.StudioID, p.EventID, p.TemplateID)
	default:
		return permanent(fmt.Sprintf("unsupported outbox kind %q", rec.Kind))
	}
}

func decodeQuoteApproved(rec outbox.Record) (outbox.QuoteApprovedPayload, error) {
	var p outbox.QuoteApprovedPayload
	if err := json.Unmarshal(rec.Payload, &p); err != nil {
		return p, permanent(invalidOutboxPayloadPrefix + err.Error())
	}
	if p.EventID == uuid.Nil {
		return p, permanent(invalidOutboxPayloadPrefix + "missing eventId")
	}
	return p, nil
}

func (m *Module) handleOutboxDeliveryError(ctx context.Context, rec outbox.Record, deliveryErr error) {
	attempt := rec.Attempts + 1
	maxAttempts := m.cfg.GetOutboxMaxAttempts()
	if attempt >= maxAttempts {
		_ = m.outbox.MarkFailed(ctx, rec.ID, deliveryErr.Error())
		m.log.Warn("follow-up exhausted retries",
			"outboxId", rec.ID.String(),
			"kind", rec.Kind,
			"attempt", attempt,
			"maxAttempts", maxAttempts,
			"error", deliveryErr,
		)
		return
	}

	retryAt := m.now().UTC().Add(computeOutboxRetryDelay(attempt))
	if err := m.outbox.ScheduleRetry(ctx, rec.ID, retryAt, deliveryErr.Error()); err != nil {
		_ = m.outbox.MarkFailed(ctx, rec.ID, deliveryErr.Error())
		m.log.Error("follow-up retry scheduling failed; marked failed",
			"outboxId", rec.ID.String(),
			"attempt", attempt,
			"error", err,
		)
		return
	}

	m.log.Warn("follow-up scheduled retry",
		"outboxId", rec.ID.String(),
		"kind", rec.Kind,
		"attempt", attempt,
		"maxAttempts", maxAttempts,
		"retryAt", retryAt,
		"error", deliveryErr,
	)
}

func computeOutboxRetryDelay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	if attempt > 16 {
		return outboxRetryMaxDelay
	}
	delay := outboxRetryBaseDelay << (attempt - 1)
	if delay > outboxRetryMaxDelay {
		return outboxRetryMaxDelay
	}
	return delay
}

func dedupKey(id uuid.UUID) string {
	return "followup:" + id.String()
}

// permanentError marks deliveries that retrying cannot fix.
type permanentError struct{ msg string }

func (e permanentError) Error() string { return e.msg }

func permanent(msg string) error { return permanentError{msg: msg} }

func isPermanent(err error) bool {
	var pe permanentError
	return errors.As(err, &pe)
}
