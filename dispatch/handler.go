package dispatch

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/xraph/conduit/auditlog"
	"github.com/xraph/conduit/bus"
	"github.com/xraph/conduit/id"
	"github.com/xraph/conduit/internal/entity"
)

// Handler connects the event bus to the delivery queue: trigger events
// enqueue items, and processed items report back to the log and the
// bus.
type Handler struct {
	store   Store
	sender  *Sender
	retrier *Retrier
	bus     *bus.Bus
	logs    *auditlog.Service
	logger  *slog.Logger
}

// NewHandler creates a dispatch handler.
func NewHandler(store Store, sender *Sender, b *bus.Bus, logs *auditlog.Service, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		store:   store,
		sender:  sender,
		retrier: NewRetrier(),
		bus:     b,
		logs:    logs,
		logger:  logger,
	}
}

// RegisterTriggers subscribes the handler to every event name any
// stored webhook triggers on. Call once at startup, after webhooks are
// loaded and before the bus starts receiving events.
func (h *Handler) RegisterTriggers(ctx context.Context) error {
	webhooks, err := h.store.ListDispatchWebhooks(ctx)
	if err != nil {
		return fmt.Errorf("list dispatch webhooks: %w", err)
	}

	seen := make(map[string]bool)
	for _, wh := range webhooks {
		for _, event := range wh.TriggerEvents {
			if seen[event] {
				continue
			}
			seen[event] = true
			h.bus.Subscribe(event, h.onEvent)
		}
	}
	return nil
}

// Watch subscribes the handler to a single event name. Used when a
// webhook is created after startup.
func (h *Handler) Watch(event string) {
	h.bus.Subscribe(event, h.onEvent)
}

func (h *Handler) onEvent(ctx context.Context, evt bus.Event) {
	if _, err := h.Trigger(ctx, evt.Name, evt.Data); err != nil {
		h.logger.ErrorContext(ctx, "trigger failed",
			slog.String("event", evt.Name),
			slog.Any("error", err))
	}
}

// Trigger enqueues one delivery per active webhook triggered by event.
// Returns how many deliveries were enqueued.
func (h *Handler) Trigger(ctx context.Context, event string, data any) (int, error) {
	webhooks, err := h.store.ListDispatchWebhooksByEvent(ctx, event)
	if err != nil {
		return 0, fmt.Errorf("resolve webhooks for %s: %w", event, err)
	}

	now := time.Now().UTC()
	enqueued := 0
	for _, wh := range webhooks {
		item := &Item{
			Entity:        entity.New(),
			ID:            id.NewQueueItemID(),
			WebhookID:     wh.ID,
			EventName:     event,
			EventData:     data,
			TriggeredAt:   now,
			NextAttemptAt: now,
			State:         StatePending,
		}
		if err := h.store.Enqueue(ctx, item); err != nil {
			h.logger.ErrorContext(ctx, "enqueue failed",
				slog.String("webhook_id", wh.ID.String()),
				slog.Any("error", err))
			continue
		}
		enqueued++
	}
	return enqueued, nil
}

// ManualTrigger enqueues a delivery for one webhook regardless of its
// trigger events. The webhook must be active.
func (h *Handler) ManualTrigger(ctx context.Context, whID id.ID, data any) (*Item, error) {
	wh, err := h.store.GetDispatchWebhook(ctx, whID)
	if err != nil {
		return nil, err
	}
	if !wh.Firing() {
		return nil, fmt.Errorf("webhook %s is not active", whID)
	}

	now := time.Now().UTC()
	item := &Item{
		Entity:        entity.New(),
		ID:            id.NewQueueItemID(),
		WebhookID:     wh.ID,
		EventName:     "manual",
		EventData:     data,
		TriggeredAt:   now,
		NextAttemptAt: now,
		State:         StatePending,
	}
	if err := h.store.Enqueue(ctx, item); err != nil {
		return nil, err
	}
	return item, nil
}

// Process runs one delivery attempt for item: send, decide, persist,
// log. Successful deliveries emit the webhook's emit events and the
// dispatch-sent event.
func (h *Handler) Process(ctx context.Context, item *Item) Result {
	wh, err := h.store.GetDispatchWebhook(ctx, item.WebhookID)
	if err != nil {
		// The webhook vanished under the queue; fail the item.
		item.State = StateFailed
		item.LastError = err.Error()
		item.Touch()
		if uerr := h.store.UpdateQueueItem(ctx, item); uerr != nil {
			h.logger.ErrorContext(ctx, "queue update failed",
				slog.String("item_id", item.ID.String()),
				slog.Any("error", uerr))
		}
		return Result{Error: err.Error()}
	}

	res := h.sender.Send(ctx, wh, item)

	switch h.retrier.Decide(res, wh, item) {
	case Delivered:
		item.State = StateSent
		item.LastError = ""
		h.recordAttempt(ctx, wh, item, res, auditlog.StatusSuccess)
		h.emitDelivered(ctx, wh, item)
	case Retry:
		item.NextAttemptAt = h.retrier.NextAttempt(wh, item.RetryCount)
		item.RetryCount++
		item.LastError = attemptError(res)
		h.recordAttempt(ctx, wh, item, res, auditlog.StatusWarning)
	case Failed:
		item.State = StateFailed
		item.LastError = attemptError(res)
		h.recordAttempt(ctx, wh, item, res, auditlog.StatusError)
	}

	item.Touch()
	if err := h.store.UpdateQueueItem(ctx, item); err != nil {
		h.logger.ErrorContext(ctx, "queue update failed",
			slog.String("item_id", item.ID.String()),
			slog.Any("error", err))
	}
	return res
}

func (h *Handler) emitDelivered(ctx context.Context, wh *Webhook, item *Item) {
	now := time.Now().UTC()
	h.bus.Emit(ctx, bus.Event{
		Name:      bus.DispatchSent,
		WebhookID: wh.ID,
		Data:      item.EventData,
		At:        now,
	})
	for _, name := range wh.EmitEvents {
		h.bus.Emit(ctx, bus.Event{
			Name:      name,
			WebhookID: wh.ID,
			Data:      item.EventData,
			At:        now,
		})
	}
}

func (h *Handler) recordAttempt(ctx context.Context, wh *Webhook, item *Item, res Result, status auditlog.Status) {
	h.logs.Append(ctx, auditlog.Entry{
		SubjectID: wh.ID,
		Category:  auditlog.CategoryDispatch,
		Status:    status,
		HTTPCode:  res.StatusCode,
		Method:    wh.Method,
		Request: map[string]any{
			"url":   wh.URL,
			"event": item.EventName,
		},
		Response: map[string]any{
			"body": res.Response,
		},
		ExecutionTimeMs: res.LatencyMs,
		RetryCount:      item.RetryCount,
		Error:           res.Error,
	})
}

func attemptError(res Result) string {
	if res.Error != "" {
		return res.Error
	}
	return fmt.Sprintf("unexpected status %d", res.StatusCode)
}
