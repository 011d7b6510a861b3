// Package bus provides the in-process event bus connecting domain events to
// dispatch triggers and ingest side effects. Delivery is synchronous, in
// registration order.
package bus

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/xraph/conduit/id"
)

// Built-in event names. Custom string-named events may be emitted alongside
// these for integration hooks.
const (
	// IngestReceived fires after an ingest webhook has accepted, validated,
	// and mapped a payload.
	IngestReceived = "conduit.ingest.received"

	// DispatchSent fires after an outbound webhook delivery succeeds.
	DispatchSent = "conduit.dispatch.sent"
)

// Event is the payload delivered to subscribers.
type Event struct {
	// Name is the event name this payload was emitted under.
	Name string `json:"name"`

	// WebhookID identifies the ingest or dispatch webhook that produced the
	// event, when applicable.
	WebhookID id.ID `json:"webhook_id,omitempty"`

	// Data is the primary payload (mapped data for ingest events).
	Data any `json:"data,omitempty"`

	// Raw is the unmapped payload, when it differs from Data.
	Raw any `json:"raw,omitempty"`

	// At is when the event was emitted.
	At time.Time `json:"at"`
}

// Handler consumes an event. Handlers run synchronously on the emitter's
// goroutine; a slow handler delays the pipeline that emitted.
type Handler func(ctx context.Context, evt Event)

// Bus is a synchronous publish/subscribe event bus.
type Bus struct {
	mu       sync.RWMutex
	handlers map[string][]Handler
	logger   *slog.Logger
}

// New creates an empty bus.
func New(logger *slog.Logger) *Bus {
	if logger == nil {
		logger = slog.Default()
	}
	return &Bus{
		handlers: make(map[string][]Handler),
		logger:   logger,
	}
}

// Subscribe registers a handler for the named event. Handlers for the same
// event run in registration order.
func (b *Bus) Subscribe(event string, h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[event] = append(b.handlers[event], h)
}

// Emit delivers the event to every subscriber of evt.Name, in registration
// order. A panicking handler is recovered and logged; remaining handlers
// still run.
func (b *Bus) Emit(ctx context.Context, evt Event) {
	if evt.At.IsZero() {
		evt.At = time.Now().UTC()
	}

	b.mu.RLock()
	handlers := b.handlers[evt.Name]
	b.mu.RUnlock()

	for _, h := range handlers {
		b.deliver(ctx, h, evt)
	}
}

// SubscriberCount returns the number of handlers registered for the event.
func (b *Bus) SubscriberCount(event string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.handlers[event])
}

func (b *Bus) deliver(ctx context.Context, h Handler, evt Event) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.ErrorContext(ctx, "event handler panicked",
				"event", evt.Name, "panic", r)
		}
	}()
	h(ctx, evt)
}
