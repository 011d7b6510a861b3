// Package dispatch sends outbound webhooks: event-triggered queueing,
// payload templating, signed HTTP delivery, and retry with exponential
// backoff.
package dispatch

import (
	"github.com/xraph/conduit/id"
	"github.com/xraph/conduit/internal/entity"
)

// Status controls whether a webhook fires.
type Status string

// Webhook lifecycle states.
const (
	StatusActive   Status = "active"
	StatusInactive Status = "inactive"
)

// Webhook is an outbound webhook registration.
type Webhook struct {
	entity.Entity

	// ID is the unique TypeID for this webhook.
	ID id.ID `json:"id"`

	// Name is a human-readable label.
	Name string `json:"name"`

	// URL is the delivery target.
	URL string `json:"url"`

	// Method is the HTTP method used for delivery. Defaults to POST.
	Method string `json:"method,omitempty"`

	// PayloadTemplate shapes the delivery body. A JSON template is
	// rendered with placeholder substitution; a non-JSON template is
	// rendered and wrapped as {"data": rendered}; an empty template
	// sends the event envelope.
	PayloadTemplate string `json:"payload_template,omitempty"`

	// Headers are custom HTTP headers sent with each delivery. They
	// win over the defaults.
	Headers map[string]string `json:"headers,omitempty"`

	// TimeoutSeconds bounds each delivery attempt.
	TimeoutSeconds int `json:"timeout_seconds"`

	// MaxRetries is how many times a failed delivery is retried.
	MaxRetries int `json:"max_retries"`

	// RetryDelaySeconds is the backoff base. Attempt n waits
	// base * 2^n seconds.
	RetryDelaySeconds int `json:"retry_delay_seconds"`

	// TriggerEvents are the event names that fire this webhook.
	TriggerEvents []string `json:"trigger_events"`

	// EmitEvents are emitted on the bus after a successful delivery.
	EmitEvents []string `json:"emit_events,omitempty"`

	// Status controls whether the webhook fires.
	Status Status `json:"status"`

	// Secret signs deliveries when set. Never serialized.
	Secret string `json:"-"`
}

// Firing reports whether the webhook fires on its trigger events.
func (w *Webhook) Firing() bool {
	return w.Status == StatusActive
}

// TriggeredBy reports whether event fires this webhook.
func (w *Webhook) TriggeredBy(event string) bool {
	for _, name := range w.TriggerEvents {
		if name == event {
			return true
		}
	}
	return false
}
