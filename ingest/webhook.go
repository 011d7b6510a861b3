// Package ingest receives inbound webhooks: token and IP checks,
// payload validation, data mapping, and event emission.
package ingest

import (
	"encoding/json"
	"time"

	"github.com/xraph/conduit/id"
	"github.com/xraph/conduit/internal/entity"
	"github.com/xraph/conduit/transform"
)

// Status controls whether a webhook accepts deliveries.
type Status string

// Webhook lifecycle states.
const (
	StatusActive   Status = "active"
	StatusInactive Status = "inactive"
)

// Webhook is an inbound webhook registration. Senders deliver to the
// slug URL with the shared token.
type Webhook struct {
	entity.Entity

	// ID is the unique TypeID for this webhook.
	ID id.ID `json:"id"`

	// Name is a human-readable label.
	Name string `json:"name"`

	// Slug is the unique URL segment deliveries are posted to.
	Slug string `json:"slug"`

	// Token is the shared secret checked on every delivery. An empty
	// token disables the check. Never serialized.
	Token string `json:"-"`

	// AllowedIPs restricts senders when non-empty.
	AllowedIPs []string `json:"allowed_ips,omitempty"`

	// Status controls whether deliveries are accepted.
	Status Status `json:"status"`

	// MappingRules reshape the parsed payload before emission. Absent
	// rules pass the payload through unchanged.
	MappingRules transform.RuleSet `json:"mapping_rules,omitempty"`

	// ValidationSchema gates the parsed payload when present.
	ValidationSchema json.RawMessage `json:"validation_schema,omitempty"`

	// CustomEvents are emitted after the ingest event, in order.
	CustomEvents []string `json:"custom_events,omitempty"`
}

// Accepting reports whether the webhook accepts deliveries.
func (w *Webhook) Accepting() bool {
	return w.Status == StatusActive
}

// Ack is the acknowledgment body returned to the sender.
type Ack struct {
	Success          bool      `json:"success"`
	Message          string    `json:"message"`
	WebhookID        string    `json:"webhook_id,omitempty"`
	ActionsTriggered []string  `json:"actions_triggered"`
	Timestamp        time.Time `json:"timestamp"`
}
