package dispatch

import (
	"time"

	"github.com/xraph/conduit/id"
	"github.com/xraph/conduit/internal/entity"
)

// State is the queue lifecycle of a delivery.
type State string

// Queue item states.
const (
	StatePending State = "pending"
	StateSent    State = "sent"
	StateFailed  State = "failed"
)

// Item is one queued delivery. A pending item becomes due when
// NextAttemptAt passes; it ends sent or failed.
type Item struct {
	entity.Entity

	// ID is the unique TypeID for this queue item.
	ID id.ID `json:"id"`

	// WebhookID references the webhook to deliver through.
	WebhookID id.ID `json:"webhook_id"`

	// EventName is the event that triggered the delivery.
	EventName string `json:"event_name"`

	// EventData is the event payload available to the template.
	EventData any `json:"event_data"`

	// TriggeredAt is when the trigger fired.
	TriggeredAt time.Time `json:"triggered_at"`

	// RetryCount is how many attempts have failed so far.
	RetryCount int `json:"retry_count"`

	// NextAttemptAt is when the item becomes due.
	NextAttemptAt time.Time `json:"next_attempt_at"`

	// State is the queue lifecycle state.
	State State `json:"state"`

	// LastError holds the most recent attempt failure.
	LastError string `json:"last_error,omitempty"`
}
