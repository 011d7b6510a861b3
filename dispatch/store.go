package dispatch

import (
	"context"
	"time"

	"github.com/xraph/conduit/id"
)

// Store defines the persistence contract for outbound webhooks and
// their delivery queue.
type Store interface {
	// CreateDispatchWebhook persists a new webhook.
	CreateDispatchWebhook(ctx context.Context, wh *Webhook) error

	// GetDispatchWebhook returns a webhook by ID.
	GetDispatchWebhook(ctx context.Context, whID id.ID) (*Webhook, error)

	// UpdateDispatchWebhook modifies an existing webhook.
	UpdateDispatchWebhook(ctx context.Context, wh *Webhook) error

	// DeleteDispatchWebhook removes a webhook.
	DeleteDispatchWebhook(ctx context.Context, whID id.ID) error

	// ListDispatchWebhooks returns all webhooks.
	ListDispatchWebhooks(ctx context.Context) ([]*Webhook, error)

	// ListDispatchWebhooksByEvent returns active webhooks triggered by
	// event. The trigger hot path.
	ListDispatchWebhooksByEvent(ctx context.Context, event string) ([]*Webhook, error)

	// Enqueue persists a new queue item.
	Enqueue(ctx context.Context, item *Item) error

	// DequeueDue leases up to limit pending items due at now, ordered
	// by NextAttemptAt. Leased items are not returned again until
	// released by UpdateQueueItem.
	DequeueDue(ctx context.Context, now time.Time, limit int) ([]*Item, error)

	// GetQueueItem returns a queue item by ID.
	GetQueueItem(ctx context.Context, itemID id.ID) (*Item, error)

	// UpdateQueueItem persists an item's state after an attempt and
	// releases its lease.
	UpdateQueueItem(ctx context.Context, item *Item) error

	// PendingQueueCount returns the number of pending items.
	PendingQueueCount(ctx context.Context) (int64, error)
}
