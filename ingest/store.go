package ingest

import (
	"context"

	"github.com/xraph/conduit/id"
)

// Store defines the persistence contract for inbound webhooks.
type Store interface {
	// CreateIngestWebhook persists a new webhook. Slugs are unique.
	CreateIngestWebhook(ctx context.Context, wh *Webhook) error

	// GetIngestWebhook returns a webhook by ID.
	GetIngestWebhook(ctx context.Context, whID id.ID) (*Webhook, error)

	// GetIngestWebhookBySlug returns a webhook by slug. The delivery
	// hot path.
	GetIngestWebhookBySlug(ctx context.Context, slug string) (*Webhook, error)

	// UpdateIngestWebhook modifies an existing webhook.
	UpdateIngestWebhook(ctx context.Context, wh *Webhook) error

	// DeleteIngestWebhook removes a webhook.
	DeleteIngestWebhook(ctx context.Context, whID id.ID) error

	// ListIngestWebhooks returns all webhooks.
	ListIngestWebhooks(ctx context.Context) ([]*Webhook, error)
}
