package conduit

import "errors"

// Sentinel errors returned by Conduit operations.
var (
	// ErrNoStore is returned when a Conduit is created without a store.
	ErrNoStore = errors.New("conduit: store is required")

	// ErrEndpointNotFound is returned when an endpoint definition cannot be found.
	ErrEndpointNotFound = errors.New("conduit: endpoint not found")

	// ErrControllerNotFound is returned when a controller cannot be found.
	ErrControllerNotFound = errors.New("conduit: controller not found")

	// ErrIngestWebhookNotFound is returned when an inbound webhook cannot be found.
	ErrIngestWebhookNotFound = errors.New("conduit: ingest webhook not found")

	// ErrDispatchWebhookNotFound is returned when an outbound webhook cannot be found.
	ErrDispatchWebhookNotFound = errors.New("conduit: dispatch webhook not found")

	// ErrQueueItemNotFound is returned when a dispatch queue item cannot be found.
	ErrQueueItemNotFound = errors.New("conduit: queue item not found")

	// ErrLogRecordNotFound is returned when an audit log record cannot be found.
	ErrLogRecordNotFound = errors.New("conduit: log record not found")

	// ErrDuplicateSlug is returned when an ingest webhook slug is already taken.
	ErrDuplicateSlug = errors.New("conduit: duplicate webhook slug")

	// ErrStoreClosed is returned when a store operation is attempted after the store is closed.
	ErrStoreClosed = errors.New("conduit: store is closed")

	// ErrMigrationFailed is returned when a database migration fails.
	ErrMigrationFailed = errors.New("conduit: migration failed")
)
