package auditlog

import (
	"context"
	"time"

	"github.com/xraph/conduit/id"
)

// Store defines the persistence contract for audit records.
type Store interface {
	// AppendLog persists a new record.
	AppendLog(ctx context.Context, rec *Record) error

	// GetLog returns a record by ID.
	GetLog(ctx context.Context, recID id.ID) (*Record, error)

	// QueryLogs returns records matching opts, newest first.
	QueryLogs(ctx context.Context, opts QueryOpts) ([]*Record, error)

	// DeleteLog removes a record.
	DeleteLog(ctx context.Context, recID id.ID) error

	// PurgeLogsOlderThan removes records created before cutoff and
	// returns how many were removed.
	PurgeLogsOlderThan(ctx context.Context, cutoff time.Time) (int64, error)

	// CountLogs returns the total number of records.
	CountLogs(ctx context.Context) (int64, error)
}
