package auditlog

import (
	"context"
	"log/slog"
	"time"

	"github.com/xraph/conduit/id"
	"github.com/xraph/conduit/internal/entity"
)

// Entry is the append payload. The service assigns the record ID and
// timestamps.
type Entry struct {
	SubjectID       id.ID
	Category        Category
	Status          Status
	HTTPCode        int
	Method          string
	Request         map[string]any
	Response        map[string]any
	ExecutionTimeMs int64
	RetryCount      int
	Error           string
}

// Service appends and queries audit records.
type Service struct {
	store  Store
	logger *slog.Logger
}

// NewService creates a new audit log service.
func NewService(store Store, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{store: store, logger: logger}
}

// Append records an entry. A store failure is logged and swallowed:
// audit logging must never fail the request pipeline.
func (svc *Service) Append(ctx context.Context, e Entry) {
	rec := &Record{
		Entity:          entity.New(),
		ID:              id.NewLogRecordID(),
		SubjectID:       e.SubjectID,
		Category:        e.Category,
		Status:          e.Status,
		HTTPCode:        e.HTTPCode,
		Method:          e.Method,
		Request:         e.Request,
		Response:        e.Response,
		ExecutionTimeMs: e.ExecutionTimeMs,
		RetryCount:      e.RetryCount,
		Error:           e.Error,
	}
	if err := svc.store.AppendLog(ctx, rec); err != nil {
		svc.logger.ErrorContext(ctx, "audit append failed",
			slog.String("subject_id", e.SubjectID.String()),
			slog.String("category", string(e.Category)),
			slog.Any("error", err))
	}
}

// Get returns a record by ID.
func (svc *Service) Get(ctx context.Context, recID id.ID) (*Record, error) {
	return svc.store.GetLog(ctx, recID)
}

// Query returns records matching opts, newest first.
func (svc *Service) Query(ctx context.Context, opts QueryOpts) ([]*Record, error) {
	return svc.store.QueryLogs(ctx, opts)
}

// Delete removes a record.
func (svc *Service) Delete(ctx context.Context, recID id.ID) error {
	return svc.store.DeleteLog(ctx, recID)
}

// PurgeOlderThan removes records created before cutoff.
func (svc *Service) PurgeOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	return svc.store.PurgeLogsOlderThan(ctx, cutoff)
}

// Count returns the total number of records.
func (svc *Service) Count(ctx context.Context) (int64, error) {
	return svc.store.CountLogs(ctx)
}
