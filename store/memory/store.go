// Package memory provides an in-memory Store implementation for unit testing.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/xraph/conduit"
	"github.com/xraph/conduit/auditlog"
	"github.com/xraph/conduit/controller"
	"github.com/xraph/conduit/dispatch"
	"github.com/xraph/conduit/endpoint"
	"github.com/xraph/conduit/id"
	"github.com/xraph/conduit/ingest"
	conduitstore "github.com/xraph/conduit/store"
)

// compile-time interface check.
var _ conduitstore.Store = (*Store)(nil)

// Store is an in-memory implementation of store.Store for testing.
type Store struct {
	mu sync.RWMutex

	endpoints     map[string]*endpoint.Definition // keyed by ID string
	controllers   map[string]*controller.Controller
	ingestHooks   map[string]*ingest.Webhook // keyed by ID string
	ingestBySlug  map[string]*ingest.Webhook // keyed by slug
	dispatchHooks map[string]*dispatch.Webhook
	queue         map[string]*dispatch.Item
	leased        map[string]bool // simulates SKIP LOCKED
	logs          map[string]*auditlog.Record
	logOrder      []string // record IDs in append order

	closed bool
}

// New creates a new in-memory store.
func New() *Store {
	return &Store{
		endpoints:     make(map[string]*endpoint.Definition),
		controllers:   make(map[string]*controller.Controller),
		ingestHooks:   make(map[string]*ingest.Webhook),
		ingestBySlug:  make(map[string]*ingest.Webhook),
		dispatchHooks: make(map[string]*dispatch.Webhook),
		queue:         make(map[string]*dispatch.Item),
		leased:        make(map[string]bool),
		logs:          make(map[string]*auditlog.Record),
	}
}

// ──────────────────────────────────────────────────
// Lifecycle
// ──────────────────────────────────────────────────

// Migrate is a no-op for the in-memory store.
func (s *Store) Migrate(_ context.Context) error { return nil }

// Ping is a no-op for the in-memory store.
func (s *Store) Ping(_ context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return conduit.ErrStoreClosed
	}
	return nil
}

// Close marks the store as closed.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// ──────────────────────────────────────────────────
// endpoint.Store
// ──────────────────────────────────────────────────

// CreateEndpoint persists a new definition.
func (s *Store) CreateEndpoint(_ context.Context, def *endpoint.Definition) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.endpoints[def.ID.String()] = clone(def)
	return nil
}

// GetEndpoint returns a definition by ID.
func (s *Store) GetEndpoint(_ context.Context, defID id.ID) (*endpoint.Definition, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	def, ok := s.endpoints[defID.String()]
	if !ok {
		return nil, conduit.ErrEndpointNotFound
	}
	return clone(def), nil
}

// UpdateEndpoint modifies an existing definition.
func (s *Store) UpdateEndpoint(_ context.Context, def *endpoint.Definition) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.endpoints[def.ID.String()]; !ok {
		return conduit.ErrEndpointNotFound
	}
	def.UpdatedAt = time.Now().UTC()
	s.endpoints[def.ID.String()] = clone(def)
	return nil
}

// DeleteEndpoint removes a definition.
func (s *Store) DeleteEndpoint(_ context.Context, defID id.ID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.endpoints[defID.String()]; !ok {
		return conduit.ErrEndpointNotFound
	}
	delete(s.endpoints, defID.String())
	return nil
}

// ListEndpoints returns definitions, optionally filtered.
func (s *Store) ListEndpoints(_ context.Context, opts endpoint.ListOpts) ([]*endpoint.Definition, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*endpoint.Definition, 0, len(s.endpoints))
	for _, def := range s.endpoints {
		if opts.Namespace != "" && def.Namespace != opts.Namespace {
			continue
		}
		if opts.Status != "" && def.Status != opts.Status {
			continue
		}
		result = append(result, clone(def))
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})

	result = applyPagination(result, opts.Offset, opts.Limit)
	return result, nil
}

// ListActiveEndpoints returns every registrable definition.
func (s *Store) ListActiveEndpoints(_ context.Context) ([]*endpoint.Definition, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*endpoint.Definition
	for _, def := range s.endpoints {
		if def.Status.Registrable() {
			result = append(result, clone(def))
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	return result, nil
}

// SetEndpointStatus changes a definition's lifecycle state.
func (s *Store) SetEndpointStatus(_ context.Context, defID id.ID, status endpoint.Status) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	def, ok := s.endpoints[defID.String()]
	if !ok {
		return conduit.ErrEndpointNotFound
	}
	def.Status = status
	def.UpdatedAt = time.Now().UTC()
	return nil
}

// ──────────────────────────────────────────────────
// controller.Store
// ──────────────────────────────────────────────────

// CreateController persists a new controller.
func (s *Store) CreateController(_ context.Context, ctl *controller.Controller) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.controllers[ctl.ID.String()] = clone(ctl)
	return nil
}

// GetController returns a controller by ID.
func (s *Store) GetController(_ context.Context, ctlID id.ID) (*controller.Controller, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ctl, ok := s.controllers[ctlID.String()]
	if !ok {
		return nil, conduit.ErrControllerNotFound
	}
	return clone(ctl), nil
}

// UpdateController modifies an existing controller.
func (s *Store) UpdateController(_ context.Context, ctl *controller.Controller) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.controllers[ctl.ID.String()]; !ok {
		return conduit.ErrControllerNotFound
	}
	ctl.UpdatedAt = time.Now().UTC()
	s.controllers[ctl.ID.String()] = clone(ctl)
	return nil
}

// DeleteController removes a controller.
func (s *Store) DeleteController(_ context.Context, ctlID id.ID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.controllers[ctlID.String()]; !ok {
		return conduit.ErrControllerNotFound
	}
	delete(s.controllers, ctlID.String())
	return nil
}

// ListControllers returns all controllers.
func (s *Store) ListControllers(_ context.Context) ([]*controller.Controller, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*controller.Controller, 0, len(s.controllers))
	for _, ctl := range s.controllers {
		result = append(result, clone(ctl))
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	return result, nil
}

// ──────────────────────────────────────────────────
// ingest.Store
// ──────────────────────────────────────────────────

// CreateIngestWebhook persists a new webhook. Slugs are unique.
func (s *Store) CreateIngestWebhook(_ context.Context, wh *ingest.Webhook) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.ingestBySlug[wh.Slug]; ok {
		return conduit.ErrDuplicateSlug
	}
	cp := clone(wh)
	s.ingestHooks[wh.ID.String()] = cp
	s.ingestBySlug[wh.Slug] = cp
	return nil
}

// GetIngestWebhook returns a webhook by ID.
func (s *Store) GetIngestWebhook(_ context.Context, whID id.ID) (*ingest.Webhook, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	wh, ok := s.ingestHooks[whID.String()]
	if !ok {
		return nil, conduit.ErrIngestWebhookNotFound
	}
	return clone(wh), nil
}

// GetIngestWebhookBySlug returns a webhook by slug.
func (s *Store) GetIngestWebhookBySlug(_ context.Context, slug string) (*ingest.Webhook, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	wh, ok := s.ingestBySlug[slug]
	if !ok {
		return nil, conduit.ErrIngestWebhookNotFound
	}
	return clone(wh), nil
}

// UpdateIngestWebhook modifies an existing webhook, keeping the slug
// index consistent.
func (s *Store) UpdateIngestWebhook(_ context.Context, wh *ingest.Webhook) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev, ok := s.ingestHooks[wh.ID.String()]
	if !ok {
		return conduit.ErrIngestWebhookNotFound
	}
	if prev.Slug != wh.Slug {
		if _, taken := s.ingestBySlug[wh.Slug]; taken {
			return conduit.ErrDuplicateSlug
		}
		delete(s.ingestBySlug, prev.Slug)
	}
	wh.UpdatedAt = time.Now().UTC()
	cp := clone(wh)
	s.ingestHooks[wh.ID.String()] = cp
	s.ingestBySlug[wh.Slug] = cp
	return nil
}

// DeleteIngestWebhook removes a webhook.
func (s *Store) DeleteIngestWebhook(_ context.Context, whID id.ID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	wh, ok := s.ingestHooks[whID.String()]
	if !ok {
		return conduit.ErrIngestWebhookNotFound
	}
	delete(s.ingestBySlug, wh.Slug)
	delete(s.ingestHooks, whID.String())
	return nil
}

// ListIngestWebhooks returns all webhooks.
func (s *Store) ListIngestWebhooks(_ context.Context) ([]*ingest.Webhook, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*ingest.Webhook, 0, len(s.ingestHooks))
	for _, wh := range s.ingestHooks {
		result = append(result, clone(wh))
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	return result, nil
}

// ──────────────────────────────────────────────────
// dispatch.Store
// ──────────────────────────────────────────────────

// CreateDispatchWebhook persists a new webhook.
func (s *Store) CreateDispatchWebhook(_ context.Context, wh *dispatch.Webhook) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.dispatchHooks[wh.ID.String()] = clone(wh)
	return nil
}

// GetDispatchWebhook returns a webhook by ID.
func (s *Store) GetDispatchWebhook(_ context.Context, whID id.ID) (*dispatch.Webhook, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	wh, ok := s.dispatchHooks[whID.String()]
	if !ok {
		return nil, conduit.ErrDispatchWebhookNotFound
	}
	return clone(wh), nil
}

// UpdateDispatchWebhook modifies an existing webhook.
func (s *Store) UpdateDispatchWebhook(_ context.Context, wh *dispatch.Webhook) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.dispatchHooks[wh.ID.String()]; !ok {
		return conduit.ErrDispatchWebhookNotFound
	}
	wh.UpdatedAt = time.Now().UTC()
	s.dispatchHooks[wh.ID.String()] = clone(wh)
	return nil
}

// DeleteDispatchWebhook removes a webhook.
func (s *Store) DeleteDispatchWebhook(_ context.Context, whID id.ID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.dispatchHooks[whID.String()]; !ok {
		return conduit.ErrDispatchWebhookNotFound
	}
	delete(s.dispatchHooks, whID.String())
	return nil
}

// ListDispatchWebhooks returns all webhooks.
func (s *Store) ListDispatchWebhooks(_ context.Context) ([]*dispatch.Webhook, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*dispatch.Webhook, 0, len(s.dispatchHooks))
	for _, wh := range s.dispatchHooks {
		result = append(result, clone(wh))
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	return result, nil
}

// ListDispatchWebhooksByEvent returns active webhooks triggered by event.
func (s *Store) ListDispatchWebhooksByEvent(_ context.Context, event string) ([]*dispatch.Webhook, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*dispatch.Webhook
	for _, wh := range s.dispatchHooks {
		if wh.Firing() && wh.TriggeredBy(event) {
			result = append(result, clone(wh))
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	return result, nil
}

// Enqueue persists a new queue item.
func (s *Store) Enqueue(_ context.Context, item *dispatch.Item) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.queue[item.ID.String()] = clone(item)
	return nil
}

// DequeueDue leases up to limit pending items due at now (concurrent-safe).
// Returns copies so callers can mutate without holding a lock.
func (s *Store) DequeueDue(_ context.Context, now time.Time, limit int) ([]*dispatch.Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	candidates := make([]*dispatch.Item, 0, len(s.queue))
	for _, item := range s.queue {
		if item.State != dispatch.StatePending {
			continue
		}
		if item.NextAttemptAt.After(now) {
			continue
		}
		if s.leased[item.ID.String()] {
			continue
		}
		candidates = append(candidates, item)
	}

	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].NextAttemptAt.Before(candidates[j].NextAttemptAt)
	})

	if limit > 0 && limit < len(candidates) {
		candidates = candidates[:limit]
	}

	result := make([]*dispatch.Item, 0, len(candidates))
	for _, item := range candidates {
		s.leased[item.ID.String()] = true
		result = append(result, clone(item))
	}
	return result, nil
}

// GetQueueItem returns a copy of the queue item by ID.
func (s *Store) GetQueueItem(_ context.Context, itemID id.ID) (*dispatch.Item, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	item, ok := s.queue[itemID.String()]
	if !ok {
		return nil, conduit.ErrQueueItemNotFound
	}
	return clone(item), nil
}

// UpdateQueueItem persists an item's state and releases its lease.
func (s *Store) UpdateQueueItem(_ context.Context, item *dispatch.Item) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.queue[item.ID.String()]; !ok {
		return conduit.ErrQueueItemNotFound
	}
	item.UpdatedAt = time.Now().UTC()
	s.queue[item.ID.String()] = clone(item)
	delete(s.leased, item.ID.String())
	return nil
}

// PendingQueueCount returns the number of pending items.
func (s *Store) PendingQueueCount(_ context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var count int64
	for _, item := range s.queue {
		if item.State == dispatch.StatePending {
			count++
		}
	}
	return count, nil
}

// ──────────────────────────────────────────────────
// auditlog.Store
// ──────────────────────────────────────────────────

// AppendLog persists a new record.
func (s *Store) AppendLog(_ context.Context, rec *auditlog.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.logs[rec.ID.String()] = clone(rec)
	s.logOrder = append(s.logOrder, rec.ID.String())
	return nil
}

// GetLog returns a record by ID.
func (s *Store) GetLog(_ context.Context, recID id.ID) (*auditlog.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.logs[recID.String()]
	if !ok {
		return nil, conduit.ErrLogRecordNotFound
	}
	return clone(rec), nil
}

// QueryLogs returns records matching opts, newest first. Insertion
// order breaks CreatedAt ties so pagination stays stable.
func (s *Store) QueryLogs(_ context.Context, opts auditlog.QueryOpts) ([]*auditlog.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*auditlog.Record, 0, len(s.logOrder))
	for i := len(s.logOrder) - 1; i >= 0; i-- {
		rec, ok := s.logs[s.logOrder[i]]
		if !ok {
			continue
		}
		if !matchLogOpts(rec, opts) {
			continue
		}
		result = append(result, clone(rec))
	}

	result = applyPagination(result, opts.Offset, opts.Limit)
	return result, nil
}

// DeleteLog removes a record.
func (s *Store) DeleteLog(_ context.Context, recID id.ID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.logs[recID.String()]; !ok {
		return conduit.ErrLogRecordNotFound
	}
	delete(s.logs, recID.String())
	return nil
}

// PurgeLogsOlderThan removes records created before cutoff.
func (s *Store) PurgeLogsOlderThan(_ context.Context, cutoff time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var count int64
	for k, rec := range s.logs {
		if rec.CreatedAt.Before(cutoff) {
			delete(s.logs, k)
			count++
		}
	}
	return count, nil
}

// CountLogs returns the total number of records.
func (s *Store) CountLogs(_ context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return int64(len(s.logs)), nil
}

// ──────────────────────────────────────────────────
// Helpers
// ──────────────────────────────────────────────────

func matchLogOpts(rec *auditlog.Record, opts auditlog.QueryOpts) bool {
	if opts.SubjectID != nil && rec.SubjectID.String() != opts.SubjectID.String() {
		return false
	}
	if opts.Category != "" && rec.Category != opts.Category {
		return false
	}
	if opts.Status != "" && rec.Status != opts.Status {
		return false
	}
	if opts.Since != nil && rec.CreatedAt.Before(*opts.Since) {
		return false
	}
	return true
}

// clone returns a shallow copy so the store and its callers never share
// a mutable record.
func clone[T any](v *T) *T {
	cp := *v
	return &cp
}

func applyPagination[T any](items []*T, offset, limit int) []*T {
	if offset > 0 && offset < len(items) {
		items = items[offset:]
	} else if offset >= len(items) && offset > 0 {
		return nil
	}

	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}

	return items
}
