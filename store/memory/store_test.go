package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/xraph/conduit"
	"github.com/xraph/conduit/auditlog"
	"github.com/xraph/conduit/controller"
	"github.com/xraph/conduit/dispatch"
	"github.com/xraph/conduit/endpoint"
	"github.com/xraph/conduit/id"
	"github.com/xraph/conduit/ingest"
	"github.com/xraph/conduit/internal/entity"
)

func ctx() context.Context { return context.Background() }

// ──────────────────────────────────────────────────
// Lifecycle
// ──────────────────────────────────────────────────

func TestLifecycle(t *testing.T) {
	s := New()

	if err := s.Migrate(ctx()); err != nil {
		t.Fatal(err)
	}
	if err := s.Ping(ctx()); err != nil {
		t.Fatal(err)
	}
	if err := s.Close(); err != nil {
		t.Fatal(err)
	}
	if err := s.Ping(ctx()); !errors.Is(err, conduit.ErrStoreClosed) {
		t.Fatalf("expected ErrStoreClosed, got %v", err)
	}
}

// ──────────────────────────────────────────────────
// endpoint.Store
// ──────────────────────────────────────────────────

func TestEndpointCRUD(t *testing.T) {
	s := New()

	def := &endpoint.Definition{
		Entity:       entity.New(),
		ID:           id.NewEndpointID(),
		Name:         "list things",
		Namespace:    "acme/v1",
		Route:        "/things",
		Methods:      []string{"GET"},
		Status:       endpoint.StatusActive,
		CallbackType: endpoint.CallbackTransform,
	}
	if err := s.CreateEndpoint(ctx(), def); err != nil {
		t.Fatal(err)
	}

	got, err := s.GetEndpoint(ctx(), def.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Route != "/things" {
		t.Fatalf("got route %q", got.Route)
	}

	_, err = s.GetEndpoint(ctx(), id.NewEndpointID())
	if !errors.Is(err, conduit.ErrEndpointNotFound) {
		t.Fatalf("expected ErrEndpointNotFound, got %v", err)
	}

	got.Name = "renamed"
	if err := s.UpdateEndpoint(ctx(), got); err != nil {
		t.Fatal(err)
	}
	got, _ = s.GetEndpoint(ctx(), def.ID)
	if got.Name != "renamed" {
		t.Fatalf("got name %q", got.Name)
	}

	if err := s.SetEndpointStatus(ctx(), def.ID, endpoint.StatusInactive); err != nil {
		t.Fatal(err)
	}
	got, _ = s.GetEndpoint(ctx(), def.ID)
	if got.Status != endpoint.StatusInactive {
		t.Fatalf("got status %q", got.Status)
	}

	if err := s.DeleteEndpoint(ctx(), def.ID); err != nil {
		t.Fatal(err)
	}
	if err := s.DeleteEndpoint(ctx(), def.ID); !errors.Is(err, conduit.ErrEndpointNotFound) {
		t.Fatalf("expected ErrEndpointNotFound, got %v", err)
	}
}

func TestListActiveEndpoints(t *testing.T) {
	s := New()

	statuses := []endpoint.Status{
		endpoint.StatusActive,
		endpoint.StatusInactive,
		endpoint.StatusTesting,
	}
	for _, st := range statuses {
		def := &endpoint.Definition{
			Entity:       entity.New(),
			ID:           id.NewEndpointID(),
			Namespace:    "acme/v1",
			Route:        "/" + string(st),
			Status:       st,
			CallbackType: endpoint.CallbackTransform,
		}
		if err := s.CreateEndpoint(ctx(), def); err != nil {
			t.Fatal(err)
		}
	}

	active, err := s.ListActiveEndpoints(ctx())
	if err != nil {
		t.Fatal(err)
	}
	if len(active) != 1 {
		t.Fatalf("expected 1 registrable endpoint, got %d", len(active))
	}
	if active[0].Status != endpoint.StatusActive {
		t.Fatalf("got status %q", active[0].Status)
	}
}

func TestListEndpointsFiltered(t *testing.T) {
	s := New()

	for i, ns := range []string{"acme/v1", "acme/v1", "other/v1"} {
		def := &endpoint.Definition{
			Entity:       entity.New(),
			ID:           id.NewEndpointID(),
			Namespace:    ns,
			Route:        "/r",
			Status:       endpoint.StatusActive,
			CallbackType: endpoint.CallbackTransform,
		}
		def.CreatedAt = def.CreatedAt.Add(time.Duration(i) * time.Millisecond)
		if err := s.CreateEndpoint(ctx(), def); err != nil {
			t.Fatal(err)
		}
	}

	list, err := s.ListEndpoints(ctx(), endpoint.ListOpts{Namespace: "acme/v1"})
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 2 {
		t.Fatalf("expected 2, got %d", len(list))
	}

	page, err := s.ListEndpoints(ctx(), endpoint.ListOpts{Offset: 1, Limit: 1})
	if err != nil {
		t.Fatal(err)
	}
	if len(page) != 1 {
		t.Fatalf("expected 1, got %d", len(page))
	}
}

// ──────────────────────────────────────────────────
// controller.Store
// ──────────────────────────────────────────────────

func TestControllerCRUD(t *testing.T) {
	s := New()

	ctl := &controller.Controller{
		Entity:     entity.New(),
		ID:         id.NewControllerID(),
		Name:       "orders",
		HandlerRef: "orders",
		Status:     controller.StatusActive,
	}
	if err := s.CreateController(ctx(), ctl); err != nil {
		t.Fatal(err)
	}

	got, err := s.GetController(ctx(), ctl.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Name != "orders" {
		t.Fatalf("got name %q", got.Name)
	}

	_, err = s.GetController(ctx(), id.NewControllerID())
	if !errors.Is(err, conduit.ErrControllerNotFound) {
		t.Fatalf("expected ErrControllerNotFound, got %v", err)
	}

	list, err := s.ListControllers(ctx())
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 1 {
		t.Fatalf("expected 1, got %d", len(list))
	}

	if err := s.DeleteController(ctx(), ctl.ID); err != nil {
		t.Fatal(err)
	}
	if err := s.UpdateController(ctx(), ctl); !errors.Is(err, conduit.ErrControllerNotFound) {
		t.Fatalf("expected ErrControllerNotFound, got %v", err)
	}
}

// ──────────────────────────────────────────────────
// ingest.Store
// ──────────────────────────────────────────────────

func TestIngestSlugIndex(t *testing.T) {
	s := New()

	wh := &ingest.Webhook{
		Entity: entity.New(),
		ID:     id.NewIngestID(),
		Name:   "orders",
		Slug:   "orders",
		Status: ingest.StatusActive,
	}
	if err := s.CreateIngestWebhook(ctx(), wh); err != nil {
		t.Fatal(err)
	}

	// Duplicate slug rejected.
	dup := &ingest.Webhook{
		Entity: entity.New(),
		ID:     id.NewIngestID(),
		Name:   "orders copy",
		Slug:   "orders",
	}
	if err := s.CreateIngestWebhook(ctx(), dup); !errors.Is(err, conduit.ErrDuplicateSlug) {
		t.Fatalf("expected ErrDuplicateSlug, got %v", err)
	}

	got, err := s.GetIngestWebhookBySlug(ctx(), "orders")
	if err != nil {
		t.Fatal(err)
	}
	if got.ID.String() != wh.ID.String() {
		t.Fatalf("slug lookup returned %s", got.ID)
	}

	// Renaming the slug moves the index entry.
	got.Slug = "orders-v2"
	if err := s.UpdateIngestWebhook(ctx(), got); err != nil {
		t.Fatal(err)
	}
	if _, err := s.GetIngestWebhookBySlug(ctx(), "orders"); !errors.Is(err, conduit.ErrIngestWebhookNotFound) {
		t.Fatalf("old slug still resolves: %v", err)
	}
	if _, err := s.GetIngestWebhookBySlug(ctx(), "orders-v2"); err != nil {
		t.Fatal(err)
	}

	if err := s.DeleteIngestWebhook(ctx(), wh.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := s.GetIngestWebhookBySlug(ctx(), "orders-v2"); !errors.Is(err, conduit.ErrIngestWebhookNotFound) {
		t.Fatalf("expected ErrIngestWebhookNotFound, got %v", err)
	}
}

func TestReadsAreIsolatedCopies(t *testing.T) {
	s := New()

	wh := &ingest.Webhook{
		Entity: entity.New(),
		ID:     id.NewIngestID(),
		Name:   "orders",
		Slug:   "orders",
		Status: ingest.StatusActive,
	}
	if err := s.CreateIngestWebhook(ctx(), wh); err != nil {
		t.Fatal(err)
	}

	// Mutating a fetched record must not leak into the store.
	got, _ := s.GetIngestWebhook(ctx(), wh.ID)
	got.Slug = "scratch"
	got.Status = ingest.StatusInactive

	stored, err := s.GetIngestWebhookBySlug(ctx(), "orders")
	if err != nil {
		t.Fatalf("stored record changed: %v", err)
	}
	if stored.Slug != "orders" || stored.Status != ingest.StatusActive {
		t.Fatalf("stored record mutated: %+v", stored)
	}

	// Mutating the record passed to Create must not leak either.
	wh.Slug = "scratch"
	if _, err := s.GetIngestWebhookBySlug(ctx(), "orders"); err != nil {
		t.Fatalf("stored record changed: %v", err)
	}
}

// ──────────────────────────────────────────────────
// dispatch.Store
// ──────────────────────────────────────────────────

func dispatchHook(event string, status dispatch.Status) *dispatch.Webhook {
	return &dispatch.Webhook{
		Entity:        entity.New(),
		ID:            id.NewDispatchID(),
		Name:          "crm",
		URL:           "https://crm.example.com/hook",
		TriggerEvents: []string{event},
		Status:        status,
	}
}

func TestListDispatchWebhooksByEvent(t *testing.T) {
	s := New()

	hooks := []*dispatch.Webhook{
		dispatchHook("order.created", dispatch.StatusActive),
		dispatchHook("order.created", dispatch.StatusInactive),
		dispatchHook("user.created", dispatch.StatusActive),
	}
	for _, wh := range hooks {
		if err := s.CreateDispatchWebhook(ctx(), wh); err != nil {
			t.Fatal(err)
		}
	}

	matched, err := s.ListDispatchWebhooksByEvent(ctx(), "order.created")
	if err != nil {
		t.Fatal(err)
	}
	if len(matched) != 1 {
		t.Fatalf("expected 1 hook, got %d", len(matched))
	}
	if matched[0].ID.String() != hooks[0].ID.String() {
		t.Fatalf("matched wrong hook %s", matched[0].ID)
	}
}

func TestQueueLeasing(t *testing.T) {
	s := New()
	now := time.Now().UTC()

	items := []*dispatch.Item{
		{Entity: entity.New(), ID: id.NewQueueItemID(), EventName: "a", State: dispatch.StatePending, NextAttemptAt: now.Add(-2 * time.Second)},
		{Entity: entity.New(), ID: id.NewQueueItemID(), EventName: "b", State: dispatch.StatePending, NextAttemptAt: now.Add(-1 * time.Second)},
		{Entity: entity.New(), ID: id.NewQueueItemID(), EventName: "c", State: dispatch.StatePending, NextAttemptAt: now.Add(time.Hour)},
		{Entity: entity.New(), ID: id.NewQueueItemID(), EventName: "d", State: dispatch.StateSent, NextAttemptAt: now.Add(-time.Hour)},
	}
	for _, item := range items {
		if err := s.Enqueue(ctx(), item); err != nil {
			t.Fatal(err)
		}
	}

	due, err := s.DequeueDue(ctx(), now, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(due) != 2 {
		t.Fatalf("expected 2 due items, got %d", len(due))
	}
	if due[0].EventName != "a" || due[1].EventName != "b" {
		t.Fatalf("wrong order: %s, %s", due[0].EventName, due[1].EventName)
	}

	// Leased items are invisible to a second dequeue.
	again, err := s.DequeueDue(ctx(), now, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(again) != 0 {
		t.Fatalf("expected 0 leased items, got %d", len(again))
	}

	// Updating releases the lease; a still-pending item comes back.
	due[0].State = dispatch.StatePending
	due[0].NextAttemptAt = now.Add(-time.Second)
	if err := s.UpdateQueueItem(ctx(), due[0]); err != nil {
		t.Fatal(err)
	}
	released, err := s.DequeueDue(ctx(), now, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(released) != 1 || released[0].EventName != "a" {
		t.Fatalf("expected item a back, got %v", released)
	}

	count, err := s.PendingQueueCount(ctx())
	if err != nil {
		t.Fatal(err)
	}
	if count != 3 {
		t.Fatalf("pending count = %d", count)
	}
}

func TestDequeueLimit(t *testing.T) {
	s := New()
	now := time.Now().UTC()

	for i := 0; i < 5; i++ {
		item := &dispatch.Item{
			Entity:        entity.New(),
			ID:            id.NewQueueItemID(),
			State:         dispatch.StatePending,
			NextAttemptAt: now.Add(time.Duration(-i) * time.Second),
		}
		if err := s.Enqueue(ctx(), item); err != nil {
			t.Fatal(err)
		}
	}

	due, err := s.DequeueDue(ctx(), now, 3)
	if err != nil {
		t.Fatal(err)
	}
	if len(due) != 3 {
		t.Fatalf("expected 3, got %d", len(due))
	}
}

// ──────────────────────────────────────────────────
// auditlog.Store
// ──────────────────────────────────────────────────

func TestQueryLogsNewestFirst(t *testing.T) {
	s := New()
	subject := id.NewEndpointID()

	for i := 1; i <= 3; i++ {
		rec := &auditlog.Record{
			Entity:    entity.New(),
			ID:        id.NewLogRecordID(),
			SubjectID: subject,
			Category:  auditlog.CategoryEndpoint,
			Status:    auditlog.StatusSuccess,
			HTTPCode:  200 + i,
		}
		if err := s.AppendLog(ctx(), rec); err != nil {
			t.Fatal(err)
		}
	}

	recs, err := s.QueryLogs(ctx(), auditlog.QueryOpts{})
	if err != nil {
		t.Fatal(err)
	}
	if len(recs) != 3 {
		t.Fatalf("expected 3 records, got %d", len(recs))
	}
	if recs[0].HTTPCode != 203 || recs[2].HTTPCode != 201 {
		t.Fatalf("not newest first: %d, %d", recs[0].HTTPCode, recs[2].HTTPCode)
	}

	page, err := s.QueryLogs(ctx(), auditlog.QueryOpts{Offset: 1, Limit: 1})
	if err != nil {
		t.Fatal(err)
	}
	if len(page) != 1 || page[0].HTTPCode != 202 {
		t.Fatalf("page = %+v", page)
	}

	filtered, err := s.QueryLogs(ctx(), auditlog.QueryOpts{SubjectID: &subject})
	if err != nil {
		t.Fatal(err)
	}
	if len(filtered) != 3 {
		t.Fatalf("expected 3 for subject, got %d", len(filtered))
	}
}

func TestPurgeLogs(t *testing.T) {
	s := New()

	old := &auditlog.Record{Entity: entity.New(), ID: id.NewLogRecordID(), Category: auditlog.CategoryIngest, Status: auditlog.StatusSuccess}
	old.CreatedAt = time.Now().UTC().Add(-48 * time.Hour)
	fresh := &auditlog.Record{Entity: entity.New(), ID: id.NewLogRecordID(), Category: auditlog.CategoryIngest, Status: auditlog.StatusSuccess}

	for _, rec := range []*auditlog.Record{old, fresh} {
		if err := s.AppendLog(ctx(), rec); err != nil {
			t.Fatal(err)
		}
	}

	purged, err := s.PurgeLogsOlderThan(ctx(), time.Now().UTC().Add(-24*time.Hour))
	if err != nil {
		t.Fatal(err)
	}
	if purged != 1 {
		t.Fatalf("purged = %d", purged)
	}

	count, err := s.CountLogs(ctx())
	if err != nil {
		t.Fatal(err)
	}
	if count != 1 {
		t.Fatalf("count = %d", count)
	}
	if _, err := s.GetLog(ctx(), old.ID); !errors.Is(err, conduit.ErrLogRecordNotFound) {
		t.Fatalf("expected ErrLogRecordNotFound, got %v", err)
	}
}
