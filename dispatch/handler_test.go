package dispatch_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/xraph/conduit/auditlog"
	"github.com/xraph/conduit/bus"
	"github.com/xraph/conduit/dispatch"
	"github.com/xraph/conduit/store/memory"
)

type dispatchFixture struct {
	store   *memory.Store
	handler *dispatch.Handler
	service *dispatch.Service
	logs    *auditlog.Service
	bus     *bus.Bus
}

func newDispatchFixture(t *testing.T) *dispatchFixture {
	t.Helper()
	store := memory.New()
	b := bus.New(nil)
	logs := auditlog.NewService(store, nil)
	handler := dispatch.NewHandler(store, dispatch.NewSender(nil, nil), b, logs, nil)
	return &dispatchFixture{
		store:   store,
		handler: handler,
		service: dispatch.NewService(store, nil),
		logs:    logs,
		bus:     b,
	}
}

func TestTriggerEnqueuesPerWebhook(t *testing.T) {
	f := newDispatchFixture(t)
	ctx := context.Background()

	f.service.Create(ctx, dispatch.Input{
		Name: "a", URL: "https://a.example.com", TriggerEvents: []string{"order.created"},
	})
	f.service.Create(ctx, dispatch.Input{
		Name: "b", URL: "https://b.example.com", TriggerEvents: []string{"order.created", "order.paid"},
	})
	f.service.Create(ctx, dispatch.Input{
		Name: "inactive", URL: "https://c.example.com",
		TriggerEvents: []string{"order.created"}, Status: dispatch.StatusInactive,
	})

	n, err := f.handler.Trigger(ctx, "order.created", map[string]any{"order_id": "o-1"})
	if err != nil {
		t.Fatal(err)
	}
	if n != 2 {
		t.Fatalf("enqueued = %d, want 2 (inactive webhook skipped)", n)
	}

	due, _ := f.store.DequeueDue(ctx, time.Now().UTC().Add(time.Second), 10)
	if len(due) != 2 {
		t.Fatalf("due = %d", len(due))
	}
	for _, item := range due {
		if item.State != dispatch.StatePending || item.EventName != "order.created" {
			t.Errorf("item = %+v", item)
		}
	}
}

func TestRegisterTriggersSubscribesBus(t *testing.T) {
	f := newDispatchFixture(t)
	ctx := context.Background()

	f.service.Create(ctx, dispatch.Input{
		Name: "a", URL: "https://a.example.com", TriggerEvents: []string{"user.created"},
	})
	if err := f.handler.RegisterTriggers(ctx); err != nil {
		t.Fatal(err)
	}

	f.bus.Emit(ctx, bus.Event{Name: "user.created", Data: map[string]any{"id": 1}})

	due, _ := f.store.DequeueDue(ctx, time.Now().UTC().Add(time.Second), 10)
	if len(due) != 1 {
		t.Fatalf("due = %d, want 1 enqueued by bus event", len(due))
	}
}

func TestProcessSuccess(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	f := newDispatchFixture(t)
	ctx := context.Background()

	var emitted []string
	f.bus.Subscribe(bus.DispatchSent, func(_ context.Context, evt bus.Event) {
		emitted = append(emitted, evt.Name)
	})
	f.bus.Subscribe("crm.synced", func(_ context.Context, evt bus.Event) {
		emitted = append(emitted, evt.Name)
	})

	wh, _ := f.service.Create(ctx, dispatch.Input{
		Name: "crm", URL: srv.URL,
		TriggerEvents: []string{"order.created"},
		EmitEvents:    []string{"crm.synced"},
	})

	item, err := f.handler.ManualTrigger(ctx, wh.ID, map[string]any{"k": "v"})
	if err != nil {
		t.Fatal(err)
	}

	res := f.handler.Process(ctx, item)
	if !res.Success() || hits.Load() != 1 {
		t.Fatalf("res = %+v, hits = %d", res, hits.Load())
	}

	got, _ := f.store.GetQueueItem(ctx, item.ID)
	if got.State != dispatch.StateSent {
		t.Fatalf("state = %q", got.State)
	}

	if len(emitted) != 2 || emitted[0] != bus.DispatchSent || emitted[1] != "crm.synced" {
		t.Fatalf("emitted = %v", emitted)
	}

	recs, _ := f.logs.Query(ctx, auditlog.QueryOpts{Category: auditlog.CategoryDispatch})
	if len(recs) != 1 || recs[0].Status != auditlog.StatusSuccess {
		t.Fatalf("logs = %+v", recs)
	}
}

func TestProcessFailureSchedulesRetry(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	f := newDispatchFixture(t)
	ctx := context.Background()

	wh, _ := f.service.Create(ctx, dispatch.Input{
		Name: "flaky", URL: srv.URL,
		TriggerEvents:     []string{"x"},
		MaxRetries:        2,
		RetryDelaySeconds: 60,
	})
	item, _ := f.handler.ManualTrigger(ctx, wh.ID, nil)

	before := time.Now().UTC()
	f.handler.Process(ctx, item)

	got, _ := f.store.GetQueueItem(ctx, item.ID)
	if got.State != dispatch.StatePending || got.RetryCount != 1 {
		t.Fatalf("item = %+v", got)
	}
	// First failure waits the base delay; the doubling starts after.
	wait := got.NextAttemptAt.Sub(before)
	if wait < 55*time.Second || wait > 65*time.Second {
		t.Fatalf("backoff = %v", wait)
	}

	recs, _ := f.logs.Query(ctx, auditlog.QueryOpts{Category: auditlog.CategoryDispatch})
	if len(recs) != 1 || recs[0].Status != auditlog.StatusWarning {
		t.Fatalf("logs = %+v", recs)
	}
}

func TestProcessExhaustionFails(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	f := newDispatchFixture(t)
	ctx := context.Background()

	wh, _ := f.service.Create(ctx, dispatch.Input{
		Name: "dead", URL: srv.URL,
		TriggerEvents: []string{"x"},
		MaxRetries:    1,
	})
	item, _ := f.handler.ManualTrigger(ctx, wh.ID, nil)

	f.handler.Process(ctx, item) // retry 1 scheduled
	f.handler.Process(ctx, item) // exhausted

	got, _ := f.store.GetQueueItem(ctx, item.ID)
	if got.State != dispatch.StateFailed {
		t.Fatalf("state = %q", got.State)
	}
	if got.LastError == "" {
		t.Error("expected failure message")
	}
}

func TestManualTriggerInactiveWebhook(t *testing.T) {
	f := newDispatchFixture(t)
	ctx := context.Background()

	wh, _ := f.service.Create(ctx, dispatch.Input{
		Name: "off", URL: "https://x.example.com",
		TriggerEvents: []string{"x"}, Status: dispatch.StatusInactive,
	})
	if _, err := f.handler.ManualTrigger(ctx, wh.ID, nil); err == nil {
		t.Fatal("expected error for inactive webhook")
	}
}
