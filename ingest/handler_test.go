package ingest_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"sync"
	"testing"

	"github.com/xraph/conduit/auditlog"
	"github.com/xraph/conduit/bus"
	"github.com/xraph/conduit/ingest"
	"github.com/xraph/conduit/schema"
	"github.com/xraph/conduit/store/memory"
	"github.com/xraph/conduit/transform"
	"github.com/xraph/conduit/wire"
)

type fixture struct {
	handler *ingest.Handler
	service *ingest.Service
	logs    *auditlog.Service
	events  *eventSink
}

type eventSink struct {
	mu     sync.Mutex
	events []bus.Event
}

func (s *eventSink) record(_ context.Context, evt bus.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, evt)
}

func (s *eventSink) names() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	names := make([]string, len(s.events))
	for i, evt := range s.events {
		names[i] = evt.Name
	}
	return names
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := memory.New()
	b := bus.New(nil)
	sink := &eventSink{}
	b.Subscribe(bus.IngestReceived, sink.record)
	b.Subscribe("order.created", sink.record)

	logs := auditlog.NewService(store, nil)
	handler := ingest.NewHandler(store, schema.NewValidator(), transform.NewMapper(nil), b, logs, nil)
	return &fixture{
		handler: handler,
		service: ingest.NewService(store, nil),
		logs:    logs,
		events:  sink,
	}
}

func postJSON(body string) *wire.Request {
	return &wire.Request{
		Method:     "POST",
		Path:       "/webhook",
		Header:     http.Header{"Content-Type": {"application/json"}},
		Query:      url.Values{},
		Body:       []byte(body),
		RemoteAddr: "203.0.113.7:4411",
	}
}

func TestHandleSuccessWithMapping(t *testing.T) {
	f := newFixture(t)
	wh, err := f.service.Create(context.Background(), ingest.Input{
		Name: "orders", Slug: "orders", Token: "tok",
		MappingRules: transform.ParseRuleSet([]byte(`{"full_name":"name"}`)),
		CustomEvents: []string{"order.created"},
	})
	if err != nil {
		t.Fatal(err)
	}

	req := postJSON(`{"name":"Ada"}`)
	req.Header.Set("X-Webhook-Token", "tok")

	resp := f.handler.Handle(context.Background(), "orders", req)
	if resp.Status != 200 {
		t.Fatalf("status = %d, body = %v", resp.Status, resp.Body)
	}

	ack := resp.Body.(ingest.Ack)
	if !ack.Success || ack.WebhookID != wh.ID.String() {
		t.Fatalf("ack = %+v", ack)
	}
	if len(ack.ActionsTriggered) != 2 ||
		ack.ActionsTriggered[0] != bus.IngestReceived ||
		ack.ActionsTriggered[1] != "order.created" {
		t.Fatalf("actions = %v", ack.ActionsTriggered)
	}

	names := f.events.names()
	if len(names) != 2 || names[0] != bus.IngestReceived || names[1] != "order.created" {
		t.Fatalf("events = %v", names)
	}
	data := f.events.events[0].Data.(map[string]any)
	if data["full_name"] != "Ada" {
		t.Fatalf("mapped data = %v", data)
	}

	recs, _ := f.logs.Query(context.Background(), auditlog.QueryOpts{Category: auditlog.CategoryIngest})
	if len(recs) != 1 || recs[0].Status != auditlog.StatusSuccess {
		t.Fatalf("logs = %+v", recs)
	}
}

func TestHandleUnknownSlug(t *testing.T) {
	f := newFixture(t)

	resp := f.handler.Handle(context.Background(), "ghost", postJSON(`{}`))
	if resp.Status != 404 {
		t.Fatalf("status = %d", resp.Status)
	}
}

func TestHandleInactiveWebhook(t *testing.T) {
	f := newFixture(t)
	f.service.Create(context.Background(), ingest.Input{
		Name: "w", Slug: "w", Status: ingest.StatusInactive,
	})

	resp := f.handler.Handle(context.Background(), "w", postJSON(`{}`))
	if resp.Status != 403 {
		t.Fatalf("status = %d", resp.Status)
	}
	if len(f.events.names()) != 0 {
		t.Fatal("no events expected")
	}
}

func TestHandleBadToken(t *testing.T) {
	f := newFixture(t)
	f.service.Create(context.Background(), ingest.Input{Name: "w", Slug: "w", Token: "secret"})

	req := postJSON(`{}`)
	req.Header.Set("X-Webhook-Token", "wrong")
	resp := f.handler.Handle(context.Background(), "w", req)
	if resp.Status != 401 {
		t.Fatalf("status = %d", resp.Status)
	}

	// Token may also arrive as a query parameter.
	req = postJSON(`{}`)
	req.Query.Set("token", "secret")
	resp = f.handler.Handle(context.Background(), "w", req)
	if resp.Status != 200 {
		t.Fatalf("query token status = %d", resp.Status)
	}

	recs, _ := f.logs.Query(context.Background(), auditlog.QueryOpts{Status: auditlog.StatusError})
	if len(recs) != 1 {
		t.Fatalf("expected one rejection log, got %d", len(recs))
	}
}

func TestHandleEmptyTokenAcceptsUntokened(t *testing.T) {
	f := newFixture(t)
	wh, err := f.service.Create(context.Background(), ingest.Input{Name: "open", Slug: "open"})
	if err != nil {
		t.Fatal(err)
	}
	if wh.Token != "" {
		t.Fatalf("token = %q, want empty (no auth required)", wh.Token)
	}

	// No X-Webhook-Token header, no token query parameter.
	resp := f.handler.Handle(context.Background(), "open", postJSON(`{}`))
	if resp.Status != 200 {
		t.Fatalf("status = %d, body = %v", resp.Status, resp.Body)
	}
}

func TestHandleIPAllowList(t *testing.T) {
	f := newFixture(t)
	f.service.Create(context.Background(), ingest.Input{
		Name: "w", Slug: "w", AllowedIPs: []string{"198.51.100.1"},
	})

	resp := f.handler.Handle(context.Background(), "w", postJSON(`{}`))
	if resp.Status != 403 {
		t.Fatalf("status = %d", resp.Status)
	}

	req := postJSON(`{}`)
	req.Header = http.Header{"X-Forwarded-For": {"198.51.100.1"}}
	resp = f.handler.Handle(context.Background(), "w", req)
	if resp.Status != 200 {
		t.Fatalf("allowed IP status = %d", resp.Status)
	}
}

func TestHandleSchemaValidation(t *testing.T) {
	f := newFixture(t)
	f.service.Create(context.Background(), ingest.Input{
		Name: "w", Slug: "w",
		ValidationSchema: json.RawMessage(`{"type":"object","required":["name"]}`),
	})

	resp := f.handler.Handle(context.Background(), "w", postJSON(`{"other":1}`))
	if resp.Status != 400 {
		t.Fatalf("status = %d", resp.Status)
	}
	if len(f.events.names()) != 0 {
		t.Fatal("no events on validation failure")
	}

	resp = f.handler.Handle(context.Background(), "w", postJSON(`{"name":"Ada"}`))
	if resp.Status != 200 {
		t.Fatalf("valid payload status = %d", resp.Status)
	}
}

func TestHandlePayloadParsing(t *testing.T) {
	f := newFixture(t)
	f.service.Create(context.Background(), ingest.Input{Name: "w", Slug: "w"})

	// Form-encoded body.
	req := postJSON("a=1&b=2")
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if resp := f.handler.Handle(context.Background(), "w", req); resp.Status != 200 {
		t.Fatalf("form status = %d", resp.Status)
	}
	raw := f.events.events[len(f.events.events)-1].Raw.(map[string]any)
	if raw["a"] != "1" || raw["b"] != "2" {
		t.Fatalf("form payload = %v", raw)
	}

	// Plain text body wraps as raw.
	if resp := f.handler.Handle(context.Background(), "w", postJSON("hello world")); resp.Status != 200 {
		t.Fatalf("raw status = %d", resp.Status)
	}
	raw = f.events.events[len(f.events.events)-1].Raw.(map[string]any)
	if raw["raw"] != "hello world" {
		t.Fatalf("raw payload = %v", raw)
	}

	// Empty body parses to an empty document.
	if resp := f.handler.Handle(context.Background(), "w", postJSON("")); resp.Status != 200 {
		t.Fatalf("empty status = %d", resp.Status)
	}
}

func TestHandleNoMappingPassesRawThrough(t *testing.T) {
	f := newFixture(t)
	f.service.Create(context.Background(), ingest.Input{Name: "w", Slug: "w"})

	resp := f.handler.Handle(context.Background(), "w", postJSON(`{"k":"v"}`))
	if resp.Status != 200 {
		t.Fatalf("status = %d", resp.Status)
	}
	data := f.events.events[0].Data.(map[string]any)
	if data["k"] != "v" {
		t.Fatalf("data = %v", data)
	}
}
