package endpoint_test

import (
	"context"
	"errors"
	"testing"

	"github.com/xraph/conduit"
	"github.com/xraph/conduit/endpoint"
	"github.com/xraph/conduit/id"
	"github.com/xraph/conduit/store/memory"
)

func ctx() context.Context { return context.Background() }

func newService() *endpoint.Service {
	return endpoint.NewService(memory.New(), nil)
}

func TestEndpointServiceCreate(t *testing.T) {
	svc := newService()

	def, err := svc.Create(ctx(), endpoint.Input{
		Name:         "get user",
		Namespace:    "acme/v1",
		Route:        "users/(?P<id>\\d+)",
		Methods:      []string{"get"},
		CallbackType: endpoint.CallbackTransform,
	})
	if err != nil {
		t.Fatal(err)
	}

	if def.ID.String() == "" {
		t.Fatal("expected non-empty ID")
	}
	if def.Status != endpoint.StatusActive {
		t.Fatalf("expected active by default, got %q", def.Status)
	}
	if def.Route != "/users/(?P<id>\\d+)" {
		t.Fatalf("route not normalized: %q", def.Route)
	}
	if def.Methods[0] != "GET" {
		t.Fatalf("method not uppercased: %q", def.Methods[0])
	}
}

func TestEndpointServiceCreateValidation(t *testing.T) {
	svc := newService()

	tests := []struct {
		name  string
		in    endpoint.Input
		field string
	}{
		{"missing namespace", endpoint.Input{Route: "/x", Methods: []string{"GET"}, CallbackType: endpoint.CallbackTransform}, "namespace"},
		{"missing route", endpoint.Input{Namespace: "n/v1", Methods: []string{"GET"}, CallbackType: endpoint.CallbackTransform}, "route"},
		{"missing methods", endpoint.Input{Namespace: "n/v1", Route: "/x", CallbackType: endpoint.CallbackTransform}, "methods"},
		{"proxy without target", endpoint.Input{Namespace: "n/v1", Route: "/x", Methods: []string{"GET"}, CallbackType: endpoint.CallbackProxy}, "target_url"},
		{"proxy bad target", endpoint.Input{Namespace: "n/v1", Route: "/x", Methods: []string{"GET"}, CallbackType: endpoint.CallbackProxy, TargetURL: "not a url"}, "target_url"},
		{"controller without id", endpoint.Input{Namespace: "n/v1", Route: "/x", Methods: []string{"GET"}, CallbackType: endpoint.CallbackController}, "controller_id"},
		{"inline without code", endpoint.Input{Namespace: "n/v1", Route: "/x", Methods: []string{"GET"}, CallbackType: endpoint.CallbackInline}, "inline_code"},
		{"unknown callback", endpoint.Input{Namespace: "n/v1", Route: "/x", Methods: []string{"GET"}, CallbackType: "magic"}, "callback_type"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Create(ctx(), tt.in)
			var verr *endpoint.ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("expected ValidationError, got %v", err)
			}
			if verr.Field != tt.field {
				t.Errorf("field = %q, want %q", verr.Field, tt.field)
			}
		})
	}
}

func TestEndpointServiceGetUpdateDelete(t *testing.T) {
	svc := newService()

	def, _ := svc.Create(ctx(), endpoint.Input{
		Namespace:    "acme/v1",
		Route:        "/orders",
		Methods:      []string{"GET", "POST"},
		CallbackType: endpoint.CallbackProxy,
		TargetURL:    "https://upstream.example.com/orders",
	})

	got, err := svc.Get(ctx(), def.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.TargetURL != "https://upstream.example.com/orders" {
		t.Fatalf("unexpected target: %q", got.TargetURL)
	}

	updated, err := svc.Update(ctx(), def.ID, endpoint.Input{
		RateLimit:    30,
		CacheEnabled: true, CacheTTLSeconds: 120,
	})
	if err != nil {
		t.Fatal(err)
	}
	if updated.RateLimit != 30 || !updated.CacheEnabled || updated.CacheTTLSeconds != 120 {
		t.Fatalf("update not applied: %+v", updated)
	}
	if updated.TargetURL != def.TargetURL {
		t.Fatal("unset fields must be preserved")
	}

	if err := svc.Delete(ctx(), def.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Get(ctx(), def.ID); !errors.Is(err, conduit.ErrEndpointNotFound) {
		t.Fatalf("expected ErrEndpointNotFound, got %v", err)
	}
}

func TestEndpointServiceSetStatus(t *testing.T) {
	svc := newService()

	def, _ := svc.Create(ctx(), endpoint.Input{
		Namespace:    "acme/v1",
		Route:        "/ping",
		Methods:      []string{"GET"},
		CallbackType: endpoint.CallbackTransform,
	})

	if err := svc.SetStatus(ctx(), def.ID, endpoint.StatusInactive); err != nil {
		t.Fatal(err)
	}
	got, _ := svc.Get(ctx(), def.ID)
	if got.Status != endpoint.StatusInactive {
		t.Fatalf("status = %q", got.Status)
	}
	if got.Registrable() {
		t.Fatal("inactive definition must not be registrable")
	}

	if err := svc.SetStatus(ctx(), def.ID, "paused"); err == nil {
		t.Fatal("expected error for unknown status")
	}
}

func TestStatusRegistrable(t *testing.T) {
	tests := []struct {
		status endpoint.Status
		want   bool
	}{
		{endpoint.StatusActive, true},
		{endpoint.StatusInactive, false},
		{endpoint.StatusTesting, false},
		{endpoint.Status(""), false},
	}
	for _, tt := range tests {
		if got := tt.status.Registrable(); got != tt.want {
			t.Errorf("Registrable(%q) = %v, want %v", tt.status, got, tt.want)
		}
	}
}

func TestEndpointServiceGetMissing(t *testing.T) {
	svc := newService()
	if _, err := svc.Get(ctx(), id.NewEndpointID()); !errors.Is(err, conduit.ErrEndpointNotFound) {
		t.Fatalf("expected ErrEndpointNotFound, got %v", err)
	}
}
