package auth_test

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"testing"

	"github.com/xraph/conduit/auth"
	"github.com/xraph/conduit/wire"
)

func request(header http.Header, query url.Values) *wire.Request {
	if header == nil {
		header = http.Header{}
	}
	if query == nil {
		query = url.Values{}
	}
	return &wire.Request{Method: "GET", Path: "/x", Header: header, Query: query}
}

func TestVerifyModeNone(t *testing.T) {
	v := auth.NewVerifier()
	if !v.Verify(context.Background(), auth.ModeNone, request(nil, nil)) {
		t.Error("mode none should always pass")
	}
	if !v.Verify(context.Background(), "", request(nil, nil)) {
		t.Error("empty mode should behave as none")
	}
}

func TestVerifyAPIKey(t *testing.T) {
	v := auth.NewVerifier(auth.WithAPIKeys("key-a", "key-b"))
	ctx := context.Background()

	tests := []struct {
		name string
		req  *wire.Request
		want bool
	}{
		{"header match", request(http.Header{"X-Api-Key": {"key-a"}}, nil), true},
		{"second key", request(http.Header{"X-Api-Key": {"key-b"}}, nil), true},
		{"query match", request(nil, url.Values{"api_key": {"key-a"}}), true},
		{"header wins over query", request(http.Header{"X-Api-Key": {"key-a"}}, url.Values{"api_key": {"bogus"}}), true},
		{"wrong key", request(http.Header{"X-Api-Key": {"nope"}}, nil), false},
		{"absent", request(nil, nil), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := v.Verify(ctx, auth.ModeAPIKey, tt.req); got != tt.want {
				t.Errorf("Verify() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestVerifyBearer(t *testing.T) {
	v := auth.NewVerifier(auth.WithBearerValidator(
		auth.TokenValidatorFunc(func(_ context.Context, token string) (bool, error) {
			switch token {
			case "good":
				return true, nil
			case "boom":
				return true, errors.New("validator down")
			default:
				return false, nil
			}
		}),
	))
	ctx := context.Background()

	if !v.Verify(ctx, auth.ModeBearer, request(http.Header{"Authorization": {"Bearer good"}}, nil)) {
		t.Error("valid token rejected")
	}
	if v.Verify(ctx, auth.ModeBearer, request(http.Header{"Authorization": {"Bearer bad"}}, nil)) {
		t.Error("invalid token accepted")
	}
	if v.Verify(ctx, auth.ModeBearer, request(http.Header{"Authorization": {"good"}}, nil)) {
		t.Error("missing Bearer prefix accepted")
	}
	if v.Verify(ctx, auth.ModeBearer, request(nil, nil)) {
		t.Error("absent header accepted")
	}
	// Validator errors fail closed.
	if v.Verify(ctx, auth.ModeBearer, request(http.Header{"Authorization": {"Bearer boom"}}, nil)) {
		t.Error("validator error should reject")
	}
}

func TestVerifyBearerNoValidator(t *testing.T) {
	v := auth.NewVerifier()
	if v.Verify(context.Background(), auth.ModeBearer, request(http.Header{"Authorization": {"Bearer good"}}, nil)) {
		t.Error("bearer without validator should reject")
	}
}

func TestVerifyDelegated(t *testing.T) {
	allow := auth.NewVerifier(auth.WithDelegated(func(context.Context, *wire.Request) bool { return true }))
	deny := auth.NewVerifier(auth.WithDelegated(func(context.Context, *wire.Request) bool { return false }))
	unset := auth.NewVerifier()
	ctx := context.Background()

	if !allow.Verify(ctx, auth.ModeDelegated, request(nil, nil)) {
		t.Error("delegated allow rejected")
	}
	if deny.Verify(ctx, auth.ModeDelegated, request(nil, nil)) {
		t.Error("delegated deny accepted")
	}
	if unset.Verify(ctx, auth.ModeDelegated, request(nil, nil)) {
		t.Error("delegated without func should reject")
	}
}

func TestVerifyUnknownModeFailsClosed(t *testing.T) {
	v := auth.NewVerifier(auth.WithAPIKeys("key-a"))
	if v.Verify(context.Background(), "basic", request(http.Header{"X-Api-Key": {"key-a"}}, nil)) {
		t.Error("unknown mode should reject")
	}
}
