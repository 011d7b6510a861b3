// Package auth verifies inbound endpoint requests against the
// authentication mode configured on each endpoint.
package auth

import (
	"context"
	"crypto/subtle"
	"strings"

	"github.com/xraph/conduit/wire"
)

// Mode names the authentication scheme an endpoint requires.
type Mode string

// Supported authentication modes.
const (
	ModeNone      Mode = "none"
	ModeAPIKey    Mode = "api_key"
	ModeBearer    Mode = "bearer"
	ModeDelegated Mode = "delegated"
)

// TokenValidator checks a bearer token. Implementations typically call
// out to an identity provider or decode a signed token.
type TokenValidator interface {
	ValidateToken(ctx context.Context, token string) (bool, error)
}

// TokenValidatorFunc adapts a function to the TokenValidator interface.
type TokenValidatorFunc func(ctx context.Context, token string) (bool, error)

// ValidateToken calls f.
func (f TokenValidatorFunc) ValidateToken(ctx context.Context, token string) (bool, error) {
	return f(ctx, token)
}

// DelegatedFunc decides a request under the delegated mode, standing in
// for an external permission system.
type DelegatedFunc func(ctx context.Context, req *wire.Request) bool

// Verifier checks requests against a Mode. The zero Verifier rejects
// everything except ModeNone.
type Verifier struct {
	apiKeys   []string
	bearer    TokenValidator
	delegated DelegatedFunc
}

// Option configures a Verifier.
type Option func(*Verifier)

// WithAPIKeys sets the accepted API keys for ModeAPIKey.
func WithAPIKeys(keys ...string) Option {
	return func(v *Verifier) { v.apiKeys = keys }
}

// WithBearerValidator sets the validator consulted for ModeBearer.
func WithBearerValidator(tv TokenValidator) Option {
	return func(v *Verifier) { v.bearer = tv }
}

// WithDelegated sets the decision function for ModeDelegated.
func WithDelegated(fn DelegatedFunc) Option {
	return func(v *Verifier) { v.delegated = fn }
}

// NewVerifier builds a Verifier from the given options.
func NewVerifier(opts ...Option) *Verifier {
	v := &Verifier{}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Verify reports whether req satisfies mode. Unknown modes and modes
// whose collaborator is not configured fail closed.
func (v *Verifier) Verify(ctx context.Context, mode Mode, req *wire.Request) bool {
	switch mode {
	case ModeNone, "":
		return true
	case ModeAPIKey:
		return v.verifyAPIKey(req)
	case ModeBearer:
		return v.verifyBearer(ctx, req)
	case ModeDelegated:
		if v.delegated == nil {
			return false
		}
		return v.delegated(ctx, req)
	default:
		return false
	}
}

func (v *Verifier) verifyAPIKey(req *wire.Request) bool {
	presented := req.HeaderValue("X-API-Key")
	if presented == "" {
		presented = req.QueryValue("api_key")
	}
	if presented == "" {
		return false
	}
	// Compare against every configured key so timing does not reveal
	// which key, if any, matched.
	match := false
	for _, key := range v.apiKeys {
		if subtle.ConstantTimeCompare([]byte(presented), []byte(key)) == 1 {
			match = true
		}
	}
	return match
}

func (v *Verifier) verifyBearer(ctx context.Context, req *wire.Request) bool {
	if v.bearer == nil {
		return false
	}
	header := req.HeaderValue("Authorization")
	token, found := strings.CutPrefix(header, "Bearer ")
	if !found || token == "" {
		return false
	}
	ok, err := v.bearer.ValidateToken(ctx, token)
	return err == nil && ok
}
