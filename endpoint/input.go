package endpoint

import (
	"encoding/json"

	"github.com/xraph/conduit/auth"
	"github.com/xraph/conduit/id"
	"github.com/xraph/conduit/transform"
)

// Input is the creation/update payload for endpoint definitions.
type Input struct {
	// Name is a human-readable label.
	Name string `json:"name"`

	// Namespace is the URL prefix the route is mounted under.
	Namespace string `json:"namespace"`

	// Route is the path pattern within the namespace.
	Route string `json:"route"`

	// Methods are the accepted HTTP methods.
	Methods []string `json:"methods"`

	// Status controls whether the route is served. Defaults to active
	// on create.
	Status Status `json:"status,omitempty"`

	// CallbackType selects the execution strategy.
	CallbackType CallbackType `json:"callback_type"`

	// TargetURL is the upstream for the proxy strategy.
	TargetURL string `json:"target_url,omitempty"`

	// ControllerID names the controller for the controller strategy.
	ControllerID id.ID `json:"controller_id,omitzero"`

	// InlineCode is the expression evaluated by the inline strategy.
	InlineCode string `json:"inline_code,omitempty"`

	// TransformRules drive the transform strategy.
	TransformRules transform.RuleSet `json:"transform_rules,omitempty"`

	// AuthRequired gates the request on AuthMode when true.
	AuthRequired bool `json:"auth_required"`

	// AuthMode selects the authentication scheme.
	AuthMode auth.Mode `json:"auth_mode,omitempty"`

	// RateLimit is the maximum requests per minute per caller.
	RateLimit int `json:"rate_limit"`

	// CacheEnabled turns on response caching for GET requests.
	CacheEnabled bool `json:"cache_enabled"`

	// CacheTTLSeconds is the cached response lifetime.
	CacheTTLSeconds int `json:"cache_ttl_seconds"`

	// RequestSchema validates the inbound body when present.
	RequestSchema json.RawMessage `json:"request_schema,omitempty"`

	// ResponseSchema validates the outbound body when present.
	ResponseSchema json.RawMessage `json:"response_schema,omitempty"`
}

// ListOpts configures filtering and pagination for definition listing.
type ListOpts struct {
	Offset    int
	Limit     int
	Namespace string
	Status    Status
}
