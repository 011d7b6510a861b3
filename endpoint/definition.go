package endpoint

import (
	"encoding/json"

	"github.com/xraph/conduit/auth"
	"github.com/xraph/conduit/id"
	"github.com/xraph/conduit/internal/entity"
	"github.com/xraph/conduit/transform"
)

// Status controls whether a definition is served.
type Status string

// Definition lifecycle states. Only active definitions are routed;
// testing keeps a definition editable without serving it.
const (
	StatusActive   Status = "active"
	StatusInactive Status = "inactive"
	StatusTesting  Status = "testing"
)

// Registrable reports whether the status permits serving the route.
func (s Status) Registrable() bool {
	return s == StatusActive
}

// CallbackType selects the execution strategy for a definition.
type CallbackType string

// Supported execution strategies.
const (
	CallbackProxy      CallbackType = "proxy"
	CallbackController CallbackType = "controller"
	CallbackInline     CallbackType = "inline"
	CallbackTransform  CallbackType = "transform"
)

// Definition describes one dynamic API endpoint: where it is mounted,
// how requests are checked, and which strategy produces the response.
type Definition struct {
	entity.Entity

	// ID is the unique TypeID for this definition.
	ID id.ID `json:"id"`

	// Name is a human-readable label.
	Name string `json:"name"`

	// Namespace is the URL prefix the route is mounted under,
	// e.g. "acme/v1".
	Namespace string `json:"namespace"`

	// Route is the path pattern within the namespace. Named segments
	// use the (?P<name>pattern) form.
	Route string `json:"route"`

	// Methods are the accepted HTTP methods.
	Methods []string `json:"methods"`

	// Status controls whether the route is served.
	Status Status `json:"status"`

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
	// 0 means unlimited.
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

// Registrable reports whether the definition should be mounted on the
// router.
func (d *Definition) Registrable() bool {
	return d.Status.Registrable()
}
