package endpoint

import (
	"context"
	"log/slog"
	"net/url"
	"strings"

	"github.com/xraph/conduit/id"
	"github.com/xraph/conduit/internal/entity"
)

// Service provides endpoint definition management operations.
type Service struct {
	store  Store
	logger *slog.Logger
}

// NewService creates a new endpoint service.
func NewService(store Store, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		store:  store,
		logger: logger,
	}
}

// Create registers a new endpoint definition.
func (svc *Service) Create(ctx context.Context, in Input) (*Definition, error) {
	if err := validate(in); err != nil {
		return nil, err
	}

	status := in.Status
	if status == "" {
		status = StatusActive
	}

	def := &Definition{
		Entity:          entity.New(),
		ID:              id.NewEndpointID(),
		Name:            in.Name,
		Namespace:       strings.Trim(in.Namespace, "/"),
		Route:           "/" + strings.TrimLeft(in.Route, "/"),
		Methods:         normalizeMethods(in.Methods),
		Status:          status,
		CallbackType:    in.CallbackType,
		TargetURL:       in.TargetURL,
		ControllerID:    in.ControllerID,
		InlineCode:      in.InlineCode,
		TransformRules:  in.TransformRules,
		AuthRequired:    in.AuthRequired,
		AuthMode:        in.AuthMode,
		RateLimit:       in.RateLimit,
		CacheEnabled:    in.CacheEnabled,
		CacheTTLSeconds: in.CacheTTLSeconds,
		RequestSchema:   in.RequestSchema,
		ResponseSchema:  in.ResponseSchema,
	}

	if err := svc.store.CreateEndpoint(ctx, def); err != nil {
		return nil, err
	}

	svc.logger.InfoContext(ctx, "endpoint created",
		slog.String("endpoint_id", def.ID.String()),
		slog.String("route", def.Namespace+def.Route))

	return def, nil
}

// Get returns a definition by ID.
func (svc *Service) Get(ctx context.Context, defID id.ID) (*Definition, error) {
	return svc.store.GetEndpoint(ctx, defID)
}

// Update modifies an existing definition. Zero-valued fields in the
// input leave the stored value untouched.
func (svc *Service) Update(ctx context.Context, defID id.ID, in Input) (*Definition, error) {
	def, err := svc.store.GetEndpoint(ctx, defID)
	if err != nil {
		return nil, err
	}

	if in.Name != "" {
		def.Name = in.Name
	}
	if in.Namespace != "" {
		def.Namespace = strings.Trim(in.Namespace, "/")
	}
	if in.Route != "" {
		def.Route = "/" + strings.TrimLeft(in.Route, "/")
	}
	if len(in.Methods) > 0 {
		def.Methods = normalizeMethods(in.Methods)
	}
	if in.Status != "" {
		def.Status = in.Status
	}
	if in.CallbackType != "" {
		def.CallbackType = in.CallbackType
	}
	if in.TargetURL != "" {
		if _, err := url.ParseRequestURI(in.TargetURL); err != nil {
			return nil, &ValidationError{Field: "target_url", Message: "invalid URL"}
		}
		def.TargetURL = in.TargetURL
	}
	if !in.ControllerID.IsNil() {
		def.ControllerID = in.ControllerID
	}
	if in.InlineCode != "" {
		def.InlineCode = in.InlineCode
	}
	if in.TransformRules != nil {
		def.TransformRules = in.TransformRules
	}
	def.AuthRequired = in.AuthRequired
	if in.AuthMode != "" {
		def.AuthMode = in.AuthMode
	}
	if in.RateLimit >= 0 {
		def.RateLimit = in.RateLimit
	}
	def.CacheEnabled = in.CacheEnabled
	if in.CacheTTLSeconds > 0 {
		def.CacheTTLSeconds = in.CacheTTLSeconds
	}
	if in.RequestSchema != nil {
		def.RequestSchema = in.RequestSchema
	}
	if in.ResponseSchema != nil {
		def.ResponseSchema = in.ResponseSchema
	}
	def.Touch()

	if err := svc.store.UpdateEndpoint(ctx, def); err != nil {
		return nil, err
	}

	return def, nil
}

// Delete removes a definition.
func (svc *Service) Delete(ctx context.Context, defID id.ID) error {
	return svc.store.DeleteEndpoint(ctx, defID)
}

// List returns definitions, optionally filtered.
func (svc *Service) List(ctx context.Context, opts ListOpts) ([]*Definition, error) {
	return svc.store.ListEndpoints(ctx, opts)
}

// SetStatus changes a definition's lifecycle state.
func (svc *Service) SetStatus(ctx context.Context, defID id.ID, status Status) error {
	switch status {
	case StatusActive, StatusInactive, StatusTesting:
	default:
		return &ValidationError{Field: "status", Message: "unknown status " + string(status)}
	}
	return svc.store.SetEndpointStatus(ctx, defID, status)
}

func validate(in Input) error {
	if in.Namespace == "" {
		return &ValidationError{Field: "namespace", Message: "required"}
	}
	if in.Route == "" {
		return &ValidationError{Field: "route", Message: "required"}
	}
	if len(in.Methods) == 0 {
		return &ValidationError{Field: "methods", Message: "at least one HTTP method required"}
	}
	switch in.CallbackType {
	case CallbackProxy:
		if in.TargetURL == "" {
			return &ValidationError{Field: "target_url", Message: "required for proxy endpoints"}
		}
		if _, err := url.ParseRequestURI(in.TargetURL); err != nil {
			return &ValidationError{Field: "target_url", Message: "invalid URL"}
		}
	case CallbackController:
		if in.ControllerID.IsNil() {
			return &ValidationError{Field: "controller_id", Message: "required for controller endpoints"}
		}
	case CallbackInline:
		if in.InlineCode == "" {
			return &ValidationError{Field: "inline_code", Message: "required for inline endpoints"}
		}
	case CallbackTransform:
	default:
		return &ValidationError{Field: "callback_type", Message: "unknown callback type " + string(in.CallbackType)}
	}
	return nil
}

func normalizeMethods(methods []string) []string {
	out := make([]string, 0, len(methods))
	for _, m := range methods {
		m = strings.ToUpper(strings.TrimSpace(m))
		if m != "" {
			out = append(out, m)
		}
	}
	return out
}

// ValidationError indicates invalid input.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return "endpoint validation: " + e.Field + ": " + e.Message
}
