package controller

import (
	"context"
	"log/slog"
	"time"

	"github.com/xraph/conduit/id"
	"github.com/xraph/conduit/internal/entity"
)

// Input is the creation/update payload for controllers.
type Input struct {
	Name       string `json:"name"`
	HandlerRef string `json:"handler_ref,omitempty"`
	Code       string `json:"code,omitempty"`
	Status     Status `json:"status,omitempty"`
}

// Service provides controller management operations.
type Service struct {
	store  Store
	logger *slog.Logger
}

// NewService creates a new controller service.
func NewService(store Store, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{store: store, logger: logger}
}

// Create registers a new controller.
func (svc *Service) Create(ctx context.Context, in Input) (*Controller, error) {
	if in.Name == "" {
		return nil, &ValidationError{Field: "name", Message: "required"}
	}
	if in.HandlerRef == "" && in.Code == "" {
		return nil, &ValidationError{Field: "code", Message: "either handler_ref or code required"}
	}
	if in.HandlerRef != "" && in.Code != "" {
		return nil, &ValidationError{Field: "code", Message: "handler_ref and code are mutually exclusive"}
	}

	status := in.Status
	if status == "" {
		status = StatusActive
	}

	ctl := &Controller{
		Entity:     entity.New(),
		ID:         id.NewControllerID(),
		Name:       in.Name,
		HandlerRef: in.HandlerRef,
		Code:       in.Code,
		Status:     status,
	}
	if err := svc.store.CreateController(ctx, ctl); err != nil {
		return nil, err
	}

	svc.logger.InfoContext(ctx, "controller created",
		slog.String("controller_id", ctl.ID.String()),
		slog.String("name", ctl.Name))

	return ctl, nil
}

// Get returns a controller by ID.
func (svc *Service) Get(ctx context.Context, ctlID id.ID) (*Controller, error) {
	return svc.store.GetController(ctx, ctlID)
}

// Update modifies an existing controller.
func (svc *Service) Update(ctx context.Context, ctlID id.ID, in Input) (*Controller, error) {
	ctl, err := svc.store.GetController(ctx, ctlID)
	if err != nil {
		return nil, err
	}

	if in.Name != "" {
		ctl.Name = in.Name
	}
	if in.HandlerRef != "" {
		ctl.HandlerRef = in.HandlerRef
		ctl.Code = ""
	}
	if in.Code != "" {
		ctl.Code = in.Code
		ctl.HandlerRef = ""
	}
	if in.Status != "" {
		ctl.Status = in.Status
	}
	// Any change invalidates the previous validation stamp.
	ctl.LastValidatedAt = time.Time{}
	ctl.Touch()

	if err := svc.store.UpdateController(ctx, ctl); err != nil {
		return nil, err
	}
	return ctl, nil
}

// Delete removes a controller.
func (svc *Service) Delete(ctx context.Context, ctlID id.ID) error {
	return svc.store.DeleteController(ctx, ctlID)
}

// List returns all controllers.
func (svc *Service) List(ctx context.Context) ([]*Controller, error) {
	return svc.store.ListControllers(ctx)
}

// ValidationError indicates invalid input.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return "controller validation: " + e.Field + ": " + e.Message
}
