package controller

import (
	"context"

	"github.com/xraph/conduit/id"
)

// Store defines the persistence contract for controllers.
type Store interface {
	// CreateController persists a new controller.
	CreateController(ctx context.Context, ctl *Controller) error

	// GetController returns a controller by ID.
	GetController(ctx context.Context, ctlID id.ID) (*Controller, error)

	// UpdateController modifies an existing controller.
	UpdateController(ctx context.Context, ctl *Controller) error

	// DeleteController removes a controller.
	DeleteController(ctx context.Context, ctlID id.ID) error

	// ListControllers returns all controllers.
	ListControllers(ctx context.Context) ([]*Controller, error)
}
