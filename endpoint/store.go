package endpoint

import (
	"context"

	"github.com/xraph/conduit/id"
)

// Store defines the persistence contract for endpoint definitions.
type Store interface {
	// CreateEndpoint persists a new definition.
	CreateEndpoint(ctx context.Context, def *Definition) error

	// GetEndpoint returns a definition by ID.
	GetEndpoint(ctx context.Context, defID id.ID) (*Definition, error)

	// UpdateEndpoint modifies an existing definition.
	UpdateEndpoint(ctx context.Context, def *Definition) error

	// DeleteEndpoint removes a definition.
	DeleteEndpoint(ctx context.Context, defID id.ID) error

	// ListEndpoints returns definitions, optionally filtered.
	ListEndpoints(ctx context.Context, opts ListOpts) ([]*Definition, error)

	// ListActiveEndpoints returns every registrable definition. Called
	// when (re)building the router table.
	ListActiveEndpoints(ctx context.Context) ([]*Definition, error)

	// SetEndpointStatus changes a definition's lifecycle state.
	SetEndpointStatus(ctx context.Context, defID id.ID, status Status) error
}
