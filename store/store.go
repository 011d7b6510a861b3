// Package store defines the composite Store interface for all Conduit persistence.
//
// Each subsystem defines its own store interface next to its entities, and
// the aggregate Store composes them all. Implementations live in the
// subdirectories (memory, redis).
package store

import (
	"context"

	"github.com/xraph/conduit/auditlog"
	"github.com/xraph/conduit/controller"
	"github.com/xraph/conduit/dispatch"
	"github.com/xraph/conduit/endpoint"
	"github.com/xraph/conduit/ingest"
)

// Store is the aggregate persistence interface.
type Store interface {
	endpoint.Store
	controller.Store
	ingest.Store
	dispatch.Store
	auditlog.Store

	// Migrate runs all schema migrations.
	Migrate(ctx context.Context) error

	// Ping checks backend connectivity.
	Ping(ctx context.Context) error

	// Close closes the store connection.
	Close() error
}
