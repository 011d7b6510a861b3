// Package controller manages reusable code units and executes them
// against endpoint requests, either as registered native handlers or as
// sandboxed expression scripts.
package controller

import (
	"time"

	"github.com/xraph/conduit/id"
	"github.com/xraph/conduit/internal/entity"
)

// Status controls whether a controller may be executed.
type Status string

// Controller lifecycle states.
const (
	StatusActive   Status = "active"
	StatusInactive Status = "inactive"
)

// Controller is a reusable code unit endpoints can bind to. Exactly one
// of HandlerRef and Code should be set: HandlerRef names a native
// handler registered in the Registry, Code holds an expression script.
type Controller struct {
	entity.Entity

	// ID is the unique TypeID for this controller.
	ID id.ID `json:"id"`

	// Name is a human-readable label.
	Name string `json:"name"`

	// HandlerRef names a registered native handler.
	HandlerRef string `json:"handler_ref,omitempty"`

	// Code is the expression script executed when HandlerRef is empty.
	Code string `json:"code,omitempty"`

	// Status controls whether the controller may be executed.
	Status Status `json:"status"`

	// Methods are the HTTP methods the controller was detected to
	// support. Informational; dispatch always re-checks the handler.
	Methods []string `json:"methods,omitempty"`

	// LastValidatedAt records when the controller last passed
	// validation.
	LastValidatedAt time.Time `json:"last_validated_at,omitzero"`
}

// Runnable reports whether the controller may be executed.
func (c *Controller) Runnable() bool {
	return c.Status == StatusActive
}
