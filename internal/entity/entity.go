// Package entity holds the embedded base type shared by persisted records.
package entity

import "time"

// Entity carries the timestamps every persisted record tracks.
type Entity struct {
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// New returns an Entity with both timestamps set to the current time.
func New() Entity {
	now := time.Now().UTC()
	return Entity{CreatedAt: now, UpdatedAt: now}
}

// Touch bumps UpdatedAt to the current time.
func (e *Entity) Touch() {
	e.UpdatedAt = time.Now().UTC()
}
