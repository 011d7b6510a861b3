// Package id defines TypeID-based identity types for all Conduit entities.
//
// Every entity in Conduit uses a single ID struct with a prefix that
// identifies the entity type. IDs are K-sortable (UUIDv7-based), globally
// unique, and URL-safe in the format "prefix_suffix".
package id

import (
	"database/sql/driver"
	"fmt"

	"go.jetify.com/typeid/v2"
)

// Prefix identifies the entity type encoded in a TypeID.
type Prefix string

// Prefix constants for all Conduit entity types.
const (
	PrefixEndpoint   Prefix = "ep"
	PrefixController Prefix = "ctl"
	PrefixIngest     Prefix = "inh"
	PrefixDispatch   Prefix = "outh"
	PrefixQueueItem  Prefix = "qi"
	PrefixLogRecord  Prefix = "log"
	PrefixSecret     Prefix = "chsec"
)

// ID is the primary identifier type for all Conduit entities.
// It wraps a TypeID providing a prefix-qualified, globally unique,
// sortable, URL-safe identifier in the format "prefix_suffix".
//
//nolint:recvcheck // Value receivers for read-only methods, pointer receivers for UnmarshalText/Scan.
type ID struct {
	inner typeid.TypeID
	valid bool
}

// Nil is the zero-value ID.
var Nil ID

// New generates a new globally unique ID with the given prefix.
// It panics if prefix is not a valid TypeID prefix (programming error).
func New(prefix Prefix) ID {
	tid, err := typeid.Generate(string(prefix))
	if err != nil {
		panic(fmt.Sprintf("id: invalid prefix %q: %v", prefix, err))
	}

	return ID{inner: tid, valid: true}
}

// Parse parses a TypeID string (e.g., "ep_01h455vb4pex5vsknk084sn02q")
// into an ID. Returns an error if the string is not valid.
func Parse(s string) (ID, error) {
	if s == "" {
		return Nil, fmt.Errorf("id: parse %q: empty string", s)
	}

	tid, err := typeid.Parse(s)
	if err != nil {
		return Nil, fmt.Errorf("id: parse %q: %w", s, err)
	}

	return ID{inner: tid, valid: true}, nil
}

// ParseWithPrefix parses a TypeID string and validates that its prefix
// matches the expected value.
func ParseWithPrefix(s string, expected Prefix) (ID, error) {
	parsed, err := Parse(s)
	if err != nil {
		return Nil, err
	}

	if parsed.Prefix() != expected {
		return Nil, fmt.Errorf("id: expected prefix %q, got %q", expected, parsed.Prefix())
	}

	return parsed, nil
}

// MustParse is like Parse but panics on error. Use for hardcoded ID values.
func MustParse(s string) ID {
	parsed, err := Parse(s)
	if err != nil {
		panic(fmt.Sprintf("id: must parse %q: %v", s, err))
	}

	return parsed
}

// ──────────────────────────────────────────────────
// Convenience constructors
// ──────────────────────────────────────────────────

// NewEndpointID generates a new unique endpoint definition ID.
func NewEndpointID() ID { return New(PrefixEndpoint) }

// NewControllerID generates a new unique controller ID.
func NewControllerID() ID { return New(PrefixController) }

// NewIngestID generates a new unique ingest webhook ID.
func NewIngestID() ID { return New(PrefixIngest) }

// NewDispatchID generates a new unique dispatch webhook ID.
func NewDispatchID() ID { return New(PrefixDispatch) }

// NewQueueItemID generates a new unique dispatch queue item ID.
func NewQueueItemID() ID { return New(PrefixQueueItem) }

// NewLogRecordID generates a new unique audit log record ID.
func NewLogRecordID() ID { return New(PrefixLogRecord) }

// ──────────────────────────────────────────────────
// Convenience parsers
// ──────────────────────────────────────────────────

// ParseEndpointID parses a string and validates the "ep" prefix.
func ParseEndpointID(s string) (ID, error) { return ParseWithPrefix(s, PrefixEndpoint) }

// ParseControllerID parses a string and validates the "ctl" prefix.
func ParseControllerID(s string) (ID, error) { return ParseWithPrefix(s, PrefixController) }

// ParseIngestID parses a string and validates the "inh" prefix.
func ParseIngestID(s string) (ID, error) { return ParseWithPrefix(s, PrefixIngest) }

// ParseDispatchID parses a string and validates the "outh" prefix.
func ParseDispatchID(s string) (ID, error) { return ParseWithPrefix(s, PrefixDispatch) }

// ParseQueueItemID parses a string and validates the "qi" prefix.
func ParseQueueItemID(s string) (ID, error) { return ParseWithPrefix(s, PrefixQueueItem) }

// ParseLogRecordID parses a string and validates the "log" prefix.
func ParseLogRecordID(s string) (ID, error) { return ParseWithPrefix(s, PrefixLogRecord) }

// ──────────────────────────────────────────────────
// Accessors
// ──────────────────────────────────────────────────

// String returns the full TypeID string representation (prefix_suffix).
// Returns an empty string for the Nil ID.
func (i ID) String() string {
	if !i.valid {
		return ""
	}

	return i.inner.String()
}

// Prefix returns the prefix component of this ID.
func (i ID) Prefix() Prefix {
	if !i.valid {
		return ""
	}

	return Prefix(i.inner.Prefix())
}

// IsNil reports whether this ID is the zero value.
func (i ID) IsNil() bool {
	return !i.valid
}

// ──────────────────────────────────────────────────
// Serialization
// ──────────────────────────────────────────────────

// MarshalText implements encoding.TextMarshaler.
func (i ID) MarshalText() ([]byte, error) {
	if !i.valid {
		return []byte{}, nil
	}

	return []byte(i.inner.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (i *ID) UnmarshalText(data []byte) error {
	if len(data) == 0 {
		*i = Nil

		return nil
	}

	parsed, err := Parse(string(data))
	if err != nil {
		return err
	}

	*i = parsed

	return nil
}

// Value implements driver.Valuer for database storage.
// Returns nil for the Nil ID so that optional foreign key columns store NULL.
func (i ID) Value() (driver.Value, error) {
	if !i.valid {
		return nil, nil //nolint:nilnil // nil is the canonical NULL for driver.Valuer
	}

	return i.inner.String(), nil
}

// Scan implements sql.Scanner for database retrieval.
func (i *ID) Scan(src any) error {
	if src == nil {
		*i = Nil

		return nil
	}

	switch v := src.(type) {
	case string:
		if v == "" {
			*i = Nil

			return nil
		}

		return i.UnmarshalText([]byte(v))
	case []byte:
		if len(v) == 0 {
			*i = Nil

			return nil
		}

		return i.UnmarshalText(v)
	default:
		return fmt.Errorf("id: cannot scan %T into ID", src)
	}
}
