// Package auditlog records one entry per processed request, inbound
// webhook, and outbound delivery attempt, and enforces retention.
package auditlog

import (
	"time"

	"github.com/xraph/conduit/id"
	"github.com/xraph/conduit/internal/entity"
)

// Category names the subsystem a record belongs to.
type Category string

// Record categories.
const (
	CategoryEndpoint Category = "endpoint"
	CategoryIngest   Category = "ingest"
	CategoryDispatch Category = "dispatch"
)

// Status classifies the recorded outcome.
type Status string

// Record statuses.
const (
	StatusSuccess Status = "success"
	StatusError   Status = "error"
	StatusWarning Status = "warning"
)

// Record is one audit log entry.
type Record struct {
	entity.Entity

	// ID is the unique TypeID for this record.
	ID id.ID `json:"id"`

	// SubjectID references the endpoint, ingest webhook, or dispatch
	// webhook the record is about.
	SubjectID id.ID `json:"subject_id"`

	// Category names the subsystem that produced the record.
	Category Category `json:"category"`

	// Status classifies the outcome.
	Status Status `json:"status"`

	// HTTPCode is the response status sent or received.
	HTTPCode int `json:"http_code,omitempty"`

	// Method is the HTTP method involved.
	Method string `json:"method,omitempty"`

	// Request is a summary of the processed request.
	Request map[string]any `json:"request,omitempty"`

	// Response is a summary of the produced response.
	Response map[string]any `json:"response,omitempty"`

	// ExecutionTimeMs is the wall-clock processing time.
	ExecutionTimeMs int64 `json:"execution_time_ms"`

	// RetryCount is the delivery attempt number for dispatch records.
	RetryCount int `json:"retry_count,omitempty"`

	// Error holds the failure message for non-success records.
	Error string `json:"error,omitempty"`
}

// QueryOpts configures filtering and pagination for log queries.
type QueryOpts struct {
	Offset    int
	Limit     int
	SubjectID *id.ID
	Category  Category
	Status    Status
	Since     *time.Time
}
