package wire

import "errors"

// Error is a machine-readable pipeline failure. Code is a stable identifier
// (e.g. "rate_limit_exceeded"), Status is the HTTP status to surface, and
// Details optionally carries structured context such as a validation error
// list.
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Status  int    `json:"-"`
	Details any    `json:"details,omitempty"`
}

// NewError returns an Error with the given code, message, and HTTP status.
func NewError(code, message string, status int) *Error {
	return &Error{Code: code, Message: message, Status: status}
}

// Error implements the error interface.
func (e *Error) Error() string {
	return e.Code + ": " + e.Message
}

// WithDetails returns a copy of the error carrying structured details.
func (e *Error) WithDetails(details any) *Error {
	clone := *e
	clone.Details = details
	return &clone
}

// Response encodes the error as an HTTP response with a structured body.
func (e *Error) Response() *Response {
	body := map[string]any{
		"code":    e.Code,
		"message": e.Message,
	}
	if e.Details != nil {
		body["errors"] = e.Details
	}
	return NewResponse(body, e.Status)
}

// AsError unwraps err into a *Error if possible.
func AsError(err error) (*Error, bool) {
	var werr *Error
	if errors.As(err, &werr) {
		return werr, true
	}
	return nil, false
}
