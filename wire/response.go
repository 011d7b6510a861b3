package wire

import "net/http"

// Response is the outcome of a pipeline invocation, ready to be written by
// the HTTP edge.
type Response struct {
	// Status is the HTTP status code.
	Status int

	// Header holds response headers to set, if any.
	Header http.Header

	// Body is the response document. Encoded as JSON by the edge.
	Body any
}

// NewResponse returns a response with the given body and status.
func NewResponse(body any, status int) *Response {
	return &Response{Status: status, Body: body}
}

// OK returns a 200 response with the given body.
func OK(body any) *Response {
	return NewResponse(body, http.StatusOK)
}
