// Package wire defines the framework-agnostic request/response types that
// flow through the Conduit pipelines. The HTTP edge (package server) adapts
// gin contexts into these types; everything below the edge depends only on
// this package.
package wire

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net"
	"net/http"
	"net/url"
	"strings"
)

// Request is an inbound HTTP request as seen by the engine and ingest
// pipelines.
type Request struct {
	// Method is the HTTP method, uppercase.
	Method string

	// Path is the request path as matched.
	Path string

	// Header holds the request headers.
	Header http.Header

	// Query holds the parsed query string parameters.
	Query url.Values

	// Params holds named route captures (e.g. {slug}).
	Params map[string]string

	// Body is the raw request body.
	Body []byte

	// RemoteAddr is the direct connection address ("ip:port" or "ip").
	RemoteAddr string
}

// proxyHeaders is the priority list consulted when deriving the client IP.
// The direct connection address is the fallback.
var proxyHeaders = []string{
	"Client-IP",
	"X-Forwarded-For",
	"X-Forwarded",
	"Forwarded-For",
	"Forwarded",
}

// HeaderValue returns the first value of the named header.
func (r *Request) HeaderValue(name string) string {
	if r.Header == nil {
		return ""
	}
	return r.Header.Get(name)
}

// QueryValue returns the first value of the named query parameter.
func (r *Request) QueryValue(name string) string {
	if r.Query == nil {
		return ""
	}
	return r.Query.Get(name)
}

// Param returns the named route capture, or "".
func (r *Request) Param(name string) string {
	return r.Params[name]
}

// JSONBody decodes the request body as JSON. Returns (nil, false) when the
// body is empty or not valid JSON.
func (r *Request) JSONBody() (any, bool) {
	if len(r.Body) == 0 {
		return nil, false
	}

	var v any
	if err := json.Unmarshal(r.Body, &v); err != nil {
		return nil, false
	}
	return v, true
}

// ClientIP derives the client IP from the proxy header priority list,
// falling back to the direct connection address. Comma-separated header
// values take the first entry; values that do not parse as an IP are
// skipped.
func (r *Request) ClientIP() string {
	for _, h := range proxyHeaders {
		v := r.HeaderValue(h)
		if v == "" {
			continue
		}

		first := strings.TrimSpace(strings.SplitN(v, ",", 2)[0])
		if net.ParseIP(first) != nil {
			return first
		}
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	if net.ParseIP(host) != nil {
		return host
	}

	return "0.0.0.0"
}

// Identifier returns the rate-limit identifier for this request: a digest of
// the X-API-Key header when present, else the client IP.
func (r *Request) Identifier() string {
	if key := r.HeaderValue("X-API-Key"); key != "" {
		sum := sha256.Sum256([]byte(key))
		return "api_key_" + hex.EncodeToString(sum[:16])
	}
	return "ip_" + r.ClientIP()
}
