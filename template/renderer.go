// Package template renders payload templates by substituting {{path}}
// placeholders with values drawn from namespace resolvers and the
// rendering context.
package template

import (
	"encoding/json"
	"regexp"
	"strconv"
	"strings"

	"github.com/xraph/conduit/transform"
)

var placeholderPattern = regexp.MustCompile(`\{\{\s*([^{}\s][^{}]*?)\s*\}\}`)

// Resolver supplies values for a registered namespace. Resolve receives
// the field path after the namespace prefix, e.g. "email" for
// {{user.email}} under the "user" namespace.
type Resolver interface {
	Resolve(field string) (any, bool)
}

// ResolverFunc adapts a function to the Resolver interface.
type ResolverFunc func(field string) (any, bool)

// Resolve calls f.
func (f ResolverFunc) Resolve(field string) (any, bool) { return f(field) }

// MapResolver resolves fields against a static map using dotted-path
// lookup. Useful for fixed namespaces such as site settings.
type MapResolver map[string]any

// Resolve looks field up in the underlying map.
func (m MapResolver) Resolve(field string) (any, bool) {
	v := transform.Lookup(map[string]any(m), field)
	return v, v != nil
}

// Renderer substitutes placeholders in decoded JSON documents and plain
// strings. A zero Renderer is not usable; construct one with New.
type Renderer struct {
	namespaces map[string]Resolver
}

// New returns an empty Renderer with no namespaces registered.
func New() *Renderer {
	return &Renderer{namespaces: make(map[string]Resolver)}
}

// RegisterNamespace routes placeholders whose first path segment equals
// prefix to r. Registering the same prefix twice replaces the resolver.
func (r *Renderer) RegisterNamespace(prefix string, res Resolver) {
	r.namespaces[prefix] = res
}

// Render walks a decoded JSON document and substitutes placeholders in
// every string leaf. Maps and slices are copied, other values returned
// as-is. A string consisting of exactly one placeholder is replaced by
// the resolved value itself, preserving its type.
func (r *Renderer) Render(doc any, ctx map[string]any) any {
	switch v := doc.(type) {
	case map[string]any:
		out := make(map[string]any, len(v))
		for k, elem := range v {
			out[k] = r.Render(elem, ctx)
		}
		return out
	case []any:
		out := make([]any, len(v))
		for i, elem := range v {
			out[i] = r.Render(elem, ctx)
		}
		return out
	case string:
		return r.renderLeaf(v, ctx)
	default:
		return doc
	}
}

// RenderString substitutes placeholders in s, stringifying every
// resolved value. Unresolved placeholders are preserved verbatim.
func (r *Renderer) RenderString(s string, ctx map[string]any) string {
	return placeholderPattern.ReplaceAllStringFunc(s, func(match string) string {
		path := strings.TrimSpace(match[2 : len(match)-2])
		if v, ok := r.resolve(path, ctx); ok {
			return stringify(v)
		}
		return match
	})
}

func (r *Renderer) renderLeaf(s string, ctx map[string]any) any {
	// A leaf that is exactly one placeholder keeps the value's type.
	if m := placeholderPattern.FindStringSubmatch(s); m != nil && m[0] == s {
		if v, ok := r.resolve(m[1], ctx); ok {
			return v
		}
		return s
	}
	return r.RenderString(s, ctx)
}

func (r *Renderer) resolve(path string, ctx map[string]any) (any, bool) {
	if prefix, rest, found := strings.Cut(path, "."); found {
		if res, ok := r.namespaces[prefix]; ok {
			return res.Resolve(rest)
		}
	} else if res, ok := r.namespaces[path]; ok {
		return res.Resolve("")
	}
	if ctx == nil {
		return nil, false
	}
	if data, ok := ctx["event_data"]; ok {
		if v := transform.Lookup(data, path); v != nil {
			return v, true
		}
	}
	if v := transform.Lookup(ctx, path); v != nil {
		return v, true
	}
	return nil, false
}

func stringify(v any) string {
	switch s := v.(type) {
	case string:
		return s
	case bool:
		return strconv.FormatBool(s)
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64)
	case int:
		return strconv.Itoa(s)
	case int64:
		return strconv.FormatInt(s, 10)
	case nil:
		return ""
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return ""
		}
		return string(b)
	}
}
