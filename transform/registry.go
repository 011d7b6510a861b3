// Package transform implements the field-mapping and output-shaping rules
// shared by the ingest data mapper and the endpoint response modifier. Both
// sides use one transform vocabulary and one extension registry: unknown
// transform names are looked up in the registry, and an unregistered name
// passes the value through unchanged.
package transform

import "sync"

// Func is a caller-registered named transform.
type Func func(value any) any

// Registry holds caller-registered transforms, consulted for any transform
// name outside the built-in vocabulary.
type Registry struct {
	mu    sync.RWMutex
	funcs map[string]Func
}

// NewRegistry creates an empty transform registry.
func NewRegistry() *Registry {
	return &Registry{funcs: make(map[string]Func)}
}

// Register adds a named transform. Registering a built-in name has no
// effect; built-ins always win.
func (r *Registry) Register(name string, fn Func) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.funcs[name] = fn
}

// Apply runs the named transform: built-in vocabulary first, then the
// registry, then pass-through for unknown names.
func (r *Registry) Apply(name string, value any) any {
	if out, ok := applyBuiltin(name, value); ok {
		return out
	}

	r.mu.RLock()
	fn, ok := r.funcs[name]
	r.mu.RUnlock()

	if !ok {
		return value
	}
	return fn(value)
}
