package controller

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"sync"

	"github.com/xraph/conduit/wire"
)

// Handler is the catch-all native handler contract. A handler may
// implement Handler alone, any of the verb interfaces, or both; verb
// methods win over Handle for their method.
type Handler interface {
	Handle(ctx context.Context, req *wire.Request) (any, error)
}

// HandlerFunc adapts a function to the Handler interface.
type HandlerFunc func(ctx context.Context, req *wire.Request) (any, error)

// Handle calls f.
func (f HandlerFunc) Handle(ctx context.Context, req *wire.Request) (any, error) {
	return f(ctx, req)
}

// Per-verb handler interfaces. A native handler opts into a method by
// implementing the matching interface.
type (
	// Getter handles GET requests.
	Getter interface {
		Get(ctx context.Context, req *wire.Request) (any, error)
	}
	// Poster handles POST requests.
	Poster interface {
		Post(ctx context.Context, req *wire.Request) (any, error)
	}
	// Putter handles PUT requests.
	Putter interface {
		Put(ctx context.Context, req *wire.Request) (any, error)
	}
	// Patcher handles PATCH requests.
	Patcher interface {
		Patch(ctx context.Context, req *wire.Request) (any, error)
	}
	// Deleter handles DELETE requests.
	Deleter interface {
		Delete(ctx context.Context, req *wire.Request) (any, error)
	}
)

// Registry maps handler names to native handlers.
type Registry struct {
	mu       sync.RWMutex
	handlers map[string]any
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{handlers: make(map[string]any)}
}

// Register binds name to handler. The handler must implement Handler or
// at least one verb interface.
func (r *Registry) Register(name string, handler any) error {
	if len(Methods(handler)) == 0 {
		if _, ok := handler.(Handler); !ok {
			return fmt.Errorf("handler %q implements no verb interface and no Handle", name)
		}
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[name] = handler
	return nil
}

// Resolve returns the handler registered under name.
func (r *Registry) Resolve(name string) (any, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.handlers[name]
	return h, ok
}

// Names returns the registered handler names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.handlers))
	for name := range r.handlers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Methods reports the HTTP methods handler supports through its verb
// interfaces. A bare Handler reports every common method.
func Methods(handler any) []string {
	var methods []string
	if _, ok := handler.(Getter); ok {
		methods = append(methods, http.MethodGet)
	}
	if _, ok := handler.(Poster); ok {
		methods = append(methods, http.MethodPost)
	}
	if _, ok := handler.(Putter); ok {
		methods = append(methods, http.MethodPut)
	}
	if _, ok := handler.(Patcher); ok {
		methods = append(methods, http.MethodPatch)
	}
	if _, ok := handler.(Deleter); ok {
		methods = append(methods, http.MethodDelete)
	}
	if methods == nil {
		if _, ok := handler.(Handler); ok {
			methods = []string{
				http.MethodGet, http.MethodPost, http.MethodPut,
				http.MethodPatch, http.MethodDelete,
			}
		}
	}
	return methods
}

// dispatch invokes the verb method matching req.Method, falling back to
// Handle. The bool reports whether any method matched.
func dispatch(ctx context.Context, handler any, req *wire.Request) (any, error, bool) {
	switch req.Method {
	case http.MethodGet:
		if h, ok := handler.(Getter); ok {
			out, err := h.Get(ctx, req)
			return out, err, true
		}
	case http.MethodPost:
		if h, ok := handler.(Poster); ok {
			out, err := h.Post(ctx, req)
			return out, err, true
		}
	case http.MethodPut:
		if h, ok := handler.(Putter); ok {
			out, err := h.Put(ctx, req)
			return out, err, true
		}
	case http.MethodPatch:
		if h, ok := handler.(Patcher); ok {
			out, err := h.Patch(ctx, req)
			return out, err, true
		}
	case http.MethodDelete:
		if h, ok := handler.(Deleter); ok {
			out, err := h.Delete(ctx, req)
			return out, err, true
		}
	}
	if h, ok := handler.(Handler); ok {
		out, err := h.Handle(ctx, req)
		return out, err, true
	}
	return nil, nil, false
}
