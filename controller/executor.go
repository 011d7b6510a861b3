package controller

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	"github.com/xraph/conduit/id"
	"github.com/xraph/conduit/wire"
)

// blockedTokens are script fragments rejected before compilation. The
// expression sandbox is the real boundary; this scan only fails the
// obvious cases fast with a clear error code.
var blockedTokens = []string{
	"eval(", "exec(", "system(", "syscall", "os.", "unsafe", "__",
}

type program struct {
	compiled   *vm.Program
	compiledAt time.Time
}

// Executor runs controllers and inline scripts, normalizing every
// outcome into a response. Execution failures never propagate as
// errors; they surface as error responses.
type Executor struct {
	registry *Registry
	store    Store
	logger   *slog.Logger

	mu       sync.RWMutex
	programs map[string]program // keyed by script content hash
	cacheTTL time.Duration
	now      func() time.Time
}

// NewExecutor creates an Executor. Compiled scripts are cached for
// cacheTTL; a non-positive TTL caches forever.
func NewExecutor(registry *Registry, store Store, logger *slog.Logger, cacheTTL time.Duration) *Executor {
	if logger == nil {
		logger = slog.Default()
	}
	if registry == nil {
		registry = NewRegistry()
	}
	return &Executor{
		registry: registry,
		store:    store,
		logger:   logger,
		programs: make(map[string]program),
		cacheTTL: cacheTTL,
		now:      time.Now,
	}
}

// Execute loads the controller and runs it against req.
func (e *Executor) Execute(ctx context.Context, ctlID id.ID, req *wire.Request) *wire.Response {
	ctl, err := e.store.GetController(ctx, ctlID)
	if err != nil {
		return wire.NewError("invalid_controller", "controller not found", 500).Response()
	}
	if !ctl.Runnable() {
		return wire.NewError("controller_inactive", "controller is not active", 500).Response()
	}

	if ctl.HandlerRef != "" {
		return e.executeNative(ctx, ctl, req)
	}
	if ctl.Code != "" {
		return e.ExecuteScript(ctx, ctl.Code, req)
	}
	return wire.NewError("invalid_controller", "controller has no handler and no code", 500).Response()
}

// ExecuteScript compiles and runs an expression script against req.
// Also used directly by the inline endpoint strategy.
func (e *Executor) ExecuteScript(ctx context.Context, code string, req *wire.Request) (resp *wire.Response) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.ErrorContext(ctx, "script panicked", slog.Any("panic", r))
			resp = wire.NewError("controller_execution_error", fmt.Sprint(r), 500).Response()
		}
	}()

	for _, token := range blockedTokens {
		if strings.Contains(code, token) {
			return wire.NewError("blocked_function",
				"script uses a blocked construct: "+strings.TrimSuffix(token, "("), 500).Response()
		}
	}

	compiled, err := e.compile(code)
	if err != nil {
		return wire.NewError("controller_execution_error", err.Error(), 500).Response()
	}

	out, err := expr.Run(compiled, scriptEnv(req))
	return normalize(out, err)
}

func (e *Executor) executeNative(ctx context.Context, ctl *Controller, req *wire.Request) (resp *wire.Response) {
	handler, ok := e.registry.Resolve(ctl.HandlerRef)
	if !ok {
		return wire.NewError("invalid_controller", "unknown handler "+ctl.HandlerRef, 500).Response()
	}

	defer func() {
		if r := recover(); r != nil {
			e.logger.ErrorContext(ctx, "controller panicked",
				slog.String("controller_id", ctl.ID.String()),
				slog.Any("panic", r))
			resp = wire.NewError("controller_execution_error", fmt.Sprint(r), 500).Response()
		}
	}()

	out, err, matched := dispatch(ctx, handler, req)
	if !matched {
		return wire.NewError("method_not_found",
			"controller does not handle "+req.Method, 500).Response()
	}
	return normalize(out, err)
}

// Validate compiles a script controller (or resolves a native one) and
// stamps LastValidatedAt on success.
func (e *Executor) Validate(ctx context.Context, ctlID id.ID) error {
	ctl, err := e.store.GetController(ctx, ctlID)
	if err != nil {
		return err
	}

	if ctl.HandlerRef != "" {
		handler, ok := e.registry.Resolve(ctl.HandlerRef)
		if !ok {
			return fmt.Errorf("unknown handler %q", ctl.HandlerRef)
		}
		ctl.Methods = Methods(handler)
	} else {
		if _, err := e.compile(ctl.Code); err != nil {
			return err
		}
	}

	ctl.LastValidatedAt = e.now().UTC()
	ctl.Touch()
	return e.store.UpdateController(ctx, ctl)
}

func (e *Executor) compile(code string) (*vm.Program, error) {
	sum := sha256.Sum256([]byte(code))
	key := hex.EncodeToString(sum[:])

	e.mu.RLock()
	p, ok := e.programs[key]
	e.mu.RUnlock()
	if ok && (e.cacheTTL <= 0 || e.now().Sub(p.compiledAt) < e.cacheTTL) {
		return p.compiled, nil
	}

	compiled, err := expr.Compile(code, expr.AllowUndefinedVariables())
	if err != nil {
		return nil, fmt.Errorf("compile script: %w", err)
	}

	e.mu.Lock()
	e.programs[key] = program{compiled: compiled, compiledAt: e.now()}
	e.mu.Unlock()

	return compiled, nil
}

// scriptEnv is the variable set scripts see. Everything is plain data;
// scripts cannot reach the store, the network, or the filesystem.
func scriptEnv(req *wire.Request) map[string]any {
	query := make(map[string]any, len(req.Query))
	for k := range req.Query {
		query[k] = req.QueryValue(k)
	}
	headers := make(map[string]any, len(req.Header))
	for k := range req.Header {
		headers[strings.ToLower(k)] = req.Header.Get(k)
	}
	params := make(map[string]any, len(req.Params))
	for k, v := range req.Params {
		params[k] = v
	}
	body, _ := req.JSONBody()

	return map[string]any{
		"method":  req.Method,
		"path":    req.Path,
		"params":  params,
		"query":   query,
		"headers": headers,
		"body":    body,
	}
}

func normalize(out any, err error) *wire.Response {
	if err != nil {
		if werr, ok := wire.AsError(err); ok {
			return werr.Response()
		}
		return wire.NewError("controller_execution_error", err.Error(), 500).Response()
	}
	switch v := out.(type) {
	case *wire.Response:
		return v
	case wire.Response:
		return &v
	case *wire.Error:
		return v.Response()
	default:
		return wire.OK(v)
	}
}
