// Package engine runs endpoint requests through the full gate chain:
// authentication, rate limiting, caching, schema validation, strategy
// execution, and audit logging.
package engine

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"log/slog"
	"net/http"
	"sort"
	"strings"
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/xraph/conduit/auditlog"
	"github.com/xraph/conduit/auth"
	"github.com/xraph/conduit/cache"
	"github.com/xraph/conduit/controller"
	"github.com/xraph/conduit/endpoint"
	"github.com/xraph/conduit/observability"
	"github.com/xraph/conduit/ratelimit"
	"github.com/xraph/conduit/schema"
	"github.com/xraph/conduit/transform"
	"github.com/xraph/conduit/wire"
)

// Config holds the engine's collaborators and tunables.
type Config struct {
	Verifier     *auth.Verifier
	Limiter      *ratelimit.Limiter
	Cache        cache.Store
	Validator    *schema.Validator
	Executor     *controller.Executor
	Modifier     *transform.Modifier
	Logs         *auditlog.Service
	Metrics      *observability.Metrics
	Tracer       *observability.Tracer
	HTTPClient   *http.Client
	ProxyTimeout time.Duration
}

// Engine processes one endpoint request at a time through the gate
// chain. Exactly one audit record is written per executed request;
// cache hits bypass execution and are not re-logged.
type Engine struct {
	cfg    Config
	logger *slog.Logger
}

// New creates an engine.
func New(cfg Config, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: 30 * time.Second}
	}
	if cfg.ProxyTimeout <= 0 {
		cfg.ProxyTimeout = 30 * time.Second
	}
	if cfg.Validator == nil {
		cfg.Validator = schema.NewValidator()
	}
	if cfg.Modifier == nil {
		cfg.Modifier = transform.NewModifier(nil)
	}
	if cfg.Verifier == nil {
		cfg.Verifier = auth.NewVerifier()
	}
	return &Engine{cfg: cfg, logger: logger}
}

// Handle runs req against def and always returns a response.
func (e *Engine) Handle(ctx context.Context, def *endpoint.Definition, req *wire.Request) *wire.Response {
	started := time.Now()

	var span trace.Span
	if e.cfg.Tracer != nil {
		ctx, span = e.cfg.Tracer.StartRequestSpan(ctx, def.ID.String(), req.Method, def.Namespace+def.Route)
	}

	resp := e.handle(ctx, def, req, started)

	if span != nil {
		e.cfg.Tracer.EndRequestSpan(span, resp.Status)
	}
	if e.cfg.Metrics != nil {
		e.cfg.Metrics.ObserveRequest(string(def.CallbackType), resp.Status, time.Since(started).Seconds())
	}
	return resp
}

func (e *Engine) handle(ctx context.Context, def *endpoint.Definition, req *wire.Request, started time.Time) *wire.Response {
	if def.AuthRequired && !e.cfg.Verifier.Verify(ctx, def.AuthMode, req) {
		resp := wire.NewError("authentication_failed", "authentication required", 401).Response()
		e.record(ctx, def, req, resp, started, "authentication failed")
		return resp
	}

	if def.RateLimit > 0 && e.cfg.Limiter != nil {
		allowed, err := e.cfg.Limiter.Allow(ctx, def.ID.String(), req.Identifier(), def.RateLimit)
		if err != nil {
			e.logger.WarnContext(ctx, "rate limiter degraded", "error", err)
		}
		if !allowed {
			resp := wire.NewError("rate_limit_exceeded", "rate limit exceeded", 429).Response()
			e.record(ctx, def, req, resp, started, "rate limit exceeded")
			return resp
		}
	}

	cacheable := def.CacheEnabled && req.Method == http.MethodGet && e.cfg.Cache != nil
	var key string
	if cacheable {
		key = cacheKey(def, req)
		if cached, ok := e.readCache(ctx, key); ok {
			// Served from cache without re-executing or re-logging.
			return cached
		}
	}

	if len(def.RequestSchema) > 0 {
		body, _ := req.JSONBody()
		if result := e.cfg.Validator.Validate(def.RequestSchema, body); !result.Valid {
			resp := wire.NewError("validation_failed", "request validation failed", 400).
				WithDetails(result.Errors).Response()
			e.record(ctx, def, req, resp, started, "request validation failed")
			return resp
		}
	}

	resp := e.execute(ctx, def, req)

	if resp.Status >= 200 && resp.Status < 300 && len(def.ResponseSchema) > 0 {
		if result := e.cfg.Validator.Validate(def.ResponseSchema, toDocument(resp.Body)); !result.Valid {
			resp = wire.NewError("response_validation_failed", "response validation failed", 500).
				WithDetails(result.Errors).Response()
			e.record(ctx, def, req, resp, started, "response validation failed")
			return resp
		}
	}

	if cacheable && resp.Status >= 200 && resp.Status < 300 {
		e.writeCache(ctx, key, def, resp)
	}

	errMsg := ""
	if resp.Status >= 400 {
		errMsg = errorMessage(resp)
	}
	e.record(ctx, def, req, resp, started, errMsg)
	return resp
}

func (e *Engine) record(ctx context.Context, def *endpoint.Definition, req *wire.Request, resp *wire.Response, started time.Time, errMsg string) {
	if e.cfg.Logs == nil {
		return
	}
	status := auditlog.StatusSuccess
	if resp.Status >= 400 {
		status = auditlog.StatusError
	}
	e.cfg.Logs.Append(ctx, auditlog.Entry{
		SubjectID: def.ID,
		Category:  auditlog.CategoryEndpoint,
		Status:    status,
		HTTPCode:  resp.Status,
		Method:    req.Method,
		Request: map[string]any{
			"path":      req.Path,
			"client_ip": req.ClientIP(),
		},
		Response: map[string]any{
			"status": resp.Status,
		},
		ExecutionTimeMs: time.Since(started).Milliseconds(),
		Error:           errMsg,
	})
}

type cachedResponse struct {
	Status int             `json:"status"`
	Body   json.RawMessage `json:"body"`
}

func (e *Engine) readCache(ctx context.Context, key string) (*wire.Response, bool) {
	raw, ok, err := e.cfg.Cache.Get(ctx, key)
	if err != nil || !ok {
		return nil, false
	}
	var cached cachedResponse
	if err := json.Unmarshal(raw, &cached); err != nil {
		return nil, false
	}
	var body any
	if len(cached.Body) > 0 {
		if err := json.Unmarshal(cached.Body, &body); err != nil {
			return nil, false
		}
	}
	return wire.NewResponse(body, cached.Status), true
}

func (e *Engine) writeCache(ctx context.Context, key string, def *endpoint.Definition, resp *wire.Response) {
	body, err := json.Marshal(resp.Body)
	if err != nil {
		return
	}
	raw, err := json.Marshal(cachedResponse{Status: resp.Status, Body: body})
	if err != nil {
		return
	}
	ttl := time.Duration(def.CacheTTLSeconds) * time.Second
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	if err := e.cfg.Cache.Set(ctx, key, raw, ttl); err != nil {
		e.logger.WarnContext(ctx, "cache write failed", "error", err)
	}
}

// cacheKey derives the cache key from the definition and every request
// parameter, so distinct parameter sets never share an entry.
func cacheKey(def *endpoint.Definition, req *wire.Request) string {
	merged := make(map[string]string, len(req.Params)+len(req.Query))
	for k := range req.Query {
		merged[k] = req.QueryValue(k)
	}
	for k, v := range req.Params {
		merged[k] = v
	}

	keys := make([]string, 0, len(merged))
	for k := range merged {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var sb strings.Builder
	sb.WriteString(def.ID.String())
	for _, k := range keys {
		sb.WriteByte('|')
		sb.WriteString(k)
		sb.WriteByte('=')
		sb.WriteString(merged[k])
	}

	sum := sha256.Sum256([]byte(sb.String()))
	return "endpoint:" + def.ID.String() + ":" + hex.EncodeToString(sum[:])
}

// toDocument round-trips a response body through JSON so the validator
// sees what the client will see.
func toDocument(body any) any {
	raw, err := json.Marshal(body)
	if err != nil {
		return body
	}
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return body
	}
	return doc
}

func errorMessage(resp *wire.Response) string {
	if m, ok := resp.Body.(map[string]any); ok {
		if msg, ok := m["message"].(string); ok {
			return msg
		}
	}
	return http.StatusText(resp.Status)
}
