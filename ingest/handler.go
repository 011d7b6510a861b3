package ingest

import (
	"context"
	"crypto/subtle"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/xraph/conduit/auditlog"
	"github.com/xraph/conduit/bus"
	"github.com/xraph/conduit/schema"
	"github.com/xraph/conduit/transform"
	"github.com/xraph/conduit/wire"
)

// Handler processes one inbound delivery through the full receive
// chain: lookup, status, token, IP allow-list, payload parse, schema
// validation, mapping, and event emission.
type Handler struct {
	store     Store
	validator *schema.Validator
	mapper    *transform.Mapper
	bus       *bus.Bus
	logs      *auditlog.Service
	logger    *slog.Logger
}

// NewHandler creates an ingest handler.
func NewHandler(store Store, validator *schema.Validator, mapper *transform.Mapper, b *bus.Bus, logs *auditlog.Service, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		store:     store,
		validator: validator,
		mapper:    mapper,
		bus:       b,
		logs:      logs,
		logger:    logger,
	}
}

// Handle processes a delivery addressed to slug. Every terminal outcome
// maps to exactly one response; rejections past the lookup stage are
// audit-logged against the webhook.
func (h *Handler) Handle(ctx context.Context, slug string, req *wire.Request) *wire.Response {
	started := time.Now()

	wh, err := h.store.GetIngestWebhookBySlug(ctx, slug)
	if err != nil {
		return wire.NewError("webhook_not_found", "no webhook registered for "+slug, 404).Response()
	}

	if !wh.Accepting() {
		h.reject(ctx, wh, req, started, 403, "webhook_inactive", "webhook is not active")
		return wire.NewError("webhook_inactive", "webhook is not active", 403).Response()
	}

	if !h.tokenOK(wh, req) {
		h.reject(ctx, wh, req, started, 401, "authentication_failed", "invalid webhook token")
		return wire.NewError("authentication_failed", "invalid webhook token", 401).Response()
	}

	if !ipAllowed(wh.AllowedIPs, req.ClientIP()) {
		h.reject(ctx, wh, req, started, 403, "ip_not_allowed", "sender IP is not allowed")
		return wire.NewError("ip_not_allowed", "sender IP is not allowed", 403).Response()
	}

	payload := parsePayload(req)

	if result := h.validator.Validate(wh.ValidationSchema, payload); !result.Valid {
		h.logs.Append(ctx, auditlog.Entry{
			SubjectID:       wh.ID,
			Category:        auditlog.CategoryIngest,
			Status:          auditlog.StatusError,
			HTTPCode:        400,
			Method:          req.Method,
			Request:         map[string]any{"payload": payload},
			Response:        map[string]any{"errors": result.Errors},
			ExecutionTimeMs: time.Since(started).Milliseconds(),
			Error:           "payload validation failed",
		})
		return wire.NewError("validation_failed", "payload validation failed", 400).
			WithDetails(result.Errors).Response()
	}

	var data any = payload
	if len(wh.MappingRules) > 0 {
		data = h.mapper.Map(payload, wh.MappingRules)
	}

	now := time.Now().UTC()
	events := append([]string{bus.IngestReceived}, wh.CustomEvents...)
	for _, name := range events {
		h.bus.Emit(ctx, bus.Event{
			Name:      name,
			WebhookID: wh.ID,
			Data:      data,
			Raw:       payload,
			At:        now,
		})
	}

	ack := Ack{
		Success:          true,
		Message:          "webhook processed",
		WebhookID:        wh.ID.String(),
		ActionsTriggered: events,
		Timestamp:        now,
	}

	h.logs.Append(ctx, auditlog.Entry{
		SubjectID:       wh.ID,
		Category:        auditlog.CategoryIngest,
		Status:          auditlog.StatusSuccess,
		HTTPCode:        200,
		Method:          req.Method,
		Request:         map[string]any{"payload": payload},
		Response:        map[string]any{"data": data, "events": events},
		ExecutionTimeMs: time.Since(started).Milliseconds(),
	})

	return wire.OK(ack)
}

func (h *Handler) reject(ctx context.Context, wh *Webhook, req *wire.Request, started time.Time, code int, errCode, msg string) {
	h.logs.Append(ctx, auditlog.Entry{
		SubjectID:       wh.ID,
		Category:        auditlog.CategoryIngest,
		Status:          auditlog.StatusError,
		HTTPCode:        code,
		Method:          req.Method,
		Request:         map[string]any{"remote_addr": req.RemoteAddr, "client_ip": req.ClientIP()},
		ExecutionTimeMs: time.Since(started).Milliseconds(),
		Error:           errCode + ": " + msg,
	})
}

// tokenOK checks the shared token. An empty configured token disables
// the check.
func (h *Handler) tokenOK(wh *Webhook, req *wire.Request) bool {
	if wh.Token == "" {
		return true
	}
	presented := req.HeaderValue("X-Webhook-Token")
	if presented == "" {
		presented = req.QueryValue("token")
	}
	return subtle.ConstantTimeCompare([]byte(presented), []byte(wh.Token)) == 1
}

func ipAllowed(allowed []string, ip string) bool {
	if len(allowed) == 0 {
		return true
	}
	for _, a := range allowed {
		if strings.TrimSpace(a) == ip {
			return true
		}
	}
	return false
}

// parsePayload decodes the delivery body. JSON wins; form-encoded
// bodies become a flat map; anything else is wrapped as {"raw": body}.
// An empty body parses to an empty document.
func parsePayload(req *wire.Request) map[string]any {
	body := strings.TrimSpace(string(req.Body))
	if body == "" {
		return map[string]any{}
	}

	if doc, ok := req.JSONBody(); ok {
		if m, ok := doc.(map[string]any); ok {
			return m
		}
		return map[string]any{"data": doc}
	}

	if strings.Contains(body, "=") {
		if form, err := url.ParseQuery(body); err == nil && len(form) > 0 {
			out := make(map[string]any, len(form))
			for k, vs := range form {
				if len(vs) == 1 {
					out[k] = vs[0]
					continue
				}
				anyVals := make([]any, len(vs))
				for i, v := range vs {
					anyVals[i] = v
				}
				out[k] = anyVals
			}
			return out
		}
	}

	return map[string]any{"raw": body}
}
