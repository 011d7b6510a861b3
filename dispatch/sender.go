package dispatch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/xraph/conduit/signature"
	"github.com/xraph/conduit/template"
)

const maxResponseBody = 1024 // 1KB cap on response body storage

// Sender performs HTTP webhook delivery. One shared client serves all
// webhooks; per-webhook timeouts are applied through the request
// context.
type Sender struct {
	client   *http.Client
	renderer *template.Renderer
}

// NewSender creates a sender. A nil client falls back to a default with
// a 30s ceiling; a nil renderer disables placeholder substitution.
func NewSender(client *http.Client, renderer *template.Renderer) *Sender {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	if renderer == nil {
		renderer = template.New()
	}
	return &Sender{client: client, renderer: renderer}
}

// Send delivers item through wh and returns the result. Transport
// errors are reported in the result, not returned.
func (s *Sender) Send(ctx context.Context, wh *Webhook, item *Item) Result {
	body, err := s.BuildPayload(wh, item)
	if err != nil {
		return Result{Error: fmt.Sprintf("build payload: %v", err)}
	}

	if wh.TimeoutSeconds > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(wh.TimeoutSeconds)*time.Second)
		defer cancel()
	}

	method := strings.ToUpper(wh.Method)
	if method == "" {
		method = http.MethodPost
	}

	req, err := http.NewRequestWithContext(ctx, method, wh.URL, bytes.NewReader(body))
	if err != nil {
		return Result{Error: fmt.Sprintf("create request: %v", err)}
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "Conduit/1.0")
	req.Header.Set("X-Conduit-Event", item.EventName)
	req.Header.Set("X-Conduit-Delivery-ID", item.ID.String())

	if wh.Secret != "" {
		ts := time.Now().Unix()
		req.Header.Set(signature.SignatureHeader, signature.Sign(body, wh.Secret, ts))
		req.Header.Set(signature.TimestampHeader, strconv.FormatInt(ts, 10))
	}

	// Custom webhook headers win over the defaults.
	for k, v := range wh.Headers {
		req.Header.Set(k, v)
	}

	start := time.Now()
	resp, err := s.client.Do(req) //nolint:gosec // URL is a user-configured webhook destination.
	latency := time.Since(start).Milliseconds()

	if err != nil {
		return Result{
			Error:     err.Error(),
			LatencyMs: latency,
		}
	}
	defer resp.Body.Close()

	respBody, readErr := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if readErr != nil {
		return Result{
			StatusCode: resp.StatusCode,
			Error:      fmt.Sprintf("read response: %v", readErr),
			LatencyMs:  latency,
		}
	}

	return Result{
		StatusCode: resp.StatusCode,
		Response:   string(respBody),
		LatencyMs:  latency,
	}
}

// BuildPayload renders the webhook's payload template against the
// item's event. A JSON template is rendered structurally; a non-JSON
// template is rendered as a string and wrapped; an empty template sends
// the event envelope.
func (s *Sender) BuildPayload(wh *Webhook, item *Item) ([]byte, error) {
	renderCtx := map[string]any{
		"event":        item.EventName,
		"event_data":   item.EventData,
		"webhook_id":   item.WebhookID.String(),
		"triggered_at": item.TriggeredAt.UTC().Format(time.RFC3339),
	}

	tmpl := strings.TrimSpace(wh.PayloadTemplate)
	if tmpl == "" {
		return json.Marshal(renderCtx)
	}

	var doc any
	if err := json.Unmarshal([]byte(tmpl), &doc); err == nil {
		return json.Marshal(s.renderer.Render(doc, renderCtx))
	}

	rendered := s.renderer.RenderString(tmpl, renderCtx)
	return json.Marshal(map[string]any{"data": rendered})
}
