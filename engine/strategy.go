package engine

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/xraph/conduit/endpoint"
	"github.com/xraph/conduit/wire"
)

// execute dispatches to the definition's callback strategy.
func (e *Engine) execute(ctx context.Context, def *endpoint.Definition, req *wire.Request) *wire.Response {
	switch def.CallbackType {
	case endpoint.CallbackProxy:
		return e.proxy(ctx, def, req)
	case endpoint.CallbackController:
		if def.ControllerID.IsNil() {
			return wire.NewError("no_controller", "endpoint has no controller configured", 500).Response()
		}
		return e.cfg.Executor.Execute(ctx, def.ControllerID, req)
	case endpoint.CallbackInline:
		if def.InlineCode == "" {
			return wire.NewError("no_code", "endpoint has no inline code configured", 500).Response()
		}
		return e.cfg.Executor.ExecuteScript(ctx, def.InlineCode, req)
	case endpoint.CallbackTransform:
		return wire.OK(e.cfg.Modifier.Transform(requestDocument(req), def.TransformRules))
	default:
		return wire.NewError("invalid_callback_type",
			"unknown callback type "+string(def.CallbackType), 500).Response()
	}
}

// proxy forwards the request to the definition's target URL and relays
// the upstream response.
func (e *Engine) proxy(ctx context.Context, def *endpoint.Definition, req *wire.Request) *wire.Response {
	if def.TargetURL == "" {
		return wire.NewError("no_target_url", "endpoint has no target URL configured", 500).Response()
	}

	target, err := url.Parse(def.TargetURL)
	if err != nil {
		return wire.NewError("no_target_url", "invalid target URL", 500).Response()
	}
	if len(req.Query) > 0 {
		q := target.Query()
		for k, vs := range req.Query {
			for _, v := range vs {
				q.Add(k, v)
			}
		}
		target.RawQuery = q.Encode()
	}

	ctx, cancel := context.WithTimeout(ctx, e.cfg.ProxyTimeout)
	defer cancel()

	var body io.Reader
	if len(req.Body) > 0 {
		body = bytes.NewReader(req.Body)
	}
	upstream, err := http.NewRequestWithContext(ctx, req.Method, target.String(), body)
	if err != nil {
		return wire.NewError("proxy_failed", err.Error(), 500).Response()
	}
	copyProxyHeaders(upstream.Header, req.Header)

	start := time.Now()
	resp, err := e.cfg.HTTPClient.Do(upstream)
	if err != nil {
		e.logger.ErrorContext(ctx, "proxy request failed",
			"target", def.TargetURL,
			"elapsed", time.Since(start),
			"error", err)
		return wire.NewError("proxy_failed", "upstream request failed", 500).Response()
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return wire.NewError("proxy_failed", "read upstream response", 500).Response()
	}

	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		doc = string(raw)
	}
	return wire.NewResponse(doc, resp.StatusCode)
}

// hopHeaders are not forwarded upstream.
var hopHeaders = map[string]bool{
	"Connection":        true,
	"Keep-Alive":        true,
	"Host":              true,
	"Te":                true,
	"Trailer":           true,
	"Transfer-Encoding": true,
	"Upgrade":           true,
	"Content-Length":    true,
}

func copyProxyHeaders(dst, src http.Header) {
	for k, vs := range src {
		if hopHeaders[http.CanonicalHeaderKey(k)] {
			continue
		}
		for _, v := range vs {
			dst.Add(k, v)
		}
	}
}

// requestDocument flattens the request for the transform strategy: body
// fields at the root, overlaid by query values, overlaid by route
// parameters.
func requestDocument(req *wire.Request) map[string]any {
	doc := make(map[string]any)
	if body, ok := req.JSONBody(); ok {
		if m, ok := body.(map[string]any); ok {
			for k, v := range m {
				doc[k] = v
			}
		} else {
			doc["data"] = body
		}
	}
	for k := range req.Query {
		doc[k] = req.QueryValue(k)
	}
	for k, v := range req.Params {
		doc[k] = v
	}
	return doc
}
