// Package server is the HTTP edge. It mounts dynamic endpoint routes and
// the ingest webhook route on a gin router and adapts gin contexts into
// wire requests for the engine.
package server

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"regexp"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"

	"github.com/xraph/conduit/endpoint"
	"github.com/xraph/conduit/engine"
	"github.com/xraph/conduit/id"
	"github.com/xraph/conduit/ingest"
	"github.com/xraph/conduit/wire"
)

// maxBodyBytes caps inbound request bodies at 10 MB.
const maxBodyBytes = 10 << 20

// Config configures the router.
type Config struct {
	// APINamespace is the path prefix for the ingest route
	// (POST /{APINamespace}/ingest/{slug}).
	APINamespace string
}

// Router serves dynamic endpoint routes. The route table is rebuilt from
// the store on demand; each request re-fetches its definition so stale
// routes fail closed after a definition is deleted or deactivated.
type Router struct {
	cfg    Config
	engine *engine.Engine
	defs   endpoint.Store
	ingest *ingest.Handler
	logger *slog.Logger

	mu  sync.RWMutex
	gin *gin.Engine
}

// New creates a router. Call Rebuild to load the endpoint route table.
func New(cfg Config, eng *engine.Engine, defs endpoint.Store, ing *ingest.Handler, logger *slog.Logger) *Router {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.APINamespace == "" {
		cfg.APINamespace = "conduit/v1"
	}
	cfg.APINamespace = strings.Trim(cfg.APINamespace, "/")

	r := &Router{
		cfg:    cfg,
		engine: eng,
		defs:   defs,
		ingest: ing,
		logger: logger,
	}
	r.gin = r.freshEngine(nil)
	return r
}

// ServeHTTP implements http.Handler.
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.mu.RLock()
	g := r.gin
	r.mu.RUnlock()
	g.ServeHTTP(w, req)
}

// Rebuild reloads every registrable definition from the store and swaps
// in a new route table. Registration conflicts abort the swap.
func (r *Router) Rebuild(ctx context.Context) error {
	defs, err := r.defs.ListActiveEndpoints(ctx)
	if err != nil {
		return fmt.Errorf("server: list endpoints: %w", err)
	}

	g, err := r.buildEngine(defs)
	if err != nil {
		return err
	}

	r.mu.Lock()
	r.gin = g
	r.mu.Unlock()

	r.logger.InfoContext(ctx, "route table rebuilt", "endpoints", len(defs))
	return nil
}

func (r *Router) buildEngine(defs []*endpoint.Definition) (g *gin.Engine, err error) {
	// gin panics on route conflicts.
	defer func() {
		if rec := recover(); rec != nil {
			g, err = nil, fmt.Errorf("server: register routes: %v", rec)
		}
	}()
	return r.freshEngine(defs), nil
}

func (r *Router) freshEngine(defs []*endpoint.Definition) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	g := gin.New()
	g.Use(gin.Recovery())

	if r.ingest != nil {
		g.POST("/"+r.cfg.APINamespace+"/ingest/:slug", r.handleIngest)
	}

	for _, def := range defs {
		path := "/" + strings.Trim(def.Namespace, "/") + GinPath(def.Route)
		for _, method := range def.Methods {
			g.Handle(strings.ToUpper(method), path, r.endpointHandler(def.ID.String()))
		}
	}
	return g
}

// namedCapture matches regex route captures like (?P<id>[\d]+).
var namedCapture = regexp.MustCompile(`\(\?P<([A-Za-z_][A-Za-z0-9_]*)>[^)]*\)`)

// bracedCapture matches brace route captures like {id}.
var bracedCapture = regexp.MustCompile(`\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// GinPath converts a route pattern with regex or brace captures into
// gin parameter syntax: /items/(?P<id>[\d]+) and /items/{id} both
// become /items/:id.
func GinPath(route string) string {
	out := namedCapture.ReplaceAllString(route, ":$1")
	out = bracedCapture.ReplaceAllString(out, ":$1")
	if !strings.HasPrefix(out, "/") {
		out = "/" + out
	}
	return out
}

// endpointHandler serves one dynamic endpoint. The definition is
// re-fetched per request so deletions and status flips take effect
// without a rebuild.
func (r *Router) endpointHandler(defID string) gin.HandlerFunc {
	return func(c *gin.Context) {
		def, err := r.lookup(c, defID)
		if err != nil {
			c.JSON(http.StatusNotFound, gin.H{
				"code":    "endpoint_not_found",
				"message": "endpoint not found",
			})
			return
		}

		req := adaptRequest(c)
		resp := r.engine.Handle(c.Request.Context(), def, req)
		writeResponse(c, resp)
	}
}

func (r *Router) lookup(c *gin.Context, defID string) (*endpoint.Definition, error) {
	parsed, err := id.ParseEndpointID(defID)
	if err != nil {
		return nil, err
	}
	def, err := r.defs.GetEndpoint(c.Request.Context(), parsed)
	if err != nil {
		return nil, err
	}
	if !def.Status.Registrable() {
		return nil, fmt.Errorf("server: endpoint %s is %s", defID, def.Status)
	}
	return def, nil
}

func (r *Router) handleIngest(c *gin.Context) {
	req := adaptRequest(c)
	resp := r.ingest.Handle(c.Request.Context(), c.Param("slug"), req)
	writeResponse(c, resp)
}

// adaptRequest converts a gin context into a wire request.
func adaptRequest(c *gin.Context) *wire.Request {
	body, _ := io.ReadAll(io.LimitReader(c.Request.Body, maxBodyBytes))

	params := make(map[string]string, len(c.Params))
	for _, p := range c.Params {
		params[p.Key] = p.Value
	}

	return &wire.Request{
		Method:     c.Request.Method,
		Path:       c.Request.URL.Path,
		Header:     c.Request.Header,
		Query:      c.Request.URL.Query(),
		Params:     params,
		Body:       body,
		RemoteAddr: c.Request.RemoteAddr,
	}
}

func writeResponse(c *gin.Context, resp *wire.Response) {
	if resp == nil {
		c.Status(http.StatusNoContent)
		return
	}
	for k, vals := range resp.Header {
		for _, v := range vals {
			c.Writer.Header().Add(k, v)
		}
	}
	if resp.Body == nil {
		c.Status(resp.Status)
		return
	}
	c.JSON(resp.Status, resp.Body)
}
