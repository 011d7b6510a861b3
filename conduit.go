package conduit

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/xraph/conduit/auditlog"
	"github.com/xraph/conduit/auth"
	"github.com/xraph/conduit/bus"
	"github.com/xraph/conduit/cache"
	"github.com/xraph/conduit/controller"
	"github.com/xraph/conduit/dispatch"
	"github.com/xraph/conduit/endpoint"
	"github.com/xraph/conduit/engine"
	"github.com/xraph/conduit/ingest"
	"github.com/xraph/conduit/observability"
	"github.com/xraph/conduit/ratelimit"
	"github.com/xraph/conduit/schema"
	"github.com/xraph/conduit/server"
	"github.com/xraph/conduit/store"
	"github.com/xraph/conduit/template"
	"github.com/xraph/conduit/transform"
)

// Conduit is the root dynamic request-processing engine.
type Conduit struct {
	config     Config
	store      store.Store
	cache      cache.Store
	logger     *slog.Logger
	metrics    *observability.Metrics
	tracer     *observability.Tracer
	httpClient *http.Client
	authOpts   []auth.Option

	handlers   *controller.Registry
	transforms *transform.Registry
	renderer   *template.Renderer
	events     *bus.Bus

	engine        *engine.Engine
	router        *server.Router
	ingestHandler *ingest.Handler
	dispatchQueue *dispatch.Queue
	dispatcher    *dispatch.Handler
	sweeper       *auditlog.Sweeper
	endpointSvc   *endpoint.Service
	controllerSvc *controller.Service
	ingestSvc     *ingest.Service
	dispatchSvc   *dispatch.Service
	logSvc        *auditlog.Service
}

// New creates a new Conduit with the given options.
func New(opts ...Option) (*Conduit, error) {
	c := &Conduit{
		config:     DefaultConfig(),
		logger:     slog.Default(),
		handlers:   controller.NewRegistry(),
		transforms: transform.NewRegistry(),
		renderer:   template.New(),
	}
	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, err
		}
	}
	if c.store == nil {
		return nil, ErrNoStore
	}
	c.wireServices()
	return c, nil
}

// wireServices initializes the internal services after options have been applied.
func (c *Conduit) wireServices() {
	if c.cache == nil {
		c.cache = cache.NewMemory()
	}
	c.events = bus.New(c.logger)

	c.logSvc = auditlog.NewService(c.store, c.logger)
	c.sweeper = auditlog.NewSweeper(c.logSvc, c.config.SweepInterval, c.config.LogRetention, c.logger)

	c.endpointSvc = endpoint.NewService(c.store, c.logger)
	c.controllerSvc = controller.NewService(c.store, c.logger)
	c.ingestSvc = ingest.NewService(c.store, c.logger)
	c.dispatchSvc = dispatch.NewService(c.store, c.logger)

	validator := schema.NewValidator()
	executor := controller.NewExecutor(c.handlers, c.store, c.logger, c.config.ProgramCacheTTL)

	c.engine = engine.New(engine.Config{
		Verifier:     auth.NewVerifier(c.authOpts...),
		Limiter:      ratelimit.New(c.cache),
		Cache:        c.cache,
		Validator:    validator,
		Executor:     executor,
		Modifier:     transform.NewModifier(c.transforms),
		Logs:         c.logSvc,
		Metrics:      c.metrics,
		Tracer:       c.tracer,
		HTTPClient:   c.httpClient,
		ProxyTimeout: c.config.ProxyTimeout,
	}, c.logger)

	c.ingestHandler = ingest.NewHandler(c.store, validator, transform.NewMapper(c.transforms), c.events, c.logSvc, c.logger)

	sender := dispatch.NewSender(c.httpClient, c.renderer)
	c.dispatcher = dispatch.NewHandler(c.store, sender, c.events, c.logSvc, c.logger)
	c.dispatchQueue = dispatch.NewQueue(c.store, c.dispatcher, dispatch.QueueConfig{
		Concurrency:  c.config.Concurrency,
		PollInterval: c.config.PollInterval,
		BatchSize:    c.config.BatchSize,
		Metrics:      c.metrics,
		Tracer:       c.tracer,
	}, c.logger)

	c.router = server.New(server.Config{
		APINamespace: c.config.APINamespace,
	}, c.engine, c.store, c.ingestHandler, c.logger)
}

// Start loads the route table, subscribes dispatch triggers, and begins
// the dispatch workers and the audit log sweeper.
func (c *Conduit) Start(ctx context.Context) error {
	if err := c.router.Rebuild(ctx); err != nil {
		return err
	}
	if err := c.dispatcher.RegisterTriggers(ctx); err != nil {
		return err
	}
	c.dispatchQueue.Start(ctx)
	c.sweeper.Start(ctx)
	return nil
}

// Stop gracefully shuts down the dispatch workers and the sweeper.
func (c *Conduit) Stop(ctx context.Context) {
	c.dispatchQueue.Stop(ctx)
	c.sweeper.Stop(ctx)
}

// Reload rebuilds the dynamic route table from the store.
func (c *Conduit) Reload(ctx context.Context) error {
	return c.router.Rebuild(ctx)
}

// Emit publishes a named event on the internal bus, triggering any
// outbound webhooks watching it. Events with no subscriber yet get the
// dispatcher attached first, so webhooks created after Start still fire.
func (c *Conduit) Emit(ctx context.Context, event string, data any) {
	if c.events.SubscriberCount(event) == 0 {
		c.dispatcher.Watch(event)
	}
	c.events.Emit(ctx, bus.Event{Name: event, Data: data})
}

// Router returns the HTTP handler serving dynamic endpoint routes and
// the ingest webhook route.
func (c *Conduit) Router() http.Handler {
	return c.router
}

// Endpoints returns the endpoint management service.
func (c *Conduit) Endpoints() *endpoint.Service {
	return c.endpointSvc
}

// Controllers returns the controller management service.
func (c *Conduit) Controllers() *controller.Service {
	return c.controllerSvc
}

// Ingest returns the inbound webhook management service.
func (c *Conduit) Ingest() *ingest.Service {
	return c.ingestSvc
}

// Dispatch returns the outbound webhook management service.
func (c *Conduit) Dispatch() *dispatch.Service {
	return c.dispatchSvc
}

// Dispatcher returns the outbound delivery handler for manual triggers.
func (c *Conduit) Dispatcher() *dispatch.Handler {
	return c.dispatcher
}

// Logs returns the audit log service.
func (c *Conduit) Logs() *auditlog.Service {
	return c.logSvc
}

// Bus returns the internal event bus.
func (c *Conduit) Bus() *bus.Bus {
	return c.events
}

// Store returns the underlying store.
func (c *Conduit) Store() store.Store {
	return c.store
}
