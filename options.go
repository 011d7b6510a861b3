package conduit

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/xraph/conduit/auth"
	"github.com/xraph/conduit/cache"
	"github.com/xraph/conduit/observability"
	"github.com/xraph/conduit/store"
	"github.com/xraph/conduit/template"
	"github.com/xraph/conduit/transform"
)

// Option configures a Conduit instance.
type Option func(*Conduit) error

// WithStore sets the persistence backend for the Conduit instance.
func WithStore(s store.Store) Option {
	return func(c *Conduit) error {
		c.store = s
		return nil
	}
}

// WithCache sets the cache backend used for response caching and rate
// limit counters. Defaults to an in-process memory cache.
func WithCache(s cache.Store) Option {
	return func(c *Conduit) error {
		c.cache = s
		return nil
	}
}

// WithLogger sets the structured logger for the Conduit instance.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Conduit) error {
		c.logger = logger
		return nil
	}
}

// WithHTTPClient sets the HTTP client used for proxying and outbound
// webhook delivery.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Conduit) error {
		c.httpClient = client
		return nil
	}
}

// WithMetrics sets the metrics collector.
func WithMetrics(m *observability.Metrics) Option {
	return func(c *Conduit) error {
		c.metrics = m
		return nil
	}
}

// WithTracer sets the tracer.
func WithTracer(t *observability.Tracer) Option {
	return func(c *Conduit) error {
		c.tracer = t
		return nil
	}
}

// WithAPIKeys sets the accepted keys for api_key endpoint auth.
func WithAPIKeys(keys ...string) Option {
	return func(c *Conduit) error {
		c.authOpts = append(c.authOpts, auth.WithAPIKeys(keys...))
		return nil
	}
}

// WithBearerValidator sets the token validator for bearer endpoint auth.
func WithBearerValidator(tv auth.TokenValidator) Option {
	return func(c *Conduit) error {
		c.authOpts = append(c.authOpts, auth.WithBearerValidator(tv))
		return nil
	}
}

// WithDelegatedAuth sets the callback for delegated endpoint auth.
func WithDelegatedAuth(fn auth.DelegatedFunc) Option {
	return func(c *Conduit) error {
		c.authOpts = append(c.authOpts, auth.WithDelegated(fn))
		return nil
	}
}

// WithHandler registers a named native controller handler.
func WithHandler(name string, handler any) Option {
	return func(c *Conduit) error {
		return c.handlers.Register(name, handler)
	}
}

// WithNamespaceResolver registers a template placeholder namespace
// (e.g. "site" for {{site.url}}).
func WithNamespaceResolver(prefix string, res template.Resolver) Option {
	return func(c *Conduit) error {
		c.renderer.RegisterNamespace(prefix, res)
		return nil
	}
}

// WithTransform registers a named value transform usable in mapping rules.
func WithTransform(name string, fn transform.Func) Option {
	return func(c *Conduit) error {
		c.transforms.Register(name, fn)
		return nil
	}
}

// WithConcurrency sets the number of dispatch worker goroutines.
func WithConcurrency(n int) Option {
	return func(c *Conduit) error {
		c.config.Concurrency = n
		return nil
	}
}

// WithPollInterval sets how often the dispatch queue checks for due items.
func WithPollInterval(d time.Duration) Option {
	return func(c *Conduit) error {
		c.config.PollInterval = d
		return nil
	}
}

// WithBatchSize sets the maximum number of items dequeued per poll cycle.
func WithBatchSize(n int) Option {
	return func(c *Conduit) error {
		c.config.BatchSize = n
		return nil
	}
}

// WithProxyTimeout sets the HTTP timeout for proxy endpoint calls.
func WithProxyTimeout(d time.Duration) Option {
	return func(c *Conduit) error {
		c.config.ProxyTimeout = d
		return nil
	}
}

// WithProgramCacheTTL sets how long compiled inline scripts are cached.
func WithProgramCacheTTL(d time.Duration) Option {
	return func(c *Conduit) error {
		c.config.ProgramCacheTTL = d
		return nil
	}
}

// WithLogRetention sets how long audit records are kept.
func WithLogRetention(d time.Duration) Option {
	return func(c *Conduit) error {
		c.config.LogRetention = d
		return nil
	}
}

// WithSweepInterval sets how often the audit log sweeper runs.
func WithSweepInterval(d time.Duration) Option {
	return func(c *Conduit) error {
		c.config.SweepInterval = d
		return nil
	}
}

// WithAPINamespace sets the path prefix for the ingest webhook route.
func WithAPINamespace(ns string) Option {
	return func(c *Conduit) error {
		c.config.APINamespace = ns
		return nil
	}
}
