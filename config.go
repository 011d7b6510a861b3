package conduit

import "time"

// Config holds the configuration for a Conduit instance.
type Config struct {
	// Concurrency is the number of dispatch worker goroutines.
	Concurrency int

	// PollInterval is how often the dispatch queue checks for due items.
	PollInterval time.Duration

	// BatchSize is the maximum number of items dequeued per poll cycle.
	BatchSize int

	// ProxyTimeout is the HTTP timeout for proxy endpoint calls.
	ProxyTimeout time.Duration

	// ProgramCacheTTL is how long compiled inline scripts are cached.
	// Set to 0 to cache forever.
	ProgramCacheTTL time.Duration

	// LogRetention is how long audit records are kept before the
	// sweeper purges them.
	LogRetention time.Duration

	// SweepInterval is how often the audit log sweeper runs.
	SweepInterval time.Duration

	// APINamespace is the path prefix for the ingest webhook route.
	APINamespace string
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Concurrency:     4,
		PollInterval:    1 * time.Second,
		BatchSize:       32,
		ProxyTimeout:    30 * time.Second,
		ProgramCacheTTL: 5 * time.Minute,
		LogRetention:    30 * 24 * time.Hour,
		SweepInterval:   1 * time.Hour,
		APINamespace:    "conduit/v1",
	}
}
