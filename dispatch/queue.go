package dispatch

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/xraph/conduit/observability"
)

// QueueConfig holds queue engine configuration.
type QueueConfig struct {
	Concurrency  int
	PollInterval time.Duration
	BatchSize    int
	Metrics      *observability.Metrics
	Tracer       *observability.Tracer
}

// Queue is the delivery worker pool that polls for due items and
// processes them.
type Queue struct {
	store   Store
	handler *Handler
	config  QueueConfig
	logger  *slog.Logger

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewQueue creates a queue engine.
func NewQueue(store Store, handler *Handler, cfg QueueConfig, logger *slog.Logger) *Queue {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 4
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = time.Second
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 32
	}
	return &Queue{
		store:   store,
		handler: handler,
		config:  cfg,
		logger:  logger,
	}
}

// Start begins the poll loop and workers.
func (q *Queue) Start(ctx context.Context) {
	ctx, q.cancel = context.WithCancel(ctx)

	q.wg.Add(1)
	go func() {
		defer q.wg.Done()
		q.pollLoop(ctx)
	}()
}

// Stop cancels the poll loop and waits for in-flight deliveries to
// complete.
func (q *Queue) Stop(_ context.Context) {
	if q.cancel != nil {
		q.cancel()
	}
	q.wg.Wait()
}

// pollLoop periodically dequeues due items and hands them to workers.
func (q *Queue) pollLoop(ctx context.Context) {
	ticker := time.NewTicker(q.config.PollInterval)
	defer ticker.Stop()

	sem := make(chan struct{}, q.config.Concurrency)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			batch, err := q.store.DequeueDue(ctx, time.Now().UTC(), q.config.BatchSize)
			if err != nil {
				q.logger.ErrorContext(ctx, "dequeue failed", "error", err)
				continue
			}
			q.observeDepth(ctx)

			for _, item := range batch {
				select {
				case <-ctx.Done():
					return
				case sem <- struct{}{}:
				}

				q.wg.Add(1)
				go func(it *Item) {
					defer q.wg.Done()
					defer func() { <-sem }()
					q.process(ctx, it)
				}(item)
			}
		}
	}
}

func (q *Queue) process(ctx context.Context, item *Item) {
	var span trace.Span
	if q.config.Tracer != nil {
		ctx, span = q.config.Tracer.StartDispatchSpan(ctx, item.ID.String(), item.WebhookID.String(), item.EventName)
	}

	res := q.handler.Process(ctx, item)

	if q.config.Metrics != nil {
		q.config.Metrics.ObserveDispatch(item.EventName, res.StatusCode, res.LatencyMs)
	}
	if span != nil {
		q.config.Tracer.EndDispatchSpan(span, res.StatusCode, res.LatencyMs, res.Error)
	}
}

func (q *Queue) observeDepth(ctx context.Context) {
	if q.config.Metrics == nil {
		return
	}
	if n, err := q.store.PendingQueueCount(ctx); err == nil {
		q.config.Metrics.SetQueueDepth(n)
	}
}
