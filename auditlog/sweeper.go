package auditlog

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Sweeper deletes records past the retention window on a fixed
// interval.
type Sweeper struct {
	service   *Service
	interval  time.Duration
	retention time.Duration
	logger    *slog.Logger

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewSweeper creates a retention sweeper. Records older than retention
// are purged every interval.
func NewSweeper(service *Service, interval, retention time.Duration, logger *slog.Logger) *Sweeper {
	if logger == nil {
		logger = slog.Default()
	}
	return &Sweeper{
		service:   service,
		interval:  interval,
		retention: retention,
		logger:    logger,
	}
}

// Start begins the sweep loop.
func (s *Sweeper) Start(ctx context.Context) {
	ctx, s.cancel = context.WithCancel(ctx)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.loop(ctx)
	}()
}

// Stop cancels the sweep loop and waits for an in-flight sweep.
func (s *Sweeper) Stop(_ context.Context) {
	if s.cancel != nil {
		s.cancel()
	}
	s.wg.Wait()
}

func (s *Sweeper) loop(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

func (s *Sweeper) sweep(ctx context.Context) {
	cutoff := time.Now().UTC().Add(-s.retention)
	n, err := s.service.PurgeOlderThan(ctx, cutoff)
	if err != nil {
		s.logger.ErrorContext(ctx, "log sweep failed", "error", err)
		return
	}
	if n > 0 {
		s.logger.InfoContext(ctx, "log sweep completed",
			slog.Int64("purged", n),
			slog.Time("cutoff", cutoff))
	}
}
