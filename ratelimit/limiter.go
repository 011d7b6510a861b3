// Package ratelimit implements fixed-window request counting on top of
// the cache store.
package ratelimit

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/xraph/conduit/cache"
)

// Window is the fixed counting window. Limits are expressed as requests
// per window.
const Window = time.Minute

// Limiter counts requests per (scope, identifier) pair in fixed
// windows. The counter increment is atomic, so concurrent requests
// cannot slip past the limit between a read and a write.
type Limiter struct {
	store cache.Store
}

// New returns a Limiter backed by store.
func New(store cache.Store) *Limiter {
	return &Limiter{store: store}
}

// Allow reports whether one more request from identifier is within
// limit for scope. A non-positive limit disables limiting. When the
// backing store fails the request is allowed and the error returned, so
// a cache outage degrades to no limiting instead of an outage.
func (l *Limiter) Allow(ctx context.Context, scope, identifier string, limit int) (bool, error) {
	if limit <= 0 {
		return true, nil
	}
	n, err := l.store.Incr(ctx, key(scope, identifier), Window)
	if err != nil {
		return true, fmt.Errorf("rate limit counter: %w", err)
	}
	return n <= int64(limit), nil
}

// Remaining reports how many requests identifier has left in the
// current window without consuming a slot. Counters are stored as
// decimal strings by both cache backends.
func (l *Limiter) Remaining(ctx context.Context, scope, identifier string, limit int) (int, error) {
	if limit <= 0 {
		return limit, nil
	}
	val, ok, err := l.store.Get(ctx, key(scope, identifier))
	if err != nil {
		return 0, fmt.Errorf("rate limit counter: %w", err)
	}
	var n int64
	if ok {
		n, _ = strconv.ParseInt(string(val), 10, 64)
	}
	left := limit - int(n)
	if left < 0 {
		left = 0
	}
	return left, nil
}

// Reset clears the current window for identifier within scope.
func (l *Limiter) Reset(ctx context.Context, scope, identifier string) error {
	return l.store.Delete(ctx, key(scope, identifier))
}

func key(scope, identifier string) string {
	return fmt.Sprintf("ratelimit:%s:%s", scope, identifier)
}
