package dispatch

import "time"

// Decision is the outcome of evaluating a delivery attempt.
type Decision int

const (
	// Delivered means the delivery succeeded (2xx).
	Delivered Decision = iota

	// Retry means the delivery should be attempted again later.
	Retry

	// Failed means the delivery has exhausted its retries.
	Failed
)

// Result holds the outcome of a single delivery attempt.
type Result struct {
	StatusCode int
	Error      string
	Response   string
	LatencyMs  int64
}

// Success reports whether the attempt got a 2xx response.
func (r Result) Success() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// Retrier decides what to do after a delivery attempt.
type Retrier struct {
	now func() time.Time
}

// NewRetrier creates a retrier.
func NewRetrier() *Retrier {
	return &Retrier{now: time.Now}
}

// Decide determines what to do with item after an attempt against wh.
// Any non-2xx outcome, including transport errors, retries until
// MaxRetries is exhausted.
func (r *Retrier) Decide(res Result, wh *Webhook, item *Item) Decision {
	if res.Success() {
		return Delivered
	}
	if item.RetryCount < wh.MaxRetries {
		return Retry
	}
	return Failed
}

// NextAttempt returns when the next attempt should run after retryCount
// failures: base * 2^retryCount from now.
func (r *Retrier) NextAttempt(wh *Webhook, retryCount int) time.Time {
	base := time.Duration(wh.RetryDelaySeconds) * time.Second
	if base <= 0 {
		base = time.Minute
	}
	if retryCount > 16 {
		retryCount = 16 // keep the shift from overflowing
	}
	return r.now().UTC().Add(base << retryCount)
}
