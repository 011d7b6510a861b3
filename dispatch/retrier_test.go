package dispatch

import (
	"testing"
	"time"
)

func TestDecide(t *testing.T) {
	r := NewRetrier()
	wh := &Webhook{MaxRetries: 3}

	tests := []struct {
		name       string
		statusCode int
		errMsg     string
		retryCount int
		want       Decision
	}{
		{"200 delivered", 200, "", 0, Delivered},
		{"204 delivered", 204, "", 2, Delivered},
		{"500 first failure retries", 500, "", 0, Retry},
		{"404 retries too", 404, "", 0, Retry},
		{"network error retries", 0, "connection refused", 1, Retry},
		{"last allowed retry", 500, "", 2, Retry},
		{"retries exhausted", 500, "", 3, Failed},
		{"network error exhausted", 0, "timeout", 3, Failed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			item := &Item{RetryCount: tt.retryCount}
			res := Result{StatusCode: tt.statusCode, Error: tt.errMsg}
			if got := r.Decide(res, wh, item); got != tt.want {
				t.Errorf("Decide() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDecideZeroMaxRetriesFailsImmediately(t *testing.T) {
	r := NewRetrier()
	wh := &Webhook{MaxRetries: 0}
	item := &Item{RetryCount: 0}

	if got := r.Decide(Result{StatusCode: 500}, wh, item); got != Failed {
		t.Errorf("Decide() = %v, want Failed", got)
	}
}

func TestNextAttemptExponentialBackoff(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	r := &Retrier{now: func() time.Time { return now }}
	wh := &Webhook{RetryDelaySeconds: 60}

	tests := []struct {
		retryCount int
		want       time.Duration
	}{
		{0, 60 * time.Second},
		{1, 120 * time.Second},
		{2, 240 * time.Second},
		{3, 480 * time.Second},
	}
	for _, tt := range tests {
		got := r.NextAttempt(wh, tt.retryCount)
		if got.Sub(now) != tt.want {
			t.Errorf("NextAttempt(%d) = +%v, want +%v", tt.retryCount, got.Sub(now), tt.want)
		}
	}
}

func TestNextAttemptDefaultBase(t *testing.T) {
	now := time.Now()
	r := &Retrier{now: func() time.Time { return now }}
	wh := &Webhook{}

	if got := r.NextAttempt(wh, 0); got.Sub(now.UTC()) != time.Minute {
		t.Errorf("default base = %v, want 1m", got.Sub(now.UTC()))
	}
}
