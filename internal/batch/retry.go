package batch

import (
	"context"
	"time"

	"github.com/govbizai/matchcore/internal/embedding"
	"github.com/sony/gobreaker/v2"
)

// Retry/backoff parameters for one batch item's processing attempt
// (spec.md §4.6 step 6: "retry/backoff (base 1s, cap 30s, 3 attempts)").
const (
	retryBaseDelay = time.Second
	retryMaxDelay  = 30 * time.Second
	maxAttempts    = 3
)

// Retryer wraps a circuit breaker (grounded on teacher
// internal/embedding.CircuitBreakerService's gobreaker wiring) around
// exponential backoff, so a struggling downstream (catalog, company
// store, embedding service) trips the breaker and stops eating the
// retry budget instead of retrying into a wall.
type Retryer struct {
	breaker *gobreaker.CircuitBreaker[struct{}]

	// delayFn computes the backoff delay before a given retry attempt
	// (0-indexed); overridable so tests can exercise the retry loop
	// without waiting out real exponential backoff.
	delayFn func(attempt int) time.Duration
}

// NewRetryer builds a Retryer named for logging/metrics; the breaker
// trips after 5 consecutive failures and resets after 30s, matching
// the embedding service's breaker settings.
func NewRetryer(name string) *Retryer {
	cb := gobreaker.NewCircuitBreaker[struct{}](gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
	})
	return &Retryer{breaker: cb, delayFn: backoffDelay}
}

// Do runs fn up to maxAttempts times with exponential backoff between
// retryable failures, short-circuiting on the first non-retryable
// error or once the breaker is open.
func (r *Retryer) Do(ctx context.Context, fn func() error) error {
	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		_, err := r.breaker.Execute(func() (struct{}, error) {
			return struct{}{}, fn()
		})
		if err == nil {
			return nil
		}
		lastErr = err
		if !embedding.Retryable(err) {
			return err
		}
		if attempt == maxAttempts-1 {
			break
		}
		select {
		case <-time.After(r.delayFn(attempt)):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return lastErr
}

func backoffDelay(attempt int) time.Duration {
	d := retryBaseDelay
	for i := 0; i < attempt; i++ {
		d *= 2
	}
	if d > retryMaxDelay {
		d = retryMaxDelay
	}
	return d
}
