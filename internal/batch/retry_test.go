package batch

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/govbizai/matchcore/internal/embedding"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastRetryer(name string) *Retryer {
	r := NewRetryer(name)
	r.delayFn = func(int) time.Duration { return time.Millisecond }
	return r
}

func transientErr() error {
	return &embedding.ServiceError{Class: embedding.ErrTransient, Err: errors.New("upstream unavailable")}
}

// TestRetryer_SucceedsAfterTransientFailures exercises the
// retry-then-succeed path spec.md §4.6 step 6 describes ("transient
// worker errors are retried up to 3 times with exponential backoff"):
// a call that fails twice with a retryable error and succeeds on the
// third attempt must return nil, having been invoked exactly 3 times.
func TestRetryer_SucceedsAfterTransientFailures(t *testing.T) {
	r := fastRetryer("test-transient-then-success")

	attempts := 0
	err := r.Do(context.Background(), func() error {
		attempts++
		if attempts < 3 {
			return transientErr()
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, attempts)
}

// TestRetryer_GivesUpAfterMaxAttempts confirms a persistently
// transient failure is retried exactly maxAttempts times and then
// surfaces the last error, rather than retrying forever.
func TestRetryer_GivesUpAfterMaxAttempts(t *testing.T) {
	r := fastRetryer("test-exhausted")

	attempts := 0
	err := r.Do(context.Background(), func() error {
		attempts++
		return transientErr()
	})

	require.Error(t, err)
	assert.Equal(t, maxAttempts, attempts)
}

// TestRetryer_NonRetryableFailsFast confirms a FATAL-class error
// (embedding.Retryable == false) short-circuits on the first attempt
// without consuming the retry budget (spec.md §4.10: "the core ...
// never retries on FATAL").
func TestRetryer_NonRetryableFailsFast(t *testing.T) {
	r := fastRetryer("test-fatal")

	attempts := 0
	err := r.Do(context.Background(), func() error {
		attempts++
		return &embedding.ServiceError{Class: embedding.ErrFatal, Err: errors.New("bad input")}
	})

	require.Error(t, err)
	assert.Equal(t, 1, attempts)
}

// TestRetryer_RateLimitIsRetryable confirms RATE_LIMIT is treated as
// transient (spec.md §7: "rate-limit errors: treated as transient with
// longer backoff").
func TestRetryer_RateLimitIsRetryable(t *testing.T) {
	r := fastRetryer("test-rate-limit")

	attempts := 0
	err := r.Do(context.Background(), func() error {
		attempts++
		if attempts < 2 {
			return &embedding.ServiceError{Class: embedding.ErrRateLimit, Err: errors.New("rate limited")}
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 2, attempts)
}

// TestRetryer_ContextCancelledDuringBackoffStops confirms a cancelled
// context aborts the wait between retries instead of sleeping it out.
func TestRetryer_ContextCancelledDuringBackoffStops(t *testing.T) {
	r := NewRetryer("test-cancel")
	r.delayFn = func(int) time.Duration { return time.Hour }

	ctx, cancel := context.WithCancel(context.Background())
	attempts := 0

	done := make(chan error, 1)
	go func() {
		done <- r.Do(ctx, func() error {
			attempts++
			return transientErr()
		})
	}()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("Do did not return promptly after context cancellation")
	}
	assert.Equal(t, 1, attempts)
}

func TestBackoffDelay_ExponentialWithCap(t *testing.T) {
	assert.Equal(t, retryBaseDelay, backoffDelay(0))
	assert.Equal(t, 2*retryBaseDelay, backoffDelay(1))
	assert.Equal(t, 4*retryBaseDelay, backoffDelay(2))
	assert.Equal(t, retryMaxDelay, backoffDelay(10))
}
