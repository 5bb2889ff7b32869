package resilience_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/energydatahub/energyhub/internal/resilience"
)

func TestRetryConfig_DelayBeforeAttempt(t *testing.T) {
	cfg := resilience.RetryConfig{
		MaxAttempts:  5,
		InitialDelay: time.Second,
		MaxDelay:     60 * time.Second,
		BackoffBase:  2.0,
	}

	tests := []struct {
		attempt  int
		expected time.Duration
	}{
		{1, 0},
		{2, time.Second},
		{3, 2 * time.Second},
		{4, 4 * time.Second},
		{5, 8 * time.Second},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, cfg.DelayBeforeAttempt(tt.attempt), "attempt %d", tt.attempt)
	}
}

func TestRetryConfig_DelayCappedAtMax(t *testing.T) {
	cfg := resilience.RetryConfig{
		InitialDelay: 30 * time.Second,
		MaxDelay:     60 * time.Second,
		BackoffBase:  2.0,
	}

	assert.Equal(t, 30*time.Second, cfg.DelayBeforeAttempt(2))
	assert.Equal(t, 60*time.Second, cfg.DelayBeforeAttempt(3))
	assert.Equal(t, 60*time.Second, cfg.DelayBeforeAttempt(4))
}

func TestRetryConfig_ZeroInitialDelay(t *testing.T) {
	cfg := resilience.RetryConfig{InitialDelay: 0, BackoffBase: 2.0}

	assert.Equal(t, time.Duration(0), cfg.DelayBeforeAttempt(2))
	assert.Equal(t, time.Duration(0), cfg.DelayBeforeAttempt(5))
}

func TestRetrier_SucceedsFirstAttempt(t *testing.T) {
	r := resilience.NewRetrier(resilience.RetryConfig{MaxAttempts: 3})

	calls := 0
	attempts, err := r.Do(context.Background(), "test", func(ctx context.Context) error {
		calls++
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 1, attempts)
	assert.Equal(t, 1, calls)
}

func TestRetrier_ExhaustsAttempts(t *testing.T) {
	r := resilience.NewRetrier(resilience.RetryConfig{
		MaxAttempts:  3,
		InitialDelay: 0,
		BackoffBase:  2.0,
	})

	opErr := errors.New("connection refused")
	calls := 0
	attempts, err := r.Do(context.Background(), "test", func(ctx context.Context) error {
		calls++
		return opErr
	})

	assert.ErrorIs(t, err, opErr)
	assert.Equal(t, 3, attempts)
	assert.Equal(t, 3, calls)
}

func TestRetrier_EventualSuccess(t *testing.T) {
	r := resilience.NewRetrier(resilience.RetryConfig{
		MaxAttempts:  4,
		InitialDelay: 0,
		BackoffBase:  2.0,
	})

	calls := 0
	attempts, err := r.Do(context.Background(), "test", func(ctx context.Context) error {
		calls++
		if calls < 3 {
			return errors.New("transient")
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, attempts)
}

func TestRetrier_SingleAttempt(t *testing.T) {
	r := resilience.NewRetrier(resilience.RetryConfig{MaxAttempts: 1})

	calls := 0
	attempts, err := r.Do(context.Background(), "test", func(ctx context.Context) error {
		calls++
		return errors.New("boom")
	})

	assert.Error(t, err)
	assert.Equal(t, 1, attempts)
	assert.Equal(t, 1, calls)
}

func TestRetrier_ContextCancelledDuringSleep(t *testing.T) {
	r := resilience.NewRetrier(resilience.RetryConfig{
		MaxAttempts:  3,
		InitialDelay: time.Second,
		BackoffBase:  2.0,
	})

	ctx, cancel := context.WithCancel(context.Background())

	calls := 0
	done := make(chan struct{})
	var attempts int
	var err error
	go func() {
		attempts, err = r.Do(ctx, "test", func(ctx context.Context) error {
			calls++
			return errors.New("transient")
		})
		close(done)
	}()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Do did not return after cancellation")
	}

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, attempts)
	assert.Equal(t, 1, calls)
}

func TestRetrier_ContextAlreadyCancelled(t *testing.T) {
	r := resilience.NewRetrier(resilience.RetryConfig{MaxAttempts: 3})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	calls := 0
	attempts, err := r.Do(ctx, "test", func(ctx context.Context) error {
		calls++
		return nil
	})

	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, attempts)
	assert.Zero(t, calls)
}

func TestRetrier_BackoffWithoutJitterIsSlept(t *testing.T) {
	r := resilience.NewRetrier(resilience.RetryConfig{
		MaxAttempts:  2,
		InitialDelay: 40 * time.Millisecond,
		BackoffBase:  2.0,
		Jitter:       false,
	})

	start := time.Now()
	attempts, err := r.Do(context.Background(), "test", func(ctx context.Context) error {
		return errors.New("transient")
	})
	elapsed := time.Since(start)

	assert.Error(t, err)
	assert.Equal(t, 2, attempts)
	assert.GreaterOrEqual(t, elapsed, 40*time.Millisecond)
}

func TestRetrier_JitteredBackoffSleepsAtLeastHalf(t *testing.T) {
	r := resilience.NewRetrier(resilience.RetryConfig{
		MaxAttempts:  2,
		InitialDelay: 40 * time.Millisecond,
		BackoffBase:  2.0,
		Jitter:       true,
	})

	start := time.Now()
	_, err := r.Do(context.Background(), "test", func(ctx context.Context) error {
		return errors.New("transient")
	})
	elapsed := time.Since(start)

	assert.Error(t, err)
	// Jitter draws from [0.5d, 1.0d], never below half the base delay.
	assert.GreaterOrEqual(t, elapsed, 20*time.Millisecond)
}
