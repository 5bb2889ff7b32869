package resilience

import (
	"context"
	"math"
	"math/rand"
	"time"

	"github.com/energydatahub/energyhub/internal/logger"
)

type RetryConfig struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	BackoffBase  float64
	Jitter       bool
}

func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:  3,
		InitialDelay: 1 * time.Second,
		MaxDelay:     60 * time.Second,
		BackoffBase:  2.0,
		Jitter:       true,
	}
}

// DelayBeforeAttempt returns the undithered backoff delay slept before
// attempt k (k >= 2). Attempt 1 runs immediately. InitialDelay of zero is
// legal and yields immediate retries.
func (c RetryConfig) DelayBeforeAttempt(attempt int) time.Duration {
	if attempt < 2 || c.InitialDelay <= 0 {
		return 0
	}
	d := time.Duration(float64(c.InitialDelay) * math.Pow(c.BackoffBase, float64(attempt-2)))
	if c.MaxDelay > 0 && d > c.MaxDelay {
		d = c.MaxDelay
	}
	return d
}

// Retrier runs an operation with exponential backoff. Every error from
// the operation is retryable; adapters encode non-retryable conditions by
// returning a sentinel payload instead of failing mid-fetch.
type Retrier struct {
	cfg RetryConfig
	rnd func() float64
}

func NewRetrier(cfg RetryConfig) *Retrier {
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 3
	}
	if cfg.BackoffBase <= 0 {
		cfg.BackoffBase = 2.0
	}
	if cfg.MaxDelay <= 0 {
		cfg.MaxDelay = 60 * time.Second
	}

	return &Retrier{
		cfg: cfg,
		rnd: rand.Float64,
	}
}

func (r *Retrier) Config() RetryConfig {
	return r.cfg
}

// Do runs op until it succeeds or the attempt budget is spent. It returns
// the number of attempts made and the last error. Context cancellation
// aborts both the current sleep and the loop, surfacing ctx.Err().
func (r *Retrier) Do(ctx context.Context, name string, op func(ctx context.Context) error) (int, error) {
	var lastErr error

	for attempt := 1; attempt <= r.cfg.MaxAttempts; attempt++ {
		if attempt > 1 {
			if err := r.sleep(ctx, r.jittered(r.cfg.DelayBeforeAttempt(attempt))); err != nil {
				return attempt - 1, err
			}
		}

		if err := ctx.Err(); err != nil {
			return attempt - 1, err
		}

		err := op(ctx)
		if err == nil {
			return attempt, nil
		}
		if ctx.Err() != nil {
			return attempt, ctx.Err()
		}

		lastErr = err
		logger.WithCollector(name).Warnf("Attempt %d/%d failed: %v", attempt, r.cfg.MaxAttempts, err)
	}

	logger.WithCollector(name).Errorf("All %d attempts failed, last error: %v", r.cfg.MaxAttempts, lastErr)
	return r.cfg.MaxAttempts, lastErr
}

// jittered draws the actual sleep uniformly from [0.5d, 1.0d] so
// collectors sharing a schedule do not retry in lockstep.
func (r *Retrier) jittered(d time.Duration) time.Duration {
	if !r.cfg.Jitter || d <= 0 {
		return d
	}
	return time.Duration(float64(d) * (0.5 + r.rnd()*0.5))
}

func (r *Retrier) sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
