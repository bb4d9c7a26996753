package llm

import (
	"context"
	"errors"
	"time"
)

// SleepFunc waits for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

// RetryProvider is a decorator that retries failed generations with linear
// backoff: the wait before attempt n is Delay × (n-1).
type RetryProvider struct {
	inner  Provider
	config RetryConfig
	sleep  SleepFunc
}

// RetryOption customizes a RetryProvider.
type RetryOption func(*RetryProvider)

// WithSleep replaces the wall-clock sleep, mainly for tests.
func WithSleep(fn SleepFunc) RetryOption {
	return func(r *RetryProvider) { r.sleep = fn }
}

// WithRetry wraps a Provider with retry logic.
func WithRetry(p Provider, cfg RetryConfig, opts ...RetryOption) Provider {
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 1
	}
	r := &RetryProvider{inner: p, config: cfg, sleep: sleepContext}
	for _, o := range opts {
		o(r)
	}
	return r
}

func (r *RetryProvider) Generate(ctx context.Context, req Request) (*Response, error) {
	var lastErr error
	observe := retryObserverFrom(ctx)

	for attempt := 1; attempt <= r.config.MaxAttempts; attempt++ {
		if attempt > 1 {
			if observe != nil {
				observe(attempt, r.config.MaxAttempts, lastErr)
			}
			if err := r.sleep(ctx, r.backoff(attempt, lastErr)); err != nil {
				return nil, err
			}
		}

		resp, err := r.attempt(ctx, req)
		if err == nil {
			return resp, nil
		}
		lastErr = err

		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		var timedOut *ErrAttemptTimeout
		if errors.As(err, &timedOut) {
			continue
		}
		// Context errors from the caller's chain are never retried.
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
	}

	return nil, &ErrGenerationFailed{Attempts: r.config.MaxAttempts, Err: lastErr}
}

// attempt runs one call under the per-attempt timeout. An attempt that hits
// its own deadline while ctx is still live reports ErrAttemptTimeout.
func (r *RetryProvider) attempt(ctx context.Context, req Request) (*Response, error) {
	if r.config.AttemptTimeout <= 0 {
		return r.inner.Generate(ctx, req)
	}
	actx, cancel := context.WithTimeout(ctx, r.config.AttemptTimeout)
	defer cancel()

	resp, err := r.inner.Generate(actx, req)
	if err != nil && ctx.Err() == nil && errors.Is(actx.Err(), context.DeadlineExceeded) {
		return nil, &ErrAttemptTimeout{Timeout: r.config.AttemptTimeout, Err: err}
	}
	return resp, err
}

func (r *RetryProvider) ModelID() string {
	return r.inner.ModelID()
}

// backoff computes the wait before the given 1-based attempt.
func (r *RetryProvider) backoff(attempt int, err error) time.Duration {
	wait := r.config.Delay * time.Duration(attempt-1)

	// A longer server-provided RetryAfter wins.
	var rl *ErrRateLimit
	if errors.As(err, &rl) && rl.RetryAfter > wait {
		return rl.RetryAfter
	}
	return wait
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
