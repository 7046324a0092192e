package model

import (
	"context"
	"errors"
	"time"

	"github.com/hupe1980/convosim/core"
	"github.com/hupe1980/convosim/logging"
)

// RetryOptions configure the bounded-attempt retry decorator.
type RetryOptions struct {
	// MaxAttempts is the total call budget per generation, including the
	// first attempt.
	MaxAttempts int
	// InitialBackoff is the delay after the first retryable failure; it
	// doubles per attempt up to MaxBackoff. A rate-limit retry-after hint
	// overrides the computed backoff when larger.
	InitialBackoff time.Duration
	// MaxBackoff caps the exponential backoff.
	MaxBackoff time.Duration
	// Logger records per-attempt failures.
	Logger logging.Logger
	// Sleep is injectable for tests; defaults to a context-aware timer wait.
	Sleep func(ctx context.Context, d time.Duration) error
}

// retryModel wraps a Model with bounded attempts and backoff. All agents call
// providers through this decorator instead of duplicating retry control flow.
type retryModel struct {
	inner Model
	opts  RetryOptions
}

// WithRetry decorates m so retryable provider failures (transport, rate
// limit, invalid response) are retried up to MaxAttempts with exponential
// backoff. Non-retryable errors and context cancellation pass through
// immediately.
func WithRetry(m Model, optFns ...func(o *RetryOptions)) Model {
	opts := RetryOptions{
		MaxAttempts:    3,
		InitialBackoff: 500 * time.Millisecond,
		MaxBackoff:     10 * time.Second,
		Logger:         logging.NoOpLogger{},
		Sleep:          sleepContext,
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	if opts.MaxAttempts < 1 {
		opts.MaxAttempts = 1
	}

	return &retryModel{inner: m, opts: opts}
}

// Generate implements Model.
func (r *retryModel) Generate(ctx context.Context, req Request) (*Response, error) {
	backoff := r.opts.InitialBackoff

	var lastErr error
	for attempt := 1; attempt <= r.opts.MaxAttempts; attempt++ {
		resp, err := r.inner.Generate(ctx, req)
		if err == nil {
			return resp, nil
		}

		if !core.IsRetryable(err) || ctx.Err() != nil {
			return nil, err
		}

		lastErr = err

		if attempt == r.opts.MaxAttempts {
			break
		}

		delay := backoff

		var rl *core.RateLimitedError
		if errors.As(err, &rl) && rl.RetryAfter > delay {
			delay = rl.RetryAfter
		}

		r.opts.Logger.Warn("model call attempt %d/%d failed, retrying in %s: %v",
			attempt, r.opts.MaxAttempts, delay, err)

		if err := r.opts.Sleep(ctx, delay); err != nil {
			return nil, err
		}

		backoff *= 2
		if backoff > r.opts.MaxBackoff {
			backoff = r.opts.MaxBackoff
		}
	}

	return nil, lastErr
}

// Info implements Model.
func (r *retryModel) Info() Info { return r.inner.Info() }

// timeoutModel applies a per-call deadline to each generation, mapping
// deadline expiry to the retryable ProviderError case.
type timeoutModel struct {
	inner   Model
	timeout time.Duration
}

// WithTimeout decorates m with a per-call timeout. Compose inside WithRetry
// so each attempt gets a fresh deadline.
func WithTimeout(m Model, timeout time.Duration) Model {
	return &timeoutModel{inner: m, timeout: timeout}
}

// Generate implements Model.
func (t *timeoutModel) Generate(ctx context.Context, req Request) (*Response, error) {
	callCtx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	resp, err := t.inner.Generate(callCtx, req)
	if err != nil && errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
		return nil, &core.ProviderError{Provider: t.inner.Info().Provider, Err: err}
	}

	return resp, err
}

// Info implements Model.
func (t *timeoutModel) Info() Info { return t.inner.Info() }

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
