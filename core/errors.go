package core

import (
	"errors"
	"fmt"
	"time"
)

// ConfigError reports an invalid run configuration (unknown scenario or agent
// type, non-positive iteration count). It is fatal: a run never starts.
type ConfigError struct {
	Msg string
}

// Error implements the error interface.
func (e *ConfigError) Error() string { return e.Msg }

// Configf builds a ConfigError with printf formatting.
func Configf(format string, args ...any) error {
	return &ConfigError{Msg: fmt.Sprintf(format, args...)}
}

// IsConfigError reports whether err is (or wraps) a ConfigError.
func IsConfigError(err error) bool {
	var ce *ConfigError
	return errors.As(err, &ce)
}

// ProviderError reports a transport-level failure talking to a model backend,
// including per-call timeouts. Retryable.
type ProviderError struct {
	Provider string
	Err      error
}

// Error implements the error interface.
func (e *ProviderError) Error() string {
	return fmt.Sprintf("provider %s: %v", e.Provider, e.Err)
}

// Unwrap returns the underlying cause.
func (e *ProviderError) Unwrap() error { return e.Err }

// RateLimitedError reports provider throttling. RetryAfter carries the
// provider's hint for when the call may be retried (zero if unknown).
// Retryable with backoff.
type RateLimitedError struct {
	Provider   string
	RetryAfter time.Duration
	Err        error
}

// Error implements the error interface.
func (e *RateLimitedError) Error() string {
	return fmt.Sprintf("provider %s rate limited (retry after %s): %v", e.Provider, e.RetryAfter, e.Err)
}

// Unwrap returns the underlying cause.
func (e *RateLimitedError) Unwrap() error { return e.Err }

// InvalidResponseError reports a provider response that could not be parsed
// into the expected turn shape (no choices, empty content). Retryable.
type InvalidResponseError struct {
	Provider string
	Reason   string
}

// Error implements the error interface.
func (e *InvalidResponseError) Error() string {
	return fmt.Sprintf("provider %s returned invalid response: %s", e.Provider, e.Reason)
}

// IsRetryable reports whether err belongs to the retryable provider error
// family. Everything else is treated as a hard failure by the retry layer.
func IsRetryable(err error) bool {
	var pe *ProviderError
	var rl *RateLimitedError
	var ir *InvalidResponseError

	return errors.As(err, &pe) || errors.As(err, &rl) || errors.As(err, &ir)
}

// StepFailedError reports that an agent could not produce a turn after the
// provider retry budget was exhausted (or, for society agents, that every
// sub-agent failed). It counts as a single-iteration failure.
type StepFailedError struct {
	Agent string
	Err   error
}

// Error implements the error interface.
func (e *StepFailedError) Error() string {
	return fmt.Sprintf("agent %s step failed: %v", e.Agent, e.Err)
}

// Unwrap returns the underlying cause.
func (e *StepFailedError) Unwrap() error { return e.Err }

// SinkError reports a failure handing a finalized record to a sink. The
// in-memory record stays intact; callers may fall back to local persistence.
type SinkError struct {
	Sink string
	Err  error
}

// Error implements the error interface.
func (e *SinkError) Error() string {
	return fmt.Sprintf("sink %s: %v", e.Sink, e.Err)
}

// Unwrap returns the underlying cause.
func (e *SinkError) Unwrap() error { return e.Err }
