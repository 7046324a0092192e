package core

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{name: "provider error", err: &ProviderError{Provider: "openai", Err: assert.AnError}, want: true},
		{name: "rate limited", err: &RateLimitedError{Provider: "groq", Err: assert.AnError}, want: true},
		{name: "invalid response", err: &InvalidResponseError{Provider: "anthropic", Reason: "empty choices"}, want: true},
		{name: "wrapped provider error", err: fmt.Errorf("call failed: %w", &ProviderError{Provider: "openai", Err: assert.AnError}), want: true},
		{name: "config error", err: Configf("unknown scenario"), want: false},
		{name: "plain error", err: assert.AnError, want: false},
		{name: "nil", err: nil, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsRetryable(tt.err))
		})
	}
}

func TestIsConfigError(t *testing.T) {
	assert.True(t, IsConfigError(Configf("iterations must be positive, got %d", -1)))
	assert.True(t, IsConfigError(fmt.Errorf("wrapped: %w", Configf("bad"))))
	assert.False(t, IsConfigError(assert.AnError))
}

func TestStepFailedError_Unwrap(t *testing.T) {
	cause := &ProviderError{Provider: "openai", Err: assert.AnError}
	err := &StepFailedError{Agent: "Aria", Err: cause}

	var pe *ProviderError
	assert.True(t, errors.As(err, &pe))
	assert.Contains(t, err.Error(), "Aria")
}

func TestSinkError_Unwrap(t *testing.T) {
	err := &SinkError{Sink: "file", Err: assert.AnError}

	assert.ErrorIs(t, err, assert.AnError)
	assert.Contains(t, err.Error(), "file")
}
