package llm

import (
	"context"
	"fmt"
	"time"

	"github.com/voicedesk/support-voice-agent/pkg/logging"
)

// RetryPolicy defines bounded exponential backoff for transient failures.
type RetryPolicy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
}

// NewRetryPolicy applies sane defaults to zero values.
func NewRetryPolicy(maxAttempts int, baseDelay, maxDelay time.Duration) RetryPolicy {
	if maxAttempts <= 0 {
		maxAttempts = 3
	}
	if baseDelay <= 0 {
		baseDelay = 500 * time.Millisecond
	}
	if maxDelay <= 0 {
		maxDelay = 8 * time.Second
	}
	return RetryPolicy{MaxAttempts: maxAttempts, BaseDelay: baseDelay, MaxDelay: maxDelay}
}

// delay returns the backoff before attempt n (0-based), capped at MaxDelay.
func (r RetryPolicy) delay(attempt int) time.Duration {
	d := r.BaseDelay << attempt
	if d > r.MaxDelay || d <= 0 {
		return r.MaxDelay
	}
	return d
}

// ResilientClient wraps an LLMClient with a per-request timeout, bounded
// retry with exponential backoff for transient failure classes, and a
// circuit breaker tracking consecutive failures across turns. It is the only
// resilience layer in the system; other providers fail soft at their call
// sites.
type ResilientClient struct {
	inner   LLMClient
	policy  RetryPolicy
	breaker *CircuitBreaker
	timeout time.Duration
	logger  *logging.Logger
}

// NewResilientClient wraps inner. breaker may be shared across wrappers of
// the same provider.
func NewResilientClient(inner LLMClient, policy RetryPolicy, breaker *CircuitBreaker, timeout time.Duration, logger *logging.Logger) *ResilientClient {
	if inner == nil {
		panic("llm: inner client cannot be nil")
	}
	if breaker == nil {
		breaker = NewCircuitBreaker(0, 0, 0)
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &ResilientClient{
		inner:   inner,
		policy:  policy,
		breaker: breaker,
		timeout: timeout,
		logger:  logger.WithComponent("llm_resilient"),
	}
}

// Complete calls the wrapped provider, retrying transient failures. When the
// breaker is open it fails fast with ErrCircuitOpen so an outage does not
// stack slow timeouts.
func (c *ResilientClient) Complete(ctx context.Context, req LLMRequest) (LLMResponse, error) {
	if !c.breaker.Allow() {
		return LLMResponse{}, ErrCircuitOpen
	}

	var lastErr error
	for attempt := 0; attempt < c.policy.MaxAttempts; attempt++ {
		callCtx, cancel := context.WithTimeout(ctx, c.timeout)
		resp, err := c.inner.Complete(callCtx, req)
		cancel()

		if err == nil {
			c.breaker.OnSuccess()
			return resp, nil
		}
		lastErr = err

		if !IsRetryable(err) {
			c.logger.Warn("llm call failed permanently", "attempt", attempt+1, "error", err)
			break
		}
		c.logger.Warn("llm call failed, will retry", "attempt", attempt+1, "max_attempts", c.policy.MaxAttempts, "error", err)

		if attempt == c.policy.MaxAttempts-1 {
			break
		}
		select {
		case <-time.After(c.policy.delay(attempt)):
		case <-ctx.Done():
			c.breaker.OnFailure()
			return LLMResponse{}, ctx.Err()
		}
	}

	c.breaker.OnFailure()
	return LLMResponse{}, fmt.Errorf("llm: completion failed: %w", lastErr)
}
