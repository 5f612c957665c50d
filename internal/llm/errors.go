package llm

import (
	"context"
	"errors"
	"net"
	"syscall"

	"github.com/aws/smithy-go"
)

// ErrCircuitOpen is returned when the circuit breaker is short-circuiting
// calls during a provider outage.
var ErrCircuitOpen = errors.New("llm: circuit open")

// RateLimitError represents a provider rate limit response.
type RateLimitError struct {
	Provider string
	Message  string
}

func (e RateLimitError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return "rate limit"
}

// IsRateLimit returns true when the error is a RateLimitError.
func IsRateLimit(err error) bool {
	var rl RateLimitError
	return errors.As(err, &rl)
}

// AuthError represents an authentication or quota failure that retrying
// cannot fix.
type AuthError struct {
	Provider string
	Message  string
}

func (e AuthError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return "authentication failed"
}

// Provider error codes that indicate a transient condition.
var retryableAPICodes = map[string]bool{
	"ThrottlingException":         true,
	"TooManyRequestsException":    true,
	"ServiceUnavailableException": true,
	"InternalServerException":     true,
	"ModelTimeoutException":       true,
	"ModelNotReadyException":      true,
}

// Provider error codes that fail permanently.
var permanentAPICodes = map[string]bool{
	"AccessDeniedException":         true,
	"UnauthorizedException":         true,
	"ValidationException":           true,
	"ResourceNotFoundException":     true,
	"ServiceQuotaExceededException": true,
}

// IsRetryable classifies an error into the transient bucket: timeouts, rate
// limits, 5xx-style provider faults, and network refusals. Auth and quota
// failures are permanent.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	if IsRateLimit(err) {
		return true
	}
	var authErr AuthError
	if errors.As(err, &authErr) {
		return false
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		code := apiErr.ErrorCode()
		if retryableAPICodes[code] {
			return true
		}
		if permanentAPICodes[code] {
			return false
		}
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	if errors.Is(err, syscall.ECONNREFUSED) || errors.Is(err, syscall.ECONNRESET) {
		return true
	}
	return false
}
