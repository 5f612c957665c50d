package llm

import (
	"context"
	"errors"

	"github.com/voicedesk/support-voice-agent/pkg/logging"
)

// FallbackClient wraps a primary LLM client with a secondary provider.
// If the primary fails, it retries the same request against the fallback.
type FallbackClient struct {
	primary  LLMClient
	fallback LLMClient
	logger   *logging.Logger
}

// NewFallbackClient creates a fallback-enabled client. If fallback is nil,
// only the primary provider is used.
func NewFallbackClient(primary, fallback LLMClient, logger *logging.Logger) *FallbackClient {
	if primary == nil {
		panic("llm: primary client cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &FallbackClient{
		primary:  primary,
		fallback: fallback,
		logger:   logger.WithComponent("llm_fallback"),
	}
}

// Complete sends the request to the primary provider, switching to the
// fallback on failure. An open circuit on the primary is not rescued here;
// the caller is expected to degrade the whole turn instead.
func (c *FallbackClient) Complete(ctx context.Context, req LLMRequest) (LLMResponse, error) {
	resp, err := c.primary.Complete(ctx, req)
	if err == nil {
		return resp, nil
	}
	if errors.Is(err, ErrCircuitOpen) || c.fallback == nil {
		return LLMResponse{}, err
	}

	c.logger.Warn("primary llm failed, attempting fallback", "error", err)

	fallbackResp, fallbackErr := c.fallback.Complete(ctx, req)
	if fallbackErr != nil {
		c.logger.Error("fallback llm also failed",
			"primary_error", err,
			"fallback_error", fallbackErr,
		)
		return LLMResponse{}, fallbackErr
	}

	c.logger.Info("fallback llm succeeded after primary failure")
	return fallbackResp, nil
}

// StaticModelClient pins the model id on every request, so a fallback
// provider can run a different model against the same conversation.
type StaticModelClient struct {
	inner LLMClient
	model string
}

func NewStaticModelClient(inner LLMClient, model string) *StaticModelClient {
	if inner == nil {
		panic("llm: inner client cannot be nil")
	}
	return &StaticModelClient{inner: inner, model: model}
}

func (c *StaticModelClient) Complete(ctx context.Context, req LLMRequest) (LLMResponse, error) {
	req.Model = c.model
	return c.inner.Complete(ctx, req)
}
