// Package llm defines the language-model provider boundary: the completion
// contract with tool calling, the failure taxonomy, and the resilience
// wrappers applied to outbound calls.
package llm

import (
	"context"
	"encoding/json"
)

const (
	ChatRoleSystem    = "system"
	ChatRoleUser      = "user"
	ChatRoleAssistant = "assistant"
)

// Tool choice modes passed through to the provider.
const (
	ToolChoiceAuto = "auto"
	ToolChoiceNone = ""
)

// ToolDefinition describes one callable action offered to the model. The
// input schema is a JSON-schema object.
type ToolDefinition struct {
	Name        string
	Description string
	InputSchema map[string]any
}

// ToolCall is a structured action request emitted by the model.
type ToolCall struct {
	ID        string
	Name      string
	Arguments json.RawMessage
}

// ToolResult carries the executed outcome of a tool call back to the model.
type ToolResult struct {
	ToolCallID string
	Content    json.RawMessage
	IsError    bool
}

// ChatMessage is one entry in the rolling conversation history. Assistant
// messages may carry tool calls; user-role messages may carry tool results.
type ChatMessage struct {
	Role        string       `json:"role"`
	Content     string       `json:"content"`
	ToolCalls   []ToolCall   `json:"toolCalls,omitempty"`
	ToolResults []ToolResult `json:"toolResults,omitempty"`
}

type TokenUsage struct {
	InputTokens  int32
	OutputTokens int32
	TotalTokens  int32
}

type LLMRequest struct {
	Model       string
	System      []string
	Messages    []ChatMessage
	MaxTokens   int32
	Temperature float32
	TopP        float32
	Tools       []ToolDefinition
	ToolChoice  string
}

type LLMResponse struct {
	Text       string
	ToolCalls  []ToolCall
	Usage      TokenUsage
	StopReason string
}

type LLMClient interface {
	Complete(ctx context.Context, req LLMRequest) (LLMResponse, error)
}
