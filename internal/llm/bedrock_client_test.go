package llm

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime/document"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	brtypes "github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"
)

type fakeConverseAPI struct {
	lastInput *bedrockruntime.ConverseInput
	output    *bedrockruntime.ConverseOutput
	err       error
}

func (f *fakeConverseAPI) Converse(_ context.Context, params *bedrockruntime.ConverseInput, _ ...func(*bedrockruntime.Options)) (*bedrockruntime.ConverseOutput, error) {
	f.lastInput = params
	return f.output, f.err
}

func textOutput(text string) *bedrockruntime.ConverseOutput {
	return &bedrockruntime.ConverseOutput{
		Output: &brtypes.ConverseOutputMemberMessage{
			Value: brtypes.Message{
				Role:    brtypes.ConversationRoleAssistant,
				Content: []brtypes.ContentBlock{&brtypes.ContentBlockMemberText{Value: text}},
			},
		},
		StopReason: brtypes.StopReasonEndTurn,
	}
}

func TestBedrockClientTextCompletion(t *testing.T) {
	api := &fakeConverseAPI{output: textOutput("  Hello there.  ")}
	client := NewBedrockClient(api)

	resp, err := client.Complete(context.Background(), LLMRequest{
		Model:       "anthropic.claude-3-haiku",
		System:      []string{"You are a support agent."},
		Messages:    []ChatMessage{{Role: ChatRoleUser, Content: "hi"}},
		MaxTokens:   512,
		Temperature: 0.2,
	})
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if resp.Text != "Hello there." {
		t.Errorf("Text = %q", resp.Text)
	}
	if resp.StopReason != string(brtypes.StopReasonEndTurn) {
		t.Errorf("StopReason = %q", resp.StopReason)
	}
	if len(api.lastInput.System) != 1 {
		t.Errorf("system blocks = %d, want 1", len(api.lastInput.System))
	}
	if api.lastInput.ToolConfig != nil {
		t.Error("ToolConfig should be nil when no tools are offered")
	}
}

func TestBedrockClientRequiresModel(t *testing.T) {
	client := NewBedrockClient(&fakeConverseAPI{})
	if _, err := client.Complete(context.Background(), LLMRequest{}); err == nil {
		t.Fatal("missing model id should fail")
	}
}

func TestBedrockClientSendsToolConfiguration(t *testing.T) {
	api := &fakeConverseAPI{output: textOutput("ok")}
	client := NewBedrockClient(api)

	_, err := client.Complete(context.Background(), LLMRequest{
		Model:    "anthropic.claude-3-haiku",
		Messages: []ChatMessage{{Role: ChatRoleUser, Content: "hi"}},
		Tools: []ToolDefinition{{
			Name:        "validate_email",
			Description: "Validate an email address.",
			InputSchema: map[string]any{
				"type":       "object",
				"properties": map[string]any{"email": map[string]any{"type": "string"}},
				"required":   []string{"email"},
			},
		}},
		ToolChoice: ToolChoiceAuto,
	})
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	cfg := api.lastInput.ToolConfig
	if cfg == nil {
		t.Fatal("ToolConfig not set")
	}
	if len(cfg.Tools) != 1 {
		t.Fatalf("tools = %d, want 1", len(cfg.Tools))
	}
	spec, ok := cfg.Tools[0].(*brtypes.ToolMemberToolSpec)
	if !ok {
		t.Fatalf("tool is %T, want ToolMemberToolSpec", cfg.Tools[0])
	}
	if aws.ToString(spec.Value.Name) != "validate_email" {
		t.Errorf("tool name = %q", aws.ToString(spec.Value.Name))
	}
	if _, ok := cfg.ToolChoice.(*brtypes.ToolChoiceMemberAuto); !ok {
		t.Errorf("tool choice is %T, want auto", cfg.ToolChoice)
	}
}

func TestBedrockClientDecodesToolUse(t *testing.T) {
	api := &fakeConverseAPI{output: &bedrockruntime.ConverseOutput{
		Output: &brtypes.ConverseOutputMemberMessage{
			Value: brtypes.Message{
				Role: brtypes.ConversationRoleAssistant,
				Content: []brtypes.ContentBlock{
					&brtypes.ContentBlockMemberToolUse{
						Value: brtypes.ToolUseBlock{
							ToolUseId: aws.String("tu-1"),
							Name:      aws.String("validate_email"),
							Input:     document.NewLazyDocument(map[string]any{"email": "user@example.com"}),
						},
					},
				},
			},
		},
		StopReason: brtypes.StopReasonToolUse,
	}}
	client := NewBedrockClient(api)

	resp, err := client.Complete(context.Background(), LLMRequest{
		Model:    "anthropic.claude-3-haiku",
		Messages: []ChatMessage{{Role: ChatRoleUser, Content: "my email is user@example.com"}},
	})
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if len(resp.ToolCalls) != 1 {
		t.Fatalf("tool calls = %d, want 1", len(resp.ToolCalls))
	}
	call := resp.ToolCalls[0]
	if call.ID != "tu-1" || call.Name != "validate_email" {
		t.Errorf("call = %+v", call)
	}
	var args map[string]any
	if err := json.Unmarshal(call.Arguments, &args); err != nil {
		t.Fatalf("arguments: %v", err)
	}
	if args["email"] != "user@example.com" {
		t.Errorf("args = %v", args)
	}
}

func TestBedrockClientRoundTripsToolResults(t *testing.T) {
	api := &fakeConverseAPI{output: textOutput("done")}
	client := NewBedrockClient(api)

	_, err := client.Complete(context.Background(), LLMRequest{
		Model: "anthropic.claude-3-haiku",
		Messages: []ChatMessage{
			{Role: ChatRoleUser, Content: "validate my email"},
			{Role: ChatRoleAssistant, ToolCalls: []ToolCall{{
				ID: "tu-1", Name: "validate_email", Arguments: json.RawMessage(`{"email":"user@example.com"}`),
			}}},
			{Role: ChatRoleUser, ToolResults: []ToolResult{{
				ToolCallID: "tu-1", Content: json.RawMessage(`{"success":true,"valid":true}`),
			}}},
		},
	})
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if got := len(api.lastInput.Messages); got != 3 {
		t.Fatalf("messages = %d, want 3", got)
	}

	assistant := api.lastInput.Messages[1]
	if _, ok := assistant.Content[0].(*brtypes.ContentBlockMemberToolUse); !ok {
		t.Errorf("assistant block is %T, want tool use", assistant.Content[0])
	}
	resultMsg := api.lastInput.Messages[2]
	block, ok := resultMsg.Content[0].(*brtypes.ContentBlockMemberToolResult)
	if !ok {
		t.Fatalf("result block is %T, want tool result", resultMsg.Content[0])
	}
	if aws.ToString(block.Value.ToolUseId) != "tu-1" {
		t.Errorf("tool use id = %q", aws.ToString(block.Value.ToolUseId))
	}
	if block.Value.Status != brtypes.ToolResultStatusSuccess {
		t.Errorf("status = %q", block.Value.Status)
	}
}
