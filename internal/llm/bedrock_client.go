package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime/document"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	brtypes "github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"
)

type bedrockConverseAPI interface {
	Converse(ctx context.Context, params *bedrockruntime.ConverseInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.ConverseOutput, error)
}

// BedrockClient implements LLMClient against the Bedrock Converse API,
// including tool configuration and tool-use round trips.
type BedrockClient struct {
	api bedrockConverseAPI
}

func NewBedrockClient(api bedrockConverseAPI) *BedrockClient {
	if api == nil {
		panic("llm: bedrock converse client cannot be nil")
	}
	return &BedrockClient{api: api}
}

func (c *BedrockClient) Complete(ctx context.Context, req LLMRequest) (LLMResponse, error) {
	if strings.TrimSpace(req.Model) == "" {
		return LLMResponse{}, errors.New("llm: bedrock model id is required")
	}

	systemBlocks := make([]brtypes.SystemContentBlock, 0, len(req.System))
	for _, block := range req.System {
		if strings.TrimSpace(block) == "" {
			continue
		}
		systemBlocks = append(systemBlocks, &brtypes.SystemContentBlockMemberText{Value: block})
	}

	messages := make([]brtypes.Message, 0, len(req.Messages))
	for _, msg := range req.Messages {
		switch msg.Role {
		case ChatRoleSystem:
			if content := strings.TrimSpace(msg.Content); content != "" {
				systemBlocks = append(systemBlocks, &brtypes.SystemContentBlockMemberText{Value: content})
			}
			continue
		case ChatRoleUser:
			blocks, err := userContentBlocks(msg)
			if err != nil {
				return LLMResponse{}, err
			}
			if len(blocks) == 0 {
				continue
			}
			messages = append(messages, brtypes.Message{
				Role:    brtypes.ConversationRoleUser,
				Content: blocks,
			})
		case ChatRoleAssistant:
			blocks, err := assistantContentBlocks(msg)
			if err != nil {
				return LLMResponse{}, err
			}
			if len(blocks) == 0 {
				continue
			}
			messages = append(messages, brtypes.Message{
				Role:    brtypes.ConversationRoleAssistant,
				Content: blocks,
			})
		default:
			return LLMResponse{}, fmt.Errorf("llm: unsupported role %q", msg.Role)
		}
	}

	inference := &brtypes.InferenceConfiguration{}
	if req.MaxTokens > 0 {
		inference.MaxTokens = aws.Int32(req.MaxTokens)
	}
	// Allow callers to omit temperature by passing a negative value.
	if req.Temperature >= 0 {
		inference.Temperature = aws.Float32(req.Temperature)
	}
	if req.TopP != 0 {
		inference.TopP = aws.Float32(req.TopP)
	}
	if inference.MaxTokens == nil && inference.Temperature == nil && inference.TopP == nil {
		inference = nil
	}

	input := &bedrockruntime.ConverseInput{
		ModelId:         aws.String(req.Model),
		System:          systemBlocks,
		Messages:        messages,
		InferenceConfig: inference,
	}
	if len(req.Tools) > 0 {
		toolConfig, err := buildToolConfiguration(req.Tools, req.ToolChoice)
		if err != nil {
			return LLMResponse{}, err
		}
		input.ToolConfig = toolConfig
	}

	out, err := c.api.Converse(ctx, input)
	if err != nil {
		return LLMResponse{}, err
	}

	return decodeConverseOutput(out)
}

func userContentBlocks(msg ChatMessage) ([]brtypes.ContentBlock, error) {
	blocks := make([]brtypes.ContentBlock, 0, 1+len(msg.ToolResults))
	for _, result := range msg.ToolResults {
		block, err := toolResultBlock(result)
		if err != nil {
			return nil, err
		}
		blocks = append(blocks, block)
	}
	if content := strings.TrimSpace(msg.Content); content != "" {
		blocks = append(blocks, &brtypes.ContentBlockMemberText{Value: content})
	}
	return blocks, nil
}

func assistantContentBlocks(msg ChatMessage) ([]brtypes.ContentBlock, error) {
	blocks := make([]brtypes.ContentBlock, 0, 1+len(msg.ToolCalls))
	if content := strings.TrimSpace(msg.Content); content != "" {
		blocks = append(blocks, &brtypes.ContentBlockMemberText{Value: content})
	}
	for _, call := range msg.ToolCalls {
		var args map[string]any
		if len(call.Arguments) > 0 {
			if err := json.Unmarshal(call.Arguments, &args); err != nil {
				return nil, fmt.Errorf("llm: tool call %s arguments: %w", call.Name, err)
			}
		}
		if args == nil {
			args = map[string]any{}
		}
		blocks = append(blocks, &brtypes.ContentBlockMemberToolUse{
			Value: brtypes.ToolUseBlock{
				ToolUseId: aws.String(call.ID),
				Name:      aws.String(call.Name),
				Input:     document.NewLazyDocument(args),
			},
		})
	}
	return blocks, nil
}

func toolResultBlock(result ToolResult) (brtypes.ContentBlock, error) {
	var content any
	if len(result.Content) > 0 {
		if err := json.Unmarshal(result.Content, &content); err != nil {
			return nil, fmt.Errorf("llm: tool result %s content: %w", result.ToolCallID, err)
		}
	}
	if content == nil {
		content = map[string]any{}
	}

	status := brtypes.ToolResultStatusSuccess
	if result.IsError {
		status = brtypes.ToolResultStatusError
	}
	return &brtypes.ContentBlockMemberToolResult{
		Value: brtypes.ToolResultBlock{
			ToolUseId: aws.String(result.ToolCallID),
			Status:    status,
			Content: []brtypes.ToolResultContentBlock{
				&brtypes.ToolResultContentBlockMemberJson{Value: document.NewLazyDocument(content)},
			},
		},
	}, nil
}

func buildToolConfiguration(tools []ToolDefinition, choice string) (*brtypes.ToolConfiguration, error) {
	specs := make([]brtypes.Tool, 0, len(tools))
	for _, tool := range tools {
		if strings.TrimSpace(tool.Name) == "" {
			return nil, errors.New("llm: tool definition requires a name")
		}
		schema := tool.InputSchema
		if schema == nil {
			schema = map[string]any{"type": "object"}
		}
		specs = append(specs, &brtypes.ToolMemberToolSpec{
			Value: brtypes.ToolSpecification{
				Name:        aws.String(tool.Name),
				Description: aws.String(tool.Description),
				InputSchema: &brtypes.ToolInputSchemaMemberJson{Value: document.NewLazyDocument(schema)},
			},
		})
	}

	cfg := &brtypes.ToolConfiguration{Tools: specs}
	if choice == ToolChoiceAuto {
		cfg.ToolChoice = &brtypes.ToolChoiceMemberAuto{Value: brtypes.AutoToolChoice{}}
	}
	return cfg, nil
}

func decodeConverseOutput(out *bedrockruntime.ConverseOutput) (LLMResponse, error) {
	if out == nil {
		return LLMResponse{}, errors.New("llm: bedrock response is nil")
	}
	msgOut, ok := out.Output.(*brtypes.ConverseOutputMemberMessage)
	if !ok {
		return LLMResponse{}, errors.New("llm: bedrock response did not include a message output")
	}

	var builder strings.Builder
	var toolCalls []ToolCall
	for _, block := range msgOut.Value.Content {
		switch v := block.(type) {
		case *brtypes.ContentBlockMemberText:
			builder.WriteString(v.Value)
		case *brtypes.ContentBlockMemberToolUse:
			call, err := decodeToolUse(v.Value)
			if err != nil {
				return LLMResponse{}, err
			}
			toolCalls = append(toolCalls, call)
		}
	}

	resp := LLMResponse{
		Text:      strings.TrimSpace(builder.String()),
		ToolCalls: toolCalls,
	}
	if out.StopReason != "" {
		resp.StopReason = string(out.StopReason)
	}
	if out.Usage != nil {
		resp.Usage = TokenUsage{
			InputTokens:  int32OrZero(out.Usage.InputTokens),
			OutputTokens: int32OrZero(out.Usage.OutputTokens),
			TotalTokens:  int32OrZero(out.Usage.TotalTokens),
		}
	}
	if resp.Text == "" && len(resp.ToolCalls) == 0 {
		return LLMResponse{}, errors.New("llm: bedrock response contained no text or tool use blocks")
	}
	return resp, nil
}

func decodeToolUse(block brtypes.ToolUseBlock) (ToolCall, error) {
	call := ToolCall{
		ID:   aws.ToString(block.ToolUseId),
		Name: aws.ToString(block.Name),
	}
	if block.Input == nil {
		call.Arguments = json.RawMessage(`{}`)
		return call, nil
	}

	var args map[string]any
	if err := block.Input.UnmarshalSmithyDocument(&args); err != nil {
		return ToolCall{}, fmt.Errorf("llm: tool use %s input: %w", call.Name, err)
	}
	raw, err := json.Marshal(args)
	if err != nil {
		return ToolCall{}, fmt.Errorf("llm: tool use %s input: %w", call.Name, err)
	}
	call.Arguments = raw
	return call, nil
}

func int32OrZero(v *int32) int32 {
	if v == nil {
		return 0
	}
	return *v
}
