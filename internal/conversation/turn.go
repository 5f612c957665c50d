package conversation

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/voicedesk/support-voice-agent/internal/dialog"
	"github.com/voicedesk/support-voice-agent/internal/llm"
	"github.com/voicedesk/support-voice-agent/internal/tools"
)

// safeTurn shields the turn loop: any panic becomes an error handled by the
// apology fallback, and the reentrancy guard is released by the caller.
func (s *Service) safeTurn(ctx context.Context, sess *session, utterance string) (reply string, toolCalls []string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("conversation: turn panicked: %v", r)
		}
	}()
	return s.runTurn(ctx, sess, utterance)
}

// runTurn is one full pass: deterministic collection, the model turn with its
// tool-call loop, and history persistence.
func (s *Service) runTurn(ctx context.Context, sess *session, utterance string) (string, []string, error) {
	m := sess.manager
	sessionID := m.SessionID()

	s.collectFromUtterance(ctx, m, utterance)

	history, err := s.history.Load(ctx, sessionID)
	if err != nil {
		return "", nil, err
	}
	if len(history) == 0 {
		// History expired mid-session; rebuild the instructions.
		prompt, err := buildSystemPrompt(ctx, s.catalog)
		if err != nil {
			return "", nil, err
		}
		history = []llm.ChatMessage{{Role: llm.ChatRoleSystem, Content: prompt}}
	}
	history = append(history, llm.ChatMessage{Role: llm.ChatRoleUser, Content: utterance})

	var reply string
	var executedTools []string
	for round := 0; round <= s.opts.MaxToolRounds; round++ {
		resp, err := s.llm.Complete(ctx, llm.LLMRequest{
			Model:       s.opts.ModelID,
			Messages:    history,
			MaxTokens:   s.opts.MaxTokens,
			Temperature: s.opts.Temperature,
			Tools:       tools.Definitions(),
			ToolChoice:  llm.ToolChoiceAuto,
		})
		if err != nil {
			return "", executedTools, err
		}
		s.metrics.ObserveTokens(resp.Usage.InputTokens, resp.Usage.OutputTokens)
		s.metrics.ObserveCost(s.costs.RecordLLM(sessionID, resp.Usage))

		if len(resp.ToolCalls) == 0 {
			reply = resp.Text
			if reply != "" {
				history = append(history, llm.ChatMessage{Role: llm.ChatRoleAssistant, Content: reply})
			}
			break
		}

		if round == s.opts.MaxToolRounds {
			s.logger.Warn("tool round budget exhausted", "session_id", sessionID, "rounds", round)
			reply = resp.Text
			break
		}

		history = append(history, llm.ChatMessage{
			Role:      llm.ChatRoleAssistant,
			Content:   resp.Text,
			ToolCalls: resp.ToolCalls,
		})

		// Sequential execution: later calls may depend on context mutated by
		// earlier ones.
		results := make([]llm.ToolResult, 0, len(resp.ToolCalls))
		for _, call := range resp.ToolCalls {
			result := s.executor.Execute(ctx, call)
			s.metrics.ObserveToolCall(call.Name, result.IsError)
			executedTools = append(executedTools, call.Name)
			s.applyToolEffects(m, call, result)
			results = append(results, result)
		}
		history = append(history, llm.ChatMessage{Role: llm.ChatRoleUser, ToolResults: results})
	}

	if err := s.history.Save(ctx, sessionID, history); err != nil {
		s.logger.Warn("history save failed", "session_id", sessionID, "error", err)
	}
	return reply, executedTools, nil
}

// applyToolEffects folds successful tool outcomes back into the session
// context. Ticket creation is the one place where tool output, not the
// caller's utterance, drives a state transition.
func (s *Service) applyToolEffects(m *dialog.Manager, call llm.ToolCall, result llm.ToolResult) {
	if result.IsError {
		return
	}

	switch call.Name {
	case tools.ToolValidateEmail:
		var resp tools.ValidateFieldResponse
		if decodeResult(result, &resp) && resp.IsValid {
			m.UpdateField(dialog.FieldEmail, resp.Sanitized)
			if m.State() == dialog.StateCollectingEmail {
				m.AdvanceToNextState()
			}
		}

	case tools.ToolValidatePhone:
		var resp tools.ValidateFieldResponse
		if decodeResult(result, &resp) && resp.IsValid {
			m.UpdateField(dialog.FieldPhone, resp.Sanitized)
			if m.State() == dialog.StateCollectingPhone {
				m.AdvanceToNextState()
			}
		}

	case tools.ToolClassifyIssue:
		var resp tools.ClassifyResponse
		if decodeResult(result, &resp) && resp.IssueType != "" {
			m.UpdateField(dialog.FieldIssueType, resp.IssueType)
			m.SetPrice(resp.Price)
			if m.State() == dialog.StateCollectingIssue {
				var args struct {
					Description string `json:"description"`
				}
				if json.Unmarshal(call.Arguments, &args) == nil && args.Description != "" {
					m.UpdateField(dialog.FieldIssue, args.Description)
				}
				m.AdvanceToNextState()
			}
		}

	case tools.ToolGetPriceForIssue:
		var resp tools.PriceResponse
		if decodeResult(result, &resp) && resp.Success {
			m.SetPrice(resp.Price)
		}

	case tools.ToolCreateTicket:
		var resp tools.CreateTicketResponse
		if decodeResult(result, &resp) && resp.Success {
			m.UpdateFields(map[dialog.Field]string{
				dialog.FieldTicketID:     resp.TicketID,
				dialog.FieldTicketNumber: resp.TicketNumber,
			})
			if m.State() == dialog.StateConfirmingDetails {
				if err := m.TransitionTo(dialog.StateTicketCreation); err != nil {
					s.logger.Warn("ticket transition failed", "error", err)
				}
			}
			if m.State() == dialog.StateTicketCreation {
				if err := m.TransitionTo(dialog.StateConfirmation); err != nil {
					s.logger.Warn("confirmation transition failed", "error", err)
				}
			}
		}
	}
}

func decodeResult(result llm.ToolResult, into any) bool {
	return json.Unmarshal(result.Content, into) == nil
}
