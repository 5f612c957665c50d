package conversation

import (
	"context"
	"fmt"
	"strings"

	"github.com/voicedesk/support-voice-agent/internal/catalog"
)

// buildSystemPrompt renders the fixed session instructions. The catalog is
// inlined so the model never has to guess service names or prices.
func buildSystemPrompt(ctx context.Context, repo catalog.Repository) (string, error) {
	entries, err := repo.ListActive(ctx)
	if err != nil {
		return "", fmt.Errorf("conversation: catalog unavailable for system prompt: %w", err)
	}

	var sb strings.Builder
	sb.WriteString("You are a friendly phone support agent for a technical help desk. ")
	sb.WriteString("Your job is to collect the caller's name, email, phone number, street address, and a description of their issue, then open a support ticket.\n\n")

	sb.WriteString("Supported services:\n")
	for _, entry := range entries {
		sb.WriteString(fmt.Sprintf("- %s (%s): $%.2f\n", entry.Description, entry.IssueType, entry.Price))
	}

	sb.WriteString("\nRules:\n")
	sb.WriteString("- Collect one detail at a time, in order: name, email, phone, address, issue.\n")
	sb.WriteString("- Always call validate_email before accepting an email and validate_phone before accepting a phone number. Never trust your own judgment of validity.\n")
	sb.WriteString("- Use classify_issue to map the caller's problem to a service. If it needs clarification, read the clarification question to the caller verbatim.\n")
	sb.WriteString("- Quote the exact catalog price via get_price_for_issue before confirming.\n")
	sb.WriteString("- Once every detail is collected, read all details back and ask the caller to confirm. Only after an explicit confirmation, call create_ticket.\n")
	sb.WriteString("- After the ticket is created, tell the caller the ticket number and the price, then say goodbye.\n")
	sb.WriteString("- Keep replies short and natural for speech: one or two sentences, no lists, no markdown.\n")

	return sb.String(), nil
}
