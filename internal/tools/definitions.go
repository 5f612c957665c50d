package tools

import "github.com/voicedesk/support-voice-agent/internal/llm"

// Tool names offered to the model.
const (
	ToolValidateEmail    = "validate_email"
	ToolValidatePhone    = "validate_phone"
	ToolClassifyIssue    = "classify_issue"
	ToolGetPriceForIssue = "get_price_for_issue"
	ToolCreateTicket     = "create_ticket"
)

// Definitions returns the fixed tool set advertised on every completion
// request. The schemas mirror the typed request structs in this package.
func Definitions() []llm.ToolDefinition {
	return []llm.ToolDefinition{
		{
			Name:        ToolValidateEmail,
			Description: "Validate and sanitize an email address provided by the caller. Always call this before storing an email.",
			InputSchema: objectSchema(map[string]any{
				"email": map[string]any{"type": "string", "description": "The email address to validate."},
			}, "email"),
		},
		{
			Name:        ToolValidatePhone,
			Description: "Validate and format a phone number provided by the caller. Always call this before storing a phone number.",
			InputSchema: objectSchema(map[string]any{
				"phone": map[string]any{"type": "string", "description": "The phone number to validate."},
			}, "phone"),
		},
		{
			Name:        ToolClassifyIssue,
			Description: "Classify the caller's issue description into a supported issue type. Returns a clarification question when the description is ambiguous.",
			InputSchema: objectSchema(map[string]any{
				"description": map[string]any{"type": "string", "description": "The caller's issue description in their own words."},
			}, "description"),
		},
		{
			Name:        ToolGetPriceForIssue,
			Description: "Look up the service price for a known issue type.",
			InputSchema: objectSchema(map[string]any{
				"issueType": map[string]any{"type": "string", "description": "A catalog issue type such as printer_problems."},
			}, "issueType"),
		},
		{
			Name:        ToolCreateTicket,
			Description: "Create a support ticket once every detail has been collected and confirmed by the caller.",
			InputSchema: objectSchema(map[string]any{
				"name":      map[string]any{"type": "string"},
				"email":     map[string]any{"type": "string"},
				"phone":     map[string]any{"type": "string"},
				"address":   map[string]any{"type": "string"},
				"issue":     map[string]any{"type": "string"},
				"issueType": map[string]any{"type": "string"},
				"price":     map[string]any{"type": "number"},
			}, "name", "email", "phone", "address", "issue", "issueType", "price"),
		},
	}
}

func objectSchema(properties map[string]any, required ...string) map[string]any {
	return map[string]any{
		"type":       "object",
		"properties": properties,
		"required":   required,
	}
}
