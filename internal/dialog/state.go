// Package dialog owns the conversation state machine: the fixed state set,
// the transition table, and the per-session context it governs.
package dialog

import "fmt"

// State is a node in the conversation graph.
type State string

// The fixed conversation state set.
const (
	StateGreeting          State = "GREETING"
	StateCollectingName    State = "COLLECTING_NAME"
	StateCollectingEmail   State = "COLLECTING_EMAIL"
	StateCollectingPhone   State = "COLLECTING_PHONE"
	StateCollectingAddress State = "COLLECTING_ADDRESS"
	StateCollectingIssue   State = "COLLECTING_ISSUE"
	StateConfirmingDetails State = "CONFIRMING_DETAILS"
	StateTicketCreation    State = "TICKET_CREATION"
	StateConfirmation      State = "CONFIRMATION"
	StateErrorRecovery     State = "ERROR_RECOVERY"
	StateEnded             State = "ENDED"
)

// transitionRule pairs the canonical happy-path successor with the full set
// of reachable states. The default successor is a named field rather than a
// slice position so reordering the allowed list cannot silently change the
// happy path.
type transitionRule struct {
	defaultNext State
	allowed     []State
}

var transitions = map[State]transitionRule{
	StateGreeting: {
		defaultNext: StateCollectingName,
		allowed:     []State{StateCollectingName, StateErrorRecovery, StateEnded},
	},
	StateCollectingName: {
		defaultNext: StateCollectingEmail,
		allowed:     []State{StateCollectingEmail, StateErrorRecovery, StateEnded},
	},
	StateCollectingEmail: {
		defaultNext: StateCollectingPhone,
		allowed:     []State{StateCollectingPhone, StateCollectingName, StateErrorRecovery, StateEnded},
	},
	StateCollectingPhone: {
		defaultNext: StateCollectingAddress,
		allowed:     []State{StateCollectingAddress, StateCollectingEmail, StateErrorRecovery, StateEnded},
	},
	StateCollectingAddress: {
		defaultNext: StateCollectingIssue,
		allowed:     []State{StateCollectingIssue, StateCollectingPhone, StateErrorRecovery, StateEnded},
	},
	StateCollectingIssue: {
		defaultNext: StateConfirmingDetails,
		allowed:     []State{StateConfirmingDetails, StateErrorRecovery, StateEnded},
	},
	// CONFIRMING_DETAILS uniquely allows jumping back to any collection state
	// so the caller can correct a single field before the ticket is cut.
	StateConfirmingDetails: {
		defaultNext: StateTicketCreation,
		allowed: []State{
			StateTicketCreation,
			StateCollectingName,
			StateCollectingEmail,
			StateCollectingPhone,
			StateCollectingAddress,
			StateCollectingIssue,
			StateErrorRecovery,
			StateEnded,
		},
	},
	StateTicketCreation: {
		defaultNext: StateConfirmation,
		allowed:     []State{StateConfirmation, StateErrorRecovery, StateEnded},
	},
	StateConfirmation: {
		defaultNext: StateEnded,
		allowed:     []State{StateEnded, StateErrorRecovery},
	},
	// Recovery can resume anywhere (except looping on itself) or abandon.
	StateErrorRecovery: {
		defaultNext: StateGreeting,
		allowed: []State{
			StateGreeting,
			StateCollectingName,
			StateCollectingEmail,
			StateCollectingPhone,
			StateCollectingAddress,
			StateCollectingIssue,
			StateConfirmingDetails,
			StateTicketCreation,
			StateConfirmation,
			StateEnded,
		},
	},
	// ENDED is terminal.
	StateEnded: {},
}

// IsValidTransition reports whether from -> to appears in the transition
// table. This is the sole gate for all state mutation.
func IsValidTransition(from, to State) bool {
	rule, ok := transitions[from]
	if !ok {
		return false
	}
	for _, allowed := range rule.allowed {
		if allowed == to {
			return true
		}
	}
	return false
}

// NextState returns the happy-path successor of current, or "" for terminal
// states.
func NextState(current State) State {
	return transitions[current].defaultNext
}

// InvalidTransitionError signals an attempted transition outside the table.
// It indicates a logic bug in the caller, not a recoverable runtime condition.
type InvalidTransitionError struct {
	From State
	To   State
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("dialog: invalid transition from %s to %s", e.From, e.To)
}

// Field labels used in clarification prompts, in the fixed order callers are
// asked for them.
var collectedFieldOrder = []string{"name", "email", "phone", "address", "issue description"}

// MissingFields lists the not-yet-collected fields of ctx in the fixed
// collection order.
func MissingFields(ctx *Context) []string {
	values := []string{ctx.Name, ctx.Email, ctx.Phone, ctx.Address, ctx.Issue}
	var missing []string
	for i, v := range values {
		if v == "" {
			missing = append(missing, collectedFieldOrder[i])
		}
	}
	return missing
}

// DataComplete reports whether every ticket field is collected. Price counts
// as set whenever it is non-nil; zero is a valid price.
func DataComplete(ctx *Context) bool {
	return ctx.Name != "" &&
		ctx.Email != "" &&
		ctx.Phone != "" &&
		ctx.Address != "" &&
		ctx.Issue != "" &&
		ctx.IssueType != "" &&
		ctx.Price != nil
}
