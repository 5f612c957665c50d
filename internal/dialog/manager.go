package dialog

import (
	"sync"
	"time"

	"github.com/voicedesk/support-voice-agent/pkg/logging"
)

// Field names the Manager accepts for string-valued updates.
type Field string

const (
	FieldName         Field = "name"
	FieldEmail        Field = "email"
	FieldPhone        Field = "phone"
	FieldAddress      Field = "address"
	FieldIssue        Field = "issue"
	FieldIssueType    Field = "issueType"
	FieldTicketID     Field = "ticketId"
	FieldTicketNumber Field = "ticketNumber"
)

// Manager wraps one Context and enforces transition legality. Callers are
// responsible for validating values before updating fields.
type Manager struct {
	mu     sync.Mutex
	ctx    *Context
	logger *logging.Logger
}

// NewManager creates a manager for a fresh session. The session id is
// assigned once and never changes.
func NewManager(sessionID string, logger *logging.Logger) *Manager {
	if logger == nil {
		logger = logging.Default()
	}
	return &Manager{
		ctx:    newContext(sessionID, time.Now().UTC()),
		logger: logger.WithSession(sessionID),
	}
}

// SessionID returns the immutable session identifier.
func (m *Manager) SessionID() string {
	return m.ctx.SessionID
}

// State returns the current conversation state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ctx.State
}

// TransitionTo moves to newState if the transition table allows it. On
// success it bumps lastUpdatedAt and increments the turn count atomically.
func (m *Manager) TransitionTo(newState State) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !IsValidTransition(m.ctx.State, newState) {
		return &InvalidTransitionError{From: m.ctx.State, To: newState}
	}

	from := m.ctx.State
	m.ctx.State = newState
	m.ctx.Metadata.LastUpdatedAt = time.Now().UTC()
	m.ctx.Metadata.TurnCount++
	m.logger.Debug("state transition", "from", string(from), "to", string(newState), "turn", m.ctx.Metadata.TurnCount)
	return nil
}

// AdvanceToNextState moves along the happy path. It is a logged no-op when
// the current state is terminal; it never fails.
func (m *Manager) AdvanceToNextState() {
	m.mu.Lock()
	next := NextState(m.ctx.State)
	m.mu.Unlock()

	if next == "" {
		m.logger.Debug("advance requested in terminal state", "state", string(m.State()))
		return
	}
	if err := m.TransitionTo(next); err != nil {
		m.logger.Warn("advance failed", "error", err)
	}
}

// UpdateField mutates one collected field. Validation is the caller's job.
func (m *Manager) UpdateField(field Field, value string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.setField(field, value)
	m.ctx.Metadata.LastUpdatedAt = time.Now().UTC()
}

// UpdateFields mutates several fields under one lock and timestamp bump.
func (m *Manager) UpdateFields(fields map[Field]string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for field, value := range fields {
		m.setField(field, value)
	}
	m.ctx.Metadata.LastUpdatedAt = time.Now().UTC()
}

func (m *Manager) setField(field Field, value string) {
	switch field {
	case FieldName:
		m.ctx.Name = value
	case FieldEmail:
		m.ctx.Email = value
	case FieldPhone:
		m.ctx.Phone = value
	case FieldAddress:
		m.ctx.Address = value
	case FieldIssue:
		m.ctx.Issue = value
	case FieldIssueType:
		m.ctx.IssueType = value
	case FieldTicketID:
		m.ctx.TicketID = value
	case FieldTicketNumber:
		m.ctx.TicketNumber = value
	default:
		m.logger.Warn("update for unknown field ignored", "field", string(field))
	}
}

// SetPrice records the quoted price. Zero is a valid price.
func (m *Manager) SetPrice(price float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ctx.Price = &price
	m.ctx.Metadata.LastUpdatedAt = time.Now().UTC()
}

// IncrementRetry bumps the retry counter after invalid input.
func (m *Manager) IncrementRetry() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ctx.RetryCount++
	m.ctx.Metadata.LastUpdatedAt = time.Now().UTC()
}

// ResetRetry clears the retry counter after a successful advance.
func (m *Manager) ResetRetry() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ctx.RetryCount = 0
}

// HandleError records the failure and moves to ERROR_RECOVERY through the
// normal transition gate. The table guarantees ERROR_RECOVERY is reachable
// from every non-terminal state.
func (m *Manager) HandleError(description string) error {
	m.mu.Lock()
	m.ctx.LastError = description
	m.mu.Unlock()
	return m.TransitionTo(StateErrorRecovery)
}

// IsComplete reports whether all ticket fields are collected.
func (m *Manager) IsComplete() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return DataComplete(m.ctx)
}

// MissingFields lists not-yet-collected fields in the fixed order.
func (m *Manager) MissingFields() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return MissingFields(m.ctx)
}

// Snapshot returns a copy of the context for inspection and logging.
func (m *Manager) Snapshot() Context {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ctx.clone()
}
