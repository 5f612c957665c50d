package dialog

import "time"

// Metadata tracks bookkeeping for one session.
type Metadata struct {
	StartedAt     time.Time
	LastUpdatedAt time.Time
	TurnCount     int
}

// Context is the mutable per-session record of collected ticket fields and
// conversation progress. It is owned exclusively by a Manager and mutated
// only through its API.
type Context struct {
	State     State
	SessionID string

	Name         string
	Email        string
	Phone        string
	Address      string
	Issue        string
	IssueType    string
	Price        *float64
	TicketID     string
	TicketNumber string

	RetryCount int
	LastError  string
	Metadata   Metadata
}

// newContext builds a fresh context in GREETING with empty fields.
func newContext(sessionID string, now time.Time) *Context {
	return &Context{
		State:     StateGreeting,
		SessionID: sessionID,
		Metadata: Metadata{
			StartedAt:     now,
			LastUpdatedAt: now,
		},
	}
}

// clone returns a copy of the context safe to hand outside the Manager.
func (c *Context) clone() Context {
	out := *c
	if c.Price != nil {
		price := *c.Price
		out.Price = &price
	}
	return out
}
