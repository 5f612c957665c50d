// Package tickets owns ticket creation at the repository boundary. The
// conversation core only supplies validated fields and reads back the
// generated identifiers.
package tickets

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrDuplicateTicket is returned when an identical open ticket already
	// exists for the same caller and issue type.
	ErrDuplicateTicket = errors.New("tickets: duplicate ticket")
)

// Ticket is a created support ticket.
type Ticket struct {
	ID           string
	TicketNumber string
	Name         string
	Email        string
	Phone        string
	Address      string
	Issue        string
	IssueType    string
	Price        float64
	CreatedAt    time.Time
}

// CreateRequest carries the fields for a new ticket. All fields are expected
// to be pre-validated by the caller; the repository only enforces storage
// constraints.
type CreateRequest struct {
	Name      string
	Email     string
	Phone     string
	Address   string
	Issue     string
	IssueType string
	Price     float64
}

// Repository persists tickets.
type Repository interface {
	Create(ctx context.Context, req CreateRequest) (*Ticket, error)
}
