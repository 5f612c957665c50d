package tickets

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryRepository keeps tickets in memory. It backs local development and
// tests.
type MemoryRepository struct {
	mu      sync.Mutex
	seq     int
	tickets []*Ticket
}

// NewMemoryRepository returns an empty in-memory repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{}
}

// Create stores the ticket with sequential ticket numbers.
func (r *MemoryRepository) Create(ctx context.Context, req CreateRequest) (*Ticket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.tickets {
		if existing.Email == req.Email && existing.IssueType == req.IssueType && existing.Issue == req.Issue {
			return nil, ErrDuplicateTicket
		}
	}

	r.seq++
	ticket := &Ticket{
		ID:           uuid.NewString(),
		TicketNumber: fmt.Sprintf("TKT-%06d", r.seq),
		Name:         req.Name,
		Email:        req.Email,
		Phone:        req.Phone,
		Address:      req.Address,
		Issue:        req.Issue,
		IssueType:    req.IssueType,
		Price:        req.Price,
		CreatedAt:    time.Now().UTC(),
	}
	r.tickets = append(r.tickets, ticket)
	return ticket, nil
}

// All returns a copy of every stored ticket, for test assertions.
func (r *MemoryRepository) All() []*Ticket {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*Ticket, len(r.tickets))
	copy(out, r.tickets)
	return out
}
