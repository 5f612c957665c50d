package tickets

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Querier is the subset of pgxpool.Pool the repository needs; pgxmock
// satisfies it in tests.
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// PostgresRepository stores tickets in the relational database.
type PostgresRepository struct {
	db Querier
}

// NewPostgresRepository initializes a repo backed by pgx.
func NewPostgresRepository(db Querier) *PostgresRepository {
	if db == nil {
		panic("tickets: pgx querier required")
	}
	return &PostgresRepository{db: db}
}

// Create inserts a new ticket row and returns the generated identifiers.
func (r *PostgresRepository) Create(ctx context.Context, req CreateRequest) (*Ticket, error) {
	id := uuid.New()
	number := newTicketNumber(id)

	query := `
		INSERT INTO tickets (id, ticket_number, name, email, phone, address, issue, issue_type, price)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING created_at
	`
	var createdAt time.Time
	if err := r.db.QueryRow(ctx, query,
		id,
		number,
		req.Name,
		req.Email,
		req.Phone,
		req.Address,
		req.Issue,
		req.IssueType,
		req.Price,
	).Scan(&createdAt); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, ErrDuplicateTicket
		}
		return nil, fmt.Errorf("tickets: insert failed: %w", err)
	}

	return &Ticket{
		ID:           id.String(),
		TicketNumber: number,
		Name:         req.Name,
		Email:        req.Email,
		Phone:        req.Phone,
		Address:      req.Address,
		Issue:        req.Issue,
		IssueType:    req.IssueType,
		Price:        req.Price,
		CreatedAt:    createdAt,
	}, nil
}

func newTicketNumber(id uuid.UUID) string {
	return "TKT-" + strings.ToUpper(id.String()[:8])
}
