package catalog

import (
	"context"
	"fmt"

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

// PostgresRepository reads the service catalog from the relational database.
type PostgresRepository struct {
	db Querier
}

// NewPostgresRepository initializes a repo backed by pgx.
func NewPostgresRepository(db Querier) *PostgresRepository {
	if db == nil {
		panic("catalog: pgx querier required")
	}
	return &PostgresRepository{db: db}
}

// ListActive returns all active catalog entries ordered by issue type.
func (r *PostgresRepository) ListActive(ctx context.Context) ([]Entry, error) {
	query := `
		SELECT issue_type, description, price, keywords, is_active
		FROM service_catalog
		WHERE is_active = true
		ORDER BY issue_type ASC
	`
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("catalog: list failed: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.IssueType, &e.Description, &e.Price, &e.Keywords, &e.IsActive); err != nil {
			return nil, fmt.Errorf("catalog: scan failed: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// GetByIssueType fetches a single active entry.
func (r *PostgresRepository) GetByIssueType(ctx context.Context, issueType string) (*Entry, error) {
	query := `
		SELECT issue_type, description, price, keywords, is_active
		FROM service_catalog
		WHERE issue_type = $1 AND is_active = true
	`
	row := r.db.QueryRow(ctx, query, issueType)
	var e Entry
	if err := row.Scan(&e.IssueType, &e.Description, &e.Price, &e.Keywords, &e.IsActive); err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrServiceNotFound
		}
		return nil, fmt.Errorf("catalog: select failed: %w", err)
	}
	return &e, nil
}
