// Package catalog exposes the fixed service catalog the agent classifies
// issues against. The core only ever reads it.
package catalog

import (
	"context"
	"errors"
)

// ErrServiceNotFound is returned when an issue type is not in the catalog.
var ErrServiceNotFound = errors.New("catalog: service not found")

// Entry is one supported service type with its price and matching keywords.
type Entry struct {
	IssueType   string
	Description string
	Price       float64
	Keywords    []string
	IsActive    bool
}

// Repository provides read-only access to the service catalog.
type Repository interface {
	// ListActive returns all active catalog entries in a stable order.
	ListActive(ctx context.Context) ([]Entry, error)
	// GetByIssueType returns the active entry for an issue type, or
	// ErrServiceNotFound.
	GetByIssueType(ctx context.Context, issueType string) (*Entry, error)
}
