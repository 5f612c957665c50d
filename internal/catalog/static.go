package catalog

import "context"

// StaticRepository serves a fixed in-memory catalog. It backs local
// development and tests, where no database is available.
type StaticRepository struct {
	entries []Entry
}

// NewStaticRepository wraps the given entries. With no arguments it seeds the
// default support catalog.
func NewStaticRepository(entries ...Entry) *StaticRepository {
	if len(entries) == 0 {
		entries = DefaultEntries()
	}
	return &StaticRepository{entries: entries}
}

// DefaultEntries returns the built-in support catalog.
func DefaultEntries() []Entry {
	return []Entry{
		{
			IssueType:   "printer_problems",
			Description: "Printer problems (jams, connectivity, print quality)",
			Price:       10,
			Keywords:    []string{"printer", "print", "jam", "jamming", "paper", "toner", "ink", "cartridge"},
			IsActive:    true,
		},
		{
			IssueType:   "email_issues",
			Description: "Email issues (cannot send or receive, account setup)",
			Price:       15,
			Keywords:    []string{"email", "mail", "outlook", "inbox", "send", "receive", "attachment", "mailbox"},
			IsActive:    true,
		},
		{
			IssueType:   "wifi_connectivity",
			Description: "Wi-Fi and network connectivity problems",
			Price:       20,
			Keywords:    []string{"wifi", "wi-fi", "wireless", "internet", "network", "router", "connection", "disconnect"},
			IsActive:    true,
		},
		{
			IssueType:   "software_installation",
			Description: "Software installation and updates",
			Price:       25,
			Keywords:    []string{"install", "installation", "software", "update", "upgrade", "application", "program", "license"},
			IsActive:    true,
		},
	}
}

// ListActive returns the active entries in declaration order.
func (r *StaticRepository) ListActive(ctx context.Context) ([]Entry, error) {
	out := make([]Entry, 0, len(r.entries))
	for _, e := range r.entries {
		if e.IsActive {
			out = append(out, e)
		}
	}
	return out, nil
}

// GetByIssueType returns the active entry with the given issue type.
func (r *StaticRepository) GetByIssueType(ctx context.Context, issueType string) (*Entry, error) {
	for _, e := range r.entries {
		if e.IsActive && e.IssueType == issueType {
			entry := e
			return &entry, nil
		}
	}
	return nil, ErrServiceNotFound
}
