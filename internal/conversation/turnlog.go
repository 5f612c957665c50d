package conversation

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
)

// TurnLogEntry captures one processed turn for observability. Entirely
// advisory; a failed write never affects the caller.
type TurnLogEntry struct {
	SessionID   string
	State       string
	UserMessage string
	BotResponse string
	ToolCalls   []string
	DurationMS  int64
	CreatedAt   time.Time
}

// TurnLogSink appends turn log entries.
type TurnLogSink interface {
	Append(ctx context.Context, entry TurnLogEntry) error
}

// NopTurnLogSink discards entries. Used when no database is configured.
type NopTurnLogSink struct{}

func (NopTurnLogSink) Append(context.Context, TurnLogEntry) error { return nil }

// Execer is the slice of pgx needed to write log rows.
type Execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// PostgresTurnLogSink writes turn logs to the conversation_log table.
type PostgresTurnLogSink struct {
	db Execer
}

func NewPostgresTurnLogSink(db Execer) *PostgresTurnLogSink {
	if db == nil {
		panic("conversation: turn log database cannot be nil")
	}
	return &PostgresTurnLogSink{db: db}
}

func (s *PostgresTurnLogSink) Append(ctx context.Context, entry TurnLogEntry) error {
	const query = `
		INSERT INTO conversation_log (session_id, state, user_message, bot_response, tool_calls, duration_ms, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	createdAt := entry.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	_, err := s.db.Exec(ctx, query,
		entry.SessionID,
		entry.State,
		entry.UserMessage,
		entry.BotResponse,
		entry.ToolCalls,
		entry.DurationMS,
		createdAt,
	)
	if err != nil {
		return fmt.Errorf("conversation: turn log write: %w", err)
	}
	return nil
}
