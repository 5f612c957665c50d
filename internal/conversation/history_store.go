package conversation

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/voicedesk/support-voice-agent/internal/llm"
)

const defaultHistoryTTL = 24 * time.Hour

// historyStore persists the rolling message history per session so a session
// survives a process restart within the TTL window.
type historyStore struct {
	redis  *redis.Client
	tracer trace.Tracer
	ttl    time.Duration
}

func newHistoryStore(rdb *redis.Client, tracer trace.Tracer, ttl time.Duration) *historyStore {
	if rdb == nil {
		panic("conversation: redis client cannot be nil")
	}
	if tracer == nil {
		tracer = otel.Tracer("voicedesk.internal.conversation.history")
	}
	if ttl <= 0 {
		ttl = defaultHistoryTTL
	}
	return &historyStore{
		redis:  rdb,
		tracer: tracer,
		ttl:    ttl,
	}
}

func (s *historyStore) Save(ctx context.Context, sessionID string, history []llm.ChatMessage) error {
	ctx, span := s.tracer.Start(ctx, "conversation.save_history")
	defer span.End()

	data, err := json.Marshal(history)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("conversation: failed to marshal history: %w", err)
	}
	if err := s.redis.Set(ctx, historyKey(sessionID), data, s.ttl).Err(); err != nil {
		span.RecordError(err)
		return fmt.Errorf("conversation: failed to persist history: %w", err)
	}
	return nil
}

// Load returns the stored history, or nil when the session has none yet.
func (s *historyStore) Load(ctx context.Context, sessionID string) ([]llm.ChatMessage, error) {
	ctx, span := s.tracer.Start(ctx, "conversation.load_history")
	defer span.End()

	data, err := s.redis.Get(ctx, historyKey(sessionID)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		span.RecordError(err)
		return nil, fmt.Errorf("conversation: failed to load history: %w", err)
	}

	var history []llm.ChatMessage
	if err := json.Unmarshal(data, &history); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("conversation: failed to decode history: %w", err)
	}
	return history, nil
}

func (s *historyStore) Delete(ctx context.Context, sessionID string) error {
	ctx, span := s.tracer.Start(ctx, "conversation.delete_history")
	defer span.End()

	if err := s.redis.Del(ctx, historyKey(sessionID)).Err(); err != nil {
		span.RecordError(err)
		return fmt.Errorf("conversation: failed to delete history: %w", err)
	}
	return nil
}

func historyKey(sessionID string) string {
	return fmt.Sprintf("session_history:%s", sessionID)
}
