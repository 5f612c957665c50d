// Package conversation composes the dialog state machine, the validators and
// classifier, the language-model provider, and the tool executor into the
// per-utterance turn loop.
package conversation

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/voicedesk/support-voice-agent/internal/catalog"
	"github.com/voicedesk/support-voice-agent/internal/classify"
	"github.com/voicedesk/support-voice-agent/internal/dialog"
	"github.com/voicedesk/support-voice-agent/internal/llm"
	"github.com/voicedesk/support-voice-agent/internal/observability/metrics"
	"github.com/voicedesk/support-voice-agent/internal/speech"
	"github.com/voicedesk/support-voice-agent/internal/tools"
	"github.com/voicedesk/support-voice-agent/pkg/logging"
)

// ErrUnknownSession is returned for operations on a session id that was never
// started or has already ended.
var ErrUnknownSession = errors.New("conversation: unknown session")

// Spoken fallback for any unrecoverable turn failure. The state is preserved
// so the caller simply retries the same step.
const apologyFallback = "I'm sorry, I encountered an error. Could you please repeat that?"

// ReplySink receives the agent's spoken reply for delivery to the caller.
// Audio is nil when synthesis failed or no synthesizer is configured.
type ReplySink interface {
	Deliver(ctx context.Context, sessionID, text string, audio []byte) error
}

// ReplyFunc adapts a function to ReplySink.
type ReplyFunc func(ctx context.Context, sessionID, text string, audio []byte) error

func (f ReplyFunc) Deliver(ctx context.Context, sessionID, text string, audio []byte) error {
	return f(ctx, sessionID, text, audio)
}

// Options tunes the turn loop.
type Options struct {
	ModelID       string
	MaxTokens     int32
	Temperature   float32
	MaxToolRounds int
	HistoryTTL    time.Duration
}

// Dependencies carries the collaborators of a Service. LLM, Executor,
// Classifier, Catalog, and Redis are required; the rest degrade gracefully
// when absent.
type Dependencies struct {
	LLM         llm.LLMClient
	Executor    *tools.Executor
	Classifier  *classify.Classifier
	Catalog     catalog.Repository
	Redis       *redis.Client
	Transcriber speech.Transcriber
	Synthesizer speech.Synthesizer
	Replies     ReplySink
	TurnLog     TurnLogSink
	Metrics     *metrics.TurnMetrics
	CostRates   CostRates
	Tracer      trace.Tracer
	Logger      *logging.Logger
}

type session struct {
	manager    *dialog.Manager
	processing atomic.Bool
}

// Service owns all active sessions and processes their utterances one at a
// time per session.
type Service struct {
	llm         llm.LLMClient
	executor    *tools.Executor
	classifier  *classify.Classifier
	catalog     catalog.Repository
	history     *historyStore
	transcriber speech.Transcriber
	synthesizer speech.Synthesizer
	replies     ReplySink
	turnLog     TurnLogSink
	metrics     *metrics.TurnMetrics
	costs       *costTracker
	tracer      trace.Tracer
	logger      *logging.Logger
	opts        Options

	mu       sync.Mutex
	sessions map[string]*session
}

// NewService wires a Service from its dependencies.
func NewService(deps Dependencies, opts Options) *Service {
	if deps.LLM == nil {
		panic("conversation: llm client cannot be nil")
	}
	if deps.Executor == nil {
		panic("conversation: tool executor cannot be nil")
	}
	if deps.Classifier == nil {
		panic("conversation: classifier cannot be nil")
	}
	if deps.Catalog == nil {
		panic("conversation: catalog repository cannot be nil")
	}
	if deps.Redis == nil {
		panic("conversation: redis client cannot be nil")
	}
	if deps.Logger == nil {
		deps.Logger = logging.Default()
	}
	if deps.TurnLog == nil {
		deps.TurnLog = NopTurnLogSink{}
	}
	if deps.Tracer == nil {
		deps.Tracer = otel.Tracer("voicedesk.internal.conversation")
	}
	if opts.MaxTokens <= 0 {
		opts.MaxTokens = 450
	}
	if opts.MaxToolRounds <= 0 {
		opts.MaxToolRounds = 4
	}

	return &Service{
		llm:         deps.LLM,
		executor:    deps.Executor,
		classifier:  deps.Classifier,
		catalog:     deps.Catalog,
		history:     newHistoryStore(deps.Redis, deps.Tracer, opts.HistoryTTL),
		transcriber: deps.Transcriber,
		synthesizer: deps.Synthesizer,
		replies:     deps.Replies,
		turnLog:     deps.TurnLog,
		metrics:     deps.Metrics,
		costs:       newCostTracker(deps.CostRates),
		tracer:      deps.Tracer,
		logger:      deps.Logger.WithComponent("conversation"),
		opts:        opts,
		sessions:    make(map[string]*session),
	}
}

// StartSession creates a fresh session in GREETING and seeds its message
// history with the system prompt.
func (s *Service) StartSession(ctx context.Context) (string, error) {
	prompt, err := buildSystemPrompt(ctx, s.catalog)
	if err != nil {
		return "", err
	}

	sessionID := uuid.NewString()
	seed := []llm.ChatMessage{{Role: llm.ChatRoleSystem, Content: prompt}}
	if err := s.history.Save(ctx, sessionID, seed); err != nil {
		return "", err
	}

	s.mu.Lock()
	s.sessions[sessionID] = &session{manager: dialog.NewManager(sessionID, s.logger)}
	s.mu.Unlock()

	s.logger.Info("session started", "session_id", sessionID)
	return sessionID, nil
}

// ProcessAudio transcribes one utterance and processes it. A transcription
// failure skips the turn entirely; the caller will try again.
func (s *Service) ProcessAudio(ctx context.Context, sessionID string, audio []byte, mimeType string) error {
	if s.transcriber == nil {
		return errors.New("conversation: no transcriber configured")
	}
	if _, err := s.lookup(sessionID); err != nil {
		return err
	}

	transcript, err := s.transcriber.Transcribe(ctx, audio, mimeType)
	if err != nil {
		s.logger.Warn("transcription failed, skipping turn", "session_id", sessionID, "error", err)
		return nil
	}
	s.costs.RecordSTT(sessionID, transcript.Text)
	return s.ProcessUtterance(ctx, sessionID, transcript.Text)
}

// ProcessUtterance runs one full turn for the session. Overlapping calls for
// the same session are dropped, never queued. The returned error covers only
// caller mistakes (unknown session); turn failures degrade to a spoken
// apology.
func (s *Service) ProcessUtterance(ctx context.Context, sessionID, utterance string) error {
	sess, err := s.lookup(sessionID)
	if err != nil {
		return err
	}

	if !sess.processing.CompareAndSwap(false, true) {
		s.metrics.ObserveDroppedUtterance()
		s.logger.Warn("utterance dropped, turn already in progress", "session_id", sessionID)
		return nil
	}
	defer sess.processing.Store(false)

	utterance = strings.TrimSpace(utterance)
	if utterance == "" {
		return nil
	}

	ctx, span := s.tracer.Start(ctx, "conversation.process_utterance")
	defer span.End()

	start := time.Now()
	stateAtStart := sess.manager.State()

	reply, toolCalls, turnErr := s.safeTurn(ctx, sess, utterance)
	outcome := "completed"
	if turnErr != nil {
		outcome = "failed"
		span.RecordError(turnErr)
		if errors.Is(turnErr, llm.ErrCircuitOpen) {
			s.metrics.ObserveCircuitOpen()
		}
		s.logger.Error("turn failed", "session_id", sessionID, "state", string(stateAtStart), "error", turnErr)
		reply = apologyFallback
	}

	if reply != "" {
		s.speak(ctx, sessionID, reply)
	} else {
		s.logger.Info("turn produced no reply text", "session_id", sessionID, "tool_calls", len(toolCalls))
	}

	duration := time.Since(start)
	s.metrics.ObserveTurn(outcome, string(stateAtStart), duration.Seconds())
	s.appendTurnLog(ctx, TurnLogEntry{
		SessionID:   sessionID,
		State:       string(stateAtStart),
		UserMessage: utterance,
		BotResponse: reply,
		ToolCalls:   toolCalls,
		DurationMS:  duration.Milliseconds(),
		CreatedAt:   start.UTC(),
	})
	return nil
}

// GetContext returns a snapshot of the session's collected data and state.
func (s *Service) GetContext(sessionID string) (dialog.Context, error) {
	sess, err := s.lookup(sessionID)
	if err != nil {
		return dialog.Context{}, err
	}
	return sess.manager.Snapshot(), nil
}

// SessionCostTotal returns the accumulated approximate spend for a session.
func (s *Service) SessionCostTotal(sessionID string) SessionCost {
	return s.costs.SessionTotal(sessionID)
}

// EndSession moves the session to ENDED where legal and releases its
// resources.
func (s *Service) EndSession(ctx context.Context, sessionID string) error {
	sess, err := s.lookup(sessionID)
	if err != nil {
		return err
	}

	if sess.manager.State() != dialog.StateEnded {
		if err := sess.manager.TransitionTo(dialog.StateEnded); err != nil {
			s.logger.Warn("session did not end cleanly", "session_id", sessionID, "error", err)
		}
	}

	s.mu.Lock()
	delete(s.sessions, sessionID)
	s.mu.Unlock()

	if err := s.history.Delete(ctx, sessionID); err != nil {
		s.logger.Warn("history cleanup failed", "session_id", sessionID, "error", err)
	}

	total := s.costs.SessionTotal(sessionID)
	s.logger.Info("session ended",
		"session_id", sessionID,
		"cost_total_dollars", total.Total(),
		"turns", sess.manager.Snapshot().Metadata.TurnCount,
	)
	s.costs.Forget(sessionID)
	return nil
}

func (s *Service) lookup(sessionID string) (*session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[sessionID]
	if !ok {
		return nil, ErrUnknownSession
	}
	return sess, nil
}

// speak synthesizes and delivers the reply. Both steps fail soft: a silent
// turn beats a crashed session.
func (s *Service) speak(ctx context.Context, sessionID, text string) {
	var audio []byte
	if s.synthesizer != nil {
		var err error
		audio, err = s.synthesizer.Synthesize(ctx, text)
		if err != nil {
			s.logger.Warn("synthesis failed, delivering text only", "session_id", sessionID, "error", err)
			audio = nil
		}
		s.metrics.ObserveCost(s.costs.RecordTTS(sessionID, text))
	}
	if s.replies == nil {
		return
	}
	if err := s.replies.Deliver(ctx, sessionID, text, audio); err != nil {
		s.logger.Warn("reply delivery failed", "session_id", sessionID, "error", err)
	}
}

func (s *Service) appendTurnLog(ctx context.Context, entry TurnLogEntry) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Warn("turn log sink panicked", "panic", r)
		}
	}()
	if err := s.turnLog.Append(ctx, entry); err != nil {
		s.logger.Warn("turn log write failed", "session_id", entry.SessionID, "error", err)
	}
}
