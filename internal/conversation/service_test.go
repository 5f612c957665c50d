package conversation

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/voicedesk/support-voice-agent/internal/catalog"
	"github.com/voicedesk/support-voice-agent/internal/classify"
	"github.com/voicedesk/support-voice-agent/internal/dialog"
	"github.com/voicedesk/support-voice-agent/internal/llm"
	"github.com/voicedesk/support-voice-agent/internal/tickets"
	"github.com/voicedesk/support-voice-agent/internal/tools"
)

// scriptedLLM returns canned responses in order. A nil error with a zero
// response yields an empty completion.
type scriptedLLM struct {
	mu        sync.Mutex
	responses []llm.LLMResponse
	errs      []error
	requests  []llm.LLMRequest
	started   chan struct{}
	release   chan struct{}
}

func (f *scriptedLLM) Complete(_ context.Context, req llm.LLMRequest) (llm.LLMResponse, error) {
	f.mu.Lock()
	idx := len(f.requests)
	f.requests = append(f.requests, req)
	f.mu.Unlock()

	if f.started != nil {
		f.started <- struct{}{}
		<-f.release
	}

	if idx < len(f.errs) && f.errs[idx] != nil {
		return llm.LLMResponse{}, f.errs[idx]
	}
	if idx < len(f.responses) {
		return f.responses[idx], nil
	}
	return llm.LLMResponse{Text: "Okay."}, nil
}

func (f *scriptedLLM) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.requests)
}

type capturedReplies struct {
	mu    sync.Mutex
	texts []string
}

func (c *capturedReplies) Deliver(_ context.Context, _ string, text string, _ []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.texts = append(c.texts, text)
	return nil
}

func (c *capturedReplies) last() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.texts) == 0 {
		return ""
	}
	return c.texts[len(c.texts)-1]
}

type harness struct {
	svc     *Service
	llm     *scriptedLLM
	tickets *tickets.MemoryRepository
	replies *capturedReplies
}

func newHarness(t *testing.T, client *scriptedLLM) *harness {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	cat := catalog.NewStaticRepository()
	cls := classify.New(cat)
	ticketRepo := tickets.NewMemoryRepository()
	replies := &capturedReplies{}

	svc := NewService(Dependencies{
		LLM:        client,
		Executor:   tools.NewExecutor(cls, cat, ticketRepo, nil),
		Classifier: cls,
		Catalog:    cat,
		Redis:      rdb,
		Replies:    replies,
	}, Options{ModelID: "test-model", MaxToolRounds: 4})

	return &harness{svc: svc, llm: client, tickets: ticketRepo, replies: replies}
}

func mustState(t *testing.T, h *harness, sessionID string, want dialog.State) dialog.Context {
	t.Helper()
	snap, err := h.svc.GetContext(sessionID)
	if err != nil {
		t.Fatalf("GetContext: %v", err)
	}
	if snap.State != want {
		t.Fatalf("State = %s, want %s", snap.State, want)
	}
	return snap
}

func TestStartSessionSeedsSystemPrompt(t *testing.T) {
	h := newHarness(t, &scriptedLLM{})
	ctx := context.Background()

	sessionID, err := h.svc.StartSession(ctx)
	if err != nil {
		t.Fatalf("StartSession: %v", err)
	}
	mustState(t, h, sessionID, dialog.StateGreeting)

	history, err := h.svc.history.Load(ctx, sessionID)
	if err != nil {
		t.Fatalf("history load: %v", err)
	}
	if len(history) != 1 || history[0].Role != llm.ChatRoleSystem {
		t.Fatalf("history = %+v, want one system message", history)
	}
	if !strings.Contains(history[0].Content, "printer_problems") {
		t.Error("system prompt does not mention the catalog")
	}
}

func TestFullTicketFlow(t *testing.T) {
	createArgs := `{
		"name":"John Doe",
		"email":"john@example.com",
		"phone":"(510) 555-1234",
		"address":"123 Main St, Anytown",
		"issue":"my printer keeps jamming every morning",
		"issueType":"printer_problems",
		"price":10
	}`
	client := &scriptedLLM{responses: []llm.LLMResponse{
		{Text: "Thanks John! What's your email address?"},
		{Text: "Got it. And your phone number?"},
		{Text: "Great. What's your street address?"},
		{Text: "Thanks. What seems to be the problem?"},
		{Text: "That's a printer problem, $10. I have John Doe, john@example.com, (510) 555-1234, 123 Main St. Shall I open the ticket?"},
		{ToolCalls: []llm.ToolCall{{ID: "tu-1", Name: tools.ToolCreateTicket, Arguments: json.RawMessage(createArgs)}}},
		{Text: "All set! Your ticket number is TKT-000001 and the price is $10."},
	}}
	h := newHarness(t, client)
	ctx := context.Background()

	sessionID, err := h.svc.StartSession(ctx)
	if err != nil {
		t.Fatalf("StartSession: %v", err)
	}

	steps := []struct {
		utterance string
		state     dialog.State
	}{
		{"Hi, I'm John Doe", dialog.StateCollectingEmail},
		{"my email is john@example.com", dialog.StateCollectingPhone},
		{"510-555-1234", dialog.StateCollectingAddress},
		{"123 Main St, Anytown", dialog.StateCollectingIssue},
		{"my printer keeps jamming every morning", dialog.StateConfirmingDetails},
		{"yes, that's correct", dialog.StateConfirmation},
	}
	for _, step := range steps {
		if err := h.svc.ProcessUtterance(ctx, sessionID, step.utterance); err != nil {
			t.Fatalf("ProcessUtterance(%q): %v", step.utterance, err)
		}
		mustState(t, h, sessionID, step.state)
	}

	snap := mustState(t, h, sessionID, dialog.StateConfirmation)
	if snap.Name != "John Doe" || snap.Email != "john@example.com" || snap.Phone != "(510) 555-1234" {
		t.Errorf("collected fields wrong: %+v", snap)
	}
	if snap.IssueType != "printer_problems" || snap.Price == nil || *snap.Price != 10 {
		t.Errorf("classification wrong: issueType=%q price=%v", snap.IssueType, snap.Price)
	}
	if snap.TicketNumber != "TKT-000001" || snap.TicketID == "" {
		t.Errorf("ticket identifiers missing: %+v", snap)
	}

	stored := h.tickets.All()
	if len(stored) != 1 {
		t.Fatalf("stored tickets = %d, want 1", len(stored))
	}
	if stored[0].IssueType != "printer_problems" || stored[0].Price != 10 {
		t.Errorf("stored ticket = %+v", stored[0])
	}

	if got := h.replies.last(); !strings.Contains(got, "TKT-000001") {
		t.Errorf("final reply = %q, want ticket number spoken", got)
	}

	if err := h.svc.EndSession(ctx, sessionID); err != nil {
		t.Fatalf("EndSession: %v", err)
	}
	if _, err := h.svc.GetContext(sessionID); !errors.Is(err, ErrUnknownSession) {
		t.Errorf("GetContext after end = %v, want ErrUnknownSession", err)
	}
}

func TestReentrancyDropsOverlappingUtterance(t *testing.T) {
	client := &scriptedLLM{
		started: make(chan struct{}, 1),
		release: make(chan struct{}),
	}
	h := newHarness(t, client)
	ctx := context.Background()

	sessionID, err := h.svc.StartSession(ctx)
	if err != nil {
		t.Fatalf("StartSession: %v", err)
	}

	done := make(chan error, 1)
	go func() {
		done <- h.svc.ProcessUtterance(ctx, sessionID, "Hi, I'm John Doe")
	}()
	<-client.started

	// Second utterance arrives while the first turn is mid-LLM-call.
	if err := h.svc.ProcessUtterance(ctx, sessionID, "hello? are you there?"); err != nil {
		t.Fatalf("overlapping ProcessUtterance: %v", err)
	}
	if got := client.callCount(); got != 1 {
		t.Errorf("llm calls = %d, overlapping utterance must be dropped", got)
	}

	close(client.release)
	if err := <-done; err != nil {
		t.Fatalf("first turn: %v", err)
	}

	// The session is usable again afterwards.
	if err := h.svc.ProcessUtterance(ctx, sessionID, "my email is john@example.com"); err != nil {
		t.Fatalf("follow-up turn: %v", err)
	}
	if got := client.callCount(); got != 2 {
		t.Errorf("llm calls = %d, want 2", got)
	}
}

func TestLLMFailureSpeaksApologyAndPreservesState(t *testing.T) {
	h := newHarness(t, &scriptedLLM{errs: []error{errors.New("provider exploded")}})
	ctx := context.Background()

	sessionID, err := h.svc.StartSession(ctx)
	if err != nil {
		t.Fatalf("StartSession: %v", err)
	}
	if err := h.svc.ProcessUtterance(ctx, sessionID, "Hi, I'm John Doe"); err != nil {
		t.Fatalf("ProcessUtterance: %v", err)
	}

	if got := h.replies.last(); got != apologyFallback {
		t.Errorf("reply = %q, want the fixed apology", got)
	}
	// Deterministic collection already ran; the captured name survives the
	// failure and the caller retries from the same state.
	snap := mustState(t, h, sessionID, dialog.StateCollectingEmail)
	if snap.Name != "John Doe" {
		t.Errorf("Name = %q, collected fields must be preserved", snap.Name)
	}
}

func TestCircuitOpenSpeaksApology(t *testing.T) {
	h := newHarness(t, &scriptedLLM{errs: []error{llm.ErrCircuitOpen}})
	ctx := context.Background()

	sessionID, err := h.svc.StartSession(ctx)
	if err != nil {
		t.Fatalf("StartSession: %v", err)
	}
	if err := h.svc.ProcessUtterance(ctx, sessionID, "hello"); err != nil {
		t.Fatalf("ProcessUtterance: %v", err)
	}
	if got := h.replies.last(); got != apologyFallback {
		t.Errorf("reply = %q, want the fixed apology", got)
	}
}

func TestProcessUtteranceUnknownSession(t *testing.T) {
	h := newHarness(t, &scriptedLLM{})
	err := h.svc.ProcessUtterance(context.Background(), "no-such-session", "hello")
	if !errors.Is(err, ErrUnknownSession) {
		t.Fatalf("err = %v, want ErrUnknownSession", err)
	}
}

func TestEmptyUtteranceIsANoOp(t *testing.T) {
	h := newHarness(t, &scriptedLLM{})
	ctx := context.Background()

	sessionID, err := h.svc.StartSession(ctx)
	if err != nil {
		t.Fatalf("StartSession: %v", err)
	}
	if err := h.svc.ProcessUtterance(ctx, sessionID, "   "); err != nil {
		t.Fatalf("ProcessUtterance: %v", err)
	}
	if got := h.llm.callCount(); got != 0 {
		t.Errorf("llm calls = %d, empty utterance must not reach the model", got)
	}
}

func TestTurnWithToolCallsAndNoTextIsValid(t *testing.T) {
	client := &scriptedLLM{responses: []llm.LLMResponse{
		{ToolCalls: []llm.ToolCall{{ID: "tu-1", Name: tools.ToolValidateEmail, Arguments: json.RawMessage(`{"email":"john@example.com"}`)}}},
		{}, // second round: no text, no tool calls
	}}
	h := newHarness(t, client)
	ctx := context.Background()

	sessionID, err := h.svc.StartSession(ctx)
	if err != nil {
		t.Fatalf("StartSession: %v", err)
	}
	if err := h.svc.ProcessUtterance(ctx, sessionID, "hello"); err != nil {
		t.Fatalf("ProcessUtterance: %v", err)
	}
	if len(h.replies.texts) != 0 {
		t.Errorf("replies = %v, silent turn should deliver nothing", h.replies.texts)
	}

	// The tool side effect still landed.
	snap, err := h.svc.GetContext(sessionID)
	if err != nil {
		t.Fatal(err)
	}
	if snap.Email != "john@example.com" {
		t.Errorf("Email = %q, tool effect missing", snap.Email)
	}
}

