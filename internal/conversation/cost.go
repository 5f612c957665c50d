package conversation

import (
	"strings"
	"sync"

	"github.com/voicedesk/support-voice-agent/internal/llm"
)

// CostRates holds approximate provider pricing for usage accounting. The
// numbers are advisory; billing truth lives with the providers.
type CostRates struct {
	LLMInputPer1K  float64
	LLMOutputPer1K float64
	TTSPer1KChars  float64
	STTPerMinute   float64
}

// SessionCost accumulates approximate spend for one session.
type SessionCost struct {
	LLMDollars float64
	TTSDollars float64
	STTDollars float64
}

// Total returns the combined spend.
func (c SessionCost) Total() float64 {
	return c.LLMDollars + c.TTSDollars + c.STTDollars
}

// costTracker keeps per-session usage totals. All methods are safe for
// concurrent sessions.
type costTracker struct {
	mu       sync.Mutex
	rates    CostRates
	sessions map[string]*SessionCost
}

func newCostTracker(rates CostRates) *costTracker {
	return &costTracker{
		rates:    rates,
		sessions: make(map[string]*SessionCost),
	}
}

func (t *costTracker) session(sessionID string) *SessionCost {
	if cost, ok := t.sessions[sessionID]; ok {
		return cost
	}
	cost := &SessionCost{}
	t.sessions[sessionID] = cost
	return cost
}

// RecordLLM accounts one completion's token usage and returns its cost.
func (t *costTracker) RecordLLM(sessionID string, usage llm.TokenUsage) float64 {
	t.mu.Lock()
	defer t.mu.Unlock()

	cost := float64(usage.InputTokens)/1000*t.rates.LLMInputPer1K +
		float64(usage.OutputTokens)/1000*t.rates.LLMOutputPer1K
	t.session(sessionID).LLMDollars += cost
	return cost
}

// RecordTTS accounts one synthesized reply by character count.
func (t *costTracker) RecordTTS(sessionID, text string) float64 {
	t.mu.Lock()
	defer t.mu.Unlock()

	cost := float64(len(text)) / 1000 * t.rates.TTSPer1KChars
	t.session(sessionID).TTSDollars += cost
	return cost
}

// RecordSTT accounts one transcribed utterance. Without audio duration the
// length is estimated from word count at a typical 150 words per minute.
func (t *costTracker) RecordSTT(sessionID, transcript string) float64 {
	t.mu.Lock()
	defer t.mu.Unlock()

	words := len(strings.Fields(transcript))
	minutes := float64(words) / 150
	cost := minutes * t.rates.STTPerMinute
	t.session(sessionID).STTDollars += cost
	return cost
}

// SessionTotal returns the accumulated spend for a session.
func (t *costTracker) SessionTotal(sessionID string) SessionCost {
	t.mu.Lock()
	defer t.mu.Unlock()
	if cost, ok := t.sessions[sessionID]; ok {
		return *cost
	}
	return SessionCost{}
}

// Forget drops a finished session's totals.
func (t *costTracker) Forget(sessionID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.sessions, sessionID)
}
