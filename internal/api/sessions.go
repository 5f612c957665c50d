// Package api exposes the HTTP surface: session endpoints for driving
// conversations plus the ops endpoints (health, metrics).
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"

	"github.com/voicedesk/support-voice-agent/internal/conversation"
	"github.com/voicedesk/support-voice-agent/pkg/logging"
)

// LastReplyStore retains the most recent spoken reply per session so the
// synchronous HTTP surface can return it. It doubles as the service's
// ReplySink.
type LastReplyStore struct {
	mu      sync.Mutex
	replies map[string]string
}

func NewLastReplyStore() *LastReplyStore {
	return &LastReplyStore{replies: make(map[string]string)}
}

// Deliver implements conversation.ReplySink.
func (s *LastReplyStore) Deliver(_ context.Context, sessionID, text string, _ []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.replies[sessionID] = text
	return nil
}

// Take returns and clears the pending reply for a session.
func (s *LastReplyStore) Take(sessionID string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	reply := s.replies[sessionID]
	delete(s.replies, sessionID)
	return reply
}

// SessionHandler serves the session lifecycle endpoints.
type SessionHandler struct {
	service *conversation.Service
	replies *LastReplyStore
	logger  *logging.Logger
}

func NewSessionHandler(service *conversation.Service, replies *LastReplyStore, logger *logging.Logger) *SessionHandler {
	if service == nil {
		panic("api: conversation service cannot be nil")
	}
	if replies == nil {
		panic("api: reply store cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &SessionHandler{service: service, replies: replies, logger: logger.WithComponent("api")}
}

// Start creates a new session.
func (h *SessionHandler) Start(w http.ResponseWriter, r *http.Request) {
	sessionID, err := h.service.StartSession(r.Context())
	if err != nil {
		h.logger.Error("session start failed", "error", err)
		writeError(w, http.StatusInternalServerError, "could not start session")
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"sessionId": sessionID})
}

// Utterance processes one user utterance and returns the agent's reply.
func (h *SessionHandler) Utterance(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	var body struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.service.ProcessUtterance(r.Context(), sessionID, body.Text); err != nil {
		if errors.Is(err, conversation.ErrUnknownSession) {
			writeError(w, http.StatusNotFound, "unknown session")
			return
		}
		h.logger.Error("utterance processing failed", "session_id", sessionID, "error", err)
		writeError(w, http.StatusInternalServerError, "could not process utterance")
		return
	}

	snap, err := h.service.GetContext(sessionID)
	if err != nil {
		writeError(w, http.StatusNotFound, "unknown session")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"reply": h.replies.Take(sessionID),
		"state": string(snap.State),
	})
}

// Context returns a snapshot of the session's collected data.
func (h *SessionHandler) Context(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	snap, err := h.service.GetContext(sessionID)
	if err != nil {
		writeError(w, http.StatusNotFound, "unknown session")
		return
	}

	resp := map[string]any{
		"sessionId":    snap.SessionID,
		"state":        string(snap.State),
		"name":         snap.Name,
		"email":        snap.Email,
		"phone":        snap.Phone,
		"address":      snap.Address,
		"issue":        snap.Issue,
		"issueType":    snap.IssueType,
		"ticketId":     snap.TicketID,
		"ticketNumber": snap.TicketNumber,
		"retryCount":   snap.RetryCount,
		"turnCount":    snap.Metadata.TurnCount,
	}
	if snap.Price != nil {
		resp["price"] = *snap.Price
	}
	writeJSON(w, http.StatusOK, resp)
}

// End terminates a session.
func (h *SessionHandler) End(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	if err := h.service.EndSession(r.Context(), sessionID); err != nil {
		if errors.Is(err, conversation.ErrUnknownSession) {
			writeError(w, http.StatusNotFound, "unknown session")
			return
		}
		h.logger.Error("session end failed", "session_id", sessionID, "error", err)
		writeError(w, http.StatusInternalServerError, "could not end session")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
