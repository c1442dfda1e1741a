package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/market-v/storefront/internal/assistant"
	"github.com/market-v/storefront/internal/observability"
)

// ChatController runs chat turns on a session.
type ChatController interface {
	Send(ctx context.Context, s *assistant.Session, text string) (assistant.ChatMessage, error)
	WelcomeText() string
}

// ChatHandler handles chat session endpoints.
type ChatHandler struct {
	logger   *observability.Logger
	sessions *assistant.SessionManager
	ctrl     ChatController
}

// NewChatHandler creates a new chat handler.
func NewChatHandler(logger *observability.Logger, sessions *assistant.SessionManager, ctrl ChatController) *ChatHandler {
	return &ChatHandler{
		logger:   logger,
		sessions: sessions,
		ctrl:     ctrl,
	}
}

// SessionDTO is the API view of a chat session.
type SessionDTO struct {
	ID        string                  `json:"id"`
	CreatedAt time.Time               `json:"createdAt"`
	State     assistant.State         `json:"state"`
	Welcome   string                  `json:"welcome,omitempty"`
	Messages  []assistant.ChatMessage `json:"messages"`
}

// SendMessageDTO is the body of POST /messages.
type SendMessageDTO struct {
	Text string `json:"text"`
}

// CreateSession handles POST /api/chat/sessions.
func (h *ChatHandler) CreateSession(w http.ResponseWriter, r *http.Request) {
	s := h.sessions.Create()
	h.logger.WithContext(r.Context()).WithSession(s.ID).Info().Msg("Chat session created")

	dto := toSessionDTO(s)
	dto.Welcome = h.ctrl.WelcomeText()
	writeJSON(w, http.StatusCreated, dto)
}

// GetSession handles GET /api/chat/sessions/{id}.
func (h *ChatHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	s, err := h.sessions.Get(chi.URLParam(r, "id"))
	if err != nil {
		fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toSessionDTO(s))
}

// DeleteSession handles DELETE /api/chat/sessions/{id}.
func (h *ChatHandler) DeleteSession(w http.ResponseWriter, r *http.Request) {
	if err := h.sessions.Delete(chi.URLParam(r, "id")); err != nil {
		fail(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// SendMessage handles POST /api/chat/sessions/{id}/messages.
func (h *ChatHandler) SendMessage(w http.ResponseWriter, r *http.Request) {
	s, err := h.sessions.Get(chi.URLParam(r, "id"))
	if err != nil {
		fail(w, err)
		return
	}

	var body SendMessageDTO
	if err := decodeJSON(w, r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	reply, err := h.ctrl.Send(r.Context(), s, body.Text)
	if err != nil {
		fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, normalizeMessage(reply))
}

func toSessionDTO(s *assistant.Session) SessionDTO {
	msgs := s.Messages()
	if msgs == nil {
		msgs = []assistant.ChatMessage{}
	}
	for i := range msgs {
		msgs[i] = normalizeMessage(msgs[i])
	}
	return SessionDTO{
		ID:        s.ID,
		CreatedAt: s.CreatedAt,
		State:     s.State(),
		Messages:  msgs,
	}
}

func normalizeMessage(m assistant.ChatMessage) assistant.ChatMessage {
	m.ProductSuggestions = productsOrEmpty(m.ProductSuggestions)
	return m
}
