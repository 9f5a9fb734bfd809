package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/contextchat/backend/internal/auth"
	"github.com/contextchat/backend/internal/chat"
	"github.com/contextchat/backend/internal/models"
	"github.com/go-chi/chi/v5"
)

// MessageHandler contains HTTP handlers for message operations.
// This is the request/response path used when the live channel is
// unavailable; it shares the coordinator's write path with the live
// channel, skipping only the push back to the sender's own socket.
type MessageHandler struct {
	coordinator *chat.Coordinator
}

// NewMessageHandler creates a new MessageHandler instance.
func NewMessageHandler(coordinator *chat.Coordinator) *MessageHandler {
	return &MessageHandler{coordinator: coordinator}
}

// SendMessage handles POST /api/messages
// Accepts a message for a context and returns the stored message.
func (h *MessageHandler) SendMessage(w http.ResponseWriter, r *http.Request) {
	principal, ok := auth.PrincipalFrom(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "No token, authorization denied")
		return
	}

	var req models.SendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.ContextID == "" || req.Content == "" {
		writeError(w, http.StatusBadRequest, "contextId and content are required")
		return
	}

	msg, err := h.coordinator.Accept(req.ContextID, principal.ID, req.Content)
	if err != nil {
		writeCoordinatorError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, msg)
}

// GetHistory handles GET /api/messages/{contextId}?limit=N
// Returns the most recent messages for the context in chronological
// order, oldest first. The limit is clamped server-side.
func (h *MessageHandler) GetHistory(w http.ResponseWriter, r *http.Request) {
	principal, ok := auth.PrincipalFrom(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "No token, authorization denied")
		return
	}

	contextID := chi.URLParam(r, "contextId")
	if contextID == "" {
		writeError(w, http.StatusBadRequest, "context ID is required")
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid 'limit' value")
			return
		}
		limit = parsed
	}

	messages, err := h.coordinator.History(contextID, principal.ID, limit)
	if err != nil {
		writeCoordinatorError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, messages)
}

// writeCoordinatorError maps the delivery failure taxonomy to HTTP
// status codes. Anything outside the taxonomy is a storage failure and
// surfaces as a 500, never silently swallowed.
func writeCoordinatorError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, chat.ErrInvalidContent):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, chat.ErrNotAuthorized):
		writeError(w, http.StatusForbidden, "Not authorized")
	case errors.Is(err, chat.ErrContextNotFound):
		writeError(w, http.StatusNotFound, "Context not found")
	default:
		log.Printf("[Message] Server error: %v", err)
		writeError(w, http.StatusInternalServerError, "Server error")
	}
}

// writeJSON is a helper function to write JSON responses.
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// writeError writes a JSON error body in the {"message": ...} shape.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"message": message})
}
