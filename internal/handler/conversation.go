package handler

import (
	"log/slog"
	"net/http"

	chatSvc "parley/internal/domain/services/chat"
	"parley/internal/httputil"
)

// ConversationHandler handles conversation listing, loading and deletion
type ConversationHandler struct {
	conversations chatSvc.ConversationService
	logger        *slog.Logger
}

// NewConversationHandler creates a new conversation handler
func NewConversationHandler(conversations chatSvc.ConversationService, logger *slog.Logger) *ConversationHandler {
	return &ConversationHandler{
		conversations: conversations,
		logger:        logger,
	}
}

// List returns one page of conversations, newest first.
// GET /api/conversations?cursor=<timestamp>
func (h *ConversationHandler) List(w http.ResponseWriter, r *http.Request) {
	var cursor *string
	if c := r.URL.Query().Get("cursor"); c != "" {
		cursor = &c
	}

	page, err := h.conversations.ListConversations(r.Context(), cursor)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, page)
}

// Messages returns the full message history of a conversation along with the
// profile the next turn should use. This is the page-load path that also
// rebuilds the context cache window.
// GET /api/conversations/{id}/messages
func (h *ConversationHandler) Messages(w http.ResponseWriter, r *http.Request) {
	id, ok := PathParam(w, r, "id", "conversation id")
	if !ok {
		return
	}

	view, err := h.conversations.LoadConversation(r.Context(), id)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, view)
}

type deleteConversationRequest struct {
	ID string `json:"id"`
}

// Delete removes a conversation, its messages and its cache entry.
// POST /api/conversations/delete
func (h *ConversationHandler) Delete(w http.ResponseWriter, r *http.Request) {
	var req deleteConversationRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.conversations.DeleteConversation(r.Context(), req.ID); err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
