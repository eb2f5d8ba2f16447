package handlers

import (
	"net/http"
	"strconv"

	"social-fitness-backend/internal/middleware"
	"social-fitness-backend/internal/models"
	"social-fitness-backend/internal/services"

	"github.com/go-chi/chi/v5"
)

// ChatHandler handles event chat HTTP requests
type ChatHandler struct {
	chat *services.ChatService
}

// NewChatHandler creates a new chat handler
func NewChatHandler(chat *services.ChatService) *ChatHandler {
	return &ChatHandler{chat: chat}
}

// CreateThreadRequest represents the request body for a new thread
type CreateThreadRequest struct {
	Title string `json:"title"`
}

// SendMessageRequest represents the request body for a chat message
type SendMessageRequest struct {
	Content string `json:"content"`
}

// ListThreads handles GET /api/v1/events/{event_id}/threads
func (h *ChatHandler) ListThreads(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	viewerID := middleware.GetUserID(ctx)

	threads, err := h.chat.ListThreads(ctx, chi.URLParam(r, "event_id"), viewerID)
	if err != nil {
		respondServiceError(w, err, "Failed to list threads")
		return
	}
	if threads == nil {
		threads = []*models.ChatThread{}
	}

	respondJSON(w, http.StatusOK, map[string]any{"threads": threads})
}

// CreateThread handles POST /api/v1/events/{event_id}/threads
func (h *ChatHandler) CreateThread(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)

	var req CreateThreadRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	thread, err := h.chat.CreateThread(ctx, chi.URLParam(r, "event_id"), userID, req.Title)
	if err != nil {
		respondServiceError(w, err, "Failed to create thread")
		return
	}

	respondJSON(w, http.StatusCreated, thread)
}

// ListMessages handles GET /api/v1/events/{event_id}/threads/{thread_id}/messages
func (h *ChatHandler) ListMessages(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	viewerID := middleware.GetUserID(ctx)

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			respondError(w, "limit must be an integer", http.StatusBadRequest)
			return
		}
		limit = parsed
	}

	messages, err := h.chat.ListMessages(ctx, chi.URLParam(r, "event_id"), chi.URLParam(r, "thread_id"), viewerID, limit)
	if err != nil {
		respondServiceError(w, err, "Failed to list messages")
		return
	}
	if messages == nil {
		messages = []*models.ChatMessage{}
	}

	respondJSON(w, http.StatusOK, map[string]any{"messages": messages})
}

// SendMessage handles POST /api/v1/events/{event_id}/threads/{thread_id}/messages
func (h *ChatHandler) SendMessage(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)

	var req SendMessageRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	msg, err := h.chat.SendMessage(ctx, chi.URLParam(r, "event_id"), chi.URLParam(r, "thread_id"), userID, req.Content)
	if err != nil {
		respondServiceError(w, err, "Failed to send message")
		return
	}

	respondJSON(w, http.StatusCreated, msg)
}
