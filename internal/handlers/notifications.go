package handlers

import (
	"net/http"

	"social-fitness-backend/internal/middleware"
	"social-fitness-backend/internal/models"
	"social-fitness-backend/internal/services"

	"github.com/go-chi/chi/v5"
)

// NotificationHandler handles notification HTTP requests
type NotificationHandler struct {
	dispatcher *services.NotificationDispatcher
}

// NewNotificationHandler creates a new notification handler
func NewNotificationHandler(dispatcher *services.NotificationDispatcher) *NotificationHandler {
	return &NotificationHandler{dispatcher: dispatcher}
}

// ListNotifications handles GET /api/v1/notifications
func (h *NotificationHandler) ListNotifications(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)

	notifications, err := h.dispatcher.ListNotifications(ctx, userID)
	if err != nil {
		respondServiceError(w, err, "Failed to list notifications")
		return
	}
	if notifications == nil {
		notifications = []*models.Notification{}
	}

	respondJSON(w, http.StatusOK, map[string]any{"notifications": notifications})
}

// MarkRead handles PATCH /api/v1/notifications/{notification_id}/read
func (h *NotificationHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)
	notificationID := chi.URLParam(r, "notification_id")

	if err := h.dispatcher.MarkRead(ctx, notificationID, userID); err != nil {
		respondServiceError(w, err, "Failed to mark notification read")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
