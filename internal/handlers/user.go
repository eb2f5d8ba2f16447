package handlers

import (
	"net/http"

	"social-fitness-backend/internal/middleware"
	"social-fitness-backend/internal/services"

	"github.com/rs/zerolog/log"
)

// UserHandler handles user-related HTTP requests
type UserHandler struct {
	userService *services.UserService
}

// NewUserHandler creates a new user handler
func NewUserHandler(userService *services.UserService) *UserHandler {
	return &UserHandler{
		userService: userService,
	}
}

// PushTokenRequest represents the request body for updating a push token
type PushTokenRequest struct {
	PushToken string `json:"push_token"`
}

// GetMe handles GET /api/v1/me
func (h *UserHandler) GetMe(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)

	user, err := h.userService.GetUser(ctx, userID)
	if err != nil {
		respondServiceError(w, err, "Failed to get user")
		return
	}

	respondJSON(w, http.StatusOK, user)
}

// UpdatePushToken handles PUT /api/v1/me/push-token
func (h *UserHandler) UpdatePushToken(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)

	var req PushTokenRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if err := h.userService.UpdatePushToken(ctx, userID, req.PushToken); err != nil {
		respondServiceError(w, err, "Failed to update push token")
		return
	}

	log.Info().
		Str("user_id", userID).
		Bool("cleared", req.PushToken == "").
		Msg("Push token updated")

	w.WriteHeader(http.StatusNoContent)
}
