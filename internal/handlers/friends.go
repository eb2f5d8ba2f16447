package handlers

import (
	"net/http"

	"social-fitness-backend/internal/middleware"
	"social-fitness-backend/internal/services"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"
)

// FriendHandler handles friendship HTTP requests
type FriendHandler struct {
	social *services.SocialGraph
}

// NewFriendHandler creates a new friend handler
func NewFriendHandler(social *services.SocialGraph) *FriendHandler {
	return &FriendHandler{social: social}
}

// AddFriendRequest represents the request body for adding a friend
type AddFriendRequest struct {
	UserID string `json:"user_id"`
}

// ListFriends handles GET /api/v1/friends
func (h *FriendHandler) ListFriends(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)

	friendIDs, err := h.social.FriendIDs(ctx, userID)
	if err != nil {
		respondServiceError(w, err, "Failed to list friends")
		return
	}
	if friendIDs == nil {
		friendIDs = []string{}
	}

	respondJSON(w, http.StatusOK, map[string]any{"friend_ids": friendIDs})
}

// AddFriend handles POST /api/v1/friends
func (h *FriendHandler) AddFriend(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)

	var req AddFriendRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.UserID == "" {
		respondError(w, "user_id is required", http.StatusBadRequest)
		return
	}

	if err := h.social.AddFriend(ctx, userID, req.UserID); err != nil {
		respondServiceError(w, err, "Failed to add friend")
		return
	}

	log.Info().
		Str("user_id", userID).
		Str("friend_id", req.UserID).
		Msg("Friend added")

	w.WriteHeader(http.StatusNoContent)
}

// RemoveFriend handles DELETE /api/v1/friends/{user_id}
func (h *FriendHandler) RemoveFriend(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)
	friendID := chi.URLParam(r, "user_id")

	if err := h.social.RemoveFriend(ctx, userID, friendID); err != nil {
		respondServiceError(w, err, "Failed to remove friend")
		return
	}

	log.Info().
		Str("user_id", userID).
		Str("friend_id", friendID).
		Msg("Friend removed")

	w.WriteHeader(http.StatusNoContent)
}
