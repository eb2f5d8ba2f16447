package services

import (
	"context"
	"fmt"
	"strings"

	"social-fitness-backend/internal/models"
)

// UserService handles user profile operations
type UserService struct {
	users UserStore
}

// NewUserService creates a new user service
func NewUserService(users UserStore) *UserService {
	return &UserService{users: users}
}

// GetUser retrieves a user by ID
func (s *UserService) GetUser(ctx context.Context, userID string) (*models.User, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if isNotFound(err) {
			return nil, notFound("user not found")
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

// UpdatePushToken sets the push delivery token; an empty token clears it
func (s *UserService) UpdatePushToken(ctx context.Context, userID, pushToken string) error {
	var token *string
	if trimmed := strings.TrimSpace(pushToken); trimmed != "" {
		token = &trimmed
	}

	if err := s.users.UpdatePushToken(ctx, userID, token); err != nil {
		if isNotFound(err) {
			return notFound("user not found")
		}
		return fmt.Errorf("failed to update push token: %w", err)
	}
	return nil
}
