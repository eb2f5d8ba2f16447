package services

import (
	"context"
	"fmt"
	"time"

	"social-fitness-backend/internal/models"

	"github.com/google/uuid"
)

// SocialGraph answers friendship queries between users
type SocialGraph struct {
	friendships FriendshipStore
	users       UserStore
}

// NewSocialGraph creates a new social graph
func NewSocialGraph(friendships FriendshipStore, users UserStore) *SocialGraph {
	return &SocialGraph{
		friendships: friendships,
		users:       users,
	}
}

// AreFriends reports whether two users are connected. A user is always
// connected to themselves.
func (s *SocialGraph) AreFriends(ctx context.Context, userAID, userBID string) (bool, error) {
	if userAID == "" || userBID == "" {
		return false, nil
	}
	if userAID == userBID {
		return true, nil
	}
	return s.friendships.Exists(ctx, userAID, userBID)
}

// FriendIDs returns the ids of every friend of a user
func (s *SocialGraph) FriendIDs(ctx context.Context, userID string) ([]string, error) {
	return s.friendships.ListFriendIDs(ctx, userID)
}

// AddFriend connects two users. Adding an existing friendship is a no-op.
func (s *SocialGraph) AddFriend(ctx context.Context, userID, friendID string) error {
	if userID == friendID {
		return validationFailed("cannot befriend yourself")
	}

	if _, err := s.users.GetByID(ctx, friendID); err != nil {
		if isNotFound(err) {
			return notFound("user not found")
		}
		return fmt.Errorf("failed to get user: %w", err)
	}

	// Store the pair ordered so one row covers both directions
	userAID, userBID := userID, friendID
	if userAID > userBID {
		userAID, userBID = userBID, userAID
	}

	friendship := &models.Friendship{
		ID:        uuid.New().String(),
		UserAID:   userAID,
		UserBID:   userBID,
		CreatedAt: time.Now(),
	}

	if err := s.friendships.Create(ctx, friendship); err != nil {
		return fmt.Errorf("failed to create friendship: %w", err)
	}

	return nil
}

// RemoveFriend disconnects two users
func (s *SocialGraph) RemoveFriend(ctx context.Context, userID, friendID string) error {
	if err := s.friendships.Delete(ctx, userID, friendID); err != nil {
		if isNotFound(err) {
			return notFound("friendship not found")
		}
		return fmt.Errorf("failed to delete friendship: %w", err)
	}
	return nil
}
