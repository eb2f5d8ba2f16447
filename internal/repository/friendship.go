package repository

import (
	"context"
	"fmt"

	"social-fitness-backend/internal/models"

	"github.com/jackc/pgx/v5/pgxpool"
)

// FriendshipRepository handles database operations for friendships.
// Each unordered pair is one row with user_a_id < user_b_id.
type FriendshipRepository struct {
	db *pgxpool.Pool
}

// NewFriendshipRepository creates a new friendship repository
func NewFriendshipRepository(db *pgxpool.Pool) *FriendshipRepository {
	return &FriendshipRepository{db: db}
}

// Create inserts a friendship, doing nothing if the pair already exists
func (r *FriendshipRepository) Create(ctx context.Context, friendship *models.Friendship) error {
	query := `
		INSERT INTO friendships (id, user_a_id, user_b_id, created_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_a_id, user_b_id) DO NOTHING
	`
	_, err := r.db.Exec(ctx, query, friendship.ID, friendship.UserAID, friendship.UserBID, friendship.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create friendship: %w", err)
	}
	return nil
}

// Delete removes the friendship between two users in either direction
func (r *FriendshipRepository) Delete(ctx context.Context, userAID, userBID string) error {
	query := `
		DELETE FROM friendships
		WHERE (user_a_id = $1 AND user_b_id = $2) OR (user_a_id = $2 AND user_b_id = $1)
	`
	result, err := r.db.Exec(ctx, query, userAID, userBID)
	if err != nil {
		return fmt.Errorf("failed to delete friendship: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("friendship not found: %w", ErrNotFound)
	}
	return nil
}

// Exists checks both directions for a friendship row
func (r *FriendshipRepository) Exists(ctx context.Context, userAID, userBID string) (bool, error) {
	query := `
		SELECT EXISTS(
			SELECT 1 FROM friendships
			WHERE (user_a_id = $1 AND user_b_id = $2) OR (user_a_id = $2 AND user_b_id = $1)
		)
	`
	var exists bool
	if err := r.db.QueryRow(ctx, query, userAID, userBID).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check friendship: %w", err)
	}
	return exists, nil
}

// ListFriendIDs returns the ids of every user connected to userID
func (r *FriendshipRepository) ListFriendIDs(ctx context.Context, userID string) ([]string, error) {
	query := `
		SELECT CASE WHEN user_a_id = $1 THEN user_b_id ELSE user_a_id END
		FROM friendships
		WHERE user_a_id = $1 OR user_b_id = $1
	`
	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list friends: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan friend id: %w", err)
		}
		ids = append(ids, id)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating friends: %w", err)
	}

	return ids, nil
}
