package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"social-fitness-backend/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// LiveLocationRepository handles database operations for live location sessions and points
type LiveLocationRepository struct {
	db *pgxpool.Pool
}

// NewLiveLocationRepository creates a new live location repository
func NewLiveLocationRepository(db *pgxpool.Pool) *LiveLocationRepository {
	return &LiveLocationRepository{db: db}
}

// GetActiveSession retrieves the active session of a user for an event
func (r *LiveLocationRepository) GetActiveSession(ctx context.Context, eventID, userID string) (*models.LiveLocationSession, error) {
	query := `
		SELECT id, event_id, user_id, is_active, started_at, ended_at
		FROM live_location_sessions
		WHERE event_id = $1 AND user_id = $2 AND is_active
		LIMIT 1
	`
	var session models.LiveLocationSession
	err := r.db.QueryRow(ctx, query, eventID, userID).Scan(
		&session.ID, &session.EventID, &session.UserID, &session.IsActive, &session.StartedAt, &session.EndedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("live session not found: %w", ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get live session: %w", err)
	}
	return &session, nil
}

// CreateSession inserts an active session. If a concurrent request already
// opened one for the pair, the existing session is loaded into session instead.
func (r *LiveLocationRepository) CreateSession(ctx context.Context, session *models.LiveLocationSession) error {
	query := `
		WITH inserted AS (
			INSERT INTO live_location_sessions (id, event_id, user_id, is_active, started_at)
			VALUES ($1, $2, $3, TRUE, $4)
			ON CONFLICT (event_id, user_id) WHERE is_active DO NOTHING
			RETURNING id, started_at
		)
		SELECT id, started_at FROM inserted
		UNION ALL
		SELECT id, started_at FROM live_location_sessions
		WHERE event_id = $2 AND user_id = $3 AND is_active
		LIMIT 1
	`
	err := r.db.QueryRow(ctx, query, session.ID, session.EventID, session.UserID, session.StartedAt).
		Scan(&session.ID, &session.StartedAt)
	if err != nil {
		return fmt.Errorf("failed to create live session: %w", err)
	}
	session.IsActive = true
	return nil
}

// EndSession soft-ends the active session of a user for an event
func (r *LiveLocationRepository) EndSession(ctx context.Context, eventID, userID string, endedAt time.Time) error {
	query := `
		UPDATE live_location_sessions
		SET is_active = FALSE, ended_at = $3
		WHERE event_id = $1 AND user_id = $2 AND is_active
	`
	result, err := r.db.Exec(ctx, query, eventID, userID, endedAt)
	if err != nil {
		return fmt.Errorf("failed to end live session: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("live session not found: %w", ErrNotFound)
	}
	return nil
}

// AppendPoint inserts an immutable location point
func (r *LiveLocationRepository) AppendPoint(ctx context.Context, point *models.LiveLocationPoint) error {
	query := `
		INSERT INTO live_location_points (id, session_id, latitude, longitude, timestamp)
		VALUES ($1, $2, $3, $4, $5)
	`
	_, err := r.db.Exec(ctx, query, point.ID, point.SessionID, point.Latitude, point.Longitude, point.Timestamp)
	if err != nil {
		return fmt.Errorf("failed to append live point: %w", err)
	}
	return nil
}

// DeletePointsBefore purges points recorded before cutoff
func (r *LiveLocationRepository) DeletePointsBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := r.db.Exec(ctx, `DELETE FROM live_location_points WHERE timestamp < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to delete live points: %w", err)
	}
	return result.RowsAffected(), nil
}
