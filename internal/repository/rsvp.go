package repository

import (
	"context"
	"errors"
	"fmt"

	"social-fitness-backend/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// RSVPRepository handles database operations for RSVPs
type RSVPRepository struct {
	db *pgxpool.Pool
}

// NewRSVPRepository creates a new RSVP repository
func NewRSVPRepository(db *pgxpool.Pool) *RSVPRepository {
	return &RSVPRepository{db: db}
}

// Upsert inserts the RSVP or, on an (event_id, user_id) conflict, refreshes
// its status and timestamp. Concurrent upserts converge on one row.
func (r *RSVPRepository) Upsert(ctx context.Context, rsvp *models.RSVP) error {
	return upsertRSVP(ctx, r.db, rsvp)
}

// rowQuerier is satisfied by both the pool and a transaction
type rowQuerier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func upsertRSVP(ctx context.Context, db rowQuerier, rsvp *models.RSVP) error {
	query := `
		INSERT INTO event_rsvps (id, event_id, user_id, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $5)
		ON CONFLICT (event_id, user_id)
		DO UPDATE SET status = EXCLUDED.status, updated_at = EXCLUDED.updated_at
		RETURNING id, created_at
	`
	err := db.QueryRow(ctx, query,
		rsvp.ID, rsvp.EventID, rsvp.UserID, rsvp.Status, rsvp.UpdatedAt,
	).Scan(&rsvp.ID, &rsvp.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert rsvp: %w", err)
	}
	return nil
}

// Get retrieves the RSVP of a user for an event
func (r *RSVPRepository) Get(ctx context.Context, eventID, userID string) (*models.RSVP, error) {
	query := `
		SELECT id, event_id, user_id, status, created_at, updated_at
		FROM event_rsvps
		WHERE event_id = $1 AND user_id = $2
	`
	var rsvp models.RSVP
	err := r.db.QueryRow(ctx, query, eventID, userID).Scan(
		&rsvp.ID, &rsvp.EventID, &rsvp.UserID, &rsvp.Status, &rsvp.CreatedAt, &rsvp.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("rsvp not found: %w", ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get rsvp: %w", err)
	}
	return &rsvp, nil
}

// CountByStatus counts the RSVPs of an event with the given status
func (r *RSVPRepository) CountByStatus(ctx context.Context, eventID string, status models.RSVPStatus) (int, error) {
	query := `SELECT COUNT(*) FROM event_rsvps WHERE event_id = $1 AND status = $2`
	var count int
	if err := r.db.QueryRow(ctx, query, eventID, status).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count rsvps: %w", err)
	}
	return count, nil
}

// ListByEvent retrieves every RSVP of an event, oldest first
func (r *RSVPRepository) ListByEvent(ctx context.Context, eventID string) ([]*models.RSVP, error) {
	query := `
		SELECT id, event_id, user_id, status, created_at, updated_at
		FROM event_rsvps
		WHERE event_id = $1
		ORDER BY created_at ASC
	`
	rows, err := r.db.Query(ctx, query, eventID)
	if err != nil {
		return nil, fmt.Errorf("failed to list rsvps: %w", err)
	}
	defer rows.Close()

	var rsvps []*models.RSVP
	for rows.Next() {
		var rsvp models.RSVP
		if err := rows.Scan(
			&rsvp.ID, &rsvp.EventID, &rsvp.UserID, &rsvp.Status, &rsvp.CreatedAt, &rsvp.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan rsvp: %w", err)
		}
		rsvps = append(rsvps, &rsvp)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rsvps: %w", err)
	}

	return rsvps, nil
}
