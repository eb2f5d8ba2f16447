package repository

import (
	"context"
	"errors"
	"fmt"

	"social-fitness-backend/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// JoinRequestRepository handles database operations for join requests
type JoinRequestRepository struct {
	db *pgxpool.Pool
}

// NewJoinRequestRepository creates a new join request repository
func NewJoinRequestRepository(db *pgxpool.Pool) *JoinRequestRepository {
	return &JoinRequestRepository{db: db}
}

// CreatePending inserts a PENDING request. The partial unique index on
// (event_id, user_id) WHERE status = 'PENDING' turns duplicates into no-ops;
// created reports whether a new row was written.
func (r *JoinRequestRepository) CreatePending(ctx context.Context, req *models.JoinRequest) (bool, error) {
	query := `
		INSERT INTO join_requests (id, event_id, user_id, status, message, created_at)
		VALUES ($1, $2, $3, 'PENDING', $4, $5)
		ON CONFLICT (event_id, user_id) WHERE status = 'PENDING' DO NOTHING
	`
	result, err := r.db.Exec(ctx, query, req.ID, req.EventID, req.UserID, req.Message, req.CreatedAt)
	if err != nil {
		return false, fmt.Errorf("failed to create join request: %w", err)
	}
	return result.RowsAffected() > 0, nil
}

// GetByID retrieves a join request by ID
func (r *JoinRequestRepository) GetByID(ctx context.Context, id string) (*models.JoinRequest, error) {
	query := `
		SELECT id, event_id, user_id, status, message, created_at
		FROM join_requests
		WHERE id = $1
	`
	var req models.JoinRequest
	err := r.db.QueryRow(ctx, query, id).Scan(
		&req.ID, &req.EventID, &req.UserID, &req.Status, &req.Message, &req.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("join request not found: %w", ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get join request: %w", err)
	}
	return &req, nil
}

// ListPendingByEvent retrieves the pending requests of an event, oldest first
func (r *JoinRequestRepository) ListPendingByEvent(ctx context.Context, eventID string) ([]*models.JoinRequest, error) {
	query := `
		SELECT id, event_id, user_id, status, message, created_at
		FROM join_requests
		WHERE event_id = $1 AND status = 'PENDING'
		ORDER BY created_at ASC
	`
	rows, err := r.db.Query(ctx, query, eventID)
	if err != nil {
		return nil, fmt.Errorf("failed to list join requests: %w", err)
	}
	defer rows.Close()

	var reqs []*models.JoinRequest
	for rows.Next() {
		var req models.JoinRequest
		if err := rows.Scan(
			&req.ID, &req.EventID, &req.UserID, &req.Status, &req.Message, &req.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan join request: %w", err)
		}
		reqs = append(reqs, &req)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating join requests: %w", err)
	}

	return reqs, nil
}

// UpdateStatus moves a PENDING request to a final status
func (r *JoinRequestRepository) UpdateStatus(ctx context.Context, id string, status models.JoinRequestStatus) error {
	query := `UPDATE join_requests SET status = $1 WHERE id = $2 AND status = 'PENDING'`
	result, err := r.db.Exec(ctx, query, status, id)
	if err != nil {
		return fmt.Errorf("failed to update join request: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("pending join request not found: %w", ErrNotFound)
	}
	return nil
}

// Accept moves a PENDING request to ACCEPTED and writes the requester's RSVP
// in one transaction. A request that is no longer pending leaves both rows
// untouched and returns ErrNotFound.
func (r *JoinRequestRepository) Accept(ctx context.Context, id string, rsvp *models.RSVP) error {
	return pgx.BeginFunc(ctx, r.db, func(tx pgx.Tx) error {
		query := `UPDATE join_requests SET status = 'ACCEPTED' WHERE id = $1 AND status = 'PENDING'`
		result, err := tx.Exec(ctx, query, id)
		if err != nil {
			return fmt.Errorf("failed to accept join request: %w", err)
		}
		if result.RowsAffected() == 0 {
			return fmt.Errorf("pending join request not found: %w", ErrNotFound)
		}

		return upsertRSVP(ctx, tx, rsvp)
	})
}
