package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"social-fitness-backend/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// EventRepository handles database operations for events
type EventRepository struct {
	db *pgxpool.Pool
}

// NewEventRepository creates a new event repository
func NewEventRepository(db *pgxpool.Pool) *EventRepository {
	return &EventRepository{db: db}
}

const eventColumns = `id, creator_id, title, description, location_name, meeting_point,
	latitude, longitude, start_time, end_time, visibility, approval_mode,
	max_participants, recurrence_rule, created_at, updated_at`

func scanEvent(row pgx.Row) (*models.Event, error) {
	var event models.Event
	err := row.Scan(
		&event.ID, &event.CreatorID, &event.Title, &event.Description, &event.LocationName, &event.MeetingPoint,
		&event.Latitude, &event.Longitude, &event.StartTime, &event.EndTime, &event.Visibility, &event.ApprovalMode,
		&event.MaxParticipants, &event.RecurrenceRule, &event.CreatedAt, &event.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &event, nil
}

// Create creates a new event
func (r *EventRepository) Create(ctx context.Context, event *models.Event) error {
	query := `
		INSERT INTO events (` + eventColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
	`
	_, err := r.db.Exec(ctx, query,
		event.ID, event.CreatorID, event.Title, event.Description, event.LocationName, event.MeetingPoint,
		event.Latitude, event.Longitude, event.StartTime, event.EndTime, event.Visibility, event.ApprovalMode,
		event.MaxParticipants, event.RecurrenceRule, event.CreatedAt, event.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create event: %w", err)
	}
	return nil
}

// GetByID retrieves an event by ID
func (r *EventRepository) GetByID(ctx context.Context, id string) (*models.Event, error) {
	query := `SELECT ` + eventColumns + ` FROM events WHERE id = $1`
	event, err := scanEvent(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("event not found: %w", ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get event: %w", err)
	}
	return event, nil
}

// Update overwrites the mutable fields of an event
func (r *EventRepository) Update(ctx context.Context, event *models.Event) error {
	query := `
		UPDATE events SET
			title = $2, description = $3, location_name = $4, meeting_point = $5,
			latitude = $6, longitude = $7, start_time = $8, end_time = $9,
			visibility = $10, approval_mode = $11, max_participants = $12,
			recurrence_rule = $13, updated_at = $14
		WHERE id = $1
	`
	result, err := r.db.Exec(ctx, query,
		event.ID, event.Title, event.Description, event.LocationName, event.MeetingPoint,
		event.Latitude, event.Longitude, event.StartTime, event.EndTime,
		event.Visibility, event.ApprovalMode, event.MaxParticipants,
		event.RecurrenceRule, event.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update event: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("event not found: %w", ErrNotFound)
	}
	return nil
}

// Delete deletes an event by ID
func (r *EventRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.Exec(ctx, `DELETE FROM events WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete event: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("event not found: %w", ErrNotFound)
	}
	return nil
}

// Search returns the events matching every filter that is set
func (r *EventRepository) Search(ctx context.Context, filter models.EventFilter) ([]*models.Event, error) {
	var (
		conditions []string
		args       []any
	)
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	visibility := []string{"visibility = 'PUBLIC'"}
	if filter.ViewerID != "" {
		visibility = append(visibility, "creator_id = "+arg(filter.ViewerID))
		if len(filter.FriendIDs) > 0 {
			visibility = append(visibility,
				"(visibility = 'FRIENDS' AND creator_id = ANY("+arg(filter.FriendIDs)+"::uuid[]))")
		}
	}
	conditions = append(conditions, "("+strings.Join(visibility, " OR ")+")")

	if filter.StartDate != nil {
		conditions = append(conditions, "start_time >= "+arg(*filter.StartDate))
	}
	if filter.EndDate != nil {
		conditions = append(conditions, "start_time <= "+arg(*filter.EndDate))
	}

	for _, box := range []*models.BoundingBox{filter.Box, filter.Area} {
		if box == nil {
			continue
		}
		conditions = append(conditions,
			"latitude >= "+arg(box.MinLat),
			"latitude <= "+arg(box.MaxLat),
			"longitude >= "+arg(box.MinLng),
			"longitude <= "+arg(box.MaxLng),
		)
	}

	query := `SELECT ` + eventColumns + ` FROM events WHERE ` +
		strings.Join(conditions, " AND ") + ` ORDER BY start_time ASC`

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to search events: %w", err)
	}
	defer rows.Close()

	var events []*models.Event
	for rows.Next() {
		event, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		events = append(events, event)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating events: %w", err)
	}

	return events, nil
}
