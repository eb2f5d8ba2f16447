package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"social-fitness-backend/internal/models"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/teambition/rrule-go"
)

// EventDirectory owns event CRUD, visibility filtering and search
type EventDirectory struct {
	events EventStore
	social *SocialGraph
	now    func() time.Time
}

// NewEventDirectory creates a new event directory
func NewEventDirectory(events EventStore, social *SocialGraph) *EventDirectory {
	return &EventDirectory{
		events: events,
		social: social,
		now:    time.Now,
	}
}

// EventInput carries the fields of a new event
type EventInput struct {
	Title           string              `json:"title"`
	Description     *string             `json:"description"`
	LocationName    *string             `json:"location_name"`
	MeetingPoint    *string             `json:"meeting_point"`
	Latitude        float64             `json:"latitude"`
	Longitude       float64             `json:"longitude"`
	StartTime       time.Time           `json:"start_time"`
	EndTime         *time.Time          `json:"end_time"`
	Visibility      models.Visibility   `json:"visibility"`
	ApprovalMode    models.ApprovalMode `json:"approval_mode"`
	MaxParticipants *int                `json:"max_participants"`
	RecurrenceRule  *string             `json:"recurrence_rule"`
}

// EventPatch carries a partial event update; nil fields are left unchanged
type EventPatch struct {
	Title           *string              `json:"title"`
	Description     *string              `json:"description"`
	LocationName    *string              `json:"location_name"`
	MeetingPoint    *string              `json:"meeting_point"`
	Latitude        *float64             `json:"latitude"`
	Longitude       *float64             `json:"longitude"`
	StartTime       *time.Time           `json:"start_time"`
	EndTime         *time.Time           `json:"end_time"`
	Visibility      *models.Visibility   `json:"visibility"`
	ApprovalMode    *models.ApprovalMode `json:"approval_mode"`
	MaxParticipants *int                 `json:"max_participants"`
	RecurrenceRule  *string              `json:"recurrence_rule"`
}

// SearchParams are the optional, conjunctive search filters
type SearchParams struct {
	Latitude  *float64
	Longitude *float64
	RadiusKm  *float64
	StartDate *time.Time
	EndDate   *time.Time
	Area      *models.BoundingBox
}

// CreateEvent creates an event owned by creatorID
func (s *EventDirectory) CreateEvent(ctx context.Context, creatorID string, in EventInput) (*models.Event, error) {
	now := s.now()
	event := &models.Event{
		ID:              uuid.New().String(),
		CreatorID:       creatorID,
		Title:           strings.TrimSpace(in.Title),
		Description:     in.Description,
		LocationName:    in.LocationName,
		MeetingPoint:    in.MeetingPoint,
		Latitude:        in.Latitude,
		Longitude:       in.Longitude,
		StartTime:       in.StartTime,
		EndTime:         in.EndTime,
		Visibility:      in.Visibility,
		ApprovalMode:    in.ApprovalMode,
		MaxParticipants: in.MaxParticipants,
		RecurrenceRule:  in.RecurrenceRule,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if event.Visibility == "" {
		event.Visibility = models.VisibilityPublic
	}
	if event.ApprovalMode == "" {
		event.ApprovalMode = models.ApprovalAuto
	}

	if err := validateEvent(event); err != nil {
		return nil, err
	}

	if err := s.events.Create(ctx, event); err != nil {
		return nil, fmt.Errorf("failed to create event: %w", err)
	}

	return event, nil
}

// GetEvent fetches an event for a viewer. viewerID may be empty for anonymous
// callers. Missing events are NotFound; hidden ones are Forbidden.
func (s *EventDirectory) GetEvent(ctx context.Context, eventID, viewerID string) (*models.Event, error) {
	event, err := s.loadEvent(ctx, eventID)
	if err != nil {
		return nil, err
	}

	visible, err := s.CanView(ctx, event, viewerID)
	if err != nil {
		return nil, err
	}
	if !visible {
		if event.Visibility == models.VisibilityFriends {
			return nil, forbidden("friends only event")
		}
		return nil, forbidden("you do not have permission to view this event")
	}

	return event, nil
}

// UpdateEvent applies a partial update; only the creator may edit
func (s *EventDirectory) UpdateEvent(ctx context.Context, eventID, userID string, patch EventPatch) (*models.Event, error) {
	event, err := s.loadEvent(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if event.CreatorID != userID {
		return nil, forbidden("only creator can edit")
	}

	applyPatch(event, patch)
	event.UpdatedAt = s.now()

	if err := validateEvent(event); err != nil {
		return nil, err
	}

	if err := s.events.Update(ctx, event); err != nil {
		if isNotFound(err) {
			return nil, notFound("event not found")
		}
		return nil, fmt.Errorf("failed to update event: %w", err)
	}

	return event, nil
}

// DeleteEvent removes an event; only the creator may delete
func (s *EventDirectory) DeleteEvent(ctx context.Context, eventID, userID string) error {
	event, err := s.loadEvent(ctx, eventID)
	if err != nil {
		return err
	}
	if event.CreatorID != userID {
		return forbidden("only creator can delete")
	}

	if err := s.events.Delete(ctx, eventID); err != nil {
		if isNotFound(err) {
			return notFound("event not found")
		}
		return fmt.Errorf("failed to delete event: %w", err)
	}
	return nil
}

// CanView reports whether viewerID may see the event
func (s *EventDirectory) CanView(ctx context.Context, event *models.Event, viewerID string) (bool, error) {
	if event.Visibility == models.VisibilityPublic {
		return true, nil
	}
	if viewerID != "" && viewerID == event.CreatorID {
		return true, nil
	}
	if event.Visibility == models.VisibilityFriends && viewerID != "" {
		friends, err := s.social.AreFriends(ctx, viewerID, event.CreatorID)
		if err != nil {
			return false, fmt.Errorf("failed to check friendship: %w", err)
		}
		return friends, nil
	}
	return false, nil
}

// Search returns the events visible to viewerID that match every filter.
// Recurring events are expanded when both date bounds are given.
func (s *EventDirectory) Search(ctx context.Context, viewerID string, params SearchParams) ([]models.EventInstance, error) {
	filter, err := s.buildFilter(ctx, viewerID, params)
	if err != nil {
		return nil, err
	}

	events, err := s.events.Search(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to search events: %w", err)
	}

	return expandRecurrences(dedupe(events), params.StartDate, params.EndDate), nil
}

func (s *EventDirectory) buildFilter(ctx context.Context, viewerID string, params SearchParams) (models.EventFilter, error) {
	filter := models.EventFilter{
		ViewerID:  viewerID,
		StartDate: params.StartDate,
		EndDate:   params.EndDate,
	}

	if viewerID != "" {
		friendIDs, err := s.social.FriendIDs(ctx, viewerID)
		if err != nil {
			return filter, fmt.Errorf("failed to list friends: %w", err)
		}
		filter.FriendIDs = friendIDs
	}

	if params.StartDate != nil && params.EndDate != nil && params.EndDate.Before(*params.StartDate) {
		return filter, validationFailed("end_date must not be before start_date")
	}

	if params.RadiusKm != nil {
		if params.Latitude == nil || params.Longitude == nil {
			return filter, validationFailed("radius search requires latitude and longitude")
		}
		if *params.RadiusKm < 0 {
			return filter, validationFailed("radius_km must not be negative")
		}
		if err := validateCoordinates(*params.Latitude, *params.Longitude); err != nil {
			return filter, err
		}
		box := BoundingBoxAround(*params.Latitude, *params.Longitude, *params.RadiusKm)
		filter.Box = &box
	}

	if params.Area != nil {
		area := *params.Area
		if area.MinLat > area.MaxLat || area.MinLng > area.MaxLng {
			return filter, validationFailed("bounding box minimum exceeds maximum")
		}
		filter.Area = &area
	}

	return filter, nil
}

func (s *EventDirectory) loadEvent(ctx context.Context, eventID string) (*models.Event, error) {
	event, err := s.events.GetByID(ctx, eventID)
	if err != nil {
		if isNotFound(err) {
			return nil, notFound("event not found")
		}
		return nil, fmt.Errorf("failed to get event: %w", err)
	}
	return event, nil
}

func dedupe(events []*models.Event) []*models.Event {
	seen := make(map[string]struct{}, len(events))
	out := events[:0:0]
	for _, event := range events {
		if _, ok := seen[event.ID]; ok {
			continue
		}
		seen[event.ID] = struct{}{}
		out = append(out, event)
	}
	return out
}

// expandRecurrences turns recurring events into one virtual instance per
// occurrence inside [from, to]. A rule that fails to parse leaves the event
// as stored.
func expandRecurrences(events []*models.Event, from, to *time.Time) []models.EventInstance {
	instances := make([]models.EventInstance, 0, len(events))
	for _, event := range events {
		stored := models.EventInstance{Event: *event, SourceEventID: event.ID}

		if from == nil || to == nil || event.RecurrenceRule == nil || strings.TrimSpace(*event.RecurrenceRule) == "" {
			instances = append(instances, stored)
			continue
		}

		occurrences, err := occurrencesBetween(*event.RecurrenceRule, event.StartTime, *from, *to)
		if err != nil {
			log.Warn().
				Err(err).
				Str("event_id", event.ID).
				Str("recurrence_rule", *event.RecurrenceRule).
				Msg("Failed to expand recurrence rule")
			instances = append(instances, stored)
			continue
		}

		for _, start := range occurrences {
			virtual := models.EventInstance{
				Event:         *event,
				IsVirtual:     true,
				SourceEventID: event.ID,
			}
			virtual.StartTime = start
			instances = append(instances, virtual)
		}
	}
	return instances
}

func occurrencesBetween(rule string, dtstart, from, to time.Time) ([]time.Time, error) {
	rule = strings.TrimPrefix(strings.TrimSpace(rule), "RRULE:")

	opt, err := rrule.StrToROption(rule)
	if err != nil {
		return nil, fmt.Errorf("failed to parse recurrence rule: %w", err)
	}
	opt.Dtstart = dtstart

	r, err := rrule.NewRRule(*opt)
	if err != nil {
		return nil, fmt.Errorf("failed to build recurrence rule: %w", err)
	}

	return r.Between(from, to, true), nil
}

func applyPatch(event *models.Event, patch EventPatch) {
	if patch.Title != nil {
		event.Title = strings.TrimSpace(*patch.Title)
	}
	if patch.Description != nil {
		event.Description = patch.Description
	}
	if patch.LocationName != nil {
		event.LocationName = patch.LocationName
	}
	if patch.MeetingPoint != nil {
		event.MeetingPoint = patch.MeetingPoint
	}
	if patch.Latitude != nil {
		event.Latitude = *patch.Latitude
	}
	if patch.Longitude != nil {
		event.Longitude = *patch.Longitude
	}
	if patch.StartTime != nil {
		event.StartTime = *patch.StartTime
	}
	if patch.EndTime != nil {
		event.EndTime = patch.EndTime
	}
	if patch.Visibility != nil {
		event.Visibility = *patch.Visibility
	}
	if patch.ApprovalMode != nil {
		event.ApprovalMode = *patch.ApprovalMode
	}
	if patch.MaxParticipants != nil {
		event.MaxParticipants = patch.MaxParticipants
	}
	if patch.RecurrenceRule != nil {
		event.RecurrenceRule = patch.RecurrenceRule
	}
}

func validateEvent(event *models.Event) error {
	if event.Title == "" {
		return validationFailed("title is required")
	}
	if err := validateCoordinates(event.Latitude, event.Longitude); err != nil {
		return err
	}
	if event.StartTime.IsZero() {
		return validationFailed("start_time is required")
	}
	if event.EndTime != nil && event.EndTime.Before(event.StartTime) {
		return validationFailed("end_time must not be before start_time")
	}
	if !event.Visibility.Valid() {
		return validationFailed("visibility must be one of PRIVATE, FRIENDS, PUBLIC")
	}
	if !event.ApprovalMode.Valid() {
		return validationFailed("approval_mode must be one of AUTO, MANUAL")
	}
	if event.MaxParticipants != nil && *event.MaxParticipants < 1 {
		return validationFailed("max_participants must be at least 1")
	}
	return nil
}
