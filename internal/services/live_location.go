package services

import (
	"context"
	"fmt"
	"time"

	"social-fitness-backend/internal/models"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

const (
	// LiveLeadTime is how long before the start streaming opens
	LiveLeadTime = 10 * time.Minute
	// LiveGraceTime is how long after the end streaming stays open
	LiveGraceTime = 5 * time.Minute
)

// PointOutcome is the result of a location update attempt
type PointOutcome int

const (
	PointRecorded PointOutcome = iota
	PointThrottled
	PointDenied
)

// LiveSessionTracker gates live location streaming and records points
type LiveSessionTracker struct {
	events   EventStore
	rsvps    RSVPStore
	sessions LiveLocationStore
	throttle ThrottleStore
	now      func() time.Time
}

// NewLiveSessionTracker creates a new live session tracker
func NewLiveSessionTracker(events EventStore, rsvps RSVPStore, sessions LiveLocationStore, throttle ThrottleStore) *LiveSessionTracker {
	return &LiveSessionTracker{
		events:   events,
		rsvps:    rsvps,
		sessions: sessions,
		throttle: throttle,
		now:      time.Now,
	}
}

// CanStream reports whether the user may stream or watch live location for
// the event right now. Unknown events are never streamable.
func (s *LiveSessionTracker) CanStream(ctx context.Context, userID, eventID string) (bool, error) {
	event, err := s.events.GetByID(ctx, eventID)
	if err != nil {
		if isNotFound(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to get event: %w", err)
	}

	if event.CreatorID != userID {
		rsvp, err := s.rsvps.Get(ctx, eventID, userID)
		if err != nil {
			if isNotFound(err) {
				return false, nil
			}
			return false, fmt.Errorf("failed to get rsvp: %w", err)
		}
		if rsvp.Status != models.RSVPYes {
			return false, nil
		}
	}

	return InLiveWindow(event, s.now()), nil
}

// InLiveWindow reports whether now falls in [start-10m, end+5m], bounds
// included. Events without an end time last two hours.
func InLiveWindow(event *models.Event, now time.Time) bool {
	opens := event.StartTime.Add(-LiveLeadTime)
	closes := event.EffectiveEnd().Add(LiveGraceTime)
	return !now.Before(opens) && !now.After(closes)
}

// RecordPoint gates, throttles and stores a location sample. Denied and
// throttled updates return no point and no error.
func (s *LiveSessionTracker) RecordPoint(ctx context.Context, userID, eventID string, lat, lng float64) (*models.LiveLocationPoint, PointOutcome, error) {
	if err := validateCoordinates(lat, lng); err != nil {
		return nil, PointDenied, err
	}

	allowed, err := s.CanStream(ctx, userID, eventID)
	if err != nil {
		return nil, PointDenied, err
	}
	if !allowed {
		return nil, PointDenied, nil
	}

	now := s.now()
	key := userID + ":" + eventID
	if !s.throttle.Allow(key, now) {
		return nil, PointThrottled, nil
	}

	point, err := s.storePoint(ctx, userID, eventID, lat, lng, now)
	if err != nil {
		s.throttle.Release(key)
		return nil, PointDenied, err
	}

	return point, PointRecorded, nil
}

func (s *LiveSessionTracker) storePoint(ctx context.Context, userID, eventID string, lat, lng float64, now time.Time) (*models.LiveLocationPoint, error) {
	session, err := s.activeSession(ctx, userID, eventID, now)
	if err != nil {
		return nil, err
	}

	point := &models.LiveLocationPoint{
		ID:        uuid.New().String(),
		SessionID: session.ID,
		Latitude:  lat,
		Longitude: lng,
		Timestamp: now,
	}
	if err := s.sessions.AppendPoint(ctx, point); err != nil {
		return nil, fmt.Errorf("failed to record point: %w", err)
	}

	return point, nil
}

// EndSession soft-ends the user's active session; ending none is a no-op
func (s *LiveSessionTracker) EndSession(ctx context.Context, userID, eventID string) error {
	if err := s.sessions.EndSession(ctx, eventID, userID, s.now()); err != nil {
		if isNotFound(err) {
			return nil
		}
		return fmt.Errorf("failed to end live session: %w", err)
	}
	return nil
}

// PurgeExpiredPoints deletes points older than retention
func (s *LiveSessionTracker) PurgeExpiredPoints(ctx context.Context, retention time.Duration) (int64, error) {
	deleted, err := s.sessions.DeletePointsBefore(ctx, s.now().Add(-retention))
	if err != nil {
		return 0, fmt.Errorf("failed to purge live points: %w", err)
	}
	return deleted, nil
}

func (s *LiveSessionTracker) activeSession(ctx context.Context, userID, eventID string, now time.Time) (*models.LiveLocationSession, error) {
	session, err := s.sessions.GetActiveSession(ctx, eventID, userID)
	if err == nil {
		return session, nil
	}
	if !isNotFound(err) {
		return nil, fmt.Errorf("failed to get live session: %w", err)
	}

	session = &models.LiveLocationSession{
		ID:        uuid.New().String(),
		EventID:   eventID,
		UserID:    userID,
		IsActive:  true,
		StartedAt: now,
	}
	if err := s.sessions.CreateSession(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to create live session: %w", err)
	}

	log.Info().
		Str("event_id", eventID).
		Str("user_id", userID).
		Str("session_id", session.ID).
		Msg("Live session started")

	return session, nil
}
