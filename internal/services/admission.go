package services

import (
	"context"
	"fmt"
	"time"

	"social-fitness-backend/internal/models"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// RSVPOutcome tells the caller how an RSVP intent was applied
type RSVPOutcome string

const (
	RSVPRecorded        RSVPOutcome = "recorded"
	RSVPPendingApproval RSVPOutcome = "pending_approval"
)

// RSVPResult is the outcome of SetRSVP. RSVP is set when a row was written;
// otherwise the intent became a join request awaiting the creator.
type RSVPResult struct {
	Outcome RSVPOutcome  `json:"outcome"`
	RSVP    *models.RSVP `json:"rsvp,omitempty"`
	Message string       `json:"message,omitempty"`
}

// AdmissionController owns RSVPs, capacity and the join-request workflow
type AdmissionController struct {
	events       EventStore
	rsvps        RSVPStore
	joinRequests JoinRequestStore
	users        UserStore
	directory    *EventDirectory
	notifier     Notifier
	now          func() time.Time
}

// NewAdmissionController creates a new admission controller
func NewAdmissionController(
	events EventStore,
	rsvps RSVPStore,
	joinRequests JoinRequestStore,
	users UserStore,
	directory *EventDirectory,
	notifier Notifier,
) *AdmissionController {
	return &AdmissionController{
		events:       events,
		rsvps:        rsvps,
		joinRequests: joinRequests,
		users:        users,
		directory:    directory,
		notifier:     notifier,
		now:          time.Now,
	}
}

// SetRSVP applies a user's RSVP intent to an event.
//
// The capacity check counts confirmed YES RSVPs and is not atomic with the
// write that follows, so concurrent YES requests may over-admit.
func (s *AdmissionController) SetRSVP(ctx context.Context, eventID, userID string, status models.RSVPStatus) (*RSVPResult, error) {
	if !status.Valid() {
		return nil, validationFailed("status must be one of YES, NO, MAYBE")
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if isNotFound(err) {
			return nil, notFound("user not found")
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	event, err := s.getEvent(ctx, eventID)
	if err != nil {
		return nil, err
	}

	if status == models.RSVPYes {
		if err := s.checkCapacity(ctx, event); err != nil {
			return nil, err
		}
	}

	if event.ApprovalMode == models.ApprovalManual && status == models.RSVPYes {
		confirmed, err := s.hasYes(ctx, eventID, userID)
		if err != nil {
			return nil, err
		}
		if !confirmed {
			return s.requestToJoin(ctx, event, user)
		}
	}

	rsvp, err := s.upsert(ctx, eventID, userID, status)
	if err != nil {
		return nil, err
	}

	return &RSVPResult{Outcome: RSVPRecorded, RSVP: rsvp}, nil
}

// ListRSVPs returns the RSVPs of an event the viewer can see
func (s *AdmissionController) ListRSVPs(ctx context.Context, eventID, viewerID string) ([]*models.RSVP, error) {
	if _, err := s.directory.GetEvent(ctx, eventID, viewerID); err != nil {
		return nil, err
	}

	rsvps, err := s.rsvps.ListByEvent(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("failed to list rsvps: %w", err)
	}
	return rsvps, nil
}

// ListJoinRequests returns pending join requests; creator only
func (s *AdmissionController) ListJoinRequests(ctx context.Context, eventID, userID string) ([]*models.JoinRequest, error) {
	event, err := s.getEvent(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if event.CreatorID != userID {
		return nil, forbidden("only creator can view join requests")
	}

	requests, err := s.joinRequests.ListPendingByEvent(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("failed to list join requests: %w", err)
	}
	return requests, nil
}

// RespondJoinRequest accepts or rejects a pending join request; creator only.
// Accepting writes the YES RSVP together with the status change and notifies
// the requester. A request answered concurrently fails without side effects.
func (s *AdmissionController) RespondJoinRequest(ctx context.Context, eventID, requestID, userID string, accept bool) (*models.JoinRequest, error) {
	event, err := s.getEvent(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if event.CreatorID != userID {
		return nil, forbidden("only creator can respond to join requests")
	}

	req, err := s.joinRequests.GetByID(ctx, requestID)
	if err != nil {
		if isNotFound(err) {
			return nil, notFound("join request not found")
		}
		return nil, fmt.Errorf("failed to get join request: %w", err)
	}
	if req.EventID != eventID {
		return nil, notFound("join request not found")
	}
	if req.Status != models.JoinRequestPending {
		return nil, validationFailed("join request already answered")
	}

	next := models.JoinRequestRejected
	if accept {
		next = models.JoinRequestAccepted
		if err := s.checkCapacity(ctx, event); err != nil {
			return nil, err
		}
		err = s.joinRequests.Accept(ctx, requestID, s.newRSVP(eventID, req.UserID, models.RSVPYes))
	} else {
		err = s.joinRequests.UpdateStatus(ctx, requestID, next)
	}
	if err != nil {
		if isNotFound(err) {
			return nil, validationFailed("join request already answered")
		}
		return nil, fmt.Errorf("failed to update join request: %w", err)
	}
	req.Status = next

	if accept {
		s.notifier.Notify(ctx, req.UserID, models.NotificationRequestApproved, map[string]string{
			"event_id":    event.ID,
			"event_title": event.Title,
		})
	}

	log.Info().
		Str("event_id", eventID).
		Str("request_id", requestID).
		Str("status", string(next)).
		Msg("Join request answered")

	return req, nil
}

func (s *AdmissionController) requestToJoin(ctx context.Context, event *models.Event, user *models.User) (*RSVPResult, error) {
	req := &models.JoinRequest{
		ID:        uuid.New().String(),
		EventID:   event.ID,
		UserID:    user.ID,
		Status:    models.JoinRequestPending,
		CreatedAt: s.now(),
	}

	created, err := s.joinRequests.CreatePending(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("failed to create join request: %w", err)
	}
	if !created {
		log.Debug().
			Str("event_id", event.ID).
			Str("user_id", user.ID).
			Msg("Join request already pending")
	}

	s.notifier.Notify(ctx, event.CreatorID, models.NotificationJoinRequest, map[string]string{
		"event_id":    event.ID,
		"event_title": event.Title,
		"sender_name": user.Name,
	})

	return &RSVPResult{
		Outcome: RSVPPendingApproval,
		Message: "join request sent for manual approval",
	}, nil
}

func (s *AdmissionController) checkCapacity(ctx context.Context, event *models.Event) error {
	if event.MaxParticipants == nil {
		return nil
	}

	count, err := s.rsvps.CountByStatus(ctx, event.ID, models.RSVPYes)
	if err != nil {
		return fmt.Errorf("failed to count rsvps: %w", err)
	}
	if count >= *event.MaxParticipants {
		return capacityExceeded("event is full")
	}
	return nil
}

func (s *AdmissionController) hasYes(ctx context.Context, eventID, userID string) (bool, error) {
	rsvp, err := s.rsvps.Get(ctx, eventID, userID)
	if err != nil {
		if isNotFound(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to get rsvp: %w", err)
	}
	return rsvp.Status == models.RSVPYes, nil
}

func (s *AdmissionController) newRSVP(eventID, userID string, status models.RSVPStatus) *models.RSVP {
	now := s.now()
	return &models.RSVP{
		ID:        uuid.New().String(),
		EventID:   eventID,
		UserID:    userID,
		Status:    status,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func (s *AdmissionController) upsert(ctx context.Context, eventID, userID string, status models.RSVPStatus) (*models.RSVP, error) {
	rsvp := s.newRSVP(eventID, userID, status)
	if err := s.rsvps.Upsert(ctx, rsvp); err != nil {
		return nil, fmt.Errorf("failed to save rsvp: %w", err)
	}
	return rsvp, nil
}

func (s *AdmissionController) getEvent(ctx context.Context, eventID string) (*models.Event, error) {
	event, err := s.events.GetByID(ctx, eventID)
	if err != nil {
		if isNotFound(err) {
			return nil, notFound("event not found")
		}
		return nil, fmt.Errorf("failed to get event: %w", err)
	}
	return event, nil
}
