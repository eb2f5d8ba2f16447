package services

import (
	"context"
	"time"

	"social-fitness-backend/internal/models"
)

// UserStore is the storage contract for users
type UserStore interface {
	GetByID(ctx context.Context, id string) (*models.User, error)
	UpsertByExternalID(ctx context.Context, externalID, name string) (*models.User, error)
	UpdatePushToken(ctx context.Context, userID string, pushToken *string) error
}

// FriendshipStore is the storage contract for friendships
type FriendshipStore interface {
	Create(ctx context.Context, friendship *models.Friendship) error
	Delete(ctx context.Context, userAID, userBID string) error
	Exists(ctx context.Context, userAID, userBID string) (bool, error)
	ListFriendIDs(ctx context.Context, userID string) ([]string, error)
}

// EventStore is the storage contract for events
type EventStore interface {
	Create(ctx context.Context, event *models.Event) error
	GetByID(ctx context.Context, id string) (*models.Event, error)
	Update(ctx context.Context, event *models.Event) error
	Delete(ctx context.Context, id string) error
	Search(ctx context.Context, filter models.EventFilter) ([]*models.Event, error)
}

// RSVPStore is the storage contract for RSVPs
type RSVPStore interface {
	Upsert(ctx context.Context, rsvp *models.RSVP) error
	Get(ctx context.Context, eventID, userID string) (*models.RSVP, error)
	CountByStatus(ctx context.Context, eventID string, status models.RSVPStatus) (int, error)
	ListByEvent(ctx context.Context, eventID string) ([]*models.RSVP, error)
}

// JoinRequestStore is the storage contract for join requests
type JoinRequestStore interface {
	CreatePending(ctx context.Context, req *models.JoinRequest) (bool, error)
	GetByID(ctx context.Context, id string) (*models.JoinRequest, error)
	ListPendingByEvent(ctx context.Context, eventID string) ([]*models.JoinRequest, error)
	UpdateStatus(ctx context.Context, id string, status models.JoinRequestStatus) error
	// Accept marks a pending request ACCEPTED and upserts rsvp atomically;
	// a request that is no longer pending is a not-found miss
	Accept(ctx context.Context, id string, rsvp *models.RSVP) error
}

// LiveLocationStore is the storage contract for live sessions and points
type LiveLocationStore interface {
	GetActiveSession(ctx context.Context, eventID, userID string) (*models.LiveLocationSession, error)
	CreateSession(ctx context.Context, session *models.LiveLocationSession) error
	EndSession(ctx context.Context, eventID, userID string, endedAt time.Time) error
	AppendPoint(ctx context.Context, point *models.LiveLocationPoint) error
	DeletePointsBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// NotificationStore is the storage contract for notifications
type NotificationStore interface {
	Create(ctx context.Context, n *models.Notification) error
	CountSince(ctx context.Context, userID string, since time.Time) (int, error)
	ListByUser(ctx context.Context, userID string) ([]*models.Notification, error)
	MarkRead(ctx context.Context, id, userID string) error
}

// ChatStore is the storage contract for chat threads and messages
type ChatStore interface {
	CreateThread(ctx context.Context, thread *models.ChatThread) error
	GetThread(ctx context.Context, id string) (*models.ChatThread, error)
	ListThreadsByEvent(ctx context.Context, eventID string) ([]*models.ChatThread, error)
	CreateMessage(ctx context.Context, msg *models.ChatMessage) error
	ListMessages(ctx context.Context, threadID string, limit int) ([]*models.ChatMessage, error)
}
