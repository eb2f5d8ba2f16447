package models

import "time"

// Visibility is the access tier of an event
type Visibility string

const (
	VisibilityPrivate Visibility = "PRIVATE"
	VisibilityFriends Visibility = "FRIENDS"
	VisibilityPublic  Visibility = "PUBLIC"
)

// Valid reports whether v is a known visibility tier
func (v Visibility) Valid() bool {
	switch v {
	case VisibilityPrivate, VisibilityFriends, VisibilityPublic:
		return true
	}
	return false
}

// ApprovalMode decides whether YES RSVPs are admitted directly or via a join request
type ApprovalMode string

const (
	ApprovalAuto   ApprovalMode = "AUTO"
	ApprovalManual ApprovalMode = "MANUAL"
)

// Valid reports whether m is a known approval mode
func (m ApprovalMode) Valid() bool {
	return m == ApprovalAuto || m == ApprovalManual
}

// RSVPStatus is a participant's answer for an event
type RSVPStatus string

const (
	RSVPYes   RSVPStatus = "YES"
	RSVPNo    RSVPStatus = "NO"
	RSVPMaybe RSVPStatus = "MAYBE"
)

// Valid reports whether s is a known RSVP status
func (s RSVPStatus) Valid() bool {
	switch s {
	case RSVPYes, RSVPNo, RSVPMaybe:
		return true
	}
	return false
}

// JoinRequestStatus is the state of a manual-approval join request
type JoinRequestStatus string

const (
	JoinRequestPending  JoinRequestStatus = "PENDING"
	JoinRequestAccepted JoinRequestStatus = "ACCEPTED"
	JoinRequestRejected JoinRequestStatus = "REJECTED"
)

// NotificationType identifies a notification template
type NotificationType string

const (
	NotificationJoinRequest     NotificationType = "JOIN_REQUEST"
	NotificationRequestApproved NotificationType = "REQUEST_APPROVED"

	// Reserved for invite, reminder and post-event producers. The
	// dispatcher renders them but no service emits them yet.
	NotificationInviteReceived NotificationType = "INVITE_RECEIVED"
	NotificationEventStarting  NotificationType = "EVENT_STARTING"
	NotificationPostEventEmoji NotificationType = "POST_EVENT_EMOJI"
)

// User represents a user in the system
type User struct {
	ID         string    `json:"id"`
	ExternalID string    `json:"-"`
	Name       string    `json:"name"`
	PushToken  *string   `json:"push_token,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Event represents a fitness event created by a user
type Event struct {
	ID              string       `json:"id"`
	CreatorID       string       `json:"creator_id"`
	Title           string       `json:"title"`
	Description     *string      `json:"description,omitempty"`
	LocationName    *string      `json:"location_name,omitempty"`
	MeetingPoint    *string      `json:"meeting_point,omitempty"`
	Latitude        float64      `json:"latitude"`
	Longitude       float64      `json:"longitude"`
	StartTime       time.Time    `json:"start_time"`
	EndTime         *time.Time   `json:"end_time,omitempty"`
	Visibility      Visibility   `json:"visibility"`
	ApprovalMode    ApprovalMode `json:"approval_mode"`
	MaxParticipants *int         `json:"max_participants,omitempty"`
	RecurrenceRule  *string      `json:"recurrence_rule,omitempty"`
	CreatedAt       time.Time    `json:"created_at"`
	UpdatedAt       time.Time    `json:"updated_at"`
}

// ImplicitDuration is assumed for events stored without an end time
const ImplicitDuration = 2 * time.Hour

// EffectiveEnd returns the end time, or start plus ImplicitDuration when no end is stored
func (e *Event) EffectiveEnd() time.Time {
	if e.EndTime != nil {
		return *e.EndTime
	}
	return e.StartTime.Add(ImplicitDuration)
}

// EventInstance is a search result: either a stored event or a virtual
// occurrence expanded from a recurring one. Event.StartTime holds the
// occurrence start for virtual instances; the end time is not recomputed.
type EventInstance struct {
	Event
	IsVirtual     bool   `json:"is_virtual"`
	SourceEventID string `json:"source_event_id"`
}

// EventFilter holds the conjunctive search filters for events
type EventFilter struct {
	// ViewerID is empty for anonymous searches
	ViewerID  string
	FriendIDs []string

	StartDate *time.Time
	EndDate   *time.Time

	Box *BoundingBox
	// Area is an explicit bounding box; both Box and Area may apply
	Area *BoundingBox
}

// BoundingBox is an inclusive latitude/longitude rectangle
type BoundingBox struct {
	MinLat float64 `json:"min_lat"`
	MaxLat float64 `json:"max_lat"`
	MinLng float64 `json:"min_lng"`
	MaxLng float64 `json:"max_lng"`
}

// RSVP is a participant's answer, unique per (event, user)
type RSVP struct {
	ID        string     `json:"id"`
	EventID   string     `json:"event_id"`
	UserID    string     `json:"user_id"`
	Status    RSVPStatus `json:"status"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// JoinRequest is created for YES intents on MANUAL events
type JoinRequest struct {
	ID        string            `json:"id"`
	EventID   string            `json:"event_id"`
	UserID    string            `json:"user_id"`
	Status    JoinRequestStatus `json:"status"`
	Message   *string           `json:"message,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
}

// Friendship is stored once per unordered pair with UserAID < UserBID
type Friendship struct {
	ID        string    `json:"id"`
	UserAID   string    `json:"user_a_id"`
	UserBID   string    `json:"user_b_id"`
	CreatedAt time.Time `json:"created_at"`
}

// LiveLocationSession groups the points a user streams for one event
type LiveLocationSession struct {
	ID        string     `json:"id"`
	EventID   string     `json:"event_id"`
	UserID    string     `json:"user_id"`
	IsActive  bool       `json:"is_active"`
	StartedAt time.Time  `json:"started_at"`
	EndedAt   *time.Time `json:"ended_at,omitempty"`
}

// LiveLocationPoint is an immutable position sample
type LiveLocationPoint struct {
	ID        string    `json:"id"`
	SessionID string    `json:"session_id"`
	Latitude  float64   `json:"latitude"`
	Longitude float64   `json:"longitude"`
	Timestamp time.Time `json:"timestamp"`
}

// Notification is an in-app notification record
type Notification struct {
	ID        string            `json:"id"`
	UserID    string            `json:"user_id"`
	Type      NotificationType  `json:"type"`
	Title     string            `json:"title"`
	Content   string            `json:"content"`
	IsRead    bool              `json:"is_read"`
	Data      map[string]string `json:"data,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
}

// ChatThread is a conversation attached to an event
type ChatThread struct {
	ID        string    `json:"id"`
	EventID   string    `json:"event_id"`
	Title     *string   `json:"title,omitempty"`
	CreatedBy string    `json:"created_by"`
	CreatedAt time.Time `json:"created_at"`
}

// ChatMessage is a message posted to a thread
type ChatMessage struct {
	ID         string    `json:"id"`
	ThreadID   string    `json:"thread_id"`
	SenderID   string    `json:"sender_id"`
	SenderName string    `json:"sender_name,omitempty"`
	Content    string    `json:"content"`
	CreatedAt  time.Time `json:"created_at"`
}
