package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"social-fitness-backend/internal/models"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// Notifier is the outbound emission point for domain notifications.
// Notify is fire-and-forget: it never fails or blocks the caller's transition.
type Notifier interface {
	Notify(ctx context.Context, recipientID string, typ models.NotificationType, data map[string]string)
}

// PushSender delivers a push message to a device token
type PushSender interface {
	Send(ctx context.Context, deviceToken, title, body string, data map[string]string) error
}

// ClockTime is a wall-clock time of day
type ClockTime struct {
	Hour   int
	Minute int
}

// ParseClockTime parses "HH:MM"
func ParseClockTime(s string) (ClockTime, error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return ClockTime{}, fmt.Errorf("invalid time of day %q: %w", s, err)
	}
	return ClockTime{Hour: t.Hour(), Minute: t.Minute()}, nil
}

func (c ClockTime) minutes() int {
	return c.Hour*60 + c.Minute
}

// NotificationGate holds the anti-spam and quiet-hours policy
type NotificationGate struct {
	DailyCap   int
	QuietStart ClockTime
	QuietEnd   ClockTime
	Location   *time.Location
}

// DefaultNotificationGate returns a cap of 10 per day and quiet hours 22:00-07:00 local time
func DefaultNotificationGate() NotificationGate {
	return NotificationGate{
		DailyCap:   10,
		QuietStart: ClockTime{Hour: 22},
		QuietEnd:   ClockTime{Hour: 7},
		Location:   time.Local,
	}
}

// IsQuiet reports whether push delivery is suppressed at now. Both bounds are
// inclusive at minute resolution: 22:00 and the whole 07:00 minute are quiet.
func (g NotificationGate) IsQuiet(now time.Time) bool {
	local := now.In(g.location())
	m := local.Hour()*60 + local.Minute()
	return m >= g.QuietStart.minutes() || m <= g.QuietEnd.minutes()
}

// DayStart returns local midnight of the day containing now
func (g NotificationGate) DayStart(now time.Time) time.Time {
	local := now.In(g.location())
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, local.Location())
}

func (g NotificationGate) location() *time.Location {
	if g.Location == nil {
		return time.Local
	}
	return g.Location
}

// NotificationDispatcher persists notifications and sends push messages
// subject to the notification gate
type NotificationDispatcher struct {
	notifications NotificationStore
	users         UserStore
	push          PushSender
	gate          NotificationGate
	timeout       time.Duration
	now           func() time.Time
	wg            sync.WaitGroup
}

// NewNotificationDispatcher creates a new notification dispatcher
func NewNotificationDispatcher(
	notifications NotificationStore,
	users UserStore,
	push PushSender,
	gate NotificationGate,
	timeout time.Duration,
) *NotificationDispatcher {
	return &NotificationDispatcher{
		notifications: notifications,
		users:         users,
		push:          push,
		gate:          gate,
		timeout:       timeout,
		now:           time.Now,
	}
}

// Notify delivers in the background with its own deadline so a dropped
// request does not cancel delivery
func (d *NotificationDispatcher) Notify(_ context.Context, recipientID string, typ models.NotificationType, data map[string]string) {
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()

		ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
		defer cancel()

		if _, err := d.Send(ctx, recipientID, typ, data); err != nil {
			log.Error().
				Err(err).
				Str("user_id", recipientID).
				Str("type", string(typ)).
				Msg("Failed to dispatch notification")
		}
	}()
}

// Wait blocks until background deliveries finish
func (d *NotificationDispatcher) Wait() {
	d.wg.Wait()
}

// Send applies the gate and persists the notification. It returns nil without
// error when the recipient is unknown or over the daily cap. Push failures are
// logged, never returned.
func (d *NotificationDispatcher) Send(ctx context.Context, recipientID string, typ models.NotificationType, data map[string]string) (*models.Notification, error) {
	user, err := d.users.GetByID(ctx, recipientID)
	if err != nil {
		if isNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get recipient: %w", err)
	}

	now := d.now()

	count, err := d.notifications.CountSince(ctx, recipientID, d.gate.DayStart(now))
	if err != nil {
		return nil, fmt.Errorf("failed to count notifications: %w", err)
	}
	if count >= d.gate.DailyCap {
		log.Debug().
			Str("user_id", recipientID).
			Str("type", string(typ)).
			Msg("Daily notification cap reached")
		return nil, nil
	}

	title, body := renderNotification(typ, data)
	notification := &models.Notification{
		ID:        uuid.New().String(),
		UserID:    recipientID,
		Type:      typ,
		Title:     title,
		Content:   body,
		Data:      data,
		CreatedAt: now,
	}

	if err := d.notifications.Create(ctx, notification); err != nil {
		return nil, fmt.Errorf("failed to store notification: %w", err)
	}

	if d.gate.IsQuiet(now) || user.PushToken == nil || d.push == nil {
		return notification, nil
	}

	payload := make(map[string]string, len(data)+1)
	for k, v := range data {
		payload[k] = v
	}
	payload["type"] = string(typ)

	if err := d.push.Send(ctx, *user.PushToken, title, body, payload); err != nil {
		log.Error().
			Err(err).
			Str("user_id", recipientID).
			Str("notification_id", notification.ID).
			Msg("Push delivery failed")
	}

	return notification, nil
}

// ListNotifications returns a user's notifications, newest first
func (d *NotificationDispatcher) ListNotifications(ctx context.Context, userID string) ([]*models.Notification, error) {
	notifications, err := d.notifications.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list notifications: %w", err)
	}
	return notifications, nil
}

// MarkRead sets the read flag on one of the user's notifications
func (d *NotificationDispatcher) MarkRead(ctx context.Context, notificationID, userID string) error {
	if err := d.notifications.MarkRead(ctx, notificationID, userID); err != nil {
		if isNotFound(err) {
			return notFound("notification not found")
		}
		return fmt.Errorf("failed to mark notification read: %w", err)
	}
	return nil
}

func renderNotification(typ models.NotificationType, data map[string]string) (string, string) {
	sender := data["sender_name"]
	if sender == "" {
		sender = "Someone"
	}
	eventTitle := data["event_title"]

	switch typ {
	case models.NotificationInviteReceived:
		return "New invite!", fmt.Sprintf("%s invited you to %q.", sender, eventTitle)
	case models.NotificationJoinRequest:
		return "Join request", fmt.Sprintf("%s wants to join your event %q.", sender, eventTitle)
	case models.NotificationRequestApproved:
		return "Request approved!", fmt.Sprintf("You're in! Your request to join %q was approved.", eventTitle)
	case models.NotificationEventStarting:
		return "Event starting!", fmt.Sprintf("%q starts in %s minutes. Let's go!", eventTitle, data["minutes"])
	case models.NotificationPostEventEmoji:
		return "How did it go?", fmt.Sprintf("%q has ended. Leave a reaction for the group!", eventTitle)
	default:
		return string(typ), ""
	}
}
