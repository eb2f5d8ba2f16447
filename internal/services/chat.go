package services

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"social-fitness-backend/internal/models"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

const (
	DefaultMessageLimit = 50
	MaxMessageLimit     = 100
	maxMessageLength    = 2000
	maxThreadTitle      = 255
)

// ChatMessageType is the WebSocket type of a relayed chat message
const ChatMessageType = "chat_message"

// RoomBroadcaster fans a message out to a room's subscribers
type RoomBroadcaster interface {
	Broadcast(room string, sender *LiveClient, message WSMessage) int
}

// ChatService handles event chat threads and messages. Anyone who can see
// the event can read its threads; only the creator and YES participants
// can open threads and post.
type ChatService struct {
	chats     ChatStore
	rsvps     RSVPStore
	users     UserStore
	directory *EventDirectory
	rooms     RoomBroadcaster
	now       func() time.Time
}

// NewChatService creates a new chat service
func NewChatService(chats ChatStore, rsvps RSVPStore, users UserStore, directory *EventDirectory, rooms RoomBroadcaster) *ChatService {
	return &ChatService{
		chats:     chats,
		rsvps:     rsvps,
		users:     users,
		directory: directory,
		rooms:     rooms,
		now:       time.Now,
	}
}

// CreateThread opens a thread on an event
func (s *ChatService) CreateThread(ctx context.Context, eventID, userID, title string) (*models.ChatThread, error) {
	event, err := s.directory.GetEvent(ctx, eventID, userID)
	if err != nil {
		return nil, err
	}
	if err := s.requireParticipant(ctx, event, userID); err != nil {
		return nil, err
	}

	thread := &models.ChatThread{
		ID:        uuid.New().String(),
		EventID:   eventID,
		CreatedBy: userID,
		CreatedAt: s.now(),
	}
	if title = strings.TrimSpace(title); title != "" {
		if utf8.RuneCountInString(title) > maxThreadTitle {
			return nil, validationFailed("title is too long")
		}
		thread.Title = &title
	}

	if err := s.chats.CreateThread(ctx, thread); err != nil {
		return nil, fmt.Errorf("failed to create thread: %w", err)
	}

	log.Info().
		Str("event_id", eventID).
		Str("thread_id", thread.ID).
		Str("user_id", userID).
		Msg("Chat thread created")

	return thread, nil
}

// ListThreads returns the threads of an event the viewer can see
func (s *ChatService) ListThreads(ctx context.Context, eventID, viewerID string) ([]*models.ChatThread, error) {
	if _, err := s.directory.GetEvent(ctx, eventID, viewerID); err != nil {
		return nil, err
	}

	threads, err := s.chats.ListThreadsByEvent(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("failed to list threads: %w", err)
	}
	return threads, nil
}

// OpenThread returns a thread of an event the viewer can see
func (s *ChatService) OpenThread(ctx context.Context, eventID, threadID, viewerID string) (*models.ChatThread, error) {
	if _, err := s.directory.GetEvent(ctx, eventID, viewerID); err != nil {
		return nil, err
	}
	return s.getThread(ctx, eventID, threadID)
}

// ListMessages returns the newest messages of a thread. limit falls back
// to the default when not positive and is capped.
func (s *ChatService) ListMessages(ctx context.Context, eventID, threadID, viewerID string, limit int) ([]*models.ChatMessage, error) {
	if _, err := s.OpenThread(ctx, eventID, threadID, viewerID); err != nil {
		return nil, err
	}

	if limit <= 0 {
		limit = DefaultMessageLimit
	}
	if limit > MaxMessageLimit {
		limit = MaxMessageLimit
	}

	messages, err := s.chats.ListMessages(ctx, threadID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}
	return messages, nil
}

// SendMessage stores a message and relays it to the thread's live subscribers
func (s *ChatService) SendMessage(ctx context.Context, eventID, threadID, userID, content string) (*models.ChatMessage, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, validationFailed("content is required")
	}
	if utf8.RuneCountInString(content) > maxMessageLength {
		return nil, validationFailed("content is too long")
	}

	event, err := s.directory.GetEvent(ctx, eventID, userID)
	if err != nil {
		return nil, err
	}
	if err := s.requireParticipant(ctx, event, userID); err != nil {
		return nil, err
	}
	if _, err := s.getThread(ctx, eventID, threadID); err != nil {
		return nil, err
	}

	sender, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if isNotFound(err) {
			return nil, notFound("user not found")
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	msg := &models.ChatMessage{
		ID:         uuid.New().String(),
		ThreadID:   threadID,
		SenderID:   userID,
		SenderName: sender.Name,
		Content:    content,
		CreatedAt:  s.now(),
	}
	if err := s.chats.CreateMessage(ctx, msg); err != nil {
		return nil, fmt.Errorf("failed to send message: %w", err)
	}

	if s.rooms != nil {
		s.rooms.Broadcast(ChatRoom(threadID), nil, WSMessage{
			Type:      ChatMessageType,
			EventID:   eventID,
			ThreadID:  threadID,
			UserID:    userID,
			UserName:  sender.Name,
			Message:   content,
			Timestamp: msg.CreatedAt.UnixMilli(),
		})
	}

	return msg, nil
}

func (s *ChatService) getThread(ctx context.Context, eventID, threadID string) (*models.ChatThread, error) {
	thread, err := s.chats.GetThread(ctx, threadID)
	if err != nil {
		if isNotFound(err) {
			return nil, notFound("thread not found")
		}
		return nil, fmt.Errorf("failed to get thread: %w", err)
	}
	if thread.EventID != eventID {
		return nil, notFound("thread not found")
	}
	return thread, nil
}

func (s *ChatService) requireParticipant(ctx context.Context, event *models.Event, userID string) error {
	if event.CreatorID == userID {
		return nil
	}

	rsvp, err := s.rsvps.Get(ctx, event.ID, userID)
	if err != nil {
		if isNotFound(err) {
			return forbidden("only participants can chat")
		}
		return fmt.Errorf("failed to get rsvp: %w", err)
	}
	if rsvp.Status != models.RSVPYes {
		return forbidden("only participants can chat")
	}
	return nil
}
