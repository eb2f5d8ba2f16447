package repository

import (
	"context"
	"errors"
	"fmt"

	"social-fitness-backend/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ChatRepository handles database operations for chat threads and messages
type ChatRepository struct {
	db *pgxpool.Pool
}

// NewChatRepository creates a new chat repository
func NewChatRepository(db *pgxpool.Pool) *ChatRepository {
	return &ChatRepository{db: db}
}

// CreateThread creates a new thread
func (r *ChatRepository) CreateThread(ctx context.Context, thread *models.ChatThread) error {
	query := `
		INSERT INTO chat_threads (id, event_id, title, created_by, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	_, err := r.db.Exec(ctx, query, thread.ID, thread.EventID, thread.Title, thread.CreatedBy, thread.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create chat thread: %w", err)
	}
	return nil
}

// GetThread retrieves a thread by ID
func (r *ChatRepository) GetThread(ctx context.Context, id string) (*models.ChatThread, error) {
	query := `
		SELECT id, event_id, title, created_by, created_at
		FROM chat_threads
		WHERE id = $1
	`
	var thread models.ChatThread
	err := r.db.QueryRow(ctx, query, id).Scan(
		&thread.ID, &thread.EventID, &thread.Title, &thread.CreatedBy, &thread.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("chat thread not found: %w", ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get chat thread: %w", err)
	}
	return &thread, nil
}

// ListThreadsByEvent retrieves the threads of an event, oldest first
func (r *ChatRepository) ListThreadsByEvent(ctx context.Context, eventID string) ([]*models.ChatThread, error) {
	query := `
		SELECT id, event_id, title, created_by, created_at
		FROM chat_threads
		WHERE event_id = $1
		ORDER BY created_at ASC
	`
	rows, err := r.db.Query(ctx, query, eventID)
	if err != nil {
		return nil, fmt.Errorf("failed to list chat threads: %w", err)
	}
	defer rows.Close()

	var threads []*models.ChatThread
	for rows.Next() {
		var thread models.ChatThread
		if err := rows.Scan(
			&thread.ID, &thread.EventID, &thread.Title, &thread.CreatedBy, &thread.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan chat thread: %w", err)
		}
		threads = append(threads, &thread)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating chat threads: %w", err)
	}

	return threads, nil
}

// CreateMessage stores a message
func (r *ChatRepository) CreateMessage(ctx context.Context, msg *models.ChatMessage) error {
	query := `
		INSERT INTO chat_messages (id, thread_id, sender_id, content, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	_, err := r.db.Exec(ctx, query, msg.ID, msg.ThreadID, msg.SenderID, msg.Content, msg.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create chat message: %w", err)
	}
	return nil
}

// ListMessages retrieves up to limit messages of a thread with sender
// names, newest first
func (r *ChatRepository) ListMessages(ctx context.Context, threadID string, limit int) ([]*models.ChatMessage, error) {
	query := `
		SELECT m.id, m.thread_id, m.sender_id, u.name, m.content, m.created_at
		FROM chat_messages m
		JOIN users u ON u.id = m.sender_id
		WHERE m.thread_id = $1
		ORDER BY m.created_at DESC
		LIMIT $2
	`
	rows, err := r.db.Query(ctx, query, threadID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list chat messages: %w", err)
	}
	defer rows.Close()

	var messages []*models.ChatMessage
	for rows.Next() {
		var msg models.ChatMessage
		if err := rows.Scan(
			&msg.ID, &msg.ThreadID, &msg.SenderID, &msg.SenderName, &msg.Content, &msg.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan chat message: %w", err)
		}
		messages = append(messages, &msg)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating chat messages: %w", err)
	}

	return messages, nil
}
