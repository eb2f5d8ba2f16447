package services

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

const (
	writeWait  = 10 * time.Second
	pingPeriod = 25 * time.Second
	sendBuffer = 64
)

// WSMessage represents a live WebSocket message in either direction
type WSMessage struct {
	Type      string   `json:"type"`
	EventID   string   `json:"event_id,omitempty"`
	ThreadID  string   `json:"thread_id,omitempty"`
	Lat       *float64 `json:"lat,omitempty"`
	Lng       *float64 `json:"lng,omitempty"`
	Status    string   `json:"status,omitempty"`
	Room      string   `json:"room,omitempty"`
	Message   string   `json:"message,omitempty"`
	UserID    string   `json:"user_id,omitempty"`
	UserName  string   `json:"user_name,omitempty"`
	Timestamp int64    `json:"timestamp,omitempty"`
}

// LiveRoom returns the room name for an event's live location channel
func LiveRoom(eventID string) string {
	return fmt.Sprintf("event:%s:live", eventID)
}

// ChatRoom returns the room name for a chat thread's subscribers
func ChatRoom(threadID string) string {
	return fmt.Sprintf("thread:%s:chat", threadID)
}

// LiveClient is one WebSocket connection of a user
type LiveClient struct {
	UserID   string
	UserName string
	Send     chan []byte

	conn *websocket.Conn
	done chan struct{}
	once sync.Once
}

// NewLiveClient creates a client for a connection. conn may be nil when the
// caller drains Send itself.
func NewLiveClient(userID, userName string, conn *websocket.Conn) *LiveClient {
	return &LiveClient{
		UserID:   userID,
		UserName: userName,
		Send:     make(chan []byte, sendBuffer),
		conn:     conn,
		done:     make(chan struct{}),
	}
}

// WritePump writes queued messages and keepalive pings until the client is closed
func (c *LiveClient) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return
		case data := <-c.Send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				log.Debug().Err(err).Str("user_id", c.UserID).Msg("Failed to write WebSocket message")
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// Deliver queues a message without blocking; a full buffer drops it
func (c *LiveClient) Deliver(message WSMessage) bool {
	data, err := json.Marshal(message)
	if err != nil {
		log.Error().Err(err).Str("type", message.Type).Msg("Failed to marshal message")
		return false
	}

	select {
	case <-c.done:
		return false
	default:
	}

	select {
	case c.Send <- data:
		return true
	default:
		log.Warn().Str("user_id", c.UserID).Str("type", message.Type).Msg("Client send buffer full, dropping message")
		return false
	}
}

func (c *LiveClient) close() {
	c.once.Do(func() { close(c.done) })
}

// LiveHub tracks live room subscriptions
type LiveHub struct {
	mu    sync.RWMutex
	rooms map[string]map[*LiveClient]struct{}
}

// NewLiveHub creates a new live hub
func NewLiveHub() *LiveHub {
	return &LiveHub{
		rooms: make(map[string]map[*LiveClient]struct{}),
	}
}

// Join subscribes a client to a room
func (h *LiveHub) Join(room string, client *LiveClient) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.rooms[room]; !ok {
		h.rooms[room] = make(map[*LiveClient]struct{})
	}
	h.rooms[room][client] = struct{}{}

	log.Debug().Str("user_id", client.UserID).Str("room", room).Msg("Joined live room")
}

// Leave unsubscribes a client from a room
func (h *LiveHub) Leave(room string, client *LiveClient) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.leaveLocked(room, client)
}

// RemoveClient unsubscribes a client from every room and stops its writer
func (h *LiveHub) RemoveClient(client *LiveClient) {
	h.mu.Lock()
	for room := range h.rooms {
		h.leaveLocked(room, client)
	}
	h.mu.Unlock()

	client.close()
}

// Broadcast sends a message to every subscriber of a room except sender,
// which may be nil. It returns how many clients the message was queued for.
func (h *LiveHub) Broadcast(room string, sender *LiveClient, message WSMessage) int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	delivered := 0
	for client := range h.rooms[room] {
		if client == sender {
			continue
		}
		if client.Deliver(message) {
			delivered++
		}
	}
	return delivered
}

// Subscribers returns the number of clients in a room
func (h *LiveHub) Subscribers(room string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[room])
}

func (h *LiveHub) leaveLocked(room string, client *LiveClient) {
	clients, ok := h.rooms[room]
	if !ok {
		return
	}
	delete(clients, client)
	if len(clients) == 0 {
		delete(h.rooms, room)
	}
}
