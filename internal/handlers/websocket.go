package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"social-fitness-backend/internal/middleware"
	"social-fitness-backend/internal/models"
	"social-fitness-backend/internal/services"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

const (
	maxMessageSize = 4096
	pongWait       = 60 * time.Second
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Live message types
const (
	MsgJoinEventLive       = "join_event_live"
	MsgLeaveEventLive      = "leave_event_live"
	MsgUpdateLocation      = "update_location"
	MsgStopLocation        = "stop_location"
	MsgJoinChat            = "join_chat"
	MsgLeaveChat           = "leave_chat"
	MsgJoinChatResult      = "join_chat_result"
	MsgJoinEventLiveResult = "join_event_live_result"
	MsgLocationUpdate      = "location_update"
	MsgError               = "error"
)

// WebSocketHandler handles live location and chat WebSocket connections
type WebSocketHandler struct {
	hub            *services.LiveHub
	tracker        *services.LiveSessionTracker
	chat           *services.ChatService
	identity       middleware.IdentityResolver
	messageTimeout time.Duration
}

// NewWebSocketHandler creates a new WebSocket handler
func NewWebSocketHandler(
	hub *services.LiveHub,
	tracker *services.LiveSessionTracker,
	chat *services.ChatService,
	identity middleware.IdentityResolver,
	messageTimeout time.Duration,
) *WebSocketHandler {
	return &WebSocketHandler{
		hub:            hub,
		tracker:        tracker,
		chat:           chat,
		identity:       identity,
		messageTimeout: messageTimeout,
	}
}

// HandleWebSocket handles GET /ws
func (h *WebSocketHandler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		respondError(w, "token required", http.StatusUnauthorized)
		return
	}

	resolveCtx, cancel := context.WithTimeout(r.Context(), h.messageTimeout)
	user, err := h.identity.Resolve(resolveCtx, token)
	cancel()
	if err != nil {
		respondError(w, "invalid token", http.StatusUnauthorized)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error().Err(err).Msg("Failed to upgrade WebSocket connection")
		return
	}
	defer conn.Close()

	client := services.NewLiveClient(user.ID, user.Name, conn)
	go client.WritePump()
	defer h.hub.RemoveClient(client)

	conn.SetReadLimit(maxMessageSize)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	log.Info().Str("user_id", user.ID).Msg("WebSocket connection established")

	for {
		_, messageBytes, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Error().Err(err).Str("user_id", user.ID).Msg("WebSocket error")
			}
			break
		}

		var msg services.WSMessage
		if err := json.Unmarshal(messageBytes, &msg); err != nil {
			client.Deliver(services.WSMessage{Type: MsgError, Message: "Invalid message format"})
			continue
		}

		ctx, cancel := context.WithTimeout(context.Background(), h.messageTimeout)
		err = h.handleMessage(ctx, client, user, msg)
		cancel()
		if err != nil {
			log.Error().Err(err).Str("user_id", user.ID).Str("type", msg.Type).Msg("Failed to handle message")
			client.Deliver(services.WSMessage{Type: MsgError, Message: "Failed to handle message"})
		}
	}

	log.Info().Str("user_id", user.ID).Msg("WebSocket connection closed")
}

// handleMessage processes incoming WebSocket messages
func (h *WebSocketHandler) handleMessage(ctx context.Context, client *services.LiveClient, user *models.User, msg services.WSMessage) error {
	if msg.EventID == "" {
		client.Deliver(services.WSMessage{Type: MsgError, Message: "event_id is required"})
		return nil
	}

	switch msg.Type {
	case MsgJoinEventLive:
		return h.handleJoin(ctx, client, msg.EventID)
	case MsgLeaveEventLive:
		h.hub.Leave(services.LiveRoom(msg.EventID), client)
		return nil
	case MsgUpdateLocation:
		return h.handleUpdateLocation(ctx, client, user, msg)
	case MsgStopLocation:
		return h.tracker.EndSession(ctx, user.ID, msg.EventID)
	case MsgJoinChat:
		return h.handleJoinChat(ctx, client, msg)
	case MsgLeaveChat:
		h.hub.Leave(services.ChatRoom(msg.ThreadID), client)
		return nil
	default:
		client.Deliver(services.WSMessage{Type: MsgError, Message: "Unknown message type"})
		return nil
	}
}

// handleJoin subscribes the client to the event's live room when allowed
func (h *WebSocketHandler) handleJoin(ctx context.Context, client *services.LiveClient, eventID string) error {
	allowed, err := h.tracker.CanStream(ctx, client.UserID, eventID)
	if err != nil {
		return err
	}

	if !allowed {
		client.Deliver(services.WSMessage{
			Type:    MsgJoinEventLiveResult,
			EventID: eventID,
			Status:  "denied",
			Message: "Not allowed or event not started",
		})
		return nil
	}

	room := services.LiveRoom(eventID)
	h.hub.Join(room, client)
	client.Deliver(services.WSMessage{
		Type:    MsgJoinEventLiveResult,
		EventID: eventID,
		Status:  "success",
		Room:    room,
	})
	return nil
}

// handleJoinChat subscribes the client to a thread it can read
func (h *WebSocketHandler) handleJoinChat(ctx context.Context, client *services.LiveClient, msg services.WSMessage) error {
	if msg.ThreadID == "" {
		client.Deliver(services.WSMessage{Type: MsgError, Message: "thread_id is required"})
		return nil
	}

	if _, err := h.chat.OpenThread(ctx, msg.EventID, msg.ThreadID, client.UserID); err != nil {
		var serviceErr *services.Error
		if !errors.As(err, &serviceErr) {
			return err
		}
		client.Deliver(services.WSMessage{
			Type:     MsgJoinChatResult,
			EventID:  msg.EventID,
			ThreadID: msg.ThreadID,
			Status:   "denied",
			Message:  serviceErr.Message,
		})
		return nil
	}

	room := services.ChatRoom(msg.ThreadID)
	h.hub.Join(room, client)
	client.Deliver(services.WSMessage{
		Type:     MsgJoinChatResult,
		EventID:  msg.EventID,
		ThreadID: msg.ThreadID,
		Status:   "success",
		Room:     room,
	})
	return nil
}

// handleUpdateLocation records a point and fans it out; denied and
// throttled updates are dropped without a reply
func (h *WebSocketHandler) handleUpdateLocation(ctx context.Context, client *services.LiveClient, user *models.User, msg services.WSMessage) error {
	if msg.Lat == nil || msg.Lng == nil {
		client.Deliver(services.WSMessage{Type: MsgError, Message: "lat and lng are required"})
		return nil
	}

	point, outcome, err := h.tracker.RecordPoint(ctx, user.ID, msg.EventID, *msg.Lat, *msg.Lng)
	if err != nil {
		return err
	}
	if outcome != services.PointRecorded {
		return nil
	}

	h.hub.Broadcast(services.LiveRoom(msg.EventID), client, services.WSMessage{
		Type:      MsgLocationUpdate,
		EventID:   msg.EventID,
		UserID:    user.ID,
		UserName:  user.Name,
		Lat:       &point.Latitude,
		Lng:       &point.Longitude,
		Timestamp: point.Timestamp.UnixMilli(),
	})
	return nil
}
