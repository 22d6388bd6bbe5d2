package websocket

import (
	"context"
	"encoding/json"
	"sync"

	"tokodesk/pkg/logger"
)

// FrameHandler processes the domain-level intents arriving on the live
// channel. The support usecase implements it; the hub stays a pure
// transport.
type FrameHandler interface {
	HandleJoinRoom(ctx context.Context, actorID, conversationID string) error
	HandleSendMessage(ctx context.Context, actorID, conversationID, body string) error
	HandleChangeStatus(ctx context.Context, actorID, conversationID, status string) error
}

// Hub manages all active connections and room membership. Rooms map 1:1 to
// conversation IDs; membership is idempotent on both join and leave.
type Hub struct {
	clients    map[string]*Client
	rooms      map[string]map[string]bool
	Register   chan *Client
	Unregister chan *Client
	handler    FrameHandler
	mutex      sync.RWMutex
}

func NewHub() *Hub {
	return &Hub{
		clients:    make(map[string]*Client),
		rooms:      make(map[string]map[string]bool),
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
	}
}

// SetHandler wires the domain handler in after construction; the usecase
// needs the hub for broadcasting, so the dependency runs both ways.
func (h *Hub) SetHandler(handler FrameHandler) {
	h.handler = handler
}

// Start runs the hub's registration loop in a goroutine.
func (h *Hub) Start(ctx context.Context) {
	go func() {
		for {
			select {
			case client := <-h.Register:
				h.mutex.Lock()
				if existing, ok := h.clients[client.ActorID]; ok && existing != client {
					close(existing.Send)
				}
				h.clients[client.ActorID] = client
				h.mutex.Unlock()
				logger.Info("WebSocket: actor %s connected", client.ActorID)

			case client := <-h.Unregister:
				h.mutex.Lock()
				if current, ok := h.clients[client.ActorID]; ok && current == client {
					delete(h.clients, client.ActorID)
					close(client.Send)
					for _, members := range h.rooms {
						delete(members, client.ActorID)
					}
				}
				h.mutex.Unlock()
				logger.Info("WebSocket: actor %s disconnected", client.ActorID)

			case <-ctx.Done():
				return
			}
		}
	}()
}

// JoinRoom adds an actor to a room. Joining an already-joined room is a
// no-op.
func (h *Hub) JoinRoom(conversationID, actorID string) {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	members, ok := h.rooms[conversationID]
	if !ok {
		members = make(map[string]bool)
		h.rooms[conversationID] = members
	}
	members[actorID] = true
}

// LeaveRoom removes an actor from a room. Leaving a room never joined is a
// no-op.
func (h *Hub) LeaveRoom(conversationID, actorID string) {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	if members, ok := h.rooms[conversationID]; ok {
		delete(members, actorID)
		if len(members) == 0 {
			delete(h.rooms, conversationID)
		}
	}
}

// RoomMembers returns the actor IDs currently joined to a room.
func (h *Hub) RoomMembers(conversationID string) []string {
	h.mutex.RLock()
	defer h.mutex.RUnlock()

	var members []string
	for actorID := range h.rooms[conversationID] {
		members = append(members, actorID)
	}
	return members
}

// BroadcastToRoom delivers a frame to every member of a room, including the
// actor whose action produced it; the echo is what confirms the action on
// the sender's side.
func (h *Hub) BroadcastToRoom(conversationID string, frame []byte) {
	h.mutex.RLock()
	var targets []*Client
	for actorID := range h.rooms[conversationID] {
		if client, ok := h.clients[actorID]; ok {
			targets = append(targets, client)
		}
	}
	h.mutex.RUnlock()

	for _, client := range targets {
		h.sendToClient(client, frame)
	}
}

// SendToActor delivers a frame to one actor's connection, if any.
func (h *Hub) SendToActor(actorID string, frame []byte) {
	h.mutex.RLock()
	client, ok := h.clients[actorID]
	h.mutex.RUnlock()

	if ok {
		h.sendToClient(client, frame)
	}
}

// BroadcastToAgents delivers a frame to every connected agent. Used for
// list-level updates on conversations no agent has open.
func (h *Hub) BroadcastToAgents(frame []byte) {
	h.mutex.RLock()
	var targets []*Client
	for _, client := range h.clients {
		if client.Agent {
			targets = append(targets, client)
		}
	}
	h.mutex.RUnlock()

	for _, client := range targets {
		h.sendToClient(client, frame)
	}
}

// HandleFrame decodes an inbound frame and dispatches it. Room membership is
// transport-level and handled here; message and status intents go to the
// domain handler.
func (h *Hub) HandleFrame(client *Client, frame []byte) {
	var envelope Envelope
	if err := json.Unmarshal(frame, &envelope); err != nil {
		logger.Warn("WebSocket: malformed frame from actor %s: %v", client.ActorID, err)
		h.sendError(client, "Invalid message format")
		return
	}

	switch envelope.Type {
	case EventJoinRoom:
		var data JoinRoomData
		if err := json.Unmarshal(envelope.Data, &data); err != nil || data.ConversationID == "" {
			h.sendError(client, "Invalid join_room payload")
			return
		}
		// Membership is granted only to conversation participants; the domain
		// handler is the authority.
		if err := h.handler.HandleJoinRoom(context.Background(), client.ActorID, data.ConversationID); err != nil {
			logger.Warn("WebSocket: join refused for actor %s on %s: %v", client.ActorID, data.ConversationID, err)
			h.sendError(client, err.Error())
			return
		}
		h.JoinRoom(data.ConversationID, client.ActorID)

	case EventLeaveRoom:
		var data LeaveRoomData
		if err := json.Unmarshal(envelope.Data, &data); err != nil || data.ConversationID == "" {
			h.sendError(client, "Invalid leave_room payload")
			return
		}
		h.LeaveRoom(data.ConversationID, client.ActorID)

	case EventSendMessage:
		var data SendMessageData
		if err := json.Unmarshal(envelope.Data, &data); err != nil || data.ConversationID == "" || data.Body == "" {
			h.sendError(client, "Invalid send_message payload")
			return
		}
		if err := h.handler.HandleSendMessage(context.Background(), client.ActorID, data.ConversationID, data.Body); err != nil {
			h.sendError(client, err.Error())
		}

	case EventChangeStatus:
		var data ChangeStatusData
		if err := json.Unmarshal(envelope.Data, &data); err != nil || data.ConversationID == "" || data.Status == "" {
			h.sendError(client, "Invalid change_status payload")
			return
		}
		if err := h.handler.HandleChangeStatus(context.Background(), client.ActorID, data.ConversationID, data.Status); err != nil {
			h.sendError(client, err.Error())
		}

	default:
		logger.Warn("WebSocket: unknown event type %q from actor %s", envelope.Type, client.ActorID)
		h.sendError(client, "Unknown event type")
	}
}

// sendToClient queues a frame for one client. The membership check and the
// channel send happen under the read lock; Send channels are closed only by
// the registration loop while it holds the write lock, so the send can never
// race a close. A client whose buffer is full is torn down through the
// Unregister channel like any other disconnect.
func (h *Hub) sendToClient(client *Client, frame []byte) {
	h.mutex.RLock()
	if current, ok := h.clients[client.ActorID]; !ok || current != client {
		h.mutex.RUnlock()
		return
	}
	select {
	case client.Send <- frame:
		h.mutex.RUnlock()
		return
	default:
	}
	h.mutex.RUnlock()

	logger.Warn("WebSocket: send buffer full for actor %s, dropping connection", client.ActorID)
	h.Unregister <- client
}

func (h *Hub) sendError(client *Client, message string) {
	frame, err := NewFrame(EventError, ErrorData{Message: message})
	if err != nil {
		return
	}
	h.sendToClient(client, frame)
}
