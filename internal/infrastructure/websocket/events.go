package websocket

import (
	"encoding/json"
	"time"

	"tokodesk/internal/domain/entity"
)

// Wire event types. Client-to-server frames carry intents, server-to-client
// frames carry authoritative state.
const (
	EventJoinRoom     = "join_room"
	EventLeaveRoom    = "leave_room"
	EventSendMessage  = "send_message"
	EventChangeStatus = "change_status"

	EventMessageReceived     = "message_received"
	EventStatusUpdated       = "status_updated"
	EventConversationUpdated = "conversation_updated"
	EventError               = "error"
)

// Envelope is the frame shape on the wire. Data is decoded per event type
// at the boundary; unknown or malformed payloads never reach the usecase.
type Envelope struct {
	Type      string          `json:"type"`
	Data      json.RawMessage `json:"data"`
	Timestamp string          `json:"timestamp,omitempty"`
}

type JoinRoomData struct {
	ConversationID string `json:"conversation_id"`
}

type LeaveRoomData struct {
	ConversationID string `json:"conversation_id"`
}

type SendMessageData struct {
	ConversationID string `json:"conversation_id"`
	Body           string `json:"body"`
}

type ChangeStatusData struct {
	ConversationID string `json:"conversation_id"`
	Status         string `json:"status"`
}

type MessageReceivedData struct {
	ConversationID string          `json:"conversation_id"`
	Message        *entity.Message `json:"message"`
}

type StatusUpdatedData struct {
	ConversationID string              `json:"conversation_id"`
	Status         entity.TicketStatus `json:"status"`
	LastMessage    string              `json:"last_message,omitempty"`
	LastMessageAt  time.Time           `json:"last_message_at"`
}

type ConversationUpdatedData struct {
	Conversation *entity.Conversation `json:"conversation"`
}

type ErrorData struct {
	Message string `json:"message"`
}

// NewFrame marshals an outbound event frame.
func NewFrame(eventType string, data interface{}) ([]byte, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Envelope{
		Type:      eventType,
		Data:      raw,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}
