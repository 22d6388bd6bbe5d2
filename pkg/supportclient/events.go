package supportclient

import (
	"encoding/json"
	"fmt"
	"time"

	"tokodesk/internal/domain/entity"
)

// Wire event types shared with the server hub.
const (
	eventJoinRoom     = "join_room"
	eventLeaveRoom    = "leave_room"
	eventSendMessage  = "send_message"
	eventChangeStatus = "change_status"

	eventMessageReceived     = "message_received"
	eventStatusUpdated       = "status_updated"
	eventConversationUpdated = "conversation_updated"
	eventError               = "error"
)

type envelope struct {
	Type      string          `json:"type"`
	Data      json.RawMessage `json:"data"`
	Timestamp string          `json:"timestamp,omitempty"`
}

// Event is the discriminated union of everything the connection can place
// on the inbound queue: validated server events plus the two connection
// lifecycle markers.
type Event interface {
	isEvent()
}

// MessageReceived is the authoritative copy of a message, echoed to every
// room subscriber including its sender.
type MessageReceived struct {
	ConversationID string
	Message        *entity.Message
}

// StatusUpdated mirrors a ticket lifecycle transition accepted by the
// server.
type StatusUpdated struct {
	ConversationID string
	Status         entity.TicketStatus
	LastMessage    string
	LastMessageAt  time.Time
}

// ConversationUpdated carries a refreshed summary row for the list view.
type ConversationUpdated struct {
	Conversation *entity.Conversation
}

// ErrorEvent is a server-reported failure, surfaced to the user but never
// fatal to the conversation screen.
type ErrorEvent struct {
	Message string
}

// Connected is emitted by the connection manager after a successful
// handshake; the room registry re-joins on it.
type Connected struct{}

// Disconnected is emitted when the live connection drops; send operations
// route through the REST fallback until the next Connected.
type Disconnected struct {
	Err error
}

func (MessageReceived) isEvent()     {}
func (StatusUpdated) isEvent()       {}
func (ConversationUpdated) isEvent() {}
func (ErrorEvent) isEvent()          {}
func (Connected) isEvent()           {}
func (Disconnected) isEvent()        {}

type messageReceivedData struct {
	ConversationID string          `json:"conversation_id"`
	Message        *entity.Message `json:"message"`
}

type statusUpdatedData struct {
	ConversationID string              `json:"conversation_id"`
	Status         entity.TicketStatus `json:"status"`
	LastMessage    string              `json:"last_message,omitempty"`
	LastMessageAt  time.Time           `json:"last_message_at"`
}

type conversationUpdatedData struct {
	Conversation *entity.Conversation `json:"conversation"`
}

type errorData struct {
	Message string `json:"message"`
}

type roomData struct {
	ConversationID string `json:"conversation_id"`
}

type sendMessageData struct {
	ConversationID string `json:"conversation_id"`
	Body           string `json:"body"`
}

type changeStatusData struct {
	ConversationID string `json:"conversation_id"`
	Status         string `json:"status"`
}

// decodeEvent validates an inbound frame into its tagged variant. Frames
// that fail validation are protocol errors; callers drop them.
func decodeEvent(frame []byte) (Event, error) {
	var env envelope
	if err := json.Unmarshal(frame, &env); err != nil {
		return nil, fmt.Errorf("malformed frame: %w", err)
	}

	switch env.Type {
	case eventMessageReceived:
		var data messageReceivedData
		if err := json.Unmarshal(env.Data, &data); err != nil {
			return nil, fmt.Errorf("malformed %s payload: %w", env.Type, err)
		}
		if data.ConversationID == "" || data.Message == nil || data.Message.ID == "" {
			return nil, fmt.Errorf("incomplete %s payload", env.Type)
		}
		return MessageReceived{ConversationID: data.ConversationID, Message: data.Message}, nil

	case eventStatusUpdated:
		var data statusUpdatedData
		if err := json.Unmarshal(env.Data, &data); err != nil {
			return nil, fmt.Errorf("malformed %s payload: %w", env.Type, err)
		}
		if data.ConversationID == "" || !data.Status.Valid() {
			return nil, fmt.Errorf("incomplete %s payload", env.Type)
		}
		return StatusUpdated{
			ConversationID: data.ConversationID,
			Status:         data.Status,
			LastMessage:    data.LastMessage,
			LastMessageAt:  data.LastMessageAt,
		}, nil

	case eventConversationUpdated:
		var data conversationUpdatedData
		if err := json.Unmarshal(env.Data, &data); err != nil {
			return nil, fmt.Errorf("malformed %s payload: %w", env.Type, err)
		}
		if data.Conversation == nil || data.Conversation.ID == "" {
			return nil, fmt.Errorf("incomplete %s payload", env.Type)
		}
		return ConversationUpdated{Conversation: data.Conversation}, nil

	case eventError:
		var data errorData
		if err := json.Unmarshal(env.Data, &data); err != nil {
			return nil, fmt.Errorf("malformed %s payload: %w", env.Type, err)
		}
		return ErrorEvent{Message: data.Message}, nil
	}

	return nil, fmt.Errorf("unknown event type %q", env.Type)
}

func encodeFrame(eventType string, data interface{}) ([]byte, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	return json.Marshal(envelope{
		Type:      eventType,
		Data:      raw,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}
