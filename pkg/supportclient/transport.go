package supportclient

import (
	"context"
	"errors"

	"tokodesk/internal/domain/entity"
)

// ErrNotConnected is returned by live-channel operations while the
// connection is down; callers route through the REST fallback instead.
var ErrNotConnected = errors.New("supportclient: not connected")

// ConversationTransport is the capability the store uses to push actions at
// the server. The live implementation is fire-and-forget: it returns nil
// entities and the server echo applies the effect. The REST implementation
// is synchronous and returns the created/updated entity for direct
// application, since no echo will arrive.
type ConversationTransport interface {
	SendMessage(ctx context.Context, conversationID, body string) (*entity.Message, error)
	ChangeStatus(ctx context.Context, conversationID string, status entity.TicketStatus) (*entity.Conversation, error)
}

// LiveTransport emits events on the room-scoped live channel.
type LiveTransport struct {
	conn *ConnectionManager
}

func NewLiveTransport(conn *ConnectionManager) *LiveTransport {
	return &LiveTransport{conn: conn}
}

func (t *LiveTransport) SendMessage(ctx context.Context, conversationID, body string) (*entity.Message, error) {
	err := t.conn.send(eventSendMessage, sendMessageData{
		ConversationID: conversationID,
		Body:           body,
	})
	if err != nil {
		return nil, err
	}
	// No optimistic insert: the server assigns the ID and ordering, and the
	// room echo is the sole trigger for applying the message locally.
	return nil, nil
}

func (t *LiveTransport) ChangeStatus(ctx context.Context, conversationID string, status entity.TicketStatus) (*entity.Conversation, error) {
	err := t.conn.send(eventChangeStatus, changeStatusData{
		ConversationID: conversationID,
		Status:         string(status),
	})
	if err != nil {
		return nil, err
	}
	return nil, nil
}
