package supportclient

import (
	"context"

	"tokodesk/internal/domain/entity"
)

// ChangeStatus requests a ticket lifecycle transition. The server validates
// the transition; the local mirror only ever reflects accepted transitions,
// delivered by the status_updated echo on the live path or by the response
// body on the REST path.
func (s *ConversationStore) ChangeStatus(ctx context.Context, conversationID string, status entity.TicketStatus) error {
	conversation, err := s.transport().ChangeStatus(ctx, conversationID, status)
	if err == ErrNotConnected {
		conversation, err = s.rest.ChangeStatus(ctx, conversationID, status)
	}
	if err != nil {
		return err
	}

	if conversation != nil {
		s.applyConversationUpdated(ConversationUpdated{Conversation: conversation})
	}

	return nil
}

// applyStatusUpdated mirrors a server-accepted transition onto the summary
// row and, when the ticket is open, the detail view. Events for unknown
// conversations are dropped; the next list load catches the row up.
func (s *ConversationStore) applyStatusUpdated(ev StatusUpdated) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if row, ok := s.index[ev.ConversationID]; ok {
		row.Status = ev.Status
		if ev.LastMessage != "" {
			row.LastMessage = ev.LastMessage
		}
		if !ev.LastMessageAt.IsZero() {
			row.LastMessageAt = ev.LastMessageAt
		}
	}

	if s.openID == ev.ConversationID && s.openConv != nil {
		s.openConv.Status = ev.Status
	}
}
