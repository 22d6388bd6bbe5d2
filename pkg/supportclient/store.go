package supportclient

import (
	"context"
	"sync"

	"tokodesk/internal/domain/entity"
	"tokodesk/pkg/logger"
)

// ConversationStore is the local read-mostly cache behind the support
// screens: the summary list for one conversation kind, plus the full
// message history of at most one "open" conversation. The remote system
// stays the source of truth; every authoritative event replaces local
// state, and the only conflict-avoidance mechanism is the idempotent
// message append.
type ConversationStore struct {
	conn  *ConnectionManager
	rooms *RoomRegistry
	live  *LiveTransport
	rest  *RestTransport

	selfID  string
	viewKey string

	mu            sync.Mutex
	loadedKind    entity.ConversationKind
	conversations []*entity.Conversation
	index         map[string]*entity.Conversation
	openID        string
	openConv      *entity.Conversation
	messages      []*entity.Message
	seen          map[string]bool

	// OnError surfaces server error events and is wired to the host app's
	// toast utility. Optional.
	OnError func(message string)
}

// NewConversationStore builds a store bound to one actor's view. Agents
// share the queue-level unread perspective; customers see their own.
func NewConversationStore(conn *ConnectionManager, rooms *RoomRegistry, rest *RestTransport, actorID string, agent bool) *ConversationStore {
	viewKey := actorID
	if agent {
		viewKey = entity.AgentInboxKey
	}

	return &ConversationStore{
		conn:    conn,
		rooms:   rooms,
		live:    NewLiveTransport(conn),
		rest:    rest,
		selfID:  actorID,
		viewKey: viewKey,
		index:   make(map[string]*entity.Conversation),
		seen:    make(map[string]bool),
	}
}

// Run drains the connection's inbound queue until the context ends or the
// connection is closed. All event application happens on this single
// goroutine, mirroring the event-loop model of the UI host.
func (s *ConversationStore) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-s.conn.closed:
			return
		case event := <-s.conn.Events():
			s.Apply(event)
		}
	}
}

// Apply dispatches one inbound event to the matching reducer.
func (s *ConversationStore) Apply(event Event) {
	switch ev := event.(type) {
	case Connected:
		s.rooms.Rejoin()
	case Disconnected:
		// Send operations already check connection state; nothing to undo.
	case MessageReceived:
		s.applyIncomingMessage(ev)
	case StatusUpdated:
		s.applyStatusUpdated(ev)
	case ConversationUpdated:
		s.applyConversationUpdated(ev)
	case ErrorEvent:
		logger.Warn("supportclient: server error event: %s", ev.Message)
		if s.OnError != nil {
			s.OnError(ev.Message)
		}
	}
}

// LoadConversations fetches the list for one kind and replaces the local
// list wholesale. Support queues are bounded, so no incremental merge.
func (s *ConversationStore) LoadConversations(ctx context.Context, kind entity.ConversationKind, limit, offset int) error {
	conversations, _, err := s.rest.ListConversations(ctx, kind, limit, offset)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.loadedKind = kind
	s.conversations = conversations
	s.index = make(map[string]*entity.Conversation, len(conversations))
	for _, conversation := range conversations {
		s.index[conversation.ID] = conversation
	}

	return nil
}

// OpenConversation fetches the full history of one conversation, makes it
// the open conversation, joins its room and marks it read. A failed fetch
// leaves the store unchanged.
func (s *ConversationStore) OpenConversation(ctx context.Context, conversationID string) (*ConversationDetail, error) {
	s.mu.Lock()
	previous := s.openID
	s.mu.Unlock()

	if previous != "" && previous != conversationID {
		s.CloseConversation(previous)
	}

	detail, err := s.rest.GetConversation(ctx, conversationID)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.openID = conversationID
	conversation := detail.Conversation
	s.openConv = &conversation
	s.messages = append([]*entity.Message(nil), detail.Messages...)
	s.seen = make(map[string]bool, len(detail.Messages))
	for _, message := range detail.Messages {
		s.seen[message.ID] = true
	}
	if row, ok := s.index[conversationID]; ok {
		*row = conversation
	}
	s.mu.Unlock()

	s.rooms.Join(conversationID)

	if err := s.MarkRead(ctx, conversationID); err != nil {
		logger.Warn("supportclient: mark read failed for %s: %v", conversationID, err)
	}

	return detail, nil
}

// CloseConversation leaves the room and frees the held history so memory
// stays bounded. Closing a conversation that is not open is a no-op beyond
// the idempotent leave.
func (s *ConversationStore) CloseConversation(conversationID string) {
	s.rooms.Leave(conversationID)

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.openID == conversationID {
		s.openID = ""
		s.openConv = nil
		s.messages = nil
		s.seen = make(map[string]bool)
	}
}

// SendMessage routes through the live channel when connected, otherwise
// through the REST fallback. The live path applies nothing locally; the
// echo does. The REST path returns the created message, which is applied
// directly since no echo will arrive.
func (s *ConversationStore) SendMessage(ctx context.Context, conversationID, body string) error {
	message, err := s.transport().SendMessage(ctx, conversationID, body)
	if err == ErrNotConnected {
		// Connection dropped between the state check and the write.
		message, err = s.rest.SendMessage(ctx, conversationID, body)
	}
	if err != nil {
		return err
	}

	if message != nil {
		s.applyIncomingMessage(MessageReceived{
			ConversationID: conversationID,
			Message:        message,
		})
	}

	return nil
}

// MarkRead zeroes the unread count remotely and, on success, locally.
func (s *ConversationStore) MarkRead(ctx context.Context, conversationID string) error {
	if err := s.rest.MarkRead(ctx, conversationID); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if row, ok := s.index[conversationID]; ok {
		s.zeroUnread(row)
	}
	if s.openID == conversationID && s.openConv != nil {
		s.zeroUnread(s.openConv)
	}

	return nil
}

// applyIncomingMessage appends a message to the open conversation's list if
// its ID has not been seen, keeping the list in non-decreasing timestamp
// order, and updates the summary row. Duplicate delivery across reconnects
// and the REST/live seam is a no-op.
func (s *ConversationStore) applyIncomingMessage(ev MessageReceived) {
	s.mu.Lock()
	defer s.mu.Unlock()

	open := ev.ConversationID == s.openID

	if open {
		if s.seen[ev.Message.ID] {
			return
		}
		s.seen[ev.Message.ID] = true
		s.insertOrdered(ev.Message)
	}

	if row, ok := s.index[ev.ConversationID]; ok {
		row.LastMessage = ev.Message.Body
		row.LastMessageAt = ev.Message.CreatedAt
		if !open && ev.Message.SenderID != s.selfID {
			if row.UnreadCount == nil {
				row.UnreadCount = make(map[string]int)
			}
			row.UnreadCount[s.viewKey]++
		}
	}

	if open && s.openConv != nil {
		s.openConv.LastMessage = ev.Message.Body
		s.openConv.LastMessageAt = ev.Message.CreatedAt
	}
}

// applyConversationUpdated merges a list-level summary row. Rows of another
// kind than the loaded list are ignored; events for conversations closed
// mid-flight only touch the list, never the open view.
func (s *ConversationStore) applyConversationUpdated(ev ConversationUpdated) {
	s.mu.Lock()
	defer s.mu.Unlock()

	incoming := *ev.Conversation

	if s.openID == incoming.ID && s.openConv != nil {
		// Keep the viewer's zeroed unread for the conversation being read.
		unread := s.openConv.UnreadFor(s.viewKey)
		s.openConv = &incoming
		s.setUnread(s.openConv, unread)
	}

	if incoming.Kind != s.loadedKind {
		return
	}

	if row, ok := s.index[incoming.ID]; ok {
		if s.openID == incoming.ID {
			unread := row.UnreadFor(s.viewKey)
			*row = incoming
			s.setUnread(row, unread)
		} else {
			*row = incoming
		}
		return
	}

	row := &incoming
	s.conversations = append([]*entity.Conversation{row}, s.conversations...)
	s.index[incoming.ID] = row
}

func (s *ConversationStore) transport() ConversationTransport {
	if s.conn != nil && s.conn.IsConnected() {
		return s.live
	}
	return s.rest
}

func (s *ConversationStore) insertOrdered(message *entity.Message) {
	s.messages = append(s.messages, message)
	for i := len(s.messages) - 1; i > 0; i-- {
		if !s.messages[i-1].CreatedAt.After(s.messages[i].CreatedAt) {
			break
		}
		s.messages[i-1], s.messages[i] = s.messages[i], s.messages[i-1]
	}
}

func (s *ConversationStore) zeroUnread(conversation *entity.Conversation) {
	if conversation.UnreadCount == nil {
		conversation.UnreadCount = make(map[string]int)
	}
	conversation.UnreadCount[s.viewKey] = 0
}

func (s *ConversationStore) setUnread(conversation *entity.Conversation, count int) {
	if conversation.UnreadCount == nil {
		conversation.UnreadCount = make(map[string]int)
	}
	conversation.UnreadCount[s.viewKey] = count
}

// Conversations returns a snapshot of the summary list.
func (s *ConversationStore) Conversations() []*entity.Conversation {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]*entity.Conversation, len(s.conversations))
	for i, conversation := range s.conversations {
		copied := *conversation
		out[i] = &copied
	}
	return out
}

// Conversation returns a snapshot of one summary row, if present.
func (s *ConversationStore) Conversation(conversationID string) (*entity.Conversation, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	row, ok := s.index[conversationID]
	if !ok {
		return nil, false
	}
	copied := *row
	return &copied, true
}

// OpenID returns the currently open conversation's ID, or "".
func (s *ConversationStore) OpenID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.openID
}

// Open returns a snapshot of the open conversation and its message list.
func (s *ConversationStore) Open() (*entity.Conversation, []*entity.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.openConv == nil {
		return nil, nil
	}
	copied := *s.openConv
	return &copied, append([]*entity.Message(nil), s.messages...)
}

// Unread returns the unread count of one conversation from this actor's
// perspective.
func (s *ConversationStore) Unread(conversationID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	if row, ok := s.index[conversationID]; ok {
		return row.UnreadFor(s.viewKey)
	}
	return 0
}

// Live reports whether the live channel is currently up, for the screen's
// connection indicator.
func (s *ConversationStore) Live() bool {
	return s.conn != nil && s.conn.IsConnected()
}
