package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tokodesk/internal/domain/entity"
	ws "tokodesk/internal/infrastructure/websocket"
	"tokodesk/pkg/errors"
)

type fakeConversationRepo struct {
	mu            sync.Mutex
	conversations map[string]*entity.Conversation
	messages      map[string][]*entity.Message
	nextID        int
}

func newFakeConversationRepo() *fakeConversationRepo {
	return &fakeConversationRepo{
		conversations: make(map[string]*entity.Conversation),
		messages:      make(map[string][]*entity.Message),
	}
}

func (r *fakeConversationRepo) Create(ctx context.Context, c *entity.Conversation) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	if c.ID == "" {
		c.ID = fmt.Sprintf("conv-%d", r.nextID)
	}
	now := time.Now()
	c.CreatedAt = now
	c.UpdatedAt = now
	copied := *c
	r.conversations[c.ID] = &copied
	return nil
}

func (r *fakeConversationRepo) GetByID(ctx context.Context, id string) (*entity.Conversation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.conversations[id]
	if !ok {
		return nil, errors.NotFound("Conversation", nil)
	}
	copied := *c
	if c.UnreadCount != nil {
		copied.UnreadCount = make(map[string]int, len(c.UnreadCount))
		for k, v := range c.UnreadCount {
			copied.UnreadCount[k] = v
		}
	}
	return &copied, nil
}

func (r *fakeConversationRepo) ListByKind(ctx context.Context, kind entity.ConversationKind, limit, offset int) ([]*entity.Conversation, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*entity.Conversation
	for _, c := range r.conversations {
		if c.Kind == kind {
			out = append(out, c)
		}
	}
	return out, int64(len(out)), nil
}

func (r *fakeConversationRepo) ListByCustomer(ctx context.Context, customerID string, kind entity.ConversationKind, limit, offset int) ([]*entity.Conversation, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*entity.Conversation
	for _, c := range r.conversations {
		if c.Kind == kind && c.CustomerID == customerID {
			out = append(out, c)
		}
	}
	return out, int64(len(out)), nil
}

func (r *fakeConversationRepo) Update(ctx context.Context, c *entity.Conversation) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c.UpdatedAt = time.Now()
	copied := *c
	r.conversations[c.ID] = &copied
	return nil
}

func (r *fakeConversationRepo) CreateMessage(ctx context.Context, m *entity.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	if m.ID == "" {
		m.ID = fmt.Sprintf("msg-%d", r.nextID)
	}
	m.CreatedAt = time.Now()
	copied := *m
	r.messages[m.ConversationID] = append(r.messages[m.ConversationID], &copied)
	return nil
}

func (r *fakeConversationRepo) ListMessages(ctx context.Context, conversationID string) ([]*entity.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*entity.Message(nil), r.messages[conversationID]...), nil
}

type fakeUserRepo struct {
	users map[string]*entity.User
}

func (r *fakeUserRepo) GetByID(ctx context.Context, id string) (*entity.User, error) {
	u, ok := r.users[id]
	if !ok {
		return nil, errors.NotFound("User", nil)
	}
	return u, nil
}

type fakeNotifier struct {
	mu         sync.Mutex
	roomFrames map[string][][]byte
	actorSends map[string][][]byte
	agentSends [][]byte
}

func newFakeNotifier() *fakeNotifier {
	return &fakeNotifier{
		roomFrames: make(map[string][][]byte),
		actorSends: make(map[string][][]byte),
	}
}

func (n *fakeNotifier) BroadcastToRoom(conversationID string, frame []byte) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.roomFrames[conversationID] = append(n.roomFrames[conversationID], frame)
}

func (n *fakeNotifier) SendToActor(actorID string, frame []byte) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.actorSends[actorID] = append(n.actorSends[actorID], frame)
}

func (n *fakeNotifier) BroadcastToAgents(frame []byte) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.agentSends = append(n.agentSends, frame)
}

func (n *fakeNotifier) roomEventTypes(conversationID string) []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	var types []string
	for _, frame := range n.roomFrames[conversationID] {
		var env ws.Envelope
		if err := json.Unmarshal(frame, &env); err == nil {
			types = append(types, env.Type)
		}
	}
	return types
}

type fakeSequencer struct {
	n int64
}

func (s *fakeSequencer) Next(ctx context.Context, key string) (int64, error) {
	s.n++
	return s.n, nil
}

func newTestUseCase() (*SupportUseCase, *fakeConversationRepo, *fakeNotifier) {
	repo := newFakeConversationRepo()
	users := &fakeUserRepo{users: map[string]*entity.User{
		"cust-1":  {ID: "cust-1", Username: "budi", Role: "customer"},
		"cust-2":  {ID: "cust-2", Username: "sari", Role: "customer"},
		"agent-1": {ID: "agent-1", Username: "desk", Role: "agent"},
	}}
	notifier := newFakeNotifier()
	uc := NewSupportUseCase(repo, users, notifier, &fakeSequencer{})
	return uc, repo, notifier
}

func TestCreateTicketAssignsSequentialNumber(t *testing.T) {
	uc, _, _ := newTestUseCase()
	ctx := context.Background()

	first, err := uc.CreateTicket(ctx, "cust-1", CreateTicketInput{Subject: "Broken order"})
	require.NoError(t, err)
	second, err := uc.CreateTicket(ctx, "cust-1", CreateTicketInput{Subject: "Refund"})
	require.NoError(t, err)

	assert.Equal(t, "TKT-000001", first.Number)
	assert.Equal(t, "TKT-000002", second.Number)
	assert.Equal(t, entity.StatusOpen, first.Status)
	assert.Equal(t, entity.PriorityMedium, first.Priority)
}

func TestSendMessageUpdatesSummaryAndUnread(t *testing.T) {
	uc, repo, notifier := newTestUseCase()
	ctx := context.Background()

	session, err := uc.StartSession(ctx, "cust-1")
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		_, err := uc.SendMessage(ctx, "cust-1", session.ID, fmt.Sprintf("help %d", i))
		require.NoError(t, err)
	}

	stored, err := repo.GetByID(ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, stored.UnreadFor(entity.AgentInboxKey))
	assert.Equal(t, 0, stored.UnreadFor("cust-1"))
	assert.Equal(t, "help 2", stored.LastMessage)
	assert.False(t, stored.LastMessageAt.IsZero())

	// Each send echoes exactly one message_received into the room.
	assert.Equal(t, []string{
		ws.EventMessageReceived, ws.EventMessageReceived, ws.EventMessageReceived,
	}, notifier.roomEventTypes(session.ID))
}

func TestAgentReplyIncrementsCustomerUnread(t *testing.T) {
	uc, repo, _ := newTestUseCase()
	ctx := context.Background()

	session, err := uc.StartSession(ctx, "cust-1")
	require.NoError(t, err)

	msg, err := uc.SendMessage(ctx, "agent-1", session.ID, "how can I help?")
	require.NoError(t, err)
	assert.Equal(t, entity.RoleAgent, msg.Sender)

	stored, err := repo.GetByID(ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, stored.UnreadFor("cust-1"))
	assert.Equal(t, 0, stored.UnreadFor(entity.AgentInboxKey))
}

func TestMarkReadZeroesUnread(t *testing.T) {
	uc, repo, _ := newTestUseCase()
	ctx := context.Background()

	session, err := uc.StartSession(ctx, "cust-1")
	require.NoError(t, err)

	_, err = uc.SendMessage(ctx, "cust-1", session.ID, "hello")
	require.NoError(t, err)

	require.NoError(t, uc.MarkRead(ctx, "agent-1", session.ID))

	stored, err := repo.GetByID(ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, stored.UnreadFor(entity.AgentInboxKey))
}

func TestSendMessageForbiddenForOtherCustomer(t *testing.T) {
	uc, _, _ := newTestUseCase()
	ctx := context.Background()

	session, err := uc.StartSession(ctx, "cust-1")
	require.NoError(t, err)

	_, err = uc.SendMessage(ctx, "cust-2", session.ID, "intruding")
	assert.True(t, errors.Is(err, "FORBIDDEN"))
}

func TestJoinRoomRequiresParticipation(t *testing.T) {
	uc, _, _ := newTestUseCase()
	ctx := context.Background()

	session, err := uc.StartSession(ctx, "cust-1")
	require.NoError(t, err)

	// Another customer must not be able to listen in on the room.
	err = uc.HandleJoinRoom(ctx, "cust-2", session.ID)
	assert.True(t, errors.Is(err, "FORBIDDEN"))

	assert.NoError(t, uc.HandleJoinRoom(ctx, "cust-1", session.ID))
	assert.NoError(t, uc.HandleJoinRoom(ctx, "agent-1", session.ID))

	err = uc.HandleJoinRoom(ctx, "cust-1", "no-such-conversation")
	assert.True(t, errors.Is(err, "NOT_FOUND"))
}

func TestChangeStatusValidatesTransition(t *testing.T) {
	uc, _, notifier := newTestUseCase()
	ctx := context.Background()

	ticket, err := uc.CreateTicket(ctx, "cust-1", CreateTicketInput{Subject: "Broken order"})
	require.NoError(t, err)

	// Closing an open ticket skips resolved and must be rejected.
	_, err = uc.ChangeStatus(ctx, "agent-1", ticket.ID, entity.StatusClosed)
	assert.True(t, errors.Is(err, "CONFLICT"))

	updated, err := uc.ChangeStatus(ctx, "agent-1", ticket.ID, entity.StatusResolved)
	require.NoError(t, err)
	assert.Equal(t, entity.StatusResolved, updated.Status)

	assert.Contains(t, notifier.roomEventTypes(ticket.ID), ws.EventStatusUpdated)
}

func TestChangeStatusForbiddenForCustomer(t *testing.T) {
	uc, _, _ := newTestUseCase()
	ctx := context.Background()

	ticket, err := uc.CreateTicket(ctx, "cust-1", CreateTicketInput{Subject: "Broken order"})
	require.NoError(t, err)

	_, err = uc.ChangeStatus(ctx, "cust-1", ticket.ID, entity.StatusInProgress)
	assert.True(t, errors.Is(err, "FORBIDDEN"))
}

func TestChangeStatusRejectedForSession(t *testing.T) {
	uc, _, _ := newTestUseCase()
	ctx := context.Background()

	session, err := uc.StartSession(ctx, "cust-1")
	require.NoError(t, err)

	_, err = uc.ChangeStatus(ctx, "agent-1", session.ID, entity.StatusResolved)
	assert.True(t, errors.Is(err, "BAD_REQUEST"))
}

func TestGetConversationReturnsHistoryInOrder(t *testing.T) {
	uc, _, _ := newTestUseCase()
	ctx := context.Background()

	session, err := uc.StartSession(ctx, "cust-1")
	require.NoError(t, err)

	_, err = uc.SendMessage(ctx, "cust-1", session.ID, "first")
	require.NoError(t, err)
	_, err = uc.SendMessage(ctx, "agent-1", session.ID, "second")
	require.NoError(t, err)

	detail, err := uc.GetConversation(ctx, "agent-1", session.ID)
	require.NoError(t, err)
	require.Len(t, detail.Messages, 2)
	assert.Equal(t, "first", detail.Messages[0].Body)
	assert.Equal(t, "second", detail.Messages[1].Body)
	require.NotNil(t, detail.Customer)
	assert.Equal(t, "budi", detail.Customer.Username)
}

func TestListConversationsScopedByRole(t *testing.T) {
	uc, _, _ := newTestUseCase()
	ctx := context.Background()

	_, err := uc.StartSession(ctx, "cust-1")
	require.NoError(t, err)
	_, err = uc.StartSession(ctx, "cust-2")
	require.NoError(t, err)

	all, total, err := uc.ListConversations(ctx, "agent-1", entity.KindSession, 20, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	assert.Len(t, all, 2)

	own, total, err := uc.ListConversations(ctx, "cust-1", entity.KindSession, 20, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, own, 1)
	assert.Equal(t, "cust-1", own[0].CustomerID)
}
