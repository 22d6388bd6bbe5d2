package usecase

import (
	"context"
	"fmt"

	"tokodesk/internal/domain/entity"
	"tokodesk/internal/domain/repository"
	"tokodesk/internal/infrastructure/ratelimit"
	ws "tokodesk/internal/infrastructure/websocket"
	"tokodesk/pkg/errors"
	"tokodesk/pkg/logger"
)

// RoomNotifier is the slice of the hub the usecase needs: room-scoped echo
// delivery plus per-actor and agent-wide list updates.
type RoomNotifier interface {
	BroadcastToRoom(conversationID string, frame []byte)
	SendToActor(actorID string, frame []byte)
	BroadcastToAgents(frame []byte)
}

// TicketSequencer allocates the human-readable ticket sequence numbers.
type TicketSequencer interface {
	Next(ctx context.Context, key string) (int64, error)
}

const ticketSequenceKey = "tokodesk:ticket_seq"

type SupportUseCase struct {
	conversationRepo repository.ConversationRepository
	userRepo         repository.UserRepository
	notifier         RoomNotifier
	sequencer        TicketSequencer
	rateLimiter      *ratelimit.RateLimiter
}

func NewSupportUseCase(
	conversationRepo repository.ConversationRepository,
	userRepo repository.UserRepository,
	notifier RoomNotifier,
	sequencer TicketSequencer,
) *SupportUseCase {
	rateLimiter := ratelimit.NewRateLimiter()
	rateLimiter.StartCleanupRoutine()

	return &SupportUseCase{
		conversationRepo: conversationRepo,
		userRepo:         userRepo,
		notifier:         notifier,
		sequencer:        sequencer,
		rateLimiter:      rateLimiter,
	}
}

type CreateTicketInput struct {
	Subject  string
	Category string
	Priority entity.TicketPriority
	Body     string
}

type ConversationDetail struct {
	*entity.Conversation
	Messages []*entity.Message `json:"messages"`
	Customer *entity.User      `json:"customer,omitempty"`
}

// StartSession opens a new ephemeral live-chat session for a customer.
func (uc *SupportUseCase) StartSession(ctx context.Context, customerID string) (*entity.Conversation, error) {
	conversation := &entity.Conversation{
		Kind:        entity.KindSession,
		CustomerID:  customerID,
		UnreadCount: map[string]int{},
	}

	if err := uc.conversationRepo.Create(ctx, conversation); err != nil {
		return nil, err
	}

	uc.notifyConversationUpdated(conversation)
	return conversation, nil
}

// CreateTicket opens a durable support ticket, numbering it from the shared
// sequence.
func (uc *SupportUseCase) CreateTicket(ctx context.Context, customerID string, input CreateTicketInput) (*entity.Conversation, error) {
	allowed, waitTime := uc.rateLimiter.Allow(customerID, "create_ticket")
	if !allowed {
		logger.Warn("CreateTicket rate limited: customer %s must wait %v", customerID, waitTime)
		return nil, errors.TooManyRequests("Too many new tickets. Please wait before opening another")
	}

	if input.Priority == "" {
		input.Priority = entity.PriorityMedium
	}

	seq, err := uc.sequencer.Next(ctx, ticketSequenceKey)
	if err != nil {
		return nil, err
	}

	conversation := &entity.Conversation{
		Kind:        entity.KindTicket,
		CustomerID:  customerID,
		Number:      fmt.Sprintf("TKT-%06d", seq),
		Subject:     input.Subject,
		Category:    input.Category,
		Priority:    input.Priority,
		Status:      entity.StatusOpen,
		UnreadCount: map[string]int{},
	}

	if err := uc.conversationRepo.Create(ctx, conversation); err != nil {
		return nil, err
	}

	if input.Body != "" {
		if _, err := uc.SendMessage(ctx, customerID, conversation.ID, input.Body); err != nil {
			logger.Error("CreateTicket: failed to store initial message for %s: %v", conversation.ID, err)
		}
	}

	uc.notifyConversationUpdated(conversation)
	return conversation, nil
}

// ListConversations returns the conversations visible to an actor: agents
// see the whole queue for a kind, customers only their own.
func (uc *SupportUseCase) ListConversations(ctx context.Context, actorID string, kind entity.ConversationKind, limit, offset int) ([]*entity.Conversation, int64, error) {
	actor, err := uc.userRepo.GetByID(ctx, actorID)
	if err != nil {
		return nil, 0, err
	}

	if actor.IsAgent() {
		return uc.conversationRepo.ListByKind(ctx, kind, limit, offset)
	}
	return uc.conversationRepo.ListByCustomer(ctx, actorID, kind, limit, offset)
}

// GetConversation returns one conversation with its full message history.
func (uc *SupportUseCase) GetConversation(ctx context.Context, actorID, conversationID string) (*ConversationDetail, error) {
	conversation, actor, err := uc.authorize(ctx, actorID, conversationID)
	if err != nil {
		return nil, err
	}

	messages, err := uc.conversationRepo.ListMessages(ctx, conversationID)
	if err != nil {
		return nil, err
	}

	detail := &ConversationDetail{
		Conversation: conversation,
		Messages:     messages,
	}

	if actor.IsAgent() {
		customer, err := uc.userRepo.GetByID(ctx, conversation.CustomerID)
		if err == nil {
			detail.Customer = customer
		}
	}

	return detail, nil
}

// SendMessage persists a message, updates the conversation summary and the
// counterparty's unread count, then broadcasts the authoritative event to
// the room (including the sender) and a summary update to everyone in scope.
func (uc *SupportUseCase) SendMessage(ctx context.Context, actorID, conversationID, body string) (*entity.Message, error) {
	if body == "" {
		return nil, errors.BadRequest("Message body must not be empty", nil)
	}

	allowed, waitTime := uc.rateLimiter.Allow(actorID, "send_message")
	if !allowed {
		logger.Warn("SendMessage rate limited: actor %s must wait %v", actorID, waitTime)
		return nil, errors.TooManyRequests("You are sending messages too quickly. Please slow down")
	}

	conversation, actor, err := uc.authorize(ctx, actorID, conversationID)
	if err != nil {
		return nil, err
	}

	role := entity.RoleCustomer
	if actor.IsAgent() {
		role = entity.RoleAgent
	}

	message := &entity.Message{
		ConversationID: conversationID,
		SenderID:       actorID,
		Sender:         role,
		Body:           body,
	}

	if err := uc.conversationRepo.CreateMessage(ctx, message); err != nil {
		return nil, err
	}

	conversation.LastMessage = body
	conversation.LastMessageAt = message.CreatedAt
	if conversation.UnreadCount == nil {
		conversation.UnreadCount = make(map[string]int)
	}
	if role == entity.RoleCustomer {
		conversation.UnreadCount[entity.AgentInboxKey]++
	} else {
		conversation.UnreadCount[conversation.CustomerID]++
	}

	if err := uc.conversationRepo.Update(ctx, conversation); err != nil {
		return nil, err
	}

	frame, err := ws.NewFrame(ws.EventMessageReceived, ws.MessageReceivedData{
		ConversationID: conversationID,
		Message:        message,
	})
	if err == nil {
		uc.notifier.BroadcastToRoom(conversationID, frame)
	}

	uc.notifyConversationUpdated(conversation)

	return message, nil
}

// MarkRead zeroes the unread count from the acting side's perspective.
func (uc *SupportUseCase) MarkRead(ctx context.Context, actorID, conversationID string) error {
	conversation, actor, err := uc.authorize(ctx, actorID, conversationID)
	if err != nil {
		return err
	}

	if conversation.UnreadCount == nil {
		conversation.UnreadCount = make(map[string]int)
	}
	if actor.IsAgent() {
		conversation.UnreadCount[entity.AgentInboxKey] = 0
	} else {
		conversation.UnreadCount[actorID] = 0
	}

	return uc.conversationRepo.Update(ctx, conversation)
}

// ChangeStatus applies a ticket lifecycle transition. The server is the
// authority on legal transitions; clients mirror whatever is broadcast.
func (uc *SupportUseCase) ChangeStatus(ctx context.Context, actorID, conversationID string, status entity.TicketStatus) (*entity.Conversation, error) {
	conversation, actor, err := uc.authorize(ctx, actorID, conversationID)
	if err != nil {
		return nil, err
	}

	if !actor.IsAgent() {
		return nil, errors.Forbidden("Only agents may change ticket status", nil)
	}
	if conversation.Kind != entity.KindTicket {
		return nil, errors.BadRequest("Only tickets have a status", nil)
	}
	if !conversation.Status.CanTransitionTo(status) {
		return nil, errors.Conflict(fmt.Sprintf("Cannot move ticket from %s to %s", conversation.Status, status))
	}

	conversation.Status = status

	if err := uc.conversationRepo.Update(ctx, conversation); err != nil {
		return nil, err
	}

	frame, err := ws.NewFrame(ws.EventStatusUpdated, ws.StatusUpdatedData{
		ConversationID: conversationID,
		Status:         status,
		LastMessage:    conversation.LastMessage,
		LastMessageAt:  conversation.LastMessageAt,
	})
	if err == nil {
		uc.notifier.BroadcastToRoom(conversationID, frame)
	}

	uc.notifyConversationUpdated(conversation)

	return conversation, nil
}

// HandleJoinRoom implements websocket.FrameHandler. Room membership is a
// participant privilege: agents may join any conversation, customers only
// their own.
func (uc *SupportUseCase) HandleJoinRoom(ctx context.Context, actorID, conversationID string) error {
	_, _, err := uc.authorize(ctx, actorID, conversationID)
	return err
}

// HandleSendMessage implements websocket.FrameHandler. The result reaches
// the caller through the room echo, never through a return value.
func (uc *SupportUseCase) HandleSendMessage(ctx context.Context, actorID, conversationID, body string) error {
	_, err := uc.SendMessage(ctx, actorID, conversationID, body)
	return err
}

// HandleChangeStatus implements websocket.FrameHandler.
func (uc *SupportUseCase) HandleChangeStatus(ctx context.Context, actorID, conversationID, status string) error {
	next := entity.TicketStatus(status)
	if !next.Valid() {
		return errors.BadRequest("Unknown ticket status", nil)
	}
	_, err := uc.ChangeStatus(ctx, actorID, conversationID, next)
	return err
}

// authorize loads the conversation and the actor and checks that the actor
// may touch it: agents may touch anything, customers only their own.
func (uc *SupportUseCase) authorize(ctx context.Context, actorID, conversationID string) (*entity.Conversation, *entity.User, error) {
	conversation, err := uc.conversationRepo.GetByID(ctx, conversationID)
	if err != nil {
		return nil, nil, err
	}

	actor, err := uc.userRepo.GetByID(ctx, actorID)
	if err != nil {
		return nil, nil, err
	}

	if !actor.IsAgent() && conversation.CustomerID != actorID {
		return nil, nil, errors.Forbidden("Not a participant in this conversation", nil)
	}

	return conversation, actor, nil
}

// notifyConversationUpdated pushes a list-level summary update to the
// conversation's customer and to every connected agent.
func (uc *SupportUseCase) notifyConversationUpdated(conversation *entity.Conversation) {
	frame, err := ws.NewFrame(ws.EventConversationUpdated, ws.ConversationUpdatedData{
		Conversation: conversation,
	})
	if err != nil {
		return
	}

	uc.notifier.SendToActor(conversation.CustomerID, frame)
	uc.notifier.BroadcastToAgents(frame)
}
