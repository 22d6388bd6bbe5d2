package repository

import (
	"context"

	"tokodesk/internal/domain/entity"
)

type ConversationRepository interface {
	Create(ctx context.Context, conversation *entity.Conversation) error
	GetByID(ctx context.Context, id string) (*entity.Conversation, error)
	ListByKind(ctx context.Context, kind entity.ConversationKind, limit, offset int) ([]*entity.Conversation, int64, error)
	ListByCustomer(ctx context.Context, customerID string, kind entity.ConversationKind, limit, offset int) ([]*entity.Conversation, int64, error)
	Update(ctx context.Context, conversation *entity.Conversation) error

	// Message methods
	CreateMessage(ctx context.Context, message *entity.Message) error
	ListMessages(ctx context.Context, conversationID string) ([]*entity.Message, error)
}
