package entity

import "time"

type SenderRole string

const (
	RoleCustomer SenderRole = "customer"
	RoleAgent    SenderRole = "agent"
)

// Message is immutable once created; there is no edit or delete.
type Message struct {
	ID             string     `json:"id" firestore:"id"`
	ConversationID string     `json:"conversation_id" firestore:"conversationId"`
	SenderID       string     `json:"sender_id" firestore:"senderId"`
	Sender         SenderRole `json:"sender" firestore:"sender"`
	Body           string     `json:"body" firestore:"body"`
	CreatedAt      time.Time  `json:"created_at" firestore:"createdAt"`
}
