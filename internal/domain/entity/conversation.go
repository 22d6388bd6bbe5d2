package entity

import "time"

// AgentInboxKey is the shared unread-count key for the agent side of a
// conversation; agents work a common queue, so unread is not tracked per
// individual agent.
const AgentInboxKey = "agents"

type ConversationKind string

const (
	KindSession ConversationKind = "session"
	KindTicket  ConversationKind = "ticket"
)

type TicketStatus string

const (
	StatusOpen       TicketStatus = "open"
	StatusInProgress TicketStatus = "in_progress"
	StatusResolved   TicketStatus = "resolved"
	StatusClosed     TicketStatus = "closed"
)

type TicketPriority string

const (
	PriorityLow    TicketPriority = "low"
	PriorityMedium TicketPriority = "medium"
	PriorityHigh   TicketPriority = "high"
)

// Conversation covers both kinds of support conversations. Sessions carry
// only the common fields; the ticket-only fields stay empty and are omitted
// from the stored document.
type Conversation struct {
	ID            string           `json:"id" firestore:"id"`
	Kind          ConversationKind `json:"kind" firestore:"kind"`
	CustomerID    string           `json:"customer_id" firestore:"customerId"`
	CreatedAt     time.Time        `json:"created_at" firestore:"createdAt"`
	UpdatedAt     time.Time        `json:"updated_at" firestore:"updatedAt"`
	LastMessageAt time.Time        `json:"last_message_at" firestore:"lastMessageAt"`
	LastMessage   string           `json:"last_message,omitempty" firestore:"lastMessage,omitempty"`
	UnreadCount   map[string]int   `json:"unread_count" firestore:"unreadCount"` // Keyed by customer ID or AgentInboxKey

	// Ticket-only fields
	Number   string         `json:"number,omitempty" firestore:"number,omitempty"`
	Subject  string         `json:"subject,omitempty" firestore:"subject,omitempty"`
	Category string         `json:"category,omitempty" firestore:"category,omitempty"`
	Priority TicketPriority `json:"priority,omitempty" firestore:"priority,omitempty"`
	Status   TicketStatus   `json:"status,omitempty" firestore:"status,omitempty"`
}

func (s TicketStatus) Valid() bool {
	switch s {
	case StatusOpen, StatusInProgress, StatusResolved, StatusClosed:
		return true
	}
	return false
}

// CanTransitionTo reports whether the ticket lifecycle permits moving from s
// to next. The chain runs open -> in_progress -> resolved -> closed, and any
// state may be pulled back to open or in_progress (re-opening is allowed).
func (s TicketStatus) CanTransitionTo(next TicketStatus) bool {
	if !next.Valid() || s == next {
		return false
	}
	switch next {
	case StatusOpen, StatusInProgress:
		return true
	case StatusResolved:
		return s == StatusOpen || s == StatusInProgress
	case StatusClosed:
		return s == StatusResolved
	}
	return false
}

// UnreadFor returns the unread count from one perspective: a customer ID or
// AgentInboxKey.
func (c *Conversation) UnreadFor(key string) int {
	if c.UnreadCount == nil {
		return 0
	}
	return c.UnreadCount[key]
}
