package entity

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTicketStatusTransitions(t *testing.T) {
	// Forward chain
	assert.True(t, StatusOpen.CanTransitionTo(StatusInProgress))
	assert.True(t, StatusInProgress.CanTransitionTo(StatusResolved))
	assert.True(t, StatusResolved.CanTransitionTo(StatusClosed))

	// Resolving straight from open is allowed, closing is not
	assert.True(t, StatusOpen.CanTransitionTo(StatusResolved))
	assert.False(t, StatusOpen.CanTransitionTo(StatusClosed))
	assert.False(t, StatusInProgress.CanTransitionTo(StatusClosed))

	// Any state can be pulled back to open or in_progress
	assert.True(t, StatusClosed.CanTransitionTo(StatusOpen))
	assert.True(t, StatusClosed.CanTransitionTo(StatusInProgress))
	assert.True(t, StatusResolved.CanTransitionTo(StatusOpen))
	assert.True(t, StatusResolved.CanTransitionTo(StatusInProgress))

	// Self-transitions and unknown statuses are rejected
	assert.False(t, StatusOpen.CanTransitionTo(StatusOpen))
	assert.False(t, StatusOpen.CanTransitionTo(TicketStatus("archived")))
}

func TestUnreadFor(t *testing.T) {
	c := &Conversation{}
	assert.Equal(t, 0, c.UnreadFor("agent-1"))

	c.UnreadCount = map[string]int{"agent-1": 3}
	assert.Equal(t, 3, c.UnreadFor("agent-1"))
	assert.Equal(t, 0, c.UnreadFor("agent-2"))
}
