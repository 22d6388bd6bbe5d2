package supportclient

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func newTestRooms() *RoomRegistry {
	// The connection stays down; membership intent is tracked regardless and
	// replayed on reconnect.
	return NewRoomRegistry(NewConnectionManager("ws://127.0.0.1:1/ws", "test-token"))
}

func TestJoinIsIdempotent(t *testing.T) {
	rooms := newTestRooms()

	rooms.Join("conv-1")
	rooms.Join("conv-1")

	assert.True(t, rooms.Joined("conv-1"))
}

func TestLeaveNeverJoinedIsNoop(t *testing.T) {
	rooms := newTestRooms()

	rooms.Leave("conv-1")
	assert.False(t, rooms.Joined("conv-1"))
}

func TestLeaveDropsMembership(t *testing.T) {
	rooms := newTestRooms()

	rooms.Join("conv-1")
	rooms.Leave("conv-1")

	assert.False(t, rooms.Joined("conv-1"))
}

func TestRejoinKeepsDesiredSet(t *testing.T) {
	rooms := newTestRooms()

	rooms.Join("conv-1")
	rooms.Join("conv-2")
	rooms.Leave("conv-1")

	rooms.Rejoin()

	assert.False(t, rooms.Joined("conv-1"))
	assert.True(t, rooms.Joined("conv-2"))
}
