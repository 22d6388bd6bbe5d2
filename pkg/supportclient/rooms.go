package supportclient

import (
	"sync"

	"tokodesk/pkg/logger"
)

// RoomRegistry tracks the rooms this connection wants to be in. Join and
// Leave are idempotent, and the full desired set is re-joined after every
// reconnect so already-open conversations keep receiving events.
type RoomRegistry struct {
	conn *ConnectionManager

	mu     sync.Mutex
	joined map[string]bool
}

func NewRoomRegistry(conn *ConnectionManager) *RoomRegistry {
	return &RoomRegistry{
		conn:   conn,
		joined: make(map[string]bool),
	}
}

// Join records interest in a room and sends the join intent if the
// connection is up. Joining an already-joined room is a no-op.
func (r *RoomRegistry) Join(conversationID string) {
	r.mu.Lock()
	if r.joined[conversationID] {
		r.mu.Unlock()
		return
	}
	r.joined[conversationID] = true
	r.mu.Unlock()

	if err := r.conn.send(eventJoinRoom, roomData{ConversationID: conversationID}); err != nil {
		// Not connected; the join intent is replayed on reconnect.
		logger.Debug("supportclient: deferred join for room %s: %v", conversationID, err)
	}
}

// Leave drops interest in a room. Leaving a room never joined is a no-op.
func (r *RoomRegistry) Leave(conversationID string) {
	r.mu.Lock()
	if !r.joined[conversationID] {
		r.mu.Unlock()
		return
	}
	delete(r.joined, conversationID)
	r.mu.Unlock()

	if err := r.conn.send(eventLeaveRoom, roomData{ConversationID: conversationID}); err != nil {
		logger.Debug("supportclient: leave for room %s not sent: %v", conversationID, err)
	}
}

// Joined reports whether a room is in the desired membership set.
func (r *RoomRegistry) Joined(conversationID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.joined[conversationID]
}

// Rejoin replays the desired membership after a reconnect. The server's
// membership is idempotent, so replaying is safe even if the server still
// remembers the connection.
func (r *RoomRegistry) Rejoin() {
	r.mu.Lock()
	rooms := make([]string, 0, len(r.joined))
	for conversationID := range r.joined {
		rooms = append(rooms, conversationID)
	}
	r.mu.Unlock()

	for _, conversationID := range rooms {
		if err := r.conn.send(eventJoinRoom, roomData{ConversationID: conversationID}); err != nil {
			logger.Debug("supportclient: rejoin for room %s failed: %v", conversationID, err)
		}
	}
}
