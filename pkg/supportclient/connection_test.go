package supportclient

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testUpgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

func waitForEvent(t *testing.T, events <-chan Event) Event {
	t.Helper()
	select {
	case event := <-events:
		return event
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for event")
		return nil
	}
}

func TestConnectDeliversFramesInOrder(t *testing.T) {
	frames := []string{
		`{"type": "message_received", "data": {"conversation_id": "conv-1", "message": {"id": "msg-1", "conversation_id": "conv-1", "sender_id": "cust-1", "sender": "customer", "body": "first", "created_at": "2025-06-01T10:00:00Z"}}}`,
		`{"type": "garbage`,
		`{"type": "status_updated", "data": {"conversation_id": "tkt-1", "status": "resolved"}}`,
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))

		conn, err := testUpgrader.Upgrade(w, r, nil)
		require.NoError(t, err)
		defer conn.Close()

		for _, frame := range frames {
			require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(frame)))
		}

		// Hold the connection until the client reads everything.
		conn.ReadMessage()
	}))
	defer srv.Close()

	m := NewConnectionManager("ws"+strings.TrimPrefix(srv.URL, "http"), "test-token")
	defer m.Close()
	m.Connect()

	_, ok := waitForEvent(t, m.Events()).(Connected)
	require.True(t, ok)
	assert.True(t, m.IsConnected())

	received, ok := waitForEvent(t, m.Events()).(MessageReceived)
	require.True(t, ok)
	assert.Equal(t, "msg-1", received.Message.ID)

	// The malformed frame is dropped; the next event is the status update.
	updated, ok := waitForEvent(t, m.Events()).(StatusUpdated)
	require.True(t, ok)
	assert.Equal(t, "tkt-1", updated.ConversationID)
}

func TestSendWhileDisconnected(t *testing.T) {
	m := NewConnectionManager("ws://127.0.0.1:1/ws", "test-token")
	defer m.Close()

	err := m.send(eventSendMessage, sendMessageData{ConversationID: "conv-1", Body: "x"})
	assert.ErrorIs(t, err, ErrNotConnected)
	assert.Equal(t, StateDisconnected, m.State())
}

func TestCloseIsIdempotent(t *testing.T) {
	m := NewConnectionManager("ws://127.0.0.1:1/ws", "test-token")

	m.Close()
	m.Close()

	assert.Equal(t, StateClosed, m.State())
	assert.False(t, m.IsConnected())
}

func TestReconnectEmitsLifecycleEvents(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := testUpgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		// Drop the connection immediately to force a reconnect cycle.
		conn.Close()
	}))
	defer srv.Close()

	m := NewConnectionManager("ws"+strings.TrimPrefix(srv.URL, "http"), "test-token")
	defer m.Close()
	m.Connect()

	_, ok := waitForEvent(t, m.Events()).(Connected)
	require.True(t, ok)

	_, ok = waitForEvent(t, m.Events()).(Disconnected)
	require.True(t, ok)

	// Backoff elapses and the manager dials again.
	_, ok = waitForEvent(t, m.Events()).(Connected)
	require.True(t, ok)
}
