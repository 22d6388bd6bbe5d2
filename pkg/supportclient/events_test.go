package supportclient

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tokodesk/internal/domain/entity"
)

func TestDecodeMessageReceived(t *testing.T) {
	frame := []byte(`{
		"type": "message_received",
		"data": {
			"conversation_id": "conv-1",
			"message": {
				"id": "msg-1",
				"conversation_id": "conv-1",
				"sender_id": "cust-1",
				"sender": "customer",
				"body": "hello",
				"created_at": "2025-06-01T10:00:00Z"
			}
		}
	}`)

	event, err := decodeEvent(frame)
	require.NoError(t, err)

	received, ok := event.(MessageReceived)
	require.True(t, ok)
	assert.Equal(t, "conv-1", received.ConversationID)
	assert.Equal(t, "msg-1", received.Message.ID)
	assert.Equal(t, entity.RoleCustomer, received.Message.Sender)
}

func TestDecodeStatusUpdated(t *testing.T) {
	frame := []byte(`{
		"type": "status_updated",
		"data": {"conversation_id": "tkt-1", "status": "in_progress"}
	}`)

	event, err := decodeEvent(frame)
	require.NoError(t, err)

	updated, ok := event.(StatusUpdated)
	require.True(t, ok)
	assert.Equal(t, entity.StatusInProgress, updated.Status)
}

func TestDecodeRejectsBadFrames(t *testing.T) {
	cases := map[string][]byte{
		"not json":            []byte(`{`),
		"unknown type":        []byte(`{"type": "typing_indicator", "data": {}}`),
		"missing message":     []byte(`{"type": "message_received", "data": {"conversation_id": "conv-1"}}`),
		"missing message id":  []byte(`{"type": "message_received", "data": {"conversation_id": "conv-1", "message": {"body": "x"}}}`),
		"missing room":        []byte(`{"type": "status_updated", "data": {"status": "open"}}`),
		"invalid status":      []byte(`{"type": "status_updated", "data": {"conversation_id": "tkt-1", "status": "escalated"}}`),
		"empty conversation":  []byte(`{"type": "conversation_updated", "data": {"conversation": {"id": ""}}}`),
		"malformed payload":   []byte(`{"type": "message_received", "data": "nope"}`),
	}

	for name, frame := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := decodeEvent(frame)
			assert.Error(t, err)
		})
	}
}

func TestDecodeErrorEvent(t *testing.T) {
	frame := []byte(`{"type": "error", "data": {"message": "Rate limit exceeded"}}`)

	event, err := decodeEvent(frame)
	require.NoError(t, err)

	errEvent, ok := event.(ErrorEvent)
	require.True(t, ok)
	assert.Equal(t, "Rate limit exceeded", errEvent.Message)
}

func TestEncodeFrameEnvelope(t *testing.T) {
	frame, err := encodeFrame(eventSendMessage, sendMessageData{
		ConversationID: "conv-1",
		Body:           "hello",
	})
	require.NoError(t, err)

	var env envelope
	require.NoError(t, json.Unmarshal(frame, &env))
	assert.Equal(t, eventSendMessage, env.Type)

	var data sendMessageData
	require.NoError(t, json.Unmarshal(env.Data, &data))
	assert.Equal(t, "conv-1", data.ConversationID)
	assert.Equal(t, "hello", data.Body)

	_, err = time.Parse(time.RFC3339, env.Timestamp)
	assert.NoError(t, err)
}
