package supportclient

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "tokodesk/pkg/errors"
)

func TestRestErrorEnvelopeMapsToAppError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		json.NewEncoder(w).Encode(restEnvelope{
			Success: false,
			Error:   &restError{Code: "FORBIDDEN", Message: "Not your conversation"},
		})
	}))
	defer srv.Close()

	transport := NewRestTransport(srv.URL, "test-token")
	_, err := transport.GetConversation(context.Background(), "conv-1")
	require.Error(t, err)

	appErr, ok := err.(*apperrors.AppError)
	require.True(t, ok)
	assert.Equal(t, "FORBIDDEN", appErr.Code)
	assert.Equal(t, http.StatusForbidden, appErr.Status)
}

func TestRestMarkReadAcceptsBareStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		assert.Equal(t, "/v1/support/conversations/conv-1/read", r.URL.Path)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	transport := NewRestTransport(srv.URL, "test-token")
	assert.NoError(t, transport.MarkRead(context.Background(), "conv-1"))
}

func TestRestSendsBearerToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		writeEnvelope(w, paginatedData{Items: json.RawMessage(`[]`), Total: 0})
	}))
	defer srv.Close()

	transport := NewRestTransport(srv.URL, "secret")
	conversations, total, err := transport.ListConversations(context.Background(), "session", 20, 0)
	require.NoError(t, err)
	assert.Empty(t, conversations)
	assert.Zero(t, total)
}
