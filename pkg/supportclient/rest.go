package supportclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"tokodesk/internal/domain/entity"
	apperrors "tokodesk/pkg/errors"
)

// RestTransport is the stateless fallback path: cold-start and historical
// loads, plus request/response equivalents of every live-channel operation
// for use while the connection is down. Responses carry the same entity
// shapes the live channel delivers, so the store's merge logic never cares
// which path produced them.
type RestTransport struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// ConversationDetail is the fetch-detail response: the conversation summary
// with its full message history.
type ConversationDetail struct {
	entity.Conversation
	Messages []*entity.Message `json:"messages"`
	Customer *entity.User      `json:"customer,omitempty"`
}

// CreateTicketInput mirrors the ticket-creation endpoint's request body.
type CreateTicketInput struct {
	Subject  string                `json:"subject"`
	Category string                `json:"category"`
	Priority entity.TicketPriority `json:"priority,omitempty"`
	Body     string                `json:"body,omitempty"`
}

type restEnvelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data,omitempty"`
	Error   *restError      `json:"error,omitempty"`
}

type restError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type paginatedData struct {
	Items json.RawMessage `json:"items"`
	Total int64           `json:"total"`
}

func NewRestTransport(baseURL, token string) *RestTransport {
	return &RestTransport{
		baseURL: baseURL,
		token:   token,
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

// ListConversations returns the conversations of one kind visible to the
// actor, newest activity first.
func (t *RestTransport) ListConversations(ctx context.Context, kind entity.ConversationKind, limit, offset int) ([]*entity.Conversation, int64, error) {
	path := "/v1/support/sessions"
	if kind == entity.KindTicket {
		path = "/v1/support/tickets"
	}
	path = fmt.Sprintf("%s?limit=%d&offset=%d", path, limit, offset)

	data, err := t.do(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, 0, err
	}

	var page paginatedData
	if err := json.Unmarshal(data, &page); err != nil {
		return nil, 0, apperrors.Internal("Failed to parse conversation list", err)
	}

	var conversations []*entity.Conversation
	if len(page.Items) > 0 {
		if err := json.Unmarshal(page.Items, &conversations); err != nil {
			return nil, 0, apperrors.Internal("Failed to parse conversation list", err)
		}
	}

	return conversations, page.Total, nil
}

// GetConversation fetches one conversation with its full message history.
func (t *RestTransport) GetConversation(ctx context.Context, conversationID string) (*ConversationDetail, error) {
	data, err := t.do(ctx, http.MethodGet, "/v1/support/conversations/"+conversationID, nil)
	if err != nil {
		return nil, err
	}

	var detail ConversationDetail
	if err := json.Unmarshal(data, &detail); err != nil {
		return nil, apperrors.Internal("Failed to parse conversation detail", err)
	}

	return &detail, nil
}

// StartSession opens a new live chat session for the actor.
func (t *RestTransport) StartSession(ctx context.Context) (*entity.Conversation, error) {
	data, err := t.do(ctx, http.MethodPost, "/v1/support/sessions", struct{}{})
	if err != nil {
		return nil, err
	}

	var conversation entity.Conversation
	if err := json.Unmarshal(data, &conversation); err != nil {
		return nil, apperrors.Internal("Failed to parse session", err)
	}

	return &conversation, nil
}

// CreateTicket opens a new support ticket.
func (t *RestTransport) CreateTicket(ctx context.Context, input CreateTicketInput) (*entity.Conversation, error) {
	data, err := t.do(ctx, http.MethodPost, "/v1/support/tickets", input)
	if err != nil {
		return nil, err
	}

	var conversation entity.Conversation
	if err := json.Unmarshal(data, &conversation); err != nil {
		return nil, apperrors.Internal("Failed to parse ticket", err)
	}

	return &conversation, nil
}

// SendMessage posts a message and returns the created message synchronously.
func (t *RestTransport) SendMessage(ctx context.Context, conversationID, body string) (*entity.Message, error) {
	data, err := t.do(ctx, http.MethodPost, "/v1/support/conversations/"+conversationID+"/messages", map[string]string{
		"body": body,
	})
	if err != nil {
		return nil, err
	}

	var message entity.Message
	if err := json.Unmarshal(data, &message); err != nil {
		return nil, apperrors.Internal("Failed to parse message", err)
	}

	return &message, nil
}

// MarkRead zeroes the conversation's unread count on the server.
func (t *RestTransport) MarkRead(ctx context.Context, conversationID string) error {
	_, err := t.do(ctx, http.MethodPut, "/v1/support/conversations/"+conversationID+"/read", nil)
	return err
}

// ChangeStatus applies a ticket transition and returns the updated ticket.
func (t *RestTransport) ChangeStatus(ctx context.Context, conversationID string, status entity.TicketStatus) (*entity.Conversation, error) {
	data, err := t.do(ctx, http.MethodPut, "/v1/support/tickets/"+conversationID+"/status", map[string]string{
		"status": string(status),
	})
	if err != nil {
		return nil, err
	}

	var conversation entity.Conversation
	if err := json.Unmarshal(data, &conversation); err != nil {
		return nil, apperrors.Internal("Failed to parse ticket", err)
	}

	return &conversation, nil
}

func (t *RestTransport) do(ctx context.Context, method, path string, body interface{}) (json.RawMessage, error) {
	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, apperrors.Internal("Failed to encode request", err)
		}
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, t.baseURL+path, reader)
	if err != nil {
		return nil, apperrors.Internal("Failed to build request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+t.token)

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return nil, apperrors.Internal("Support service unreachable", err)
	}
	defer resp.Body.Close()

	var env restEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		// Endpoints without a response body (mark-read) answer with a bare
		// status code.
		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			return nil, nil
		}
		return nil, apperrors.New("UPSTREAM_ERROR", http.StatusText(resp.StatusCode), resp.StatusCode, err)
	}

	if !env.Success {
		code := "UPSTREAM_ERROR"
		message := http.StatusText(resp.StatusCode)
		if env.Error != nil {
			code = env.Error.Code
			message = env.Error.Message
		}
		return nil, apperrors.New(code, message, resp.StatusCode, nil)
	}

	return env.Data, nil
}
