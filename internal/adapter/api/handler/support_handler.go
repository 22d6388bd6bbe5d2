package handler

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"tokodesk/internal/domain/entity"
	"tokodesk/internal/usecase"
	"tokodesk/pkg/response"
)

type SupportHandler struct {
	supportUseCase *usecase.SupportUseCase
}

func NewSupportHandler(supportUseCase *usecase.SupportUseCase) *SupportHandler {
	return &SupportHandler{
		supportUseCase: supportUseCase,
	}
}

type createTicketRequest struct {
	Subject  string `json:"subject" validate:"required"`
	Category string `json:"category" validate:"required"`
	Priority string `json:"priority" validate:"omitempty,oneof=low medium high"`
	Body     string `json:"body"`
}

type sendMessageRequest struct {
	Body string `json:"body" validate:"required"`
}

type changeStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=open in_progress resolved closed"`
}

// StartSession opens a new live chat session for the authenticated customer.
func (h *SupportHandler) StartSession(c echo.Context) error {
	userID := c.Get("uid").(string)

	session, err := h.supportUseCase.StartSession(c.Request().Context(), userID)
	if err != nil {
		return response.Error(c, err)
	}

	return response.Created(c, session)
}

// CreateTicket opens a new support ticket.
func (h *SupportHandler) CreateTicket(c echo.Context) error {
	var req createTicketRequest
	if err := c.Bind(&req); err != nil {
		return response.Error(c, err)
	}

	if err := c.Validate(&req); err != nil {
		return response.Error(c, err)
	}

	userID := c.Get("uid").(string)

	ticket, err := h.supportUseCase.CreateTicket(c.Request().Context(), userID, usecase.CreateTicketInput{
		Subject:  req.Subject,
		Category: req.Category,
		Priority: entity.TicketPriority(req.Priority),
		Body:     req.Body,
	})
	if err != nil {
		return response.Error(c, err)
	}

	return response.Created(c, ticket)
}

// ListSessions lists the chat sessions visible to the actor.
func (h *SupportHandler) ListSessions(c echo.Context) error {
	return h.listConversations(c, entity.KindSession)
}

// ListTickets lists the tickets visible to the actor.
func (h *SupportHandler) ListTickets(c echo.Context) error {
	return h.listConversations(c, entity.KindTicket)
}

func (h *SupportHandler) listConversations(c echo.Context, kind entity.ConversationKind) error {
	userID := c.Get("uid").(string)

	limit := 20
	offset := 0

	if limitStr := c.QueryParam("limit"); limitStr != "" {
		if parsed, err := strconv.Atoi(limitStr); err == nil && parsed > 0 {
			limit = parsed
		}
	}

	if offsetStr := c.QueryParam("offset"); offsetStr != "" {
		if parsed, err := strconv.Atoi(offsetStr); err == nil && parsed >= 0 {
			offset = parsed
		}
	}

	conversations, total, err := h.supportUseCase.ListConversations(c.Request().Context(), userID, kind, limit, offset)
	if err != nil {
		return response.Error(c, err)
	}

	return response.SuccessPaginated(c, conversations, total, limit, offset)
}

// GetConversation returns one conversation with its full message history.
func (h *SupportHandler) GetConversation(c echo.Context) error {
	conversationID := c.Param("id")
	userID := c.Get("uid").(string)

	detail, err := h.supportUseCase.GetConversation(c.Request().Context(), userID, conversationID)
	if err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, detail)
}

// SendMessage posts a message over the REST fallback path. The created
// message is returned synchronously so a disconnected client can apply it
// directly.
func (h *SupportHandler) SendMessage(c echo.Context) error {
	conversationID := c.Param("id")
	userID := c.Get("uid").(string)

	var req sendMessageRequest
	if err := c.Bind(&req); err != nil {
		return response.Error(c, err)
	}

	if err := c.Validate(&req); err != nil {
		return response.Error(c, err)
	}

	message, err := h.supportUseCase.SendMessage(c.Request().Context(), userID, conversationID, req.Body)
	if err != nil {
		return response.Error(c, err)
	}

	return response.Created(c, message)
}

// MarkRead zeroes the conversation's unread count for the acting side.
func (h *SupportHandler) MarkRead(c echo.Context) error {
	conversationID := c.Param("id")
	userID := c.Get("uid").(string)

	if err := h.supportUseCase.MarkRead(c.Request().Context(), userID, conversationID); err != nil {
		return response.Error(c, err)
	}

	return c.NoContent(http.StatusOK)
}

// ChangeStatus applies a ticket lifecycle transition and returns the
// updated ticket.
func (h *SupportHandler) ChangeStatus(c echo.Context) error {
	conversationID := c.Param("id")
	userID := c.Get("uid").(string)

	var req changeStatusRequest
	if err := c.Bind(&req); err != nil {
		return response.Error(c, err)
	}

	if err := c.Validate(&req); err != nil {
		return response.Error(c, err)
	}

	ticket, err := h.supportUseCase.ChangeStatus(c.Request().Context(), userID, conversationID, entity.TicketStatus(req.Status))
	if err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, ticket)
}
