package router

import (
	"github.com/labstack/echo/v4"

	"tokodesk/internal/adapter/api/handler"
	"tokodesk/internal/adapter/api/middleware"
)

// SetupSupportRouter sets up the REST surface of the support subsystem
// (fallback path + cold-start loads).
func SetupSupportRouter(e *echo.Echo, supportHandler *handler.SupportHandler, authMiddleware *middleware.AuthMiddleware) {
	supportGroup := e.Group("/v1/support")
	supportGroup.Use(authMiddleware.Authenticate)

	// Conversation lifecycle
	supportGroup.POST("/sessions", supportHandler.StartSession)   // POST /v1/support/sessions - open live chat session
	supportGroup.GET("/sessions", supportHandler.ListSessions)    // GET  /v1/support/sessions - list sessions in scope
	supportGroup.POST("/tickets", supportHandler.CreateTicket)    // POST /v1/support/tickets - open ticket
	supportGroup.GET("/tickets", supportHandler.ListTickets)      // GET  /v1/support/tickets - list tickets in scope

	// Conversation detail and messaging
	supportGroup.GET("/conversations/:id", supportHandler.GetConversation)          // full history
	supportGroup.POST("/conversations/:id/messages", supportHandler.SendMessage)    // REST send
	supportGroup.PUT("/conversations/:id/read", supportHandler.MarkRead)            // zero unread

	// Ticket lifecycle
	supportGroup.PUT("/tickets/:id/status", supportHandler.ChangeStatus)
}
