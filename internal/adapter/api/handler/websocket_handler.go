package handler

import (
	"net/http"

	gorillaws "github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"tokodesk/internal/adapter/api/middleware"
	"tokodesk/internal/domain/repository"
	ws "tokodesk/internal/infrastructure/websocket"
	"tokodesk/pkg/errors"
	"tokodesk/pkg/logger"
)

type WebSocketHandler struct {
	hub            *ws.Hub
	authMiddleware *middleware.AuthMiddleware
	userRepo       repository.UserRepository
}

var upgrader = gorillaws.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Restrict in production deployments
	},
}

func NewWebSocketHandler(hub *ws.Hub, authMiddleware *middleware.AuthMiddleware, userRepo repository.UserRepository) *WebSocketHandler {
	return &WebSocketHandler{
		hub:            hub,
		authMiddleware: authMiddleware,
		userRepo:       userRepo,
	}
}

// HandleWebSocket authenticates the handshake credential, upgrades the
// connection and registers the actor with the hub.
func (h *WebSocketHandler) HandleWebSocket(c echo.Context) error {
	token := c.QueryParam("token")
	if token == "" {
		token = bearerToken(c.Request().Header.Get("Authorization"))
	}
	if token == "" {
		return errors.Unauthorized("Authentication required", nil)
	}

	uid, err := h.authMiddleware.GetUIDFromToken(c.Request().Context(), token)
	if err != nil {
		return errors.Unauthorized("Invalid or expired token", err)
	}

	user, err := h.userRepo.GetByID(c.Request().Context(), uid)
	if err != nil {
		return errors.Unauthorized("Unknown actor", err)
	}

	conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		return errors.Internal("Failed to upgrade connection", err)
	}

	client := &ws.Client{
		ActorID: uid,
		Agent:   user.IsAgent(),
		Conn:    conn,
		Send:    make(chan []byte, 256),
	}

	h.hub.Register <- client

	go client.ReadPump(h.hub)
	go client.WritePump()

	logger.Debug("WebSocket: handshake complete for actor %s (agent=%v)", uid, client.Agent)
	return nil
}

func bearerToken(header string) string {
	const prefix = "Bearer "
	if len(header) > len(prefix) && header[:len(prefix)] == prefix {
		return header[len(prefix):]
	}
	return ""
}
