package router

import (
	"github.com/labstack/echo/v4"

	"tokodesk/internal/adapter/api/handler"
)

// SetupWebSocketRouter sets up the live channel endpoint. Authentication is
// handled inside the handler so the handshake credential can also arrive as
// a query parameter.
func SetupWebSocketRouter(e *echo.Echo, wsHandler *handler.WebSocketHandler) {
	e.GET("/ws", wsHandler.HandleWebSocket)
}
