package websocket

import (
	"github.com/gorilla/websocket"

	"tokodesk/pkg/logger"
)

// Client represents one connected actor. One connection per authenticated
// session; the hub owns registration and room membership.
type Client struct {
	ActorID string
	Agent   bool
	Conn    *websocket.Conn
	Send    chan []byte
}

// ReadPump reads frames from the connection and hands them to the hub until
// the peer goes away.
func (c *Client) ReadPump(h *Hub) {
	defer func() {
		h.Unregister <- c
		c.Conn.Close()
	}()

	for {
		_, frame, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logger.Warn("WebSocket read error for actor %s: %v", c.ActorID, err)
			}
			break
		}

		h.HandleFrame(c, frame)
	}
}

// WritePump drains the send channel onto the connection.
func (c *Client) WritePump() {
	defer c.Conn.Close()

	for {
		frame, ok := <-c.Send
		if !ok {
			c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
			return
		}

		if err := c.Conn.WriteMessage(websocket.TextMessage, frame); err != nil {
			logger.Warn("WebSocket write error for actor %s: %v", c.ActorID, err)
			return
		}
	}
}
