package handler

import (
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

const (
	keepAliveInterval = 30 * time.Second
	writeWait         = 10 * time.Second
	maxInboundMessage = 512
)

// Native clients send no Origin header, so every origin is accepted.
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

type keepAlive struct {
	Type string `json:"type"`
}

// LiveAlerts streams the user's alerts as JSON events until the client goes
// away. A {"type":"ka"} frame is sent when the stream is idle.
func (h *Handler) LiveAlerts(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("[LiveAlerts] Upgrade failed for user %s: %v", userID, err)
		return
	}
	defer conn.Close()

	events, unsubscribe := h.hub.Subscribe(userID)
	defer unsubscribe()

	// Inbound frames are ignored; reading only detects the close.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		conn.SetReadLimit(maxInboundMessage)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(keepAliveInterval)
	defer ticker.Stop()

	for {
		var frame interface{}
		select {
		case <-closed:
			return
		case event, ok := <-events:
			if !ok {
				return
			}
			frame = event
		case <-ticker.C:
			frame = keepAlive{Type: "ka"}
		}

		_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := conn.WriteJSON(frame); err != nil {
			return
		}
	}
}
