package realtime

import (
	"context"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/gin-gonic/gin"

	"teamtasks/internal/middleware"
)

const writeTimeout = 5 * time.Second

type readyFrame struct {
	Type string `json:"type"`
}

type notificationFrame struct {
	Type  string `json:"type"`
	Index int    `json:"index"`
	Data  any    `json:"notification"`
}

// StreamHandler serves GET /users/notifications/stream.
type StreamHandler struct {
	hub     *Hub
	origins []string
}

// NewStreamHandler accepts handshakes only from origins matching the
// given patterns; with none, only same-origin requests are accepted.
func NewStreamHandler(hub *Hub, origins []string) *StreamHandler {
	return &StreamHandler{hub: hub, origins: origins}
}

// Stream
// @Summary      Live notification stream
// @Description  Websocket. Sends {"type":"ready"} then one frame per new inbox entry.
// @Tags         Users
// @Security     BearerAuth
// @Param        access_token  query  string  false  "token for clients that cannot set headers"
// @Success      101
// @Failure      401  {object}  map[string]string
// @Router       /users/notifications/stream [get]
func (h *StreamHandler) Stream(c *gin.Context) {
	user := middleware.CurrentUser(c)
	if user == nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "token required"})
		return
	}

	conn, err := websocket.Accept(c.Writer, c.Request, &websocket.AcceptOptions{OriginPatterns: h.origins})
	if err != nil {
		return
	}

	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	events, unsubscribe := h.hub.Subscribe(user.ID, 32)
	defer unsubscribe()

	_ = wsjson.Write(ctx, conn, readyFrame{Type: "ready"})

	// the client never sends anything useful; reading drives close handling
	readErr := make(chan error, 1)
	go func() {
		for {
			if _, _, err := conn.Read(ctx); err != nil {
				readErr <- err
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			_ = conn.Close(websocket.StatusNormalClosure, "closed")
			return
		case <-readErr:
			_ = conn.Close(websocket.StatusNormalClosure, "closed")
			return
		case evt, ok := <-events:
			if !ok {
				_ = conn.Close(websocket.StatusNormalClosure, "closed")
				return
			}
			writeCtx, cancelWrite := context.WithTimeout(ctx, writeTimeout)
			err := wsjson.Write(writeCtx, conn, notificationFrame{Type: "notification", Index: evt.Index, Data: evt.Notification})
			cancelWrite()
			if err != nil {
				_ = conn.Close(websocket.StatusNormalClosure, "write_failed")
				return
			}
		}
	}
}
