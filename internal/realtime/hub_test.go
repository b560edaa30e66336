package realtime

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/gin-gonic/gin"

	"teamtasks/internal/middleware"
	"teamtasks/internal/models"
)

func TestHubPublishReachesOnlyTargetUser(t *testing.T) {
	h := NewHub()
	bob, cancelBob := h.Subscribe(1, 4)
	defer cancelBob()
	carol, cancelCarol := h.Subscribe(2, 4)
	defer cancelCarol()

	h.Publish(1, models.NotificationEvent{Index: 3})

	select {
	case evt := <-bob:
		if evt.Index != 3 {
			t.Fatalf("index = %d", evt.Index)
		}
	default:
		t.Fatal("bob should have an event")
	}
	select {
	case evt := <-carol:
		t.Fatalf("carol got %+v", evt)
	default:
	}
}

func TestHubPublishDoesNotBlockOnFullBuffer(t *testing.T) {
	h := NewHub()
	_, cancel := h.Subscribe(1, 1)
	defer cancel()

	done := make(chan struct{})
	go func() {
		h.Publish(1, models.NotificationEvent{Index: 0})
		h.Publish(1, models.NotificationEvent{Index: 1})
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Publish blocked")
	}
}

func TestHubUnsubscribe(t *testing.T) {
	h := NewHub()
	ch, cancel := h.Subscribe(1, 1)
	if h.Subscribers(1) != 1 {
		t.Fatal("expected one subscriber")
	}
	cancel()
	cancel()
	if h.Subscribers(1) != 0 {
		t.Fatal("expected no subscribers")
	}
	if _, ok := <-ch; ok {
		t.Fatal("channel should be closed")
	}
	h.Publish(1, models.NotificationEvent{})
}

func TestStreamDeliversEvents(t *testing.T) {
	gin.SetMode(gin.TestMode)
	hub := NewHub()
	r := gin.New()
	r.GET("/stream", func(c *gin.Context) {
		c.Set(middleware.CtxUserKey, &models.User{ID: 7, Role: models.RoleUser})
		c.Next()
	}, NewStreamHandler(hub, nil).Stream)

	srv := httptest.NewServer(r)
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	conn, _, err := websocket.Dial(ctx, "ws"+strings.TrimPrefix(srv.URL, "http")+"/stream", nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "")

	var ready map[string]any
	if err := wsjson.Read(ctx, conn, &ready); err != nil || ready["type"] != "ready" {
		t.Fatalf("ready frame = %v, err = %v", ready, err)
	}

	hub.Publish(7, models.NotificationEvent{Index: 2, Notification: models.Notification{Title: "new task assigned"}})

	var frame struct {
		Type         string              `json:"type"`
		Index        int                 `json:"index"`
		Notification models.Notification `json:"notification"`
	}
	if err := wsjson.Read(ctx, conn, &frame); err != nil {
		t.Fatalf("read: %v", err)
	}
	if frame.Type != "notification" || frame.Index != 2 || frame.Notification.Title != "new task assigned" {
		t.Fatalf("frame = %+v", frame)
	}
}

func TestStreamRequiresIdentity(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/stream", NewStreamHandler(NewHub(), nil).Stream)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/stream", nil))
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("code = %d", w.Code)
	}
}
