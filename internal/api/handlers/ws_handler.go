package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"

	"github.com/MoAftaab/slidecast/internal/services"
	"github.com/MoAftaab/slidecast/internal/utils"
	"github.com/MoAftaab/slidecast/internal/workers"
)

type WSHandler struct {
	svc      services.PresentationService
	redis    *redis.Client
	upgrader websocket.Upgrader
}

func NewWSHandler(svc services.PresentationService, rdb *redis.Client) *WSHandler {
	return &WSHandler{
		svc:   svc,
		redis: rdb,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true }, // TODO: restrict origin in prod
		},
	}
}

type wsConn struct {
	c  *websocket.Conn
	mu sync.Mutex
}

func (w *wsConn) writeText(b []byte) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.c.SetWriteDeadline(time.Now().Add(10 * time.Second))
	return w.c.WriteMessage(websocket.TextMessage, b)
}

// StatusWS pushes pipeline stage updates for one presentation. The socket is
// one-way: clients receive JSON status messages and may close whenever they
// have seen a terminal state.
func (h *WSHandler) StatusWS(c *gin.Context) {
	presentationID := c.Param("id")
	if presentationID == "" {
		writeError(c, utils.E(utils.CodeInvalidArgument, "WSHandler.StatusWS", "missing presentation id", nil))
		return
	}

	st, err := h.svc.GetStatus(c.Request.Context(), presentationID)
	if err != nil {
		writeError(c, err)
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// upgrade already wrote response in most cases
		return
	}
	defer conn.Close()

	wc := &wsConn{c: conn}
	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	// initial snapshot, so late subscribers see the current state immediately
	snapshot, _ := json.Marshal(map[string]any{
		"type":     "status",
		"status":   st.Status,
		"progress": st.Progress,
	})
	if err := wc.writeText(snapshot); err != nil {
		return
	}

	pubsub := h.redis.Subscribe(ctx, workers.StatusChannel(presentationID))
	defer pubsub.Close()

	// reader: only to detect client close. Cancelling ctx unparks the
	// forward loop immediately instead of waiting for the next publish.
	go func() {
		defer cancel()
		_ = conn.SetReadDeadline(time.Now().Add(10 * time.Minute))
		conn.SetPongHandler(func(string) error {
			_ = conn.SetReadDeadline(time.Now().Add(10 * time.Minute))
			return nil
		})
		for {
			if _, _, rerr := conn.ReadMessage(); rerr != nil {
				return
			}
		}
	}()

	forwardStatus(ctx, pubsub.Channel(), wc.writeText)
}

// forwardStatus pushes every pub/sub payload to the client until the
// context is cancelled, the subscription closes, or a write fails.
func forwardStatus(ctx context.Context, ch <-chan *redis.Message, write func([]byte) error) {
	for {
		select {
		case <-ctx.Done():
			return
		case m, ok := <-ch:
			if !ok {
				return
			}
			// forward as-is (payload expected JSON string)
			if err := write([]byte(m.Payload)); err != nil {
				return
			}
		}
	}
}
