package realtime

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/ashureev/commcoach/internal/identity"
	"github.com/coder/websocket"
)

const (
	inboundQueueSize = 32
	readLimitBytes   = 64 << 10
	disconnectGrace  = 5 * time.Second
)

// WebSocketHandler serves the practice protocol over WebSocket.
type WebSocketHandler struct {
	conductor     *Conductor
	allowedOrigin string
	isDev         bool
}

// NewWebSocketHandler creates a new WebSocket handler.
func NewWebSocketHandler(conductor *Conductor, allowedOrigin string, isDev bool) *WebSocketHandler {
	return &WebSocketHandler{
		conductor:     conductor,
		allowedOrigin: allowedOrigin,
		isDev:         isDev,
	}
}

// wsConn adapts websocket.Conn to Emitter.
type wsConn struct {
	conn *websocket.Conn
}

func (c *wsConn) Emit(ctx context.Context, f Frame) error {
	data, err := json.Marshal(f)
	if err != nil {
		return err
	}
	return c.conn.Write(ctx, websocket.MessageText, data)
}

func (c *wsConn) Close(reason string) error {
	return c.conn.Close(websocket.StatusNormalClosure, reason)
}

// ServeHTTP implements http.Handler for WebSocket upgrade.
func (h *WebSocketHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	userID := identity.UserIDFromContext(r.Context())
	slog.Info("WebSocket connection request", "user_id", userID, "ip", identity.IPFromRequest(r))

	if !h.checkOrigin(r) {
		http.Error(w, "origin not allowed", http.StatusForbidden)
		return
	}

	ws, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		slog.Error("Failed to accept WebSocket", "error", err, "user_id", userID)
		return
	}
	ws.SetReadLimit(readLimitBytes)
	defer func() {
		if closeErr := ws.Close(websocket.StatusNormalClosure, "session ended"); closeErr != nil {
			slog.Debug("Failed to close websocket", "error", closeErr, "user_id", userID)
		}
	}()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	peer := h.conductor.NewPeer(userID, &wsConn{conn: ws})
	queue := make(chan []byte, inboundQueueSize)

	var wg sync.WaitGroup
	wg.Add(1)

	// Read loop: WebSocket -> queue. Closing the socket cancels the in-flight turn.
	go func() {
		defer wg.Done()
		defer close(queue)
		defer cancel()
		h.readLoop(ctx, ws, queue, userID)
	}()

	ended := h.processLoop(ctx, peer, queue, userID)
	if ended {
		if closeErr := ws.Close(websocket.StatusNormalClosure, "session ended"); closeErr != nil {
			slog.Debug("Failed to close websocket", "error", closeErr, "user_id", userID)
		}
	}
	cancel()
	wg.Wait()

	if !ended {
		disconnectCtx, done := context.WithTimeout(context.Background(), disconnectGrace)
		peer.Disconnect(disconnectCtx)
		done()
	}
	slog.Info("Practice connection closed", "user_id", userID, "ended_by_client", ended)
}

func (h *WebSocketHandler) checkOrigin(r *http.Request) bool {
	if h.isDev {
		return true
	}
	origin := r.Header.Get("Origin")
	if origin == "" || h.allowedOrigin == "*" {
		return true
	}
	if origin == h.allowedOrigin {
		return true
	}
	slog.Warn("WebSocket origin rejected", "origin", origin, "allowed", h.allowedOrigin)
	return false
}

func (h *WebSocketHandler) readLoop(ctx context.Context, ws *websocket.Conn, queue chan<- []byte, userID string) {
	for {
		_, message, err := ws.Read(ctx)
		if err != nil {
			if websocket.CloseStatus(err) != -1 || ctx.Err() != nil {
				slog.Debug("WebSocket closed", "user_id", userID)
			} else {
				slog.Warn("WebSocket read error", "error", err, "user_id", userID)
			}
			return
		}
		select {
		case queue <- message:
		case <-ctx.Done():
			return
		}
	}
}

// processLoop handles queued messages one at a time. It reports whether the
// client ended the session explicitly.
func (h *WebSocketHandler) processLoop(ctx context.Context, peer *Peer, queue <-chan []byte, userID string) bool {
	for message := range queue {
		done, err := peer.Handle(ctx, message)
		if err != nil {
			slog.Debug("Stopping practice connection", "user_id", userID, "error", err)
			return false
		}
		if done {
			return true
		}

		// Update last seen asynchronously with timeout.
		go func() {
			updateCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := h.conductor.repo.UpdateLastSeen(updateCtx, userID, time.Now()); err != nil {
				slog.Warn("Failed to update last seen", "error", err)
			}
		}()
	}
	return false
}
