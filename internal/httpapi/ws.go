package httpapi

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/focuslab/focusguard/internal/api"
	"github.com/focuslab/focusguard/internal/repository"
	"github.com/gorilla/websocket"
)

type wsMessage struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

type wsClient struct {
	conn *websocket.Conn
	send chan []byte
}

func newWSClient(conn *websocket.Conn) *wsClient {
	c := &wsClient{
		conn: conn,
		send: make(chan []byte, 16),
	}
	go c.writePump()
	return c
}

func (c *wsClient) writePump() {
	defer c.conn.Close()
	for msg := range c.send {
		if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			return
		}
	}
}

// Hub pushes each accepted data point to the owning user's connected
// websocket clients. It complements the polling live-status endpoint; missing
// a frame is fine since the next report arrives within the analysis cadence.
type Hub struct {
	mu       sync.RWMutex
	clients  map[string]map[*wsClient]bool
	lastSent map[string]time.Time
	throttle time.Duration
}

func NewHub(throttle time.Duration) *Hub {
	return &Hub{
		clients:  make(map[string]map[*wsClient]bool),
		lastSent: make(map[string]time.Time),
		throttle: throttle,
	}
}

func (h *Hub) AddClient(userID string, conn *websocket.Conn) *wsClient {
	c := newWSClient(conn)
	h.mu.Lock()
	if h.clients[userID] == nil {
		h.clients[userID] = make(map[*wsClient]bool)
	}
	h.clients[userID][c] = true
	h.mu.Unlock()
	return c
}

func (h *Hub) RemoveClient(userID string, c *wsClient) {
	h.mu.Lock()
	if set, ok := h.clients[userID]; ok {
		if set[c] {
			delete(set, c)
			close(c.send)
		}
		if len(set) == 0 {
			delete(h.clients, userID)
			delete(h.lastSent, userID)
		}
	}
	h.mu.Unlock()
}

// PublishActivity implements session.ActivityPublisher.
func (h *Hub) PublishActivity(userID string, activity repository.Activity) {
	// Sends stay under the hub lock: RemoveClient closes send channels under
	// the same lock, so a send can never race a close. The sends are
	// non-blocking, slow clients just drop the frame.
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.throttle > 0 {
		if last, ok := h.lastSent[userID]; ok && time.Since(last) < h.throttle {
			return
		}
		h.lastSent[userID] = time.Now()
	}
	if len(h.clients[userID]) == 0 {
		return
	}

	data, err := json.Marshal(wsMessage{
		Type: "activity",
		Payload: api.ActivityPayload{
			Service:      activity.Service,
			Productivity: activity.Productivity,
			Reason:       activity.Reason,
			Timestamp:    activity.Timestamp,
		},
	})
	if err != nil {
		slog.Error("failed to marshal activity frame", "error", err)
		return
	}
	for c := range h.clients[userID] {
		select {
		case c.send <- data:
		default:
			// Client too slow, drop the frame.
		}
	}
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.authorize(r)
	if !ok {
		// Browser websocket clients cannot set headers, so accept the token
		// as a query parameter too.
		if token := r.URL.Query().Get("token"); token != "" {
			userID, ok = s.authorizer.UserIDForToken(token)
		}
	}
	if !ok {
		writeJSON(w, http.StatusUnauthorized, api.MessageResponse{Message: "unauthorized"})
		return
	}

	upgrader := websocket.Upgrader{
		CheckOrigin: func(*http.Request) bool { return true },
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Error("websocket upgrade failed", "error", err)
		return
	}

	slog.Info("websocket client connected", "user_id", userID, "remote", r.RemoteAddr)
	c := s.hub.AddClient(userID, conn)
	go func() {
		defer func() {
			s.hub.RemoveClient(userID, c)
			slog.Info("websocket client disconnected", "user_id", userID, "remote", r.RemoteAddr)
		}()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}
