package api

import (
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/talgya/tradelanes/internal/engine"
)

const (
	maxStreamConns = 8
	streamBuffer   = 16
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
)

// Hub fans daily reports out to websocket subscribers.
// A subscriber that falls behind loses reports rather than stalling the session.
type Hub struct {
	mu     sync.Mutex
	nextID int
	subs   map[int]chan engine.DayReport
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{subs: make(map[int]chan engine.DayReport)}
}

// Subscribe registers a new subscriber. ok is false when the hub is full.
func (h *Hub) Subscribe() (id int, ch <-chan engine.DayReport, ok bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.subs) >= maxStreamConns {
		return 0, nil, false
	}
	h.nextID++
	c := make(chan engine.DayReport, streamBuffer)
	h.subs[h.nextID] = c
	return h.nextID, c, true
}

// Unsubscribe removes a subscriber and closes its channel.
func (h *Hub) Unsubscribe(id int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if c, ok := h.subs[id]; ok {
		delete(h.subs, id)
		close(c)
	}
}

// Len returns the number of subscribers.
func (h *Hub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

// Broadcast delivers a report to every subscriber without blocking.
// Its signature matches engine.Session.OnReport.
func (h *Hub) Broadcast(r engine.DayReport) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for id, c := range h.subs {
		select {
		case c <- r:
		default:
			slog.Warn("stream subscriber lagging, report dropped", "sub_id", id, "day", r.Day)
		}
	}
}

type streamMessage struct {
	Type    string `json:"type"` // "hello" or "day"
	Payload any    `json:"payload"`
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// handleStream upgrades to a websocket and pushes a message per advanced day.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	id, reports, ok := s.Hub.Subscribe()
	if !ok {
		httpError(w, http.StatusServiceUnavailable, "too many stream connections")
		return
	}
	defer s.Hub.Unsubscribe(id)

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("stream upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	slog.Info("stream client connected", "sub_id", id)

	// The read side only services control frames and notices disconnects.
	closed := make(chan struct{})
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	hello := streamMessage{Type: "hello", Payload: s.status()}
	conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := conn.WriteJSON(hello); err != nil {
		return
	}

	ping := time.NewTicker(pingPeriod)
	defer ping.Stop()

	for {
		select {
		case rep, ok := <-reports:
			if !ok {
				return
			}
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(streamMessage{Type: "day", Payload: rep}); err != nil {
				slog.Info("stream client write failed", "sub_id", id, "error", err)
				return
			}
		case <-ping.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-closed:
			slog.Info("stream client disconnected", "sub_id", id)
			return
		}
	}
}
