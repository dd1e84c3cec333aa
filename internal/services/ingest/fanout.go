package ingest

import (
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/ladybugteam/ladybug-backend/internal/model"
)

const (
	sessionSendBuffer = 16
	writeWait         = 5 * time.Second
)

// session is one connected dashboard websocket.
type session struct {
	conn *websocket.Conn
	send chan model.TrapEvent
}

// Hub fans ingestion results out to connected dashboard sessions with
// at-least-once semantics per session. A new session first receives a full
// snapshot of the known trap/farm states, then the incremental stream. A
// session too slow to drain its buffer is dropped rather than letting it
// stall the broadcast.
type Hub struct {
	cache    *StateCache
	logger   *zap.Logger
	upgrader websocket.Upgrader

	mu       sync.Mutex
	sessions map[*session]struct{}
}

func NewHub(cache *StateCache, logger *zap.Logger) *Hub {
	return &Hub{
		cache:  cache,
		logger: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// dashboard is served from another origin in dev
			CheckOrigin: func(*http.Request) bool { return true },
		},
		sessions: make(map[*session]struct{}),
	}
}

// Sessions returns the number of connected dashboard sessions.
func (h *Hub) Sessions() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.sessions)
}

// Broadcast queues the event on every session; blocked sessions are dropped.
func (h *Hub) Broadcast(evt model.TrapEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for s := range h.sessions {
		select {
		case s.send <- evt:
		default:
			h.logger.Warn("dropping slow dashboard session")
			h.removeLocked(s)
		}
	}
}

// ServeHTTP upgrades GET /ws. The session joins the broadcast set before the
// snapshot is written; events arriving in between queue on the send buffer and
// the write loop only starts once the snapshot is on the wire, so every
// session sees snapshot-then-stream order with no join-window gap.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("ws upgrade failed", zap.Error(err))
		return
	}

	s := &session{conn: conn, send: make(chan model.TrapEvent, sessionSendBuffer)}
	h.mu.Lock()
	h.sessions[s] = struct{}{}
	h.mu.Unlock()
	liveSessions.Inc()

	snap := model.TrapEvent{
		ID:        uuid.NewString(),
		Type:      model.EventSnapshot,
		Data:      h.cache.Snapshot(),
		Timestamp: time.Now(),
	}
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := conn.WriteJSON(snap); err != nil {
		h.logger.Warn("ws snapshot write failed", zap.Error(err))
		h.remove(s)
		return
	}

	go h.writeLoop(s)
	go h.readLoop(s)
}

func (h *Hub) writeLoop(s *session) {
	for evt := range s.send {
		_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := s.conn.WriteJSON(evt); err != nil {
			h.remove(s)
			return
		}
	}
}

// readLoop discards inbound frames; its job is to notice the close.
func (h *Hub) readLoop(s *session) {
	for {
		if _, _, err := s.conn.ReadMessage(); err != nil {
			h.remove(s)
			return
		}
	}
}

func (h *Hub) remove(s *session) {
	h.mu.Lock()
	h.removeLocked(s)
	h.mu.Unlock()
}

func (h *Hub) removeLocked(s *session) {
	if _, ok := h.sessions[s]; !ok {
		return
	}
	delete(h.sessions, s)
	close(s.send)
	_ = s.conn.Close()
	liveSessions.Dec()
}
