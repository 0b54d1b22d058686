package events

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"innerworld-backend/internal/types"

	"github.com/gorilla/websocket"
)

// Hub is a gorilla/websocket-backed Broadcaster: it fans out each
// session's EventEnvelope stream to every connection currently
// subscribed to that session, the real-time counterpart to the
// teacher's API-Gateway-WebSocket connection store in
// cmd/websocket-handler, adapted from a Lambda per-invocation
// connection lookup into a long-running in-process registry.
type Hub struct {
	upgrader websocket.Upgrader

	mu          sync.RWMutex
	subscribers map[string]map[*connection]struct{} // sessionID -> set of connections
	sequence    map[string]*uint64
}

type connection struct {
	ws   *websocket.Conn
	send chan types.EventEnvelope
}

// NewHub builds a Hub. CheckOrigin is permissive by default, matching
// the teacher's demo-app posture (no cross-origin browser restriction
// for the internal dashboard); production deployments should tighten
// this via Upgrader.CheckOrigin.
func NewHub() *Hub {
	return &Hub{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		subscribers: make(map[string]map[*connection]struct{}),
		sequence:    make(map[string]*uint64),
	}
}

// Broadcast implements Broadcaster. Delivery is best-effort: a slow or
// dead connection's send channel fills up and the envelope is dropped
// for that connection rather than blocking the orchestration loop.
func (h *Hub) Broadcast(ctx context.Context, envelope types.EventEnvelope) {
	h.mu.Lock()
	seq, ok := h.sequence[envelope.SessionID]
	if !ok {
		var zero uint64
		seq = &zero
		h.sequence[envelope.SessionID] = seq
	}
	envelope.Sequence = atomic.AddUint64(seq, 1)
	conns := h.subscribers[envelope.SessionID]
	h.mu.Unlock()

	for c := range conns {
		select {
		case c.send <- envelope:
		default:
			log.Printf("events hub: dropping envelope for session %s, subscriber send buffer full", envelope.SessionID)
		}
	}
}

// ServeSession upgrades the HTTP request to a WebSocket and streams
// the named session's events to it until the client disconnects.
func (h *Hub) ServeSession(sessionID string, w http.ResponseWriter, r *http.Request) {
	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("events hub: upgrade failed: %v", err)
		return
	}

	conn := &connection{ws: ws, send: make(chan types.EventEnvelope, 32)}
	h.subscribe(sessionID, conn)
	defer h.unsubscribe(sessionID, conn)

	go h.writePump(conn)
	h.readPump(conn)
}

func (h *Hub) subscribe(sessionID string, c *connection) {
	h.mu.Lock()
	defer h.mu.Unlock()

	set, ok := h.subscribers[sessionID]
	if !ok {
		set = make(map[*connection]struct{})
		h.subscribers[sessionID] = set
	}
	set[c] = struct{}{}
}

func (h *Hub) unsubscribe(sessionID string, c *connection) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if set, ok := h.subscribers[sessionID]; ok {
		delete(set, c)
		if len(set) == 0 {
			delete(h.subscribers, sessionID)
		}
	}
	close(c.send)
	_ = c.ws.Close()
}

func (h *Hub) writePump(c *connection) {
	for envelope := range c.send {
		_ = c.ws.SetWriteDeadline(time.Now().Add(10 * time.Second))
		payload, err := json.Marshal(envelope)
		if err != nil {
			continue
		}
		if err := c.ws.WriteMessage(websocket.TextMessage, payload); err != nil {
			return
		}
	}
}

func (h *Hub) readPump(c *connection) {
	// The client has nothing to say to us; this loop exists only to
	// detect disconnects (control frames, EOF).
	for {
		if _, _, err := c.ws.ReadMessage(); err != nil {
			return
		}
	}
}
