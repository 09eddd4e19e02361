// Package ws pushes entity-change events to connected dashboard clients so
// open dashboards refresh without polling.
package ws

import (
	"encoding/json"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"stationsync/internal/models"
)

// Event is one entity change broadcast to every client.
type Event struct {
	// Type is "<entity>.<action>", e.g. "station.created" or "record.deleted".
	Type string `json:"type"`
	// Payload is the affected entity, or its id for deletions.
	Payload any    `json:"payload,omitempty"`
	At      string `json:"at"`
}

// Hub tracks client connections and fans events out to them.
type Hub struct {
	mu     sync.RWMutex
	conns  map[string]*Connection
	nextID int64
	logger *zap.Logger
}

// NewHub builds an empty hub.
func NewHub(logger *zap.Logger) *Hub {
	return &Hub{conns: make(map[string]*Connection), logger: logger}
}

// Register wraps a raw websocket connection and tracks it until it closes.
func (h *Hub) Register(ws *websocket.Conn) *Connection {
	h.mu.Lock()
	h.nextID++
	id := "c" + strconv.FormatInt(h.nextID, 10)
	conn := NewConnection(id, ws, 10*time.Second, h.logger, h.remove)
	h.conns[id] = conn
	n := len(h.conns)
	h.mu.Unlock()

	h.logger.Info("dashboard client connected", zap.String("conn_id", id), zap.Int("clients", n))
	return conn
}

func (h *Hub) remove(id string) {
	h.mu.Lock()
	delete(h.conns, id)
	n := len(h.conns)
	h.mu.Unlock()
	h.logger.Info("dashboard client disconnected", zap.String("conn_id", id), zap.Int("clients", n))
}

// Clients reports the number of connected clients.
func (h *Hub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.conns)
}

// Broadcast sends the event to every connected client. Marshal failures are
// logged and dropped; a broadcast must never fail the triggering request.
func (h *Hub) Broadcast(eventType string, payload any) {
	data, err := json.Marshal(Event{Type: eventType, Payload: payload, At: models.NowISO()})
	if err != nil {
		h.logger.Warn("failed to encode event", zap.String("type", eventType), zap.Error(err))
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, conn := range h.conns {
		conn.Send(data)
	}
}
