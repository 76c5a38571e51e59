// Package gateway exposes the dashboard surface: a WebSocket hub that fans
// out per-tick analysis snapshots, and the REST control API (status, trades,
// logs, toggle/run/reset/config) with an optional TOTP check on every
// mutating action.
package gateway

import (
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Hub manages WebSocket clients and snapshot fan-out.
type Hub struct {
	mu      sync.RWMutex
	clients map[*Client]bool

	// latest snapshot per account, replayed to newly connected clients
	latest map[int64]latestEntry
}

type latestEntry struct {
	Data json.RawMessage
	TS   time.Time
}

// NewHub creates a Hub.
func NewHub() *Hub {
	return &Hub{
		clients: make(map[*Client]bool),
		latest:  make(map[int64]latestEntry),
	}
}

// Broadcast fans a tick snapshot out to every connected client and records
// it as the latest state for the account. Slow clients are skipped, never
// blocked on.
func (h *Hub) Broadcast(accountID int64, data []byte) {
	envelope, err := json.Marshal(map[string]any{
		"type":       "tick",
		"account_id": accountID,
		"data":       json.RawMessage(data),
		"ts":         time.Now().UTC().Format(time.RFC3339Nano),
	})
	if err != nil {
		log.Printf("[gateway] envelope marshal: %v", err)
		return
	}

	h.mu.Lock()
	h.latest[accountID] = latestEntry{Data: data, TS: time.Now()}
	for client := range h.clients {
		select {
		case client.send <- envelope:
		default:
		}
	}
	h.mu.Unlock()
}

// HandleWSRequest registers an upgraded connection and starts its pumps.
func (h *Hub) HandleWSRequest(conn *websocket.Conn) {
	client := &Client{
		conn: conn,
		send: make(chan []byte, 256),
		hub:  h,
	}

	conn.EnableWriteCompression(true)

	h.mu.Lock()
	h.clients[client] = true
	count := len(h.clients)
	h.mu.Unlock()

	log.Printf("[gateway] ws client connected (%d total)", count)

	go client.sendInitialState()
	go client.writePump()
	go client.readPump()
}

// RemoveClient removes a client from the hub.
func (h *Hub) RemoveClient(c *Client) {
	h.mu.Lock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
	h.mu.Unlock()
}

// ClientCount returns the number of connected WS clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
