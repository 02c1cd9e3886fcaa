// Package admin is a supplemented feature (not named by spec.md itself,
// but compatible with its Non-goals — see SPEC_FULL.md and DESIGN.md): a
// read-only introspection surface exposing loaded plugins, queue depths,
// and published book versions over HTTP and WebSocket, plus the
// Prometheus /metrics endpoint internal/metrics registers into.
//
// Grounded on the teacher's internal/api package: Hub/Client is a direct
// adaptation of its WebSocket broadcast hub, generalized from dashboard
// trade events to admin snapshots.
package admin

import (
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/gorilla/websocket"
)

// Hub broadcasts JSON-encoded snapshots to every connected admin client.
type Hub struct {
	clients    map[*client]bool
	register   chan *client
	unregister chan *client
	broadcast  chan []byte
	mu         sync.RWMutex
	logger     *slog.Logger
}

type client struct {
	conn *websocket.Conn
	send chan []byte
}

// NewHub creates a Hub. Call Run on its own goroutine before accepting
// connections.
func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		clients:    make(map[*client]bool),
		register:   make(chan *client),
		unregister: make(chan *client),
		broadcast:  make(chan []byte, 256),
		logger:     logger.With("component", "admin-hub"),
	}
}

// Run is the Hub's event loop.
func (h *Hub) Run() {
	for {
		select {
		case c := <-h.register:
			h.mu.Lock()
			h.clients[c] = true
			h.mu.Unlock()

		case c := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[c]; ok {
				delete(h.clients, c)
				close(c.send)
			}
			h.mu.Unlock()

		case msg := <-h.broadcast:
			h.mu.RLock()
			for c := range h.clients {
				select {
				case c.send <- msg:
				default:
					close(c.send)
					delete(h.clients, c)
				}
			}
			h.mu.RUnlock()
		}
	}
}

// BroadcastSnapshot encodes v as JSON and fans it out to every connected
// client. A client that cannot keep up is disconnected rather than
// allowed to back-pressure the broadcaster.
func (h *Hub) BroadcastSnapshot(v any) {
	b, err := json.Marshal(v)
	if err != nil {
		h.logger.Error("admin: marshal snapshot", "error", err)
		return
	}
	select {
	case h.broadcast <- b:
	default:
		h.logger.Warn("admin: broadcast channel full, dropping snapshot")
	}
}

func (c *client) writePump() {
	defer c.conn.Close()
	for msg := range c.send {
		if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			return
		}
	}
	_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
}

func (c *client) readPump(h *Hub) {
	defer func() {
		h.unregister <- c
	}()
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}
