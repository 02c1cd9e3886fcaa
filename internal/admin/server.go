package admin

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"numeri/internal/book"
	"numeri/internal/pluginapi"
)

// PluginSource reports which plugins the Kernel has loaded, by role.
type PluginSource interface {
	Handles(role pluginapi.Role) []pluginapi.PluginHandle
}

// broadcastInterval is how often Start's background poller fans the
// registry's current book state out over the Hub to connected /ws clients.
const broadcastInterval = 500 * time.Millisecond

// Server is the admin introspection HTTP+WebSocket server. It never
// accepts writes: every route is a read of Kernel-owned state.
type Server struct {
	addr     string
	plugins  PluginSource
	registry *book.Registry
	hub      *Hub
	server   *http.Server
	logger   *slog.Logger
	upgrader websocket.Upgrader

	cancel context.CancelFunc
}

// NewServer builds a Server bound to addr (e.g. ":9090").
func NewServer(addr string, plugins PluginSource, registry *book.Registry, logger *slog.Logger) *Server {
	hub := NewHub(logger)
	s := &Server{
		addr:     addr,
		plugins:  plugins,
		registry: registry,
		hub:      hub,
		logger:   logger.With("component", "admin-server"),
		upgrader: websocket.Upgrader{ReadBufferSize: 1024, WriteBufferSize: 1024},
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/api/plugins", s.handlePlugins)
	mux.HandleFunc("/api/books", s.handleBooks)
	mux.HandleFunc("/ws", s.handleWebSocket)
	mux.Handle("/metrics", promhttp.Handler())

	s.server = &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return s
}

// Start runs the Hub loop, the broadcast poller, and the HTTP server. It
// blocks until the server stops (normally via Stop); callers should run it
// on its own goroutine.
func (s *Server) Start() error {
	go s.hub.Run()

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	go s.broadcastLoop(ctx)

	s.logger.Info("admin server starting", "addr", s.addr)
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("admin: server error: %w", err)
	}
	return nil
}

// Stop gracefully shuts down the HTTP server and the broadcast poller.
func (s *Server) Stop(ctx context.Context) error {
	if s.cancel != nil {
		s.cancel()
	}
	return s.server.Shutdown(ctx)
}

// broadcastLoop periodically fans the registry's current book state out to
// every connected /ws client, so BroadcastSnapshot isn't dead wiring — the
// teacher's internal/api hub pushed trade events the same way, off a ticker
// rather than per-mutation, since the Hub has no per-symbol change signal.
func (s *Server) broadcastLoop(ctx context.Context) {
	ticker := time.NewTicker(broadcastInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if views := s.bookViews(); len(views) > 0 {
				s.hub.BroadcastSnapshot(views)
			}
		}
	}
}

type pluginView struct {
	Role string `json:"role"`
	Name string `json:"name"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func (s *Server) handlePlugins(w http.ResponseWriter, r *http.Request) {
	var out []pluginView
	for _, role := range []pluginapi.Role{pluginapi.RoleIngestor, pluginapi.RoleAlgorithm, pluginapi.RoleExecutionEngine} {
		for _, h := range s.plugins.Handles(role) {
			out = append(out, pluginView{Role: role.String(), Name: h.Name()})
		}
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(out)
}

type bookView struct {
	Symbol  string  `json:"symbol"`
	Version uint64  `json:"version"`
	BestBid float64 `json:"best_bid"`
	BestAsk float64 `json:"best_ask"`
}

func (s *Server) bookViews() []bookView {
	var out []bookView
	for _, symbol := range s.registry.Symbols() {
		b, ok := s.registry.Current(symbol)
		if !ok {
			continue
		}
		out = append(out, bookView{
			Symbol:  symbol,
			Version: b.Version(),
			BestBid: b.BestBid(),
			BestAsk: b.BestAsk(),
		})
	}
	return out
}

func (s *Server) handleBooks(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(s.bookViews())
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("admin: websocket upgrade failed", "error", err)
		return
	}
	c := &client{conn: conn, send: make(chan []byte, 64)}
	s.hub.register <- c
	go c.writePump()
	go c.readPump(s.hub)
}
