// Package feed streams terminal events to live viewers. The Hub is an
// EventLog sink fanning every appended event out over WebSocket, with
// per-terminal subscription filtering; the renderer turns events into the
// compact colored lines used by the feed CLI.
package feed

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"

	"nhooyr.io/websocket"

	"github.com/JoshuaWink/terminal-mcp-server/internal/event"
)

// Hub fans events out to connected viewers. Slow viewers drop messages
// rather than block the event append path.
type Hub struct {
	register   chan *Client
	unregister chan *Client
	broadcast  chan event.Event

	mu      sync.RWMutex
	clients map[string]*Client

	running atomic.Bool
}

func NewHub() *Hub {
	return &Hub{
		register:   make(chan *Client, 16),
		unregister: make(chan *Client, 16),
		broadcast:  make(chan event.Event, 256),
		clients:    make(map[string]*Client),
	}
}

// Consume implements event.Sink. It never blocks; when the broadcast queue
// is full the event is dropped for viewers (the in-memory log still has it).
func (h *Hub) Consume(e event.Event) {
	select {
	case h.broadcast <- e:
	default:
		slog.Debug("feed broadcast queue full, dropping event", "seq", e.Seq)
	}
}

// Run owns the client set until ctx is canceled, at which point every
// viewer connection is torn down.
func (h *Hub) Run(ctx context.Context) {
	h.running.Store(true)
	defer h.running.Store(false)

	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for _, c := range h.clients {
				close(c.send)
			}
			h.clients = make(map[string]*Client)
			h.mu.Unlock()
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client.id] = client
			h.mu.Unlock()
			go client.writePump(ctx)
			go client.readPump(ctx)
			slog.Debug("feed client connected", "client", client.id, "total", h.ClientCount())

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client.id]; ok {
				delete(h.clients, client.id)
				close(client.send)
			}
			h.mu.Unlock()
			slog.Debug("feed client disconnected", "client", client.id, "total", h.ClientCount())

		case e := <-h.broadcast:
			data, err := json.Marshal(EventMessage{Type: "event", Event: e})
			if err != nil {
				slog.Warn("failed to marshal feed event", "error", err)
				continue
			}
			h.mu.RLock()
			for _, c := range h.clients {
				if !c.wantsTerminal(e.TerminalID) {
					continue
				}
				select {
				case c.send <- data:
				default:
					slog.Debug("feed client send buffer full, dropping event", "client", c.id)
				}
			}
			h.mu.RUnlock()
		}
	}
}

// HandleWebSocket upgrades the request and registers the viewer.
func (h *Hub) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		slog.Warn("websocket accept failed", "error", err)
		return
	}

	client := newClient(conn, h)
	select {
	case h.register <- client:
	default:
		slog.Warn("feed hub not accepting connections")
		conn.Close(websocket.StatusTryAgainLater, "server busy")
	}
}

func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) sendError(c *Client, message string) {
	data, err := json.Marshal(ErrorMessage{Type: "error", Message: message})
	if err != nil {
		return
	}
	select {
	case c.send <- data:
	default:
	}
}

func (h *Hub) unregisterClient(c *Client) {
	if !h.running.Load() {
		c.conn.Close(websocket.StatusNormalClosure, "")
		return
	}
	select {
	case h.unregister <- c:
	default:
		slog.Debug("feed unregister queue full, forcing close", "client", c.id)
		c.conn.Close(websocket.StatusNormalClosure, "")
	}
}
