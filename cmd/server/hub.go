package main

import (
	"context"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"securemint-lab/internal/observability"
)

// streamMessage is one frame on the /ws/events stream.
type streamMessage struct {
	RunID      string      `json:"run_id"`
	ScenarioID string      `json:"scenario_id"`
	Timestamp  time.Time   `json:"timestamp"`
	Kind       string      `json:"kind"`
	Details    interface{} `json:"details,omitempty"`
}

const (
	writeTimeout = 10 * time.Second
	pingInterval = 30 * time.Second

	// Slow clients get dropped once their buffer fills.
	clientBufferSize = 256
)

// hub fans broadcast messages out to connected websocket clients. A client
// that cannot keep up loses its connection rather than blocking the suite.
type hub struct {
	upgrader websocket.Upgrader
	logger   *log.Logger

	mu      sync.Mutex
	clients map[*client]struct{}
}

type client struct {
	conn *websocket.Conn
	send chan streamMessage
}

func newHub(logger *log.Logger) *hub {
	return &hub{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// The stream is read-only public data; any origin may subscribe.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		logger:  logger,
		clients: make(map[*client]struct{}),
	}
}

// run closes every connection when the server shuts down.
func (h *hub) run(ctx context.Context) {
	<-ctx.Done()

	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		close(c.send)
		delete(h.clients, c)
	}
}

// broadcast queues a message for every connected client.
func (h *hub) broadcast(msg streamMessage) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for c := range h.clients {
		select {
		case c.send <- msg:
		default:
			// Buffer full: drop the client.
			close(c.send)
			delete(h.clients, c)
			observability.DefaultMetrics.StreamClients.Dec()
		}
	}
}

func (h *hub) clientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// handleWS upgrades the connection and streams events until the client
// disconnects or falls behind.
func (h *hub) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Printf("WebSocket upgrade failed: %v", err)
		return
	}

	c := &client{
		conn: conn,
		send: make(chan streamMessage, clientBufferSize),
	}

	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
	observability.DefaultMetrics.StreamClients.Inc()

	go h.writeLoop(c)
	go h.readLoop(c)
}

// writeLoop pushes queued messages and keepalive pings to one client.
func (h *hub) writeLoop(c *client) {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteJSON(msg); err != nil {
				h.remove(c)
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				h.remove(c)
				return
			}
		}
	}
}

// readLoop drains the connection so pongs and close frames are processed.
func (h *hub) readLoop(c *client) {
	defer func() {
		h.remove(c)
		c.conn.Close()
	}()

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

// remove unregisters a client; safe to call more than once.
func (h *hub) remove(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[c]; ok {
		close(c.send)
		delete(h.clients, c)
		observability.DefaultMetrics.StreamClients.Dec()
	}
}
