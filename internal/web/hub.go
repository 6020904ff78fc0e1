package web

import (
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/sweeney/motion-sensor/internal/logic"
)

const writeWait = 5 * time.Second

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // status page is served on the local network only
	},
}

// EventMessage is the JSON frame sent to websocket clients.
type EventMessage struct {
	Event     string         `json:"event"`
	Timestamp string         `json:"timestamp"`
	Counts    map[string]int `json:"counts"`
}

// client is one websocket connection. writeMu serializes writes to conn.
type client struct {
	conn    *websocket.Conn
	writeMu sync.Mutex
}

func (c *client) writeJSON(v any) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.conn.WriteJSON(v)
}

// Hub fans detected events out to connected websocket clients.
type Hub struct {
	mu      sync.Mutex
	clients map[*websocket.Conn]*client
}

// NewHub creates an empty Hub.
func NewHub() *Hub {
	return &Hub{clients: make(map[*websocket.Conn]*client)}
}

// ServeHTTP upgrades the request and registers the client until it disconnects.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("web: websocket upgrade error: %v", err)
		return
	}

	h.mu.Lock()
	h.clients[conn] = &client{conn: conn}
	h.mu.Unlock()

	// Clients only listen; reading detects the close.
	for {
		if _, _, err := conn.NextReader(); err != nil {
			break
		}
	}
	h.remove(conn)
}

// Broadcast sends e to every connected client. Clients that fail the
// write are dropped. The hub lock is not held while writing, so a slow
// client only delays its own frames.
func (h *Hub) Broadcast(e logic.Event) {
	msg := EventMessage{
		Event:     string(e.Kind),
		Timestamp: e.Timestamp.UTC().Format(time.RFC3339Nano),
		Counts: map[string]int{
			string(logic.KindShake): e.Counts.Shake,
			string(logic.KindFlip):  e.Counts.Flip,
			string(logic.KindFall):  e.Counts.Fall,
		},
	}

	for _, c := range h.snapshot() {
		if err := c.writeJSON(msg); err != nil {
			log.Printf("web: websocket write error: %v", err)
			h.remove(c.conn)
		}
	}
}

func (h *Hub) snapshot() []*client {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]*client, 0, len(h.clients))
	for _, c := range h.clients {
		out = append(out, c)
	}
	return out
}

// Len returns the number of connected clients.
func (h *Hub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Close disconnects all clients.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for conn := range h.clients {
		// WriteControl may run concurrently with a pending WriteJSON.
		conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutdown"),
			time.Now().Add(time.Second))
		conn.Close()
		delete(h.clients, conn)
	}
}

func (h *Hub) remove(conn *websocket.Conn) {
	h.mu.Lock()
	if _, ok := h.clients[conn]; ok {
		delete(h.clients, conn)
		conn.Close()
	}
	h.mu.Unlock()
}
