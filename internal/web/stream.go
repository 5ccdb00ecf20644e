package web

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	streamWriteWait = 2 * time.Second
	streamQueue     = 16
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // the API is served on the local network only
	},
}

// Hub fans fix snapshots out to websocket clients on /api/stream. A client
// that falls behind loses messages rather than stalling Publish.
type Hub struct {
	mu      sync.Mutex
	clients map[*streamClient]struct{}
	dropped uint64
}

type streamClient struct {
	conn *websocket.Conn
	send chan []byte
}

func NewHub() *Hub {
	return &Hub{clients: make(map[*streamClient]struct{})}
}

// Publish marshals v once and queues it for every connected client.
func (h *Hub) Publish(v any) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return err
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		select {
		case c.send <- payload:
		default:
			h.dropped++
		}
	}
	return nil
}

// Clients reports the number of connected stream clients.
func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

func (h *Hub) Dropped() uint64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.dropped
}

func (h *Hub) add(c *streamClient) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
}

func (h *Hub) remove(c *streamClient) {
	h.mu.Lock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
	h.mu.Unlock()
}

// Close disconnects every client.
func (h *Hub) Close() {
	h.mu.Lock()
	clients := make([]*streamClient, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.Unlock()
	for _, c := range clients {
		_ = c.conn.Close()
	}
}

func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if !allowGet(w, r) {
		return
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("stream upgrade failed remote=%s: %v", r.RemoteAddr, err)
		return
	}

	c := &streamClient{conn: conn, send: make(chan []byte, streamQueue)}
	h.add(c)
	log.Printf("stream client connected remote=%s", r.RemoteAddr)

	go c.writeLoop()
	c.readLoop()
	h.remove(c)
	log.Printf("stream client disconnected remote=%s", r.RemoteAddr)
}

// readLoop discards inbound messages; it returns when the peer goes away.
func (c *streamClient) readLoop() {
	defer c.conn.Close()
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (c *streamClient) writeLoop() {
	for payload := range c.send {
		_ = c.conn.SetWriteDeadline(time.Now().Add(streamWriteWait))
		if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			_ = c.conn.Close()
			return
		}
	}
	_ = c.conn.SetWriteDeadline(time.Now().Add(streamWriteWait))
	_ = c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
}
