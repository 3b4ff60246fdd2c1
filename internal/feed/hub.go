package feed

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

// writeTimeout bounds how long a single push to one client may block;
// mirrors the deadline discipline a client-side feed applies to its own
// writes.
const writeTimeout = 10 * time.Second

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Hub is a server-side Sink that fans out every market-data tick to all
// currently-connected websocket clients. A client whose send buffer is full
// misses that tick rather than stalling the broadcast for everyone else; a
// client whose connection fails is unregistered.
type Hub struct {
	mu      sync.Mutex
	clients map[*wsClient]struct{}
	log     zerolog.Logger
}

type wsClient struct {
	conn   *websocket.Conn
	send   chan []Snapshot
	closed bool // guarded by Hub.mu; close(send) must happen at most once
}

// NewHub constructs an empty hub.
func NewHub(logger zerolog.Logger) *Hub {
	return &Hub{clients: make(map[*wsClient]struct{}), log: logger}
}

// ServeHTTP upgrades the request to a websocket connection and registers it
// as a subscriber until the connection closes.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}

	client := &wsClient{conn: conn, send: make(chan []Snapshot, 16)}
	h.register(client)
	defer h.unregister(client)

	go h.readPump(client)
	h.writePump(client)
}

func (h *Hub) register(c *wsClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[c] = struct{}{}
}

func (h *Hub) unregister(c *wsClient) {
	h.mu.Lock()
	delete(h.clients, c)
	h.closeSendLocked(c)
	h.mu.Unlock()
	c.conn.Close()
}

// closeSendLocked closes c.send at most once. Callers must hold h.mu — this
// is what keeps it mutually exclusive with Publish's send under the same
// lock, so a send can never race a close of the same channel.
func (h *Hub) closeSendLocked(c *wsClient) {
	if !c.closed {
		c.closed = true
		close(c.send)
	}
}

// readPump discards incoming client frames but must run so the connection's
// read side is drained and close/ping control frames are processed. On any
// read error it closes c.send under h.mu so a concurrent Publish can never
// observe (or send on) an already-closed channel.
func (h *Hub) readPump(c *wsClient) {
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			h.mu.Lock()
			h.closeSendLocked(c)
			h.mu.Unlock()
			return
		}
	}
}

func (h *Hub) writePump(c *wsClient) {
	for snapshots := range c.send {
		c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
		if err := c.conn.WriteJSON(snapshots); err != nil {
			return
		}
	}
}

// Publish implements Sink: it fans snapshots out to every connected client
// without blocking on any single slow reader.
func (h *Hub) Publish(snapshots []Snapshot) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for c := range h.clients {
		if c.closed {
			continue // readPump has already closed send; unregister hasn't run yet
		}
		select {
		case c.send <- snapshots:
		default:
			h.log.Warn().Msg("websocket client backpressured, dropping tick")
		}
	}
}

// MarshalSnapshots is exposed for sinks (and tests) that need the same wire
// encoding the hub writes over the socket.
func MarshalSnapshots(snapshots []Snapshot) ([]byte, error) {
	return json.Marshal(snapshots)
}
