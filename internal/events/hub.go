// internal/events/hub.go
package events

import (
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/ratio1/r1nodectl/internal/constants"
	"github.com/ratio1/r1nodectl/internal/logging"
)

// Event types broadcast over the bridge.
const (
	EventContainerState  = "container_state"
	EventTaskStarted     = "task_started"
	EventTaskFinished    = "task_finished"
	EventRegistryChanged = "registry_changed"
	EventImageUpdate     = "image_update"
)

// Event is one status bridge message.
type Event struct {
	Type      string      `json:"type"`
	Container string      `json:"container,omitempty"`
	Payload   interface{} `json:"payload,omitempty"`
	Time      time.Time   `json:"time"`
}

// safeConn wraps a WebSocket connection with a mutex; gorilla/websocket
// permits only one concurrent writer.
type safeConn struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (c *safeConn) writeJSON(v interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.conn.SetWriteDeadline(time.Now().Add(constants.BridgeWriteTimeout)); err != nil {
		return err
	}
	return c.conn.WriteJSON(v)
}

func (c *safeConn) ping() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.conn.SetWriteDeadline(time.Now().Add(constants.BridgeWriteTimeout)); err != nil {
		return err
	}
	return c.conn.WriteMessage(websocket.PingMessage, nil)
}

func (c *safeConn) close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.Close()
}

// Hub fans events out to connected WebSocket clients. The client set is
// owned by the hub goroutine; handlers talk to it over channels.
type Hub struct {
	clients    map[*safeConn]bool
	register   chan *safeConn
	unregister chan *safeConn
	broadcast  chan Event
	shutdown   chan struct{}
	done       chan struct{}
	upgrader   websocket.Upgrader

	clientCount atomic.Int32
	mu          sync.Mutex
	running     bool
}

// NewHub returns a Hub; call Start before serving connections.
func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*safeConn]bool),
		register:   make(chan *safeConn, 8),
		unregister: make(chan *safeConn, 8),
		broadcast:  make(chan Event, 64),
		shutdown:   make(chan struct{}),
		done:       make(chan struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// The bridge binds loopback; cross-origin local tools are the
			// intended consumers.
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
}

// Start launches the hub goroutine.
func (h *Hub) Start() {
	h.mu.Lock()
	if h.running {
		h.mu.Unlock()
		return
	}
	h.running = true
	h.mu.Unlock()

	go h.run()
}

// Stop disconnects every client and ends the hub goroutine. A stopped hub
// cannot be restarted.
func (h *Hub) Stop() {
	h.mu.Lock()
	if !h.running {
		h.mu.Unlock()
		return
	}
	h.running = false
	h.mu.Unlock()

	close(h.shutdown)
	<-h.done
}

// Publish enqueues an event for broadcast. A saturated hub drops the
// event: the bridge is advisory and must never stall an operation.
func (h *Hub) Publish(ev Event) {
	if ev.Time.IsZero() {
		ev.Time = time.Now()
	}
	select {
	case h.broadcast <- ev:
	default:
		logging.Warning("Event channel full, dropping %s event", ev.Type)
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	return int(h.clientCount.Load())
}

func (h *Hub) run() {
	defer close(h.done)
	for {
		select {
		case client := <-h.register:
			h.clients[client] = true
			h.clientCount.Store(int32(len(h.clients)))
			logging.Debug("Bridge client registered (total: %d)", len(h.clients))

		case client := <-h.unregister:
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				if err := client.close(); err != nil {
					logging.Debug("Bridge client close: %v", err)
				}
			}
			h.clientCount.Store(int32(len(h.clients)))
			logging.Debug("Bridge client unregistered (remaining: %d)", len(h.clients))

		case ev := <-h.broadcast:
			for client := range h.clients {
				if err := client.writeJSON(ev); err != nil {
					logging.Debug("Dropping bridge client after write failure: %v", err)
					delete(h.clients, client)
					client.close()
				}
			}
			h.clientCount.Store(int32(len(h.clients)))

		case <-h.shutdown:
			for client := range h.clients {
				client.close()
			}
			h.clients = make(map[*safeConn]bool)
			h.clientCount.Store(0)
			return
		}
	}
}

// ServeWS upgrades the request and keeps the client registered until it
// disconnects. Periodic pings evict dead peers.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logging.Error("WebSocket upgrade failed: %v", err)
		return
	}

	client := &safeConn{conn: conn}
	h.register <- client
	defer func() {
		// After shutdown nobody drains the channel; don't hang the handler.
		select {
		case h.unregister <- client:
		case <-h.done:
			client.close()
		}
	}()

	stop := make(chan struct{})
	defer close(stop)
	go func() {
		ticker := time.NewTicker(constants.BridgePingInterval)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				if err := client.ping(); err != nil {
					return
				}
			}
		}
	}()

	// The bridge is broadcast-only; reading drains control frames and
	// detects the disconnect.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}
