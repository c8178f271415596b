package livereload

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"

	"github.com/conneroisu/payara-dev/internal/logging"
)

const (
	sendBuffer   = 16
	writeTimeout = 10 * time.Second
	pingInterval = 30 * time.Second
)

type client struct {
	conn *websocket.Conn
	send chan []byte
}

// Hub tracks connected browsers and fans messages out to them. The most
// recent status is replayed to every newly connected browser.
type Hub struct {
	logger         logging.Logger
	originPatterns []string

	register   chan *client
	unregister chan *client
	broadcast  chan []byte
	done       chan struct{}

	mu         sync.RWMutex
	clients    map[*client]struct{}
	lastStatus []byte
	running    bool
}

// NewHub creates a hub. originPatterns are host patterns accepted in the
// Origin header; empty allows only same-host connections.
func NewHub(originPatterns []string, logger logging.Logger) *Hub {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &Hub{
		logger:         logger.WithComponent("livereload"),
		originPatterns: originPatterns,
		register:       make(chan *client, 8),
		unregister:     make(chan *client, 8),
		broadcast:      make(chan []byte, 64),
		done:           make(chan struct{}),
		clients:        make(map[*client]struct{}),
	}
}

// Run owns client registration and broadcasting until ctx is done, then
// closes every connection.
func (h *Hub) Run(ctx context.Context) error {
	h.mu.Lock()
	h.running = true
	h.mu.Unlock()
	defer close(h.done)

	for {
		select {
		case c := <-h.register:
			h.mu.Lock()
			h.clients[c] = struct{}{}
			last := h.lastStatus
			count := len(h.clients)
			h.mu.Unlock()
			if last != nil {
				h.deliver(c, last)
			}
			h.logger.Debug(ctx, "Browser connected", "clients", count)

		case c := <-h.unregister:
			h.drop(c)

		case msg := <-h.broadcast:
			h.mu.RLock()
			targets := make([]*client, 0, len(h.clients))
			for c := range h.clients {
				targets = append(targets, c)
			}
			h.mu.RUnlock()
			for _, c := range targets {
				h.deliver(c, msg)
			}

		case <-ctx.Done():
			h.mu.Lock()
			for c := range h.clients {
				delete(h.clients, c)
				close(c.send)
				c.conn.Close(websocket.StatusGoingAway, "shutting down")
			}
			h.running = false
			h.mu.Unlock()
			return nil
		}
	}
}

func (h *Hub) deliver(c *client, msg []byte) {
	select {
	case c.send <- msg:
	default:
		h.drop(c)
	}
}

func (h *Hub) drop(c *client) {
	h.mu.Lock()
	_, ok := h.clients[c]
	if ok {
		delete(h.clients, c)
		close(c.send)
	}
	count := len(h.clients)
	h.mu.Unlock()
	if ok {
		c.conn.Close(websocket.StatusNormalClosure, "")
		h.logger.Debug(context.Background(), "Browser disconnected", "clients", count)
	}
}

// Clients returns the number of connected browsers.
func (h *Hub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Broadcast queues msg for every connected browser. It never blocks; a full
// queue drops the message.
func (h *Hub) Broadcast(msg Message) {
	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now()
	}
	data, err := json.Marshal(msg)
	if err != nil {
		h.logger.Warn(context.Background(), err, "Encoding live reload message")
		return
	}
	if msg.Type == TypeStatus {
		h.mu.Lock()
		h.lastStatus = data
		h.mu.Unlock()
	}

	select {
	case h.broadcast <- data:
	case <-h.done:
	default:
		h.logger.Debug(context.Background(), "Broadcast queue full, dropping message", "type", msg.Type)
	}
}

// Status broadcasts a status change.
func (h *Hub) Status(status string) {
	h.Broadcast(Message{Type: TypeStatus, Status: status})
}

// Reload asks every browser to refresh.
func (h *Hub) Reload() {
	h.Broadcast(Message{Type: TypeReload})
}

// AnnounceURL tells browsers where the application is served.
func (h *Hub) AnnounceURL(url string) {
	h.Broadcast(Message{Type: TypeURL, URL: url})
}

// ServeHTTP upgrades the request to a websocket and registers the browser.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mu.RLock()
	running := h.running
	h.mu.RUnlock()
	if !running {
		http.Error(w, "Service Unavailable", http.StatusServiceUnavailable)
		return
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns:  h.originPatterns,
		CompressionMode: websocket.CompressionDisabled,
	})
	if err != nil {
		h.logger.Warn(r.Context(), err, "Websocket upgrade failed", "remote", r.RemoteAddr)
		return
	}

	c := &client{conn: conn, send: make(chan []byte, sendBuffer)}
	select {
	case h.register <- c:
	case <-h.done:
		conn.Close(websocket.StatusGoingAway, "shutting down")
		return
	}

	// Browsers never send anything; CloseRead handles control frames and
	// reports when the connection goes away.
	ctx := conn.CloseRead(context.Background())
	h.writePump(ctx, c)
	conn.Close(websocket.StatusNormalClosure, "")
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}

func (h *Hub) writePump(ctx context.Context, c *client) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case msg, ok := <-c.send:
			if !ok {
				return
			}
			wctx, cancel := context.WithTimeout(ctx, writeTimeout)
			err := c.conn.Write(wctx, websocket.MessageText, msg)
			cancel()
			if err != nil {
				return
			}

		case <-ticker.C:
			pctx, cancel := context.WithTimeout(ctx, writeTimeout)
			err := c.conn.Ping(pctx)
			cancel()
			if err != nil {
				return
			}

		case <-ctx.Done():
			return
		case <-h.done:
			return
		}
	}
}
