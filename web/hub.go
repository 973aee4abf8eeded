package web

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/gorilla/websocket"
	"github.com/pkg/errors"
	"go.viam.com/utils"

	"go.viam.com/navgoal/logging"
)

const (
	clientBuffer = 16
	writeTimeout = 5 * time.Second
	pongTimeout  = 60 * time.Second
	pingPeriod   = pongTimeout * 9 / 10
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// the monitor is read only, so any origin may watch
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Hub fans messages out to every connected websocket client. Clients that fall behind are
// disconnected rather than slowing down the publisher.
type Hub struct {
	clock  clock.Clock
	logger logging.Logger

	mu      sync.Mutex
	clients map[*client]struct{}
	closed  bool
}

type client struct {
	conn *websocket.Conn
	send chan []byte
	once sync.Once
}

// NewHub returns a hub with no clients. A nil clk means the wall clock.
func NewHub(clk clock.Clock, logger logging.Logger) *Hub {
	if clk == nil {
		clk = clock.New()
	}
	return &Hub{clock: clk, logger: logger, clients: map[*client]struct{}{}}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Broadcast sends v, encoded as JSON, to every client.
func (h *Hub) Broadcast(v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return errors.Wrap(err, "cannot encode broadcast")
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		select {
		case c.send <- data:
		default:
			h.logger.Warnw("dropping slow websocket client", "remote", c.conn.RemoteAddr().String())
			h.removeLocked(c)
		}
	}
	return nil
}

func (h *Hub) removeLocked(c *client) {
	if _, ok := h.clients[c]; !ok {
		return
	}
	delete(h.clients, c)
	c.once.Do(func() { close(c.send) })
}

func (h *Hub) remove(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.removeLocked(c)
}

// ServeHTTP upgrades the request to a websocket and streams broadcasts to it until either side
// goes away.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if !websocket.IsWebSocketUpgrade(r) {
		http.Error(w, "expected a websocket upgrade", http.StatusBadRequest)
		return
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Debugw("websocket upgrade failed", "error", err)
		return
	}

	c := &client{conn: conn, send: make(chan []byte, clientBuffer)}
	// the ticker exists before the client is counted
	ticker := h.clock.Ticker(pingPeriod)
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		ticker.Stop()
		h.logger.Debug("rejecting websocket client after close")
		utils.UncheckedError(conn.Close())
		return
	}
	h.clients[c] = struct{}{}
	count := len(h.clients)
	h.mu.Unlock()
	h.logger.Debugw("websocket client connected", "remote", conn.RemoteAddr().String(), "clients", count)

	go h.readLoop(c)
	h.writeLoop(c, ticker)
}

// readLoop discards client messages and notices disconnects.
func (h *Hub) readLoop(c *client) {
	defer h.remove(c)
	c.conn.SetReadLimit(512)
	utils.UncheckedError(c.conn.SetReadDeadline(h.clock.Now().Add(pongTimeout)))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(h.clock.Now().Add(pongTimeout))
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Debugw("websocket client error", "error", err)
			}
			return
		}
	}
}

func (h *Hub) writeLoop(c *client, ticker *clock.Ticker) {
	defer func() {
		ticker.Stop()
		utils.UncheckedError(c.conn.Close())
	}()
	for {
		select {
		case data, ok := <-c.send:
			utils.UncheckedError(c.conn.SetWriteDeadline(h.clock.Now().Add(writeTimeout)))
			if !ok {
				utils.UncheckedError(c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")))
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				h.remove(c)
				return
			}
		case <-ticker.C:
			utils.UncheckedError(c.conn.SetWriteDeadline(h.clock.Now().Add(writeTimeout)))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				h.remove(c)
				return
			}
		}
	}
}

// Close disconnects every client and refuses new ones.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for c := range h.clients {
		h.removeLocked(c)
	}
}
