package api

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/nerrad567/growctl/internal/infrastructure/config"
	"github.com/nerrad567/growctl/internal/infrastructure/logging"
	"github.com/nerrad567/growctl/internal/ingress"
)

const (
	// wsSendBufferSize is the per-client outbound message buffer size.
	wsSendBufferSize = 256

	// inboundBufferSize is how many frames the read pumps may queue ahead
	// of the forwarder.
	inboundBufferSize = 32
)

// HubMetrics receives hub events for metrics.
type HubMetrics interface {
	FrameDropped()
	SetClients(n int)
}

type noopHubMetrics struct{}

func (noopHubMetrics) FrameDropped()  {}
func (noopHubMetrics) SetClients(int) {}

// Hub manages WebSocket connections.
//
// Outbound, it fans frames out to every client or to one client by ID.
// Inbound, every read pump hands frames to a single forwarder goroutine
// (started by Run), which is the only producer into the ingress ring.
type Hub struct {
	cfg       config.WebSocketConfig
	logger    *logging.Logger
	ring      *ingress.Ring
	metrics   HubMetrics
	inbound   chan ingress.Frame
	onConnect func(clientID string)

	clients map[string]*WSClient
	mu      sync.RWMutex
}

// WSClient represents a connected WebSocket client.
type WSClient struct {
	id   string
	hub  *Hub
	conn *websocket.Conn
	send chan []byte
}

// upgrader configures the WebSocket upgrader.
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(_ *http.Request) bool {
		// Origin checking is handled by CORS middleware
		return true
	},
}

// NewHub creates a hub that forwards inbound frames into ring.
//
// Parameters:
//   - cfg: WebSocket section of config.yaml (message size, ping and pong timing)
//   - logger: Connection and drop logging
//   - ring: Ingress ring drained by the controller loop
//   - metrics: Dropped-frame and client gauges; may be nil
//
// Returns:
//   - *Hub: Hub ready for Run and ServeHTTP
func NewHub(cfg config.WebSocketConfig, logger *logging.Logger, ring *ingress.Ring, metrics HubMetrics) *Hub {
	if metrics == nil {
		metrics = noopHubMetrics{}
	}
	return &Hub{
		cfg:       cfg,
		logger:    logger,
		ring:      ring,
		metrics:   metrics,
		inbound:   make(chan ingress.Frame, inboundBufferSize),
		onConnect: func(string) {},
		clients:   make(map[string]*WSClient),
	}
}

// SetOnConnect registers a callback invoked with the ID of each new client.
// It must be called before the server starts accepting connections.
func (h *Hub) SetOnConnect(fn func(clientID string)) {
	h.onConnect = fn
}

// Run forwards inbound frames into the ingress ring until ctx is
// cancelled, then disconnects every client.
func (h *Hub) Run(ctx context.Context) {
	defer h.closeAll()
	for {
		select {
		case <-ctx.Done():
			return
		case frame := <-h.inbound:
			h.forward(frame)
		}
	}
}

func (h *Hub) forward(frame ingress.Frame) {
	err := h.ring.Push(frame.ClientID, frame.Data)
	if err == nil {
		return
	}
	h.metrics.FrameDropped()
	switch {
	case errors.Is(err, ingress.ErrOversize):
		h.logger.Warn("dropping oversize websocket frame", "client_id", frame.ClientID, "bytes", len(frame.Data))
	default:
		h.logger.Warn("ingress queue full, dropping websocket frame", "client_id", frame.ClientID)
	}
}

// Register adds a client to the hub.
func (h *Hub) Register(client *WSClient) {
	h.mu.Lock()
	h.clients[client.id] = client
	n := len(h.clients)
	h.mu.Unlock()
	h.metrics.SetClients(n)
	h.logger.Debug("websocket client connected", "client_id", client.id, "clients", n)
}

// Unregister removes a client from the hub.
// Only the goroutine that successfully removes the client from the map
// closes the send channel, preventing double-close panics during shutdown.
func (h *Hub) Unregister(client *WSClient) {
	h.mu.Lock()
	_, existed := h.clients[client.id]
	delete(h.clients, client.id)
	n := len(h.clients)
	h.mu.Unlock()

	if existed {
		close(client.send)
	}
	h.metrics.SetClients(n)
	h.logger.Debug("websocket client disconnected", "client_id", client.id, "clients", n)
}

// Broadcast sends a frame to every connected client.
func (h *Hub) Broadcast(data []byte) {
	// Snapshot client list under hub lock, then release before sending
	h.mu.RLock()
	clients := make([]*WSClient, 0, len(h.clients))
	for _, client := range h.clients {
		clients = append(clients, client)
	}
	h.mu.RUnlock()

	for _, client := range clients {
		client.trySend(data)
	}
}

// SendTo sends a frame to one client and reports whether it is connected.
func (h *Hub) SendTo(clientID string, data []byte) bool {
	h.mu.RLock()
	client, ok := h.clients[clientID]
	h.mu.RUnlock()
	if !ok {
		return false
	}
	client.trySend(data)
	return true
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// closeAll disconnects all clients and closes their send channels
// so writePump goroutines can exit cleanly.
func (h *Hub) closeAll() {
	h.mu.Lock()
	for id, client := range h.clients {
		close(client.send)
		if client.conn != nil {
			client.conn.Close()
		}
		delete(h.clients, id)
	}
	h.mu.Unlock()
	h.metrics.SetClients(0)
}

// enqueue hands an inbound frame to the forwarder without blocking.
func (h *Hub) enqueue(clientID string, data []byte) {
	select {
	case h.inbound <- ingress.Frame{ClientID: clientID, Data: data}:
	default:
		h.metrics.FrameDropped()
		h.logger.Warn("websocket inbound buffer full, dropping frame", "client_id", clientID)
	}
}

// ServeHTTP upgrades the HTTP connection to a WebSocket connection.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", "error", err)
		return
	}

	client := &WSClient{
		id:   uuid.NewString(),
		hub:  h,
		conn: conn,
		send: make(chan []byte, wsSendBufferSize),
	}

	h.Register(client)
	h.onConnect(client.id)

	go client.writePump(h.cfg)
	go client.readPump(h.cfg)
}

// readPump reads messages from the WebSocket connection.
func (c *WSClient) readPump(cfg config.WebSocketConfig) {
	defer func() {
		c.hub.Unregister(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(int64(cfg.MaxMessageSize))
	pingInterval := time.Duration(cfg.PingInterval) * time.Second
	pongWait := time.Duration(cfg.PongTimeout) * time.Second
	//nolint:errcheck // Best-effort deadline on connection setup
	c.conn.SetReadDeadline(time.Now().Add(pingInterval + pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pingInterval + pongWait))
	})

	for {
		msgType, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.hub.logger.Warn("websocket read error", "client_id", c.id, "error", err)
			} else {
				c.hub.logger.Debug("websocket closed", "client_id", c.id, "error", err)
			}
			return
		}
		// Any client message resets the read deadline (keeps connection alive
		// even if browser doesn't respond to protocol-level pings).
		//nolint:errcheck // Best-effort deadline reset
		c.conn.SetReadDeadline(time.Now().Add(pingInterval + pongWait))
		if msgType != websocket.TextMessage {
			continue
		}
		c.hub.enqueue(c.id, message)
	}
}

// writePump writes messages to the WebSocket connection.
func (c *WSClient) writePump(cfg config.WebSocketConfig) {
	pingInterval := time.Duration(cfg.PingInterval) * time.Second
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	pongWait := time.Duration(cfg.PongTimeout) * time.Second

	for {
		select {
		case message, ok := <-c.send:
			if !ok {
				// Hub closed the channel
				//nolint:errcheck // Best-effort close message
				c.conn.WriteMessage(websocket.CloseMessage, nil)
				return
			}
			//nolint:errcheck // Best-effort deadline; write error caught below
			c.conn.SetWriteDeadline(time.Now().Add(pongWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			//nolint:errcheck // Best-effort deadline; ping error caught below
			c.conn.SetWriteDeadline(time.Now().Add(pongWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// trySend attempts to send data to the client's send channel.
// It silently handles closed channels (client disconnected during broadcast)
// and full buffers (slow client).
func (c *WSClient) trySend(data []byte) {
	defer func() {
		recover() //nolint:errcheck // Absorb send-on-closed-channel panic
	}()

	select {
	case c.send <- data:
	default:
		c.hub.logger.Debug("websocket send buffer full, skipping frame", "client_id", c.id)
	}
}
