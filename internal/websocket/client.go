package websocket

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/frostdev-ops/agent-dashboard-backend/internal/core/alerting"
)

const (
	// Maximum message size allowed from peer
	maxMessageSize = 512

	sendBufferSize = 256
)

// Client is a middleman between the websocket connection and the hub
type Client struct {
	ID          string    `json:"id"`
	UserAgent   string    `json:"user_agent"`
	RemoteAddr  string    `json:"remote_addr"`
	ConnectedAt time.Time `json:"connected_at"`

	conn   *websocket.Conn
	hub    *Hub
	logger *logrus.Logger

	// Buffered channel of outbound messages, closed by the hub
	send   chan []byte
	sendMu sync.Mutex
	closed bool

	// severities the client asked for; empty means all
	subMu      sync.RWMutex
	severities map[alerting.Severity]bool
}

func newClient(hub *Hub, conn *websocket.Conn, r *http.Request) *Client {
	return &Client{
		ID:          uuid.New().String(),
		UserAgent:   r.Header.Get("User-Agent"),
		RemoteAddr:  r.RemoteAddr,
		ConnectedAt: time.Now(),
		conn:        conn,
		hub:         hub,
		logger:      hub.logger,
		send:        make(chan []byte, sendBufferSize),
		severities:  make(map[alerting.Severity]bool),
	}
}

func (h *Hub) upgrader() websocket.Upgrader {
	allowed := make(map[string]bool, len(h.config.AllowedOrigins))
	for _, origin := range h.config.AllowedOrigins {
		allowed[origin] = true
	}

	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			return len(allowed) == 0 || origin == "" || allowed[origin] || allowed["*"]
		},
	}
}

// HandleWebSocket upgrades the request and attaches the connection to hub
func HandleWebSocket(hub *Hub, w http.ResponseWriter, r *http.Request) {
	upgrader := hub.upgrader()
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		hub.logger.WithError(err).Warn("Failed to upgrade WebSocket connection")
		return
	}

	client := newClient(hub, conn, r)
	if !hub.join(client) {
		conn.Close()
		return
	}

	go client.writePump()
	go client.readPump()
}

// HandleWebSocketGin is a Gin-compatible wrapper for HandleWebSocket
func HandleWebSocketGin(hub *Hub) gin.HandlerFunc {
	return func(c *gin.Context) {
		HandleWebSocket(hub, c.Writer, c.Request)
	}
}

// trySend queues data without blocking; false means the buffer is full or
// the client is gone
func (c *Client) trySend(data []byte) bool {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()

	if c.closed {
		return false
	}
	select {
	case c.send <- data:
		return true
	default:
		return false
	}
}

func (c *Client) closeSend() {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()

	if !c.closed {
		c.closed = true
		close(c.send)
	}
}

// wants reports whether a message scoped to severity should reach c
func (c *Client) wants(severity alerting.Severity) bool {
	if severity == "" {
		return true
	}

	c.subMu.RLock()
	defer c.subMu.RUnlock()
	return len(c.severities) == 0 || c.severities[severity]
}

// Subscribe limits alert messages to the given severities
func (c *Client) Subscribe(severities ...alerting.Severity) {
	c.subMu.Lock()
	defer c.subMu.Unlock()

	for _, s := range severities {
		if s.Valid() {
			c.severities[s] = true
		}
	}
}

// Unsubscribe drops severities; with none left the client receives everything again
func (c *Client) Unsubscribe(severities ...alerting.Severity) {
	c.subMu.Lock()
	defer c.subMu.Unlock()

	for _, s := range severities {
		delete(c.severities, s)
	}
}

// Subscriptions returns the severities the client is limited to
func (c *Client) Subscriptions() []alerting.Severity {
	c.subMu.RLock()
	defer c.subMu.RUnlock()

	out := make([]alerting.Severity, 0, len(c.severities))
	for s := range c.severities {
		out = append(out, s)
	}
	return out
}

// readPump pumps messages from the websocket connection to the hub
func (c *Client) readPump() {
	defer func() {
		c.hub.leave(c)
		c.conn.Close()
	}()

	pongWait := c.hub.config.PongTimeout
	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger.WithError(err).WithField("client_id", c.ID).Warn("WebSocket connection error")
			}
			return
		}

		c.hub.recordReceived()
		c.handleMessage(message)
	}
}

// writePump pumps messages from the hub to the websocket connection
func (c *Client) writePump() {
	writeWait := c.hub.config.WriteTimeout
	ticker := time.NewTicker(c.hub.config.PingInterval)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// The hub closed the channel
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// handleMessage processes incoming messages from the client
func (c *Client) handleMessage(raw []byte) {
	var msg Message
	if err := json.Unmarshal(raw, &msg); err != nil {
		c.logger.WithError(err).WithField("client_id", c.ID).Debug("Failed to unmarshal WebSocket message")
		return
	}

	switch msg.Type {
	case MessageTypeSubscribe:
		c.Subscribe(severitiesFrom(msg.Data)...)
		c.ackSubscriptions()
	case MessageTypeUnsubscribe:
		c.Unsubscribe(severitiesFrom(msg.Data)...)
		c.ackSubscriptions()
	case MessageTypePing:
		pong := Message{Type: MessageTypePong, Data: map[string]interface{}{}}
		c.trySend(pong.ToJSON())
	default:
		c.logger.WithField("message_type", msg.Type).Debug("Unknown WebSocket message type")
	}
}

func (c *Client) ackSubscriptions() {
	ack := Message{
		Type: MessageTypeSubscribed,
		Data: map[string]interface{}{
			"severities": c.Subscriptions(),
		},
	}
	c.trySend(ack.ToJSON())
}

// severitiesFrom reads {"severities": ["high", ...]} from a client message
func severitiesFrom(data map[string]interface{}) []alerting.Severity {
	raw, ok := data["severities"].([]interface{})
	if !ok {
		return nil
	}

	out := make([]alerting.Severity, 0, len(raw))
	for _, v := range raw {
		if s, ok := v.(string); ok {
			out = append(out, alerting.Severity(s))
		}
	}
	return out
}
