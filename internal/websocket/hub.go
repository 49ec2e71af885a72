package websocket

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/frostdev-ops/agent-dashboard-backend/internal/core/alerting"
	"github.com/frostdev-ops/agent-dashboard-backend/internal/core/metrics"
)

// Hub maintains the set of active clients and pushes alert updates to them
type Hub struct {
	// Registered clients
	clients map[*Client]bool

	// Outbound messages for every eligible client
	broadcast chan Message

	// Register requests from the clients
	register chan *Client

	// Unregister requests from clients
	unregister chan *Client

	logger    *logrus.Logger
	collector metrics.MetricsCollector
	config    HubConfig

	// closed when Run returns
	done chan struct{}

	mu    sync.RWMutex
	stats HubStats
}

// HubConfig holds connection timing
type HubConfig struct {
	PingInterval      time.Duration
	PongTimeout       time.Duration
	WriteTimeout      time.Duration
	HeartbeatInterval time.Duration
	AllowedOrigins    []string
}

// DefaultHubConfig returns the timings used when none are configured
func DefaultHubConfig() HubConfig {
	return HubConfig{
		PingInterval:      54 * time.Second,
		PongTimeout:       60 * time.Second,
		WriteTimeout:      10 * time.Second,
		HeartbeatInterval: 30 * time.Second,
	}
}

// HubStats contains hub statistics
type HubStats struct {
	ConnectedClients int       `json:"connected_clients"`
	TotalConnections int64     `json:"total_connections"`
	MessagesSent     int64     `json:"messages_sent"`
	MessagesReceived int64     `json:"messages_received"`
	MessagesDropped  int64     `json:"messages_dropped"`
	LastActivity     time.Time `json:"last_activity"`
}

// NewHub creates a new WebSocket hub. collector may be nil.
func NewHub(cfg HubConfig, collector metrics.MetricsCollector, logger *logrus.Logger) *Hub {
	defaults := DefaultHubConfig()
	if cfg.PongTimeout <= 0 {
		cfg.PongTimeout = defaults.PongTimeout
	}
	if cfg.PingInterval <= 0 || cfg.PingInterval >= cfg.PongTimeout {
		cfg.PingInterval = (cfg.PongTimeout * 9) / 10
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = defaults.WriteTimeout
	}
	if cfg.HeartbeatInterval <= 0 {
		cfg.HeartbeatInterval = defaults.HeartbeatInterval
	}

	return &Hub{
		clients:    make(map[*Client]bool),
		broadcast:  make(chan Message, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client, 16),
		logger:     logger,
		collector:  collector,
		config:     cfg,
		done:       make(chan struct{}),
		stats: HubStats{
			LastActivity: time.Now(),
		},
	}
}

// Run handles registration and broadcasting until ctx is done, then closes
// every client.
func (h *Hub) Run(ctx context.Context) {
	h.logger.Info("WebSocket hub started")
	defer close(h.done)

	ticker := time.NewTicker(h.config.HeartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			h.logger.Info("WebSocket hub stopped")
			return

		case client := <-h.register:
			h.registerClient(client)

		case client := <-h.unregister:
			h.unregisterClient(client)

		case message := <-h.broadcast:
			h.broadcastMessage(message)

		case <-ticker.C:
			h.sendHeartbeat()
		}
	}
}

// ObserveStore forwards every store mutation to connected clients
func (h *Hub) ObserveStore(store *alerting.Store) {
	store.OnChange(func(event alerting.Event) {
		for _, msg := range MessagesFromEvent(event) {
			h.Broadcast(msg)
		}
	})
}

func (h *Hub) registerClient(client *Client) {
	h.mu.Lock()
	h.clients[client] = true
	h.stats.TotalConnections++
	h.stats.ConnectedClients = len(h.clients)
	h.stats.LastActivity = time.Now()
	connected := len(h.clients)
	h.mu.Unlock()

	if h.collector != nil {
		h.collector.RecordWebSocketConnection("connect")
	}

	h.logger.WithFields(logrus.Fields{
		"client_id":         client.ID,
		"remote_addr":       client.RemoteAddr,
		"connected_clients": connected,
	}).Info("WebSocket client connected")

	welcome := Message{
		Type: MessageTypeConnection,
		Data: map[string]interface{}{
			"status":    "connected",
			"client_id": client.ID,
		},
	}
	client.trySend(welcome.ToJSON())
}

func (h *Hub) unregisterClient(client *Client) {
	h.mu.Lock()
	_, ok := h.clients[client]
	if ok {
		delete(h.clients, client)
		client.closeSend()
		h.stats.ConnectedClients = len(h.clients)
		h.stats.LastActivity = time.Now()
	}
	connected := len(h.clients)
	h.mu.Unlock()

	if !ok {
		return
	}

	if h.collector != nil {
		h.collector.RecordWebSocketConnection("disconnect")
	}

	h.logger.WithFields(logrus.Fields{
		"client_id":         client.ID,
		"connected_clients": connected,
	}).Info("WebSocket client disconnected")
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for client := range h.clients {
		delete(h.clients, client)
		client.closeSend()
	}
	h.stats.ConnectedClients = 0
}

func (h *Hub) broadcastMessage(message Message) {
	data := message.ToJSON()

	h.mu.RLock()
	targets := make([]*Client, 0, len(h.clients))
	for client := range h.clients {
		if client.wants(message.severity) {
			targets = append(targets, client)
		}
	}
	h.mu.RUnlock()

	sent := 0
	var slow []*Client
	for _, client := range targets {
		if client.trySend(data) {
			sent++
			if h.collector != nil {
				h.collector.RecordWebSocketConnection("message_sent")
			}
		} else {
			slow = append(slow, client)
		}
	}

	h.mu.Lock()
	h.stats.MessagesSent += int64(sent)
	h.stats.LastActivity = time.Now()
	h.mu.Unlock()

	// a client whose buffer is full is too far behind to catch up
	for _, client := range slow {
		h.unregisterClient(client)
	}

	h.logger.WithFields(logrus.Fields{
		"message_type": message.Type,
		"clients_sent": sent,
	}).Debug("Message broadcasted to WebSocket clients")
}

func (h *Hub) sendHeartbeat() {
	h.Broadcast(Message{
		Type: MessageTypeHeartbeat,
		Data: map[string]interface{}{
			"clients": h.GetClientCount(),
		},
	})
}

// Broadcast queues a message for delivery. It never blocks: when the queue
// is full the message is dropped and counted.
func (h *Hub) Broadcast(message Message) {
	select {
	case h.broadcast <- message:
	default:
		h.mu.Lock()
		h.stats.MessagesDropped++
		h.mu.Unlock()
		h.logger.WithField("message_type", message.Type).Warn("Broadcast channel is full, message dropped")
	}
}

// leave asks the hub to drop client; it gives up once the hub has stopped
func (h *Hub) leave(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// join registers client with the running hub
func (h *Hub) join(client *Client) bool {
	select {
	case h.register <- client:
		return true
	case <-h.done:
		return false
	}
}

func (h *Hub) recordReceived() {
	h.mu.Lock()
	h.stats.MessagesReceived++
	h.stats.LastActivity = time.Now()
	h.mu.Unlock()

	if h.collector != nil {
		h.collector.RecordWebSocketConnection("message_received")
	}
}

// GetStats returns current hub statistics
func (h *Hub) GetStats() HubStats {
	h.mu.RLock()
	defer h.mu.RUnlock()

	stats := h.stats
	stats.ConnectedClients = len(h.clients)
	return stats
}

// GetClientCount returns the current number of connected clients
func (h *Hub) GetClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
