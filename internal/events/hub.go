package events

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/sightgate/sightgate/pkg/metrics"
)

// Hub manages all WebSocket connections and message broadcasting. Every
// connected client receives every published event; there is no per-topic
// subscription.
type Hub struct {
	// connections holds all active connections
	connections map[*Connection]struct{}

	// register channel for new connections
	register chan *Connection

	// unregister channel for removing connections
	unregister chan *Connection

	// broadcast channel for outbound messages
	broadcast chan []byte

	// mutex for thread-safe operations
	mu sync.RWMutex

	// logger for the hub
	logger zerolog.Logger

	// gauges is optional; nil disables metric recording
	gauges *metrics.GatewayMetrics

	totalConnections int64
	totalBroadcasts  int64
}

// HubConfig holds configuration for the WebSocket hub.
type HubConfig struct {
	// BroadcastBufferSize is the buffer size for the hub channels
	BroadcastBufferSize int
	// Metrics enables connection and message metrics when set
	Metrics *metrics.GatewayMetrics
}

// NewHub creates a new WebSocket hub.
func NewHub(logger zerolog.Logger) *Hub {
	return NewHubWithConfig(HubConfig{}, logger)
}

// NewHubWithConfig creates a new WebSocket hub with custom configuration.
func NewHubWithConfig(cfg HubConfig, logger zerolog.Logger) *Hub {
	bufferSize := cfg.BroadcastBufferSize
	if bufferSize <= 0 {
		bufferSize = 256
	}

	return &Hub{
		connections: make(map[*Connection]struct{}),
		register:    make(chan *Connection, bufferSize),
		unregister:  make(chan *Connection, bufferSize),
		broadcast:   make(chan []byte, bufferSize),
		logger:      logger.With().Str("component", "events_hub").Logger(),
		gauges:      cfg.Metrics,
	}
}

// Run starts the hub's main event loop. It blocks until the context is cancelled.
func (h *Hub) Run(ctx context.Context) {
	h.logger.Info().Msg("starting events hub")

	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			h.logger.Info().Msg("stopping events hub")
			h.closeAllConnections()
			return

		case conn := <-h.register:
			h.handleRegister(conn)

		case conn := <-h.unregister:
			h.handleUnregister(conn)

		case message := <-h.broadcast:
			h.handleBroadcast(message)

		case <-ticker.C:
			h.logStats()
		}
	}
}

// Register registers a new connection with the hub.
func (h *Hub) Register(conn *Connection) {
	h.register <- conn
}

// Unregister removes a connection from the hub.
func (h *Hub) Unregister(conn *Connection) {
	h.unregister <- conn
}

// Broadcast sends a message to all connected clients.
func (h *Hub) Broadcast(message []byte) {
	h.broadcast <- message
}

// BroadcastMessage serializes and broadcasts a Message to all connections.
func (h *Hub) BroadcastMessage(msg *Message) error {
	data, err := msg.Bytes()
	if err != nil {
		return err
	}
	h.Broadcast(data)

	if h.gauges != nil {
		h.gauges.RecordWebSocketMessage("outbound", string(msg.Type))
	}
	return nil
}

// ConnectionCount returns the current number of connections.
func (h *Hub) ConnectionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.connections)
}

func (h *Hub) handleRegister(conn *Connection) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.connections[conn] = struct{}{}
	h.totalConnections++

	if h.gauges != nil {
		h.gauges.SetWebSocketConnections(float64(len(h.connections)))
	}

	h.logger.Debug().
		Str("conn_id", conn.ID()).
		Int("total_connections", len(h.connections)).
		Msg("connection registered")
}

func (h *Hub) handleUnregister(conn *Connection) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.connections[conn]; !ok {
		return
	}

	delete(h.connections, conn)
	conn.Close()

	if h.gauges != nil {
		h.gauges.SetWebSocketConnections(float64(len(h.connections)))
	}

	h.logger.Debug().
		Str("conn_id", conn.ID()).
		Int("total_connections", len(h.connections)).
		Msg("connection unregistered")
}

func (h *Hub) handleBroadcast(message []byte) {
	h.mu.Lock()
	targets := make([]*Connection, 0, len(h.connections))
	for conn := range h.connections {
		targets = append(targets, conn)
	}
	h.totalBroadcasts++
	h.mu.Unlock()

	for _, conn := range targets {
		conn.Send(message)
	}
}

func (h *Hub) closeAllConnections() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for conn := range h.connections {
		conn.Close()
	}

	h.connections = make(map[*Connection]struct{})

	if h.gauges != nil {
		h.gauges.SetWebSocketConnections(0)
	}

	h.logger.Info().Msg("all connections closed")
}

func (h *Hub) logStats() {
	h.mu.RLock()
	connCount := len(h.connections)
	h.mu.RUnlock()

	h.logger.Debug().
		Int("connections", connCount).
		Int64("total_connections", h.totalConnections).
		Int64("total_broadcasts", h.totalBroadcasts).
		Msg("hub statistics")
}

// Stats returns current hub statistics.
func (h *Hub) Stats() HubStats {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return HubStats{
		ActiveConnections: len(h.connections),
		TotalConnections:  h.totalConnections,
		TotalBroadcasts:   h.totalBroadcasts,
	}
}

// HubStats holds hub statistics.
type HubStats struct {
	ActiveConnections int   `json:"active_connections"`
	TotalConnections  int64 `json:"total_connections"`
	TotalBroadcasts   int64 `json:"total_broadcasts"`
}

// IsHealthy returns true if the hub is running and healthy.
func (h *Hub) IsHealthy() bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.connections != nil
}
