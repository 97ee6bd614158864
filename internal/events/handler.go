package events

import (
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

// Handler upgrades HTTP requests to WebSocket connections and attaches them
// to the hub.
type Handler struct {
	hub      *Hub
	upgrader websocket.Upgrader
	logger   zerolog.Logger
}

// HandlerConfig holds configuration for the WebSocket handler.
type HandlerConfig struct {
	// ReadBufferSize is the read buffer size for connections
	ReadBufferSize int
	// WriteBufferSize is the write buffer size for connections
	WriteBufferSize int
	// CheckOrigin validates the request origin; nil allows all origins
	CheckOrigin func(r *http.Request) bool
}

// NewHandler creates a new WebSocket handler.
func NewHandler(hub *Hub, logger zerolog.Logger) *Handler {
	return NewHandlerWithConfig(hub, HandlerConfig{}, logger)
}

// NewHandlerWithConfig creates a new WebSocket handler with custom configuration.
func NewHandlerWithConfig(hub *Hub, cfg HandlerConfig, logger zerolog.Logger) *Handler {
	readBufferSize := cfg.ReadBufferSize
	if readBufferSize <= 0 {
		readBufferSize = 4096
	}
	writeBufferSize := cfg.WriteBufferSize
	if writeBufferSize <= 0 {
		writeBufferSize = 4096
	}

	checkOrigin := cfg.CheckOrigin
	if checkOrigin == nil {
		checkOrigin = func(r *http.Request) bool { return true }
	}

	return &Handler{
		hub: hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  readBufferSize,
			WriteBufferSize: writeBufferSize,
			CheckOrigin:     checkOrigin,
		},
		logger: logger.With().Str("component", "events_handler").Logger(),
	}
}

// ServeHTTP handles the WebSocket upgrade and starts the connection pumps.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn().Err(err).
			Str("remote_addr", r.RemoteAddr).
			Msg("websocket upgrade failed")
		return
	}

	conn := NewConnection(ws, h.hub, h.logger)
	h.hub.Register(conn)

	h.logger.Debug().
		Str("conn_id", conn.ID()).
		Str("remote_addr", r.RemoteAddr).
		Msg("websocket connection established")

	go conn.WritePump()
	go conn.ReadPump()
}
