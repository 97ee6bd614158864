package events

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

const (
	// writeWait is the time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// pongWait is the time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// pingPeriod is the period at which pings are sent. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// maxMessageSize is the maximum message size allowed from peer.
	maxMessageSize = 64 * 1024 // 64KB

	// sendBufferSize is the buffer size for the send channel.
	sendBufferSize = 256
)

// Connection wraps a WebSocket connection with read/write pumps and hub
// integration.
type Connection struct {
	// id is a unique identifier for this connection
	id string

	// hub is the hub this connection belongs to
	hub *Hub

	// conn is the underlying WebSocket connection
	conn *websocket.Conn

	// send is the buffered channel for outbound messages
	send chan []byte

	// mu protects connection state
	mu sync.RWMutex

	// closed indicates if the connection is closed
	closed bool

	// logger for this connection
	logger zerolog.Logger

	// connectedAt is when the connection was established
	connectedAt time.Time

	// lastActivity is the time of the last activity on this connection
	lastActivity time.Time
}

// NewConnection creates a new Connection wrapper.
func NewConnection(ws *websocket.Conn, hub *Hub, logger zerolog.Logger) *Connection {
	now := time.Now()
	c := &Connection{
		id:           uuid.New().String(),
		hub:          hub,
		conn:         ws,
		send:         make(chan []byte, sendBufferSize),
		logger:       logger.With().Str("component", "events_conn").Logger(),
		connectedAt:  now,
		lastActivity: now,
	}

	c.logger = c.logger.With().Str("conn_id", c.id).Logger()

	return c
}

// ID returns the connection's unique identifier.
func (c *Connection) ID() string {
	return c.id
}

// ConnectedAt returns when the connection was established.
func (c *Connection) ConnectedAt() time.Time {
	return c.connectedAt
}

// LastActivity returns the time of the last activity.
func (c *Connection) LastActivity() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lastActivity
}

// IsClosed returns true if the connection is closed.
func (c *Connection) IsClosed() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.closed
}

// Send queues a message to be sent to the client.
// Returns false if the connection is closed or the buffer is full.
// The read lock is held across the channel send: Close tears the channel
// down under the write lock, so a concurrent Close can never close the
// channel mid-send.
func (c *Connection) Send(message []byte) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.closed {
		return false
	}

	select {
	case c.send <- message:
		return true
	default:
		// Buffer full, connection is too slow
		c.logger.Warn().Msg("send buffer full, dropping message")
		return false
	}
}

// Close closes the connection and removes it from the hub.
func (c *Connection) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}
	c.closed = true

	close(c.send)
	c.conn.Close()

	c.logger.Debug().Msg("connection closed")
}

// ReadPump pumps messages from the WebSocket connection to the hub.
// It runs in its own goroutine and handles incoming messages.
func (c *Connection) ReadPump() {
	defer func() {
		c.hub.Unregister(c)
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.mu.Lock()
		c.lastActivity = time.Now()
		c.mu.Unlock()
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure, websocket.CloseNormalClosure) {
				c.logger.Debug().Err(err).Msg("unexpected close error")
			}
			break
		}

		c.mu.Lock()
		c.lastActivity = time.Now()
		c.mu.Unlock()

		c.handleMessage(message)
	}
}

// WritePump pumps messages from the send channel to the WebSocket connection.
// It runs in its own goroutine and handles outgoing messages.
func (c *Connection) WritePump() {
	ticker := time.NewTicker(pingPeriod)
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

			w, err := c.conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			w.Write(message)

			// Batch additional queued messages
			n := len(c.send)
			for i := 0; i < n; i++ {
				w.Write([]byte{'\n'})
				w.Write(<-c.send)
			}

			if err := w.Close(); err != nil {
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

// handleMessage processes an incoming message from the client.
func (c *Connection) handleMessage(data []byte) {
	msg, err := ParseMessage(data)
	if err != nil {
		c.logger.Debug().Err(err).Msg("failed to parse message")
		c.sendError("invalid_message", "failed to parse message")
		return
	}

	switch msg.Type {
	case MessageTypePing:
		c.handlePing()
	default:
		c.logger.Debug().Str("type", string(msg.Type)).Msg("unknown message type")
	}
}

// handlePing handles a ping message by sending a pong.
func (c *Connection) handlePing() {
	msg, _ := NewMessage(MessageTypePong, nil)
	if data, err := msg.Bytes(); err == nil {
		c.Send(data)
	}
}

// sendError sends an error message to the client.
func (c *Connection) sendError(code, message string) {
	msg, _ := NewMessage(MessageTypeError, ErrorPayload{
		Code:    code,
		Message: message,
	})
	if data, err := msg.Bytes(); err == nil {
		c.Send(data)
	}
}
