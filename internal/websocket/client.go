package websocket

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/goutham-m7/VerbaFlow/internal/room"
	"github.com/goutham-m7/VerbaFlow/pkg/logger"
)

const (
	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Outbound buffer per connection
	sendBufferSize = 256
)

// Client wraps one participant's WebSocket connection. The reading side is
// driven by the session loop; writes go through the buffered send channel and
// a single writePump goroutine so concurrent broadcasts never interleave
// frames on the wire.
type Client struct {
	conn      *websocket.Conn
	send      chan *room.Envelope
	mu        sync.Mutex
	closed    bool
	closeChan chan struct{}
	logger    *logger.Logger
}

func newClient(conn *websocket.Conn, log *logger.Logger) *Client {
	return &Client{
		conn:      conn,
		send:      make(chan *room.Envelope, sendBufferSize),
		closeChan: make(chan struct{}),
		logger:    log,
	}
}

// Send queues an envelope for delivery to this client. It never blocks:
// a closed connection or a full buffer reports false, which callers treat
// as a delivery failure for this participant only.
func (c *Client) Send(env *room.Envelope) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return false
	}

	select {
	case c.send <- env:
		return true
	default:
		// Buffer full; the client is not draining messages
		return false
	}
}

// writePump pumps queued envelopes to the WebSocket connection and keeps the
// connection alive with periodic pings.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Close()
	}()

	for {
		select {
		case env, ok := <-c.send:
			if !ok {
				return
			}

			data, err := json.Marshal(env)
			if err != nil {
				c.logger.Error("Failed to marshal envelope", logger.Error(err))
				continue
			}

			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-c.closeChan:
			return
		}
	}
}

// Close closes the client connection. Safe to call more than once.
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}
	c.closed = true
	close(c.closeChan)
	c.conn.Close()
}

// CloseWithCode sends a close control frame with the given status code and
// reason before tearing the connection down. The frame goes through
// WriteControl, which gorilla permits concurrently with writePump's writes.
func (c *Client) CloseWithCode(code int, reason string) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.mu.Unlock()

	c.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(code, reason), time.Now().Add(writeWait))
	c.Close()
}
