package websocket

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer.
	maxMessageSize = 4096

	sendBufferSize = 256
)

// Client represents a WebSocket client connection
type Client struct {
	// The websocket connection.
	conn *websocket.Conn

	// Buffered channel of outbound messages. Never closed; done signals
	// shutdown so late senders cannot panic.
	send chan []byte
	done chan struct{}

	closeOnce sync.Once

	// Opaque connection handle handed to the presence registry.
	handle string
	userID string

	// Rooms this client has joined
	rooms map[string]bool
	mu    sync.RWMutex

	connectedAt time.Time
	log         *zap.Logger
}

// NewClient creates a new WebSocket client. conn may be nil in tests that
// never start the pumps.
func NewClient(conn *websocket.Conn, handle, userID string, log *zap.Logger) *Client {
	if log == nil {
		log = zap.NewNop()
	}
	return &Client{
		conn:        conn,
		send:        make(chan []byte, sendBufferSize),
		done:        make(chan struct{}),
		handle:      handle,
		userID:      userID,
		rooms:       make(map[string]bool),
		connectedAt: time.Now(),
		log:         log.With(zap.String("handle", handle), zap.String("user_id", userID)),
	}
}

func (c *Client) Handle() string {
	return c.handle
}

func (c *Client) UserID() string {
	return c.userID
}

func (c *Client) ConnectedAt() time.Time {
	return c.connectedAt
}

// Rooms returns a copy of joined rooms
func (c *Client) Rooms() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	rooms := make([]string, 0, len(c.rooms))
	for room := range c.rooms {
		rooms = append(rooms, room)
	}
	return rooms
}

func (c *Client) joinRoom(room string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.rooms[room] = true
}

func (c *Client) leaveRoom(room string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.rooms, room)
}

func (c *Client) InRoom(room string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.rooms[room]
}

// Send queues a frame without blocking. It reports false when the buffer is
// full or the client has been closed.
func (c *Client) Send(frame []byte) bool {
	select {
	case <-c.done:
		return false
	default:
	}
	select {
	case c.send <- frame:
		return true
	default:
		c.log.Debug("send buffer full, frame dropped")
		return false
	}
}

// Close stops the write pump and closes the underlying connection. Safe to
// call more than once.
func (c *Client) Close() {
	c.closeOnce.Do(func() {
		close(c.done)
		if c.conn != nil {
			c.conn.Close()
		}
	})
}

func (c *Client) Closed() bool {
	select {
	case <-c.done:
		return true
	default:
		return false
	}
}

// ReadPump pumps frames from the websocket connection to handle until the
// peer goes away or a read fails.
func (c *Client) ReadPump(handle func(*Client, []byte)) {
	defer c.Close()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.log.Warn("unexpected close", zap.Error(err))
			}
			return
		}
		handle(c, message)
	}
}

// WritePump pumps queued frames to the websocket connection and keeps it
// alive with pings.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Close()
	}()

	for {
		select {
		case message := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				c.log.Debug("write failed", zap.Error(err))
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-c.done:
			return
		}
	}
}
