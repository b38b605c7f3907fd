package chat

import (
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/docline/docline/models"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxFrameSize   = 8192
	sendBufferSize = 64
)

// Client is one live authenticated connection. The identity binding is set
// at the handshake and never changes for the connection's lifetime.
type Client struct {
	UserID      uuid.UUID
	Role        models.ChatRole
	DisplayName string

	hub  *Hub
	conn *websocket.Conn

	send      chan []byte
	done      chan struct{}
	closeOnce sync.Once
}

// NewClient binds an authenticated identity to a websocket connection.
func NewClient(hub *Hub, conn *websocket.Conn, userID uuid.UUID, role models.ChatRole, displayName string) *Client {
	return &Client{
		UserID:      userID,
		Role:        role,
		DisplayName: displayName,
		hub:         hub,
		conn:        conn,
		send:        make(chan []byte, sendBufferSize),
		done:        make(chan struct{}),
	}
}

// Run starts the read and write pumps and blocks until the connection dies.
func (c *Client) Run() {
	go c.writePump()
	c.readPump()
}

// enqueue attempts a non-blocking delivery to the client's outbound buffer.
// It reports false for a shut-down client or a full buffer; the hub treats
// a full buffer as a slow consumer and evicts the connection instead of
// blocking a broadcast.
func (c *Client) enqueue(payload []byte) bool {
	select {
	case <-c.done:
		return false
	default:
	}
	select {
	case c.send <- payload:
		return true
	default:
		return false
	}
}

// shutdown signals both pumps to stop. The send channel itself is never
// closed: the client's own read loop may be inside a hub call that
// enqueues concurrently with an eviction, and a send on a closed channel
// would panic.
func (c *Client) shutdown() {
	c.closeOnce.Do(func() {
		close(c.done)
	})
}

// readPump pumps inbound events from the connection to the hub. One
// goroutine per connection; a malformed event never escapes past the
// dispatch switch, so one bad client cannot affect another.
func (c *Client) readPump() {
	defer func() {
		c.hub.Disconnect(c)
		c.shutdown()
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxFrameSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("chat client %s/%s read error: %v", c.Role, c.UserID, err)
			}
			return
		}

		var event ClientEvent
		if err := json.Unmarshal(raw, &event); err != nil {
			c.enqueue(errorPayload("invalid event payload"))
			continue
		}

		switch event.Type {
		case EventJoinChat:
			c.hub.Join(c, event.ConversationID)
		case EventLeaveChat:
			c.hub.Leave(c, event.ConversationID)
		case EventSendMessage:
			c.hub.Send(c, event.ConversationID, event.Content)
		case EventTyping:
			c.hub.Typing(c, event.ConversationID, event.IsTyping)
		default:
			c.enqueue(errorPayload("unknown event type"))
		}
	}
}

// writePump pumps outbound payloads from the hub to the connection and
// keeps the connection alive with pings.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case payload := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}
		case <-c.done:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			c.conn.WriteMessage(websocket.CloseMessage, []byte{})
			return
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
