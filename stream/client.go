package stream

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings with this period; must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum inbound control message size.
	maxMessageSize = 64 * 1024

	// Outbound queue depth per connection. A consumer that falls this far
	// behind is dropped by the router.
	sendQueueSize = 64
)

// Client is one live websocket connection bound to an authenticated user.
type Client struct {
	ID     string
	UserID string

	router *Router
	conn   *websocket.Conn
	send   chan []byte
	log    *log.Logger
}

func newClient(router *Router, conn *websocket.Conn, userID string, logger *log.Logger) *Client {
	if logger == nil {
		logger = log.StandardLogger()
	}
	return &Client{
		ID:     uuid.NewString(),
		UserID: userID,
		router: router,
		conn:   conn,
		send:   make(chan []byte, sendQueueSize),
		log:    logger,
	}
}

func (c *Client) trySend(message []byte) bool {
	select {
	case c.send <- message:
		return true
	default:
		return false
	}
}

// readPump reads control messages from the peer and hands them to the
// dispatch table until the connection drops.
func (c *Client) readPump(dispatch Dispatch) {
	defer func() {
		c.router.Unregister(c)
		c.conn.Close()
	}()

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
				c.log.WithFields(log.Fields{"conn": c.ID, "user": c.UserID}).Warnf("read: %v", err)
			}
			return
		}
		var msg inboundMessage
		if err := json.Unmarshal(message, &msg); err != nil {
			c.log.WithField("conn", c.ID).Warnf("bad control message: %v", err)
			continue
		}
		dispatch.handle(c, msg)
	}
}

// writePump drains the send queue to the peer and keeps the connection
// alive with pings. It exits when the router closes the queue.
func (c *Client) writePump() {
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
