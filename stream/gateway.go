package stream

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"

	"github.com/Tayyab2344/Trello/domain"
)

const dispatchTimeout = 10 * time.Second

// inboundMessage is one control frame from the UI, e.g.
// {"event":"joinBoard","data":"<boardId>"}.
type inboundMessage struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// HandlerFunc processes one inbound control message.
type HandlerFunc func(ctx context.Context, c *Client, data json.RawMessage) error

// Dispatch maps control message names to handlers. It is built once per
// process; every accepted connection shares the same table.
type Dispatch map[string]HandlerFunc

func (d Dispatch) handle(c *Client, msg inboundMessage) {
	h, ok := d[msg.Event]
	if !ok {
		c.log.WithFields(log.Fields{"conn": c.ID, "event": msg.Event}).Warn("unknown control message")
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), dispatchTimeout)
	defer cancel()
	if err := h(ctx, c, msg.Data); err != nil {
		c.log.WithFields(log.Fields{"conn": c.ID, "user": c.UserID, "event": msg.Event}).Warnf("control message rejected: %v", err)
	}
}

// Memberships is the entitlement lookup the gateway needs.
type Memberships interface {
	ChannelsFor(ctx context.Context, userID string) ([]string, error)
	CanAccess(ctx context.Context, userID, boardID string) (bool, error)
}

// Gateway accepts authenticated websocket connections, eagerly subscribes
// them to every entitled channel and routes their control messages.
type Gateway struct {
	router   *Router
	fanout   *Fanout
	members  Memberships
	dispatch Dispatch
	log      *log.Logger
}

func NewGateway(router *Router, fanout *Fanout, members Memberships, logger *log.Logger) *Gateway {
	if logger == nil {
		logger = log.StandardLogger()
	}
	g := &Gateway{router: router, fanout: fanout, members: members, log: logger}
	g.dispatch = Dispatch{
		"authenticate": g.handleAuthenticate,
		"joinBoard":    g.handleJoinBoard,
		"leaveBoard":   g.handleLeaveBoard,
		"typing":       g.handleTyping,
		"notify":       g.handleNotify,
	}
	return g
}

// Accept registers the connection, subscribes it to its personal channel
// and every entitled board channel, and starts the pumps.
func (g *Gateway) Accept(ctx context.Context, conn *websocket.Conn, userID string) (*Client, error) {
	c := newClient(g.router, conn, userID, g.log)
	g.router.Register(c)
	if err := g.resubscribe(ctx, c); err != nil {
		g.router.Unregister(c)
		return nil, err
	}
	go c.writePump()
	go c.readPump(g.dispatch)
	g.log.WithFields(log.Fields{"conn": c.ID, "user": userID}).Info("connection accepted")
	return c, nil
}

func (g *Gateway) resubscribe(ctx context.Context, c *Client) error {
	channels, err := g.members.ChannelsFor(ctx, c.UserID)
	if err != nil {
		return err
	}
	for _, channel := range channels {
		g.router.Subscribe(c, channel)
	}
	return nil
}

// handleAuthenticate re-syncs the connection's subscriptions. The user
// identity comes from the upgrade-time token, never from the message body.
func (g *Gateway) handleAuthenticate(ctx context.Context, c *Client, _ json.RawMessage) error {
	return g.resubscribe(ctx, c)
}

func (g *Gateway) handleJoinBoard(ctx context.Context, c *Client, data json.RawMessage) error {
	var boardID string
	if err := json.Unmarshal(data, &boardID); err != nil {
		return err
	}
	ok, err := g.members.CanAccess(ctx, c.UserID, boardID)
	if err != nil {
		return err
	}
	if !ok {
		return domain.ErrUnauthorized
	}
	g.router.Subscribe(c, boardID)
	return nil
}

func (g *Gateway) handleLeaveBoard(_ context.Context, c *Client, data json.RawMessage) error {
	var boardID string
	if err := json.Unmarshal(data, &boardID); err != nil {
		return err
	}
	g.router.Unsubscribe(c, boardID)
	return nil
}

func (g *Gateway) handleTyping(ctx context.Context, c *Client, data json.RawMessage) error {
	var t domain.TypingData
	if err := json.Unmarshal(data, &t); err != nil {
		return err
	}
	return g.fanout.AnnounceTyping(ctx, c.UserID, t)
}

type notifyMessage struct {
	BoardID string `json:"boardId"`
	Message string `json:"message"`
	Type    string `json:"type"`
}

// handleNotify relays a free-form notification into a board channel. Board
// membership is required; a guessed board id is not enough to broadcast
// into its channel.
func (g *Gateway) handleNotify(ctx context.Context, c *Client, data json.RawMessage) error {
	var n notifyMessage
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	if n.BoardID == "" {
		return errors.New("missing boardId")
	}
	return g.fanout.Relay(ctx, c.UserID, n.BoardID, n.Message, n.Type)
}
