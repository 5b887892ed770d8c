package stream

import (
	"sync"

	log "github.com/sirupsen/logrus"
)

// Router keeps the live connection-to-channel subscriptions. Channels are
// plain map keys: one per board and one per user, created on first
// subscriber and forgotten when the last one leaves. The router carries no
// business logic; entitlement decisions happen before Subscribe is called.
type Router struct {
	mu       sync.RWMutex
	channels map[string]map[*Client]struct{}
	byClient map[*Client]map[string]struct{}
	byUser   map[string]map[*Client]struct{}
	log      *log.Logger
}

func NewRouter(logger *log.Logger) *Router {
	if logger == nil {
		logger = log.StandardLogger()
	}
	return &Router{
		channels: make(map[string]map[*Client]struct{}),
		byClient: make(map[*Client]map[string]struct{}),
		byUser:   make(map[string]map[*Client]struct{}),
		log:      logger,
	}
}

// Register adds a connection to the routing table.
func (r *Router) Register(c *Client) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byClient[c]; ok {
		return
	}
	r.byClient[c] = make(map[string]struct{})
	conns, ok := r.byUser[c.UserID]
	if !ok {
		conns = make(map[*Client]struct{})
		r.byUser[c.UserID] = conns
	}
	conns[c] = struct{}{}
}

// Unregister drops the connection from every channel and closes its send
// queue, terminating the write pump.
func (r *Router) Unregister(c *Client) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.drop(c)
}

func (r *Router) drop(c *Client) {
	subs, ok := r.byClient[c]
	if !ok {
		return
	}
	for channel := range subs {
		r.leave(c, channel)
	}
	delete(r.byClient, c)
	if conns, ok := r.byUser[c.UserID]; ok {
		delete(conns, c)
		if len(conns) == 0 {
			delete(r.byUser, c.UserID)
		}
	}
	close(c.send)
}

// Subscribe joins the connection to a channel. Unknown channels are created
// lazily.
func (r *Router) Subscribe(c *Client, channel string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	subs, ok := r.byClient[c]
	if !ok {
		return
	}
	subs[channel] = struct{}{}
	members, ok := r.channels[channel]
	if !ok {
		members = make(map[*Client]struct{})
		r.channels[channel] = members
	}
	members[c] = struct{}{}
}

// Unsubscribe removes the connection from a channel; empty channels are
// discarded.
func (r *Router) Unsubscribe(c *Client, channel string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if subs, ok := r.byClient[c]; ok {
		delete(subs, channel)
	}
	r.leave(c, channel)
}

func (r *Router) leave(c *Client, channel string) {
	members, ok := r.channels[channel]
	if !ok {
		return
	}
	delete(members, c)
	if len(members) == 0 {
		delete(r.channels, channel)
	}
}

// SubscribeUser joins every live connection of the user to the channel.
// Used when board access is granted so the new member starts observing the
// board without reconnecting.
func (r *Router) SubscribeUser(userID, channel string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for c := range r.byUser[userID] {
		r.byClient[c][channel] = struct{}{}
		members, ok := r.channels[channel]
		if !ok {
			members = make(map[*Client]struct{})
			r.channels[channel] = members
		}
		members[c] = struct{}{}
	}
}

// UnsubscribeUser removes every live connection of the user from the channel.
func (r *Router) UnsubscribeUser(userID, channel string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for c := range r.byUser[userID] {
		if subs, ok := r.byClient[c]; ok {
			delete(subs, channel)
		}
		r.leave(c, channel)
	}
}

// SubscribersOf returns the connection ids currently joined to the channel.
func (r *Router) SubscribersOf(channel string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	members := r.channels[channel]
	out := make([]string, 0, len(members))
	for c := range members {
		out = append(out, c.ID)
	}
	return out
}

// Publish delivers the message to every connection subscribed to the
// channel, in call order per channel. Delivery is best-effort: a connection
// whose send queue is full is dropped rather than allowed to block the
// publisher; it reconciles with a fresh fetch when it reconnects.
func (r *Router) Publish(channel string, message []byte) {
	// Sends happen under the read lock: Unregister holds the write lock
	// while closing a send queue, so no queue can close mid-publish.
	r.mu.RLock()
	var stalled []*Client
	for c := range r.channels[channel] {
		if !c.trySend(message) {
			stalled = append(stalled, c)
		}
	}
	r.mu.RUnlock()
	if len(stalled) == 0 {
		return
	}
	r.mu.Lock()
	for _, c := range stalled {
		r.log.WithFields(log.Fields{"conn": c.ID, "user": c.UserID}).Warn("send queue full, dropping connection")
		r.drop(c)
	}
	r.mu.Unlock()
}
