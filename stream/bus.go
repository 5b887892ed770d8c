package stream

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"

	"github.com/Tayyab2344/Trello/domain"
)

// RedisBus fans envelopes out across service instances over one pub/sub
// channel. Redis preserves publish order per publisher, which together with
// the router's in-order delivery gives single-channel FIFO to each
// subscriber.
type RedisBus struct {
	rc      *redis.Client
	channel string
	log     *log.Logger
}

func NewRedisBus(rc *redis.Client, channel string, logger *log.Logger) *RedisBus {
	if logger == nil {
		logger = log.StandardLogger()
	}
	return &RedisBus{rc: rc, channel: channel, log: logger}
}

// Publish sends one envelope to every instance, including this one. Local
// delivery happens only through the subscription so an event reaches each
// connection exactly once.
func (b *RedisBus) Publish(ctx context.Context, env domain.Envelope) error {
	data, err := json.Marshal(env)
	if err != nil {
		return err
	}
	return b.rc.Publish(ctx, b.channel, data).Err()
}

// Run consumes the bus and applies envelopes to the local router until the
// context is cancelled, reconnecting when the subscription drops.
func (b *RedisBus) Run(ctx context.Context, router *Router) {
	for {
		sub := b.rc.Subscribe(ctx, b.channel)
		ch := sub.Channel()
	recv:
		for {
			select {
			case <-ctx.Done():
				sub.Close()
				return
			case msg, ok := <-ch:
				if !ok {
					break recv
				}
				b.deliver(router, msg.Payload)
			}
		}
		sub.Close()
		if ctx.Err() != nil {
			return
		}
		b.log.Error("fanout subscription closed, reconnecting")
		time.Sleep(time.Second)
	}
}

func (b *RedisBus) deliver(router *Router, payload string) {
	var env domain.Envelope
	if err := json.Unmarshal([]byte(payload), &env); err != nil {
		b.log.Errorf("unable to parse envelope: %v", err)
		return
	}
	// Join hints run before delivery so a freshly entitled user's
	// connections observe the very event that granted access.
	if env.SubscribeUser != "" {
		router.SubscribeUser(env.SubscribeUser, env.Channel)
	}
	data, err := json.Marshal(env.Event)
	if err != nil {
		b.log.Errorf("marshal event: %v", err)
		return
	}
	router.Publish(env.Channel, data)
	if env.UnsubscribeUser != "" {
		router.UnsubscribeUser(env.UnsubscribeUser, env.Channel)
	}
}
