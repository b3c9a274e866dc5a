package realtime

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// DefaultChannel is the Redis pub/sub channel shared by all instances.
const DefaultChannel = "carenest:realtime"

type envelope struct {
	Group string `json:"group"`
	Event Event  `json:"event"`
}

// RedisBroker fans hub events across instances over Redis pub/sub.
type RedisBroker struct {
	client  *redis.Client
	channel string
	ready   chan struct{}
}

func NewRedisBroker(client *redis.Client, channel string) *RedisBroker {
	if channel == "" {
		channel = DefaultChannel
	}
	return &RedisBroker{client: client, channel: channel, ready: make(chan struct{})}
}

func (b *RedisBroker) Publish(ctx context.Context, group string, ev Event) error {
	payload, err := json.Marshal(envelope{Group: group, Event: ev})
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}
	return b.client.Publish(ctx, b.channel, payload).Err()
}

// Ready is closed once Run holds an active subscription.
func (b *RedisBroker) Ready() <-chan struct{} { return b.ready }

// Run delivers every relayed event to hub until ctx is cancelled.
func (b *RedisBroker) Run(ctx context.Context, hub *Hub) error {
	sub := b.client.Subscribe(ctx, b.channel)
	defer sub.Close()

	if _, err := sub.Receive(ctx); err != nil {
		return fmt.Errorf("subscribe %s: %w", b.channel, err)
	}
	close(b.ready)

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			var env envelope
			if err := json.Unmarshal([]byte(msg.Payload), &env); err != nil {
				zap.L().Warn("discarding malformed realtime envelope", zap.Error(err))
				continue
			}
			hub.Deliver(env.Group, env.Event)
		}
	}
}
