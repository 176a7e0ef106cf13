package simulator

import (
	"context"
	"encoding/json"

	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"trustpay-sync/internal/core/domain"
	"trustpay-sync/internal/core/ports"
)

// PubSubChannel is the Redis channel carrying escrow events between
// simulator replicas.
const PubSubChannel = "escrow_events_broadcast"

// RedisPublisher implements ports.EventPublisher on Redis Pub/Sub, so an
// escrow mutation handled by one replica reaches clients connected to any
// replica's hub.
type RedisPublisher struct {
	log    zerolog.Logger
	client *goredis.Client
}

// NewRedisPublisher creates a RedisPublisher.
func NewRedisPublisher(log zerolog.Logger, client *goredis.Client) *RedisPublisher {
	return &RedisPublisher{log: log, client: client}
}

var _ ports.EventPublisher = (*RedisPublisher)(nil)

// PublishEscrowEvent pushes an envelope onto the broadcast channel.
func (p *RedisPublisher) PublishEscrowEvent(ctx context.Context, env domain.EventEnvelope) error {
	payload, err := json.Marshal(env)
	if err != nil {
		return err
	}
	if err := p.client.Publish(ctx, PubSubChannel, payload).Err(); err != nil {
		return err
	}
	p.log.Debug().
		Str("escrow_id", env.EscrowID).
		Str("type", env.Type).
		Msg("escrow event published")
	return nil
}

// HubPublisher implements ports.EventPublisher against the local hub only,
// for single-replica runs without Redis.
type HubPublisher struct {
	hub *Hub
}

// NewHubPublisher creates a HubPublisher.
func NewHubPublisher(hub *Hub) *HubPublisher {
	return &HubPublisher{hub: hub}
}

var _ ports.EventPublisher = (*HubPublisher)(nil)

// PublishEscrowEvent hands the envelope straight to the hub.
func (p *HubPublisher) PublishEscrowEvent(_ context.Context, env domain.EventEnvelope) error {
	p.hub.Broadcast(env)
	return nil
}

// StartSubscriber runs a goroutine that listens on the broadcast channel
// and forwards each envelope to the hub until ctx ends.
func StartSubscriber(ctx context.Context, log zerolog.Logger, client *goredis.Client, hub *Hub) {
	sub := client.Subscribe(ctx, PubSubChannel)
	ch := sub.Channel()
	go func() {
		for {
			select {
			case <-ctx.Done():
				_ = sub.Close()
				return
			case msg := <-ch:
				if msg == nil {
					continue
				}
				var env domain.EventEnvelope
				if err := json.Unmarshal([]byte(msg.Payload), &env); err != nil {
					log.Warn().Err(err).Msg("dropping undecodable broadcast payload")
					continue
				}
				hub.Broadcast(env)
			}
		}
	}()
}
