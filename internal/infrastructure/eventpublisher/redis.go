package eventpublisher

import (
	"context"

	"github.com/redis/go-redis/v9"

	"github.com/iho/beanledger/internal/domain"
)

// DefaultRedisChannelPrefix prefixes the per-aggregate pub/sub channels.
const DefaultRedisChannelPrefix = "beanledger:events:"

// RedisPublisher fans events out over Redis pub/sub. Each aggregate type
// gets its own channel, e.g. beanledger:events:transaction.
type RedisPublisher struct {
	client redis.UniversalClient
	prefix string
}

// NewRedisPublisher creates a new RedisPublisher.
func NewRedisPublisher(client redis.UniversalClient, prefix string) *RedisPublisher {
	if prefix == "" {
		prefix = DefaultRedisChannelPrefix
	}

	return &RedisPublisher{client: client, prefix: prefix}
}

// Channel returns the channel events of aggregateType are published on.
func (p *RedisPublisher) Channel(aggregateType string) string {
	return p.prefix + aggregateType
}

// Publish sends the event envelope to the aggregate's channel.
func (p *RedisPublisher) Publish(ctx context.Context, event *domain.OutboxEvent) error {
	payload, err := Encode(event)
	if err != nil {
		return err
	}

	return p.client.Publish(ctx, p.Channel(event.AggregateType), payload).Err()
}
