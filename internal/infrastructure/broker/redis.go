// Package broker delivers committed ledger events to Redis pub/sub.
package broker

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"stockledger/internal/config"
	"stockledger/internal/infrastructure/storage/postgres"
	"stockledger/pkg/logger"
)

// NewClient connects to Redis and pings it.
func NewClient(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,

		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolTimeout:  4 * time.Second,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("connect to redis %s: %w", cfg.Addr, err)
	}
	return rdb, nil
}

// Publisher relays outbox messages to a Redis channel. It implements
// postgres.OutboxHandler.
type Publisher struct {
	client  redis.Cmdable
	channel string
}

// NewPublisher creates a publisher for channel.
func NewPublisher(client redis.Cmdable, channel string) *Publisher {
	return &Publisher{client: client, channel: channel}
}

var _ postgres.OutboxHandler = (*Publisher)(nil)

// Handle publishes the message payload as is. Messages that do not decode as
// ledger events are still delivered; subscribers own the schema.
func (p *Publisher) Handle(ctx context.Context, msg *postgres.OutboxMessage) error {
	receivers, err := p.client.Publish(ctx, p.channel, msg.Payload).Result()
	if err != nil {
		return fmt.Errorf("publish %s to %s: %w", msg.ID, p.channel, err)
	}

	if event, decodeErr := msg.Event(); decodeErr == nil {
		logger.Debug(ctx, "ledger event published",
			"channel", p.channel,
			"reference_number", event.ReferenceNumber,
			"receivers", receivers)
	}
	return nil
}
