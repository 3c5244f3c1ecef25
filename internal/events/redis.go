package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// RedisPublisher fans events out over Redis pub/sub, one channel per item.
type RedisPublisher struct {
	client *redis.Client
}

func NewRedisPublisher(ctx context.Context, addr, password string, db int) (*RedisPublisher, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return &RedisPublisher{client: rdb}, nil
}

func Channel(itemID string) string { return fmt.Sprintf("bid_events:%s", itemID) }

func (p *RedisPublisher) Publish(ctx context.Context, e Event) error {
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	return p.client.Publish(ctx, Channel(e.ItemID), data).Err()
}

func (p *RedisPublisher) Close() error { return p.client.Close() }
