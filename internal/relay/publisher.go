// Package relay пересылает изменения таблиц backend из LISTEN/NOTIFY в Redis pub/sub,
// чтобы шлюзы с REALTIME_DRIVER=redis не держали соединение с backend на каждую подписку.
package relay

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/shenikar/neighborhood_alerts/internal/feed"
)

// Publisher - интерфейс для публикации событий ленты
type Publisher interface {
	Publish(ctx context.Context, table string, payload []byte) error
}

// RedisPublisher - реализация Publisher, использующая Redis
type RedisPublisher struct {
	redisClient *redis.Client
}

// NewRedisPublisher создает новый RedisPublisher
func NewRedisPublisher(client *redis.Client) *RedisPublisher {
	return &RedisPublisher{
		redisClient: client,
	}
}

// Publish публикует сырое событие в канал таблицы без изменения payload
func (p *RedisPublisher) Publish(ctx context.Context, table string, payload []byte) error {
	if err := p.redisClient.Publish(ctx, feed.RedisChannel(table), payload).Err(); err != nil {
		return fmt.Errorf("failed to publish %s event to Redis: %w", table, err)
	}
	return nil
}
