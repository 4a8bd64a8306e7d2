package feed

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// RedisChannel - канал pub/sub, в который relay пересылает изменения таблицы
func RedisChannel(table string) string {
	return "realtime:" + table
}

// pubSub - часть *redis.PubSub, нужная источнику
type pubSub interface {
	Receive(ctx context.Context) (interface{}, error)
	Channel(opts ...redis.ChannelOption) <-chan *redis.Message
	Close() error
}

// RedisSource читает изменения, опубликованные relay в Redis
type RedisSource struct {
	subscribe func(ctx context.Context, channel string) pubSub
}

// NewRedisSource создает источник событий поверх клиента Redis
func NewRedisSource(client *redis.Client) *RedisSource {
	return &RedisSource{
		subscribe: func(ctx context.Context, channel string) pubSub {
			return client.Subscribe(ctx, channel)
		},
	}
}

// Stream подписывается на канал таблицы. Подписка подтверждается до возврата,
// поэтому события, опубликованные после Stream, не теряются.
func (s *RedisSource) Stream(ctx context.Context, table string) (<-chan []byte, error) {
	channel := RedisChannel(table)
	ps := s.subscribe(ctx, channel)
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, fmt.Errorf("failed to subscribe to %s: %w", channel, err)
	}

	in := ps.Channel()
	out := make(chan []byte)
	go func() {
		defer close(out)
		defer ps.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-in:
				if !ok {
					return
				}
				select {
				case out <- []byte(msg.Payload):
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}
