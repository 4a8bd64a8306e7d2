package redis

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

const defaultPoolSize = 4

// Options - параметры подключения к Redis, через который идут события ленты.
// ClientName виден в CLIENT LIST и отличает шлюз от relay.
type Options struct {
	Addr       string
	Password   string
	DB         int
	PoolSize   int
	ClientName string
}

func clientOptions(opts Options) *redis.Options {
	poolSize := opts.PoolSize
	if poolSize <= 0 {
		poolSize = defaultPoolSize
	}
	return &redis.Options{
		Addr:       opts.Addr,
		Password:   opts.Password,
		DB:         opts.DB,
		PoolSize:   poolSize,
		ClientName: opts.ClientName,
	}
}

// NewRedisClient создает клиент для публикации и подписки на события и проверяет соединение
func NewRedisClient(ctx context.Context, opts Options) (*redis.Client, error) {
	rdb := redis.NewClient(clientOptions(opts))

	// Проверяем соединение с Redis
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to connect to Redis at %s: %w", opts.Addr, err)
	}

	return rdb, nil
}
