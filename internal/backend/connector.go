// Package backend определяет, доступен ли hosted backend, и держит пул соединений с ним.
package backend

import (
	"context"
	"fmt"
	"sync"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shenikar/neighborhood_alerts/internal/config"
	"github.com/shenikar/neighborhood_alerts/pkg/postgres"
)

// Connector сообщает о состоянии подключения к backend. Состояние вычисляется
// один раз из конфигурации и не перепроверяется по сети.
type Connector struct {
	url       string
	key       string
	connected bool

	once    sync.Once
	pool    *pgxpool.Pool
	poolErr error
}

// NewConnector создает Connector по конфигурации
func NewConnector(cfg *config.Config) *Connector {
	return &Connector{
		url:       cfg.BackendURL,
		key:       cfg.BackendKey,
		connected: cfg.BackendConfigured(),
	}
}

// IsConnected возвращает true, если URL и ключ backend заданы и не являются заглушками
func (c *Connector) IsConnected() bool {
	return c.connected
}

// Pool возвращает пул соединений, создавая его при первом вызове
func (c *Connector) Pool(ctx context.Context) (*pgxpool.Pool, error) {
	if !c.connected {
		return nil, fmt.Errorf("backend connector: pool requested while disconnected")
	}
	c.once.Do(func() {
		c.pool, c.poolErr = postgres.NewPool(ctx, c.url, c.key)
	})
	return c.pool, c.poolErr
}

// Close закрывает пул, если он был создан
func (c *Connector) Close() {
	if c.pool != nil {
		c.pool.Close()
	}
}
