package feed

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cast"
)

// ChannelName - канал NOTIFY, в который триггер таблицы публикует изменения
func ChannelName(table string) string {
	return "realtime_" + table
}

// PoolProvider отдает пул соединений с backend
type PoolProvider interface {
	Pool(ctx context.Context) (*pgxpool.Pool, error)
}

// notificationWaiter - соединение, ожидающее NOTIFY (*pgx.Conn)
type notificationWaiter interface {
	WaitForNotification(ctx context.Context) (*pgconn.Notification, error)
}

// rowFetcher читает строку таблицы по id без author_key
type rowFetcher func(ctx context.Context, table string, id int64) (map[string]any, error)

// PostgresSource читает изменения через LISTEN/NOTIFY. Каждый поток держит
// отдельное соединение из пула.
type PostgresSource struct {
	pools  PoolProvider
	logger *logrus.Logger
}

// NewPostgresSource создает источник событий поверх пула backend
func NewPostgresSource(pools PoolProvider, logger *logrus.Logger) *PostgresSource {
	return &PostgresSource{pools: pools, logger: logger}
}

// Stream подписывается на канал таблицы и отдает payload уведомлений по порядку
func (s *PostgresSource) Stream(ctx context.Context, table string) (<-chan []byte, error) {
	pool, err := s.pools.Pool(ctx)
	if err != nil {
		return nil, err
	}
	conn, err := pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to acquire listen connection: %w", err)
	}
	channel := ChannelName(table)
	if _, err := conn.Exec(ctx, "LISTEN "+pgx.Identifier{channel}.Sanitize()); err != nil {
		conn.Release()
		return nil, fmt.Errorf("failed to listen %s: %w", channel, err)
	}

	out := make(chan []byte)
	go func() {
		// соединение после прерванного WaitForNotification не возвращается в пул
		raw := conn.Hijack()
		defer raw.Close(context.Background())
		s.forward(ctx, channel, raw, s.fetchRow, out)
	}()
	return out, nil
}

// forward пересылает уведомления в out по одному и закрывает out при выходе.
// Если полную строку прочитать не удалось, поток завершается, чтобы не было пропусков.
func (s *PostgresSource) forward(ctx context.Context, channel string, waiter notificationWaiter, fetch rowFetcher, out chan<- []byte) {
	defer close(out)
	log := s.logger.WithField("channel", channel)

	for {
		n, err := waiter.WaitForNotification(ctx)
		if err != nil {
			if ctx.Err() == nil {
				log.WithError(err).Error("Listen connection lost")
			}
			return
		}

		payload, ok, err := expandPayload(ctx, []byte(n.Payload), fetch)
		if err != nil {
			if ctx.Err() == nil {
				log.WithError(err).Error("Failed to read changed row")
			}
			return
		}
		if !ok {
			log.Debug("Changed row is already gone, skipping event")
			continue
		}

		select {
		case out <- payload:
		case <-ctx.Done():
			return
		}
	}
}

// expandPayload подставляет полную строку вместо ключей, если триггер урезал запись.
// ok=false - строка уже удалена, событие пропускается.
func expandPayload(ctx context.Context, payload []byte, fetch rowFetcher) ([]byte, bool, error) {
	raw, err := parseRaw(payload)
	if err != nil || !raw.Truncated || raw.Record == nil {
		// некорректный payload отбрасывает подписчик
		return payload, true, nil
	}

	id, err := cast.ToInt64E(raw.Record["id"])
	if err != nil {
		return nil, false, fmt.Errorf("feed: truncated record without id: %w", err)
	}
	row, err := fetch(ctx, raw.Table, id)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("feed: failed to read %s %d: %w", raw.Table, id, err)
	}

	raw.Record = row
	raw.Truncated = false
	expanded, err := json.Marshal(raw)
	if err != nil {
		return nil, false, fmt.Errorf("feed: failed to encode expanded payload: %w", err)
	}
	return expanded, true, nil
}

func (s *PostgresSource) fetchRow(ctx context.Context, table string, id int64) (map[string]any, error) {
	pool, err := s.pools.Pool(ctx)
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf(`SELECT to_jsonb(t) - 'author_key' FROM %s t WHERE id = $1`, pgx.Identifier{table}.Sanitize())
	var data []byte
	if err := pool.QueryRow(ctx, query, id).Scan(&data); err != nil {
		return nil, err
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var row map[string]any
	if err := dec.Decode(&row); err != nil {
		return nil, fmt.Errorf("malformed row json: %w", err)
	}
	return row, nil
}
