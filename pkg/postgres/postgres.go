package postgres

import (
	"context"
	"fmt"
	"net/url"

	"github.com/jackc/pgx/v5/pgxpool"
)

// NewPool создает пул соединений PostgreSQL для hosted backend.
// Ключ доступа подставляется как пароль подключения. Соединения открываются лениво.
func NewPool(ctx context.Context, backendURL, accessKey string) (*pgxpool.Pool, error) {
	cfgPool, err := pgxpool.ParseConfig(backendURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse postgres config: %w", err)
	}
	cfgPool.ConnConfig.Password = accessKey

	dbpool, err := pgxpool.NewWithConfig(ctx, cfgPool)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}
	return dbpool, nil
}

// MigrationURL возвращает URL для golang-migrate (схема pgx5://) с ключом доступа в качестве пароля
func MigrationURL(backendURL, accessKey string) (string, error) {
	u, err := url.Parse(backendURL)
	if err != nil {
		return "", fmt.Errorf("failed to parse backend url: %w", err)
	}
	u.Scheme = "pgx5"
	username := ""
	if u.User != nil {
		username = u.User.Username()
	}
	u.User = url.UserPassword(username, accessKey)
	return u.String(), nil
}
