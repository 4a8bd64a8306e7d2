// Package localstore - долговременное хранилище ключ-значение на устройстве.
package localstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

// Ключи локального хранилища
const (
	KeyOfflineAlerts = "neighborhoodAlerts"
	KeyAuthorKeys    = "authorKeys"
	KeyUsername      = "username"
)

// ErrNotFound возвращается Get, если ключ отсутствует
var ErrNotFound = errors.New("localstore: key not found")

// Store - синхронное хранилище; каждая запись сохраняется сразу
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	Close() error
}

// GetJSON читает значение ключа в dst. Возвращает false, если ключа нет.
func GetJSON(ctx context.Context, s Store, key string, dst any) (bool, error) {
	raw, err := s.Get(ctx, key)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return false, fmt.Errorf("localstore: failed to decode %q: %w", key, err)
	}
	return true, nil
}

// SetJSON сериализует value и сохраняет под ключом
func SetJSON(ctx context.Context, s Store, key string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("localstore: failed to encode %q: %w", key, err)
	}
	return s.Set(ctx, key, raw)
}
