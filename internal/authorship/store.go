// Package authorship хранит на устройстве ключи автора: владение ключом дает право
// изменять и удалять собственное сообщение. Это не аутентификация, а секрет-возможность.
package authorship

import (
	"context"
	"fmt"
	"math/rand/v2"
	"strconv"
	"sync"
	"time"

	"github.com/shenikar/neighborhood_alerts/internal/localstore"
)

const suffixLen = 9

// Store - отображение id сообщения -> ключ автора, сохраняемое сразу при каждом изменении
type Store struct {
	kv  localstore.Store
	now func() time.Time

	mu sync.Mutex
}

// NewStore создает Store поверх локального хранилища
func NewStore(kv localstore.Store) *Store {
	return &Store{kv: kv, now: time.Now}
}

// NewToken генерирует ключ: метка времени в base-36 и случайный суффикс в base-36.
// Не криптостойкий.
func NewToken(now time.Time) string {
	suffix := make([]byte, suffixLen)
	const digits = "0123456789abcdefghijklmnopqrstuvwxyz"
	for i := range suffix {
		suffix[i] = digits[rand.IntN(len(digits))]
	}
	return strconv.FormatInt(now.UnixMilli(), 36) + string(suffix)
}

// Issue создает новый ключ для alertID и сохраняет его
func (s *Store) Issue(ctx context.Context, alertID int64) (string, error) {
	token := NewToken(s.now())
	if err := s.Put(ctx, alertID, token); err != nil {
		return "", err
	}
	return token, nil
}

// Put сохраняет заранее выданный ключ для alertID
func (s *Store) Put(ctx context.Context, alertID int64, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	keys, err := s.load(ctx)
	if err != nil {
		return err
	}
	keys[strconv.FormatInt(alertID, 10)] = token
	return s.save(ctx, keys)
}

// Check возвращает ключ для alertID, если устройство им владеет
func (s *Store) Check(ctx context.Context, alertID int64) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	keys, err := s.load(ctx)
	if err != nil {
		return "", false, err
	}
	token, ok := keys[strconv.FormatInt(alertID, 10)]
	if !ok || token == "" {
		return "", false, nil
	}
	return token, true, nil
}

// Revoke удаляет ключ для alertID; отсутствие записи не ошибка
func (s *Store) Revoke(ctx context.Context, alertID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	keys, err := s.load(ctx)
	if err != nil {
		return err
	}
	id := strconv.FormatInt(alertID, 10)
	if _, ok := keys[id]; !ok {
		return nil
	}
	delete(keys, id)
	return s.save(ctx, keys)
}

func (s *Store) load(ctx context.Context) (map[string]string, error) {
	keys := make(map[string]string)
	if _, err := localstore.GetJSON(ctx, s.kv, localstore.KeyAuthorKeys, &keys); err != nil {
		return nil, fmt.Errorf("authorship: failed to load keys: %w", err)
	}
	if keys == nil {
		keys = make(map[string]string)
	}
	return keys, nil
}

func (s *Store) save(ctx context.Context, keys map[string]string) error {
	if err := localstore.SetJSON(ctx, s.kv, localstore.KeyAuthorKeys, keys); err != nil {
		return fmt.Errorf("authorship: failed to save keys: %w", err)
	}
	return nil
}
